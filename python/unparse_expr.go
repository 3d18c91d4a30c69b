package python

import (
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/soypat/polyglot/gast"
	"github.com/soypat/polyglot/lang"
)

// Python operator precedence, lowest first.
const (
	precLowest = iota
	precIfExp
	precOr
	precAnd
	precNot
	precCompare
	precBitOr
	precBitXor
	precBitAnd
	precShift
	precArith
	precTerm
	precUnary
	precPow
	precPrimary
	precAtom
)

var binaryPrec = map[gast.Operator]int{
	gast.BitOr: precBitOr, gast.BitXor: precBitXor, gast.BitAnd: precBitAnd,
	gast.LShift: precShift, gast.RShift: precShift,
	gast.Add: precArith, gast.Sub: precArith,
	gast.Mult: precTerm, gast.MatMult: precTerm, gast.Div: precTerm, gast.FloorDiv: precTerm, gast.Mod: precTerm,
	gast.Pow: precPow,
}

func (u *unparser) expr(e gast.Expr) (string, error) {
	if e == nil {
		return "", &lang.StructureError{Kind: "expression", Msg: "missing expression"}
	}
	return u.exprPrec(e, precLowest)
}

// exprPrec renders e, parenthesized when it binds looser than prec.
func (u *unparser) exprPrec(e gast.Expr, prec int) (string, error) {
	s, own, err := u.exprOwn(e)
	if err != nil {
		return "", err
	}
	if own < prec {
		return "(" + s + ")", nil
	}
	return s, nil
}

// truncated renders a division or remainder that rounds toward zero.
// The // and % operators round toward negative infinity.
func (u *unparser) truncated(left gast.Expr, op gast.Operator, right gast.Expr) (string, error) {
	if op == gast.Mod {
		args, err := u.exprList([]gast.Expr{left, right})
		return "np.fmod(" + args + ")", err
	}
	l, err := u.exprPrec(left, precTerm)
	if err != nil {
		return "", err
	}
	r, err := u.exprPrec(right, precTerm+1)
	if err != nil {
		return "", err
	}
	return "int(" + l + " / " + r + ")", nil
}

func (u *unparser) exprList(list []gast.Expr) (string, error) {
	parts := make([]string, len(list))
	for i, e := range list {
		s, err := u.expr(e)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, ", "), nil
}

func (u *unparser) exprOwn(e gast.Expr) (string, int, error) {
	switch e := e.(type) {
	case *gast.Constant:
		return u.constant(e)
	case *gast.Name:
		return e.ID, precAtom, nil
	case *gast.Attribute:
		v, err := u.exprPrec(e.Value, precPrimary)
		if err != nil {
			return "", 0, err
		}
		if c, ok := e.Value.(*gast.Constant); ok {
			if _, isInt := c.Value.(int64); isInt {
				v = "(" + v + ")"
			}
		}
		return v + "." + e.Attr, precPrimary, nil
	case *gast.BinOp:
		if gast.Truncating(e) && (e.Op == gast.FloorDiv || e.Op == gast.Mod) {
			s, err := u.truncated(e.Left, e.Op, e.Right)
			return s, precPrimary, err
		}
		prec, ok := binaryPrec[e.Op]
		if !ok {
			return "", 0, u.unsupported(e, "operator "+e.Op.String())
		}
		leftPrec, rightPrec := prec, prec+1
		if e.Op == gast.Pow {
			leftPrec, rightPrec = precPrimary, precUnary
		}
		left, err := u.exprPrec(e.Left, leftPrec)
		if err != nil {
			return "", 0, err
		}
		right, err := u.exprPrec(e.Right, rightPrec)
		if err != nil {
			return "", 0, err
		}
		if e.Op == gast.Pow {
			return left + "**" + right, prec, nil
		}
		return left + " " + e.Op.Symbol() + " " + right, prec, nil
	case *gast.UnaryOp:
		switch e.Op {
		case gast.Not:
			v, err := u.exprPrec(e.Operand, precNot)
			return "not " + v, precNot, err
		case gast.UAdd, gast.USub, gast.Invert:
			v, err := u.exprPrec(e.Operand, precUnary)
			return e.Op.Symbol() + v, precUnary, err
		}
		return "", 0, u.unsupported(e, "operator "+e.Op.String())
	case *gast.BoolOp:
		prec := precAnd
		if e.Op == gast.Or {
			prec = precOr
		} else if e.Op != gast.And {
			return "", 0, u.unsupported(e, "operator "+e.Op.String())
		}
		if len(e.Values) < 2 {
			return "", 0, u.unsupported(e, "boolean operation with fewer than two operands")
		}
		parts := make([]string, len(e.Values))
		for i, v := range e.Values {
			s, err := u.exprPrec(v, prec+1)
			if err != nil {
				return "", 0, err
			}
			parts[i] = s
		}
		return strings.Join(parts, " "+e.Op.Symbol()+" "), prec, nil
	case *gast.Compare:
		if len(e.Ops) == 0 || len(e.Ops) != len(e.Comparators) {
			return "", 0, u.unsupported(e, "malformed comparison")
		}
		left, err := u.exprPrec(e.Left, precCompare+1)
		if err != nil {
			return "", 0, err
		}
		var sb strings.Builder
		sb.WriteString(left)
		for i, op := range e.Ops {
			if op.Class() != gast.KindCompare {
				return "", 0, u.unsupported(e, "operator "+op.String())
			}
			right, err := u.exprPrec(e.Comparators[i], precCompare+1)
			if err != nil {
				return "", 0, err
			}
			sb.WriteString(" " + op.Symbol() + " " + right)
		}
		return sb.String(), precCompare, nil
	case *gast.Call:
		s, err := u.call(e)
		return s, precPrimary, err
	case *gast.Subscript:
		v, err := u.exprPrec(e.Value, precPrimary)
		if err != nil {
			return "", 0, err
		}
		idx, err := u.slice(e.Slice)
		if err != nil {
			return "", 0, err
		}
		return v + "[" + idx + "]", precPrimary, nil
	case *gast.List:
		list, err := u.exprList(e.Elts)
		return "[" + list + "]", precAtom, err
	case *gast.Tuple:
		list, err := u.exprList(e.Elts)
		if len(e.Elts) == 1 {
			list += ","
		}
		return "(" + list + ")", precAtom, err
	case *gast.ListComp:
		s, err := u.listComp(e)
		return s, precAtom, err
	case *gast.IfExp:
		body, err := u.exprPrec(e.Body, precIfExp+1)
		if err != nil {
			return "", 0, err
		}
		test, err := u.exprPrec(e.Test, precIfExp+1)
		if err != nil {
			return "", 0, err
		}
		orelse, err := u.exprPrec(e.Orelse, precIfExp)
		if err != nil {
			return "", 0, err
		}
		return body + " if " + test + " else " + orelse, precIfExp, nil
	}
	return "", 0, u.unsupported(e, "")
}

func (u *unparser) constant(c *gast.Constant) (string, int, error) {
	var s string
	switch v := c.Value.(type) {
	case nil:
		s = "None"
	case bool:
		s = "False"
		if v {
			s = "True"
		}
	case string:
		s = gast.QuoteString(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	case float64:
		switch {
		case math.IsInf(v, 0) || math.IsNaN(v):
			// No literal spells them.
			s = "float('" + strings.ToLower(strconv.FormatFloat(v, 'g', -1, 64)) + "')"
		default:
			s = gast.FormatFloat(v)
		}
	case complex128:
		if real(v) != 0 {
			s = "complex(" + gast.FormatFloat(real(v)) + ", " + gast.FormatFloat(imag(v)) + ")"
			return s, precPrimary, nil
		}
		s = gast.FormatFloat(imag(v)) + "j"
	default:
		return "", 0, u.unsupported(c, "constant of type "+reflect.TypeOf(v).String())
	}
	if strings.HasPrefix(s, "-") {
		return s, precUnary, nil
	}
	return s, precAtom, nil
}

func (u *unparser) call(c *gast.Call) (string, error) {
	fn, err := u.exprPrec(c.Func, precPrimary)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(c.Args)+len(c.Keywords))
	for _, a := range c.Args {
		s, err := u.expr(a)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	for _, k := range c.Keywords {
		v, err := u.expr(k.Value)
		if err != nil {
			return "", err
		}
		if k.Arg == "" {
			parts = append(parts, "**"+v)
		} else {
			parts = append(parts, k.Arg+"="+v)
		}
	}
	return fn + "(" + strings.Join(parts, ", ") + ")", nil
}

// slice renders the inside of a subscript's brackets.
func (u *unparser) slice(e gast.Expr) (string, error) {
	switch s := e.(type) {
	case *gast.Index:
		return u.expr(s.Value)
	case *gast.Slice:
		var parts [3]string
		for i, p := range []gast.Expr{s.Lower, s.Upper, s.Step} {
			if p == nil {
				continue
			}
			v, err := u.expr(p)
			if err != nil {
				return "", err
			}
			parts[i] = v
		}
		text := parts[0] + ":" + parts[1]
		if s.Step != nil {
			text += ":" + parts[2]
		}
		return text, nil
	case *gast.ExtSlice:
		dims := make([]string, len(s.Dims))
		for i, d := range s.Dims {
			v, err := u.slice(d)
			if err != nil {
				return "", err
			}
			dims[i] = v
		}
		return strings.Join(dims, ", "), nil
	}
	return "", u.unsupported(e, "subscript that is not an index or slice")
}

func (u *unparser) listComp(lc *gast.ListComp) (string, error) {
	elt, err := u.expr(lc.Elt)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString("[" + elt)
	for _, g := range lc.Generators {
		target, err := u.expr(g.Target)
		if err != nil {
			return "", err
		}
		iter, err := u.exprPrec(g.Iter, precOr)
		if err != nil {
			return "", err
		}
		sb.WriteString(" for " + target + " in " + iter)
		for _, cond := range g.Ifs {
			c, err := u.exprPrec(cond, precOr)
			if err != nil {
				return "", err
			}
			sb.WriteString(" if " + c)
		}
	}
	sb.WriteString("]")
	return sb.String(), nil
}
