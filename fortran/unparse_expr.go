package fortran

import (
	"math"
	"strconv"
	"strings"

	"github.com/soypat/polyglot/gast"
)

// Operator precedence of Fortran expressions, lowest first.
const (
	uprecLowest = iota
	uprecOr
	uprecAnd
	uprecNot
	uprecCompare
	uprecAdd // Binary and unary + and -.
	uprecMul
	uprecPow
	uprecAtom
)

var binaryPrec = map[gast.Operator]int{
	gast.Add: uprecAdd, gast.Sub: uprecAdd,
	gast.Mult: uprecMul, gast.Div: uprecMul, gast.FloorDiv: uprecMul,
	gast.Pow: uprecPow,
}

var freeCompare = map[gast.Operator]string{
	gast.Eq: "==", gast.NotEq: "/=", gast.Lt: "<", gast.LtE: "<=", gast.Gt: ">", gast.GtE: ">=",
}

var fixedCompare = map[gast.Operator]string{
	gast.Eq: ".EQ.", gast.NotEq: ".NE.", gast.Lt: ".LT.", gast.LtE: ".LE.", gast.Gt: ".GT.", gast.GtE: ".GE.",
}

// bitIntrinsics spell bitwise operators, which Fortran only has as functions.
var bitIntrinsics = map[gast.Operator]string{
	gast.BitAnd: "IAND", gast.BitOr: "IOR", gast.BitXor: "IEOR", gast.Mod: "MODULO", gast.MatMult: "MATMUL",
}

func (u *unparser) expr(e gast.Expr) (string, error) {
	return u.exprPrec(e, uprecLowest)
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

func (u *unparser) exprOwn(e gast.Expr) (string, int, error) {
	switch e := e.(type) {
	case *gast.Constant:
		s, err := u.constant(e)
		if err != nil {
			return "", 0, err
		}
		if strings.HasPrefix(s, "-") {
			return s, uprecAdd, nil
		}
		return s, uprecAtom, nil
	case *gast.Name:
		return e.ID, uprecAtom, nil
	case *gast.Attribute:
		s, err := u.attribute(e)
		return s, uprecAtom, err
	case *gast.BinOp:
		return u.binOp(e)
	case *gast.UnaryOp:
		return u.unaryOp(e)
	case *gast.BoolOp:
		prec, sep := uprecAnd, " .AND. "
		if e.Op == gast.Or {
			prec, sep = uprecOr, " .OR. "
		}
		parts := make([]string, len(e.Values))
		for i, v := range e.Values {
			s, err := u.exprPrec(v, prec+1)
			if err != nil {
				return "", 0, err
			}
			parts[i] = s
		}
		return strings.Join(parts, sep), prec, nil
	case *gast.Compare:
		if len(e.Ops) != 1 || len(e.Comparators) != 1 {
			return "", 0, u.unsupported(e, "comparison chain")
		}
		ops := freeCompare
		if u.out.fixed {
			ops = fixedCompare
		}
		op, ok := ops[e.Ops[0]]
		if !ok {
			return "", 0, u.unsupported(e, "operator "+e.Ops[0].Symbol())
		}
		left, err := u.exprPrec(e.Left, uprecCompare+1)
		if err != nil {
			return "", 0, err
		}
		right, err := u.exprPrec(e.Comparators[0], uprecCompare+1)
		if err != nil {
			return "", 0, err
		}
		return left + " " + op + " " + right, uprecCompare, nil
	case *gast.Call:
		s, err := u.call(e)
		return s, uprecAtom, err
	case *gast.Subscript:
		s, err := u.subscript(e)
		return s, uprecAtom, err
	case *gast.IfExp:
		s, err := u.intrinsicCall("MERGE", e.Body, e.Orelse, e.Test)
		return s, uprecAtom, err
	case *gast.List:
		s, err := u.arrayConstructor(e.Elts)
		return s, uprecAtom, err
	case *gast.ListComp:
		s, err := u.impliedDo(e)
		return s, uprecAtom, err
	}
	return "", 0, u.unsupported(e, "")
}

func (u *unparser) constant(c *gast.Constant) (string, error) {
	if raw, ok := c.GetString(MetaKindLiteral); ok {
		return raw, nil
	}
	switch v := c.Value.(type) {
	case bool:
		if v {
			return ".TRUE.", nil
		}
		return ".FALSE.", nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return "", u.unsupported(c, "non finite real")
		}
		return gast.FormatFloat(v), nil
	case complex128:
		return "(" + gast.FormatFloat(real(v)) + ", " + gast.FormatFloat(imag(v)) + ")", nil
	case string:
		if strings.ContainsAny(v, "\n\r") {
			return "", u.unsupported(c, "line break in character literal")
		}
		return "'" + strings.ReplaceAll(v, "'", "''") + "'", nil
	}
	return "", u.unsupported(c, "literal has no Fortran form")
}

func (u *unparser) attribute(a *gast.Attribute) (string, error) {
	if path, ok := gast.DottedPath(a); ok {
		switch path {
		case "np.pi", "math.pi":
			return "(4.0d0*ATAN(1.0d0))", nil
		case "np.e", "math.e":
			return "EXP(1.0d0)", nil
		}
		if root, _, _ := strings.Cut(path, "."); isModuleAlias(root) {
			return "", u.unsupported(a, "module attribute")
		}
	}
	base, err := u.exprPrec(a.Value, uprecAtom)
	if err != nil {
		return "", err
	}
	return base + "%" + a.Attr, nil
}

func isModuleAlias(name string) bool {
	return name == gast.NumpyAlias || name == "math" || name == "sys"
}

func (u *unparser) binOp(b *gast.BinOp) (string, int, error) {
	truncating := gast.Truncating(b)
	switch {
	case b.Op == gast.Mod && truncating:
		s, err := u.intrinsicCall("MOD", b.Left, b.Right)
		return s, uprecAtom, err
	case b.Op == gast.FloorDiv && !truncating:
		// Exact for integers: a - MODULO(a, b) is a multiple of b.
		left, err := u.exprPrec(b.Left, uprecAdd)
		if err != nil {
			return "", 0, err
		}
		modulo, err := u.intrinsicCall("MODULO", b.Left, b.Right)
		if err != nil {
			return "", 0, err
		}
		right, err := u.exprPrec(b.Right, uprecMul+1)
		if err != nil {
			return "", 0, err
		}
		return "(" + left + " - " + modulo + ") / " + right, uprecMul, nil
	}
	if fn, ok := bitIntrinsics[b.Op]; ok {
		s, err := u.intrinsicCall(fn, b.Left, b.Right)
		return s, uprecAtom, err
	}
	switch b.Op {
	case gast.LShift:
		s, err := u.intrinsicCall("ISHFT", b.Left, b.Right)
		return s, uprecAtom, err
	case gast.RShift:
		s, err := u.intrinsicCall("ISHFT", b.Left, &gast.UnaryOp{Op: gast.USub, Operand: b.Right})
		return s, uprecAtom, err
	}
	prec, ok := binaryPrec[b.Op]
	if !ok {
		return "", 0, u.unsupported(b, "operator "+b.Op.Symbol())
	}
	op := b.Op.Symbol()
	if b.Op == gast.FloorDiv {
		op = "/"
	}
	leftPrec, rightPrec := prec, prec+1
	if b.Op == gast.Pow {
		leftPrec, rightPrec = prec+1, prec
	}
	left, err := u.exprPrec(b.Left, leftPrec)
	if err != nil {
		return "", 0, err
	}
	right, err := u.exprPrec(b.Right, rightPrec)
	if err != nil {
		return "", 0, err
	}
	if b.Op == gast.Pow {
		return left + "**" + right, prec, nil
	}
	return left + " " + op + " " + right, prec, nil
}

func (u *unparser) unaryOp(un *gast.UnaryOp) (string, int, error) {
	switch un.Op {
	case gast.USub, gast.UAdd:
		operand, err := u.exprPrec(un.Operand, uprecMul)
		if err != nil {
			return "", 0, err
		}
		return un.Op.Symbol() + operand, uprecAdd, nil
	case gast.Not:
		operand, err := u.exprPrec(un.Operand, uprecNot+1)
		if err != nil {
			return "", 0, err
		}
		return ".NOT. " + operand, uprecNot, nil
	case gast.Invert:
		s, err := u.intrinsicCall("NOT", un.Operand)
		return s, uprecAtom, err
	}
	return "", 0, u.unsupported(un, "operator "+un.Op.Symbol())
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

func (u *unparser) intrinsicCall(name string, args ...gast.Expr) (string, error) {
	list, err := u.exprList(args)
	if err != nil {
		return "", err
	}
	return name + "(" + list + ")", nil
}

// call renders a call in expression position: an intrinsic, recovered from
// metadata or the reverse intrinsic table, or a user function.
func (u *unparser) call(c *gast.Call) (string, error) {
	if fn, ok := c.GetString(MetaIntrinsic); ok {
		return u.callWith(c, strings.ToUpper(fn))
	}
	if attr, ok := c.Func.(*gast.Attribute); ok && attr.Attr == "rstrip" && len(c.Args) == 0 {
		return u.intrinsicCall("TRIM", attr.Value)
	}
	name, ok := gast.CalleeName(c)
	if !ok {
		return "", u.unsupported(c, "callee is not a name")
	}
	switch name {
	case "complex":
		if len(c.Args) == 2 && isConstant(c.Args[0]) && isConstant(c.Args[1]) {
			re, err := u.expr(c.Args[0])
			if err != nil {
				return "", err
			}
			im, err := u.expr(c.Args[1])
			if err != nil {
				return "", err
			}
			return "(" + re + ", " + im + ")", nil
		}
	case "len":
		// len of a generalized sequence is its element count.
		return u.callWith(c, "SIZE")
	case "np.array":
		if len(c.Args) == 1 && len(c.Keywords) == 0 {
			return u.exprPrec(c.Args[0], uprecAtom)
		}
	case "range", "print", "sys.exit", "np.zeros", "np.empty":
		return "", u.unsupported(c, name+" in expression position")
	}
	if fn, ok := intrinsicNames[name]; ok {
		return u.callWith(c, fn)
	}
	if strings.Contains(name, ".") {
		return "", u.unsupported(c, "call to module function "+name)
	}
	return u.callWith(c, name)
}

func isConstant(e gast.Expr) bool {
	if _, ok := gast.IntValue(e); ok {
		return true
	}
	switch e := e.(type) {
	case *gast.Constant:
		return true
	case *gast.UnaryOp:
		return e.Op == gast.USub && isConstant(e.Operand)
	}
	return false
}

// callWith renders c as a call to name. The axis keyword of array
// reductions becomes the 1-based DIM argument.
func (u *unparser) callWith(c *gast.Call, name string) (string, error) {
	list, err := u.exprList(c.Args)
	if err != nil {
		return "", err
	}
	parts := []string{}
	if list != "" {
		parts = append(parts, list)
	}
	for _, kw := range c.Keywords {
		arg, value := kw.Arg, kw.Value
		if arg == "axis" {
			arg, value = "dim", gast.AddConst(value, 1)
		}
		v, err := u.expr(value)
		if err != nil {
			return "", err
		}
		parts = append(parts, strings.ToUpper(arg)+"="+v)
	}
	return name + "(" + strings.Join(parts, ", ") + ")", nil
}

// subscript renders a 0-based subscript as a 1-based array reference or
// substring.
func (u *unparser) subscript(s *gast.Subscript) (string, error) {
	base, err := u.exprPrec(s.Value, uprecAtom)
	if err != nil {
		return "", err
	}
	dims := gast.SubscriptDims(s)
	parts := make([]string, len(dims))
	for i, d := range dims {
		switch d := d.(type) {
		case *gast.Index:
			if v, ok := gast.IntValue(d.Value); ok && v < 0 {
				return "", u.unsupported(s, "negative index")
			}
			parts[i], err = u.expr(gast.AddConst(gast.Clone(d.Value), 1))
		case *gast.Slice:
			parts[i], err = u.slice(s, d)
		default:
			return "", u.unsupported(s, "subscript")
		}
		if err != nil {
			return "", err
		}
	}
	return base + "(" + strings.Join(parts, ", ") + ")", nil
}

func (u *unparser) slice(s *gast.Subscript, sl *gast.Slice) (string, error) {
	var lo, hi, step string
	var err error
	for _, bound := range []gast.Expr{sl.Lower, sl.Upper} {
		if v, ok := gast.IntValue(bound); ok && v < 0 {
			return "", u.unsupported(s, "negative slice bound")
		}
	}
	if sl.Lower != nil {
		if lo, err = u.expr(gast.AddConst(gast.Clone(sl.Lower), 1)); err != nil {
			return "", err
		}
	}
	if sl.Upper != nil {
		if hi, err = u.expr(sl.Upper); err != nil {
			return "", err
		}
	}
	text := lo + ":" + hi
	if sl.Step != nil {
		if v, ok := gast.IntValue(sl.Step); !ok || v <= 0 {
			return "", u.unsupported(s, "slice step must be a positive integer constant")
		}
		if step, err = u.expr(sl.Step); err != nil {
			return "", err
		}
		text += ":" + step
	}
	return text, nil
}

func (u *unparser) arrayConstructor(elts []gast.Expr) (string, error) {
	list, err := u.exprList(elts)
	if err != nil {
		return "", err
	}
	return "(/ " + list + " /)", nil
}

// impliedDo renders a list comprehension over a range as an array
// constructor holding an implied DO.
func (u *unparser) impliedDo(lc *gast.ListComp) (string, error) {
	if len(lc.Generators) != 1 || len(lc.Generators[0].Ifs) > 0 {
		return "", u.unsupported(lc, "comprehension with several clauses")
	}
	gen := lc.Generators[0]
	target, ok := gen.Target.(*gast.Name)
	if !ok {
		return "", u.unsupported(lc, "comprehension target")
	}
	bounds, err := u.rangeBounds(lc, gen.Iter)
	if err != nil {
		return "", err
	}
	elt, err := u.expr(lc.Elt)
	if err != nil {
		return "", err
	}
	return "(/ (" + elt + ", " + target.ID + " = " + bounds + ") /)", nil
}

// rangeBounds renders range(begin, end[, step]) as inclusive DO bounds.
func (u *unparser) rangeBounds(node gast.Node, iter gast.Expr) (string, error) {
	begin, end, step, ok := gast.RangeBounds(iter)
	if !ok {
		return "", u.unsupported(node, "iteration over something other than range")
	}
	delta := int64(-1)
	if step != nil {
		v, ok := gast.IntValue(step)
		if !ok || v == 0 {
			return "", u.unsupported(node, "range step must be a non-zero integer constant")
		}
		if v < 0 {
			delta = 1
		}
	}
	list := []gast.Expr{begin, gast.AddConst(gast.Clone(end), delta)}
	if step != nil {
		list = append(list, step)
	}
	return u.exprList(list)
}
