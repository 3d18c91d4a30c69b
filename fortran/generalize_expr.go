package fortran

import (
	"strings"

	"github.com/soypat/polyglot/fortran/ast"
	"github.com/soypat/polyglot/fortran/token"
	"github.com/soypat/polyglot/gast"
)

// binaryOps lowers Fortran binary operator tokens. Division between
// integers is special cased to truncating division in binary.
var binaryOps = map[token.Token]gast.OpPair{
	token.Plus:         {Kind: gast.KindBinOp, Op: gast.Add},
	token.Minus:        {Kind: gast.KindBinOp, Op: gast.Sub},
	token.Asterisk:     {Kind: gast.KindBinOp, Op: gast.Mult},
	token.Slash:        {Kind: gast.KindBinOp, Op: gast.Div},
	token.DoubleStar:   {Kind: gast.KindBinOp, Op: gast.Pow},
	token.StringConcat: {Kind: gast.KindBinOp, Op: gast.Add},

	token.EQ:        {Kind: gast.KindCompare, Op: gast.Eq},
	token.EqEq:      {Kind: gast.KindCompare, Op: gast.Eq},
	token.NE:        {Kind: gast.KindCompare, Op: gast.NotEq},
	token.NotEquals: {Kind: gast.KindCompare, Op: gast.NotEq},
	token.LT:        {Kind: gast.KindCompare, Op: gast.Lt},
	token.Less:      {Kind: gast.KindCompare, Op: gast.Lt},
	token.LE:        {Kind: gast.KindCompare, Op: gast.LtE},
	token.LessEq:    {Kind: gast.KindCompare, Op: gast.LtE},
	token.GT:        {Kind: gast.KindCompare, Op: gast.Gt},
	token.Greater:   {Kind: gast.KindCompare, Op: gast.Gt},
	token.GE:        {Kind: gast.KindCompare, Op: gast.GtE},
	token.GreaterEq: {Kind: gast.KindCompare, Op: gast.GtE},
	token.EQV:       {Kind: gast.KindCompare, Op: gast.Eq},
	token.NEQV:      {Kind: gast.KindCompare, Op: gast.NotEq},

	token.AND: {Kind: gast.KindBoolOp, Op: gast.And},
	token.OR:  {Kind: gast.KindBoolOp, Op: gast.Or},
}

var unaryOps = map[token.Token]gast.OpPair{
	token.Minus: {Kind: gast.KindUnaryOp, Op: gast.USub},
	token.Plus:  {Kind: gast.KindUnaryOp, Op: gast.UAdd},
	token.NOT:   {Kind: gast.KindUnaryOp, Op: gast.Not},
}

func (g *generalizer) expr(e ast.Expression) (gast.Expr, error) {
	switch e := e.(type) {
	case *ast.Identifier:
		if e.Value == "*" {
			return nil, g.unsupported(e, "assumed value out of a declaration")
		}
		return gast.NewName(normalizeCase(e.Value)), nil
	case *ast.IntegerLiteral:
		c := gast.Int(e.Value)
		if strings.Contains(e.Raw, "_") {
			c.Set(MetaKindLiteral, e.Raw)
		}
		return c, nil
	case *ast.RealLiteral:
		c := gast.Float(e.Value)
		if e.IsDouble() || strings.Contains(e.Raw, "_") {
			c.Set(MetaKindLiteral, e.Raw)
		}
		return c, nil
	case *ast.StringLiteral:
		return gast.Str(e.Value), nil
	case *ast.LogicalLiteral:
		return gast.Bool(e.Value), nil
	case *ast.ComplexLiteral:
		re, err := g.expr(e.Real)
		if err != nil {
			return nil, err
		}
		im, err := g.expr(e.Imag)
		if err != nil {
			return nil, err
		}
		return gast.NewCall("complex", re, im), nil
	case *ast.ParenExpr:
		return g.expr(e.Expr)
	case *ast.BinaryExpr:
		return g.binary(e)
	case *ast.UnaryExpr:
		pair, ok := unaryOps[e.Op]
		if !ok {
			return nil, g.unsupported(e, "operator "+e.Op.String())
		}
		operand, err := g.expr(e.Operand)
		if err != nil {
			return nil, err
		}
		return pair.NewOperation(operand), nil
	case *ast.ComponentAccess:
		base, err := g.expr(e.Base)
		if err != nil {
			return nil, err
		}
		return &gast.Attribute{Value: base, Attr: normalizeCase(e.Component)}, nil
	case *ast.FunctionCall:
		return g.funcCall(e)
	case *ast.ArrayConstructor:
		return g.arrayConstructor(e)
	case *ast.ImpliedDoLoop:
		return g.impliedDo(e)
	case *ast.RangeExpr:
		return nil, g.unsupported(e, "range out of a subscript")
	case *ast.KeywordArg:
		return nil, g.unsupported(e, "keyword argument out of a call")
	}
	return nil, g.unsupported(e, "")
}

func (g *generalizer) binary(e *ast.BinaryExpr) (gast.Expr, error) {
	pair, ok := binaryOps[e.Op]
	if !ok {
		return nil, g.unsupported(e, "operator "+e.Op.String())
	}
	sides := []ast.Expression{e.Left, e.Right}
	pairs := []gast.OpPair{pair}
	if e.Op.IsRelational() {
		sides, pairs = g.relationalChain(e)
	}
	operands := make([]gast.Expr, len(sides))
	for i, side := range sides {
		v, err := g.expr(side)
		if err != nil {
			return nil, err
		}
		operands[i] = v
	}
	folded, err := gast.Fold(operands, pairs)
	if err != nil {
		return nil, g.structure(e, err.Error())
	}
	if e.Op == token.Slash && g.isInteger(e.Left) && g.isInteger(e.Right) {
		// Integer division truncates toward zero.
		b := folded.(*gast.BinOp)
		return gast.Truncated(b.Left, gast.FloorDiv, b.Right), nil
	}
	return folded, nil
}

// relationalChain flattens the unparenthesized relational operands of e,
// as in a < b < c, into one operand and operator sequence.
func (g *generalizer) relationalChain(e *ast.BinaryExpr) ([]ast.Expression, []gast.OpPair) {
	var sides []ast.Expression
	var pairs []gast.OpPair
	for i, side := range []ast.Expression{e.Left, e.Right} {
		if i == 1 {
			pairs = append(pairs, binaryOps[e.Op])
		}
		if b, ok := side.(*ast.BinaryExpr); ok && b.Op.IsRelational() {
			s, p := g.relationalChain(b)
			sides, pairs = append(sides, s...), append(pairs, p...)
			continue
		}
		sides = append(sides, side)
	}
	return sides, pairs
}

// isInteger reports whether e has integer type, which decides how
// division lowers.
func (g *generalizer) isInteger(e ast.Expression) bool {
	switch e := e.(type) {
	case *ast.IntegerLiteral:
		return true
	case *ast.Identifier:
		spec, ok := g.scope.TypeOf(e.Value)
		return ok && spec.Token == token.INTEGER
	case *ast.ParenExpr:
		return g.isInteger(e.Expr)
	case *ast.UnaryExpr:
		return (e.Op == token.Minus || e.Op == token.Plus) && g.isInteger(e.Operand)
	case *ast.BinaryExpr:
		switch e.Op {
		case token.Plus, token.Minus, token.Asterisk, token.Slash, token.DoubleStar:
			return g.isInteger(e.Left) && g.isInteger(e.Right)
		}
	case *ast.FunctionCall:
		if e.Name == "" {
			return false
		}
		name := normalizeCase(e.Name)
		sym := g.scope.Lookup(name)
		if sym == nil || !sym.IsArray() {
			if in, ok := LookupIntrinsic(name); ok && !g.isUserProcedure(name, sym) {
				switch in.Result {
				case resultInt:
					return true
				case resultArg:
					return len(e.Args) > 0 && g.isInteger(e.Args[0])
				}
				return false
			}
		}
		spec, ok := g.scope.TypeOf(name)
		return ok && spec.Token == token.INTEGER
	}
	return false
}

// isScalar reports whether e is known to have rank zero.
func (g *generalizer) isScalar(e ast.Expression) bool {
	switch e := e.(type) {
	case *ast.IntegerLiteral, *ast.RealLiteral, *ast.ComplexLiteral, *ast.StringLiteral, *ast.LogicalLiteral:
		return true
	case *ast.Identifier:
		sym := g.scope.Lookup(normalizeCase(e.Value))
		return sym == nil || !sym.IsArray()
	case *ast.ParenExpr:
		return g.isScalar(e.Expr)
	case *ast.UnaryExpr:
		return g.isScalar(e.Operand)
	case *ast.BinaryExpr:
		return g.isScalar(e.Left) && g.isScalar(e.Right)
	case *ast.FunctionCall:
		if e.Name == "" {
			return false
		}
		name := normalizeCase(e.Name)
		sym := g.scope.Lookup(name)
		if sym == nil || !sym.IsArray() {
			in, ok := LookupIntrinsic(name)
			if !ok || g.isUserProcedure(name, sym) || in.Result == resultOther {
				return false
			}
		}
		for _, arg := range e.Args {
			if !g.isScalar(arg) {
				return false
			}
		}
		return true
	}
	return false
}

// funcCall lowers name(args), which is an array element or section, a
// substring, a call to a user function or an intrinsic.
func (g *generalizer) funcCall(fc *ast.FunctionCall) (gast.Expr, error) {
	if fc.Name == "" {
		return g.chained(fc)
	}
	name := normalizeCase(fc.Name)
	sym := g.scope.Lookup(name)
	switch {
	case sym != nil && sym.IsArray():
		return g.subscript(sym, fc)
	case sym != nil && isSubstring(sym, fc.Args):
		return g.substring(gast.NewName(name), fc.Args[0].(*ast.RangeExpr))
	case g.isUserProcedure(name, sym):
		return g.userCall(name, fc.Args)
	}
	if in, ok := LookupIntrinsic(name); ok {
		return g.intrinsic(in, fc)
	}
	return g.userCall(name, fc.Args)
}

// isUserProcedure reports whether name refers to a procedure of the file
// or one declared EXTERNAL, shadowing any intrinsic of the same name.
func (g *generalizer) isUserProcedure(name string, sym *Symbol) bool {
	if _, ok := g.procs[name]; ok {
		return true
	}
	if sym == nil || sym.Flags.HasAny(FlagIntrinsic) {
		return false
	}
	if sym.Flags.HasAny(FlagExternal) {
		return true
	}
	_, isIntrinsic := LookupIntrinsic(name)
	return sym.Kind == SymFunction && !isIntrinsic
}

func (g *generalizer) userCall(name string, args []ast.Expression) (gast.Expr, error) {
	pos, keywords, err := g.callArgs(args)
	if err != nil {
		return nil, err
	}
	return &gast.Call{Func: gast.NewName(name), Args: pos, Keywords: keywords}, nil
}

func (g *generalizer) callArgs(args []ast.Expression) (pos []gast.Expr, keywords []*gast.Keyword, err error) {
	for _, arg := range args {
		if kw, ok := arg.(*ast.KeywordArg); ok {
			v, err := g.expr(kw.Value)
			if err != nil {
				return nil, nil, err
			}
			keywords = append(keywords, &gast.Keyword{Arg: normalizeCase(kw.Name), Value: v})
			continue
		}
		if len(keywords) > 0 {
			return nil, nil, g.structure(arg, "positional argument after keyword argument")
		}
		v, err := g.expr(arg)
		if err != nil {
			return nil, nil, err
		}
		pos = append(pos, v)
	}
	return pos, keywords, nil
}

// subscript lowers an array reference, shifting every subscript by the
// lower bound of its dimension so indices start at zero. Section upper
// bounds are exclusive after the shift.
func (g *generalizer) subscript(sym *Symbol, fc *ast.FunctionCall) (gast.Expr, error) {
	dims := make([]gast.Expr, len(fc.Args))
	for i, arg := range fc.Args {
		var lower ast.Expression
		if i < len(sym.Lower) {
			lower = sym.Lower[i]
		}
		rg, isRange := arg.(*ast.RangeExpr)
		if !isRange {
			v, err := g.expr(arg)
			if err != nil {
				return nil, err
			}
			idx, err := g.shift(v, lower, 0)
			if err != nil {
				return nil, err
			}
			dims[i] = &gast.Index{Value: idx}
			continue
		}
		slice := &gast.Slice{}
		if rg.Start != nil {
			v, err := g.expr(rg.Start)
			if err != nil {
				return nil, err
			}
			if slice.Lower, err = g.shift(v, lower, 0); err != nil {
				return nil, err
			}
		}
		if rg.End != nil {
			v, err := g.expr(rg.End)
			if err != nil {
				return nil, err
			}
			if slice.Upper, err = g.shift(v, lower, 1); err != nil {
				return nil, err
			}
		}
		if rg.Stride != nil {
			v, err := g.expr(rg.Stride)
			if err != nil {
				return nil, err
			}
			if c, ok := gast.IntValue(v); !ok || c <= 0 {
				return nil, g.unsupported(fc, "section stride must be a positive integer constant")
			}
			slice.Step = v
		}
		dims[i] = slice
	}
	return gast.NewSubscript(gast.NewName(sym.Name), dims...), nil
}

// shift returns v - lower + delta. A nil lower bound is 1.
func (g *generalizer) shift(v gast.Expr, lower ast.Expression, delta int64) (gast.Expr, error) {
	if lower == nil {
		return gast.AddConst(v, delta-1), nil
	}
	lo, err := g.expr(lower)
	if err != nil {
		return nil, err
	}
	if c, ok := gast.IntValue(lo); ok {
		return gast.AddConst(v, delta-c), nil
	}
	return gast.AddConst(&gast.BinOp{Left: v, Op: gast.Sub, Right: lo}, delta), nil
}

// substring lowers s(i:j) to s[i-1:j].
func (g *generalizer) substring(base gast.Expr, rg *ast.RangeExpr) (gast.Expr, error) {
	if rg.Stride != nil {
		return nil, g.structure(rg, "substring with a stride")
	}
	slice := &gast.Slice{}
	if rg.Start != nil {
		lo, err := g.expr(rg.Start)
		if err != nil {
			return nil, err
		}
		slice.Lower = gast.AddConst(lo, -1)
	}
	if rg.End != nil {
		hi, err := g.expr(rg.End)
		if err != nil {
			return nil, err
		}
		slice.Upper = hi
	}
	return gast.NewSubscript(base, slice), nil
}

// chained lowers a substring of an array element: names(i)(1:3).
func (g *generalizer) chained(fc *ast.FunctionCall) (gast.Expr, error) {
	if len(fc.Args) != 2 {
		return nil, g.unsupported(fc, "chained subscript")
	}
	rg, ok := fc.Args[1].(*ast.RangeExpr)
	if !ok {
		return nil, g.unsupported(fc, "chained subscript")
	}
	base, err := g.expr(fc.Args[0])
	if err != nil {
		return nil, err
	}
	return g.substring(base, rg)
}

// intrinsic lowers a call to an intrinsic function through the table.
func (g *generalizer) intrinsic(in *Intrinsic, fc *ast.FunctionCall) (gast.Expr, error) {
	args, keywords, err := g.callArgs(fc.Args)
	if err != nil {
		return nil, err
	}
	if in.lower != nil {
		if len(args) != intrinsicArity[in.Name] || len(keywords) > 0 {
			return nil, g.structure(fc, "wrong number of arguments to "+strings.ToUpper(in.Name))
		}
		lowered := in.lower(args)
		lowered.Metadata().Set(MetaIntrinsic, in.Name)
		return lowered, nil
	}
	if in.Target == "" {
		return nil, g.unsupported(fc, "intrinsic has no lowering")
	}
	var axis gast.Expr
	switch {
	case in.DimArg > 0 && len(args) > in.DimArg:
		return nil, g.unsupported(fc, "MASK argument of intrinsic")
	case in.DimArg > 0 && len(args) == in.DimArg:
		axis = args[in.DimArg-1]
		args = args[:in.DimArg-1]
	}
	for _, kw := range keywords {
		if kw.Arg != "dim" || in.DimArg == 0 || axis != nil {
			return nil, g.unsupported(fc, "argument "+kw.Arg+" of intrinsic")
		}
		axis = kw.Value
	}
	if (in.Target == "int" || in.Target == "float") && len(args) > 1 {
		return nil, g.unsupported(fc, "KIND argument of type conversion")
	}
	call := gast.NewCall(in.Target, args...)
	if axis != nil {
		call.Keywords = []*gast.Keyword{{Arg: "axis", Value: gast.AddConst(axis, -1)}}
	}
	call.Set(MetaIntrinsic, in.Name)
	if module, alias, ok := in.Import(); ok {
		g.imports.Add(module, alias)
	}
	return call, nil
}

// arrayConstructor lowers (/ ... /) to a numpy array built from a list, or
// from a list comprehension when the constructor is a single implied DO.
func (g *generalizer) arrayConstructor(ac *ast.ArrayConstructor) (gast.Expr, error) {
	var elts gast.Expr
	if len(ac.Values) == 1 {
		if ido, ok := ac.Values[0].(*ast.ImpliedDoLoop); ok {
			comp, err := g.impliedDo(ido)
			if err != nil {
				return nil, err
			}
			elts = comp
		}
	}
	if elts == nil {
		list := &gast.List{}
		for _, v := range ac.Values {
			if _, ok := v.(*ast.ImpliedDoLoop); ok {
				return nil, g.unsupported(ac, "implied DO mixed with values")
			}
			elt, err := g.expr(v)
			if err != nil {
				return nil, err
			}
			list.Elts = append(list.Elts, elt)
		}
		elts = list
	}
	g.imports.Add(gast.NumpyModule, gast.NumpyAlias)
	return gast.NewCall("np.array", elts), nil
}

// impliedDo lowers (expr, i = start, end[, stride]) to a list comprehension.
func (g *generalizer) impliedDo(ido *ast.ImpliedDoLoop) (gast.Expr, error) {
	if len(ido.Expressions) != 1 {
		return nil, g.unsupported(ido, "implied DO over several expressions")
	}
	elt, err := g.expr(ido.Expressions[0])
	if err != nil {
		return nil, err
	}
	start, err := g.expr(ido.Start)
	if err != nil {
		return nil, err
	}
	end, err := g.expr(ido.End)
	if err != nil {
		return nil, err
	}
	var step gast.Expr
	delta := int64(1)
	if ido.Stride != nil {
		if step, err = g.expr(ido.Stride); err != nil {
			return nil, err
		}
		v, ok := gast.IntValue(step)
		if !ok || v == 0 {
			return nil, g.unsupported(ido, "implied DO stride must be a non-zero integer constant")
		}
		if v < 0 {
			delta = -1
		}
	}
	return &gast.ListComp{
		Elt: elt,
		Generators: []*gast.Comprehension{{
			Target: gast.NewName(normalizeCase(ido.LoopVar)),
			Iter:   gast.Range(start, gast.AddConst(end, delta), step),
		}},
	}, nil
}
