package python

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/soypat/polyglot/gast"
)

// binaryOps maps Python operator tokens to generalized operations.
var binaryOps = map[string]gast.OpPair{
	"+":      {Kind: gast.KindBinOp, Op: gast.Add},
	"-":      {Kind: gast.KindBinOp, Op: gast.Sub},
	"*":      {Kind: gast.KindBinOp, Op: gast.Mult},
	"@":      {Kind: gast.KindBinOp, Op: gast.MatMult},
	"/":      {Kind: gast.KindBinOp, Op: gast.Div},
	"//":     {Kind: gast.KindBinOp, Op: gast.FloorDiv},
	"%":      {Kind: gast.KindBinOp, Op: gast.Mod},
	"**":     {Kind: gast.KindBinOp, Op: gast.Pow},
	"<<":     {Kind: gast.KindBinOp, Op: gast.LShift},
	">>":     {Kind: gast.KindBinOp, Op: gast.RShift},
	"|":      {Kind: gast.KindBinOp, Op: gast.BitOr},
	"^":      {Kind: gast.KindBinOp, Op: gast.BitXor},
	"&":      {Kind: gast.KindBinOp, Op: gast.BitAnd},
	"and":    {Kind: gast.KindBoolOp, Op: gast.And},
	"or":     {Kind: gast.KindBoolOp, Op: gast.Or},
	"==":     {Kind: gast.KindCompare, Op: gast.Eq},
	"!=":     {Kind: gast.KindCompare, Op: gast.NotEq},
	"<":      {Kind: gast.KindCompare, Op: gast.Lt},
	"<=":     {Kind: gast.KindCompare, Op: gast.LtE},
	">":      {Kind: gast.KindCompare, Op: gast.Gt},
	">=":     {Kind: gast.KindCompare, Op: gast.GtE},
	"is":     {Kind: gast.KindCompare, Op: gast.Is},
	"is not": {Kind: gast.KindCompare, Op: gast.IsNot},
	"in":     {Kind: gast.KindCompare, Op: gast.In},
	"not in": {Kind: gast.KindCompare, Op: gast.NotIn},
}

var unaryOps = map[string]gast.OpPair{
	"+":   {Kind: gast.KindUnaryOp, Op: gast.UAdd},
	"-":   {Kind: gast.KindUnaryOp, Op: gast.USub},
	"~":   {Kind: gast.KindUnaryOp, Op: gast.Invert},
	"not": {Kind: gast.KindUnaryOp, Op: gast.Not},
}

func (g *generalizer) expr(n *sitter.Node) (gast.Expr, error) {
	if n == nil {
		return nil, nil
	}
	switch n.Type() {
	case "identifier":
		return gast.NewName(g.text(n)), nil
	case "integer":
		return g.integer(n)
	case "float":
		return g.float(n)
	case "string", "concatenated_string":
		return g.str(n)
	case "true":
		return gast.Bool(true), nil
	case "false":
		return gast.Bool(false), nil
	case "none":
		return gast.None(), nil
	case "parenthesized_expression", "type":
		inner := firstNamed(n)
		if inner == nil {
			return nil, g.structure(n, "empty parentheses")
		}
		return g.expr(inner)
	case "binary_operator":
		return g.binary(n)
	case "boolean_operator":
		return g.boolean(n)
	case "unary_operator":
		return g.unary(n, n.ChildByFieldName("operator").Type(), n.ChildByFieldName("argument"))
	case "not_operator":
		return g.unary(n, "not", n.ChildByFieldName("argument"))
	case "comparison_operator":
		return g.comparison(n)
	case "call":
		return g.call(n)
	case "attribute":
		v, err := g.expr(n.ChildByFieldName("object"))
		if err != nil {
			return nil, err
		}
		return &gast.Attribute{Value: v, Attr: g.text(n.ChildByFieldName("attribute"))}, nil
	case "subscript":
		return g.subscript(n)
	case "list", "list_pattern":
		elts, err := g.exprs(namedChildren(n))
		if err != nil {
			return nil, err
		}
		return &gast.List{Elts: elts}, nil
	case "tuple", "tuple_pattern", "pattern_list", "expression_list":
		elts, err := g.exprs(namedChildren(n))
		if err != nil {
			return nil, err
		}
		return &gast.Tuple{Elts: elts}, nil
	case "list_comprehension":
		return g.listComp(n)
	case "conditional_expression":
		parts, err := g.exprs(namedChildren(n))
		if err != nil {
			return nil, err
		}
		if len(parts) != 3 {
			return nil, g.structure(n, "conditional expression needs three operands")
		}
		return &gast.IfExp{Body: parts[0], Test: parts[1], Orelse: parts[2]}, nil
	}
	return nil, g.unsupported(n, "")
}

func (g *generalizer) exprs(list []*sitter.Node) ([]gast.Expr, error) {
	out := make([]gast.Expr, 0, len(list))
	for _, n := range list {
		e, err := g.expr(n)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// exprList lowers a bare comma separated list: one element is itself,
// more form a tuple.
func (g *generalizer) exprList(list []*sitter.Node) (gast.Expr, error) {
	if len(list) == 1 {
		return g.expr(list[0])
	}
	elts, err := g.exprs(list)
	if err != nil {
		return nil, err
	}
	return &gast.Tuple{Elts: elts}, nil
}

func (g *generalizer) binary(n *sitter.Node) (gast.Expr, error) {
	op := n.ChildByFieldName("operator").Type()
	pair, ok := binaryOps[op]
	if !ok || pair.Kind != gast.KindBinOp {
		return nil, g.unsupported(n, "operator "+op)
	}
	left, err := g.expr(n.ChildByFieldName("left"))
	if err != nil {
		return nil, err
	}
	right, err := g.expr(n.ChildByFieldName("right"))
	if err != nil {
		return nil, err
	}
	return pair.NewOperation(left, right), nil
}

// boolean flattens `a and b and c`, which nests to the left in the
// concrete tree, into a single BoolOp. Parenthesized operands keep their
// nesting.
func (g *generalizer) boolean(n *sitter.Node) (gast.Expr, error) {
	op := n.ChildByFieldName("operator").Type()
	pair := binaryOps[op]
	var operands []*sitter.Node
	left := n.ChildByFieldName("left")
	operands = append(operands, n.ChildByFieldName("right"))
	for left.Type() == "boolean_operator" && left.ChildByFieldName("operator").Type() == op {
		operands = append(operands, left.ChildByFieldName("right"))
		left = left.ChildByFieldName("left")
	}
	operands = append(operands, left)
	values := make([]gast.Expr, len(operands))
	for i, o := range operands {
		v, err := g.expr(o)
		if err != nil {
			return nil, err
		}
		values[len(operands)-1-i] = v
	}
	return pair.NewOperation(values...), nil
}

func (g *generalizer) unary(n *sitter.Node, op string, arg *sitter.Node) (gast.Expr, error) {
	pair, ok := unaryOps[op]
	if !ok {
		return nil, g.unsupported(n, "operator "+op)
	}
	v, err := g.expr(arg)
	if err != nil {
		return nil, err
	}
	return pair.NewOperation(v), nil
}

// comparison lowers a comparison chain. Python evaluates chains natively,
// so they are kept whole. Operators spelled with two keywords arrive as
// one aliased token or as two tokens depending on the grammar version.
func (g *generalizer) comparison(n *sitter.Node) (gast.Expr, error) {
	cmp := &gast.Compare{}
	var pending string
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.Type() == "comment" {
			continue
		}
		if !c.IsNamed() {
			op := c.Type()
			if pending != "" {
				op = pending + " " + op
			}
			if op == "not" || op == "is" {
				pending = op
				continue
			}
			pending = ""
			pair, ok := binaryOps[op]
			if !ok || pair.Kind != gast.KindCompare {
				return nil, g.unsupported(n, "comparison "+op)
			}
			cmp.Ops = append(cmp.Ops, pair.Op)
			continue
		}
		if pending != "" {
			cmp.Ops = append(cmp.Ops, binaryOps[pending].Op)
			pending = ""
		}
		v, err := g.expr(c)
		if err != nil {
			return nil, err
		}
		if cmp.Left == nil {
			cmp.Left = v
		} else {
			cmp.Comparators = append(cmp.Comparators, v)
		}
	}
	if len(cmp.Ops) == 0 || len(cmp.Ops) != len(cmp.Comparators) {
		return nil, g.structure(n, "malformed comparison")
	}
	return cmp, nil
}

func (g *generalizer) call(n *sitter.Node) (gast.Expr, error) {
	fn, err := g.expr(n.ChildByFieldName("function"))
	if err != nil {
		return nil, err
	}
	call := &gast.Call{Func: fn}
	args := n.ChildByFieldName("arguments")
	if args.Type() != "argument_list" {
		return nil, g.unsupported(args, "")
	}
	for _, a := range namedChildren(args) {
		switch a.Type() {
		case "keyword_argument":
			v, err := g.expr(a.ChildByFieldName("value"))
			if err != nil {
				return nil, err
			}
			call.Keywords = append(call.Keywords, &gast.Keyword{Arg: g.text(a.ChildByFieldName("name")), Value: v})
		case "dictionary_splat":
			v, err := g.expr(firstNamed(a))
			if err != nil {
				return nil, err
			}
			call.Keywords = append(call.Keywords, &gast.Keyword{Value: v})
		default:
			if len(call.Keywords) > 0 {
				return nil, g.structure(n, "positional argument after keyword argument")
			}
			v, err := g.expr(a)
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, v)
		}
	}
	return call, nil
}

// subscript lowers indexing. Several comma separated subscripts form a
// multi-dimensional subscript.
func (g *generalizer) subscript(n *sitter.Node) (gast.Expr, error) {
	value, err := g.expr(n.ChildByFieldName("value"))
	if err != nil {
		return nil, err
	}
	var dims []gast.Expr
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.StartByte() == n.ChildByFieldName("value").StartByte() || c.Type() == "comment" {
			continue
		}
		var d gast.Expr
		if c.Type() == "slice" {
			d, err = g.slice(c)
		} else {
			var v gast.Expr
			v, err = g.expr(c)
			d = &gast.Index{Value: v}
		}
		if err != nil {
			return nil, err
		}
		dims = append(dims, d)
	}
	if len(dims) == 0 {
		return nil, g.structure(n, "empty subscript")
	}
	return gast.NewSubscript(value, dims...), nil
}

// slice lowers `lower:upper:step`. Which part an expression fills is
// given by the number of colons before it.
func (g *generalizer) slice(n *sitter.Node) (gast.Expr, error) {
	var parts [3]gast.Expr
	colons := 0
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch {
		case c.Type() == ":":
			colons++
		case c.IsNamed() && c.Type() != "comment":
			if colons > 2 {
				return nil, g.structure(n, "too many colons")
			}
			v, err := g.expr(c)
			if err != nil {
				return nil, err
			}
			parts[colons] = v
		}
	}
	return &gast.Slice{Lower: parts[0], Upper: parts[1], Step: parts[2]}, nil
}

func (g *generalizer) listComp(n *sitter.Node) (gast.Expr, error) {
	elt, err := g.expr(n.ChildByFieldName("body"))
	if err != nil {
		return nil, err
	}
	lc := &gast.ListComp{Elt: elt}
	for _, c := range namedChildren(n) {
		switch c.Type() {
		case "for_in_clause":
			target, err := g.expr(c.ChildByFieldName("left"))
			if err != nil {
				return nil, err
			}
			iter, err := g.expr(c.ChildByFieldName("right"))
			if err != nil {
				return nil, err
			}
			lc.Generators = append(lc.Generators, &gast.Comprehension{Target: target, Iter: iter})
		case "if_clause":
			if len(lc.Generators) == 0 {
				return nil, g.structure(n, "condition before for clause")
			}
			cond, err := g.expr(firstNamed(c))
			if err != nil {
				return nil, err
			}
			last := lc.Generators[len(lc.Generators)-1]
			last.Ifs = append(last.Ifs, cond)
		}
	}
	if len(lc.Generators) == 0 {
		return nil, g.structure(n, "comprehension without for clause")
	}
	return lc, nil
}

func (g *generalizer) integer(n *sitter.Node) (gast.Expr, error) {
	text := g.text(n)
	if imag, ok := strings.CutSuffix(strings.ToLower(text), "j"); ok {
		v, err := strconv.ParseFloat(strings.ReplaceAll(imag, "_", ""), 64)
		if err != nil {
			return nil, g.structure(n, err.Error())
		}
		return &gast.Constant{Value: complex(0, v)}, nil
	}
	v, err := strconv.ParseInt(text, 0, 64)
	if err != nil {
		return nil, g.unsupported(n, "integer literal out of range")
	}
	return gast.Int(v), nil
}

func (g *generalizer) float(n *sitter.Node) (gast.Expr, error) {
	text := strings.ReplaceAll(g.text(n), "_", "")
	if imag, ok := strings.CutSuffix(strings.ToLower(text), "j"); ok {
		v, err := strconv.ParseFloat(imag, 64)
		if err != nil {
			return nil, g.structure(n, err.Error())
		}
		return &gast.Constant{Value: complex(0, v)}, nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, g.structure(n, err.Error())
	}
	return gast.Float(v), nil
}

// str lowers string literals and implicit concatenations of them.
// Formatted and byte strings have no generalized form.
func (g *generalizer) str(n *sitter.Node) (gast.Expr, error) {
	parts := []*sitter.Node{n}
	if n.Type() == "concatenated_string" {
		parts = namedChildren(n)
	}
	var sb strings.Builder
	for _, p := range parts {
		s, err := unquote(g.text(p))
		if err != nil {
			return nil, g.unsupported(p, err.Error())
		}
		sb.WriteString(s)
	}
	return gast.Str(sb.String()), nil
}
