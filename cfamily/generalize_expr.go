package cfamily

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/soypat/polyglot/gast"
	"github.com/soypat/polyglot/lang"
)

var binaryOps = map[string]gast.OpPair{
	"+":  {Kind: gast.KindBinOp, Op: gast.Add},
	"-":  {Kind: gast.KindBinOp, Op: gast.Sub},
	"*":  {Kind: gast.KindBinOp, Op: gast.Mult},
	"/":  {Kind: gast.KindBinOp, Op: gast.Div},
	"%":  {Kind: gast.KindBinOp, Op: gast.Mod},
	"<<": {Kind: gast.KindBinOp, Op: gast.LShift},
	">>": {Kind: gast.KindBinOp, Op: gast.RShift},
	"&":  {Kind: gast.KindBinOp, Op: gast.BitAnd},
	"|":  {Kind: gast.KindBinOp, Op: gast.BitOr},
	"^":  {Kind: gast.KindBinOp, Op: gast.BitXor},

	"&&": {Kind: gast.KindBoolOp, Op: gast.And},
	"||": {Kind: gast.KindBoolOp, Op: gast.Or},

	"==": {Kind: gast.KindCompare, Op: gast.Eq},
	"!=": {Kind: gast.KindCompare, Op: gast.NotEq},
	"<":  {Kind: gast.KindCompare, Op: gast.Lt},
	"<=": {Kind: gast.KindCompare, Op: gast.LtE},
	">":  {Kind: gast.KindCompare, Op: gast.Gt},
	">=": {Kind: gast.KindCompare, Op: gast.GtE},
}

var unaryOps = map[string]gast.OpPair{
	"-": {Kind: gast.KindUnaryOp, Op: gast.USub},
	"+": {Kind: gast.KindUnaryOp, Op: gast.UAdd},
	"!": {Kind: gast.KindUnaryOp, Op: gast.Not},
	"~": {Kind: gast.KindUnaryOp, Op: gast.Invert},
}

// mathFuncs maps C math library functions to the generalized callee.
var mathFuncs = map[string]string{
	"sqrt": "np.sqrt", "cbrt": "np.cbrt", "exp": "np.exp", "log": "np.log", "log10": "np.log10", "log2": "np.log2",
	"sin": "np.sin", "cos": "np.cos", "tan": "np.tan",
	"asin": "np.arcsin", "acos": "np.arccos", "atan": "np.arctan", "atan2": "np.arctan2",
	"sinh": "np.sinh", "cosh": "np.cosh", "tanh": "np.tanh",
	"floor": "np.floor", "ceil": "np.ceil", "round": "np.round", "trunc": "np.trunc",
	"fmod": "np.fmod", "hypot": "np.hypot", "copysign": "np.copysign",
	"abs": "abs", "fabs": "abs", "labs": "abs", "fmin": "min", "fmax": "max",
}

// stdFuncs are the members of namespace std that are not in the C math
// library but have a generalized counterpart.
var stdFuncs = map[string]string{"min": "min", "max": "max"}

var mathConsts = map[string]string{"M_PI": "np.pi", "M_E": "np.e", "INFINITY": "np.inf", "NAN": "np.nan"}

func (g *generalizer) expr(n *sitter.Node) (gast.Expr, error) {
	if n == nil {
		return nil, &lang.StructureError{Kind: "expression", Msg: "missing expression"}
	}
	switch n.Type() {
	case "identifier":
		name := g.text(n)
		if name == "NULL" {
			return gast.None(), nil
		}
		if c, ok := mathConsts[name]; ok {
			return gast.Dotted(c), nil
		}
		return gast.NewName(name), nil
	case "qualified_identifier":
		return gast.Dotted(strings.ReplaceAll(strings.TrimPrefix(g.text(n), "std::"), "::", ".")), nil
	case "number_literal":
		e, err := parseNumber(g.text(n))
		if err != nil {
			return nil, g.unsupported(n, err.Error())
		}
		return e, nil
	case "string_literal", "char_literal":
		s, err := unquote(g.text(n))
		if err != nil {
			return nil, g.unsupported(n, err.Error())
		}
		return gast.Str(s), nil
	case "concatenated_string":
		var sb strings.Builder
		for _, c := range namedChildren(n) {
			s, err := unquote(g.text(c))
			if err != nil {
				return nil, g.unsupported(c, err.Error())
			}
			sb.WriteString(s)
		}
		return gast.Str(sb.String()), nil
	case "true":
		return gast.Bool(true), nil
	case "false":
		return gast.Bool(false), nil
	case "null", "nullptr":
		return gast.None(), nil
	case "parenthesized_expression":
		return g.expr(firstNamed(n))
	case "binary_expression":
		return g.binary(n)
	case "unary_expression":
		op := g.text(n.ChildByFieldName("operator"))
		pair, ok := unaryOps[op]
		if !ok {
			return nil, g.unsupported(n, "operator "+op)
		}
		v, err := g.expr(n.ChildByFieldName("argument"))
		if err != nil {
			return nil, err
		}
		return pair.NewOperation(v), nil
	case "call_expression":
		return g.call(n)
	case "subscript_expression":
		return g.subscript(n)
	case "field_expression":
		v, err := g.expr(n.ChildByFieldName("argument"))
		if err != nil {
			return nil, err
		}
		attr := &gast.Attribute{Value: v, Attr: g.text(n.ChildByFieldName("field"))}
		if g.text(n.ChildByFieldName("operator")) == "->" {
			attr.Set(MetaPointer, true)
		}
		return attr, nil
	case "conditional_expression":
		test, err := g.expr(n.ChildByFieldName("condition"))
		if err != nil {
			return nil, err
		}
		body, err := g.expr(n.ChildByFieldName("consequence"))
		if err != nil {
			return nil, err
		}
		orelse, err := g.expr(n.ChildByFieldName("alternative"))
		if err != nil {
			return nil, err
		}
		return &gast.IfExp{Test: test, Body: body, Orelse: orelse}, nil
	case "cast_expression":
		typ, err := g.typeSpec(n.ChildByFieldName("type"))
		if err != nil {
			return nil, err
		}
		if typ == nil || isString(typ) || isNone(typ) {
			return nil, g.unsupported(n, "cast to "+g.text(n.ChildByFieldName("type")))
		}
		v, err := g.expr(n.ChildByFieldName("value"))
		if err != nil {
			return nil, err
		}
		return &gast.Call{Func: typ, Args: []gast.Expr{v}}, nil
	case "initializer_list":
		list := &gast.List{}
		for _, c := range namedChildren(n) {
			e, err := g.expr(c)
			if err != nil {
				return nil, err
			}
			list.Elts = append(list.Elts, e)
		}
		return list, nil
	case "pointer_expression":
		return nil, g.unsupported(n, "address or dereference")
	case "update_expression", "assignment_expression":
		return nil, g.unsupported(n, "side effect inside an expression")
	}
	return nil, g.unsupported(n, "")
}

func (g *generalizer) binary(n *sitter.Node) (gast.Expr, error) {
	op := g.text(n.ChildByFieldName("operator"))
	pair, ok := binaryOps[op]
	if !ok {
		return nil, g.unsupported(n, "operator "+op)
	}
	leftNode := n.ChildByFieldName("left")
	left, err := g.expr(leftNode)
	if err != nil {
		return nil, err
	}
	right, err := g.expr(n.ChildByFieldName("right"))
	if err != nil {
		return nil, err
	}
	// a && b && c is one operation.
	if pair.Kind == gast.KindBoolOp && leftNode.Type() == "binary_expression" {
		if b, ok := left.(*gast.BoolOp); ok && b.Op == pair.Op {
			b.Values = append(b.Values, right)
			return b, nil
		}
	}
	switch {
	case op == "%":
		return gast.Truncated(left, gast.Mod, right), nil
	case op == "/" && g.integral(n):
		return gast.Truncated(left, gast.FloorDiv, right), nil
	}
	return pair.NewOperation(left, right), nil
}

// integral reports whether n is an integer valued expression: an integer
// or character literal, a variable of integer type or an element of an
// integer array, or integer arithmetic over those. Names of unknown type
// are not integral.
func (g *generalizer) integral(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case "number_literal":
		e, err := parseNumber(g.text(n))
		if err != nil {
			return false
		}
		_, ok := e.(*gast.Constant).Value.(int64)
		return ok
	case "char_literal", "true", "false":
		return true
	case "identifier":
		ti, ok := gast.DecodeType(g.vars[g.text(n)])
		return ok && gast.IsIntegerType(ti.Scalar) && !ti.IsArray() && !ti.IsPointer()
	case "subscript_expression":
		arg := n.ChildByFieldName("argument")
		if arg.Type() != "identifier" {
			return false
		}
		ti, ok := gast.DecodeType(g.vars[g.text(arg)])
		return ok && gast.IsIntegerType(ti.Scalar) && (ti.IsArray() || ti.IsPointer())
	case "parenthesized_expression":
		return g.integral(firstNamed(n))
	case "unary_expression":
		if g.text(n.ChildByFieldName("operator")) == "!" {
			return true
		}
		return g.integral(n.ChildByFieldName("argument"))
	case "binary_expression":
		pair, ok := binaryOps[g.text(n.ChildByFieldName("operator"))]
		if !ok {
			return false
		}
		if pair.Kind != gast.KindBinOp {
			return true // Comparisons and logical operators yield int.
		}
		return g.integral(n.ChildByFieldName("left")) && g.integral(n.ChildByFieldName("right"))
	case "cast_expression":
		typ := n.ChildByFieldName("type")
		if typ.ChildByFieldName("declarator") != nil {
			return false
		}
		ann, err := g.typeSpec(typ)
		if err != nil || ann == nil {
			return false
		}
		ti, ok := gast.DecodeType(ann)
		return ok && gast.IsIntegerType(ti.Scalar)
	}
	return false
}

func (g *generalizer) call(n *sitter.Node) (gast.Expr, error) {
	fnNode := n.ChildByFieldName("function")
	argsNode := n.ChildByFieldName("arguments")
	var args []gast.Expr
	if argsNode != nil {
		for _, c := range namedChildren(argsNode) {
			e, err := g.expr(c)
			if err != nil {
				return nil, err
			}
			args = append(args, e)
		}
	}
	switch fnNode.Type() {
	case "identifier", "qualified_identifier":
		name := g.text(fnNode)
		std := strings.HasPrefix(name, "std::")
		name = strings.TrimPrefix(name, "std::")
		if g.defined[name] {
			break
		}
		callee, ok := mathFuncs[name]
		if !ok && (std || g.cpp) {
			callee, ok = stdFuncs[name]
		}
		if !ok && name == "pow" {
			callee, ok = "pow", true
		}
		if !ok {
			break
		}
		if callee == "pow" {
			if len(args) != 2 {
				return nil, g.unsupported(n, "pow with "+strconv.Itoa(len(args))+" arguments")
			}
			pow := &gast.BinOp{Left: args[0], Op: gast.Pow, Right: args[1]}
			pow.Set(MetaIntrinsic, name)
			return pow, nil
		}
		call := gast.NewCall(callee, args...)
		call.Set(MetaIntrinsic, name)
		return call, nil
	case "field_expression":
		if g.cpp && len(args) == 0 && g.text(fnNode.ChildByFieldName("field")) == "size" {
			v, err := g.expr(fnNode.ChildByFieldName("argument"))
			if err != nil {
				return nil, err
			}
			return gast.NewCall("len", v), nil
		}
	}
	fn, err := g.expr(fnNode)
	if err != nil {
		return nil, err
	}
	return &gast.Call{Func: fn, Args: args}, nil
}

func (g *generalizer) subscript(n *sitter.Node) (gast.Expr, error) {
	v, err := g.expr(n.ChildByFieldName("argument"))
	if err != nil {
		return nil, err
	}
	idxNode := n.ChildByFieldName("index")
	if idxNode == nil {
		// C++ subscript argument list.
		list := n.ChildByFieldName("indices")
		if list == nil || len(namedChildren(list)) != 1 {
			return nil, g.unsupported(n, "subscript arity")
		}
		idxNode = namedChildren(list)[0]
	}
	idx, err := g.expr(idxNode)
	if err != nil {
		return nil, err
	}
	return gast.NewSubscript(v, idx), nil
}

// isStream reports whether n is an output chain `std::cout << ...`.
func (g *generalizer) isStream(n *sitter.Node) bool {
	for n.Type() == "binary_expression" && g.text(n.ChildByFieldName("operator")) == "<<" {
		n = n.ChildByFieldName("left")
	}
	name := g.text(n)
	return name == "std::cout" || name == "cout"
}

// coutStmt lowers an output chain to print. Items are written without
// separators, and without a newline unless the chain ends in endl.
func (g *generalizer) coutStmt(n *sitter.Node) (gast.Stmt, error) {
	var items []*sitter.Node
	for n.Type() == "binary_expression" {
		items = append([]*sitter.Node{n.ChildByFieldName("right")}, items...)
		n = n.ChildByFieldName("left")
	}
	newline := false
	if last := items[len(items)-1]; g.text(last) == "std::endl" || g.text(last) == "endl" {
		items, newline = items[:len(items)-1], true
	}
	call := gast.NewCall("print")
	for _, it := range items {
		e, err := g.expr(it)
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, e)
	}
	call.Keywords = []*gast.Keyword{{Arg: "sep", Value: gast.Str("")}}
	if !newline {
		call.Keywords = append(call.Keywords, &gast.Keyword{Arg: "end", Value: gast.Str("")})
	}
	return &gast.ExprStmt{Value: call}, nil
}

// parseNumber converts a C numeric literal, suffixes and digit separators
// included.
func parseNumber(text string) (gast.Expr, error) {
	s := strings.ReplaceAll(text, "'", "")
	lower := strings.ToLower(s)
	hex := strings.HasPrefix(lower, "0x")
	isFloat := strings.ContainsAny(lower, ".p") || (!hex && strings.ContainsAny(lower, "e"))
	if isFloat && !hex {
		s = strings.TrimRight(s, "fFlL")
	} else {
		s = strings.TrimRight(s, "uUlL")
	}
	if isFloat {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}
		return gast.Float(v), nil
	}
	if len(s) > 1 && s[0] == '0' && s[1] >= '0' && s[1] <= '9' {
		s = "0o" + s[1:]
	}
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return nil, err
	}
	return gast.Int(v), nil
}
