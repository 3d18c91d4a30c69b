package cfamily

import (
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/soypat/polyglot/gast"
	"github.com/soypat/polyglot/lang"
)

// C++ operator precedence, lowest first.
const (
	precLowest = iota
	precTernary
	precOr
	precAnd
	precBitOr
	precBitXor
	precBitAnd
	precEq
	precRel
	precShift
	precAdd
	precMul
	precUnary
	precPostfix
	precAtom
)

var binaryPrec = map[gast.Operator]int{
	gast.BitOr: precBitOr, gast.BitXor: precBitXor, gast.BitAnd: precBitAnd,
	gast.LShift: precShift, gast.RShift: precShift,
	gast.Add: precAdd, gast.Sub: precAdd,
	gast.Mult: precMul, gast.Div: precMul, gast.FloorDiv: precMul, gast.Mod: precMul,
}

var comparePrec = map[gast.Operator]int{
	gast.Eq: precEq, gast.NotEq: precEq,
	gast.Lt: precRel, gast.LtE: precRel, gast.Gt: precRel, gast.GtE: precRel,
}

// stdCalls maps generalized callees to C++ standard library functions and
// the header declaring them.
var stdCalls = map[string][2]string{
	"abs": {"std::abs", "<cmath>"}, "min": {"std::min", "<algorithm>"}, "max": {"std::max", "<algorithm>"},
	"np.sqrt": {"std::sqrt", "<cmath>"}, "np.cbrt": {"std::cbrt", "<cmath>"},
	"np.exp": {"std::exp", "<cmath>"}, "np.log": {"std::log", "<cmath>"}, "np.log10": {"std::log10", "<cmath>"}, "np.log2": {"std::log2", "<cmath>"},
	"np.sin": {"std::sin", "<cmath>"}, "np.cos": {"std::cos", "<cmath>"}, "np.tan": {"std::tan", "<cmath>"},
	"np.arcsin": {"std::asin", "<cmath>"}, "np.arccos": {"std::acos", "<cmath>"},
	"np.arctan": {"std::atan", "<cmath>"}, "np.arctan2": {"std::atan2", "<cmath>"},
	"np.sinh": {"std::sinh", "<cmath>"}, "np.cosh": {"std::cosh", "<cmath>"}, "np.tanh": {"std::tanh", "<cmath>"},
	"np.floor": {"std::floor", "<cmath>"}, "np.ceil": {"std::ceil", "<cmath>"},
	"np.round": {"std::round", "<cmath>"}, "np.trunc": {"std::trunc", "<cmath>"},
	"np.fmod": {"std::fmod", "<cmath>"}, "np.hypot": {"std::hypot", "<cmath>"}, "np.copysign": {"std::copysign", "<cmath>"},
	"np.abs": {"std::abs", "<cmath>"}, "np.real": {"std::real", "<complex>"}, "np.imag": {"std::imag", "<complex>"},
	"np.conj": {"std::conj", "<complex>"},
	"str":    {"std::to_string", "<string>"},
}

func init() {
	for _, fn := range []string{"sqrt", "exp", "log", "log10", "sin", "cos", "tan", "floor", "ceil", "fmod", "hypot", "copysign"} {
		stdCalls["math."+fn] = stdCalls["np."+fn]
	}
}

// castTypes are the builtins that convert their argument.
var castTypes = map[string]string{"int": "int", "float": "double", "bool": "bool"}

var namedConsts = map[string]string{
	"np.pi": "M_PI", "math.pi": "M_PI", "np.e": "M_E", "math.e": "M_E",
	"np.inf": "INFINITY", "math.inf": "INFINITY", "np.nan": "NAN", "math.nan": "NAN",
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
		if path, ok := gast.DottedPath(e); ok {
			if c, ok := namedConsts[path]; ok {
				u.include("<cmath>")
				return c, precAtom, nil
			}
		}
		v, err := u.exprPrec(e.Value, precPostfix)
		if err != nil {
			return "", 0, err
		}
		if e.GetBool(MetaPointer) {
			return v + "->" + e.Attr, precPostfix, nil
		}
		return v + "." + e.Attr, precPostfix, nil
	case *gast.BinOp:
		if e.Op == gast.Pow {
			left, err := u.expr(e.Left)
			if err != nil {
				return "", 0, err
			}
			right, err := u.expr(e.Right)
			if err != nil {
				return "", 0, err
			}
			u.include("<cmath>")
			return "std::pow(" + left + ", " + right + ")", precPostfix, nil
		}
		if fn, ok := u.flooring(e.Op, gast.Truncating(e)); ok {
			args, err := u.exprList([]gast.Expr{e.Left, e.Right})
			return fn + "(" + args + ")", precPostfix, err
		}
		prec, ok := binaryPrec[e.Op]
		if !ok {
			return "", 0, u.unsupported(e, "operator "+e.Op.String())
		}
		left, err := u.exprPrec(e.Left, prec)
		if err != nil {
			return "", 0, err
		}
		right, err := u.exprPrec(e.Right, prec+1)
		if err != nil {
			return "", 0, err
		}
		sym := e.Op.Symbol()
		if e.Op == gast.FloorDiv {
			sym = "/" // Truncating.
		}
		return left + " " + sym + " " + right, prec, nil
	case *gast.UnaryOp:
		sym := map[gast.Operator]string{gast.Not: "!", gast.USub: "-", gast.UAdd: "+", gast.Invert: "~"}[e.Op]
		if sym == "" {
			return "", 0, u.unsupported(e, "operator "+e.Op.String())
		}
		v, err := u.exprPrec(e.Operand, precUnary)
		if err != nil {
			return "", 0, err
		}
		if strings.HasPrefix(v, sym) && (sym == "-" || sym == "+") {
			v = "(" + v + ")"
		}
		return sym + v, precUnary, nil
	case *gast.BoolOp:
		prec, sym := precAnd, " && "
		switch e.Op {
		case gast.Or:
			prec, sym = precOr, " || "
		case gast.And:
		default:
			return "", 0, u.unsupported(e, "operator "+e.Op.String())
		}
		parts := make([]string, len(e.Values))
		for i, v := range e.Values {
			s, err := u.exprPrec(v, prec+1)
			if err != nil {
				return "", 0, err
			}
			parts[i] = s
		}
		return strings.Join(parts, sym), prec, nil
	case *gast.Compare:
		return u.compare(e)
	case *gast.Call:
		return u.call(e)
	case *gast.Subscript:
		v, err := u.exprPrec(e.Value, precPostfix)
		if err != nil {
			return "", 0, err
		}
		for _, d := range gast.SubscriptDims(e) {
			idx, ok := d.(*gast.Index)
			if !ok {
				return "", 0, u.unsupported(e, "slice")
			}
			s, err := u.expr(idx.Value)
			if err != nil {
				return "", 0, err
			}
			v += "[" + s + "]"
		}
		return v, precPostfix, nil
	case *gast.List:
		list, err := u.exprList(e.Elts)
		return "{" + list + "}", precAtom, err
	case *gast.Tuple:
		list, err := u.exprList(e.Elts)
		u.include("<tuple>")
		return "std::make_tuple(" + list + ")", precPostfix, err
	case *gast.IfExp:
		test, err := u.exprPrec(e.Test, precTernary+1)
		if err != nil {
			return "", 0, err
		}
		body, err := u.exprPrec(e.Body, precTernary+1)
		if err != nil {
			return "", 0, err
		}
		orelse, err := u.exprPrec(e.Orelse, precTernary)
		if err != nil {
			return "", 0, err
		}
		return test + " ? " + body + " : " + orelse, precTernary, nil
	}
	return "", 0, u.unsupported(e, "")
}

// flooringHelpers define the division and remainder that round toward
// negative infinity, which C++ / and % do not.
var flooringHelpers = map[string]string{
	"floor_div": `template <typename A, typename B>
auto floor_div(A a, B b) {
    using T = std::common_type_t<A, B>;
    if constexpr (std::is_floating_point_v<T>) {
        return std::floor(T(a) / T(b));
    } else {
        T q = T(a) / T(b);
        if (q * T(b) != T(a) && (a < 0) != (b < 0)) {
            --q;
        }
        return q;
    }
}
`,
	"floor_mod": `template <typename A, typename B>
auto floor_mod(A a, B b) {
    using T = std::common_type_t<A, B>;
    T r;
    if constexpr (std::is_floating_point_v<T>) {
        r = std::fmod(T(a), T(b));
    } else {
        r = T(a) % T(b);
    }
    if (r != 0 && (r < 0) != (b < 0)) {
        r += T(b);
    }
    return r;
}
`,
}

// flooring returns the helper rendering op when op is a floor division or
// a modulo that does not truncate, and defines it in the output.
func (u *unparser) flooring(op gast.Operator, truncating bool) (string, bool) {
	var fn string
	switch {
	case truncating:
		return "", false
	case op == gast.FloorDiv:
		fn = "floor_div"
	case op == gast.Mod:
		fn = "floor_mod"
	default:
		return "", false
	}
	u.include("<cmath>")
	u.include("<type_traits>")
	for _, h := range u.helpers {
		if h == fn {
			return fn, true
		}
	}
	u.helpers = append(u.helpers, fn)
	return fn, true
}

// compare renders a comparison chain as a conjunction. Middle operands are
// evaluated twice, so they must be names or constants.
func (u *unparser) compare(c *gast.Compare) (string, int, error) {
	if len(c.Ops) == 0 || len(c.Ops) != len(c.Comparators) {
		return "", 0, u.unsupported(c, "malformed comparison")
	}
	operands := append([]gast.Expr{c.Left}, c.Comparators...)
	var parts []string
	prec := 0
	for i, op := range c.Ops {
		p, ok := comparePrec[op]
		if !ok {
			return "", 0, u.unsupported(c, "operator "+op.String())
		}
		if i > 0 {
			switch operands[i].(type) {
			case *gast.Name, *gast.Constant:
			default:
				return "", 0, u.unsupported(c, "comparison chain with a computed middle operand")
			}
		}
		left, err := u.exprPrec(operands[i], p)
		if err != nil {
			return "", 0, err
		}
		right, err := u.exprPrec(operands[i+1], p+1)
		if err != nil {
			return "", 0, err
		}
		parts = append(parts, left+" "+op.Symbol()+" "+right)
		prec = p
	}
	if len(parts) == 1 {
		return parts[0], prec, nil
	}
	for i, p := range parts {
		if comparePrec[c.Ops[i]] < precAnd+1 {
			parts[i] = "(" + p + ")"
		}
	}
	return strings.Join(parts, " && "), precAnd, nil
}

func (u *unparser) call(c *gast.Call) (string, int, error) {
	if len(c.Keywords) > 0 {
		return "", 0, u.unsupported(c, "keyword arguments")
	}
	name, _ := gast.CalleeName(c)
	switch {
	case name == "len":
		if len(c.Args) != 1 {
			return "", 0, u.unsupported(c, "len arity")
		}
		v, err := u.exprPrec(c.Args[0], precPostfix)
		return v + ".size()", precPostfix, err
	case castTypes[name] != "":
		if len(c.Args) != 1 {
			return "", 0, u.unsupported(c, "conversion arity")
		}
		v, err := u.expr(c.Args[0])
		return "static_cast<" + castTypes[name] + ">(" + v + ")", precPostfix, err
	case name == "print", name == "range":
		return "", 0, u.unsupported(c, name+" inside an expression")
	}
	args, err := u.exprList(c.Args)
	if err != nil {
		return "", 0, err
	}
	if std, ok := stdCalls[name]; ok {
		u.include(std[1])
		if (name == "min" || name == "max") && len(c.Args) > 2 {
			return std[0] + "({" + args + "})", precPostfix, nil
		}
		return std[0] + "(" + args + ")", precPostfix, nil
	}
	if strings.HasPrefix(name, gast.NumpyAlias+".") || strings.HasPrefix(name, "math.") {
		return "", 0, u.unsupported(c, "no C++ counterpart for "+name)
	}
	fn, err := u.exprPrec(c.Func, precPostfix)
	if err != nil {
		return "", 0, err
	}
	return fn + "(" + args + ")", precPostfix, nil
}

func (u *unparser) constant(c *gast.Constant) (string, int, error) {
	var s string
	switch v := c.Value.(type) {
	case nil:
		s = "nullptr"
	case bool:
		s = strconv.FormatBool(v)
	case string:
		s = quote(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	case float64:
		switch {
		case math.IsInf(v, 1):
			u.include("<cmath>")
			s = "INFINITY"
		case math.IsInf(v, -1):
			u.include("<cmath>")
			s = "-INFINITY"
		case math.IsNaN(v):
			u.include("<cmath>")
			s = "NAN"
		default:
			s = gast.FormatFloat(v)
		}
	case complex128:
		u.include("<complex>")
		s = "std::complex<double>(" + gast.FormatFloat(real(v)) + ", " + gast.FormatFloat(imag(v)) + ")"
		return s, precPostfix, nil
	default:
		return "", 0, u.unsupported(c, "constant of type "+reflect.TypeOf(v).String())
	}
	if strings.HasPrefix(s, "-") {
		return s, precUnary, nil
	}
	return s, precAtom, nil
}

var sizedCTypes = map[string]string{
	gast.TypeInt8: "int8_t", gast.TypeInt16: "int16_t", gast.TypeInt32: "int32_t", gast.TypeInt64: "int64_t",
	gast.TypeUint8: "uint8_t", gast.TypeUint16: "uint16_t", gast.TypeUint32: "uint32_t", gast.TypeUint64: "uint64_t",
}

// typeName renders a type annotation as a C++ type.
func (u *unparser) typeName(ann gast.Expr) (string, error) {
	switch a := ann.(type) {
	case *gast.Constant:
		if a.Value == nil {
			return "void", nil
		}
	case *gast.Name:
		switch a.ID {
		case gast.TypeInt:
			return "int", nil
		case gast.TypeFloat:
			return "double", nil
		case gast.TypeBool:
			return "bool", nil
		case gast.TypeStr:
			u.include("<string>")
			return "std::string", nil
		case gast.TypeComplex:
			u.include("<complex>")
			return "std::complex<double>", nil
		}
		return a.ID, nil
	case *gast.Attribute:
		path, _ := gast.DottedPath(a)
		if base, ok := strings.CutPrefix(path, gast.NumpyAlias+"."); ok {
			switch base {
			case gast.TypeFloat32:
				return "float", nil
			case gast.TypeFloat64:
				return "double", nil
			case gast.TypeComplex64:
				u.include("<complex>")
				return "std::complex<float>", nil
			case gast.TypeComplex128:
				u.include("<complex>")
				return "std::complex<double>", nil
			}
			if t, ok := sizedCTypes[base]; ok {
				u.include("<cstdint>")
				return t, nil
			}
		}
	case *gast.Subscript:
		return u.compositeType(a)
	case *gast.Tuple:
		parts := make([]string, len(a.Elts))
		for i, el := range a.Elts {
			t, err := u.typeName(el)
			if err != nil {
				return "", err
			}
			parts[i] = t
		}
		u.include("<tuple>")
		return "std::tuple<" + strings.Join(parts, ", ") + ">", nil
	}
	return "", u.unsupported(ann, "type annotation")
}

func (u *unparser) compositeType(s *gast.Subscript) (string, error) {
	name, _ := gast.DottedPath(s.Value)
	dims := gast.SubscriptDims(s)
	inner := func(d gast.Expr) (string, error) {
		idx, ok := d.(*gast.Index)
		if !ok {
			return "", u.unsupported(s, "type annotation")
		}
		return u.typeName(idx.Value)
	}
	switch name {
	case "Pointer", "Ref", "Const", "list":
		if len(dims) != 1 {
			return "", u.unsupported(s, "type annotation")
		}
		t, err := inner(dims[0])
		if err != nil {
			return "", err
		}
		switch name {
		case "Pointer":
			return pointerTo(t), nil
		case "Ref":
			return t + " &", nil
		case "Const":
			if strings.HasSuffix(t, "*") {
				return t + "const", nil
			}
			return "const " + t, nil
		}
		u.include("<vector>")
		return "std::vector<" + t + ">", nil
	case gast.NumpyAlias + ".ndarray":
		if len(dims) < 2 {
			return "", u.unsupported(s, "array annotation without dimensions")
		}
		t, err := inner(dims[0])
		if err != nil {
			return "", err
		}
		u.include("<vector>")
		for range dims[1:] {
			t = "std::vector<" + t + ">"
		}
		return t, nil
	}
	return "", u.unsupported(s, "type annotation")
}

func pointerTo(t string) string {
	if strings.HasSuffix(t, "*") {
		return t + "*"
	}
	return t + " *"
}

func isList(ann gast.Expr) bool {
	s, ok := ann.(*gast.Subscript)
	if !ok {
		return false
	}
	name, _ := gast.DottedPath(s.Value)
	return name == "list"
}
