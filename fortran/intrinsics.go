package fortran

import (
	"strings"

	"github.com/soypat/polyglot/gast"
)

// resultType tells the generalizer the base type an intrinsic returns,
// which integer division lowering needs.
type resultType uint8

const (
	resultOther resultType = iota
	resultInt
	resultReal
	resultArg // Same as the first argument.
)

// Intrinsic is one entry of the intrinsic function table.
type Intrinsic struct {
	Name string // Fortran name, lower case.
	// Target is the dotted path of the generalized callee. Empty for
	// intrinsics recognized but without a lowering.
	Target string
	Result resultType
	// DimArg is the position of the 1-based DIM argument of array
	// reductions, lowered to a 0-based axis keyword. Zero when absent.
	DimArg int
	// lower replaces the call when the lowering is not a plain call to Target.
	lower func(args []gast.Expr) gast.Expr
}

// Import returns the module Target lives in, if any.
func (in *Intrinsic) Import() (module, alias string, ok bool) {
	pkg, _, found := strings.Cut(in.Target, ".")
	switch {
	case !found:
		return "", "", false
	case pkg == gast.NumpyAlias:
		return gast.NumpyModule, gast.NumpyAlias, true
	}
	return pkg, "", true
}

var intrinsics = map[string]*Intrinsic{}

func addIntrinsic(name, target string, result resultType) *Intrinsic {
	in := &Intrinsic{Name: name, Target: target, Result: result}
	intrinsics[name] = in
	return in
}

// LookupIntrinsic returns the intrinsic called name, case insensitive.
func LookupIntrinsic(name string) (*Intrinsic, bool) {
	in, ok := intrinsics[normalizeCase(name)]
	return in, ok
}

// intrinsicNames maps a generalized callee back to the Fortran intrinsic
// it is spelled as when no fortran.intrinsic metadata says otherwise.
var intrinsicNames = map[string]string{}

func init() {
	// Trigonometric, exponential and logarithmic.
	for _, name := range []string{"sin", "cos", "tan", "sinh", "cosh", "tanh", "exp", "log", "log10", "sqrt"} {
		addIntrinsic(name, "np."+name, resultArg)
		addIntrinsic("d"+name, "np."+name, resultReal)
	}
	addIntrinsic("asin", "np.arcsin", resultArg)
	addIntrinsic("acos", "np.arccos", resultArg)
	addIntrinsic("atan", "np.arctan", resultArg)
	addIntrinsic("atan2", "np.arctan2", resultArg)
	addIntrinsic("alog", "np.log", resultReal)
	addIntrinsic("alog10", "np.log10", resultReal)

	// Numeric.
	addIntrinsic("abs", "abs", resultArg)
	addIntrinsic("iabs", "abs", resultInt)
	addIntrinsic("dabs", "abs", resultReal)
	addIntrinsic("max", "max", resultArg)
	addIntrinsic("max0", "max", resultInt)
	addIntrinsic("amax1", "max", resultReal)
	addIntrinsic("dmax1", "max", resultReal)
	addIntrinsic("min", "min", resultArg)
	addIntrinsic("min0", "min", resultInt)
	addIntrinsic("amin1", "min", resultReal)
	addIntrinsic("dmin1", "min", resultReal)
	addIntrinsic("mod", "np.fmod", resultArg)
	addIntrinsic("modulo", "np.mod", resultArg)
	addIntrinsic("sign", "np.copysign", resultReal)
	addIntrinsic("floor", "math.floor", resultInt)
	addIntrinsic("ceiling", "math.ceil", resultInt)

	// Type conversion.
	addIntrinsic("int", "int", resultInt)
	addIntrinsic("ifix", "int", resultInt)
	addIntrinsic("idint", "int", resultInt)
	addIntrinsic("real", "float", resultReal)
	addIntrinsic("float", "float", resultReal)
	addIntrinsic("sngl", "float", resultReal)
	addIntrinsic("dble", "float", resultReal)
	addIntrinsic("cmplx", "complex", resultOther)
	addIntrinsic("aimag", "np.imag", resultReal)
	addIntrinsic("conjg", "np.conj", resultOther)

	// Characters.
	addIntrinsic("len", "len", resultInt)
	addIntrinsic("char", "chr", resultOther)
	addIntrinsic("ichar", "ord", resultInt)
	addIntrinsic("trim", "", resultOther).lower = func(args []gast.Expr) gast.Expr {
		return &gast.Call{Func: &gast.Attribute{Value: args[0], Attr: "rstrip"}}
	}

	// Arrays.
	addIntrinsic("sum", "np.sum", resultArg).DimArg = 2
	addIntrinsic("product", "np.prod", resultArg).DimArg = 2
	addIntrinsic("maxval", "np.max", resultArg).DimArg = 2
	addIntrinsic("minval", "np.min", resultArg).DimArg = 2
	addIntrinsic("any", "np.any", resultOther).DimArg = 2
	addIntrinsic("all", "np.all", resultOther).DimArg = 2
	addIntrinsic("count", "np.count_nonzero", resultInt).DimArg = 2
	addIntrinsic("size", "np.size", resultInt).DimArg = 2
	addIntrinsic("shape", "np.shape", resultOther)
	addIntrinsic("dot_product", "np.dot", resultArg)
	addIntrinsic("matmul", "np.matmul", resultArg)
	addIntrinsic("transpose", "np.transpose", resultArg)

	// Bit manipulation.
	addIntrinsic("iand", "", resultInt).lower = binaryIntrinsic(gast.BitAnd)
	addIntrinsic("ior", "", resultInt).lower = binaryIntrinsic(gast.BitOr)
	addIntrinsic("ieor", "", resultInt).lower = binaryIntrinsic(gast.BitXor)
	addIntrinsic("merge", "", resultArg).lower = func(args []gast.Expr) gast.Expr {
		return &gast.IfExp{Test: args[2], Body: args[0], Orelse: args[1]}
	}

	// Recognized, no lowering.
	for _, name := range []string{
		"nint", "anint", "aint", "dim", "index", "len_trim", "adjustl", "adjustr",
		"achar", "iachar", "allocated", "associated", "present", "huge", "tiny",
		"epsilon", "kind", "selected_int_kind", "selected_real_kind", "lbound",
		"ubound", "reshape", "spread", "pack", "unpack", "ishft", "btest",
		"maxloc", "minloc", "random_number", "cpu_time", "date_and_time",
	} {
		addIntrinsic(name, "", resultOther)
	}

	for _, name := range []string{
		"sin", "cos", "tan", "sinh", "cosh", "tanh", "exp", "log", "log10", "sqrt",
		"asin", "acos", "atan", "atan2", "abs", "max", "min", "mod", "modulo", "sign",
		"floor", "ceiling", "int", "real", "cmplx", "aimag", "conjg", "len", "char",
		"ichar", "sum", "product", "maxval", "minval", "any", "all", "count",
		"size", "shape", "dot_product", "matmul", "transpose",
	} {
		intrinsicNames[intrinsics[name].Target] = strings.ToUpper(name)
	}
}

// intrinsicArity is the number of arguments the custom lowerings need.
var intrinsicArity = map[string]int{"trim": 1, "iand": 2, "ior": 2, "ieor": 2, "merge": 3}

func binaryIntrinsic(op gast.Operator) func(args []gast.Expr) gast.Expr {
	return func(args []gast.Expr) gast.Expr {
		return &gast.BinOp{Left: args[0], Op: op, Right: args[1]}
	}
}
