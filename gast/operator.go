package gast

// Operator identifies the operation of a BinOp, UnaryOp, BoolOp, Compare or AugAssign.
type Operator uint8

const (
	OpInvalid Operator = iota
	// Binary operators.
	Add
	Sub
	Mult
	MatMult
	Div
	FloorDiv
	Mod
	Pow
	LShift
	RShift
	BitOr
	BitXor
	BitAnd
	// Unary operators.
	UAdd
	USub
	Not
	Invert
	// Boolean operators.
	And
	Or
	// Comparison operators.
	Eq
	NotEq
	Lt
	LtE
	Gt
	GtE
	Is
	IsNot
	In
	NotIn
	numOps
)

var opInfo = [numOps]struct {
	name   string
	symbol string
	class  Kind
}{
	OpInvalid: {"Invalid", "?", KindInvalid},
	Add:       {"Add", "+", KindBinOp},
	Sub:       {"Sub", "-", KindBinOp},
	Mult:      {"Mult", "*", KindBinOp},
	MatMult:   {"MatMult", "@", KindBinOp},
	Div:       {"Div", "/", KindBinOp},
	FloorDiv:  {"FloorDiv", "//", KindBinOp},
	Mod:       {"Mod", "%", KindBinOp},
	Pow:       {"Pow", "**", KindBinOp},
	LShift:    {"LShift", "<<", KindBinOp},
	RShift:    {"RShift", ">>", KindBinOp},
	BitOr:     {"BitOr", "|", KindBinOp},
	BitXor:    {"BitXor", "^", KindBinOp},
	BitAnd:    {"BitAnd", "&", KindBinOp},
	UAdd:      {"UAdd", "+", KindUnaryOp},
	USub:      {"USub", "-", KindUnaryOp},
	Not:       {"Not", "not", KindUnaryOp},
	Invert:    {"Invert", "~", KindUnaryOp},
	And:       {"And", "and", KindBoolOp},
	Or:        {"Or", "or", KindBoolOp},
	Eq:        {"Eq", "==", KindCompare},
	NotEq:     {"NotEq", "!=", KindCompare},
	Lt:        {"Lt", "<", KindCompare},
	LtE:       {"LtE", "<=", KindCompare},
	Gt:        {"Gt", ">", KindCompare},
	GtE:       {"GtE", ">=", KindCompare},
	Is:        {"Is", "is", KindCompare},
	IsNot:     {"IsNot", "is not", KindCompare},
	In:        {"In", "in", KindCompare},
	NotIn:     {"NotIn", "not in", KindCompare},
}

// String returns the operator's name, e.g. "Add".
func (op Operator) String() string {
	if op >= numOps {
		return "Operator(?)"
	}
	return opInfo[op].name
}

// Symbol returns the operator's spelling in the generalized surface syntax, e.g. "+".
func (op Operator) Symbol() string {
	if op >= numOps {
		return "?"
	}
	return opInfo[op].symbol
}

// Class returns the node kind the operator belongs to: KindBinOp,
// KindUnaryOp, KindBoolOp or KindCompare.
func (op Operator) Class() Kind {
	if op >= numOps {
		return KindInvalid
	}
	return opInfo[op].class
}

// OpPair is one entry of an operator lowering table: the generalized node
// kind to build and the operator it carries.
type OpPair struct {
	Kind Kind
	Op   Operator
}

// Valid reports whether the pair names a node kind its operator belongs to.
func (p OpPair) Valid() bool {
	return p.Op != OpInvalid && p.Op.Class() == p.Kind
}

// NewOperation builds the node described by p over operands. Binary and
// comparison pairs take two operands, unary pairs take one and boolean
// pairs take two or more.
func (p OpPair) NewOperation(operands ...Expr) Expr {
	switch p.Kind {
	case KindBinOp:
		return &BinOp{Left: operands[0], Op: p.Op, Right: operands[1]}
	case KindUnaryOp:
		return &UnaryOp{Op: p.Op, Operand: operands[0]}
	case KindBoolOp:
		return &BoolOp{Op: p.Op, Values: operands}
	case KindCompare:
		return &Compare{Left: operands[0], Ops: []Operator{p.Op}, Comparators: operands[1:2]}
	}
	panic("gast: invalid operator pair " + p.Kind.String() + "/" + p.Op.String())
}

// MetaTruncate marks a FloorDiv or Mod node, or an AugAssign carrying one
// of them, whose quotient rounds toward zero as integer division does in
// C and Fortran. Unmarked, the quotient rounds toward negative infinity
// and the remainder takes the sign of the divisor.
const MetaTruncate = "truncate"

// Truncating reports whether n is marked with [MetaTruncate].
func Truncating(n Node) bool { return n.Metadata().GetBool(MetaTruncate) }

// Truncated returns the FloorDiv or Mod of left and right marked with
// [MetaTruncate].
func Truncated(left Expr, op Operator, right Expr) *BinOp {
	b := &BinOp{Left: left, Op: op, Right: right}
	b.Set(MetaTruncate, true)
	return b
}
