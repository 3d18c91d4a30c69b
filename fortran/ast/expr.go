package ast

import (
	"strings"

	"github.com/soypat/polyglot/fortran/token"
)

// Identifier represents an identifier
type Identifier struct {
	Value string
	Position
}

func (i *Identifier) expressionNode() {}
func (i *Identifier) AppendString(dst []byte) []byte {
	return append(dst, i.Value...)
}

// IntegerLiteral represents an integer literal
type IntegerLiteral struct {
	Value int64
	Raw   string // Original text representation
	Position
}

func (il *IntegerLiteral) expressionNode() {}
func (il *IntegerLiteral) AppendString(dst []byte) []byte {
	return append(dst, il.Raw...)
}

// RealLiteral represents a floating-point literal
type RealLiteral struct {
	Value float64
	Raw   string // Original text representation, i.e: 1.5d0
	Position
}

func (rl *RealLiteral) expressionNode() {}
func (rl *RealLiteral) AppendString(dst []byte) []byte {
	return append(dst, rl.Raw...)
}

// IsDouble reports whether the literal uses a D exponent: 1.0d0.
func (rl *RealLiteral) IsDouble() bool {
	return strings.ContainsAny(rl.Raw, "dD")
}

// ComplexLiteral is `(re, im)`.
type ComplexLiteral struct {
	Real, Imag Expression
	Position
}

func (cl *ComplexLiteral) expressionNode() {}
func (cl *ComplexLiteral) AppendString(dst []byte) []byte {
	dst = append(dst, '(')
	dst = cl.Real.AppendString(dst)
	dst = append(dst, ", "...)
	dst = cl.Imag.AppendString(dst)
	return append(dst, ')')
}

// StringLiteral represents a string literal
type StringLiteral struct {
	Value string
	Position
}

func (sl *StringLiteral) expressionNode() {}
func (sl *StringLiteral) AppendString(dst []byte) []byte {
	dst = append(dst, '\'')
	dst = append(dst, strings.ReplaceAll(sl.Value, "'", "''")...)
	return append(dst, '\'')
}

// LogicalLiteral represents .TRUE. or .FALSE.
type LogicalLiteral struct {
	Value bool
	Position
}

func (ll *LogicalLiteral) expressionNode() {}
func (ll *LogicalLiteral) AppendString(dst []byte) []byte {
	if ll.Value {
		return append(dst, ".TRUE."...)
	}
	return append(dst, ".FALSE."...)
}

// BinaryExpr represents a binary operation (e.g., a + b, x .GT. y)
type BinaryExpr struct {
	Op    token.Token
	Left  Expression
	Right Expression
	Position
}

func (be *BinaryExpr) expressionNode() {}
func (be *BinaryExpr) AppendString(dst []byte) []byte {
	dst = be.Left.AppendString(dst)
	dst = append(dst, ' ')
	dst = append(dst, be.Op.String()...)
	dst = append(dst, ' ')
	return be.Right.AppendString(dst)
}

// UnaryExpr represents a unary operation (e.g., -x, +y, .NOT. flag)
type UnaryExpr struct {
	Op      token.Token
	Operand Expression
	Position
}

func (ue *UnaryExpr) expressionNode() {}
func (ue *UnaryExpr) AppendString(dst []byte) []byte {
	dst = append(dst, ue.Op.String()...)
	if ue.Op == token.NOT {
		dst = append(dst, ' ')
	}
	return ue.Operand.AppendString(dst)
}

// FunctionCall is `name(args)`. Fortran spells function calls, array
// element references, array sections and substrings the same way; which
// one a FunctionCall is depends on what Name was declared as.
type FunctionCall struct {
	Name string
	Args []Expression
	Position
}

func (fc *FunctionCall) expressionNode() {}
func (fc *FunctionCall) AppendString(dst []byte) []byte {
	dst = append(dst, fc.Name...)
	return appendArgs(dst, fc.Args)
}

func appendArgs(dst []byte, args []Expression) []byte {
	dst = append(dst, '(')
	for i, arg := range args {
		if i > 0 {
			dst = append(dst, ", "...)
		}
		dst = arg.AppendString(dst)
	}
	return append(dst, ')')
}

// RangeExpr is a subscript triplet `start:end:stride`; any part may be nil.
type RangeExpr struct {
	Start, End, Stride Expression
	Position
}

func (re *RangeExpr) expressionNode() {}
func (re *RangeExpr) AppendString(dst []byte) []byte {
	if re.Start != nil {
		dst = re.Start.AppendString(dst)
	}
	dst = append(dst, ':')
	if re.End != nil {
		dst = re.End.AppendString(dst)
	}
	if re.Stride != nil {
		dst = append(dst, ':')
		dst = re.Stride.AppendString(dst)
	}
	return dst
}

// KeywordArg is an actual argument passed by name: `KIND=8`.
type KeywordArg struct {
	Name  string
	Value Expression
	Position
}

func (ka *KeywordArg) expressionNode() {}
func (ka *KeywordArg) AppendString(dst []byte) []byte {
	dst = append(dst, ka.Name...)
	dst = append(dst, '=')
	return ka.Value.AppendString(dst)
}

// ParenExpr represents a parenthesized expression
type ParenExpr struct {
	Expr Expression
	Position
}

func (pe *ParenExpr) expressionNode() {}
func (pe *ParenExpr) AppendString(dst []byte) []byte {
	dst = append(dst, '(')
	dst = pe.Expr.AppendString(dst)
	return append(dst, ')')
}

// ComponentAccess is the derived type component reference `base%component`.
type ComponentAccess struct {
	Base      Expression
	Component string
	Position
}

func (ca *ComponentAccess) expressionNode() {}
func (ca *ComponentAccess) AppendString(dst []byte) []byte {
	dst = ca.Base.AppendString(dst)
	dst = append(dst, '%')
	return append(dst, ca.Component...)
}

// ArrayConstructor is `(/ a, b, c /)` or `[a, b, c]`.
type ArrayConstructor struct {
	Values []Expression
	Position
}

func (ac *ArrayConstructor) expressionNode() {}
func (ac *ArrayConstructor) AppendString(dst []byte) []byte {
	dst = append(dst, "(/ "...)
	for i, v := range ac.Values {
		if i > 0 {
			dst = append(dst, ", "...)
		}
		dst = v.AppendString(dst)
	}
	return append(dst, " /)"...)
}

// ImpliedDoLoop is `(expr, ..., var = start, end [, stride])` as it appears
// in array constructors and I/O lists.
type ImpliedDoLoop struct {
	Expressions []Expression
	LoopVar     string
	Start       Expression
	End         Expression
	Stride      Expression
	Position
}

func (id *ImpliedDoLoop) expressionNode() {}
func (id *ImpliedDoLoop) AppendString(dst []byte) []byte {
	dst = append(dst, '(')
	for _, e := range id.Expressions {
		dst = e.AppendString(dst)
		dst = append(dst, ", "...)
	}
	dst = append(dst, id.LoopVar...)
	dst = append(dst, " = "...)
	dst = id.Start.AppendString(dst)
	dst = append(dst, ", "...)
	dst = id.End.AppendString(dst)
	if id.Stride != nil {
		dst = append(dst, ", "...)
		dst = id.Stride.AppendString(dst)
	}
	return append(dst, ')')
}
