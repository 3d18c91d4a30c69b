// Package ast declares the concrete syntax tree produced by the Fortran parser.
package ast

import "github.com/soypat/polyglot/fortran/token"

type Node interface {
	AppendString(dst []byte) []byte
	SourcePos() Position
}

type Expression interface {
	Node
	expressionNode()
}

type Statement interface {
	Node
	statementNode()
}

// ProgramUnit represents a top-level construct (PROGRAM, SUBROUTINE, FUNCTION, MODULE)
type ProgramUnit interface {
	Statement
	programUnitNode()
	UnitName() string
}

// Position is the byte span [Start, End) a node occupies in the source.
type Position struct {
	start, end int
}

func Pos(start, end int) Position { return Position{start: start, end: end} }

// Start is the position of the first character belonging to the node.
func (p Position) Start() int { return p.start }

// End is the position of the first character immediately after the node.
func (p Position) End() int { return p.end }

func (p Position) SourcePos() Position { return p }

// String returns the source text of n.
func String(n Node) string {
	if n == nil {
		return ""
	}
	return string(n.AppendString(nil))
}

// Program represents the root node of a Fortran program file
type Program struct {
	Units []ProgramUnit
}

func (p *Program) AppendString(dst []byte) []byte {
	for i, unit := range p.Units {
		if i > 0 {
			dst = append(dst, '\n')
		}
		dst = unit.AppendString(dst)
	}
	return dst
}

func (p *Program) SourcePos() Position {
	if len(p.Units) == 0 {
		return Position{}
	}
	return Pos(p.Units[0].SourcePos().Start(), p.Units[len(p.Units)-1].SourcePos().End())
}

// ProgramBlock represents a PROGRAM...END PROGRAM block
type ProgramBlock struct {
	Name     string
	Body     []Statement // Specification and executable statements
	Contains []ProgramUnit
	Position
}

func (pb *ProgramBlock) statementNode()   {}
func (pb *ProgramBlock) programUnitNode() {}
func (pb *ProgramBlock) UnitName() string { return pb.Name }
func (pb *ProgramBlock) AppendString(dst []byte) []byte {
	dst = append(dst, "PROGRAM "...)
	return append(dst, pb.Name...)
}

// Subroutine represents a SUBROUTINE...END SUBROUTINE block
type Subroutine struct {
	Name       string
	Parameters []Parameter
	Attributes []token.Token // RECURSIVE, PURE, etc.
	Body       []Statement
	Contains   []ProgramUnit
	Position
}

func (s *Subroutine) statementNode()   {}
func (s *Subroutine) programUnitNode() {}
func (s *Subroutine) UnitName() string { return s.Name }
func (s *Subroutine) AppendString(dst []byte) []byte {
	dst = append(dst, "SUBROUTINE "...)
	dst = append(dst, s.Name...)
	return appendParams(dst, s.Parameters)
}

// Function represents a FUNCTION...END FUNCTION block
type Function struct {
	Name           string
	ResultType     *TypeSpec // nil when declared in the body or implicit.
	Parameters     []Parameter
	ResultVariable string // For RESULT(var) clause
	Attributes     []token.Token
	Body           []Statement
	Contains       []ProgramUnit
	Position
}

func (f *Function) statementNode()   {}
func (f *Function) programUnitNode() {}
func (f *Function) UnitName() string { return f.Name }
func (f *Function) AppendString(dst []byte) []byte {
	if f.ResultType != nil {
		dst = f.ResultType.AppendString(dst)
		dst = append(dst, ' ')
	}
	dst = append(dst, "FUNCTION "...)
	dst = append(dst, f.Name...)
	dst = appendParams(dst, f.Parameters)
	if f.ResultVariable != "" {
		dst = append(dst, " RESULT("...)
		dst = append(dst, f.ResultVariable...)
		dst = append(dst, ')')
	}
	return dst
}

// Result returns the name of the variable holding the function result.
func (f *Function) Result() string {
	if f.ResultVariable != "" {
		return f.ResultVariable
	}
	return f.Name
}

// Module represents a MODULE...END MODULE block
type Module struct {
	Name     string
	Body     []Statement
	Contains []ProgramUnit
	Position
}

func (m *Module) statementNode()   {}
func (m *Module) programUnitNode() {}
func (m *Module) UnitName() string { return m.Name }
func (m *Module) AppendString(dst []byte) []byte {
	dst = append(dst, "MODULE "...)
	return append(dst, m.Name...)
}

func appendParams(dst []byte, params []Parameter) []byte {
	dst = append(dst, '(')
	for i, p := range params {
		if i > 0 {
			dst = append(dst, ", "...)
		}
		dst = append(dst, p.Name...)
	}
	return append(dst, ')')
}

// IntentType represents the INTENT attribute direction
type IntentType int

const (
	IntentDefault IntentType = iota
	IntentIn
	IntentOut
	IntentInOut
)

func (it IntentType) String() string {
	switch it {
	case IntentIn:
		return "IN"
	case IntentOut:
		return "OUT"
	case IntentInOut:
		return "INOUT"
	default:
		return ""
	}
}

// Parameter is a dummy argument of a subroutine or function. Intent is
// filled in from the declarations and f2py directives in the unit's body.
type Parameter struct {
	Name   string
	Intent IntentType
	// Directive is true when the intent came from a `Cf2py intent(...)` comment.
	Directive bool
}

// TypeSpec is the type part of a declaration: `REAL*8`, `INTEGER(KIND=4)`,
// `CHARACTER(LEN=*)`, `TYPE(point)`.
type TypeSpec struct {
	Token    token.Token // INTEGER, REAL, DOUBLEPRECISION, COMPLEX, LOGICAL, CHARACTER or TYPE.
	Kind     Expression  // `*8` or `(KIND=8)`, nil when absent.
	CharLen  Expression  // CHARACTER length, nil when absent. Identifier "*" when assumed.
	TypeName string      // Derived type name for TYPE(name).
}

func (ts *TypeSpec) AppendString(dst []byte) []byte {
	switch ts.Token {
	case token.DOUBLEPRECISION:
		dst = append(dst, "DOUBLE PRECISION"...)
	case token.TYPE:
		dst = append(dst, "TYPE("...)
		dst = append(dst, ts.TypeName...)
		return append(dst, ')')
	default:
		dst = append(dst, ts.Token.String()...)
	}
	if ts.Kind != nil {
		dst = append(dst, "(KIND="...)
		dst = ts.Kind.AppendString(dst)
		dst = append(dst, ')')
	}
	if ts.CharLen != nil {
		dst = append(dst, "(LEN="...)
		dst = ts.CharLen.AppendString(dst)
		dst = append(dst, ')')
	}
	return dst
}

// ImplicitRule is one `type (letter-ranges)` item of an IMPLICIT statement.
type ImplicitRule struct {
	Type   TypeSpec
	Ranges [][2]byte // Inclusive, lower case letter ranges.
}

// ImplicitStatement represents an IMPLICIT statement
type ImplicitStatement struct {
	IsNone bool // true for IMPLICIT NONE
	Rules  []ImplicitRule
	Position
}

func (is *ImplicitStatement) statementNode() {}
func (is *ImplicitStatement) AppendString(dst []byte) []byte {
	if is.IsNone {
		return append(dst, "IMPLICIT NONE"...)
	}
	dst = append(dst, "IMPLICIT "...)
	for i, r := range is.Rules {
		if i > 0 {
			dst = append(dst, ", "...)
		}
		dst = r.Type.AppendString(dst)
		dst = append(dst, " ("...)
		for j, rg := range r.Ranges {
			if j > 0 {
				dst = append(dst, ", "...)
			}
			dst = append(dst, rg[0])
			if rg[1] != rg[0] {
				dst = append(dst, '-', rg[1])
			}
		}
		dst = append(dst, ')')
	}
	return dst
}

// UseStatement represents a USE statement
type UseStatement struct {
	ModuleName string
	Only       []string // Empty if not using ONLY clause
	Position
}

func (us *UseStatement) statementNode() {}
func (us *UseStatement) AppendString(dst []byte) []byte {
	dst = append(dst, "USE "...)
	dst = append(dst, us.ModuleName...)
	if len(us.Only) > 0 {
		dst = append(dst, ", ONLY: "...)
		for i, name := range us.Only {
			if i > 0 {
				dst = append(dst, ", "...)
			}
			dst = append(dst, name...)
		}
	}
	return dst
}

// TypeDeclaration represents a type declaration with attributes
type TypeDeclaration struct {
	Type       TypeSpec
	Attributes []token.Token // e.g., PARAMETER, SAVE, INTENT, etc.
	Intent     IntentType
	Entities   []DeclEntity // Variables being declared
	Position
}

func (td *TypeDeclaration) statementNode() {}
func (td *TypeDeclaration) AppendString(dst []byte) []byte {
	dst = td.Type.AppendString(dst)
	for _, attr := range td.Attributes {
		dst = append(dst, ", "...)
		dst = append(dst, attr.String()...)
		if attr == token.INTENT {
			dst = append(dst, '(')
			dst = append(dst, td.Intent.String()...)
			dst = append(dst, ')')
		}
	}
	dst = append(dst, " :: "...)
	return appendEntities(dst, td.Entities)
}

// HasAttribute reports whether attr was given in the attribute list.
func (td *TypeDeclaration) HasAttribute(attr token.Token) bool {
	for _, a := range td.Attributes {
		if a == attr {
			return true
		}
	}
	return false
}

func appendEntities(dst []byte, entities []DeclEntity) []byte {
	for i, entity := range entities {
		if i > 0 {
			dst = append(dst, ", "...)
		}
		dst = entity.AppendString(dst)
	}
	return dst
}

// DimensionStmt is `DIMENSION a(n), b(2,3)`.
type DimensionStmt struct {
	Entities []DeclEntity
	Position
}

func (ds *DimensionStmt) statementNode() {}
func (ds *DimensionStmt) AppendString(dst []byte) []byte {
	dst = append(dst, "DIMENSION "...)
	return appendEntities(dst, ds.Entities)
}

// ParameterStmt is the F77 `PARAMETER (pi = 3.14, n = 10)`.
type ParameterStmt struct {
	Entities []DeclEntity // Entities all carry an Init.
	Position
}

func (ps *ParameterStmt) statementNode() {}
func (ps *ParameterStmt) AppendString(dst []byte) []byte {
	dst = append(dst, "PARAMETER ("...)
	dst = appendEntities(dst, ps.Entities)
	return append(dst, ')')
}

// AttributeStmt is a statement giving one attribute to a list of names:
// EXTERNAL, INTRINSIC, SAVE, PUBLIC or PRIVATE.
type AttributeStmt struct {
	Attr  token.Token
	Names []string
	Position
}

func (as *AttributeStmt) statementNode() {}
func (as *AttributeStmt) AppendString(dst []byte) []byte {
	dst = append(dst, as.Attr.String()...)
	for i, name := range as.Names {
		if i == 0 {
			dst = append(dst, ' ')
		} else {
			dst = append(dst, ", "...)
		}
		dst = append(dst, name...)
	}
	return dst
}

// RawStmt is a statement the parser recognizes but does not model, such as
// COMMON, DATA, FORMAT or READ. Text holds its source.
type RawStmt struct {
	Keyword token.Token
	Text    string
	Position
}

func (rs *RawStmt) statementNode() {}
func (rs *RawStmt) AppendString(dst []byte) []byte {
	return append(dst, rs.Text...)
}

// ArraySpecKind represents the kind of array specification
type ArraySpecKind int

const (
	ArraySpecExplicit    ArraySpecKind = iota // Explicit shape: (1:10, 1:20)
	ArraySpecAssumed                          // Assumed or deferred shape: (:, :)
	ArraySpecAssumedSize                      // Assumed size: (*) - F77 style
)

func (ask ArraySpecKind) String() string {
	switch ask {
	case ArraySpecExplicit:
		return "explicit"
	case ArraySpecAssumed:
		return "assumed"
	case ArraySpecAssumedSize:
		return "assumed-size"
	default:
		return "unknown"
	}
}

// ArrayBound represents a single dimension's bounds (lower:upper).
// A nil Lower defaults to 1. A nil Upper is unknown: `:` or `*`.
type ArrayBound struct {
	Lower Expression
	Upper Expression
}

// ArraySpec represents array dimension specification
type ArraySpec struct {
	Kind   ArraySpecKind
	Bounds []ArrayBound // One bound per dimension
}

func (as *ArraySpec) AppendString(dst []byte) []byte {
	dst = append(dst, '(')
	for i, b := range as.Bounds {
		if i > 0 {
			dst = append(dst, ", "...)
		}
		switch {
		case b.Upper == nil && as.Kind == ArraySpecAssumedSize && i == len(as.Bounds)-1:
			if b.Lower != nil {
				dst = b.Lower.AppendString(dst)
				dst = append(dst, ':')
			}
			dst = append(dst, '*')
		case b.Upper == nil:
			if b.Lower != nil {
				dst = b.Lower.AppendString(dst)
			}
			dst = append(dst, ':')
		default:
			if b.Lower != nil {
				dst = b.Lower.AppendString(dst)
				dst = append(dst, ':')
			}
			dst = b.Upper.AppendString(dst)
		}
	}
	return append(dst, ')')
}

// DeclEntity represents a single entity in a type declaration
type DeclEntity struct {
	Name      string
	ArraySpec *ArraySpec // Array dimensions if this is an array
	Init      Expression // Initialization expression, nil when absent.
	CharLen   Expression // Entity specific CHARACTER length: `c*10`.
}

func (de *DeclEntity) AppendString(dst []byte) []byte {
	dst = append(dst, de.Name...)
	if de.ArraySpec != nil {
		dst = de.ArraySpec.AppendString(dst)
	}
	if de.CharLen != nil {
		dst = append(dst, '*')
		dst = de.CharLen.AppendString(dst)
	}
	if de.Init != nil {
		dst = append(dst, " = "...)
		dst = de.Init.AppendString(dst)
	}
	return dst
}

// CommentStmt is a comment line inside a program unit body.
type CommentStmt struct {
	Text string // Without the leading comment marker.
	Position
}

func (cs *CommentStmt) statementNode() {}
func (cs *CommentStmt) AppendString(dst []byte) []byte {
	dst = append(dst, '!')
	return append(dst, cs.Text...)
}

// DerivedTypeDef is a `TYPE name ... END TYPE` definition. Components holds
// the component declarations.
type DerivedTypeDef struct {
	Name       string
	Components []Statement
	Position
}

func (dt *DerivedTypeDef) statementNode() {}
func (dt *DerivedTypeDef) AppendString(dst []byte) []byte {
	dst = append(dst, "TYPE :: "...)
	return append(dst, dt.Name...)
}
