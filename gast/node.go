// Package gast defines the generalized abstract syntax tree: the language
// neutral representation every front end lowers into and every back end
// renders from.
//
// The grammar is modeled on a general purpose imperative language with
// optional static type annotations. Type annotations are ordinary
// expressions of this same tree (see [ArrayType] and [DecodeType]).
// Every node carries a [Meta] map for source-language facts that have no
// direct representation in the grammar.
package gast

// Node is implemented by every node of the generalized tree.
// The set of implementations is closed: only types in this package satisfy it.
type Node interface {
	// Kind returns the syntactic kind discriminant of the node.
	Kind() Kind
	// Metadata returns the node's out-of-band metadata. It is never nil.
	Metadata() *Meta
}

// Expr is a node that can appear in expression position.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a node that can appear in a statement body.
type Stmt interface {
	Node
	stmtNode()
}

// Module is the root of a generalized tree. One Module is produced per
// translation unit.
type Module struct {
	Body []Stmt
	Meta
}

// FunctionDef is a function, subroutine or procedure definition.
// Returns is the return type annotation, nil when unknown.
type FunctionDef struct {
	Name       string
	Args       []*Arg
	Body       []Stmt
	Returns    Expr
	Decorators []Expr
	Meta
}

// Arg is a formal parameter of a FunctionDef.
type Arg struct {
	Name       string
	Annotation Expr // nil when untyped.
	Default    Expr // nil when the parameter is required.
	Meta
}

// ClassDef is a class or record type definition.
type ClassDef struct {
	Name  string
	Bases []Expr
	Body  []Stmt
	Meta
}

// Assign is `Targets[0] = Targets[1] = ... = Value`.
type Assign struct {
	Targets []Expr
	Value   Expr
	Meta
}

// AnnAssign is a declaration with a type annotation and optional value.
type AnnAssign struct {
	Target     Expr
	Annotation Expr
	Value      Expr // nil for a bare declaration.
	Meta
}

// AugAssign is an in-place update such as `x += 1`.
type AugAssign struct {
	Target Expr
	Op     Operator
	Value  Expr
	Meta
}

type If struct {
	Test   Expr
	Body   []Stmt
	Orelse []Stmt
	Meta
}

// For iterates Target over Iter. Counted loops use a call to range as Iter.
type For struct {
	Target Expr
	Iter   Expr
	Body   []Stmt
	Orelse []Stmt
	Meta
}

type While struct {
	Test   Expr
	Body   []Stmt
	Orelse []Stmt
	Meta
}

type Return struct {
	Value Expr // nil for a bare return.
	Meta
}

type Break struct{ Meta }

type Continue struct{ Meta }

type Pass struct{ Meta }

type Delete struct {
	Targets []Expr
	Meta
}

// ExprStmt is an expression evaluated for its side effects.
type ExprStmt struct {
	Value Expr
	Meta
}

// Alias is one imported name, optionally renamed.
type Alias struct {
	Name   string
	AsName string
}

type Import struct {
	Names []Alias
	Meta
}

// ImportFrom is `from Module import Names`. A single Alias named "*"
// imports every public name.
type ImportFrom struct {
	Module string
	Names  []Alias
	Meta
}

// Comment is a source comment kept as a statement.
type Comment struct {
	Text string
	Meta
}

// Directive is a verbatim preprocessor line such as `#include <math.h>`.
type Directive struct {
	Text string
	Meta
}

// BinOp is a binary arithmetic or bitwise operation.
type BinOp struct {
	Left  Expr
	Op    Operator
	Right Expr
	Meta
}

type UnaryOp struct {
	Op      Operator
	Operand Expr
	Meta
}

// BoolOp applies one boolean operator across all Values: `a and b and c`.
type BoolOp struct {
	Op     Operator
	Values []Expr
	Meta
}

// Compare is `Left Ops[0] Comparators[0] Ops[1] Comparators[1] ...`.
// len(Ops) == len(Comparators).
type Compare struct {
	Left        Expr
	Ops         []Operator
	Comparators []Expr
	Meta
}

type Call struct {
	Func     Expr
	Args     []Expr
	Keywords []*Keyword
	Meta
}

// Keyword is a named argument of a Call.
type Keyword struct {
	Arg   string
	Value Expr
	Meta
}

// Subscript is `Value[Slice]` where Slice is an *Index, *Slice or *ExtSlice.
type Subscript struct {
	Value Expr
	Slice Expr
	Meta
}

// Index is a single-element subscript.
type Index struct {
	Value Expr
	Meta
}

// Slice is `Lower:Upper:Step`; any part may be nil.
type Slice struct {
	Lower Expr
	Upper Expr
	Step  Expr
	Meta
}

// ExtSlice is a multi-dimensional subscript. Each dimension is an *Index or *Slice.
type ExtSlice struct {
	Dims []Expr
	Meta
}

// Constant is a literal. Value is one of int64, float64, complex128,
// string, bool or nil (the None/null literal).
type Constant struct {
	Value any
	Meta
}

type Name struct {
	ID string
	Meta
}

// Attribute is `Value.Attr`.
type Attribute struct {
	Value Expr
	Attr  string
	Meta
}

type List struct {
	Elts []Expr
	Meta
}

type Tuple struct {
	Elts []Expr
	Meta
}

// ListComp is `[Elt for ... in ... if ...]`.
type ListComp struct {
	Elt        Expr
	Generators []*Comprehension
	Meta
}

// Comprehension is one `for Target in Iter if Ifs...` clause of a ListComp.
type Comprehension struct {
	Target Expr
	Iter   Expr
	Ifs    []Expr
	Meta
}

// IfExp is the conditional expression `Body if Test else Orelse`.
type IfExp struct {
	Test   Expr
	Body   Expr
	Orelse Expr
	Meta
}

func (*Module) Kind() Kind        { return KindModule }
func (*FunctionDef) Kind() Kind   { return KindFunctionDef }
func (*Arg) Kind() Kind           { return KindArg }
func (*ClassDef) Kind() Kind      { return KindClassDef }
func (*Assign) Kind() Kind        { return KindAssign }
func (*AnnAssign) Kind() Kind     { return KindAnnAssign }
func (*AugAssign) Kind() Kind     { return KindAugAssign }
func (*If) Kind() Kind            { return KindIf }
func (*For) Kind() Kind           { return KindFor }
func (*While) Kind() Kind         { return KindWhile }
func (*Return) Kind() Kind        { return KindReturn }
func (*Break) Kind() Kind         { return KindBreak }
func (*Continue) Kind() Kind      { return KindContinue }
func (*Pass) Kind() Kind          { return KindPass }
func (*Delete) Kind() Kind        { return KindDelete }
func (*ExprStmt) Kind() Kind      { return KindExprStmt }
func (*Import) Kind() Kind        { return KindImport }
func (*ImportFrom) Kind() Kind    { return KindImportFrom }
func (*Comment) Kind() Kind       { return KindComment }
func (*Directive) Kind() Kind     { return KindDirective }
func (*BinOp) Kind() Kind         { return KindBinOp }
func (*UnaryOp) Kind() Kind       { return KindUnaryOp }
func (*BoolOp) Kind() Kind        { return KindBoolOp }
func (*Compare) Kind() Kind       { return KindCompare }
func (*Call) Kind() Kind          { return KindCall }
func (*Keyword) Kind() Kind       { return KindKeyword }
func (*Subscript) Kind() Kind     { return KindSubscript }
func (*Index) Kind() Kind         { return KindIndex }
func (*Slice) Kind() Kind         { return KindSlice }
func (*ExtSlice) Kind() Kind      { return KindExtSlice }
func (*Constant) Kind() Kind      { return KindConstant }
func (*Name) Kind() Kind          { return KindName }
func (*Attribute) Kind() Kind     { return KindAttribute }
func (*List) Kind() Kind          { return KindList }
func (*Tuple) Kind() Kind         { return KindTuple }
func (*ListComp) Kind() Kind      { return KindListComp }
func (*Comprehension) Kind() Kind { return KindComprehension }
func (*IfExp) Kind() Kind         { return KindIfExp }

func (*FunctionDef) stmtNode() {}
func (*ClassDef) stmtNode()    {}
func (*Assign) stmtNode()      {}
func (*AnnAssign) stmtNode()   {}
func (*AugAssign) stmtNode()   {}
func (*If) stmtNode()          {}
func (*For) stmtNode()         {}
func (*While) stmtNode()       {}
func (*Return) stmtNode()      {}
func (*Break) stmtNode()       {}
func (*Continue) stmtNode()    {}
func (*Pass) stmtNode()        {}
func (*Delete) stmtNode()      {}
func (*ExprStmt) stmtNode()    {}
func (*Import) stmtNode()      {}
func (*ImportFrom) stmtNode()  {}
func (*Comment) stmtNode()     {}
func (*Directive) stmtNode()   {}

func (*BinOp) exprNode()     {}
func (*UnaryOp) exprNode()   {}
func (*BoolOp) exprNode()    {}
func (*Compare) exprNode()   {}
func (*Call) exprNode()      {}
func (*Subscript) exprNode() {}
func (*Index) exprNode()     {}
func (*Slice) exprNode()     {}
func (*ExtSlice) exprNode()  {}
func (*Constant) exprNode()  {}
func (*Name) exprNode()      {}
func (*Attribute) exprNode() {}
func (*List) exprNode()      {}
func (*Tuple) exprNode()     {}
func (*ListComp) exprNode()  {}
func (*IfExp) exprNode()     {}
