package ast

// A Visitor's Visit method is invoked for each node encountered by Walk.
// If the result visitor w is not nil, Walk visits each of the children
// of node with the visitor w, followed by a call of w.Visit(nil).
type Visitor interface {
	Visit(node Node) (w Visitor)
}

// Walk traverses an AST in depth-first order: It starts by calling
// v.Visit(node); node must not be nil. If the visitor w returned by
// v.Visit(node) is not nil, Walk is invoked recursively with visitor
// w for each of the non-nil children of node, followed by a call of
// w.Visit(nil).
func Walk(v Visitor, node Node) {
	if v = v.Visit(node); v == nil {
		return
	}

	switch n := node.(type) {
	case *Program:
		for _, unit := range n.Units {
			Walk(v, unit)
		}

	// Program units
	case *ProgramBlock:
		walkStmts(v, n.Body)
		walkUnits(v, n.Contains)
	case *Subroutine:
		walkStmts(v, n.Body)
		walkUnits(v, n.Contains)
	case *Function:
		walkStmts(v, n.Body)
		walkUnits(v, n.Contains)
	case *Module:
		walkStmts(v, n.Body)
		walkUnits(v, n.Contains)

	// Specification statements
	case *TypeDeclaration:
		walkEntities(v, n.Entities)
	case *DimensionStmt:
		walkEntities(v, n.Entities)
	case *ParameterStmt:
		walkEntities(v, n.Entities)
	case *DerivedTypeDef:
		walkStmts(v, n.Components)

	// Executable statements
	case *AssignmentStmt:
		Walk(v, n.Target)
		Walk(v, n.Value)
	case *IfStmt:
		Walk(v, n.Condition)
		walkStmts(v, n.ThenPart)
		for _, clause := range n.ElseIfParts {
			Walk(v, clause.Condition)
			walkStmts(v, clause.ThenPart)
		}
		walkStmts(v, n.ElsePart)
	case *DoLoop:
		walkExprs(v, n.Start, n.End, n.Step)
		walkStmts(v, n.Body)
	case *DoWhileLoop:
		Walk(v, n.Condition)
		walkStmts(v, n.Body)
	case *SelectCaseStmt:
		Walk(v, n.Expression)
		for _, c := range n.Cases {
			walkExprs(v, c.Values...)
			walkStmts(v, c.Body)
		}
	case *CallStmt:
		walkExprs(v, n.Args...)
	case *StopStmt:
		walkExprs(v, n.Code)
	case *PrintStmt:
		walkExprs(v, n.Format)
		walkExprs(v, n.OutputList...)
	case *WriteStmt:
		walkExprs(v, n.Unit, n.Format)
		walkExprs(v, n.OutputList...)
	case *AllocateStmt:
		walkExprs(v, n.Objects...)
	case *DeallocateStmt:
		walkExprs(v, n.Objects...)

	// Expressions
	case *BinaryExpr:
		Walk(v, n.Left)
		Walk(v, n.Right)
	case *UnaryExpr:
		Walk(v, n.Operand)
	case *FunctionCall:
		walkExprs(v, n.Args...)
	case *RangeExpr:
		walkExprs(v, n.Start, n.End, n.Stride)
	case *KeywordArg:
		Walk(v, n.Value)
	case *ParenExpr:
		Walk(v, n.Expr)
	case *ComponentAccess:
		Walk(v, n.Base)
	case *ArrayConstructor:
		walkExprs(v, n.Values...)
	case *ImpliedDoLoop:
		walkExprs(v, n.Expressions...)
		walkExprs(v, n.Start, n.End, n.Stride)
	case *ComplexLiteral:
		Walk(v, n.Real)
		Walk(v, n.Imag)
	}

	v.Visit(nil)
}

func walkStmts(v Visitor, stmts []Statement) {
	for _, s := range stmts {
		Walk(v, s)
	}
}

func walkUnits(v Visitor, units []ProgramUnit) {
	for _, u := range units {
		Walk(v, u)
	}
}

func walkExprs(v Visitor, exprs ...Expression) {
	for _, e := range exprs {
		if e != nil {
			Walk(v, e)
		}
	}
}

func walkEntities(v Visitor, entities []DeclEntity) {
	for _, entity := range entities {
		if entity.ArraySpec != nil {
			for _, bound := range entity.ArraySpec.Bounds {
				walkExprs(v, bound.Lower, bound.Upper)
			}
		}
		walkExprs(v, entity.CharLen, entity.Init)
	}
}

// Inspect traverses an AST in depth-first order: It starts by calling
// f(node); node must not be nil. If f returns true, Inspect invokes f
// recursively for each of the non-nil children of node, followed by a
// call of f(nil).
func Inspect(node Node, f func(Node) bool) {
	Walk(inspector(f), node)
}

type inspector func(Node) bool

func (f inspector) Visit(node Node) Visitor {
	if f(node) {
		return f
	}
	return nil
}
