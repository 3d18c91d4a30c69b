package gast

// RewriteExprs walks node and replaces every expression e below it with
// fn(e). Children are rewritten before their parent (post-order), so fn
// sees already rewritten operands. Returning e unchanged keeps it.
// Statement bodies are traversed but statements themselves are kept.
func RewriteExprs(node Node, fn func(Expr) Expr) {
	rw := func(e Expr) Expr {
		if e == nil || isNilNode(e) {
			return e
		}
		RewriteExprs(e, fn)
		return fn(e)
	}
	list := func(es []Expr) {
		for i := range es {
			es[i] = rw(es[i])
		}
	}
	stmts := func(ss []Stmt) {
		for _, s := range ss {
			RewriteExprs(s, fn)
		}
	}
	switch n := node.(type) {
	case *Module:
		stmts(n.Body)
	case *FunctionDef:
		list(n.Decorators)
		for _, a := range n.Args {
			RewriteExprs(a, fn)
		}
		n.Returns = rw(n.Returns)
		stmts(n.Body)
	case *Arg:
		n.Annotation = rw(n.Annotation)
		n.Default = rw(n.Default)
	case *ClassDef:
		list(n.Bases)
		stmts(n.Body)
	case *Assign:
		list(n.Targets)
		n.Value = rw(n.Value)
	case *AnnAssign:
		n.Target = rw(n.Target)
		n.Annotation = rw(n.Annotation)
		n.Value = rw(n.Value)
	case *AugAssign:
		n.Target = rw(n.Target)
		n.Value = rw(n.Value)
	case *If:
		n.Test = rw(n.Test)
		stmts(n.Body)
		stmts(n.Orelse)
	case *For:
		n.Target = rw(n.Target)
		n.Iter = rw(n.Iter)
		stmts(n.Body)
		stmts(n.Orelse)
	case *While:
		n.Test = rw(n.Test)
		stmts(n.Body)
		stmts(n.Orelse)
	case *Return:
		n.Value = rw(n.Value)
	case *Delete:
		list(n.Targets)
	case *ExprStmt:
		n.Value = rw(n.Value)
	case *BinOp:
		n.Left = rw(n.Left)
		n.Right = rw(n.Right)
	case *UnaryOp:
		n.Operand = rw(n.Operand)
	case *BoolOp:
		list(n.Values)
	case *Compare:
		n.Left = rw(n.Left)
		list(n.Comparators)
	case *Call:
		n.Func = rw(n.Func)
		list(n.Args)
		for _, k := range n.Keywords {
			k.Value = rw(k.Value)
		}
	case *Subscript:
		n.Value = rw(n.Value)
		n.Slice = rw(n.Slice)
	case *Index:
		n.Value = rw(n.Value)
	case *Slice:
		n.Lower = rw(n.Lower)
		n.Upper = rw(n.Upper)
		n.Step = rw(n.Step)
	case *ExtSlice:
		list(n.Dims)
	case *Attribute:
		n.Value = rw(n.Value)
	case *List:
		list(n.Elts)
	case *Tuple:
		list(n.Elts)
	case *ListComp:
		n.Elt = rw(n.Elt)
		for _, g := range n.Generators {
			RewriteExprs(g, fn)
		}
	case *Comprehension:
		n.Target = rw(n.Target)
		n.Iter = rw(n.Iter)
		list(n.Ifs)
	case *IfExp:
		n.Test = rw(n.Test)
		n.Body = rw(n.Body)
		n.Orelse = rw(n.Orelse)
	}
}
