package gast

import "reflect"

// A Visitor's Visit method is invoked for each node encountered by Walk.
// If the result visitor w is not nil, Walk visits each of the children
// of node with the visitor w, followed by a call of w.Visit(nil).
type Visitor interface {
	Visit(node Node) (w Visitor)
}

// Walk traverses a generalized tree in depth-first order: It starts by
// calling v.Visit(node); node must not be nil. If the visitor w returned by
// v.Visit(node) is not nil, Walk is invoked recursively with visitor
// w for each of the non-nil children of node, followed by a call of
// w.Visit(nil).
func Walk(v Visitor, node Node) {
	if v = v.Visit(node); v == nil {
		return
	}
	for _, child := range Children(node) {
		Walk(v, child)
	}
	v.Visit(nil)
}

type inspector func(Node) bool

func (f inspector) Visit(node Node) Visitor {
	if f(node) {
		return f
	}
	return nil
}

// Inspect traverses a tree in depth-first order calling f for each node.
// If f returns true, Inspect continues into the node's children.
// A nil node is ignored.
func Inspect(node Node, f func(Node) bool) {
	if node == nil || isNilNode(node) {
		return
	}
	Walk(inspector(func(n Node) bool {
		if n == nil {
			return false
		}
		return f(n)
	}), node)
}

// Children returns the non-nil direct children of node in source order.
func Children(node Node) []Node {
	var c children
	switch n := node.(type) {
	case *Module:
		c.stmts(n.Body)
	case *FunctionDef:
		c.exprs(n.Decorators)
		for _, a := range n.Args {
			c.add(a)
		}
		c.add(n.Returns)
		c.stmts(n.Body)
	case *Arg:
		c.add(n.Annotation)
		c.add(n.Default)
	case *ClassDef:
		c.exprs(n.Bases)
		c.stmts(n.Body)
	case *Assign:
		c.exprs(n.Targets)
		c.add(n.Value)
	case *AnnAssign:
		c.add(n.Target)
		c.add(n.Annotation)
		c.add(n.Value)
	case *AugAssign:
		c.add(n.Target)
		c.add(n.Value)
	case *If:
		c.add(n.Test)
		c.stmts(n.Body)
		c.stmts(n.Orelse)
	case *For:
		c.add(n.Target)
		c.add(n.Iter)
		c.stmts(n.Body)
		c.stmts(n.Orelse)
	case *While:
		c.add(n.Test)
		c.stmts(n.Body)
		c.stmts(n.Orelse)
	case *Return:
		c.add(n.Value)
	case *Delete:
		c.exprs(n.Targets)
	case *ExprStmt:
		c.add(n.Value)
	case *BinOp:
		c.add(n.Left)
		c.add(n.Right)
	case *UnaryOp:
		c.add(n.Operand)
	case *BoolOp:
		c.exprs(n.Values)
	case *Compare:
		c.add(n.Left)
		c.exprs(n.Comparators)
	case *Call:
		c.add(n.Func)
		c.exprs(n.Args)
		for _, k := range n.Keywords {
			c.add(k)
		}
	case *Keyword:
		c.add(n.Value)
	case *Subscript:
		c.add(n.Value)
		c.add(n.Slice)
	case *Index:
		c.add(n.Value)
	case *Slice:
		c.add(n.Lower)
		c.add(n.Upper)
		c.add(n.Step)
	case *ExtSlice:
		c.exprs(n.Dims)
	case *Attribute:
		c.add(n.Value)
	case *List:
		c.exprs(n.Elts)
	case *Tuple:
		c.exprs(n.Elts)
	case *ListComp:
		c.add(n.Elt)
		for _, g := range n.Generators {
			c.add(g)
		}
	case *Comprehension:
		c.add(n.Target)
		c.add(n.Iter)
		c.exprs(n.Ifs)
	case *IfExp:
		c.add(n.Test)
		c.add(n.Body)
		c.add(n.Orelse)
	case *Break, *Continue, *Pass, *Import, *ImportFrom, *Comment, *Directive, *Constant, *Name:
		// Leaves.
	}
	return c
}

// AssignedNames returns the names bound anywhere in body by an
// assignment, an augmented assignment, an annotated assignment with a
// value or a loop target. Element and attribute targets do not bind their
// base name.
func AssignedNames(body []Stmt) map[string]bool {
	names := make(map[string]bool)
	var target func(e Expr)
	target = func(e Expr) {
		switch e := e.(type) {
		case *Name:
			names[e.ID] = true
		case *Tuple:
			for _, el := range e.Elts {
				target(el)
			}
		case *List:
			for _, el := range e.Elts {
				target(el)
			}
		}
	}
	for _, s := range body {
		Inspect(s, func(n Node) bool {
			switch n := n.(type) {
			case *Assign:
				for _, t := range n.Targets {
					target(t)
				}
			case *AugAssign:
				target(n.Target)
			case *AnnAssign:
				if n.Value != nil {
					target(n.Target)
				}
			case *For:
				target(n.Target)
			}
			return true
		})
	}
	return names
}

type children []Node

func (c *children) add(n Node) {
	if n != nil && !isNilNode(n) {
		*c = append(*c, n)
	}
}

func (c *children) exprs(list []Expr) {
	for _, e := range list {
		c.add(e)
	}
}

func (c *children) stmts(list []Stmt) {
	for _, s := range list {
		c.add(s)
	}
}

// isNilNode catches typed nil pointers stored in interface fields.
func isNilNode(n Node) bool {
	v := reflect.ValueOf(n)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
