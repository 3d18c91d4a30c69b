// Package inline substitutes a call in a generalized tree with the body of
// the function it calls.
package inline

import (
	"strings"

	"github.com/soypat/polyglot/gast"
	"github.com/soypat/polyglot/lang"
)

// Inline returns a copy of target in which call is replaced by the body of
// inlined, with every parameter bound to the matching argument of call.
// Neither function is modified; call must be a node of target.
//
// The call may be an expression statement, the value of an assignment or
// the value of a return statement. There, a trailing return of the inlined
// body becomes an assignment to the original targets, is dropped, or stays
// a return, and a body without one returns None. A function whose body is a
// single return statement may also be inlined wherever an expression may
// appear. A call anywhere else fails with a [*lang.UnsupportedConstruct]
// whose Kind names the node containing the call.
//
// Arguments that are not names or constants and are used other than once
// are evaluated once into a variable named after the parameter. So are
// parameters the inlined body assigns to. Local variables of the inlined
// body keep their names.
func Inline(target, inlined *gast.FunctionDef, call *gast.Call) (*gast.FunctionDef, error) {
	if target == nil || inlined == nil || call == nil {
		return nil, &lang.ContractError{Op: "inline", Msg: "nil function or call"}
	}
	if name, ok := gast.CalleeName(call); ok && name[strings.LastIndexByte(name, '.')+1:] != inlined.Name {
		return nil, &lang.ContractError{Op: "inline", Msg: "call to " + name + " is not a call to " + inlined.Name}
	}
	idx := callIndex(target, call)
	if idx < 0 {
		return nil, &lang.ContractError{Op: "inline", Msg: "call to " + inlined.Name + " not found in " + target.Name}
	}
	bound, err := bind(inlined, call)
	if err != nil {
		return nil, err
	}

	out := gast.Clone(target)
	c := nthCall(out, idx)
	stmt, parent := locate(out, c, nil)
	in := &inliner{fn: inlined, call: c}

	var replacement []gast.Stmt
	switch s := stmt.(type) {
	case *gast.ExprStmt:
		if parent == stmt {
			replacement, err = in.statement(bound, func(ret *gast.Return) gast.Stmt {
				if ret.Value != nil && hasCall(ret.Value) {
					return &gast.ExprStmt{Value: ret.Value}
				}
				return nil
			}, nil)
		}
	case *gast.Assign:
		if parent == stmt && s.Value == gast.Expr(c) {
			assign := func(v gast.Expr) gast.Stmt {
				return &gast.Assign{Targets: s.Targets, Value: v}
			}
			replacement, err = in.statement(bound, func(ret *gast.Return) gast.Stmt {
				return assign(ret.Value)
			}, assign(gast.None()))
		}
	case *gast.AnnAssign:
		if parent == stmt && s.Value == gast.Expr(c) {
			assign := func(v gast.Expr) gast.Stmt {
				return &gast.AnnAssign{Target: s.Target, Annotation: s.Annotation, Value: v}
			}
			replacement, err = in.statement(bound, func(ret *gast.Return) gast.Stmt {
				return assign(ret.Value)
			}, assign(gast.None()))
		}
	case *gast.Return:
		if parent == stmt {
			in.keepReturns = true
			replacement, err = in.statement(bound, func(ret *gast.Return) gast.Stmt {
				if ret.Value == nil {
					ret.Value = gast.None()
				}
				return ret
			}, &gast.Return{Value: gast.None()})
		}
	}
	if err != nil {
		return nil, err
	}
	if replacement != nil {
		gast.ExpandStmts(out, func(s gast.Stmt) []gast.Stmt {
			if s == stmt {
				return replacement
			}
			return []gast.Stmt{s}
		})
		return out, nil
	}

	value, ok := singleReturn(inlined)
	if !ok {
		kind := "module"
		if parent != nil {
			kind = parent.Kind().String()
		}
		return nil, &lang.UnsupportedConstruct{
			Kind:   kind,
			Source: gast.Dump(parent),
			Reason: "call to " + inlined.Name + " inlined in " + kind + " context",
		}
	}
	value = substitute(value, bound)
	gast.RewriteExprs(out, func(e gast.Expr) gast.Expr {
		if e == gast.Expr(c) {
			return value
		}
		return e
	})
	return out, nil
}

type inliner struct {
	fn          *gast.FunctionDef
	call        *gast.Call
	keepReturns bool
}

// statement builds the statements replacing a call in statement position.
// last rewrites a trailing return and may return nil to drop it. noReturn
// is appended when the body does not end in a return.
func (in *inliner) statement(bound map[string]gast.Expr, last func(*gast.Return) gast.Stmt, noReturn gast.Stmt) ([]gast.Stmt, error) {
	body := gast.CloneStmts(in.fn.Body)
	var trailing *gast.Return
	if n := len(body); n > 0 {
		if trailing, _ = body[n-1].(*gast.Return); trailing != nil {
			body = body[:n-1]
		}
	}
	if !in.keepReturns {
		if ret := firstReturn(body); ret != nil {
			return nil, &lang.UnsupportedConstruct{
				Kind:   ret.Kind().String(),
				Source: gast.Dump(ret),
				Reason: "early return in inlined " + in.fn.Name,
			}
		}
	}

	assigned := assignedNames(in.fn.Body)
	uses := nameUses(in.fn.Body)
	subst := make(map[string]gast.Expr)
	var out []gast.Stmt
	for _, p := range in.fn.Args {
		arg := bound[p.Name]
		if name, ok := arg.(*gast.Name); ok && name.ID == p.Name {
			continue
		}
		if assigned[p.Name] || (!isSimple(arg) && uses[p.Name] != 1) {
			out = append(out, &gast.Assign{Targets: []gast.Expr{gast.NewName(p.Name)}, Value: arg})
			continue
		}
		subst[p.Name] = arg
	}
	for _, s := range body {
		out = append(out, substituteStmt(s, subst))
	}
	switch {
	case trailing != nil:
		if s := last(substituteStmt(trailing, subst).(*gast.Return)); s != nil {
			out = append(out, s)
		}
	case noReturn != nil:
		out = append(out, noReturn)
	}
	if out == nil {
		out = []gast.Stmt{&gast.Pass{}}
	}
	return out, nil
}

// bind matches the arguments of call to the parameters of fn. Missing
// arguments take the parameter default.
func bind(fn *gast.FunctionDef, call *gast.Call) (map[string]gast.Expr, error) {
	if len(call.Args) > len(fn.Args) {
		return nil, &lang.ContractError{Op: "inline", Msg: fn.Name + " called with too many arguments"}
	}
	bound := make(map[string]gast.Expr, len(fn.Args))
	for i, a := range call.Args {
		bound[fn.Args[i].Name] = a
	}
	for _, k := range call.Keywords {
		if k.Arg == "" {
			return nil, &lang.UnsupportedConstruct{Kind: k.Kind().String(), Source: gast.Dump(k), Reason: "keyword argument unpacking"}
		}
		known := false
		for _, p := range fn.Args {
			known = known || p.Name == k.Arg
		}
		if !known {
			return nil, &lang.ContractError{Op: "inline", Msg: fn.Name + " has no parameter " + k.Arg}
		}
		if _, dup := bound[k.Arg]; dup {
			return nil, &lang.ContractError{Op: "inline", Msg: "parameter " + k.Arg + " of " + fn.Name + " bound twice"}
		}
		bound[k.Arg] = k.Value
	}
	for _, p := range fn.Args {
		if _, ok := bound[p.Name]; ok {
			continue
		}
		if p.Default == nil {
			return nil, &lang.ContractError{Op: "inline", Msg: "missing argument " + p.Name + " to " + fn.Name}
		}
		bound[p.Name] = p.Default
	}
	for name, e := range bound {
		bound[name] = gast.Clone(e)
	}
	return bound, nil
}

func singleReturn(fn *gast.FunctionDef) (gast.Expr, bool) {
	if len(fn.Body) != 1 {
		return nil, false
	}
	ret, ok := fn.Body[0].(*gast.Return)
	if !ok || ret.Value == nil {
		return nil, false
	}
	return ret.Value, true
}

// substitute returns a copy of e with parameter names replaced.
func substitute(e gast.Expr, subst map[string]gast.Expr) gast.Expr {
	e = gast.Clone(e)
	if n, ok := e.(*gast.Name); ok {
		if v, ok := subst[n.ID]; ok {
			return gast.Clone(v)
		}
		return e
	}
	gast.RewriteExprs(e, replacer(subst))
	return e
}

func substituteStmt(s gast.Stmt, subst map[string]gast.Expr) gast.Stmt {
	gast.RewriteExprs(s, replacer(subst))
	return s
}

func replacer(subst map[string]gast.Expr) func(gast.Expr) gast.Expr {
	return func(e gast.Expr) gast.Expr {
		if n, ok := e.(*gast.Name); ok {
			if v, ok := subst[n.ID]; ok {
				return gast.Clone(v)
			}
		}
		return e
	}
}

func isSimple(e gast.Expr) bool {
	switch e.(type) {
	case *gast.Name, *gast.Constant:
		return true
	}
	return false
}

func hasCall(e gast.Expr) bool {
	found := false
	gast.Inspect(e, func(n gast.Node) bool {
		_, isCall := n.(*gast.Call)
		found = found || isCall
		return !found
	})
	return found
}

// scoped inspects the statements of body without entering nested
// function or class definitions.
func scoped(body []gast.Stmt, f func(gast.Node)) {
	for _, s := range body {
		gast.Inspect(s, func(n gast.Node) bool {
			switch n.(type) {
			case *gast.FunctionDef, *gast.ClassDef:
				return false
			}
			f(n)
			return true
		})
	}
}

func firstReturn(body []gast.Stmt) *gast.Return {
	var ret *gast.Return
	scoped(body, func(n gast.Node) {
		if r, ok := n.(*gast.Return); ok && ret == nil {
			ret = r
		}
	})
	return ret
}

func nameUses(body []gast.Stmt) map[string]int {
	uses := make(map[string]int)
	scoped(body, func(n gast.Node) {
		if name, ok := n.(*gast.Name); ok {
			uses[name.ID]++
		}
	})
	return uses
}

func assignedNames(body []gast.Stmt) map[string]bool {
	assigned := make(map[string]bool)
	target := func(e gast.Expr) {
		gast.Inspect(e, func(n gast.Node) bool {
			switch n := n.(type) {
			case *gast.Name:
				assigned[n.ID] = true
			case *gast.Subscript, *gast.Attribute:
				return false
			}
			return true
		})
	}
	scoped(body, func(n gast.Node) {
		switch n := n.(type) {
		case *gast.Assign:
			for _, t := range n.Targets {
				target(t)
			}
		case *gast.AugAssign:
			target(n.Target)
		case *gast.AnnAssign:
			target(n.Target)
		case *gast.For:
			target(n.Target)
		case *gast.Delete:
			for _, t := range n.Targets {
				target(t)
			}
		}
	})
	return assigned
}

// callIndex returns the position of call among the calls of root in
// depth-first order, or -1.
func callIndex(root gast.Node, call *gast.Call) int {
	idx, i := -1, 0
	gast.Inspect(root, func(n gast.Node) bool {
		if c, ok := n.(*gast.Call); ok {
			if c == call {
				idx = i
			}
			i++
		}
		return idx < 0
	})
	return idx
}

func nthCall(root gast.Node, idx int) *gast.Call {
	var found *gast.Call
	i := 0
	gast.Inspect(root, func(n gast.Node) bool {
		if c, ok := n.(*gast.Call); ok {
			if i == idx {
				found = c
			}
			i++
		}
		return found == nil
	})
	return found
}

// locate returns the innermost statement enclosing call and the direct
// parent of call.
func locate(n gast.Node, call *gast.Call, stmt gast.Stmt) (gast.Stmt, gast.Node) {
	for _, child := range gast.Children(n) {
		if child == gast.Node(call) {
			return stmt, n
		}
		inner := stmt
		if s, ok := child.(gast.Stmt); ok {
			inner = s
		}
		if s, p := locate(child, call, inner); p != nil {
			return s, p
		}
	}
	return nil, nil
}
