package gast

// ExpandStmts replaces, in every statement body reachable from node, each
// statement s with the statements returned by fn(s). Returning nil drops the
// statement; returning []Stmt{s} keeps it. Replacements are spliced in
// place so bodies stay flat sequences of statements. Bodies of replacement
// statements are expanded too.
func ExpandStmts(node Node, fn func(Stmt) []Stmt) {
	switch n := node.(type) {
	case *Module:
		n.Body = expandBody(n.Body, fn)
	case *FunctionDef:
		n.Body = expandBody(n.Body, fn)
	case *ClassDef:
		n.Body = expandBody(n.Body, fn)
	case *If:
		n.Body = expandBody(n.Body, fn)
		n.Orelse = expandBody(n.Orelse, fn)
	case *For:
		n.Body = expandBody(n.Body, fn)
		n.Orelse = expandBody(n.Orelse, fn)
	case *While:
		n.Body = expandBody(n.Body, fn)
		n.Orelse = expandBody(n.Orelse, fn)
	}
}

func expandBody(body []Stmt, fn func(Stmt) []Stmt) []Stmt {
	if body == nil {
		return nil
	}
	out := make([]Stmt, 0, len(body))
	for _, s := range body {
		for _, r := range fn(s) {
			ExpandStmts(r, fn)
			out = append(out, r)
		}
	}
	return out
}

// Bodies returns pointers to every statement body directly owned by node.
func Bodies(node Node) []*[]Stmt {
	switch n := node.(type) {
	case *Module:
		return []*[]Stmt{&n.Body}
	case *FunctionDef:
		return []*[]Stmt{&n.Body}
	case *ClassDef:
		return []*[]Stmt{&n.Body}
	case *If:
		return []*[]Stmt{&n.Body, &n.Orelse}
	case *For:
		return []*[]Stmt{&n.Body, &n.Orelse}
	case *While:
		return []*[]Stmt{&n.Body, &n.Orelse}
	}
	return nil
}
