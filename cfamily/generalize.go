package cfamily

import (
	"errors"
	"maps"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"go.uber.org/zap"

	"github.com/soypat/polyglot/gast"
	"github.com/soypat/polyglot/lang"
)

// Generalizer lowers a C or C++ [Tree] into the generalized tree.
//
// Declarations become annotated assignments whose annotation is the
// unwound declarator. A for statement must be a counted loop of the shape
//
//	for (i = begin; i < end; i += step)
//
// to be lowered; other for statements are unsupported.
type Generalizer struct {
	// BestEffort drops unsupported statements, logging each one, instead
	// of failing.
	BestEffort bool
	Log        *zap.Logger
}

var _ lang.Generalizer = (*Generalizer)(nil)

type generalizer struct {
	rep     lang.Reporter
	cpp     bool
	src     []byte
	imports gast.Imports
	// defined holds the functions the translation unit defines. They
	// shadow math library names.
	defined map[string]bool
	// vars maps the variables in scope to their annotation.
	vars map[string]gast.Expr
}

// Generalize implements [lang.Generalizer].
func (cg *Generalizer) Generalize(tree lang.Tree) (*gast.Module, error) {
	t, ok := tree.(*Tree)
	if !ok || t == nil {
		got := "nil"
		if tree != nil {
			got = tree.Language().Name()
		}
		return nil, &lang.ContractError{Op: "generalize", Msg: "c generalizer got a " + got + " tree"}
	}
	g := &generalizer{
		rep:     lang.Reporter{Lang: t.Language().Name(), BestEffort: cg.BestEffort, Log: cg.Log},
		cpp:     t.Dialect == CPP,
		defined: make(map[string]bool),
		vars:    make(map[string]gast.Expr),
	}
	for _, p := range t.parts {
		if p.tree == nil {
			return nil, &lang.ContractError{Op: "generalize", Msg: "c tree already closed"}
		}
		g.src = p.src
		g.collectDefinitions(p.tree.RootNode())
	}
	mod := &gast.Module{}
	for _, p := range t.parts {
		g.src = p.src
		body, err := g.body(p.tree.RootNode())
		if err != nil {
			return nil, err
		}
		mod.Body = append(mod.Body, body...)
	}
	gast.Inspect(mod, func(n gast.Node) bool {
		if name, ok := n.(*gast.Name); ok && name.ID == gast.NumpyAlias {
			g.imports.Add(gast.NumpyModule, gast.NumpyAlias)
			return false
		}
		return true
	})
	g.imports.Prepend(mod)
	return mod, nil
}

func (g *generalizer) collectDefinitions(root *sitter.Node) {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		c := root.NamedChild(i)
		if c.Type() != "function_definition" {
			continue
		}
		if name := declaredName(c.ChildByFieldName("declarator"), g.src); name != "" {
			g.defined[name] = true
		}
	}
}

// declaredName returns the identifier at the core of a declarator.
func declaredName(n *sitter.Node, src []byte) string {
	for n != nil {
		switch n.Type() {
		case "identifier", "field_identifier":
			return n.Content(src)
		case "parenthesized_declarator", "reference_declarator":
			n = firstNamed(n)
		default:
			n = n.ChildByFieldName("declarator")
		}
	}
	return ""
}

func (g *generalizer) text(n *sitter.Node) string { return n.Content(g.src) }

// body lowers the named children of a translation unit or compound
// statement.
func (g *generalizer) body(n *sitter.Node) ([]gast.Stmt, error) {
	var out []gast.Stmt
	for i := 0; i < int(n.NamedChildCount()); i++ {
		stmts, err := g.stmt(n.NamedChild(i))
		if err != nil {
			if err = g.downgrade(err); err != nil {
				return nil, err
			}
			continue
		}
		out = append(out, stmts...)
	}
	return out, nil
}

// block lowers the body of a compound statement or function. A braced
// block is spliced into its parent.
func (g *generalizer) block(n *sitter.Node) ([]gast.Stmt, error) {
	if n == nil {
		return nil, nil
	}
	if n.Type() == "compound_statement" {
		return g.body(n)
	}
	stmts, err := g.stmt(n)
	if err != nil {
		return nil, g.downgrade(err)
	}
	return stmts, nil
}

func (g *generalizer) stmt(n *sitter.Node) ([]gast.Stmt, error) {
	one := func(s gast.Stmt, err error) ([]gast.Stmt, error) {
		if err != nil {
			return nil, err
		}
		return []gast.Stmt{s}, nil
	}
	switch n.Type() {
	case "comment":
		return []gast.Stmt{g.comment(n)}, nil
	case "preproc_include":
		return one(g.include(n))
	case "preproc_def", "preproc_function_def", "preproc_call":
		return []gast.Stmt{&gast.Directive{Text: strings.TrimSpace(g.text(n))}}, nil
	case "using_declaration":
		return []gast.Stmt{&gast.Directive{Text: strings.TrimSpace(g.text(n))}}, nil
	case "function_definition":
		return one(g.functionDef(n))
	case "declaration":
		return g.declaration(n)
	case "compound_statement":
		return g.body(n)
	case "expression_statement":
		return g.exprStmt(n)
	case "if_statement":
		return one(g.ifStmt(n))
	case "while_statement":
		return one(g.whileStmt(n))
	case "for_statement":
		return one(g.forStmt(n))
	case "for_range_loop":
		return one(g.forRange(n))
	case "return_statement":
		r := &gast.Return{}
		if v := firstNamed(n); v != nil {
			e, err := g.expr(v)
			if err != nil {
				return nil, err
			}
			r.Value = e
		}
		return []gast.Stmt{r}, nil
	case "break_statement":
		return []gast.Stmt{&gast.Break{}}, nil
	case "continue_statement":
		return []gast.Stmt{&gast.Continue{}}, nil
	}
	return nil, g.unsupported(n, "")
}

func (g *generalizer) comment(n *sitter.Node) *gast.Comment {
	text := g.text(n)
	if strings.HasPrefix(text, "//") {
		text = strings.TrimPrefix(text[2:], " ")
		return &gast.Comment{Text: strings.TrimRight(text, " \t\r")}
	}
	text = strings.TrimSuffix(strings.TrimPrefix(text, "/*"), "*/")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		l = strings.TrimSpace(l)
		if i > 0 {
			l = strings.TrimSpace(strings.TrimPrefix(l, "*"))
		}
		lines[i] = l
	}
	for len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for len(lines) > 1 && lines[0] == "" {
		lines = lines[1:]
	}
	return &gast.Comment{Text: strings.Join(lines, "\n")}
}

func (g *generalizer) include(n *sitter.Node) (gast.Stmt, error) {
	path := n.ChildByFieldName("path")
	if path == nil {
		return nil, g.structure(n, "include without path")
	}
	header := strings.TrimSpace(g.text(path))
	d := &gast.Directive{Text: "#include " + header}
	d.Set(MetaInclude, header)
	return d, nil
}

func (g *generalizer) functionDef(n *sitter.Node) (gast.Stmt, error) {
	base, err := g.declType(n)
	if err != nil {
		return nil, err
	}
	d, err := g.declarator(base, n.ChildByFieldName("declarator"))
	if err != nil {
		return nil, err
	}
	if d.params == nil {
		return nil, g.structure(n, "function definition without parameter list")
	}
	args, err := g.params(d.params)
	if err != nil {
		return nil, err
	}
	outer := g.vars
	g.vars = maps.Clone(outer)
	defer func() { g.vars = outer }()
	for _, a := range args {
		g.vars[a.Name] = a.Annotation
	}
	body, err := g.block(n.ChildByFieldName("body"))
	if err != nil {
		return nil, err
	}
	return &gast.FunctionDef{Name: d.name, Args: args, Body: body, Returns: d.ann}, nil
}

func (g *generalizer) params(list *sitter.Node) ([]*gast.Arg, error) {
	var args []*gast.Arg
	children := namedChildren(list)
	for _, p := range children {
		switch p.Type() {
		case "parameter_declaration", "optional_parameter_declaration":
		case "variadic_parameter", "variadic_parameter_declaration":
			return nil, g.unsupported(p, "variadic parameter")
		default:
			return nil, g.unsupported(p, "")
		}
		base, err := g.declType(p)
		if err != nil {
			return nil, err
		}
		decl := p.ChildByFieldName("declarator")
		if decl == nil {
			if len(children) == 1 && isNone(base) {
				return nil, nil // f(void)
			}
			return nil, g.unsupported(p, "unnamed parameter")
		}
		d, err := g.declarator(base, decl)
		if err != nil {
			return nil, err
		}
		if d.name == "" {
			return nil, g.unsupported(p, "unnamed parameter")
		}
		if d.params != nil {
			return nil, g.unsupported(p, "function parameter")
		}
		arg := &gast.Arg{Name: d.name, Annotation: d.ann}
		if def := p.ChildByFieldName("default_value"); def != nil {
			if arg.Default, err = g.expr(def); err != nil {
				return nil, err
			}
		}
		d.tag(arg)
		args = append(args, arg)
	}
	return args, nil
}

func isNone(e gast.Expr) bool {
	c, ok := e.(*gast.Constant)
	return ok && c.Value == nil
}

// declaration lowers each declarator of a declaration to its own statement.
func (g *generalizer) declaration(n *sitter.Node) ([]gast.Stmt, error) {
	base, err := g.declType(n)
	if err != nil {
		return nil, err
	}
	var out []gast.Stmt
	for _, c := range declarators(n) {
		var valueNode *sitter.Node
		decl := c
		if c.Type() == "init_declarator" {
			decl = c.ChildByFieldName("declarator")
			valueNode = c.ChildByFieldName("value")
		}
		d, err := g.declarator(base, decl)
		if err != nil {
			return nil, err
		}
		if d.params != nil {
			s, err := g.prototype(d)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
			continue
		}
		var value gast.Expr
		if valueNode != nil {
			if value, err = g.expr(valueNode); err != nil {
				return nil, err
			}
		}
		g.vars[d.name] = d.ann
		if d.ann == nil && g.integral(valueNode) {
			g.vars[d.name] = gast.Scalar(gast.TypeInt)
		}
		target := gast.NewName(d.name)
		if d.ann == nil {
			// auto
			if value == nil {
				return nil, g.structure(n, "auto declaration without initializer")
			}
			out = append(out, &gast.Assign{Targets: []gast.Expr{target}, Value: value})
			continue
		}
		s := &gast.AnnAssign{Target: target, Annotation: d.ann, Value: value}
		d.tag(s)
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, g.unsupported(n, "declaration without declarator")
	}
	return out, nil
}

func (g *generalizer) prototype(d declared) (gast.Stmt, error) {
	args, err := g.params(d.params)
	if err != nil {
		return nil, err
	}
	fn := &gast.FunctionDef{Name: d.name, Args: args, Returns: d.ann}
	fn.Set(MetaPrototype, true)
	return fn, nil
}

var declaratorKinds = map[string]bool{
	"identifier": true, "init_declarator": true, "pointer_declarator": true,
	"array_declarator": true, "function_declarator": true,
	"reference_declarator": true, "parenthesized_declarator": true,
}

// declarators returns the declarators of a declaration in order.
func declarators(n *sitter.Node) []*sitter.Node {
	typ := n.ChildByFieldName("type")
	var out []*sitter.Node
	for _, c := range namedChildren(n) {
		if typ != nil && c.StartByte() == typ.StartByte() && c.EndByte() == typ.EndByte() {
			continue
		}
		if declaratorKinds[c.Type()] {
			out = append(out, c)
		}
	}
	return out
}

func (g *generalizer) exprStmt(n *sitter.Node) ([]gast.Stmt, error) {
	e := firstNamed(n)
	if e == nil {
		return nil, nil // ;
	}
	var s gast.Stmt
	var err error
	switch e.Type() {
	case "assignment_expression":
		s, err = g.assign(e)
	case "update_expression":
		s, err = g.update(e)
	case "comma_expression":
		return nil, g.unsupported(e, "comma expression")
	case "binary_expression":
		if g.cpp && g.isStream(e) {
			s, err = g.coutStmt(e)
			break
		}
		fallthrough
	default:
		var v gast.Expr
		v, err = g.expr(e)
		s = &gast.ExprStmt{Value: v}
	}
	if err != nil {
		return nil, err
	}
	return []gast.Stmt{s}, nil
}

var augOps = map[string]gast.Operator{
	"+=": gast.Add, "-=": gast.Sub, "*=": gast.Mult, "/=": gast.Div, "%=": gast.Mod,
	"<<=": gast.LShift, ">>=": gast.RShift, "&=": gast.BitAnd, "|=": gast.BitOr, "^=": gast.BitXor,
}

func (g *generalizer) assign(n *sitter.Node) (gast.Stmt, error) {
	op := g.text(n.ChildByFieldName("operator"))
	if op != "=" {
		aug, ok := augOps[op]
		if !ok {
			return nil, g.unsupported(n, "assignment operator "+op)
		}
		target, err := g.expr(n.ChildByFieldName("left"))
		if err != nil {
			return nil, err
		}
		value, err := g.expr(n.ChildByFieldName("right"))
		if err != nil {
			return nil, err
		}
		s := &gast.AugAssign{Target: target, Op: aug, Value: value}
		switch {
		case aug == gast.Mod:
			s.Set(gast.MetaTruncate, true)
		case aug == gast.Div && g.integral(n.ChildByFieldName("left")) && g.integral(n.ChildByFieldName("right")):
			s.Op = gast.FloorDiv
			s.Set(gast.MetaTruncate, true)
		}
		return s, nil
	}
	// a = b = v assigns right to left.
	var targets []gast.Expr
	for {
		target, err := g.expr(n.ChildByFieldName("left"))
		if err != nil {
			return nil, err
		}
		targets = append(targets, target)
		right := n.ChildByFieldName("right")
		if right.Type() == "assignment_expression" && g.text(right.ChildByFieldName("operator")) == "=" {
			n = right
			continue
		}
		value, err := g.expr(right)
		if err != nil {
			return nil, err
		}
		return &gast.Assign{Targets: targets, Value: value}, nil
	}
}

func (g *generalizer) update(n *sitter.Node) (gast.Stmt, error) {
	target, err := g.expr(n.ChildByFieldName("argument"))
	if err != nil {
		return nil, err
	}
	op := gast.Add
	if g.text(n.ChildByFieldName("operator")) == "--" {
		op = gast.Sub
	}
	return &gast.AugAssign{Target: target, Op: op, Value: gast.Int(1)}, nil
}

func (g *generalizer) ifStmt(n *sitter.Node) (gast.Stmt, error) {
	test, err := g.condition(n.ChildByFieldName("condition"))
	if err != nil {
		return nil, err
	}
	body, err := g.block(n.ChildByFieldName("consequence"))
	if err != nil {
		return nil, err
	}
	s := &gast.If{Test: test, Body: body}
	if alt := n.ChildByFieldName("alternative"); alt != nil {
		if alt.Type() == "else_clause" {
			alt = firstNamed(alt)
		}
		if s.Orelse, err = g.block(alt); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (g *generalizer) whileStmt(n *sitter.Node) (gast.Stmt, error) {
	test, err := g.condition(n.ChildByFieldName("condition"))
	if err != nil {
		return nil, err
	}
	body, err := g.block(n.ChildByFieldName("body"))
	if err != nil {
		return nil, err
	}
	return &gast.While{Test: test, Body: body}, nil
}

// condition lowers the parenthesized condition of if and while.
func (g *generalizer) condition(n *sitter.Node) (gast.Expr, error) {
	if n == nil {
		return nil, &lang.StructureError{Kind: "condition", Msg: "missing condition"}
	}
	switch n.Type() {
	case "parenthesized_expression":
		return g.expr(firstNamed(n))
	case "condition_clause":
		if n.ChildByFieldName("initializer") != nil {
			return nil, g.unsupported(n, "condition with initializer")
		}
		if v := n.ChildByFieldName("value"); v != nil {
			return g.condition(v)
		}
		return g.expr(firstNamed(n))
	case "declaration":
		return nil, g.unsupported(n, "declaration in condition")
	}
	return g.expr(n)
}

func (g *generalizer) forRange(n *sitter.Node) (gast.Stmt, error) {
	name := declaredName(n.ChildByFieldName("declarator"), g.src)
	if name == "" {
		return nil, g.unsupported(n, "structured binding")
	}
	iter, err := g.expr(n.ChildByFieldName("right"))
	if err != nil {
		return nil, err
	}
	body, err := g.block(n.ChildByFieldName("body"))
	if err != nil {
		return nil, err
	}
	return &gast.For{Target: gast.NewName(name), Iter: iter, Body: body}, nil
}

// downgrade hands unsupported construct errors to the reporter.
func (g *generalizer) downgrade(err error) error {
	var uc *lang.UnsupportedConstruct
	if errors.As(err, &uc) {
		return g.rep.Unsupported(uc.Kind, uc.Source, uc.Reason)
	}
	return err
}

func (g *generalizer) unsupported(n *sitter.Node, reason string) error {
	return &lang.UnsupportedConstruct{Lang: g.rep.Lang, Kind: n.Type(), Source: g.source(n), Reason: reason}
}

func (g *generalizer) structure(n *sitter.Node, msg string) error {
	return &lang.StructureError{Kind: n.Type(), Source: g.source(n), Msg: msg}
}

// source returns the first line of the text of n.
func (g *generalizer) source(n *sitter.Node) string {
	text := g.text(n)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i] + " ..."
	}
	return text
}

// namedChildren returns the named children of n that are not comments.
func namedChildren(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() != "comment" {
			out = append(out, c)
		}
	}
	return out
}

func firstNamed(n *sitter.Node) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() != "comment" {
			return c
		}
	}
	return nil
}
