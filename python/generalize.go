package python

import (
	"errors"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"go.uber.org/zap"

	"github.com/soypat/polyglot/gast"
	"github.com/soypat/polyglot/lang"
)

// Generalizer lowers a Python [Tree] into the generalized tree. Every
// supported node maps one to one onto the node of the same name.
type Generalizer struct {
	// BestEffort drops unsupported statements, logging each one, instead
	// of failing.
	BestEffort bool
	Log        *zap.Logger
}

var _ lang.Generalizer = (*Generalizer)(nil)

type generalizer struct {
	rep lang.Reporter
	src []byte
}

// Generalize implements [lang.Generalizer].
func (pg *Generalizer) Generalize(tree lang.Tree) (*gast.Module, error) {
	t, ok := tree.(*Tree)
	if !ok || t == nil {
		got := "nil"
		if tree != nil {
			got = tree.Language().Name()
		}
		return nil, &lang.ContractError{Op: "generalize", Msg: "python generalizer got a " + got + " tree"}
	}
	g := &generalizer{rep: lang.Reporter{Lang: lang.Python.Name(), BestEffort: pg.BestEffort, Log: pg.Log}}
	mod := &gast.Module{}
	for _, p := range t.parts {
		if p.tree == nil {
			return nil, &lang.ContractError{Op: "generalize", Msg: "python tree already closed"}
		}
		g.src = p.src
		body, err := g.body(p.tree.RootNode())
		if err != nil {
			return nil, err
		}
		mod.Body = append(mod.Body, body...)
	}
	return mod, nil
}

func (g *generalizer) text(n *sitter.Node) string { return n.Content(g.src) }

// body lowers the statements that are direct children of n, which is a
// module or a block. Unsupported statements are dropped here in
// best-effort mode.
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

// suite lowers the body of a compound statement. Comments tree-sitter
// attaches to the compound statement itself, between its header and its
// block, lead the body.
func (g *generalizer) suite(owner, block *sitter.Node) ([]gast.Stmt, error) {
	if block == nil {
		return nil, g.structure(owner, "missing body")
	}
	var lead []gast.Stmt
	for i := 0; i < int(owner.NamedChildCount()); i++ {
		c := owner.NamedChild(i)
		if c.Type() == "comment" && c.StartByte() < block.StartByte() {
			lead = append(lead, g.comment(c))
		}
	}
	body, err := g.body(block)
	if err != nil {
		return nil, err
	}
	return append(lead, body...), nil
}

func (g *generalizer) comment(n *sitter.Node) *gast.Comment {
	text := strings.TrimPrefix(g.text(n), "#")
	text = strings.TrimPrefix(text, " ")
	return &gast.Comment{Text: strings.TrimRight(text, " \t\r")}
}

func (g *generalizer) stmt(n *sitter.Node) ([]gast.Stmt, error) {
	var s gast.Stmt
	var err error
	switch n.Type() {
	case "comment":
		return []gast.Stmt{g.comment(n)}, nil
	case "expression_statement":
		s, err = g.exprStmt(n)
	case "function_definition":
		s, err = g.functionDef(n, nil)
	case "class_definition":
		s, err = g.classDef(n, nil)
	case "decorated_definition":
		s, err = g.decorated(n)
	case "if_statement":
		s, err = g.ifStmt(n)
	case "for_statement":
		s, err = g.forStmt(n)
	case "while_statement":
		s, err = g.whileStmt(n)
	case "return_statement":
		r := &gast.Return{}
		if v := firstNamed(n); v != nil {
			r.Value, err = g.expr(v)
		}
		s = r
	case "pass_statement":
		s = &gast.Pass{}
	case "break_statement":
		s = &gast.Break{}
	case "continue_statement":
		s = &gast.Continue{}
	case "delete_statement":
		s, err = g.deleteStmt(n)
	case "import_statement":
		s, err = g.importStmt(n)
	case "import_from_statement", "future_import_statement":
		s, err = g.importFrom(n)
	default:
		return nil, g.unsupported(n, "")
	}
	if err != nil {
		return nil, err
	}
	return []gast.Stmt{s}, nil
}

func (g *generalizer) exprStmt(n *sitter.Node) (gast.Stmt, error) {
	children := namedChildren(n)
	if len(children) == 1 {
		switch c := children[0]; c.Type() {
		case "assignment":
			return g.assignment(c)
		case "augmented_assignment":
			return g.augAssign(c)
		}
	}
	v, err := g.exprList(children)
	if err != nil {
		return nil, err
	}
	return &gast.ExprStmt{Value: v}, nil
}

// assignment lowers `a = b = value` and annotated `a: T [= value]`.
// Chained targets nest to the right in the concrete tree.
func (g *generalizer) assignment(n *sitter.Node) (gast.Stmt, error) {
	left := n.ChildByFieldName("left")
	target, err := g.expr(left)
	if err != nil {
		return nil, err
	}
	if typ := n.ChildByFieldName("type"); typ != nil {
		ann, err := g.expr(typ)
		if err != nil {
			return nil, err
		}
		decl := &gast.AnnAssign{Target: target, Annotation: ann}
		if right := n.ChildByFieldName("right"); right != nil {
			if right.Type() == "assignment" {
				return nil, g.structure(n, "annotated assignment with several targets")
			}
			decl.Value, err = g.expr(right)
			if err != nil {
				return nil, err
			}
		}
		return decl, nil
	}
	assign := &gast.Assign{Targets: []gast.Expr{target}}
	right := n.ChildByFieldName("right")
	for right != nil && right.Type() == "assignment" {
		if right.ChildByFieldName("type") != nil {
			return nil, g.structure(n, "annotation in chained assignment")
		}
		t, err := g.expr(right.ChildByFieldName("left"))
		if err != nil {
			return nil, err
		}
		assign.Targets = append(assign.Targets, t)
		right = right.ChildByFieldName("right")
	}
	if right == nil {
		return nil, g.structure(n, "assignment without value")
	}
	assign.Value, err = g.expr(right)
	if err != nil {
		return nil, err
	}
	return assign, nil
}

func (g *generalizer) augAssign(n *sitter.Node) (gast.Stmt, error) {
	opText := strings.TrimSuffix(n.ChildByFieldName("operator").Type(), "=")
	pair, ok := binaryOps[opText]
	if !ok || pair.Kind != gast.KindBinOp {
		return nil, g.unsupported(n, "augmented operator "+opText+"=")
	}
	target, err := g.expr(n.ChildByFieldName("left"))
	if err != nil {
		return nil, err
	}
	value, err := g.expr(n.ChildByFieldName("right"))
	if err != nil {
		return nil, err
	}
	return &gast.AugAssign{Target: target, Op: pair.Op, Value: value}, nil
}

func (g *generalizer) decorated(n *sitter.Node) (gast.Stmt, error) {
	var decorators []gast.Expr
	for _, c := range namedChildren(n) {
		if c.Type() != "decorator" {
			continue
		}
		d, err := g.expr(firstNamed(c))
		if err != nil {
			return nil, err
		}
		decorators = append(decorators, d)
	}
	def := n.ChildByFieldName("definition")
	if def == nil {
		return nil, g.structure(n, "decorator without definition")
	}
	switch def.Type() {
	case "function_definition":
		return g.functionDef(def, decorators)
	case "class_definition":
		return g.classDef(def, decorators)
	}
	return nil, g.unsupported(def, "")
}

func (g *generalizer) functionDef(n *sitter.Node, decorators []gast.Expr) (gast.Stmt, error) {
	if c := n.Child(0); c != nil && c.Type() == "async" {
		return nil, g.unsupported(n, "async function")
	}
	fn := &gast.FunctionDef{Name: g.text(n.ChildByFieldName("name")), Decorators: decorators}
	for _, p := range namedChildren(n.ChildByFieldName("parameters")) {
		arg, err := g.param(p)
		if err != nil {
			return nil, err
		}
		fn.Args = append(fn.Args, arg)
	}
	if ret := n.ChildByFieldName("return_type"); ret != nil {
		var err error
		fn.Returns, err = g.expr(ret)
		if err != nil {
			return nil, err
		}
	}
	body, err := g.suite(n, n.ChildByFieldName("body"))
	if err != nil {
		return nil, err
	}
	fn.Body = body
	return fn, nil
}

// param lowers one formal parameter. Variadic parameters have no
// generalized form.
func (g *generalizer) param(n *sitter.Node) (*gast.Arg, error) {
	arg := &gast.Arg{}
	var err error
	switch n.Type() {
	case "identifier":
		arg.Name = g.text(n)
		return arg, nil
	case "typed_parameter":
		name := firstNamed(n)
		if name == nil || name.Type() != "identifier" {
			return nil, g.unsupported(n, "variadic parameter")
		}
		arg.Name = g.text(name)
	case "default_parameter", "typed_default_parameter":
		arg.Name = g.text(n.ChildByFieldName("name"))
		arg.Default, err = g.expr(n.ChildByFieldName("value"))
		if err != nil {
			return nil, err
		}
	default:
		return nil, g.unsupported(n, "parameter kind")
	}
	if typ := n.ChildByFieldName("type"); typ != nil {
		arg.Annotation, err = g.expr(typ)
		if err != nil {
			return nil, err
		}
	}
	return arg, nil
}

func (g *generalizer) classDef(n *sitter.Node, decorators []gast.Expr) (gast.Stmt, error) {
	if len(decorators) > 0 {
		return nil, g.unsupported(n, "class decorators")
	}
	cls := &gast.ClassDef{Name: g.text(n.ChildByFieldName("name"))}
	if sup := n.ChildByFieldName("superclasses"); sup != nil {
		for _, b := range namedChildren(sup) {
			if b.Type() == "keyword_argument" {
				return nil, g.unsupported(n, "class keywords")
			}
			base, err := g.expr(b)
			if err != nil {
				return nil, err
			}
			cls.Bases = append(cls.Bases, base)
		}
	}
	body, err := g.suite(n, n.ChildByFieldName("body"))
	if err != nil {
		return nil, err
	}
	cls.Body = body
	return cls, nil
}

// ifStmt lowers if/elif/else. Each elif nests as the sole statement of
// the else branch of the one before.
func (g *generalizer) ifStmt(n *sitter.Node) (gast.Stmt, error) {
	root, err := g.clause(n, n.ChildByFieldName("condition"), n.ChildByFieldName("consequence"))
	if err != nil {
		return nil, err
	}
	last := root
	for _, c := range namedChildren(n) {
		switch c.Type() {
		case "elif_clause":
			elif, err := g.clause(c, c.ChildByFieldName("condition"), c.ChildByFieldName("consequence"))
			if err != nil {
				return nil, err
			}
			last.Orelse = []gast.Stmt{elif}
			last = elif
		case "else_clause":
			last.Orelse, err = g.suite(c, c.ChildByFieldName("body"))
			if err != nil {
				return nil, err
			}
		}
	}
	return root, nil
}

func (g *generalizer) clause(owner, cond, body *sitter.Node) (*gast.If, error) {
	test, err := g.expr(cond)
	if err != nil {
		return nil, err
	}
	stmts, err := g.suite(owner, body)
	if err != nil {
		return nil, err
	}
	return &gast.If{Test: test, Body: stmts}, nil
}

func (g *generalizer) orelse(n *sitter.Node) ([]gast.Stmt, error) {
	alt := n.ChildByFieldName("alternative")
	if alt == nil {
		return nil, nil
	}
	return g.suite(alt, alt.ChildByFieldName("body"))
}

func (g *generalizer) forStmt(n *sitter.Node) (gast.Stmt, error) {
	if c := n.Child(0); c != nil && c.Type() == "async" {
		return nil, g.unsupported(n, "async for")
	}
	target, err := g.expr(n.ChildByFieldName("left"))
	if err != nil {
		return nil, err
	}
	iter, err := g.expr(n.ChildByFieldName("right"))
	if err != nil {
		return nil, err
	}
	body, err := g.suite(n, n.ChildByFieldName("body"))
	if err != nil {
		return nil, err
	}
	orelse, err := g.orelse(n)
	if err != nil {
		return nil, err
	}
	return &gast.For{Target: target, Iter: iter, Body: body, Orelse: orelse}, nil
}

func (g *generalizer) whileStmt(n *sitter.Node) (gast.Stmt, error) {
	test, err := g.expr(n.ChildByFieldName("condition"))
	if err != nil {
		return nil, err
	}
	body, err := g.suite(n, n.ChildByFieldName("body"))
	if err != nil {
		return nil, err
	}
	orelse, err := g.orelse(n)
	if err != nil {
		return nil, err
	}
	return &gast.While{Test: test, Body: body, Orelse: orelse}, nil
}

func (g *generalizer) deleteStmt(n *sitter.Node) (gast.Stmt, error) {
	del := &gast.Delete{}
	target := firstNamed(n)
	if target == nil {
		return nil, g.structure(n, "delete without targets")
	}
	list := []*sitter.Node{target}
	if target.Type() == "expression_list" {
		list = namedChildren(target)
	}
	for _, t := range list {
		e, err := g.expr(t)
		if err != nil {
			return nil, err
		}
		del.Targets = append(del.Targets, e)
	}
	return del, nil
}

func (g *generalizer) importStmt(n *sitter.Node) (gast.Stmt, error) {
	imp := &gast.Import{}
	for _, c := range namedChildren(n) {
		alias, err := g.alias(c)
		if err != nil {
			return nil, err
		}
		imp.Names = append(imp.Names, alias)
	}
	return imp, nil
}

func (g *generalizer) importFrom(n *sitter.Node) (gast.Stmt, error) {
	imp := &gast.ImportFrom{Module: "__future__"}
	module := n.ChildByFieldName("module_name")
	if n.Type() == "import_from_statement" {
		if module == nil || module.Type() == "relative_import" {
			return nil, g.unsupported(n, "relative import")
		}
		imp.Module = g.text(module)
	}
	for _, c := range namedChildren(n) {
		if module != nil && c.StartByte() == module.StartByte() {
			continue
		}
		if c.Type() == "wildcard_import" {
			imp.Names = append(imp.Names, gast.Alias{Name: "*"})
			continue
		}
		alias, err := g.alias(c)
		if err != nil {
			return nil, err
		}
		imp.Names = append(imp.Names, alias)
	}
	return imp, nil
}

func (g *generalizer) alias(n *sitter.Node) (gast.Alias, error) {
	switch n.Type() {
	case "dotted_name":
		return gast.Alias{Name: g.text(n)}, nil
	case "aliased_import":
		return gast.Alias{Name: g.text(n.ChildByFieldName("name")), AsName: g.text(n.ChildByFieldName("alias"))}, nil
	}
	return gast.Alias{}, g.structure(n, "unexpected import name")
}

func (g *generalizer) unsupported(n *sitter.Node, reason string) error {
	return &lang.UnsupportedConstruct{Lang: g.rep.Lang, Kind: n.Type(), Source: g.source(n), Reason: reason}
}

// downgrade hands unsupported construct errors to the reporter, which
// returns nil for them in best-effort mode.
func (g *generalizer) downgrade(err error) error {
	var uc *lang.UnsupportedConstruct
	if errors.As(err, &uc) {
		return g.rep.Unsupported(uc.Kind, uc.Source, uc.Reason)
	}
	return err
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

// namedChildren returns the named children of n without comments.
func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() != "comment" {
			out = append(out, c)
		}
	}
	return out
}

func firstNamed(n *sitter.Node) *sitter.Node {
	if list := namedChildren(n); len(list) > 0 {
		return list[0]
	}
	return nil
}
