package python

import (
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/soypat/polyglot/gast"
	"github.com/soypat/polyglot/lang"
)

const indentUnit = "    "

// Unparser renders a generalized tree as Python 3 source.
//
// Metadata is consulted only for divisions and remainders that round
// toward zero, which Python spells int(a / b) and np.fmod(a, b). Type
// annotations are emitted as written, and a module whose annotations use
// subscripted types gets `from __future__ import annotations` so they are
// never evaluated.
type Unparser struct {
	// Headers renders function signatures with an ellipsis body.
	Headers    bool
	BestEffort bool
	Log        *zap.Logger
}

var _ lang.Unparser = (*Unparser)(nil)

type unparser struct {
	rep     lang.Reporter
	headers bool
	sb      strings.Builder
	depth   int
	inFunc  int
	code    int // Lines written that are not comments.
}

// Unparse implements [lang.Unparser].
func (pu *Unparser) Unparse(mod *gast.Module) (string, error) {
	if mod == nil {
		return "", &lang.ContractError{Op: "unparse", Msg: "nil module"}
	}
	u := &unparser{
		rep:     lang.Reporter{Lang: lang.Python.Name(), BestEffort: pu.BestEffort, Log: pu.Log},
		headers: pu.Headers,
	}
	if needsFutureAnnotations(mod) {
		u.line("from __future__ import annotations")
	}
	if needsNumpy(mod) {
		u.line("import " + gast.NumpyModule + " as " + gast.NumpyAlias)
	}
	if err := u.block(mod.Body); err != nil {
		return "", err
	}
	return u.sb.String(), nil
}

// needsFutureAnnotations reports whether mod annotates with subscripted
// types and does not already import annotations from __future__.
func needsFutureAnnotations(mod *gast.Module) bool {
	for _, s := range mod.Body {
		if imp, ok := s.(*gast.ImportFrom); ok && imp.Module == "__future__" {
			for _, a := range imp.Names {
				if a.Name == "annotations" {
					return false
				}
			}
		}
	}
	found := false
	subscripted := func(ann gast.Expr) {
		if _, ok := ann.(*gast.Subscript); ok {
			found = true
		}
	}
	gast.Inspect(mod, func(n gast.Node) bool {
		switch n := n.(type) {
		case *gast.AnnAssign:
			subscripted(n.Annotation)
		case *gast.Arg:
			subscripted(n.Annotation)
		case *gast.FunctionDef:
			subscripted(n.Returns)
		}
		return !found
	})
	return found
}

// needsNumpy reports whether mod holds a truncating remainder, rendered
// with np.fmod, and does not import numpy itself.
func needsNumpy(mod *gast.Module) bool {
	for _, s := range mod.Body {
		if imp, ok := s.(*gast.Import); ok {
			for _, a := range imp.Names {
				if a.Name == gast.NumpyModule && a.AsName == gast.NumpyAlias {
					return false
				}
			}
		}
	}
	found := false
	gast.Inspect(mod, func(n gast.Node) bool {
		switch n := n.(type) {
		case *gast.BinOp:
			found = found || n.Op == gast.Mod && gast.Truncating(n)
		case *gast.AugAssign:
			found = found || n.Op == gast.Mod && gast.Truncating(n)
		}
		return !found
	})
	return found
}

func (u *unparser) line(text string) {
	u.code++
	u.write(text)
}

func (u *unparser) write(text string) {
	for range u.depth {
		u.sb.WriteString(indentUnit)
	}
	u.sb.WriteString(text)
	u.sb.WriteByte('\n')
}

// block renders the statements of a body at the current depth.
func (u *unparser) block(body []gast.Stmt) error {
	for _, s := range body {
		if err := u.downgrade(u.stmt(s)); err != nil {
			return err
		}
	}
	return nil
}

// suite renders an indented body that must not be empty.
func (u *unparser) suite(body []gast.Stmt) error {
	u.depth++
	defer func() { u.depth-- }()
	if len(body) == 0 {
		u.line("pass")
		return nil
	}
	n := u.code
	if err := u.block(body); err != nil {
		return err
	}
	if u.code == n {
		u.line("pass")
	}
	return nil
}

func (u *unparser) stmt(s gast.Stmt) error {
	switch s := s.(type) {
	case *gast.FunctionDef:
		return u.functionDef(s)
	case *gast.ClassDef:
		return u.classDef(s)
	case *gast.Assign:
		if len(s.Targets) == 0 {
			return u.unsupported(s, "assignment without target")
		}
		parts := make([]string, 0, len(s.Targets)+1)
		for _, t := range s.Targets {
			target, err := u.expr(t)
			if err != nil {
				return err
			}
			parts = append(parts, target)
		}
		value, err := u.expr(s.Value)
		if err != nil {
			return err
		}
		u.line(strings.Join(append(parts, value), " = "))
	case *gast.AnnAssign:
		target, err := u.expr(s.Target)
		if err != nil {
			return err
		}
		ann, err := u.expr(s.Annotation)
		if err != nil {
			return err
		}
		text := target + ": " + ann
		if s.Value != nil {
			value, err := u.expr(s.Value)
			if err != nil {
				return err
			}
			text += " = " + value
		}
		u.line(text)
	case *gast.AugAssign:
		if s.Op.Class() != gast.KindBinOp {
			return u.unsupported(s, "operator "+s.Op.String())
		}
		target, err := u.expr(s.Target)
		if err != nil {
			return err
		}
		if gast.Truncating(s) && (s.Op == gast.FloorDiv || s.Op == gast.Mod) {
			value, err := u.truncated(s.Target, s.Op, s.Value)
			if err != nil {
				return err
			}
			u.line(target + " = " + value)
			return nil
		}
		value, err := u.expr(s.Value)
		if err != nil {
			return err
		}
		u.line(target + " " + s.Op.Symbol() + "= " + value)
	case *gast.If:
		return u.ifStmt(s, "if ")
	case *gast.For:
		target, err := u.expr(s.Target)
		if err != nil {
			return err
		}
		iter, err := u.expr(s.Iter)
		if err != nil {
			return err
		}
		u.line("for " + target + " in " + iter + ":")
		if err := u.suite(s.Body); err != nil {
			return err
		}
		return u.orelse(s.Orelse)
	case *gast.While:
		test, err := u.expr(s.Test)
		if err != nil {
			return err
		}
		u.line("while " + test + ":")
		if err := u.suite(s.Body); err != nil {
			return err
		}
		return u.orelse(s.Orelse)
	case *gast.Return:
		if u.inFunc == 0 {
			return u.unsupported(s, "return outside function")
		}
		if s.Value == nil {
			u.line("return")
			return nil
		}
		v, err := u.expr(s.Value)
		if err != nil {
			return err
		}
		u.line("return " + v)
	case *gast.Break:
		u.line("break")
	case *gast.Continue:
		u.line("continue")
	case *gast.Pass:
		u.line("pass")
	case *gast.Delete:
		if len(s.Targets) == 0 {
			return u.unsupported(s, "delete without targets")
		}
		list, err := u.exprList(s.Targets)
		if err != nil {
			return err
		}
		u.line("del " + list)
	case *gast.ExprStmt:
		v, err := u.expr(s.Value)
		if err != nil {
			return err
		}
		u.line(v)
	case *gast.Import:
		if len(s.Names) == 0 {
			return u.unsupported(s, "import without names")
		}
		u.line("import " + aliases(s.Names))
	case *gast.ImportFrom:
		if len(s.Names) == 0 {
			return u.unsupported(s, "import without names")
		}
		if u.inFunc > 0 && len(s.Names) == 1 && s.Names[0].Name == "*" {
			return u.unsupported(s, "wildcard import inside a function")
		}
		u.line("from " + s.Module + " import " + aliases(s.Names))
	case *gast.Comment:
		u.comment(s.Text)
	case *gast.Directive:
		u.comment(s.Text)
	default:
		return u.unsupported(s, "")
	}
	return nil
}

// comment writes each line of text as a comment.
func (u *unparser) comment(text string) {
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimRight(l, " \t\r")
		if l == "" {
			u.write("#")
		} else {
			u.write("# " + l)
		}
	}
}

func aliases(names []gast.Alias) string {
	parts := make([]string, len(names))
	for i, a := range names {
		parts[i] = a.Name
		if a.AsName != "" && a.AsName != a.Name {
			parts[i] += " as " + a.AsName
		}
	}
	return strings.Join(parts, ", ")
}

func (u *unparser) decorators(list []gast.Expr) error {
	for _, d := range list {
		s, err := u.expr(d)
		if err != nil {
			return err
		}
		u.line("@" + s)
	}
	return nil
}

func (u *unparser) functionDef(fn *gast.FunctionDef) error {
	if err := u.decorators(fn.Decorators); err != nil {
		return err
	}
	args := make([]string, len(fn.Args))
	for i, a := range fn.Args {
		s, err := u.arg(a)
		if err != nil {
			return err
		}
		args[i] = s
	}
	head := "def " + fn.Name + "(" + strings.Join(args, ", ") + ")"
	if fn.Returns != nil {
		ret, err := u.expr(fn.Returns)
		if err != nil {
			return err
		}
		head += " -> " + ret
	}
	u.line(head + ":")
	if u.headers {
		u.depth++
		u.line("...")
		u.depth--
		return nil
	}
	u.inFunc++
	defer func() { u.inFunc-- }()
	return u.suite(fn.Body)
}

func (u *unparser) arg(a *gast.Arg) (string, error) {
	s := a.Name
	if a.Annotation != nil {
		ann, err := u.expr(a.Annotation)
		if err != nil {
			return "", err
		}
		s += ": " + ann
	}
	if a.Default != nil {
		def, err := u.expr(a.Default)
		if err != nil {
			return "", err
		}
		if a.Annotation != nil {
			s += " = " + def
		} else {
			s += "=" + def
		}
	}
	return s, nil
}

func (u *unparser) classDef(cls *gast.ClassDef) error {
	head := "class " + cls.Name
	if len(cls.Bases) > 0 {
		bases, err := u.exprList(cls.Bases)
		if err != nil {
			return err
		}
		head += "(" + bases + ")"
	}
	u.line(head + ":")
	// Methods are functions again.
	saved := u.inFunc
	u.inFunc = 0
	defer func() { u.inFunc = saved }()
	return u.suite(cls.Body)
}

// ifStmt renders an if statement. An else branch holding only another if
// statement renders as elif.
func (u *unparser) ifStmt(s *gast.If, keyword string) error {
	test, err := u.expr(s.Test)
	if err != nil {
		return err
	}
	u.line(keyword + test + ":")
	if err := u.suite(s.Body); err != nil {
		return err
	}
	if len(s.Orelse) == 1 {
		if elif, ok := s.Orelse[0].(*gast.If); ok {
			return u.ifStmt(elif, "elif ")
		}
	}
	return u.orelse(s.Orelse)
}

func (u *unparser) orelse(body []gast.Stmt) error {
	if len(body) == 0 {
		return nil
	}
	u.line("else:")
	return u.suite(body)
}

// downgrade hands unsupported construct errors to the reporter. In
// best-effort mode a placeholder comment takes the statement's place.
func (u *unparser) downgrade(err error) error {
	var uc *lang.UnsupportedConstruct
	if !errors.As(err, &uc) {
		return err
	}
	if err := u.rep.Unsupported(uc.Kind, uc.Source, uc.Reason); err != nil {
		return err
	}
	u.comment(lang.Placeholder(uc.Kind))
	return nil
}

func (u *unparser) unsupported(node gast.Node, reason string) error {
	return &lang.UnsupportedConstruct{Lang: u.rep.Lang, Kind: node.Kind().String(), Source: gast.Dump(node), Reason: reason}
}
