package cfamily

import (
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/soypat/polyglot/gast"
	"github.com/soypat/polyglot/lang"
)

// Unparser renders a generalized tree as C++17 source.
//
// Module level statements that are not declarations are collected into
// main. Variables assigned without a prior declaration are declared auto
// at their first assignment. Headers are included as rendered constructs
// require them.
type Unparser struct {
	// Headers renders function prototypes only.
	Headers    bool
	BestEffort bool
	Log        *zap.Logger
}

var _ lang.Unparser = (*Unparser)(nil)

type unparser struct {
	rep      lang.Reporter
	headers  bool
	includes []string
	helpers  []string // Names of the flooringHelpers in use.
	sb       strings.Builder
	depth    int
	// scopes maps declared names to their annotation, innermost last.
	// A nil annotation is an auto variable.
	scopes []map[string]gast.Expr
}

// Unparse implements [lang.Unparser].
func (cu *Unparser) Unparse(mod *gast.Module) (string, error) {
	if mod == nil {
		return "", &lang.ContractError{Op: "unparse", Msg: "nil module"}
	}
	u := &unparser{
		rep:     lang.Reporter{Lang: lang.CPP.Name(), BestEffort: cu.BestEffort, Log: cu.Log},
		headers: cu.Headers,
	}
	u.push()
	var mainBody []gast.Stmt
	hasMain := false
	for _, s := range mod.Body {
		switch s := s.(type) {
		case *gast.FunctionDef:
			hasMain = hasMain || s.Name == "main"
		case *gast.If:
			if isMainGuard(s) {
				mainBody = append(mainBody, s.Body...)
				continue
			}
			mainBody = append(mainBody, s)
			continue
		}
		if isExecutable(s) {
			mainBody = append(mainBody, s)
			continue
		}
		if err := u.downgrade(u.topLevel(s)); err != nil {
			return "", err
		}
	}
	if len(mainBody) > 0 && !u.headers {
		if hasMain {
			return "", u.unsupported(mainBody[0], "module level statements alongside a main function")
		}
		if err := u.mainFunc(mainBody); err != nil {
			return "", err
		}
	}
	var out strings.Builder
	for _, inc := range u.includes {
		out.WriteString("#include " + inc + "\n")
	}
	if len(u.includes) > 0 && u.sb.Len() > 0 {
		out.WriteByte('\n')
	}
	if !u.headers {
		for _, h := range u.helpers {
			out.WriteString(flooringHelpers[h])
			out.WriteByte('\n')
		}
	}
	out.WriteString(u.sb.String())
	return out.String(), nil
}

// isMainGuard matches `if __name__ == '__main__':`.
func isMainGuard(s *gast.If) bool {
	c, ok := s.Test.(*gast.Compare)
	if !ok || len(c.Ops) != 1 || c.Ops[0] != gast.Eq || len(s.Orelse) > 0 {
		return false
	}
	name, ok := c.Left.(*gast.Name)
	str, _ := c.Comparators[0].(*gast.Constant)
	return ok && name.ID == "__name__" && str != nil && str.Value == "__main__"
}

// isExecutable reports whether s may not appear at namespace scope.
func isExecutable(s gast.Stmt) bool {
	switch s := s.(type) {
	case *gast.FunctionDef, *gast.ClassDef, *gast.Import, *gast.ImportFrom, *gast.Comment, *gast.Directive, *gast.AnnAssign:
		return false
	case *gast.Assign:
		if len(s.Targets) != 1 {
			return true
		}
		_, ok := s.Targets[0].(*gast.Name)
		return !ok
	}
	return true
}

func (u *unparser) topLevel(s gast.Stmt) error {
	if u.headers {
		switch s := s.(type) {
		case *gast.FunctionDef:
			return u.functionDef(s)
		case *gast.Import, *gast.ImportFrom, *gast.Directive:
			return u.stmt(s)
		}
		return nil
	}
	if _, ok := s.(*gast.FunctionDef); ok && u.sb.Len() > 0 {
		u.sb.WriteByte('\n')
	}
	return u.stmt(s)
}

func (u *unparser) mainFunc(body []gast.Stmt) error {
	if u.sb.Len() > 0 {
		u.sb.WriteByte('\n')
	}
	u.line("int main() {")
	u.depth++
	u.push()
	if err := u.block(body); err != nil {
		return err
	}
	u.line("return 0;")
	u.pop()
	u.depth--
	u.line("}")
	return nil
}

func (u *unparser) include(header string) {
	for _, h := range u.includes {
		if h == header {
			return
		}
	}
	u.includes = append(u.includes, header)
}

func (u *unparser) line(text string) {
	for range u.depth {
		u.sb.WriteString(indentUnit)
	}
	u.sb.WriteString(text)
	u.sb.WriteByte('\n')
}

const indentUnit = "    "

func (u *unparser) push() { u.scopes = append(u.scopes, make(map[string]gast.Expr)) }

func (u *unparser) pop() { u.scopes = u.scopes[:len(u.scopes)-1] }

func (u *unparser) declare(name string, ann gast.Expr) { u.scopes[len(u.scopes)-1][name] = ann }

// lookup returns the annotation a name was declared with.
func (u *unparser) lookup(name string) (ann gast.Expr, declared bool) {
	for i := len(u.scopes) - 1; i >= 0; i-- {
		if ann, ok := u.scopes[i][name]; ok {
			return ann, true
		}
	}
	return nil, false
}

func (u *unparser) block(body []gast.Stmt) error {
	for _, s := range body {
		if err := u.downgrade(u.stmt(s)); err != nil {
			return err
		}
	}
	return nil
}

// braced renders body one level deeper, in a scope of its own holding
// the auto variables in declare.
func (u *unparser) braced(body []gast.Stmt, declare ...string) error {
	u.depth++
	u.push()
	for _, name := range declare {
		u.declare(name, nil)
	}
	if err := u.block(body); err != nil {
		return err
	}
	u.pop()
	u.depth--
	return nil
}

// downgrade hands unsupported construct errors to the reporter. In
// best-effort mode a placeholder comment takes the construct's place.
func (u *unparser) downgrade(err error) error {
	var uc *lang.UnsupportedConstruct
	if !errors.As(err, &uc) {
		return err
	}
	if err := u.rep.Unsupported(uc.Kind, uc.Source, uc.Reason); err != nil {
		return err
	}
	u.line("// " + lang.Placeholder(uc.Kind))
	return nil
}

func (u *unparser) unsupported(node gast.Node, reason string) error {
	return &lang.UnsupportedConstruct{Lang: u.rep.Lang, Kind: node.Kind().String(), Source: gast.Dump(node), Reason: reason}
}
