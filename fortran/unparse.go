package fortran

import (
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/soypat/polyglot/gast"
	"github.com/soypat/polyglot/lang"
)

// Unparser renders a generalized tree as Fortran source.
//
// Subscripts are shifted back to 1-based, ranges become inclusive DO
// bounds and type annotations become declarations in the specification
// part of each program unit. Metadata left by the Fortran generalizer
// recovers constructs the generalized tree has no form for: ALLOCATE,
// CALL with output arguments, intrinsic names and declaration attributes.
type Unparser struct {
	// Form selects fixed (F77 column layout) or free form output.
	// FormAuto renders free form.
	Form Form
	// Headers renders procedure signatures and argument declarations only.
	Headers    bool
	BestEffort bool
	Log        *zap.Logger
}

var _ lang.Unparser = (*Unparser)(nil)

type unparser struct {
	rep     lang.Reporter
	out     layout
	headers bool
	procs   map[string]*gast.FunctionDef
	// Procedure being rendered.
	fn     *gast.FunctionDef
	result string // Function result variable, empty for subroutines.
}

// Unparse implements [lang.Unparser].
func (fu *Unparser) Unparse(mod *gast.Module) (string, error) {
	if mod == nil {
		return "", &lang.ContractError{Op: "unparse", Msg: "nil module"}
	}
	u := &unparser{
		rep:     lang.Reporter{Lang: lang.Fortran.Name(), BestEffort: fu.BestEffort, Log: fu.Log},
		out:     layout{fixed: fu.Form == FormFixed},
		headers: fu.Headers,
		procs:   make(map[string]*gast.FunctionDef),
	}
	gast.Inspect(mod, func(n gast.Node) bool {
		if fn, ok := n.(*gast.FunctionDef); ok {
			u.procs[fn.Name] = fn
		}
		return true
	})
	if err := u.module(mod.Body); err != nil {
		return "", err
	}
	return u.out.String(), nil
}

// module renders the top level: procedures, MODULE groups and loose
// statements, which form a main program without a PROGRAM statement.
func (u *unparser) module(body []gast.Stmt) error {
	var loose []gast.Stmt
	flush := func() error {
		if len(loose) == 0 || u.headers {
			loose = nil
			return nil
		}
		err := u.unitBody(loose, true)
		loose = nil
		return err
	}
	for i := 0; i < len(body); i++ {
		s := body[i]
		if name, ok := s.Metadata().GetString(MetaModule); ok {
			if err := flush(); err != nil {
				return err
			}
			j := i
			for j < len(body) {
				if other, _ := body[j].Metadata().GetString(MetaModule); other != name {
					break
				}
				j++
			}
			if err := u.moduleUnit(name, body[i:j]); err != nil {
				return err
			}
			i = j - 1
			continue
		}
		switch s := s.(type) {
		case *gast.Import:
			if err := u.imports(s); err != nil {
				return err
			}
		case *gast.FunctionDef:
			if err := flush(); err != nil {
				return err
			}
			if err := u.procedure(s); err != nil {
				return err
			}
		case *gast.ExprStmt:
			if s.GetBool(MetaMain) {
				continue
			}
			loose = append(loose, s)
		default:
			loose = append(loose, s)
		}
	}
	return flush()
}

// imports accepts the imports generalized code needs for its builtins.
func (u *unparser) imports(imp *gast.Import) error {
	for _, alias := range imp.Names {
		switch alias.Name {
		case gast.NumpyModule, "math", "sys":
		default:
			return u.report(imp, "import of module "+alias.Name)
		}
	}
	return nil
}

func (u *unparser) moduleUnit(name string, body []gast.Stmt) error {
	u.out.stmt("MODULE " + name)
	u.out.indent()
	var spec []gast.Stmt
	var contains []*gast.FunctionDef
	for _, s := range body {
		switch s := s.(type) {
		case *gast.FunctionDef:
			contains = append(contains, s)
		case *gast.AnnAssign, *gast.Directive, *gast.Comment, *gast.ClassDef, *gast.ImportFrom:
			spec = append(spec, s)
		default:
			if err := u.report(s, "executable statement in MODULE"); err != nil {
				return err
			}
		}
	}
	if err := u.specPart(spec, nil, true); err != nil {
		return err
	}
	u.out.dedent()
	if err := u.contains(contains); err != nil {
		return err
	}
	u.endUnit("MODULE", name)
	return nil
}

func (u *unparser) contains(procs []*gast.FunctionDef) error {
	if len(procs) == 0 {
		return nil
	}
	u.out.stmt("CONTAINS")
	u.out.indent()
	defer u.out.dedent()
	for _, fn := range procs {
		if err := u.procedure(fn); err != nil {
			return err
		}
	}
	return nil
}

func (u *unparser) endUnit(keyword, name string) {
	if u.out.fixed {
		u.out.stmt("END")
		return
	}
	u.out.stmt("END " + keyword + " " + name)
}

// procedureKind decides how fn renders: a PROGRAM, a FUNCTION with its
// result variable, or a SUBROUTINE.
func procedureKind(fn *gast.FunctionDef) (keyword, result string) {
	if fn.GetBool(MetaProgram) {
		return "PROGRAM", ""
	}
	if res, ok := fn.GetString(MetaFunction); ok {
		return "FUNCTION", res
	}
	if fn.Has(MetaOutputs) {
		return "SUBROUTINE", ""
	}
	if ti, ok := gast.DecodeType(fn.Returns); ok && ti.Scalar != gast.TypeNone {
		return "FUNCTION", fn.Name
	}
	if fn.Returns == nil && returnsValue(fn.Body) {
		return "FUNCTION", fn.Name
	}
	return "SUBROUTINE", ""
}

func returnsValue(body []gast.Stmt) bool {
	found := false
	for _, s := range body {
		gast.Inspect(s, func(n gast.Node) bool {
			switch n := n.(type) {
			case *gast.FunctionDef, *gast.ClassDef:
				return false
			case *gast.Return:
				found = found || n.Value != nil
			}
			return !found
		})
	}
	return found
}

// params returns the dummy arguments of fn in order.
func params(fn *gast.FunctionDef) []string {
	if v, ok := fn.Get(MetaParams); ok {
		if list, ok := v.([]string); ok {
			return list
		}
	}
	names := make([]string, len(fn.Args))
	for i, arg := range fn.Args {
		names[i] = arg.Name
	}
	return names
}

func outputs(fn *gast.FunctionDef) []string {
	v, _ := fn.Get(MetaOutputs)
	list, _ := v.([]string)
	return list
}

func (u *unparser) procedure(fn *gast.FunctionDef) error {
	if fn.GetBool(gast.MetaPrototype) {
		// Defined elsewhere, and external procedures need no declaration.
		return nil
	}
	if len(fn.Decorators) > 0 {
		return u.report(fn, "decorated function")
	}
	for _, arg := range fn.Args {
		if arg.Default != nil {
			return u.report(fn, "default argument value")
		}
	}
	keyword, result := procedureKind(fn)
	prevFn, prevResult := u.fn, u.result
	u.fn, u.result = fn, result
	defer func() { u.fn, u.result = prevFn, prevResult }()

	header := keyword + " " + fn.Name
	if keyword != "PROGRAM" {
		header += "(" + strings.Join(params(fn), ", ") + ")"
		if result != "" && result != fn.Name {
			header += " RESULT(" + result + ")"
		}
		if prefix, ok := fn.GetString(MetaPrefix); ok {
			header = prefix + " " + header
		}
	}
	if u.headers && keyword == "PROGRAM" {
		return nil
	}
	u.out.stmt(header)
	u.out.indent()
	var body []gast.Stmt
	var contained []*gast.FunctionDef
	for _, s := range fn.Body {
		if inner, ok := s.(*gast.FunctionDef); ok {
			contained = append(contained, inner)
			continue
		}
		body = append(body, s)
	}
	if keyword != "PROGRAM" {
		body = trimFinalReturn(body, u.expectedReturn())
	}
	if err := u.unitBody(body, keyword == "PROGRAM"); err != nil {
		return err
	}
	u.out.dedent()
	if !u.headers {
		if err := u.contains(contained); err != nil {
			return err
		}
	}
	u.endUnit(keyword, fn.Name)
	return nil
}

// expectedReturn is the return value the generalizer synthesizes for the
// current procedure: the result and the output arguments.
func (u *unparser) expectedReturn() gast.Expr {
	var values []gast.Expr
	if u.result != "" {
		values = append(values, gast.NewName(u.result))
	}
	for _, out := range outputs(u.fn) {
		values = append(values, gast.NewName(out))
	}
	switch len(values) {
	case 0:
		return nil
	case 1:
		return values[0]
	}
	return &gast.Tuple{Elts: values}
}

// trimFinalReturn drops a final return of the procedure's own results,
// which END implies.
func trimFinalReturn(body []gast.Stmt, expected gast.Expr) []gast.Stmt {
	n := len(body)
	if n == 0 {
		return body
	}
	ret, ok := body[n-1].(*gast.Return)
	if !ok {
		return body
	}
	if ret.Value == nil || (expected != nil && gast.Equal(ret.Value, expected)) {
		return body[:n-1]
	}
	return body
}

// unitBody renders the specification part of a unit followed by its
// execution part. Declarations nested in blocks are hoisted.
func (u *unparser) unitBody(body []gast.Stmt, topLevel bool) error {
	var spec, exec []gast.Stmt
	executable := false
	for _, s := range body {
		switch s := s.(type) {
		case *gast.Directive, *gast.ClassDef, *gast.ImportFrom:
			spec = append(spec, s)
			continue
		case *gast.Comment:
			if !executable {
				spec = append(spec, s)
				continue
			}
		case *gast.AnnAssign:
			spec = append(spec, s)
			if _, declOnly := u.initializer(s, topLevel || u.fn == nil); declOnly {
				continue
			}
		}
		executable = true
		exec = append(exec, s)
	}
	for _, s := range exec {
		gast.Inspect(s, func(n gast.Node) bool {
			switch n := n.(type) {
			case *gast.FunctionDef, *gast.ClassDef:
				return false
			case *gast.AnnAssign:
				if n != s {
					spec = append(spec, &gast.AnnAssign{Target: n.Target, Annotation: n.Annotation, Meta: n.Meta.Copy()})
				}
			}
			return true
		})
	}
	if err := u.specPart(spec, u.fn, topLevel || u.fn == nil); err != nil {
		return err
	}
	if u.headers {
		return nil
	}
	return u.block(exec)
}

// initializer returns the value a declaration carries in the specification
// part. declOnly is true when the declaration consumes the value and no
// assignment is rendered: zeroed arrays and default records are implied
// by the declaration itself.
func (u *unparser) initializer(a *gast.AnnAssign, once bool) (init gast.Expr, declOnly bool) {
	if a.Value == nil {
		return nil, true
	}
	ti, ok := gast.DecodeType(a.Annotation)
	if !ok {
		return nil, false
	}
	if call, ok := a.Value.(*gast.Call); ok {
		name, _ := gast.CalleeName(call)
		switch {
		case (name == "np.zeros" || name == "np.empty") && ti.IsArray() && knownExtentsOf(ti):
			return nil, true
		case ti.Record && !ti.IsArray() && name == ti.Scalar && len(call.Args) == 0:
			return nil, true
		}
	}
	attrs := attributes(&a.Meta)
	if hasAttr(attrs, "PARAMETER") || hasAttr(attrs, "SAVE") || (once && isConstExpr(a.Value)) {
		return a.Value, true
	}
	return nil, false
}

func knownExtentsOf(ti gast.TypeInfo) bool {
	for _, ext := range ti.Extents {
		if ext == nil {
			return false
		}
	}
	return true
}

// isConstExpr reports whether e can initialize a declaration.
func isConstExpr(e gast.Expr) bool {
	ok := true
	gast.Inspect(e, func(n gast.Node) bool {
		switch n := n.(type) {
		case *gast.Call:
			name, _ := gast.CalleeName(n)
			ok = ok && (n.Has(MetaIntrinsic) || name == "np.array" || name == "complex")
		case *gast.Constant, *gast.Name, *gast.Attribute, *gast.BinOp, *gast.UnaryOp, *gast.List:
		default:
			ok = false
		}
		return ok
	})
	return ok
}

func attributes(meta *gast.Meta) []string {
	v, _ := meta.Get(MetaAttributes)
	list, _ := v.([]string)
	return list
}

func hasAttr(attrs []string, attr string) bool {
	for _, a := range attrs {
		if strings.EqualFold(a, attr) {
			return true
		}
	}
	return false
}

// specPart renders USE statements, IMPLICIT rules, argument declarations
// and the declarations of the body, in the order Fortran requires.
func (u *unparser) specPart(spec []gast.Stmt, fn *gast.FunctionDef, once bool) error {
	var uses, implicit, rest []gast.Stmt
	for _, s := range spec {
		switch s := s.(type) {
		case *gast.ImportFrom:
			uses = append(uses, s)
		case *gast.Directive:
			switch keyword := strings.ToUpper(strings.TrimSpace(s.Text)); {
			case strings.HasPrefix(keyword, "USE "):
				uses = append(uses, s)
			case strings.HasPrefix(keyword, "IMPLICIT"):
				implicit = append(implicit, s)
			default:
				rest = append(rest, s)
			}
		default:
			rest = append(rest, s)
		}
	}
	for _, s := range uses {
		if err := u.specStmt(s, once); err != nil {
			return err
		}
	}
	for _, s := range implicit {
		if err := u.specStmt(s, once); err != nil {
			return err
		}
	}
	declared := make(map[string]bool)
	if fn != nil {
		isParam := make(map[string]bool)
		for _, p := range params(fn) {
			isParam[p] = true
		}
		for _, arg := range fn.Args {
			declared[arg.Name] = true
			if arg.Annotation == nil {
				continue
			}
			if err := u.declare(arg, arg.Name, arg.Annotation, &arg.Meta, nil, true); err != nil {
				return err
			}
		}
		if u.result != "" && fn.Returns != nil && !declaresName(rest, u.result) {
			declared[u.result] = true
			var meta gast.Meta
			if fn.GetBool(MetaDefaultKind) {
				meta.Set(MetaDefaultKind, true)
			}
			if err := u.declare(fn, u.result, fn.Returns, &meta, nil, false); err != nil {
				return err
			}
		}
		if u.headers {
			// Only declarations of dummy arguments belong to an interface.
			var kept []gast.Stmt
			for _, s := range rest {
				if a, ok := s.(*gast.AnnAssign); ok && isParam[targetName(a)] {
					kept = append(kept, s)
				}
			}
			rest = kept
		}
	}
	for _, s := range rest {
		if a, ok := s.(*gast.AnnAssign); ok {
			name := targetName(a)
			if declared[name] {
				continue
			}
			declared[name] = true
		}
		if err := u.specStmt(s, once); err != nil {
			return err
		}
	}
	return nil
}

func declaresName(stmts []gast.Stmt, name string) bool {
	for _, s := range stmts {
		if a, ok := s.(*gast.AnnAssign); ok && targetName(a) == name {
			return true
		}
	}
	return false
}

func targetName(a *gast.AnnAssign) string {
	if n, ok := a.Target.(*gast.Name); ok {
		return n.ID
	}
	return ""
}

func (u *unparser) specStmt(s gast.Stmt, once bool) error {
	switch s := s.(type) {
	case *gast.Comment:
		u.out.comment(s.Text)
	case *gast.Directive:
		u.directive(s)
	case *gast.ImportFrom:
		return u.use(s)
	case *gast.ClassDef:
		return u.derivedType(s)
	case *gast.AnnAssign:
		name := targetName(s)
		if name == "" {
			return u.report(s, "declaration of a non name target")
		}
		init, _ := u.initializer(s, once)
		return u.declare(s, name, s.Annotation, &s.Meta, init, false)
	default:
		return u.report(s, "statement in specification part")
	}
	return nil
}

func (u *unparser) use(imp *gast.ImportFrom) error {
	if u.fn != nil && len(imp.Names) == 1 && imp.Names[0].Name == "*" {
		u.out.stmt("USE " + imp.Module)
		return nil
	}
	var only []string
	for _, alias := range imp.Names {
		switch {
		case alias.Name == "*":
			u.out.stmt("USE " + imp.Module)
			return nil
		case alias.AsName != "" && alias.AsName != alias.Name:
			only = append(only, alias.AsName+" => "+alias.Name)
		default:
			only = append(only, alias.Name)
		}
	}
	u.out.stmt("USE " + imp.Module + ", ONLY: " + strings.Join(only, ", "))
	return nil
}

func (u *unparser) derivedType(cls *gast.ClassDef) error {
	if len(cls.Bases) > 0 {
		return u.report(cls, "derived type with bases")
	}
	u.out.stmt("TYPE " + cls.Name)
	u.out.indent()
	for _, s := range cls.Body {
		switch s := s.(type) {
		case *gast.Pass:
		case *gast.Comment:
			u.out.comment(s.Text)
		case *gast.AnnAssign:
			if err := u.declare(s, targetName(s), s.Annotation, &s.Meta, s.Value, false); err != nil {
				return err
			}
		default:
			if err := u.report(s, "derived type member"); err != nil {
				return err
			}
		}
	}
	u.out.dedent()
	if u.out.fixed {
		u.out.stmt("END TYPE")
	} else {
		u.out.stmt("END TYPE " + cls.Name)
	}
	return nil
}

// report hands an unsupported construct to the reporter. In best-effort
// mode it writes a placeholder comment and returns nil.
func (u *unparser) report(node gast.Node, reason string) error {
	return u.downgrade(u.unsupported(node, reason))
}

func (u *unparser) downgrade(err error) error {
	var uc *lang.UnsupportedConstruct
	if !errors.As(err, &uc) {
		return err
	}
	if err := u.rep.Unsupported(uc.Kind, uc.Source, uc.Reason); err != nil {
		return err
	}
	u.out.comment(" " + lang.Placeholder(uc.Kind))
	return nil
}

func (u *unparser) unsupported(node gast.Node, reason string) error {
	return &lang.UnsupportedConstruct{Lang: u.rep.Lang, Kind: node.Kind().String(), Source: strings.TrimSpace(gast.Dump(node)), Reason: reason}
}
