package fortran

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/soypat/polyglot/fortran/ast"
	"github.com/soypat/polyglot/fortran/token"
	"github.com/soypat/polyglot/gast"
	"github.com/soypat/polyglot/lang"
)

// Metadata keys the Fortran generalizer attaches and the Fortran unparser reads.
const (
	MetaAllocate    = "fortran.allocate"     // bool on an Assign lowered from ALLOCATE.
	MetaDeallocate  = "fortran.deallocate"   // bool on a Delete lowered from DEALLOCATE.
	MetaPointer     = "fortran.pointer"      // bool on pointer declarations and `=>` assignments.
	MetaIntrinsic   = "fortran.intrinsic"    // string, the intrinsic a Call was lowered from.
	MetaIntent      = "fortran.intent"       // string "in", "out" or "inout" on Args and declarations.
	MetaKindLiteral = "fortran.kind_literal" // string, literal text carrying a kind: 1.0d0, 4_8.
	MetaKind        = "fortran.kind"         // string, non literal KIND selector of a declaration.
	MetaLen         = "fortran.len"          // string, CHARACTER length of a declaration.
	MetaAttributes  = "fortran.attributes"   // []string, declaration attributes without a lowering.
	MetaParams      = "fortran.params"       // []string, all dummy arguments of a procedure in order.
	MetaOutputs     = "fortran.outputs"      // []string, dummy arguments returned by a procedure.
	MetaFunction    = "fortran.function"     // string, result variable of a FUNCTION.
	MetaPrefix      = "fortran.prefix"       // string, RECURSIVE, PURE or ELEMENTAL prefix.
	MetaProgram     = "fortran.program"      // bool on the FunctionDef of a named PROGRAM.
	MetaMain        = "fortran.main"         // bool on the statement invoking a PROGRAM.
	MetaModule      = "fortran.module"       // string, MODULE a top level statement belongs to.
	MetaCall        = "fortran.call"         // bool on an Assign lowered from a CALL with outputs.
	MetaFormat      = "fortran.format"       // string, format of PRINT and WRITE.
	MetaWrite       = "fortran.write"        // string, unit of a WRITE statement.
	MetaStatement   = "fortran.statement"    // bool on a Directive holding a Fortran statement.
	MetaDefaultKind = "fortran.default_kind" // bool on declarations of default kind REAL or COMPLEX.
)

// Generalizer lowers a Fortran [Tree] into the generalized tree.
//
// Names are lower cased. Array subscripts become 0-based, DO loops become
// for loops over range, intrinsics are rewritten through a table into
// builtin and numpy calls, and dummy arguments with INTENT(OUT) are
// returned instead of passed.
type Generalizer struct {
	// BestEffort drops unsupported statements, logging each one, instead
	// of failing.
	BestEffort bool
	Log        *zap.Logger
}

var _ lang.Generalizer = (*Generalizer)(nil)

type generalizer struct {
	rep     lang.Reporter
	imports gast.Imports
	procs   map[string]*Procedure
	modules map[string]bool
	scopes  map[ast.ProgramUnit]*Scope
	scope   *Scope
	proc    *Procedure // Procedure being lowered, nil outside procedures.
	mains   []gast.Stmt
}

// Generalize implements [lang.Generalizer].
func (fg *Generalizer) Generalize(tree lang.Tree) (*gast.Module, error) {
	t, ok := tree.(*Tree)
	if !ok || t == nil || t.Program == nil {
		got := "nil"
		if tree != nil {
			got = tree.Language().Name()
		}
		return nil, &lang.ContractError{Op: "generalize", Msg: "fortran generalizer got a " + got + " tree"}
	}
	g := &generalizer{
		rep:     lang.Reporter{Lang: lang.Fortran.Name(), BestEffort: fg.BestEffort, Log: fg.Log},
		procs:   make(map[string]*Procedure),
		modules: make(map[string]bool),
		scopes:  make(map[ast.ProgramUnit]*Scope),
	}
	g.collect(t.Program.Units, nil)
	mod := &gast.Module{}
	for _, unit := range t.Program.Units {
		stmts, err := g.unit(unit)
		if err != nil {
			return nil, err
		}
		mod.Body = append(mod.Body, stmts...)
	}
	mod.Body = append(mod.Body, g.mains...)
	g.imports.Prepend(mod)
	return mod, nil
}

// collect builds the scope of every program unit and the interface of
// every procedure before any lowering, so calls can be lowered regardless
// of the order units appear in.
func (g *generalizer) collect(units []ast.ProgramUnit, parent *Scope) {
	for _, unit := range units {
		scope := newScope(parent, unit)
		g.scopes[unit] = scope
		var params []ast.Parameter
		var body []ast.Statement
		var contains []ast.ProgramUnit
		switch u := unit.(type) {
		case *ast.ProgramBlock:
			body, contains = u.Body, u.Contains
		case *ast.Module:
			body, contains = u.Body, u.Contains
			g.modules[normalizeCase(u.Name)] = true
		case *ast.Subroutine:
			params, body, contains = u.Parameters, u.Body, u.Contains
		case *ast.Function:
			params, body, contains = u.Parameters, u.Body, u.Contains
		}
		declareAll(scope, params, body)
		switch u := unit.(type) {
		case *ast.Subroutine:
			g.procs[normalizeCase(u.Name)] = newProcedure(scope, u.Name, "", params)
		case *ast.Function:
			g.procs[normalizeCase(u.Name)] = newProcedure(scope, u.Name, u.Result(), params)
			if u.ResultType != nil {
				sym := scope.Define(u.Result())
				if sym.Type == nil {
					spec := *u.ResultType
					sym.Type = &spec
				}
			}
		}
		g.collect(contains, scope)
	}
}

func newProcedure(scope *Scope, name, result string, params []ast.Parameter) *Procedure {
	proc := &Procedure{Name: normalizeCase(name), IsFunction: result != "", Result: normalizeCase(result)}
	for _, param := range params {
		pname := normalizeCase(param.Name)
		proc.Params = append(proc.Params, pname)
		sym := scope.LookupLocal(pname)
		isArray := sym != nil && sym.IsArray()
		switch {
		case param.Intent == ast.IntentOut && (!isArray || knownExtents(sym.ArraySpec)):
			proc.Outputs = append(proc.Outputs, pname)
			continue
		case param.Intent == ast.IntentInOut && !isArray:
			proc.Outputs = append(proc.Outputs, pname)
		}
		proc.Inputs = append(proc.Inputs, pname)
	}
	for _, out := range proc.Outputs {
		scope.Define(out).Flags |= FlagOutput
	}
	return proc
}

func knownExtents(spec *ast.ArraySpec) bool {
	for _, b := range spec.Bounds {
		if b.Upper == nil {
			return false
		}
	}
	return true
}

func (g *generalizer) unit(unit ast.ProgramUnit) ([]gast.Stmt, error) {
	switch u := unit.(type) {
	case *ast.ProgramBlock:
		return g.program(u)
	case *ast.Module:
		return g.module(u)
	case *ast.Subroutine:
		fn, err := g.procedure(u, u.Parameters, u.Attributes, u.Body, u.Contains)
		if err != nil {
			return nil, g.downgrade(err)
		}
		return []gast.Stmt{fn}, nil
	case *ast.Function:
		fn, err := g.procedure(u, u.Parameters, u.Attributes, u.Body, u.Contains)
		if err != nil {
			return nil, g.downgrade(err)
		}
		return []gast.Stmt{fn}, nil
	}
	return nil, g.downgrade(g.unsupported(unit, ""))
}

// program lowers a main program. A program without a name, which is also
// how bare statements and comment blocks arrive, lowers to its statements.
// A named program becomes a function invoked at the end of the module.
func (g *generalizer) program(pb *ast.ProgramBlock) ([]gast.Stmt, error) {
	defer g.enter(pb, nil)()
	contained, err := g.contained(pb.Contains)
	if err != nil {
		return nil, err
	}
	body, err := g.body(pb.Body)
	if err != nil {
		return nil, err
	}
	body = append(contained, body...)
	if pb.Name == "" {
		return body, nil
	}
	name := normalizeCase(pb.Name)
	fn := &gast.FunctionDef{Name: name, Body: block(body)}
	fn.Set(MetaProgram, true)
	call := &gast.ExprStmt{Value: gast.NewCall(name)}
	call.Set(MetaMain, true)
	g.mains = append(g.mains, call)
	return []gast.Stmt{fn}, nil
}

// module lowers a MODULE to top level statements tagged with its name.
func (g *generalizer) module(m *ast.Module) ([]gast.Stmt, error) {
	defer g.enter(m, nil)()
	body, err := g.body(m.Body)
	if err != nil {
		return nil, err
	}
	contained, err := g.contained(m.Contains)
	if err != nil {
		return nil, err
	}
	body = append(body, contained...)
	name := normalizeCase(m.Name)
	for _, stmt := range body {
		stmt.Metadata().Set(MetaModule, name)
	}
	return body, nil
}

func (g *generalizer) contained(units []ast.ProgramUnit) ([]gast.Stmt, error) {
	var stmts []gast.Stmt
	for _, unit := range units {
		lowered, err := g.unit(unit)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, lowered...)
	}
	return stmts, nil
}

// enter makes unit the current scope and returns the function restoring
// the previous one.
func (g *generalizer) enter(unit ast.ProgramUnit, proc *Procedure) func() {
	prevScope, prevProc := g.scope, g.proc
	g.scope, g.proc = g.scopes[unit], proc
	if g.scope == nil {
		g.scope = newScope(prevScope, unit)
		g.scopes[unit] = g.scope
	}
	return func() { g.scope, g.proc = prevScope, prevProc }
}

// procedure lowers a SUBROUTINE or FUNCTION. Contained procedures are
// defined first in the body so they exist by the time they are called.
func (g *generalizer) procedure(unit ast.ProgramUnit, params []ast.Parameter, attrs []token.Token, body []ast.Statement, contains []ast.ProgramUnit) (*gast.FunctionDef, error) {
	proc := g.procs[normalizeCase(unit.UnitName())]
	defer g.enter(unit, proc)()
	fn := &gast.FunctionDef{Name: proc.Name}
	for _, param := range params {
		if param.Name == "*" {
			return nil, g.unsupported(unit, "alternate return")
		}
	}
	for _, name := range proc.Inputs {
		arg := &gast.Arg{Name: name}
		sym := g.scope.LookupLocal(name)
		ann, err := g.annotation(name)
		if err != nil {
			return nil, err
		}
		arg.Annotation = ann
		if sym != nil {
			g.declarationMeta(&arg.Meta, sym)
		}
		fn.Args = append(fn.Args, arg)
	}
	var returns []gast.Expr
	if proc.IsFunction {
		fn.Set(MetaFunction, proc.Result)
		if spec, ok := g.scope.TypeOf(proc.Result); ok && isDefaultReal(spec) {
			fn.Set(MetaDefaultKind, true)
		}
		ann, err := g.annotation(proc.Result)
		if err != nil {
			return nil, err
		}
		returns = append(returns, ann)
	}
	if len(proc.Outputs) > 0 {
		fn.Set(MetaParams, proc.Params)
		fn.Set(MetaOutputs, proc.Outputs)
	}
	for _, out := range proc.Outputs {
		ann, err := g.annotation(out)
		if err != nil {
			return nil, err
		}
		returns = append(returns, ann)
	}
	switch {
	case len(returns) == 1:
		fn.Returns = returns[0]
	case len(returns) > 1:
		fn.Returns = tupleType(returns)
	}
	if len(attrs) > 0 {
		prefix := make([]string, len(attrs))
		for i, attr := range attrs {
			prefix[i] = attr.String()
		}
		fn.Set(MetaPrefix, strings.Join(prefix, " "))
	}

	contained, err := g.contained(contains)
	if err != nil {
		return nil, err
	}
	stmts, err := g.body(body)
	if err != nil {
		return nil, err
	}
	stmts = append(contained, stmts...)
	assigned := gast.AssignedNames(stmts)
	for _, arg := range fn.Args {
		sym := g.scope.LookupLocal(arg.Name)
		if sym == nil || sym.IsArray() || sym.Intent == ast.IntentIn {
			continue
		}
		if assigned[arg.Name] || sym.Intent == ast.IntentInOut {
			arg.Set(gast.MetaByReference, true)
		}
	}
	if g.returnsValue() {
		if n := len(stmts); n == 0 || !isReturn(stmts[n-1]) {
			stmts = append(stmts, g.returnStmt())
		}
	}
	fn.Body = block(stmts)
	return fn, nil
}

func isReturn(s gast.Stmt) bool {
	_, ok := s.(*gast.Return)
	return ok
}

// tupleType is the annotation of a procedure returning several values.
func tupleType(elts []gast.Expr) gast.Expr {
	return gast.NewSubscript(gast.NewName("tuple"), elts...)
}

func (g *generalizer) returnsValue() bool {
	return g.proc != nil && (g.proc.IsFunction || len(g.proc.Outputs) > 0)
}

// returnStmt returns the function result and the output arguments of the
// current procedure.
func (g *generalizer) returnStmt() *gast.Return {
	if !g.returnsValue() {
		return &gast.Return{}
	}
	var values []gast.Expr
	if g.proc.IsFunction {
		values = append(values, gast.NewName(g.proc.Result))
	}
	for _, out := range g.proc.Outputs {
		values = append(values, gast.NewName(out))
	}
	if len(values) == 1 {
		return &gast.Return{Value: values[0]}
	}
	return &gast.Return{Value: &gast.Tuple{Elts: values}}
}

// body lowers a statement list. In best-effort mode unsupported statements
// are dropped here, after being logged.
func (g *generalizer) body(stmts []ast.Statement) ([]gast.Stmt, error) {
	var out []gast.Stmt
	for _, s := range stmts {
		lowered, err := g.stmt(s)
		if err != nil {
			if err = g.downgrade(err); err != nil {
				return nil, err
			}
			continue
		}
		out = append(out, lowered...)
	}
	return out, nil
}

// block is a body that must hold at least one statement.
func block(stmts []gast.Stmt) []gast.Stmt {
	if len(stmts) == 0 {
		return []gast.Stmt{&gast.Pass{}}
	}
	return stmts
}

func (g *generalizer) unsupported(node ast.Node, reason string) error {
	kind := nodeKind(node)
	if raw, ok := node.(*ast.RawStmt); ok {
		kind = raw.Keyword.String()
	}
	return &lang.UnsupportedConstruct{Lang: g.rep.Lang, Kind: kind, Source: ast.String(node), Reason: reason}
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

func (g *generalizer) structure(node ast.Node, msg string) error {
	return &lang.StructureError{Kind: nodeKind(node), Source: ast.String(node), Msg: msg}
}

func nodeKind(node ast.Node) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", node), "*ast.")
}
