package fortran

import (
	"github.com/soypat/polyglot/fortran/ast"
	"github.com/soypat/polyglot/gast"
)

// stmt lowers one statement. Most statements lower to one generalized
// statement, declarations and ALLOCATE may lower to several or none.
func (g *generalizer) stmt(s ast.Statement) ([]gast.Stmt, error) {
	one := func(st gast.Stmt, err error) ([]gast.Stmt, error) {
		if err != nil {
			return nil, err
		}
		return []gast.Stmt{st}, nil
	}
	switch s := s.(type) {
	case *ast.CommentStmt:
		return []gast.Stmt{&gast.Comment{Text: s.Text}}, nil

	// Specification statements.
	case *ast.TypeDeclaration:
		return g.declareEntities(s.Entities)
	case *ast.DimensionStmt:
		return g.declareEntities(s.Entities)
	case *ast.ParameterStmt:
		return g.declareEntities(s.Entities)
	case *ast.ImplicitStatement, *ast.AttributeStmt:
		// Already applied to the symbol table. Kept verbatim so Fortran
		// output types undeclared names the same way.
		return []gast.Stmt{statement(s)}, nil
	case *ast.UseStatement:
		return g.use(s), nil
	case *ast.DerivedTypeDef:
		return one(g.derivedType(s))

	// Executable statements.
	case *ast.AssignmentStmt:
		return one(g.assignment(s))
	case *ast.IfStmt:
		return one(g.ifStmt(s.Condition, s.ThenPart, s.ElseIfParts, s.ElsePart))
	case *ast.DoLoop:
		return one(g.doLoop(s))
	case *ast.DoWhileLoop:
		test, err := g.expr(s.Condition)
		if err != nil {
			return nil, err
		}
		body, err := g.body(s.Body)
		if err != nil {
			return nil, err
		}
		return []gast.Stmt{&gast.While{Test: test, Body: block(body)}}, nil
	case *ast.SelectCaseStmt:
		return g.selectCase(s)
	case *ast.CallStmt:
		return one(g.call(s))
	case *ast.ReturnStmt:
		return []gast.Stmt{g.returnStmt()}, nil
	case *ast.StopStmt:
		return one(g.stop(s))
	case *ast.ExitStmt:
		return []gast.Stmt{&gast.Break{}}, nil
	case *ast.CycleStmt:
		return []gast.Stmt{&gast.Continue{}}, nil
	case *ast.ContinueStmt:
		// No-op, usually the end of a labelled DO loop.
		return nil, nil
	case *ast.PrintStmt:
		return one(g.print(s, s.Format, s.OutputList))
	case *ast.WriteStmt:
		return one(g.write(s))
	case *ast.AllocateStmt:
		return g.allocate(s)
	case *ast.DeallocateStmt:
		return one(g.deallocate(s))
	case *ast.GotoStmt:
		return nil, g.unsupported(s, "unstructured control flow")
	case *ast.RawStmt:
		return nil, g.unsupported(s, "statement has no generalized form")
	}
	return nil, g.unsupported(s, "")
}

func (g *generalizer) declareEntities(entities []ast.DeclEntity) ([]gast.Stmt, error) {
	var out []gast.Stmt
	for _, entity := range entities {
		decl, err := g.declare(entity.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, decl...)
	}
	return out, nil
}

// statement keeps n as a Directive for Fortran output only.
func statement(n ast.Node) *gast.Directive {
	d := &gast.Directive{Text: ast.String(n)}
	d.Set(MetaStatement, true)
	return d
}

// use lowers USE. Modules defined in the same file lower to top level
// statements already in scope, so their USE is kept only for Fortran output.
func (g *generalizer) use(s *ast.UseStatement) []gast.Stmt {
	module := normalizeCase(s.ModuleName)
	if g.modules[module] {
		return []gast.Stmt{statement(s)}
	}
	imp := &gast.ImportFrom{Module: module}
	for _, name := range s.Only {
		imp.Names = append(imp.Names, gast.Alias{Name: normalizeCase(name)})
	}
	if len(imp.Names) == 0 {
		imp.Names = []gast.Alias{{Name: "*"}}
	}
	return []gast.Stmt{imp}
}

func (g *generalizer) assignment(s *ast.AssignmentStmt) (gast.Stmt, error) {
	target, err := g.assignTarget(s.Target, s.Value, s.IsPointerAssignment)
	if err != nil {
		return nil, err
	}
	value, err := g.expr(s.Value)
	if err != nil {
		return nil, err
	}
	assign := &gast.Assign{Targets: []gast.Expr{target}, Value: value}
	if s.IsPointerAssignment {
		assign.Set(MetaPointer, true)
	}
	return assign, nil
}

// assignTarget lowers the left hand side of an assignment. Assigning to a
// whole fixed size array writes its elements. An ALLOCATABLE or POINTER
// array is rebound by an array value and written by a scalar one.
func (g *generalizer) assignTarget(target, value ast.Expression, pointer bool) (gast.Expr, error) {
	id, ok := target.(*ast.Identifier)
	if !ok {
		return g.expr(target)
	}
	name := normalizeCase(id.Value)
	sym := g.scope.Lookup(name)
	if sym == nil || !sym.IsArray() || pointer {
		return gast.NewName(name), nil
	}
	if sym.Flags.HasAny(FlagAllocatable|FlagPointer) && !g.isScalar(value) {
		return gast.NewName(name), nil
	}
	dims := make([]gast.Expr, len(sym.ArraySpec.Bounds))
	for i := range dims {
		dims[i] = &gast.Slice{}
	}
	return gast.NewSubscript(gast.NewName(name), dims...), nil
}

func (g *generalizer) ifStmt(cond ast.Expression, then []ast.Statement, elifs []ast.ElseIfClause, els []ast.Statement) (*gast.If, error) {
	test, err := g.expr(cond)
	if err != nil {
		return nil, err
	}
	body, err := g.body(then)
	if err != nil {
		return nil, err
	}
	ifs := &gast.If{Test: test, Body: block(body)}
	switch {
	case len(elifs) > 0:
		elif, err := g.ifStmt(elifs[0].Condition, elifs[0].ThenPart, elifs[1:], els)
		if err != nil {
			return nil, err
		}
		ifs.Orelse = []gast.Stmt{elif}
	case len(els) > 0:
		orelse, err := g.body(els)
		if err != nil {
			return nil, err
		}
		ifs.Orelse = orelse
	}
	return ifs, nil
}

// doLoop lowers DO. A counted loop iterates over range with its inclusive
// end bound moved one step further. The step must be an integer constant
// so the direction of the adjustment is known.
func (g *generalizer) doLoop(s *ast.DoLoop) (gast.Stmt, error) {
	body, err := g.body(s.Body)
	if err != nil {
		return nil, err
	}
	if s.Var == "" {
		return &gast.While{Test: gast.Bool(true), Body: block(body)}, nil
	}
	start, err := g.expr(s.Start)
	if err != nil {
		return nil, err
	}
	end, err := g.expr(s.End)
	if err != nil {
		return nil, err
	}
	var step gast.Expr
	delta := int64(1)
	if s.Step != nil {
		if step, err = g.expr(s.Step); err != nil {
			return nil, err
		}
		v, ok := gast.IntValue(step)
		switch {
		case !ok:
			return nil, g.unsupported(s, "DO step is not an integer constant")
		case v == 0:
			return nil, g.structure(s, "DO step is zero")
		case v < 0:
			delta = -1
		}
	}
	return &gast.For{
		Target: gast.NewName(normalizeCase(s.Var)),
		Iter:   gast.Range(start, gast.AddConst(end, delta), step),
		Body:   block(body),
	}, nil
}

// selectCase lowers SELECT CASE to an if/elif chain comparing the selector
// against each case. The default case becomes the final else.
func (g *generalizer) selectCase(s *ast.SelectCaseStmt) ([]gast.Stmt, error) {
	selector, err := g.expr(s.Expression)
	if err != nil {
		return nil, err
	}
	var defaultBody []ast.Statement
	var hasDefault bool
	var clauses []ast.CaseClause
	for _, c := range s.Cases {
		if c.IsDefault {
			defaultBody, hasDefault = c.Body, true
			continue
		}
		clauses = append(clauses, c)
	}
	var orelse []gast.Stmt
	if hasDefault {
		if orelse, err = g.body(defaultBody); err != nil {
			return nil, err
		}
		if len(clauses) == 0 {
			return orelse, nil
		}
	}
	for i := len(clauses) - 1; i >= 0; i-- {
		var tests []gast.Expr
		for _, v := range clauses[i].Values {
			test, err := g.caseTest(gast.Clone(selector), v)
			if err != nil {
				return nil, err
			}
			tests = append(tests, test)
		}
		if len(tests) == 0 {
			return nil, g.structure(s, "CASE without values")
		}
		body, err := g.body(clauses[i].Body)
		if err != nil {
			return nil, err
		}
		ifs := &gast.If{Test: tests[0], Body: block(body), Orelse: orelse}
		if len(tests) > 1 {
			ifs.Test = &gast.BoolOp{Op: gast.Or, Values: tests}
		}
		orelse = []gast.Stmt{ifs}
	}
	return orelse, nil
}

func (g *generalizer) caseTest(selector gast.Expr, value ast.Expression) (gast.Expr, error) {
	rg, ok := value.(*ast.RangeExpr)
	if !ok {
		v, err := g.expr(value)
		if err != nil {
			return nil, err
		}
		return &gast.Compare{Left: selector, Ops: []gast.Operator{gast.Eq}, Comparators: []gast.Expr{v}}, nil
	}
	var tests []gast.Expr
	if rg.Start != nil {
		lo, err := g.expr(rg.Start)
		if err != nil {
			return nil, err
		}
		tests = append(tests, &gast.Compare{Left: selector, Ops: []gast.Operator{gast.GtE}, Comparators: []gast.Expr{lo}})
	}
	if rg.End != nil {
		hi, err := g.expr(rg.End)
		if err != nil {
			return nil, err
		}
		left := selector
		if len(tests) > 0 {
			left = gast.Clone(selector)
		}
		tests = append(tests, &gast.Compare{Left: left, Ops: []gast.Operator{gast.LtE}, Comparators: []gast.Expr{hi}})
	}
	switch len(tests) {
	case 0:
		return nil, g.structure(rg, "empty CASE range")
	case 1:
		return tests[0], nil
	}
	return &gast.BoolOp{Op: gast.And, Values: tests}, nil
}

// call lowers CALL. Calls to subroutines of the file returning outputs
// become assignments of the returned values to the actual arguments.
func (g *generalizer) call(s *ast.CallStmt) (gast.Stmt, error) {
	name := normalizeCase(s.Name)
	for _, arg := range s.Args {
		if id, ok := arg.(*ast.Identifier); ok && len(id.Value) > 0 && id.Value[0] == '*' {
			return nil, g.unsupported(s, "alternate return")
		}
	}
	proc, ok := g.procs[name]
	if !ok || len(proc.Outputs) == 0 {
		if in, isIntrinsic := LookupIntrinsic(name); isIntrinsic && !ok && in.Target == "" {
			return nil, g.unsupported(s, "intrinsic subroutine")
		}
		args, keywords, err := g.callArgs(s.Args)
		if err != nil {
			return nil, err
		}
		return &gast.ExprStmt{Value: &gast.Call{Func: gast.NewName(name), Args: args, Keywords: keywords}}, nil
	}
	if len(s.Args) != len(proc.Params) {
		return nil, g.structure(s, "argument count does not match SUBROUTINE "+proc.Name)
	}
	call := &gast.Call{Func: gast.NewName(name)}
	outputs := make(map[string]gast.Expr)
	for i, arg := range s.Args {
		if _, isKeyword := arg.(*ast.KeywordArg); isKeyword {
			return nil, g.unsupported(s, "keyword argument to a subroutine with outputs")
		}
		param := proc.Params[i]
		if proc.isInput(param) {
			v, err := g.expr(arg)
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, v)
		}
		if proc.isOutput(param) {
			target, err := g.expr(arg)
			if err != nil {
				return nil, err
			}
			outputs[param] = target
		}
	}
	targets := make([]gast.Expr, len(proc.Outputs))
	for i, out := range proc.Outputs {
		targets[i] = outputs[out]
	}
	assign := &gast.Assign{Targets: targets[:1], Value: call}
	if len(targets) > 1 {
		assign.Targets = []gast.Expr{&gast.Tuple{Elts: targets}}
	}
	assign.Set(MetaCall, true)
	return assign, nil
}

func (g *generalizer) stop(s *ast.StopStmt) (gast.Stmt, error) {
	g.imports.Add("sys", "")
	call := gast.NewCall("sys.exit")
	if s.Code != nil {
		code, err := g.expr(s.Code)
		if err != nil {
			return nil, err
		}
		call.Args = []gast.Expr{code}
	}
	return &gast.ExprStmt{Value: call}, nil
}

// print lowers list directed and formatted output to a call to print.
// Formats are not interpreted.
func (g *generalizer) print(s ast.Statement, format ast.Expression, items []ast.Expression) (*gast.ExprStmt, error) {
	call := gast.NewCall("print")
	for _, item := range items {
		if _, ok := item.(*ast.ImpliedDoLoop); ok {
			return nil, g.unsupported(s, "implied DO in output list")
		}
		v, err := g.expr(item)
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, v)
	}
	stmt := &gast.ExprStmt{Value: call}
	if format != nil {
		stmt.Set(MetaFormat, ast.String(format))
	}
	return stmt, nil
}

// write lowers WRITE to standard output, unit * or 6.
func (g *generalizer) write(s *ast.WriteStmt) (gast.Stmt, error) {
	unit := "*"
	if s.Unit != nil {
		lit, ok := s.Unit.(*ast.IntegerLiteral)
		if !ok || lit.Value != 6 {
			return nil, g.unsupported(s, "WRITE to a unit other than standard output")
		}
		unit = lit.Raw
	}
	stmt, err := g.print(s, s.Format, s.OutputList)
	if err != nil {
		return nil, err
	}
	stmt.Set(MetaWrite, unit)
	return stmt, nil
}

// allocate lowers each allocated object to an assignment of a zeroed
// column major array.
func (g *generalizer) allocate(s *ast.AllocateStmt) ([]gast.Stmt, error) {
	if len(s.Options) > 0 {
		return nil, g.unsupported(s, "ALLOCATE options")
	}
	var out []gast.Stmt
	for _, obj := range s.Objects {
		fc, ok := obj.(*ast.FunctionCall)
		if !ok || fc.Name == "" {
			return nil, g.unsupported(s, "allocation of "+ast.String(obj))
		}
		name := normalizeCase(fc.Name)
		spec, ok := g.scope.TypeOf(name)
		if !ok {
			return nil, g.structure(s, "allocation of undeclared "+name)
		}
		elem, _, _, ok := scalarType(spec)
		if !ok {
			return nil, g.unsupported(s, "element type "+string(spec.AppendString(nil)))
		}
		extents := make([]gast.Expr, len(fc.Args))
		for i, arg := range fc.Args {
			var err error
			if rg, isRange := arg.(*ast.RangeExpr); isRange {
				if rg.End == nil || rg.Stride != nil {
					return nil, g.structure(s, "invalid bounds "+ast.String(arg))
				}
				extents[i], err = g.extent(rg.Start, rg.End)
			} else {
				extents[i], err = g.expr(arg)
			}
			if err != nil {
				return nil, err
			}
		}
		assign := &gast.Assign{
			Targets: []gast.Expr{gast.NewName(name)},
			Value:   g.zeros(extents, gast.ArrayType(elem)),
		}
		assign.Set(MetaAllocate, true)
		out = append(out, assign)
	}
	return out, nil
}

func (g *generalizer) deallocate(s *ast.DeallocateStmt) (gast.Stmt, error) {
	if len(s.Options) > 0 {
		return nil, g.unsupported(s, "DEALLOCATE options")
	}
	del := &gast.Delete{}
	for _, obj := range s.Objects {
		target, err := g.expr(obj)
		if err != nil {
			return nil, err
		}
		del.Targets = append(del.Targets, target)
	}
	del.Set(MetaDeallocate, true)
	return del, nil
}
