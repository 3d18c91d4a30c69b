package fortran

import (
	"slices"

	"github.com/soypat/polyglot/fortran/ast"
	"github.com/soypat/polyglot/fortran/token"
	"github.com/soypat/polyglot/gast"
	"github.com/soypat/polyglot/lang"
)

// declareAll fills scope from the specification statements of a unit body.
func declareAll(scope *Scope, params []ast.Parameter, body []ast.Statement) {
	for _, param := range params {
		if param.Name != "*" {
			scope.Define(param.Name).Flags |= FlagArgument
		}
	}
	for _, stmt := range body {
		switch s := stmt.(type) {
		case *ast.ImplicitStatement:
			scope.implicit.Apply(s)
		case *ast.TypeDeclaration:
			for i := range s.Entities {
				declareEntity(scope.Define(s.Entities[i].Name), s, &s.Entities[i])
			}
		case *ast.DimensionStmt:
			for _, entity := range s.Entities {
				scope.Define(entity.Name).ArraySpec = entity.ArraySpec
			}
		case *ast.ParameterStmt:
			for _, entity := range s.Entities {
				sym := scope.Define(entity.Name)
				sym.Kind = SymParameter
				sym.Init = entity.Init
			}
		case *ast.AttributeStmt:
			for _, name := range s.Names {
				sym := scope.Define(name)
				switch s.Attr {
				case token.EXTERNAL:
					sym.Flags |= FlagExternal
					sym.Kind = SymFunction
				case token.INTRINSIC:
					sym.Flags |= FlagIntrinsic
					sym.Kind = SymFunction
				}
			}
		case *ast.DerivedTypeDef:
			scope.Define(s.Name).Kind = SymDerivedType
		}
	}
	for _, sym := range scope.Symbols() {
		if sym.IsArray() {
			sym.Lower = lowerBounds(sym.ArraySpec)
		}
	}
	for _, stmt := range body {
		ast.Inspect(stmt, func(n ast.Node) bool {
			switch n := n.(type) {
			case *ast.AllocateStmt:
				for _, obj := range n.Objects {
					fc, ok := obj.(*ast.FunctionCall)
					if !ok {
						continue
					}
					if sym := scope.LookupLocal(fc.Name); sym != nil {
						sym.Lower = make([]ast.Expression, len(fc.Args))
						for i, arg := range fc.Args {
							if rg, ok := arg.(*ast.RangeExpr); ok {
								sym.Lower[i] = rg.Start
							}
						}
					}
				}
				return false
			case *ast.FunctionCall:
				// Names used with call syntax that are not arrays nor
				// substrings are functions.
				if sym := scope.LookupLocal(n.Name); sym != nil && sym.Kind == SymVariable && !sym.IsArray() && !isSubstring(sym, n.Args) {
					sym.Kind = SymFunction
				}
			}
			return true
		})
	}
}

func declareEntity(sym *Symbol, decl *ast.TypeDeclaration, entity *ast.DeclEntity) {
	spec := decl.Type
	if entity.CharLen != nil {
		spec.CharLen = entity.CharLen
	}
	sym.Type = &spec
	sym.Attributes = decl.Attributes
	if entity.ArraySpec != nil {
		sym.ArraySpec = entity.ArraySpec
	}
	if entity.Init != nil {
		sym.Init = entity.Init
	}
	if decl.Intent != ast.IntentDefault {
		sym.Intent = decl.Intent
	}
	for _, attr := range decl.Attributes {
		switch attr {
		case token.PARAMETER:
			sym.Kind = SymParameter
		case token.POINTER:
			sym.Flags |= FlagPointer
		case token.TARGET:
			sym.Flags |= FlagTarget
		case token.ALLOCATABLE:
			sym.Flags |= FlagAllocatable
		case token.EXTERNAL:
			sym.Flags |= FlagExternal
			sym.Kind = SymFunction
		case token.INTRINSIC:
			sym.Flags |= FlagIntrinsic
			sym.Kind = SymFunction
		}
	}
}

func isSubstring(sym *Symbol, args []ast.Expression) bool {
	if sym.Type == nil || sym.Type.Token != token.CHARACTER || len(args) != 1 {
		return false
	}
	_, ok := args[0].(*ast.RangeExpr)
	return ok
}

func lowerBounds(spec *ast.ArraySpec) []ast.Expression {
	lower := make([]ast.Expression, len(spec.Bounds))
	for i, b := range spec.Bounds {
		lower[i] = b.Lower
	}
	return lower
}

// isDefaultReal reports a REAL or COMPLEX without a kind selector, which
// is single precision.
func isDefaultReal(spec ast.TypeSpec) bool {
	return spec.Kind == nil && (spec.Token == token.REAL || spec.Token == token.COMPLEX)
}

// scalarType returns the annotation of a Fortran type. Kind selectors and
// lengths without a generalized equivalent are returned as source text.
func scalarType(spec ast.TypeSpec) (ann gast.Expr, kindText, lenText string, ok bool) {
	var kind int64
	if spec.Kind != nil {
		if lit, isLit := spec.Kind.(*ast.IntegerLiteral); isLit {
			kind = lit.Value
		} else {
			kindText = ast.String(spec.Kind)
		}
	}
	if spec.CharLen != nil {
		lenText = ast.String(spec.CharLen)
	}
	var name string
	switch spec.Token {
	case token.INTEGER:
		name = map[int64]string{0: gast.TypeInt, 1: gast.TypeInt8, 2: gast.TypeInt16, 4: gast.TypeInt32, 8: gast.TypeInt64}[kind]
	case token.REAL:
		name = map[int64]string{0: gast.TypeFloat, 4: gast.TypeFloat32, 8: gast.TypeFloat64}[kind]
	case token.DOUBLEPRECISION:
		name = gast.TypeFloat64
	case token.COMPLEX:
		// COMPLEX*16 and COMPLEX(KIND=8) are both double precision.
		name = map[int64]string{0: gast.TypeComplex, 4: gast.TypeComplex64, 8: gast.TypeComplex128, 16: gast.TypeComplex128}[kind]
	case token.LOGICAL:
		name = gast.TypeBool
		if kind != 0 {
			kindText = ast.String(spec.Kind)
		}
	case token.CHARACTER:
		name = gast.TypeStr
		if kind != 0 {
			kindText = ast.String(spec.Kind)
		}
		if lenText == "" {
			lenText = "1"
		}
	case token.TYPE:
		return gast.NewName(normalizeCase(spec.TypeName)), "", "", true
	}
	if name == "" {
		return nil, "", "", false
	}
	return gast.Scalar(name), kindText, lenText, true
}

// annotation returns the type annotation of a name in the current scope,
// nil when it has no type.
func (g *generalizer) annotation(name string) (gast.Expr, error) {
	spec, ok := g.scope.TypeOf(name)
	if !ok {
		return nil, nil
	}
	var dims *ast.ArraySpec
	if sym := g.scope.Lookup(name); sym != nil {
		dims = sym.ArraySpec
	}
	return g.typeAnnotation(spec, dims)
}

func (g *generalizer) typeAnnotation(spec ast.TypeSpec, dims *ast.ArraySpec) (gast.Expr, error) {
	ann, _, _, ok := scalarType(spec)
	if !ok {
		return nil, &lang.UnsupportedConstruct{Lang: g.rep.Lang, Kind: "TypeSpec", Source: string(spec.AppendString(nil)), Reason: "kind has no generalized type"}
	}
	if dims != nil && len(dims.Bounds) > 0 {
		extents := make([]gast.Expr, len(dims.Bounds))
		for i, b := range dims.Bounds {
			if b.Upper == nil {
				continue
			}
			ext, err := g.extent(b.Lower, b.Upper)
			if err != nil {
				return nil, err
			}
			extents[i] = ext
		}
		ann = gast.ArrayType(ann, extents...)
	}
	if gast.UsesNumpy(ann) {
		g.imports.Add(gast.NumpyModule, gast.NumpyAlias)
	}
	return ann, nil
}

// extent returns the number of elements between inclusive bounds.
func (g *generalizer) extent(lower, upper ast.Expression) (gast.Expr, error) {
	up, err := g.expr(upper)
	if err != nil {
		return nil, err
	}
	if lower == nil {
		return up, nil
	}
	lo, err := g.expr(lower)
	if err != nil {
		return nil, err
	}
	if c, ok := gast.IntValue(lo); ok {
		return gast.AddConst(up, 1-c), nil
	}
	return gast.AddConst(&gast.BinOp{Left: up, Op: gast.Sub, Right: lo}, 1), nil
}

// declarationMeta records what a declaration says beyond its type.
func (g *generalizer) declarationMeta(meta *gast.Meta, sym *Symbol) {
	switch sym.Intent {
	case ast.IntentIn:
		meta.Set(MetaIntent, "in")
	case ast.IntentOut:
		meta.Set(MetaIntent, "out")
	case ast.IntentInOut:
		meta.Set(MetaIntent, "inout")
	}
	if sym.Flags.HasAny(FlagPointer) {
		meta.Set(MetaPointer, true)
	}
	if sym.Type != nil {
		_, kindText, lenText, _ := scalarType(*sym.Type)
		if kindText != "" {
			meta.Set(MetaKind, kindText)
		}
		if lenText != "" {
			meta.Set(MetaLen, lenText)
		}
	}
	spec, ok := g.scope.TypeOf(sym.Name)
	if sym.Type != nil {
		spec, ok = *sym.Type, true
	}
	if ok && isDefaultReal(spec) {
		meta.Set(MetaDefaultKind, true)
	}
	var attrs []string
	if sym.Kind == SymParameter {
		attrs = append(attrs, token.PARAMETER.String())
	}
	for _, attr := range sym.Attributes {
		switch attr {
		case token.PARAMETER, token.INTENT, token.DIMENSION, token.POINTER, token.ALLOCATABLE:
		default:
			attrs = append(attrs, attr.String())
		}
	}
	if len(attrs) > 0 {
		meta.Set(MetaAttributes, attrs)
	}
}

// declare lowers the declaration of a name the first time a specification
// statement mentions it. Dummy arguments and function results are
// declared by the FunctionDef itself.
func (g *generalizer) declare(name string) ([]gast.Stmt, error) {
	sym := g.scope.LookupLocal(name)
	if sym == nil || sym.Flags.HasAny(FlagDeclared) {
		return nil, nil
	}
	sym.Flags |= FlagDeclared
	switch {
	case sym.Flags.HasAny(FlagArgument) && !sym.Flags.HasAny(FlagOutput):
		return nil, nil
	case sym.Flags.HasAny(FlagArgument) && g.proc != nil && g.proc.isInput(sym.Name):
		return nil, nil
	case g.proc != nil && g.proc.IsFunction && sym.Name == g.proc.Result:
		return nil, nil
	case sym.Kind == SymDerivedType:
		return nil, nil
	}
	if _, isProc := g.procs[sym.Name]; isProc || sym.Kind == SymFunction {
		// The type of a function has no generalized form; keep the
		// declaration for Fortran output.
		if sym.Type == nil {
			return nil, nil
		}
		decl := &ast.TypeDeclaration{Type: *sym.Type, Entities: []ast.DeclEntity{{Name: sym.Name}}}
		return []gast.Stmt{statement(decl)}, nil
	}
	ann, err := g.annotation(sym.Name)
	if err != nil || ann == nil {
		return nil, err
	}
	decl := &gast.AnnAssign{Target: gast.NewName(sym.Name), Annotation: ann}
	ti, _ := gast.DecodeType(ann)
	switch {
	case sym.Init != nil:
		decl.Value, err = g.expr(sym.Init)
		if err != nil {
			return nil, err
		}
	case ti.IsArray() && !sym.Flags.HasAny(FlagAllocatable|FlagPointer) && knownExtents(sym.ArraySpec):
		decl.Value = g.zeros(gast.CloneExprs(ti.Extents), ann)
	case ti.Record && !ti.IsArray() && !sym.Flags.HasAny(FlagPointer):
		decl.Value = gast.NewCall(ti.Scalar)
	}
	g.declarationMeta(&decl.Meta, sym)
	if sym.Init != nil && sym.Kind != SymParameter && g.proc != nil {
		// Initialized procedure locals keep their value between calls.
		attrs, _ := decl.Get(MetaAttributes)
		list, _ := attrs.([]string)
		if !slices.Contains(list, token.SAVE.String()) {
			decl.Set(MetaAttributes, append(list, token.SAVE.String()))
		}
	}
	return []gast.Stmt{decl}, nil
}

// zeros returns the expression allocating a zeroed column major array
// with the given extents, of the element type of the array annotation ann.
func (g *generalizer) zeros(extents []gast.Expr, ann gast.Expr) gast.Expr {
	g.imports.Add(gast.NumpyModule, gast.NumpyAlias)
	shape := &gast.Tuple{Elts: extents}
	ti, _ := gast.DecodeType(ann)
	order := &gast.Keyword{Arg: "order", Value: gast.Str("F")}
	if ti.Record || ti.Scalar == gast.TypeStr {
		call := gast.NewCall("np.empty", shape)
		call.Keywords = []*gast.Keyword{{Arg: "dtype", Value: gast.NewName("object")}, order}
		return call
	}
	call := gast.NewCall("np.zeros", shape)
	call.Keywords = []*gast.Keyword{{Arg: "dtype", Value: gast.Scalar(ti.Scalar)}, order}
	return call
}

// derivedType lowers a TYPE definition to a class whose body declares the
// components.
func (g *generalizer) derivedType(dt *ast.DerivedTypeDef) (*gast.ClassDef, error) {
	cls := &gast.ClassDef{Name: normalizeCase(dt.Name)}
	for _, comp := range dt.Components {
		switch c := comp.(type) {
		case *ast.CommentStmt:
			cls.Body = append(cls.Body, &gast.Comment{Text: c.Text})
		case *ast.TypeDeclaration:
			for i := range c.Entities {
				sym := &Symbol{Name: normalizeCase(c.Entities[i].Name), Kind: SymVariable}
				declareEntity(sym, c, &c.Entities[i])
				ann, err := g.typeAnnotation(*sym.Type, sym.ArraySpec)
				if err != nil {
					return nil, err
				}
				field := &gast.AnnAssign{Target: gast.NewName(sym.Name), Annotation: ann}
				if sym.Init != nil {
					if field.Value, err = g.expr(sym.Init); err != nil {
						return nil, err
					}
				}
				g.declarationMeta(&field.Meta, sym)
				cls.Body = append(cls.Body, field)
			}
		default:
			return nil, g.unsupported(comp, "derived type component")
		}
	}
	cls.Body = block(cls.Body)
	return cls, nil
}
