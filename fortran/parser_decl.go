package fortran

import (
	"strings"

	"github.com/soypat/polyglot/fortran/ast"
	"github.com/soypat/polyglot/fortran/token"
)

// parseTypeSpec parses a type specifier: INTEGER, REAL*8, REAL(KIND=8),
// CHARACTER*(*), CHARACTER(LEN=10), DOUBLE PRECISION or TYPE(name).
// With stopAtLetterRange a parenthesis that opens an IMPLICIT letter range
// list is left unconsumed.
func (p *Parser90) parseTypeSpec(stopAtLetterRange bool) (spec ast.TypeSpec, ok bool) {
	spec.Token = p.current.tok
	switch p.current.tok {
	case token.DOUBLE:
		p.nextToken()
		switch {
		case p.consumeIf(token.PRECISION):
			spec.Token = token.DOUBLEPRECISION
		case p.consumeIf(token.COMPLEX):
			spec.Token = token.COMPLEX
			spec.Kind = &ast.IntegerLiteral{Value: 8, Raw: "8"}
		default:
			p.addError("expected PRECISION or COMPLEX after DOUBLE")
			return spec, false
		}
		return spec, true
	case token.DOUBLEPRECISION:
		p.nextToken()
		return spec, true
	case token.TYPE:
		p.nextToken()
		if !p.expect(token.LParen, "TYPE(name)") {
			return spec, false
		}
		spec.TypeName, ok = p.identifier("derived type name")
		if !ok {
			return spec, false
		}
		return spec, p.expect(token.RParen, "TYPE(name)")
	case token.INTEGER, token.REAL, token.COMPLEX, token.LOGICAL, token.CHARACTER:
		p.nextToken()
	default:
		p.addError("expected type specifier, got " + p.current.tok.String())
		return spec, false
	}

	isChar := spec.Token == token.CHARACTER
	switch {
	case p.currentTokenIs(token.Asterisk):
		p.nextToken()
		sel := p.parseLengthSelector()
		if sel == nil {
			return spec, false
		}
		if isChar {
			spec.CharLen = sel
		} else {
			spec.Kind = sel
		}

	case p.currentTokenIs(token.LParen) && !(stopAtLetterRange && p.isLetterRangeStart()):
		p.nextToken()
		positional := 0
		for p.loopUntil(token.RParen, token.NewLine) {
			var name string
			if (p.currentTokenIs(token.KIND) || p.currentTokenIs(token.LEN)) && p.peekTokenIs(token.Equals) {
				name = p.current.tok.String()
				p.nextToken()
				p.nextToken()
			}
			var value ast.Expression
			if p.currentTokenIs(token.Asterisk) || p.currentTokenIs(token.Colon) {
				value = &ast.Identifier{Value: p.current.tok.String(), Position: p.singleTokenPos()}
				p.nextToken()
			} else {
				value = p.parseExpression(precLowest)
			}
			if value == nil {
				p.addError("expected type parameter value")
				return spec, false
			}
			if name == "" {
				name = "KIND"
				if isChar && positional == 0 {
					name = "LEN"
				}
				positional++
			}
			if name == "LEN" {
				spec.CharLen = value
			} else {
				spec.Kind = value
			}
			if !p.consumeIf(token.Comma) {
				break
			}
		}
		if !p.expect(token.RParen, "type parameters") {
			return spec, false
		}
	}
	return spec, true
}

// parseLengthSelector parses what follows `*` in `REAL*8`, `CHARACTER*10`
// and `CHARACTER*(*)`.
func (p *Parser90) parseLengthSelector() ast.Expression {
	if p.currentTokenIs(token.LParen) {
		p.nextToken()
		var sel ast.Expression
		if p.currentTokenIs(token.Asterisk) || p.currentTokenIs(token.Colon) {
			sel = &ast.Identifier{Value: p.current.tok.String(), Position: p.singleTokenPos()}
			p.nextToken()
		} else {
			sel = p.parseExpression(precLowest)
		}
		if sel == nil || !p.expect(token.RParen, "length selector") {
			return nil
		}
		return sel
	}
	if !p.currentTokenIs(token.IntLit) {
		p.addError("expected length after '*', got " + p.current.tok.String())
		return nil
	}
	return p.parsePrimaryExpr()
}

// isLetterRangeStart reports whether the '(' at the current token opens an
// IMPLICIT letter list like `(a-h, o-z)`.
func (p *Parser90) isLetterRangeStart() bool {
	if !p.peekTokenIs(token.Identifier) || len(p.peek.lit) != 1 {
		return false
	}
	switch p.uberpeek.tok {
	case token.Minus, token.Comma, token.RParen:
		return true
	}
	return false
}

// parseTypeDecl parses a type declaration statement.
func (p *Parser90) parseTypeDecl() ast.Statement {
	start := p.current.start
	spec, ok := p.parseTypeSpec(false)
	if !ok {
		return nil
	}
	return p.parseTypeDeclRest(start, spec)
}

// parseTypeDeclRest parses the attributes and entities of a type
// declaration whose type specifier was already parsed.
func (p *Parser90) parseTypeDeclRest(start int, spec ast.TypeSpec) ast.Statement {
	decl := &ast.TypeDeclaration{Type: spec}
	var dims *ast.ArraySpec
	for p.consumeIf(token.Comma) {
		attr := p.current.tok
		if !attr.IsAttribute() {
			p.addError("expected attribute in declaration, got " + attr.String())
			return nil
		}
		p.nextToken()
		switch attr {
		case token.INTENT:
			decl.Intent = p.parseIntentSpec()
		case token.DIMENSION:
			dims = p.parseArraySpec()
			if dims == nil {
				p.addError("expected DIMENSION array specification")
				return nil
			}
		}
		decl.Attributes = append(decl.Attributes, attr)
	}
	p.consumeIf(token.DoubleColon)
	decl.Entities = p.parseEntityList(dims)
	if len(decl.Entities) == 0 {
		p.addError("declaration without entities")
		return nil
	}
	decl.Position = ast.Pos(start, p.current.start)
	return decl
}

// parseIntentSpec parses `(IN)`, `(OUT)`, `(INOUT)` or `(IN OUT)`.
func (p *Parser90) parseIntentSpec() ast.IntentType {
	intent := ast.IntentDefault
	if !p.expect(token.LParen, "INTENT") {
		return intent
	}
	switch {
	case p.consumeIf2(token.IN, token.OUT), p.consumeIf(token.INOUT):
		intent = ast.IntentInOut
	case p.consumeIf(token.IN):
		intent = ast.IntentIn
	case p.consumeIf(token.OUT):
		intent = ast.IntentOut
	default:
		p.addError("expected IN, OUT or INOUT, got " + p.current.tok.String())
	}
	p.expect(token.RParen, "INTENT")
	return intent
}

// parseEntityList parses `a, b(n), c*10 = 'x', p => null()`. Entities
// without their own array specification get dims.
func (p *Parser90) parseEntityList(dims *ast.ArraySpec) []ast.DeclEntity {
	var entities []ast.DeclEntity
	for !p.atEndOfStatement() && !p.IsDone() {
		name, ok := p.identifier("entity name")
		if !ok {
			return entities
		}
		entity := ast.DeclEntity{Name: name, ArraySpec: dims}
		if p.currentTokenIs(token.LParen) {
			entity.ArraySpec = p.parseArraySpec()
		}
		if p.consumeIf(token.Asterisk) {
			entity.CharLen = p.parseLengthSelector()
		}
		if p.consumeIf(token.Equals) || p.consumeIf(token.PointerAssign) {
			entity.Init = p.parseExpression(precLowest)
			if entity.Init == nil {
				p.addError("expected initialization expression for " + name)
			}
		}
		entities = append(entities, entity)
		if !p.consumeIf(token.Comma) {
			break
		}
	}
	return entities
}

// parseArraySpec parses a parenthesized array specification like
// (10), (0:n, m), (:, :) or (n, *).
func (p *Parser90) parseArraySpec() *ast.ArraySpec {
	if !p.currentTokenIs(token.LParen) {
		return nil
	}
	p.nextToken() // consume '('

	spec := &ast.ArraySpec{Kind: ast.ArraySpecExplicit}
	hasAssumedShape := false
	hasAssumedSize := false
	for p.loopUntilEndElseOr(token.RParen, token.NewLine) {
		var bound ast.ArrayBound
		switch {
		case p.currentTokenIs(token.Asterisk):
			hasAssumedSize = true
			p.nextToken()
		case p.currentTokenIs(token.Colon):
			hasAssumedShape = true
			p.nextToken()
		default:
			expr := p.parseExpression(precLowest)
			if expr == nil {
				p.addError("expected array bound, got " + p.current.tok.String())
				return nil
			}
			bound.Upper = expr
			if p.consumeIf(token.Colon) {
				bound.Lower = expr
				bound.Upper = nil
				switch {
				case p.consumeIf(token.Asterisk):
					hasAssumedSize = true
				case p.loopWhile(token.Comma, token.RParen):
					hasAssumedShape = true
				default:
					bound.Upper = p.parseExpression(precLowest)
				}
			}
		}
		spec.Bounds = append(spec.Bounds, bound)
		if !p.consumeIf(token.Comma) {
			break
		}
	}
	p.expect(token.RParen, "array specification")

	switch {
	case hasAssumedSize:
		spec.Kind = ast.ArraySpecAssumedSize
	case hasAssumedShape:
		spec.Kind = ast.ArraySpecAssumed
	}
	return spec
}

// parseDimensionStmt parses `DIMENSION a(n), b(2, 3)`.
// Precondition: current token is DIMENSION
func (p *Parser90) parseDimensionStmt() ast.Statement {
	start := p.current.start
	p.expect(token.DIMENSION, "")
	p.consumeIf(token.DoubleColon)
	entities := p.parseEntityList(nil)
	if len(entities) == 0 {
		p.addError("DIMENSION without entities")
		return nil
	}
	return &ast.DimensionStmt{Entities: entities, Position: ast.Pos(start, p.current.start)}
}

// parseParameterStmt parses the F77 `PARAMETER (n = 10, pi = 3.14)`.
// Precondition: current token is PARAMETER
func (p *Parser90) parseParameterStmt() ast.Statement {
	start := p.current.start
	p.expect(token.PARAMETER, "")
	if !p.expect(token.LParen, "PARAMETER") {
		return nil
	}
	stmt := &ast.ParameterStmt{}
	for p.loopUntil(token.RParen, token.NewLine) {
		name, ok := p.identifier("named constant")
		if !ok || !p.expect(token.Equals, "PARAMETER") {
			return nil
		}
		value := p.parseExpression(precLowest)
		if value == nil {
			p.addError("expected value for named constant " + name)
			return nil
		}
		stmt.Entities = append(stmt.Entities, ast.DeclEntity{Name: name, Init: value})
		if !p.consumeIf(token.Comma) {
			break
		}
	}
	p.expect(token.RParen, "PARAMETER")
	stmt.Position = ast.Pos(start, p.current.start)
	return stmt
}

// parseAttributeStmt parses EXTERNAL, INTRINSIC, SAVE, PUBLIC and PRIVATE
// statements. Common block names in SAVE are dropped.
func (p *Parser90) parseAttributeStmt() ast.Statement {
	start := p.current.start
	stmt := &ast.AttributeStmt{Attr: p.current.tok}
	p.nextToken()
	p.consumeIf(token.DoubleColon)
	for !p.atEndOfStatement() && !p.IsDone() {
		if p.consumeIf(token.Slash) {
			p.consumeUnitName()
			p.expect(token.Slash, "common block name")
		} else {
			name, ok := p.identifier("name")
			if !ok {
				return nil
			}
			stmt.Names = append(stmt.Names, name)
		}
		if !p.consumeIf(token.Comma) {
			break
		}
	}
	stmt.Position = ast.Pos(start, p.current.start)
	return stmt
}

// parseImplicit parses IMPLICIT NONE and IMPLICIT type (letters) rules.
// Precondition: current token is IMPLICIT
func (p *Parser90) parseImplicit() ast.Statement {
	start := p.current.start
	p.expect(token.IMPLICIT, "")
	stmt := &ast.ImplicitStatement{}
	if p.currentTokenIs(token.Identifier) && strings.EqualFold(string(p.current.lit), "NONE") {
		p.nextToken()
		stmt.IsNone = true
		stmt.Position = ast.Pos(start, p.current.start)
		return stmt
	}
	for !p.atEndOfStatement() && !p.IsDone() {
		spec, ok := p.parseTypeSpec(true)
		if !ok || !p.expect(token.LParen, "IMPLICIT letter list") {
			return nil
		}
		rule := ast.ImplicitRule{Type: spec}
		for p.loopUntil(token.RParen, token.NewLine) {
			lo, ok := p.implicitLetter()
			if !ok {
				return nil
			}
			hi := lo
			if p.consumeIf(token.Minus) {
				if hi, ok = p.implicitLetter(); !ok {
					return nil
				}
			}
			rule.Ranges = append(rule.Ranges, [2]byte{lo, hi})
			if !p.consumeIf(token.Comma) {
				break
			}
		}
		if !p.expect(token.RParen, "IMPLICIT letter list") {
			return nil
		}
		stmt.Rules = append(stmt.Rules, rule)
		if !p.consumeIf(token.Comma) {
			break
		}
	}
	stmt.Position = ast.Pos(start, p.current.start)
	return stmt
}

func (p *Parser90) implicitLetter() (byte, bool) {
	if !p.currentTokenIs(token.Identifier) || len(p.current.lit) != 1 {
		p.addError("expected letter in IMPLICIT range, got " + p.current.tok.String())
		return 0, false
	}
	c := p.current.lit[0] | 0x20 // Lower case.
	p.nextToken()
	return c, true
}

// parseUse parses `USE module [, ONLY: a, b => c]`. Renames keep the local name.
// Precondition: current token is USE
func (p *Parser90) parseUse() ast.Statement {
	start := p.current.start
	p.expect(token.USE, "")
	p.consumeIf(token.DoubleColon)
	name, ok := p.identifier("module name")
	if !ok {
		return nil
	}
	stmt := &ast.UseStatement{ModuleName: name}
	if p.consumeIf(token.Comma) {
		if p.consumeIf(token.ONLY) {
			p.expect(token.Colon, "USE ONLY")
			for !p.atEndOfStatement() && !p.IsDone() {
				local, ok := p.identifier("USE ONLY name")
				if !ok {
					return nil
				}
				if p.consumeIf(token.PointerAssign) {
					p.identifier("USE ONLY name")
				}
				stmt.Only = append(stmt.Only, local)
				if !p.consumeIf(token.Comma) {
					break
				}
			}
		} else {
			for !p.atEndOfStatement() && !p.IsDone() {
				p.nextToken() // Rename list.
			}
		}
	}
	stmt.Position = ast.Pos(start, p.current.start)
	return stmt
}

// parseDerivedTypeDef parses `TYPE [, attrs ::] name ... END TYPE [name]`.
// Precondition: current token is TYPE
func (p *Parser90) parseDerivedTypeDef() ast.Statement {
	start := p.sourcePos()
	p.expect(token.TYPE, "")
	for p.consumeIf(token.Comma) {
		p.nextToken() // Attribute.
		if p.currentTokenIs(token.LParen) {
			for p.loopUntil(token.RParen, token.NewLine) {
				p.nextToken()
			}
			p.expect(token.RParen, "type attribute")
		}
	}
	p.consumeIf(token.DoubleColon)
	name, ok := p.identifier("derived type name")
	if !ok {
		return nil
	}
	def := &ast.DerivedTypeDef{Name: name}
	def.Components = p.parseBlock(func() bool { return p.stmtTok().IsEnd() || p.stmtTok() == token.CONTAINS }, nil)
	def.Position = ast.Pos(start.Pos, p.current.start)
	p.expectEndConstruct(token.TYPE, token.ENDTYPE, start)
	p.consumeUnitName()
	return def
}
