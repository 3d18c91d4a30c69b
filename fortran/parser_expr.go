package fortran

import (
	"errors"
	"strconv"
	"strings"

	"github.com/soypat/polyglot/fortran/ast"
	"github.com/soypat/polyglot/fortran/token"
)

const (
	precLowest = 0
	precNot    = 4 // .NOT. binds looser than relational operators.
	precUnary  = 8
)

// getOperatorPrecedence returns the precedence level for operators
// Higher number = higher precedence
// Fortran precedence (highest to lowest):
// 9: ** (exponentiation, right associative)
// 8: unary +, -
// 7: *, /
// 6: binary +, -
// 5: // (string concatenation)
// 4: relational (.EQ., .NE., .LT., .LE., .GT., .GE., ==, /=, <, <=, >, >=), .NOT.
// 3: .AND.
// 2: .OR.
// 1: .EQV., .NEQV.
func getOperatorPrecedence(op token.Token) int {
	switch {
	case op == token.DoubleStar:
		return 9
	case op == token.Asterisk || op == token.Slash:
		return 7
	case op == token.Plus || op == token.Minus:
		return 6
	case op == token.StringConcat:
		return 5
	case op.IsRelational():
		return 4
	case op == token.AND:
		return 3
	case op == token.OR:
		return 2
	case op == token.EQV || op == token.NEQV:
		return 1
	}
	return 0
}

// parseExpression parses a Fortran expression using precedence climbing
// minPrec is the minimum precedence level to parse
func (p *Parser90) parseExpression(minPrec int) ast.Expression {
	left := p.parsePrimaryExpr()
	if left == nil {
		return nil
	}
	start := left.SourcePos().Start()
	for !p.IsDone() {
		prec := getOperatorPrecedence(p.current.tok)
		if prec == 0 || prec < minPrec {
			break
		}
		// `/)` closes an array constructor.
		if p.currentTokenIs(token.Slash) && p.peekTokenIs(token.RParen) {
			break
		}
		op := p.current.tok
		p.nextToken()
		nextMinPrec := prec
		if op != token.DoubleStar { // ** is right associative.
			nextMinPrec = prec + 1
		}
		right := p.parseExpression(nextMinPrec)
		if right == nil {
			p.addError("expected expression after operator " + op.String())
			return left
		}
		left = &ast.BinaryExpr{
			Op:       op,
			Left:     left,
			Right:    right,
			Position: ast.Pos(start, right.SourcePos().End()),
		}
	}
	return left
}

// parsePrimaryExpr parses primary expressions: literals, identifiers, function calls,
// array references, component references and parenthesized expressions.
func (p *Parser90) parsePrimaryExpr() ast.Expression {
	startPos := p.current.start
	switch p.current.tok {
	case token.Plus, token.Minus, token.NOT:
		op := p.current.tok
		p.nextToken()
		prec := precUnary
		if op == token.NOT {
			prec = precNot
		}
		operand := p.parseExpression(prec)
		if operand == nil {
			p.addError("expected expression after unary operator")
			return nil
		}
		return &ast.UnaryExpr{
			Op:       op,
			Operand:  operand,
			Position: ast.Pos(startPos, operand.SourcePos().End()),
		}

	case token.LParen:
		if p.peekTokenIs(token.Slash) {
			return p.parseArrayConstructor(token.Slash, token.RParen)
		}
		return p.parseParenGroup()

	case token.LBracket:
		return p.parseArrayConstructor(token.RBracket, token.Undefined)
	}

	pos := ast.Pos(startPos, p.current.start+len(p.current.lit))
	switch p.current.tok {
	case token.IntLit:
		raw := string(p.current.lit)
		lit := &ast.IntegerLiteral{Raw: raw, Position: pos}
		v, err := strconv.ParseInt(stripKind(raw), 10, 64)
		if err != nil {
			p.addError("invalid integer literal " + strconv.Quote(raw))
		}
		lit.Value = v
		p.nextToken()
		return lit

	case token.FloatLit:
		raw := string(p.current.lit)
		lit := &ast.RealLiteral{Raw: raw, Position: pos}
		v, err := parseReal(raw)
		if err != nil {
			p.addError("invalid real literal " + strconv.Quote(raw))
		}
		lit.Value = v
		p.nextToken()
		return lit

	case token.StringLit:
		lit := &ast.StringLiteral{Value: string(p.current.lit), Position: ast.Pos(startPos, startPos+len(p.current.lit)+2)}
		p.nextToken()
		return p.parsePostfix(lit, startPos)

	case token.TRUE, token.FALSE:
		lit := &ast.LogicalLiteral{Value: p.current.tok == token.TRUE, Position: pos}
		p.nextToken()
		return lit
	}

	if !p.canUseAsIdentifier() {
		return nil
	}
	ident := &ast.Identifier{Value: string(p.current.lit), Position: pos}
	p.nextToken()
	return p.parsePostfix(ident, startPos)
}

// parsePostfix parses the subscripts, substrings and component references
// following base. `a(i)` becomes a FunctionCall named a. Parentheses after
// anything other than a plain name become a FunctionCall with an empty Name
// whose first argument is the subscripted expression: `a(i)(1:5)`, `t%x(2)`.
func (p *Parser90) parsePostfix(base ast.Expression, startPos int) ast.Expression {
	result := base
	for !p.IsDone() {
		switch {
		case p.currentTokenIs(token.LParen):
			p.nextToken()
			args, err := parseCommaSeparatedList(p, token.RParen, p.parseOneArg)
			if err != nil {
				p.addError(err.Error())
			}
			endPos := p.current.start + 1
			p.expect(token.RParen, "closing argument list")
			if ident, ok := result.(*ast.Identifier); ok {
				result = &ast.FunctionCall{
					Name:     ident.Value,
					Args:     args,
					Position: ast.Pos(startPos, endPos),
				}
			} else {
				result = &ast.FunctionCall{
					Args:     append([]ast.Expression{result}, args...),
					Position: ast.Pos(startPos, endPos),
				}
			}

		case p.currentTokenIs(token.Percent):
			p.nextToken()
			if !p.canUseAsIdentifier() {
				p.addError("expected component name after '%'")
				return result
			}
			result = &ast.ComponentAccess{
				Base:      result,
				Component: string(p.current.lit),
				Position:  ast.Pos(startPos, p.current.start+len(p.current.lit)),
			}
			p.nextToken()

		default:
			return result
		}
	}
	return result
}

// parseParenGroup parses a parenthesized expression, a complex literal
// `(re, im)` or an implied DO loop `(a(i), i = 1, n)`.
// Precondition: current token is '('.
func (p *Parser90) parseParenGroup() ast.Expression {
	startPos := p.current.start
	p.nextToken()
	first := p.parseExpression(precLowest)
	if first == nil {
		p.addError("expected expression after '('")
		return nil
	}
	if p.currentTokenIs(token.RParen) {
		endPos := p.current.start + 1
		p.nextToken()
		paren := &ast.ParenExpr{Expr: first, Position: ast.Pos(startPos, endPos)}
		return p.parsePostfix(paren, startPos)
	}
	if !p.currentTokenIs(token.Comma) {
		p.addError("expected ')' after expression, got " + p.current.tok.String())
		return nil
	}
	items := []ast.Expression{first}
	for p.consumeIf(token.Comma) {
		if p.canUseAsIdentifier() && p.peekTokenIs(token.Equals) {
			return p.parseImpliedDoControl(startPos, items)
		}
		item := p.parseExpression(precLowest)
		if item == nil {
			p.addError("expected expression in parenthesized list")
			return nil
		}
		items = append(items, item)
	}
	endPos := p.current.start + 1
	if !p.expect(token.RParen, "closing parenthesis") {
		return nil
	}
	if len(items) != 2 {
		p.addError("parenthesized list is neither a complex literal nor an implied DO loop")
		return nil
	}
	return &ast.ComplexLiteral{Real: items[0], Imag: items[1], Position: ast.Pos(startPos, endPos)}
}

// parseImpliedDoControl parses the `var = start, end [, stride])` part of
// an implied DO loop. Current token is the loop variable.
func (p *Parser90) parseImpliedDoControl(startPos int, items []ast.Expression) ast.Expression {
	loopVar := string(p.current.lit)
	p.nextToken() // identifier
	p.nextToken() // =
	start := p.parseExpression(precLowest)
	if start == nil || !p.expect(token.Comma, "implied DO loop") {
		return nil
	}
	end := p.parseExpression(precLowest)
	if end == nil {
		p.addError("expected end expression in implied DO loop")
		return nil
	}
	var stride ast.Expression
	if p.consumeIf(token.Comma) {
		stride = p.parseExpression(precLowest)
	}
	endPos := p.current.start + 1
	if !p.expect(token.RParen, "closing implied DO loop") {
		return nil
	}
	return &ast.ImpliedDoLoop{
		Expressions: items,
		LoopVar:     loopVar,
		Start:       start,
		End:         end,
		Stride:      stride,
		Position:    ast.Pos(startPos, endPos),
	}
}

// parseOneArg parses an argument in a parentheses preceding an identifier.
// since identifier could be a function or an array we must handle both cases here.
// Also handles keyword arguments like KIND=value in intrinsic function calls.
func (p *Parser90) parseOneArg() (ast.Expression, error) {
	start := p.current.start
	if p.canUseAsIdentifier() && p.peekTokenIs(token.Equals) {
		name := string(p.current.lit)
		p.nextToken() // keyword name
		p.nextToken() // =
		value := p.parseExpression(precLowest)
		if value == nil {
			return nil, errors.New("expected expression after '=' in keyword argument")
		}
		return &ast.KeywordArg{
			Name:     name,
			Value:    value,
			Position: ast.Pos(start, value.SourcePos().End()),
		}, nil
	}
	if p.currentTokenIs(token.Asterisk) && (p.peekTokenIs(token.Comma) || p.peekTokenIs(token.RParen)) {
		// Assumed or list directed `*`.
		p.nextToken()
		return &ast.Identifier{Value: "*", Position: ast.Pos(start, start+1)}, nil
	}

	var arg ast.Expression
	if !p.currentTokenIs(token.Colon) {
		arg = p.parseExpression(precLowest)
		if arg == nil {
			return nil, errors.New("expected expression in argument list, got " + p.current.tok.String())
		}
		if !p.currentTokenIs(token.Colon) {
			return arg, nil
		}
	}
	// Subscript triplet: [start]:[end][:stride]
	p.nextToken()
	rangeExpr := &ast.RangeExpr{Start: arg}
	if !p.atRangeEnd() {
		rangeExpr.End = p.parseExpression(precLowest)
	}
	if p.consumeIf(token.Colon) && !p.atRangeEnd() {
		rangeExpr.Stride = p.parseExpression(precLowest)
	}
	rangeExpr.Position = ast.Pos(start, p.current.start)
	return rangeExpr, nil
}

func (p *Parser90) atRangeEnd() bool {
	return p.loopWhile(token.Comma, token.RParen, token.Colon)
}

// parseArrayConstructor parses `(/ ... /)` when closing is Slash and
// `[ ... ]` when closing is RBracket.
func (p *Parser90) parseArrayConstructor(closing, after token.Token) ast.Expression {
	start := p.current.start
	ac := &ast.ArrayConstructor{}
	p.nextToken() // ( or [
	if closing == token.Slash {
		p.nextToken() // /
	}
	parseOneElement := func() (ast.Expression, error) {
		val := p.parseExpression(precLowest)
		if val == nil {
			return nil, errors.New("expected expression in array constructor")
		}
		return val, nil
	}
	values, err := parseCommaSeparatedList(p, closing, parseOneElement)
	if err != nil {
		p.addError(err.Error())
	}
	ac.Values = values
	p.expect(closing, "array constructor end")
	endPos := p.current.start
	if after != token.Undefined {
		endPos++
		p.expect(after, "array constructor end")
	}
	ac.Position = ast.Pos(start, endPos)
	return ac
}

// stripKind removes a `_kind` suffix from a numeric literal.
func stripKind(raw string) string {
	if i := strings.IndexByte(raw, '_'); i >= 0 {
		return raw[:i]
	}
	return raw
}

// parseReal parses a real literal with E, D or Q exponent and optional kind suffix.
func parseReal(raw string) (float64, error) {
	s := stripKind(raw)
	s = strings.Map(func(r rune) rune {
		switch r {
		case 'd', 'D', 'q', 'Q':
			return 'e'
		}
		return r
	}, s)
	return strconv.ParseFloat(s, 64)
}
