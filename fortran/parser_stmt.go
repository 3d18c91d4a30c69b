package fortran

import (
	"fmt"
	"strings"

	"github.com/soypat/polyglot/fortran/ast"
	"github.com/soypat/polyglot/fortran/token"
)

// rawIdentStmts are statements whose keyword lexes as an identifier and
// that the parser keeps as raw text.
var rawIdentStmts = map[string]bool{
	"OPEN": true, "CLOSE": true, "INQUIRE": true, "REWIND": true, "BACKSPACE": true,
	"ENDFILE": true, "NULLIFY": true, "ENTRY": true, "PAUSE": true, "EQUIVALENCE": true,
	"NAMELIST": true, "SEQUENCE": true, "ASSIGN": true, "BLOCK": true,
}

// parseStatement parses one specification or executable statement with
// its optional label.
func (p *Parser90) parseStatement() ast.Statement {
	var label string
	if p.currentTokenIs(token.IntLit) {
		label = string(p.current.lit)
		p.nextToken()
	}
	// Construct name: `outer: DO i = 1, n`.
	if p.canUseAsIdentifier() && p.peekTokenIs(token.Colon) {
		switch p.uberpeek.tok {
		case token.DO, token.IF, token.SELECT:
			p.nextToken()
			p.nextToken()
		}
	}
	stmt := p.parseUnlabelledStatement()
	if stmt != nil && label != "" {
		ast.SetLabel(stmt, label)
	}
	return stmt
}

func (p *Parser90) parseUnlabelledStatement() ast.Statement {
	if p.isGoto() {
		return p.parseGotoStmt()
	}
	tok := p.current.tok
	if tok == token.Identifier {
		if p.isAssignmentAhead() {
			return p.parseAssignmentStmt()
		}
		upper := strings.ToUpper(string(p.current.lit))
		switch {
		case upper == "INTERFACE" || upper == "ABSTRACT":
			return p.parseInterfaceBlock()
		case rawIdentStmts[upper]:
			return p.parseRawStmt(token.Identifier)
		}
		p.addError("unknown statement starting with " + string(p.current.lit))
		return nil
	}
	if tok.CanBeUsedAsIdentifier() {
		switch p.peek.tok {
		case token.Equals, token.PointerAssign, token.Percent:
			return p.parseAssignmentStmt()
		}
	}

	switch tok {
	case token.IF:
		return p.parseIfStmt()
	case token.DO:
		return p.parseDoLoop()
	case token.SELECT:
		return p.parseSelectCaseStmt()
	case token.CALL:
		return p.parseCallStmt()
	case token.RETURN:
		return p.parseReturnStmt()
	case token.STOP:
		return p.parseStopStmt()
	case token.EXIT:
		stmt := &ast.ExitStmt{Position: p.singleTokenPos()}
		p.nextToken()
		p.consumeConstructName()
		return stmt
	case token.CYCLE:
		stmt := &ast.CycleStmt{Position: p.singleTokenPos()}
		p.nextToken()
		p.consumeConstructName()
		return stmt
	case token.CONTINUE:
		stmt := &ast.ContinueStmt{Position: p.singleTokenPos()}
		p.nextToken()
		return stmt
	case token.PRINT:
		return p.parsePrintStmt()
	case token.WRITE:
		return p.parseWriteStmt()
	case token.ALLOCATE:
		return p.parseAllocateStmt()
	case token.DEALLOCATE:
		return p.parseDeallocateStmt()

	case token.INTEGER, token.REAL, token.COMPLEX, token.LOGICAL, token.CHARACTER,
		token.DOUBLE, token.DOUBLEPRECISION:
		return p.parseTypeDecl()
	case token.TYPE:
		if p.peekTokenIs(token.LParen) {
			return p.parseTypeDecl()
		}
		return p.parseDerivedTypeDef()
	case token.IMPLICIT:
		return p.parseImplicit()
	case token.USE:
		return p.parseUse()
	case token.DIMENSION:
		return p.parseDimensionStmt()
	case token.PARAMETER:
		return p.parseParameterStmt()
	case token.EXTERNAL, token.INTRINSIC, token.SAVE, token.PUBLIC, token.PRIVATE:
		return p.parseAttributeStmt()
	case token.COMMON, token.DATA, token.FORMAT, token.READ, token.INTENT,
		token.OPTIONAL, token.POINTER, token.TARGET, token.ALLOCATABLE:
		return p.parseRawStmt(tok)
	}

	if tok.CanBeUsedAsIdentifier() && p.isAssignmentAhead() {
		return p.parseAssignmentStmt()
	}
	p.addError("unexpected " + tok.String() + " at start of statement")
	return nil
}

func (p *Parser90) singleTokenPos() ast.Position {
	return ast.Pos(p.current.start, p.current.start+len(p.current.tok.String()))
}

func (p *Parser90) consumeConstructName() {
	if p.currentTokenIs(token.Identifier) {
		p.nextToken()
	}
}

// isAssignmentAhead scans the source text of the current statement for an
// `=` or `=>` outside parentheses, which makes it an assignment.
func (p *Parser90) isAssignmentAhead() bool {
	depth := 0
	var quote byte
	src := p.src
	for i := p.current.start; i < len(src); i++ {
		c := src[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ';', '!':
			return false
		case '\n':
			if !continuedBefore(src, i) {
				return false
			}
		case '=':
			if depth != 0 {
				continue
			}
			if i+1 < len(src) && src[i+1] == '=' {
				return false // ==
			}
			if i > 0 && strings.IndexByte("/<>=", src[i-1]) >= 0 {
				return false
			}
			return true
		}
	}
	return false
}

// continuedBefore reports whether the line ending at src[nl] ends in `&`.
func continuedBefore(src []byte, nl int) bool {
	for i := nl - 1; i >= 0; i-- {
		switch src[i] {
		case ' ', '\t', '\r':
			continue
		case '&':
			return true
		}
		return false
	}
	return false
}

// isGoto reports whether the current tokens start `GOTO` or `GO TO`.
func (p *Parser90) isGoto() bool {
	if p.currentTokenIs(token.GOTO) {
		return true
	}
	return p.currentTokenIs(token.Identifier) && strings.EqualFold(string(p.current.lit), "GO") &&
		p.peekTokenIs(token.Identifier) && strings.EqualFold(string(p.peek.lit), "TO")
}

// parseGotoStmt parses an unconditional GOTO. Computed and assigned GOTO
// statements are kept as raw text.
func (p *Parser90) parseGotoStmt() ast.Statement {
	start := p.current.start
	if p.currentTokenIs(token.GOTO) {
		p.nextToken()
	} else {
		p.nextToken()
		p.nextToken()
	}
	if !p.currentTokenIs(token.IntLit) {
		return p.parseRawFrom(token.GOTO, start)
	}
	stmt := &ast.GotoStmt{Target: string(p.current.lit)}
	p.nextToken()
	stmt.Position = ast.Pos(start, p.current.start)
	return stmt
}

// parseRawStmt keeps the current statement as raw text.
func (p *Parser90) parseRawStmt(keyword token.Token) ast.Statement {
	return p.parseRawFrom(keyword, p.current.start)
}

func (p *Parser90) parseRawFrom(keyword token.Token, start int) ast.Statement {
	for !p.atEndOfStatement() && !p.IsDone() {
		p.nextToken()
	}
	end := p.current.start
	return &ast.RawStmt{
		Keyword:  keyword,
		Text:     p.rawText(start, end),
		Position: ast.Pos(start, end),
	}
}

// parseInterfaceBlock keeps an INTERFACE ... END INTERFACE block as raw text.
func (p *Parser90) parseInterfaceBlock() ast.Statement {
	start := p.current.start
	for !p.IsDone() {
		p.nextToken()
		isEnd := p.currentTokenIs(token.END) && p.peekTokenIs(token.Identifier) &&
			strings.EqualFold(string(p.peek.lit), "INTERFACE")
		if isEnd {
			p.nextToken()
			p.nextToken()
			break
		}
		if p.currentTokenIs(token.Identifier) && strings.EqualFold(string(p.current.lit), "ENDINTERFACE") {
			p.nextToken()
			break
		}
	}
	for !p.atEndOfStatement() && !p.IsDone() {
		p.nextToken() // Generic name.
	}
	end := p.current.start
	return &ast.RawStmt{
		Keyword:  token.Identifier,
		Text:     p.rawText(start, end),
		Position: ast.Pos(start, end),
	}
}

// parseAssignmentStmt parses `target = value` and `target => value`.
func (p *Parser90) parseAssignmentStmt() ast.Statement {
	start := p.current.start
	target := p.parsePrimaryExpr()
	if target == nil {
		p.addError("expected assignment target")
		return nil
	}
	stmt := &ast.AssignmentStmt{Target: target}
	switch {
	case p.consumeIf(token.Equals):
	case p.consumeIf(token.PointerAssign):
		stmt.IsPointerAssignment = true
	default:
		p.addError("expected '=' in assignment, got " + p.current.tok.String())
		return nil
	}
	stmt.Value = p.parseExpression(precLowest)
	if stmt.Value == nil {
		p.addError("expected expression after '=' in assignment")
		return nil
	}
	stmt.Position = ast.Pos(start, stmt.Value.SourcePos().End())
	return stmt
}

// isBlockEnd reports whether the current statement closes a block.
func (p *Parser90) isBlockEnd() bool {
	tok := p.stmtTok()
	return tok.IsEndOrElse() || tok == token.CONTAINS
}

// parseIfStmt parses block IF, logical IF and, as raw text, arithmetic IF.
// Precondition: current token is IF
func (p *Parser90) parseIfStmt() ast.Statement {
	start := p.sourcePos()
	p.expect(token.IF, "")
	if !p.expect(token.LParen, "IF condition") {
		return nil
	}
	cond := p.parseExpression(precLowest)
	if cond == nil {
		p.addError("expected IF condition")
		return nil
	}
	if !p.expect(token.RParen, "IF condition") {
		return nil
	}
	stmt := &ast.IfStmt{Condition: cond}

	switch {
	case p.currentTokenIs(token.IntLit) && p.peekTokenIs(token.Comma):
		return p.parseRawFrom(token.IF, start.Pos)

	case !p.consumeIf(token.THEN):
		// Logical IF: the action statement is on the same line.
		action := p.parseUnlabelledStatement()
		if action == nil {
			return nil
		}
		stmt.Logical = true
		stmt.ThenPart = []ast.Statement{action}
		stmt.Position = ast.Pos(start.Pos, action.SourcePos().End())
		return stmt
	}

	stmt.ThenPart = p.parseBlock(p.isBlockEnd, nil)
	for !p.IsDone() {
		p.consumeEndLabel()
		clauseStart := p.current.start
		if p.consumeIf(token.ELSEIF) || p.consumeIf2(token.ELSE, token.IF) {
			clause := ast.ElseIfClause{}
			if p.expect(token.LParen, "ELSE IF condition") {
				clause.Condition = p.parseExpression(precLowest)
				p.expect(token.RParen, "ELSE IF condition")
			}
			if clause.Condition == nil {
				p.addError("expected ELSE IF condition")
				return nil
			}
			p.expect(token.THEN, "ELSE IF")
			clause.ThenPart = p.parseBlock(p.isBlockEnd, nil)
			clause.Position = ast.Pos(clauseStart, p.current.start)
			stmt.ElseIfParts = append(stmt.ElseIfParts, clause)
			continue
		}
		if p.consumeIf(token.ELSE) {
			stmt.ElsePart = p.parseBlock(p.isBlockEnd, nil)
			continue
		}
		break
	}
	stmt.Position = ast.Pos(start.Pos, p.current.start)
	p.expectEndConstruct(token.IF, token.ENDIF, start)
	p.consumeConstructName()
	return stmt
}

// parseDoLoop parses counted, DO WHILE and infinite DO loops in both the
// END DO form and the F77 labelled form `DO 10 i = 1, n ... 10 CONTINUE`.
// Precondition: current token is DO
func (p *Parser90) parseDoLoop() ast.Statement {
	start := p.sourcePos()
	p.expect(token.DO, "")
	var target string
	if p.currentTokenIs(token.IntLit) {
		target = string(p.current.lit)
		p.nextToken()
		p.consumeIf(token.Comma)
	}

	var stmt ast.Statement
	var body *[]ast.Statement
	switch {
	case p.consumeIf(token.WHILE):
		loop := &ast.DoWhileLoop{TargetLabel: target}
		if p.expect(token.LParen, "DO WHILE condition") {
			loop.Condition = p.parseExpression(precLowest)
			p.expect(token.RParen, "DO WHILE condition")
		}
		if loop.Condition == nil {
			p.addError("expected DO WHILE condition")
			return nil
		}
		stmt, body = loop, &loop.Body

	case p.canUseAsIdentifier() && p.peekTokenIs(token.Equals):
		loop := &ast.DoLoop{Var: string(p.current.lit), TargetLabel: target}
		p.nextToken()
		p.nextToken()
		loop.Start = p.parseExpression(precLowest)
		if loop.Start == nil || !p.expect(token.Comma, "DO loop bounds") {
			return nil
		}
		loop.End = p.parseExpression(precLowest)
		if loop.End == nil {
			p.addError("expected DO loop end")
			return nil
		}
		if p.consumeIf(token.Comma) {
			loop.Step = p.parseExpression(precLowest)
		}
		stmt, body = loop, &loop.Body

	case p.atEndOfStatement():
		loop := &ast.DoLoop{TargetLabel: target}
		stmt, body = loop, &loop.Body

	default:
		p.addError("malformed DO statement")
		return nil
	}

	if target == "" {
		*body = p.parseBlock(p.isBlockEnd, nil)
		p.expectEndConstruct(token.DO, token.ENDDO, start)
		p.consumeConstructName()
	} else {
		*body = p.parseBlock(p.isBlockEnd, func(s ast.Statement) bool {
			return ast.GetLabel(s) == target || doTargetLabel(s) == target
		})
		// F90 labelled loops may close with `10 END DO`.
		if p.currentTokenIs(token.IntLit) && string(p.current.lit) == target {
			p.expectEndConstruct(token.DO, token.ENDDO, start)
		}
	}
	setPosition(stmt, ast.Pos(start.Pos, p.current.start))
	return stmt
}

func doTargetLabel(s ast.Statement) string {
	switch s := s.(type) {
	case *ast.DoLoop:
		return s.TargetLabel
	case *ast.DoWhileLoop:
		return s.TargetLabel
	}
	return ""
}

func setPosition(s ast.Statement, pos ast.Position) {
	switch s := s.(type) {
	case *ast.DoLoop:
		s.Position = pos
	case *ast.DoWhileLoop:
		s.Position = pos
	}
}

// parseSelectCaseStmt parses a SELECT CASE construct.
// Precondition: current token is SELECT
func (p *Parser90) parseSelectCaseStmt() ast.Statement {
	start := p.sourcePos()
	p.expect(token.SELECT, "")
	if !p.expect(token.CASE, "SELECT CASE") || !p.expect(token.LParen, "SELECT CASE") {
		return nil
	}
	stmt := &ast.SelectCaseStmt{Expression: p.parseExpression(precLowest)}
	if stmt.Expression == nil {
		p.addError("expected SELECT CASE expression")
		return nil
	}
	if !p.expect(token.RParen, "SELECT CASE") {
		return nil
	}
	caseEnd := func() bool {
		tok := p.stmtTok()
		return tok == token.CASE || tok.IsEndOrElse()
	}
	for !p.IsDone() {
		p.skipNewlinesAndComments()
		if !p.currentTokenIs(token.CASE) {
			break
		}
		clause := ast.CaseClause{}
		clauseStart := p.current.start
		p.nextToken()
		if p.consumeIf(token.DEFAULT) {
			clause.IsDefault = true
		} else if p.expect(token.LParen, "CASE selector") {
			values, err := parseCommaSeparatedList(p, token.RParen, p.parseCaseValue)
			if err != nil {
				p.addError(err.Error())
			}
			clause.Values = values
			p.expect(token.RParen, "CASE selector")
		}
		p.consumeConstructName()
		clause.Body = p.parseBlock(caseEnd, nil)
		clause.Position = ast.Pos(clauseStart, p.current.start)
		stmt.Cases = append(stmt.Cases, clause)
	}
	stmt.Position = ast.Pos(start.Pos, p.current.start)
	p.expectEndConstruct(token.SELECT, token.ENDSELECT, start)
	p.consumeConstructName()
	return stmt
}

// parseCaseValue parses a CASE value or range `lo:hi`, `lo:` or `:hi`.
func (p *Parser90) parseCaseValue() (ast.Expression, error) {
	start := p.current.start
	var lo ast.Expression
	if !p.currentTokenIs(token.Colon) {
		lo = p.parseExpression(precLowest)
		if lo == nil {
			return nil, fmt.Errorf("expected CASE value, got %s", p.current.tok)
		}
		if !p.currentTokenIs(token.Colon) {
			return lo, nil
		}
	}
	p.nextToken()
	rng := &ast.RangeExpr{Start: lo}
	if !p.loopWhile(token.Comma, token.RParen) {
		rng.End = p.parseExpression(precLowest)
	}
	rng.Position = ast.Pos(start, p.current.start)
	return rng, nil
}

// parseCallStmt parses a CALL statement.
// Precondition: current token is CALL
func (p *Parser90) parseCallStmt() ast.Statement {
	start := p.current.start
	p.expect(token.CALL, "")
	name, ok := p.identifier("subroutine name")
	if !ok {
		return nil
	}
	stmt := &ast.CallStmt{Name: name}
	if p.consumeIf(token.LParen) {
		args, err := parseCommaSeparatedList(p, token.RParen, p.parseCallArg)
		if err != nil {
			p.addError(err.Error())
		}
		stmt.Args = args
		p.expect(token.RParen, "CALL arguments")
	}
	stmt.Position = ast.Pos(start, p.current.start)
	return stmt
}

// parseCallArg parses an actual argument, including the alternate return `*10`.
func (p *Parser90) parseCallArg() (ast.Expression, error) {
	if p.currentTokenIs(token.Asterisk) && p.peekTokenIs(token.IntLit) {
		start := p.current.start
		p.nextToken()
		label := string(p.current.lit)
		p.nextToken()
		return &ast.Identifier{Value: "*" + label, Position: ast.Pos(start, p.current.start)}, nil
	}
	return p.parseOneArg()
}

func (p *Parser90) parseReturnStmt() ast.Statement {
	stmt := &ast.ReturnStmt{Position: p.singleTokenPos()}
	p.expect(token.RETURN, "")
	if !p.atEndOfStatement() {
		p.parseExpression(precLowest) // Alternate return index.
	}
	return stmt
}

func (p *Parser90) parseStopStmt() ast.Statement {
	start := p.current.start
	p.expect(token.STOP, "")
	stmt := &ast.StopStmt{}
	if !p.atEndOfStatement() {
		stmt.Code = p.parseExpression(precLowest)
	}
	stmt.Position = ast.Pos(start, p.current.start)
	return stmt
}

// parsePrintStmt parses `PRINT fmt [, items]`.
// Precondition: current token is PRINT
func (p *Parser90) parsePrintStmt() ast.Statement {
	start := p.current.start
	p.expect(token.PRINT, "")
	stmt := &ast.PrintStmt{}
	if !p.consumeIf(token.Asterisk) {
		stmt.Format = p.parseExpression(precLowest)
		if stmt.Format == nil {
			p.addError("expected PRINT format")
			return nil
		}
	}
	if p.consumeIf(token.Comma) {
		stmt.OutputList = p.parseOutputList()
	}
	stmt.Position = ast.Pos(start, p.current.start)
	return stmt
}

// parseWriteStmt parses `WRITE(unit, fmt, ...) items`. Control items other
// than the unit and the format are ignored.
// Precondition: current token is WRITE
func (p *Parser90) parseWriteStmt() ast.Statement {
	start := p.current.start
	p.expect(token.WRITE, "")
	if !p.expect(token.LParen, "WRITE control list") {
		return nil
	}
	stmt := &ast.WriteStmt{}
	controls, err := parseCommaSeparatedList(p, token.RParen, p.parseOneArg)
	if err != nil {
		p.addError(err.Error())
		return nil
	}
	p.expect(token.RParen, "WRITE control list")
	positional := 0
	for _, c := range controls {
		if kw, ok := c.(*ast.KeywordArg); ok {
			switch strings.ToUpper(kw.Name) {
			case "UNIT":
				stmt.Unit = starToNil(kw.Value)
			case "FMT":
				stmt.Format = starToNil(kw.Value)
			}
			continue
		}
		switch positional {
		case 0:
			stmt.Unit = starToNil(c)
		case 1:
			stmt.Format = starToNil(c)
		}
		positional++
	}
	p.consumeIf(token.Comma)
	if !p.atEndOfStatement() {
		stmt.OutputList = p.parseOutputList()
	}
	stmt.Position = ast.Pos(start, p.current.start)
	return stmt
}

func starToNil(e ast.Expression) ast.Expression {
	if id, ok := e.(*ast.Identifier); ok && id.Value == "*" {
		return nil
	}
	return e
}

// parseOutputList parses an I/O item list up to the end of the statement.
func (p *Parser90) parseOutputList() []ast.Expression {
	var items []ast.Expression
	for !p.atEndOfStatement() && !p.IsDone() {
		item := p.parseExpression(precLowest)
		if item == nil {
			p.addError("expected output item, got " + p.current.tok.String())
			return items
		}
		items = append(items, item)
		if !p.consumeIf(token.Comma) {
			break
		}
	}
	return items
}

// parseAllocateStmt parses `ALLOCATE(a(n), b(n,m), STAT=ierr)`.
// Precondition: current token is ALLOCATE
func (p *Parser90) parseAllocateStmt() ast.Statement {
	start := p.current.start
	p.expect(token.ALLOCATE, "")
	objects, options := p.parseAllocationList("ALLOCATE")
	return &ast.AllocateStmt{Objects: objects, Options: options, Position: ast.Pos(start, p.current.start)}
}

// parseDeallocateStmt parses `DEALLOCATE(a, b, STAT=ierr)`.
// Precondition: current token is DEALLOCATE
func (p *Parser90) parseDeallocateStmt() ast.Statement {
	start := p.current.start
	p.expect(token.DEALLOCATE, "")
	objects, options := p.parseAllocationList("DEALLOCATE")
	return &ast.DeallocateStmt{Objects: objects, Options: options, Position: ast.Pos(start, p.current.start)}
}

func (p *Parser90) parseAllocationList(context string) (objects []ast.Expression, options map[string]ast.Expression) {
	if !p.expect(token.LParen, context) {
		return nil, nil
	}
	items, err := parseCommaSeparatedList(p, token.RParen, p.parseOneArg)
	if err != nil {
		p.addError(err.Error())
	}
	p.expect(token.RParen, context)
	for _, item := range items {
		if kw, ok := item.(*ast.KeywordArg); ok {
			if options == nil {
				options = make(map[string]ast.Expression)
			}
			options[strings.ToUpper(kw.Name)] = kw.Value
			continue
		}
		objects = append(objects, item)
	}
	return objects, options
}
