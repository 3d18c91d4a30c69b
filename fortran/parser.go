package fortran

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/soypat/polyglot/fortran/ast"
	"github.com/soypat/polyglot/fortran/token"
)

type ParserError struct {
	sp  sourcePos
	msg string
}

func (pe *ParserError) Error() string {
	var dst []byte
	dst = pe.sp.AppendString(dst)
	dst = append(dst, ':', ' ')
	dst = append(dst, pe.msg...)
	return string(dst)
}

type sourcePos struct {
	Source string
	Line   int
	Col    int
	Pos    int
}

func (l *sourcePos) String() string {
	return string(l.AppendString(nil))
}

func (l *sourcePos) AppendString(b []byte) []byte {
	if b == nil {
		b = make([]byte, 0, len(l.Source)+3+3)
	}
	b = append(b, l.Source...)
	b = append(b, ':')
	b = strconv.AppendInt(b, int64(l.Line), 10)
	if l.Col > 0 {
		b = append(b, ':')
		b = strconv.AppendInt(b, int64(l.Col), 10)
	}
	return b
}

// Parser90 is a recursive descent parser for free form Fortran 90 and, after
// [NormalizeFixedForm], fixed form Fortran 77. Errors are collected rather
// than returned; see [Parser90.Errors].
type Parser90 struct {
	l        Lexer90
	src      []byte
	current  toktuple
	peek     toktuple
	uberpeek toktuple
	stmtFns  map[token.Token]statementParseFn // Program unit parsers.
	pending  ast.ProgramUnit                  // Unit parsed ahead of its leading comments.
	errors   []ParserError                    // Collected parsing errors

	maxErrs     int
	nStatements int
	// nSamePosCheckCount counts amount of times a check was performed on the same position
	// after reaching a threshold the parser dies.
	nSamePosCheckCount int
	lastPosCheck       int
	died               bool
}

type statementParseFn func() ast.Statement

type toktuple struct {
	tok   token.Token
	start int
	lit   []byte
	line  int // Line number where this token starts
	col   int // Column number where this token starts
}

// Reset discards parser state and begins parsing src. source names the
// input in error messages.
func (p *Parser90) Reset(source string, src []byte) error {
	err := p.l.Reset(source, bytes.NewReader(src))
	if err != nil {
		return err
	}
	if p.stmtFns == nil {
		p.stmtFns = make(map[token.Token]statementParseFn)
	}
	if p.maxErrs == 0 {
		p.maxErrs = 20
	}
	*p = Parser90{
		l:       p.l,
		src:     src,
		maxErrs: p.maxErrs,
		stmtFns: p.stmtFns,
		errors:  p.errors[:0],
	}
	clear(p.stmtFns)

	// Fill current, peek and uberpeek.
	p.nextToken()
	p.nextToken()
	p.nextToken()

	p.registerTopLevelParsers()
	return nil
}

func (p *Parser90) nextToken() {
	if p.current.tok == token.EOF {
		return
	}
	tok, start, lit := p.l.NextToken()
	line, col := p.l.TokenLineCol()
	// Cycle buffers towards current. The latest peek will use current buffer.
	currBuf := p.current.lit
	p.current = p.peek
	p.peek = p.uberpeek

	p.uberpeek.lit = append(currBuf[:0], lit...)
	p.uberpeek.start = start
	p.uberpeek.tok = tok
	p.uberpeek.line = line
	p.uberpeek.col = col
	if tok == token.Illegal {
		msg := "illegal token"
		if p.l.Err() != nil {
			msg = p.l.Err().Error()
		}
		p.addErrorWithPos(p.l.sourcePos(), msg)
	}
}

// posCheck is called in control structure methods like loop*, currentTokenIs, consumeIf* methods.
// Should not be called from higher level parser functions.
func (p *Parser90) posCheck() {
	if p.current.start == p.lastPosCheck {
		p.nSamePosCheckCount++
		if p.nSamePosCheckCount == 100000 {
			p.addErrorFatal("parser stuck in forever loop")
		}
	} else {
		p.lastPosCheck = p.current.start
		p.nSamePosCheckCount = 0
	}
}

func (p *Parser90) sourcePos() sourcePos {
	return sourcePos{
		Source: p.l.Source(),
		Line:   p.current.line,
		Col:    p.current.col,
		Pos:    p.current.start,
	}
}

// IsDone returns true if the parser is done parsing, whether it be by EOF or error(s) encountered.
func (p *Parser90) IsDone() bool {
	p.posCheck()
	return p.died || p.current.tok == token.EOF || len(p.errors) >= p.maxErrs
}

func (p *Parser90) registerStatement(tokenType token.Token, fn statementParseFn) {
	p.stmtFns[tokenType] = fn
}

// ParseNextProgramUnit parses and returns the next program unit from the input.
// Returns nil when EOF is reached or no more units are available.
// Statements found outside of any unit form a main program with no name.
// Comments preceding a named unit are returned first as a nameless
// ProgramBlock holding only the comments.
func (p *Parser90) ParseNextProgramUnit() (unit ast.ProgramUnit) {
	if p.pending != nil {
		unit, p.pending = p.pending, nil
		return unit
	}
	for !p.IsDone() && unit == nil {
		var leading []ast.Statement
		for p.loopWhile(token.NewLine, token.Semicolon, token.LineComment) {
			if p.currentTokenIs(token.LineComment) {
				leading = append(leading, p.parseComment())
				continue
			}
			p.nextToken()
		}
		if p.IsDone() {
			if len(leading) > 0 && !p.died {
				return commentBlock(leading)
			}
			break
		}
		unit = p.parseTopLevelUnit()
		if main, ok := unit.(*ast.ProgramBlock); ok && main.Name == "" {
			main.Body = append(leading, main.Body...)
		} else if unit != nil && len(leading) > 0 {
			p.pending = unit
			unit = commentBlock(leading)
		}
		p.skipNewlines()
	}
	return unit
}

func commentBlock(comments []ast.Statement) *ast.ProgramBlock {
	return &ast.ProgramBlock{
		Body:     comments,
		Position: ast.Pos(comments[0].SourcePos().Start(), comments[len(comments)-1].SourcePos().End()),
	}
}

// ParseProgram parses all program units in the input.
func (p *Parser90) ParseProgram() *ast.Program {
	prog := &ast.Program{}
	for {
		unit := p.ParseNextProgramUnit()
		if unit == nil {
			break
		}
		prog.Units = append(prog.Units, unit)
	}
	return prog
}

// registerTopLevelParsers registers all program unit parsing functions
func (p *Parser90) registerTopLevelParsers() {
	p.registerStatement(token.PROGRAM, p.parseProgramBlock)
	p.registerStatement(token.SUBROUTINE, p.parseSubroutine)
	p.registerStatement(token.FUNCTION, p.parseFunction)
	p.registerStatement(token.MODULE, p.parseModule)

	// Type keywords that can prefix FUNCTION.
	p.registerStatement(token.INTEGER, p.parseTypePrefixedConstruct)
	p.registerStatement(token.REAL, p.parseTypePrefixedConstruct)
	p.registerStatement(token.LOGICAL, p.parseTypePrefixedConstruct)
	p.registerStatement(token.CHARACTER, p.parseTypePrefixedConstruct)
	p.registerStatement(token.DOUBLE, p.parseTypePrefixedConstruct)
	p.registerStatement(token.DOUBLEPRECISION, p.parseTypePrefixedConstruct)
	p.registerStatement(token.COMPLEX, p.parseTypePrefixedConstruct)

	// Attributes that can prefix procedures.
	p.registerStatement(token.RECURSIVE, p.parseProcedureWithAttributes)
	p.registerStatement(token.PURE, p.parseProcedureWithAttributes)
	p.registerStatement(token.ELEMENTAL, p.parseProcedureWithAttributes)
}

// parseTopLevelUnit dispatches to the registered unit parser, or parses a
// main program without a PROGRAM statement.
func (p *Parser90) parseTopLevelUnit() ast.ProgramUnit {
	if p.IsDone() {
		return nil
	}
	stmtFn := p.stmtFns[p.current.tok]
	if stmtFn == nil || p.peekTokenIs(token.Equals) || p.peekTokenIs(token.PointerAssign) {
		return p.parseMainProgram(nil)
	}
	stmt := stmtFn()
	if unit, ok := stmt.(ast.ProgramUnit); ok {
		return unit
	}
	if stmt != nil {
		p.addError("statement is not a program unit")
	}
	return nil
}

// Helper methods

func (p *Parser90) loopUntilEndElseOr(t ...token.Token) bool {
	p.posCheck()
	return !p.current.tok.IsEndOrElse() && p.loopUntil(t...)
}

// loopUntil returns true as long as current token not in set and EOF not hit.
func (p *Parser90) loopUntil(t ...token.Token) bool {
	if p.IsDone() {
		return false
	}
	for i := range t {
		if t[i] == p.current.tok {
			return false
		}
	}
	return true
}

func (p *Parser90) loopWhile(t ...token.Token) bool {
	if p.IsDone() {
		return false
	}
	for i := range t {
		if t[i] == p.current.tok {
			return true
		}
	}
	return false
}

func (p *Parser90) currentTokenIs(t token.Token) bool {
	p.posCheck()
	return p.current.tok == t
}

func (p *Parser90) peekTokenIs(t token.Token) bool {
	p.posCheck()
	return p.peek.tok == t
}

func (p *Parser90) expectCurrent(t token.Token) bool {
	if !p.currentTokenIs(t) {
		p.addError("expected " + t.String() + ", got " + p.current.tok.String())
		return false
	}
	return true
}

// expect checks if current token matches t, consumes it if so, and reports error if not.
// Returns true if token matched and was consumed, false otherwise.
func (p *Parser90) expect(t token.Token, reason string) bool {
	if !p.currentTokenIs(t) {
		msg := "expected " + t.String() + ", got " + p.current.tok.String()
		if reason != "" {
			msg = reason + ": " + msg
		}
		p.addError(msg)
		return false
	}
	p.nextToken()
	return true
}

// consumeIf consumes the current token if it matches t, otherwise does nothing.
// Use this for optional tokens where absence is not an error.
func (p *Parser90) consumeIf(t token.Token) bool {
	if p.currentTokenIs(t) {
		p.nextToken()
		return true
	}
	return false
}

// consumeIf2 is same as consumeIf but must match current and peek token to consume at least 2 tokens.
func (p *Parser90) consumeIf2(current, next token.Token) bool {
	if p.currentTokenIs(current) && p.peekTokenIs(next) {
		p.nextToken()
		p.nextToken()
		return true
	}
	return false
}

// stmtTok returns the first token of the current statement past an
// optional statement label.
func (p *Parser90) stmtTok() token.Token {
	if p.current.tok == token.IntLit {
		return p.peek.tok
	}
	return p.current.tok
}

// consumeEndLabel consumes the label of a labelled END or ELSE statement
// and returns it.
func (p *Parser90) consumeEndLabel() string {
	if p.current.tok == token.IntLit && p.peek.tok.IsEndOrElse() {
		label := string(p.current.lit)
		p.nextToken()
		return label
	}
	return ""
}

// expectEndConstruct handles END <keyword> for control flow constructs (IF, DO, SELECT).
// Accepts both F77 style (ENDIF, ENDDO) and F90 style (END IF, END DO) forms.
// An END without the keyword is not consumed: it belongs to the enclosing unit.
func (p *Parser90) expectEndConstruct(keyword, singleEndForm token.Token, start sourcePos) bool {
	p.consumeEndLabel()
	if p.consumeIf(singleEndForm) || p.consumeIf2(token.END, keyword) {
		return true
	}
	if p.currentTokenIs(token.END) {
		p.addErrorWithPos(start, keyword.String()+" construct is missing END "+keyword.String())
		return false
	}
	p.addError("expected END " + keyword.String() + ", got " + p.current.tok.String())
	return false
}

// isEndOfProgramUnit reports whether the current statement ends a program unit.
func (p *Parser90) isEndOfProgramUnit() bool {
	switch p.stmtTok() {
	case token.ENDPROGRAM, token.ENDSUBROUTINE, token.ENDFUNCTION, token.ENDMODULE, token.CONTAINS:
		return true
	case token.END:
		next := p.peek.tok
		if p.current.tok == token.IntLit {
			next = p.uberpeek.tok
		}
		switch next {
		case token.NewLine, token.Semicolon, token.LineComment, token.EOF,
			token.PROGRAM, token.SUBROUTINE, token.FUNCTION, token.MODULE:
			return true
		}
	}
	return false
}

// expectEndProgramUnit handles END [keyword [name]] for program units.
func (p *Parser90) expectEndProgramUnit(keyword, composite token.Token, context string) bool {
	p.consumeEndLabel()
	if p.consumeIf(composite) {
		p.consumeUnitName()
		return true
	}
	if !p.expect(token.END, context) {
		return false
	}
	if p.consumeIf(keyword) {
		p.consumeUnitName()
	}
	return true
}

func (p *Parser90) consumeUnitName() {
	if p.current.tok.CanBeUsedAsIdentifier() {
		p.nextToken()
	}
}

func (p *Parser90) skipNewlines() {
	for p.loopWhile(token.NewLine, token.Semicolon) {
		p.nextToken()
	}
}

func (p *Parser90) skipNewlinesAndComments() {
	for p.loopWhile(token.NewLine, token.Semicolon, token.LineComment) {
		p.nextToken()
	}
}

// skipToNextStatement skips tokens until the end of the current statement.
func (p *Parser90) skipToNextStatement() {
	for p.loopUntil(token.NewLine, token.Semicolon, token.LineComment) {
		p.nextToken()
	}
	p.consumeIf(token.NewLine)
	p.consumeIf(token.Semicolon)
}

// atEndOfStatement reports whether the current token ends a statement.
func (p *Parser90) atEndOfStatement() bool {
	switch p.current.tok {
	case token.NewLine, token.Semicolon, token.LineComment, token.EOF:
		return true
	}
	return false
}

func (p *Parser90) addErrorWithPos(pos sourcePos, msg string) {
	if p.died {
		msg = "got error with terminated parser: " + msg
	}
	p.errors = append(p.errors, ParserError{
		sp:  pos,
		msg: msg,
	})
}

func (p *Parser90) addErrorFatal(msg string) {
	if !p.died {
		msg = "token state: " + p.strToks() + ": fatal error encountered, terminating run early: " + msg
	}
	p.addError(msg)
	p.died = true
}

func (p *Parser90) addError(msg string) {
	p.addErrorWithPos(p.sourcePos(), msg)
}

func (p *Parser90) Errors() []ParserError {
	return p.errors
}

func (p *Parser90) strToks() string {
	return fmt.Sprintf("%q %s %q %s %q %s", p.current.lit, p.current.tok,
		p.peek.lit, p.peek.tok, p.uberpeek.lit, p.uberpeek.tok)
}

// canUseAsIdentifier returns true if the current token can be used as an identifier.
// In Fortran, keywords can be used as variable/function/subroutine names in many contexts.
func (p *Parser90) canUseAsIdentifier() bool {
	return p.current.tok.CanBeUsedAsIdentifier()
}

// identifier consumes the current token as a name.
func (p *Parser90) identifier(context string) (string, bool) {
	if !p.canUseAsIdentifier() {
		p.addError("expected " + context + ", got " + p.current.tok.String())
		return "", false
	}
	name := string(p.current.lit)
	p.nextToken()
	return name, true
}

// parseParameterList parses a dummy argument list like (a, b, c).
func (p *Parser90) parseParameterList() []ast.Parameter {
	var params []ast.Parameter
	if !p.expect(token.LParen, "opening parameter list") {
		return params
	}
	parseOneParam := func() (ast.Parameter, error) {
		if p.consumeIf(token.Asterisk) {
			return ast.Parameter{Name: "*"}, nil // F77 alternate return.
		}
		if !p.canUseAsIdentifier() {
			return ast.Parameter{}, fmt.Errorf("expected parameter name, got %s", p.current.tok)
		}
		name := string(p.current.lit)
		p.nextToken()
		return ast.Parameter{Name: name}, nil
	}
	params, err := parseCommaSeparatedList(p, token.RParen, parseOneParam)
	if err != nil {
		p.addError(err.Error())
	}
	p.expect(token.RParen, "closing parameter list")
	return params
}

// parseUnitBody parses the statements of a program unit up to its END or CONTAINS.
func (p *Parser90) parseUnitBody() []ast.Statement {
	return p.parseBlock(p.isEndOfProgramUnit, nil)
}

// parseBlock parses statements until done reports true or, if stopAfter is
// not nil, until stopAfter reports true for a parsed statement.
// Comment lines are kept as CommentStmt.
func (p *Parser90) parseBlock(done func() bool, stopAfter func(ast.Statement) bool) []ast.Statement {
	var body []ast.Statement
	for !p.IsDone() {
		p.skipNewlines()
		if p.currentTokenIs(token.LineComment) {
			body = append(body, p.parseComment())
			continue
		}
		if p.IsDone() || done() {
			break
		}
		stmt := p.parseStatement()
		if stmt == nil {
			p.skipToNextStatement()
			continue
		}
		p.nStatements++
		body = append(body, stmt)
		if !p.atEndOfStatement() && !p.current.tok.IsEndOrElse() {
			p.addError("unexpected " + p.current.tok.String() + " after statement")
			p.skipToNextStatement()
		}
		if stopAfter != nil && stopAfter(stmt) {
			break
		}
	}
	return body
}

func (p *Parser90) parseComment() ast.Statement {
	stmt := &ast.CommentStmt{
		Text:     string(p.current.lit),
		Position: ast.Pos(p.current.start, p.current.start+1+len(p.current.lit)),
	}
	p.nextToken()
	return stmt
}

// parseContains parses the procedures following CONTAINS, if present.
func (p *Parser90) parseContains() []ast.ProgramUnit {
	if !p.consumeIf(token.CONTAINS) {
		return nil
	}
	var units []ast.ProgramUnit
	for {
		p.skipNewlinesAndComments()
		if p.IsDone() || p.isEndOfProgramUnit() {
			break
		}
		unit := p.parseProcedure()
		if unit == nil {
			p.skipToNextStatement()
			continue
		}
		units = append(units, unit)
	}
	return units
}

// parseProcedure parses a SUBROUTINE or FUNCTION with optional prefixes.
func (p *Parser90) parseProcedure() ast.ProgramUnit {
	var stmt ast.Statement
	switch {
	case p.currentTokenIs(token.SUBROUTINE):
		stmt = p.parseSubroutine()
	case p.currentTokenIs(token.FUNCTION):
		stmt = p.parseFunction()
	case p.current.tok.IsAttributeKeyword():
		stmt = p.parseProcedureWithAttributes()
	case p.current.tok.IsTypeDeclaration():
		stmt = p.parseTypePrefixedConstruct()
	default:
		p.addError("expected SUBROUTINE or FUNCTION, got " + p.current.tok.String())
		return nil
	}
	unit, _ := stmt.(ast.ProgramUnit)
	return unit
}

// parseProgramBlock parses a PROGRAM...END PROGRAM block
// Precondition: current token is PROGRAM
func (p *Parser90) parseProgramBlock() ast.Statement {
	start := p.current.start
	block := &ast.ProgramBlock{}
	p.expect(token.PROGRAM, "")
	name, ok := p.identifier("program name")
	if !ok {
		return nil
	}
	block.Name = name
	block.Body = p.parseUnitBody()
	block.Contains = p.parseContains()
	block.Position = ast.Pos(start, p.current.start)
	p.expectEndProgramUnit(token.PROGRAM, token.ENDPROGRAM, "PROGRAM end")
	return block
}

// parseMainProgram parses statements outside any unit as a main program
// without a name. first, when not nil, was already parsed.
func (p *Parser90) parseMainProgram(first ast.Statement) ast.ProgramUnit {
	start := p.current.start
	block := &ast.ProgramBlock{}
	if first != nil {
		start = first.SourcePos().Start()
		block.Body = append(block.Body, first)
		if !p.atEndOfStatement() {
			p.addError("unexpected " + p.current.tok.String() + " after statement")
			p.skipToNextStatement()
		}
	}
	block.Body = append(block.Body, p.parseUnitBody()...)
	block.Contains = p.parseContains()
	block.Position = ast.Pos(start, p.current.start)
	if p.current.tok != token.EOF {
		p.expectEndProgramUnit(token.PROGRAM, token.ENDPROGRAM, "main program end")
	}
	return block
}

// parseSubroutine parses a SUBROUTINE...END SUBROUTINE block
// Precondition: current token is SUBROUTINE
func (p *Parser90) parseSubroutine() ast.Statement {
	start := p.current.start
	sub := &ast.Subroutine{}
	p.expect(token.SUBROUTINE, "")
	name, ok := p.identifier("subroutine name")
	if !ok {
		return nil
	}
	sub.Name = name
	if p.currentTokenIs(token.LParen) {
		sub.Parameters = p.parseParameterList()
	}
	sub.Body = p.parseUnitBody()
	sub.Contains = p.parseContains()
	resolveIntents(sub.Parameters, sub.Body)
	sub.Position = ast.Pos(start, p.current.start)
	p.expectEndProgramUnit(token.SUBROUTINE, token.ENDSUBROUTINE, "subroutine end")
	return sub
}

// parseFunction parses a FUNCTION...END FUNCTION block
// Precondition: current token is FUNCTION
func (p *Parser90) parseFunction() ast.Statement {
	start := p.current.start
	fn := &ast.Function{}
	p.expect(token.FUNCTION, "")
	name, ok := p.identifier("function name")
	if !ok {
		return nil
	}
	fn.Name = name
	if p.currentTokenIs(token.LParen) {
		fn.Parameters = p.parseParameterList()
	}
	if p.consumeIf(token.RESULT) {
		if p.expect(token.LParen, "RESULT open") {
			fn.ResultVariable, _ = p.identifier("result variable")
			p.expect(token.RParen, "RESULT close")
		}
	}
	fn.Body = p.parseUnitBody()
	fn.Contains = p.parseContains()
	resolveIntents(fn.Parameters, fn.Body)
	fn.Position = ast.Pos(start, p.current.start)
	p.expectEndProgramUnit(token.FUNCTION, token.ENDFUNCTION, "FUNCTION end")
	return fn
}

// parseModule parses a MODULE...END MODULE block
// Precondition: current token is MODULE
func (p *Parser90) parseModule() ast.Statement {
	start := p.current.start
	mod := &ast.Module{}
	p.expect(token.MODULE, "")
	name, ok := p.identifier("module name")
	if !ok {
		return nil
	}
	mod.Name = name
	mod.Body = p.parseUnitBody()
	mod.Contains = p.parseContains()
	mod.Position = ast.Pos(start, p.current.start)
	p.expectEndProgramUnit(token.MODULE, token.ENDMODULE, "MODULE end")
	return mod
}

// parseTypePrefixedConstruct handles type-prefixed functions like "INTEGER FUNCTION foo()".
// A type declaration at the top level starts a main program.
func (p *Parser90) parseTypePrefixedConstruct() ast.Statement {
	start := p.current.start
	spec, ok := p.parseTypeSpec(false)
	if !ok {
		return nil
	}
	var attrs []token.Token
	for p.current.tok.IsAttributeKeyword() {
		attrs = append(attrs, p.current.tok)
		p.nextToken()
	}
	if p.currentTokenIs(token.FUNCTION) {
		stmt := p.parseFunction()
		fn, ok := stmt.(*ast.Function)
		if !ok {
			return nil
		}
		fn.ResultType = &spec
		fn.Attributes = attrs
		fn.Position = ast.Pos(start, fn.End())
		return fn
	}
	if len(attrs) > 0 {
		p.addError("expected FUNCTION after procedure attributes")
		return nil
	}
	decl := p.parseTypeDeclRest(start, spec)
	if decl == nil {
		return nil
	}
	return p.parseMainProgram(decl)
}

// parseProcedureWithAttributes handles procedures with attributes like RECURSIVE, PURE, ELEMENTAL
func (p *Parser90) parseProcedureWithAttributes() ast.Statement {
	start := p.current.start
	var attributes []token.Token
	for p.current.tok.IsAttributeKeyword() && !p.IsDone() {
		attributes = append(attributes, p.current.tok)
		p.nextToken()
	}
	var resultType *ast.TypeSpec
	if p.current.tok.IsTypeDeclaration() {
		spec, ok := p.parseTypeSpec(false)
		if !ok {
			return nil
		}
		resultType = &spec
	}
	for p.current.tok.IsAttributeKeyword() {
		attributes = append(attributes, p.current.tok)
		p.nextToken()
	}
	switch {
	case p.currentTokenIs(token.SUBROUTINE) && resultType == nil:
		stmt := p.parseSubroutine()
		if sub, ok := stmt.(*ast.Subroutine); ok {
			sub.Attributes = attributes
			sub.Position = ast.Pos(start, sub.End())
			return sub
		}
	case p.currentTokenIs(token.FUNCTION):
		stmt := p.parseFunction()
		if fn, ok := stmt.(*ast.Function); ok {
			fn.Attributes = attributes
			fn.ResultType = resultType
			fn.Position = ast.Pos(start, fn.End())
			return fn
		}
	default:
		p.addError("expected SUBROUTINE or FUNCTION after attributes")
	}
	return nil
}

// resolveIntents fills in the intent of dummy arguments from INTENT
// attributes and f2py directive comments found in body.
func resolveIntents(params []ast.Parameter, body []ast.Statement) {
	if len(params) == 0 {
		return
	}
	set := func(name string, intent ast.IntentType, directive bool) {
		for i := range params {
			if strings.EqualFold(params[i].Name, name) {
				params[i].Intent = intent
				params[i].Directive = directive
			}
		}
	}
	for _, stmt := range body {
		switch s := stmt.(type) {
		case *ast.TypeDeclaration:
			if s.Intent == ast.IntentDefault {
				continue
			}
			for _, entity := range s.Entities {
				set(entity.Name, s.Intent, false)
			}
		case *ast.CommentStmt:
			intent, names, ok := parseDirective(s.Text)
			if !ok {
				continue
			}
			for _, name := range names {
				set(name, intent, true)
			}
		}
	}
}

// rawText returns the source text between byte offsets start and end.
func (p *Parser90) rawText(start, end int) string {
	if start < 0 || end > len(p.src) || start > end {
		return ""
	}
	return strings.TrimSpace(string(p.src[start:end]))
}

// parseCommaSeparatedList parses items separated by commas until terminator
// parser is a function that parses one item
func parseCommaSeparatedList[T any](p *Parser90, terminator token.Token, parser func() (T, error)) ([]T, error) {
	var items []T
	for p.loopUntilEndElseOr(terminator, token.NewLine) {
		item, err := parser()
		if err != nil {
			return items, err
		}
		items = append(items, item)
		if p.currentTokenIs(token.Comma) {
			p.nextToken()
		} else if !p.currentTokenIs(terminator) {
			return items, fmt.Errorf("expected ',' or '%s', got %s", terminator, p.current.tok)
		}
	}
	return items, nil
}
