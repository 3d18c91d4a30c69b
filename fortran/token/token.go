// Package token defines the lexical tokens of Fortran 77 and Fortran 90.
package token

import "bytes"

type Token int

// List of all tokens of the Fortran programming language.
// When adding a new token add it in between blocks since we use comparison functions to check properties of tokens.
const (
	// Not to be used in code. Is to catch uninitialized tokens.
	Undefined Token = iota

	// ==================== KEYWORDS ====================

	// Type declaration keywords
	INTEGER
	REAL
	COMPLEX
	LOGICAL
	CHARACTER
	DOUBLE
	PRECISION
	DOUBLEPRECISION

	// Program structure keywords
	PROGRAM
	END
	ENDPROGRAM
	SUBROUTINE
	ENDSUBROUTINE
	FUNCTION
	ENDFUNCTION
	MODULE
	ENDMODULE
	CONTAINS

	// Control flow keywords
	IF
	THEN
	ELSE
	ELSEIF
	ENDIF
	DO
	ENDDO
	WHILE
	SELECT
	CASE
	DEFAULT
	ENDSELECT
	CYCLE
	EXIT
	GOTO
	CONTINUE
	RETURN
	STOP

	// I/O keywords
	READ
	WRITE
	PRINT
	FORMAT

	// Declaration and specification keywords
	IMPLICIT
	PARAMETER
	DIMENSION
	DATA
	COMMON
	EXTERNAL
	INTRINSIC
	SAVE
	TYPE
	ENDTYPE
	USE
	ONLY
	PRIVATE
	PUBLIC

	// Miscellaneous keywords
	CALL

	// ==================== ATTRIBUTES (F90) ====================

	INTENT
	IN
	OUT
	INOUT
	OPTIONAL
	POINTER
	TARGET
	ALLOCATABLE
	ALLOCATE
	DEALLOCATE
	RECURSIVE
	ELEMENTAL
	PURE
	RESULT
	KIND
	LEN

	// ==================== OPERATORS ====================

	// Arithmetic operators
	Plus
	Minus
	Asterisk
	Slash
	DoubleStar

	// Assignment operators
	Equals
	PointerAssign

	// Relational operators (Fortran 77 style)
	EQ
	NE
	LT
	LE
	GT
	GE

	// Relational operators (Fortran 90 style)
	EqEq
	NotEquals
	Less
	LessEq
	Greater
	GreaterEq

	// Logical operators
	AND
	OR
	NOT
	EQV
	NEQV

	// String operator
	StringConcat

	// ==================== DELIMITERS / PUNCTUATION ====================

	LParen
	RParen
	Comma
	Colon
	DoubleColon
	Semicolon
	Percent
	LBracket
	RBracket

	// ==================== LITERALS ====================

	TRUE
	FALSE
	Identifier
	IntLit
	FloatLit
	StringLit

	// ==================== SPECIAL TOKENS ====================

	LineComment
	NewLine
	EOF
	Illegal
	numToks
)

var names = [numToks]string{
	Undefined:       "<undefined>",
	INTEGER:         "INTEGER",
	REAL:            "REAL",
	COMPLEX:         "COMPLEX",
	LOGICAL:         "LOGICAL",
	CHARACTER:       "CHARACTER",
	DOUBLE:          "DOUBLE",
	PRECISION:       "PRECISION",
	DOUBLEPRECISION: "DOUBLEPRECISION",
	PROGRAM:         "PROGRAM",
	END:             "END",
	ENDPROGRAM:      "ENDPROGRAM",
	SUBROUTINE:      "SUBROUTINE",
	ENDSUBROUTINE:   "ENDSUBROUTINE",
	FUNCTION:        "FUNCTION",
	ENDFUNCTION:     "ENDFUNCTION",
	MODULE:          "MODULE",
	ENDMODULE:       "ENDMODULE",
	CONTAINS:        "CONTAINS",
	IF:              "IF",
	THEN:            "THEN",
	ELSE:            "ELSE",
	ELSEIF:          "ELSEIF",
	ENDIF:           "ENDIF",
	DO:              "DO",
	ENDDO:           "ENDDO",
	WHILE:           "WHILE",
	SELECT:          "SELECT",
	CASE:            "CASE",
	DEFAULT:         "DEFAULT",
	ENDSELECT:       "ENDSELECT",
	CYCLE:           "CYCLE",
	EXIT:            "EXIT",
	GOTO:            "GOTO",
	CONTINUE:        "CONTINUE",
	RETURN:          "RETURN",
	STOP:            "STOP",
	READ:            "READ",
	WRITE:           "WRITE",
	PRINT:           "PRINT",
	FORMAT:          "FORMAT",
	IMPLICIT:        "IMPLICIT",
	PARAMETER:       "PARAMETER",
	DIMENSION:       "DIMENSION",
	DATA:            "DATA",
	COMMON:          "COMMON",
	EXTERNAL:        "EXTERNAL",
	INTRINSIC:       "INTRINSIC",
	SAVE:            "SAVE",
	TYPE:            "TYPE",
	ENDTYPE:         "ENDTYPE",
	USE:             "USE",
	ONLY:            "ONLY",
	PRIVATE:         "PRIVATE",
	PUBLIC:          "PUBLIC",
	CALL:            "CALL",
	INTENT:          "INTENT",
	IN:              "IN",
	OUT:             "OUT",
	INOUT:           "INOUT",
	OPTIONAL:        "OPTIONAL",
	POINTER:         "POINTER",
	TARGET:          "TARGET",
	ALLOCATABLE:     "ALLOCATABLE",
	ALLOCATE:        "ALLOCATE",
	DEALLOCATE:      "DEALLOCATE",
	RECURSIVE:       "RECURSIVE",
	ELEMENTAL:       "ELEMENTAL",
	PURE:            "PURE",
	RESULT:          "RESULT",
	KIND:            "KIND",
	LEN:             "LEN",
	Plus:            "+",
	Minus:           "-",
	Asterisk:        "*",
	Slash:           "/",
	DoubleStar:      "**",
	Equals:          "=",
	PointerAssign:   "=>",
	EQ:              ".EQ.",
	NE:              ".NE.",
	LT:              ".LT.",
	LE:              ".LE.",
	GT:              ".GT.",
	GE:              ".GE.",
	EqEq:            "==",
	NotEquals:       "/=",
	Less:            "<",
	LessEq:          "<=",
	Greater:         ">",
	GreaterEq:       ">=",
	AND:             ".AND.",
	OR:              ".OR.",
	NOT:             ".NOT.",
	EQV:             ".EQV.",
	NEQV:            ".NEQV.",
	StringConcat:    "//",
	LParen:          "(",
	RParen:          ")",
	Comma:           ",",
	Colon:           ":",
	DoubleColon:     "::",
	Semicolon:       ";",
	Percent:         "%",
	LBracket:        "[",
	RBracket:        "]",
	TRUE:            ".TRUE.",
	FALSE:           ".FALSE.",
	Identifier:      "<identifier>",
	IntLit:          "<integer>",
	FloatLit:        "<float>",
	StringLit:       "<string>",
	LineComment:     "<linecomment>",
	NewLine:         "<newline>",
	EOF:             "<EOF>",
	Illegal:         "<illegal>",
}

func (tok Token) String() string {
	if tok < 0 || tok >= numToks {
		return "Token(?)"
	}
	return names[tok]
}

// IsKeyword returns true if the token is a Fortran keyword.
func (tok Token) IsKeyword() bool {
	return tok >= INTEGER && tok <= CALL
}

// IsAttribute returns true if the token is a Fortran 90 attribute.
func (tok Token) IsAttribute() bool {
	switch tok {
	case PARAMETER, DIMENSION, SAVE, EXTERNAL, INTRINSIC, PUBLIC, PRIVATE:
		return true
	default:
		return tok >= INTENT && tok <= LEN
	}
}

// IsAttributeKeyword reports whether tok is a procedure prefix attribute.
func (tok Token) IsAttributeKeyword() bool {
	return tok == PURE || tok == RECURSIVE || tok == ELEMENTAL
}

// CanBeUsedAsIdentifier reports whether tok may name a variable or procedure.
// Fortran has no reserved words.
func (tok Token) CanBeUsedAsIdentifier() bool {
	return tok == Identifier || tok.IsKeyword() || tok.IsAttribute()
}

// IsTypeDeclaration returns true if the token is a type declaration keyword.
func (tok Token) IsTypeDeclaration() bool {
	return tok >= INTEGER && tok <= DOUBLEPRECISION
}

// IsEnd returns true if the token starts with END. Includes composite ENDs like ENDDO, ENDIF, ENDPROGRAM, etc.
func (tok Token) IsEnd() bool {
	switch tok {
	case END, ENDIF, ENDDO, ENDPROGRAM, ENDSUBROUTINE, ENDFUNCTION,
		ENDMODULE, ENDTYPE, ENDSELECT:
		return true
	}
	return false
}

// IsEndOrElse returns true if the token is a construct-ending keyword.
func (tok Token) IsEndOrElse() bool {
	return tok.IsEnd() || tok == ELSE || tok == ELSEIF
}

// IsRelational reports whether tok compares its operands.
func (tok Token) IsRelational() bool {
	return tok >= EQ && tok <= GreaterEq
}

// IsOperator returns true if the token is an operator.
func (tok Token) IsOperator() bool {
	return tok >= Plus && tok <= StringConcat
}

// IsLiteral returns true if the token is a literal value.
func (tok Token) IsLiteral() bool {
	return tok >= TRUE && tok <= StringLit
}

var keywords = map[string]Token{
	"INTEGER":         INTEGER,
	"REAL":            REAL,
	"COMPLEX":         COMPLEX,
	"LOGICAL":         LOGICAL,
	"CHARACTER":       CHARACTER,
	"DOUBLE":          DOUBLE,
	"PRECISION":       PRECISION,
	"DOUBLEPRECISION": DOUBLEPRECISION,
	"PROGRAM":         PROGRAM,
	"END":             END,
	"ENDPROGRAM":      ENDPROGRAM,
	"SUBROUTINE":      SUBROUTINE,
	"ENDSUBROUTINE":   ENDSUBROUTINE,
	"FUNCTION":        FUNCTION,
	"ENDFUNCTION":     ENDFUNCTION,
	"MODULE":          MODULE,
	"ENDMODULE":       ENDMODULE,
	"CONTAINS":        CONTAINS,
	"IF":              IF,
	"THEN":            THEN,
	"ELSE":            ELSE,
	"ELSEIF":          ELSEIF,
	"ENDIF":           ENDIF,
	"DO":              DO,
	"ENDDO":           ENDDO,
	"WHILE":           WHILE,
	"SELECT":          SELECT,
	"CASE":            CASE,
	"DEFAULT":         DEFAULT,
	"ENDSELECT":       ENDSELECT,
	"CYCLE":           CYCLE,
	"EXIT":            EXIT,
	"GOTO":            GOTO,
	"CONTINUE":        CONTINUE,
	"RETURN":          RETURN,
	"STOP":            STOP,
	"READ":            READ,
	"WRITE":           WRITE,
	"PRINT":           PRINT,
	"FORMAT":          FORMAT,
	"IMPLICIT":        IMPLICIT,
	"PARAMETER":       PARAMETER,
	"DIMENSION":       DIMENSION,
	"DATA":            DATA,
	"COMMON":          COMMON,
	"EXTERNAL":        EXTERNAL,
	"INTRINSIC":       INTRINSIC,
	"SAVE":            SAVE,
	"TYPE":            TYPE,
	"ENDTYPE":         ENDTYPE,
	"USE":             USE,
	"ONLY":            ONLY,
	"PRIVATE":         PRIVATE,
	"PUBLIC":          PUBLIC,
	"CALL":            CALL,
	"INTENT":          INTENT,
	"IN":              IN,
	"OUT":             OUT,
	"INOUT":           INOUT,
	"OPTIONAL":        OPTIONAL,
	"POINTER":         POINTER,
	"TARGET":          TARGET,
	"ALLOCATABLE":     ALLOCATABLE,
	"ALLOCATE":        ALLOCATE,
	"DEALLOCATE":      DEALLOCATE,
	"RECURSIVE":       RECURSIVE,
	"ELEMENTAL":       ELEMENTAL,
	"PURE":            PURE,
	"RESULT":          RESULT,
	"KIND":            KIND,
	"LEN":             LEN,
}

// LookupKeyword returns [Identifier] or the token for keyword maybeKeyword represents if found.
func LookupKeyword(maybeKeyword []byte) Token {
	if tok, ok := keywords[string(bytes.ToUpper(maybeKeyword))]; ok {
		return tok
	}
	return Identifier
}

// LookupDotOperator checks if the internal characters in a dot operator
// match with a token. Returns [Illegal] if no match found.
func LookupDotOperator(ident []byte) Token {
	switch string(bytes.ToUpper(ident)) {
	case "TRUE":
		return TRUE
	case "FALSE":
		return FALSE
	case "EQ":
		return EQ
	case "NE":
		return NE
	case "LT":
		return LT
	case "LE":
		return LE
	case "GT":
		return GT
	case "GE":
		return GE
	case "AND":
		return AND
	case "OR":
		return OR
	case "NOT":
		return NOT
	case "EQV":
		return EQV
	case "NEQV":
		return NEQV
	}
	return Illegal
}
