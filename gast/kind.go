package gast

// Kind discriminates the syntactic kind of a [Node].
type Kind uint8

const (
	KindInvalid Kind = iota
	// Statements and definitions.
	KindModule
	KindFunctionDef
	KindArg
	KindClassDef
	KindAssign
	KindAnnAssign
	KindAugAssign
	KindIf
	KindFor
	KindWhile
	KindReturn
	KindBreak
	KindContinue
	KindPass
	KindDelete
	KindExprStmt
	KindImport
	KindImportFrom
	KindComment
	KindDirective
	// Expressions.
	KindBinOp
	KindUnaryOp
	KindBoolOp
	KindCompare
	KindCall
	KindKeyword
	KindSubscript
	KindIndex
	KindSlice
	KindExtSlice
	KindConstant
	KindName
	KindAttribute
	KindList
	KindTuple
	KindListComp
	KindComprehension
	KindIfExp
	numKinds
)

var kindNames = [numKinds]string{
	KindInvalid:       "Invalid",
	KindModule:        "Module",
	KindFunctionDef:   "FunctionDef",
	KindArg:           "arg",
	KindClassDef:      "ClassDef",
	KindAssign:        "Assign",
	KindAnnAssign:     "AnnAssign",
	KindAugAssign:     "AugAssign",
	KindIf:            "If",
	KindFor:           "For",
	KindWhile:         "While",
	KindReturn:        "Return",
	KindBreak:         "Break",
	KindContinue:      "Continue",
	KindPass:          "Pass",
	KindDelete:        "Delete",
	KindExprStmt:      "ExprStmt",
	KindImport:        "Import",
	KindImportFrom:    "ImportFrom",
	KindComment:       "Comment",
	KindDirective:     "Directive",
	KindBinOp:         "BinOp",
	KindUnaryOp:       "UnaryOp",
	KindBoolOp:        "BoolOp",
	KindCompare:       "Compare",
	KindCall:          "Call",
	KindKeyword:       "keyword",
	KindSubscript:     "Subscript",
	KindIndex:         "Index",
	KindSlice:         "Slice",
	KindExtSlice:      "ExtSlice",
	KindConstant:      "Constant",
	KindName:          "Name",
	KindAttribute:     "Attribute",
	KindList:          "List",
	KindTuple:         "Tuple",
	KindListComp:      "ListComp",
	KindComprehension: "comprehension",
	KindIfExp:         "IfExp",
}

func (k Kind) String() string {
	if k >= numKinds {
		return "Kind(?)"
	}
	return kindNames[k]
}

// Kinds returns every valid node kind in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, numKinds-1)
	for k := KindModule; k < numKinds; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// IsStatement reports whether nodes of kind k implement [Stmt].
func (k Kind) IsStatement() bool {
	return k >= KindFunctionDef && k <= KindDirective && k != KindArg
}

// IsExpression reports whether nodes of kind k implement [Expr].
func (k Kind) IsExpression() bool {
	return k >= KindBinOp && k < numKinds && k != KindKeyword && k != KindComprehension
}
