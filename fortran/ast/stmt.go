package ast

// Executable statements.

// AssignmentStmt is `Target = Value` or the pointer assignment `Target => Value`.
type AssignmentStmt struct {
	Target              Expression
	Value               Expression
	IsPointerAssignment bool
	Label               string
	Position
}

func (as *AssignmentStmt) statementNode() {}
func (as *AssignmentStmt) AppendString(dst []byte) []byte {
	dst = as.Target.AppendString(dst)
	if as.IsPointerAssignment {
		dst = append(dst, " => "...)
	} else {
		dst = append(dst, " = "...)
	}
	return as.Value.AppendString(dst)
}

// ElseIfClause is one ELSE IF (cond) THEN block.
type ElseIfClause struct {
	Condition Expression
	ThenPart  []Statement
	Position
}

// IfStmt is a block IF construct or, with Logical set, the one line
// logical IF `IF (cond) stmt`.
type IfStmt struct {
	Condition   Expression
	ThenPart    []Statement
	ElseIfParts []ElseIfClause
	ElsePart    []Statement
	Logical     bool
	Label       string
	Position
}

func (is *IfStmt) statementNode() {}
func (is *IfStmt) AppendString(dst []byte) []byte {
	dst = append(dst, "IF ("...)
	dst = is.Condition.AppendString(dst)
	dst = append(dst, ')')
	if is.Logical && len(is.ThenPart) == 1 {
		dst = append(dst, ' ')
		return is.ThenPart[0].AppendString(dst)
	}
	return append(dst, " THEN"...)
}

// DoLoop is a counted DO loop. A DO without loop control has an empty Var.
type DoLoop struct {
	Var         string
	Start       Expression
	End         Expression
	Step        Expression // nil when absent.
	Body        []Statement
	TargetLabel string // F77 `DO 10 i = ...` terminating label.
	Label       string
	Position
}

func (dl *DoLoop) statementNode() {}
func (dl *DoLoop) AppendString(dst []byte) []byte {
	dst = append(dst, "DO"...)
	if dl.TargetLabel != "" {
		dst = append(dst, ' ')
		dst = append(dst, dl.TargetLabel...)
	}
	if dl.Var == "" {
		return dst
	}
	dst = append(dst, ' ')
	dst = append(dst, dl.Var...)
	dst = append(dst, " = "...)
	dst = dl.Start.AppendString(dst)
	dst = append(dst, ", "...)
	dst = dl.End.AppendString(dst)
	if dl.Step != nil {
		dst = append(dst, ", "...)
		dst = dl.Step.AppendString(dst)
	}
	return dst
}

// DoWhileLoop is `DO WHILE (cond) ... END DO`.
type DoWhileLoop struct {
	Condition   Expression
	Body        []Statement
	TargetLabel string
	Label       string
	Position
}

func (dw *DoWhileLoop) statementNode() {}
func (dw *DoWhileLoop) AppendString(dst []byte) []byte {
	dst = append(dst, "DO WHILE ("...)
	dst = dw.Condition.AppendString(dst)
	return append(dst, ')')
}

// CaseClause is one CASE block of a SELECT CASE construct. Values holds
// single values and RangeExpr ranges.
type CaseClause struct {
	Values    []Expression
	IsDefault bool
	Body      []Statement
	Position
}

type SelectCaseStmt struct {
	Expression Expression
	Cases      []CaseClause
	Label      string
	Position
}

func (sc *SelectCaseStmt) statementNode() {}
func (sc *SelectCaseStmt) AppendString(dst []byte) []byte {
	dst = append(dst, "SELECT CASE ("...)
	dst = sc.Expression.AppendString(dst)
	return append(dst, ')')
}

type CallStmt struct {
	Name  string
	Args  []Expression
	Label string
	Position
}

func (cs *CallStmt) statementNode() {}
func (cs *CallStmt) AppendString(dst []byte) []byte {
	dst = append(dst, "CALL "...)
	dst = append(dst, cs.Name...)
	return appendArgs(dst, cs.Args)
}

type ReturnStmt struct {
	Label string
	Position
}

func (rs *ReturnStmt) statementNode() {}
func (rs *ReturnStmt) AppendString(dst []byte) []byte {
	return append(dst, "RETURN"...)
}

type StopStmt struct {
	Code  Expression // nil when absent.
	Label string
	Position
}

func (ss *StopStmt) statementNode() {}
func (ss *StopStmt) AppendString(dst []byte) []byte {
	dst = append(dst, "STOP"...)
	if ss.Code != nil {
		dst = append(dst, ' ')
		dst = ss.Code.AppendString(dst)
	}
	return dst
}

type ExitStmt struct {
	Label string
	Position
}

func (es *ExitStmt) statementNode() {}
func (es *ExitStmt) AppendString(dst []byte) []byte {
	return append(dst, "EXIT"...)
}

type CycleStmt struct {
	Label string
	Position
}

func (cs *CycleStmt) statementNode() {}
func (cs *CycleStmt) AppendString(dst []byte) []byte {
	return append(dst, "CYCLE"...)
}

// ContinueStmt is CONTINUE, usually the labelled end of an F77 DO loop.
type ContinueStmt struct {
	Label string
	Position
}

func (cs *ContinueStmt) statementNode() {}
func (cs *ContinueStmt) AppendString(dst []byte) []byte {
	if cs.Label != "" {
		dst = append(dst, cs.Label...)
		dst = append(dst, ' ')
	}
	return append(dst, "CONTINUE"...)
}

type GotoStmt struct {
	Target string
	Label  string
	Position
}

func (gs *GotoStmt) statementNode() {}
func (gs *GotoStmt) AppendString(dst []byte) []byte {
	dst = append(dst, "GO TO "...)
	return append(dst, gs.Target...)
}

// PrintStmt is `PRINT fmt, items`. A nil Format is the list-directed `*`.
type PrintStmt struct {
	Format     Expression
	OutputList []Expression
	Label      string
	Position
}

func (ps *PrintStmt) statementNode() {}
func (ps *PrintStmt) AppendString(dst []byte) []byte {
	dst = append(dst, "PRINT "...)
	if ps.Format == nil {
		dst = append(dst, '*')
	} else {
		dst = ps.Format.AppendString(dst)
	}
	for _, item := range ps.OutputList {
		dst = append(dst, ", "...)
		dst = item.AppendString(dst)
	}
	return dst
}

// WriteStmt is `WRITE(unit, fmt) items`. nil Unit or Format stand for `*`.
type WriteStmt struct {
	Unit       Expression
	Format     Expression
	OutputList []Expression
	Label      string
	Position
}

func (ws *WriteStmt) statementNode() {}
func (ws *WriteStmt) AppendString(dst []byte) []byte {
	dst = append(dst, "WRITE("...)
	if ws.Unit == nil {
		dst = append(dst, '*')
	} else {
		dst = ws.Unit.AppendString(dst)
	}
	dst = append(dst, ", "...)
	if ws.Format == nil {
		dst = append(dst, '*')
	} else {
		dst = ws.Format.AppendString(dst)
	}
	dst = append(dst, ')')
	for i, item := range ws.OutputList {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = append(dst, ' ')
		dst = item.AppendString(dst)
	}
	return dst
}

// AllocateStmt is `ALLOCATE(a(n), b(n, m))`. Each object is a
// FunctionCall whose arguments are the extents.
type AllocateStmt struct {
	Objects []Expression
	Options map[string]Expression // STAT=, ERRMSG=, SOURCE=.
	Label   string
	Position
}

func (as *AllocateStmt) statementNode() {}
func (as *AllocateStmt) AppendString(dst []byte) []byte {
	dst = append(dst, "ALLOCATE"...)
	return appendArgs(dst, as.Objects)
}

type DeallocateStmt struct {
	Objects []Expression
	Options map[string]Expression
	Label   string
	Position
}

func (ds *DeallocateStmt) statementNode() {}
func (ds *DeallocateStmt) AppendString(dst []byte) []byte {
	dst = append(dst, "DEALLOCATE"...)
	return appendArgs(dst, ds.Objects)
}

// GetLabel returns the statement label of s, empty if unlabelled.
func GetLabel(s Statement) string {
	switch s := s.(type) {
	case *AssignmentStmt:
		return s.Label
	case *IfStmt:
		return s.Label
	case *DoLoop:
		return s.Label
	case *DoWhileLoop:
		return s.Label
	case *SelectCaseStmt:
		return s.Label
	case *CallStmt:
		return s.Label
	case *ReturnStmt:
		return s.Label
	case *StopStmt:
		return s.Label
	case *ExitStmt:
		return s.Label
	case *CycleStmt:
		return s.Label
	case *ContinueStmt:
		return s.Label
	case *GotoStmt:
		return s.Label
	case *PrintStmt:
		return s.Label
	case *WriteStmt:
		return s.Label
	case *AllocateStmt:
		return s.Label
	case *DeallocateStmt:
		return s.Label
	}
	return ""
}

// SetLabel sets the statement label of s. It returns false if s cannot be labelled.
func SetLabel(s Statement, label string) bool {
	switch s := s.(type) {
	case *AssignmentStmt:
		s.Label = label
	case *IfStmt:
		s.Label = label
	case *DoLoop:
		s.Label = label
	case *DoWhileLoop:
		s.Label = label
	case *SelectCaseStmt:
		s.Label = label
	case *CallStmt:
		s.Label = label
	case *ReturnStmt:
		s.Label = label
	case *StopStmt:
		s.Label = label
	case *ExitStmt:
		s.Label = label
	case *CycleStmt:
		s.Label = label
	case *ContinueStmt:
		s.Label = label
	case *GotoStmt:
		s.Label = label
	case *PrintStmt:
		s.Label = label
	case *WriteStmt:
		s.Label = label
	case *AllocateStmt:
		s.Label = label
	case *DeallocateStmt:
		s.Label = label
	default:
		return false
	}
	return true
}
