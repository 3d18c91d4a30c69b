package lang

import (
	"strconv"
	"strings"
)

// ParseError is returned when source text is not valid in the declared
// language or the external parsing tool failed.
type ParseError struct {
	Path string
	Line int // 1-based. Zero when unknown.
	Col  int // 1-based. Zero when unknown.
	Msg  string
	// Diagnostics holds captured tool output, if a tool was involved.
	Diagnostics string
}

func (pe *ParseError) Error() string {
	return string(pe.AppendString(nil))
}

// AppendString appends the "path:line:col: msg" form of the error to b.
func (pe *ParseError) AppendString(b []byte) []byte {
	b = append(b, pe.Path...)
	if pe.Line > 0 {
		b = append(b, ':')
		b = strconv.AppendInt(b, int64(pe.Line), 10)
		if pe.Col > 0 {
			b = append(b, ':')
			b = strconv.AppendInt(b, int64(pe.Col), 10)
		}
	}
	if len(b) > 0 {
		b = append(b, ':', ' ')
	}
	b = append(b, pe.Msg...)
	if pe.Diagnostics != "" {
		b = append(b, '\n')
		b = append(b, strings.TrimRight(pe.Diagnostics, "\n")...)
	}
	return b
}

// UnsupportedConstruct is returned when a construct has no defined lowering
// into the generalized tree, or a generalized node has no rendering in the
// target language.
type UnsupportedConstruct struct {
	Lang   string // Language whose front or back end rejected the construct.
	Kind   string // Node kind, e.g. "SelectCaseStmt" or "ListComp".
	Source string // Serialized form of the offending node.
	Reason string // Optional detail.
}

func (uc *UnsupportedConstruct) Error() string {
	var sb strings.Builder
	if uc.Lang != "" {
		sb.WriteString(uc.Lang)
		sb.WriteString(": ")
	}
	sb.WriteString("unsupported construct ")
	sb.WriteString(uc.Kind)
	if uc.Reason != "" {
		sb.WriteString(" (")
		sb.WriteString(uc.Reason)
		sb.WriteByte(')')
	}
	if uc.Source != "" {
		sb.WriteString(": ")
		sb.WriteString(uc.Source)
	}
	return sb.String()
}

// StructureError reports a violated structural assumption about a concrete
// tree, such as an assignment with more than one target.
type StructureError struct {
	Kind   string
	Source string
	Msg    string
}

func (se *StructureError) Error() string {
	s := "malformed " + se.Kind + ": " + se.Msg
	if se.Source != "" {
		s += ": " + se.Source
	}
	return s
}

// ContractError reports a caller passing a structurally invalid argument:
// a bad path or extension, a tree of the wrong language, mixed indentation.
type ContractError struct {
	Op  string
	Msg string
}

func (ce *ContractError) Error() string {
	if ce.Op == "" {
		return ce.Msg
	}
	return ce.Op + ": " + ce.Msg
}

// ToolError wraps a failed external process invocation.
type ToolError struct {
	Tool     string
	Args     []string
	ExitCode int // -1 if the process did not start or was killed.
	Output   string
	Err      error
}

func (te *ToolError) Error() string {
	var sb strings.Builder
	sb.WriteString(te.Tool)
	if te.ExitCode >= 0 {
		sb.WriteString(": exit status ")
		sb.WriteString(strconv.Itoa(te.ExitCode))
	} else if te.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(te.Err.Error())
	}
	if out := strings.TrimSpace(te.Output); out != "" {
		sb.WriteByte('\n')
		sb.WriteString(out)
	}
	return sb.String()
}

func (te *ToolError) Unwrap() error { return te.Err }
