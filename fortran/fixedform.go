package fortran

import (
	"path/filepath"
	"strings"

	"github.com/coregx/coregex"
	"github.com/soypat/polyglot/fortran/ast"
)

const (
	fixedLabelWidth   = 5
	fixedContinuation = 5 // Zero based column 6.
	fixedTextStart    = 6 // Zero based column 7.
	fixedTextEnd      = 72
)

var (
	fixedCommentLine = coregex.MustCompile(`^[Cc*!]`)
	// f2py directive comments, after the comment marker: `f2py intent(out) x, y`.
	f2pyIntent = coregex.MustCompile(`(?i)^f2py\s+intent\s*\(\s*([a-z][a-z,\s]*?)\s*\)\s*(?:::)?\s*([a-z_][a-z0-9_]*(?:\s*,\s*[a-z_][a-z0-9_]*)*)\s*$`)
)

// IsFixedFormPath reports whether path names a fixed form source file by
// its extension: .f, .for, .f77 or .ftn.
func IsFixedFormPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".f", ".for", ".f77", ".ftn":
		return true
	}
	return false
}

// NormalizeFixedForm rewrites fixed form (F77) source as free form text the
// Lexer90 accepts. Line count and the label field are preserved:
//   - a C, c, * or ! in column 1 makes the line a `!` comment.
//   - a non-blank, non-zero column 6 continues the previous statement, which
//     gets a trailing `&`.
//   - text past column 72 is dropped.
//   - a leading tab starts the statement text (a tab followed by a nonzero
//     digit is a continuation line).
func NormalizeFixedForm(src string) string {
	lines := strings.Split(src, "\n")
	lastCode := -1 // Index of the last line holding statement text.
	for i, line := range lines {
		line = strings.TrimRight(line, "\r")
		line = expandLeadingTab(line)
		switch {
		case strings.TrimSpace(line) == "":
			lines[i] = ""
			continue
		case fixedCommentLine.MatchString(line):
			lines[i] = "!" + line[1:]
			continue
		}
		if len(line) > fixedTextEnd {
			line = line[:fixedTextEnd]
		}
		if len(line) <= fixedTextStart {
			line += strings.Repeat(" ", fixedTextStart-len(line)+1)
		}
		cont := line[fixedContinuation]
		text := line[fixedTextStart:]
		if strings.HasPrefix(strings.TrimSpace(text), "!") && strings.TrimSpace(line[:fixedTextStart]) == "" {
			lines[i] = strings.TrimLeft(text, " ")
			continue
		}
		if cont != ' ' && cont != '0' && lastCode >= 0 {
			prev := lines[lastCode]
			end := codeEnd(prev)
			lines[lastCode] = strings.TrimRight(prev[:end], " ") + " &" + prev[end:]
			lines[i] = strings.Repeat(" ", fixedContinuation) + "&" + text
		} else {
			lines[i] = line[:fixedLabelWidth] + " " + text
		}
		lastCode = i
	}
	return strings.Join(lines, "\n")
}

func expandLeadingTab(line string) string {
	if !strings.HasPrefix(line, "\t") {
		return line
	}
	rest := line[1:]
	if len(rest) > 0 && rest[0] >= '1' && rest[0] <= '9' {
		return strings.Repeat(" ", fixedContinuation) + rest
	}
	return strings.Repeat(" ", fixedTextStart) + rest
}

// codeEnd returns the offset of an inline `!` comment in line, outside of
// string literals, or len(line) when there is none.
func codeEnd(line string) int {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '!':
			return i
		}
	}
	return len(line)
}

// parseDirective recognizes an f2py intent directive in comment text, the
// text after the `!` marker. It returns the intent and the dummy argument
// names it applies to. Unknown intents such as hide or c yield ok=false.
func parseDirective(comment string) (intent ast.IntentType, names []string, ok bool) {
	m := f2pyIntent.FindStringSubmatch(strings.TrimSpace(comment))
	if m == nil {
		return ast.IntentDefault, nil, false
	}
	spec := strings.ToLower(strings.Join(strings.Fields(m[1]), ""))
	switch spec {
	case "in":
		intent = ast.IntentIn
	case "out":
		intent = ast.IntentOut
	case "inout", "in,out":
		intent = ast.IntentInOut
	default:
		return ast.IntentDefault, nil, false
	}
	for _, name := range strings.Split(m[2], ",") {
		names = append(names, strings.TrimSpace(name))
	}
	return intent, names, true
}
