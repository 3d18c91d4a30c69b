package fortran

import "strings"

const (
	freeLineLimit = 132
	freeIndent    = "  "
	fixedIndent   = "  "
)

// layout writes source lines in free or fixed form. It owns indentation,
// comment markers and line continuation so the unparser deals in whole
// statements only.
type layout struct {
	fixed bool
	depth int
	buf   []byte
}

func (l *layout) indent() { l.depth++ }
func (l *layout) dedent() { l.depth-- }
func (l *layout) String() string { return string(l.buf) }

// comment writes a comment line holding text, the comment without marker.
func (l *layout) comment(text string) {
	if l.fixed {
		l.buf = append(l.buf, 'C')
	} else {
		l.buf = append(l.buf, strings.Repeat(freeIndent, l.depth)...)
		l.buf = append(l.buf, '!')
	}
	l.buf = append(l.buf, strings.TrimRight(text, " ")...)
	l.buf = append(l.buf, '\n')
}

// stmt writes one statement, continued over several lines when it does not
// fit the line length of the form.
func (l *layout) stmt(text string) {
	if l.fixed {
		l.fixedStmt(text)
		return
	}
	prefix := strings.Repeat(freeIndent, l.depth)
	limit := freeLineLimit - len(prefix) - 2 // Room for " &".
	for first := true; ; first = false {
		l.buf = append(l.buf, prefix...)
		if !first {
			l.buf = append(l.buf, freeIndent+"& "...)
		}
		if len(text) <= limit {
			l.buf = append(l.buf, text...)
			l.buf = append(l.buf, '\n')
			return
		}
		cut := breakPoint(text, limit)
		l.buf = append(l.buf, text[:cut]...)
		l.buf = append(l.buf, " &\n"...)
		text = strings.TrimLeft(text[cut:], " ")
	}
}

func (l *layout) fixedStmt(text string) {
	prefix := strings.Repeat(" ", fixedTextStart) + strings.Repeat(fixedIndent, l.depth)
	limit := fixedTextEnd - len(prefix)
	for first := true; ; first = false {
		if first {
			l.buf = append(l.buf, prefix...)
		} else {
			l.buf = append(l.buf, strings.Repeat(" ", fixedContinuation)+"&"+strings.Repeat(fixedIndent, l.depth+1)...)
		}
		lim := limit
		if !first {
			lim -= len(fixedIndent)
		}
		if len(text) <= lim {
			l.buf = append(l.buf, text...)
			l.buf = append(l.buf, '\n')
			return
		}
		cut := breakPoint(text, lim)
		l.buf = append(l.buf, strings.TrimRight(text[:cut], " ")...)
		l.buf = append(l.buf, '\n')
		text = strings.TrimLeft(text[cut:], " ")
	}
}

// breakPoint returns where to split text so the first part is at most
// limit bytes long: after the last space outside string literals, or at
// limit when there is none.
func breakPoint(text string, limit int) int {
	var quote byte
	last := -1
	for i := 0; i < len(text) && i <= limit; i++ {
		c := text[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ' ' && i > 0:
			last = i
		}
	}
	if last <= 0 {
		return limit
	}
	return last
}
