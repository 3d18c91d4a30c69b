package lang

import (
	"errors"
	"strconv"
	"strings"
)

// CheckIndentation returns a *ContractError naming the first line whose
// leading whitespace mixes tabs and spaces, or indents with the other of
// the two than the first indented line does. Blank lines are ignored.
func CheckIndentation(code string) error {
	var style byte // Tab or space, set by the first indented line.
	first := 0
	line := 1
	for len(code) > 0 {
		end := strings.IndexByte(code, '\n')
		if end < 0 {
			end = len(code)
		}
		text := strings.TrimSuffix(code[:end], "\r")
		rest := strings.TrimLeft(text, " \t")
		indent := text[:len(text)-len(rest)]
		switch {
		case rest == "" || indent == "":
		case strings.IndexByte(indent, ' ') >= 0 && strings.IndexByte(indent, '\t') >= 0:
			return &ContractError{
				Op:  "indentation",
				Msg: "line " + strconv.Itoa(line) + " mixes tabs and spaces",
			}
		case style == 0:
			style, first = indent[0], line
		case indent[0] != style:
			return &ContractError{
				Op:  "indentation",
				Msg: "line " + strconv.Itoa(line) + " indents with " + styleName(indent[0]) + " but line " + strconv.Itoa(first) + " with " + styleName(style),
			}
		}
		if end == len(code) {
			break
		}
		code = code[end+1:]
		line++
	}
	return nil
}

func styleName(c byte) string {
	if c == '\t' {
		return "tabs"
	}
	return "spaces"
}

// Scope is an inclusive, 1-based range of source lines.
type Scope struct {
	Start, End int
}

// Extract returns the lines of code covered by s.
func (s Scope) Extract(code string) (string, error) {
	lines := strings.SplitAfter(code, "\n")
	if s.Start < 1 || s.End < s.Start || s.Start > len(lines) {
		return "", &ContractError{Op: "scope", Msg: "invalid line range " + s.String()}
	}
	end := min(s.End, len(lines))
	return strings.Join(lines[s.Start-1:end], ""), nil
}

func (s Scope) String() string {
	return strconv.Itoa(s.Start) + "-" + strconv.Itoa(s.End)
}

// ParseScopes parses each scope of code independently and joins the
// results with join. A single scope needs no join. Joining several scopes
// with a nil join is a *ContractError. Line numbers of a *ParseError
// raised inside a scope are made relative to the whole of code.
func ParseScopes[T any](code string, scopes []Scope, parse func(code string) (T, error), join func([]T) (T, error)) (T, error) {
	var zero T
	if len(scopes) == 0 {
		return parse(code)
	}
	if len(scopes) > 1 && join == nil {
		return zero, &ContractError{Op: "scope", Msg: "joining " + strconv.Itoa(len(scopes)) + " scopes is not supported for this language"}
	}
	parts := make([]T, 0, len(scopes))
	for _, s := range scopes {
		sub, err := s.Extract(code)
		if err != nil {
			return zero, err
		}
		tree, err := parse(sub)
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) && pe.Line > 0 {
				pe.Line += s.Start - 1
			}
			return zero, err
		}
		parts = append(parts, tree)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return join(parts)
}
