// Package fortran implements the Fortran front and back end: a parser for
// free form (F90+) and fixed form (F77) source, the generalizer lowering the
// parsed program into the generalized tree and the unparser rendering a
// generalized tree as Fortran.
package fortran

import (
	"io"
	"strings"

	"github.com/soypat/polyglot/fortran/ast"
	"github.com/soypat/polyglot/lang"
)

// Form selects the source layout.
type Form int

const (
	// FormAuto picks fixed form for .f, .for, .f77 and .ftn paths and free
	// form otherwise.
	FormAuto Form = iota
	FormFree
	FormFixed
)

func (f Form) String() string {
	switch f {
	case FormFree:
		return "free"
	case FormFixed:
		return "fixed"
	}
	return "auto"
}

// ParseForm parses the names "free", "fixed" and "auto". The empty string is FormAuto.
func ParseForm(s string) (Form, bool) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormAuto, true
	case "free":
		return FormFree, true
	case "fixed":
		return FormFixed, true
	}
	return FormAuto, false
}

// Tree is the concrete tree returned by [Parser.Parse].
type Tree struct {
	Program *ast.Program
	// Source is the text the program was parsed from, after fixed form
	// normalization.
	Source string
	Path   string
}

func (*Tree) Language() lang.Language { return lang.Fortran }

// Fprint writes the parsed program to w, omitting empty fields.
func (t *Tree) Fprint(w io.Writer) error {
	return ast.Fprint(w, t.Program, ast.NotNilFilter)
}

// Parser parses Fortran source into a [Tree]. The zero value is ready to use.
type Parser struct {
	Form Form
}

var _ lang.Parser = (*Parser)(nil)

// Parse parses code. Scopes select line ranges parsed independently, the
// program units of every scope are joined in order.
func (fp *Parser) Parse(code, path string, scopes ...lang.Scope) (lang.Tree, error) {
	if err := lang.CheckIndentation(code); err != nil {
		return nil, err
	}
	fixed := fp.Form == FormFixed || (fp.Form == FormAuto && IsFixedFormPath(path))
	parse := func(src string) (*Tree, error) {
		if fixed {
			src = NormalizeFixedForm(src)
		}
		return parseSource(src, path)
	}
	tree, err := lang.ParseScopes(code, scopes, parse, joinTrees)
	if err != nil {
		return nil, err
	}
	return tree, nil
}

func parseSource(src, path string) (*Tree, error) {
	name := path
	if name == "" {
		name = "<input>"
	}
	var p Parser90
	if err := p.Reset(name, []byte(src)); err != nil {
		return nil, &lang.ParseError{Path: path, Msg: err.Error()}
	}
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, parseError(path, errs)
	}
	return &Tree{Program: prog, Source: src, Path: path}, nil
}

// parseError folds the parser errors into one *lang.ParseError located at
// the first error.
func parseError(path string, errs []ParserError) *lang.ParseError {
	first := errs[0]
	pe := &lang.ParseError{Path: path, Line: first.sp.Line, Col: first.sp.Col, Msg: first.msg}
	if len(errs) > 1 {
		var diag strings.Builder
		for i := range errs {
			diag.WriteString(errs[i].Error())
			diag.WriteByte('\n')
		}
		pe.Diagnostics = diag.String()
	}
	return pe
}

func joinTrees(trees []*Tree) (*Tree, error) {
	joined := &Tree{Program: &ast.Program{}, Path: trees[0].Path}
	var src strings.Builder
	for _, t := range trees {
		joined.Program.Units = append(joined.Program.Units, t.Program.Units...)
		src.WriteString(t.Source)
	}
	joined.Source = src.String()
	return joined, nil
}
