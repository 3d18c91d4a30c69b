// Package cfamily implements the C and C++ front ends and the C++ back end.
//
// Parsing is done with the tree-sitter C and C++ grammars, optionally after
// running the source through an external preprocessor. C declarators are
// unwound into the type annotations of the generalized tree, counted for
// loops become loops over a range, and math library calls are rewritten to
// their numpy equivalents.
package cfamily

import (
	"context"
	"errors"
	"io"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	tsc "github.com/smacker/go-tree-sitter/c"
	tscpp "github.com/smacker/go-tree-sitter/cpp"

	"github.com/soypat/polyglot/gast"
	"github.com/soypat/polyglot/lang"
)

// Dialect selects the grammar used by [Parser].
type Dialect uint8

const (
	C Dialect = iota
	CPP
)

// Language returns the language identity of the dialect.
func (d Dialect) Language() lang.Language {
	if d == CPP {
		return lang.CPP
	}
	return lang.C
}

func (d Dialect) grammar() *sitter.Language {
	if d == CPP {
		return tscpp.GetLanguage()
	}
	return tsc.GetLanguage()
}

// Metadata keys set by the generalizer and read by the C++ unparser.
const (
	MetaInclude   = "c.include"        // string on a Directive: the included header with its delimiters, e.g. "<stdio.h>".
	MetaPointer   = "c.pointer"        // bool on an Arg or AnnAssign declared through a pointer, and on an Attribute accessed with ->.
	MetaConst     = "c.const"          // bool on an Arg or AnnAssign declared const.
	MetaIntrinsic = "c.intrinsic"      // string on a Call: the math library function it was rewritten from.
	MetaPrototype = gast.MetaPrototype // bool on a bodiless FunctionDef lowered from a declaration.
)

// Tree is the concrete tree returned by [Parser.Parse]. It must be closed
// to release the tree-sitter trees it holds.
type Tree struct {
	Path    string
	Dialect Dialect
	parts   []part
}

type part struct {
	tree *sitter.Tree
	src  []byte
}

// Fprint writes each parsed scope to w as an S-expression.
func (t *Tree) Fprint(w io.Writer) error {
	for _, p := range t.parts {
		if p.tree == nil {
			return errors.New("tree is closed")
		}
		if _, err := io.WriteString(w, p.tree.RootNode().String()+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) Language() lang.Language { return t.Dialect.Language() }

// Close releases the tree-sitter trees. It is safe to call more than once.
func (t *Tree) Close() error {
	for i := range t.parts {
		if t.parts[i].tree != nil {
			t.parts[i].tree.Close()
			t.parts[i].tree = nil
		}
	}
	return nil
}

// Preprocessor runs C source through an external preprocessor before
// parsing. Source is fed on standard input and the preprocessed text is
// read from standard output.
type Preprocessor struct {
	// Command is the preprocessor command line, e.g. "cpp -P".
	Command string
	// Include lists directories passed with -I.
	Include []string
	// OnError decides what a failed run means. It receives the tool
	// failure and returns the error Parse reports; returning nil parses
	// the unprocessed source instead. When nil, a failure is reported as
	// a *lang.ParseError carrying the preprocessor diagnostics.
	OnError func(path string, err *lang.ToolError) error
}

// Run preprocesses code.
func (pp *Preprocessor) Run(ctx context.Context, code, path string) (string, error) {
	name, args := lang.SplitCommand(pp.Command)
	if name == "" {
		return "", &lang.ContractError{Op: "preprocess", Msg: "empty preprocessor command"}
	}
	for _, dir := range pp.Include {
		args = append(args, "-I"+dir)
	}
	out, err := lang.RunTool(ctx, code, name, args...)
	if err == nil {
		return out, nil
	}
	var te *lang.ToolError
	if !errors.As(err, &te) {
		return "", err
	}
	if pp.OnError != nil {
		if err := pp.OnError(path, te); err != nil {
			return "", err
		}
		return code, nil
	}
	return "", &lang.ParseError{Path: path, Msg: "preprocessor " + name + " failed", Diagnostics: te.Output}
}

// Parser parses C or C++ source.
type Parser struct {
	Dialect Dialect
	// Preprocessor, when set, runs before parsing. Preprocessed source
	// loses its include directives.
	Preprocessor *Preprocessor
}

var _ lang.Parser = (*Parser)(nil)

// Parse implements [lang.Parser]. Several scopes are parsed on their own
// and joined in order.
func (cp *Parser) Parse(code, path string, scopes ...lang.Scope) (lang.Tree, error) {
	return cp.ParseContext(context.Background(), code, path, scopes...)
}

// ParseContext is like Parse but bounds the preprocessor run by ctx.
func (cp *Parser) ParseContext(ctx context.Context, code, path string, scopes ...lang.Scope) (lang.Tree, error) {
	if err := lang.CheckIndentation(code); err != nil {
		return nil, err
	}
	parse := func(src string) (*Tree, error) {
		if cp.Preprocessor != nil {
			var err error
			src, err = cp.Preprocessor.Run(ctx, src, path)
			if err != nil {
				return nil, err
			}
		}
		return cp.parseSource(ctx, src, path)
	}
	tree, err := lang.ParseScopes(code, scopes, parse, joinTrees)
	if err != nil {
		return nil, err
	}
	return tree, nil
}

func (cp *Parser) parseSource(ctx context.Context, src, path string) (*Tree, error) {
	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(cp.Dialect.grammar())
	content := []byte(src)
	st, err := p.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, &lang.ParseError{Path: path, Msg: err.Error()}
	}
	if root := st.RootNode(); root.HasError() {
		pe := syntaxError(root, content)
		pe.Path = path
		st.Close()
		return nil, pe
	}
	return &Tree{Path: path, Dialect: cp.Dialect, parts: []part{{tree: st, src: content}}}, nil
}

func syntaxError(root *sitter.Node, src []byte) *lang.ParseError {
	bad := firstError(root)
	if bad == nil {
		return &lang.ParseError{Msg: "syntax error"}
	}
	pt := bad.StartPoint()
	pe := &lang.ParseError{Line: int(pt.Row) + 1, Col: int(pt.Column) + 1}
	if bad.IsMissing() {
		pe.Msg = "expected " + bad.Type()
	} else {
		text := bad.Content(src)
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			text = text[:i]
		}
		pe.Msg = "syntax error near " + strings.TrimSpace(text)
	}
	return pe
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if bad := firstError(n.Child(i)); bad != nil {
			return bad
		}
	}
	return n
}

func joinTrees(trees []*Tree) (*Tree, error) {
	joined := &Tree{Path: trees[0].Path, Dialect: trees[0].Dialect}
	for _, t := range trees {
		joined.parts = append(joined.parts, t.parts...)
	}
	return joined, nil
}
