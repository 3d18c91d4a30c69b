// Package python implements the Python front and back end. Parsing is done
// with the tree-sitter Python grammar; the generalized tree is modeled on
// Python's own syntax so generalization is close to an identity mapping.
package python

import (
	"context"
	"errors"
	"io"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	tspython "github.com/smacker/go-tree-sitter/python"

	"github.com/soypat/polyglot/lang"
)

// Tree is the concrete tree returned by [Parser.Parse]. It holds one
// tree-sitter tree per parsed scope and must be closed to release them.
type Tree struct {
	Path  string
	parts []part
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

func (*Tree) Language() lang.Language { return lang.Python }

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

// Source returns the text of every parsed scope, concatenated.
func (t *Tree) Source() string {
	var sb strings.Builder
	for _, p := range t.parts {
		sb.Write(p.src)
	}
	return sb.String()
}

// Parser parses Python 3 source. The zero value is ready to use.
type Parser struct{}

var _ lang.Parser = (*Parser)(nil)

// Parse implements [lang.Parser]. Each scope is parsed on its own and the
// statements of all scopes are joined in order.
func (pp *Parser) Parse(code, path string, scopes ...lang.Scope) (lang.Tree, error) {
	if err := lang.CheckIndentation(code); err != nil {
		return nil, err
	}
	parse := func(src string) (*Tree, error) {
		return parseSource(src, path)
	}
	tree, err := lang.ParseScopes(code, scopes, parse, joinTrees)
	if err != nil {
		return nil, err
	}
	return tree, nil
}

func parseSource(src, path string) (*Tree, error) {
	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(tspython.GetLanguage())
	content := []byte(src)
	st, err := p.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, &lang.ParseError{Path: path, Msg: err.Error()}
	}
	if root := st.RootNode(); root.HasError() {
		pe := syntaxError(root, content)
		pe.Path = path
		st.Close()
		return nil, pe
	}
	return &Tree{Path: path, parts: []part{{tree: st, src: content}}}, nil
}

// syntaxError locates the first erroneous or missing node below root.
func syntaxError(root *sitter.Node, src []byte) *lang.ParseError {
	bad := firstError(root)
	if bad == nil {
		return &lang.ParseError{Msg: "invalid syntax"}
	}
	pt := bad.StartPoint()
	pe := &lang.ParseError{Line: int(pt.Row) + 1, Col: int(pt.Column) + 1}
	if bad.IsMissing() {
		pe.Msg = "missing " + bad.Type()
	} else {
		text := bad.Content(src)
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			text = text[:i]
		}
		pe.Msg = "invalid syntax near " + strings.TrimSpace(text)
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
	joined := &Tree{Path: trees[0].Path}
	for _, t := range trees {
		joined.parts = append(joined.parts, t.parts...)
	}
	return joined, nil
}
