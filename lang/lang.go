// Package lang holds what every language front end and back end shares:
// language identity, the capability interfaces a language implements,
// the error taxonomy and helpers for parsing and best-effort reporting.
package lang

import (
	"context"
	"io"

	"github.com/soypat/polyglot/gast"
)

// Tree is a language specific concrete syntax tree as returned by a [Parser].
// Its shape is opaque to everything but the Generalizer of the same language.
// Trees holding native resources also implement io.Closer.
type Tree interface {
	Language() Language
}

// TreePrinter is implemented by trees that can print their concrete form.
type TreePrinter interface {
	Fprint(w io.Writer) error
}

// Parser converts source text into a concrete tree. Scopes, when given,
// restrict parsing to the listed line ranges.
type Parser interface {
	Parse(code, path string, scopes ...Scope) (Tree, error)
}

// Generalizer lowers a concrete tree into the generalized tree.
type Generalizer interface {
	Generalize(tree Tree) (*gast.Module, error)
}

// Unparser renders a generalized tree as source text.
type Unparser interface {
	Unparse(mod *gast.Module) (string, error)
}

// Compiler turns target-language source text into a loadable artifact
// stored under outDir and returns the artifact's path.
type Compiler interface {
	Compile(ctx context.Context, code, path, outDir string) (artifact string, err error)
}
