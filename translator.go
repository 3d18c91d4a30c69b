package polyglot

import (
	"context"
	"io"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/soypat/polyglot/gast"
	"github.com/soypat/polyglot/lang"
)

// Translator translates source text of one language into another.
// It is safe for concurrent use.
type Translator struct {
	From Capabilities
	To   Capabilities
	// Workers bounds the files TranslateFolder translates at once.
	// Zero uses one worker per CPU.
	Workers int
	Log     *zap.Logger
}

// NewTranslator looks up the source and target languages in r. It fails
// before any work is done if from has no parser or generalizer, or to has
// no unparser.
func NewTranslator(r *Registry, from, to string) (*Translator, error) {
	src, ok := r.Lookup(from)
	if !ok {
		return nil, &lang.ContractError{Op: "translate", Msg: "unregistered source language " + from}
	}
	dst, ok := r.Lookup(to)
	if !ok {
		return nil, &lang.ContractError{Op: "translate", Msg: "unregistered target language " + to}
	}
	t := &Translator{From: src, To: dst}
	if err := t.check(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Translator) check() error {
	switch {
	case t.From.Parser == nil:
		return &lang.ContractError{Op: "translate", Msg: "no parser registered for " + t.From.Language.Name()}
	case t.From.Generalizer == nil:
		return &lang.ContractError{Op: "translate", Msg: "no generalizer registered for " + t.From.Language.Name()}
	case t.To.Unparser == nil:
		return &lang.ContractError{Op: "translate", Msg: "no unparser registered for " + t.To.Language.Name()}
	}
	return nil
}

func (t *Translator) logger() *zap.Logger {
	if t.Log == nil {
		return zap.NewNop()
	}
	return t.Log
}

// Generalize parses code and lowers it into the generalized tree. Trees
// holding native resources are closed before returning.
func (t *Translator) Generalize(code, path string, scopes ...lang.Scope) (*gast.Module, error) {
	if t.From.Parser == nil || t.From.Generalizer == nil {
		return nil, t.check()
	}
	tree, err := t.From.Parser.Parse(code, path, scopes...)
	if err != nil {
		return nil, err
	}
	if c, ok := tree.(io.Closer); ok {
		defer c.Close()
	}
	return t.From.Generalizer.Generalize(tree)
}

// Translate translates code, read from path, into the target language.
// Errors of every stage are returned as they are.
func (t *Translator) Translate(code, path string, scopes ...lang.Scope) (string, error) {
	if err := t.check(); err != nil {
		return "", err
	}
	mod, err := t.Generalize(code, path, scopes...)
	if err != nil {
		return "", err
	}
	return t.To.Unparser.Unparse(mod)
}

// TargetPath returns path with the extension of the target language.
func (t *Translator) TargetPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + t.To.Language.DefaultExtension()
}

// TranslateFolder translates every source file below in and writes the
// results to the same relative paths below out, with the target
// extension. Each output is written only once its translation succeeded.
// The first failure stops files not yet started and is returned.
func (t *Translator) TranslateFolder(ctx context.Context, in, out string) error {
	if err := t.check(); err != nil {
		return err
	}
	log := t.logger()
	reader := SourceReader{Language: t.From.Language}
	writer := CodeWriter{Language: t.To.Language}
	sources, err := reader.ReadFolder(in)
	if err != nil {
		return err
	}
	workers := t.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, path := range sortedKeys(sources) {
		code := sources[path]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rel, err := filepath.Rel(in, path)
			if err != nil {
				return err
			}
			text, err := t.Translate(code, path)
			if err != nil {
				log.Error("translation failed", zap.String("path", path), zap.Error(err))
				return err
			}
			dst := t.TargetPath(filepath.Join(out, rel))
			if err := writer.WriteFile(text, dst); err != nil {
				return err
			}
			log.Debug("translated", zap.String("src", path), zap.String("dst", dst))
			return nil
		})
	}
	return g.Wait()
}
