// Package polyglot translates source code between C, C++, Fortran and
// Python through a shared generalized syntax tree.
//
// A translation parses the source with the parser of the source language,
// lowers the concrete tree into the generalized tree of package gast and
// renders it with the unparser of the target language. Languages register
// their capabilities in a [Registry]; a [Translator] binds one source and
// one target language of a registry.
package polyglot

import (
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/soypat/polyglot/cfamily"
	"github.com/soypat/polyglot/fortran"
	"github.com/soypat/polyglot/lang"
	"github.com/soypat/polyglot/python"
)

// Capabilities are the passes a language provides. Any of them may be nil.
type Capabilities struct {
	Language    lang.Language
	Parser      lang.Parser
	Generalizer lang.Generalizer
	Unparser    lang.Unparser
	Compiler    lang.Compiler
}

// Registry maps language identities to their capabilities. It is meant to
// be populated once before translations start.
type Registry struct {
	mu    sync.RWMutex
	langs []Capabilities
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds the capabilities of a language. Registering a language a
// second time replaces the capabilities that are set in caps.
func (r *Registry) Register(caps Capabilities) error {
	if caps.Language.Name() == "" {
		return &lang.ContractError{Op: "register", Msg: "language without a name"}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.langs {
		c := &r.langs[i]
		if !c.Language.Same(caps.Language) {
			continue
		}
		if caps.Parser != nil {
			c.Parser = caps.Parser
		}
		if caps.Generalizer != nil {
			c.Generalizer = caps.Generalizer
		}
		if caps.Unparser != nil {
			c.Unparser = caps.Unparser
		}
		if caps.Compiler != nil {
			c.Compiler = caps.Compiler
		}
		return nil
	}
	r.langs = append(r.langs, caps)
	return nil
}

// Lookup returns the capabilities of the language called name.
func (r *Registry) Lookup(name string) (Capabilities, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.langs {
		if c.Language.Matches(name) {
			return c, true
		}
	}
	return Capabilities{}, false
}

// ForPath returns the capabilities of the language whose extensions
// include the extension of path.
func (r *Registry) ForPath(path string) (Capabilities, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.langs {
		if c.Language.AcceptsPath(path) {
			return c, true
		}
	}
	return Capabilities{}, false
}

// Languages returns the registered languages in registration order.
func (r *Registry) Languages() []lang.Language {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]lang.Language, len(r.langs))
	for i, c := range r.langs {
		out[i] = c.Language
	}
	return out
}

// RegisterDefaults registers the built in languages configured by cfg.
// C has no unparser: C sources translate to C++.
func RegisterDefaults(r *Registry, cfg Config, log *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if log == nil {
		log = zap.NewNop()
	}
	form, _ := fortran.ParseForm(cfg.FortranForm)
	var pp *cfamily.Preprocessor
	if cfg.Preprocessor != "" {
		pp = &cfamily.Preprocessor{Command: cfg.Preprocessor, Include: slices.Clone(cfg.Include)}
	}
	compiler := func(l lang.Language) lang.Compiler {
		cmd, ok := cfg.Compilers[l.Name()]
		if !ok || cmd == "" {
			return nil
		}
		return &ToolCompiler{Language: l, Command: cmd, ArtifactExt: artifactExt(l), Log: log}
	}
	all := []Capabilities{
		{
			Language:    lang.Fortran,
			Parser:      &fortran.Parser{Form: form},
			Generalizer: &fortran.Generalizer{BestEffort: cfg.BestEffort, Log: log},
			Unparser:    &fortran.Unparser{Form: form, Headers: cfg.HeadersOnly, BestEffort: cfg.BestEffort, Log: log},
		},
		{
			Language:    lang.Python,
			Parser:      &python.Parser{},
			Generalizer: &python.Generalizer{BestEffort: cfg.BestEffort, Log: log},
			Unparser:    &python.Unparser{Headers: cfg.HeadersOnly, BestEffort: cfg.BestEffort, Log: log},
		},
		{
			Language:    lang.C,
			Parser:      &cfamily.Parser{Dialect: cfamily.C, Preprocessor: pp},
			Generalizer: &cfamily.Generalizer{BestEffort: cfg.BestEffort, Log: log},
		},
		{
			Language:    lang.CPP,
			Parser:      &cfamily.Parser{Dialect: cfamily.CPP, Preprocessor: pp},
			Generalizer: &cfamily.Generalizer{BestEffort: cfg.BestEffort, Log: log},
			Unparser:    &cfamily.Unparser{Headers: cfg.HeadersOnly, BestEffort: cfg.BestEffort, Log: log},
		},
	}
	for _, caps := range all {
		caps.Compiler = compiler(caps.Language)
		if err := r.Register(caps); err != nil {
			return err
		}
	}
	return nil
}

// artifactExt is the file extension of compiled artifacts. Python sources
// are their own artifact.
func artifactExt(l lang.Language) string {
	if l.Same(lang.Python) {
		return ""
	}
	return ".so"
}
