package polyglot

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/soypat/polyglot/lang"
)

// SourceReader reads source files of one language.
type SourceReader struct {
	Language lang.Language
}

// ReadFile returns the text of the source file at path. The path must name
// a regular file with an extension of the reader's language.
func (r SourceReader) ReadFile(path string) (string, error) {
	if !r.Language.AcceptsPath(path) {
		return "", &lang.ContractError{Op: "read", Msg: fmt.Sprintf("%s is not a %s source file", path, r.Language)}
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("reading source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", &lang.ContractError{Op: "read", Msg: path + " is not a regular file"}
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading source: %w", err)
	}
	return string(b), nil
}

// ReadFolder reads every source file of the reader's language below root,
// keyed by path. Files of other languages are skipped.
func (r SourceReader) ReadFolder(root string) (map[string]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("reading folder: %w", err)
	}
	if !info.IsDir() {
		return nil, &lang.ContractError{Op: "read", Msg: root + " is not a directory"}
	}
	sources := make(map[string]string)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || !r.Language.AcceptsPath(path) {
			return nil
		}
		text, err := r.ReadFile(path)
		if err != nil {
			return err
		}
		sources[path] = text
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sources, nil
}

// CodeWriter writes source files of one language.
type CodeWriter struct {
	Language lang.Language
}

// WriteFile writes code to path, creating missing parent directories. The
// file is replaced at once so readers never observe partial output.
func (w CodeWriter) WriteFile(code, path string) error {
	if !w.Language.AcceptsPath(path) {
		return &lang.ContractError{Op: "write", Msg: fmt.Sprintf("%s is not a %s source file", path, w.Language)}
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("writing source: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".polyglot-*")
	if err != nil {
		return fmt.Errorf("writing source: %w", err)
	}
	_, err = tmp.WriteString(code)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(tmp.Name(), 0o644)
	}
	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing source: %w", err)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
