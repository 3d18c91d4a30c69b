package lang

import (
	"path/filepath"
	"slices"
	"strings"
)

// Language identifies a programming language by its accepted names and
// file extensions. The first name is the canonical one. Extensions carry
// the leading dot.
type Language struct {
	Names      []string
	Extensions []string
}

// Built in languages.
var (
	C = Language{
		Names:      []string{"c"},
		Extensions: []string{".c", ".h"},
	}
	CPP = Language{
		Names:      []string{"cpp", "c++", "cxx"},
		Extensions: []string{".cpp", ".cc", ".cxx", ".hpp", ".hh", ".hxx"},
	}
	Fortran = Language{
		Names:      []string{"fortran", "f77", "f90"},
		Extensions: []string{".f90", ".f95", ".f03", ".f", ".for", ".f77"},
	}
	Python = Language{
		Names:      []string{"python", "py", "python3"},
		Extensions: []string{".py"},
	}
)

// Name returns the canonical name of the language.
func (l Language) Name() string {
	if len(l.Names) == 0 {
		return ""
	}
	return l.Names[0]
}

// String implements fmt.Stringer.
func (l Language) String() string { return l.Name() }

// Matches reports whether name is one of the language's names. Matching is
// case insensitive.
func (l Language) Matches(name string) bool {
	return slices.ContainsFunc(l.Names, func(n string) bool {
		return strings.EqualFold(n, name)
	})
}

// AcceptsExtension reports whether ext (with leading dot) belongs to the
// language. Matching is case insensitive.
func (l Language) AcceptsExtension(ext string) bool {
	return slices.ContainsFunc(l.Extensions, func(e string) bool {
		return strings.EqualFold(e, ext)
	})
}

// AcceptsPath reports whether the extension of path belongs to the language.
func (l Language) AcceptsPath(path string) bool {
	return l.AcceptsExtension(filepath.Ext(path))
}

// DefaultExtension returns the extension files written in l should use.
func (l Language) DefaultExtension() string {
	if len(l.Extensions) == 0 {
		return ""
	}
	return l.Extensions[0]
}

// Same reports whether l and other identify the same language.
func (l Language) Same(other Language) bool {
	return l.Name() != "" && l.Name() == other.Name()
}
