package fortran

import (
	"strings"

	"github.com/soypat/polyglot/fortran/ast"
	"github.com/soypat/polyglot/fortran/token"
)

// Flags
type Flags uint64

const (
	FlagImplicit Flags = 1 << iota
	FlagArgument
	FlagOutput
	FlagPointer
	FlagTarget
	FlagAllocatable
	FlagIntrinsic
	FlagExternal
	FlagDeclared // Declaration already lowered.
)

func (f Flags) HasAny(hasBits Flags) bool { return f&hasBits != 0 }
func (f Flags) HasAll(hasBits Flags) bool { return f&hasBits == hasBits }
func (f Flags) With(mask Flags, setBits bool) Flags {
	if setBits {
		return f | mask
	} else {
		return f &^ mask
	}
}

// SymbolKind classifies what kind of entity a symbol represents
type SymbolKind int

const (
	SymUnknown     SymbolKind = iota
	SymVariable               // Regular variable
	SymParameter              // Named constant (PARAMETER attribute)
	SymFunction               // Function (returns value)
	SymSubroutine             // Subroutine (no return value)
	SymDerivedType            // User-defined TYPE
)

func (sk SymbolKind) String() string {
	switch sk {
	case SymVariable:
		return "Variable"
	case SymParameter:
		return "Parameter"
	case SymFunction:
		return "Function"
	case SymSubroutine:
		return "Subroutine"
	case SymDerivedType:
		return "DerivedType"
	default:
		return "Unknown"
	}
}

// Symbol is a name declared or used in a program unit. Declarations of one
// name may be spread over several statements (type, DIMENSION, PARAMETER);
// the symbol merges them.
type Symbol struct {
	Name string // Lower case.
	Kind SymbolKind
	// Type is the declared type, nil when the type comes from implicit rules.
	Type       *ast.TypeSpec
	Attributes []token.Token // SAVE, POINTER, TARGET, etc.
	ArraySpec  *ast.ArraySpec
	// Intent is the INTENT attribute of the declaration. Intents set by f2py
	// directives only reach the unit's parameter list.
	Intent ast.IntentType
	Init   ast.Expression // PARAMETER value or initializer.
	// Lower holds the lower bound of each dimension, nil entries are 1.
	// For allocatable arrays it is filled in from ALLOCATE statements.
	Lower []ast.Expression
	Flags Flags
}

// IsArray reports whether the symbol was declared with dimensions.
func (s *Symbol) IsArray() bool {
	return s.ArraySpec != nil && len(s.ArraySpec.Bounds) > 0
}

// Scope is the symbol table of one program unit. Internal procedures see
// the symbols of their host through parent.
type Scope struct {
	parent   *Scope
	symbols  map[string]*Symbol
	order    []string
	implicit *ImplicitRules
	unit     ast.ProgramUnit
}

func newScope(parent *Scope, unit ast.ProgramUnit) *Scope {
	rules := DefaultImplicitRules()
	if parent != nil {
		rules = parent.implicit.Copy()
	}
	return &Scope{
		parent:   parent,
		symbols:  make(map[string]*Symbol),
		implicit: rules,
		unit:     unit,
	}
}

// Lookup searches for a symbol in this scope and parent scopes
func (s *Scope) Lookup(name string) *Symbol {
	name = normalizeCase(name)
	for scope := s; scope != nil; scope = scope.parent {
		if sym, ok := scope.symbols[name]; ok {
			return sym
		}
	}
	return nil
}

// LookupLocal searches for a symbol only in this scope (not parent scopes)
func (s *Scope) LookupLocal(name string) *Symbol {
	return s.symbols[normalizeCase(name)]
}

// Define returns the local symbol called name, creating a variable if absent.
func (s *Scope) Define(name string) *Symbol {
	name = normalizeCase(name)
	if sym, ok := s.symbols[name]; ok {
		return sym
	}
	sym := &Symbol{Name: name, Kind: SymVariable}
	s.symbols[name] = sym
	s.order = append(s.order, name)
	return sym
}

// Symbols returns the local symbols in order of first appearance.
func (s *Scope) Symbols() []*Symbol {
	syms := make([]*Symbol, len(s.order))
	for i, name := range s.order {
		syms[i] = s.symbols[name]
	}
	return syms
}

// Implicit returns the implicit typing rules for this scope
func (s *Scope) Implicit() *ImplicitRules {
	return s.implicit
}

// TypeOf returns the type of name: its declared type or the one implicit
// rules give it. ok is false for undeclared names under IMPLICIT NONE.
func (s *Scope) TypeOf(name string) (spec ast.TypeSpec, ok bool) {
	if sym := s.Lookup(name); sym != nil && sym.Type != nil {
		return *sym.Type, true
	}
	return s.implicit.TypeOf(name)
}

// ImplicitRules stores implicit typing rules for a scope
type ImplicitRules struct {
	IsNone      bool             // IMPLICIT NONE specified?
	LetterTypes [26]ast.TypeSpec // Type for each letter a-z, zero Token = no rule.
}

// Copy creates a deep copy of ImplicitRules
func (ir *ImplicitRules) Copy() *ImplicitRules {
	if ir == nil {
		return nil
	}
	newRules := *ir
	return &newRules
}

// DefaultImplicitRules returns the default Fortran 77/90 implicit typing rules:
// I-N are INTEGER, A-H and O-Z are REAL.
func DefaultImplicitRules() *ImplicitRules {
	rules := &ImplicitRules{}
	for ch := 'a'; ch <= 'z'; ch++ {
		rules.LetterTypes[ch-'a'].Token = token.REAL
	}
	for ch := 'i'; ch <= 'n'; ch++ {
		rules.LetterTypes[ch-'a'].Token = token.INTEGER
	}
	return rules
}

// Apply updates the rules with an IMPLICIT statement.
func (ir *ImplicitRules) Apply(stmt *ast.ImplicitStatement) {
	if stmt.IsNone {
		ir.IsNone = true
		ir.LetterTypes = [26]ast.TypeSpec{}
		return
	}
	for _, rule := range stmt.Rules {
		for _, rg := range rule.Ranges {
			for ch := rg[0]; ch <= rg[1] && ch >= 'a' && ch <= 'z'; ch++ {
				ir.LetterTypes[ch-'a'] = rule.Type
			}
		}
	}
}

// TypeOf returns the implicit type of an identifier by its first letter.
func (ir *ImplicitRules) TypeOf(name string) (ast.TypeSpec, bool) {
	if name == "" {
		return ast.TypeSpec{}, false
	}
	first := name[0] | 0x20 // ASCII lower case.
	if first < 'a' || first > 'z' {
		return ast.TypeSpec{}, false
	}
	spec := ir.LetterTypes[first-'a']
	return spec, spec.Token != token.Undefined
}

// normalizeCase converts a Fortran identifier to normalized form (lower case).
// Fortran is case-insensitive and the generalized tree uses lower case names.
func normalizeCase(name string) string {
	return strings.ToLower(name)
}

// Procedure describes the interface of a procedure defined in the file, as
// far as calls to it are lowered.
type Procedure struct {
	Name       string
	IsFunction bool
	Result     string   // Function result variable.
	Params     []string // All dummy arguments in order.
	// Inputs are the dummy arguments that stay parameters.
	Inputs []string
	// Outputs are returned: INTENT(OUT) arguments and INTENT(INOUT) scalars.
	Outputs []string
}

// isInput reports whether dummy argument name stays a parameter.
func (pr *Procedure) isInput(name string) bool {
	for _, in := range pr.Inputs {
		if in == name {
			return true
		}
	}
	return false
}

func (pr *Procedure) isOutput(name string) bool {
	for _, out := range pr.Outputs {
		if out == name {
			return true
		}
	}
	return false
}
