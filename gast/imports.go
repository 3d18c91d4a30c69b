package gast

// Imports accumulates the (module, alias) pairs a generalization pass
// requires. Pairs are deduplicated and keep first-insertion order.
// The zero value is ready to use.
type Imports struct {
	pairs []Alias
}

// Add records that module must be imported under alias. An empty alias
// imports the module under its own name.
func (im *Imports) Add(module, alias string) {
	for _, p := range im.pairs {
		if p.Name == module && p.AsName == alias {
			return
		}
	}
	im.pairs = append(im.pairs, Alias{Name: module, AsName: alias})
}

// Len returns the number of distinct pairs recorded.
func (im *Imports) Len() int { return len(im.pairs) }

// Pairs returns the recorded pairs in insertion order.
func (im *Imports) Pairs() []Alias {
	return append([]Alias(nil), im.pairs...)
}

// Prepend inserts one import statement per recorded pair at the start of
// mod.Body, skipping pairs the module already imports. It is meant to be
// called exactly once, at the end of a pass.
func (im *Imports) Prepend(mod *Module) {
	existing := make(map[Alias]bool)
	for _, stmt := range mod.Body {
		if imp, ok := stmt.(*Import); ok {
			for _, a := range imp.Names {
				existing[a] = true
			}
		}
	}
	var stmts []Stmt
	for _, p := range im.pairs {
		if existing[p] {
			continue
		}
		stmts = append(stmts, &Import{Names: []Alias{p}})
	}
	if len(stmts) == 0 {
		return
	}
	mod.Body = append(stmts, mod.Body...)
}
