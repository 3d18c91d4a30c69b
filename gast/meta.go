package gast

// Meta is an ordered mapping of string keys to opaque values attached to
// every node. Keys keep insertion order. Reading a missing key returns
// the zero value and false, never panics. The zero value is an empty map
// ready to use.
//
// Keys are namespaced by the producing front end, e.g. "fortran.allocate".
type Meta struct {
	keys []string
	vals map[string]any
}

// Metadata returns m. It is promoted to every node type embedding Meta.
func (m *Meta) Metadata() *Meta { return m }

// Get returns the value stored under key and whether it was present.
func (m *Meta) Get(key string) (any, bool) {
	if m == nil || m.vals == nil {
		return nil, false
	}
	v, ok := m.vals[key]
	return v, ok
}

// Has reports whether key is present.
func (m *Meta) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// GetString returns the value under key if it is present and a string.
func (m *Meta) GetString(key string) (string, bool) {
	v, ok := m.Get(key)
	s, isStr := v.(string)
	return s, ok && isStr
}

// GetBool returns the value under key if it is present and a bool.
func (m *Meta) GetBool(key string) bool {
	v, _ := m.Get(key)
	b, _ := v.(bool)
	return b
}

// Set stores value under key. Setting an existing key keeps its position.
func (m *Meta) Set(key string, value any) {
	if m.vals == nil {
		m.vals = make(map[string]any)
	}
	if _, exists := m.vals[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = value
}

// Delete removes key. Deleting a missing key is a no-op.
func (m *Meta) Delete(key string) {
	if !m.Has(key) {
		return
	}
	delete(m.vals, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order. The returned slice is a copy.
func (m *Meta) Keys() []string {
	if m == nil || len(m.keys) == 0 {
		return nil
	}
	return append([]string(nil), m.keys...)
}

// Len returns the number of entries.
func (m *Meta) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Copy returns an independent copy of m. Values are copied shallowly.
func (m *Meta) Copy() Meta {
	var c Meta
	for _, k := range m.Keys() {
		c.Set(k, m.vals[k])
	}
	return c
}

// Update copies every entry of src into m.
func (m *Meta) Update(src *Meta) {
	for _, k := range src.Keys() {
		v, _ := src.Get(k)
		m.Set(k, v)
	}
}

// MetaByReference marks an Arg whose assignments in the function body are
// seen by the caller, as with Fortran dummy arguments.
const MetaByReference = "by_reference"

// MetaPrototype marks a bodiless FunctionDef declaring a function defined
// elsewhere.
const MetaPrototype = "prototype"
