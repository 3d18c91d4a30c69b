package gast

import (
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
)

// Dump returns a one-line structural rendering of node in the style
// `Assign(targets=[Name(id='a')], value=Constant(value=1))`.
// Metadata is not included, so two trees with the same Dump are
// structurally equal. A nil node dumps as "None".
func Dump(node Node) string {
	var sb strings.Builder
	d := dumper{w: &sb}
	d.value(reflect.ValueOf(node))
	return sb.String()
}

// Equal reports whether a and b are structurally equal, ignoring metadata.
func Equal(a, b Node) bool {
	return Dump(a) == Dump(b)
}

// Fdump writes an indented rendering of node to w, including metadata
// entries as a trailing `meta={...}` field.
func Fdump(w io.Writer, node Node) error {
	d := dumper{w: w, indent: "  ", meta: true}
	d.value(reflect.ValueOf(node))
	_, err := io.WriteString(w, "\n")
	if d.err != nil {
		return d.err
	}
	return err
}

type dumper struct {
	w      io.Writer
	indent string // Empty for single line output.
	meta   bool
	depth  int
	err    error
}

var (
	metaType     = reflect.TypeOf(Meta{})
	operatorType = reflect.TypeOf(Operator(0))
	nodeType     = reflect.TypeOf((*Node)(nil)).Elem()
)

func (d *dumper) printf(format string, args ...any) {
	if d.err != nil {
		return
	}
	_, d.err = fmt.Fprintf(d.w, format, args...)
}

func (d *dumper) newline() {
	if d.indent == "" {
		return
	}
	d.printf("\n%s", strings.Repeat(d.indent, d.depth))
}

func (d *dumper) value(v reflect.Value) {
	if !v.IsValid() {
		d.printf("None")
		return
	}
	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			d.printf("None")
			return
		}
		if v.Kind() == reflect.Pointer && v.Type().Implements(nodeType) {
			d.node(v)
			return
		}
		d.value(v.Elem())
		return
	case reflect.Slice:
		d.slice(v)
		return
	case reflect.Struct:
		d.record(strings.ToLower(v.Type().Name()), v, nil)
		return
	case reflect.String:
		d.printf("%s", pyQuote(v.String()))
		return
	}
	if v.Type() == operatorType {
		d.printf("%s()", v.Interface().(Operator).String())
		return
	}
	d.printf("%s", literal(v.Interface()))
}

func (d *dumper) node(v reflect.Value) {
	n := v.Interface().(Node)
	if c, ok := n.(*Constant); ok {
		d.printf("Constant(value=%s", literal(c.Value))
		d.metaField(&c.Meta)
		d.printf(")")
		return
	}
	var m *Meta
	if d.meta {
		m = n.Metadata()
	}
	d.record(n.Kind().String(), v.Elem(), m)
}

func (d *dumper) record(name string, v reflect.Value, m *Meta) {
	d.printf("%s(", name)
	t := v.Type()
	first := true
	d.depth++
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Type == metaType {
			continue
		}
		if !first {
			d.printf(", ")
		}
		first = false
		d.newline()
		d.printf("%s=", strings.ToLower(f.Name))
		d.value(v.Field(i))
	}
	d.depth--
	d.metaField(m)
	d.printf(")")
}

func (d *dumper) metaField(m *Meta) {
	if !d.meta || m.Len() == 0 {
		return
	}
	d.printf(", meta={")
	for i, k := range m.Keys() {
		if i > 0 {
			d.printf(", ")
		}
		v, _ := m.Get(k)
		d.printf("%s: %s", pyQuote(k), literal(v))
	}
	d.printf("}")
}

func (d *dumper) slice(v reflect.Value) {
	d.printf("[")
	d.depth++
	for i := 0; i < v.Len(); i++ {
		if i > 0 {
			d.printf(", ")
		}
		d.newline()
		d.value(v.Index(i))
	}
	d.depth--
	d.printf("]")
}

// literal renders a constant value the way the generalized surface syntax spells it.
func literal(v any) string {
	switch v := v.(type) {
	case nil:
		return "None"
	case bool:
		if v {
			return "True"
		}
		return "False"
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return FormatFloat(v)
	case complex128:
		return FormatFloat(imag(v)) + "j"
	case string:
		return pyQuote(v)
	}
	return fmt.Sprint(v)
}

// FormatFloat formats f with the shortest representation that round
// trips, always including a decimal point or exponent.
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if strings.ContainsAny(s, ".eIN") {
		return s
	}
	return s + ".0"
}

// pyQuote renders s as a single-quoted string literal.
func pyQuote(s string) string {
	var sb strings.Builder
	quote := byte('\'')
	if strings.IndexByte(s, '\'') >= 0 && strings.IndexByte(s, '"') < 0 {
		quote = '"'
	}
	sb.WriteByte(quote)
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		case rune(quote):
			sb.WriteByte('\\')
			sb.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte(quote)
	return sb.String()
}

// QuoteString renders s as a string literal in the generalized surface syntax.
func QuoteString(s string) string { return pyQuote(s) }
