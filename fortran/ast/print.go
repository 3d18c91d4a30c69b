package ast

import (
	"fmt"
	"io"
	"reflect"
	"strconv"
)

// FieldFilter reports whether a field of a node is printed by Fprint.
type FieldFilter func(name string, value reflect.Value) bool

// NotNilFilter drops nil, empty and zero valued fields.
func NotNilFilter(_ string, v reflect.Value) bool { return !v.IsZero() }

// FieldsFilter keeps only the named fields.
func FieldsFilter(names ...string) FieldFilter {
	return func(name string, _ reflect.Value) bool {
		for _, n := range names {
			if n == name {
				return true
			}
		}
		return false
	}
}

// Fprint writes n to w as an indented tree, one field per line. Each node
// is headed by its type and the byte span it covers. A nil filter prints
// every field.
func Fprint(w io.Writer, n Node, filter FieldFilter) error {
	tp := treePrinter{w: w, filter: filter}
	tp.value(reflect.ValueOf(n))
	tp.raw("\n")
	return tp.err
}

type treePrinter struct {
	w      io.Writer
	filter FieldFilter
	depth  int
	err    error
}

var (
	positionType = reflect.TypeOf(Position{})
	stringerType = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()
)

func (tp *treePrinter) raw(s string) {
	if tp.err == nil {
		_, tp.err = io.WriteString(tp.w, s)
	}
}

func (tp *treePrinter) newline() {
	tp.raw("\n")
	for range tp.depth {
		tp.raw("  ")
	}
}

func (tp *treePrinter) value(v reflect.Value) {
	if !v.IsValid() {
		tp.raw("nil")
		return
	}
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
		if v.IsNil() {
			tp.raw("nil")
			return
		}
		v = v.Elem()
	}
	if v.Type().Implements(stringerType) && v.Kind() != reflect.Struct {
		tp.raw(v.Interface().(fmt.Stringer).String())
		return
	}
	switch v.Kind() {
	case reflect.Struct:
		tp.node(v)
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			tp.raw("[]")
			return
		}
		tp.raw("[")
		tp.depth++
		for i := range v.Len() {
			tp.newline()
			tp.raw("- ")
			tp.value(v.Index(i))
		}
		tp.depth--
		tp.newline()
		tp.raw("]")
	case reflect.String:
		tp.raw(strconv.Quote(v.String()))
	default:
		tp.raw(fmt.Sprint(v.Interface()))
	}
}

func (tp *treePrinter) node(v reflect.Value) {
	t := v.Type()
	tp.raw(t.Name())
	if f, ok := t.FieldByName("Position"); ok && f.Type == positionType && f.Anonymous {
		pos := v.FieldByIndex(f.Index).Interface().(Position)
		tp.raw(" @" + strconv.Itoa(pos.Start()) + ":" + strconv.Itoa(pos.End()))
	}
	tp.depth++
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() || f.Type == positionType {
			continue
		}
		fv := v.Field(i)
		if tp.filter != nil && !tp.filter(f.Name, fv) {
			continue
		}
		tp.newline()
		tp.raw(f.Name + ": ")
		tp.value(fv)
	}
	tp.depth--
}
