package gast

import "reflect"

// Clone returns a deep copy of node, metadata included. The copy shares no
// nodes with the original, so it can be grafted into another tree.
func Clone[N Node](node N) N {
	c := cloneValue(reflect.ValueOf(node))
	if !c.IsValid() {
		var zero N
		return zero
	}
	return c.Interface().(N)
}

// CloneExprs deep copies every expression of list.
func CloneExprs(list []Expr) []Expr {
	if list == nil {
		return nil
	}
	out := make([]Expr, len(list))
	for i, e := range list {
		out[i] = Clone(e)
	}
	return out
}

// CloneStmts deep copies every statement of list.
func CloneStmts(list []Stmt) []Stmt {
	if list == nil {
		return nil
	}
	out := make([]Stmt, len(list))
	for i, s := range list {
		out[i] = Clone(s)
	}
	return out
}

func cloneValue(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Invalid:
		return v
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		c := cloneValue(v.Elem())
		out := reflect.New(v.Type()).Elem()
		out.Set(c)
		return out
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(cloneValue(v.Elem()))
		return out
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneValue(v.Index(i)))
		}
		return out
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		if v.Type() == metaType {
			m := v.Interface().(Meta)
			out.Set(reflect.ValueOf(m.Copy()))
			return out
		}
		for i := 0; i < v.NumField(); i++ {
			if !v.Type().Field(i).IsExported() {
				continue
			}
			out.Field(i).Set(cloneValue(v.Field(i)))
		}
		return out
	}
	// Scalars and constant values (int64, float64, string, bool...).
	out := reflect.New(v.Type()).Elem()
	out.Set(v)
	return out
}
