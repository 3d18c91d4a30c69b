package gast

import "strings"

// Constructors for the node shapes front ends build most often.

func NewName(id string) *Name { return &Name{ID: id} }

func Int(v int64) *Constant { return &Constant{Value: v} }

func Float(v float64) *Constant { return &Constant{Value: v} }

func Str(s string) *Constant { return &Constant{Value: s} }

func Bool(b bool) *Constant { return &Constant{Value: b} }

// None returns the null literal.
func None() *Constant { return &Constant{Value: nil} }

// Dotted builds a Name/Attribute chain from a dotted path: "np.linalg.norm".
func Dotted(path string) Expr {
	parts := strings.Split(path, ".")
	var e Expr = NewName(parts[0])
	for _, p := range parts[1:] {
		e = &Attribute{Value: e, Attr: p}
	}
	return e
}

// DottedPath is the inverse of [Dotted]. It returns false if e is not a
// chain of attributes rooted at a Name.
func DottedPath(e Expr) (string, bool) {
	switch n := e.(type) {
	case *Name:
		return n.ID, true
	case *Attribute:
		base, ok := DottedPath(n.Value)
		if !ok {
			return "", false
		}
		return base + "." + n.Attr, true
	}
	return "", false
}

// NewCall builds a call to the function at dotted path fn.
func NewCall(fn string, args ...Expr) *Call {
	return &Call{Func: Dotted(fn), Args: args}
}

// CalleeName returns the dotted path of a call's callee if it has one.
func CalleeName(c *Call) (string, bool) {
	return DottedPath(c.Func)
}

// IntValue returns the value of an integer constant, looking through unary minus.
func IntValue(e Expr) (int64, bool) {
	switch n := e.(type) {
	case *Constant:
		v, ok := n.Value.(int64)
		return v, ok
	case *UnaryOp:
		if n.Op == USub {
			v, ok := IntValue(n.Operand)
			return -v, ok
		}
	}
	return 0, false
}

// AddConst returns e + delta, folding integer constants and cancelling a
// trailing `x - delta` or `x + (-delta)` so bound adjustments stay readable.
func AddConst(e Expr, delta int64) Expr {
	if delta == 0 {
		return e
	}
	if v, ok := IntValue(e); ok {
		return intExpr(v + delta)
	}
	if b, ok := e.(*BinOp); ok {
		if c, ok := IntValue(b.Right); ok && (b.Op == Add || b.Op == Sub) {
			if b.Op == Sub {
				c = -c
			}
			c += delta
			switch {
			case c == 0:
				return b.Left
			case c > 0:
				return &BinOp{Left: b.Left, Op: Add, Right: Int(c)}
			default:
				return &BinOp{Left: b.Left, Op: Sub, Right: Int(-c)}
			}
		}
	}
	if delta > 0 {
		return &BinOp{Left: e, Op: Add, Right: Int(delta)}
	}
	return &BinOp{Left: e, Op: Sub, Right: Int(-delta)}
}

func intExpr(v int64) Expr {
	if v < 0 {
		return &UnaryOp{Op: USub, Operand: Int(-v)}
	}
	return Int(v)
}

// RangeBounds decomposes a call to range into begin, end and step.
// Missing begin is 0, missing step is nil.
func RangeBounds(e Expr) (begin, end, step Expr, ok bool) {
	c, isCall := e.(*Call)
	if !isCall || len(c.Keywords) > 0 {
		return nil, nil, nil, false
	}
	if name, _ := CalleeName(c); name != "range" {
		return nil, nil, nil, false
	}
	switch len(c.Args) {
	case 1:
		return Int(0), c.Args[0], nil, true
	case 2:
		return c.Args[0], c.Args[1], nil, true
	case 3:
		return c.Args[0], c.Args[1], c.Args[2], true
	}
	return nil, nil, nil, false
}

// Range builds `range(begin, end[, step])`. A nil step is omitted.
func Range(begin, end, step Expr) *Call {
	args := []Expr{begin, end}
	if step != nil {
		args = append(args, step)
	}
	return NewCall("range", args...)
}

// SubscriptDims returns the per-dimension subscripts of s.Slice.
func SubscriptDims(s *Subscript) []Expr {
	if ext, ok := s.Slice.(*ExtSlice); ok {
		return ext.Dims
	}
	return []Expr{s.Slice}
}

// NewSubscript builds value[dims...], using an *ExtSlice for more than one dimension.
// Plain expressions in dims are wrapped in *Index.
func NewSubscript(value Expr, dims ...Expr) *Subscript {
	for i, d := range dims {
		switch d.(type) {
		case *Index, *Slice:
		default:
			dims[i] = &Index{Value: d}
		}
	}
	if len(dims) == 1 {
		return &Subscript{Value: value, Slice: dims[0]}
	}
	return &Subscript{Value: value, Slice: &ExtSlice{Dims: dims}}
}
