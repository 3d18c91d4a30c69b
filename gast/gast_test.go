package gast

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func add(l, r Expr) *BinOp { return &BinOp{Left: l, Op: Add, Right: r} }

func TestMeta(t *testing.T) {
	var m Meta
	if v, ok := m.Get("missing"); ok || v != nil {
		t.Errorf("zero Meta: got %v, %v", v, ok)
	}
	m.Set("b", 1)
	m.Set("a", true)
	m.Set("b", 2)
	if diff := cmp.Diff([]string{"b", "a"}, m.Keys()); diff != "" {
		t.Errorf("keys (-want +got):\n%s", diff)
	}
	if v, _ := m.Get("b"); v != 2 {
		t.Errorf("b = %v, want 2", v)
	}
	if !m.GetBool("a") || m.GetBool("b") {
		t.Error("GetBool mismatch")
	}
	if _, ok := m.GetString("a"); ok {
		t.Error("GetString of a bool succeeded")
	}

	c := m.Copy()
	c.Set("c", "x")
	m.Delete("b")
	m.Delete("nope")
	if m.Len() != 1 || c.Len() != 3 {
		t.Errorf("lengths %d and %d, want 1 and 3", m.Len(), c.Len())
	}
}

func TestDump(t *testing.T) {
	a := &Assign{Targets: []Expr{NewName("a")}, Value: Int(1)}
	const want = "Assign(targets=[Name(id='a')], value=Constant(value=1))"
	if got := Dump(a); got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
	b := Clone(a)
	b.Targets[0].(*Name).Set("fortran.intent", "out")
	if !Equal(a, b) {
		t.Error("metadata changed structural equality")
	}
	if Dump(nil) != "None" {
		t.Errorf("nil dumps as %s", Dump(nil))
	}

	var sb strings.Builder
	if err := Fdump(&sb, b); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sb.String(), "meta={'fortran.intent': 'out'}") {
		t.Errorf("Fdump lacks metadata:\n%s", sb.String())
	}
}

func TestFoldLeftAssociative(t *testing.T) {
	names := []Expr{NewName("a"), NewName("b"), NewName("c"), NewName("d")}
	plus, minus := OpPair{KindBinOp, Add}, OpPair{KindBinOp, Sub}
	got, err := Fold(names, []OpPair{plus, minus, plus})
	if err != nil {
		t.Fatal(err)
	}
	want := add(&BinOp{Left: add(NewName("a"), NewName("b")), Op: Sub, Right: NewName("c")}, NewName("d"))
	if !Equal(got, want) {
		t.Errorf("got  %s\nwant %s", Dump(got), Dump(want))
	}
}

func TestFoldBoolean(t *testing.T) {
	and := OpPair{KindBoolOp, And}
	inner := &BoolOp{Op: And, Values: []Expr{NewName("b"), NewName("c")}}
	got, err := Fold([]Expr{NewName("a"), inner}, []OpPair{and})
	if err != nil {
		t.Fatal(err)
	}
	b, ok := got.(*BoolOp)
	if !ok || len(b.Values) != 3 {
		t.Errorf("want flat BoolOp of 3 values, got %s", Dump(got))
	}
}

func TestFoldErrors(t *testing.T) {
	lt := OpPair{KindCompare, Lt}
	_, err := Fold([]Expr{NewName("a"), NewName("b"), NewName("c")}, []OpPair{lt, lt})
	if !errors.Is(err, ErrCompareChain) {
		t.Errorf("want ErrCompareChain, got %v", err)
	}
	if _, err := Fold([]Expr{NewName("a")}, []OpPair{lt}); err == nil {
		t.Error("want error on operand count mismatch")
	}
	if _, err := Fold([]Expr{NewName("a"), NewName("b")}, []OpPair{{KindBinOp, Lt}}); err == nil {
		t.Error("want error on invalid pair")
	}
}

func TestOperatorClasses(t *testing.T) {
	for op := Add; op < numOps; op++ {
		p := OpPair{Kind: op.Class(), Op: op}
		if !p.Valid() {
			t.Errorf("%s: pair %v not valid", op, p)
		}
		if op.Symbol() == "?" {
			t.Errorf("%s has no symbol", op)
		}
	}
	if (OpPair{KindBinOp, Eq}).Valid() {
		t.Error("Eq accepted as BinOp")
	}
}

func TestClone(t *testing.T) {
	orig := &FunctionDef{
		Name: "f",
		Args: []*Arg{{Name: "x"}},
		Body: []Stmt{&Return{Value: add(NewName("x"), Int(1))}},
	}
	orig.Set("c.prototype", false)
	c := Clone(orig)
	if !Equal(orig, c) || !c.Has("c.prototype") {
		t.Fatalf("clone differs: %s", Dump(c))
	}
	c.Body[0].(*Return).Value.(*BinOp).Right = Int(2)
	c.Args[0].Name = "y"
	if Dump(orig) == Dump(c) {
		t.Error("clone shares nodes with the original")
	}
}

func TestRewriteExprs(t *testing.T) {
	a := &Assign{Targets: []Expr{NewName("y")}, Value: add(NewName("x"), NewName("x"))}
	RewriteExprs(a, func(e Expr) Expr {
		if n, ok := e.(*Name); ok && n.ID == "x" {
			return Int(1)
		}
		return e
	})
	want := &Assign{Targets: []Expr{NewName("y")}, Value: add(Int(1), Int(1))}
	if !Equal(a, want) {
		t.Errorf("got  %s\nwant %s", Dump(a), Dump(want))
	}
}

func TestExpandStmts(t *testing.T) {
	mod := &Module{Body: []Stmt{
		&Pass{},
		&If{Test: NewName("c"), Body: []Stmt{&Pass{}, &Break{}}},
	}}
	ExpandStmts(mod, func(s Stmt) []Stmt {
		switch s.(type) {
		case *Pass:
			return nil
		case *Break:
			return []Stmt{&Continue{}, &Break{}}
		}
		return []Stmt{s}
	})
	want := &Module{Body: []Stmt{
		&If{Test: NewName("c"), Body: []Stmt{&Continue{}, &Break{}}},
	}}
	if !Equal(mod, want) {
		t.Errorf("got  %s\nwant %s", Dump(mod), Dump(want))
	}
}

func TestDecodeType(t *testing.T) {
	ann := PointerType(ArrayType(Scalar(TypeFloat64), NewName("n"), nil))
	ti, ok := DecodeType(ann)
	if !ok {
		t.Fatalf("cannot decode %s", Dump(ann))
	}
	if ti.Scalar != TypeFloat64 || ti.Record || ti.Rank() != 2 || ti.Extents[1] != nil || !ti.IsPointer() || ti.IsConst() {
		t.Errorf("decoded %+v", ti)
	}
	if !UsesNumpy(ann) {
		t.Error("array annotation does not use numpy")
	}

	for _, tc := range []struct {
		ann    Expr
		scalar string
		record bool
	}{
		{Scalar(TypeInt), TypeInt, false},
		{Scalar(TypeNone), TypeNone, false},
		{NewName("point"), "point", true},
		{ConstType(Scalar(TypeStr)), TypeStr, false},
	} {
		ti, ok := DecodeType(tc.ann)
		if !ok || ti.Scalar != tc.scalar || ti.Record != tc.record {
			t.Errorf("%s: got %+v, %v", Dump(tc.ann), ti, ok)
		}
	}
	if _, ok := DecodeType(Int(1)); ok {
		t.Error("constant decoded as a type")
	}
}

func TestAddConst(t *testing.T) {
	n := NewName("n")
	for _, tc := range []struct {
		e     Expr
		delta int64
		want  Expr
	}{
		{Int(1), -1, Int(0)},
		{Int(0), -1, &UnaryOp{Op: USub, Operand: Int(1)}},
		{&BinOp{Left: n, Op: Sub, Right: Int(1)}, 1, n},
		{add(n, Int(2)), -3, &BinOp{Left: n, Op: Sub, Right: Int(1)}},
		{n, 0, n},
	} {
		if got := AddConst(tc.e, tc.delta); !Equal(got, tc.want) {
			t.Errorf("AddConst(%s, %d) = %s, want %s", Dump(tc.e), tc.delta, Dump(got), Dump(tc.want))
		}
	}
}

func TestImports(t *testing.T) {
	var im Imports
	im.Add(NumpyModule, NumpyAlias)
	im.Add("math", "")
	im.Add(NumpyModule, NumpyAlias)
	if im.Len() != 2 {
		t.Fatalf("got %d pairs, want 2", im.Len())
	}
	mod := &Module{Body: []Stmt{
		&Import{Names: []Alias{{Name: "math"}}},
		&Pass{},
	}}
	im.Prepend(mod)
	want := &Module{Body: []Stmt{
		&Import{Names: []Alias{{Name: NumpyModule, AsName: NumpyAlias}}},
		&Import{Names: []Alias{{Name: "math"}}},
		&Pass{},
	}}
	if !Equal(mod, want) {
		t.Errorf("got  %s\nwant %s", Dump(mod), Dump(want))
	}
}

func TestKinds(t *testing.T) {
	kinds := Kinds()
	if !slices.Contains(kinds, KindCall) || slices.Contains(kinds, KindInvalid) {
		t.Errorf("Kinds() = %v", kinds)
	}
	for _, k := range kinds {
		if k.IsStatement() && k.IsExpression() {
			t.Errorf("%s is both statement and expression", k)
		}
	}
	stmt := &ExprStmt{Value: NewCall("f")}
	if got := stmt.Kind().String(); got != "ExprStmt" {
		t.Errorf("expression statement kind %q", got)
	}
	if !strings.HasPrefix(Dump(stmt), "ExprStmt(value=Call(") {
		t.Errorf("dump %s", Dump(stmt))
	}
}
