package fortran

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/soypat/polyglot/fortran/ast"
	"github.com/soypat/polyglot/fortran/token"
	"github.com/soypat/polyglot/gast"
	"github.com/soypat/polyglot/lang"
)

func generalize(t *testing.T, src string, form Form) *gast.Module {
	t.Helper()
	p := Parser{Form: form}
	tree, err := p.Parse(src, "")
	if err != nil {
		t.Fatalf("parse: %v\n%s", err, src)
	}
	var g Generalizer
	mod, err := g.Generalize(tree)
	if err != nil {
		t.Fatalf("generalize: %v\n%s", err, src)
	}
	return mod
}

// find returns the first node of type T in the tree under root.
func find[T gast.Node](root gast.Node) (T, bool) {
	var found T
	ok := false
	gast.Inspect(root, func(n gast.Node) bool {
		if ok {
			return false
		}
		found, ok = n.(T)
		return !ok
	})
	return found, ok
}

func opPairOf(e gast.Expr) gast.OpPair {
	switch e := e.(type) {
	case *gast.BinOp:
		return gast.OpPair{Kind: gast.KindBinOp, Op: e.Op}
	case *gast.UnaryOp:
		return gast.OpPair{Kind: gast.KindUnaryOp, Op: e.Op}
	case *gast.BoolOp:
		return gast.OpPair{Kind: gast.KindBoolOp, Op: e.Op}
	case *gast.Compare:
		if len(e.Ops) == 1 {
			return gast.OpPair{Kind: gast.KindCompare, Op: e.Ops[0]}
		}
	}
	return gast.OpPair{}
}

func TestOperatorTable(t *testing.T) {
	for tok, want := range binaryOps {
		// a and b are implicitly REAL, so / stays true division.
		src := "PROGRAM t\nx = a " + tok.String() + " b\nEND PROGRAM t\n"
		mod := generalize(t, src, FormFree)
		assign, ok := find[*gast.Assign](mod)
		if !ok {
			t.Fatalf("%s: no assignment in %s", tok, gast.Dump(mod))
		}
		if got := opPairOf(assign.Value); got != want {
			t.Errorf("%s: got %s/%s, want %s/%s", tok, got.Kind, got.Op, want.Kind, want.Op)
		}
	}
	for tok, want := range unaryOps {
		src := "PROGRAM t\nx = " + tok.String() + " a\nEND PROGRAM t\n"
		mod := generalize(t, src, FormFree)
		assign, _ := find[*gast.Assign](mod)
		if got := opPairOf(assign.Value); got != want {
			t.Errorf("unary %s: got %s/%s, want %s/%s", tok, got.Kind, got.Op, want.Kind, want.Op)
		}
	}
}

func TestIntegerDivision(t *testing.T) {
	mod := generalize(t, "PROGRAM t\nk = i / j\nx = i / 2.0\nEND PROGRAM t\n", FormFree)
	var ops []gast.Operator
	gast.Inspect(mod, func(n gast.Node) bool {
		if b, ok := n.(*gast.BinOp); ok {
			ops = append(ops, b.Op)
		}
		return true
	})
	if len(ops) != 2 || ops[0] != gast.FloorDiv || ops[1] != gast.Div {
		t.Fatalf("got operators %v, want [FloorDiv Div]", ops)
	}
	div, _ := find[*gast.BinOp](mod)
	if !gast.Truncating(div) {
		t.Error("integer division does not truncate")
	}
}

func TestFoldLeftAssociative(t *testing.T) {
	mod := generalize(t, "PROGRAM t\nx = a + b - c + d\nEND PROGRAM t\n", FormFree)
	assign, _ := find[*gast.Assign](mod)
	outer, ok := assign.Value.(*gast.BinOp)
	if !ok || outer.Op != gast.Add {
		t.Fatalf("want outer Add, got %s", gast.Dump(assign.Value))
	}
	mid, ok := outer.Left.(*gast.BinOp)
	if !ok || mid.Op != gast.Sub {
		t.Fatalf("want Sub nested on the left, got %s", gast.Dump(assign.Value))
	}
	inner, ok := mid.Left.(*gast.BinOp)
	if !ok || inner.Op != gast.Add {
		t.Fatalf("want Add innermost, got %s", gast.Dump(assign.Value))
	}
	for e, id := range map[gast.Expr]string{inner.Left: "a", inner.Right: "b", mid.Right: "c", outer.Right: "d"} {
		if n, ok := e.(*gast.Name); !ok || n.ID != id {
			t.Errorf("want operand %s, got %s", id, gast.Dump(e))
		}
	}
}

func TestCompareChainFails(t *testing.T) {
	_, err := gast.Fold([]gast.Expr{gast.NewName("a"), gast.NewName("b"), gast.NewName("c")},
		[]gast.OpPair{binaryOps[token.Less], binaryOps[token.Less]})
	if !errors.Is(err, gast.ErrCompareChain) {
		t.Errorf("want ErrCompareChain, got %v", err)
	}

	for _, expr := range []string{"a < b < c", "a .LT. b .LE. c", "a == b /= c"} {
		p := Parser{Form: FormFree}
		tree, err := p.Parse("PROGRAM t\nLOGICAL :: x\nx = "+expr+"\nEND PROGRAM t\n", "t.f90")
		if err != nil {
			// Rejected while parsing is as good.
			continue
		}
		var g Generalizer
		_, err = g.Generalize(tree)
		var se *lang.StructureError
		if !errors.As(err, &se) || !strings.Contains(se.Msg, gast.ErrCompareChain.Error()) {
			t.Errorf("%s: want comparison chain StructureError, got %v", expr, err)
		}
	}

	// Parenthesized comparisons and .EQV. chains are not chains.
	for _, expr := range []string{"(a < b) .EQV. (b < c)", "p .EQV. q .EQV. r", "p .NEQV. a < b"} {
		mod := generalize(t, "PROGRAM t\nLOGICAL :: x, p, q, r\nx = "+expr+"\nEND PROGRAM t\n", FormFree)
		if _, ok := find[*gast.Compare](mod); !ok {
			t.Errorf("%s: no comparison in %s", expr, gast.Dump(mod))
		}
	}
}

func TestTrailingCommentAtEOF(t *testing.T) {
	mod := generalize(t, "PROGRAM t\nx = 1.0\nEND PROGRAM t\n! trailing comment", FormFree)
	var comment *gast.Comment
	gast.Inspect(mod, func(n gast.Node) bool {
		if c, ok := n.(*gast.Comment); ok {
			comment = c
		}
		return true
	})
	if comment == nil || strings.TrimSpace(comment.Text) != "trailing comment" {
		t.Errorf("want trailing comment kept, got %s", gast.Dump(mod))
	}
}

func TestUnsupportedFailFast(t *testing.T) {
	prog := &ast.Program{Units: []ast.ProgramUnit{
		&ast.ProgramBlock{Name: "t", Body: []ast.Statement{&ast.GotoStmt{Target: "10"}}},
	}}
	var g Generalizer
	_, err := g.Generalize(&Tree{Program: prog})
	var uc *lang.UnsupportedConstruct
	if !errors.As(err, &uc) {
		t.Fatalf("want *lang.UnsupportedConstruct, got %v", err)
	}
	if uc.Kind != "GotoStmt" {
		t.Errorf("unsupported kind %q, want GotoStmt", uc.Kind)
	}
	if !strings.Contains(uc.Source, "10") {
		t.Errorf("source %q should carry the statement", uc.Source)
	}

	// Best effort drops the statement and keeps the program.
	g = Generalizer{BestEffort: true, Log: zap.NewNop()}
	mod, err := g.Generalize(&Tree{Program: prog})
	if err != nil {
		t.Fatal(err)
	}
	fn, ok := find[*gast.FunctionDef](mod)
	if !ok || len(fn.Body) != 1 {
		t.Fatalf("want program with a single placeholder, got %s", gast.Dump(mod))
	}
	if _, ok := fn.Body[0].(*gast.Pass); !ok {
		t.Errorf("want pass body, got %s", gast.Dump(fn.Body[0]))
	}
}

func TestGeneralizeWrongTree(t *testing.T) {
	var g Generalizer
	_, err := g.Generalize(nil)
	var ce *lang.ContractError
	if !errors.As(err, &ce) {
		t.Errorf("want *lang.ContractError, got %v", err)
	}
}

func TestAllocate(t *testing.T) {
	const src = `PROGRAM t
  REAL, ALLOCATABLE :: x(:)
  INTEGER :: n
  n = 4
  ALLOCATE(x(n))
  x(1) = 1.0
  DEALLOCATE(x)
END PROGRAM t
`
	mod := generalize(t, src, FormFree)
	imp, ok := mod.Body[0].(*gast.Import)
	if !ok || imp.Names[0].Name != gast.NumpyModule || imp.Names[0].AsName != gast.NumpyAlias {
		t.Fatalf("want numpy import first, got %s", gast.Dump(mod.Body[0]))
	}
	var alloc *gast.Assign
	gast.Inspect(mod, func(n gast.Node) bool {
		if a, ok := n.(*gast.Assign); ok && a.GetBool(MetaAllocate) {
			alloc = a
		}
		return true
	})
	if alloc == nil {
		t.Fatalf("no allocation in %s", gast.Dump(mod))
	}
	call, ok := alloc.Value.(*gast.Call)
	if name, _ := gast.CalleeName(call); !ok || name != "np.zeros" {
		t.Fatalf("want np.zeros, got %s", gast.Dump(alloc.Value))
	}
	if got := gast.Dump(call.Args[0]); got != gast.Dump(&gast.Tuple{Elts: []gast.Expr{gast.NewName("n")}}) {
		t.Errorf("shape %s", got)
	}
	del, ok := find[*gast.Delete](mod)
	if !ok || !del.GetBool(MetaDeallocate) {
		t.Errorf("want deallocate metadata on delete")
	}
	// x(1) is the first element.
	var sub *gast.Subscript
	gast.Inspect(mod, func(n gast.Node) bool {
		if a, ok := n.(*gast.Assign); ok && sub == nil {
			sub, _ = a.Targets[0].(*gast.Subscript)
		}
		return true
	})
	if sub == nil {
		t.Fatalf("no element assignment in %s", gast.Dump(mod))
	}
	if idx, ok := gast.IntValue(gast.SubscriptDims(sub)[0].(*gast.Index).Value); !ok || idx != 0 {
		t.Errorf("want 0-based index, got %s", gast.Dump(sub))
	}
}

func TestAssignWholeAllocatable(t *testing.T) {
	const src = `PROGRAM t
  REAL, ALLOCATABLE :: x(:, :), y(:, :)
  INTEGER :: n
  n = 3
  ALLOCATE(x(n, n))
  x = 0
  y = x
  x = 2.0 * n + 1
END PROGRAM t
`
	mod := generalize(t, src, FormFree)
	var targets []gast.Expr
	gast.Inspect(mod, func(n gast.Node) bool {
		if a, ok := n.(*gast.Assign); ok && !a.GetBool(MetaAllocate) {
			targets = append(targets, a.Targets[0])
		}
		return true
	})
	if len(targets) != 4 {
		t.Fatalf("got %d assignments, want 4", len(targets))
	}
	for _, i := range []int{1, 3} {
		sub, ok := targets[i].(*gast.Subscript)
		if !ok {
			t.Errorf("assignment %d: want full slice target, got %s", i, gast.Dump(targets[i]))
			continue
		}
		dims := gast.SubscriptDims(sub)
		if len(dims) != 2 {
			t.Errorf("assignment %d: got %d dims", i, len(dims))
		}
		for _, d := range dims {
			if _, ok := d.(*gast.Slice); !ok {
				t.Errorf("assignment %d: dim %s is not a slice", i, gast.Dump(d))
			}
		}
	}
	if name, ok := targets[2].(*gast.Name); !ok || name.ID != "y" {
		t.Errorf("array value rebinds y, got %s", gast.Dump(targets[2]))
	}
}

func TestDefaultKindReal(t *testing.T) {
	const src = `REAL FUNCTION f(a, b, c)
  REAL, INTENT(IN) :: a
  DOUBLE PRECISION, INTENT(IN) :: b
  REAL(KIND=8), INTENT(IN) :: c
  f = a + b + c
END FUNCTION f
`
	mod := generalize(t, src, FormFree)
	fn, ok := find[*gast.FunctionDef](mod)
	if !ok {
		t.Fatal("no function")
	}
	if !fn.GetBool(MetaDefaultKind) {
		t.Error("default REAL result not marked")
	}
	want := map[string]bool{"a": true, "b": false, "c": false}
	for _, arg := range fn.Args {
		if got := arg.GetBool(MetaDefaultKind); got != want[arg.Name] {
			t.Errorf("%s: default kind %v, want %v", arg.Name, got, want[arg.Name])
		}
	}
}

func TestOutputArguments(t *testing.T) {
	const src = `
      SUBROUTINE ADD(A,B,C)
Cf2py intent(out) c
      INTEGER A, B, C
      C = A + B
      END
`
	mod := generalize(t, src, FormFixed)
	fn, ok := find[*gast.FunctionDef](mod)
	if !ok {
		t.Fatal("no function")
	}
	if fn.Name != "add" || len(fn.Args) != 2 || fn.Args[0].Name != "a" || fn.Args[1].Name != "b" {
		t.Fatalf("want add(a, b), got %s", gast.Dump(fn))
	}
	if gast.Dump(fn.Returns) != gast.Dump(gast.Scalar(gast.TypeInt)) {
		t.Errorf("returns %s", gast.Dump(fn.Returns))
	}
	ret, ok := fn.Body[len(fn.Body)-1].(*gast.Return)
	if !ok || gast.Dump(ret.Value) != gast.Dump(gast.NewName("c")) {
		t.Errorf("want final return c, got %s", gast.Dump(fn.Body[len(fn.Body)-1]))
	}
	comment, ok := fn.Body[0].(*gast.Comment)
	if !ok || comment.Text != "f2py intent(out) c" {
		t.Errorf("want directive comment kept, got %s", gast.Dump(fn.Body[0]))
	}
}

func TestDummyArgumentsByReference(t *testing.T) {
	const src = `SUBROUTINE s(a, b, x, y, v)
INTEGER, INTENT(IN) :: a
INTEGER :: b, x, y
REAL :: v(10)
x = a + b
v(1) = 0.0
END SUBROUTINE s
`
	mod := generalize(t, src, FormFree)
	fn, ok := find[*gast.FunctionDef](mod)
	if !ok {
		t.Fatal("no function")
	}
	var byRef []string
	for _, arg := range fn.Args {
		if arg.GetBool(gast.MetaByReference) {
			byRef = append(byRef, arg.Name)
		}
	}
	if len(byRef) != 1 || byRef[0] != "x" {
		t.Errorf("by reference: got %v, want [x]", byRef)
	}
}

func TestCallWithOutputs(t *testing.T) {
	const src = `SUBROUTINE addsub(a, b, s, d)
  INTEGER, INTENT(IN) :: a, b
  INTEGER, INTENT(OUT) :: s, d
  s = a + b
  d = a - b
END SUBROUTINE addsub

PROGRAM main
  INTEGER :: x, y
  CALL addsub(5, 3, x, y)
END PROGRAM main
`
	mod := generalize(t, src, FormFree)
	var call *gast.Assign
	gast.Inspect(mod, func(n gast.Node) bool {
		if a, ok := n.(*gast.Assign); ok && a.GetBool(MetaCall) {
			call = a
		}
		return true
	})
	if call == nil {
		t.Fatalf("no call assignment in %s", gast.Dump(mod))
	}
	want := &gast.Assign{
		Targets: []gast.Expr{&gast.Tuple{Elts: []gast.Expr{gast.NewName("x"), gast.NewName("y")}}},
		Value:   gast.NewCall("addsub", gast.Int(5), gast.Int(3)),
	}
	if !gast.Equal(call, want) {
		t.Errorf("got %s\nwant %s", gast.Dump(call), gast.Dump(want))
	}
}

func TestIntrinsicLowering(t *testing.T) {
	mod := generalize(t, "PROGRAM t\nx = SQRT(y)\nk = MAX(i, j)\nEND PROGRAM t\n", FormFree)
	var calls []*gast.Call
	gast.Inspect(mod, func(n gast.Node) bool {
		if c, ok := n.(*gast.Call); ok {
			calls = append(calls, c)
		}
		return true
	})
	var names []string
	for _, c := range calls {
		name, _ := gast.CalleeName(c)
		names = append(names, name)
	}
	if strings.Join(names, ",") != "np.sqrt,max,t" {
		t.Errorf("got callees %v", names)
	}
	if v, _ := calls[0].GetString(MetaIntrinsic); v != "sqrt" {
		t.Errorf("intrinsic metadata %q", v)
	}
}
