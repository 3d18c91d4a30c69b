package python

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/soypat/polyglot/gast"
	"github.com/soypat/polyglot/lang"
)

func generalize(t *testing.T, src string) *gast.Module {
	t.Helper()
	var p Parser
	tree, err := p.Parse(src, "test.py")
	if err != nil {
		t.Fatalf("parse: %v\n%s", err, src)
	}
	defer tree.(*Tree).Close()
	var g Generalizer
	mod, err := g.Generalize(tree)
	if err != nil {
		t.Fatalf("generalize: %v\n%s", err, src)
	}
	return mod
}

func unparse(t *testing.T, mod *gast.Module) string {
	t.Helper()
	var u Unparser
	out, err := u.Unparse(mod)
	if err != nil {
		t.Fatalf("unparse: %v\n%s", err, gast.Dump(mod))
	}
	return out
}

var roundTripCorpus = []string{
	"a = 1\n",
	"b = 2\n",
	"print('abc')\n",
	`from __future__ import annotations
import numpy as np
from math import sqrt as msqrt, pi
# Sum of squares.
def sumsq(x: np.ndarray[np.float64, :], n: int = 3) -> float:
    total = 0.0
    for i in range(n):
        if x[i] > 0 and not x[i] == 2.5:
            total += x[i]**2
        elif x[i] < -1.0 or 0 < x[i] <= 1:
            continue
        else:
            break
    return total
`,
	`class Point(object):
    x: float = 0.0
    def norm(self) -> float:
        return msqrt(self.x * self.x)
`,
	`values = [v * 2 for v in range(10) if v % 2 == 0]
(a, b) = (1, 2)
y = a if a > b else b
z = values[1:] + values[::2]
s = 'it' + "'s"
del values[0], a
print(values[1:5:2], sep='')
done = False
while not done:
    done = (a - b) * 2 >= -(b + 1)
`,
}

// TestRoundTrip checks that generalizing and unparsing Python reproduces
// the source, and that the output generalizes to the same tree.
func TestRoundTrip(t *testing.T) {
	for _, src := range roundTripCorpus {
		first := generalize(t, src)
		out := unparse(t, first)
		if diff := cmp.Diff(strings.TrimRight(src, "\n "), strings.TrimRight(out, "\n ")); diff != "" {
			t.Errorf("source not reproduced (-src +out):\n%s", diff)
		}
		second := generalize(t, out)
		if diff := cmp.Diff(gast.Dump(first), gast.Dump(second)); diff != "" {
			t.Errorf("tree changed after round trip (-first +second):\n%s", diff)
		}
	}
}

func TestOperatorTable(t *testing.T) {
	for tok, want := range binaryOps {
		mod := generalize(t, "x = a "+tok+" b\n")
		assign := mod.Body[0].(*gast.Assign)
		var got gast.OpPair
		switch e := assign.Value.(type) {
		case *gast.BinOp:
			got = gast.OpPair{Kind: gast.KindBinOp, Op: e.Op}
		case *gast.BoolOp:
			got = gast.OpPair{Kind: gast.KindBoolOp, Op: e.Op}
		case *gast.Compare:
			got = gast.OpPair{Kind: gast.KindCompare, Op: e.Ops[0]}
		}
		if got != want {
			t.Errorf("%q: got %s/%s, want %s/%s", tok, got.Kind, got.Op, want.Kind, want.Op)
		}
	}
	for tok, want := range unaryOps {
		mod := generalize(t, "x = "+tok+" a\n")
		un, ok := mod.Body[0].(*gast.Assign).Value.(*gast.UnaryOp)
		if !ok || un.Op != want.Op {
			t.Errorf("unary %q: got %s", tok, gast.Dump(mod.Body[0]))
		}
	}
}

func TestBooleanFlattening(t *testing.T) {
	mod := generalize(t, "x = a and b and c\ny = a and (b and c)\n")
	flat := mod.Body[0].(*gast.Assign).Value.(*gast.BoolOp)
	if len(flat.Values) != 3 {
		t.Errorf("want three operands, got %s", gast.Dump(flat))
	}
	nested := mod.Body[1].(*gast.Assign).Value.(*gast.BoolOp)
	if len(nested.Values) != 2 {
		t.Errorf("parenthesized operand flattened: %s", gast.Dump(nested))
	}
	if got := unparse(t, mod); got != "x = a and b and c\ny = a and (b and c)\n" {
		t.Errorf("got %q", got)
	}
}

func TestChainedAssignment(t *testing.T) {
	mod := generalize(t, "a = b = 0\n")
	want := &gast.Assign{Targets: []gast.Expr{gast.NewName("a"), gast.NewName("b")}, Value: gast.Int(0)}
	if !gast.Equal(mod.Body[0], want) {
		t.Errorf("got %s", gast.Dump(mod.Body[0]))
	}
}

func TestParseError(t *testing.T) {
	var p Parser
	_, err := p.Parse("x = (1 +\ny = 2\n", "bad.py")
	var pe *lang.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("want *lang.ParseError, got %v", err)
	}
	if pe.Path != "bad.py" || pe.Line == 0 {
		t.Errorf("error lacks coordinates: %v", pe)
	}

	var ce *lang.ContractError
	for _, src := range []string{"if x:\n \tpass\n", "if x:\n\ty = 2\n        z = 3\n"} {
		if _, err = p.Parse(src, ""); !errors.As(err, &ce) {
			t.Errorf("%q: want *lang.ContractError, got %v", src, err)
		}
	}
}

func TestUnsupported(t *testing.T) {
	const src = "a = 1\nwith open('f') as h:\n    pass\nb = 2\n"
	var p Parser
	tree, err := p.Parse(src, "")
	if err != nil {
		t.Fatal(err)
	}
	defer tree.(*Tree).Close()

	var strict Generalizer
	_, err = strict.Generalize(tree)
	var uc *lang.UnsupportedConstruct
	if !errors.As(err, &uc) {
		t.Fatalf("want *lang.UnsupportedConstruct, got %v", err)
	}
	if uc.Kind != "with_statement" || !strings.Contains(uc.Source, "open('f')") {
		t.Errorf("got kind %q source %q", uc.Kind, uc.Source)
	}

	lenient := Generalizer{BestEffort: true, Log: zap.NewNop()}
	mod, err := lenient.Generalize(tree)
	if err != nil {
		t.Fatal(err)
	}
	if got := unparse(t, mod); got != "a = 1\nb = 2\n" {
		t.Errorf("best effort output %q", got)
	}
}

func TestGeneralizeContract(t *testing.T) {
	var g Generalizer
	_, err := g.Generalize(nil)
	var ce *lang.ContractError
	if !errors.As(err, &ce) {
		t.Errorf("nil tree: want *lang.ContractError, got %v", err)
	}

	var p Parser
	tree, err := p.Parse("a = 1\n", "")
	if err != nil {
		t.Fatal(err)
	}
	tree.(*Tree).Close()
	tree.(*Tree).Close()
	if _, err := g.Generalize(tree); !errors.As(err, &ce) {
		t.Errorf("closed tree: want *lang.ContractError, got %v", err)
	}
}

func TestScopes(t *testing.T) {
	var p Parser
	tree, err := p.Parse("a = 1\nb = 2\nc = 3\n", "", lang.Scope{Start: 1, End: 1}, lang.Scope{Start: 3, End: 3})
	if err != nil {
		t.Fatal(err)
	}
	defer tree.(*Tree).Close()
	var g Generalizer
	mod, err := g.Generalize(tree)
	if err != nil {
		t.Fatal(err)
	}
	if got := unparse(t, mod); got != "a = 1\nc = 3\n" {
		t.Errorf("got %q", got)
	}
}

func TestComments(t *testing.T) {
	mod := generalize(t, "def f():\n    # first\n    return 1\n")
	fn := mod.Body[0].(*gast.FunctionDef)
	c, ok := fn.Body[0].(*gast.Comment)
	if !ok || c.Text != "first" {
		t.Fatalf("want leading comment in body, got %s", gast.Dump(fn))
	}
}

func TestUnparseGeneralizedFortran(t *testing.T) {
	// The generalized form of a Fortran 77 subroutine with an output argument.
	fn := &gast.FunctionDef{
		Name:    "add",
		Args:    []*gast.Arg{{Name: "a", Annotation: gast.Scalar(gast.TypeInt)}, {Name: "b", Annotation: gast.Scalar(gast.TypeInt)}},
		Returns: gast.Scalar(gast.TypeInt),
		Body: []gast.Stmt{
			&gast.Comment{Text: "f2py intent(out) c"},
			&gast.AnnAssign{Target: gast.NewName("c"), Annotation: gast.Scalar(gast.TypeInt)},
			&gast.Assign{Targets: []gast.Expr{gast.NewName("c")}, Value: &gast.BinOp{Left: gast.NewName("a"), Op: gast.Add, Right: gast.NewName("b")}},
			&gast.Return{Value: gast.NewName("c")},
		},
	}
	got := unparse(t, &gast.Module{Body: []gast.Stmt{fn}})
	const want = `def add(a: int, b: int) -> int:
    # f2py intent(out) c
    c: int
    c = a + b
    return c
`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	u := Unparser{Headers: true}
	headers, err := u.Unparse(&gast.Module{Body: []gast.Stmt{fn}})
	if err != nil {
		t.Fatal(err)
	}
	if headers != "def add(a: int, b: int) -> int:\n    ...\n" {
		t.Errorf("headers %q", headers)
	}
}

func TestUnparseArrays(t *testing.T) {
	zeros := gast.NewCall("np.zeros", &gast.Tuple{Elts: []gast.Expr{gast.NewName("n")}})
	zeros.Keywords = []*gast.Keyword{{Arg: "dtype", Value: gast.Scalar(gast.TypeFloat64)}, {Arg: "order", Value: gast.Str("F")}}
	mod := &gast.Module{Body: []gast.Stmt{
		&gast.Import{Names: []gast.Alias{{Name: gast.NumpyModule, AsName: gast.NumpyAlias}}},
		&gast.AnnAssign{Target: gast.NewName("x"), Annotation: gast.ArrayType(gast.Scalar(gast.TypeFloat64))},
		&gast.Assign{Targets: []gast.Expr{gast.NewName("x")}, Value: zeros},
		&gast.Assign{Targets: []gast.Expr{gast.NewSubscript(gast.NewName("x"), gast.Int(0))}, Value: gast.Float(1)},
	}}
	const want = `from __future__ import annotations
import numpy as np
x: np.ndarray[np.float64, :]
x = np.zeros((n,), dtype=np.float64, order='F')
x[0] = 1.0
`
	if diff := cmp.Diff(want, unparse(t, mod)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestUnparsePrecedence(t *testing.T) {
	a, b, c := gast.NewName("a"), gast.NewName("b"), gast.NewName("c")
	tests := []struct {
		expr gast.Expr
		want string
	}{
		{&gast.BinOp{Left: &gast.BinOp{Left: a, Op: gast.Add, Right: b}, Op: gast.Mult, Right: c}, "(a + b) * c"},
		{&gast.BinOp{Left: a, Op: gast.Sub, Right: &gast.BinOp{Left: b, Op: gast.Sub, Right: c}}, "a - (b - c)"},
		{&gast.BinOp{Left: &gast.BinOp{Left: a, Op: gast.Pow, Right: b}, Op: gast.Pow, Right: c}, "(a**b)**c"},
		{&gast.BinOp{Left: &gast.UnaryOp{Op: gast.USub, Operand: a}, Op: gast.Pow, Right: gast.Int(2)}, "(-a)**2"},
		{&gast.BinOp{Left: a, Op: gast.FloorDiv, Right: b}, "a // b"},
		{&gast.UnaryOp{Op: gast.Not, Operand: &gast.BoolOp{Op: gast.Or, Values: []gast.Expr{a, b}}}, "not (a or b)"},
		{&gast.Compare{Left: a, Ops: []gast.Operator{gast.Lt, gast.LtE}, Comparators: []gast.Expr{b, c}}, "a < b <= c"},
		{&gast.Tuple{Elts: []gast.Expr{a}}, "(a,)"},
		{&gast.Attribute{Value: gast.Int(1), Attr: "real"}, "(1).real"},
		{gast.Float(2), "2.0"},
		{gast.Str("it's"), `"it's"`},
	}
	for _, tc := range tests {
		mod := &gast.Module{Body: []gast.Stmt{&gast.ExprStmt{Value: tc.expr}}}
		if got := unparse(t, mod); got != tc.want+"\n" {
			t.Errorf("got %q, want %q", got, tc.want)
		}
	}
}

func TestUnparseTruncatingDivision(t *testing.T) {
	a, b := gast.NewName("a"), gast.NewName("b")
	quo := gast.Truncated(&gast.BinOp{Left: a, Op: gast.Add, Right: gast.Int(1)}, gast.FloorDiv, b)
	rem := &gast.AugAssign{Target: gast.NewName("r"), Op: gast.Mod, Value: b}
	rem.Set(gast.MetaTruncate, true)
	mod := &gast.Module{Body: []gast.Stmt{
		&gast.Assign{Targets: []gast.Expr{gast.NewName("q")}, Value: quo},
		rem,
		&gast.Assign{Targets: []gast.Expr{gast.NewName("f")}, Value: &gast.BinOp{Left: a, Op: gast.FloorDiv, Right: b}},
	}}
	const want = "import numpy as np\nq = int((a + 1) / b)\nr = np.fmod(r, b)\nf = a // b\n"
	if got := unparse(t, mod); got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	// Without a truncating remainder numpy is not imported.
	mod.Body = mod.Body[:1]
	if got := unparse(t, mod); got != "q = int((a + 1) / b)\n" {
		t.Errorf("got %q", got)
	}
}

func TestUnparseUnsupported(t *testing.T) {
	body := []gast.Stmt{&gast.ImportFrom{Module: "math", Names: []gast.Alias{{Name: "*"}}}}
	mod := &gast.Module{Body: []gast.Stmt{&gast.FunctionDef{Name: "f", Body: body}}}
	var u Unparser
	_, err := u.Unparse(mod)
	var uc *lang.UnsupportedConstruct
	if !errors.As(err, &uc) || uc.Kind != "ImportFrom" {
		t.Fatalf("want unsupported ImportFrom, got %v", err)
	}
	u = Unparser{BestEffort: true, Log: zap.NewNop()}
	out, err := u.Unparse(mod)
	if err != nil {
		t.Fatal(err)
	}
	if want := "def f():\n    # UNSUPPORTED ImportFrom\n    pass\n"; out != want {
		t.Errorf("got %q, want %q", out, want)
	}
	// At module level the wildcard import is fine.
	if got := unparse(t, &gast.Module{Body: body}); got != "from math import *\n" {
		t.Errorf("got %q", got)
	}
}

func TestUnquote(t *testing.T) {
	tests := []struct {
		lit, want string
		ok        bool
	}{
		{`'abc'`, "abc", true},
		{`"a\tb\n"`, "a\tb\n", true},
		{`r'a\n'`, `a\n`, true},
		{`'''x'y'''`, "x'y", true},
		{`'\x41\101\u00e9'`, "AAé", true},
		{`'\q'`, `\q`, true},
		{`b'x'`, "", false},
		{`f'{x}'`, "", false},
	}
	for _, tc := range tests {
		got, err := unquote(tc.lit)
		if (err == nil) != tc.ok {
			t.Errorf("%s: err=%v, want ok=%v", tc.lit, err, tc.ok)
			continue
		}
		if got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.lit, got, tc.want)
		}
	}
}
