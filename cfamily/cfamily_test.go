package cfamily

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/soypat/polyglot/gast"
	"github.com/soypat/polyglot/lang"
)

func generalize(t *testing.T, d Dialect, src string) *gast.Module {
	t.Helper()
	mod, err := tryGeneralize(d, src, false)
	if err != nil {
		t.Fatalf("%v\n%s", err, src)
	}
	return mod
}

func tryGeneralize(d Dialect, src string, bestEffort bool) (*gast.Module, error) {
	p := Parser{Dialect: d}
	tree, err := p.Parse(src, "test.c")
	if err != nil {
		return nil, err
	}
	defer tree.(*Tree).Close()
	g := Generalizer{BestEffort: bestEffort}
	return g.Generalize(tree)
}

// funcBody returns the body of the only function defined in src.
func funcBody(t *testing.T, src string) []gast.Stmt {
	t.Helper()
	mod := generalize(t, C, src)
	for _, s := range mod.Body {
		if fn, ok := s.(*gast.FunctionDef); ok {
			return fn.Body
		}
	}
	t.Fatalf("no function in\n%s", gast.Dump(mod))
	return nil
}

func unparseCPP(t *testing.T, mod *gast.Module) string {
	t.Helper()
	var u Unparser
	out, err := u.Unparse(mod)
	if err != nil {
		t.Fatalf("unparse: %v\n%s", err, gast.Dump(mod))
	}
	return out
}

func TestCountedLoop(t *testing.T) {
	n := gast.NewName("n")
	accum := []gast.Stmt{&gast.AugAssign{Target: gast.NewName("s"), Op: gast.Add, Value: gast.NewName("i")}}
	for _, tc := range []struct {
		loop string
		want gast.Expr
	}{
		{"for (int i = 0; i < n; i++) s += i;", gast.Range(gast.Int(0), n, nil)},
		{"for (i = 1; i <= n; i += 2) { s += i; }", gast.Range(gast.Int(1), gast.AddConst(n, 1), gast.Int(2))},
		{"for (int i = 0; n > i; i = i + 3) s += i;", gast.Range(gast.Int(0), n, gast.Int(3))},
		{"for (int i = n; i > 0; i--) s += i;", gast.Range(n, gast.Int(0), gast.Int(-1))},
		{"for (int i = n; i >= 0; --i) s += i;", gast.Range(n, gast.AddConst(gast.Int(0), -1), gast.Int(-1))},
	} {
		body := funcBody(t, "void f(int n) {\n    int s, i;\n    "+tc.loop+"\n}\n")
		want := &gast.For{Target: gast.NewName("i"), Iter: tc.want, Body: accum}
		got := body[len(body)-1]
		if !gast.Equal(got, want) {
			t.Errorf("%s:\ngot  %s\nwant %s", tc.loop, gast.Dump(got), gast.Dump(want))
		}
	}
}

func TestLoopNotCounted(t *testing.T) {
	for _, loop := range []string{
		"for (i = 1; i < n; i *= 2) s += i;",
		"for (;;) break;",
		"for (int i = 0; i < n; i++) i = 2;",
		"for (int i = 0; i < n; i--) s += i;",
		"for (int i = 0; s < n; i++) s += i;",
	} {
		src := "void f(int n) {\n    int s, i;\n    " + loop + "\n}\n"
		_, err := tryGeneralize(C, src, false)
		var uc *lang.UnsupportedConstruct
		if !errors.As(err, &uc) {
			t.Errorf("%s: want unsupported construct, got %v", loop, err)
			continue
		}
		if uc.Kind != "for_statement" || uc.Lang != "c" {
			t.Errorf("%s: got kind %q lang %q", loop, uc.Kind, uc.Lang)
		}
	}
	// Best effort drops the loop.
	mod, err := tryGeneralize(C, "void f(int n) {\n    for (;;) break;\n    return;\n}\n", true)
	if err != nil {
		t.Fatal(err)
	}
	fn := mod.Body[0].(*gast.FunctionDef)
	if len(fn.Body) != 1 {
		t.Errorf("want only the return statement, got %s", gast.Dump(fn))
	}
}

func TestDeclarators(t *testing.T) {
	float := gast.Scalar(gast.TypeFloat)
	integer := gast.Scalar(gast.TypeInt)
	for _, tc := range []struct {
		decl string
		want gast.Expr
	}{
		{"int *a[3];", gast.ArrayType(gast.PointerType(integer), gast.Int(3))},
		{"double m[2][3];", gast.ArrayType(float, gast.Int(2), gast.Int(3))},
		{"const char *s;", gast.ConstType(gast.Scalar(gast.TypeStr))},
		{"char *s;", gast.Scalar(gast.TypeStr)},
		{"unsigned long n;", gast.Scalar(gast.TypeUint64)},
		{"float v[];", gast.ArrayType(gast.Scalar(gast.TypeFloat32), nil)},
		{"double **pp;", gast.PointerType(gast.PointerType(float))},
	} {
		body := funcBody(t, "void f(void) {\n    "+tc.decl+"\n}\n")
		if len(body) != 1 {
			t.Errorf("%s: got %d statements", tc.decl, len(body))
			continue
		}
		ann, ok := body[0].(*gast.AnnAssign)
		if !ok {
			t.Errorf("%s: got %s", tc.decl, gast.Dump(body[0]))
			continue
		}
		if !gast.Equal(ann.Annotation, tc.want) {
			t.Errorf("%s:\ngot  %s\nwant %s", tc.decl, gast.Dump(ann.Annotation), gast.Dump(tc.want))
		}
	}
}

func TestFunctionDefinition(t *testing.T) {
	mod := generalize(t, C, "double scale(double *x, const int n) {\n    return x[0] * n;\n}\nint proto(int a);\n")
	if len(mod.Body) != 2 {
		t.Fatalf("want two statements, got %s", gast.Dump(mod))
	}
	fn := mod.Body[0].(*gast.FunctionDef)
	want := &gast.FunctionDef{
		Name: "scale",
		Args: []*gast.Arg{
			{Name: "x", Annotation: gast.PointerType(gast.Scalar(gast.TypeFloat))},
			{Name: "n", Annotation: gast.ConstType(gast.Scalar(gast.TypeInt))},
		},
		Returns: gast.Scalar(gast.TypeFloat),
		Body: []gast.Stmt{&gast.Return{Value: &gast.BinOp{
			Left: gast.NewSubscript(gast.NewName("x"), gast.Int(0)), Op: gast.Mult, Right: gast.NewName("n"),
		}}},
	}
	if !gast.Equal(fn, want) {
		t.Errorf("got  %s\nwant %s", gast.Dump(fn), gast.Dump(want))
	}
	if !fn.Args[0].GetBool(MetaPointer) || !fn.Args[1].GetBool(MetaConst) {
		t.Error("declarator qualifiers not recorded")
	}
	proto := mod.Body[1].(*gast.FunctionDef)
	if !proto.GetBool(MetaPrototype) || len(proto.Body) != 0 || proto.Name != "proto" {
		t.Errorf("prototype: %s", gast.Dump(proto))
	}
}

func TestMathIntrinsics(t *testing.T) {
	mod := generalize(t, C, "#include <math.h>\ndouble f(double x) {\n    return sqrt(x) + M_PI;\n}\n")
	imp, ok := mod.Body[0].(*gast.Import)
	if !ok || len(imp.Names) != 1 || imp.Names[0].Name != gast.NumpyModule || imp.Names[0].AsName != gast.NumpyAlias {
		t.Fatalf("want numpy import first, got %s", gast.Dump(mod))
	}
	if inc, ok := mod.Body[1].(*gast.Directive); !ok {
		t.Errorf("want include directive, got %s", gast.Dump(mod.Body[1]))
	} else if header, _ := inc.GetString(MetaInclude); header != "<math.h>" {
		t.Errorf("include header %q", header)
	}
	fn := mod.Body[2].(*gast.FunctionDef)
	want := &gast.Return{Value: &gast.BinOp{Left: gast.NewCall("np.sqrt", gast.NewName("x")), Op: gast.Add, Right: gast.Dotted("np.pi")}}
	if !gast.Equal(fn.Body[0], want) {
		t.Errorf("got  %s\nwant %s", gast.Dump(fn.Body[0]), gast.Dump(want))
	}

	// A function defined in the translation unit shadows the library.
	mod = generalize(t, C, "double sqrt(double x) { return x; }\ndouble g(double y) { return sqrt(y); }\n")
	for _, s := range mod.Body {
		if _, ok := s.(*gast.Import); ok {
			t.Errorf("unexpected import: %s", gast.Dump(s))
		}
	}
	g := mod.Body[1].(*gast.FunctionDef)
	if want := (&gast.Return{Value: gast.NewCall("sqrt", gast.NewName("y"))}); !gast.Equal(g.Body[0], want) {
		t.Errorf("got %s", gast.Dump(g.Body[0]))
	}
}

func TestOperators(t *testing.T) {
	for _, tc := range []struct {
		expr string
		want gast.Expr
	}{
		{"a + b * c", &gast.BinOp{Left: gast.NewName("a"), Op: gast.Add, Right: &gast.BinOp{Left: gast.NewName("b"), Op: gast.Mult, Right: gast.NewName("c")}}},
		{"a % b", &gast.BinOp{Left: gast.NewName("a"), Op: gast.Mod, Right: gast.NewName("b")}},
		{"a << 2", &gast.BinOp{Left: gast.NewName("a"), Op: gast.LShift, Right: gast.Int(2)}},
		{"a && b && c", &gast.BoolOp{Op: gast.And, Values: []gast.Expr{gast.NewName("a"), gast.NewName("b"), gast.NewName("c")}}},
		{"!a || b", &gast.BoolOp{Op: gast.Or, Values: []gast.Expr{&gast.UnaryOp{Op: gast.Not, Operand: gast.NewName("a")}, gast.NewName("b")}}},
		{"a != b", &gast.Compare{Left: gast.NewName("a"), Ops: []gast.Operator{gast.NotEq}, Comparators: []gast.Expr{gast.NewName("b")}}},
		{"~a", &gast.UnaryOp{Op: gast.Invert, Operand: gast.NewName("a")}},
		{"a ? b : c", &gast.IfExp{Test: gast.NewName("a"), Body: gast.NewName("b"), Orelse: gast.NewName("c")}},
		{"pow(a, 2)", &gast.BinOp{Left: gast.NewName("a"), Op: gast.Pow, Right: gast.Int(2)}},
		{"0x10 + 1.5f", &gast.BinOp{Left: gast.Int(16), Op: gast.Add, Right: gast.Float(1.5)}},
		{`"a\tb"`, gast.Str("a\tb")},
		{"NULL", gast.None()},
	} {
		body := funcBody(t, "void f(void) {\n    x = "+tc.expr+";\n}\n")
		a, ok := body[0].(*gast.Assign)
		if !ok {
			t.Errorf("%s: got %s", tc.expr, gast.Dump(body[0]))
			continue
		}
		if !gast.Equal(a.Value, tc.want) {
			t.Errorf("%s:\ngot  %s\nwant %s", tc.expr, gast.Dump(a.Value), gast.Dump(tc.want))
		}
	}
}

func TestIntegerDivision(t *testing.T) {
	mod := generalize(t, C, `int quo(int a, int b) { return a / b; }
double ratio(int a, double b) { return a / b; }
int rem(long a, int b) {
    int q = a / 2;
    q /= b;
    return (a + 1) % b;
}
`)
	bodies := make(map[string][]gast.Stmt)
	for _, s := range mod.Body {
		fn := s.(*gast.FunctionDef)
		bodies[fn.Name] = fn.Body
	}
	check := func(name string, n gast.Node, op gast.Operator, truncating bool) {
		t.Helper()
		var got gast.Operator
		switch n := n.(type) {
		case *gast.BinOp:
			got = n.Op
		case *gast.AugAssign:
			got = n.Op
		}
		if got != op || gast.Truncating(n) != truncating {
			t.Errorf("%s: got %s truncating=%v, want %s truncating=%v", name, got, gast.Truncating(n), op, truncating)
		}
	}
	check("quo", bodies["quo"][0].(*gast.Return).Value, gast.FloorDiv, true)
	check("ratio", bodies["ratio"][0].(*gast.Return).Value, gast.Div, false)
	rem := bodies["rem"]
	check("rem init", rem[0].(*gast.AnnAssign).Value, gast.FloorDiv, true)
	check("rem update", rem[1], gast.FloorDiv, true)
	check("rem result", rem[2].(*gast.Return).Value, gast.Mod, true)
}

func TestStatements(t *testing.T) {
	body := funcBody(t, `void f(int n) {
    // count down
    a = b = 0;
    n++;
    while (n > 0) {
        if (n == 1) break; else n -= 1;
    }
}
`)
	want := []gast.Stmt{
		&gast.Comment{Text: "count down"},
		&gast.Assign{Targets: []gast.Expr{gast.NewName("a"), gast.NewName("b")}, Value: gast.Int(0)},
		&gast.AugAssign{Target: gast.NewName("n"), Op: gast.Add, Value: gast.Int(1)},
		&gast.While{
			Test: &gast.Compare{Left: gast.NewName("n"), Ops: []gast.Operator{gast.Gt}, Comparators: []gast.Expr{gast.Int(0)}},
			Body: []gast.Stmt{&gast.If{
				Test:   &gast.Compare{Left: gast.NewName("n"), Ops: []gast.Operator{gast.Eq}, Comparators: []gast.Expr{gast.Int(1)}},
				Body:   []gast.Stmt{&gast.Break{}},
				Orelse: []gast.Stmt{&gast.AugAssign{Target: gast.NewName("n"), Op: gast.Sub, Value: gast.Int(1)}},
			}},
		},
	}
	if len(body) != len(want) {
		t.Fatalf("got %d statements, want %d", len(body), len(want))
	}
	for i := range want {
		if !gast.Equal(body[i], want[i]) {
			t.Errorf("statement %d:\ngot  %s\nwant %s", i, gast.Dump(body[i]), gast.Dump(want[i]))
		}
	}
}

func TestCoutChain(t *testing.T) {
	mod := generalize(t, CPP, "#include <iostream>\nint main() {\n    std::cout << \"x = \" << x << std::endl;\n    return 0;\n}\n")
	fn := mod.Body[1].(*gast.FunctionDef)
	call := gast.NewCall("print", gast.Str("x = "), gast.NewName("x"))
	call.Keywords = []*gast.Keyword{{Arg: "sep", Value: gast.Str("")}}
	want := &gast.ExprStmt{Value: call}
	if !gast.Equal(fn.Body[0], want) {
		t.Errorf("got  %s\nwant %s", gast.Dump(fn.Body[0]), gast.Dump(want))
	}
}

func TestParseError(t *testing.T) {
	var p Parser
	_, err := p.Parse("int f(void) {\n    return 1 +;\n}\n", "bad.c")
	var pe *lang.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("want *lang.ParseError, got %v", err)
	}
	if pe.Path != "bad.c" || pe.Line != 2 {
		t.Errorf("got path %q line %d", pe.Path, pe.Line)
	}
	_, err = p.Parse("int a;\n \tint b;\n", "mixed.c")
	var ce *lang.ContractError
	if !errors.As(err, &ce) {
		t.Errorf("mixed indentation: want *lang.ContractError, got %v", err)
	}
}

func TestGeneralizeContract(t *testing.T) {
	var g Generalizer
	var ce *lang.ContractError
	if _, err := g.Generalize(nil); !errors.As(err, &ce) {
		t.Errorf("nil tree: want *lang.ContractError, got %v", err)
	}
	var p Parser
	tree, err := p.Parse("int a;\n", "a.c")
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
	tree, err := p.Parse("int a = 1;\nint b = ;\nint c = 3;\n", "s.c", lang.Scope{Start: 1, End: 1}, lang.Scope{Start: 3, End: 3})
	if err != nil {
		t.Fatal(err)
	}
	defer tree.(*Tree).Close()
	var g Generalizer
	mod, err := g.Generalize(tree)
	if err != nil {
		t.Fatal(err)
	}
	if len(mod.Body) != 2 {
		t.Fatalf("want two declarations, got %s", gast.Dump(mod))
	}
	if c := mod.Body[1].(*gast.AnnAssign); c.Target.(*gast.Name).ID != "c" {
		t.Errorf("got %s", gast.Dump(c))
	}
}

func TestPreprocessorFailure(t *testing.T) {
	src := "int a;\n"
	p := Parser{Preprocessor: &Preprocessor{Command: "polyglot-missing-cpp -P"}}
	_, err := p.Parse(src, "pp.c")
	var pe *lang.ParseError
	if !errors.As(err, &pe) || !strings.Contains(pe.Msg, "polyglot-missing-cpp") {
		t.Errorf("want preprocessor parse error, got %v", err)
	}

	var seen *lang.ToolError
	p.Preprocessor.OnError = func(path string, err *lang.ToolError) error {
		seen = err
		return nil
	}
	tree, err := p.Parse(src, "pp.c")
	if err != nil {
		t.Fatalf("fallback to unprocessed source: %v", err)
	}
	tree.(*Tree).Close()
	if seen == nil || seen.Tool != "polyglot-missing-cpp" {
		t.Errorf("OnError got %v", seen)
	}
}

func TestUnquote(t *testing.T) {
	for _, tc := range []struct {
		lit, want string
		ok        bool
	}{
		{`"plain"`, "plain", true},
		{`"a\nb\\"`, "a\nb\\", true},
		{`'\0'`, "\x00", true},
		{`"\x41\101"`, "AA", true},
		{`u8"\u00e9"`, "é", true},
		{`"\q"`, "", false},
		{`"open`, "", false},
	} {
		got, err := unquote(tc.lit)
		if (err == nil) != tc.ok {
			t.Errorf("%s: err=%v, want ok=%v", tc.lit, err, tc.ok)
			continue
		}
		if got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.lit, got, tc.want)
		}
	}
	if got := quote("say \"hi\"\n\x01"); got != `"say \"hi\"\n\001"` {
		t.Errorf("quote: got %s", got)
	}
}

func TestUnparseGeneralizedFortran(t *testing.T) {
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
	mod := &gast.Module{Body: []gast.Stmt{fn}}
	const want = `int add(int a, int b) {
    // f2py intent(out) c
    int c;
    c = a + b;
    return c;
}
`
	if diff := cmp.Diff(want, unparseCPP(t, mod)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	u := Unparser{Headers: true}
	headers, err := u.Unparse(mod)
	if err != nil {
		t.Fatal(err)
	}
	if headers != "int add(int a, int b);\n" {
		t.Errorf("headers %q", headers)
	}
}

func TestUnparseByReference(t *testing.T) {
	x := &gast.Arg{Name: "x", Annotation: gast.Scalar(gast.TypeInt)}
	x.Set(gast.MetaByReference, true)
	fn := &gast.FunctionDef{
		Name: "bump",
		Args: []*gast.Arg{{Name: "a", Annotation: gast.Scalar(gast.TypeInt)}, x},
		Body: []gast.Stmt{&gast.AugAssign{Target: gast.NewName("x"), Op: gast.Add, Value: gast.NewName("a")}},
	}
	const want = `void bump(int a, int &x) {
    x += a;
}
`
	if diff := cmp.Diff(want, unparseCPP(t, &gast.Module{Body: []gast.Stmt{fn}})); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestUnparseMain(t *testing.T) {
	print := gast.NewCall("print", gast.Str("x ="), gast.NewName("x"))
	mod := &gast.Module{Body: []gast.Stmt{
		&gast.Assign{Targets: []gast.Expr{gast.NewName("x")}, Value: gast.Int(1)},
		&gast.ExprStmt{Value: print},
	}}
	const want = `#include <iostream>

auto x = 1;

int main() {
    std::cout << "x =" << " " << x << std::endl;
    return 0;
}
`
	if diff := cmp.Diff(want, unparseCPP(t, mod)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	mod.Body = append(mod.Body, &gast.FunctionDef{Name: "main", Body: []gast.Stmt{&gast.Return{Value: gast.Int(0)}}})
	var u Unparser
	var uc *lang.UnsupportedConstruct
	if _, err := u.Unparse(mod); !errors.As(err, &uc) {
		t.Errorf("want unsupported with an existing main, got %v", err)
	}
}

func TestUnparseLoops(t *testing.T) {
	i, n := gast.NewName("i"), gast.NewName("n")
	total := []gast.Stmt{&gast.AugAssign{Target: gast.NewName("s"), Op: gast.Add, Value: gast.NewSubscript(gast.NewName("x"), i)}}
	fn := &gast.FunctionDef{
		Name:    "sum",
		Args:    []*gast.Arg{{Name: "x", Annotation: gast.ArrayType(gast.Scalar(gast.TypeFloat64))}, {Name: "n", Annotation: gast.Scalar(gast.TypeInt)}},
		Returns: gast.Scalar(gast.TypeFloat),
		Body: []gast.Stmt{
			&gast.AnnAssign{Target: gast.NewName("s"), Annotation: gast.Scalar(gast.TypeFloat), Value: gast.Float(0)},
			&gast.For{Target: i, Iter: gast.Range(gast.Int(0), n, nil), Body: total},
			&gast.For{Target: i, Iter: gast.Range(n, gast.AddConst(gast.Int(0), -1), gast.Int(-1)), Body: total},
			&gast.If{
				Test: &gast.Compare{Left: gast.NewName("s"), Ops: []gast.Operator{gast.Lt}, Comparators: []gast.Expr{gast.Int(0)}},
				Body: []gast.Stmt{&gast.Return{Value: gast.NewCall("abs", gast.NewName("s"))}},
			},
			&gast.Return{Value: &gast.BinOp{Left: gast.NewName("s"), Op: gast.Pow, Right: gast.Int(2)}},
		},
	}
	const want = `#include <vector>
#include <cmath>

double sum(std::vector<double> &x, int n) {
    double s = 0.0;
    for (int i = 0; i < n; ++i) {
        s += x[i];
    }
    for (int i = n; i > -1; --i) {
        s += x[i];
    }
    if (s < 0) {
        return std::abs(s);
    }
    return std::pow(s, 2);
}
`
	if diff := cmp.Diff(want, unparseCPP(t, &gast.Module{Body: []gast.Stmt{fn}})); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestUnparseExpressions(t *testing.T) {
	a, b, c := gast.NewName("a"), gast.NewName("b"), gast.NewName("c")
	for _, tc := range []struct {
		e    gast.Expr
		want string
	}{
		{&gast.BinOp{Left: &gast.BinOp{Left: a, Op: gast.Add, Right: b}, Op: gast.Mult, Right: c}, "(a + b) * c"},
		{&gast.BinOp{Left: a, Op: gast.Sub, Right: &gast.BinOp{Left: b, Op: gast.Sub, Right: c}}, "a - (b - c)"},
		{gast.Truncated(a, gast.FloorDiv, b), "a / b"},
		{gast.Truncated(a, gast.Mod, b), "a % b"},
		{&gast.BinOp{Left: a, Op: gast.FloorDiv, Right: b}, "floor_div(a, b)"},
		{&gast.BinOp{Left: &gast.BinOp{Left: a, Op: gast.Add, Right: b}, Op: gast.Mod, Right: c}, "floor_mod(a + b, c)"},
		{&gast.BoolOp{Op: gast.Or, Values: []gast.Expr{&gast.BoolOp{Op: gast.And, Values: []gast.Expr{a, b}}, c}}, "a && b || c"},
		{&gast.UnaryOp{Op: gast.Not, Operand: &gast.BoolOp{Op: gast.Or, Values: []gast.Expr{a, b}}}, "!(a || b)"},
		{&gast.Compare{Left: gast.Int(0), Ops: []gast.Operator{gast.Lt, gast.LtE}, Comparators: []gast.Expr{a, b}}, "0 < a && a <= b"},
		{&gast.IfExp{Test: a, Body: b, Orelse: c}, "a ? b : c"},
		{gast.NewCall("len", a), "a.size()"},
		{gast.NewCall("int", a), "static_cast<int>(a)"},
		{gast.NewCall("max", a, b, c), "std::max({a, b, c})"},
		{gast.NewCall("np.arcsin", a), "std::asin(a)"},
		{gast.NewSubscript(a, b, c), "a[b][c]"},
		{gast.Dotted("np.pi"), "M_PI"},
		{&gast.List{Elts: []gast.Expr{gast.Int(1), gast.Int(2)}}, "{1, 2}"},
		{gast.Str("it's"), `"it's"`},
		{gast.Bool(true), "true"},
		{gast.None(), "nullptr"},
	} {
		u := &unparser{rep: lang.Reporter{Lang: lang.CPP.Name()}}
		got, err := u.expr(tc.e)
		if err != nil {
			t.Errorf("%s: %v", gast.Dump(tc.e), err)
			continue
		}
		if got != tc.want {
			t.Errorf("%s: got %q, want %q", gast.Dump(tc.e), got, tc.want)
		}
	}
}

func TestUnparseTypes(t *testing.T) {
	for _, tc := range []struct {
		ann  gast.Expr
		want string
	}{
		{gast.Scalar(gast.TypeStr), "std::string"},
		{gast.Scalar(gast.TypeUint8), "uint8_t"},
		{gast.Scalar(gast.TypeFloat32), "float"},
		{gast.PointerType(gast.Scalar(gast.TypeFloat)), "double *"},
		{gast.ConstType(gast.PointerType(gast.Scalar(gast.TypeInt))), "int *const"},
		{gast.ConstType(gast.Scalar(gast.TypeInt)), "const int"},
		{gast.ArrayType(gast.Scalar(gast.TypeFloat64), nil, nil), "std::vector<std::vector<double>>"},
		{gast.None(), "void"},
	} {
		u := &unparser{rep: lang.Reporter{Lang: lang.CPP.Name()}}
		got, err := u.typeName(tc.ann)
		if err != nil {
			t.Errorf("%s: %v", gast.Dump(tc.ann), err)
			continue
		}
		if got != tc.want {
			t.Errorf("%s: got %q, want %q", gast.Dump(tc.ann), got, tc.want)
		}
	}
}

func TestUnparseUnsupported(t *testing.T) {
	mod := &gast.Module{Body: []gast.Stmt{&gast.FunctionDef{
		Name: "f",
		Body: []gast.Stmt{&gast.ExprStmt{Value: &gast.BinOp{Left: gast.NewName("a"), Op: gast.MatMult, Right: gast.NewName("b")}}},
	}}}
	var u Unparser
	var uc *lang.UnsupportedConstruct
	if _, err := u.Unparse(mod); !errors.As(err, &uc) {
		t.Fatalf("want unsupported matmul, got %v", err)
	}
	u.BestEffort = true
	out, err := u.Unparse(mod)
	if err != nil {
		t.Fatal(err)
	}
	if want := "void f() {\n    // UNSUPPORTED BinOp\n}\n"; out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}
