package fortran

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/soypat/polyglot/gast"
	"github.com/soypat/polyglot/lang"
)

func unparse(t *testing.T, mod *gast.Module, form Form) string {
	t.Helper()
	u := Unparser{Form: form}
	out, err := u.Unparse(mod)
	if err != nil {
		t.Fatalf("unparse: %v\n%s", err, gast.Dump(mod))
	}
	return out
}

var roundTripCorpus = []struct {
	name string
	form Form
	src  string
}{
	{name: "loop", form: FormFree, src: `PROGRAM t
  INTEGER :: i, n
  REAL :: x(10)
  n = 10
  DO i = 1, n
    x(i) = i * 2.0
  END DO
  IF (n > 5) THEN
    PRINT *, x(1)
  ELSE IF (n == 0) THEN
    STOP
  ELSE
    PRINT *, n
  END IF
END PROGRAM t
`},
	{name: "function", form: FormFree, src: `FUNCTION square(v) RESULT(r)
  REAL, INTENT(IN) :: v
  REAL :: r
  r = v**2
END FUNCTION square
`},
	{name: "outputs", form: FormFree, src: `SUBROUTINE addsub(a, b, s, d)
  INTEGER, INTENT(IN) :: a, b
  INTEGER, INTENT(OUT) :: s, d
  s = a + b
  d = a - b
END SUBROUTINE addsub

PROGRAM main
  INTEGER :: x, y
  CALL addsub(5, 3, x, y)
  PRINT *, x, y
END PROGRAM main
`},
	{name: "allocate", form: FormFree, src: `PROGRAM t
  REAL, ALLOCATABLE :: x(:)
  INTEGER :: n
  n = 4
  ALLOCATE(x(n))
  x(1) = 1.0
  x(2:n) = 0.0
  DEALLOCATE(x)
END PROGRAM t
`},
	{name: "while", form: FormFree, src: `PROGRAM t
  INTEGER :: k
  LOGICAL :: done
  k = 0
  done = .FALSE.
  DO WHILE (.NOT. done .AND. k < 10)
    k = k + 1
    IF (MOD(k, 3) == 0) CYCLE
    IF (k > 7) EXIT
  END DO
END PROGRAM t
`},
	{name: "f77add", form: FormFixed, src: `      SUBROUTINE ADD(A,B,C)
Cf2py intent(out) c
      INTEGER A, B, C
      C = A + B
      END
`},
}

// TestRoundTrip checks that Fortran output generalizes to the tree it was
// rendered from.
func TestRoundTrip(t *testing.T) {
	for _, tc := range roundTripCorpus {
		t.Run(tc.name, func(t *testing.T) {
			first := generalize(t, tc.src, tc.form)
			out := unparse(t, first, tc.form)
			second := generalize(t, out, tc.form)
			if diff := cmp.Diff(gast.Dump(first), gast.Dump(second)); diff != "" {
				t.Errorf("round trip mismatch (-first +second):\n%s\noutput:\n%s", diff, out)
			}
			// Rendering is deterministic.
			if again := unparse(t, second, tc.form); again != out {
				t.Errorf("second rendering differs:\n%s\nvs\n%s", out, again)
			}
		})
	}
}

func TestUnparseF77Add(t *testing.T) {
	mod := generalize(t, roundTripCorpus[len(roundTripCorpus)-1].src, FormFixed)
	got := unparse(t, mod, FormFixed)
	const want = `      SUBROUTINE add(a, b, c)
        INTEGER a
        INTEGER b
Cf2py intent(out) c
        INTEGER c
        c = a + b
      END
`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestUnparseParenthesization(t *testing.T) {
	tests := []struct {
		expr gast.Expr
		want string
	}{
		{
			expr: &gast.BinOp{Left: &gast.BinOp{Left: &gast.BinOp{Left: gast.NewName("a"), Op: gast.Add, Right: gast.NewName("b")}, Op: gast.Sub, Right: gast.NewName("c")}, Op: gast.Add, Right: gast.NewName("d")},
			want: "a + b - c + d",
		},
		{
			expr: &gast.BinOp{Left: gast.NewName("a"), Op: gast.Sub, Right: &gast.BinOp{Left: gast.NewName("b"), Op: gast.Sub, Right: gast.NewName("c")}},
			want: "a - (b - c)",
		},
		{
			expr: &gast.BinOp{Left: &gast.BinOp{Left: gast.NewName("a"), Op: gast.Add, Right: gast.NewName("b")}, Op: gast.Mult, Right: gast.NewName("c")},
			want: "(a + b) * c",
		},
		{
			expr: &gast.BinOp{Left: gast.NewName("a"), Op: gast.Pow, Right: &gast.BinOp{Left: gast.NewName("b"), Op: gast.Pow, Right: gast.Int(2)}},
			want: "a**b**2",
		},
		{
			expr: &gast.BinOp{Left: gast.NewName("i"), Op: gast.BitAnd, Right: gast.Int(7)},
			want: "IAND(i, 7)",
		},
		{
			expr: &gast.BoolOp{Op: gast.And, Values: []gast.Expr{gast.NewName("p"), &gast.BoolOp{Op: gast.Or, Values: []gast.Expr{gast.NewName("q"), gast.NewName("r")}}}},
			want: "p .AND. (q .OR. r)",
		},
		{
			expr: &gast.UnaryOp{Op: gast.USub, Operand: &gast.BinOp{Left: gast.NewName("a"), Op: gast.Add, Right: gast.NewName("b")}},
			want: "-(a + b)",
		},
		{
			expr: gast.NewCall("np.sqrt", gast.NewName("x")),
			want: "SQRT(x)",
		},
		{
			expr: gast.Truncated(gast.NewName("i"), gast.FloorDiv, gast.NewName("j")),
			want: "i / j",
		},
		{
			expr: &gast.BinOp{Left: gast.NewName("i"), Op: gast.FloorDiv, Right: gast.NewName("j")},
			want: "(i - MODULO(i, j)) / j",
		},
		{
			expr: gast.Truncated(gast.NewName("i"), gast.Mod, gast.Int(2)),
			want: "MOD(i, 2)",
		},
		{
			expr: &gast.BinOp{Left: gast.NewName("i"), Op: gast.Mod, Right: gast.Int(2)},
			want: "MODULO(i, 2)",
		},
		{
			expr: gast.NewSubscript(gast.NewName("m"), gast.NewName("i"), &gast.Slice{Lower: gast.Int(0), Upper: gast.NewName("n")}),
			want: "m(i + 1, 1:n)",
		},
	}
	for _, tc := range tests {
		mod := &gast.Module{Body: []gast.Stmt{&gast.Assign{Targets: []gast.Expr{gast.NewName("x")}, Value: tc.expr}}}
		got := unparse(t, mod, FormFree)
		if want := "x = " + tc.want + "\n"; got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}

func TestUnparseFloatPrecision(t *testing.T) {
	single := &gast.Arg{Name: "s", Annotation: gast.Scalar(gast.TypeFloat)}
	single.Set(MetaDefaultKind, true)
	fn := &gast.FunctionDef{
		Name: "scale",
		Args: []*gast.Arg{
			{Name: "x", Annotation: gast.Scalar(gast.TypeFloat)},
			{Name: "z", Annotation: gast.Scalar(gast.TypeComplex)},
			single,
		},
		Returns: gast.Scalar(gast.TypeFloat),
		Body:    []gast.Stmt{&gast.Return{Value: &gast.BinOp{Left: gast.NewName("x"), Op: gast.Mult, Right: gast.NewName("s")}}},
	}
	mod := &gast.Module{Body: []gast.Stmt{fn}}
	got := unparse(t, mod, FormFree)
	for _, want := range []string{"DOUBLE PRECISION :: x", "COMPLEX(KIND=8) :: z", "REAL :: s"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in\n%s", want, got)
		}
	}
	fixed := unparse(t, mod, FormFixed)
	if !strings.Contains(fixed, "DOUBLE COMPLEX") || !strings.Contains(fixed, "DOUBLE PRECISION") {
		t.Errorf("fixed form:\n%s", fixed)
	}
}

func TestUnparsePrototype(t *testing.T) {
	proto := &gast.FunctionDef{Name: "g", Args: []*gast.Arg{{Name: "x", Annotation: gast.Scalar(gast.TypeInt)}}, Returns: gast.Scalar(gast.TypeInt)}
	proto.Set(gast.MetaPrototype, true)
	fn := &gast.FunctionDef{
		Name:    "h",
		Args:    []*gast.Arg{{Name: "x", Annotation: gast.Scalar(gast.TypeInt)}},
		Body:    []gast.Stmt{&gast.Return{Value: gast.NewName("x")}},
		Returns: gast.Scalar(gast.TypeInt),
	}
	got := unparse(t, &gast.Module{Body: []gast.Stmt{proto, fn}}, FormFree)
	if strings.Contains(strings.ToUpper(got), " G(") || strings.Count(got, "FUNCTION") != 2 {
		t.Errorf("prototype rendered:\n%s", got)
	}
}

func TestUnparseForeignDirective(t *testing.T) {
	kept := &gast.Directive{Text: "IMPLICIT NONE"}
	kept.Set(MetaStatement, true)
	mod := &gast.Module{Body: []gast.Stmt{
		&gast.Directive{Text: "#include <math.h>"},
		kept,
		&gast.Assign{Targets: []gast.Expr{gast.NewName("x")}, Value: gast.Int(1)},
	}}
	for _, form := range []Form{FormFree, FormFixed} {
		got := unparse(t, mod, form)
		if !strings.Contains(got, "#include <math.h>\n") || !strings.Contains(got, "IMPLICIT NONE\n") {
			t.Fatalf("missing directives:\n%s", got)
		}
		for _, line := range strings.Split(got, "\n") {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "#") {
				t.Errorf("directive written as source: %q", line)
			}
			if strings.Contains(line, "#include") && !strings.HasPrefix(trimmed, "!") && !strings.HasPrefix(line, "C") {
				t.Errorf("directive not commented: %q", line)
			}
			if strings.Contains(line, "IMPLICIT") && (strings.HasPrefix(trimmed, "!") || strings.HasPrefix(line, "C")) {
				t.Errorf("Fortran statement commented out: %q", line)
			}
		}
	}
}

func TestUnparseUnsupported(t *testing.T) {
	mod := &gast.Module{Body: []gast.Stmt{
		&gast.Assign{Targets: []gast.Expr{gast.NewName("x")}, Value: gast.Int(1)},
		&gast.ExprStmt{Value: gast.NewName("x")},
	}}
	u := Unparser{}
	_, err := u.Unparse(mod)
	var uc *lang.UnsupportedConstruct
	if !errors.As(err, &uc) {
		t.Fatalf("want *lang.UnsupportedConstruct, got %v", err)
	}
	if uc.Kind != "ExprStmt" || !strings.Contains(uc.Source, "x") {
		t.Errorf("got kind %q source %q", uc.Kind, uc.Source)
	}

	u = Unparser{BestEffort: true, Log: zap.NewNop()}
	out, err := u.Unparse(mod)
	if err != nil {
		t.Fatal(err)
	}
	if want := "x = 1\n! UNSUPPORTED ExprStmt\n"; out != want {
		t.Errorf("got %q, want %q", out, want)
	}

	if _, err := (&Unparser{}).Unparse(nil); err == nil {
		t.Error("nil module should be rejected")
	}
}

func TestUnparseIgnoresForeignMetadata(t *testing.T) {
	assign := &gast.Assign{Targets: []gast.Expr{gast.NewName("x")}, Value: gast.Int(1)}
	assign.Set("c.include", "stdio.h")
	assign.Set("python.unknown", 42)
	out := unparse(t, &gast.Module{Body: []gast.Stmt{assign}}, FormFree)
	if out != "x = 1\n" {
		t.Errorf("got %q", out)
	}
}

func TestUnparseHeaders(t *testing.T) {
	mod := generalize(t, roundTripCorpus[2].src, FormFree)
	u := Unparser{Headers: true}
	got, err := u.Unparse(mod)
	if err != nil {
		t.Fatal(err)
	}
	const want = `SUBROUTINE addsub(a, b, s, d)
  INTEGER, INTENT(IN) :: a
  INTEGER, INTENT(IN) :: b
  INTEGER, INTENT(OUT) :: s
  INTEGER, INTENT(OUT) :: d
END SUBROUTINE addsub
`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestFixedFormContinuation(t *testing.T) {
	var l layout
	l.fixed = true
	l.stmt("x = " + strings.Repeat("alpha + ", 12) + "omega")
	for i, line := range strings.Split(strings.TrimSuffix(l.String(), "\n"), "\n") {
		if len(line) > fixedTextEnd {
			t.Errorf("line %d exceeds column %d: %q", i+1, fixedTextEnd, line)
		}
		if i > 0 && line[fixedContinuation] != '&' {
			t.Errorf("line %d lacks continuation mark: %q", i+1, line)
		}
	}
	stmt := strings.ReplaceAll(NormalizeFixedForm(l.String()), "&", "")
	if got, want := strings.Join(strings.Fields(stmt), " "), "x = "+strings.Repeat("alpha + ", 12)+"omega"; got != want {
		t.Errorf("continued statement reads %q, want %q", got, want)
	}
}
