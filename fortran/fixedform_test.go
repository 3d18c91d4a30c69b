package fortran

import (
	"slices"
	"testing"

	"github.com/soypat/polyglot/fortran/ast"
)

func TestNormalizeFixedForm(t *testing.T) {
	const src = "      SUBROUTINE ADD(A,B,C)\n" +
		"Cf2py intent(out) c\n" +
		"* star comment\n" +
		"      INTEGER A, B, C\n" +
		"   10 C = A +\n" +
		"     &    B\n" +
		"      END"
	const want = "      SUBROUTINE ADD(A,B,C)\n" +
		"!f2py intent(out) c\n" +
		"! star comment\n" +
		"      INTEGER A, B, C\n" +
		"   10 C = A + &\n" +
		"     &    B\n" +
		"      END"
	if got := NormalizeFixedForm(src); got != want {
		t.Errorf("NormalizeFixedForm mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestNormalizeFixedFormColumns(t *testing.T) {
	// Text past column 72 is a sequence number field.
	line := "      X = 1" + spaces(61) + "SEQ00010"
	if got := NormalizeFixedForm(line); got != "      X = 1"+spaces(61) {
		t.Errorf("sequence field kept: %q", got)
	}
	if got := NormalizeFixedForm("\tY = 2\n\t1 + 3"); got != "      Y = 2 &\n     & + 3" {
		t.Errorf("tab form: %q", got)
	}
}

func spaces(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}

func TestParseDirective(t *testing.T) {
	tests := []struct {
		comment string
		intent  ast.IntentType
		names   []string
		ok      bool
	}{
		{comment: "f2py intent(out) c", intent: ast.IntentOut, names: []string{"c"}, ok: true},
		{comment: " F2PY INTENT(IN) x, y", intent: ast.IntentIn, names: []string{"x", "y"}, ok: true},
		{comment: "f2py intent(in,out) a", intent: ast.IntentInOut, names: []string{"a"}, ok: true},
		{comment: "f2py intent(inout) :: b", intent: ast.IntentInOut, names: []string{"b"}, ok: true},
		{comment: "f2py intent(hide) n", ok: false},
		{comment: "compute the sum", ok: false},
	}
	for _, tc := range tests {
		intent, names, ok := parseDirective(tc.comment)
		if ok != tc.ok {
			t.Errorf("%q: ok=%v, want %v", tc.comment, ok, tc.ok)
			continue
		}
		if !ok {
			continue
		}
		if intent != tc.intent || !slices.Equal(names, tc.names) {
			t.Errorf("%q: got %v %q, want %v %q", tc.comment, intent, names, tc.intent, tc.names)
		}
	}
}

func TestIsFixedFormPath(t *testing.T) {
	for path, want := range map[string]bool{
		"add.f": true, "ADD.F": true, "legacy.for": true, "old.f77": true,
		"mod.f90": false, "x.py": false, "noext": false,
	} {
		if got := IsFixedFormPath(path); got != want {
			t.Errorf("IsFixedFormPath(%q)=%v, want %v", path, got, want)
		}
	}
}
