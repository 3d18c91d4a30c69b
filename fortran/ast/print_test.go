package ast

import (
	"strings"
	"testing"
)

func TestFprint(t *testing.T) {
	assign := &AssignmentStmt{
		Target:   &Identifier{Value: "x", Position: Pos(6, 7)},
		Value:    &IntegerLiteral{Value: 1, Raw: "1", Position: Pos(10, 11)},
		Position: Pos(6, 11),
	}
	prog := &Program{Units: []ProgramUnit{
		&Subroutine{Name: "s", Body: []Statement{assign}, Position: Pos(0, 20)},
	}}
	const want = `Program
  Units: [
    - Subroutine @0:20
      Name: "s"
      Body: [
        - AssignmentStmt @6:11
          Target: Identifier @6:7
            Value: "x"
          Value: IntegerLiteral @10:11
            Value: 1
            Raw: "1"
      ]
  ]
`
	var sb strings.Builder
	if err := Fprint(&sb, prog, NotNilFilter); err != nil {
		t.Fatal(err)
	}
	if sb.String() != want {
		t.Errorf("got\n%s\nwant\n%s", sb.String(), want)
	}

	sb.Reset()
	if err := Fprint(&sb, prog, FieldsFilter("Units", "Name")); err != nil {
		t.Fatal(err)
	}
	if got := sb.String(); got != "Program\n  Units: [\n    - Subroutine @0:20\n      Name: \"s\"\n  ]\n" {
		t.Errorf("filtered: got %q", got)
	}

	sb.Reset()
	if err := Fprint(&sb, assign, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sb.String(), "IsPointerAssignment: false") {
		t.Errorf("nil filter drops fields:\n%s", sb.String())
	}
}
