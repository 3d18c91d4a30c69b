package lang

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLanguageMatch(t *testing.T) {
	tests := []struct {
		lang Language
		name string
		path string
		want bool
	}{
		{lang: Fortran, name: "F90", path: "src/add.f", want: true},
		{lang: Fortran, name: "fortran", path: "ADD.F90", want: true},
		{lang: Python, name: "py", path: "x.py", want: true},
		{lang: CPP, name: "c++", path: "x.hpp", want: true},
		{lang: C, name: "cpp", path: "x.cpp", want: false},
		{lang: Python, name: "pyth", path: "x.pyc", want: false},
	}
	for _, tc := range tests {
		if got := tc.lang.Matches(tc.name); got != tc.want {
			t.Errorf("%s.Matches(%q)=%v, want %v", tc.lang, tc.name, got, tc.want)
		}
		if got := tc.lang.AcceptsPath(tc.path); got != tc.want {
			t.Errorf("%s.AcceptsPath(%q)=%v, want %v", tc.lang, tc.path, got, tc.want)
		}
	}
	if !Fortran.Same(Language{Names: []string{"fortran"}}) {
		t.Error("languages with same canonical name should be the same")
	}
}

func TestCheckIndentation(t *testing.T) {
	for _, code := range []string{
		"def f():\n    return 1\n\n    pass\n",
		"def f():\n\treturn 1\n\tif x:\n\t\tpass\n",
		"a = 1\n \t\nb = 2\n",
		"",
	} {
		if err := CheckIndentation(code); err != nil {
			t.Errorf("%q: consistent indentation rejected: %v", code, err)
		}
	}
	tests := []struct {
		code string
		line string
	}{
		{"a = 1\nif a:\n \tb = 2\n", "line 3"},
		{"def f():\n    return 1\n\tpass\n", "line 3"},
		{"if x:\n\ty = 2\n        z = 3\n", "line 3"},
		{"if x:\n  y = 1\nif z:\n  w = 1\n\tv = 2\n", "line 5"},
	}
	for _, tc := range tests {
		err := CheckIndentation(tc.code)
		var ce *ContractError
		if !errors.As(err, &ce) {
			t.Errorf("%q: want *ContractError, got %v", tc.code, err)
			continue
		}
		if !strings.Contains(ce.Error(), tc.line) {
			t.Errorf("%q: error should name %s: %q", tc.code, tc.line, ce.Error())
		}
	}
}

func TestParseErrorFormat(t *testing.T) {
	tests := []struct {
		err  ParseError
		want string
	}{
		{ParseError{Path: "a.f90", Line: 3, Col: 7, Msg: "expected )"}, "a.f90:3:7: expected )"},
		{ParseError{Path: "a.f90", Line: 3, Msg: "bad"}, "a.f90:3: bad"},
		{ParseError{Msg: "bad"}, "bad"},
		{ParseError{Path: "a.c", Msg: "cpp failed", Diagnostics: "a.c:1: fatal\n"}, "a.c: cpp failed\na.c:1: fatal"},
	}
	for _, tc := range tests {
		if got := tc.err.Error(); got != tc.want {
			t.Errorf("got %q, want %q", got, tc.want)
		}
	}
}

func TestParseScopes(t *testing.T) {
	code := "l1\nl2\nl3\nl4\n"
	parse := func(s string) (string, error) { return s, nil }
	join := func(parts []string) (string, error) { return strings.Join(parts, "|"), nil }

	got, err := ParseScopes(code, []Scope{{2, 3}}, parse, nil)
	if err != nil || got != "l2\nl3\n" {
		t.Fatalf("single scope: got %q, %v", got, err)
	}
	got, err = ParseScopes(code, []Scope{{1, 1}, {4, 4}}, parse, join)
	if err != nil || got != "l1\n|l4\n" {
		t.Fatalf("joined scopes: got %q, %v", got, err)
	}
	_, err = ParseScopes(code, []Scope{{1, 1}, {4, 4}}, parse, nil)
	var ce *ContractError
	if !errors.As(err, &ce) {
		t.Fatalf("join without joiner: want *ContractError, got %v", err)
	}
	_, err = ParseScopes(code, []Scope{{3, 1}}, parse, nil)
	if !errors.As(err, &ce) {
		t.Fatalf("inverted scope: want *ContractError, got %v", err)
	}

	failing := func(s string) (string, error) {
		return "", &ParseError{Path: "x", Line: 1, Msg: "boom"}
	}
	_, err = ParseScopes(code, []Scope{{3, 4}}, failing, nil)
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Line != 3 {
		t.Fatalf("scope relative line not adjusted: %v", err)
	}
}

func TestReporter(t *testing.T) {
	strict := Reporter{Lang: "fortran"}
	err := strict.Unsupported("SelectCaseStmt", "SELECT CASE (i)", "")
	var uc *UnsupportedConstruct
	if !errors.As(err, &uc) || uc.Kind != "SelectCaseStmt" {
		t.Fatalf("strict mode: want *UnsupportedConstruct, got %v", err)
	}

	core, logs := observer.New(zap.WarnLevel)
	lenient := Reporter{Lang: "fortran", BestEffort: true, Log: zap.New(core)}
	if err := lenient.Unsupported("SelectCaseStmt", "SELECT CASE (i)", ""); err != nil {
		t.Fatalf("best effort mode returned %v", err)
	}
	if logs.Len() != 1 {
		t.Fatalf("want one logged downgrade, got %d", logs.Len())
	}
	if kind := logs.All()[0].ContextMap()["kind"]; kind != "SelectCaseStmt" {
		t.Errorf("logged kind %v", kind)
	}
}

func TestRunToolFailure(t *testing.T) {
	_, err := RunTool(context.Background(), "", "polyglot-tool-that-does-not-exist")
	var te *ToolError
	if !errors.As(err, &te) {
		t.Fatalf("want *ToolError, got %v", err)
	}
	if te.ExitCode != -1 {
		t.Errorf("missing binary exit code %d", te.ExitCode)
	}
}
