package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/coregx/coregex"

	"github.com/soypat/polyglot"
	"github.com/soypat/polyglot/gast"
)

func TestParseKinds(t *testing.T) {
	kinds, err := parseKinds("Call, binop")
	if err != nil {
		t.Fatal(err)
	}
	if len(kinds) != 2 || !kinds[gast.KindCall] || !kinds[gast.KindBinOp] {
		t.Errorf("got %v", kinds)
	}
	if kinds, err := parseKinds(""); err != nil || kinds != nil {
		t.Errorf("empty list: got %v, %v", kinds, err)
	}
	if _, err := parseKinds("Call,Nope"); err == nil {
		t.Error("want error for unknown kind")
	}
}

func TestSearchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.py")
	if err := os.WriteFile(path, []byte("def f(x):\n    return g(x) + h(1)\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := polyglot.NewRegistry()
	if err := polyglot.RegisterDefaults(r, *polyglot.DefaultConfig(), nil); err != nil {
		t.Fatal(err)
	}
	kinds, _ := parseKinds("Call")
	re := coregex.MustCompile(`id='g'`)
	matches, err := searchFile(r, path, kinds, re.MatchString)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || !strings.HasPrefix(gast.Dump(matches[0]), "Call(") {
		t.Fatalf("want one call to g, got %d matches", len(matches))
	}

	if _, err := searchFile(r, filepath.Join(t.TempDir(), "f.cob"), kinds, re.MatchString); err == nil {
		t.Error("want error for unknown language")
	}
}
