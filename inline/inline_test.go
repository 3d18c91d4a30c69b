package inline

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/soypat/polyglot/gast"
	"github.com/soypat/polyglot/lang"
	"github.com/soypat/polyglot/python"
)

// functions parses Python source and returns its functions by name.
func functions(t *testing.T, src string) map[string]*gast.FunctionDef {
	t.Helper()
	var p python.Parser
	tree, err := p.Parse(src, "inline.py")
	if err != nil {
		t.Fatal(err)
	}
	defer tree.(*python.Tree).Close()
	var g python.Generalizer
	mod, err := g.Generalize(tree)
	if err != nil {
		t.Fatal(err)
	}
	fns := make(map[string]*gast.FunctionDef)
	for _, s := range mod.Body {
		if fn, ok := s.(*gast.FunctionDef); ok {
			fns[fn.Name] = fn
		}
	}
	return fns
}

// callTo returns the n-th call to name in fn.
func callTo(t *testing.T, fn *gast.FunctionDef, name string, n int) *gast.Call {
	t.Helper()
	var found *gast.Call
	gast.Inspect(fn, func(node gast.Node) bool {
		if c, ok := node.(*gast.Call); ok && found == nil {
			if callee, _ := gast.CalleeName(c); callee == name {
				if n == 0 {
					found = c
				}
				n--
			}
		}
		return found == nil
	})
	if found == nil {
		t.Fatalf("no call to %s in %s", name, gast.Dump(fn))
	}
	return found
}

func render(t *testing.T, fn *gast.FunctionDef) string {
	t.Helper()
	var u python.Unparser
	out, err := u.Unparse(&gast.Module{Body: []gast.Stmt{fn}})
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestInline(t *testing.T) {
	for _, tc := range []struct {
		name string
		src  string
		nth  int
		want string
	}{
		{
			name: "return",
			src:  "def f(x):\n    return g(x)\n\ndef g(a):\n    return a\n",
			want: "def f(x):\n    return x\n",
		},
		{
			name: "statement",
			src:  "def f(y):\n    g(y + 1)\n    return y\n\ndef g(a):\n    print(a)\n    return a\n",
			want: "def f(y):\n    a = y + 1\n    print(a)\n    return y\n",
		},
		{
			name: "assignment",
			src:  "def f(x):\n    z = g(x)\n    return z\n\ndef g(a):\n    b = a * 2\n    return b\n",
			want: "def f(x):\n    b = x * 2\n    z = b\n    return z\n",
		},
		{
			name: "synthesized return",
			src:  "def f(x):\n    return g(x)\n\ndef g(a):\n    print(a)\n",
			want: "def f(x):\n    print(x)\n    return None\n",
		},
		{
			name: "expression",
			src:  "def f(x):\n    return g(x) + 1\n\ndef g(a):\n    return a * a\n",
			want: "def f(x):\n    return x * x + 1\n",
		},
		{
			name: "nested body",
			src:  "def f(x):\n    if x > 0:\n        g(x)\n    return x\n\ndef g(a):\n    print(a)\n    print(a * 2)\n",
			want: "def f(x):\n    if x > 0:\n        print(x)\n        print(x * 2)\n    return x\n",
		},
		{
			name: "default",
			src:  "def f(x):\n    y = g(x)\n    return g(b=3, a=x)\n\ndef g(a, b=2):\n    return a + b\n",
			want: "def f(x):\n    y = x + 2\n    return g(b=3, a=x)\n",
		},
		{
			name: "keywords",
			src:  "def f(x):\n    y = g(x)\n    return g(b=3, a=x)\n\ndef g(a, b=2):\n    return a + b\n",
			nth:  1,
			want: "def f(x):\n    y = g(x)\n    return x + 3\n",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			fns := functions(t, tc.src)
			f := fns["f"]
			before := gast.Dump(f)
			got, err := Inline(f, fns["g"], callTo(t, f, "g", tc.nth))
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.want, render(t, got)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
			if gast.Dump(f) != before {
				t.Error("target modified in place")
			}
		})
	}
}

func TestInlineEquivalentTree(t *testing.T) {
	fns := functions(t, "def f(x):\n    return g(x)\n\ndef g(a):\n    return a\n")
	got, err := Inline(fns["f"], fns["g"], callTo(t, fns["f"], "g", 0))
	if err != nil {
		t.Fatal(err)
	}
	want := &gast.FunctionDef{
		Name: "f",
		Args: []*gast.Arg{{Name: "x"}},
		Body: []gast.Stmt{&gast.Return{Value: gast.NewName("x")}},
	}
	if !gast.Equal(got, want) {
		t.Errorf("got  %s\nwant %s", gast.Dump(got), gast.Dump(want))
	}
}

func TestInlineUnsupportedContext(t *testing.T) {
	fns := functions(t, "def f(x):\n    if g(x):\n        pass\n\ndef g(a):\n    print(a)\n    return a\n")
	_, err := Inline(fns["f"], fns["g"], callTo(t, fns["f"], "g", 0))
	var uc *lang.UnsupportedConstruct
	if !errors.As(err, &uc) {
		t.Fatalf("want *lang.UnsupportedConstruct, got %v", err)
	}
	if uc.Kind != "If" {
		t.Errorf("context %q, want If", uc.Kind)
	}

	fns = functions(t, "def f(x):\n    g(x)\n\ndef g(a):\n    if a:\n        return 1\n    print(a)\n")
	if _, err := Inline(fns["f"], fns["g"], callTo(t, fns["f"], "g", 0)); !errors.As(err, &uc) {
		t.Errorf("early return: want *lang.UnsupportedConstruct, got %v", err)
	}
}

func TestInlineContract(t *testing.T) {
	fns := functions(t, "def f(x):\n    return g(x, x, x)\n\ndef g(a):\n    return a\n\ndef h(a):\n    return g(a)\n")
	var ce *lang.ContractError
	if _, err := Inline(fns["f"], fns["g"], callTo(t, fns["f"], "g", 0)); !errors.As(err, &ce) {
		t.Errorf("too many arguments: want *lang.ContractError, got %v", err)
	}
	if _, err := Inline(fns["f"], fns["g"], callTo(t, fns["h"], "g", 0)); !errors.As(err, &ce) {
		t.Errorf("foreign call: want *lang.ContractError, got %v", err)
	}
	if _, err := Inline(fns["f"], fns["h"], callTo(t, fns["f"], "g", 0)); !errors.As(err, &ce) {
		t.Errorf("wrong callee: want *lang.ContractError, got %v", err)
	}
	if _, err := Inline(nil, fns["g"], nil); !errors.As(err, &ce) {
		t.Errorf("nil: want *lang.ContractError, got %v", err)
	}
}
