package polyglot

import (
	"context"
	_ "embed"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/soypat/polyglot/gast"
	"github.com/soypat/polyglot/lang"
)

//go:embed testdata/add.f
var addF77 string

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func defaultRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	require.NoError(t, RegisterDefaults(r, *DefaultConfig(), zaptest.NewLogger(t)))
	return r
}

func TestRegistry(t *testing.T) {
	r := defaultRegistry(t)

	caps, ok := r.Lookup("c++")
	require.True(t, ok)
	require.Equal(t, "cpp", caps.Language.Name())
	require.NotNil(t, caps.Unparser)

	caps, ok = r.ForPath("src/solver.F90")
	require.True(t, ok)
	require.True(t, caps.Language.Same(lang.Fortran))

	_, ok = r.Lookup("cobol")
	require.False(t, ok)

	names := make([]string, 0, 4)
	for _, l := range r.Languages() {
		names = append(names, l.Name())
	}
	require.Equal(t, []string{"fortran", "python", "c", "cpp"}, names)

	// Registering again only replaces what is set.
	require.NoError(t, r.Register(Capabilities{Language: lang.CPP}))
	caps, _ = r.Lookup("cpp")
	require.NotNil(t, caps.Parser)

	var ce *lang.ContractError
	require.ErrorAs(t, r.Register(Capabilities{}), &ce)
}

func TestNewTranslatorMissingCapabilities(t *testing.T) {
	r := defaultRegistry(t)
	var ce *lang.ContractError

	_, err := NewTranslator(r, "fortran", "c")
	require.ErrorAs(t, err, &ce)
	require.Contains(t, ce.Msg, "no unparser")

	_, err = NewTranslator(r, "cobol", "python")
	require.ErrorAs(t, err, &ce)

	require.NoError(t, r.Register(Capabilities{Language: lang.Language{Names: []string{"rust"}, Extensions: []string{".rs"}}}))
	_, err = NewTranslator(r, "rust", "python")
	require.ErrorAs(t, err, &ce)
	require.Contains(t, ce.Msg, "no parser")
}

func TestTranslateF77ToPython(t *testing.T) {
	tr, err := NewTranslator(defaultRegistry(t), "fortran", "python")
	require.NoError(t, err)
	got, err := tr.Translate(addF77, "add.f")
	require.NoError(t, err)
	require.Contains(t, got, "def add(a: int, b: int) -> int:")
	require.Contains(t, got, "return c")

	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not installed")
	}
	out, err := lang.RunTool(context.Background(), got+"\nprint(add(3, 4))\n", "python3", "-")
	require.NoError(t, err)
	require.Equal(t, "7", strings.TrimSpace(out))
}

func TestTranslateF77ToCPP(t *testing.T) {
	tr, err := NewTranslator(defaultRegistry(t), "fortran", "cpp")
	require.NoError(t, err)
	got, err := tr.Translate(addF77, "add.f")
	require.NoError(t, err)
	require.Contains(t, got, "int add(int a, int b) {")
	require.Contains(t, got, "return c;")
}

func TestGeneralize(t *testing.T) {
	tr, err := NewTranslator(defaultRegistry(t), "python", "fortran")
	require.NoError(t, err)
	mod, err := tr.Generalize("def f(x):\n    return x + 1\n", "f.py")
	require.NoError(t, err)
	require.Len(t, mod.Body, 1)
	fn, ok := mod.Body[0].(*gast.FunctionDef)
	require.True(t, ok)
	require.Equal(t, "f", fn.Name)

	_, err = tr.Generalize("x = (1 +\ny = 2\n", "f.py")
	var pe *lang.ParseError
	require.ErrorAs(t, err, &pe)
}

func TestTranslateFolder(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	write := func(rel, text string) {
		path := filepath.Join(in, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	}
	write("add.f", addF77)
	write("lib/add2.f", strings.ReplaceAll(addF77, "ADD(", "ADD2("))
	write("README.txt", "not fortran")

	tr, err := NewTranslator(defaultRegistry(t), "fortran", "python")
	require.NoError(t, err)
	tr.Workers = 2
	require.NoError(t, tr.TranslateFolder(context.Background(), in, out))

	b, err := os.ReadFile(filepath.Join(out, "add.py"))
	require.NoError(t, err)
	require.Contains(t, string(b), "def add(")
	b, err = os.ReadFile(filepath.Join(out, "lib", "add2.py"))
	require.NoError(t, err)
	require.Contains(t, string(b), "def add2(")
	_, err = os.Stat(filepath.Join(out, "README.py"))
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestTranslateFolderFailure(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(in, "bad.py"), []byte("x = (1 +\ny = 2\n"), 0o644))
	tr, err := NewTranslator(defaultRegistry(t), "python", "fortran")
	require.NoError(t, err)
	err = tr.TranslateFolder(context.Background(), in, out)
	var pe *lang.ParseError
	require.ErrorAs(t, err, &pe)
	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestSourceReaderWriter(t *testing.T) {
	dir := t.TempDir()
	var ce *lang.ContractError

	w := CodeWriter{Language: lang.Python}
	require.ErrorAs(t, w.WriteFile("x = 1\n", filepath.Join(dir, "x.f90")), &ce)
	path := filepath.Join(dir, "pkg", "x.py")
	require.NoError(t, w.WriteFile("x = 1\n", path))

	r := SourceReader{Language: lang.Python}
	got, err := r.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "x = 1\n", got)

	_, err = (SourceReader{Language: lang.Fortran}).ReadFile(path)
	require.ErrorAs(t, err, &ce)
	_, err = r.ReadFile(filepath.Join(dir, "missing.py"))
	require.ErrorIs(t, err, os.ErrNotExist)

	folder, err := r.ReadFolder(dir)
	require.NoError(t, err)
	require.Equal(t, map[string]string{path: "x = 1\n"}, folder)
	_, err = r.ReadFolder(path)
	require.ErrorAs(t, err, &ce)
}

func TestConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)

	cfg.BestEffort = true
	cfg.Workers = 3
	cfg.Include = []string{"/usr/include"}
	path := filepath.Join(dir, "polyglot.yaml")
	require.NoError(t, cfg.Save(path))
	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)

	require.NoError(t, os.WriteFile(path, []byte("fortran_form: sideways\n"), 0o644))
	_, err = LoadConfig(path)
	var ce *lang.ContractError
	require.ErrorAs(t, err, &ce)

	require.NoError(t, os.WriteFile(path, []byte("workers: [\n"), 0o644))
	_, err = LoadConfig(path)
	require.Error(t, err)
}

func TestToolCompilerMissingTool(t *testing.T) {
	tc := &ToolCompiler{Language: lang.CPP, Command: "polyglot-missing-compiler -o {out} {src}", ArtifactExt: ".so"}
	_, err := tc.Compile(context.Background(), "int main() { return 0; }\n", "main.cpp", t.TempDir())
	var te *lang.ToolError
	require.ErrorAs(t, err, &te)
	require.Equal(t, -1, te.ExitCode)
	require.Equal(t, "polyglot-missing-compiler", te.Tool)
	require.True(t, strings.HasPrefix(te.Args[len(te.Args)-1], filepath.Join(filepath.Dir(te.Args[1]), "polyglot_")))

	var ce *lang.ContractError
	_, err = (&ToolCompiler{Language: lang.CPP}).Compile(context.Background(), "", "", t.TempDir())
	require.ErrorAs(t, err, &ce)
}

func TestTranspileToPython(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not installed")
	}
	tr, err := NewTranslator(defaultRegistry(t), "fortran", "python")
	require.NoError(t, err)
	tp := &Transpiler{Translator: tr}
	artifact, err := tp.Transpile(context.Background(), addF77, "add.f", t.TempDir())
	require.NoError(t, err)
	require.Equal(t, ".py", filepath.Ext(artifact))
	b, err := os.ReadFile(artifact)
	require.NoError(t, err)
	require.Contains(t, string(b), "def add(")
}

// requireTools skips the test unless every named program is installed.
func requireTools(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			t.Skipf("%s not installed", name)
		}
	}
}

func runPython(t *testing.T, code string) string {
	t.Helper()
	requireTools(t, "python3")
	if _, err := lang.RunTool(context.Background(), "import numpy\n", "python3", "-"); err != nil {
		t.Skip("numpy not installed")
	}
	out, err := lang.RunTool(context.Background(), code, "python3", "-")
	require.NoError(t, err, code)
	return strings.TrimSpace(out)
}

func runCPP(t *testing.T, code string) string {
	t.Helper()
	requireTools(t, "g++")
	dir := t.TempDir()
	src, exe := filepath.Join(dir, "main.cpp"), filepath.Join(dir, "main")
	require.NoError(t, os.WriteFile(src, []byte(code), 0o644))
	_, err := lang.RunTool(context.Background(), "", "g++", "-std=c++17", "-o", exe, src)
	require.NoError(t, err, code)
	out, err := lang.RunTool(context.Background(), "", exe)
	require.NoError(t, err)
	return strings.TrimSpace(out)
}

const integerDivisionC = `int quo(int a, int b) { return a / b; }
int rem(int a, int b) { return a % b; }
double ratio(int a, double b) { return a / b; }
`

func TestIntegerDivisionCToPython(t *testing.T) {
	tr, err := NewTranslator(defaultRegistry(t), "c", "python")
	require.NoError(t, err)
	got, err := tr.Translate(integerDivisionC, "div.c")
	require.NoError(t, err)
	require.Contains(t, got, "int(a / b)")
	require.Contains(t, got, "np.fmod(a, b)")
	require.Contains(t, got, "import numpy as np")

	out := runPython(t, got+"\nprint(quo(-7, 2), rem(-7, 2), ratio(7, 2.0))\n")
	require.Equal(t, "-3 -1 3.5", out)
}

const integerDivisionF90 = `integer function iquo(a, b)
  integer, intent(in) :: a, b
  iquo = a / b
end function iquo

integer function irem(a, b)
  integer, intent(in) :: a, b
  irem = mod(a, b)
end function irem
`

func TestIntegerDivisionFortranToPython(t *testing.T) {
	tr, err := NewTranslator(defaultRegistry(t), "fortran", "python")
	require.NoError(t, err)
	got, err := tr.Translate(integerDivisionF90, "div.f90")
	require.NoError(t, err)
	require.NotContains(t, got, "a // b")

	out := runPython(t, got+"\nprint(iquo(-7, 2), irem(-7, 2))\n")
	require.Equal(t, "-3 -1", out)
}

func TestFloorDivisionPythonToCPP(t *testing.T) {
	const src = "def fdiv(a: int, b: int) -> int:\n    return a // b\n\n\ndef fmodulo(a: int, b: int) -> int:\n    return a % b\n"
	tr, err := NewTranslator(defaultRegistry(t), "python", "cpp")
	require.NoError(t, err)
	got, err := tr.Translate(src, "div.py")
	require.NoError(t, err)
	require.Contains(t, got, "floor_div(a, b)")
	require.Contains(t, got, "floor_mod(a, b)")

	out := runCPP(t, got+"\n#include <cstdio>\nint main() {\n    std::printf(\"%ld %ld\\n\", (long)fdiv(-7, 2), (long)fmodulo(-7, 2));\n}\n")
	require.Equal(t, "-4 1", out)
}

func TestDummyArgumentsByReference(t *testing.T) {
	const src = `subroutine accumulate(a, b, x)
  integer, intent(in) :: a, b
  integer :: x
  x = a + b
end subroutine accumulate
`
	tr, err := NewTranslator(defaultRegistry(t), "fortran", "cpp")
	require.NoError(t, err)
	got, err := tr.Translate(src, "acc.f90")
	require.NoError(t, err)
	require.Contains(t, got, "int &x")
	require.NotContains(t, got, "int &a")

	out := runCPP(t, got+"\n#include <cstdio>\nint main() {\n    int x = 0;\n    accumulate(3, 4, x);\n    std::printf(\"%d\\n\", x);\n}\n")
	require.Equal(t, "7", out)
}
