package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const addF77 = "      SUBROUTINE ADD(A,B,C)\nCf2py intent(out) c\n      INTEGER A, B, C\n      C = A + B\n      END\n"

// execute runs the root command. Commands share flag state, so the
// subtests run in order.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "none.yaml")

	t.Run("languages", func(t *testing.T) {
		out, err := execute(t, "languages", "--config", cfgPath)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 4)
		require.True(t, strings.HasPrefix(lines[0], "fortran"))
		require.Contains(t, lines[2], "from,compile")
	})

	t.Run("translate", func(t *testing.T) {
		src := filepath.Join(dir, "add.f")
		dst := filepath.Join(dir, "out", "add.py")
		require.NoError(t, os.WriteFile(src, []byte(addF77), 0o644))
		_, err := execute(t, "translate", "--config", cfgPath, src, dst)
		require.NoError(t, err)
		b, err := os.ReadFile(dst)
		require.NoError(t, err)
		require.Contains(t, string(b), "def add(a: int, b: int) -> int:")
	})

	t.Run("unknown language", func(t *testing.T) {
		_, err := execute(t, "translate", "--config", cfgPath, filepath.Join(dir, "add.f"), filepath.Join(dir, "add.cob"))
		require.ErrorContains(t, err, "cannot detect to language")
	})

	t.Run("dump", func(t *testing.T) {
		out, err := execute(t, "dump", "--config", cfgPath, filepath.Join(dir, "add.f"))
		require.NoError(t, err)
		require.Contains(t, out, "FunctionDef(")
	})

	t.Run("dump concrete", func(t *testing.T) {
		t.Cleanup(func() { flagConcrete = false })
		out, err := execute(t, "dump", "--config", cfgPath, "--concrete", filepath.Join(dir, "add.f"))
		require.NoError(t, err)
		require.Contains(t, out, "Subroutine @")
		require.Contains(t, out, "AssignmentStmt @")
		require.NotContains(t, out, "FunctionDef(")

		src := filepath.Join(dir, "f.py")
		require.NoError(t, os.WriteFile(src, []byte("x = 1\n"), 0o644))
		out, err = execute(t, "dump", "--config", cfgPath, "--concrete", src)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(out, "(module"), out)
	})

	t.Run("not yet supported", func(t *testing.T) {
		_, err := execute(t, "translate", "--config", cfgPath, "--lines", "1-3", "a.f", "a.py")
		require.ErrorContains(t, err, "not yet supported")
	})
}
