package lang

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
)

// RunTool runs an external program to completion with stdin as its
// standard input and returns its standard output. A process that fails to
// start or exits non-zero yields a *ToolError carrying the combined
// captured output. Cancelling ctx kills the process.
func RunTool(ctx context.Context, stdin string, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		te := &ToolError{Tool: name, Args: args, ExitCode: -1, Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			te.ExitCode = exitErr.ExitCode()
		}
		te.Output = stderr.String()
		if stdout.Len() > 0 {
			te.Output = stdout.String() + te.Output
		}
		return "", te
	}
	return stdout.String(), nil
}

// SplitCommand splits a configured command line on whitespace into the
// program name and its leading arguments.
func SplitCommand(cmdline string) (name string, args []string) {
	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}
