package polyglot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/soypat/polyglot/lang"
)

// ToolCompiler compiles source text by running an external tool.
type ToolCompiler struct {
	Language lang.Language
	// Command is the command line run for each compilation. The
	// placeholders {src}, {out} and {name} are replaced with the path of
	// the written source, the path of the artifact and the module name.
	Command string
	// ArtifactExt is the extension of the artifact the tool produces.
	// When empty the written source file is the artifact.
	ArtifactExt string
	Log         *zap.Logger
}

// Compile writes code to a uniquely named source file in outDir, runs the
// tool on it and returns the path of the artifact. path only selects the
// language extension when code has no path of its own and may be empty.
// Tool failures are returned as a *[lang.ToolError].
func (tc *ToolCompiler) Compile(ctx context.Context, code, path, outDir string) (string, error) {
	name, args := lang.SplitCommand(tc.Command)
	if name == "" {
		return "", &lang.ContractError{Op: "compile", Msg: "no compiler command for " + tc.Language.Name()}
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("compile: %w", err)
	}
	module := "polyglot_" + strings.ReplaceAll(uuid.NewString(), "-", "_")
	ext := filepath.Ext(path)
	if !tc.Language.AcceptsExtension(ext) {
		ext = tc.Language.DefaultExtension()
	}
	src := filepath.Join(outDir, module+ext)
	if err := (CodeWriter{Language: tc.Language}).WriteFile(code, src); err != nil {
		return "", err
	}
	artifact := src
	if tc.ArtifactExt != "" {
		artifact = filepath.Join(outDir, module+tc.ArtifactExt)
	}
	r := strings.NewReplacer("{src}", src, "{out}", artifact, "{name}", module)
	for i, a := range args {
		args[i] = r.Replace(a)
	}
	log := tc.Log
	if log == nil {
		log = zap.NewNop()
	}
	log.Debug("compiling", zap.String("tool", name), zap.Strings("args", args))
	if _, err := lang.RunTool(ctx, "", name, args...); err != nil {
		return "", err
	}
	return artifact, nil
}

// Transpiler translates source code and compiles the result.
type Transpiler struct {
	Translator *Translator
	// Compiler compiles the target language. When nil the compiler
	// registered for the target language is used.
	Compiler lang.Compiler
}

// Transpile translates code read from path and compiles the translation
// into outDir, returning the artifact path.
func (tp *Transpiler) Transpile(ctx context.Context, code, path, outDir string) (string, error) {
	if tp.Translator == nil {
		return "", &lang.ContractError{Op: "transpile", Msg: "no translator"}
	}
	compiler := tp.Compiler
	if compiler == nil {
		compiler = tp.Translator.To.Compiler
	}
	if compiler == nil {
		return "", &lang.ContractError{Op: "transpile", Msg: "no compiler registered for " + tp.Translator.To.Language.Name()}
	}
	text, err := tp.Translator.Translate(code, path)
	if err != nil {
		return "", err
	}
	return compiler.Compile(ctx, text, tp.Translator.TargetPath(path), outDir)
}
