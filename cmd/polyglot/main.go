// polyglot translates source code between C, C++, Fortran and Python.
//
// Usage:
//
//	polyglot translate [flags] SRC DST
//	polyglot transpile [flags] SRC OUTDIR
//	polyglot dump [flags] SRC
//	polyglot languages
//
// Source and target languages are detected from file extensions unless
// given with --from and --to. SRC of translate may be a directory, in which
// case every source file below it is translated into DST.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/soypat/polyglot"
	"github.com/soypat/polyglot/gast"
	"github.com/soypat/polyglot/lang"
)

var (
	flagVerbose     bool
	flagConfig      string
	flagFrom        string
	flagTo          string
	flagBestEffort  bool
	flagHeaders     bool
	flagFortranForm string
	flagWorkers     int
	flagConcrete    bool

	// Declared for compatibility, rejected when set.
	flagLines           string
	flagOnly            []string
	flagKeepUnsupported bool

	logger   *zap.Logger
	cfg      *polyglot.Config
	registry *polyglot.Registry
)

var rootCmd = &cobra.Command{
	Use:           "polyglot",
	Short:         "Translate source code between C, C++, Fortran and Python",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range []string{"lines", "only", "keep-unsupported"} {
			if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
				return fmt.Errorf("--%s: not yet supported", name)
			}
		}
		var err error
		cfg, err = polyglot.LoadConfig(flagConfig)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("best-effort") {
			cfg.BestEffort = flagBestEffort
		}
		if flags.Changed("headers") {
			cfg.HeadersOnly = flagHeaders
		}
		if flags.Changed("fortran-form") {
			cfg.FortranForm = flagFortranForm
		}
		if flags.Changed("workers") {
			cfg.Workers = flagWorkers
		}

		zcfg := zap.NewProductionConfig()
		if cfg.LogLevel != "" {
			level, err := zapcore.ParseLevel(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("invalid log_level: %w", err)
			}
			zcfg.Level = zap.NewAtomicLevelAt(level)
		}
		if flagVerbose {
			zcfg = zap.NewDevelopmentConfig()
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		registry = polyglot.NewRegistry()
		return polyglot.RegisterDefaults(registry, *cfg, logger)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var translateCmd = &cobra.Command{
	Use:   "translate SRC DST",
	Short: "Translate a source file or directory",
	Long: `Translate SRC into DST. When SRC is a directory every source file of the
source language below it is translated to the same relative path below DST,
with the extension of the target language. A file is only written once its
translation succeeded.`,
	Args: cobra.ExactArgs(2),
	RunE: runTranslate,
}

var transpileCmd = &cobra.Command{
	Use:   "transpile SRC OUTDIR",
	Short: "Translate a source file and compile the result",
	Args:  cobra.ExactArgs(2),
	RunE:  runTranspile,
}

var dumpCmd = &cobra.Command{
	Use:   "dump SRC",
	Short: "Print the generalized syntax tree of a source file",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List the registered languages and their capabilities",
	Args:  cobra.NoArgs,
	RunE:  runLanguages,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	pf.StringVarP(&flagConfig, "config", "c", "polyglot.yaml", "configuration file")
	pf.StringVar(&flagFrom, "from", "", "source language (default: detected from SRC)")
	pf.StringVar(&flagTo, "to", "", "target language (default: detected from DST)")
	pf.BoolVar(&flagBestEffort, "best-effort", false, "skip unsupported constructs instead of failing")
	pf.BoolVar(&flagHeaders, "headers", false, "render declarations only")
	pf.StringVar(&flagFortranForm, "fortran-form", "auto", "Fortran source form: auto, free or fixed")
	pf.IntVar(&flagWorkers, "workers", 0, "files translated at once (default: one per CPU)")

	for _, cmd := range []*cobra.Command{translateCmd, transpileCmd} {
		cmd.Flags().StringVar(&flagLines, "lines", "", "line ranges to translate")
		cmd.Flags().StringSliceVar(&flagOnly, "only", nil, "functions to translate")
		cmd.Flags().BoolVar(&flagKeepUnsupported, "keep-unsupported", false, "copy unsupported scopes verbatim")
	}

	dumpCmd.Flags().BoolVar(&flagConcrete, "concrete", false, "print the parse tree of the source language instead")

	rootCmd.AddCommand(translateCmd, transpileCmd, dumpCmd, languagesCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "polyglot:", err)
		os.Exit(1)
	}
}

// language resolves an explicit language name or the language of path.
func language(name, path, role string) (polyglot.Capabilities, error) {
	if name != "" {
		caps, ok := registry.Lookup(name)
		if !ok {
			return caps, fmt.Errorf("unknown %s language %q", role, name)
		}
		return caps, nil
	}
	caps, ok := registry.ForPath(path)
	if !ok {
		return caps, fmt.Errorf("cannot detect %s language of %s, use --%s", role, path, role)
	}
	return caps, nil
}

func translator(src, dst string) (*polyglot.Translator, error) {
	from, err := language(flagFrom, src, "from")
	if err != nil {
		return nil, err
	}
	to, err := language(flagTo, dst, "to")
	if err != nil {
		return nil, err
	}
	tr, err := polyglot.NewTranslator(registry, from.Language.Name(), to.Language.Name())
	if err != nil {
		return nil, err
	}
	tr.Workers = cfg.Workers
	tr.Log = logger
	return tr, nil
}

func runTranslate(cmd *cobra.Command, args []string) error {
	src, dst := args[0], args[1]
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		if flagFrom == "" || flagTo == "" {
			return errors.New("translating a directory requires --from and --to")
		}
		tr, err := translator(src, dst)
		if err != nil {
			return err
		}
		logger.Info("translating folder", zap.String("src", src), zap.String("dst", dst))
		return tr.TranslateFolder(cmd.Context(), src, dst)
	}

	tr, err := translator(src, dst)
	if err != nil {
		return err
	}
	code, err := polyglot.SourceReader{Language: tr.From.Language}.ReadFile(src)
	if err != nil {
		return err
	}
	text, err := tr.Translate(code, src)
	if err != nil {
		return err
	}
	if err := (polyglot.CodeWriter{Language: tr.To.Language}).WriteFile(text, dst); err != nil {
		return err
	}
	logger.Debug("translated", zap.String("src", src), zap.String("dst", dst))
	return nil
}

func runTranspile(cmd *cobra.Command, args []string) error {
	src, outDir := args[0], args[1]
	if flagTo == "" {
		return errors.New("transpile requires --to")
	}
	tr, err := translator(src, "")
	if err != nil {
		return err
	}
	code, err := polyglot.SourceReader{Language: tr.From.Language}.ReadFile(src)
	if err != nil {
		return err
	}
	tp := &polyglot.Transpiler{Translator: tr}
	artifact, err := tp.Transpile(cmd.Context(), code, src, outDir)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), artifact)
	return nil
}

func runDump(cmd *cobra.Command, args []string) error {
	src := args[0]
	from, err := language(flagFrom, src, "from")
	if err != nil {
		return err
	}
	code, err := polyglot.SourceReader{Language: from.Language}.ReadFile(src)
	if err != nil {
		return err
	}
	if flagConcrete {
		return dumpConcrete(cmd.OutOrStdout(), from, code, src)
	}
	tr := &polyglot.Translator{From: from, Log: logger}
	mod, err := tr.Generalize(code, src)
	if err != nil {
		return err
	}
	return gast.Fdump(cmd.OutOrStdout(), mod)
}

func dumpConcrete(w io.Writer, from polyglot.Capabilities, code, src string) error {
	if from.Parser == nil {
		return fmt.Errorf("no parser for %s", from.Language.Name())
	}
	tree, err := from.Parser.Parse(code, src)
	if err != nil {
		return err
	}
	if c, ok := tree.(io.Closer); ok {
		defer c.Close()
	}
	p, ok := tree.(lang.TreePrinter)
	if !ok {
		return fmt.Errorf("cannot print the parse tree of %s", from.Language.Name())
	}
	return p.Fprint(w)
}

func runLanguages(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	for _, l := range registry.Languages() {
		caps, _ := registry.Lookup(l.Name())
		var passes []string
		if caps.Parser != nil && caps.Generalizer != nil {
			passes = append(passes, "from")
		}
		if caps.Unparser != nil {
			passes = append(passes, "to")
		}
		if caps.Compiler != nil {
			passes = append(passes, "compile")
		}
		fmt.Fprintf(w, "%-8s %-28s %s\n", l.Name(), strings.Join(l.Extensions, " "), strings.Join(passes, ","))
	}
	return nil
}
