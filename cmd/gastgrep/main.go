// gastgrep searches the generalized syntax tree of source files.
//
// Every node whose kind is selected and whose one-line dump matches the
// pattern is printed as file:Kind: dump. The language of each file is
// detected from its extension.
//
// Usage:
//
//	gastgrep [flags] pattern file [file2 ...]
//
// Flags:
//
//	-k kinds    comma separated node kinds to search (default all)
//	-i          case-insensitive matching
//	-l          only print filenames with matches
//	-c          only print the number of matches per file
//	-lang name  source language, overriding detection
//	-best-effort  skip unsupported constructs instead of failing
//
// The exit status is 0 if a node matched, 1 otherwise and 2 on error.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/coregx/coregex"
	"go.uber.org/zap"

	"github.com/soypat/polyglot"
	"github.com/soypat/polyglot/gast"
)

var (
	flagKinds      = flag.String("k", "", "comma separated node kinds to search (default all)")
	flagIgnoreCase = flag.Bool("i", false, "case-insensitive matching")
	flagFilesOnly  = flag.Bool("l", false, "only print filenames with matches")
	flagCount      = flag.Bool("c", false, "only print the number of matches per file")
	flagLang       = flag.String("lang", "", "source language, overriding detection from the extension")
	flagBestEffort = flag.Bool("best-effort", false, "skip unsupported constructs instead of failing")
)

func main() {
	flag.Parse()
	if flag.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "usage: gastgrep [flags] pattern file [file2 ...]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	pattern := flag.Arg(0)
	if *flagIgnoreCase {
		pattern = "(?i)" + pattern
	}
	re, err := coregex.Compile(pattern)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid pattern: %v\n", err)
		os.Exit(2)
	}
	kinds, err := parseKinds(*flagKinds)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg := polyglot.DefaultConfig()
	cfg.BestEffort = *flagBestEffort
	log := zap.NewNop()
	if *flagBestEffort {
		log, _ = zap.NewDevelopment()
	}
	registry := polyglot.NewRegistry()
	if err := polyglot.RegisterDefaults(registry, *cfg, log); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	exitCode := 1
	for _, filename := range flag.Args()[1:] {
		matches, err := searchFile(registry, filename, kinds, re.MatchString)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", filename, err)
			exitCode = 2
			continue
		}
		switch {
		case *flagCount:
			fmt.Printf("%s:%d\n", filename, len(matches))
		case *flagFilesOnly:
			if len(matches) > 0 {
				fmt.Println(filename)
			}
		default:
			for _, n := range matches {
				fmt.Printf("%s:%s: %s\n", filename, n.Kind(), gast.Dump(n))
			}
		}
		if len(matches) > 0 && exitCode == 1 {
			exitCode = 0
		}
	}
	log.Sync()
	os.Exit(exitCode)
}

// parseKinds returns the set of kinds named in a comma separated list, or
// nil for all kinds.
func parseKinds(list string) (map[gast.Kind]bool, error) {
	if list == "" {
		return nil, nil
	}
	byName := make(map[string]gast.Kind)
	for _, k := range gast.Kinds() {
		byName[strings.ToLower(k.String())] = k
	}
	kinds := make(map[gast.Kind]bool)
	for _, name := range strings.Split(list, ",") {
		k, ok := byName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown node kind %q", name)
		}
		kinds[k] = true
	}
	return kinds, nil
}

// searchFile generalizes filename and returns its matching nodes in
// depth-first order.
func searchFile(r *polyglot.Registry, filename string, kinds map[gast.Kind]bool, match func(string) bool) ([]gast.Node, error) {
	caps, ok := r.ForPath(filename)
	if *flagLang != "" {
		caps, ok = r.Lookup(*flagLang)
	}
	if !ok {
		return nil, errors.New("unknown source language")
	}
	code, err := polyglot.SourceReader{Language: caps.Language}.ReadFile(filename)
	if err != nil && *flagLang != "" {
		// An explicit language accepts any extension.
		var b []byte
		b, err = os.ReadFile(filename)
		code = string(b)
	}
	if err != nil {
		return nil, err
	}
	tr := &polyglot.Translator{From: caps}
	mod, err := tr.Generalize(code, filename)
	if err != nil {
		return nil, err
	}
	var matches []gast.Node
	gast.Inspect(mod, func(n gast.Node) bool {
		if (kinds == nil || kinds[n.Kind()]) && match(gast.Dump(n)) {
			matches = append(matches, n)
		}
		return true
	})
	return matches, nil
}
