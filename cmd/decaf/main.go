// decaf CLI - rebuilds structured method bodies from JVM class files
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/decaf/config"
)

var log = commonlog.GetLogger("decaf")

func main() {
	verbose := flag.Bool("v", false, "Verbose output (debug logging and a summary)")
	configDir := flag.String("config", "", "Directory holding decaf.toml (default: search upward from .)")
	dotDir := flag.String("dot", "", "Write one Graphviz file per method into this directory")
	emit := flag.String("emit", "text", "Output format: text or cbor")
	cache := flag.String("cache", "", "Cache backend override: none, memory or sqlite")
	cachePath := flag.String("cache-path", "", "SQLite cache file (with -cache sqlite)")
	ignoreLocals := flag.Bool("ignore-locals", false, "Ignore LocalVariableTable and synthesize every name")
	workers := flag.Int("workers", 0, "Methods decompiled in parallel per class (0: from config)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: decaf [options] <file.class|dir>...\n\n")
		fmt.Fprintf(os.Stderr, "Decompiles every method of the given classes and prints the rebuilt trees.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  decaf Foo.class                  # Print Foo's methods\n")
		fmt.Fprintf(os.Stderr, "  decaf -dot out/ build/classes    # Also write CFGs for every class\n")
		fmt.Fprintf(os.Stderr, "  decaf -emit cbor Foo.class > foo.cbor\n")
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Flags override the file.
	if *verbose {
		cfg.Logging.Verbosity = 2
	}
	if *cache != "" {
		cfg.Cache.Backend = *cache
	}
	if *cachePath != "" {
		cfg.Cache.Path = *cachePath
	}
	if *ignoreLocals {
		cfg.Locals.IgnoreTable = true
	}
	if *workers > 0 {
		cfg.Decompile.Workers = *workers
	}
	if *dotDir != "" {
		cfg.Decompile.KeepGraphs = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var logPath *string
	if cfg.Logging.File != "" {
		logPath = &cfg.Logging.File
	}
	commonlog.Configure(cfg.Logging.Verbosity, logPath)

	if *emit != "text" && *emit != "cbor" {
		fmt.Fprintf(os.Stderr, "Error: unknown -emit format %q\n", *emit)
		os.Exit(2)
	}

	r, err := newRunner(cfg, *emit, *dotDir, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer r.close()

	failed := 0
	for _, path := range flag.Args() {
		files, err := collectClassFiles(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		for _, file := range files {
			if err := r.file(context.Background(), file); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s: %v\n", file, err)
				failed++
			}
		}
	}

	if *verbose {
		r.summary(os.Stderr)
	}
	if failed > 0 {
		r.close()
		os.Exit(1)
	}
}

// loadConfig reads decaf.toml from dir, or searches upward from the
// working directory when dir is empty. Missing files yield the defaults.
func loadConfig(dir string) (*config.Config, error) {
	if dir != "" {
		return config.Load(dir)
	}
	c, err := config.FindAndLoad(".")
	if err != nil {
		return nil, err
	}
	if c == nil {
		c = config.Default()
	}
	return c, nil
}
