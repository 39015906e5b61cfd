// Package main is the entry point for the quire editor.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/quirelabs/quire/internal/config"
	"github.com/quirelabs/quire/internal/contents"
	"github.com/quirelabs/quire/internal/contents/httpapi"
	"github.com/quirelabs/quire/internal/contents/sqlite"
	"github.com/quirelabs/quire/internal/logging"
	"github.com/quirelabs/quire/internal/script"
	"github.com/quirelabs/quire/internal/shell"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, files := parseFlags()

	logger, logClose, err := buildLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open log file: %v\n", err)
		return 1
	}
	if logClose != nil {
		defer logClose.Close()
	}

	manager, cleanup, err := buildManager(cfg.Storage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open %s backend: %v\n", cfg.Storage.Backend, err)
		return 1
	}
	if cleanup != nil {
		defer cleanup()
	}

	sh, err := shell.New(shell.Options{
		Manager:    manager,
		Logger:     logger,
		Files:      files,
		TabWidth:   cfg.UI.TabWidth,
		ShowHidden: cfg.UI.HiddenFiles,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}

	if cfg.Script.Init != "" {
		rt, err := script.New(sh.Emitter(), sh.Registry(), script.WithLogger(logger))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to start scripting: %v\n", err)
			return 1
		}
		defer rt.Close()

		// A broken init script should not keep the editor from starting.
		if err := rt.LoadFile(cfg.Script.Init); err != nil {
			logger.Warn("init script: %v", err)
		}
	}

	// Handle signals for graceful shutdown
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-signals
		sh.Shutdown()
	}()

	if err := sh.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags() (config.Config, []string) {
	var (
		configPath  string
		backend     string
		root        string
		dbPath      string
		baseURL     string
		logLevel    string
		logFile     string
		hidden      bool
		showVersion bool
		showHelp    bool
	)

	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&configPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&backend, "backend", "", "Storage backend (local, sqlite, http)")
	flag.StringVar(&root, "root", "", "Workspace directory for the local backend")
	flag.StringVar(&root, "w", "", "Workspace directory (shorthand)")
	flag.StringVar(&dbPath, "db", "", "Database file for the sqlite backend")
	flag.StringVar(&baseURL, "url", "", "Server URL for the http backend")
	flag.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.StringVar(&logFile, "log-file", "", "Log file; logging is off without one")
	flag.BoolVar(&hidden, "hidden", false, "Allow opening hidden files")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Quire - notebook-style document editor\n\n")
		fmt.Fprintf(os.Stderr, "Usage: quire [options] [files...]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  quire                              Open the current directory\n")
		fmt.Fprintf(os.Stderr, "  quire notes/plan.md                Open a file\n")
		fmt.Fprintf(os.Stderr, "  quire -w ~/notes plan.md           Open a file in another workspace\n")
		fmt.Fprintf(os.Stderr, "  quire -backend sqlite -db notes.db Work out of a database file\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("Quire %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	// Validate log level
	if logLevel != "" {
		switch logLevel {
		case "debug", "info", "warn", "error":
			// Valid
		default:
			fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", logLevel)
			os.Exit(1)
		}
	}

	var (
		cfg config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Flags beat the config file and environment
	if backend != "" {
		cfg.Storage.Backend = backend
	}
	if root != "" {
		cfg.Storage.Root = root
	}
	if dbPath != "" {
		cfg.Storage.DBPath = dbPath
	}
	if baseURL != "" {
		cfg.Storage.BaseURL = baseURL
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFile != "" {
		cfg.Log.File = logFile
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "hidden" {
			cfg.UI.HiddenFiles = hidden
		}
	})

	// Remaining arguments are files to open
	files := flag.Args()
	if cfg.Storage.Backend == config.BackendLocal {
		cfg.Storage.Root, files = rebaseFiles(cfg.Storage.Root, files)
	}

	return cfg, files
}

// rebaseFiles makes absolute file arguments usable as root-relative content
// paths. A defaulted root moves to the first absolute argument's directory,
// so `quire /tmp/notes/plan.md` works from anywhere.
func rebaseFiles(root string, files []string) (string, []string) {
	if len(files) == 0 {
		return root, files
	}
	if root == "." && filepath.IsAbs(files[0]) {
		root = filepath.Dir(files[0])
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return root, files
	}

	out := make([]string, 0, len(files))
	for _, f := range files {
		if !filepath.IsAbs(f) {
			out = append(out, f)
			continue
		}
		rel, err := filepath.Rel(abs, f)
		if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
			// Outside the root; the open will report it.
			out = append(out, f)
			continue
		}
		out = append(out, rel)
	}
	return root, out
}

// buildLogger opens the configured log file. Without one the logger is a
// no-op, which keeps the terminal free of stray writes while tcell owns it.
func buildLogger(cfg config.LogConfig) (*logging.Logger, io.Closer, error) {
	if cfg.File == "" {
		return logging.Nop(), nil, nil
	}
	return logging.OpenFile(cfg.File, logging.ParseLevel(cfg.Level))
}

// buildManager opens the configured contents backend. The returned cleanup
// releases backend resources and may be nil.
func buildManager(cfg config.StorageConfig) (contents.Manager, func(), error) {
	switch cfg.Backend {
	case config.BackendLocal:
		m, err := contents.NewLocal(cfg.Root)
		if err != nil {
			return nil, nil, err
		}
		return m, nil, nil

	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, nil, err
		}
		st, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { _ = st.Close() }, nil

	case config.BackendHTTP:
		c, err := httpapi.NewClient(cfg.BaseURL)
		if err != nil {
			return nil, nil, err
		}
		return c, nil, nil

	default:
		return nil, nil, fmt.Errorf("storage.backend %q: %w", cfg.Backend, config.ErrUnknownBackend)
	}
}
