// Package main is the entry point for quired, the contents API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/quirelabs/quire/internal/contents"
	"github.com/quirelabs/quire/internal/contents/httpapi"
	"github.com/quirelabs/quire/internal/contents/sqlite"
	"github.com/quirelabs/quire/internal/logging"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// shutdownTimeout bounds the drain of in-flight requests on SIGINT/SIGTERM.
const shutdownTimeout = 5 * time.Second

type options struct {
	addr     string
	backend  string
	root     string
	dbPath   string
	logLevel string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	logger := logging.New(logging.Config{
		Level:  logging.ParseLevel(opts.logLevel),
		Output: os.Stderr,
		Prefix: "quired",
	})

	manager, cleanup, err := buildManager(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open %s backend: %v\n", opts.backend, err)
		return 1
	}
	if cleanup != nil {
		defer cleanup()
	}

	srv := &http.Server{
		Addr:              opts.addr,
		Handler:           httpapi.NewServer(manager, httpapi.WithLogger(logger)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	// Handle signals for graceful shutdown
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		<-signals
		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("shutdown: %v", err)
		}
		close(done)
	}()

	logger.Info("serving %s contents on %s", opts.backend, opts.addr)
	err = srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		<-done
		return 0
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

func parseFlags() options {
	var opts options
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.addr, "addr", ":8877", "Listen address")
	flag.StringVar(&opts.backend, "backend", "local", "Storage backend (local, sqlite)")
	flag.StringVar(&opts.root, "root", ".", "Workspace directory for the local backend")
	flag.StringVar(&opts.root, "w", ".", "Workspace directory (shorthand)")
	flag.StringVar(&opts.dbPath, "db", "quire.db", "Database file for the sqlite backend")
	flag.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Quired - contents server for the quire editor\n\n")
		fmt.Fprintf(os.Stderr, "Usage: quired [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  quired -w ~/notes                 Serve a directory\n")
		fmt.Fprintf(os.Stderr, "  quired -backend sqlite -db q.db   Serve a database file\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("Quired %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	// Validate log level
	switch opts.logLevel {
	case "debug", "info", "warn", "error":
		// Valid
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", opts.logLevel)
		os.Exit(1)
	}

	return opts
}

// buildManager opens the served backend. The returned cleanup releases
// backend resources and may be nil.
func buildManager(opts options) (contents.Manager, func(), error) {
	switch opts.backend {
	case "local":
		m, err := contents.NewLocal(opts.root)
		if err != nil {
			return nil, nil, err
		}
		return m, nil, nil

	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(opts.dbPath), 0o755); err != nil {
			return nil, nil, err
		}
		st, err := sqlite.Open(opts.dbPath)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { _ = st.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend %q (must be local or sqlite)", opts.backend)
	}
}
