package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/exmap/exmap-mcp/internal/cache"
	"github.com/exmap/exmap-mcp/internal/config"
	"github.com/exmap/exmap-mcp/internal/logging"
	"github.com/exmap/exmap-mcp/internal/parser"
	"github.com/exmap/exmap-mcp/internal/rank"
	"github.com/exmap/exmap-mcp/internal/repomap"
	"github.com/exmap/exmap-mcp/internal/scanner"
	"github.com/exmap/exmap-mcp/internal/store"
	"github.com/exmap/exmap-mcp/internal/syntax"
)

// Set via -ldflags at release time.
var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configPath string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "exmap",
	Short: "exmap - structural repository maps for Elixir codebases",
	Long: `exmap scans an Elixir repository, extracts modules, functions, macros,
protocols and structs, links them into a call/import/contains graph, ranks
them by structural importance, and renders token-bounded context for LLM
prompts. The same engine is exposed as an MCP stdio server (exmap serve)
and as one-shot commands for humans and scripts.`,
	Version: version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"exmap version {{.Version}} (built %s, %s build, sqlite driver %s)\n",
		buildTime, store.BuildMode, store.DriverName))
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to config file (default: ./exmap.yaml, then ~/.exmap/exmap.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Log format: text or json (overrides config)")
}

// environment bundles everything a subcommand needs. Commands call
// newEnvironment once, defer the cleanup, and use the service.
type environment struct {
	cfg     *config.Config
	log     *slog.Logger
	svc     *repomap.Service
	cleanup func()
}

// newEnvironment loads configuration, applies flag overrides, and builds the
// scan/rank/cache/store pipeline. Logging goes to stderr; stdout stays free
// for command output and, under serve, the MCP protocol.
func newEnvironment() (*environment, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	log := logging.New(level, cfg.Logging.Format, os.Stderr)

	p := parser.New(syntax.NewElixir(), log)
	sc := scanner.New(p, log)
	c := cache.New[*repomap.Bundle](cache.Config{
		TTL:           cfg.Cache.TTL,
		MaxEntries:    cfg.Cache.MaxEntries,
		SweepInterval: cfg.Cache.SweepInterval,
	}, log)

	var st *store.Store
	if cfg.Store.Enabled {
		path := cfg.Store.Path
		if path == "" {
			path, err = config.DefaultStorePath()
			if err != nil {
				c.Close()
				return nil, err
			}
		}
		st, err = store.Open(path, log)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("open bundle store: %w", err)
		}
	}

	svc := repomap.New(sc, c, st, repomap.Options{
		Scan: scanner.Config{
			Extensions:  cfg.Scan.Extensions,
			IgnoreGlobs: cfg.Scan.IgnoreGlobs,
			Concurrency: cfg.Scan.Concurrency,
			MaxFileSize: cfg.Scan.MaxFileSize,
		},
		Rank:       rank.DefaultConfig(),
		TokenLimit: cfg.Context.TokenLimit,
		FreshFor:   cfg.Cache.TTL,
	}, log)

	return &environment{
		cfg: cfg,
		log: log,
		svc: svc,
		cleanup: func() {
			c.Close()
			if st != nil {
				_ = st.Close()
			}
		},
	}, nil
}
