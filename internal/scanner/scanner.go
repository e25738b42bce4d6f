// Package scanner walks a repository, filters files through ignore rules,
// and parses the survivors concurrently into a single entity map.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/exmap/exmap-mcp/internal/parser"
	"github.com/exmap/exmap-mcp/pkg/types"
)

const (
	// DefaultMaxFileSize caps how much of a single file the scanner will
	// read. Generated Elixir files above 1 MiB are almost never worth
	// mapping and blow up parse times.
	DefaultMaxFileSize = 1 << 20
)

// DefaultExtensions are the file extensions scanned when none are
// configured.
var DefaultExtensions = []string{".ex", ".exs"}

// Config controls a single scan.
type Config struct {
	// Extensions lists file extensions to parse, dot included.
	Extensions []string
	// IgnoreGlobs adds user patterns on top of the built-in ignore set.
	IgnoreGlobs []string
	// Concurrency bounds the parse worker pool; 0 means GOMAXPROCS.
	Concurrency int
	// MaxFileSize skips files larger than this many bytes; 0 means the
	// default cap.
	MaxFileSize int64
}

func (c Config) withDefaults() Config {
	if len(c.Extensions) == 0 {
		c.Extensions = DefaultExtensions
	}
	if c.Concurrency <= 0 {
		c.Concurrency = runtime.GOMAXPROCS(0)
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = DefaultMaxFileSize
	}
	return c
}

// Scanner discovers and parses source files.
type Scanner struct {
	parser *parser.Parser
	log    *slog.Logger
}

// New creates a scanner around the given parser.
func New(p *parser.Parser, log *slog.Logger) *Scanner {
	return &Scanner{parser: p, log: log}
}

// Scan walks root, parses every matching file and merges the results.
// Individual files that cannot be read or parsed are logged and skipped;
// only an unusable root or a canceled context fails the scan. File paths in
// the result are relative to root and slash-separated.
func (s *Scanner) Scan(ctx context.Context, root string, cfg Config) (*types.ParseResult, error) {
	cfg = cfg.withDefaults()
	start := time.Now()

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan %s: not a directory", root)
	}

	matcher := newIgnoreMatcher(root, cfg.IgnoreGlobs, s.log)
	files, err := s.discover(root, cfg, matcher)
	if err != nil {
		return nil, fmt.Errorf("discover files in %s: %w", root, err)
	}

	// One result slot per file. Merging the slots in file order afterwards
	// keeps the outcome independent of worker scheduling.
	results := make([]map[string]*types.Entity, len(files))
	var parsed, skipped atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, cfg.Concurrency)
	for i, rel := range files {
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()
			if err := gctx.Err(); err != nil {
				return err
			}

			abs := filepath.Join(root, filepath.FromSlash(rel))
			fi, err := os.Stat(abs)
			if err != nil {
				s.log.Warn("skipping unreadable file", "file", rel, "error", err)
				skipped.Add(1)
				return nil
			}
			if fi.Size() > cfg.MaxFileSize {
				s.log.Warn("skipping oversized file", "file", rel, "bytes", fi.Size(), "limit", cfg.MaxFileSize)
				skipped.Add(1)
				return nil
			}
			content, err := os.ReadFile(abs)
			if err != nil {
				s.log.Warn("skipping unreadable file", "file", rel, "error", err)
				skipped.Add(1)
				return nil
			}

			results[i] = s.parser.Parse(gctx, content, rel)
			parsed.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]*types.Entity)
	for _, m := range results {
		for id, e := range m {
			merged[id] = e
		}
	}

	result := &types.ParseResult{
		Entities: merged,
		Files:    files,
		Stats:    types.ComputeStats(merged, files),
	}
	s.log.Info("scan complete",
		"root", root,
		"files", len(files),
		"parsed", parsed.Load(),
		"skipped", skipped.Load(),
		"entities", len(merged),
		"duration", time.Since(start))
	return result, nil
}

// discover walks root collecting candidate files, sorted by relative path.
func (s *Scanner) discover(root string, cfg Config, matcher *ignoreMatcher) ([]string, error) {
	extensions := make(map[string]bool, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		extensions[ext] = true
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			s.log.Warn("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if path == root {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") || matcher.match(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !extensions[filepath.Ext(d.Name())] {
			return nil
		}
		if matcher.match(rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
