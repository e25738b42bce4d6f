// Package repomap orchestrates the map pipeline: scan, graph, rank, cache,
// and the query operations built on top. It is the only package the MCP
// and CLI layers talk to.
package repomap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/exmap/exmap-mcp/internal/cache"
	"github.com/exmap/exmap-mcp/internal/format"
	"github.com/exmap/exmap-mcp/internal/graph"
	"github.com/exmap/exmap-mcp/internal/rank"
	"github.com/exmap/exmap-mcp/internal/scanner"
	"github.com/exmap/exmap-mcp/internal/store"
	"github.com/exmap/exmap-mcp/pkg/types"
)

const (
	DefaultRelatedDepth       = 2
	DefaultMaxFindResults     = 20
	DefaultMaxContextEntities = 30
	DefaultMaxContextFiles    = 20
)

// Bundle is one generated repository map: entities, graph, scores, and the
// identity of the generation run that produced them. Bundles are immutable
// once built; a refresh replaces the whole bundle.
type Bundle struct {
	GenerationID string
	GeneratedAt  time.Time
	Map          *types.ParseResult
	Graph        *graph.Graph
	Scores       map[string]float64
}

// Options tunes the service. Zero values fall back to the defaults.
type Options struct {
	Scan scanner.Config
	Rank rank.Config
	// TokenLimit is the context budget applied when a caller passes none.
	TokenLimit int
	// FreshFor bounds how old a persisted bundle may be before it is
	// regenerated rather than rehydrated. Keep it equal to the cache TTL.
	FreshFor time.Duration
	// MaxFindResults caps FindEntities output.
	MaxFindResults int
	// MaxContextEntities and MaxContextFiles cap the selection feeding the
	// context renderer.
	MaxContextEntities int
	MaxContextFiles    int
}

func (o Options) withDefaults() Options {
	if o.TokenLimit <= 0 {
		o.TokenLimit = format.DefaultTokenLimit
	}
	if o.FreshFor <= 0 {
		o.FreshFor = cache.DefaultTTL
	}
	if o.MaxFindResults <= 0 {
		o.MaxFindResults = DefaultMaxFindResults
	}
	if o.MaxContextEntities <= 0 {
		o.MaxContextEntities = DefaultMaxContextEntities
	}
	if o.MaxContextFiles <= 0 {
		o.MaxContextFiles = DefaultMaxContextFiles
	}
	return o
}

// Service ties the pipeline together. All methods are safe for concurrent
// use; generation for the same repository is serialized while distinct
// repositories proceed in parallel.
type Service struct {
	scanner *scanner.Scanner
	cache   *cache.Cache[*Bundle]
	store   *store.Store // nil when persistence is disabled
	opts    Options
	log     *slog.Logger
	locks   keyedLocks
}

// New creates a service. st may be nil to run without the persistent tier.
func New(sc *scanner.Scanner, c *cache.Cache[*Bundle], st *store.Store, opts Options, log *slog.Logger) *Service {
	return &Service{
		scanner: sc,
		cache:   c,
		store:   st,
		opts:    opts.withDefaults(),
		log:     log,
	}
}

// GetOrGenerate returns the bundle for a repository, generating it when the
// cache has nothing live. Concurrent callers for the same repository share
// one generation run.
func (s *Service) GetOrGenerate(ctx context.Context, repoPath string) (*Bundle, error) {
	key, err := normalizeRepoPath(repoPath)
	if err != nil {
		return nil, err
	}
	if b, ok := s.cache.Get(key); ok {
		return b, nil
	}

	unlock := s.locks.lock(key)
	defer unlock()

	// A waiter may arrive after the winner finished; serve its result.
	if b, ok := s.cache.Get(key); ok {
		return b, nil
	}
	if b := s.rehydrate(ctx, key); b != nil {
		s.cache.Put(key, b, approxBundleBytes(b))
		return b, nil
	}
	return s.generate(ctx, key)
}

// Refresh regenerates the bundle unconditionally. On failure the previous
// cached bundle, if any, stays in place.
func (s *Service) Refresh(ctx context.Context, repoPath string) (*Bundle, error) {
	key, err := normalizeRepoPath(repoPath)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.lock(key)
	defer unlock()
	return s.generate(ctx, key)
}

// CacheStats reports cache size and counters.
func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// generate runs the full pipeline for one repository and publishes the
// result to the cache and, when configured, to the store. The caller must
// hold the repository lock.
func (s *Service) generate(ctx context.Context, key string) (*Bundle, error) {
	start := time.Now()

	result, err := s.scanner.Scan(ctx, key, s.opts.Scan)
	if err != nil {
		return nil, fmt.Errorf("generate map for %s: %w", key, err)
	}
	g := graph.Build(result.Entities)
	scores := rank.Rank(g, s.opts.Rank, rank.DefaultPolicy())

	b := &Bundle{
		GenerationID: uuid.NewString(),
		GeneratedAt:  time.Now().UTC(),
		Map:          result,
		Graph:        g,
		Scores:       scores,
	}
	s.cache.Put(key, b, approxBundleBytes(b))

	if s.store != nil {
		rec := &store.Record{
			RepoPath:     key,
			GenerationID: b.GenerationID,
			GeneratedAt:  b.GeneratedAt,
			Entities:     result.Entities,
			Files:        result.Files,
			Stats:        result.Stats,
			Scores:       scores,
		}
		if err := s.store.Save(ctx, rec); err != nil {
			s.log.Warn("persisting bundle failed", "repo", key, "error", err)
		}
	}

	s.log.Info("repository map generated",
		"repo", key,
		"generation_id", b.GenerationID,
		"entities", result.Stats.EntityCount,
		"edges", g.EdgeCount(),
		"duration", time.Since(start))
	return b, nil
}

// rehydrate tries the persistent tier. The graph is rebuilt rather than
// stored; building it from the entity map is deterministic. Any failure
// falls back to a fresh generation.
func (s *Service) rehydrate(ctx context.Context, key string) *Bundle {
	if s.store == nil {
		return nil
	}
	rec, err := s.store.Load(ctx, key, s.opts.FreshFor)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log.Warn("loading persisted bundle failed", "repo", key, "error", err)
		}
		return nil
	}
	s.log.Debug("bundle rehydrated from store", "repo", key, "generation_id", rec.GenerationID)
	return &Bundle{
		GenerationID: rec.GenerationID,
		GeneratedAt:  rec.GeneratedAt,
		Map: &types.ParseResult{
			Entities: rec.Entities,
			Files:    rec.Files,
			Stats:    rec.Stats,
		},
		Graph:  graph.Build(rec.Entities),
		Scores: rec.Scores,
	}
}

// normalizeRepoPath turns any spelling of a repository path into the
// canonical absolute form used as cache key.
func normalizeRepoPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("repository path is empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve repository path %s: %w", path, err)
	}
	return filepath.Clean(abs), nil
}

// approxBundleBytes estimates the in-memory footprint of a bundle for cache
// bookkeeping. Strings dominate, so count those plus a fixed overhead per
// record.
func approxBundleBytes(b *Bundle) int64 {
	var n int64
	for _, e := range b.Map.Entities {
		n += int64(len(e.ID) + len(e.Name) + len(e.FilePath) + len(e.Signature) + len(e.Doc) + 160)
		for _, c := range e.Calls {
			n += int64(len(c))
		}
		for _, imp := range e.Imports {
			n += int64(len(imp))
		}
	}
	for _, f := range b.Map.Files {
		n += int64(len(f))
	}
	n += int64(b.Graph.EdgeCount()) * 48
	n += int64(len(b.Scores)) * 24
	return n
}
