// Package store persists generated repository maps in SQLite so a restarted
// server can skip regeneration. Payloads are zstd-compressed JSON keyed by
// repository path; the graph is not stored, it is rebuilt from the entity
// map on load. Two drivers are supported behind build tags, cgo and pure Go.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/exmap/exmap-mcp/pkg/types"
)

// ErrNotFound is returned when no usable record exists for a repository.
var ErrNotFound = errors.New("bundle not persisted")

// Record is one persisted repository map.
type Record struct {
	RepoPath     string
	GenerationID string
	GeneratedAt  time.Time
	Entities     map[string]*types.Entity
	Files        []string
	Stats        types.Stats
	Scores       map[string]float64
}

// payload is the compressed part of a record.
type payload struct {
	Entities map[string]*types.Entity `json:"entities"`
	Files    []string                 `json:"files"`
	Stats    types.Stats              `json:"stats"`
	Scores   map[string]float64       `json:"scores"`
}

// Store wraps the SQLite database and the zstd codec.
type Store struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
	log *slog.Logger
}

// Open creates or opens the database at dbPath and applies pending
// migrations. The parent directory is created when missing.
func Open(dbPath string, log *slog.Logger) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open bundle store: %w", err)
	}
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init zstd decoder: %w", err)
	}

	log.Debug("bundle store opened", "path", dbPath, "driver", DriverName, "build_mode", BuildMode)
	return &Store{db: db, enc: enc, dec: dec, log: log}, nil
}

// openDatabase opens SQLite with the settings every connection needs: WAL
// for concurrent readers, a single writer connection, foreign keys on.
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

// Close releases the codec and the database.
func (s *Store) Close() error {
	s.enc.Close()
	s.dec.Close()
	return s.db.Close()
}

// Save upserts the record for its repository path.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	raw, err := json.Marshal(payload{
		Entities: rec.Entities,
		Files:    rec.Files,
		Stats:    rec.Stats,
		Scores:   rec.Scores,
	})
	if err != nil {
		return fmt.Errorf("encode bundle payload: %w", err)
	}
	compressed := s.enc.EncodeAll(raw, nil)

	query := `
		INSERT INTO bundles (repo_path, generation_id, generated_at, entity_count, payload, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(repo_path) DO UPDATE SET
			generation_id = excluded.generation_id,
			generated_at = excluded.generated_at,
			entity_count = excluded.entity_count,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, query,
		rec.RepoPath,
		rec.GenerationID,
		rec.GeneratedAt.UTC().Format(time.RFC3339),
		len(rec.Entities),
		compressed,
		now,
	)
	if err != nil {
		return fmt.Errorf("save bundle for %s: %w", rec.RepoPath, err)
	}
	s.log.Debug("bundle persisted", "repo", rec.RepoPath, "entities", len(rec.Entities), "bytes", len(compressed))
	return nil
}

// Load returns the record for repoPath. A record older than maxAge counts
// as missing and is deleted on the spot; maxAge <= 0 accepts any age.
func (s *Store) Load(ctx context.Context, repoPath string, maxAge time.Duration) (*Record, error) {
	query := `SELECT generation_id, generated_at, payload FROM bundles WHERE repo_path = ?`

	var generationID, generatedAt string
	var compressed []byte
	err := s.db.QueryRowContext(ctx, query, repoPath).Scan(&generationID, &generatedAt, &compressed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load bundle for %s: %w", repoPath, err)
	}

	ts, err := time.Parse(time.RFC3339, generatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse generated_at for %s: %w", repoPath, err)
	}
	if maxAge > 0 && time.Since(ts) > maxAge {
		if err := s.Delete(ctx, repoPath); err != nil {
			s.log.Warn("deleting stale bundle failed", "repo", repoPath, "error", err)
		}
		return nil, ErrNotFound
	}

	raw, err := s.dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress bundle for %s: %w", repoPath, err)
	}
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode bundle for %s: %w", repoPath, err)
	}

	return &Record{
		RepoPath:     repoPath,
		GenerationID: generationID,
		GeneratedAt:  ts,
		Entities:     p.Entities,
		Files:        p.Files,
		Stats:        p.Stats,
		Scores:       p.Scores,
	}, nil
}

// Delete removes the record for repoPath. Missing rows are not an error.
func (s *Store) Delete(ctx context.Context, repoPath string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM bundles WHERE repo_path = ?", repoPath)
	if err != nil {
		return fmt.Errorf("delete bundle for %s: %w", repoPath, err)
	}
	return nil
}

// List returns the repository paths with persisted bundles, newest first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT repo_path FROM bundles ORDER BY generated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list bundles: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}
