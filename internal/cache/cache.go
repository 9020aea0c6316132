// Package cache stores encoded SSA modules in a SQLite database keyed by
// program fingerprint, so unchanged programs skip lowering.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/funvibe/refssa/internal/ssa"
)

const schema = `
CREATE TABLE IF NOT EXISTS artifacts (
	fingerprint TEXT PRIMARY KEY,
	build_id    TEXT NOT NULL,
	module      BLOB NOT NULL,
	created_at  INTEGER NOT NULL
)`

// MemoryPath opens a private in-memory cache.
const MemoryPath = ":memory:"

// Cache is a handle on one cache database. It is safe for concurrent use.
type Cache struct {
	db     *sql.DB
	logger *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// Entry describes one stored module.
type Entry struct {
	Fingerprint string
	BuildID     string
	Size        int
	Created     time.Time
}

type Option func(*Cache)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// Open opens or creates the cache database at path, creating parent
// directories as needed.
func Open(ctx context.Context, path string, opts ...Option) (*Cache, error) {
	c := &Cache{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(c)
	}
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache %s: %w", path, err)
	}
	// One connection: an in-memory database exists per connection, and
	// SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache %s: %w", path, err)
	}
	c.db = db
	return c, nil
}

// Close releases the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the module stored under fingerprint. A missing entry and an
// entry that no longer decodes are both misses; the latter is removed.
func (c *Cache) Get(ctx context.Context, fingerprint string) (*ssa.Module, bool, error) {
	var data []byte
	err := c.db.QueryRowContext(ctx,
		`SELECT module FROM artifacts WHERE fingerprint = ?`, fingerprint).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		c.misses.Add(1)
		c.logger.Debug("cache miss", "fingerprint", fingerprint)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache entry %s: %w", fingerprint, err)
	}
	m, err := ssa.Decode(data)
	if err != nil {
		c.misses.Add(1)
		c.logger.Warn("dropping corrupt cache entry", "fingerprint", fingerprint, "error", err)
		if _, derr := c.db.ExecContext(ctx, `DELETE FROM artifacts WHERE fingerprint = ?`, fingerprint); derr != nil {
			return nil, false, fmt.Errorf("removing corrupt cache entry %s: %w", fingerprint, derr)
		}
		return nil, false, nil
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "fingerprint", fingerprint, "bytes", len(data))
	return m, true, nil
}

// Put stores m under fingerprint, replacing any previous entry, and
// returns the module's build ID.
func (c *Cache) Put(ctx context.Context, fingerprint string, m *ssa.Module) (string, error) {
	data := ssa.Encode(m)
	id := ssa.ContentID(data)
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO artifacts (fingerprint, build_id, module, created_at) VALUES (?, ?, ?, ?)`,
		fingerprint, id, data, time.Now().Unix())
	if err != nil {
		return "", fmt.Errorf("writing cache entry %s: %w", fingerprint, err)
	}
	c.logger.Debug("cache store", "fingerprint", fingerprint, "build_id", id, "bytes", len(data))
	return id, nil
}

// Entries lists the stored modules ordered by fingerprint.
func (c *Cache) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT fingerprint, build_id, length(module), created_at FROM artifacts ORDER BY fingerprint`)
	if err != nil {
		return nil, fmt.Errorf("listing cache: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var created int64
		if err := rows.Scan(&e.Fingerprint, &e.BuildID, &e.Size, &created); err != nil {
			return nil, fmt.Errorf("listing cache: %w", err)
		}
		e.Created = time.Unix(created, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Stats returns the hits and misses seen by this handle.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
