// Package cache persists summarizer output in SQLite so unchanged
// source text is never summarized twice.
//
// Entries are keyed by the BLAKE3 digest of the model name and the exact
// prompt content: any edit to the source produces a new key, and stale
// entries are simply never read again.
package cache

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// timeNow is replaced in tests.
var timeNow = time.Now

// Cache is a SQLite-backed summary cache.
type Cache struct {
	db    *sql.DB
	model string
}

// Open opens (creating if needed) the cache database at path. model
// namespaces the keys so switching models does not serve old answers.
func Open(path, model string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("cache: create dir: %w", err)
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("cache: pragma %q: %w", p, err)
		}
	}

	c := &Cache{db: db, model: model}
	if err := c.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache: migration: %w", err)
	}
	return c, nil
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) migrate() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS summaries (
			key        TEXT PRIMARY KEY,
			model      TEXT NOT NULL,
			bullets    TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
	`)
	return err
}

// Key returns the cache key for content.
func (c *Cache) Key(content string) string {
	h := blake3.New()
	_, _ = h.Write([]byte(c.model))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}

// Lookup returns the cached bullets for content.
func (c *Cache) Lookup(content string) ([]string, bool, error) {
	var raw string
	err := c.db.QueryRow(`SELECT bullets FROM summaries WHERE key = ?`, c.Key(content)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: lookup: %w", err)
	}
	var bullets []string
	if err := json.Unmarshal([]byte(raw), &bullets); err != nil {
		return nil, false, fmt.Errorf("cache: decode entry: %w", err)
	}
	return bullets, true, nil
}

// Store records bullets for content, replacing any previous entry.
func (c *Cache) Store(content string, bullets []string) error {
	if bullets == nil {
		bullets = []string{}
	}
	data, err := json.Marshal(bullets)
	if err != nil {
		return fmt.Errorf("cache: encode entry: %w", err)
	}
	_, err = c.db.Exec(
		`INSERT INTO summaries (key, model, bullets, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET bullets = excluded.bullets, created_at = excluded.created_at`,
		c.Key(content), c.model, string(data), timeNow().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("cache: store: %w", err)
	}
	return nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() (int, error) {
	var n int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM summaries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("cache: count: %w", err)
	}
	return n, nil
}

// Prune deletes entries older than cutoff and returns how many were
// removed.
func (c *Cache) Prune(cutoff time.Time) (int64, error) {
	res, err := c.db.Exec(`DELETE FROM summaries WHERE created_at < ?`, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("cache: prune: %w", err)
	}
	return res.RowsAffected()
}
