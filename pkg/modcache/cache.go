// Package modcache persists compiled module chunks in SQLite, keyed by
// module path and source hash. Loaders consult it to skip recompiling
// unchanged modules; a source edit changes the hash and misses naturally.
package modcache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/lumenlang/lumen/pkg/bytecode"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("lumen.modcache")

// ErrMiss indicates no cached chunk exists for the path and hash.
var ErrMiss = errors.New("module not cached")

// Cache is a SQLite-backed store of compiled module chunks.
type Cache struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if needed) a cache database at path.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS modules (
		path TEXT NOT NULL,
		hash TEXT NOT NULL,
		version INTEGER NOT NULL,
		chunk BLOB NOT NULL,
		PRIMARY KEY (path, hash)
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Hash returns the cache key hash of a module's source text.
func Hash(source []byte) string {
	sum := sha256.Sum256(source)
	return hex.EncodeToString(sum[:])
}

// Put stores a compiled chunk for (path, hash), replacing any previous
// entry.
func (c *Cache) Put(path, hash string, chunk *bytecode.Chunk) error {
	data, err := bytecode.MarshalChunk(chunk)
	if err != nil {
		return fmt.Errorf("encoding chunk for %s: %w", path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.db.Exec(
		`INSERT OR REPLACE INTO modules (path, hash, version, chunk) VALUES (?, ?, ?, ?)`,
		path, hash, bytecode.WireVersion, data,
	)
	if err != nil {
		return fmt.Errorf("storing chunk for %s: %w", path, err)
	}
	log.Debugf("cached module %s (%d bytes)", path, len(data))
	return nil
}

// Get loads the cached chunk for (path, hash). Entries written by another
// chunk format version count as misses.
func (c *Cache) Get(path, hash string) (*bytecode.Chunk, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var version int
	var data []byte
	err := c.db.QueryRow(
		`SELECT version, chunk FROM modules WHERE path = ? AND hash = ?`,
		path, hash,
	).Scan(&version, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("loading chunk for %s: %w", path, err)
	}
	if version != bytecode.WireVersion {
		return nil, ErrMiss
	}

	chunk, err := bytecode.UnmarshalChunk(data)
	if err != nil {
		return nil, fmt.Errorf("decoding chunk for %s: %w", path, err)
	}
	return chunk, nil
}

// Entry describes one cached chunk.
type Entry struct {
	Path string
	Hash string
	Size int
}

// List returns every cached entry, ordered by path then hash.
func (c *Cache) List() ([]Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.db.Query(`SELECT path, hash, length(chunk) FROM modules ORDER BY path, hash`)
	if err != nil {
		return nil, fmt.Errorf("listing cache: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Path, &e.Hash, &e.Size); err != nil {
			return nil, fmt.Errorf("listing cache: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Invalidate removes every cached entry for a module path.
func (c *Cache) Invalidate(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.db.Exec(`DELETE FROM modules WHERE path = ?`, path); err != nil {
		return fmt.Errorf("invalidating %s: %w", path, err)
	}
	return nil
}
