// Package store keeps serialized chunks in a SQLite database.
//
// Chunks are content-addressed: the key is the SHA-256 of the chunk's
// canonical serialized form, so storing the same chunk twice is a no-op.
// Names are a separate mutable table mapping a human label to a hash.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/stackchunk/pkg/bytecode"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a hash or name has no entry.
var ErrNotFound = errors.New("store: not found")

var log = commonlog.GetLogger("stackchunk.store")

// Hash identifies a stored chunk.
type Hash [sha256.Size]byte

// HashOf returns the content hash of serialized chunk bytes.
func HashOf(data []byte) Hash { return sha256.Sum256(data) }

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// ParseHash parses the hex form produced by Hash.String.
func ParseHash(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("store: parse hash: %w", err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("store: parse hash: want %d bytes, got %d", len(h), len(b))
	}
	copy(h[:], b)
	return h, nil
}

// Entry is one row of List.
type Entry struct {
	Name string
	Hash Hash
	Size int
}

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	hash       TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS names (
	name TEXT PRIMARY KEY,
	hash TEXT NOT NULL REFERENCES chunks(hash)
);`

// Store is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path, creating parent directories
// as needed. The special path ":memory:" gives a private in-memory store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: creating directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: opening database: %w", err)
	}
	// One connection keeps ":memory:" a single database and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: creating tables: %w", err)
	}

	log.Debugf("opened %s", path)
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put serializes c, stores it under its hash and points name at it.
// An empty name stores the chunk without naming it.
func (s *Store) Put(ctx context.Context, name string, c *bytecode.Chunk) (Hash, error) {
	data, err := c.MarshalBinary()
	if err != nil {
		return Hash{}, err
	}
	h := HashOf(data)
	key := h.String()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Hash{}, fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO chunks (hash, data, created_at) VALUES (?, ?, ?)",
		key, data, time.Now().Unix(),
	); err != nil {
		return Hash{}, fmt.Errorf("store: saving chunk: %w", err)
	}
	if name != "" {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO names (name, hash) VALUES (?, ?)",
			name, key,
		); err != nil {
			return Hash{}, fmt.Errorf("store: naming chunk: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return Hash{}, fmt.Errorf("store: commit: %w", err)
	}

	log.Infof("stored %s (%d bytes) as %q", key[:12], len(data), name)
	return h, nil
}

// Get loads the chunk stored under h.
func (s *Store) Get(ctx context.Context, h Hash) (*bytecode.Chunk, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM chunks WHERE hash = ?", h.String()).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: chunk %s", ErrNotFound, h)
		}
		return nil, fmt.Errorf("store: querying chunk: %w", err)
	}
	if HashOf(data) != h {
		return nil, fmt.Errorf("store: chunk %s is corrupt", h)
	}
	return bytecode.Unmarshal(data)
}

// Resolve returns the hash a name points at.
func (s *Store) Resolve(ctx context.Context, name string) (Hash, error) {
	var key string
	err := s.db.QueryRowContext(ctx, "SELECT hash FROM names WHERE name = ?", name).Scan(&key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Hash{}, fmt.Errorf("%w: name %q", ErrNotFound, name)
		}
		return Hash{}, fmt.Errorf("store: querying name: %w", err)
	}
	return ParseHash(key)
}

// Load resolves name and loads its chunk.
func (s *Store) Load(ctx context.Context, name string) (*bytecode.Chunk, Hash, error) {
	h, err := s.Resolve(ctx, name)
	if err != nil {
		return nil, Hash{}, err
	}
	c, err := s.Get(ctx, h)
	return c, h, err
}

// List returns every named chunk, ordered by name.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT n.name, n.hash, length(c.data)
		FROM names n JOIN chunks c ON c.hash = n.hash
		ORDER BY n.name`)
	if err != nil {
		return nil, fmt.Errorf("store: listing: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e   Entry
			key string
		)
		if err := rows.Scan(&e.Name, &key, &e.Size); err != nil {
			return nil, fmt.Errorf("store: listing: %w", err)
		}
		if e.Hash, err = ParseHash(key); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes a name. The chunk it pointed at stays, since other names
// may share it.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM names WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("store: deleting: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: deleting: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: name %q", ErrNotFound, name)
	}
	log.Infof("deleted %q", name)
	return nil
}
