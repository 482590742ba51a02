// Package sqlite provides a SQLite-backed fixture repository. It reuses the
// in-memory store for row bookkeeping and snapshots the full state to a single
// table as JSON blobs after every mutation, so a seed run survives the process.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"seedcore/internal/infra/persistence/memory"
	"seedcore/pkg/fixture"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Compile-time contract assertion ensuring the store satisfies the repository interface.
var _ fixture.Repository = (*Store)(nil)

const defaultPath = "seedcore.db"

// Store persists the in-memory state to SQLite as JSON snapshots.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore opens (creating if needed) a snapshotting SQLite-backed repository and
// hydrates it from any existing snapshot.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store{Store: memory.NewStore(), db: db, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

var sqliteBuckets = []string{"meta", "tables", "joins"}

type metaBucket struct {
	NextID int64 `json:"next_id"`
}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snap memory.Snapshot
	found := false
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return fmt.Errorf("scan state: %w", err)
		}
		if len(payload) == 0 {
			continue
		}
		found = true
		switch bucket {
		case "meta":
			var meta metaBucket
			if err := json.Unmarshal(payload, &meta); err != nil {
				return fmt.Errorf("decode meta: %w", err)
			}
			snap.NextID = meta.NextID
		case "tables":
			if err := json.Unmarshal(payload, &snap.Tables); err != nil {
				return fmt.Errorf("decode tables: %w", err)
			}
		case "joins":
			if err := json.Unmarshal(payload, &snap.Joins); err != nil {
				return fmt.Errorf("decode joins: %w", err)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	if found {
		s.ImportState(snap)
	}
	return nil
}

func (s *Store) persist() (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.ExportState()
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range sqliteBuckets {
		var data []byte
		switch bucket {
		case "meta":
			data, err = json.Marshal(metaBucket{NextID: snap.NextID})
		case "tables":
			data, err = json.Marshal(snap.Tables)
		case "joins":
			data, err = json.Marshal(snap.Joins)
		}
		if err != nil {
			retErr = err
			return retErr
		}
		if _, err = tx.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			retErr = fmt.Errorf("upsert %s: %w", bucket, err)
			return retErr
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Save persists through the in-memory store, then snapshots to SQLite.
func (s *Store) Save(ctx context.Context, e *fixture.Entity) error {
	if err := s.Store.Save(ctx, e); err != nil {
		return err
	}
	return s.persist()
}

// SaveMany persists entities in order, snapshotting once at the end.
func (s *Store) SaveMany(ctx context.Context, entities []*fixture.Entity) error {
	for _, e := range entities {
		if err := s.Store.Save(ctx, e); err != nil {
			return err
		}
	}
	return s.persist()
}

// Link records the join row, then snapshots to SQLite.
func (s *Store) Link(ctx context.Context, record fixture.JoinRecord) error {
	if err := s.Store.Link(ctx, record); err != nil {
		return err
	}
	return s.persist()
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }
