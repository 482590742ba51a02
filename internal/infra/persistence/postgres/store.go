// Package postgres provides a Postgres-backed fixture repository mirroring the
// SQLite snapshot semantics over JSONB state rows.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"seedcore/internal/infra/persistence/memory"
	"seedcore/pkg/fixture"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// Compile-time contract assertion ensuring the store satisfies the repository interface.
var _ fixture.Repository = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/seedcore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists state to Postgres while reusing the in-memory implementation for
// row bookkeeping.
type Store struct {
	*memory.Store
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens a Postgres-backed repository using the provided DSN (falls back
// to defaultDSN), ensures the snapshot table exists, and hydrates the in-memory
// store from any existing snapshot.
func NewStore(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureStateTable(ctx, db); err != nil {
		return nil, err
	}
	snap, found, err := loadSnapshot(ctx, db)
	if err != nil {
		return nil, err
	}
	s := &Store{Store: memory.NewStore(), db: db}
	if found {
		s.ImportState(snap)
	}
	return s, nil
}

func ensureStateTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure state table: %w", err)
	}
	return nil
}

var postgresBuckets = []string{"meta", "tables", "joins"}

type metaBucket struct {
	NextID int64 `json:"next_id"`
}

func loadSnapshot(ctx context.Context, db *sql.DB) (memory.Snapshot, bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return memory.Snapshot{}, false, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snap memory.Snapshot
	found := false
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return memory.Snapshot{}, false, fmt.Errorf("scan state: %w", err)
		}
		if len(payload) == 0 {
			continue
		}
		found = true
		switch bucket {
		case "meta":
			var meta metaBucket
			if err := json.Unmarshal(payload, &meta); err != nil {
				return memory.Snapshot{}, false, fmt.Errorf("decode meta: %w", err)
			}
			snap.NextID = meta.NextID
		case "tables":
			if err := json.Unmarshal(payload, &snap.Tables); err != nil {
				return memory.Snapshot{}, false, fmt.Errorf("decode tables: %w", err)
			}
		case "joins":
			if err := json.Unmarshal(payload, &snap.Joins); err != nil {
				return memory.Snapshot{}, false, fmt.Errorf("decode joins: %w", err)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return memory.Snapshot{}, false, fmt.Errorf("iterate state: %w", err)
	}
	return snap, found, nil
}

func (s *Store) persist(ctx context.Context) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.ExportState()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range postgresBuckets {
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
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload`, bucket, data); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// Save persists through the in-memory store, then snapshots to Postgres.
func (s *Store) Save(ctx context.Context, e *fixture.Entity) error {
	if err := s.Store.Save(ctx, e); err != nil {
		return err
	}
	return s.persist(ctx)
}

// SaveMany persists entities in order, snapshotting once at the end.
func (s *Store) SaveMany(ctx context.Context, entities []*fixture.Entity) error {
	for _, e := range entities {
		if err := s.Store.Save(ctx, e); err != nil {
			return err
		}
	}
	return s.persist(ctx)
}

// Link records the join row, then snapshots to Postgres.
func (s *Store) Link(ctx context.Context, record fixture.JoinRecord) error {
	if err := s.Store.Link(ctx, record); err != nil {
		return err
	}
	return s.persist(ctx)
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
