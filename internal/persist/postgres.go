package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/onnwee/regions/internal/tracing"
)

// kvTable is the table holding persisted values.
const kvTable = "region_kv"

const createTableSQL = `
CREATE TABLE IF NOT EXISTS region_kv (
	key        TEXT PRIMARY KEY,
	value      BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// upsertSQL reports whether the row was freshly inserted: xmax is zero for
// rows that were not touched by the ON CONFLICT branch.
const upsertSQL = `
INSERT INTO region_kv (key, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
RETURNING (xmax = 0) AS inserted`

const selectSQL = `SELECT value FROM region_kv WHERE key = $1`

const deleteSQL = `DELETE FROM region_kv WHERE key = $1`

// PostgresKV stores values in the region_kv table.
type PostgresKV struct {
	db       *sql.DB
	inserted atomic.Int64
	updated  atomic.Int64
}

// OpenPostgres connects to databaseURL, verifies the connection and ensures
// the schema exists.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresKV, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	kv := NewPostgresKV(db)
	if err := kv.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return kv, nil
}

// NewPostgresKV wraps an open database handle.
func NewPostgresKV(db *sql.DB) *PostgresKV {
	return &PostgresKV{db: db}
}

// DB returns the underlying handle, used for health checks.
func (p *PostgresKV) DB() *sql.DB {
	return p.db
}

// EnsureSchema creates the region_kv table if it does not exist.
func (p *PostgresKV) EnsureSchema(ctx context.Context) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, kvTable, tracing.DBOperationExec)
	defer func() { endSpan(err) }()
	if _, err = p.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create %s: %w", kvTable, err)
	}
	return nil
}

// Name implements KV.
func (p *PostgresKV) Name() string { return BackendPostgres }

// Save implements KV.
func (p *PostgresKV) Save(ctx context.Context, key string, value []byte) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, kvTable, tracing.DBOperationUpsert)
	defer func() { endSpan(err) }()
	if err = checkKey(key); err != nil {
		return err
	}

	var inserted bool
	if err = p.db.QueryRowContext(ctx, upsertSQL, key, value).Scan(&inserted); err != nil {
		return fmt.Errorf("failed to upsert %s: %w", key, err)
	}
	if inserted {
		p.inserted.Add(1)
	} else {
		p.updated.Add(1)
	}
	return nil
}

// Load implements KV.
func (p *PostgresKV) Load(ctx context.Context, key string) (_ []byte, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, kvTable, tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	var value []byte
	err = p.db.QueryRowContext(ctx, selectSQL, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	return value, nil
}

// Delete implements KV.
func (p *PostgresKV) Delete(ctx context.Context, key string) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, kvTable, tracing.DBOperationDelete)
	defer func() { endSpan(err) }()
	if _, err = p.db.ExecContext(ctx, deleteSQL, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// UpsertCounts returns how many saves inserted a new row and how many replaced one.
func (p *PostgresKV) UpsertCounts() (inserted, updated int64) {
	return p.inserted.Load(), p.updated.Load()
}

// LogSummary logs the upsert counters at INFO level.
func (p *PostgresKV) LogSummary(logger *slog.Logger) {
	inserted, updated := p.UpsertCounts()
	logger.Info("upsert statistics",
		"table", kvTable,
		"inserted", inserted,
		"updated", updated,
		"total", inserted+updated,
	)
}

// Close closes the database handle.
func (p *PostgresKV) Close() error {
	return p.db.Close()
}
