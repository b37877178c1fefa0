/*
Package postgres provides a PostgreSQL-backed implementation of usage.Store.

PURPOSE:
  The remote-store variant for multi-instance deployments. The schema
  mirrors store/sqlite; atomicity comes from the database rather than a
  process mutex, so any number of engine instances can share one store.

ATOMICITY:
  RecordUsage increments inside the database:

    INSERT .. ON CONFLICT (employee_id, offer_id)
    DO UPDATE SET usage_count = employee_offer_usage.usage_count + 1
    RETURNING usage_count

  Postgres row-level locking serializes concurrent UPSERTs on the same key,
  so no two callers can act on the same pre-increment count - including
  callers in different processes.

CONNECTION POOL:
  Configured by the caller through Options; defaults follow the engine's
  config package.

SEE ALSO:
  - usage/store.go: Interface contract
  - store/sqlite: Embedded implementation of the same contract
*/
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/warp/perks-engine/usage"
)

// Options configures the connection pool.
type Options struct {
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

// DefaultOptions are reasonable for a single engine instance.
var DefaultOptions = Options{
	MaxOpenConns: 25,
	MaxIdleConns: 5,
	ConnLifetime: time.Hour,
}

// Store implements usage.Store on PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ usage.Store = (*Store)(nil)

// New connects to PostgreSQL, verifies the connection, and migrates the
// schema.
func New(ctx context.Context, dsn string, opts Options) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnLifetime)

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return s, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the connection, for health endpoints.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS employee_offer_usage (
		employee_id  TEXT NOT NULL,
		offer_id     TEXT NOT NULL,
		usage_count  INTEGER NOT NULL CHECK (usage_count >= 0),
		last_used_at TIMESTAMPTZ NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (employee_id, offer_id)
	);

	CREATE TABLE IF NOT EXISTS usage_codes (
		seq         BIGSERIAL PRIMARY KEY,
		employee_id TEXT NOT NULL,
		offer_id    TEXT NOT NULL,
		code        TEXT NOT NULL,
		issued_at   TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_usage_codes_pair
		ON usage_codes(employee_id, offer_id, seq);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// usageRow is the sqlx scan target for employee_offer_usage.
type usageRow struct {
	EmployeeID string    `db:"employee_id"`
	OfferID    string    `db:"offer_id"`
	UsageCount int       `db:"usage_count"`
	LastUsedAt time.Time `db:"last_used_at"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r usageRow) toRecord(codes []string) usage.EmployeeOfferUsage {
	return usage.EmployeeOfferUsage{
		EmployeeID:    r.EmployeeID,
		OfferID:       r.OfferID,
		UsageCount:    r.UsageCount,
		LastUsedAt:    r.LastUsedAt,
		DiscountCodes: codes,
		CreatedAt:     r.CreatedAt,
	}
}

// Get returns the usage record for the pair, if one exists.
func (s *Store) Get(ctx context.Context, employeeID, offerID string) (usage.EmployeeOfferUsage, bool, error) {
	var row usageRow
	err := s.db.GetContext(ctx, &row, `
		SELECT employee_id, offer_id, usage_count, last_used_at, created_at
		FROM employee_offer_usage
		WHERE employee_id = $1 AND offer_id = $2`,
		employeeID, offerID,
	)
	if err == sql.ErrNoRows {
		return usage.EmployeeOfferUsage{}, false, nil
	}
	if err != nil {
		return usage.EmployeeOfferUsage{}, false, storageErr("get", employeeID, offerID, err)
	}

	codes, err := s.loadCodes(ctx, s.db, employeeID, offerID)
	if err != nil {
		return usage.EmployeeOfferUsage{}, false, storageErr("get", employeeID, offerID, err)
	}
	return row.toRecord(codes), true, nil
}

// RecordUsage creates or increments the pair's record and appends the code,
// atomically with respect to concurrent callers in any process.
func (s *Store) RecordUsage(ctx context.Context, employeeID, offerID, code string) (usage.EmployeeOfferUsage, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return usage.EmployeeOfferUsage{}, storageErr("record", employeeID, offerID, err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	var row usageRow
	err = tx.GetContext(ctx, &row, `
		INSERT INTO employee_offer_usage (employee_id, offer_id, usage_count, last_used_at, created_at)
		VALUES ($1, $2, 1, $3, $3)
		ON CONFLICT (employee_id, offer_id) DO UPDATE SET
			usage_count  = employee_offer_usage.usage_count + 1,
			last_used_at = EXCLUDED.last_used_at
		RETURNING employee_id, offer_id, usage_count, last_used_at, created_at`,
		employeeID, offerID, now,
	)
	if err != nil {
		return usage.EmployeeOfferUsage{}, storageErr("record", employeeID, offerID, err)
	}

	if code != "" {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO usage_codes (employee_id, offer_id, code, issued_at)
			VALUES ($1, $2, $3, $4)`,
			employeeID, offerID, code, now,
		); err != nil {
			return usage.EmployeeOfferUsage{}, storageErr("record", employeeID, offerID, err)
		}
	}

	codes, err := s.loadCodes(ctx, tx, employeeID, offerID)
	if err != nil {
		return usage.EmployeeOfferUsage{}, storageErr("record", employeeID, offerID, err)
	}

	if err := tx.Commit(); err != nil {
		return usage.EmployeeOfferUsage{}, storageErr("record", employeeID, offerID, err)
	}
	return row.toRecord(codes), nil
}

// ClearAll wipes every record. Test/maintenance only.
func (s *Store) ClearAll(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return storageErr("clear", "", "", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM employee_offer_usage`); err != nil {
		return storageErr("clear", "", "", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM usage_codes`); err != nil {
		return storageErr("clear", "", "", err)
	}
	return tx.Commit()
}

// selecter abstracts *sqlx.DB and *sqlx.Tx for shared read helpers.
type selecter interface {
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

func (s *Store) loadCodes(ctx context.Context, q selecter, employeeID, offerID string) ([]string, error) {
	var codes []string
	err := q.SelectContext(ctx, &codes, `
		SELECT code FROM usage_codes
		WHERE employee_id = $1 AND offer_id = $2
		ORDER BY seq ASC`,
		employeeID, offerID,
	)
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func storageErr(op, employeeID, offerID string, err error) error {
	return &usage.StorageError{
		Op:  op,
		Key: usage.Key{EmployeeID: employeeID, OfferID: offerID},
		Err: err,
	}
}
