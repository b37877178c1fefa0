/*
Package sqlite provides a SQLite-backed implementation of usage.Store.

PURPOSE:
  Durable usage tracking for single-node deployments. The same schema and
  statement shapes apply to PostgreSQL - see store/postgres for the remote
  variant.

KEY TABLES:
  employee_offer_usage: One row per (employee_id, offer_id) pair holding the
                        monotonic usage count and last-used timestamp.
  usage_codes:          Append-only history of issued discount codes, ordered
                        by an autoincrement sequence.

ATOMICITY:
  RecordUsage runs a single UPSERT inside a database transaction:

    INSERT .. ON CONFLICT(employee_id, offer_id)
    DO UPDATE SET usage_count = usage_count + 1

  The increment happens inside the database, so two racing calls serialize
  there and neither can observe the other's pre-increment count. A process
  mutex additionally serializes writers, which SQLite's single-writer model
  requires anyway.

WAL MODE:
  The database is opened with WAL so readers are not blocked by the writer.

USAGE:
  store, err := sqlite.New("./data/perks.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - usage/store.go: Interface contract
  - store/postgres: sqlx/lib-pq implementation of the same contract
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/perks-engine/usage"
)

// Store implements usage.Store on SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

var _ usage.Store = (*Store)(nil)

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps :memory: databases stable and matches
	// SQLite's single-writer model.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employee_offer_usage (
		employee_id  TEXT NOT NULL,
		offer_id     TEXT NOT NULL,
		usage_count  INTEGER NOT NULL CHECK (usage_count >= 0),
		last_used_at TEXT NOT NULL,
		created_at   TEXT NOT NULL,
		PRIMARY KEY (employee_id, offer_id)
	);

	-- Append-only history of issued codes. seq preserves issue order.
	CREATE TABLE IF NOT EXISTS usage_codes (
		seq         INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id TEXT NOT NULL,
		offer_id    TEXT NOT NULL,
		code        TEXT NOT NULL,
		issued_at   TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_usage_codes_pair
		ON usage_codes(employee_id, offer_id, seq);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get returns the usage record for the pair, if one exists.
func (s *Store) Get(ctx context.Context, employeeID, offerID string) (usage.EmployeeOfferUsage, bool, error) {
	var (
		rec       usage.EmployeeOfferUsage
		lastUsed  string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT usage_count, last_used_at, created_at
		FROM employee_offer_usage
		WHERE employee_id = ? AND offer_id = ?`,
		employeeID, offerID,
	).Scan(&rec.UsageCount, &lastUsed, &createdAt)
	if err == sql.ErrNoRows {
		return usage.EmployeeOfferUsage{}, false, nil
	}
	if err != nil {
		return usage.EmployeeOfferUsage{}, false, storageErr("get", employeeID, offerID, err)
	}

	rec.EmployeeID = employeeID
	rec.OfferID = offerID
	if rec.LastUsedAt, err = parseTime(lastUsed); err != nil {
		return usage.EmployeeOfferUsage{}, false, storageErr("get", employeeID, offerID, err)
	}
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return usage.EmployeeOfferUsage{}, false, storageErr("get", employeeID, offerID, err)
	}

	codes, err := s.loadCodes(ctx, s.db, employeeID, offerID)
	if err != nil {
		return usage.EmployeeOfferUsage{}, false, storageErr("get", employeeID, offerID, err)
	}
	rec.DiscountCodes = codes
	return rec, true, nil
}

// RecordUsage creates or increments the pair's record and appends the code
// to the history, atomically.
func (s *Store) RecordUsage(ctx context.Context, employeeID, offerID, code string) (usage.EmployeeOfferUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	nowStr := formatTime(now)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return usage.EmployeeOfferUsage{}, storageErr("record", employeeID, offerID, err)
	}
	defer tx.Rollback()

	// The increment runs inside the database: concurrent callers serialize
	// on the row, so no pre-increment count can be read twice.
	var (
		count     int
		createdAt string
	)
	err = tx.QueryRowContext(ctx, `
		INSERT INTO employee_offer_usage (employee_id, offer_id, usage_count, last_used_at, created_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(employee_id, offer_id) DO UPDATE SET
			usage_count  = usage_count + 1,
			last_used_at = excluded.last_used_at
		RETURNING usage_count, created_at`,
		employeeID, offerID, nowStr, nowStr,
	).Scan(&count, &createdAt)
	if err != nil {
		return usage.EmployeeOfferUsage{}, storageErr("record", employeeID, offerID, err)
	}

	if code != "" {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO usage_codes (employee_id, offer_id, code, issued_at)
			VALUES (?, ?, ?, ?)`,
			employeeID, offerID, code, nowStr,
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

	created, err := parseTime(createdAt)
	if err != nil {
		return usage.EmployeeOfferUsage{}, storageErr("record", employeeID, offerID, err)
	}
	return usage.EmployeeOfferUsage{
		EmployeeID:    employeeID,
		OfferID:       offerID,
		UsageCount:    count,
		LastUsedAt:    now,
		DiscountCodes: codes,
		CreatedAt:     created,
	}, nil
}

// ClearAll wipes every record. Test/maintenance only.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
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

// querier abstracts *sql.DB and *sql.Tx for shared read helpers.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) loadCodes(ctx context.Context, q querier, employeeID, offerID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT code FROM usage_codes
		WHERE employee_id = ? AND offer_id = ?
		ORDER BY seq ASC`,
		employeeID, offerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

func storageErr(op, employeeID, offerID string, err error) error {
	return &usage.StorageError{
		Op:  op,
		Key: usage.Key{EmployeeID: employeeID, OfferID: offerID},
		Err: err,
	}
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
