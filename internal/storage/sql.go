package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

func init() {
	// modernc registers as "sqlite", which sqlx does not know by default.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// SQLSlot implements Slot on a kv_slots table, for Postgres or SQLite.
type SQLSlot struct {
	db *sqlx.DB
}

// NewSQLSlot connects with the given driver ("postgres" or "sqlite") and
// creates the kv_slots table if it does not exist.
func NewSQLSlot(driver, dataSourceName string) (*SQLSlot, error) {
	db, err := sqlx.Connect(driver, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if driver == "sqlite" {
		// a single connection keeps ":memory:" databases shared and serializes writers
		db.SetMaxOpenConns(1)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS kv_slots (
		slot_key TEXT PRIMARY KEY,
		slot_value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create kv_slots table: %w", err)
	}

	return &SQLSlot{db: db}, nil
}

// Get retrieves the value stored under key.
func (s *SQLSlot) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	err := s.db.QueryRowxContext(ctx, s.db.Rebind("SELECT slot_value FROM kv_slots WHERE slot_key = ?"), key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get slot %s: %w", key, err)
	}
	return []byte(value), true, nil
}

// Put upserts the value stored under key.
func (s *SQLSlot) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		s.db.Rebind("INSERT INTO kv_slots (slot_key, slot_value, updated_at) VALUES (?, ?, ?) ON CONFLICT (slot_key) DO UPDATE SET slot_value = excluded.slot_value, updated_at = excluded.updated_at"),
		key,
		string(value),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save slot %s: %w", key, err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLSlot) Close() error {
	return s.db.Close()
}
