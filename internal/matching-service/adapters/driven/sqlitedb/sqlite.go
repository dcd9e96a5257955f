package sqlitedb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tujane/internal/mylogger"

	_ "github.com/mattn/go-sqlite3"
)

// Store is a single-file ride and driver store for local runs. Timestamps
// are kept as unix nanoseconds.
type Store struct {
	db    *sql.DB
	mylog mylogger.Logger
}

func Open(path string, mylog mylogger.Logger) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer at a time; the claim UPDATE relies on it
	db.SetMaxOpenConns(1)

	s := &Store{db: db, mylog: mylog}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) IsAlive(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS drivers (
			id                        INTEGER PRIMARY KEY AUTOINCREMENT,
			phone_number              TEXT NOT NULL UNIQUE,
			full_name                 TEXT NOT NULL,
			registration_plate_number TEXT NOT NULL,
			car_type                  TEXT NOT NULL,
			car_photo_url             TEXT NOT NULL DEFAULT '',
			car_capacity              INTEGER NOT NULL CHECK (car_capacity BETWEEN 1 AND 6)
		)`,
		`CREATE TABLE IF NOT EXISTS rides (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			public_id      TEXT NOT NULL,
			rider_identity TEXT NOT NULL,
			driver_id      INTEGER REFERENCES drivers (id),
			where_from     TEXT NOT NULL,
			where_to       TEXT NOT NULL,
			passengers     INTEGER NOT NULL CHECK (passengers BETWEEN 1 AND 6),
			created_at     INTEGER NOT NULL,
			claimed_at     INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS rides_public_id_created_at_idx ON rides (public_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS rides_rider_identity_idx ON rides (rider_identity)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	s.mylog.Action("sqlite_migrate").Debug("schema ready", "statements", len(stmts))
	return nil
}

func toUnix(t time.Time) int64 {
	return t.UnixNano()
}

func fromUnix(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
