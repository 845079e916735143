// Package sqlite is the SQLite-backed on-device storage: items and preferences.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/and161185/itemsync/internal/migrate"
)

const (
	maxRetries  = 5
	initialWait = 100 * time.Millisecond
	busyTimeout = 5000 // milliseconds

	maxOpenConns = 4
	maxIdleConns = 2
)

// DB is an open on-device database.
type DB struct {
	conn *sql.DB
}

// Open opens (creating if needed) the database file at path and migrates it.
func Open(ctx context.Context, path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", path, busyTimeout)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(maxOpenConns)
	conn.SetMaxIdleConns(maxIdleConns)

	db := &DB{conn: conn}
	if err := db.pingWithRetry(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := migrate.UpSQLite(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

// Close closes the database.
func (db *DB) Close() error { return db.conn.Close() }

// Items returns the item store.
func (db *DB) Items() *Items { return &Items{conn: db.conn} }

// Preferences returns the preference key/value store.
func (db *DB) Preferences() *KV { return &KV{conn: db.conn} }

func (db *DB) pingWithRetry(ctx context.Context) error {
	wait := initialWait
	for i := 0; i < maxRetries; i++ {
		if err := db.conn.PingContext(ctx); err == nil {
			return nil
		}
		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			wait *= 2
		}
	}
	return fmt.Errorf("ping database after %d retries", maxRetries)
}
