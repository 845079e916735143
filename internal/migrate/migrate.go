// Package migrate applies embedded SQL migrations on startup.
package migrate

import (
	"context"
	"database/sql"
	"io/fs"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/and161185/itemsync/migrations"
)

// goose keeps its base FS and dialect in package globals.
var mu sync.Mutex

// Up runs all pending server migrations against the Postgres DSN.
func Up(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	return run(ctx, db, migrations.Postgres, "postgres", "postgres")
}

// UpSQLite runs all pending on-device migrations against an open SQLite handle.
func UpSQLite(ctx context.Context, db *sql.DB) error {
	return run(ctx, db, migrations.SQLite, "sqlite3", "sqlite")
}

func run(ctx context.Context, db *sql.DB, fsys fs.FS, dialect, dir string) error {
	mu.Lock()
	defer mu.Unlock()

	goose.SetBaseFS(fsys)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, dir)
}
