// Package database opens the key store and applies its schema. MySQL is the
// production backend; SQLite serves local runs and integration tests.
package database

import (
	"context"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/vibast-solutions/ms-go-apikeys/config"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Open connects to the configured backend and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)

	switch cfg.Driver {
	case config.DriverMySQL:
		db, err = openMySQL(ctx, cfg.DSN())
	case config.DriverSQLite:
		db, err = OpenSQLite(ctx, cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if err = Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

func openMySQL(ctx context.Context, dsn string) (*sqlx.DB, error) {
	normalized, err := normalizeMySQLDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.ConnectContext(ctx, "mysql", normalized)
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	return db, nil
}

// normalizeMySQLDSN forces the options the repositories rely on: DATETIME
// columns must scan into time.Time, in UTC.
func normalizeMySQLDSN(dsn string) (string, error) {
	parsed, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	parsed.ParseTime = true
	if parsed.Params == nil {
		parsed.Params = map[string]string{}
	}
	if _, ok := parsed.Params["time_zone"]; !ok {
		parsed.Params["time_zone"] = "'+00:00'"
	}
	return parsed.FormatDSN(), nil
}

// OpenSQLite opens an SQLite database at path. ":memory:" or an empty path
// gives a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*sqlx.DB, error) {
	var dsn string
	if path == "" || path == ":memory:" {
		dsn = ":memory:"
	} else {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sqlx.ConnectContext(ctx, "sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	// SQLite serialises writers, and an in-memory database only lives on one connection.
	db.SetMaxOpenConns(1)

	if _, err = db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

// Migrate applies the schema for the handle's driver. Statements are
// idempotent, so running it repeatedly is safe.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	file, err := schemaFile(db.DriverName())
	if err != nil {
		return err
	}

	raw, err := schemaFS.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	for _, stmt := range splitStatements(string(raw)) {
		if _, err = db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}
	return nil
}

func schemaFile(driver string) (string, error) {
	switch driver {
	case config.DriverMySQL:
		return "schema/mysql.sql", nil
	case config.DriverSQLite:
		return "schema/sqlite.sql", nil
	}
	return "", fmt.Errorf("no schema for driver %q", driver)
}

func splitStatements(script string) []string {
	parts := strings.Split(script, ";")
	stmts := make([]string, 0, len(parts))
	for _, part := range parts {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}
