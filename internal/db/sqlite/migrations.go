package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Migration is one forward schema step.
type Migration struct {
	Version string
	Up      string
}

// Migrations lists schema steps in order.
var Migrations = []Migration{
	{Version: "1.0.0", Up: migrationProducts},
	{Version: "1.1.0", Up: migrationFullText},
}

const migrationProducts = `
CREATE TABLE IF NOT EXISTS products (
    pk INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    description TEXT,
    keywords TEXT,
    trend_score REAL,
    recommendation_score REAL,
    sales_rank INTEGER,
    price REAL,
    created_at INTEGER,
    platform TEXT,
    category TEXT,
    brand TEXT,
    in_stock INTEGER
);

CREATE INDEX IF NOT EXISTS idx_products_platform ON products(platform);
CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);
`

const migrationFullText = `
CREATE VIRTUAL TABLE IF NOT EXISTS products_fts USING fts5(
    name, description, keywords,
    content='products',
    content_rowid='pk'
);

CREATE TRIGGER IF NOT EXISTS products_ai AFTER INSERT ON products BEGIN
    INSERT INTO products_fts(rowid, name, description, keywords)
    VALUES (new.pk, new.name, new.description, new.keywords);
END;

CREATE TRIGGER IF NOT EXISTS products_ad AFTER DELETE ON products BEGIN
    INSERT INTO products_fts(products_fts, rowid, name, description, keywords)
    VALUES ('delete', old.pk, old.name, old.description, old.keywords);
END;

CREATE TRIGGER IF NOT EXISTS products_au AFTER UPDATE ON products BEGIN
    INSERT INTO products_fts(products_fts, rowid, name, description, keywords)
    VALUES ('delete', old.pk, old.name, old.description, old.keywords);
    INSERT INTO products_fts(rowid, name, description, keywords)
    VALUES (new.pk, new.name, new.description, new.keywords);
END;

INSERT INTO products_fts(products_fts) VALUES ('rebuild');
`

// Migrate applies every migration newer than the recorded schema version.
func Migrate(ctx context.Context, conn *sql.DB) error {
	if _, err := conn.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	current, err := currentVersion(ctx, conn)
	if err != nil {
		return err
	}

	for _, m := range Migrations {
		v, err := semver.NewVersion(m.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", m.Version, err)
		}
		if !current.LessThan(v) {
			continue
		}
		if err := apply(ctx, conn, m); err != nil {
			return err
		}
		current = v
	}
	return nil
}

func currentVersion(ctx context.Context, conn *sql.DB) (*semver.Version, error) {
	rows, err := conn.QueryContext(ctx, "SELECT version FROM schema_version")
	if err != nil {
		return nil, fmt.Errorf("read schema_version: %w", err)
	}
	defer rows.Close()

	current := semver.MustParse("0.0.0")
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan schema_version: %w", err)
		}
		v, err := semver.NewVersion(s)
		if err != nil {
			return nil, fmt.Errorf("invalid recorded schema version %s: %w", s, err)
		}
		if current.LessThan(v) {
			current = v
		}
	}
	return current, rows.Err()
}

func apply(ctx context.Context, conn *sql.DB, m Migration) (err error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", m.Version, err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	if _, err = tx.ExecContext(ctx, m.Up); err != nil {
		return fmt.Errorf("apply migration %s: %w", m.Version, err)
	}
	if _, err = tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
		return fmt.Errorf("record migration %s: %w", m.Version, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", m.Version, err)
	}
	return nil
}
