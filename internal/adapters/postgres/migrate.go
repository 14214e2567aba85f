package postgres

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
)

const migrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version    TEXT PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// migrationVersions lists the NNN_name prefixes that have an .up.sql file, in order.
func migrationVersions(fsys fs.FS) ([]string, error) {
	names, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil, err
	}
	versions := make([]string, 0, len(names))
	for _, n := range names {
		versions = append(versions, strings.TrimSuffix(n, ".up.sql"))
	}
	sort.Strings(versions)
	return versions, nil
}

func appliedVersions(ctx context.Context, db *DB) (map[string]bool, error) {
	if _, err := db.Pool.Exec(ctx, migrationsTable); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}
	rows, err := db.Pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	applied := make(map[string]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}
	return applied, nil
}

// Migrate applies every pending up migration from fsys, each in its own
// transaction, and returns the versions it applied.
func Migrate(ctx context.Context, db *DB, fsys fs.FS) ([]string, error) {
	versions, err := migrationVersions(fsys)
	if err != nil {
		return nil, err
	}
	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return nil, err
	}

	var done []string
	for _, v := range versions {
		if applied[v] {
			continue
		}
		if err := runMigration(ctx, db, fsys, v+".up.sql", func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, v)
			return err
		}); err != nil {
			return done, err
		}
		done = append(done, v)
	}
	return done, nil
}

// Rollback reverts the latest steps applied migrations, newest first.
func Rollback(ctx context.Context, db *DB, fsys fs.FS, steps int) ([]string, error) {
	versions, err := migrationVersions(fsys)
	if err != nil {
		return nil, err
	}
	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return nil, err
	}

	var done []string
	for i := len(versions) - 1; i >= 0 && len(done) < steps; i-- {
		v := versions[i]
		if !applied[v] {
			continue
		}
		if err := runMigration(ctx, db, fsys, v+".down.sql", func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, `DELETE FROM schema_migrations WHERE version = $1`, v)
			return err
		}); err != nil {
			return done, err
		}
		done = append(done, v)
	}
	return done, nil
}

func runMigration(ctx context.Context, db *DB, fsys fs.FS, name string, record func(pgx.Tx) error) error {
	sql, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("exec %s: %w", name, err)
	}
	if err := record(tx); err != nil {
		return fmt.Errorf("record %s: %w", name, err)
	}
	return tx.Commit(ctx)
}
