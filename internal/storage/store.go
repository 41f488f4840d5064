// Package storage persists analysis runs to SQLite or PostgreSQL.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/dejisec/tattletale/internal/model"
	"github.com/dejisec/tattletale/internal/util"
)

// DB wraps a database connection and its dialect.
type DB struct {
	*sql.DB
	dialect Dialect
}

// Run is one stored analysis run.
type Run struct {
	ID              string    `json:"id"`
	GeneratedAt     time.Time `json:"generated_at"`
	TotalAccounts   int       `json:"total_accounts"`
	CrackedAccounts int       `json:"cracked_accounts"`
	SharedAccounts  int       `json:"shared_accounts"`
	UniqueHashes    int       `json:"unique_hashes"`
}

// Open connects to the database named by driver and dsn and creates the schema.
func Open(driver, dsn string) (*DB, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(dialect.DriverName(), dialect.DSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, ok := dialect.(*SQLiteDialect); ok {
		// SQLite only supports one writer
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
	}

	db := &DB{DB: conn, dialect: dialect}
	if err := db.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return db, nil
}

// Dialect returns the dialect in use.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

func (db *DB) createTables() error {
	ts := db.dialect.TimestampType()
	serial := db.dialect.SerialType()

	tables := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			generated_at %s NOT NULL,
			total_accounts INTEGER NOT NULL,
			cracked_accounts INTEGER NOT NULL,
			shared_accounts INTEGER NOT NULL,
			unique_hashes INTEGER NOT NULL,
			unique_passwords INTEGER NOT NULL
		)`, ts),
		`CREATE INDEX IF NOT EXISTS idx_runs_generated_at ON runs(generated_at)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS domain_stats (
			id %s,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			domain TEXT NOT NULL,
			accounts INTEGER NOT NULL,
			cracked INTEGER NOT NULL,
			unique_hashes INTEGER NOT NULL,
			unique_cracked INTEGER NOT NULL
		)`, serial),
		`CREATE INDEX IF NOT EXISTS idx_domain_stats_run_id ON domain_stats(run_id)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS shared_hashes (
			id %s,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			hash TEXT NOT NULL,
			domain TEXT NOT NULL,
			username TEXT NOT NULL,
			cracked INTEGER NOT NULL
		)`, serial),
		`CREATE INDEX IF NOT EXISTS idx_shared_hashes_run_id ON shared_hashes(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_shared_hashes_hash ON shared_hashes(hash)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS cracked_accounts (
			id %s,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			domain TEXT NOT NULL,
			username TEXT NOT NULL,
			plaintext TEXT NOT NULL
		)`, serial),
		`CREATE INDEX IF NOT EXISTS idx_cracked_accounts_run_id ON cracked_accounts(run_id)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS password_reuse (
			id %s,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			plaintext TEXT NOT NULL,
			accounts INTEGER NOT NULL
		)`, serial),
		`CREATE INDEX IF NOT EXISTS idx_password_reuse_run_id ON password_reuse(run_id)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS hash_conflicts (
			id %s,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			hash TEXT NOT NULL,
			kept TEXT NOT NULL,
			kept_source TEXT NOT NULL,
			discarded TEXT NOT NULL,
			discarded_source TEXT NOT NULL
		)`, serial),
		`CREATE INDEX IF NOT EXISTS idx_hash_conflicts_run_id ON hash_conflicts(run_id)`,
	}

	for _, table := range tables {
		if _, err := db.Exec(table); err != nil {
			return fmt.Errorf("failed to execute: %s: %w", table, err)
		}
	}
	return nil
}

// SaveReport stores r as a new run inside one transaction and returns the run ID.
func (db *DB) SaveReport(ctx context.Context, r *model.Report) (string, error) {
	runID := uuid.NewString()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	d := db.dialect
	if _, err := tx.ExecContext(ctx,
		insertSQL(d, "runs", "id", "generated_at", "total_accounts", "cracked_accounts",
			"shared_accounts", "unique_hashes", "unique_passwords"),
		runID, r.GeneratedAt.UTC(), r.TotalAccounts, r.CrackedAccounts,
		r.SharedHashAccounts, r.UniqueHashes, r.UniqueCrackedPasswords,
	); err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	if err := insertRows(ctx, tx, insertSQL(d, "domain_stats", "run_id", "domain", "accounts", "cracked", "unique_hashes", "unique_cracked"),
		r.Domains, func(s model.DomainStats) []any {
			return []any{runID, s.Domain, s.All, s.Cracked, s.Unique, s.UniqueCracked}
		}); err != nil {
		return "", fmt.Errorf("failed to insert domain stats: %w", err)
	}

	if err := insertRows(ctx, tx, insertSQL(d, "shared_hashes", "run_id", "hash", "domain", "username", "cracked"),
		r.SharedHashRows, func(row model.SharedHashRow) []any {
			return []any{runID, row.Hash, row.Domain, row.Username, boolToInt(row.Cracked)}
		}); err != nil {
		return "", fmt.Errorf("failed to insert shared hashes: %w", err)
	}

	if err := insertRows(ctx, tx, insertSQL(d, "cracked_accounts", "run_id", "domain", "username", "plaintext"),
		r.CrackedRows, func(row model.UserPassRow) []any {
			return []any{runID, row.Domain, row.Username, row.Plaintext}
		}); err != nil {
		return "", fmt.Errorf("failed to insert cracked accounts: %w", err)
	}

	rank := 0
	if err := insertRows(ctx, tx, insertSQL(d, "password_reuse", "run_id", "position", "plaintext", "accounts"),
		r.TopReusedPasswords, func(p model.PasswordCount) []any {
			rank++
			return []any{runID, rank, p.Plaintext, p.Count}
		}); err != nil {
		return "", fmt.Errorf("failed to insert password reuse: %w", err)
	}

	if err := insertRows(ctx, tx, insertSQL(d, "hash_conflicts", "run_id", "hash", "kept", "kept_source", "discarded", "discarded_source"),
		r.Conflicts, func(c model.HashConflict) []any {
			return []any{runID, c.Hash, c.Kept, c.KeptSource, c.Discarded, c.DiscardedSource}
		}); err != nil {
		return "", fmt.Errorf("failed to insert hash conflicts: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}

	util.Debug("Stored run %s (%d shared rows, %d cracked rows)", runID, len(r.SharedHashRows), len(r.CrackedRows))
	return runID, nil
}

// Runs returns the most recent runs, newest first.
func (db *DB) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := fmt.Sprintf(`SELECT id, generated_at, total_accounts, cracked_accounts, shared_accounts, unique_hashes
		FROM runs ORDER BY generated_at DESC, id LIMIT %s`, db.dialect.Placeholder(1))

	rows, err := db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.GeneratedAt, &run.TotalAccounts, &run.CrackedAccounts,
			&run.SharedAccounts, &run.UniqueHashes); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// CountRows returns the number of rows stored for runID in table.
func (db *DB) CountRows(ctx context.Context, table, runID string) (int, error) {
	switch table {
	case "domain_stats", "shared_hashes", "cracked_accounts", "password_reuse", "hash_conflicts":
	default:
		return 0, fmt.Errorf("unknown table: %s", table)
	}

	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE run_id = %s", table, db.dialect.Placeholder(1))
	if err := db.QueryRowContext(ctx, query, runID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}

func insertRows[T any](ctx context.Context, tx *sql.Tx, query string, rows []T, args func(T) []any) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, args(row)...); err != nil {
			return err
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
