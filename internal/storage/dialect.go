package storage

import (
	"fmt"
	"strings"
)

// Dialect abstracts the SQL differences between supported databases.
type Dialect interface {
	// DriverName returns the database/sql driver name.
	DriverName() string

	// DSN returns the data source name for opening a connection.
	DSN(pathOrConnStr string) string

	// Placeholder returns the parameter placeholder for the 1-based index.
	Placeholder(index int) string

	// TimestampType returns the column type used for timestamps.
	TimestampType() string

	// SerialType returns the column type of an auto-incrementing key.
	SerialType() string
}

// DialectFor returns the dialect for a driver name.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "sqlite3", "sqlite":
		return &SQLiteDialect{}, nil
	case "pgx", "postgres", "postgresql":
		return &PostgresDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
}

// SQLiteDialect implements Dialect for SQLite via go-sqlite3.
type SQLiteDialect struct{}

func (d *SQLiteDialect) DriverName() string {
	return "sqlite3"
}

func (d *SQLiteDialect) Placeholder(index int) string {
	return "?"
}

func (d *SQLiteDialect) TimestampType() string {
	return "DATETIME"
}

func (d *SQLiteDialect) SerialType() string {
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

func (d *SQLiteDialect) DSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_journal=WAL&_busy_timeout=5000&_foreign_keys=on"
}

// PostgresDialect implements Dialect for PostgreSQL via the pgx stdlib driver.
type PostgresDialect struct{}

func (d *PostgresDialect) DriverName() string {
	return "pgx"
}

func (d *PostgresDialect) DSN(connStr string) string {
	return connStr
}

func (d *PostgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

func (d *PostgresDialect) TimestampType() string {
	return "TIMESTAMPTZ"
}

func (d *PostgresDialect) SerialType() string {
	return "BIGSERIAL PRIMARY KEY"
}

// insertSQL builds a parameterized INSERT for table and columns.
func insertSQL(d Dialect, table string, columns ...string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
}
