package database

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
)

// Dialect identifies the SQL dialect of the underlying engine.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
	DialectSQLite   Dialect = "sqlite"
	DialectMSSQL    Dialect = "mssql"
)

// Config holds configuration for opening an engine handle.
type Config struct {
	Dialect Dialect
	DSN     string
	// Tables is the allow-list of tables the handle exposes. The schema
	// description is restricted to these tables; it is fixed for the
	// lifetime of the handle.
	Tables []string
}

// Database is a live handle to a SQL engine, scoped to a fixed table
// allow-list. The underlying driver connects lazily on first use, and the
// handle is never explicitly closed.
type Database struct {
	db      *gorm.DB
	dialect Dialect
	tables  []string
}

// Open creates a new engine handle for the configured dialect.
func Open(cfg Config) (*Database, error) {
	var dialector gorm.Dialector
	switch cfg.Dialect {
	case DialectPostgres:
		dialector = postgres.Open(cfg.DSN)
	case DialectMySQL:
		dialector = mysql.Open(cfg.DSN)
	case DialectSQLite:
		dialector = sqlite.Open(cfg.DSN)
	case DialectMSSQL:
		dialector = sqlserver.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", cfg.Dialect)
	}

	// Connect lazily: the first query opens the connection.
	db, err := gorm.Open(dialector, &gorm.Config{DisableAutomaticPing: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s engine: %w", cfg.Dialect, err)
	}

	return New(db, cfg.Dialect, cfg.Tables), nil
}

// New wraps an existing gorm handle. Useful when the caller manages the
// connection itself (tests do this with sqlmock).
func New(db *gorm.DB, dialect Dialect, tables []string) *Database {
	return &Database{
		db:      db,
		dialect: dialect,
		tables:  append([]string(nil), tables...),
	}
}

// Dialect returns the SQL dialect of the handle.
func (d *Database) Dialect() Dialect {
	return d.dialect
}

// Tables returns a copy of the table allow-list.
func (d *Database) Tables() []string {
	return append([]string(nil), d.tables...)
}
