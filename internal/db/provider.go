// Package db provides scoped database connections and the per-dialect catalog
// queries used to introspect a live database.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver (pgx)
	_ "github.com/lib/pq"              // PostgreSQL driver (lib/pq)
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
)

// Conn is a single scoped database connection. Close releases it back to
// wherever it came from.
type Conn interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	Close() error
}

// ConnectionProvider hands out scoped connections. Callers must Close every
// connection they acquire.
type ConnectionProvider interface {
	Acquire(ctx context.Context) (Conn, error)
}

// Pool is a ConnectionProvider backed by a *sql.DB pool
type Pool struct {
	db      *sql.DB
	dialect Dialect
}

// NewPool wraps an existing *sql.DB
func NewPool(db *sql.DB, dialect Dialect) *Pool {
	return &Pool{db: db, dialect: dialect}
}

// Open opens a database for the given driver name and verifies it is reachable
func Open(ctx context.Context, driver, url string) (*Pool, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	if url == "" {
		return nil, errors.New("database url is required")
	}

	sqlDB, err := sql.Open(driver, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewPool(sqlDB, dialect), nil
}

// Acquire checks out a dedicated connection from the pool
func (p *Pool) Acquire(ctx context.Context) (Conn, error) {
	if p.db == nil {
		return nil, errors.New("pool is closed")
	}
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return conn, nil
}

// Dialect returns the dialect of the underlying database
func (p *Pool) Dialect() Dialect {
	return p.dialect
}

// DB returns the underlying pool
func (p *Pool) DB() *sql.DB {
	return p.db
}

// Close closes the underlying pool
func (p *Pool) Close() error {
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}
