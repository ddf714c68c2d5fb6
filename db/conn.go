// Package db executes statements produced by the qb builders over
// database/sql connections. Opening a connection binds the dialect that
// matches the driver, so statements built through the connection render
// with the right quoting and placeholders.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/oddbit-project/qb"
)

// dialects maps database/sql driver names to their qb dialect.
var dialects = map[string]qb.Dialect{
	"pgx":    qb.Postgres(),
	"sqlite": qb.SQLite(),
	"mysql":  qb.MySQL(),
}

// Conn wraps a database/sql pool together with the dialect its statements
// are built with.
type Conn struct {
	db      *sql.DB
	dialect qb.Dialect
	log     *slog.Logger
}

// Option configures a Conn.
type Option func(*Conn)

// WithLogger sets the connection logger. The default is slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(c *Conn) { c.log = l }
}

// WithDialect overrides the dialect inferred from the driver name.
func WithDialect(d qb.Dialect) Option {
	return func(c *Conn) { c.dialect = d }
}

// Open opens a database through the named driver and binds the matching
// dialect. Registered drivers are "pgx", "sqlite" and "mysql"; other
// drivers require WithDialect.
func Open(driver, dsn string, opts ...Option) (*Conn, error) {
	dialect, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("db: no dialect registered for driver %q", driver)
	}
	pool, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", driver, err)
	}
	c := Wrap(pool, dialect, opts...)
	return c, nil
}

// Wrap builds a Conn around an existing pool, for tests or custom drivers.
func Wrap(pool *sql.DB, dialect qb.Dialect, opts ...Option) *Conn {
	c := &Conn{db: pool, dialect: dialect, log: slog.Default()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// DB exposes the underlying pool.
func (c *Conn) DB() *sql.DB { return c.db }

// Dialect returns the dialect bound to the connection.
func (c *Conn) Dialect() qb.Dialect { return c.dialect }

func (c *Conn) Close() error { return c.db.Close() }

func (c *Conn) Ping(ctx context.Context) error { return c.db.PingContext(ctx) }

// Select creates a SELECT builder bound to the connection dialect.
func (c *Conn) Select() *qb.Select { return qb.NewSelect(c.dialect) }

// Insert creates an INSERT builder bound to the connection dialect.
func (c *Conn) Insert() *qb.Insert { return qb.NewInsert(c.dialect) }

// Update creates an UPDATE builder bound to the connection dialect.
func (c *Conn) Update() *qb.Update { return qb.NewUpdate(c.dialect) }

// Delete creates a DELETE builder bound to the connection dialect.
func (c *Conn) Delete() *qb.Delete { return qb.NewDelete(c.dialect) }

// With creates a WITH builder bound to the connection dialect.
func (c *Conn) With() *qb.With { return qb.NewWith(c.dialect) }

// Exec runs a statement that returns no rows.
func (c *Conn) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	c.log.DebugContext(ctx, "exec", "sql", query)
	return c.db.ExecContext(ctx, query, args...)
}

// Query runs a statement and returns its rows.
func (c *Conn) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	c.log.DebugContext(ctx, "query", "sql", query)
	return c.db.QueryContext(ctx, query, args...)
}

// QueryRow runs a statement expected to return at most one row.
func (c *Conn) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	c.log.DebugContext(ctx, "query row", "sql", query)
	return c.db.QueryRowContext(ctx, query, args...)
}

// ExecStatement assembles st and runs it.
func (c *Conn) ExecStatement(ctx context.Context, st qb.Statement) (sql.Result, error) {
	query, values, err := st.Assemble()
	if err != nil {
		return nil, err
	}
	return c.Exec(ctx, query, values...)
}

// QueryStatement assembles st and returns its rows.
func (c *Conn) QueryStatement(ctx context.Context, st qb.Statement) (*sql.Rows, error) {
	query, values, err := st.Assemble()
	if err != nil {
		return nil, err
	}
	return c.Query(ctx, query, values...)
}
