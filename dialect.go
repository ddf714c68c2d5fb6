package qb

import (
	"strconv"
	"strings"
)

// FieldExpr is the input to Dialect.Field. When Raw is set the fragment is
// emitted verbatim and Name, Table, Schema and Cast are ignored; the alias
// suffix still applies.
type FieldExpr struct {
	Raw    Raw
	Name   string // "*" renders unquoted
	Table  string
	Schema string
	Cast   string
	Alias  string
}

// TableExpr is the input to Dialect.Table. When Raw is set the fragment is
// rendered in parenthesis, as for derived tables, and Name and Schema are
// ignored.
type TableExpr struct {
	Raw    Raw
	Name   string
	Schema string
	Alias  string
}

// Dialect renders identifiers, casts and placeholders for one database
// backend. Implementations are immutable and safe for concurrent use by
// any number of builders.
type Dialect interface {
	// Name identifies the dialect: "ansi", "postgres", "sqlite", "mysql".
	Name() string

	// Placeholder returns the bind marker for the n-th value, 1-based.
	Placeholder(n int) string

	// InsertReturning reports whether the backend supports multi-column
	// INSERT ... RETURNING.
	InsertReturning() bool

	// ILike reports whether the backend supports the ILIKE operator.
	ILike() bool

	Field(f FieldExpr) string
	Table(t TableExpr) string
	Database(name, alias string) string
}

type sqlDialect struct {
	name            string
	quote           byte
	numbered        bool // $N placeholders
	nativeCast      bool // expr::type instead of CAST(expr AS type)
	insertReturning bool
	ilike           bool
}

var (
	ansiDialect = &sqlDialect{
		name:            "ansi",
		quote:           '"',
		insertReturning: true,
		ilike:           true,
	}
	postgresDialect = &sqlDialect{
		name:            "postgres",
		quote:           '"',
		numbered:        true,
		nativeCast:      true,
		insertReturning: true,
		ilike:           true,
	}
	sqliteDialect = &sqlDialect{
		name:            "sqlite",
		quote:           '"',
		insertReturning: true,
	}
	mysqlDialect = &sqlDialect{
		name:  "mysql",
		quote: '`',
	}
)

// ANSI returns the default double-quoting dialect with ? placeholders.
func ANSI() Dialect { return ansiDialect }

// Postgres returns the PostgreSQL dialect: $N placeholders and native
// :: cast syntax.
func Postgres() Dialect { return postgresDialect }

// SQLite returns the SQLite dialect.
func SQLite() Dialect { return sqliteDialect }

// MySQL returns the MySQL/MariaDB dialect: backtick quoting, no RETURNING
// support.
func MySQL() Dialect { return mysqlDialect }

func (d *sqlDialect) Name() string { return d.name }

func (d *sqlDialect) InsertReturning() bool { return d.insertReturning }

func (d *sqlDialect) ILike() bool { return d.ilike }

func (d *sqlDialect) Placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func (d *sqlDialect) quoteIdent(name string) string {
	q := string(d.quote)
	return q + strings.ReplaceAll(name, q, q+q) + q
}

func (d *sqlDialect) Field(f FieldExpr) string {
	if f.Raw != "" {
		out := string(f.Raw)
		if f.Alias != "" {
			out += " AS " + d.quoteIdent(f.Alias)
		}
		return out
	}
	out := f.Name
	if out != "*" {
		out = d.quoteIdent(out)
	}
	if f.Table != "" {
		prefix := d.quoteIdent(f.Table) + "."
		if f.Schema != "" {
			prefix = d.quoteIdent(f.Schema) + "." + prefix
		}
		out = prefix + out
	}
	if f.Cast != "" {
		if d.nativeCast {
			out += "::" + f.Cast
		} else {
			out = "CAST(" + out + " AS " + f.Cast + ")"
		}
	}
	if f.Alias != "" {
		out += " AS " + d.quoteIdent(f.Alias)
	}
	return out
}

func (d *sqlDialect) Table(t TableExpr) string {
	var out string
	if t.Raw != "" {
		out = "(" + string(t.Raw) + ")"
	} else {
		out = d.quoteIdent(t.Name)
		if t.Schema != "" {
			out = d.quoteIdent(t.Schema) + "." + out
		}
	}
	if t.Alias != "" {
		out += " AS " + d.quoteIdent(t.Alias)
	}
	return out
}

func (d *sqlDialect) Database(name, alias string) string {
	out := d.quoteIdent(name)
	if alias != "" {
		out += " AS " + d.quoteIdent(alias)
	}
	return out
}
