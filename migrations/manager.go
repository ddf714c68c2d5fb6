// Package migrations records and applies schema migrations, keeping the
// applied history in a database table managed alongside the schema itself.
package migrations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oddbit-project/qb"
	"github.com/oddbit-project/qb/db"
)

// MigrationTable is the name of the bookkeeping table.
const MigrationTable = "_migration"

// Record is one applied migration.
type Record struct {
	ID      int64
	Applied time.Time
	Name    string
}

func (Record) TableName() string  { return MigrationTable }
func (Record) SchemaName() string { return "" }
func (Record) PrimaryKey() string { return "id_migration" }

// Manager maintains the migration table and applies migration scripts.
type Manager struct {
	conn *db.Conn
	log  *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger. The default is slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// NewManager creates a migration manager over conn.
func NewManager(conn *db.Conn, opts ...Option) *Manager {
	m := &Manager{conn: conn, log: slog.Default()}
	for _, o := range opts {
		o(m)
	}
	return m
}

// tableDDL returns the migration table definition for the connection
// dialect.
func tableDDL(d qb.Dialect) string {
	table := d.Table(qb.TableExpr{Name: MigrationTable})
	switch d.Name() {
	case "postgres":
		return "CREATE TABLE " + table + " (" +
			"id_migration SERIAL PRIMARY KEY," +
			"applied TIMESTAMP WITH TIME ZONE NOT NULL," +
			"name TEXT NOT NULL UNIQUE)"
	case "mysql":
		return "CREATE TABLE " + table + " (" +
			"id_migration INTEGER PRIMARY KEY AUTO_INCREMENT," +
			"applied DATETIME NOT NULL," +
			"name VARCHAR(255) NOT NULL UNIQUE)"
	default:
		return "CREATE TABLE " + table + " (" +
			"id_migration INTEGER PRIMARY KEY AUTOINCREMENT," +
			"applied TIMESTAMP NOT NULL," +
			"name TEXT NOT NULL UNIQUE)"
	}
}

// Installed reports whether the migration table exists, by probing it with
// a throwaway query.
func (m *Manager) Installed(ctx context.Context) bool {
	sqlText, _, err := m.conn.Select().
		From(qb.T(MigrationTable), qb.ColRaw(qb.Raw("1"))).
		Limit(1).
		Assemble()
	if err != nil {
		return false
	}
	rows, err := m.conn.Query(ctx, sqlText)
	if err != nil {
		return false
	}
	rows.Close()
	return true
}

// Install creates the migration table.
func (m *Manager) Install(ctx context.Context) error {
	if _, err := m.conn.Exec(ctx, tableDDL(m.conn.Dialect())); err != nil {
		return fmt.Errorf("migrations: install: %w", err)
	}
	m.log.InfoContext(ctx, "migration table created", "table", MigrationTable)
	return nil
}

// List returns the applied migrations in application order.
func (m *Manager) List(ctx context.Context) ([]Record, error) {
	qry := m.conn.Select().
		From(qb.T(MigrationTable), qb.Col("id_migration"), qb.Col("applied"), qb.Col("name")).
		Order(qb.F("id_migration"))
	rows, err := m.conn.QueryStatement(ctx, qry)
	if err != nil {
		return nil, fmt.Errorf("migrations: list: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Applied, &r.Name); err != nil {
			return nil, fmt.Errorf("migrations: list: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// IsApplied reports whether the named migration was already applied.
func (m *Manager) IsApplied(ctx context.Context, name string) (bool, error) {
	qry := m.conn.Select().
		From(qb.T(MigrationTable), qb.ColRaw(qb.Raw("COUNT(*)"))).
		Where(qb.F("name"), "=", name)
	sqlText, values, err := qry.Assemble()
	if err != nil {
		return false, err
	}
	var count int64
	if err := m.conn.QueryRow(ctx, sqlText, values...).Scan(&count); err != nil {
		return false, fmt.Errorf("migrations: %w", err)
	}
	return count > 0, nil
}

// Apply executes the migration script and records it, in one transaction.
// Applying an already recorded name is an error.
func (m *Manager) Apply(ctx context.Context, name, script string) error {
	if name == "" {
		return fmt.Errorf("migrations: empty migration name")
	}
	applied, err := m.IsApplied(ctx, name)
	if err != nil {
		return err
	}
	if applied {
		return fmt.Errorf("migrations: %q is already applied", name)
	}

	ins := m.conn.Insert().
		Into(qb.T(MigrationTable)).
		Set("applied", time.Now().UTC()).
		Set("name", name)
	insText, insValues, err := ins.Assemble()
	if err != nil {
		return err
	}

	tx, err := m.conn.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrations: apply %q: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, script); err != nil {
		tx.Rollback()
		return fmt.Errorf("migrations: apply %q: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, insText, insValues...); err != nil {
		tx.Rollback()
		return fmt.Errorf("migrations: record %q: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrations: apply %q: %w", name, err)
	}
	m.log.InfoContext(ctx, "migration applied", "name", name)
	return nil
}

// Flatten replaces the recorded history with a single baseline entry. The
// schema itself is not touched.
func (m *Manager) Flatten(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("migrations: empty baseline name")
	}
	del := m.conn.Delete().
		From(qb.T(MigrationTable)).
		Where(qb.F("id_migration"), "IS NOT NULL", nil)
	delText, _, err := del.Assemble()
	if err != nil {
		return err
	}
	ins := m.conn.Insert().
		Into(qb.T(MigrationTable)).
		Set("applied", time.Now().UTC()).
		Set("name", name)
	insText, insValues, err := ins.Assemble()
	if err != nil {
		return err
	}

	tx, err := m.conn.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrations: flatten: %w", err)
	}
	if _, err := tx.ExecContext(ctx, delText); err != nil {
		tx.Rollback()
		return fmt.Errorf("migrations: flatten: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insText, insValues...); err != nil {
		tx.Rollback()
		return fmt.Errorf("migrations: flatten: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrations: flatten: %w", err)
	}
	m.log.InfoContext(ctx, "migration history flattened", "baseline", name)
	return nil
}
