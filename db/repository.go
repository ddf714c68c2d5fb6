package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/oddbit-project/qb"
)

const defaultCacheSize = 64

// Repository provides record-level access to one table described by a
// qb.Record descriptor. Frequently used statements are cached per
// repository; caches are never shared between instances, so two
// repositories over the same table cannot poison each other.
type Repository struct {
	conn   *Conn
	table  string
	schema string
	pk     string
	cache  *lru.Cache[string, string]
}

// NewRepository creates a repository for the table described by rec.
func NewRepository(conn *Conn, rec qb.Record, cacheSize ...int) (*Repository, error) {
	if rec.TableName() == "" {
		return nil, fmt.Errorf("repository: record has no table name")
	}
	size := defaultCacheSize
	if len(cacheSize) > 0 && cacheSize[0] > 0 {
		size = cacheSize[0]
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("repository: %w", err)
	}
	return &Repository{
		conn:   conn,
		table:  rec.TableName(),
		schema: rec.SchemaName(),
		pk:     rec.PrimaryKey(),
		cache:  cache,
	}, nil
}

// Table returns the repository table name.
func (r *Repository) Table() string { return r.table }

// PrimaryKey returns the primary key column, or "" when the descriptor has
// none.
func (r *Repository) PrimaryKey() string { return r.pk }

func (r *Repository) ref() qb.TableRef {
	if r.schema != "" {
		return qb.TSchema(r.schema, r.table)
	}
	return qb.T(r.table)
}

// Select creates a SELECT builder over the repository table.
func (r *Repository) Select(cols ...qb.ColumnSpec) *qb.Select {
	return r.conn.Select().From(r.ref(), cols...)
}

// cachedSQL returns the statement text stored under key, building and
// caching it on a miss.
func (r *Repository) cachedSQL(key string, build func() (string, error)) (string, error) {
	if sqlText, ok := r.cache.Get(key); ok {
		return sqlText, nil
	}
	sqlText, err := build()
	if err != nil {
		return "", err
	}
	r.cache.Add(key, sqlText)
	return sqlText, nil
}

// FindPK returns the row whose primary key equals value. Scanning is the
// caller's responsibility.
func (r *Repository) FindPK(ctx context.Context, value any) (*sql.Row, error) {
	if r.pk == "" {
		return nil, fmt.Errorf("repository: table %q has no primary key", r.table)
	}
	sqlText, err := r.cachedSQL("find_pk", func() (string, error) {
		text, _, err := r.Select().Where(qb.F(r.pk), "=", 0).Limit(1).Assemble()
		return text, err
	})
	if err != nil {
		return nil, err
	}
	return r.conn.QueryRow(ctx, sqlText, value), nil
}

// Fetch assembles qry and returns its rows.
func (r *Repository) Fetch(ctx context.Context, qry *qb.Select) (*sql.Rows, error) {
	sqlText, values, err := qry.Assemble()
	if err != nil {
		return nil, err
	}
	return r.conn.Query(ctx, sqlText, values...)
}

// FetchOne assembles qry limited to one row. The LIMIT 1 is applied to qry
// itself, replacing any limit it already carries; callers reusing the
// builder afterwards see the modified limit.
func (r *Repository) FetchOne(ctx context.Context, qry *qb.Select) (*sql.Row, error) {
	sqlText, values, err := qry.Limit(1).Assemble()
	if err != nil {
		return nil, err
	}
	return r.conn.QueryRow(ctx, sqlText, values...), nil
}

// FetchByField returns the rows where field equals value.
func (r *Repository) FetchByField(ctx context.Context, field string, value any, cols ...qb.ColumnSpec) (*sql.Rows, error) {
	return r.Fetch(ctx, r.Select(cols...).Where(qb.F(field), "=", value))
}

// Count returns the number of rows in the table.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	sqlText, err := r.cachedSQL("count", func() (string, error) {
		text, _, err := r.Select(qb.ColRaw(qb.Raw("COUNT(*)"), "total")).Assemble()
		return text, err
	})
	if err != nil {
		return 0, err
	}
	var total int64
	if err := r.conn.QueryRow(ctx, sqlText).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// ExistsPK reports whether a row with the given primary key exists.
func (r *Repository) ExistsPK(ctx context.Context, value any) (bool, error) {
	if r.pk == "" {
		return false, fmt.Errorf("repository: table %q has no primary key", r.table)
	}
	sqlText, err := r.cachedSQL("exists_pk", func() (string, error) {
		q := r.conn.Select().
			From(r.ref(), qb.ColRaw(qb.Raw("1"))).
			Where(qb.F(r.pk), "=", 0).
			Limit(1)
		text, _, err := q.Assemble()
		return text, err
	})
	if err != nil {
		return false, err
	}
	var one int
	err = r.conn.QueryRow(ctx, sqlText, value).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Insert inserts a record, dropping its primary key column so the database
// can generate it.
func (r *Repository) Insert(ctx context.Context, rec qb.FieldValuer) error {
	values := rec.FieldValues()
	if r.pk != "" {
		delete(values, r.pk)
	}
	_, err := r.conn.ExecStatement(ctx, r.conn.Insert().Into(r.ref()).ValuesMap(values))
	return err
}

// InsertReturning inserts a record and returns the value of col, which
// defaults to the primary key. On dialects without RETURNING support the
// driver's last-insert id is returned instead, regardless of col.
func (r *Repository) InsertReturning(ctx context.Context, rec qb.FieldValuer, col ...string) (any, error) {
	returning := r.pk
	if len(col) > 0 {
		returning = col[0]
	}
	if returning == "" {
		return nil, fmt.Errorf("repository: table %q has no primary key", r.table)
	}
	values := rec.FieldValues()
	if r.pk != "" {
		delete(values, r.pk)
	}
	ins := r.conn.Insert().Into(r.ref()).ValuesMap(values).Returning(qb.F(returning))
	sqlText, args, err := ins.Assemble()
	if err != nil {
		return nil, err
	}
	if !r.conn.Dialect().InsertReturning() {
		res, err := r.conn.Exec(ctx, sqlText, args...)
		if err != nil {
			return nil, err
		}
		return res.LastInsertId()
	}
	var out any
	if err := r.conn.QueryRow(ctx, sqlText, args...).Scan(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update updates the row matching the record's primary key with its
// remaining fields.
func (r *Repository) Update(ctx context.Context, rec qb.FieldValuer) error {
	if r.pk == "" {
		return fmt.Errorf("repository: table %q has no primary key", r.table)
	}
	values := rec.FieldValues()
	pkValue, ok := values[r.pk]
	if !ok {
		return fmt.Errorf("repository: record has no value for primary key %q", r.pk)
	}
	delete(values, r.pk)
	upd := r.conn.Update().
		Table(r.ref()).
		ValuesMap(values).
		Where(qb.F(r.pk), "=", pkValue)
	_, err := r.conn.ExecStatement(ctx, upd)
	return err
}

// DeletePK removes the row with the given primary key.
func (r *Repository) DeletePK(ctx context.Context, value any) error {
	if r.pk == "" {
		return fmt.Errorf("repository: table %q has no primary key", r.table)
	}
	del := r.conn.Delete().From(r.ref()).Where(qb.F(r.pk), "=", value)
	_, err := r.conn.ExecStatement(ctx, del)
	return err
}
