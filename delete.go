package qb

import "strings"

// Delete builds a single-table DELETE statement. A WHERE clause is
// mandatory; assembling without one is an error.
type Delete struct {
	dialect Dialect
	err     error
	table   string
	schema  string
	where   []whereClause
}

// NewDelete creates an empty DELETE builder. When no dialect is given, the
// ANSI dialect is used.
func NewDelete(dialect ...Dialect) *Delete {
	d := &Delete{dialect: ANSI()}
	if len(dialect) > 0 && dialect[0] != nil {
		d.dialect = dialect[0]
	}
	return d
}

// Dialect returns the dialect the builder renders with.
func (d *Delete) Dialect() Dialect { return d.dialect }

func (d *Delete) fail(format string, args ...any) *Delete {
	if d.err == nil {
		d.err = errStatement(format, args...)
	}
	return d
}

// From sets the target table. Derived tables are not valid targets.
func (d *Delete) From(t TableRef) *Delete {
	if d.err != nil {
		return d
	}
	if t.sub != nil || t.isRaw {
		return d.fail("from(): target must be a named table")
	}
	if t.name == "" {
		return d.fail("from(): empty table name")
	}
	d.table = t.name
	d.schema = t.schema
	return d
}

// Where adds a WHERE condition, AND-joined with the previous condition.
// The value forms accepted match Select.Where.
func (d *Delete) Where(field FieldRef, op string, value any) *Delete {
	return d.whereCond(glueAnd, field, op, value)
}

// OrWhere adds a WHERE condition, OR-joined with the previous condition.
func (d *Delete) OrWhere(field FieldRef, op string, value any) *Delete {
	return d.whereCond(glueOr, field, op, value)
}

func (d *Delete) whereCond(glue string, field FieldRef, op string, value any) *Delete {
	if d.err != nil {
		return d
	}
	expr, vals, err := leafExpr(d.dialect, field, op, value)
	if err != nil {
		d.err = err
		return d
	}
	d.where = append(d.where, whereClause{expr: expr, glue: glue, values: vals})
	return d
}

// Assemble renders the statement and its bind values.
func (d *Delete) Assemble() (string, []any, error) {
	sql, values, err := d.build()
	if err != nil {
		return "", nil, err
	}
	return finalize(sql, d.dialect), values, nil
}

func (d *Delete) build() (string, []any, error) {
	if d.err != nil {
		return "", nil, d.err
	}
	if d.table == "" {
		return "", nil, errStatement("assemble(): missing table")
	}
	if len(d.where) == 0 {
		return "", nil, errStatement("assemble(): DELETE requires a WHERE clause")
	}

	values := make([]any, 0, len(d.where))
	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(d.dialect.Table(TableExpr{Name: d.table, Schema: d.schema}))
	sb.WriteString(" ")
	renderWhereClauses(&sb, d.where, &values)
	return sb.String(), values, nil
}
