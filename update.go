package qb

import (
	"sort"
	"strings"
)

// whereClause is one flat WHERE entry of an UPDATE or DELETE statement.
// Unlike SELECT conditions, these are not parenthesized and support no
// nested blocks.
type whereClause struct {
	expr   string
	glue   string
	values []any
}

func renderWhereClauses(sb *strings.Builder, clauses []whereClause, values *[]any) {
	sb.WriteString("WHERE ")
	for n, c := range clauses {
		if n > 0 {
			sb.WriteString(" " + c.glue + " ")
		}
		sb.WriteString(c.expr)
		*values = append(*values, c.values...)
	}
}

// Update builds a single-table UPDATE statement.
type Update struct {
	dialect   Dialect
	err       error
	table     string
	schema    string
	fields    []string
	values    []any
	where     []whereClause
	returning []FieldRef
}

// NewUpdate creates an empty UPDATE builder. When no dialect is given, the
// ANSI dialect is used.
func NewUpdate(dialect ...Dialect) *Update {
	u := &Update{dialect: ANSI()}
	if len(dialect) > 0 && dialect[0] != nil {
		u.dialect = dialect[0]
	}
	return u
}

// Dialect returns the dialect the builder renders with.
func (u *Update) Dialect() Dialect { return u.dialect }

func (u *Update) fail(format string, args ...any) *Update {
	if u.err == nil {
		u.err = errStatement(format, args...)
	}
	return u
}

// Table sets the target table. Derived tables are not valid targets.
func (u *Update) Table(t TableRef) *Update {
	if u.err != nil {
		return u
	}
	if t.sub != nil || t.isRaw {
		return u.fail("table(): target must be a named table")
	}
	if t.name == "" {
		return u.fail("table(): empty table name")
	}
	u.table = t.name
	u.schema = t.schema
	return u
}

// Record sets the target table from the descriptor and loads the record's
// column/value pairs into the SET list. The primary key column is kept;
// callers that match on it should remove it first or use the repository
// layer.
func (u *Update) Record(r Record) *Update {
	if u.err != nil {
		return u
	}
	if u.table == "" {
		u.Table(TRecord(r))
	}
	fv, ok := r.(FieldValuer)
	if !ok {
		return u.fail("record(): record does not export field values")
	}
	return u.ValuesMap(fv.FieldValues())
}

// Set adds one column/value pair to the SET list.
func (u *Update) Set(field string, value any) *Update {
	if u.err != nil {
		return u
	}
	if field == "" {
		return u.fail("set(): empty field name")
	}
	u.fields = append(u.fields, field)
	u.values = append(u.values, value)
	return u
}

// Fields sets the column list; values are matched positionally by Values.
func (u *Update) Fields(fields ...string) *Update {
	if u.err != nil {
		return u
	}
	u.fields = append(u.fields, fields...)
	return u
}

// Values appends values matching the registered column list.
func (u *Update) Values(values ...any) *Update {
	if u.err != nil {
		return u
	}
	u.values = append(u.values, values...)
	return u
}

// ValuesMap adds column/value pairs from a map, in sorted column order.
func (u *Update) ValuesMap(m map[string]any) *Update {
	if u.err != nil {
		return u
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		u.Set(k, m[k])
	}
	return u
}

// Where adds a WHERE condition, AND-joined with the previous condition.
// The value forms accepted match Select.Where.
func (u *Update) Where(field FieldRef, op string, value any) *Update {
	return u.whereCond(glueAnd, field, op, value)
}

// OrWhere adds a WHERE condition, OR-joined with the previous condition.
func (u *Update) OrWhere(field FieldRef, op string, value any) *Update {
	return u.whereCond(glueOr, field, op, value)
}

func (u *Update) whereCond(glue string, field FieldRef, op string, value any) *Update {
	if u.err != nil {
		return u
	}
	expr, vals, err := leafExpr(u.dialect, field, op, value)
	if err != nil {
		u.err = err
		return u
	}
	u.where = append(u.where, whereClause{expr: expr, glue: glue, values: vals})
	return u
}

// Returning adds RETURNING columns.
func (u *Update) Returning(fields ...FieldRef) *Update {
	if u.err != nil {
		return u
	}
	u.returning = append(u.returning, fields...)
	return u
}

// Assemble renders the statement and its bind values.
func (u *Update) Assemble() (string, []any, error) {
	sql, values, err := u.build()
	if err != nil {
		return "", nil, err
	}
	return finalize(sql, u.dialect), values, nil
}

func (u *Update) build() (string, []any, error) {
	if u.err != nil {
		return "", nil, u.err
	}
	if u.table == "" {
		return "", nil, errStatement("assemble(): missing table")
	}
	if len(u.fields) == 0 {
		return "", nil, errStatement("assemble(): field list is empty")
	}
	if len(u.fields) != len(u.values) {
		return "", nil, errStatement("assemble(): field and value count mismatch")
	}

	values := make([]any, 0, len(u.values))
	pairs := make([]string, len(u.fields))
	for n, field := range u.fields {
		if field == "" {
			return "", nil, errStatement("assemble(): empty field name")
		}
		expr, vals, err := valueExpr(u.values[n])
		if err != nil {
			return "", nil, err
		}
		pairs[n] = u.dialect.Field(FieldExpr{Name: field}) + "=" + expr
		values = append(values, vals...)
	}

	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(u.dialect.Table(TableExpr{Name: u.table, Schema: u.schema}))
	sb.WriteString(" SET ")
	sb.WriteString(strings.Join(pairs, ", "))

	if len(u.where) > 0 {
		sb.WriteString(" ")
		renderWhereClauses(&sb, u.where, &values)
	}

	if len(u.returning) > 0 {
		fields := make([]string, len(u.returning))
		for n, f := range u.returning {
			expr, err := f.render(u.dialect)
			if err != nil {
				return "", nil, err
			}
			fields[n] = expr
		}
		sb.WriteString(" RETURNING ")
		sb.WriteString(strings.Join(fields, ","))
	}
	return sb.String(), values, nil
}
