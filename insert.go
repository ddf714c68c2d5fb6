package qb

import (
	"sort"
	"strings"
)

// Insert builds a single-table INSERT statement. Values follow the same
// policy as WHERE leaves: Raw values render inline, Select values render
// as parenthesized subqueries with their binds spliced in, anything else
// binds a placeholder.
type Insert struct {
	dialect   Dialect
	err       error
	table     string
	schema    string
	fields    []string
	values    []any
	returning []FieldRef
}

// NewInsert creates an empty INSERT builder. When no dialect is given, the
// ANSI dialect is used.
func NewInsert(dialect ...Dialect) *Insert {
	i := &Insert{dialect: ANSI()}
	if len(dialect) > 0 && dialect[0] != nil {
		i.dialect = dialect[0]
	}
	return i
}

// Dialect returns the dialect the builder renders with.
func (i *Insert) Dialect() Dialect { return i.dialect }

func (i *Insert) fail(format string, args ...any) *Insert {
	if i.err == nil {
		i.err = errStatement(format, args...)
	}
	return i
}

// Into sets the target table. Derived tables are not valid targets.
func (i *Insert) Into(t TableRef) *Insert {
	if i.err != nil {
		return i
	}
	if t.sub != nil || t.isRaw {
		return i.fail("into(): target must be a named table")
	}
	if t.name == "" {
		return i.fail("into(): empty table name")
	}
	i.table = t.name
	i.schema = t.schema
	return i
}

// Record sets the target table from the descriptor and loads the record's
// column/value pairs. When the descriptor names a primary key, that column
// is dropped, as it is expected to be generated by the database.
func (i *Insert) Record(r Record) *Insert {
	if i.err != nil {
		return i
	}
	if i.table == "" {
		i.Into(TRecord(r))
	}
	fv, ok := r.(FieldValuer)
	if !ok {
		return i.fail("record(): record does not export field values")
	}
	m := fv.FieldValues()
	if pk := r.PrimaryKey(); pk != "" {
		delete(m, pk)
	}
	return i.ValuesMap(m)
}

// Set adds one column/value pair.
func (i *Insert) Set(field string, value any) *Insert {
	if i.err != nil {
		return i
	}
	if field == "" {
		return i.fail("set(): empty field name")
	}
	i.fields = append(i.fields, field)
	i.values = append(i.values, value)
	return i
}

// Fields sets the column list; values are matched positionally by Values.
func (i *Insert) Fields(fields ...string) *Insert {
	if i.err != nil {
		return i
	}
	i.fields = append(i.fields, fields...)
	return i
}

// Values appends values matching the registered column list.
func (i *Insert) Values(values ...any) *Insert {
	if i.err != nil {
		return i
	}
	i.values = append(i.values, values...)
	return i
}

// ValuesMap adds column/value pairs from a map, in sorted column order, so
// the rendered statement is deterministic.
func (i *Insert) ValuesMap(m map[string]any) *Insert {
	if i.err != nil {
		return i
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		i.Set(k, m[k])
	}
	return i
}

// Returning adds RETURNING columns. When the dialect lacks RETURNING
// support, a single requested column is omitted from the rendered SQL so
// callers can fall back to the driver's last-insert id; more than one
// column is a composition error.
func (i *Insert) Returning(fields ...FieldRef) *Insert {
	if i.err != nil {
		return i
	}
	i.returning = append(i.returning, fields...)
	return i
}

// Assemble renders the statement and its bind values.
func (i *Insert) Assemble() (string, []any, error) {
	sql, values, err := i.build()
	if err != nil {
		return "", nil, err
	}
	return finalize(sql, i.dialect), values, nil
}

func (i *Insert) build() (string, []any, error) {
	if i.err != nil {
		return "", nil, i.err
	}
	if i.table == "" {
		return "", nil, errStatement("assemble(): missing table")
	}
	if len(i.fields) == 0 {
		return "", nil, errStatement("assemble(): field list is empty")
	}
	if len(i.fields) != len(i.values) {
		return "", nil, errStatement("assemble(): field and value count mismatch")
	}

	values := make([]any, 0, len(i.values))
	names := make([]string, len(i.fields))
	exprs := make([]string, len(i.values))
	for n, field := range i.fields {
		if field == "" {
			return "", nil, errStatement("assemble(): empty field name")
		}
		names[n] = i.dialect.Field(FieldExpr{Name: field})
		expr, vals, err := valueExpr(i.values[n])
		if err != nil {
			return "", nil, err
		}
		exprs[n] = expr
		values = append(values, vals...)
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(i.dialect.Table(TableExpr{Name: i.table, Schema: i.schema}))
	sb.WriteString(" (")
	sb.WriteString(strings.Join(names, ", "))
	sb.WriteString(") VALUES (")
	sb.WriteString(strings.Join(exprs, ", "))
	sb.WriteString(")")

	if len(i.returning) > 0 {
		if !i.dialect.InsertReturning() {
			if len(i.returning) > 1 {
				return "", nil, errStatement("returning(): dialect %q does not support multi-column RETURNING", i.dialect.Name())
			}
			return sb.String(), values, nil
		}
		fields := make([]string, len(i.returning))
		for n, f := range i.returning {
			expr, err := f.render(i.dialect)
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

// valueExpr renders one INSERT/UPDATE value: raw fragments inline, nested
// selects as parenthesized subqueries, anything else as a placeholder.
func valueExpr(value any) (string, []any, error) {
	switch v := value.(type) {
	case Raw:
		return string(v), nil, nil
	case *Select:
		if v == nil {
			return "", nil, errStatement("set(): nil subquery value")
		}
		sql, vals, err := v.build()
		if err != nil {
			return "", nil, err
		}
		return "(" + sql + ")", vals, nil
	default:
		return bindMarker, []any{value}, nil
	}
}
