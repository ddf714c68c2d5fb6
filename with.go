package qb

import "strings"

type withClause struct {
	name         string
	query        Statement
	columns      []string
	materialized bool
}

// With builds a common table expression statement: one or more named
// clauses and a final query. Clause binds precede query binds in the
// assembled value list.
type With struct {
	dialect   Dialect
	err       error
	recursive bool
	clauses   []withClause
	query     Statement
}

// NewWith creates an empty WITH builder. When no dialect is given, the
// ANSI dialect is used.
func NewWith(dialect ...Dialect) *With {
	w := &With{dialect: ANSI()}
	if len(dialect) > 0 && dialect[0] != nil {
		w.dialect = dialect[0]
	}
	return w
}

// Dialect returns the dialect the builder renders with.
func (w *With) Dialect() Dialect { return w.dialect }

func (w *With) fail(format string, args ...any) *With {
	if w.err == nil {
		w.err = errStatement(format, args...)
	}
	return w
}

// Recursive renders the statement as WITH RECURSIVE.
func (w *With) Recursive() *With {
	w.recursive = true
	return w
}

// Clause adds one named clause, optionally with an explicit column list.
func (w *With) Clause(name string, query Statement, columns ...string) *With {
	return w.clause(name, query, columns, true)
}

// ClauseNotMaterialized adds a clause rendered with the NOT MATERIALIZED
// hint.
func (w *With) ClauseNotMaterialized(name string, query Statement, columns ...string) *With {
	return w.clause(name, query, columns, false)
}

func (w *With) clause(name string, query Statement, columns []string, materialized bool) *With {
	if w.err != nil {
		return w
	}
	if name == "" {
		return w.fail("clause(): empty clause name")
	}
	if nilStatement(query) {
		return w.fail("clause(): missing clause query")
	}
	w.clauses = append(w.clauses, withClause{
		name:         name,
		query:        query,
		columns:      columns,
		materialized: materialized,
	})
	return w
}

// Query sets the final query the clauses feed into.
func (w *With) Query(query Statement) *With {
	if w.err != nil {
		return w
	}
	if nilStatement(query) {
		return w.fail("query(): missing query")
	}
	w.query = query
	return w
}

// Assemble renders the statement and its bind values.
func (w *With) Assemble() (string, []any, error) {
	sql, values, err := w.build()
	if err != nil {
		return "", nil, err
	}
	return finalize(sql, w.dialect), values, nil
}

func (w *With) build() (string, []any, error) {
	if w.err != nil {
		return "", nil, w.err
	}
	if len(w.clauses) == 0 {
		return "", nil, errStatement("assemble(): missing CTE clauses")
	}
	if w.query == nil {
		return "", nil, errStatement("assemble(): missing CTE query")
	}

	values := make([]any, 0, 4)
	clauses := make([]string, len(w.clauses))
	for n, c := range w.clauses {
		head := w.dialect.Table(TableExpr{Name: c.name})
		if len(c.columns) > 0 {
			cols := make([]string, len(c.columns))
			for i, col := range c.columns {
				cols[i] = w.dialect.Field(FieldExpr{Name: col})
			}
			head += "(" + strings.Join(cols, ",") + ")"
		}
		head += " AS"
		if !c.materialized {
			head += " NOT MATERIALIZED"
		}
		sql, vals, err := assembleInner(c.query)
		if err != nil {
			return "", nil, err
		}
		values = append(values, vals...)
		clauses[n] = head + " (" + sql + ")"
	}

	sql, vals, err := assembleInner(w.query)
	if err != nil {
		return "", nil, err
	}
	values = append(values, vals...)

	var sb strings.Builder
	sb.WriteString("WITH ")
	if w.recursive {
		sb.WriteString("RECURSIVE ")
	}
	sb.WriteString(strings.Join(clauses, ","))
	sb.WriteString(" ")
	sb.WriteString(sql)
	return sb.String(), values, nil
}
