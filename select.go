package qb

import (
	"strconv"
	"strings"
)

// Sort directions accepted by Order and OrderList.
const (
	Asc  = "ASC"
	Desc = "DESC"
)

const (
	kindFrom    = "FROM"
	kindLateral = "LATERAL"

	joinInner   = "INNER JOIN"
	joinLeft    = "LEFT JOIN"
	joinRight   = "RIGHT JOIN"
	joinFull    = "FULL OUTER JOIN"
	joinCross   = "CROSS JOIN"
	joinNatural = "NATURAL JOIN"

	joinInnerLateral = "INNER JOIN LATERAL"
	joinLeftLateral  = "LEFT JOIN LATERAL"

	unionDistinct = "UNION"
	unionAll      = "UNION ALL"
)

// fromPart is one registered FROM, LATERAL or JOIN entry.
type fromPart struct {
	kind    string
	name    string // empty for subqueries and raw fragments
	schema  string
	alias   string
	raw     Raw
	cond    string // synthesized join condition
	condRaw Raw    // raw join condition, parenthesized at render
	hasCond bool
}

// columnBucket holds the projected columns owned by one alias. The empty
// owner is the anonymous bucket registered by Expr.
type columnBucket struct {
	owner  string
	prefix bool
	cols   []ColumnSpec
}

type orderPart struct {
	field     FieldRef
	direction string
}

type havingPart struct {
	expr   string
	values []any
}

// UnionPart is one UNION branch: a nested Select, pre-rendered SQL text, or
// a trusted raw fragment. Build one with USelect, USQL or URaw.
type UnionPart struct {
	sel   *Select
	raw   Raw
	text  string
	isRaw bool
}

// USelect wraps a Select as a union branch.
func USelect(q *Select) UnionPart { return UnionPart{sel: q} }

// USQL wraps pre-rendered SQL text as a union branch.
func USQL(text string) UnionPart { return UnionPart{text: text} }

// URaw wraps a trusted raw fragment as a union branch.
func URaw(r Raw) UnionPart { return UnionPart{raw: r, isRaw: true} }

type unionEntry struct {
	UnionPart
	kind string
}

// Select builds a SELECT statement: tables and joins, projected columns,
// WHERE and HAVING conditions, grouping, ordering, unions, and row limits.
// All methods return the receiver; the first error recorded sticks and is
// reported by Assemble. The zero value is not usable, use NewSelect.
type Select struct {
	dialect   Dialect
	err       error
	distinct  bool
	forUpdate bool
	hasLimit  bool
	limit     int
	offset    int
	hasOffset bool

	from    []*fromPart
	aliases map[string]*fromPart

	buckets   []columnBucket
	bucketSet map[string]bool

	where    predicateTree
	groups   []FieldRef
	groupSet map[string]bool
	having   []havingPart
	order    []orderPart
	unions   []unionEntry

	// bind values contributed by subquery table sources, in registration
	// order
	joinValues []any
}

// NewSelect creates an empty SELECT builder. When no dialect is given, the
// ANSI dialect is used.
func NewSelect(dialect ...Dialect) *Select {
	s := &Select{
		dialect:   ANSI(),
		aliases:   make(map[string]*fromPart),
		bucketSet: make(map[string]bool),
		groupSet:  make(map[string]bool),
	}
	if len(dialect) > 0 && dialect[0] != nil {
		s.dialect = dialect[0]
	}
	return s
}

// Dialect returns the dialect the builder renders with.
func (s *Select) Dialect() Dialect { return s.dialect }

func (s *Select) fail(format string, args ...any) *Select {
	if s.err == nil {
		s.err = errStatement(format, args...)
	}
	return s
}

// From adds a table to the FROM clause. Without explicit columns the
// table's wildcard is projected. From may be called several times; tables
// are comma-joined in registration order.
func (s *Select) From(table TableRef, cols ...ColumnSpec) *Select {
	return s.source(kindFrom, table, cols)
}

// Lateral adds a LATERAL subquery to the FROM clause.
func (s *Select) Lateral(sub *Select, alias string, cols ...ColumnSpec) *Select {
	return s.source(kindLateral, TSelect(sub, alias), cols)
}

func (s *Select) source(kind string, table TableRef, cols []ColumnSpec) *Select {
	if s.err != nil {
		return s
	}
	if len(s.unions) > 0 {
		return s.fail("%s: tables cannot be combined with UNION clauses", strings.ToLower(kind))
	}
	part, err := s.resolveTable(kind, table)
	if err != nil {
		s.err = err
		return s
	}
	s.from = append(s.from, part)
	s.aliases[part.alias] = part

	// default projection is the table wildcard; explicit wildcards are
	// also owner-qualified
	prefix := part.alias != part.name
	if len(cols) == 0 {
		cols = []ColumnSpec{Wildcard()}
		prefix = true
	} else {
		for _, c := range cols {
			if c.wild {
				prefix = true
			}
		}
	}
	return s.addBucket(part.alias, cols, prefix)
}

// resolveTable validates a table reference and assigns its alias. Derived
// tables without an explicit alias get a generated one.
func (s *Select) resolveTable(kind string, t TableRef) (*fromPart, error) {
	part := &fromPart{kind: kind, name: t.name, schema: t.schema, alias: t.alias}
	switch {
	case t.sub != nil:
		sql, vals, err := t.sub.build()
		if err != nil {
			return nil, err
		}
		part.name = ""
		part.raw = Raw(sql)
		s.joinValues = append(s.joinValues, vals...)
		if part.alias == "" {
			part.alias = s.nextAlias("t")
		}
	case t.isRaw:
		part.name = ""
		part.raw = t.raw
		if part.alias == "" {
			part.alias = s.nextAlias("t")
		}
	default:
		if t.name == "" {
			return nil, errStatement("%s: empty table name", strings.ToLower(kind))
		}
		if part.alias == "" {
			part.alias = s.nextAlias(t.name)
		}
	}
	if _, exists := s.aliases[part.alias]; exists {
		return nil, errStatement("%s: alias %q already exists", strings.ToLower(kind), part.alias)
	}
	return part, nil
}

// nextAlias derives a free alias from name by suffixing a counter.
func (s *Select) nextAlias(name string) string {
	alias := name
	for i := 2; ; i++ {
		if _, used := s.aliases[alias]; !used {
			return alias
		}
		alias = name + "_" + strconv.Itoa(i)
	}
}

func (s *Select) addBucket(owner string, cols []ColumnSpec, prefix bool) *Select {
	if s.bucketSet[owner] {
		if owner == "" {
			return s.fail("expr(): anonymous columns already registered")
		}
		return s.fail("columns for alias %q already registered", owner)
	}
	s.bucketSet[owner] = true
	s.buckets = append(s.buckets, columnBucket{owner: owner, prefix: prefix, cols: cols})
	return s
}

// Expr adds anonymous expressions to the projection, for statements without
// a table source (SELECT 1). Plain column specs are treated as raw
// expressions. Expr may be used once per statement.
func (s *Select) Expr(cols ...ColumnSpec) *Select {
	if s.err != nil {
		return s
	}
	if len(cols) == 0 {
		return s.fail("expr(): missing expressions")
	}
	converted := make([]ColumnSpec, len(cols))
	for i, c := range cols {
		if !c.isRaw && !c.wild {
			c = ColumnSpec{raw: Raw(c.name), alias: c.alias, isRaw: true}
		}
		converted[i] = c
	}
	return s.addBucket("", converted, false)
}

// JoinOn describes a join condition: either a trusted raw expression, or a
// comparison synthesized against an already registered table. Build one
// with On or OnRaw.
type JoinOn struct {
	field         string
	existing      string
	existingField string
	op            string
	schema        string
	raw           Raw
	isRaw         bool
}

// On synthesizes the condition existing.existingField <op> joined.field,
// where existing is the alias of a previously registered table. op defaults
// to "=".
func On(field, existing, existingField string, op ...string) JoinOn {
	o := JoinOn{field: field, existing: existing, existingField: existingField, op: "="}
	if len(op) > 0 {
		o.op = op[0]
	}
	return o
}

// OnRaw passes a trusted expression through as the complete ON clause.
func OnRaw(r Raw) JoinOn { return JoinOn{raw: r, isRaw: true} }

// Qualified returns a copy of the condition with the existing table's
// schema. The schema is dropped when the existing table is registered under
// an explicit alias, since the alias already disambiguates it.
func (o JoinOn) Qualified(schema string) JoinOn {
	o.schema = schema
	return o
}

// Join adds an INNER JOIN.
func (s *Select) Join(table TableRef, on JoinOn, cols ...ColumnSpec) *Select {
	return s.join(joinInner, table, on, cols)
}

// LeftJoin adds a LEFT JOIN.
func (s *Select) LeftJoin(table TableRef, on JoinOn, cols ...ColumnSpec) *Select {
	return s.join(joinLeft, table, on, cols)
}

// RightJoin adds a RIGHT JOIN.
func (s *Select) RightJoin(table TableRef, on JoinOn, cols ...ColumnSpec) *Select {
	return s.join(joinRight, table, on, cols)
}

// FullJoin adds a FULL OUTER JOIN.
func (s *Select) FullJoin(table TableRef, on JoinOn, cols ...ColumnSpec) *Select {
	return s.join(joinFull, table, on, cols)
}

// CrossJoin adds a CROSS JOIN; no condition is rendered.
func (s *Select) CrossJoin(table TableRef, cols ...ColumnSpec) *Select {
	return s.joinBare(joinCross, table, cols)
}

// NaturalJoin adds a NATURAL JOIN; no condition is rendered.
func (s *Select) NaturalJoin(table TableRef, cols ...ColumnSpec) *Select {
	return s.joinBare(joinNatural, table, cols)
}

// JoinLateral adds an INNER JOIN LATERAL against a subquery, with a trusted
// raw condition.
func (s *Select) JoinLateral(sub *Select, alias string, on Raw) *Select {
	return s.join(joinInnerLateral, TSelect(sub, alias), OnRaw(on), nil)
}

// LeftJoinLateral adds a LEFT JOIN LATERAL against a subquery, with a
// trusted raw condition.
func (s *Select) LeftJoinLateral(sub *Select, alias string, on Raw) *Select {
	return s.join(joinLeftLateral, TSelect(sub, alias), OnRaw(on), nil)
}

func (s *Select) join(kind string, table TableRef, on JoinOn, cols []ColumnSpec) *Select {
	if s.err != nil {
		return s
	}
	if len(s.unions) > 0 {
		return s.fail("join: tables cannot be combined with UNION clauses")
	}
	part, err := s.resolveTable(kind, table)
	if err != nil {
		s.err = err
		return s
	}
	switch {
	case on.isRaw:
		part.condRaw = on.raw
		part.hasCond = true
	case on.field != "":
		existing, ok := s.aliases[on.existing]
		if !ok {
			return s.fail("join: table %q not found", on.existing)
		}
		if on.existingField == "" {
			return s.fail("join: empty join field for table %q", on.existing)
		}
		schema := on.schema
		if existing.name != existing.alias {
			schema = ""
		}
		left := s.dialect.Field(FieldExpr{Name: on.existingField, Table: on.existing, Schema: schema})
		right := s.dialect.Field(FieldExpr{Name: on.field, Table: part.alias})
		part.cond = left + on.op + right
		part.hasCond = true
	default:
		return s.fail("join: missing join condition")
	}
	s.from = append(s.from, part)
	s.aliases[part.alias] = part
	// joined columns are only projected when asked for, and then always
	// owner-qualified
	return s.addBucket(part.alias, cols, len(cols) > 0)
}

func (s *Select) joinBare(kind string, table TableRef, cols []ColumnSpec) *Select {
	if s.err != nil {
		return s
	}
	if len(s.unions) > 0 {
		return s.fail("join: tables cannot be combined with UNION clauses")
	}
	part, err := s.resolveTable(kind, table)
	if err != nil {
		s.err = err
		return s
	}
	s.from = append(s.from, part)
	s.aliases[part.alias] = part
	return s.addBucket(part.alias, cols, len(cols) > 0)
}

// Where adds a WHERE condition, AND-joined with the previous condition. The
// value forms accepted are described on leafExpr: nil values render a bare
// operator, FieldRef and Raw values render inline, Select values render as
// subqueries, anything else binds a placeholder.
func (s *Select) Where(field FieldRef, op string, value any) *Select {
	return s.whereCond(glueAnd, field, op, value)
}

// OrWhere adds a WHERE condition, OR-joined with the previous condition.
func (s *Select) OrWhere(field FieldRef, op string, value any) *Select {
	return s.whereCond(glueOr, field, op, value)
}

func (s *Select) whereCond(glue string, field FieldRef, op string, value any) *Select {
	if s.err != nil {
		return s
	}
	expr, vals, err := leafExpr(s.dialect, field, op, value)
	if err != nil {
		s.err = err
		return s
	}
	s.where.leaf(glue, expr, vals)
	return s
}

// WhereAnd opens a parenthesized condition block, AND-joined with the
// previous condition. Close it with WhereEnd.
func (s *Select) WhereAnd() *Select {
	if s.err != nil {
		return s
	}
	s.where.open(glueAnd)
	return s
}

// WhereOr opens a parenthesized condition block, OR-joined with the
// previous condition. Close it with WhereEnd.
func (s *Select) WhereOr() *Select {
	if s.err != nil {
		return s
	}
	s.where.open(glueOr)
	return s
}

// WhereEnd closes the innermost condition block.
func (s *Select) WhereEnd() *Select {
	if s.err != nil {
		return s
	}
	if err := s.where.close(); err != nil {
		s.err = err
	}
	return s
}

// Group adds GROUP BY fields. Registering the same field twice is an error.
func (s *Select) Group(fields ...FieldRef) *Select {
	if s.err != nil {
		return s
	}
	for _, f := range fields {
		key := f.key()
		if key == "" {
			return s.fail("group(): invalid field reference")
		}
		if s.groupSet[key] {
			return s.fail("group(): duplicate field %q in GROUP BY clause", key)
		}
		s.groupSet[key] = true
		s.groups = append(s.groups, f)
	}
	return s
}

// Having adds a HAVING condition. Conditions are AND-joined and accept the
// same value forms as Where.
func (s *Select) Having(field FieldRef, op string, value any) *Select {
	if s.err != nil {
		return s
	}
	expr, vals, err := leafExpr(s.dialect, field, op, value)
	if err != nil {
		s.err = err
		return s
	}
	s.having = append(s.having, havingPart{expr: expr, values: vals})
	return s
}

// Order adds one ORDER BY field. Direction defaults to ascending.
func (s *Select) Order(field FieldRef, direction ...string) *Select {
	if s.err != nil {
		return s
	}
	dir := Asc
	if len(direction) > 0 {
		dir = strings.ToUpper(direction[0])
	}
	if dir != Asc && dir != Desc {
		return s.fail("order(): invalid sort direction %q", dir)
	}
	s.order = append(s.order, orderPart{field: field, direction: dir})
	return s
}

// OrderList adds several ORDER BY fields sharing one direction.
func (s *Select) OrderList(direction string, fields ...FieldRef) *Select {
	for _, f := range fields {
		s.Order(f, direction)
	}
	return s
}

// Union adds UNION branches. Union clauses replace the statement's own
// SELECT head; branch values are appended in branch order, before any other
// values.
func (s *Select) Union(branches ...UnionPart) *Select {
	return s.union(unionDistinct, branches)
}

// UnionAll adds UNION ALL branches.
func (s *Select) UnionAll(branches ...UnionPart) *Select {
	return s.union(unionAll, branches)
}

func (s *Select) union(kind string, branches []UnionPart) *Select {
	if s.err != nil {
		return s
	}
	if len(s.from) > 0 {
		return s.fail("union(): UNION clauses cannot be combined with tables")
	}
	for _, b := range branches {
		if b.sel == nil && !b.isRaw && b.text == "" {
			return s.fail("union(): empty union branch")
		}
		s.unions = append(s.unions, unionEntry{UnionPart: b, kind: kind})
	}
	return s
}

// Limit sets the row limit and an optional offset. A negative limit renders
// LIMIT ALL.
func (s *Select) Limit(limit int, offset ...int) *Select {
	if s.err != nil {
		return s
	}
	s.hasLimit = true
	s.limit = limit
	if len(offset) > 0 {
		s.hasOffset = true
		s.offset = offset[0]
	}
	return s
}

// Page sets limit and offset from a 1-based page number and a page size.
func (s *Select) Page(page, rows int) *Select {
	if s.err != nil {
		return s
	}
	if page < 1 {
		return s.fail("page(): page number must be >= 1")
	}
	if rows < 1 {
		return s.fail("page(): page size must be >= 1")
	}
	return s.Limit(rows, rows*(page-1))
}

// Distinct toggles the DISTINCT qualifier; it defaults to on when called
// without arguments.
func (s *Select) Distinct(flag ...bool) *Select {
	s.distinct = true
	if len(flag) > 0 {
		s.distinct = flag[0]
	}
	return s
}

// ForUpdate toggles the FOR UPDATE suffix; it defaults to on when called
// without arguments.
func (s *Select) ForUpdate(flag ...bool) *Select {
	s.forUpdate = true
	if len(flag) > 0 {
		s.forUpdate = flag[0]
	}
	return s
}

// Assemble renders the statement and its bind values. The builder is not
// modified; repeated calls return the same result.
func (s *Select) Assemble() (string, []any, error) {
	sql, values, err := s.build()
	if err != nil {
		return "", nil, err
	}
	return finalize(sql, s.dialect), values, nil
}

func (s *Select) build() (string, []any, error) {
	if s.err != nil {
		return "", nil, s.err
	}
	values := make([]any, 0, 8)
	parts := make([]string, 0, 8)

	if len(s.unions) == 0 {
		parts = append(parts, "SELECT")
		if s.distinct {
			parts = append(parts, "DISTINCT")
		}
		cols, err := s.renderColumns()
		if err != nil {
			return "", nil, err
		}
		if cols != "" {
			parts = append(parts, cols)
		}
	}

	if len(s.unions) > 0 {
		sql, err := s.renderUnion(&values)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
	} else if len(s.from) > 0 {
		parts = append(parts, s.renderFrom())
		values = append(values, s.joinValues...)
	}

	if !s.where.empty() {
		if !s.where.balanced() {
			return "", nil, errStatement("assemble(): unbalanced WHERE block; missing WhereEnd()")
		}
		var sb strings.Builder
		sb.WriteString("WHERE ")
		s.where.render(&sb, &values)
		parts = append(parts, sb.String())
	}

	if len(s.groups) > 0 {
		fields := make([]string, len(s.groups))
		for i, f := range s.groups {
			expr, err := f.render(s.dialect)
			if err != nil {
				return "", nil, err
			}
			fields[i] = expr
		}
		parts = append(parts, "GROUP BY "+strings.Join(fields, ","))
	}

	if len(s.having) > 0 {
		conds := make([]string, len(s.having))
		for i, h := range s.having {
			conds[i] = "(" + h.expr + ")"
			values = append(values, h.values...)
		}
		parts = append(parts, "HAVING "+strings.Join(conds, " AND "))
	}

	if len(s.order) > 0 {
		fields := make([]string, len(s.order))
		for i, o := range s.order {
			expr, err := o.field.render(s.dialect)
			if err != nil {
				return "", nil, err
			}
			fields[i] = expr + " " + o.direction
		}
		parts = append(parts, "ORDER BY "+strings.Join(fields, ","))
	}

	if s.hasLimit {
		parts = append(parts, s.renderLimit())
	}
	if s.forUpdate {
		parts = append(parts, "FOR UPDATE")
	}
	return strings.Join(parts, " "), values, nil
}

func (s *Select) renderColumns() (string, error) {
	var cols []string
	for _, b := range s.buckets {
		if len(b.cols) == 0 {
			continue
		}
		owner := ""
		if b.prefix {
			owner = b.owner
		}
		for _, c := range b.cols {
			switch {
			case c.isRaw:
				cols = append(cols, s.dialect.Field(FieldExpr{Raw: c.raw, Alias: c.alias}))
			case c.wild:
				cols = append(cols, s.dialect.Field(FieldExpr{Name: "*", Table: owner}))
			case c.name == "":
				return "", errStatement("select: empty column name")
			default:
				cols = append(cols, s.dialect.Field(FieldExpr{
					Name:  c.name,
					Table: owner,
					Cast:  c.cast,
					Alias: c.alias,
				}))
			}
		}
	}
	return strings.Join(cols, ","), nil
}

// renderFrom partitions registered sources into plain tables, LATERAL
// entries and joins: tables and laterals are comma-joined, joins follow.
func (s *Select) renderFrom() string {
	var tables, laterals, joins []string
	for _, p := range s.from {
		switch p.kind {
		case kindFrom:
			tables = append(tables, s.dialect.Table(s.tableExpr(p)))
		case kindLateral:
			laterals = append(laterals, "LATERAL "+s.dialect.Table(s.tableExpr(p)))
		default:
			stmt := p.kind + " " + s.dialect.Table(s.tableExpr(p))
			if p.hasCond {
				if p.condRaw != "" {
					stmt += " ON (" + string(p.condRaw) + ")"
				} else {
					stmt += " ON " + p.cond
				}
			}
			joins = append(joins, stmt)
		}
	}
	out := "FROM " + strings.Join(append(tables, laterals...), ", ")
	if len(joins) > 0 {
		out += " " + strings.Join(joins, " ")
	}
	return out
}

func (s *Select) tableExpr(p *fromPart) TableExpr {
	alias := ""
	if p.alias != p.name {
		alias = p.alias
	}
	return TableExpr{Raw: p.raw, Name: p.name, Schema: p.schema, Alias: alias}
}

// renderUnion joins the branches in registration order; the separator
// between two branches is the kind of the earlier one.
func (s *Select) renderUnion(values *[]any) (string, error) {
	parts := make([]string, 0, len(s.unions)*2)
	for i, u := range s.unions {
		var sql string
		switch {
		case u.sel != nil:
			var vals []any
			var err error
			sql, vals, err = u.sel.build()
			if err != nil {
				return "", err
			}
			*values = append(*values, vals...)
		case u.isRaw:
			sql = string(u.raw)
		default:
			sql = u.text
		}
		parts = append(parts, sql)
		if i < len(s.unions)-1 {
			parts = append(parts, u.kind)
		}
	}
	return strings.Join(parts, " "), nil
}

func (s *Select) renderLimit() string {
	out := "LIMIT "
	if s.limit < 0 {
		out += "ALL"
	} else {
		out += strconv.Itoa(s.limit)
	}
	if s.hasOffset {
		out += " OFFSET " + strconv.Itoa(s.offset)
	}
	return out
}
