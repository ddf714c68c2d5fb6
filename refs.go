package qb

// TableRef identifies a table source: a plain or aliased name, a
// schema-qualified name, a record descriptor, a nested subquery, or a
// trusted raw fragment. Build one with T, TSchema, TRecord, TSelect or
// TRaw.
type TableRef struct {
	name   string
	schema string
	alias  string
	raw    Raw
	sub    *Select
	isRaw  bool
}

// T references a table by name, with an optional alias.
func T(name string, alias ...string) TableRef {
	t := TableRef{name: name}
	if len(alias) > 0 {
		t.alias = alias[0]
	}
	return t
}

// TSchema references a schema-qualified table, with an optional alias.
func TSchema(schema, name string, alias ...string) TableRef {
	t := T(name, alias...)
	t.schema = schema
	return t
}

// TRecord references the table described by a record descriptor.
func TRecord(r Record, alias ...string) TableRef {
	t := T(r.TableName(), alias...)
	t.schema = r.SchemaName()
	return t
}

// TSelect references a subquery as a derived table. When alias is omitted,
// one is generated at registration time ("t", "t_2", ...).
func TSelect(sub *Select, alias ...string) TableRef {
	t := TableRef{sub: sub}
	if len(alias) > 0 {
		t.alias = alias[0]
	}
	return t
}

// TRaw references a trusted raw fragment as a table source. The fragment is
// rendered in parenthesis, like a subquery.
func TRaw(r Raw, alias ...string) TableRef {
	t := TableRef{raw: r, isRaw: true}
	if len(alias) > 0 {
		t.alias = alias[0]
	}
	return t
}

// ColumnSpec is one projected column: a wildcard, a plain or aliased field,
// a cast expression, or a raw fragment. Build one with Wildcard, Col,
// ColAs, ColCast or ColRaw.
type ColumnSpec struct {
	name  string
	alias string
	cast  string
	raw   Raw
	isRaw bool
	wild  bool
}

// Wildcard projects all columns of the owning table.
func Wildcard() ColumnSpec { return ColumnSpec{wild: true} }

// Col projects a single named column.
func Col(name string) ColumnSpec {
	if name == "*" {
		return Wildcard()
	}
	return ColumnSpec{name: name}
}

// ColAs projects a named column under an alias.
func ColAs(name, alias string) ColumnSpec {
	c := Col(name)
	c.alias = alias
	return c
}

// ColCast projects a named column cast to typ, with an optional alias.
func ColCast(name, typ string, alias ...string) ColumnSpec {
	c := Col(name)
	c.cast = typ
	if len(alias) > 0 {
		c.alias = alias[0]
	}
	return c
}

// ColRaw projects a trusted raw expression, with an optional alias. The
// expression is never quoted or qualified.
func ColRaw(r Raw, alias ...string) ColumnSpec {
	c := ColumnSpec{raw: r, isRaw: true}
	if len(alias) > 0 {
		c.alias = alias[0]
	}
	return c
}

// FieldRef identifies a field inside WHERE, HAVING, ORDER or GROUP clauses:
// a bare name, a table- or schema-qualified name, a descriptor field, or a
// trusted raw expression. Build one with F, FT, FQ, FRecord or FRaw.
type FieldRef struct {
	name   string
	table  string
	schema string
	raw    Raw
	isRaw  bool
}

// F references a field by bare name.
func F(name string) FieldRef { return FieldRef{name: name} }

// FT references a table-qualified field.
func FT(table, field string) FieldRef { return FieldRef{name: field, table: table} }

// FQ references a schema- and table-qualified field.
func FQ(schema, table, field string) FieldRef {
	return FieldRef{name: field, table: table, schema: schema}
}

// FRecord references a field qualified with a record descriptor's table.
func FRecord(r Record, field string) FieldRef {
	return FieldRef{name: field, table: r.TableName(), schema: r.SchemaName()}
}

// FRaw references a trusted raw expression.
func FRaw(r Raw) FieldRef { return FieldRef{raw: r, isRaw: true} }

// render produces the dialect form of the reference without alias or cast.
func (f FieldRef) render(d Dialect) (string, error) {
	if f.isRaw {
		return string(f.raw), nil
	}
	if f.name == "" {
		return "", errStatement("invalid field reference: empty name")
	}
	return d.Field(FieldExpr{Name: f.name, Table: f.table, Schema: f.schema}), nil
}

// key returns a stable identity used for duplicate detection.
func (f FieldRef) key() string {
	if f.isRaw {
		return string(f.raw)
	}
	out := f.name
	if f.table != "" {
		out = f.table + "." + out
	}
	if f.schema != "" {
		out = f.schema + "." + out
	}
	return out
}
