package qb

// Record exposes the table metadata attached to a persisted record type.
// SchemaName and PrimaryKey may return "" when the record has no schema or
// no primary key.
type Record interface {
	TableName() string
	SchemaName() string
	PrimaryKey() string
}

// FieldValuer exports a record's column/value pairs for INSERT and UPDATE
// statements. The returned map is owned by the caller and may be modified.
type FieldValuer interface {
	FieldValues() map[string]any
}

// TableSpec is a ready-made Record for types that prefer embedding over
// hand-written accessors.
type TableSpec struct {
	Table  string
	Schema string
	PK     string
}

func (t TableSpec) TableName() string  { return t.Table }
func (t TableSpec) SchemaName() string { return t.Schema }
func (t TableSpec) PrimaryKey() string { return t.PK }
