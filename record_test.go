package qb_test

import (
	"testing"

	"github.com/oddbit-project/qb"
)

type testUser struct {
	ID    int64
	Name  string
	Email string
}

func (testUser) TableName() string  { return "users" }
func (testUser) SchemaName() string { return "" }
func (testUser) PrimaryKey() string { return "id" }

func (u testUser) FieldValues() map[string]any {
	return map[string]any{
		"id":    u.ID,
		"name":  u.Name,
		"email": u.Email,
	}
}

type testDocument struct {
	ID    int64
	Title string
}

func (testDocument) TableName() string  { return "documents" }
func (testDocument) SchemaName() string { return "archive" }
func (testDocument) PrimaryKey() string { return "id_document" }

func (d testDocument) FieldValues() map[string]any {
	return map[string]any{
		"id_document": d.ID,
		"title":       d.Title,
	}
}

func TestTableSpec(t *testing.T) {
	spec := qb.TableSpec{Table: "users", Schema: "public", PK: "id"}
	if spec.TableName() != "users" {
		t.Errorf("Expected table 'users', got %q", spec.TableName())
	}
	if spec.SchemaName() != "public" {
		t.Errorf("Expected schema 'public', got %q", spec.SchemaName())
	}
	if spec.PrimaryKey() != "id" {
		t.Errorf("Expected primary key 'id', got %q", spec.PrimaryKey())
	}
}

func TestRecordQualifiedField(t *testing.T) {
	q := qb.NewSelect().
		From(qb.TRecord(testDocument{})).
		Where(qb.FRecord(testDocument{}, "title"), "=", "x")
	checkSQL(t, q,
		`SELECT "documents".* FROM "archive"."documents" WHERE ("archive"."documents"."title" = ?)`,
		[]any{"x"})
}
