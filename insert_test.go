package qb_test

import (
	"reflect"
	"testing"

	"github.com/oddbit-project/qb"
)

func TestInsertBasic(t *testing.T) {
	q := qb.NewInsert().
		Into(qb.T("users")).
		Fields("name", "email").
		Values("alice", "alice@example.com")
	checkSQL(t, q,
		`INSERT INTO "users" ("name", "email") VALUES (?, ?)`,
		[]any{"alice", "alice@example.com"})
}

func TestInsertSet(t *testing.T) {
	q := qb.NewInsert().Into(qb.T("users")).Set("name", "bob").Set("age", 40)
	checkSQL(t, q,
		`INSERT INTO "users" ("name", "age") VALUES (?, ?)`,
		[]any{"bob", 40})
}

func TestInsertValuesMapSorted(t *testing.T) {
	q := qb.NewInsert().Into(qb.T("users")).ValuesMap(map[string]any{
		"b": 2,
		"a": 1,
		"c": 3,
	})
	checkSQL(t, q,
		`INSERT INTO "users" ("a", "b", "c") VALUES (?, ?, ?)`,
		[]any{1, 2, 3})
}

func TestInsertSchema(t *testing.T) {
	q := qb.NewInsert().Into(qb.TSchema("public", "users")).Set("name", "x")
	checkSQL(t, q,
		`INSERT INTO "public"."users" ("name") VALUES (?)`,
		[]any{"x"})
}

func TestInsertRawValue(t *testing.T) {
	q := qb.NewInsert().
		Into(qb.T("users")).
		Set("name", "x").
		Set("created", qb.Raw("NOW()"))
	checkSQL(t, q,
		`INSERT INTO "users" ("name", "created") VALUES (?, NOW())`,
		[]any{"x"})
}

func TestInsertSubqueryValue(t *testing.T) {
	sub := qb.NewSelect().From(qb.T("roles"), qb.Col("id")).Where(qb.F("name"), "=", "admin")
	q := qb.NewInsert().
		Into(qb.T("users")).
		Set("name", "x").
		Set("role_id", sub)
	checkSQL(t, q,
		`INSERT INTO "users" ("name", "role_id") VALUES (?, (SELECT "id" FROM "roles" WHERE ("name" = ?)))`,
		[]any{"x", "admin"})
}

func TestInsertRecord(t *testing.T) {
	// the primary key column is dropped from the field list
	q := qb.NewInsert().Record(testUser{Name: "alice", Email: "a@example.com"})
	checkSQL(t, q,
		`INSERT INTO "users" ("email", "name") VALUES (?, ?)`,
		[]any{"a@example.com", "alice"})
}

func TestInsertReturning(t *testing.T) {
	q := qb.NewInsert().
		Into(qb.T("users")).
		Set("name", "x").
		Returning(qb.F("id"))
	checkSQL(t, q,
		`INSERT INTO "users" ("name") VALUES (?) RETURNING "id"`,
		[]any{"x"})
}

func TestInsertReturningMySQL(t *testing.T) {
	// single column requested without RETURNING support: the clause is
	// omitted so callers can fall back to the driver's last-insert id
	q := qb.NewInsert(qb.MySQL()).
		Into(qb.T("users")).
		Set("name", "x").
		Returning(qb.F("id"))
	checkSQL(t, q,
		"INSERT INTO `users` (`name`) VALUES (?)",
		[]any{"x"})

	q = qb.NewInsert(qb.MySQL()).
		Into(qb.T("users")).
		Set("name", "x").
		Returning(qb.F("id"), qb.F("name"))
	checkError(t, q)
}

func TestInsertPostgresPlaceholders(t *testing.T) {
	q := qb.NewInsert(qb.Postgres()).
		Into(qb.T("users")).
		Fields("name", "email").
		Values("a", "b").
		Returning(qb.F("id"))
	sql, values := mustAssemble(t, q)
	want := `INSERT INTO "users" ("name", "email") VALUES ($1, $2) RETURNING "id"`
	if sql != want {
		t.Errorf("Expected\n  %s\ngot\n  %s", want, sql)
	}
	if !reflect.DeepEqual(values, []any{"a", "b"}) {
		t.Errorf("Expected values [a b], got %v", values)
	}
}

func TestInsertErrors(t *testing.T) {
	// no table
	checkError(t, qb.NewInsert().Set("name", "x"))
	// no fields
	checkError(t, qb.NewInsert().Into(qb.T("users")))
	// field/value count mismatch
	checkError(t, qb.NewInsert().Into(qb.T("users")).Fields("a", "b").Values(1))
	// derived table target
	sub := qb.NewSelect().From(qb.T("x"))
	checkError(t, qb.NewInsert().Into(qb.TSelect(sub)).Set("a", 1))
	// nil subquery value
	checkError(t, qb.NewInsert().Into(qb.T("users")).Set("role_id", (*qb.Select)(nil)))
}
