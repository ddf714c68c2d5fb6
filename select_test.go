package qb_test

import (
	"reflect"
	"testing"

	"github.com/oddbit-project/qb"
)

func mustAssemble(t *testing.T, st qb.Statement) (string, []any) {
	t.Helper()
	sql, values, err := st.Assemble()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	return sql, values
}

func checkSQL(t *testing.T, st qb.Statement, wantSQL string, wantValues []any) {
	t.Helper()
	sql, values, err := st.Assemble()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if sql != wantSQL {
		t.Errorf("Expected SQL\n  %s\ngot\n  %s", wantSQL, sql)
	}
	if len(wantValues) == 0 {
		if len(values) != 0 {
			t.Errorf("Expected no values, got %v", values)
		}
		return
	}
	if !reflect.DeepEqual(values, wantValues) {
		t.Errorf("Expected values %v, got %v", wantValues, values)
	}
}

func checkError(t *testing.T, st qb.Statement) {
	t.Helper()
	_, _, err := st.Assemble()
	if err == nil {
		t.Fatal("Expected an error, got none")
	}
	if !qb.IsStatementError(err) {
		t.Errorf("Expected a StatementError, got %T: %v", err, err)
	}
}

func TestSelectSimple(t *testing.T) {
	q := qb.NewSelect().From(qb.T("users")).Where(qb.F("id"), "=", 5)
	checkSQL(t, q,
		`SELECT "users".* FROM "users" WHERE ("id" = ?)`,
		[]any{5})
}

func TestSelectColumns(t *testing.T) {
	q := qb.NewSelect().From(qb.T("users"), qb.Col("id"), qb.ColAs("name", "username"))
	checkSQL(t, q,
		`SELECT "id","name" AS "username" FROM "users"`, nil)
}

func TestSelectAliasedTable(t *testing.T) {
	q := qb.NewSelect().From(qb.T("users", "u"), qb.Col("id"))
	checkSQL(t, q,
		`SELECT "u"."id" FROM "users" AS "u"`, nil)
}

func TestSelectSchema(t *testing.T) {
	q := qb.NewSelect().From(qb.TSchema("public", "users"))
	checkSQL(t, q,
		`SELECT "users".* FROM "public"."users"`, nil)
}

func TestSelectDistinct(t *testing.T) {
	q := qb.NewSelect().Distinct().From(qb.T("users"), qb.Col("country"))
	checkSQL(t, q,
		`SELECT DISTINCT "country" FROM "users"`, nil)
}

func TestSelectExpr(t *testing.T) {
	q := qb.NewSelect().Expr(qb.Col("1"))
	checkSQL(t, q, `SELECT 1`, nil)

	q = qb.NewSelect().Expr(qb.ColRaw(qb.Raw("COUNT(*)"), "total")).From(qb.T("users"), qb.Col("id"))
	checkSQL(t, q, `SELECT COUNT(*) AS "total","id" FROM "users"`, nil)
}

func TestSelectExprTwice(t *testing.T) {
	q := qb.NewSelect().Expr(qb.Col("1")).Expr(qb.Col("2"))
	checkError(t, q)
}

func TestSelectJoin(t *testing.T) {
	q := qb.NewSelect().
		From(qb.T("t1", "a")).
		Join(qb.T("t2", "b"), qb.On("id", "a", "t2_id"))
	checkSQL(t, q,
		`SELECT "a".* FROM "t1" AS "a" INNER JOIN "t2" AS "b" ON "a"."t2_id"="b"."id"`, nil)
}

func TestSelectJoinColumns(t *testing.T) {
	q := qb.NewSelect().
		From(qb.T("orders", "o"), qb.Col("id")).
		LeftJoin(qb.T("users", "u"), qb.On("id", "o", "user_id"), qb.Col("name"))
	checkSQL(t, q,
		`SELECT "o"."id","u"."name" FROM "orders" AS "o" LEFT JOIN "users" AS "u" ON "o"."user_id"="u"."id"`, nil)
}

func TestSelectJoinOperator(t *testing.T) {
	q := qb.NewSelect().
		From(qb.T("a")).
		Join(qb.T("b"), qb.On("x", "a", "y", ">="))
	checkSQL(t, q,
		`SELECT "a".* FROM "a" INNER JOIN "b" ON "a"."y">="b"."x"`, nil)
}

func TestSelectJoinRaw(t *testing.T) {
	q := qb.NewSelect().
		From(qb.T("t1", "a")).
		Join(qb.T("t2", "b"), qb.OnRaw(qb.Raw("a.id = b.a_id AND b.active")))
	checkSQL(t, q,
		`SELECT "a".* FROM "t1" AS "a" INNER JOIN "t2" AS "b" ON (a.id = b.a_id AND b.active)`, nil)
}

func TestSelectJoinUnknownAlias(t *testing.T) {
	q := qb.NewSelect().
		From(qb.T("t1", "a")).
		Join(qb.T("t2", "b"), qb.On("id", "missing", "t2_id"))
	checkError(t, q)
}

func TestSelectCrossJoin(t *testing.T) {
	q := qb.NewSelect().From(qb.T("a")).CrossJoin(qb.T("b"))
	checkSQL(t, q, `SELECT "a".* FROM "a" CROSS JOIN "b"`, nil)
}

func TestSelectDuplicateAlias(t *testing.T) {
	q := qb.NewSelect().From(qb.T("t1", "x")).From(qb.T("t2", "x"))
	checkError(t, q)
}

func TestSelectAutoAlias(t *testing.T) {
	q := qb.NewSelect().From(qb.T("users")).From(qb.T("users"))
	checkSQL(t, q,
		`SELECT "users".*,"users_2".* FROM "users", "users" AS "users_2"`, nil)
}

func TestSelectSubqueryTable(t *testing.T) {
	sub := qb.NewSelect().From(qb.T("logs")).Where(qb.F("level"), "=", "error")
	q := qb.NewSelect().From(qb.TSelect(sub))
	checkSQL(t, q,
		`SELECT "t".* FROM (SELECT "logs".* FROM "logs" WHERE ("level" = ?)) AS "t"`,
		[]any{"error"})
}

func TestSelectSubqueryAutoAliases(t *testing.T) {
	a := qb.NewSelect().From(qb.T("x"))
	b := qb.NewSelect().From(qb.T("y"))
	q := qb.NewSelect().From(qb.TSelect(a)).From(qb.TSelect(b))
	checkSQL(t, q,
		`SELECT "t".*,"t_2".* FROM (SELECT "x".* FROM "x") AS "t", (SELECT "y".* FROM "y") AS "t_2"`, nil)
}

func TestSelectLateral(t *testing.T) {
	sub := qb.NewSelect().From(qb.T("events"))
	q := qb.NewSelect().From(qb.T("users", "u")).Lateral(sub, "e")
	checkSQL(t, q,
		`SELECT "u".*,"e".* FROM "users" AS "u", LATERAL (SELECT "events".* FROM "events") AS "e"`, nil)
}

func TestSelectJoinLateral(t *testing.T) {
	sub := qb.NewSelect().From(qb.T("events"), qb.Col("id"))
	q := qb.NewSelect().
		From(qb.T("users", "u")).
		JoinLateral(sub, "e", qb.Raw("e.user_id = u.id"))
	checkSQL(t, q,
		`SELECT "u".* FROM "users" AS "u" INNER JOIN LATERAL (SELECT "id" FROM "events") AS "e" ON (e.user_id = u.id)`, nil)
}

func TestSelectWhereValuePolicy(t *testing.T) {
	// nil value and bare operator
	checkSQL(t,
		qb.NewSelect().From(qb.T("users")).Where(qb.F("deleted"), "IS NULL", nil),
		`SELECT "users".* FROM "users" WHERE ("deleted" IS NULL)`, nil)

	// raw value renders inline with no bind
	checkSQL(t,
		qb.NewSelect().From(qb.T("users")).Where(qb.F("created"), ">", qb.Raw("NOW()")),
		`SELECT "users".* FROM "users" WHERE ("created" > NOW())`, nil)

	// field-to-field comparison with no bind
	checkSQL(t,
		qb.NewSelect().From(qb.T("users")).Where(qb.F("updated"), ">", qb.F("created")),
		`SELECT "users".* FROM "users" WHERE ("updated" > "created")`, nil)

	// raw field on the left side
	checkSQL(t,
		qb.NewSelect().From(qb.T("users")).Where(qb.FRaw(qb.Raw("LOWER(name)")), "=", "bob"),
		`SELECT "users".* FROM "users" WHERE (LOWER(name) = ?)`, []any{"bob"})
}

func TestSelectWhereSubquery(t *testing.T) {
	sub := qb.NewSelect().From(qb.T("roles"), qb.Col("id")).Where(qb.F("admin"), "=", true)
	q := qb.NewSelect().
		From(qb.T("users")).
		Where(qb.F("role_id"), "IN", sub).
		Where(qb.F("active"), "=", true)
	checkSQL(t, q,
		`SELECT "users".* FROM "users" WHERE ("role_id" IN (SELECT "id" FROM "roles" WHERE ("admin" = ?))) AND ("active" = ?)`,
		[]any{true, true})
}

func TestSelectWhereGroups(t *testing.T) {
	q := qb.NewSelect().
		From(qb.T("users")).
		Where(qb.F("a"), "=", 1).
		WhereOr().
		Where(qb.F("b"), "=", 2).
		OrWhere(qb.F("c"), "=", 3).
		WhereEnd()
	checkSQL(t, q,
		`SELECT "users".* FROM "users" WHERE ("a" = ?) OR (("b" = ?) OR ("c" = ?))`,
		[]any{1, 2, 3})
}

func TestSelectWhereNestedGroups(t *testing.T) {
	q := qb.NewSelect().
		From(qb.T("users")).
		WhereAnd().
		Where(qb.F("a"), "=", 1).
		WhereOr().
		Where(qb.F("b"), "=", 2).
		WhereEnd().
		WhereEnd()
	checkSQL(t, q,
		`SELECT "users".* FROM "users" WHERE (("a" = ?) OR (("b" = ?)))`,
		[]any{1, 2})
}

func TestSelectWhereUnbalanced(t *testing.T) {
	q := qb.NewSelect().From(qb.T("users")).WhereAnd().Where(qb.F("a"), "=", 1)
	checkError(t, q)

	q = qb.NewSelect().From(qb.T("users")).Where(qb.F("a"), "=", 1).WhereEnd()
	checkError(t, q)
}

func TestSelectGroupHaving(t *testing.T) {
	q := qb.NewSelect().
		From(qb.T("sales"), qb.Col("region"), qb.ColRaw(qb.Raw("SUM(amount)"), "total")).
		Group(qb.F("region")).
		Having(qb.FRaw(qb.Raw("SUM(amount)")), ">", 1000)
	checkSQL(t, q,
		`SELECT "region",SUM(amount) AS "total" FROM "sales" GROUP BY "region" HAVING (SUM(amount) > ?)`,
		[]any{1000})
}

func TestSelectGroupDuplicate(t *testing.T) {
	q := qb.NewSelect().From(qb.T("sales")).Group(qb.F("region"), qb.F("region"))
	checkError(t, q)
}

func TestSelectHavingMultiple(t *testing.T) {
	q := qb.NewSelect().
		From(qb.T("sales"), qb.Col("region")).
		Group(qb.F("region")).
		Having(qb.FRaw(qb.Raw("SUM(amount)")), ">", 10).
		Having(qb.FRaw(qb.Raw("COUNT(*)")), ">", 2)
	checkSQL(t, q,
		`SELECT "region" FROM "sales" GROUP BY "region" HAVING (SUM(amount) > ?) AND (COUNT(*) > ?)`,
		[]any{10, 2})
}

func TestSelectOrder(t *testing.T) {
	q := qb.NewSelect().From(qb.T("users")).Order(qb.F("name")).Order(qb.F("id"), qb.Desc)
	checkSQL(t, q,
		`SELECT "users".* FROM "users" ORDER BY "name" ASC,"id" DESC`, nil)
}

func TestSelectOrderList(t *testing.T) {
	q := qb.NewSelect().From(qb.T("users")).OrderList(qb.Desc, qb.F("a"), qb.F("b"))
	checkSQL(t, q,
		`SELECT "users".* FROM "users" ORDER BY "a" DESC,"b" DESC`, nil)
}

func TestSelectOrderInvalidDirection(t *testing.T) {
	q := qb.NewSelect().From(qb.T("users")).Order(qb.F("name"), "SIDEWAYS")
	checkError(t, q)
}

func TestSelectLimit(t *testing.T) {
	checkSQL(t,
		qb.NewSelect().From(qb.T("users")).Limit(10),
		`SELECT "users".* FROM "users" LIMIT 10`, nil)

	checkSQL(t,
		qb.NewSelect().From(qb.T("users")).Limit(10, 20),
		`SELECT "users".* FROM "users" LIMIT 10 OFFSET 20`, nil)

	// negative limit removes the cap but keeps the offset
	checkSQL(t,
		qb.NewSelect().From(qb.T("users")).Limit(-1, 10),
		`SELECT "users".* FROM "users" LIMIT ALL OFFSET 10`, nil)
}

func TestSelectPage(t *testing.T) {
	want, _ := mustAssemble(t, qb.NewSelect().From(qb.T("users")).Limit(25, 50))
	got, _ := mustAssemble(t, qb.NewSelect().From(qb.T("users")).Page(3, 25))
	if got != want {
		t.Errorf("Expected Page(3, 25) to equal Limit(25, 50): %s != %s", got, want)
	}

	checkError(t, qb.NewSelect().From(qb.T("users")).Page(0, 10))
	checkError(t, qb.NewSelect().From(qb.T("users")).Page(1, 0))
}

func TestSelectForUpdate(t *testing.T) {
	q := qb.NewSelect().From(qb.T("jobs")).Where(qb.F("state"), "=", "ready").ForUpdate()
	checkSQL(t, q,
		`SELECT "jobs".* FROM "jobs" WHERE ("state" = ?) FOR UPDATE`,
		[]any{"ready"})
}

func TestSelectUnion(t *testing.T) {
	a := qb.NewSelect().From(qb.T("t1")).Where(qb.F("x"), "=", 1)
	b := qb.NewSelect().From(qb.T("t2")).Where(qb.F("y"), "=", 2)
	q := qb.NewSelect().Union(qb.USelect(a), qb.USelect(b)).Order(qb.F("x"))
	checkSQL(t, q,
		`SELECT "t1".* FROM "t1" WHERE ("x" = ?) UNION SELECT "t2".* FROM "t2" WHERE ("y" = ?) ORDER BY "x" ASC`,
		[]any{1, 2})
}

func TestSelectUnionAllMixedBranches(t *testing.T) {
	a := qb.NewSelect().From(qb.T("t1"))
	q := qb.NewSelect().UnionAll(qb.USelect(a), qb.USQL(`SELECT * FROM archive`))
	checkSQL(t, q,
		`SELECT "t1".* FROM "t1" UNION ALL SELECT * FROM archive`, nil)
}

func TestSelectUnionAfterFrom(t *testing.T) {
	a := qb.NewSelect().From(qb.T("t1"))
	q := qb.NewSelect().Union(qb.USelect(a)).From(qb.T("t2"))
	checkError(t, q)
}

func TestSelectFromThenUnion(t *testing.T) {
	sub := qb.NewSelect().From(qb.T("t1")).Where(qb.F("a"), "=", 1)
	a := qb.NewSelect().From(qb.T("t3"))
	q := qb.NewSelect().From(qb.TSelect(sub, "s")).Union(qb.USelect(a))
	checkError(t, q)
}

func TestSelectValueOrdering(t *testing.T) {
	// subquery table binds come before WHERE binds, HAVING binds last
	sub := qb.NewSelect().From(qb.T("logs")).Where(qb.F("level"), "=", "a")
	q := qb.NewSelect().
		From(qb.TSelect(sub, "s"), qb.Col("x")).
		Where(qb.F("x"), "=", "b").
		Group(qb.F("x")).
		Having(qb.FRaw(qb.Raw("COUNT(*)")), ">", "c")
	_, values := mustAssemble(t, q)
	if !reflect.DeepEqual(values, []any{"a", "b", "c"}) {
		t.Errorf("Expected values [a b c], got %v", values)
	}
}

func TestSelectAssembleIdempotent(t *testing.T) {
	q := qb.NewSelect().From(qb.T("users")).Where(qb.F("id"), "=", 5)
	first, firstValues := mustAssemble(t, q)
	second, secondValues := mustAssemble(t, q)
	if first != second {
		t.Errorf("Expected identical SQL, got %q and %q", first, second)
	}
	if !reflect.DeepEqual(firstValues, secondValues) {
		t.Errorf("Expected identical values, got %v and %v", firstValues, secondValues)
	}
}

func TestSelectPostgresPlaceholders(t *testing.T) {
	q := qb.NewSelect(qb.Postgres()).
		From(qb.T("users")).
		Where(qb.F("a"), "=", 1).
		OrWhere(qb.F("b"), "=", 2)
	checkSQL(t, q,
		`SELECT "users".* FROM "users" WHERE ("a" = $1) OR ("b" = $2)`,
		[]any{1, 2})
}

func TestSelectPostgresRawQuestionMark(t *testing.T) {
	q := qb.NewSelect(qb.Postgres()).
		From(qb.T("items")).
		Where(qb.FRaw(qb.Raw("tags ? 'go'")), "", nil).
		Where(qb.F("id"), "=", 5)
	checkSQL(t, q,
		`SELECT "items".* FROM "items" WHERE (tags ? 'go') AND ("id" = $1)`,
		[]any{5})
}

func TestSelectPostgresSubqueryNumbering(t *testing.T) {
	sub := qb.NewSelect(qb.Postgres()).From(qb.T("roles"), qb.Col("id")).Where(qb.F("admin"), "=", true)
	q := qb.NewSelect(qb.Postgres()).
		From(qb.T("users")).
		Where(qb.F("role_id"), "IN", sub).
		Where(qb.F("active"), "=", true)
	sql, _ := mustAssemble(t, q)
	want := `SELECT "users".* FROM "users" WHERE ("role_id" IN (SELECT "id" FROM "roles" WHERE ("admin" = $1))) AND ("active" = $2)`
	if sql != want {
		t.Errorf("Expected\n  %s\ngot\n  %s", want, sql)
	}
}

func TestSelectCast(t *testing.T) {
	checkSQL(t,
		qb.NewSelect().From(qb.T("users"), qb.ColCast("id", "text", "id_text")),
		`SELECT CAST("id" AS text) AS "id_text" FROM "users"`, nil)

	checkSQL(t,
		qb.NewSelect(qb.Postgres()).From(qb.T("users"), qb.ColCast("id", "text", "id_text")),
		`SELECT "id"::text AS "id_text" FROM "users"`, nil)
}

func TestSelectMySQLQuoting(t *testing.T) {
	q := qb.NewSelect(qb.MySQL()).From(qb.T("users")).Where(qb.F("id"), "=", 1)
	checkSQL(t, q,
		"SELECT `users`.* FROM `users` WHERE (`id` = ?)",
		[]any{1})
}

func TestSelectRecordTable(t *testing.T) {
	q := qb.NewSelect().From(qb.TRecord(testUser{}))
	checkSQL(t, q, `SELECT "users".* FROM "users"`, nil)
}

func TestSelectErrorSticks(t *testing.T) {
	q := qb.NewSelect().Page(0, 10).From(qb.T("users")).Where(qb.F("id"), "=", 1)
	checkError(t, q)
}

func TestSelectWhereNilSubquery(t *testing.T) {
	q := qb.NewSelect().From(qb.T("users")).Where(qb.F("b"), "IN", (*qb.Select)(nil))
	checkError(t, q)
}
