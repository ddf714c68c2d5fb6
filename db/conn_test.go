package db_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddbit-project/qb"
	"github.com/oddbit-project/qb/db"
)

func newMockConn(t *testing.T, dialect qb.Dialect) (*db.Conn, sqlmock.Sqlmock) {
	t.Helper()
	pool, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	conn := db.Wrap(pool, dialect)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		conn.Close()
	})
	return conn, mock
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := db.Open("oracle", "dsn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no dialect registered")
}

func TestConnBuilders(t *testing.T) {
	conn, _ := newMockConn(t, qb.Postgres())
	assert.Equal(t, "postgres", conn.Dialect().Name())

	sql, _, err := conn.Select().From(qb.T("users")).Where(qb.F("id"), "=", 1).Assemble()
	require.NoError(t, err)
	assert.Equal(t, `SELECT "users".* FROM "users" WHERE ("id" = $1)`, sql)

	sql, _, err = conn.Insert().Into(qb.T("users")).Set("name", "x").Assemble()
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "users" ("name") VALUES ($1)`, sql)
}

func TestConnQueryStatement(t *testing.T) {
	conn, mock := newMockConn(t, qb.ANSI())
	mock.ExpectQuery(`SELECT "users".* FROM "users" WHERE ("id" = ?)`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(5, "alice"))

	rows, err := conn.QueryStatement(context.Background(),
		conn.Select().From(qb.T("users")).Where(qb.F("id"), "=", 5))
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())
	var id int64
	var name string
	require.NoError(t, rows.Scan(&id, &name))
	assert.Equal(t, int64(5), id)
	assert.Equal(t, "alice", name)
}

func TestConnExecStatement(t *testing.T) {
	conn, mock := newMockConn(t, qb.ANSI())
	mock.ExpectExec(`UPDATE "users" SET "name"=? WHERE "id" = ?`).
		WithArgs("bob", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	res, err := conn.ExecStatement(context.Background(),
		conn.Update().Table(qb.T("users")).Set("name", "bob").Where(qb.F("id"), "=", 1))
	require.NoError(t, err)
	affected, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
}

func TestConnExecStatementBuildError(t *testing.T) {
	conn, _ := newMockConn(t, qb.ANSI())
	_, err := conn.ExecStatement(context.Background(), conn.Delete().From(qb.T("users")))
	require.Error(t, err)
	assert.True(t, qb.IsStatementError(err))
}
