package kv

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// a second pooled connection would see a different :memory: database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE kv (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);`)
	require.NoError(t, err)
	return db
}

func TestSQLiteStore_Contract(t *testing.T) {
	runContract(t, func(t *testing.T) Store { return NewSQLiteStore(setupDB(t)) })
}

func TestSQLiteStore_SetNilValueStoresEmpty(t *testing.T) {
	r := NewSQLiteStore(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k", nil))

	v, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.NotNil(t, v)
	assert.Empty(t, v)
}

func TestSQLiteStore_GetDBErrorWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteStore(db)
	require.NoError(t, db.Close())

	v, err := r.Get(context.Background(), "k")
	require.Error(t, err)
	require.Nil(t, v)
	require.Contains(t, err.Error(), "failed to get kv[k]")
}

func TestSQLiteStore_SetDBErrorWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteStore(db)
	require.NoError(t, db.Close())

	err := r.Set(context.Background(), "k", []byte("v"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to set kv[k]")
}

func TestSQLiteStore_KeysDBErrorWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteStore(db)
	require.NoError(t, db.Close())

	_, err := r.Keys(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to list kv keys")
}

func TestSQLiteStore_DeleteManyRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("disk I/O error")
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM kv WHERE key = \?`).WithArgs("a").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM kv WHERE key = \?`).WithArgs("b").WillReturnError(boom)
	mock.ExpectRollback()

	err = NewSQLiteStore(db).DeleteMany(context.Background(), "a", "b")
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "failed to delete 2 kv keys")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStore_DeleteManyCommits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM kv WHERE key = \?`).WithArgs("a").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewSQLiteStore(db).DeleteMany(context.Background(), "a"))
	require.NoError(t, mock.ExpectationsWereMet())
}
