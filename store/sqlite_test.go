package store

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE things (id INTEGER PRIMARY KEY, name TEXT UNIQUE)`)
	require.NoError(t, err)
	return db
}

func TestWithTxCommits(t *testing.T) {
	db := openTestDB(t)

	err := WithTx(db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO things(name) VALUES ('a')`)
		return err
	})
	require.NoError(t, err)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM things`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestWithTxRollsBack(t *testing.T) {
	db := openTestDB(t)

	boom := errors.New("boom")
	err := WithTx(db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO things(name) VALUES ('a')`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM things`).Scan(&n))
	assert.Equal(t, 0, n, "a failed transaction leaves no rows behind")
}

func TestMapError(t *testing.T) {
	db := openTestDB(t)

	assert.NoError(t, MapError(nil))
	assert.ErrorIs(t, MapError(sql.ErrNoRows), ErrNotFound)

	_, err := db.Exec(`INSERT INTO things(name) VALUES ('dup')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO things(name) VALUES ('dup')`)
	require.Error(t, err)
	assert.ErrorIs(t, MapError(err), ErrConflict)

	plain := errors.New("network down")
	assert.Equal(t, plain, MapError(plain))
}
