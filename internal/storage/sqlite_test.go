package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempSQLite(t *testing.T) *SQLite {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "palacebot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLite_WriteReadOverwrite(t *testing.T) {
	s := tempSQLite(t)
	require.NoError(t, s.Write("ledger.json", []byte("v1")))
	require.NoError(t, s.Write("ledger.json", []byte("v2")))

	got, err := s.Read("ledger.json")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))
}

func TestSQLite_ReadMissingIsNotExist(t *testing.T) {
	s := tempSQLite(t)
	_, err := s.Read("nope")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSQLite_CreatesMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "palacebot.db")
	db, err := OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()
	assert.FileExists(t, path)
}
