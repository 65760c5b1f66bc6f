package configlibsql

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenDB(t *testing.T) {
	_, err := Struct{}.OpenDB()
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "journal.db")
	db, err := Struct{File: file}.OpenDB()
	require.NoError(t, err)
	defer db.Close()
	require.FileExists(t, file)

	_, err = db.Exec("create table t (x integer)")
	require.NoError(t, err)

	mem, err := Struct{File: ":memory:"}.OpenDB()
	require.NoError(t, err)
	defer mem.Close()
	require.NoError(t, mem.Ping())
}
