package sqlitebind

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenExecQueryRoundTrip(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT)", nil)
	require.NoError(t, err)

	res, err := db.Exec("INSERT INTO items (name) VALUES (?1)", []any{"widget"})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Changes)
	require.Equal(t, int64(1), res.LastInsertID)

	sel, err := db.Exec("SELECT id, name FROM items WHERE name = ?1", []any{"widget"})
	require.NoError(t, err)
	require.Equal(t, []string{"id", "name"}, sel.Columns)
	require.Len(t, sel.Rows, 1)
	require.Equal(t, int64(1), sel.Rows[0][0])
	require.Equal(t, "widget", sel.Rows[0][1])
}

func TestPlaceholderFormatting(t *testing.T) {
	require.Equal(t, "?1", Placeholder(1))
	require.Equal(t, "?3", Placeholder(3))
}
