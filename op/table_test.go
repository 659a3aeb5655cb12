package op

import (
	"encoding/json"
	"testing"

	"github.com/nickyhof/TableDB/core"
	"github.com/nickyhof/TableDB/ps"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTable(t *testing.T) *TableOp {
	t.Helper()
	store := ps.NewStore(ps.NewMemoryBackend())

	tableOp, err := CreateTable("users", []string{"name", "age"}, store)
	require.NoError(t, err)
	return tableOp
}

func TestInsertReconcilesSchema(t *testing.T) {
	tableOp := setupTable(t)

	tests := []struct {
		name  string
		input core.Row
		want  core.Row
	}{
		{"exact", core.Row{"name": "Alice", "age": 30}, core.Row{"name": "Alice", "age": 30}},
		{"missing column", core.Row{"name": "Charlie"}, core.Row{"name": "Charlie", "age": nil}},
		{"extra key", core.Row{"name": "Dan", "age": 1, "email": "d@x"}, core.Row{"name": "Dan", "age": 1}},
		{"empty", core.Row{}, core.Row{"name": nil, "age": nil}},
		{"nil", nil, core.Row{"name": nil, "age": nil}},
		{"explicit null", core.Row{"age": nil}, core.Row{"name": nil, "age": nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tableOp.Insert(tt.input))
		})
	}
	assert.Len(t, tableOp.Document.Rows, len(tests))
}

func TestInsertDoesNotAliasInput(t *testing.T) {
	tableOp := setupTable(t)
	input := core.Row{"name": "Alice", "age": 30}

	tableOp.Insert(input)
	input["name"] = "Mallory"

	assert.Equal(t, "Alice", tableOp.Document.Rows[0]["name"])
}

func TestSelectKeepsOrder(t *testing.T) {
	tableOp := setupTable(t)
	tableOp.Insert(core.Row{"name": "Alice", "age": 30})
	tableOp.Insert(core.Row{"name": "Bob", "age": 40})
	tableOp.Insert(core.Row{"name": "Charlie", "age": 50})

	rows := tableOp.Select(core.Gte("age", 40))
	require.Len(t, rows, 2)
	assert.Equal(t, "Bob", rows[0]["name"])
	assert.Equal(t, "Charlie", rows[1]["name"])

	assert.Len(t, tableOp.Select(nil), 3)
	assert.Empty(t, tableOp.Select(core.Eq("name", "Nobody")))
	assert.NotNil(t, tableOp.Select(core.Eq("name", "Nobody")))
}

func TestUpdateMergesValues(t *testing.T) {
	tableOp := setupTable(t)
	tableOp.Insert(core.Row{"name": "Alice", "age": 30})
	tableOp.Insert(core.Row{"name": "Bob", "age": 40})

	n := tableOp.Update(core.Eq("name", "Bob"), core.Row{"age": 50, "nickname": "Bobby"})
	assert.Equal(t, 1, n)

	assert.Equal(t, core.Row{"name": "Alice", "age": 30}, tableOp.Document.Rows[0])
	assert.Equal(t, core.Row{"name": "Bob", "age": 50, "nickname": "Bobby"}, tableOp.Document.Rows[1])

	assert.Equal(t, 0, tableOp.Update(core.Eq("name", "Nobody"), core.Row{"age": 1}))
	assert.Equal(t, 2, tableOp.Update(core.All, core.Row{}))
}

func TestDelete(t *testing.T) {
	tableOp := setupTable(t)
	for _, name := range []string{"Alice", "Bob", "Charlie", "Dan"} {
		tableOp.Insert(core.Row{"name": name})
	}

	n := tableOp.Delete(core.Or(core.Eq("name", "Bob"), core.Eq("name", "Dan")))
	assert.Equal(t, 2, n)

	rows := tableOp.Select(core.All)
	require.Len(t, rows, 2)
	assert.Equal(t, "Alice", rows[0]["name"])
	assert.Equal(t, "Charlie", rows[1]["name"])

	assert.Equal(t, 2, tableOp.Delete(core.All))
	assert.Empty(t, tableOp.Document.Rows)
	assert.NotNil(t, tableOp.Document.Rows)
}

func TestSavePersistsDocument(t *testing.T) {
	tableOp := setupTable(t)
	tableOp.Insert(core.Row{"name": "Alice", "age": 30})
	require.NoError(t, tableOp.Save())

	reloaded, err := GetTable("users", tableOp.Persistence)
	require.NoError(t, err)
	assert.Equal(t, []core.Row{{"name": "Alice", "age": json.Number("30")}}, reloaded.Document.Rows)
	assert.Equal(t, core.Schema{"name", "age"}, reloaded.Columns())
}

func TestUnsavedChangesAreNotPersisted(t *testing.T) {
	tableOp := setupTable(t)
	tableOp.Insert(core.Row{"name": "Alice"})

	reloaded, err := GetTable("users", tableOp.Persistence)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Document.Rows)
}

func TestCreateTableTwice(t *testing.T) {
	tableOp := setupTable(t)

	_, err := CreateTable("users", []string{"other"}, tableOp.Persistence)
	assert.ErrorIs(t, err, core.ErrTableAlreadyExists)
}

func TestDatabaseOp(t *testing.T) {
	store := ps.NewStore(ps.NewMemoryBackend())
	dbOp := GetDatabase("mydb", store)

	_, err := dbOp.CreateTable("b", []string{"x"})
	require.NoError(t, err)
	_, err = dbOp.CreateTable("a", []string{"y", "y"})
	require.NoError(t, err)

	names, err := dbOp.TableNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	tableOp, err := dbOp.Table("a")
	require.NoError(t, err)
	assert.Equal(t, core.Schema{"y"}, tableOp.Columns())

	_, err = dbOp.Table("missing")
	assert.ErrorIs(t, err, core.ErrTableNotFound)
}
