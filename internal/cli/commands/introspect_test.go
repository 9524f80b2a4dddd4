package commands

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/graphiti-lang/graphiti/internal/introspect"
)

const usersDDL = `CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, balance NUMERIC)`

func TestIntrospectCommand_Text(t *testing.T) {
	cfgPath := sqliteConfig(t, usersDDL)

	out, err := runCommand(t, "introspect", "-c", cfgPath)
	require.NoError(t, err)

	assert.Contains(t, out, "users_table  [users_table]")
	assert.Contains(t, out, "insert_users_table  input: [insert_users_table]  users_table")
	assert.Contains(t, out, "type users_table\n  id: Int\n  name: String\n  balance: BigDecimal\n")
	assert.Contains(t, out, "input insert_users_table\n  id: Int\n  name: String\n  balance: BigDecimal\n  id: ID!\n")
}

func TestIntrospectCommand_JSON(t *testing.T) {
	cfgPath := sqliteConfig(t, usersDDL, `CREATE TABLE orders (total REAL)`)

	out, err := runCommand(t, "introspect", "-c", cfgPath, "--format", "json")
	require.NoError(t, err)

	var doc struct {
		Queries []struct {
			Name    string `json:"name"`
			Kind    string `json:"kind"`
			Returns string `json:"returns"`
		} `json:"queries"`
		Mutations []struct {
			Name      string `json:"name"`
			Arguments []struct {
				Name string `json:"name"`
				Type string `json:"type"`
			} `json:"arguments"`
		} `json:"mutations"`
		Shapes []map[string]any `json:"shapes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))

	require.Len(t, doc.Queries, 2)
	names := []string{doc.Queries[0].Name, doc.Queries[1].Name}
	assert.ElementsMatch(t, []string{"users_table", "orders_table"}, names)
	assert.Equal(t, "read", doc.Queries[0].Kind)

	require.Len(t, doc.Mutations, 2)
	for _, m := range doc.Mutations {
		require.Len(t, m.Arguments, 1)
		assert.Equal(t, "input", m.Arguments[0].Name)
		assert.Equal(t, "["+m.Name+"]", m.Arguments[0].Type)
	}
	assert.Len(t, doc.Shapes, 4)
}

func TestIntrospectCommand_YAML(t *testing.T) {
	cfgPath := sqliteConfig(t, usersDDL)

	out, err := runCommand(t, "introspect", "-c", cfgPath, "-f", "yaml")
	require.NoError(t, err)

	var doc map[string][]map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))

	require.Len(t, doc["queries"], 1)
	assert.Equal(t, "users_table", doc["queries"][0]["name"])
	assert.Equal(t, "[users_table]", doc["queries"][0]["returns"])
	require.Len(t, doc["mutations"], 1)
	assert.Equal(t, "write", doc["mutations"][0]["kind"])
}

func TestIntrospectCommand_EmptyDatabase(t *testing.T) {
	cfgPath := sqliteConfig(t)

	out, err := runCommand(t, "introspect", "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "(no tables found)")
}

func TestIntrospectCommand_Errors(t *testing.T) {
	t.Run("unknown format", func(t *testing.T) {
		_, err := runCommand(t, "introspect", "--format", "jsn")
		var formatErr *formatError
		require.ErrorAs(t, err, &formatErr)
		assert.Equal(t, "jsn", formatErr.Format)
	})

	t.Run("missing database url", func(t *testing.T) {
		cfgPath := writeConfig(t, t.TempDir(), "database:\n  driver: sqlite3\n")
		_, err := runCommand(t, "introspect", "-c", cfgPath)
		assert.ErrorIs(t, err, errMissingDatabaseURL)
	})

	t.Run("unmapped column type", func(t *testing.T) {
		cfgPath := sqliteConfig(t, `CREATE TABLE places (id INTEGER, shape GEOMETRY)`)
		_, err := runCommand(t, "introspect", "-c", cfgPath)

		var typeErr *introspect.UnknownColumnTypeError
		require.ErrorAs(t, err, &typeErr)
		assert.Equal(t, "shape", typeErr.Column)
		assert.Equal(t, "GEOMETRY", typeErr.TypeName)
	})

	t.Run("unreadable config", func(t *testing.T) {
		_, err := runCommand(t, "introspect", "-c", "/nonexistent/graphiti.yml")
		assert.Error(t, err)
	})
}
