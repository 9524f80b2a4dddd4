package commands

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCommand executes the root command with args and returns stdout
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append(args, "--no-color"))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

// writeConfig writes a config file into dir and returns its path
func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "graphiti.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

// newSQLiteDB creates a database file with the given DDL statements
func newSQLiteDB(t *testing.T, statements ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.db")
	sqlDB, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer sqlDB.Close()
	for _, stmt := range statements {
		_, err := sqlDB.Exec(stmt)
		require.NoError(t, err)
	}
	return path
}

func sqliteConfig(t *testing.T, statements ...string) string {
	t.Helper()
	dbPath := newSQLiteDB(t, statements...)
	return writeConfig(t, t.TempDir(), `
database:
  driver: sqlite3
  url: `+dbPath+`
log:
  level: error
`)
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()

	assert.Equal(t, "graphiti", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, expected := range []string{"version", "init", "introspect", "serve", "token"} {
		assert.Contains(t, names, expected)
	}

	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("no-color"))
}

func TestVersionCommand(t *testing.T) {
	Version = "1.0.0-test"
	GitCommit = "abc123"
	BuildDate = "2025-01-01"
	GoVersion = "go1.23"
	t.Cleanup(func() {
		Version, GitCommit, BuildDate, GoVersion = "dev", "unknown", "unknown", "unknown"
	})

	out, err := runCommand(t, "version")
	require.NoError(t, err)

	assert.Contains(t, out, "Graphiti version: 1.0.0-test")
	assert.Contains(t, out, "abc123")
	assert.Contains(t, out, "2025-01-01")
	assert.Contains(t, out, "go1.23")
}

func TestUnknownCommand(t *testing.T) {
	_, err := runCommand(t, "migrate")
	assert.Error(t, err)
}
