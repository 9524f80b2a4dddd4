package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/graphiti-lang/graphiti/internal/cli/config"
)

func serveConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Driver = "sqlite3"
	cfg.Database.URL = newSQLiteDB(t, usersDDL)
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	return cfg
}

// startServe runs serve in the background and returns the bound address
func startServe(t *testing.T, cfg *config.Config) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	done := make(chan error, 1)

	go func() {
		done <- serve(ctx, cfg, zap.NewNop(), func(addr string) { ready <- addr })
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("serve did not stop")
		}
	})

	select {
	case addr := <-ready:
		return addr
	case err := <-done:
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not become ready")
	}
	return ""
}

func postGraphQL(t *testing.T, url, token, query string) (int, map[string]any) {
	t.Helper()
	body, err := json.Marshal(map[string]string{"query": query})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var result map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return resp.StatusCode, result
}

func TestServe(t *testing.T) {
	cfg := serveConfig(t)
	addr := startServe(t, cfg)
	endpoint := "http://" + addr + cfg.Server.Path

	status, result := postGraphQL(t, endpoint, "",
		`mutation { insert_users_table(input: [{id: "7", name: "ada"}]) { id name } }`)
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, result["errors"])
	assert.Equal(t, map[string]any{"insert_users_table": map[string]any{"id": float64(7), "name": "ada"}}, result["data"])

	status, result = postGraphQL(t, endpoint, "", `{ users_table { id name } }`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"users_table": []any{map[string]any{"id": float64(7), "name": "ada"}}}, result["data"])

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get("http://" + addr + "/schema")
	require.NoError(t, err)
	defer resp.Body.Close()
	schema, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(schema), `"insert_users_table"`)
}

func TestServe_Auth(t *testing.T) {
	cfg := serveConfig(t)
	cfg.Auth.JWTSecret = "test-secret"
	addr := startServe(t, cfg)
	endpoint := "http://" + addr + cfg.Server.Path

	status, _ := postGraphQL(t, endpoint, "", `{ users_table { id } }`)
	assert.Equal(t, http.StatusUnauthorized, status)

	cfgPath := writeConfig(t, t.TempDir(), "auth:\n  jwt_secret: test-secret\n")
	out, err := runCommand(t, "token", "-c", cfgPath, "ci-bot")
	require.NoError(t, err)

	status, result := postGraphQL(t, endpoint, strings.TrimSpace(out), `{ users_table { id } }`)
	assert.Equal(t, http.StatusOK, status)
	assert.Nil(t, result["errors"])
}

func TestServe_RateLimit(t *testing.T) {
	cfg := serveConfig(t)
	cfg.RateLimit.Limit = 1
	cfg.RateLimit.Window = time.Hour
	addr := startServe(t, cfg)
	endpoint := "http://" + addr + cfg.Server.Path

	status, _ := postGraphQL(t, endpoint, "", `{ users_table { id } }`)
	assert.Equal(t, http.StatusOK, status)
	status, _ = postGraphQL(t, endpoint, "", `{ users_table { id } }`)
	assert.Equal(t, http.StatusTooManyRequests, status)
}

func TestServe_GenerationFailure(t *testing.T) {
	cfg := serveConfig(t)
	cfg.Database.URL = ""

	err := serve(context.Background(), cfg, zap.NewNop(), nil)
	assert.ErrorIs(t, err, errMissingDatabaseURL)
}

func TestServe_UnreachableRedis(t *testing.T) {
	cfg := serveConfig(t)
	cfg.RateLimit.RedisAddr = "127.0.0.1:1"

	err := serve(context.Background(), cfg, zap.NewNop(), nil)
	assert.ErrorContains(t, err, "failed to connect to redis")
}

func TestServeCommand_InvalidPort(t *testing.T) {
	cfgPath := writeConfig(t, t.TempDir(), "database:\n  driver: sqlite3\n  url: ./unused.db\n")

	_, err := runCommand(t, "serve", "-c", cfgPath, "--port", "70000")
	assert.ErrorContains(t, err, "port")
}
