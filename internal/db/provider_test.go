package db

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()

	pool, err := Open(ctx, "sqlite3", ":memory:")
	require.NoError(t, err)
	defer pool.Close()

	assert.Equal(t, SQLite, pool.Dialect())

	conn, err := pool.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, conn.Close())
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, "oracle", "oracle://localhost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")

	_, err = Open(ctx, "sqlite3", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database url is required")
}

func TestPool_AcquireAfterClose(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	pool := NewPool(sqlDB, Postgres)
	require.NoError(t, pool.Close())
	require.NoError(t, pool.Close())

	_, err = pool.Acquire(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pool is closed")
}
