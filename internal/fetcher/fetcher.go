// Package fetcher provides the default data fetchers bound to generated
// operations: a table read and a batched insert.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/graphiti-lang/graphiti/internal/db"
	"github.com/graphiti-lang/graphiti/internal/introspect"
)

var (
	// ErrEmptyInput is returned when a write operation receives no rows
	ErrEmptyInput = errors.New("input must contain at least one row")

	// ErrInvalidInput is returned when the input argument is not a list of objects
	ErrInvalidInput = errors.New("input must be a list of objects")

	// ErrNoColumns is returned when an input row sets none of the table's columns
	ErrNoColumns = errors.New("no columns to insert")
)

var (
	_ introspect.DataFetcher = (*Query)(nil)
	_ introspect.DataFetcher = (*Mutation)(nil)
)

// acquire checks out a connection from the call's provider
func acquire(ctx context.Context, call introspect.Call) (db.Conn, error) {
	if call.Provider == nil {
		return nil, fmt.Errorf("operation %s: no connection provider", call.Operation)
	}
	conn, err := call.Provider.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("operation %s: %w", call.Operation, err)
	}
	return conn, nil
}

// columnList quotes and joins column names, falling back to * when empty
func columnList(dialect db.Dialect, columns []string) string {
	if len(columns) == 0 {
		return "*"
	}
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = dialect.QuoteIdentifier(col)
	}
	return strings.Join(quoted, ", ")
}

func nopIfNil(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
