package fetcher

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/graphiti-lang/graphiti/internal/db"
	"github.com/graphiti-lang/graphiti/internal/introspect"
)

// Query reads every row of the bound table
type Query struct {
	dialect db.Dialect
	logger  *zap.Logger
}

// NewQuery creates a new Query fetcher
func NewQuery(dialect db.Dialect, logger *zap.Logger) *Query {
	return &Query{dialect: dialect, logger: nopIfNil(logger)}
}

// Fetch selects the returned shape's columns from the table
func (q *Query) Fetch(ctx context.Context, call introspect.Call) (any, error) {
	conn, err := acquire(ctx, call)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	query := fmt.Sprintf("SELECT %s FROM %s",
		columnList(q.dialect, call.Columns),
		db.QualifiedName(q.dialect, call.Ref()),
	)

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", call.Table, db.ConvertDBError(err))
	}
	defer rows.Close()

	results, err := scanRows(rows, binaryColumns(call.Fields))
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", call.Table, db.ConvertDBError(err))
	}

	q.logger.Debug("fetched rows",
		zap.String("operation", call.Operation),
		zap.Int("rows", len(results)),
	)
	return results, nil
}
