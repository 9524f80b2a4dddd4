package fetcher

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/graphiti-lang/graphiti/internal/db"
	"github.com/graphiti-lang/graphiti/internal/introspect"
)

// Mutation inserts the rows of the input argument into the bound table in a
// single transaction
type Mutation struct {
	dialect db.Dialect
	logger  *zap.Logger
}

// NewMutation creates a new Mutation fetcher
func NewMutation(dialect db.Dialect, logger *zap.Logger) *Mutation {
	return &Mutation{dialect: dialect, logger: nopIfNil(logger)}
}

// Fetch inserts every input row and returns the last inserted row. Keys that
// are not columns of the table, such as the synthetic id of a table without
// an id column, are ignored.
func (m *Mutation) Fetch(ctx context.Context, call introspect.Call) (any, error) {
	input, err := inputRows(call.Args[introspect.InputArgument])
	if err != nil {
		return nil, err
	}

	conn, err := acquire(ctx, call)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var last map[string]any
	for i, row := range input {
		last, err = m.insertRecord(ctx, tx, call, row)
		if err != nil {
			return nil, fmt.Errorf("failed to insert row %d into %s: %w", i, call.Table, db.ConvertDBError(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	m.logger.Debug("inserted rows",
		zap.String("operation", call.Operation),
		zap.Int("rows", len(input)),
	)
	return last, nil
}

// insertRecord inserts one row, returning the stored row when the dialect
// supports RETURNING and the written values otherwise
func (m *Mutation) insertRecord(
	ctx context.Context,
	tx *sql.Tx,
	call introspect.Call,
	row map[string]any,
) (map[string]any, error) {
	var fields []string
	var placeholders []string
	var values []any

	for _, col := range call.Columns {
		value, ok := row[col]
		if !ok {
			continue
		}
		fields = append(fields, m.dialect.QuoteIdentifier(col))
		placeholders = append(placeholders, m.dialect.Placeholder(len(values)+1))
		values = append(values, value)
	}

	if len(fields) == 0 {
		return nil, ErrNoColumns
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		db.QualifiedName(m.dialect, call.Ref()),
		strings.Join(fields, ", "),
		strings.Join(placeholders, ", "),
	)

	if !m.dialect.SupportsReturning() {
		if _, err := tx.ExecContext(ctx, query, values...); err != nil {
			return nil, err
		}
		written := make(map[string]any, len(fields))
		for _, col := range call.Columns {
			if value, ok := row[col]; ok {
				written[col] = value
			}
		}
		return written, nil
	}

	query += " RETURNING " + columnList(m.dialect, call.Columns)
	return scanRowWithColumns(tx.QueryRowContext(ctx, query, values...), call.Columns, binaryColumns(call.Fields))
}

// inputRows accepts the list shapes produced by GraphQL argument coercion
// and by direct callers
func inputRows(arg any) ([]map[string]any, error) {
	var rows []map[string]any
	switch input := arg.(type) {
	case nil:
		return nil, ErrEmptyInput
	case []map[string]any:
		rows = input
	case []any:
		rows = make([]map[string]any, 0, len(input))
		for _, item := range input {
			row, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: got element of type %T", ErrInvalidInput, item)
			}
			rows = append(rows, row)
		}
	case map[string]any:
		// a single object is coerced to a one-element list
		rows = []map[string]any{input}
	default:
		return nil, fmt.Errorf("%w: got %T", ErrInvalidInput, arg)
	}

	if len(rows) == 0 {
		return nil, ErrEmptyInput
	}
	return rows, nil
}
