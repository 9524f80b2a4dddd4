package introspect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"

	"go.uber.org/zap"

	"github.com/graphiti-lang/graphiti/internal/db"
)

// errSequenceConsumed is yielded when a walker sequence is ranged over twice
var errSequenceConsumed = errors.New("catalog sequence already consumed")

// Querier is the part of a connection the walker needs
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Walker enumerates tables and columns through a dialect's catalog queries.
//
// The sequences it returns are single-pass: each is backed by a live cursor
// and yields an error if ranged over a second time. Catalog failures are
// yielded as *MetadataAccessError.
type Walker struct {
	dialect db.Dialect
	logger  *zap.Logger
}

// NewWalker creates a new Walker
func NewWalker(dialect db.Dialect, logger *zap.Logger) *Walker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Walker{dialect: dialect, logger: logger}
}

// Tables lists the base tables of the catalog in catalog order
func (w *Walker) Tables(ctx context.Context, conn Querier) iter.Seq2[db.TableRef, error] {
	consumed := false
	return func(yield func(db.TableRef, error) bool) {
		if consumed {
			yield(db.TableRef{}, &MetadataAccessError{Err: errSequenceConsumed})
			return
		}
		consumed = true

		query, args := w.dialect.TablesQuery()
		for row, err := range queryNamed(ctx, conn, query, args...) {
			if err != nil {
				yield(db.TableRef{}, &MetadataAccessError{Err: err})
				return
			}
			name, err := row.get("table_name")
			if err != nil {
				yield(db.TableRef{}, &MetadataAccessError{Err: err})
				return
			}
			schema, _ := row.get("table_schema")
			if !yield(db.TableRef{Schema: schema, Name: name}, nil) {
				return
			}
		}
	}
}

// Columns lists the columns of one table in ordinal order. Native type names
// are normalized by the dialect.
func (w *Walker) Columns(ctx context.Context, conn Querier, table db.TableRef) iter.Seq2[ColumnDescriptor, error] {
	consumed := false
	return func(yield func(ColumnDescriptor, error) bool) {
		if consumed {
			yield(ColumnDescriptor{}, &MetadataAccessError{Table: table.String(), Err: errSequenceConsumed})
			return
		}
		consumed = true

		query, args := w.dialect.ColumnsQuery(table)
		for row, err := range queryNamed(ctx, conn, query, args...) {
			if err != nil {
				yield(ColumnDescriptor{}, &MetadataAccessError{Table: table.String(), Err: err})
				return
			}
			name, err := row.get("column_name")
			if err != nil {
				yield(ColumnDescriptor{}, &MetadataAccessError{Table: table.String(), Err: err})
				return
			}
			typeName, err := row.get("type_name")
			if err != nil {
				yield(ColumnDescriptor{}, &MetadataAccessError{Table: table.String(), Err: err})
				return
			}
			column := ColumnDescriptor{
				Name:           name,
				NativeTypeName: w.dialect.NormalizeTypeName(typeName),
			}
			if !yield(column, nil) {
				return
			}
		}
	}
}

// Walk yields every table with its columns. The table list is read to the
// end before the first column query because a single connection cannot keep
// two result cursors open; columns are then queried one table at a time as
// the sequence advances.
func (w *Walker) Walk(ctx context.Context, conn Querier) iter.Seq2[TableDescriptor, error] {
	consumed := false
	return func(yield func(TableDescriptor, error) bool) {
		if consumed {
			yield(TableDescriptor{}, &MetadataAccessError{Err: errSequenceConsumed})
			return
		}
		consumed = true

		var refs []db.TableRef
		for ref, err := range w.Tables(ctx, conn) {
			if err != nil {
				yield(TableDescriptor{}, err)
				return
			}
			refs = append(refs, ref)
		}
		w.logger.Debug("listed catalog tables", zap.Int("tables", len(refs)))

		for _, ref := range refs {
			table := TableDescriptor{Schema: ref.Schema, Name: ref.Name}
			for column, err := range w.Columns(ctx, conn, ref) {
				if err != nil {
					yield(TableDescriptor{}, err)
					return
				}
				table.Columns = append(table.Columns, column)
			}
			w.logger.Debug("listed table columns",
				zap.Stringer("table", ref),
				zap.Int("columns", len(table.Columns)),
			)
			if !yield(table, nil) {
				return
			}
		}
	}
}

// namedRow is one catalog row keyed by lowercased column name
type namedRow map[string]sql.NullString

func (r namedRow) get(column string) (string, error) {
	value, ok := r[column]
	if !ok {
		return "", fmt.Errorf("catalog row has no %s column", strings.ToUpper(column))
	}
	return value.String, nil
}

// queryNamed runs a catalog query and yields each row keyed by column name
func queryNamed(ctx context.Context, conn Querier, query string, args ...any) iter.Seq2[namedRow, error] {
	return func(yield func(namedRow, error) bool) {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			yield(nil, err)
			return
		}
		defer rows.Close()

		columns, err := rows.Columns()
		if err != nil {
			yield(nil, err)
			return
		}

		for rows.Next() {
			values := make([]sql.NullString, len(columns))
			valuePtrs := make([]any, len(columns))
			for i := range values {
				valuePtrs[i] = &values[i]
			}
			if err := rows.Scan(valuePtrs...); err != nil {
				yield(nil, err)
				return
			}

			row := make(namedRow, len(columns))
			for i, col := range columns {
				row[strings.ToLower(col)] = values[i]
			}
			if !yield(row, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(nil, err)
		}
	}
}
