package introspect

import (
	"context"
	"fmt"

	"github.com/graphiti-lang/graphiti/internal/db"
)

// Call is what a data fetcher receives when a bound operation is invoked
type Call struct {
	// Operation is the generated operation name
	Operation string
	Kind      OperationKind
	// Table is the bare table name the operation was generated for
	Table string
	// Namespace is the catalog namespace of the table, empty when unknown
	Namespace string
	Provider  db.ConnectionProvider
	// Columns are the field names of the returned object shape, in order
	Columns []string
	// Fields are the returned object shape's fields, parallel to Columns
	Fields []FieldDefinition
	Args   map[string]any
}

// Ref returns the table the call targets
func (c Call) Ref() db.TableRef {
	return db.TableRef{Schema: c.Namespace, Name: c.Table}
}

// DataFetcher executes a bound operation
type DataFetcher interface {
	Fetch(ctx context.Context, call Call) (any, error)
}

// DataFetcherFunc adapts a function to the DataFetcher interface
type DataFetcherFunc func(ctx context.Context, call Call) (any, error)

// Fetch calls f(ctx, call)
func (f DataFetcherFunc) Fetch(ctx context.Context, call Call) (any, error) {
	return f(ctx, call)
}

// Binding ties an operation to the table it serves, the provider its handler
// acquires connections from, and the handler itself
type Binding struct {
	Table     string
	Namespace string
	Provider  db.ConnectionProvider
	Fetcher   DataFetcher
}

// Bind returns a copy of the operation with the handler attached. It never
// executes anything.
func Bind(op OperationDefinition, table string, provider db.ConnectionProvider, fetcher DataFetcher) (OperationDefinition, error) {
	return BindTable(op, db.TableRef{Name: table}, provider, fetcher)
}

// BindTable is Bind for a namespace-qualified table
func BindTable(op OperationDefinition, table db.TableRef, provider db.ConnectionProvider, fetcher DataFetcher) (OperationDefinition, error) {
	if table.Name == "" {
		return OperationDefinition{}, fmt.Errorf("%w: operation %q: empty table name", ErrInvalidBinding, op.Name)
	}
	if provider == nil {
		return OperationDefinition{}, fmt.Errorf("%w: operation %q: nil connection provider", ErrInvalidBinding, op.Name)
	}
	if fetcher == nil {
		return OperationDefinition{}, fmt.Errorf("%w: operation %q: nil data fetcher", ErrInvalidBinding, op.Name)
	}

	op.binding = &Binding{
		Table:     table.Name,
		Namespace: table.Schema,
		Provider:  provider,
		Fetcher:   fetcher,
	}
	return op, nil
}
