package introspect

import (
	"iter"

	"github.com/graphiti-lang/graphiti/internal/db"
)

// ColumnDescriptor describes one column as reported by the catalog
type ColumnDescriptor struct {
	Name           string
	NativeTypeName string
}

// TableDescriptor describes one table and its columns in catalog order
type TableDescriptor struct {
	Schema  string
	Name    string
	Columns []ColumnDescriptor
}

// Ref returns the catalog reference of the table
func (t TableDescriptor) Ref() db.TableRef {
	return db.TableRef{Schema: t.Schema, Name: t.Name}
}

// TablesOf returns a sequence over already materialized table descriptors
func TablesOf(tables ...TableDescriptor) iter.Seq2[TableDescriptor, error] {
	return func(yield func(TableDescriptor, error) bool) {
		for _, table := range tables {
			if !yield(table, nil) {
				return
			}
		}
	}
}
