package introspect

import (
	"context"
	"fmt"
	"slices"

	"github.com/graphiti-lang/graphiti/internal/db"
)

// OperationKind distinguishes read and write operations
type OperationKind int

const (
	// OperationRead is a query operation
	OperationRead OperationKind = iota
	// OperationWrite is a mutation operation
	OperationWrite
)

// String returns the string representation of the operation kind
func (k OperationKind) String() string {
	switch k {
	case OperationRead:
		return "read"
	case OperationWrite:
		return "write"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (k OperationKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// FieldDefinition is one field of an object shape
type FieldDefinition struct {
	Name     string     `json:"name" yaml:"name"`
	Scalar   ScalarKind `json:"type" yaml:"type"`
	Nullable bool       `json:"nullable" yaml:"nullable"`
}

// String renders the field as name: Type, with ! for non-null
func (f FieldDefinition) String() string {
	if f.Nullable {
		return fmt.Sprintf("%s: %s", f.Name, f.Scalar)
	}
	return fmt.Sprintf("%s: %s!", f.Name, f.Scalar)
}

// ObjectShape is a named, ordered set of fields. Shapes are built once by the
// compiler and never modified afterwards.
type ObjectShape struct {
	Name   string            `json:"name" yaml:"name"`
	Input  bool              `json:"input" yaml:"input"`
	Fields []FieldDefinition `json:"fields" yaml:"fields"`
}

// FieldNames returns the field names in order
func (s *ObjectShape) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// DuplicateFields returns the names defined more than once, in first
// occurrence order
func (s *ObjectShape) DuplicateFields() []string {
	seen := make(map[string]int, len(s.Fields))
	var dups []string
	for _, f := range s.Fields {
		seen[f.Name]++
		if seen[f.Name] == 2 {
			dups = append(dups, f.Name)
		}
	}
	return dups
}

// TypeRef references either an object shape or a scalar, optionally as a list
type TypeRef struct {
	Object *ObjectShape
	Scalar ScalarKind
	List   bool
}

// String renders the reference in GraphQL notation
func (t TypeRef) String() string {
	name := t.Scalar.String()
	if t.Object != nil {
		name = t.Object.Name
	}
	if t.List {
		return "[" + name + "]"
	}
	return name
}

// MarshalText implements encoding.TextMarshaler
func (t TypeRef) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Argument is a named operation argument
type Argument struct {
	Name string  `json:"name" yaml:"name"`
	Type TypeRef `json:"type" yaml:"type"`
}

// OperationDefinition is a named read or write capability of the schema
type OperationDefinition struct {
	Name      string        `json:"name" yaml:"name"`
	Kind      OperationKind `json:"kind" yaml:"kind"`
	Returns   TypeRef       `json:"returns" yaml:"returns"`
	Arguments []Argument    `json:"arguments,omitempty" yaml:"arguments,omitempty"`

	binding *Binding
}

// Binding returns a copy of the handler binding, or nil if the operation is
// unbound
func (o OperationDefinition) Binding() *Binding {
	if o.binding == nil {
		return nil
	}
	b := *o.binding
	return &b
}

// Invoke runs the bound data fetcher with the given arguments
func (o OperationDefinition) Invoke(ctx context.Context, args map[string]any) (any, error) {
	if o.binding == nil {
		return nil, fmt.Errorf("%w: operation %q has no handler", ErrInvalidBinding, o.Name)
	}

	var columns []string
	var fields []FieldDefinition
	if o.Returns.Object != nil {
		columns = o.Returns.Object.FieldNames()
		fields = slices.Clone(o.Returns.Object.Fields)
	}

	return o.binding.Fetcher.Fetch(ctx, Call{
		Operation: o.Name,
		Kind:      o.Kind,
		Table:     o.binding.Table,
		Namespace: o.binding.Namespace,
		Provider:  o.binding.Provider,
		Columns:   columns,
		Fields:    fields,
		Args:      args,
	})
}

// Schema is the composed result of one generation. It is immutable: every
// accessor returns a deep copy, so shapes and arguments reached through the
// result can be modified without affecting the schema.
type Schema struct {
	queries   []OperationDefinition
	mutations []OperationDefinition
	shapes    []*ObjectShape
}

// QueryOperations returns the read operations in table discovery order
func (s *Schema) QueryOperations() []OperationDefinition {
	return shapeCopies{}.operations(s.queries)
}

// MutationOperations returns the write operations in table discovery order
func (s *Schema) MutationOperations() []OperationDefinition {
	return shapeCopies{}.operations(s.mutations)
}

// Shapes returns every object shape, output then input per table
func (s *Schema) Shapes() []*ObjectShape {
	return shapeCopies{}.shapes(s.shapes)
}

// Document is the serializable form of a Schema
type Document struct {
	Queries   []OperationDefinition `json:"queries" yaml:"queries"`
	Mutations []OperationDefinition `json:"mutations" yaml:"mutations"`
	Shapes    []*ObjectShape        `json:"shapes" yaml:"shapes"`
}

// Document returns a copy of the schema for encoding as JSON or YAML.
// Operations in the document reference the document's own shapes.
func (s *Schema) Document() Document {
	copies := shapeCopies{}
	return Document{
		Queries:   copies.operations(s.queries),
		Mutations: copies.operations(s.mutations),
		Shapes:    copies.shapes(s.shapes),
	}
}

// Query looks up a read operation by name
func (s *Schema) Query(name string) (OperationDefinition, bool) {
	return findOperation(s.queries, name)
}

// Mutation looks up a write operation by name
func (s *Schema) Mutation(name string) (OperationDefinition, bool) {
	return findOperation(s.mutations, name)
}

func findOperation(ops []OperationDefinition, name string) (OperationDefinition, bool) {
	for _, op := range ops {
		if op.Name == name {
			return shapeCopies{}.operation(op), true
		}
	}
	return OperationDefinition{}, false
}

// shapeCopies deep-copies schema values, copying each shape once so that
// pointer sharing inside one result mirrors the schema
type shapeCopies map[*ObjectShape]*ObjectShape

func (c shapeCopies) shape(s *ObjectShape) *ObjectShape {
	if s == nil {
		return nil
	}
	if cp, ok := c[s]; ok {
		return cp
	}
	cp := &ObjectShape{Name: s.Name, Input: s.Input, Fields: slices.Clone(s.Fields)}
	c[s] = cp
	return cp
}

func (c shapeCopies) shapes(shapes []*ObjectShape) []*ObjectShape {
	out := make([]*ObjectShape, len(shapes))
	for i, s := range shapes {
		out[i] = c.shape(s)
	}
	return out
}

func (c shapeCopies) ref(t TypeRef) TypeRef {
	t.Object = c.shape(t.Object)
	return t
}

func (c shapeCopies) operation(op OperationDefinition) OperationDefinition {
	op.Returns = c.ref(op.Returns)
	if op.Arguments != nil {
		args := make([]Argument, len(op.Arguments))
		for i, arg := range op.Arguments {
			args[i] = Argument{Name: arg.Name, Type: c.ref(arg.Type)}
		}
		op.Arguments = args
	}
	return op
}

func (c shapeCopies) operations(ops []OperationDefinition) []OperationDefinition {
	out := make([]OperationDefinition, len(ops))
	for i, op := range ops {
		out[i] = c.operation(op)
	}
	return out
}

// schemaBuilder accumulates operations and enforces name uniqueness across
// the whole schema
type schemaBuilder struct {
	schema *Schema
	owners map[string]db.TableRef
}

func newSchemaBuilder() *schemaBuilder {
	return &schemaBuilder{
		schema: &Schema{},
		owners: make(map[string]db.TableRef),
	}
}

func (b *schemaBuilder) claim(name string, table db.TableRef) error {
	if existing, ok := b.owners[name]; ok {
		return &DuplicateOperationError{Name: name, Table: table, Existing: existing}
	}
	b.owners[name] = table
	return nil
}

func (b *schemaBuilder) addTable(table db.TableRef, read, write OperationDefinition, shapes ...*ObjectShape) error {
	if err := b.claim(read.Name, table); err != nil {
		return err
	}
	if err := b.claim(write.Name, table); err != nil {
		return err
	}
	b.schema.queries = append(b.schema.queries, read)
	b.schema.mutations = append(b.schema.mutations, write)
	b.schema.shapes = append(b.schema.shapes, shapes...)
	return nil
}

func (b *schemaBuilder) build() *Schema {
	return b.schema
}
