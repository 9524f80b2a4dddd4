package introspect

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphiti-lang/graphiti/internal/db"
)

// stubProvider is a ConnectionProvider that is never expected to be called
type stubProvider struct{}

func (stubProvider) Acquire(context.Context) (db.Conn, error) {
	return nil, errors.New("stub provider cannot acquire connections")
}

// recordingFetcher remembers the last call it received
type recordingFetcher struct {
	calls  []Call
	result any
}

func (f *recordingFetcher) Fetch(_ context.Context, call Call) (any, error) {
	f.calls = append(f.calls, call)
	return f.result, nil
}

func newTestCompiler() *Compiler {
	return NewCompiler(CompilerConfig{
		Provider: stubProvider{},
		Query:    &recordingFetcher{},
		Mutation: &recordingFetcher{},
	})
}

func usersTable() TableDescriptor {
	return TableDescriptor{
		Schema: "public",
		Name:   "users",
		Columns: []ColumnDescriptor{
			{Name: "id", NativeTypeName: "INTEGER"},
			{Name: "name", NativeTypeName: "VARCHAR"},
		},
	}
}

func TestCompile_UsersScenario(t *testing.T) {
	schema, err := newTestCompiler().Compile(TablesOf(usersTable()))
	require.NoError(t, err)

	queries := schema.QueryOperations()
	require.Len(t, queries, 1)
	read := queries[0]
	assert.Equal(t, "users_table", read.Name)
	assert.Equal(t, OperationRead, read.Kind)
	assert.True(t, read.Returns.List)
	assert.Equal(t, "[users_table]", read.Returns.String())
	assert.Empty(t, read.Arguments)
	assert.Equal(t, []FieldDefinition{
		{Name: "id", Scalar: ScalarInteger, Nullable: true},
		{Name: "name", Scalar: ScalarString, Nullable: true},
	}, read.Returns.Object.Fields)

	mutations := schema.MutationOperations()
	require.Len(t, mutations, 1)
	write := mutations[0]
	assert.Equal(t, "insert_users_table", write.Name)
	assert.Equal(t, OperationWrite, write.Kind)
	assert.False(t, write.Returns.List)
	assert.Same(t, read.Returns.Object, write.Returns.Object)

	require.Len(t, write.Arguments, 1)
	input := write.Arguments[0]
	assert.Equal(t, "input", input.Name)
	assert.Equal(t, "[insert_users_table]", input.Type.String())
	assert.True(t, input.Type.Object.Input)

	// the column named id and the synthetic identifier both survive
	assert.Equal(t, []FieldDefinition{
		{Name: "id", Scalar: ScalarInteger, Nullable: true},
		{Name: "name", Scalar: ScalarString, Nullable: true},
		{Name: "id", Scalar: ScalarIdentifier, Nullable: false},
	}, input.Type.Object.Fields)
	assert.Equal(t, []string{"id"}, input.Type.Object.DuplicateFields())
}

func TestCompile_ShapesMirrorColumns(t *testing.T) {
	table := TableDescriptor{
		Name: "metrics",
		Columns: []ColumnDescriptor{
			{Name: "host", NativeTypeName: "text"},
			{Name: "seq", NativeTypeName: "bigserial"},
			{Name: "load", NativeTypeName: "float8"},
			{Name: "ratio", NativeTypeName: "decimal"},
			{Name: "flag", NativeTypeName: "boolean"},
			{Name: "raw", NativeTypeName: "bytea"},
		},
	}

	schema, err := newTestCompiler().Compile(TablesOf(table))
	require.NoError(t, err)

	shapes := schema.Shapes()
	require.Len(t, shapes, 2)
	output, input := shapes[0], shapes[1]

	require.Len(t, output.Fields, len(table.Columns))
	for i, column := range table.Columns {
		expected, err := MapType(column.NativeTypeName)
		require.NoError(t, err)
		assert.Equal(t, column.Name, output.Fields[i].Name)
		assert.Equal(t, expected, output.Fields[i].Scalar)
		assert.True(t, output.Fields[i].Nullable)
	}

	require.Len(t, input.Fields, len(table.Columns)+1)
	assert.Equal(t, output.Fields, input.Fields[:len(table.Columns)])
	assert.Equal(t, FieldDefinition{Name: "id", Scalar: ScalarIdentifier}, input.Fields[len(table.Columns)])
	assert.Empty(t, input.DuplicateFields())
}

func TestCompile_EmptyCatalog(t *testing.T) {
	schema, err := newTestCompiler().Compile(TablesOf())
	require.NoError(t, err)
	require.NotNil(t, schema)
	assert.Empty(t, schema.QueryOperations())
	assert.Empty(t, schema.MutationOperations())
	assert.Empty(t, schema.Shapes())
}

func TestCompile_TableWithoutColumns(t *testing.T) {
	schema, err := newTestCompiler().Compile(TablesOf(TableDescriptor{Name: "empty"}))
	require.NoError(t, err)

	op, ok := schema.Mutation("insert_empty_table")
	require.True(t, ok)
	assert.Empty(t, op.Returns.Object.Fields)
	assert.Equal(t, []string{"id"}, op.Arguments[0].Type.Object.FieldNames())
}

func TestCompile_UnknownColumnTypeFailsFast(t *testing.T) {
	tables := TablesOf(
		usersTable(),
		TableDescriptor{
			Schema: "public",
			Name:   "documents",
			Columns: []ColumnDescriptor{
				{Name: "body", NativeTypeName: "JSONB"},
				{Name: "tags", NativeTypeName: "UNKNOWN"},
			},
		},
		TableDescriptor{Name: "never_reached", Columns: []ColumnDescriptor{{Name: "x", NativeTypeName: "TEXT"}}},
	)

	schema, err := newTestCompiler().Compile(tables)
	require.Error(t, err)
	assert.Nil(t, schema)
	assert.ErrorIs(t, err, ErrUnknownColumnType)

	var typeErr *UnknownColumnTypeError
	require.True(t, errors.As(err, &typeErr))
	assert.Equal(t, "public.documents", typeErr.Table)
	assert.Equal(t, "body", typeErr.Column)
	assert.Equal(t, "JSONB", typeErr.TypeName)
}

func TestCompile_DuplicateTableAcrossNamespaces(t *testing.T) {
	tables := TablesOf(
		TableDescriptor{Schema: "audit", Name: "users", Columns: []ColumnDescriptor{{Name: "at", NativeTypeName: "timestamp"}}},
		usersTable(),
	)

	schema, err := newTestCompiler().Compile(tables)
	require.Error(t, err)
	assert.Nil(t, schema)
	assert.True(t, IsDuplicateOperationName(err))

	var dupErr *DuplicateOperationError
	require.True(t, errors.As(err, &dupErr))
	assert.Equal(t, "users_table", dupErr.Name)
	assert.Equal(t, db.TableRef{Schema: "audit", Name: "users"}, dupErr.Existing)
	assert.Equal(t, db.TableRef{Schema: "public", Name: "users"}, dupErr.Table)
}

func TestCompile_CaseDifferentNamesDoNotCollide(t *testing.T) {
	tables := TablesOf(
		TableDescriptor{Name: "Orders", Columns: []ColumnDescriptor{{Name: "id", NativeTypeName: "int4"}}},
		TableDescriptor{Name: "orders", Columns: []ColumnDescriptor{{Name: "id", NativeTypeName: "int4"}}},
	)

	schema, err := newTestCompiler().Compile(tables)
	require.NoError(t, err)

	_, ok := schema.Query("Orders_table")
	assert.True(t, ok)
	_, ok = schema.Query("orders_table")
	assert.True(t, ok)
}

func TestCompile_QueryNameCollidesWithMutationName(t *testing.T) {
	// table "insert_x" generates query insert_x_table, which is also the
	// mutation name generated for table "x"
	tables := TablesOf(
		TableDescriptor{Name: "x", Columns: []ColumnDescriptor{{Name: "a", NativeTypeName: "text"}}},
		TableDescriptor{Name: "insert_x", Columns: []ColumnDescriptor{{Name: "a", NativeTypeName: "text"}}},
	)

	_, err := newTestCompiler().Compile(tables)
	assert.ErrorIs(t, err, ErrDuplicateOperationName)
}

func TestCompile_SequenceErrorAborts(t *testing.T) {
	walkErr := &MetadataAccessError{Table: "public.orders", Err: errors.New("timeout")}
	tables := func(yield func(TableDescriptor, error) bool) {
		if !yield(usersTable(), nil) {
			return
		}
		yield(TableDescriptor{}, walkErr)
	}

	schema, err := newTestCompiler().Compile(tables)
	assert.Nil(t, schema)
	assert.ErrorIs(t, err, ErrMetadataAccess)
}

func TestCompile_OrderFollowsDiscovery(t *testing.T) {
	tables := TablesOf(
		TableDescriptor{Name: "zeta", Columns: []ColumnDescriptor{{Name: "a", NativeTypeName: "text"}}},
		TableDescriptor{Name: "alpha", Columns: []ColumnDescriptor{{Name: "a", NativeTypeName: "text"}}},
		TableDescriptor{Name: "mid", Columns: []ColumnDescriptor{{Name: "a", NativeTypeName: "text"}}},
	)

	schema, err := newTestCompiler().Compile(tables)
	require.NoError(t, err)

	var names []string
	for _, op := range schema.QueryOperations() {
		names = append(names, op.Name)
	}
	assert.Equal(t, []string{"zeta_table", "alpha_table", "mid_table"}, names)

	names = nil
	for _, op := range schema.MutationOperations() {
		names = append(names, op.Name)
	}
	assert.Equal(t, []string{"insert_zeta_table", "insert_alpha_table", "insert_mid_table"}, names)
}

func TestCompile_Idempotent(t *testing.T) {
	catalog := []TableDescriptor{
		usersTable(),
		{Name: "orders", Columns: []ColumnDescriptor{
			{Name: "total", NativeTypeName: "decimal"},
			{Name: "placed_at", NativeTypeName: "timestamp"},
		}},
	}

	compiler := newTestCompiler()
	first, err := compiler.Compile(TablesOf(catalog...))
	require.NoError(t, err)
	second, err := compiler.Compile(TablesOf(catalog...))
	require.NoError(t, err)

	opts := cmp.Comparer(func(a, b OperationDefinition) bool {
		return cmp.Equal(a.Name, b.Name) &&
			a.Kind == b.Kind &&
			cmp.Equal(a.Returns.Object, b.Returns.Object) &&
			a.Returns.List == b.Returns.List &&
			cmp.Equal(argumentShapes(a), argumentShapes(b))
	})

	if diff := cmp.Diff(first.QueryOperations(), second.QueryOperations(), opts); diff != "" {
		t.Errorf("query operations differ (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.MutationOperations(), second.MutationOperations(), opts); diff != "" {
		t.Errorf("mutation operations differ (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.Shapes(), second.Shapes()); diff != "" {
		t.Errorf("shapes differ (-first +second):\n%s", diff)
	}
}

func argumentShapes(op OperationDefinition) []*ObjectShape {
	shapes := make([]*ObjectShape, len(op.Arguments))
	for i, arg := range op.Arguments {
		shapes[i] = arg.Type.Object
	}
	return shapes
}

func TestCompile_SchemaAccessorsReturnCopies(t *testing.T) {
	schema, err := newTestCompiler().Compile(TablesOf(usersTable()))
	require.NoError(t, err)

	queries := schema.QueryOperations()
	queries[0].Name = "tampered"
	queries[0].Returns.Object.Fields[1].Name = "tampered"
	queries[0].Returns.Object.Name = "tampered"

	mutations := schema.MutationOperations()
	mutations[0].Arguments[0].Name = "hijacked"
	mutations[0].Arguments[0].Type.Object.Fields = nil

	shapes := schema.Shapes()
	shapes[0].Fields = append(shapes[0].Fields[:0], FieldDefinition{Name: "extra"})
	shapes[1].Fields = nil

	read, ok := schema.Query("users_table")
	require.True(t, ok)
	read.Returns.Object.Fields[0].Name = "tampered"
	read.Binding().Table = "tampered"

	doc := schema.Document()
	doc.Shapes[0].Fields[0].Name = "tampered"
	doc.Mutations[0].Arguments = nil

	read, ok = schema.Query("users_table")
	require.True(t, ok)
	assert.Equal(t, "users_table", read.Returns.Object.Name)
	assert.Equal(t, []string{"id", "name"}, read.Returns.Object.FieldNames())
	assert.Equal(t, "users", read.Binding().Table)

	write, ok := schema.Mutation("insert_users_table")
	require.True(t, ok)
	require.Len(t, write.Arguments, 1)
	assert.Equal(t, InputArgument, write.Arguments[0].Name)
	assert.Equal(t, []string{"id", "name", "id"}, write.Arguments[0].Type.Object.FieldNames())

	fresh := schema.Shapes()
	require.Len(t, fresh, 2)
	assert.Equal(t, []string{"id", "name"}, fresh[0].FieldNames())
	assert.Equal(t, []string{"id", "name", "id"}, fresh[1].FieldNames())
}

func TestSchema_DocumentSharesShapesInternally(t *testing.T) {
	schema, err := newTestCompiler().Compile(TablesOf(usersTable()))
	require.NoError(t, err)

	doc := schema.Document()
	require.Len(t, doc.Shapes, 2)
	assert.Same(t, doc.Shapes[0], doc.Queries[0].Returns.Object)
	assert.Same(t, doc.Shapes[0], doc.Mutations[0].Returns.Object)
	assert.Same(t, doc.Shapes[1], doc.Mutations[0].Arguments[0].Type.Object)
	assert.NotSame(t, doc.Shapes[0], schema.Shapes()[0])
}

func TestCompile_EmptyTableNameFailsBinding(t *testing.T) {
	_, err := newTestCompiler().Compile(TablesOf(TableDescriptor{Columns: []ColumnDescriptor{{Name: "a", NativeTypeName: "text"}}}))
	assert.ErrorIs(t, err, ErrInvalidBinding)
}

func TestCompile_OperationsAreBound(t *testing.T) {
	query := &recordingFetcher{result: []map[string]any{{"id": 1, "name": "ada"}}}
	mutation := &recordingFetcher{result: map[string]any{"id": 2}}
	provider := stubProvider{}

	compiler := NewCompiler(CompilerConfig{Provider: provider, Query: query, Mutation: mutation})
	schema, err := compiler.Compile(TablesOf(usersTable()))
	require.NoError(t, err)

	read, ok := schema.Query("users_table")
	require.True(t, ok)
	require.NotNil(t, read.Binding())
	assert.Equal(t, "users", read.Binding().Table)
	assert.Equal(t, "public", read.Binding().Namespace)
	assert.Equal(t, provider, read.Binding().Provider)

	result, err := read.Invoke(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, query.result, result)

	require.Len(t, query.calls, 1)
	assert.Equal(t, Call{
		Operation: "users_table",
		Kind:      OperationRead,
		Table:     "users",
		Namespace: "public",
		Provider:  provider,
		Columns:   []string{"id", "name"},
		Fields: []FieldDefinition{
			{Name: "id", Scalar: ScalarInteger, Nullable: true},
			{Name: "name", Scalar: ScalarString, Nullable: true},
		},
	}, query.calls[0])

	write, ok := schema.Mutation("insert_users_table")
	require.True(t, ok)
	args := map[string]any{"input": []any{map[string]any{"id": "2", "name": "grace"}}}
	_, err = write.Invoke(context.Background(), args)
	require.NoError(t, err)
	require.Len(t, mutation.calls, 1)
	assert.Equal(t, OperationWrite, mutation.calls[0].Kind)
	assert.Equal(t, args, mutation.calls[0].Args)
	assert.Equal(t, []string{"id", "name"}, mutation.calls[0].Columns)
	assert.Empty(t, query.calls[1:])
}

func TestSchema_DocumentJSON(t *testing.T) {
	schema, err := newTestCompiler().Compile(TablesOf(usersTable()))
	require.NoError(t, err)

	body, err := json.Marshal(schema.Document())
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"queries": [{"name": "users_table", "kind": "read", "returns": "[users_table]"}],
		"mutations": [{
			"name": "insert_users_table",
			"kind": "write",
			"returns": "users_table",
			"arguments": [{"name": "input", "type": "[insert_users_table]"}]
		}],
		"shapes": [
			{"name": "users_table", "input": false, "fields": [
				{"name": "id", "type": "Int", "nullable": true},
				{"name": "name", "type": "String", "nullable": true}
			]},
			{"name": "insert_users_table", "input": true, "fields": [
				{"name": "id", "type": "Int", "nullable": true},
				{"name": "name", "type": "String", "nullable": true},
				{"name": "id", "type": "ID", "nullable": false}
			]}
		]
	}`, string(body))
}
