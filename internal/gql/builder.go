// Package gql turns a compiled introspection schema into an executable
// graphql-go schema.
package gql

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/graphiti-lang/graphiti/internal/introspect"
)

const (
	// QueryTypeName is the name of the root query type
	QueryTypeName = "QueryType"

	// MutationTypeName is the name of the root mutation type
	MutationTypeName = "MutationType"

	placeholderField = "_schema"
)

// builder converts shapes once and reuses them across operations
type builder struct {
	objects map[string]*graphql.Object
	inputs  map[string]*graphql.InputObject
}

// Build converts the compiled schema. Every field resolves by invoking the
// operation's bound data fetcher.
func Build(schema *introspect.Schema) (graphql.Schema, error) {
	b := &builder{
		objects: make(map[string]*graphql.Object),
		inputs:  make(map[string]*graphql.InputObject),
	}

	queryFields := graphql.Fields{}
	for _, op := range schema.QueryOperations() {
		field, err := b.operationField(op)
		if err != nil {
			return graphql.Schema{}, err
		}
		queryFields[op.Name] = field
	}

	// GraphQL requires at least one query field
	if len(queryFields) == 0 {
		queryFields[placeholderField] = &graphql.Field{
			Type:        graphql.String,
			Description: "Placeholder field when the database has no tables",
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return "No tables found in database", nil
			},
		}
	}

	config := graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name:   QueryTypeName,
			Fields: queryFields,
		}),
	}

	mutationFields := graphql.Fields{}
	for _, op := range schema.MutationOperations() {
		field, err := b.operationField(op)
		if err != nil {
			return graphql.Schema{}, err
		}
		mutationFields[op.Name] = field
	}
	if len(mutationFields) > 0 {
		config.Mutation = graphql.NewObject(graphql.ObjectConfig{
			Name:   MutationTypeName,
			Fields: mutationFields,
		})
	}

	return graphql.NewSchema(config)
}

func (b *builder) operationField(op introspect.OperationDefinition) (*graphql.Field, error) {
	returns, err := b.outputType(op.Returns)
	if err != nil {
		return nil, fmt.Errorf("operation %s: %w", op.Name, err)
	}

	args := graphql.FieldConfigArgument{}
	for _, arg := range op.Arguments {
		argType, err := b.inputType(arg.Type)
		if err != nil {
			return nil, fmt.Errorf("operation %s: argument %s: %w", op.Name, arg.Name, err)
		}
		args[arg.Name] = &graphql.ArgumentConfig{Type: argType}
	}

	return &graphql.Field{
		Type: returns,
		Args: args,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			return op.Invoke(p.Context, p.Args)
		},
	}, nil
}

func (b *builder) outputType(ref introspect.TypeRef) (graphql.Output, error) {
	var t graphql.Output
	if ref.Object != nil {
		obj, err := b.object(ref.Object)
		if err != nil {
			return nil, err
		}
		t = obj
	} else {
		scalar, err := scalarType(ref.Scalar)
		if err != nil {
			return nil, err
		}
		t = scalar
	}
	if ref.List {
		return graphql.NewList(t), nil
	}
	return t, nil
}

func (b *builder) inputType(ref introspect.TypeRef) (graphql.Input, error) {
	var t graphql.Input
	if ref.Object != nil {
		obj, err := b.inputObject(ref.Object)
		if err != nil {
			return nil, err
		}
		t = obj
	} else {
		scalar, err := scalarType(ref.Scalar)
		if err != nil {
			return nil, err
		}
		t = scalar
	}
	if ref.List {
		return graphql.NewList(t), nil
	}
	return t, nil
}

func (b *builder) object(shape *introspect.ObjectShape) (*graphql.Object, error) {
	if obj, ok := b.objects[shape.Name]; ok {
		return obj, nil
	}

	fields := graphql.Fields{}
	for _, f := range shape.Fields {
		scalar, err := scalarType(f.Scalar)
		if err != nil {
			return nil, fmt.Errorf("shape %s: field %s: %w", shape.Name, f.Name, err)
		}
		var t graphql.Output = scalar
		if !f.Nullable {
			t = graphql.NewNonNull(scalar)
		}
		fields[f.Name] = &graphql.Field{Type: t}
	}

	obj := graphql.NewObject(graphql.ObjectConfig{
		Name:   shape.Name,
		Fields: fields,
	})
	b.objects[shape.Name] = obj
	return obj, nil
}

// inputObject converts an input shape. Fields defined more than once resolve
// last-wins, so the synthetic id replaces a column named id.
func (b *builder) inputObject(shape *introspect.ObjectShape) (*graphql.InputObject, error) {
	if obj, ok := b.inputs[shape.Name]; ok {
		return obj, nil
	}

	fields := graphql.InputObjectConfigFieldMap{}
	for _, f := range shape.Fields {
		scalar, err := scalarType(f.Scalar)
		if err != nil {
			return nil, fmt.Errorf("shape %s: field %s: %w", shape.Name, f.Name, err)
		}
		var t graphql.Input = scalar
		if !f.Nullable {
			t = graphql.NewNonNull(scalar)
		}
		fields[f.Name] = &graphql.InputObjectFieldConfig{Type: t}
	}

	obj := graphql.NewInputObject(graphql.InputObjectConfig{
		Name:   shape.Name,
		Fields: fields,
	})
	b.inputs[shape.Name] = obj
	return obj, nil
}

// scalarType returns the GraphQL scalar for a scalar kind
func scalarType(kind introspect.ScalarKind) (*graphql.Scalar, error) {
	switch kind {
	case introspect.ScalarString:
		return graphql.String, nil
	case introspect.ScalarInteger:
		return graphql.Int, nil
	case introspect.ScalarBigInteger:
		return BigInteger, nil
	case introspect.ScalarDecimal:
		return BigDecimal, nil
	case introspect.ScalarFloat:
		return graphql.Float, nil
	case introspect.ScalarByte:
		return Byte, nil
	case introspect.ScalarIdentifier:
		return graphql.ID, nil
	default:
		return nil, fmt.Errorf("unsupported scalar kind %d", int(kind))
	}
}
