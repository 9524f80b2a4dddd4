package introspect

import (
	"errors"
	"iter"

	"go.uber.org/zap"

	"github.com/graphiti-lang/graphiti/internal/db"
)

const (
	outputSuffix = "_table"
	inputPrefix  = "insert_"

	// IdentifierField is the synthetic non-null field appended to every input shape
	IdentifierField = "id"

	// InputArgument is the argument name of every write operation
	InputArgument = "input"
)

// OutputShapeName returns the output shape and read operation name for a table
func OutputShapeName(table string) string {
	return table + outputSuffix
}

// InputShapeName returns the input shape and write operation name for a table
func InputShapeName(table string) string {
	return inputPrefix + table + outputSuffix
}

// CompilerConfig configures a Compiler
type CompilerConfig struct {
	// Mapper resolves column types; the canonical mapping is used when nil
	Mapper *Mapper
	// Provider is bound into every generated operation
	Provider db.ConnectionProvider
	// Query handles read operations
	Query DataFetcher
	// Mutation handles write operations
	Mutation DataFetcher
	Logger   *zap.Logger
}

// Compiler turns table descriptors into a composed Schema
type Compiler struct {
	mapper   *Mapper
	provider db.ConnectionProvider
	query    DataFetcher
	mutation DataFetcher
	logger   *zap.Logger
}

// NewCompiler creates a new Compiler
func NewCompiler(config CompilerConfig) *Compiler {
	mapper := config.Mapper
	if mapper == nil {
		mapper = defaultMapper
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compiler{
		mapper:   mapper,
		provider: config.Provider,
		query:    config.Query,
		mutation: config.Mutation,
		logger:   logger,
	}
}

// Compile consumes the table sequence and builds the schema. The first
// error, whether yielded by the sequence or raised while compiling a table,
// aborts compilation and no schema is returned.
func (c *Compiler) Compile(tables iter.Seq2[TableDescriptor, error]) (*Schema, error) {
	builder := newSchemaBuilder()

	for table, err := range tables {
		if err != nil {
			return nil, err
		}
		if err := c.compileTable(builder, table); err != nil {
			return nil, err
		}
	}

	return builder.build(), nil
}

func (c *Compiler) compileTable(builder *schemaBuilder, table TableDescriptor) error {
	fields, err := c.columnFields(table)
	if err != nil {
		return err
	}

	output := &ObjectShape{
		Name:   OutputShapeName(table.Name),
		Fields: fields,
	}

	inputFields := make([]FieldDefinition, 0, len(fields)+1)
	inputFields = append(inputFields, fields...)
	inputFields = append(inputFields, FieldDefinition{
		Name:     IdentifierField,
		Scalar:   ScalarIdentifier,
		Nullable: false,
	})
	input := &ObjectShape{
		Name:   InputShapeName(table.Name),
		Input:  true,
		Fields: inputFields,
	}

	if dups := input.DuplicateFields(); len(dups) > 0 {
		c.logger.Warn("input shape defines a field more than once",
			zap.String("shape", input.Name),
			zap.Strings("fields", dups),
		)
	}

	read, err := BindTable(OperationDefinition{
		Name:    output.Name,
		Kind:    OperationRead,
		Returns: TypeRef{Object: output, List: true},
	}, table.Ref(), c.provider, c.query)
	if err != nil {
		return err
	}

	write, err := BindTable(OperationDefinition{
		Name:    input.Name,
		Kind:    OperationWrite,
		Returns: TypeRef{Object: output},
		Arguments: []Argument{
			{Name: InputArgument, Type: TypeRef{Object: input, List: true}},
		},
	}, table.Ref(), c.provider, c.mutation)
	if err != nil {
		return err
	}

	if err := builder.addTable(table.Ref(), read, write, output, input); err != nil {
		return err
	}

	c.logger.Debug("compiled table",
		zap.Stringer("table", table.Ref()),
		zap.String("query", read.Name),
		zap.String("mutation", write.Name),
	)
	return nil
}

// columnFields maps every column to a nullable field, failing on the first
// unmappable type
func (c *Compiler) columnFields(table TableDescriptor) ([]FieldDefinition, error) {
	fields := make([]FieldDefinition, 0, len(table.Columns))
	for _, column := range table.Columns {
		kind, err := c.mapper.Map(column.NativeTypeName)
		if err != nil {
			var typeErr *UnknownColumnTypeError
			if errors.As(err, &typeErr) {
				return nil, &UnknownColumnTypeError{
					Table:    table.Ref().String(),
					Column:   column.Name,
					TypeName: column.NativeTypeName,
				}
			}
			return nil, err
		}
		fields = append(fields, FieldDefinition{
			Name:     column.Name,
			Scalar:   kind,
			Nullable: true,
		})
	}
	return fields, nil
}
