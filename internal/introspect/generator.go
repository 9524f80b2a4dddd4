// Package introspect compiles a database catalog into a typed read/write
// operation schema.
//
// A generation acquires one connection, walks the catalog's tables and
// columns, maps every native column type onto a scalar kind and emits, per
// table T:
//
//	type T_table               one nullable field per column
//	input insert_T_table       the same fields plus id: ID!
//	query T_table: [T_table]
//	mutation insert_T_table(input: [insert_T_table]): T_table
//
// Generation is all-or-nothing: any error aborts it and no schema is returned.
package introspect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/graphiti-lang/graphiti/internal/db"
)

// Options configures a Generator
type Options struct {
	Dialect  db.Dialect
	Provider db.ConnectionProvider
	// Query and Mutation are bound to every generated read and write operation
	Query    DataFetcher
	Mutation DataFetcher
	Logger   *zap.Logger
}

// Generator runs schema generations. It holds no per-run state, so
// concurrent calls to Generate are safe.
type Generator struct {
	provider db.ConnectionProvider
	walker   *Walker
	compiler *Compiler
	logger   *zap.Logger
}

// NewGenerator creates a new Generator
func NewGenerator(opts Options) (*Generator, error) {
	if opts.Dialect == nil {
		return nil, errors.New("dialect is required")
	}
	if opts.Provider == nil {
		return nil, errors.New("connection provider is required")
	}
	if opts.Query == nil || opts.Mutation == nil {
		return nil, errors.New("query and mutation data fetchers are required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		provider: opts.Provider,
		walker:   NewWalker(opts.Dialect, logger),
		compiler: NewCompiler(CompilerConfig{
			Mapper:   NewMapper(opts.Dialect.TypeAliases()),
			Provider: opts.Provider,
			Query:    opts.Query,
			Mutation: opts.Mutation,
			Logger:   logger,
		}),
		logger: logger,
	}, nil
}

// Generate introspects the database and returns a freshly built schema. The
// connection used for introspection is released before Generate returns,
// on every path.
func (g *Generator) Generate(ctx context.Context) (*Schema, error) {
	start := time.Now()

	conn, err := g.provider.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionUnavailable, err)
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			g.logger.Warn("failed to release introspection connection", zap.Error(closeErr))
		}
	}()

	schema, err := g.compiler.Compile(g.walker.Walk(ctx, conn))
	if err != nil {
		g.logger.Error("schema generation failed", zap.Error(err))
		return nil, err
	}

	g.logger.Info("schema generated",
		zap.Int("queries", len(schema.queries)),
		zap.Int("mutations", len(schema.mutations)),
		zap.Duration("duration", time.Since(start)),
	)
	return schema, nil
}
