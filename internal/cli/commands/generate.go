package commands

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/graphiti-lang/graphiti/internal/cli/config"
	"github.com/graphiti-lang/graphiti/internal/db"
	"github.com/graphiti-lang/graphiti/internal/fetcher"
	"github.com/graphiti-lang/graphiti/internal/introspect"
)

// generateSchema opens the configured database and runs one generation with
// the default fetchers bound. The caller owns the returned pool.
func generateSchema(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*db.Pool, *introspect.Schema, error) {
	if cfg.Database.URL == "" {
		return nil, nil, errMissingDatabaseURL
	}

	pool, err := db.Open(ctx, cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", introspect.ErrConnectionUnavailable, err)
	}

	dialect := pool.Dialect()
	generator, err := introspect.NewGenerator(introspect.Options{
		Dialect:  dialect,
		Provider: pool,
		Query:    fetcher.NewQuery(dialect, logger),
		Mutation: fetcher.NewMutation(dialect, logger),
		Logger:   logger,
	})
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	schema, err := generator.Generate(ctx)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	return pool, schema, nil
}
