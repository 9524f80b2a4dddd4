package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/graphiti-lang/graphiti/internal/cli/config"
	"github.com/graphiti-lang/graphiti/internal/cli/ui"
	"github.com/graphiti-lang/graphiti/internal/gql"
	"github.com/graphiti-lang/graphiti/internal/web/auth"
	"github.com/graphiti-lang/graphiti/internal/web/profiling"
	"github.com/graphiti-lang/graphiti/internal/web/ratelimit"
	"github.com/graphiti-lang/graphiti/internal/web/server"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Generate the schema and serve it over HTTP",
		Long: `Introspect the configured database once, then serve the generated GraphQL
API until interrupted.

Endpoints:
  <server.path>  GraphQL over GET and POST (default /graphql)
  /schema        the generated schema as JSON
  /healthz       database reachability

Set auth.jwt_secret to require bearer tokens (see graphiti token) and
ratelimit.redis_addr to share rate limits across instances.`,
		Example: `  graphiti serve
  graphiti serve --port 8080
  DATABASE_URL=postgres://localhost/app graphiti serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck // stderr sync fails on terminals

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			return serve(ctx, cfg, logger, func(addr string) {
				printBanner(out, addr, cfg, opts.plain())
			})
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen host (overrides server.host)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (overrides server.port)")

	return cmd
}

// serve runs until ctx ends. onReady is called once with the bound address
// after the listener is open.
func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger, onReady func(addr string)) error {
	pool, schema, err := generateSchema(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := pool.Close(); err != nil {
			logger.Warn("failed to close database", zap.Error(err))
		}
	}()

	executable, err := gql.Build(schema)
	if err != nil {
		return fmt.Errorf("failed to build graphql schema: %w", err)
	}

	limiter, err := ratelimit.New(ctx, ratelimit.Config{
		RedisAddr: cfg.RateLimit.RedisAddr,
		Limit:     cfg.RateLimit.Limit,
		Window:    cfg.RateLimit.Window,
	})
	if err != nil {
		return err
	}
	defer limiter.Close()

	var authService *auth.AuthService
	if cfg.Auth.JWTSecret != "" {
		authService, err = auth.NewAuthService(cfg.Auth.JWTSecret, defaultTokenTTL)
		if err != nil {
			return err
		}
	}

	handler, err := server.NewHandler(server.HandlerConfig{
		Path:           cfg.Server.Path,
		Schema:         schema,
		Executable:     executable,
		Health:         pool.DB().PingContext,
		Auth:           authService,
		Limiter:        limiter,
		TrustedProxies: cfg.Server.TrustedProxies,
		Profiling:      cfg.Server.Profiling,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	srvConfig := server.DefaultConfig(cfg.Server.Addr(), handler)
	srvConfig.Logger = logger
	srv, err := server.New(srvConfig)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-srv.Ready():
			if onReady != nil {
				onReady(srv.Addr())
			}
		case <-runCtx.Done():
		}
	}()

	err = srv.Run(runCtx)
	cancel()
	wg.Wait()
	return err
}

func printBanner(w io.Writer, addr string, cfg *config.Config, noColor bool) {
	ui.WriteSuccess(w, "Graphiti is serving "+cfg.Database.Driver+" at http://"+addr+cfg.Server.Path, noColor)

	table := ui.NewKeyValueTable(w, noColor)
	table.AddRow("Schema", "http://"+addr+"/schema")
	table.AddRow("Health", "http://"+addr+"/healthz")
	if cfg.Server.Profiling {
		table.AddRow("Profiling", "http://"+addr+profiling.DefaultPath+"/")
	}
	if cfg.Auth.JWTSecret != "" {
		table.AddRow("Auth", "bearer token required")
	} else {
		table.AddRow("Auth", "disabled")
	}
	limiter := "in-memory"
	if cfg.RateLimit.RedisAddr != "" {
		limiter = "redis " + cfg.RateLimit.RedisAddr
	}
	table.AddRow("Rate limit", fmt.Sprintf("%d per %s (%s)", cfg.RateLimit.Limit, cfg.RateLimit.Window, limiter))
	table.Render()
}
