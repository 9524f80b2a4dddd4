package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/graphiti-lang/graphiti/internal/web/auth"
)

// defaultTokenTTL is the lifetime of tokens issued by graphiti token
const defaultTokenTTL = 24 * time.Hour

var errAuthDisabled = errors.New("auth.jwt_secret is not set")

func newTokenCommand(opts *rootOptions) *cobra.Command {
	var (
		roles []string
		ttl   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Issue a bearer token for the GraphQL endpoint",
		Long: `Sign a bearer token with auth.jwt_secret. The token is accepted by
graphiti serve when the same secret is configured.`,
		Example: `  graphiti token ci-bot
  graphiti token alice --role admin --ttl 1h`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errAuthDisabled
			}

			service, err := auth.NewAuthService(cfg.Auth.JWTSecret, ttl)
			if err != nil {
				return err
			}
			token, err := service.GenerateToken(args[0], roles)
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&roles, "role", nil, "Role claim to include (repeatable)")
	cmd.Flags().DurationVar(&ttl, "ttl", defaultTokenTTL, "Token lifetime")

	return cmd
}
