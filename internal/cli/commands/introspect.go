package commands

import (
	"encoding/json"
	"io"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/graphiti-lang/graphiti/internal/cli/ui"
	"github.com/graphiti-lang/graphiti/internal/db"
	"github.com/graphiti-lang/graphiti/internal/introspect"
)

var outputFormats = []string{"text", "yaml", "json"}

func newIntrospectCommand(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "introspect",
		Short: "Print the schema generated from the database catalog",
		Long: `Connect to the configured database, run one schema generation and print
the result without serving it.

Generation fails as a whole on the first problem: an unreachable database, a
catalog query error, a column type with no scalar mapping, or two tables that
generate the same operation name.`,
		Example: `  # Print the schema as tables
  graphiti introspect

  # Machine-readable output
  graphiti introspect --format json
  graphiti introspect --format yaml -c staging.yml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(outputFormats, format) {
				return &formatError{Format: format, Allowed: outputFormats}
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck // stderr sync fails on terminals

			var (
				pool   *db.Pool
				schema *introspect.Schema
			)
			generate := func() error {
				var err error
				pool, schema, err = generateSchema(cmd.Context(), cfg, logger)
				return err
			}

			if format == "text" {
				err = ui.WithSpinner(cmd.ErrOrStderr(), "Introspecting database", opts.plain(), generate)
			} else {
				err = generate()
			}
			if err != nil {
				return err
			}
			defer func() {
				if err := pool.Close(); err != nil {
					logger.Warn("failed to close database", zap.Error(err))
				}
			}()

			return writeSchema(cmd.OutOrStdout(), schema.Document(), format, opts.plain())
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, yaml or json")

	return cmd
}

func writeSchema(w io.Writer, doc introspect.Document, format string, noColor bool) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		ui.RenderSchema(w, doc, noColor)
		return nil
	}
}
