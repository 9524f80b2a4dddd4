package commands

import (
	"errors"
	"fmt"
	"sort"

	"github.com/graphiti-lang/graphiti/internal/cli/ui"
	"github.com/graphiti-lang/graphiti/internal/introspect"
)

var errMissingDatabaseURL = errors.New("database url is not configured")

// formatError reports an unsupported --format value
type formatError struct {
	Format  string
	Allowed []string
}

func (e *formatError) Error() string {
	return fmt.Sprintf("unknown output format %q", e.Format)
}

// describeError turns a command failure into a user-facing message with
// whatever guidance the error type allows
func describeError(err error, noColor bool) ui.ErrorOptions {
	opts := ui.ErrorOptions{Problem: err.Error(), NoColor: noColor}

	var (
		typeErr   *introspect.UnknownColumnTypeError
		dupErr    *introspect.DuplicateOperationError
		formatErr *formatError
	)

	switch {
	case errors.Is(err, errMissingDatabaseURL):
		opts.Context = "configuration error"
		opts.HelpCommands = []string{
			"Set database.url in graphiti.yml or export DATABASE_URL",
			"Create a config: graphiti init",
		}
	case errors.Is(err, introspect.ErrConnectionUnavailable):
		opts.Context = "connection unavailable"
		opts.HelpCommands = []string{"Check database.driver and database.url"}
	case errors.As(err, &typeErr):
		names := introspect.NativeTypeNames()
		sort.Strings(names)
		opts.Context = "unknown column type"
		opts.Problem = typeErr.TypeName
		if typeErr.Column != "" {
			opts.Detail = fmt.Sprintf("Column %s.%s has no scalar mapping.", typeErr.Table, typeErr.Column)
		}
		opts.Suggestions = ui.FindSimilar(typeErr.TypeName, names, nil)
	case errors.As(err, &dupErr):
		opts.Context = "duplicate operation name"
		opts.Problem = dupErr.Name
		opts.Detail = fmt.Sprintf("Tables %s and %s generate the same name.", dupErr.Existing, dupErr.Table)
	case errors.Is(err, introspect.ErrMetadataAccess):
		opts.Context = "metadata access failed"
	case errors.As(err, &formatErr):
		opts.Context = "invalid flag"
		opts.Suggestions = ui.FindSimilar(formatErr.Format, formatErr.Allowed, nil)
		opts.HelpCommands = []string{"Get help: graphiti introspect --help"}
	}

	return opts
}
