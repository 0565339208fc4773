package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/rowkit/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose     bool
	Format      string // "json" | "text"
	Database    string
	Password    string
	MaxAttempts int

	// TraceGenerator allows overriding the trace id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	TraceGenerator TraceGenerator

	// StoreOptions are appended when the store is opened (for testing).
	StoreOptions []store.Option
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the rowkit CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rowkit",
		Short: "rowkit - parameterized SQL against a database file",
		Long: `Run parameterized statements against a SQLite database file and get rows
back as ordered records.

Connections are retried with linear backoff; statements are not.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.MaxAttempts < 1 {
				return fmt.Errorf("invalid --max-attempts %d: must be at least 1", opts.MaxAttempts)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to the database file (required)")
	cmd.PersistentFlags().StringVar(&opts.Password, "password", "", "database password")
	cmd.PersistentFlags().IntVar(&opts.MaxAttempts, "max-attempts", store.DefaultMaxAttempts, "connection attempts before giving up")

	// Add subcommands
	cmd.AddCommand(NewSingleCommand(opts))
	cmd.AddCommand(NewManyCommand(opts))
	cmd.AddCommand(NewScalarCommand(opts))
	cmd.AddCommand(NewExecCommand(opts))
	cmd.AddCommand(NewBatchCommand(opts))
	cmd.AddCommand(NewCompactCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// newLogger builds the diagnostic logger: text on w, Debug with --verbose.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	return slog.New(handler)
}

// newFormatter builds the output formatter for one command run and assigns
// it a fresh trace id.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	gen := opts.TraceGenerator
	if gen == nil {
		gen = UUIDv7Generator{}
	}
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Diagnostics go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
		TraceID:   gen.Generate(),
	}
}

// openStore opens the store named by the global flags.
func openStore(opts *RootOptions, logger *slog.Logger) (*store.Store, error) {
	if opts.Database == "" {
		return nil, fmt.Errorf("--db is required")
	}
	storeOpts := []store.Option{
		store.WithMaxAttempts(opts.MaxAttempts),
		store.WithLogger(logger),
	}
	storeOpts = append(storeOpts, opts.StoreOptions...)
	return store.Open(store.Target{Path: opts.Database, Password: opts.Password}, storeOpts...)
}
