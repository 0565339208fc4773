package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// CompactOptions holds flags for the compact command.
type CompactOptions struct {
	*RootOptions
	Into string
}

// CompactOutput is the payload of a successful compaction.
type CompactOutput struct {
	Database  string `json:"database"`
	Compacted bool   `json:"compacted"`
}

func (o CompactOutput) String() string {
	return fmt.Sprintf("compacted %s", o.Database)
}

// NewCompactCommand creates the compact command.
func NewCompactCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompactOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Compact the database file in place",
		Long: `Write a compacted copy of the database to --into, then replace the
original with it. On failure the original file is left untouched.

Example:
  rowkit compact --db shop.db --into /tmp/shop.compact.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompact(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Into, "into", "", "temporary path for the compacted copy (required)")
	_ = cmd.MarkFlagRequired("into")

	return cmd
}

func runCompact(opts *CompactOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, formatter.GetErrWriter())

	s, err := openStore(opts.RootOptions, logger)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to open database", err)
	}

	if err := s.Compact(cmd.Context(), opts.Into); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeCompaction, "compaction failed; database left unchanged", err)
	}
	return formatter.Success(CompactOutput{Database: opts.Database, Compacted: true})
}
