package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rowkit/internal/batchfile"
	"github.com/roach88/rowkit/internal/store"
)

// NewBatchCommand creates the batch command.
func NewBatchCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <file.yaml|file.cue>",
		Short: "Run a batch of statements over one connection",
		Long: `Run the statements listed in a batch file, in order, over one connection.

The whole batch is validated before anything runs: every item needs a
non-zero unique id, a query, a kind (single, many, nonquery, scalar) and
parameters when its query has placeholders.

Example:
  rowkit batch --db shop.db --format json updates.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runBatch(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	logger := newLogger(opts, formatter.GetErrWriter())

	items, err := batchfile.Load(path)
	if err != nil {
		var loadErr *batchfile.LoadError
		if errors.As(err, &loadErr) {
			return formatter.Fail(ExitCommandError, loadErr.Code, loadErr.Message, nil)
		}
		return storeFailure(formatter, err)
	}
	formatter.VerboseLog("Loaded %d item(s) from %s", len(items), path)

	s, err := openStore(opts, logger)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to open database", err)
	}

	results, err := s.Batch(cmd.Context(), items)
	if err != nil {
		return storeFailure(formatter, err)
	}
	return formatter.Success(batchResult(results))
}

type batchResult map[int]store.BatchResult

func (r batchResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[int]store.BatchResult(r))
}

// String lists results by ascending id.
func (r batchResult) String() string {
	ids := make([]int, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte('\n')
		}
		res := r[id]
		fmt.Fprintf(&b, "[%d] %s\n", id, res.Kind)
		var body string
		switch res.Kind {
		case store.QuerySingle:
			body = singleResult{res.Record}.String()
		case store.QueryMany:
			body = manyResult(res.Records).String()
		case store.QueryNonQuery:
			body = outcomeResult(res.Outcome).String()
		case store.QueryScalar:
			body = scalarResult{res.Value}.String()
		}
		b.WriteString(body)
	}
	return b.String()
}
