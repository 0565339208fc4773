package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rowkit/internal/bind"
	"github.com/roach88/rowkit/internal/record"
	"github.com/roach88/rowkit/internal/store"
)

// QueryOptions holds flags shared by the single, many, scalar and exec
// commands.
type QueryOptions struct {
	*RootOptions
	Params   []string
	Identity bool
}

type queryRunner func(cmd *cobra.Command, s *store.Store, opts *QueryOptions, query string, params []bind.Parameter) (interface{}, error)

func newQueryCommand(rootOpts *RootOptions, use, short, long string, run queryRunner) (*cobra.Command, *QueryOptions) {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           use + " <query>",
		Short:         short,
		Long:          long,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, opts, args[0], run)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Params, "param", "p", nil, "parameter as @Name[:type]=value (repeatable)")

	return cmd, opts
}

func runQuery(cmd *cobra.Command, opts *QueryOptions, query string, run queryRunner) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, formatter.GetErrWriter())

	params, err := parseParams(opts.Params)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidParam, "invalid parameter", err)
	}

	s, err := openStore(opts.RootOptions, logger)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to open database", err)
	}

	result, err := run(cmd, s, opts, query, params)
	if err != nil {
		return storeFailure(formatter, err)
	}
	return formatter.Success(result)
}

// NewSingleCommand creates the single command.
func NewSingleCommand(rootOpts *RootOptions) *cobra.Command {
	cmd, _ := newQueryCommand(rootOpts, "single", "Print the first row of a query",
		`Run a query and print its first row, or nothing when no row matches.

Example:
  rowkit single --db shop.db "SELECT * FROM Products WHERE ID = @ID" -p @ID:integer=1`,
		func(cmd *cobra.Command, s *store.Store, opts *QueryOptions, query string, params []bind.Parameter) (interface{}, error) {
			rec, err := s.Single(cmd.Context(), query, params...)
			if err != nil {
				return nil, err
			}
			return singleResult{rec}, nil
		})
	return cmd
}

// NewManyCommand creates the many command.
func NewManyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd, _ := newQueryCommand(rootOpts, "many", "Print every row of a query",
		`Run a query and print every row in result order.

Example:
  rowkit many --db shop.db "SELECT * FROM Products WHERE CategoryID = @Cat" -p @Cat:integer=2`,
		func(cmd *cobra.Command, s *store.Store, opts *QueryOptions, query string, params []bind.Parameter) (interface{}, error) {
			cur, err := s.Many(cmd.Context(), query, params...)
			if err != nil {
				return nil, err
			}
			recs, err := cur.Collect()
			if err != nil {
				return nil, err
			}
			return manyResult(recs), nil
		})
	return cmd
}

// NewScalarCommand creates the scalar command.
func NewScalarCommand(rootOpts *RootOptions) *cobra.Command {
	cmd, _ := newQueryCommand(rootOpts, "scalar", "Print the first column of the first row",
		`Run a query and print the first column of its first row (NULL when empty).

Example:
  rowkit scalar --db shop.db "SELECT COUNT(*) FROM Products"`,
		func(cmd *cobra.Command, s *store.Store, opts *QueryOptions, query string, params []bind.Parameter) (interface{}, error) {
			v, err := s.Scalar(cmd.Context(), query, params...)
			if err != nil {
				return nil, err
			}
			return scalarResult{v}, nil
		})
	return cmd
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	cmd, opts := newQueryCommand(rootOpts, "exec", "Run a statement that returns no rows",
		`Run an INSERT, UPDATE, DELETE or DDL statement and print the rows affected.
With --identity, also print the identity generated by an INSERT.

Example:
  rowkit exec --db shop.db --identity "INSERT INTO Products (Name) VALUES (@Name)" -p @Name=Widget`,
		func(cmd *cobra.Command, s *store.Store, opts *QueryOptions, query string, params []bind.Parameter) (interface{}, error) {
			if opts.Identity {
				s = s.WithReturnIdentity()
			}
			out, err := s.NonQuery(cmd.Context(), query, params...)
			if err != nil {
				return nil, err
			}
			return outcomeResult(out), nil
		})
	cmd.Flags().BoolVar(&opts.Identity, "identity", false, "also report the generated identity")
	return cmd
}

// storeFailure maps a store error onto an error code and exit code.
func storeFailure(f *OutputFormatter, err error) error {
	switch {
	case store.IsConnectionError(err):
		return f.Fail(ExitCommandError, ErrCodeConnection, "could not connect to database", err)
	case store.IsMissingFieldError(err), store.IsDuplicateKeyError(err):
		return f.Fail(ExitFailure, ErrCodeInvalidBatch, "invalid batch", err)
	case store.IsExecutionError(err):
		return f.Fail(ExitFailure, ErrCodeExecution, "statement failed", err)
	default:
		return f.Fail(ExitFailure, ErrCodeGeneric, "operation failed", err)
	}
}

// formatRecord renders a record as "Col=value" pairs in column order.
func formatRecord(rec *record.Record) string {
	var b strings.Builder
	i := 0
	for name, v := range rec.All() {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%s", name, v)
		i++
	}
	return b.String()
}

type singleResult struct {
	rec *record.Record
}

func (r singleResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.rec)
}

func (r singleResult) String() string {
	if r.rec == nil {
		return "(no rows)"
	}
	return formatRecord(r.rec)
}

type manyResult []*record.Record

func (r manyResult) MarshalJSON() ([]byte, error) {
	return json.Marshal([]*record.Record(r))
}

func (r manyResult) String() string {
	if len(r) == 0 {
		return "(no rows)"
	}
	lines := make([]string, len(r))
	for i, rec := range r {
		lines[i] = formatRecord(rec)
	}
	return strings.Join(lines, "\n")
}

type scalarResult struct {
	v record.Value
}

func (r scalarResult) MarshalJSON() ([]byte, error) {
	return record.MarshalValue(r.v)
}

func (r scalarResult) String() string {
	if r.v == nil {
		return "NULL"
	}
	return r.v.String()
}

type outcomeResult store.NonQueryOutcome

func (r outcomeResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(store.NonQueryOutcome(r))
}

func (r outcomeResult) String() string {
	s := fmt.Sprintf("rows affected: %d", r.RowsAffected)
	if r.Identity != nil {
		s += fmt.Sprintf("\nidentity: %d", *r.Identity)
	}
	return s
}
