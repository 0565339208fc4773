package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/roach88/rowkit/internal/batchfile"
	"github.com/roach88/rowkit/internal/record"
	"github.com/roach88/rowkit/internal/store"
	"github.com/roach88/rowkit/internal/testutil"
)

// Harness is the scenario execution engine. It owns the scratch database
// for one run.
type Harness struct {
	store  *store.Store // schema, setup and assertions
	flow   *store.Store // flow steps; carries return_identity
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh database file that is removed afterwards.
//
// Execution flow:
// 1. Create an empty database file
// 2. Apply the schema and setup statements
// 3. Execute flow steps on one session, checking expect clauses
// 4. Evaluate assertions
//
// An error is returned only when the scenario cannot be executed at all;
// failed expectations and assertions are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "rowkit-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(dir)

	// SQLite treats a zero-length file as an empty database.
	path := filepath.Join(dir, "scenario.db")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		return nil, fmt.Errorf("failed to create scratch database: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in scenario runs
	st, err := store.OpenPath(path, store.WithLogger(logger), store.WithMaxAttempts(1))
	if err != nil {
		return nil, fmt.Errorf("failed to open scratch store: %w", err)
	}

	h := &Harness{store: st, flow: st, logger: logger}
	if scenario.ReturnIdentity {
		h.flow = st.WithReturnIdentity()
	}

	ctx := context.Background()
	result := NewResult(testutil.NewFixedTraceGenerator(scenario.TraceID).Generate())

	if err := h.applySchema(ctx, scenario.Schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	if err := h.executeSetup(ctx, scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

func (h *Harness) applySchema(ctx context.Context, schema []string) error {
	for i, stmt := range schema {
		if _, err := h.store.NonQuery(ctx, stmt); err != nil {
			return fmt.Errorf("schema[%d]: %w", i, err)
		}
	}
	return nil
}

// executeSetup runs the setup statements as one nonquery batch.
func (h *Harness) executeSetup(ctx context.Context, setup []Statement) error {
	if len(setup) == 0 {
		return nil
	}
	file := &batchfile.File{Items: make([]batchfile.Item, len(setup))}
	for i, stmt := range setup {
		file.Items[i] = batchfile.Item{
			ID:     i + 1,
			Kind:   store.QueryNonQuery.String(),
			Query:  stmt.Query,
			Params: stmt.Params,
		}
	}
	items, err := file.BatchItems()
	if err != nil {
		return err
	}
	_, err = h.store.Batch(ctx, items)
	return err
}

// executeFlow runs each step as a one-item batch on a shared session, so
// validation and dispatch are exactly those of a batch file. A failing step
// is traced and checked against its expectation; later steps still run.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	sess, err := h.flow.Session(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	for i, step := range flow {
		file := &batchfile.File{Items: []batchfile.Item{step.Item}}
		items, err := file.BatchItems()
		if err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
		item := items[0]

		results, err := sess.Batch(ctx, items)
		if store.IsConnectionError(err) {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}

		var res *store.BatchResult
		category := errorCategory(err)
		if err == nil {
			r := results[item.ID]
			res = &r
		}
		seq := result.AddStepTrace(item.ID, item.Kind, item.Query, res, category)
		h.logger.Debug("step executed", "seq", seq, "step", item.ID, "kind", item.Kind, "error", category)

		for _, msg := range checkExpect(step, res, category, err) {
			result.AddError(msg)
		}
	}
	return nil
}

func errorCategory(err error) string {
	switch {
	case err == nil:
		return ""
	case store.IsMissingFieldError(err), store.IsDuplicateKeyError(err):
		return ErrorInvalidBatch
	default:
		return ErrorExecution
	}
}

// checkExpect compares a step outcome with its expect clause.
func checkExpect(step FlowStep, res *store.BatchResult, category string, stepErr error) []string {
	expect := step.Expect
	if expect == nil {
		expect = &ExpectClause{}
	}
	id := step.ID

	if category != expect.Error {
		if expect.Error == "" {
			return []string{fmt.Sprintf("step %d: unexpected %s error: %v", id, category, stepErr)}
		}
		got := category
		if got == "" {
			got = "success"
		}
		return []string{fmt.Sprintf("step %d: expected %s error, got %s", id, expect.Error, got)}
	}
	if res == nil {
		return nil
	}

	var errs []string
	if expect.RowsAffected != nil && res.Outcome.RowsAffected != *expect.RowsAffected {
		errs = append(errs, fmt.Sprintf("step %d: expected %d rows affected, got %d", id, *expect.RowsAffected, res.Outcome.RowsAffected))
	}
	if expect.Identity != nil {
		switch {
		case res.Outcome.Identity == nil:
			errs = append(errs, fmt.Sprintf("step %d: expected identity %d, none reported", id, *expect.Identity))
		case *res.Outcome.Identity != *expect.Identity:
			errs = append(errs, fmt.Sprintf("step %d: expected identity %d, got %d", id, *expect.Identity, *res.Outcome.Identity))
		}
	}
	if expect.Rows != nil {
		if n := rowCount(res); n != *expect.Rows {
			errs = append(errs, fmt.Sprintf("step %d: expected %d rows, got %d", id, *expect.Rows, n))
		}
	}
	if expect.Value != nil && !valueMatches(expect.Value, res.Value) {
		errs = append(errs, fmt.Sprintf("step %d: expected value %v, got %v", id, expect.Value, res.Value))
	}
	if len(expect.Record) > 0 {
		rec := firstRecord(res)
		if rec == nil {
			errs = append(errs, fmt.Sprintf("step %d: expected a row, got none", id))
		} else if msg := matchRecord(rec, expect.Record); msg != "" {
			errs = append(errs, fmt.Sprintf("step %d: %s", id, msg))
		}
	}
	return errs
}

func rowCount(res *store.BatchResult) int {
	if res.Kind == store.QuerySingle {
		if res.Record == nil {
			return 0
		}
		return 1
	}
	return len(res.Records)
}

func firstRecord(res *store.BatchResult) *record.Record {
	if res.Record != nil {
		return res.Record
	}
	if len(res.Records) > 0 {
		return res.Records[0]
	}
	return nil
}

// matchRecord checks expected fields against rec (subset semantics) and
// returns a description of the first mismatch, or "".
func matchRecord(rec *record.Record, expected map[string]any) string {
	keys := make([]string, 0, len(expected))
	for k := range expected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		actual, ok := rec.Get(key)
		if !ok {
			return fmt.Sprintf("field %q not present in columns %v", key, rec.Keys())
		}
		if !valueMatches(expected[key], actual) {
			return fmt.Sprintf("field %q = %v, expected %v", key, actual, expected[key])
		}
	}
	return ""
}

// valueMatches compares a YAML value with a materialized value by coercing
// the expected value to the actual value's kind.
func valueMatches(expected any, actual record.Value) bool {
	if actual == nil || actual.Kind() == record.KindNull {
		return expected == nil
	}
	if expected == nil {
		return false
	}
	want, err := record.Coerce(expected, actual.Kind())
	if err != nil {
		return false
	}
	if d, ok := actual.(record.Decimal); ok {
		return d.Cmp(want.(record.Decimal)) == 0
	}
	return want.String() == actual.String()
}
