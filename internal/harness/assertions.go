package harness

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/rowkit/internal/bind"
	"github.com/roach88/rowkit/internal/record"
	"github.com/roach88/rowkit/internal/store"
)

// validIdentifier matches valid SQL identifiers (table/column names).
// Only allows alphanumeric and underscore, must start with letter or underscore.
// This prevents SQL injection via identifier interpolation.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			status := "ok"
			if event.Error != "" {
				status = event.Error + " error"
			}
			fmt.Fprintf(&buf, "  [%d] step %d %s: %s\n", event.Seq, event.Step, event.Kind, status)
		}
	}

	return buf.String()
}

// assertTraceContains checks that the step ran, with the given kind if one
// is specified.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Step != assertion.Step {
			continue
		}
		if assertion.Kind == "" || event.Kind == assertion.Kind {
			return nil
		}
		return &AssertionError{
			Type:     AssertTraceContains,
			Expected: fmt.Sprintf("step %d of kind %s", assertion.Step, assertion.Kind),
			Actual:   fmt.Sprintf("step %d of kind %s", event.Step, event.Kind),
			Trace:    trace,
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("step %d", assertion.Step),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if steps appear in the specified order.
// Steps don't need to be consecutive (intervening steps are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[int]int64, len(trace))
	for _, event := range trace {
		positions[event.Step] = event.Seq
	}

	for _, step := range assertion.Steps {
		if positions[step] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all steps present: %v", assertion.Steps),
				Actual:   fmt.Sprintf("missing step: %d", step),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Steps); i++ {
		prev := assertion.Steps[i-1]
		curr := assertion.Steps[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("steps in order: %v", assertion.Steps),
				Actual: fmt.Sprintf("step %d (seq %d) should be before step %d (seq %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertRowCount checks the number of rows matching the assertion's filter.
func assertRowCount(ctx context.Context, st *store.Store, assertion Assertion) error {
	if assertion.Count == nil {
		return fmt.Errorf("row_count assertion requires count")
	}
	query, params, err := buildSelect("COUNT(*)", assertion.Table, assertion.Where)
	if err != nil {
		return err
	}

	v, err := st.Scalar(ctx, query, params...)
	if err != nil {
		return &AssertionError{
			Type:     AssertRowCount,
			Expected: fmt.Sprintf("count rows of %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}

	n, err := record.Coerce(v, record.KindInt)
	if err != nil {
		return fmt.Errorf("row_count: %w", err)
	}
	if int(n.(record.Int)) != *assertion.Count {
		return &AssertionError{
			Type:     AssertRowCount,
			Expected: fmt.Sprintf("%d rows in %s where %s", *assertion.Count, assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   fmt.Sprintf("%d rows", int64(n.(record.Int))),
		}
	}
	return nil
}

// assertFinalState checks that exactly one row matches and that it holds
// the expected values (subset semantics).
func assertFinalState(ctx context.Context, st *store.Store, assertion Assertion) error {
	query, params, err := buildSelect("*", assertion.Table, assertion.Where)
	if err != nil {
		return err
	}

	cur, err := st.Many(ctx, query, params...)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	rows, err := cur.Collect()
	if err != nil {
		return fmt.Errorf("final_state: %w", err)
	}

	whereDesc := formatWhereClause(assertion.Where)
	switch len(rows) {
	case 0:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, whereDesc),
			Actual:   "row not found",
		}
	case 1:
	default:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, whereDesc),
			Actual:   fmt.Sprintf("%d rows matched (assertion is ambiguous)", len(rows)),
		}
	}

	if msg := matchRecord(rows[0], assertion.Expect); msg != "" {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s to match %v", assertion.Table, whereDesc, assertion.Expect),
			Actual:   msg,
		}
	}
	return nil
}

// buildSelect constructs "SELECT <what> FROM <table> [WHERE ...]" with one
// named parameter per filter. Keys are sorted for determinism.
//
// Security: Table and column names are validated against a whitelist pattern
// to prevent SQL injection via identifier interpolation.
func buildSelect(what, table string, where map[string]any) (string, []bind.Parameter, error) {
	if !validIdentifier.MatchString(table) {
		return "", nil, fmt.Errorf("invalid table name %q: must match pattern %s", table, validIdentifier.String())
	}

	query := fmt.Sprintf("SELECT %s FROM %s", what, table)
	if len(where) == 0 {
		return query, nil, nil
	}

	keys := sortedKeys(where)
	clauses := make([]string, 0, len(keys))
	params := make([]bind.Parameter, 0, len(keys))
	for i, key := range keys {
		if !validIdentifier.MatchString(key) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", key, validIdentifier.String())
		}
		name := fmt.Sprintf("@where%d", i)
		clauses = append(clauses, fmt.Sprintf("%s = %s", key, name))
		params = append(params, bind.P(name, where[key], bind.TypeVariant))
	}

	return query + " WHERE " + strings.Join(clauses, " AND "), params, nil
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := sortedKeys(where)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for row_count and final_state.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertRowCount, AssertFinalState:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: %s requires database context", i, assertion.Type)
			} else if assertion.Type == AssertRowCount {
				err = assertRowCount(actx.Ctx, actx.Store, assertion)
			} else {
				err = assertFinalState(actx.Ctx, actx.Store, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
