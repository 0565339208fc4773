package harness

import "github.com/roach88/rowkit/internal/store"

// TraceEvent records one executed flow step.
type TraceEvent struct {
	Seq    int64              `json:"seq"`
	Step   int                `json:"step"`
	Kind   string             `json:"kind"`
	Query  string             `json:"query"`
	Result *store.BatchResult `json:"result,omitempty"` // nil when the step failed
	Error  string             `json:"error,omitempty"`  // error category, see ExpectClause.Error
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// TraceID identifies the run in golden output.
	TraceID string `json:"trace_id"`

	// Trace contains one event per flow step, in execution order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(traceID string) *Result {
	return &Result{
		Pass:    true,
		TraceID: traceID,
		Trace:   []TraceEvent{},
		Errors:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStepTrace appends a step to the trace and returns its sequence number.
func (r *Result) AddStepTrace(step int, kind store.QueryKind, query string, res *store.BatchResult, errCategory string) int64 {
	seq := int64(len(r.Trace) + 1)
	r.Trace = append(r.Trace, TraceEvent{
		Seq:    seq,
		Step:   step,
		Kind:   kind.String(),
		Query:  query,
		Result: res,
		Error:  errCategory,
	})
	return seq
}
