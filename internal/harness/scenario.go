package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rowkit/internal/batchfile"
	"github.com/roach88/rowkit/internal/store"
)

// Scenario defines one scripted run against a scratch database.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema holds the DDL statements that create the scratch database.
	Schema []string `yaml:"schema"`

	// Setup statements run after the schema and before the flow. They are
	// not traced and must succeed.
	Setup []Statement `yaml:"setup,omitempty"`

	// Flow contains the traced steps, executed in order on one session.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and table state.
	Assertions []Assertion `yaml:"assertions"`

	// ReturnIdentity makes nonquery steps report the generated identity.
	ReturnIdentity bool `yaml:"return_identity,omitempty"`

	// TraceID is an optional fixed trace id. If empty, a constant default
	// is used so golden output stays stable.
	TraceID string `yaml:"trace_id,omitempty"`
}

// Statement is a setup statement with its parameters.
type Statement struct {
	Query  string            `yaml:"query"`
	Params []batchfile.Param `yaml:"params,omitempty"`
}

// FlowStep is a batch item, written the same way as in a batch file, plus an
// optional expectation.
type FlowStep struct {
	batchfile.Item `yaml:",inline"`

	// Expect validates the step outcome. If nil the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a step. Only the fields
// that are set are checked.
type ExpectClause struct {
	// Error is the expected failure category: "execution" or
	// "invalid_batch". Empty means the step must succeed.
	Error string `yaml:"error,omitempty"`

	// RowsAffected is checked for nonquery steps.
	RowsAffected *int64 `yaml:"rows_affected,omitempty"`

	// Identity is checked for nonquery steps when return_identity is set.
	Identity *int64 `yaml:"identity,omitempty"`

	// Rows is the number of rows a many step returned, or 0/1 for single.
	Rows *int `yaml:"rows,omitempty"`

	// Value is the expected scalar result.
	Value any `yaml:"value,omitempty"`

	// Record is a subset match against the single row, or the first row of
	// a many step.
	Record map[string]any `yaml:"record,omitempty"`
}

// Error categories recorded in the trace.
const (
	ErrorExecution    = "execution"
	ErrorInvalidBatch = "invalid_batch"
)

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": Check a step ran (and its kind, if given)
	// - "trace_order": Check steps ran in order
	// - "row_count": Count rows in a table
	// - "final_state": Query one row and verify expected values
	Type string `yaml:"type"`

	// Step is the step id (used by trace_contains).
	Step int `yaml:"step,omitempty"`

	// Kind is the expected step kind (used by trace_contains).
	Kind string `yaml:"kind,omitempty"`

	// Steps is the expected step order (used by trace_order).
	Steps []int `yaml:"steps,omitempty"`

	// Table is the table name (used by row_count and final_state).
	Table string `yaml:"table,omitempty"`

	// Where specifies equality filters (used by row_count and final_state).
	Where map[string]any `yaml:"where,omitempty"`

	// Expect contains expected field values (used by final_state).
	// Subset match - only specified fields are validated.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected number of rows (used by row_count).
	Count *int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertRowCount      = "row_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Schema) == 0 {
		return fmt.Errorf("schema list is required and must be non-empty")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, stmt := range s.Setup {
		if stmt.Query == "" {
			return fmt.Errorf("setup[%d]: query is required", i)
		}
	}

	seen := make(map[int]bool, len(s.Flow))
	for i, step := range s.Flow {
		if step.ID == 0 {
			return fmt.Errorf("flow[%d]: id is required", i)
		}
		if seen[step.ID] {
			return fmt.Errorf("flow[%d]: duplicate id %d", i, step.ID)
		}
		seen[step.ID] = true
		if step.Kind == "" {
			return fmt.Errorf("flow[%d]: kind is required", i)
		}
		if _, err := store.ParseQueryKind(step.Kind); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
		if step.Expect != nil {
			switch step.Expect.Error {
			case "", ErrorExecution, ErrorInvalidBatch:
			default:
				return fmt.Errorf("flow[%d].expect: unknown error category %q", i, step.Expect.Error)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Step == 0 {
			return fmt.Errorf("assertions[%d]: step is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Steps) == 0 {
			return fmt.Errorf("assertions[%d]: steps list is required for trace_order", index)
		}
	case AssertRowCount:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for row_count", index)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for row_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
