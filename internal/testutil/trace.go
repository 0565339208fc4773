package testutil

// FixedTraceGenerator returns the same trace id every time.
//
// CLI golden tests use it so JSON responses are byte-identical across runs.
//
// Thread-safety: FixedTraceGenerator is stateless and safe for concurrent use.
type FixedTraceGenerator struct {
	id string
}

// NewFixedTraceGenerator creates a generator for id.
// If id is empty, Generate() returns "trace-00000000".
func NewFixedTraceGenerator(id string) *FixedTraceGenerator {
	if id == "" {
		id = "trace-00000000"
	}
	return &FixedTraceGenerator{id: id}
}

// Generate returns the fixed trace id.
func (g *FixedTraceGenerator) Generate() string {
	return g.id
}
