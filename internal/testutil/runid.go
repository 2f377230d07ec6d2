package testutil

// FixedRunIDGenerator returns the same run ID every time.
//
// This enables deterministic query runs and golden snapshot comparison: the
// same scenario with the same generator produces byte-identical stored runs.
//
// Thread-safety: FixedRunIDGenerator is stateless and safe for concurrent use.
type FixedRunIDGenerator struct {
	id string
}

// NewFixedRunIDGenerator creates a generator that always returns id.
// If id is empty, Generate returns "test-run-default".
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunIDGenerator{id: id}
}

// Generate returns the fixed run ID.
//
// Implements query.RunIDGenerator.
func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}
