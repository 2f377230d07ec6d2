package harness

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/varelim/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestRunWithGolden_ScenarioFiles(t *testing.T) {
	scenarios, err := LoadScenarios(scenariosDir)
	require.NoError(t, err)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestSnapshot_Deterministic(t *testing.T) {
	s := rainScenario()

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	assert.Equal(t, Snapshot(s, first), Snapshot(s, second))
}

func TestSnapshot_Layout(t *testing.T) {
	s := rainScenario()
	s.Evidence = map[string]string{}
	result, err := Run(s)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(Snapshot(s, result))), "\n")
	assert.Equal(t, []string{
		"scenario: umbrella",
		"run: test-run-default",
		"query: Umbrella",
		"evidence: (none)",
		"order: Rain",
		"calls:",
		"  1 join Rain",
		"  2 eliminate Rain",
		"answer: P(Umbrella)",
		"  Umbrella=yes: 0.410000",
		"  Umbrella=no: 0.590000",
	}, lines)
}
