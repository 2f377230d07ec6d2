package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/varelim/internal/factor"
	"github.com/roach88/varelim/internal/inference"
	"github.com/roach88/varelim/internal/store"
	"github.com/roach88/varelim/internal/testutil"
)

func newTestQuery(format string) *QueryOptions {
	return &QueryOptions{
		RootOptions:    &RootOptions{Format: format},
		RunIDGenerator: testutil.NewFixedRunIDGenerator("run-cli-001"),
	}
}

type queryResponse struct {
	Status string      `json:"status"`
	Data   QueryOutput `json:"data"`
	Error  *CLIError   `json:"error"`
}

func TestQueryText(t *testing.T) {
	out, _, err := execute(t, newQueryCommand(newTestQuery("text")),
		filepath.Join(networksDir, "rain.cue"), "--query", "Umbrella")
	require.NoError(t, err)

	assert.Contains(t, out, "Run run-cli-001 (network rain)")
	assert.Contains(t, out, "P(Umbrella)\n  Umbrella=yes: 0.410000\n  Umbrella=no: 0.590000\n")
	assert.Contains(t, out, "Order: Rain")
	assert.Contains(t, out, "Trace (2 calls):")
	assert.Contains(t, out, "join      Rain")
	assert.Contains(t, out, "eliminate Rain")
	assert.NotContains(t, out, "Run stored.")
}

func TestQueryJSONWithEvidence(t *testing.T) {
	out, _, err := execute(t, newQueryCommand(newTestQuery("json")),
		filepath.Join(networksDir, "alarm"),
		"--query", "Burglary",
		"--evidence", "JohnCalls=yes,MaryCalls=yes",
	)
	require.NoError(t, err)

	var resp queryResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-cli-001", resp.Data.RunID)
	assert.Equal(t, "P(Burglary | JohnCalls, MaryCalls)", resp.Data.Signature)
	assert.Equal(t, []factor.Variable{"Alarm", "Earthquake"}, resp.Data.Order)
	assert.Equal(t, map[factor.Variable]string{"JohnCalls": "yes", "MaryCalls": "yes"}, resp.Data.Evidence)
	require.Len(t, resp.Data.Answer, 2)
	assert.Equal(t, "yes", resp.Data.Answer[0].Assignment["Burglary"])
	assert.InDelta(t, 0.284172, resp.Data.Answer[0].P, 1e-6)
	assert.Len(t, resp.Data.Calls, 4)
	assert.Empty(t, resp.Data.Metrics)
}

func TestQueryExplicitOrder(t *testing.T) {
	out, _, err := execute(t, newQueryCommand(newTestQuery("json")),
		filepath.Join(networksDir, "alarm"),
		"-q", "Burglary", "-e", "JohnCalls=yes",
		"--order", "MaryCalls,Earthquake,Alarm",
	)
	require.NoError(t, err)

	var resp queryResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []factor.Variable{"MaryCalls", "Earthquake", "Alarm"}, resp.Data.Order)
	assert.Equal(t, inference.Call{Seq: 1, Operation: inference.OpJoin, Variable: "MaryCalls"}, resp.Data.Calls[0])
}

func TestQueryEmptyOrderKeepsJoint(t *testing.T) {
	out, _, err := execute(t, newQueryCommand(newTestQuery("json")),
		filepath.Join(networksDir, "rain.cue"), "--query", "Umbrella", "--order", "")
	require.NoError(t, err)

	var resp queryResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "P(Rain, Umbrella)", resp.Data.Signature)
	assert.Empty(t, resp.Data.Order)
	assert.Empty(t, resp.Data.Calls)
}

func TestQueryMetrics(t *testing.T) {
	out, _, err := execute(t, newQueryCommand(newTestQuery("json")),
		filepath.Join(networksDir, "rain.cue"), "--query", "Umbrella", "--metrics")
	require.NoError(t, err)

	var resp queryResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []MetricSample{
		{
			Name:   "varelim_factor_operations_total",
			Labels: map[string]string{"operation": "eliminate", "variable": "Rain"},
			Value:  1,
		},
		{
			Name:   "varelim_factor_operations_total",
			Labels: map[string]string{"operation": "join", "variable": "Rain"},
			Value:  1,
		},
	}, resp.Data.Metrics)
}

func TestQueryMetricsText(t *testing.T) {
	out, _, err := execute(t, newQueryCommand(newTestQuery("text")),
		filepath.Join(networksDir, "rain.cue"), "--query", "Umbrella", "--metrics")
	require.NoError(t, err)
	assert.Contains(t, out, "Metrics:")
	assert.Contains(t, out, `varelim_factor_operations_total{operation="join",variable="Rain"} 1`)
}

func TestQueryStoresRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	out, _, err := execute(t, newQueryCommand(newTestQuery("text")),
		filepath.Join(networksDir, "rain.cue"), "--query", "Rain", "--evidence", "Umbrella=yes", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Run stored.")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	run, err := st.ReadRun(context.Background(), "run-cli-001")
	require.NoError(t, err)
	assert.Equal(t, "rain", run.Network)
	assert.Equal(t, map[factor.Variable]string{"Umbrella": "yes"}, run.Evidence)
}

func TestQueryErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantErr  string
	}{
		{
			name:     "missing query flag",
			args:     []string{filepath.Join(networksDir, "rain.cue")},
			wantCode: ExitFailure,
			wantErr:  `required flag(s) "query" not set`,
		},
		{
			name:     "unknown query variable",
			args:     []string{filepath.Join(networksDir, "rain.cue"), "--query", "Wind"},
			wantCode: ExitCommandError,
			wantErr:  "E101",
		},
		{
			name:     "evidence outside domain",
			args:     []string{filepath.Join(networksDir, "rain.cue"), "--query", "Rain", "--evidence", "Umbrella=maybe"},
			wantCode: ExitCommandError,
			wantErr:  "maybe",
		},
		{
			name:     "order names query variable",
			args:     []string{filepath.Join(networksDir, "rain.cue"), "--query", "Rain", "--order", "Rain"},
			wantCode: ExitCommandError,
			wantErr:  "invalid elimination order",
		},
		{
			name:     "network not found",
			args:     []string{"/nonexistent.cue", "--query", "Rain"},
			wantCode: ExitCommandError,
			wantErr:  "E005",
		},
		{
			name:     "invalid network",
			args:     []string{filepath.Join(networksDir, "invalid", "cycle.cue"), "--query", "A"},
			wantCode: ExitFailure,
			wantErr:  "E230",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, newQueryCommand(newTestQuery("text")), tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
