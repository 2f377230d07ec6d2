package network

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/varelim/internal/factor"
)

func compileString(t *testing.T, src string) (*Network, error) {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename("test.cue"))
	require.NoError(t, v.Err())
	return Compile(v.LookupPath(cue.ParsePath("network")))
}

const rainSource = `
network: {
	variables: {
		Rain: ["wet", "dry"]
		Umbrella: ["yes", "no"]
	}
	cpt: {
		Rain: table: [
			{assignment: {Rain: "wet"}, p: 0.3},
			{assignment: {Rain: "dry"}, p: 0.7},
		]
		Umbrella: {
			given: ["Rain"]
			table: [
				{assignment: {Rain: "wet", Umbrella: "yes"}, p: 0.9},
				{assignment: {Rain: "wet", Umbrella: "no"}, p: 0.1},
				{assignment: {Rain: "dry", Umbrella: "yes"}, p: 0.2},
				{assignment: {Rain: "dry", Umbrella: "no"}, p: 0.8},
			]
		}
	}
}
`

func TestCompileRain(t *testing.T) {
	net, err := compileString(t, rainSource)
	require.NoError(t, err)

	assert.Equal(t, []factor.Variable{"Rain", "Umbrella"}, net.VariableNames())
	assert.Equal(t, []string{"wet", "dry"}, net.Variables[0].Values)
	assert.True(t, net.Variables[0].Pos.IsValid())

	require.Len(t, net.CPTs, 2)
	assert.Equal(t, factor.Variable("Rain"), net.CPTs[0].Variable)
	assert.Empty(t, net.CPTs[0].Given)
	assert.Len(t, net.CPTs[0].Rows, 2)

	umbrella, ok := net.CPT("Umbrella")
	require.True(t, ok)
	assert.Equal(t, []factor.Variable{"Rain"}, umbrella.Given)
	require.Len(t, umbrella.Rows, 4)
	assert.Equal(t, map[factor.Variable]string{"Rain": "wet", "Umbrella": "yes"}, umbrella.Rows[0].Assignment)
	assert.InDelta(t, 0.9, umbrella.Rows[0].P, 1e-12)

	_, ok = net.CPT("Wind")
	assert.False(t, ok)
}

func TestCompileName(t *testing.T) {
	net, err := compileString(t, `network: {
		name: "weather"
		variables: {X: ["a"]}
		cpt: {X: table: [{assignment: {X: "a"}, p: 1}]}
	}`)
	require.NoError(t, err)
	assert.Equal(t, "weather", net.Name)

	// Integer probabilities compile as numbers.
	assert.Equal(t, 1.0, net.CPTs[0].Rows[0].P)
}

func TestCompileNormalizesNFC(t *testing.T) {
	// CUE decodes the escapes to decomposed "e" + combining acute accent.
	net, err := compileString(t, `network: {
		variables: {"Cafe\u0301": ["ouverte\u0301"]}
		cpt: {"Cafe\u0301": table: [{assignment: {"Cafe\u0301": "ouverte\u0301"}, p: 1}]}
	}`)
	require.NoError(t, err)

	assert.Equal(t, factor.Variable("Caf\u00e9"), net.Variables[0].Name)
	assert.Equal(t, []string{"ouvert\u00e9"}, net.Variables[0].Values)
	assert.Equal(t, factor.Variable("Caf\u00e9"), net.CPTs[0].Variable)
	assert.Equal(t, "ouvert\u00e9", net.CPTs[0].Rows[0].Assignment["Caf\u00e9"])
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{
			name:  "missing variables",
			src:   `network: {cpt: {}}`,
			field: "variables",
		},
		{
			name:  "missing cpt",
			src:   `network: {variables: {X: ["a"]}}`,
			field: "cpt",
		},
		{
			name:  "domain not a list",
			src:   `network: {variables: {X: "a"}, cpt: {}}`,
			field: "variables.X",
		},
		{
			name:  "missing table",
			src:   `network: {variables: {X: ["a"]}, cpt: {X: {given: []}}}`,
			field: "cpt.X.table",
		},
		{
			name:  "missing p",
			src:   `network: {variables: {X: ["a"]}, cpt: {X: table: [{assignment: {X: "a"}}]}}`,
			field: "cpt.X.table[0].p",
		},
		{
			name:  "p not a number",
			src:   `network: {variables: {X: ["a"]}, cpt: {X: table: [{assignment: {X: "a"}, p: "high"}]}}`,
			field: "cpt.X.table[0].p",
		},
		{
			name:  "assignment value not a string",
			src:   `network: {variables: {X: ["a"]}, cpt: {X: table: [{assignment: {X: 1}, p: 1}]}}`,
			field: "cpt.X.table[0].assignment.X",
		},
		{
			name:  "network not a struct",
			src:   `network: 3`,
			field: "network",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileString(t, tt.src)
			require.Error(t, err)

			var compileErr *CompileError
			require.ErrorAs(t, err, &compileErr)
			assert.Equal(t, tt.field, compileErr.Field)
		})
	}
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "cpt.X", Message: "table is required"}
	assert.Equal(t, "cpt.X: table is required", err.Error())
}
