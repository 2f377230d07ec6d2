package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/varelim/internal/factor"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func rainNetwork(t *testing.T) *Network {
	t.Helper()
	net, err := compileString(t, rainSource)
	require.NoError(t, err)
	return net
}

func TestValidateRainIsClean(t *testing.T) {
	assert.Empty(t, Validate(rainNetwork(t)))
}

func TestValidateNoVariables(t *testing.T) {
	errs := Validate(&Network{})
	assert.Equal(t, []string{ErrNoVariables}, codes(errs))
}

func TestValidateVariableErrors(t *testing.T) {
	net := &Network{
		Variables: []VariableDecl{
			{Name: "A", Values: []string{"x", "x"}},
			{Name: "B"},
			{Name: "A", Values: []string{"y"}},
			{Name: "", Values: []string{"z"}},
		},
	}

	errs := Validate(net)
	assert.Equal(t, []string{
		ErrDuplicateValue,
		ErrEmptyDomain,
		ErrDuplicateVariable,
		ErrEmptyVariableName,
		ErrMissingCPT,
		ErrMissingCPT,
	}, codes(errs))
}

func TestValidateCPTScope(t *testing.T) {
	domain := []string{"t", "f"}
	net := &Network{
		Variables: []VariableDecl{{Name: "A", Values: domain}, {Name: "B", Values: domain}},
		CPTs: []CPT{
			{Variable: "A", Given: []factor.Variable{"A"}},
			{Variable: "B", Given: []factor.Variable{"Z", "A", "A"}},
			{Variable: "C"},
			{Variable: "A"},
		},
	}

	errs := Validate(net)
	assert.Equal(t, []string{
		ErrSelfParent,
		ErrUnknownVariable,
		ErrDuplicateParent,
		ErrUnknownVariable,
		ErrDuplicateCPT,
	}, codes(errs))
	assert.Equal(t, "cpt.B.given[0]", errs[1].Field)
}

func TestValidateRows(t *testing.T) {
	net := rainNetwork(t)
	net.CPTs[0].Rows = []Row{
		{Assignment: map[factor.Variable]string{"Rain": "wet"}, P: 0.3},
		{Assignment: map[factor.Variable]string{"Rain": "wet"}, P: 0.7},
	}
	net.CPTs[1].Rows = []Row{
		{Assignment: map[factor.Variable]string{"Rain": "wet"}, P: 0.5},
		{Assignment: map[factor.Variable]string{"Rain": "wet", "Umbrella": "yes", "Wind": "calm"}, P: 0.5},
		{Assignment: map[factor.Variable]string{"Rain": "snow", "Umbrella": "yes"}, P: 0.5},
		{Assignment: map[factor.Variable]string{"Rain": "dry", "Umbrella": "yes"}, P: -0.1},
	}

	errs := Validate(net)
	assert.Equal(t, []string{
		ErrDuplicateRow,
		ErrRowScope,
		ErrRowScope,
		ErrValueOutsideDomain,
		ErrProbabilityRange,
	}, codes(errs))
	assert.Equal(t, "cpt.Rain.table[1]", errs[0].Field)
	assert.Equal(t, "cpt.Umbrella.table[3].p", errs[4].Field)
}

func TestValidateSums(t *testing.T) {
	net := rainNetwork(t)
	// Drop Umbrella=no|Rain=dry: the dry slice now sums to 0.2.
	net.CPTs[1].Rows = net.CPTs[1].Rows[:3]

	errs := Validate(net)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrNotNormalized, errs[0].Code)
	assert.Contains(t, errs[0].Message, "Rain=dry")
	assert.Contains(t, errs[0].Message, "0.2")
}

func TestValidateSumsWithinTolerance(t *testing.T) {
	net := rainNetwork(t)
	net.CPTs[0].Rows[0].P = 0.3 + SumTolerance/2
	assert.Empty(t, Validate(net))
}

func TestValidateRootSum(t *testing.T) {
	net := rainNetwork(t)
	net.CPTs[0].Rows[1].P = 0.6

	errs := Validate(net)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrNotNormalized, errs[0].Code)
	assert.Contains(t, errs[0].Message, "(no parents)")
}

func TestValidateCycle(t *testing.T) {
	net, err := compileString(t, `network: {
		variables: {A: ["t"], B: ["t"], C: ["t"], D: ["t"]}
		cpt: {
			A: {given: ["C"], table: [{assignment: {A: "t", C: "t"}, p: 1}]}
			B: {given: ["A"], table: [{assignment: {A: "t", B: "t"}, p: 1}]}
			C: {given: ["B"], table: [{assignment: {B: "t", C: "t"}, p: 1}]}
			D: {given: ["A"], table: [{assignment: {A: "t", D: "t"}, p: 1}]}
		}
	}`)
	require.NoError(t, err)

	errs := Validate(net)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCycle, errs[0].Code)
	assert.Equal(t, "cycle detected: A → B → C → A", errs[0].Message)
}

func TestFindCyclesAcyclic(t *testing.T) {
	assert.Empty(t, findCycles(rainNetwork(t)))
}

func TestFindCyclesTwoDisjoint(t *testing.T) {
	net := &Network{
		Variables: []VariableDecl{{Name: "A"}, {Name: "B"}, {Name: "C"}, {Name: "D"}},
		CPTs: []CPT{
			{Variable: "A", Given: []factor.Variable{"B"}},
			{Variable: "B", Given: []factor.Variable{"A"}},
			{Variable: "C", Given: []factor.Variable{"D"}},
			{Variable: "D", Given: []factor.Variable{"C"}},
		},
	}

	cycles := findCycles(net)
	require.Len(t, cycles, 2)
	for _, c := range cycles {
		assert.Len(t, c, 3)
		assert.Equal(t, c[0], c[len(c)-1])
	}
}

func TestValidationErrorFormat(t *testing.T) {
	withLine := ValidationError{Field: "cpt.A", Message: "bad", Code: ErrCycle, Line: 4}
	assert.Equal(t, "[E230] line 4: cpt.A: bad", withLine.Error())

	noLine := ValidationError{Field: "cpt.A", Message: "bad", Code: ErrCycle}
	assert.Equal(t, "[E230] cpt.A: bad", noLine.Error())
}
