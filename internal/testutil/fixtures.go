package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/varelim/internal/factor"
)

// Tolerance is the default absolute tolerance for probability comparisons.
const Tolerance = 1e-9

// Row is one expected (assignment, probability) pair.
type Row struct {
	Assignment factor.Assignment
	P          float64
}

// R builds a Row from alternating variable, value arguments.
// Example: R(0.27, "Rain", "wet", "Umbrella", "yes")
func R(p float64, pairs ...string) Row {
	if len(pairs)%2 != 0 {
		panic("testutil.R: odd number of variable/value arguments")
	}
	var a factor.Assignment
	for i := 0; i < len(pairs); i += 2 {
		a = a.With(factor.Variable(pairs[i]), pairs[i+1])
	}
	return Row{Assignment: a, P: p}
}

// Table builds a populated factor. Rows not listed stay zero.
func Table(t *testing.T, domains *factor.Domains, unconditioned, conditioned []factor.Variable, rows ...Row) *factor.Table {
	t.Helper()
	f, err := factor.New(unconditioned, conditioned, domains)
	require.NoError(t, err)
	for _, r := range rows {
		require.NoError(t, f.SetProbability(r.Assignment, r.P))
	}
	return f
}

// AssertRows checks that f holds exactly the expected rows, within Tolerance.
// Rows of f not listed must be zero.
func AssertRows(t *testing.T, f factor.Factor, rows ...Row) {
	t.Helper()
	want := make(map[string]float64, len(rows))
	for _, r := range rows {
		want[r.Assignment.Key()] = r.P
	}
	for _, a := range f.Assignments() {
		got, err := f.Probability(a)
		require.NoError(t, err)
		assert.InDelta(t, want[a.Key()], got, Tolerance, "row %s", a)
	}
}

// AssertSameContent checks that a and b have the same variables and the same
// probability at every row, within Tolerance.
func AssertSameContent(t *testing.T, a, b factor.Factor) {
	t.Helper()
	require.Equal(t, a.Unconditioned(), b.Unconditioned(), "unconditioned variables")
	require.Equal(t, a.Conditioned(), b.Conditioned(), "conditioned variables")
	for _, row := range a.Assignments() {
		pa, err := a.Probability(row)
		require.NoError(t, err)
		pb, err := b.Probability(row)
		require.NoError(t, err)
		assert.InDelta(t, pa, pb, Tolerance, "row %s", row)
	}
}

// RainUmbrella holds the two-variable weather network used across tests.
//
//	P(Rain):            wet=0.3, dry=0.7
//	P(Umbrella | Rain): yes|wet=0.9, no|wet=0.1, yes|dry=0.2, no|dry=0.8
type RainUmbrella struct {
	Domains  *factor.Domains
	Rain     *factor.Table
	Umbrella *factor.Table
}

// NewRainUmbrella builds the RainUmbrella fixture.
func NewRainUmbrella(t *testing.T) RainUmbrella {
	t.Helper()
	d := factor.MustDomains(
		factor.D("Rain", "wet", "dry"),
		factor.D("Umbrella", "yes", "no"),
	)
	return RainUmbrella{
		Domains: d,
		Rain: Table(t, d, []factor.Variable{"Rain"}, nil,
			R(0.3, "Rain", "wet"),
			R(0.7, "Rain", "dry"),
		),
		Umbrella: Table(t, d, []factor.Variable{"Umbrella"}, []factor.Variable{"Rain"},
			R(0.9, "Rain", "wet", "Umbrella", "yes"),
			R(0.1, "Rain", "wet", "Umbrella", "no"),
			R(0.2, "Rain", "dry", "Umbrella", "yes"),
			R(0.8, "Rain", "dry", "Umbrella", "no"),
		),
	}
}

// Alarm holds the burglary/earthquake alarm network.
//
//	Burglary -> Alarm <- Earthquake, Alarm -> JohnCalls
type Alarm struct {
	Domains    *factor.Domains
	Burglary   *factor.Table
	Earthquake *factor.Table
	Alarm      *factor.Table
	JohnCalls  *factor.Table
}

// Factors returns the network's CPTs in declaration order.
func (a Alarm) Factors() []factor.Factor {
	return []factor.Factor{a.Burglary, a.Earthquake, a.Alarm, a.JohnCalls}
}

// NewAlarm builds the Alarm fixture.
func NewAlarm(t *testing.T) Alarm {
	t.Helper()
	d := factor.MustDomains(
		factor.D("Burglary", "yes", "no"),
		factor.D("Earthquake", "yes", "no"),
		factor.D("Alarm", "on", "off"),
		factor.D("JohnCalls", "yes", "no"),
	)
	return Alarm{
		Domains: d,
		Burglary: Table(t, d, []factor.Variable{"Burglary"}, nil,
			R(0.001, "Burglary", "yes"),
			R(0.999, "Burglary", "no"),
		),
		Earthquake: Table(t, d, []factor.Variable{"Earthquake"}, nil,
			R(0.002, "Earthquake", "yes"),
			R(0.998, "Earthquake", "no"),
		),
		Alarm: Table(t, d, []factor.Variable{"Alarm"}, []factor.Variable{"Burglary", "Earthquake"},
			R(0.95, "Burglary", "yes", "Earthquake", "yes", "Alarm", "on"),
			R(0.05, "Burglary", "yes", "Earthquake", "yes", "Alarm", "off"),
			R(0.94, "Burglary", "yes", "Earthquake", "no", "Alarm", "on"),
			R(0.06, "Burglary", "yes", "Earthquake", "no", "Alarm", "off"),
			R(0.29, "Burglary", "no", "Earthquake", "yes", "Alarm", "on"),
			R(0.71, "Burglary", "no", "Earthquake", "yes", "Alarm", "off"),
			R(0.001, "Burglary", "no", "Earthquake", "no", "Alarm", "on"),
			R(0.999, "Burglary", "no", "Earthquake", "no", "Alarm", "off"),
		),
		JohnCalls: Table(t, d, []factor.Variable{"JohnCalls"}, []factor.Variable{"Alarm"},
			R(0.90, "Alarm", "on", "JohnCalls", "yes"),
			R(0.10, "Alarm", "on", "JohnCalls", "no"),
			R(0.05, "Alarm", "off", "JohnCalls", "yes"),
			R(0.95, "Alarm", "off", "JohnCalls", "no"),
		),
	}
}
