package factor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func priorRain(t *testing.T, d *Domains) *Table {
	t.Helper()
	f := MustNew([]Variable{"Rain"}, nil, d)
	require.NoError(t, f.SetProbability(NewAssignment(B("Rain", "wet")), 0.3))
	require.NoError(t, f.SetProbability(NewAssignment(B("Rain", "dry")), 0.7))
	return f
}

func TestMarshalCanonicalLayout(t *testing.T) {
	f := priorRain(t, rainDomains())

	data, err := MarshalCanonical(f)
	require.NoError(t, err)

	expected := `{"conditioned":[],"domains":{"Rain":["wet","dry"]},` +
		`"rows":[{"assignment":{"Rain":"wet"},"p":0.3},{"assignment":{"Rain":"dry"},"p":0.7}],` +
		`"unconditioned":["Rain"]}`
	assert.Equal(t, expected, string(data))
}

func TestMarshalCanonicalOnlyOwnDomains(t *testing.T) {
	f := MustNew([]Variable{"Umbrella"}, []Variable{"Rain"}, rainDomains())

	data, err := MarshalCanonical(f)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"domains":{"Rain":["wet","dry"],"Umbrella":["yes","no"]}`)
	assert.NotContains(t, string(data), "Wind")
}

func TestMarshalCanonicalRejectsNonFinite(t *testing.T) {
	f := MustNew([]Variable{"Rain"}, nil, rainDomains())
	var zero float64
	require.NoError(t, f.SetProbability(NewAssignment(B("Rain", "wet")), zero/zero))

	_, err := MarshalCanonical(f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-finite")
}

func TestMarshalCanonicalRejectsDenormalizedNames(t *testing.T) {
	// "e" followed by a combining acute accent is the NFD form of "é".
	d := MustDomains(D("Cafe\u0301", "open", "closed"))
	f := MustNew([]Variable{"Cafe\u0301"}, nil, d)

	_, err := MarshalCanonical(f)
	assert.ErrorIs(t, err, ErrNotNormalized)
}

func TestFormatProbability(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{1, "1"},
		{0.5, "0.5"},
		{0.13999999999999999, "0.13999999999999999"},
		{1e-7, "1e-07"},
	}
	for _, tt := range tests {
		got, err := formatProbability(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestUnmarshalTableRoundTrip(t *testing.T) {
	d := rainDomains()
	f := MustNew([]Variable{"Umbrella"}, []Variable{"Rain"}, d)
	probs := map[string]float64{
		NewAssignment(B("Rain", "wet"), B("Umbrella", "yes")).Key(): 0.9,
		NewAssignment(B("Rain", "wet"), B("Umbrella", "no")).Key():  0.1,
		NewAssignment(B("Rain", "dry"), B("Umbrella", "yes")).Key(): 0.2,
		NewAssignment(B("Rain", "dry"), B("Umbrella", "no")).Key():  0.8,
	}
	for _, a := range f.Assignments() {
		require.NoError(t, f.SetProbability(a, probs[a.Key()]))
	}

	data, err := MarshalCanonical(f)
	require.NoError(t, err)

	decoded, err := UnmarshalTable(data)
	require.NoError(t, err)
	assert.Equal(t, f.Unconditioned(), decoded.Unconditioned())
	assert.Equal(t, f.Conditioned(), decoded.Conditioned())
	assert.Equal(t, MustContentID(f), MustContentID(decoded))
}

func TestUnmarshalTableRejectsUnknownFields(t *testing.T) {
	_, err := UnmarshalTable([]byte(`{"conditioned":[],"domains":{},"rows":[],"unconditioned":[],"extra":1}`))
	require.Error(t, err)
}

func TestUnmarshalTableRejectsMissingDomain(t *testing.T) {
	_, err := UnmarshalTable([]byte(`{"conditioned":[],"domains":{},"rows":[],"unconditioned":["Rain"]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no domain")
}

func TestContentIDStable(t *testing.T) {
	a := priorRain(t, rainDomains())
	b := priorRain(t, MustDomains(D("Rain", "wet", "dry")))

	idA, err := ContentID(a)
	require.NoError(t, err)
	assert.Len(t, idA, 64)
	assert.Equal(t, idA, MustContentID(b), "domains outside the factor do not affect identity")

	require.NoError(t, b.SetProbability(NewAssignment(B("Rain", "wet")), 0.31))
	assert.NotEqual(t, idA, MustContentID(b))
}

func TestHashWithDomainSeparation(t *testing.T) {
	data := []byte("payload")
	assert.NotEqual(t, hashWithDomain("a/v1", data), hashWithDomain("a/v2", data))
	assert.Equal(t, hashWithDomain(DomainFactor, data), hashWithDomain(DomainFactor, data))
}
