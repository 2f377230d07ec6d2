package store

import (
	"reflect"
	"testing"

	"github.com/roach88/varelim/internal/factor"
)

func TestMarshalVariables(t *testing.T) {
	tests := []struct {
		in   []factor.Variable
		want string
	}{
		{nil, `[]`},
		{[]factor.Variable{}, `[]`},
		{[]factor.Variable{"Rain", "Umbrella"}, `["Rain","Umbrella"]`},
		{[]factor.Variable{"<tag>&"}, `["<tag>&"]`},
	}
	for _, tt := range tests {
		got, err := marshalVariables(tt.in)
		if err != nil {
			t.Fatalf("marshalVariables(%v) failed: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("marshalVariables(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestMarshalEvidence_SortedKeys(t *testing.T) {
	got := marshalEvidence(map[factor.Variable]string{"b": "2", "a": "1"})
	if want := `{"a":"1","b":"2"}`; got != want {
		t.Errorf("marshalEvidence() = %s, want %s", got, want)
	}
	if got := marshalEvidence(nil); got != "{}" {
		t.Errorf("marshalEvidence(nil) = %s, want {}", got)
	}
}

func TestUnmarshalVariables(t *testing.T) {
	for _, in := range []string{"", "[]"} {
		got, err := unmarshalVariables(in)
		if err != nil {
			t.Fatalf("unmarshalVariables(%q) failed: %v", in, err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("unmarshalVariables(%q) = %#v, want empty non-nil slice", in, got)
		}
	}

	got, err := unmarshalVariables(`["A","B"]`)
	if err != nil {
		t.Fatalf("unmarshalVariables() failed: %v", err)
	}
	if !reflect.DeepEqual(got, []factor.Variable{"A", "B"}) {
		t.Errorf("unmarshalVariables() = %v", got)
	}

	if _, err := unmarshalVariables(`{`); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestUnmarshalEvidence(t *testing.T) {
	got, err := unmarshalEvidence(`{"Rain":"wet"}`)
	if err != nil {
		t.Fatalf("unmarshalEvidence() failed: %v", err)
	}
	if got["Rain"] != "wet" || len(got) != 1 {
		t.Errorf("unmarshalEvidence() = %v", got)
	}

	empty, err := unmarshalEvidence("")
	if err != nil || empty == nil {
		t.Errorf("unmarshalEvidence(\"\") = %v, %v; want empty map", empty, err)
	}

	if _, err := unmarshalEvidence(`[1]`); err == nil {
		t.Error("expected error for non-object JSON")
	}
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	evidence := map[factor.Variable]string{"Rain": "wet", "Wind": "calm"}
	got, err := unmarshalEvidence(marshalEvidence(evidence))
	if err != nil {
		t.Fatalf("roundtrip failed: %v", err)
	}
	if !reflect.DeepEqual(got, evidence) {
		t.Errorf("roundtrip = %v, want %v", got, evidence)
	}
}
