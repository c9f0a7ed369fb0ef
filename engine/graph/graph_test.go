package graph

import (
	"testing"
)

func TestCompoundMapRoundTrip(t *testing.T) {
	c := Compound{ID: "Q2270", Name: "Benzene", Class: "aromatic hydrocarbon"}
	m := compoundToMap(c)
	got := compoundFromProps(m)
	if got != c {
		t.Fatalf("round trip mismatch: %+v != %+v", got, c)
	}
}

func TestCompoundFromPropsMissingKeys(t *testing.T) {
	got := compoundFromProps(map[string]any{"id": "Q1"})
	if got.ID != "Q1" || got.Name != "" || got.Class != "" {
		t.Fatalf("unexpected compound: %+v", got)
	}
}

func TestSanitizeRelType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"DERIVATIVE_OF", "DERIVATIVE_OF"},
		{"derivative_of", "DERIVATIVE_OF"},
		{"bad; DROP ALL", "BADDROPALL"},
		{";;;", RelRelatedTo},
	}
	for _, tt := range tests {
		if got := sanitizeRelType(tt.in); got != tt.want {
			t.Errorf("sanitizeRelType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
