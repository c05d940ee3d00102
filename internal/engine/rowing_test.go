package engine

import (
	"errors"
	"testing"
)

// TestNextRowingPrescription covers the interval and zone text rules.
func TestNextRowingPrescription(t *testing.T) {
	tests := []struct {
		prev    string
		success bool
		want    string
	}{
		{"6x500m/90s", true, "7x500m/90s"},
		{"6x500m/90s", false, "6x500m/90s"},
		{"Zone2 26-30m", true, "Zone2 28-30m"},
		{"Zone2 26-30m", false, "Zone2 28-30m"},
		{"Zone2 29-30m", true, "Zone2 30-30m"},
		{"Zone2 30m", true, "Zone2 30m"},
		{"zone 2 25-30m", true, "zone 2 27-30m"},
		{"Zone 20m easy", true, "Zone 22m easy"},
		{"Zone2 steady", true, "Zone2 steady"},
		{"Tabata 8x20/10", true, "Tabata 8x20/10"},
		{"20m progressive", true, "20m progressive"},
		{"10x", true, "11x"},
		{"", true, ""},
	}
	for _, tt := range tests {
		if got := NextRowingPrescription(tt.prev, tt.success); got != tt.want {
			t.Errorf("NextRowingPrescription(%q, %v) = %q, want %q", tt.prev, tt.success, got, tt.want)
		}
	}
}

// TestZoneReplacesOnlyTheDurationToken verifies the other numbers in the
// text are untouched when they equal the duration.
func TestZoneReplacesOnlyTheDurationToken(t *testing.T) {
	got := NextRowingPrescription("Zone2 22m then 22 strokes", true)
	if want := "Zone2 24m then 22 strokes"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

// TestParsePrescriptionRoundTrip verifies the canonical forms serialize back
// to the exact stored text.
func TestParsePrescriptionRoundTrip(t *testing.T) {
	for _, s := range []string{"6x500m/90s", "Zone2 26-30m", "Zone2 30m", "8x250m/60s"} {
		p, err := ParsePrescription(s)
		if err != nil {
			t.Fatalf("ParsePrescription(%q): %v", s, err)
		}
		if got := p.String(); got != s {
			t.Errorf("String() = %q, want %q", got, s)
		}
	}
}

// TestParsePrescriptionVariants verifies the parsed fields of each variant.
func TestParsePrescriptionVariants(t *testing.T) {
	p, err := ParsePrescription("6x500m/90s")
	if err != nil {
		t.Fatal(err)
	}
	iv, ok := p.(Intervals)
	if !ok {
		t.Fatalf("type = %T, want Intervals", p)
	}
	if iv != (Intervals{Count: 6, DistanceM: 500, RestSec: 90}) {
		t.Errorf("intervals = %+v", iv)
	}
	if p.Kind() != "intervals" {
		t.Errorf("kind = %q", p.Kind())
	}

	p, err = ParsePrescription("zone 3 20-25m")
	if err != nil {
		t.Fatal(err)
	}
	z, ok := p.(ZoneDuration)
	if !ok {
		t.Fatalf("type = %T, want ZoneDuration", p)
	}
	if z != (ZoneDuration{Zone: 3, MinMinutes: 20, MaxMinutes: 25}) {
		t.Errorf("zone = %+v", z)
	}
}

// TestParsePrescriptionRejects verifies free text is reported, not guessed.
func TestParsePrescriptionRejects(t *testing.T) {
	for _, s := range []string{"Tabata 8x20/10", "20m progressive", ""} {
		if _, err := ParsePrescription(s); !errors.Is(err, ErrUnrecognizedPrescription) {
			t.Errorf("ParsePrescription(%q) err = %v, want ErrUnrecognizedPrescription", s, err)
		}
	}
}

// TestPrescriptionAdvanceMatchesText verifies the structured advance agrees
// with the text advancer on canonical inputs.
func TestPrescriptionAdvanceMatchesText(t *testing.T) {
	for _, s := range []string{"6x500m/90s", "Zone2 26-30m", "Zone2 30m", "Zone2 24m"} {
		for _, success := range []bool{true, false} {
			p, err := ParsePrescription(s)
			if err != nil {
				t.Fatal(err)
			}
			got := p.Advance(success).String()
			want := NextRowingPrescription(s, success)
			if got != want {
				t.Errorf("%q success=%v: structured = %q, text = %q", s, success, got, want)
			}
		}
	}
}
