package habit

import (
	"errors"
	"strings"
	"testing"
)

func TestParseFrequency(t *testing.T) {
	for _, in := range []string{"daily", "Weekly", " monthly "} {
		if _, err := ParseFrequency(in); err != nil {
			t.Errorf("ParseFrequency(%q) failed: %v", in, err)
		}
	}
	for _, in := range []string{"", "hourly", "yearly"} {
		_, err := ParseFrequency(in)
		if !errors.Is(err, ErrValidation) {
			t.Errorf("ParseFrequency(%q) = %v, want validation error", in, err)
		}
	}
}

func TestNewHabit_DefaultsToDaily(t *testing.T) {
	h, err := NewHabit("u1", "  read  ", "", "")
	if err != nil {
		t.Fatalf("NewHabit failed: %v", err)
	}
	if h.Frequency != Daily {
		t.Fatalf("got frequency %q, want daily", h.Frequency)
	}
	if h.Title != "read" {
		t.Fatalf("got title %q, want trimmed", h.Title)
	}
	if len(h.CompletedDates) != 0 {
		t.Fatalf("new habit has %d completions", len(h.CompletedDates))
	}
}

func TestNewHabit_Rejects(t *testing.T) {
	cases := []struct {
		name  string
		title string
		desc  string
		freq  Frequency
	}{
		{"empty title", "", "", Daily},
		{"blank title", "   ", "", Daily},
		{"long title", strings.Repeat("a", MaxTitleLength+1), "", Daily},
		{"long description", "ok", strings.Repeat("d", MaxDescriptionLength+1), Daily},
		{"bad frequency", "ok", "", Frequency("hourly")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewHabit("u1", tc.title, tc.desc, tc.freq)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("got %v, want validation error", err)
			}
		})
	}
}
