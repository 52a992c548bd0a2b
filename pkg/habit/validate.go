package habit

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 1024
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrInvalidFrequency = &ValidationError{Field: "frequency", Reason: "must be one of daily, weekly, monthly"}
)

// ValidationError describes a single rejected field. It matches ErrValidation
// under errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("bad %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	if target == ErrValidation {
		return true
	}
	t, ok := target.(*ValidationError)
	return ok && t.Field == e.Field && t.Reason == e.Reason
}

func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", ErrInvalidFrequency
	}
	return f, nil
}

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly:
		return true
	}
	return false
}

func ValidateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return &ValidationError{Field: "title", Reason: "title is required"}
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return &ValidationError{Field: "title", Reason: fmt.Sprintf("must be 1-%d characters", MaxTitleLength)}
	}
	return nil
}

func ValidateDescription(desc string) error {
	if utf8.RuneCountInString(desc) > MaxDescriptionLength {
		return &ValidationError{Field: "description", Reason: fmt.Sprintf("must be 0-%d characters", MaxDescriptionLength)}
	}
	return nil
}

// Validate checks the invariants every stored habit must satisfy.
func (h Habit) Validate() error {
	if err := ValidateTitle(h.Title); err != nil {
		return err
	}
	if err := ValidateDescription(h.Description); err != nil {
		return err
	}
	if !h.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	return nil
}

// NewHabit builds an unsaved habit for owner with no completions. An empty
// frequency defaults to daily.
func NewHabit(ownerID, title, description string, freq Frequency) (Habit, error) {
	if freq == "" {
		freq = Daily
	}
	h := Habit{
		OwnerID:        ownerID,
		Title:          strings.TrimSpace(title),
		Description:    strings.TrimSpace(description),
		Frequency:      freq,
		CompletedDates: nil,
	}
	if err := h.Validate(); err != nil {
		return Habit{}, err
	}
	return h, nil
}
