// Package tracker holds the completion rules for habits: what counts as done
// on a calendar date, how marks are added, and how progress over a reporting
// window is derived. Every function is pure and leaves its inputs untouched.
//
// A calendar date is the UTC year, month and day of an instant.
package tracker

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/brk3/habitflow/pkg/habit"
)

// WeekLength is the reporting window used by weekly progress, independent of
// a habit's frequency.
const WeekLength = 7

const dateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date")

// DateOf truncates t to midnight UTC of its UTC calendar date.
func DateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// LocalDate is the calendar date t shows in its own location, expressed as
// midnight UTC so it compares against stored marks.
func LocalDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func SameDate(a, b time.Time) bool {
	return DateOf(a).Equal(DateOf(b))
}

// ParseDate accepts YYYY-MM-DD or an RFC3339 timestamp and returns the
// calendar date it names.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DateOf(t), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q (want YYYY-MM-DD or RFC3339)", ErrInvalidDate, s)
}

// FormatDate renders the calendar date of t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return DateOf(t).Format(dateLayout)
}

func IsCompletedOn(h habit.Habit, date time.Time) bool {
	return slices.ContainsFunc(h.CompletedDates, func(d time.Time) bool {
		return SameDate(d, date)
	})
}

// MarkComplete returns the completion marks of h with date added. Marking an
// already completed date returns the marks unchanged.
func MarkComplete(h habit.Habit, date time.Time) []time.Time {
	out := slices.Clone(h.CompletedDates)
	if IsCompletedOn(h, date) {
		return out
	}
	return append(out, DateOf(date))
}

// Normalize truncates each mark to its calendar date and drops repeats,
// keeping the first occurrence of every date in input order.
func Normalize(dates []time.Time) []time.Time {
	seen := make(map[int64]struct{}, len(dates))
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		day := DateOf(d)
		if _, ok := seen[day.Unix()]; ok {
			continue
		}
		seen[day.Unix()] = struct{}{}
		out = append(out, day)
	}
	return out
}

// WeekStart returns the start-of-week boundary on or before ref.
func WeekStart(ref time.Time, start time.Weekday) time.Time {
	day := DateOf(ref)
	offset := (int(day.Weekday()) - int(start) + 7) % 7
	return day.AddDate(0, 0, -offset)
}

// WeeklyProgress counts the distinct dates completed from the Sunday on or
// before ref up to and including ref.
func WeeklyProgress(h habit.Habit, ref time.Time) habit.Progress {
	return WeeklyProgressFrom(h, ref, time.Sunday)
}

// WeeklyProgressFrom is WeeklyProgress with a configurable first day of week.
func WeeklyProgressFrom(h habit.Habit, ref time.Time, start time.Weekday) habit.Progress {
	from := WeekStart(ref, start)
	to := DateOf(ref)

	days := make(map[int64]struct{})
	for _, d := range h.CompletedDates {
		day := DateOf(d)
		if day.Before(from) || day.After(to) {
			continue
		}
		days[day.Unix()] = struct{}{}
	}

	completed := min(len(days), WeekLength)
	return habit.Progress{
		Completed:    completed,
		PeriodLength: WeekLength,
		Percent:      Percent(completed, WeekLength),
	}
}

// Percent is completed/period as a percentage clamped to [0, 100].
func Percent(completed, period int) float64 {
	if period <= 0 {
		return 0
	}
	p := float64(completed) / float64(period) * 100
	return max(0, min(p, 100))
}

func FilterByFrequency(habits []habit.Habit, f habit.Frequency) []habit.Habit {
	out := make([]habit.Habit, 0, len(habits))
	for _, h := range habits {
		if h.Frequency == f {
			out = append(out, h)
		}
	}
	return out
}
