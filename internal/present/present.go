// Package present renders habits for the terminal.
package present

import (
	"fmt"
	"strings"
	"time"

	"github.com/brk3/habitflow/internal/tracker"
	"github.com/brk3/habitflow/pkg/habit"
	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary = lipgloss.Color("#7C3AED")
	colorSuccess = lipgloss.Color("#10B981")
	colorMuted   = lipgloss.Color("#6B7280")

	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	styleSection = lipgloss.NewStyle().Bold(true).Underline(true)
	styleBadge   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(colorSuccess).Padding(0, 1)
	styleMuted   = lipgloss.NewStyle().Foreground(colorMuted)
	styleFilled  = lipgloss.NewStyle().Foreground(colorSuccess)
	styleCard    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorMuted).Padding(0, 1)
)

const (
	barFilled = "■"
	barEmpty  = "□"
)

type Renderer struct {
	// Color enables lipgloss styling; plain text otherwise.
	Color     bool
	WeekStart time.Weekday
	Now       func() time.Time
}

func New(color bool, weekStart time.Weekday) *Renderer {
	return &Renderer{Color: color, WeekStart: weekStart, Now: time.Now}
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if !r.Color {
		return text
	}
	return s.Render(text)
}

// Bar draws one cell per day of the window, filled for completed days.
func (r *Renderer) Bar(p habit.Progress) string {
	filled := min(max(p.Completed, 0), p.PeriodLength)
	empty := max(p.PeriodLength-filled, 0)
	return r.style(styleFilled, strings.Repeat(barFilled, filled)) + r.style(styleMuted, strings.Repeat(barEmpty, empty))
}

func WeeklyLine(p habit.Progress) string {
	return fmt.Sprintf("%d/%d days this week (%.0f%%)", p.Completed, p.PeriodLength, p.Percent)
}

// Card renders one habit: title, a Done badge when completed today, and the
// weekly progress bar. Today is the local calendar date of Now, the same day
// the CLI sends when completing.
func (r *Renderer) Card(h habit.Habit) string {
	now := tracker.LocalDate(r.Now())
	var b strings.Builder

	b.WriteString(r.style(styleTitle, h.Title))
	if tracker.IsCompletedOn(h, now) {
		b.WriteString(" " + r.style(styleBadge, "Done"))
	}
	b.WriteString("\n")
	if h.Description != "" {
		b.WriteString(h.Description + "\n")
	}
	b.WriteString(r.style(styleMuted, fmt.Sprintf("%s · %s", h.Frequency, h.ID)) + "\n")

	p := tracker.WeeklyProgressFrom(h, now, r.WeekStart)
	b.WriteString(r.Bar(p) + " " + WeeklyLine(p))

	if !r.Color {
		return b.String()
	}
	return styleCard.Render(b.String())
}

// List groups habits by frequency in daily, weekly, monthly order and skips
// empty groups.
func (r *Renderer) List(habits []habit.Habit) string {
	if len(habits) == 0 {
		return r.style(styleMuted, "No habits yet. Add one with: habitflow add <title>")
	}

	var sections []string
	for _, f := range habit.Frequencies {
		group := tracker.FilterByFrequency(habits, f)
		if len(group) == 0 {
			continue
		}
		cards := make([]string, 0, len(group)+1)
		cards = append(cards, r.style(styleSection, sectionTitle(f)))
		for _, h := range group {
			cards = append(cards, r.Card(h))
		}
		sections = append(sections, strings.Join(cards, "\n"))
	}
	return strings.Join(sections, "\n\n")
}

func sectionTitle(f habit.Frequency) string {
	s := string(f)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (r *Renderer) Summary(s habit.HabitSummary) string {
	rows := [][2]string{
		{"Current streak", fmt.Sprintf("%d days", s.CurrentStreak)},
		{"Longest streak", fmt.Sprintf("%d days", s.LongestStreak)},
		{"Total days done", fmt.Sprintf("%d", s.TotalDaysDone)},
		{"This month", fmt.Sprintf("%d", s.ThisMonth)},
		{"Best month", fmt.Sprintf("%d", s.BestMonth)},
	}
	if s.FirstLogged != 0 {
		rows = append(rows, [2]string{"First logged", tracker.FormatDate(time.Unix(s.FirstLogged, 0))})
	}

	var b strings.Builder
	b.WriteString(r.style(styleTitle, s.Title) + "\n")
	for _, row := range rows {
		b.WriteString(fmt.Sprintf("%-16s %s\n", r.style(styleMuted, row[0]), row[1]))
	}
	b.WriteString(r.Bar(s.Weekly) + " " + WeeklyLine(s.Weekly))
	return b.String()
}
