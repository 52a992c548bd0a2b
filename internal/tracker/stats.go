package tracker

import (
	"slices"
	"time"

	"github.com/brk3/habitflow/pkg/habit"
)

const daySec int64 = 24 * 60 * 60

// uniqueDays returns the distinct day numbers (days since the epoch) of dates
// on or before today, newest first.
func uniqueDays(dates []time.Time, today int64) []int64 {
	uniq := make(map[int64]struct{}, len(dates))
	for _, d := range dates {
		day := DateOf(d).Unix() / daySec
		if day > today {
			continue
		}
		uniq[day] = struct{}{}
	}

	days := make([]int64, 0, len(uniq))
	for d := range uniq {
		days = append(days, d)
	}
	slices.Sort(days)
	slices.Reverse(days)
	return days
}

// Streaks walks consecutive completed days. The current streak is still alive
// when the newest mark is today or yesterday.
func Streaks(dates []time.Time, now time.Time) (current, longest int) {
	today := DateOf(now).Unix() / daySec
	days := uniqueDays(dates, today)
	if len(days) == 0 {
		return 0, 0
	}

	streakOngoing := days[0] == today || days[0] == today-1
	longest = 1
	run := 1
	if streakOngoing {
		current = 1
	}

	for i := 0; i < len(days)-1; i++ {
		if days[i]-days[i+1] == 1 {
			run++
			longest = max(longest, run)
			if streakOngoing {
				current++
			}
		} else {
			run = 1
			streakOngoing = false
		}
	}

	return current, longest
}

// Summarize derives the summary statistics of h as of now.
func Summarize(h habit.Habit, now time.Time, weekStart time.Weekday) habit.HabitSummary {
	dates := Normalize(h.CompletedDates)
	current, longest := Streaks(dates, now)

	s := habit.HabitSummary{
		HabitID:       h.ID,
		Title:         h.Title,
		Frequency:     h.Frequency,
		CurrentStreak: current,
		LongestStreak: longest,
		TotalDaysDone: len(dates),
		Weekly:        WeeklyProgressFrom(h, now, weekStart),
	}

	today := DateOf(now)
	months := make(map[[2]int]int)
	for i, d := range dates {
		if i == 0 || d.Before(time.Unix(s.FirstLogged, 0)) {
			s.FirstLogged = d.Unix()
		}
		key := [2]int{d.Year(), int(d.Month())}
		months[key]++
		if d.Year() == today.Year() && d.Month() == today.Month() {
			s.ThisMonth++
		}
	}
	for _, n := range months {
		s.BestMonth = max(s.BestMonth, n)
	}

	return s
}
