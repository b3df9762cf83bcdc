package progress

import (
	"time"

	"github.com/brk3/habitboard/pkg/habit"
)

// WeekWindow is the trailing window, in days including today, counted by
// ProgressSummary.CompletionsThisWeek.
const WeekWindow = 7

// Overview summarizes all of a user's habits combined. A day counts towards
// DaysActive and ActiveStreak if any habit was completed on it.
func Overview(habits []habit.Habit, completions []habit.Completion, now time.Time) habit.ProgressSummary {
	entries := DedupeCompletions(completions)
	weekStart := DaysAgo(now, WeekWindow-1)

	dates := make([]string, len(entries))
	thisWeek := 0
	for i, c := range entries {
		dates[i] = c.Date
		if c.Date >= weekStart {
			thisWeek++
		}
	}

	return habit.ProgressSummary{
		TotalHabits:         len(habits),
		TotalCompletions:    len(entries),
		CompletionsThisWeek: thisWeek,
		DaysActive:          CountUniqueDates(dates),
		ActiveStreak:        Streak(dates, now),
	}
}

// ResolveRange normalizes optional calendar bounds. Omitted bounds default
// to the month containing now; unparseable bounds return ErrInvalidDate.
func ResolveRange(startInput, endInput string, now time.Time) (habit.DateRange, error) {
	start, end := MonthRange(now)
	var err error
	if startInput != "" {
		if start, err = Normalize(startInput, now); err != nil {
			return habit.DateRange{}, err
		}
	}
	if endInput != "" {
		if end, err = Normalize(endInput, now); err != nil {
			return habit.DateRange{}, err
		}
	}
	return habit.DateRange{Start: start, End: end}, nil
}

// Calendar counts completions per day within r, habits combined.
// Completions outside r are ignored.
func Calendar(completions []habit.Completion, r habit.DateRange) habit.CalendarRange {
	dates := make(map[string]int)
	for _, c := range DedupeCompletions(completions) {
		if c.Date < r.Start || c.Date > r.End {
			continue
		}
		dates[c.Date]++
	}
	return habit.CalendarRange{Range: r, Dates: dates}
}
