package progress

import (
	"testing"

	"github.com/brk3/habitboard/pkg/habit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverview_Empty(t *testing.T) {
	assert.Equal(t, habit.ProgressSummary{}, Overview(nil, nil, now))
}

func TestOverview_WeekWindow(t *testing.T) {
	habits := []habit.Habit{testHabit("habit_1")}
	// Eight distinct days in the last ten, today included. 03-08 and 03-12
	// are missing.
	var completions []habit.Completion
	for i, d := range []string{
		"2024-03-06", "2024-03-07", "2024-03-09", "2024-03-10",
		"2024-03-11", "2024-03-13", "2024-03-14", "2024-03-15",
	} {
		completions = append(completions, completion(string(rune('a'+i)), "habit_1", d))
	}

	got := Overview(habits, completions, now)
	assert.Equal(t, habit.ProgressSummary{
		TotalHabits:         1,
		TotalCompletions:    8,
		CompletionsThisWeek: 6,
		DaysActive:          8,
		ActiveStreak:        3,
	}, got)
}

func TestOverview_CombinesHabits(t *testing.T) {
	habits := []habit.Habit{testHabit("habit_1"), testHabit("habit_2")}
	completions := []habit.Completion{
		completion("c1", "habit_1", "2024-03-15"),
		completion("c2", "habit_2", "2024-03-15"),
		completion("c3", "habit_2", "2024-03-14"),
		completion("c4", "habit_1", "2024-03-13"),
		completion("c5", "habit_1", "2024-03-13"),
	}

	got := Overview(habits, completions, now)
	assert.Equal(t, 2, got.TotalHabits)
	assert.Equal(t, 4, got.TotalCompletions)
	assert.Equal(t, 4, got.CompletionsThisWeek)
	assert.Equal(t, 3, got.DaysActive)
	// A day counts if any habit was done.
	assert.Equal(t, 3, got.ActiveStreak)
}

func TestResolveRange(t *testing.T) {
	r, err := ResolveRange("", "", now)
	require.NoError(t, err)
	assert.Equal(t, habit.DateRange{Start: "2024-03-01", End: "2024-03-31"}, r)

	r, err = ResolveRange("2024-02-10", "", now)
	require.NoError(t, err)
	assert.Equal(t, habit.DateRange{Start: "2024-02-10", End: "2024-03-31"}, r)

	_, err = ResolveRange("", "bogus", now)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestCalendar(t *testing.T) {
	r, err := ResolveRange("", "", now)
	require.NoError(t, err)

	cal := Calendar([]habit.Completion{
		completion("c0", "habit_1", "2024-02-29"),
		completion("c1", "habit_1", "2024-03-01"),
		completion("c2", "habit_2", "2024-03-01"),
		completion("c3", "habit_2", "2024-03-01"),
		completion("c4", "habit_1", "2024-03-31"),
		completion("c5", "habit_1", "2024-04-01"),
	}, r)

	assert.Equal(t, r, cal.Range)
	assert.Equal(t, map[string]int{"2024-03-01": 2, "2024-03-31": 1}, cal.Dates)
}

func TestCalendar_Empty(t *testing.T) {
	cal := Calendar(nil, habit.DateRange{Start: "2024-03-01", End: "2024-03-31"})
	assert.NotNil(t, cal.Dates)
	assert.Empty(t, cal.Dates)
}
