package progress

import (
	"slices"
	"strings"
	"time"

	"github.com/brk3/habitboard/internal/logger"
	"github.com/brk3/habitboard/pkg/habit"
)

// DedupeCompletions drops any completion whose (habit, date) pair was
// already seen. The store guarantees uniqueness, so a duplicate here is
// logged and ignored rather than counted twice.
func DedupeCompletions(completions []habit.Completion) []habit.Completion {
	seen := make(map[[2]string]struct{}, len(completions))
	out := make([]habit.Completion, 0, len(completions))
	for _, c := range completions {
		k := [2]string{c.HabitID, c.Date}
		if _, dup := seen[k]; dup {
			logger.Warn("Ignoring duplicate completion", "user_id", c.UserID, "habit_id", c.HabitID, "date", c.Date, "completion_id", c.ID)
			continue
		}
		seen[k] = struct{}{}
		out = append(out, c)
	}
	return out
}

// GroupByHabit buckets completions by habit id.
func GroupByHabit(completions []habit.Completion) map[string][]habit.Completion {
	grouped := make(map[string][]habit.Completion)
	for _, c := range completions {
		grouped[c.HabitID] = append(grouped[c.HabitID], c)
	}
	return grouped
}

// BuildView joins h with its completions. The input slice is not modified.
func BuildView(h habit.Habit, completions []habit.Completion, now time.Time) habit.HabitView {
	today := Today(now)
	entries := DedupeCompletions(completions)

	v := habit.HabitView{
		Habit:        h,
		TotalEntries: len(entries),
	}

	for _, c := range entries {
		if c.Date == today {
			id := c.ID
			v.CompletedToday = true
			v.CompletedTodayCompletionID = &id
			break
		}
	}

	dates := make([]string, len(entries))
	for i, c := range entries {
		dates[i] = c.Date
	}
	slices.SortFunc(dates, strings.Compare)
	if len(dates) > 0 {
		last := dates[len(dates)-1]
		v.LastCompletedOn = &last
	}
	v.Streak = Streak(dates, now)

	return v
}

// BuildViews builds a view per habit from the user's full completion set.
func BuildViews(habits []habit.Habit, completions []habit.Completion, now time.Time) []habit.HabitView {
	grouped := GroupByHabit(completions)
	views := make([]habit.HabitView, 0, len(habits))
	for _, h := range habits {
		views = append(views, BuildView(h, grouped[h.ID], now))
	}
	return views
}
