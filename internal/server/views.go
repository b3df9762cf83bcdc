package server

import (
	"github.com/brk3/habitboard/internal/progress"
	"github.com/brk3/habitboard/pkg/habit"
)

// Every view is rebuilt from a fresh read of the ledger; nothing derived is
// cached between requests.

func (s *Server) habitView(userID string, h habit.Habit) (habit.HabitView, error) {
	completions, err := s.store.ListCompletions(userID, h.ID)
	if err != nil {
		return habit.HabitView{}, err
	}
	return progress.BuildView(h, completions, s.now()), nil
}

func (s *Server) habitViews(userID string) ([]habit.HabitView, error) {
	habits, err := s.store.ListHabits(userID)
	if err != nil {
		return nil, err
	}
	completions, err := s.store.ListCompletions(userID, "")
	if err != nil {
		return nil, err
	}
	return progress.BuildViews(habits, completions, s.now()), nil
}

func (s *Server) overview(userID string) (habit.ProgressSummary, error) {
	habits, err := s.store.ListHabits(userID)
	if err != nil {
		return habit.ProgressSummary{}, err
	}
	completions, err := s.store.ListCompletions(userID, "")
	if err != nil {
		return habit.ProgressSummary{}, err
	}
	return progress.Overview(habits, completions, s.now()), nil
}

func (s *Server) calendar(userID string, r habit.DateRange) (habit.CalendarRange, error) {
	completions, err := s.store.ListCompletionsByRange(userID, r.Start, r.End)
	if err != nil {
		return habit.CalendarRange{}, err
	}
	return progress.Calendar(completions, r), nil
}
