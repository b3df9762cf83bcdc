package nudge

import (
	"context"

	"github.com/brk3/habitboard/pkg/habit"
)

type mockClient struct {
	habits []habit.HabitView
	calls  int
	err    error
}

func (f *mockClient) ListHabits(ctx context.Context) ([]habit.HabitView, error) {
	f.calls++
	return f.habits, f.err
}
