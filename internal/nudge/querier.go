package nudge

import (
	"context"

	"github.com/brk3/habitboard/pkg/habit"
)

// Querier is the slice of the API client the nudger needs.
type Querier interface {
	ListHabits(ctx context.Context) ([]habit.HabitView, error)
}

type Notifier interface {
	SendNudge(ctx context.Context, habits []string, hoursTillExpiry int) error
}
