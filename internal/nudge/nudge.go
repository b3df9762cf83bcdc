// Package nudge finds habit streaks that will break at the coming midnight
// and sends a reminder about them.
package nudge

import (
	"context"
	"fmt"
	"time"

	"github.com/brk3/habitboard/internal/logger"
	"github.com/brk3/habitboard/internal/progress"
	"github.com/brk3/habitboard/pkg/habit"
)

// UntilMidnight returns the time left in now's calendar day.
func UntilMidnight(now time.Time) time.Duration {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location()).Sub(now)
}

// Expiring reports whether v's run ends tonight: it was done yesterday,
// not yet today.
func Expiring(v habit.HabitView, now time.Time) bool {
	return !v.CompletedToday && v.LastCompletedOn != nil && *v.LastCompletedOn == progress.DaysAgo(now, 1)
}

// GetHabitsExpiringIn returns the names of expiring habits, or nothing when
// midnight is further away than window.
func GetHabitsExpiringIn(ctx context.Context, q Querier, window time.Duration, now time.Time) ([]string, error) {
	if UntilMidnight(now) > window {
		return nil, nil
	}
	views, err := q.ListHabits(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing habits: %w", err)
	}
	var out []string
	for _, v := range views {
		if Expiring(v, now) {
			out = append(out, v.Name)
		}
	}
	return out, nil
}

// Nudge notifies about expiring habits and returns their names. No
// notification is sent when none are expiring.
func Nudge(ctx context.Context, q Querier, n Notifier, thresholdHours int, now time.Time) ([]string, error) {
	window := time.Duration(thresholdHours) * time.Hour
	expiring, err := GetHabitsExpiringIn(ctx, q, window, now)
	if err != nil {
		return nil, err
	}
	if len(expiring) == 0 {
		logger.Info("No streaks expiring", "threshold_hours", thresholdHours)
		return nil, nil
	}

	logger.Info("Sending nudge", "habits", expiring, "threshold_hours", thresholdHours)
	if err := n.SendNudge(ctx, expiring, thresholdHours); err != nil {
		return nil, fmt.Errorf("sending nudge: %w", err)
	}
	return expiring, nil
}
