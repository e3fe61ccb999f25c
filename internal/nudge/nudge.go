// Package nudge warns about streaks that end at midnight unless the habit is
// completed today.
package nudge

import (
	"context"
	"fmt"
	"time"

	"github.com/brk3/habitstreak/internal/logger"
	"github.com/brk3/habitstreak/pkg/habit"
)

// AtRisk reports whether a streak is alive only through the one-day grace
// period: it has a current streak but nothing recorded for AsOf.
func AtRisk(s habit.Summary) bool {
	return s.CurrentStreak > 0 && s.LastCompleted.Before(s.AsOf)
}

// endOfDay is midnight after day, in loc.
func endOfDay(day habit.Date, loc *time.Location) time.Time {
	next := day.AddDays(1)
	return time.Date(next.Year(), next.Month(), next.Time().Day(), 0, 0, 0, 0, loc)
}

// ExpiringHabits returns the habits at risk whose day ends within window of now.
func ExpiringHabits(ctx context.Context, q Querier, now time.Time, window time.Duration) ([]habit.Habit, error) {
	habits, err := q.ListHabits(ctx)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}

	var out []habit.Habit
	for _, h := range habits {
		s, err := q.GetHabitSummary(ctx, h.ID)
		if err != nil {
			return nil, fmt.Errorf("summary for %s: %w", h.Name, err)
		}
		if !AtRisk(*s) {
			continue
		}
		remaining := endOfDay(s.AsOf, now.Location()).Sub(now)
		logger.Debug("Habit streak at risk", "habit", h.Name, "streak", s.CurrentStreak, "remaining", remaining)
		if remaining > 0 && remaining <= window {
			out = append(out, h)
		}
	}
	return out, nil
}

// Nudge sends one notification listing every habit expiring within
// thresholdHours. Nothing is sent when no streak is at risk.
func Nudge(ctx context.Context, q Querier, n Notifier, now time.Time, thresholdHours int) error {
	expiring, err := ExpiringHabits(ctx, q, now, time.Duration(thresholdHours)*time.Hour)
	if err != nil {
		return err
	}
	if len(expiring) == 0 {
		logger.Info("No streaks expiring", "threshold_hours", thresholdHours)
		return nil
	}

	names := make([]string, len(expiring))
	for i, h := range expiring {
		names[i] = h.Name
	}
	logger.Info("Sending nudge", "habits", names, "threshold_hours", thresholdHours)
	if err := n.SendNudge(names, thresholdHours); err != nil {
		return fmt.Errorf("send nudge: %w", err)
	}
	return nil
}
