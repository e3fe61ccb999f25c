package nudge

import (
	"context"

	"github.com/brk3/habitstreak/pkg/habit"
)

type Querier interface {
	ListHabits(ctx context.Context) ([]habit.Habit, error)
	GetHabitSummary(ctx context.Context, habitID string) (*habit.Summary, error)
}

type Notifier interface {
	SendNudge(habits []string, hoursTillExpiry int) error
}
