package nudge

import (
	"context"

	"github.com/brk3/habitstreak/pkg/habit"
)

type mockClient struct {
	habits  []habit.Habit
	summary map[string]*habit.Summary
	err     error
}

func (f *mockClient) ListHabits(ctx context.Context) ([]habit.Habit, error) {
	return f.habits, f.err
}

func (f *mockClient) GetHabitSummary(ctx context.Context, habitID string) (*habit.Summary, error) {
	return f.summary[habitID], f.err
}
