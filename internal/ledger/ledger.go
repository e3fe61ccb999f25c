// Package ledger records habit completions and answers streak queries
// against the recorded history.
//
// Every mutating call runs inside one store transaction, so a failed call
// leaves no partial writes behind. The one-completion-per-day rule is
// enforced by the store; the Recorder maps a store conflict to
// ErrAlreadyCompleted.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/brk3/habitstreak/internal/logger"
	"github.com/brk3/habitstreak/internal/storage"
	"github.com/brk3/habitstreak/internal/streak"
	"github.com/brk3/habitstreak/pkg/habit"
)

var (
	ErrAlreadyCompleted = errors.New("habit already completed for this date")
	ErrNotCompleted     = errors.New("no completion recorded for this date")
)

type Recorder struct {
	store storage.CompletionStore
	now   func() time.Time
	loc   *time.Location
	newID func() string
}

type Option func(*Recorder)

// WithClock replaces time.Now as the source of "today".
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// WithLocation sets the time zone in which "today" is resolved.
func WithLocation(loc *time.Location) Option {
	return func(r *Recorder) {
		if loc != nil {
			r.loc = loc
		}
	}
}

func New(store storage.CompletionStore, opts ...Option) *Recorder {
	r := &Recorder{
		store: store,
		now:   time.Now,
		loc:   time.Local,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type locationKey struct{}

// ContextWithLocation makes calls carrying ctx resolve "today" in loc
// instead of the Recorder's default zone.
func ContextWithLocation(ctx context.Context, loc *time.Location) context.Context {
	if loc == nil {
		return ctx
	}
	return context.WithValue(ctx, locationKey{}, loc)
}

// Location is the zone "today" is resolved in for ctx.
func (r *Recorder) Location(ctx context.Context) *time.Location {
	if loc, ok := ctx.Value(locationKey{}).(*time.Location); ok {
		return loc
	}
	return r.loc
}

func (r *Recorder) Today(ctx context.Context) habit.Date {
	return habit.DateOf(r.now().In(r.Location(ctx)))
}

func (r *Recorder) resolve(ctx context.Context, day habit.Date) habit.Date {
	if day.IsZero() {
		return r.Today(ctx)
	}
	return day
}

// MarkComplete records a completion for day, or for today when day is zero.
func (r *Recorder) MarkComplete(ctx context.Context, habitID string, day habit.Date) (habit.Completion, error) {
	c := habit.Completion{ID: r.newID(), HabitID: habitID, Date: r.resolve(ctx, day)}
	err := r.store.UpdateCompletions(ctx, habitID, func(tx storage.CompletionTx) error {
		return tx.Insert(c)
	})
	if errors.Is(err, storage.ErrConflict) {
		return habit.Completion{}, fmt.Errorf("%w: %s", ErrAlreadyCompleted, c.Date)
	}
	if err != nil {
		return habit.Completion{}, fmt.Errorf("mark complete: %w", err)
	}
	logger.Debug("Marked habit complete", "habit_id", habitID, "date", c.Date)
	return c, nil
}

// UnmarkComplete removes the completion for day, or for today when day is zero.
func (r *Recorder) UnmarkComplete(ctx context.Context, habitID string, day habit.Date) error {
	target := r.resolve(ctx, day)
	err := r.store.UpdateCompletions(ctx, habitID, func(tx storage.CompletionTx) error {
		c, ok, err := tx.Get(target)
		if err != nil {
			return err
		}
		if !ok {
			return storage.ErrNotFound
		}
		return tx.Delete(c)
	})
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotCompleted, target)
	}
	if err != nil {
		return fmt.Errorf("unmark complete: %w", err)
	}
	logger.Debug("Unmarked habit completion", "habit_id", habitID, "date", target)
	return nil
}

// TrackProgress adds value to today's completion, creating it if needed.
// Unlike MarkComplete it never fails because today is already recorded. A
// negative value corrects an earlier over-count.
func (r *Recorder) TrackProgress(ctx context.Context, habitID string, value int) (habit.Completion, error) {
	today := r.Today(ctx)

	var out habit.Completion
	err := r.store.UpdateCompletions(ctx, habitID, func(tx storage.CompletionTx) error {
		var err error
		out, err = tx.AddValue(habit.Completion{ID: r.newID(), HabitID: habitID, Date: today}, value)
		return err
	})
	if err != nil {
		return habit.Completion{}, fmt.Errorf("track progress: %w", err)
	}
	logger.Debug("Tracked habit progress", "habit_id", habitID, "date", today, "value", *out.Value)
	return out, nil
}

// BulkImport merges days into the ledger. Days already recorded (and
// duplicates within days) are skipped silently; the number of completions
// actually created is returned. Either every new day is written or none is.
func (r *Recorder) BulkImport(ctx context.Context, habitID string, days []habit.Date) (int, error) {
	wanted := make(map[habit.Date]struct{}, len(days))
	for _, d := range days {
		if !d.IsZero() {
			wanted[d] = struct{}{}
		}
	}
	if len(wanted) == 0 {
		return 0, nil
	}

	created := 0
	err := r.store.UpdateCompletions(ctx, habitID, func(tx storage.CompletionTx) error {
		existing, err := tx.List()
		if err != nil {
			return err
		}
		for _, c := range existing {
			delete(wanted, c.Date)
		}
		if len(wanted) == 0 {
			return nil
		}

		batch := make([]habit.Completion, 0, len(wanted))
		for d := range wanted {
			batch = append(batch, habit.Completion{ID: r.newID(), HabitID: habitID, Date: d})
		}
		slices.SortFunc(batch, func(a, b habit.Completion) int { return a.Date.Compare(b.Date) })

		created, err = tx.InsertBatch(batch)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("bulk import: %w", err)
	}
	logger.Debug("Imported habit completions", "habit_id", habitID, "requested", len(days), "created", created)
	return created, nil
}

func (r *Recorder) Completions(ctx context.Context, habitID string) ([]habit.Completion, error) {
	cs, err := r.store.ListCompletions(ctx, habitID)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	return cs, nil
}

func (r *Recorder) Stats(ctx context.Context, habitID string) (habit.Stats, error) {
	days, err := r.days(ctx, habitID)
	if err != nil {
		return habit.Stats{}, err
	}
	return streak.Compute(days, r.Today(ctx)), nil
}

func (r *Recorder) Summary(ctx context.Context, habitID string) (habit.Summary, error) {
	days, err := r.days(ctx, habitID)
	if err != nil {
		return habit.Summary{}, err
	}
	return streak.Summarize(days, r.Today(ctx)), nil
}

func (r *Recorder) days(ctx context.Context, habitID string) ([]habit.Date, error) {
	cs, err := r.Completions(ctx, habitID)
	if err != nil {
		return nil, err
	}
	days := make([]habit.Date, len(cs))
	for i, c := range cs {
		days[i] = c.Date
	}
	return days, nil
}
