package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brk3/habitstreak/internal/storage"
	"github.com/brk3/habitstreak/internal/storage/bolt"
	"github.com/brk3/habitstreak/internal/storage/sqlstore"
	"github.com/brk3/habitstreak/pkg/habit"
)

var fixedNow = time.Date(2024, time.January, 3, 15, 0, 0, 0, time.UTC)

func newRecorder(store storage.CompletionStore) *Recorder {
	return New(store, WithClock(func() time.Time { return fixedNow }), WithLocation(time.UTC))
}

// backends runs fn once per CompletionStore implementation.
func backends(t *testing.T, fn func(t *testing.T, store storage.CompletionStore)) {
	t.Run("mem", func(t *testing.T) {
		fn(t, newMemStore())
	})
	t.Run("bolt", func(t *testing.T) {
		s, err := bolt.Open(filepath.Join(t.TempDir(), "habits.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		fn(t, s)
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := sqlstore.Open(sqlstore.DriverSQLite, filepath.Join(t.TempDir(), "habits.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		h := habit.New("h1", "alice", habit.HabitCreate{Name: "h1"}, fixedNow)
		require.NoError(t, s.PutHabit(context.Background(), h))
		fn(t, s)
	})
}

func TestToday_UsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC-8", -8*60*60)
	early := time.Date(2024, time.January, 3, 5, 0, 0, 0, time.UTC)
	r := New(newMemStore(), WithClock(func() time.Time { return early }), WithLocation(loc))

	assert.Equal(t, habit.MustParseDate("2024-01-02"), r.Today(context.Background()))
}

func TestToday_ContextLocationOverridesDefault(t *testing.T) {
	r := newRecorder(newMemStore())
	kiritimati := time.FixedZone("UTC+14", 14*60*60)
	ctx := ContextWithLocation(context.Background(), kiritimati)

	assert.Equal(t, habit.MustParseDate("2024-01-04"), r.Today(ctx))
	assert.Equal(t, kiritimati, r.Location(ctx))
	assert.Equal(t, time.UTC, r.Location(ContextWithLocation(context.Background(), nil)))
}

func TestMarkComplete_UsesContextLocation(t *testing.T) {
	backends(t, func(t *testing.T, store storage.CompletionStore) {
		r := newRecorder(store)
		ctx := ContextWithLocation(context.Background(), time.FixedZone("UTC+14", 14*60*60))

		c, err := r.MarkComplete(ctx, "h1", habit.Date{})
		require.NoError(t, err)
		assert.Equal(t, habit.MustParseDate("2024-01-04"), c.Date)
	})
}

func TestMarkComplete_DefaultsToToday(t *testing.T) {
	backends(t, func(t *testing.T, store storage.CompletionStore) {
		r := newRecorder(store)
		c, err := r.MarkComplete(context.Background(), "h1", habit.Date{})
		require.NoError(t, err)

		assert.Equal(t, habit.MustParseDate("2024-01-03"), c.Date)
		assert.Equal(t, "h1", c.HabitID)
		assert.NotEmpty(t, c.ID)
		assert.Nil(t, c.Value)
	})
}

func TestMarkComplete_TwiceConflicts(t *testing.T) {
	backends(t, func(t *testing.T, store storage.CompletionStore) {
		r := newRecorder(store)
		ctx := context.Background()
		day := habit.MustParseDate("2023-12-25")

		_, err := r.MarkComplete(ctx, "h1", day)
		require.NoError(t, err)

		_, err = r.MarkComplete(ctx, "h1", day)
		assert.ErrorIs(t, err, ErrAlreadyCompleted)

		cs, err := r.Completions(ctx, "h1")
		require.NoError(t, err)
		assert.Len(t, cs, 1)
	})
}

func TestUnmarkComplete(t *testing.T) {
	backends(t, func(t *testing.T, store storage.CompletionStore) {
		r := newRecorder(store)
		ctx := context.Background()
		day := habit.MustParseDate("2024-01-01")

		_, err := r.MarkComplete(ctx, "h1", day)
		require.NoError(t, err)
		require.NoError(t, r.UnmarkComplete(ctx, "h1", day))

		cs, err := r.Completions(ctx, "h1")
		require.NoError(t, err)
		assert.Empty(t, cs)

		err = r.UnmarkComplete(ctx, "h1", day)
		assert.ErrorIs(t, err, ErrNotCompleted)
	})
}

func TestUnmarkComplete_DefaultsToToday(t *testing.T) {
	backends(t, func(t *testing.T, store storage.CompletionStore) {
		r := newRecorder(store)
		ctx := context.Background()

		_, err := r.MarkComplete(ctx, "h1", habit.MustParseDate("2024-01-02"))
		require.NoError(t, err)

		// nothing recorded for today, yesterday is left alone
		assert.ErrorIs(t, r.UnmarkComplete(ctx, "h1", habit.Date{}), ErrNotCompleted)
		cs, _ := r.Completions(ctx, "h1")
		assert.Len(t, cs, 1)
	})
}

func TestTrackProgress_Accumulates(t *testing.T) {
	backends(t, func(t *testing.T, store storage.CompletionStore) {
		r := newRecorder(store)
		ctx := context.Background()

		first, err := r.TrackProgress(ctx, "h1", 5)
		require.NoError(t, err)
		require.NotNil(t, first.Value)
		assert.Equal(t, 5, *first.Value)

		second, err := r.TrackProgress(ctx, "h1", 3)
		require.NoError(t, err)
		require.NotNil(t, second.Value)
		assert.Equal(t, 8, *second.Value)
		assert.Equal(t, first.ID, second.ID)

		cs, err := r.Completions(ctx, "h1")
		require.NoError(t, err)
		require.Len(t, cs, 1)
		assert.Equal(t, 8, *cs[0].Value)
	})
}

func TestTrackProgress_AfterMarkTreatsMissingValueAsZero(t *testing.T) {
	backends(t, func(t *testing.T, store storage.CompletionStore) {
		r := newRecorder(store)
		ctx := context.Background()

		_, err := r.MarkComplete(ctx, "h1", habit.Date{})
		require.NoError(t, err)

		c, err := r.TrackProgress(ctx, "h1", 4)
		require.NoError(t, err)
		assert.Equal(t, 4, *c.Value)
	})
}

func TestTrackProgress_NegativeCorrects(t *testing.T) {
	backends(t, func(t *testing.T, store storage.CompletionStore) {
		r := newRecorder(store)
		ctx := context.Background()

		_, err := r.TrackProgress(ctx, "h1", 5)
		require.NoError(t, err)

		c, err := r.TrackProgress(ctx, "h1", -2)
		require.NoError(t, err)
		require.NotNil(t, c.Value)
		assert.Equal(t, 3, *c.Value)

		c, err = r.TrackProgress(ctx, "h1", 0)
		require.NoError(t, err)
		assert.Equal(t, 3, *c.Value)
	})
}

func TestTrackProgress_NegativeFirstEntry(t *testing.T) {
	backends(t, func(t *testing.T, store storage.CompletionStore) {
		r := newRecorder(store)

		c, err := r.TrackProgress(context.Background(), "h1", -4)
		require.NoError(t, err)
		require.NotNil(t, c.Value)
		assert.Equal(t, -4, *c.Value)
	})
}

func TestBulkImport_Idempotent(t *testing.T) {
	backends(t, func(t *testing.T, store storage.CompletionStore) {
		r := newRecorder(store)
		ctx := context.Background()
		days := []habit.Date{
			habit.MustParseDate("2024-01-01"),
			habit.MustParseDate("2024-01-02"),
			habit.MustParseDate("2024-01-02"),
			habit.MustParseDate("2023-12-31"),
		}

		n, err := r.BulkImport(ctx, "h1", days)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		n, err = r.BulkImport(ctx, "h1", days)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		cs, err := r.Completions(ctx, "h1")
		require.NoError(t, err)
		assert.Len(t, cs, 3)
	})
}

func TestBulkImport_PartialOverlap(t *testing.T) {
	backends(t, func(t *testing.T, store storage.CompletionStore) {
		r := newRecorder(store)
		ctx := context.Background()

		_, err := r.MarkComplete(ctx, "h1", habit.MustParseDate("2024-01-02"))
		require.NoError(t, err)

		n, err := r.BulkImport(ctx, "h1", []habit.Date{
			habit.MustParseDate("2024-01-01"),
			habit.MustParseDate("2024-01-02"),
			habit.MustParseDate("2024-01-03"),
		})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		stats, err := r.Stats(ctx, "h1")
		require.NoError(t, err)
		assert.Equal(t, 3, stats.TotalCompletions)
		assert.Equal(t, 3, stats.CurrentStreak)
	})
}

func TestBulkImport_Empty(t *testing.T) {
	r := newRecorder(newMemStore())
	n, err := r.BulkImport(context.Background(), "h1", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestBulkImport_AllOrNothing(t *testing.T) {
	store := newMemStore()
	store.failInsertBatch = errors.New("disk full")
	r := newRecorder(store)
	ctx := context.Background()

	_, err := r.BulkImport(ctx, "h1", []habit.Date{
		habit.MustParseDate("2024-01-01"),
		habit.MustParseDate("2024-01-02"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	cs, err := r.Completions(ctx, "h1")
	require.NoError(t, err)
	assert.Empty(t, cs)
}

func TestStats(t *testing.T) {
	backends(t, func(t *testing.T, store storage.CompletionStore) {
		r := newRecorder(store)
		ctx := context.Background()

		_, err := r.BulkImport(ctx, "h1", []habit.Date{
			habit.MustParseDate("2024-01-01"),
			habit.MustParseDate("2024-01-02"),
			habit.MustParseDate("2024-01-03"),
		})
		require.NoError(t, err)

		stats, err := r.Stats(ctx, "h1")
		require.NoError(t, err)
		assert.Equal(t, 3, stats.CurrentStreak)
		assert.Equal(t, 3, stats.LongestStreak)
		assert.Equal(t, 3, stats.TotalCompletions)

		summary, err := r.Summary(ctx, "h1")
		require.NoError(t, err)
		assert.Equal(t, habit.MustParseDate("2024-01-03"), summary.AsOf)
		assert.Equal(t, 3, summary.ThisMonth)
	})
}

func TestStats_Empty(t *testing.T) {
	r := newRecorder(newMemStore())
	stats, err := r.Stats(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalCompletions)
	assert.Empty(t, stats.CompletionDates)
}
