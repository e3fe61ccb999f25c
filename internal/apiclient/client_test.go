package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/brk3/habitstreak/internal/config"
	"github.com/brk3/habitstreak/internal/server"
	"github.com/brk3/habitstreak/internal/storage/bolt"
	"github.com/brk3/habitstreak/pkg/habit"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	store, err := bolt.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	now := func() time.Time { return time.Date(2024, time.January, 3, 12, 0, 0, 0, time.UTC) }
	srv, err := server.New(&config.Config{Timezone: "UTC"}, store, server.WithClock(now))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return New(ts.URL+"/", "")
}

func TestClient_HabitLifecycle(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	created, err := c.CreateHabit(ctx, habit.HabitCreate{Name: "guitar"})
	if err != nil {
		t.Fatalf("CreateHabit failed: %v", err)
	}

	found, err := c.FindHabit(ctx, "guitar")
	if err != nil || found.ID != created.ID {
		t.Fatalf("FindHabit = %+v, %v", found, err)
	}
	if _, err := c.FindHabit(ctx, "piano"); err == nil {
		t.Fatal("expected error for unknown habit")
	}

	if _, err := c.MarkComplete(ctx, created.ID, habit.Date{}); err != nil {
		t.Fatalf("MarkComplete failed: %v", err)
	}
	_, err = c.MarkComplete(ctx, created.ID, habit.Date{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 APIError, got %v", err)
	}

	n, err := c.BulkImport(ctx, created.ID, []habit.Date{habit.MustParseDate("2024-01-01"), habit.MustParseDate("2024-01-02")})
	if err != nil || n != 2 {
		t.Fatalf("BulkImport = %d, %v", n, err)
	}

	stats, err := c.Stats(ctx, created.ID)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.CurrentStreak != 3 || stats.TotalCompletions != 3 {
		t.Fatalf("got %+v", stats)
	}

	summary, err := c.GetHabitSummary(ctx, created.ID)
	if err != nil || summary.LongestStreak != 3 {
		t.Fatalf("GetHabitSummary = %+v, %v", summary, err)
	}

	if err := c.UnmarkComplete(ctx, created.ID, habit.MustParseDate("2024-01-01")); err != nil {
		t.Fatalf("UnmarkComplete failed: %v", err)
	}
	cs, err := c.Completions(ctx, created.ID)
	if err != nil || len(cs) != 2 {
		t.Fatalf("Completions = %v, %v", cs, err)
	}

	if err := c.DeleteHabit(ctx, created.ID); err != nil {
		t.Fatalf("DeleteHabit failed: %v", err)
	}
	habits, err := c.ListHabits(ctx)
	if err != nil || len(habits) != 0 {
		t.Fatalf("ListHabits = %v, %v", habits, err)
	}
}

func TestClient_TrackProgress(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	created, err := c.CreateHabit(ctx, habit.HabitCreate{Name: "pushups", HabitType: habit.TypeFrequency})
	if err != nil {
		t.Fatalf("CreateHabit failed: %v", err)
	}
	if _, err := c.TrackProgress(ctx, created.ID, 5); err != nil {
		t.Fatalf("TrackProgress failed: %v", err)
	}
	comp, err := c.TrackProgress(ctx, created.ID, 3)
	if err != nil || comp.Value == nil || *comp.Value != 8 {
		t.Fatalf("TrackProgress = %+v, %v", comp, err)
	}
}

func TestClient_Profile(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	p, err := c.GetProfile(ctx)
	if err != nil || p.UserID != "anonymous" {
		t.Fatalf("GetProfile = %+v, %v", p, err)
	}

	tz := "America/Chicago"
	p, err = c.UpdateProfile(ctx, habit.UserUpdate{Timezone: &tz})
	if err != nil || p.Timezone != tz {
		t.Fatalf("UpdateProfile = %+v, %v", p, err)
	}

	bad := "Nowhere/Special"
	_, err = c.UpdateProfile(ctx, habit.UserUpdate{Timezone: &bad})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 APIError, got %v", err)
	}
}

func TestClient_BearerToken(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"version":"1.2.3","build_date":"today"}`))
	}))
	defer ts.Close()

	info, err := New(ts.URL, "hab_live_abc").Version(context.Background())
	if err != nil {
		t.Fatalf("Version failed: %v", err)
	}
	if got != "Bearer hab_live_abc" {
		t.Fatalf("got Authorization %q", got)
	}
	if info.Version != "1.2.3" {
		t.Fatalf("got %+v", info)
	}
}

func TestClient_ErrorMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer ts.Close()

	_, err := New(ts.URL, "").ListHabits(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized || apiErr.Message != "unauthorized" {
		t.Fatalf("got %v", err)
	}
}
