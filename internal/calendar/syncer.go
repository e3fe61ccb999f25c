package calendar

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/oauth2"

	"github.com/brk3/habitstreak/internal/logger"
	"github.com/brk3/habitstreak/pkg/habit"
)

var syncEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "habits_calendar_sync_total",
		Help: "Calendar sync attempts by operation and result",
	},
	[]string{"operation", "result"},
)

// TokenStore loads and saves the oauth2 tokens of users.
type TokenStore interface {
	GetToken(userID string) (*oauth2.Token, bool, error)
	PutToken(userID string, tok *oauth2.Token) error
}

// Refresher renews an expired token. *oauth2.Config satisfies it.
type Refresher interface {
	TokenSource(ctx context.Context, t *oauth2.Token) oauth2.TokenSource
}

// Syncer is the best-effort side of calendar integration: each call has its
// own timeout, and failures are logged and counted but never returned.
type Syncer struct {
	client    Client
	tokens    TokenStore
	refresher Refresher
	timeout   time.Duration
	loc       *time.Location
}

type SyncerOption func(*Syncer)

// WithRefresher lets the Syncer renew expired access tokens with the stored
// refresh token. Without it an expired token skips the sync.
func WithRefresher(r Refresher) SyncerOption {
	return func(s *Syncer) { s.refresher = r }
}

func NewSyncer(client Client, tokens TokenStore, timeout time.Duration, loc *time.Location, opts ...SyncerOption) *Syncer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if loc == nil {
		loc = time.UTC
	}
	s := &Syncer{client: client, tokens: tokens, timeout: timeout, loc: loc}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// accessToken returns a usable access token for userID, refreshing and
// storing it first when it has expired.
func (s *Syncer) accessToken(ctx context.Context, userID string) (string, bool) {
	tok, found, err := s.tokens.GetToken(userID)
	if err != nil {
		logger.Error("Failed to load calendar token", "user_id", userID, "error", err)
		return "", false
	}
	if !found || (tok.AccessToken == "" && tok.RefreshToken == "") {
		logger.Info("No calendar access token for user, skipping sync", "user_id", userID)
		return "", false
	}
	if tok.Valid() {
		return tok.AccessToken, true
	}
	if s.refresher == nil || tok.RefreshToken == "" {
		logger.Info("Calendar token expired and cannot be refreshed, skipping sync", "user_id", userID)
		return "", false
	}

	fresh, err := s.refresher.TokenSource(ctx, tok).Token()
	if err != nil {
		logger.Warn("Calendar token refresh failed", "user_id", userID, "error", err)
		return "", false
	}
	if err := s.tokens.PutToken(userID, fresh); err != nil {
		logger.Error("Failed to persist refreshed calendar token", "user_id", userID, "error", err)
	}
	logger.Debug("Refreshed calendar token", "user_id", userID, "expiry", fresh.Expiry)
	return fresh.AccessToken, true
}

// CreateForHabit creates the habit's event for day and returns its id, or ""
// when sync was skipped or failed. A timed event is placed in loc, or in the
// Syncer's zone when loc is nil.
func (s *Syncer) CreateForHabit(ctx context.Context, h habit.Habit, day habit.Date, loc *time.Location) string {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	token, ok := s.accessToken(ctx, h.UserID)
	if !ok {
		syncEventsTotal.WithLabelValues("create", "skipped").Inc()
		return ""
	}
	if loc == nil {
		loc = s.loc
	}

	id, err := s.client.CreateEvent(ctx, token, EventForHabit(h, day, loc))
	if err != nil {
		logger.Warn("Calendar event creation failed", "habit_id", h.ID, "user_id", h.UserID, "error", err)
		syncEventsTotal.WithLabelValues("create", "failed").Inc()
		return ""
	}
	logger.Info("Calendar event created", "habit_id", h.ID, "event_id", id)
	syncEventsTotal.WithLabelValues("create", "success").Inc()
	return id
}

func (s *Syncer) DeleteForHabit(ctx context.Context, h habit.Habit) {
	if h.CalendarEventID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	token, ok := s.accessToken(ctx, h.UserID)
	if !ok {
		syncEventsTotal.WithLabelValues("delete", "skipped").Inc()
		return
	}

	if err := s.client.DeleteEvent(ctx, token, h.CalendarEventID); err != nil {
		logger.Warn("Calendar event deletion failed", "habit_id", h.ID, "event_id", h.CalendarEventID, "error", err)
		syncEventsTotal.WithLabelValues("delete", "failed").Inc()
		return
	}
	logger.Info("Calendar event deleted", "habit_id", h.ID, "event_id", h.CalendarEventID)
	syncEventsTotal.WithLabelValues("delete", "success").Inc()
}
