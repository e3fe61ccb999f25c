package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brk3/habitstreak/internal/calendar"
	"github.com/brk3/habitstreak/internal/config"
	"github.com/brk3/habitstreak/internal/ledger"
	"github.com/brk3/habitstreak/internal/logger"
	"github.com/brk3/habitstreak/internal/storage"
)

type Server struct {
	cfg           *config.Config
	store         storage.Store
	ledger        *ledger.Recorder
	calendar      *calendar.Syncer
	authProviders map[string]*AuthProvider
	sessions      *sessionCodec

	now            func() time.Time
	calendarClient calendar.Client
}

type Option func(*Server)

// WithClock replaces time.Now for everything that depends on "today".
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithCalendarClient enables calendar sync through c regardless of config.
func WithCalendarClient(c calendar.Client) Option {
	return func(s *Server) { s.calendarClient = c }
}

func New(cfg *config.Config, store storage.Store, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:   cfg,
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	loc := cfg.Location()
	s.ledger = ledger.New(store, ledger.WithClock(s.now), ledger.WithLocation(loc))

	if cfg.AuthEnabled {
		providers, err := newAuthProviders(context.Background(), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to configure auth: %w", err)
		}
		sessions, err := newSessionCodec(cfg.SessionSecret)
		if err != nil {
			return nil, err
		}
		s.authProviders = providers
		s.sessions = sessions
	}

	if s.calendarClient == nil && cfg.Calendar.Enabled {
		s.calendarClient = calendar.NewGoogle(cfg.Calendar.BaseURL, cfg.Calendar.CalendarID, nil)
	}
	if s.calendarClient != nil {
		var opts []calendar.SyncerOption
		if pc, ok := cfg.CalendarProvider(); ok {
			if p, ok := s.authProviders[pc.Id]; ok {
				opts = append(opts, calendar.WithRefresher(p.oauth2))
			}
		}
		s.calendar = calendar.NewSyncer(s.calendarClient, store, cfg.Calendar.Timeout, loc, opts...)
		logger.Info("Calendar sync enabled", "calendar_id", cfg.Calendar.CalendarID, "token_refresh", len(opts) > 0)
	}

	return s, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(metricsMiddleware)

	r.Get("/version", s.getVersionInfo)
	r.Handle("/metrics", promhttp.Handler())

	if s.cfg.AuthEnabled {
		r.Route("/auth", func(r chi.Router) {
			r.Get("/login", s.loginChooser)
			r.Get("/login/{id}", s.login)
			r.Get("/callback/{id}", s.callback)
			r.Post("/logout", s.logout)
			r.Get("/token", s.sessionToken)

			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware)
				r.Post("/api_keys", s.generateAPIKey)
				r.Get("/api_keys", s.listAPIKeys)
				r.Delete("/api_keys/{key_hash}", s.revokeAPIKey)
			})
		})
	}

	r.Route("/users", func(r chi.Router) {
		if s.cfg.AuthEnabled {
			r.Use(s.authMiddleware)
		}
		r.Get("/", s.getUser)
		r.Patch("/", s.updateUser)
	})

	r.Route("/habits", func(r chi.Router) {
		if s.cfg.AuthEnabled {
			r.Use(s.authMiddleware)
		}
		r.Use(s.userAwareMetricsMiddleware)
		r.Use(s.userLocationMiddleware)

		r.Post("/", s.createHabit)
		r.Get("/", s.listHabits)
		r.Route("/{habit_id}", func(r chi.Router) {
			r.Get("/", s.getHabit)
			r.Patch("/", s.updateHabit)
			r.Delete("/", s.deleteHabit)

			r.Post("/complete", s.markComplete)
			r.Delete("/complete", s.unmarkComplete)
			r.Get("/completions", s.listCompletions)
			r.Post("/completions/bulk", s.bulkImport)
			r.Post("/track", s.trackProgress)
			r.Get("/stats", s.getHabitStats)
			r.Get("/summary", s.getHabitSummary)
		})
	})
	return r
}
