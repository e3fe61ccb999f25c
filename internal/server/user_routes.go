package server

import (
	"encoding/json"
	"net/http"

	"github.com/brk3/habitstreak/internal/ledger"
	"github.com/brk3/habitstreak/internal/logger"
	"github.com/brk3/habitstreak/pkg/habit"
)

// loadProfile returns the caller's stored profile, or a fresh one when they
// have none yet.
func (s *Server) loadProfile(r *http.Request, userID string) (habit.UserProfile, error) {
	p, found, err := s.store.GetUser(userID)
	if err != nil {
		return habit.UserProfile{}, err
	}
	if !found {
		p = habit.UserProfile{UserID: userID, CreatedAt: s.now().UTC()}
		if u, ok := userFromContext(r.Context()); ok {
			p.Email = u.Email
		}
	}
	return p, nil
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	userID := s.callerID(r)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}
	p, err := s.loadProfile(r, userID)
	if err != nil {
		logger.Error("Failed to load user profile", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	if err := writeJSON(w, http.StatusOK, p); err != nil {
		logger.Error("Failed to serialize user profile", "user_id", userID, "error", err)
	}
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	userID := s.callerID(r)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}
	var u habit.UserUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := u.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := s.loadProfile(r, userID)
	if err != nil {
		logger.Error("Failed to load user profile", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	p.Apply(u)
	if err := s.store.PutUser(p); err != nil {
		logger.Error("Failed to store user profile", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	logger.Info("User profile updated", "user_id", userID, "timezone", p.Timezone)
	if err := writeJSON(w, http.StatusOK, p); err != nil {
		logger.Error("Failed to serialize user profile", "user_id", userID, "error", err)
	}
}

// recordLogin keeps the profile's identity fields in step with the provider.
// A name the user already has is kept.
func (s *Server) recordLogin(u *User) {
	p, found, err := s.store.GetUser(u.UserID)
	if err != nil {
		logger.Error("Failed to load user profile on login", "user_id", u.UserID, "error", err)
		return
	}
	if !found {
		p = habit.UserProfile{UserID: u.UserID, CreatedAt: s.now().UTC()}
	}
	if p.FullName == "" {
		p.FullName = u.Name
	}
	if u.Email != "" {
		p.Email = u.Email
	}
	if u.Picture != "" {
		p.PictureURL = u.Picture
	}
	if err := s.store.PutUser(p); err != nil {
		logger.Error("Failed to store user profile on login", "user_id", u.UserID, "error", err)
	}
}

// userLocationMiddleware makes "today" resolve in the caller's profile
// timezone. Callers without one use the server's zone.
func (s *Server) userLocationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := s.callerID(r)
		if userID == "" {
			next.ServeHTTP(w, r)
			return
		}
		p, found, err := s.store.GetUser(userID)
		if err != nil {
			logger.Warn("Failed to load user timezone, using server zone", "user_id", userID, "error", err)
		}
		if loc := p.Location(); found && loc != nil {
			r = r.WithContext(ledger.ContextWithLocation(r.Context(), loc))
		}
		next.ServeHTTP(w, r)
	})
}
