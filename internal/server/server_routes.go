package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/brk3/habitstreak/internal/logger"
	"github.com/brk3/habitstreak/internal/storage"
	"github.com/brk3/habitstreak/pkg/habit"
	"github.com/brk3/habitstreak/pkg/versioninfo"
)

func (s *Server) getVersionInfo(w http.ResponseWriter, _ *http.Request) {
	info := versioninfo.VersionInfo{
		Version:   versioninfo.Version,
		BuildDate: versioninfo.BuildDate,
	}
	if err := writeJSON(w, http.StatusOK, info); err != nil {
		logger.Error("Failed to serialize version info response", "error", err)
	}
}

// habitForUser loads the habit named in the URL and checks that the caller
// owns it. On failure the response has been written and ok is false.
func (s *Server) habitForUser(w http.ResponseWriter, r *http.Request) (h habit.Habit, ok bool) {
	habitID := chi.URLParam(r, "habit_id")
	userID := s.callerID(r)
	if userID == "" || habitID == "" {
		logger.Warn("Missing required parameters", "user_id", userID, "habit_id", habitID)
		writeError(w, http.StatusBadRequest, "user id and habit id are required")
		return habit.Habit{}, false
	}

	h, err := s.store.GetHabit(r.Context(), habitID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "habit not found")
		return habit.Habit{}, false
	}
	if err != nil {
		logger.Error("Failed to load habit", "user_id", userID, "habit_id", habitID, "error", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return habit.Habit{}, false
	}
	if h.UserID != userID {
		logger.Warn("Habit belongs to another user", "user_id", userID, "habit_id", habitID)
		writeError(w, http.StatusForbidden, "not allowed to access this habit")
		return habit.Habit{}, false
	}
	return h, true
}

func (s *Server) listHabits(w http.ResponseWriter, r *http.Request) {
	userID := s.callerID(r)
	logger.Debug("Listing habits", "user_id", userID)
	if userID == "" {
		logger.Warn("Missing user ID for list habits")
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}
	habits, err := s.store.ListHabits(r.Context(), userID)
	if err != nil {
		logger.Error("Failed to list habits", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	logger.Debug("Listed habits successfully", "user_id", userID, "count", len(habits))
	UpdateActiveHabitsForUser(userID, len(habits))
	if err := writeJSON(w, http.StatusOK, HabitListResponse{Habits: habits}); err != nil {
		logger.Error("Failed to serialize habit list response", "user_id", userID, "error", err)
	}
}

func (s *Server) createHabit(w http.ResponseWriter, r *http.Request) {
	userID := s.callerID(r)
	if userID == "" {
		logger.Warn("Missing user ID for create habit")
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}
	var in habit.HabitCreate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		logger.Warn("Invalid JSON in create habit request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	h := habit.New(uuid.NewString(), userID, in, s.now())
	if err := h.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.PutHabit(r.Context(), h); err != nil {
		logger.Error("Failed to store habit", "user_id", userID, "habit_name", h.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "database write failed")
		return
	}
	logger.Info("Habit created", "user_id", userID, "habit_id", h.ID, "habit_name", h.Name)

	if in.SyncToCalendar {
		s.syncToCalendar(r, &h)
	}

	if habits, err := s.store.ListHabits(r.Context(), userID); err != nil {
		logger.Warn("Failed to update active habits metric after create", "user_id", userID, "error", err)
	} else {
		UpdateActiveHabitsForUser(userID, len(habits))
	}

	if err := writeJSON(w, http.StatusCreated, h); err != nil {
		logger.Error("Failed to serialize create habit response", "user_id", userID, "habit_id", h.ID, "error", err)
	}
}

// syncToCalendar never fails the request: the habit is already stored and
// a missing calendar event is only logged.
func (s *Server) syncToCalendar(r *http.Request, h *habit.Habit) {
	if s.calendar == nil {
		logger.Debug("Calendar sync requested but disabled", "habit_id", h.ID)
		return
	}
	ctx := r.Context()
	eventID := s.calendar.CreateForHabit(ctx, *h, s.ledger.Today(ctx), s.ledger.Location(ctx))
	if eventID == "" {
		return
	}
	h.CalendarEventID = eventID
	if err := s.store.PutHabit(r.Context(), *h); err != nil {
		logger.Warn("Failed to record calendar event id", "habit_id", h.ID, "event_id", eventID, "error", err)
	}
}

func (s *Server) getHabit(w http.ResponseWriter, r *http.Request) {
	h, ok := s.habitForUser(w, r)
	if !ok {
		return
	}
	if err := writeJSON(w, http.StatusOK, h); err != nil {
		logger.Error("Failed to serialize get habit response", "habit_id", h.ID, "error", err)
	}
}

func (s *Server) updateHabit(w http.ResponseWriter, r *http.Request) {
	h, ok := s.habitForUser(w, r)
	if !ok {
		return
	}
	var u habit.HabitUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		logger.Warn("Invalid JSON in update habit request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	h.Apply(u)
	if err := h.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.PutHabit(r.Context(), h); err != nil {
		logger.Error("Failed to update habit", "habit_id", h.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "database write failed")
		return
	}
	logger.Info("Habit updated", "user_id", h.UserID, "habit_id", h.ID)
	if err := writeJSON(w, http.StatusOK, h); err != nil {
		logger.Error("Failed to serialize update habit response", "habit_id", h.ID, "error", err)
	}
}

func (s *Server) deleteHabit(w http.ResponseWriter, r *http.Request) {
	h, ok := s.habitForUser(w, r)
	if !ok {
		return
	}
	logger.Info("Deleting habit", "user_id", h.UserID, "habit_id", h.ID)

	if err := s.store.DeleteHabit(r.Context(), h.ID); err != nil {
		logger.Error("Failed to delete habit", "user_id", h.UserID, "habit_id", h.ID, "error", err)
		writeError(w, statusForError(err), "storage error")
		return
	}
	if s.calendar != nil {
		s.calendar.DeleteForHabit(r.Context(), h)
	}
	logger.Info("Habit deleted successfully", "user_id", h.UserID, "habit_id", h.ID)

	if habits, err := s.store.ListHabits(r.Context(), h.UserID); err != nil {
		logger.Warn("Failed to update active habits metric after deletion", "user_id", h.UserID, "error", err)
	} else {
		UpdateActiveHabitsForUser(h.UserID, len(habits))
	}

	w.WriteHeader(http.StatusNoContent)
}
