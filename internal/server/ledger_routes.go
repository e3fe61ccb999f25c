package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/brk3/habitstreak/internal/logger"
	"github.com/brk3/habitstreak/pkg/habit"
)

// completionDate reads the optional target day from the completion_date
// query parameter or JSON body. The zero Date means "today".
func completionDate(r *http.Request) (habit.Date, error) {
	if q := r.URL.Query().Get("completion_date"); q != "" {
		return habit.ParseDate(q)
	}
	var req CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return habit.Date{}, fmt.Errorf("invalid JSON: %w", err)
	}
	return req.Date, nil
}

func (s *Server) markComplete(w http.ResponseWriter, r *http.Request) {
	h, ok := s.habitForUser(w, r)
	if !ok {
		return
	}
	day, err := completionDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := s.ledger.MarkComplete(r.Context(), h.ID, day)
	RecordCompletionEvent("mark", err)
	if err != nil {
		code := statusForError(err)
		if code == http.StatusInternalServerError {
			logger.Error("Failed to mark habit complete", "habit_id", h.ID, "error", err)
		}
		writeError(w, code, err.Error())
		return
	}
	if err := writeJSON(w, http.StatusCreated, c); err != nil {
		logger.Error("Failed to serialize completion", "habit_id", h.ID, "error", err)
	}
}

func (s *Server) unmarkComplete(w http.ResponseWriter, r *http.Request) {
	h, ok := s.habitForUser(w, r)
	if !ok {
		return
	}
	day, err := completionDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = s.ledger.UnmarkComplete(r.Context(), h.ID, day)
	RecordCompletionEvent("unmark", err)
	if err != nil {
		code := statusForError(err)
		if code == http.StatusInternalServerError {
			logger.Error("Failed to unmark habit completion", "habit_id", h.ID, "error", err)
		}
		writeError(w, code, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listCompletions(w http.ResponseWriter, r *http.Request) {
	h, ok := s.habitForUser(w, r)
	if !ok {
		return
	}
	cs, err := s.ledger.Completions(r.Context(), h.ID)
	if err != nil {
		logger.Error("Failed to list completions", "habit_id", h.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	if err := writeJSON(w, http.StatusOK, HabitCompletionsResponse{HabitID: h.ID, Completions: cs}); err != nil {
		logger.Error("Failed to serialize completions", "habit_id", h.ID, "error", err)
	}
}

func (s *Server) trackProgress(w http.ResponseWriter, r *http.Request) {
	h, ok := s.habitForUser(w, r)
	if !ok {
		return
	}
	var req TrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	c, err := s.ledger.TrackProgress(r.Context(), h.ID, req.Value)
	RecordCompletionEvent("track", err)
	if err != nil {
		code := statusForError(err)
		if code == http.StatusInternalServerError {
			logger.Error("Failed to track habit progress", "habit_id", h.ID, "error", err)
		}
		writeError(w, code, err.Error())
		return
	}
	if err := writeJSON(w, http.StatusOK, c); err != nil {
		logger.Error("Failed to serialize completion", "habit_id", h.ID, "error", err)
	}
}

func (s *Server) bulkImport(w http.ResponseWriter, r *http.Request) {
	h, ok := s.habitForUser(w, r)
	if !ok {
		return
	}
	var req BulkImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	n, err := s.ledger.BulkImport(r.Context(), h.ID, req.Dates)
	RecordCompletionEvent("bulk_import", err)
	if err != nil {
		logger.Error("Bulk import failed", "habit_id", h.ID, "dates", len(req.Dates), "error", err)
		writeError(w, statusForError(err), "bulk import failed")
		return
	}
	logger.Info("Bulk import finished", "habit_id", h.ID, "requested", len(req.Dates), "created", n)
	if err := writeJSON(w, http.StatusOK, BulkImportResponse{EntriesCreated: n}); err != nil {
		logger.Error("Failed to serialize bulk import response", "habit_id", h.ID, "error", err)
	}
}

func (s *Server) getHabitStats(w http.ResponseWriter, r *http.Request) {
	h, ok := s.habitForUser(w, r)
	if !ok {
		return
	}
	stats, err := s.ledger.Stats(r.Context(), h.ID)
	if err != nil {
		logger.Error("Failed to compute stats", "habit_id", h.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "error computing stats")
		return
	}
	if err := writeJSON(w, http.StatusOK, stats); err != nil {
		logger.Error("Failed to serialize stats", "habit_id", h.ID, "error", err)
	}
}

func (s *Server) getHabitSummary(w http.ResponseWriter, r *http.Request) {
	h, ok := s.habitForUser(w, r)
	if !ok {
		return
	}
	logger.Debug("Getting habit summary", "habit_id", h.ID, "user_id", h.UserID)

	summary, err := s.ledger.Summary(r.Context(), h.ID)
	if err != nil {
		logger.Error("Failed to compute summary", "habit_id", h.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "error computing summary")
		return
	}
	resp := HabitSummaryResponse{
		HabitID:      h.ID,
		Name:         h.Name,
		HabitSummary: summary,
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		logger.Error("Failed to serialize habit summary response", "habit_id", h.ID, "error", err)
	}
}
