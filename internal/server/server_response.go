package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/brk3/habitstreak/internal/ledger"
	"github.com/brk3/habitstreak/internal/storage"
	"github.com/brk3/habitstreak/pkg/habit"
)

type HabitListResponse struct {
	Habits []habit.Habit `json:"habits"`
}

type HabitCompletionsResponse struct {
	HabitID     string             `json:"habit_id"`
	Completions []habit.Completion `json:"completions"`
}

type HabitSummaryResponse struct {
	HabitID      string        `json:"habit_id"`
	Name         string        `json:"name"`
	HabitSummary habit.Summary `json:"habit_summary"`
}

type CompletionRequest struct {
	Date habit.Date `json:"completion_date"`
}

type TrackRequest struct {
	Value int `json:"value"`
}

type BulkImportRequest struct {
	Dates []habit.Date `json:"dates"`
}

type BulkImportResponse struct {
	EntriesCreated int `json:"entries_created"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	_ = writeJSON(w, code, errorResponse{Error: msg})
}

// statusForError maps ledger and storage errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, ledger.ErrAlreadyCompleted), errors.Is(err, storage.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrNotCompleted), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
