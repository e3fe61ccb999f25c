package habit

import (
	"fmt"
	"time"
)

type HabitType string

const (
	TypeSimple    HabitType = "simple"
	TypeFrequency HabitType = "frequency"
	TypeTimer     HabitType = "timer"
)

func (t HabitType) Valid() bool {
	switch t {
	case TypeSimple, TypeFrequency, TypeTimer:
		return true
	}
	return false
}

const DefaultDurationMinutes = 60

type Habit struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	HabitType       HabitType `json:"habit_type"`
	FrequencyCount  *int      `json:"frequency_count,omitempty"`
	TargetMinutes   *int      `json:"target_minutes,omitempty"`
	ScheduledTime   *string   `json:"scheduled_time,omitempty"`
	DurationMinutes *int      `json:"duration_minutes,omitempty"`
	CalendarEventID string    `json:"calendar_event_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type HabitCreate struct {
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	HabitType       HabitType `json:"habit_type"`
	FrequencyCount  *int      `json:"frequency_count"`
	TargetMinutes   *int      `json:"target_minutes"`
	ScheduledTime   *string   `json:"scheduled_time"`
	DurationMinutes *int      `json:"duration_minutes"`
	SyncToCalendar  bool      `json:"sync_to_calendar"`
}

// HabitUpdate is a partial update: nil fields are left untouched.
type HabitUpdate struct {
	Name            *string    `json:"name"`
	Description     *string    `json:"description"`
	HabitType       *HabitType `json:"habit_type"`
	FrequencyCount  *int       `json:"frequency_count"`
	TargetMinutes   *int       `json:"target_minutes"`
	ScheduledTime   *string    `json:"scheduled_time"`
	DurationMinutes *int       `json:"duration_minutes"`
}

type Completion struct {
	ID      string `json:"id"`
	HabitID string `json:"habit_id"`
	Date    Date   `json:"completion_date"`
	Value   *int   `json:"value"`
}

type Stats struct {
	CurrentStreak    int    `json:"current_streak"`
	LongestStreak    int    `json:"longest_streak"`
	TotalCompletions int    `json:"total_completions"`
	CompletionDates  []Date `json:"completion_dates"`
}

type Summary struct {
	Stats
	FirstCompleted Date `json:"first_completed"`
	LastCompleted  Date `json:"last_completed"`
	ThisMonth      int  `json:"this_month"`
	BestMonth      int  `json:"best_month"`
	AsOf           Date `json:"as_of"`
}

const (
	maxNameLength        = 100
	maxDescriptionLength = 1024
	timeOfDayLayout      = "15:04"
)

// New builds a habit owned by userID from a create request, applying defaults.
func New(id, userID string, in HabitCreate, now time.Time) Habit {
	h := Habit{
		ID:              id,
		UserID:          userID,
		Name:            in.Name,
		Description:     in.Description,
		HabitType:       in.HabitType,
		FrequencyCount:  in.FrequencyCount,
		TargetMinutes:   in.TargetMinutes,
		ScheduledTime:   in.ScheduledTime,
		DurationMinutes: in.DurationMinutes,
		CreatedAt:       now.UTC(),
	}
	if h.HabitType == "" {
		h.HabitType = TypeSimple
	}
	if h.DurationMinutes == nil {
		d := DefaultDurationMinutes
		h.DurationMinutes = &d
	}
	return h
}

// Apply merges the set fields of u into h.
func (h *Habit) Apply(u HabitUpdate) {
	if u.Name != nil {
		h.Name = *u.Name
	}
	if u.Description != nil {
		h.Description = *u.Description
	}
	if u.HabitType != nil {
		h.HabitType = *u.HabitType
	}
	if u.FrequencyCount != nil {
		h.FrequencyCount = u.FrequencyCount
	}
	if u.TargetMinutes != nil {
		h.TargetMinutes = u.TargetMinutes
	}
	if u.ScheduledTime != nil {
		h.ScheduledTime = u.ScheduledTime
	}
	if u.DurationMinutes != nil {
		h.DurationMinutes = u.DurationMinutes
	}
}

func (h Habit) Validate() error {
	if len(h.Name) == 0 || len(h.Name) > maxNameLength {
		return fmt.Errorf("bad habit name: must be 1-%d characters", maxNameLength)
	}
	if len(h.Description) > maxDescriptionLength {
		return fmt.Errorf("bad habit description: must be 0-%d characters", maxDescriptionLength)
	}
	if !h.HabitType.Valid() {
		return fmt.Errorf("bad habit type %q: must be one of simple, frequency, timer", h.HabitType)
	}
	if h.FrequencyCount != nil && *h.FrequencyCount <= 0 {
		return fmt.Errorf("bad frequency count: must be positive")
	}
	if h.TargetMinutes != nil && *h.TargetMinutes <= 0 {
		return fmt.Errorf("bad target minutes: must be positive")
	}
	if h.DurationMinutes != nil && *h.DurationMinutes <= 0 {
		return fmt.Errorf("bad duration: must be positive")
	}
	if h.ScheduledTime != nil {
		if _, err := time.Parse(timeOfDayLayout, *h.ScheduledTime); err != nil {
			return fmt.Errorf("bad scheduled time %q: want HH:MM", *h.ScheduledTime)
		}
	}
	return nil
}

// ScheduledAt returns the habit's scheduled start on day in loc, if it has one.
func (h Habit) ScheduledAt(day Date, loc *time.Location) (time.Time, bool) {
	if h.ScheduledTime == nil {
		return time.Time{}, false
	}
	tod, err := time.Parse(timeOfDayLayout, *h.ScheduledTime)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Time().Day(), tod.Hour(), tod.Minute(), 0, 0, loc), true
}
