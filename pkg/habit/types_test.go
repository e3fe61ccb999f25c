package habit

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDate_JSON(t *testing.T) {
	c := Completion{ID: "c1", HabitID: "h1", Date: NewDate(2024, time.February, 29)}
	b, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"id":"c1","habit_id":"h1","completion_date":"2024-02-29","value":null}`
	if string(b) != want {
		t.Fatalf("got %s want %s", b, want)
	}

	var back Completion
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Date != c.Date {
		t.Fatalf("got %v want %v", back.Date, c.Date)
	}
}

func TestDate_InvalidJSON(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`"2024-13-01"`), &d); err == nil {
		t.Fatal("expected error for invalid month")
	}
}

func TestDateOf_UsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	ts := time.Date(2024, time.January, 1, 20, 0, 0, 0, time.UTC)
	if got := DateOf(ts.In(loc)); got != NewDate(2024, time.January, 2) {
		t.Fatalf("got %v want 2024-01-02", got)
	}
}

func TestDate_AddDaysAcrossMonth(t *testing.T) {
	if got := MustParseDate("2024-01-31").AddDays(1); got.String() != "2024-02-01" {
		t.Fatalf("got %s", got)
	}
}

func TestNew_Defaults(t *testing.T) {
	h := New("id", "user", HabitCreate{Name: "guitar"}, time.Now())
	if h.HabitType != TypeSimple {
		t.Fatalf("got type %q want simple", h.HabitType)
	}
	if h.DurationMinutes == nil || *h.DurationMinutes != DefaultDurationMinutes {
		t.Fatalf("expected default duration of %d", DefaultDurationMinutes)
	}
	if err := h.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidate(t *testing.T) {
	zero := 0
	bad := "25:99"
	cases := map[string]Habit{
		"empty name":    {Name: "", HabitType: TypeSimple},
		"unknown type":  {Name: "x", HabitType: "weekly"},
		"zero freq":     {Name: "x", HabitType: TypeFrequency, FrequencyCount: &zero},
		"bad scheduled": {Name: "x", HabitType: TypeSimple, ScheduledTime: &bad},
	}
	for name, h := range cases {
		if err := h.Validate(); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestApply_PartialUpdate(t *testing.T) {
	h := New("id", "user", HabitCreate{Name: "guitar", Description: "scales"}, time.Now())
	name := "piano"
	h.Apply(HabitUpdate{Name: &name})
	if h.Name != "piano" || h.Description != "scales" {
		t.Fatalf("got %+v", h)
	}
}

func TestScheduledAt(t *testing.T) {
	at := "07:30"
	h := Habit{ScheduledTime: &at}
	loc := time.FixedZone("X", -5*60*60)
	got, ok := h.ScheduledAt(MustParseDate("2024-03-10"), loc)
	if !ok {
		t.Fatal("expected scheduled time")
	}
	want := time.Date(2024, time.March, 10, 7, 30, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}
