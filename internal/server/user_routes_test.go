package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brk3/habitstreak/pkg/habit"
)

func TestGetUser_Default(t *testing.T) {
	h := newTestServer(t, newTestStore(t))

	rr := mockRequest(h, http.MethodGet, "/users/", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d want 200, body: %s", rr.Code, rr.Body.String())
	}
	p := decode[habit.UserProfile](t, rr)
	if p.UserID != anonymousUserID || p.Timezone != "" {
		t.Fatalf("got %+v", p)
	}
}

func TestUpdateUser(t *testing.T) {
	st := newTestStore(t)
	h := newTestServer(t, st)

	rr := mockRequest(h, http.MethodPatch, "/users/", map[string]string{
		"full_name": "Ada Lovelace",
		"timezone":  "Europe/Dublin",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d want 200, body: %s", rr.Code, rr.Body.String())
	}
	if p := decode[habit.UserProfile](t, rr); p.FullName != "Ada Lovelace" || p.Timezone != "Europe/Dublin" {
		t.Fatalf("got %+v", p)
	}

	rr = mockRequest(h, http.MethodPatch, "/users/", map[string]string{"timezone": "Asia/Tokyo"})
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d want 200, body: %s", rr.Code, rr.Body.String())
	}

	stored, found, err := st.GetUser(anonymousUserID)
	if err != nil || !found {
		t.Fatalf("profile not stored: found=%v err=%v", found, err)
	}
	if stored.FullName != "Ada Lovelace" || stored.Timezone != "Asia/Tokyo" {
		t.Fatalf("partial update lost fields: %+v", stored)
	}
	if p := decode[habit.UserProfile](t, mockRequest(h, http.MethodGet, "/users/", nil)); p.Timezone != "Asia/Tokyo" {
		t.Fatalf("GET returned %+v", p)
	}
}

func TestUpdateUser_Invalid(t *testing.T) {
	st := newTestStore(t)
	h := newTestServer(t, st)

	for name, body := range map[string]any{
		"unknown timezone": map[string]string{"timezone": "Mars/Olympus"},
		"short name":       map[string]string{"full_name": "Al"},
		"wrong type":       map[string]int{"timezone": 5},
	} {
		rr := mockRequest(h, http.MethodPatch, "/users/", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d want 400", name, rr.Code)
		}
	}
	if _, found, _ := st.GetUser(anonymousUserID); found {
		t.Fatal("rejected update should not create a profile")
	}
}

// At 2024-01-03 12:00 UTC it is already 2024-01-04 in Kiritimati (UTC+14).
func TestUserTimezone_ResolvesToday(t *testing.T) {
	h := newTestServer(t, newTestStore(t))
	created := createHabit(t, h, habit.HabitCreate{Name: "stretch", HabitType: habit.TypeFrequency})

	rr := mockRequest(h, http.MethodPost, "/habits/"+created.ID+"/complete", nil)
	if c := decode[habit.Completion](t, rr); c.Date.String() != "2024-01-03" {
		t.Fatalf("server zone: got %s want 2024-01-03", c.Date)
	}

	rr = mockRequest(h, http.MethodPatch, "/users/", map[string]string{"timezone": "Pacific/Kiritimati"})
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d want 200, body: %s", rr.Code, rr.Body.String())
	}

	rr = mockRequest(h, http.MethodPost, "/habits/"+created.ID+"/complete", nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("got %d want 201, body: %s", rr.Code, rr.Body.String())
	}
	if c := decode[habit.Completion](t, rr); c.Date.String() != "2024-01-04" {
		t.Fatalf("user zone: got %s want 2024-01-04", c.Date)
	}

	rr = mockRequest(h, http.MethodPost, "/habits/"+created.ID+"/track", TrackRequest{Value: 2})
	if c := decode[habit.Completion](t, rr); c.Date.String() != "2024-01-04" || *c.Value != 2 {
		t.Fatalf("track in user zone: got %+v", c)
	}

	stats := decode[habit.Stats](t, mockRequest(h, http.MethodGet, "/habits/"+created.ID+"/stats", nil))
	if stats.CurrentStreak != 2 {
		t.Fatalf("got current streak %d want 2", stats.CurrentStreak)
	}
}

func TestUsers_RequireAuth(t *testing.T) {
	h := newTestServerWithAuth(t, newTestStore(t))

	req := httptest.NewRequest(http.MethodGet, "/users/", nil)
	req.Header.Set("Accept", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("got %d want 401", rr.Code)
	}
}

func TestUsers_APIKeyCaller(t *testing.T) {
	store := newTestStore(t)
	h := newTestServerWithAuth(t, store)
	apiKey := "hab_live_profile0000000000000000000000"
	if err := store.PutAPIKey(hashAPIKey(apiKey), "user-alice"); err != nil {
		t.Fatalf("failed to store API key: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/users/", nil)
	req.Header.Set("Authorization", "Bearer "+apiKey)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d want 200, body: %s", rr.Code, rr.Body.String())
	}
	if p := decode[habit.UserProfile](t, rr); p.UserID != "user-alice" {
		t.Fatalf("got profile for %q want user-alice", p.UserID)
	}
}

func TestRecordLogin(t *testing.T) {
	srv, store := newAPIKeyServer(t)

	srv.recordLogin(&User{UserID: "user-ada", Email: "ada@example.com", Name: "Ada", Picture: "https://example.com/a.png"})
	p, found, err := store.GetUser("user-ada")
	if err != nil || !found {
		t.Fatalf("profile not created: found=%v err=%v", found, err)
	}
	if p.FullName != "Ada" || p.Email != "ada@example.com" || p.PictureURL != "https://example.com/a.png" || p.CreatedAt.IsZero() {
		t.Fatalf("got %+v", p)
	}

	p.FullName = "Augusta Ada King"
	p.Timezone = "Europe/London"
	if err := store.PutUser(p); err != nil {
		t.Fatalf("PutUser failed: %v", err)
	}
	srv.recordLogin(&User{UserID: "user-ada", Email: "ada@new.example", Name: "Ada"})
	p, _, _ = store.GetUser("user-ada")
	if p.FullName != "Augusta Ada King" || p.Timezone != "Europe/London" || p.Email != "ada@new.example" {
		t.Fatalf("login overwrote user settings: %+v", p)
	}
}
