// Package calendar pushes habits to an external calendar as events. Calls
// are one-way: the only thing read back is the created event's identifier.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/brk3/habitstreak/pkg/habit"
)

const DefaultBaseURL = "https://www.googleapis.com/calendar/v3"

// Event is either all-day (Start is zero, Day is set) or timed.
type Event struct {
	Summary     string
	Description string
	Day         habit.Date
	Start       time.Time
	End         time.Time
	TimeZone    string
}

func (e Event) AllDay() bool {
	return e.Start.IsZero()
}

type Client interface {
	CreateEvent(ctx context.Context, accessToken string, ev Event) (string, error)
	DeleteEvent(ctx context.Context, accessToken, eventID string) error
}

// EventForHabit builds the event for day. Habits with a scheduled time get a
// timed event of DurationMinutes; the rest get an all-day event.
func EventForHabit(h habit.Habit, day habit.Date, loc *time.Location) Event {
	ev := Event{
		Summary:     "Habit: " + h.Name,
		Description: h.Description,
		Day:         day,
	}
	if ev.Description == "" {
		ev.Description = "Complete this habit."
	}
	if start, ok := h.ScheduledAt(day, loc); ok {
		minutes := habit.DefaultDurationMinutes
		if h.DurationMinutes != nil {
			minutes = *h.DurationMinutes
		}
		ev.Start = start
		ev.End = start.Add(time.Duration(minutes) * time.Minute)
		ev.TimeZone = loc.String()
	}
	return ev
}

// Google talks to the Calendar v3 REST API.
type Google struct {
	baseURL    string
	calendarID string
	httpClient *http.Client
}

func NewGoogle(baseURL, calendarID string, httpClient *http.Client) *Google {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Google{
		baseURL:    strings.TrimRight(baseURL, "/"),
		calendarID: calendarID,
		httpClient: httpClient,
	}
}

type eventTime struct {
	Date     string `json:"date,omitempty"`
	DateTime string `json:"dateTime,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

type eventBody struct {
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Start       eventTime `json:"start"`
	End         eventTime `json:"end"`
}

func toBody(ev Event) eventBody {
	b := eventBody{Summary: ev.Summary, Description: ev.Description}
	if ev.AllDay() {
		// the end date of an all-day event is exclusive
		b.Start = eventTime{Date: ev.Day.String()}
		b.End = eventTime{Date: ev.Day.AddDays(1).String()}
		return b
	}
	b.Start = eventTime{DateTime: ev.Start.Format(time.RFC3339), TimeZone: ev.TimeZone}
	b.End = eventTime{DateTime: ev.End.Format(time.RFC3339), TimeZone: ev.TimeZone}
	return b
}

// client returns an http.Client that adds accessToken as a bearer token.
func (g *Google) client(ctx context.Context, accessToken string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}))
}

func (g *Google) eventsURL() string {
	return g.baseURL + "/calendars/" + url.PathEscape(g.calendarID) + "/events"
}

func (g *Google) CreateEvent(ctx context.Context, accessToken string, ev Event) (string, error) {
	payload, err := json.Marshal(toBody(ev))
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.eventsURL(), bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client(ctx, accessToken).Do(req)
	if err != nil {
		return "", fmt.Errorf("create event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return "", statusError("create event", resp)
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("create event: decode response: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("create event: response has no event id")
	}
	return created.ID, nil
}

func (g *Google) DeleteEvent(ctx context.Context, accessToken, eventID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, g.eventsURL()+"/"+url.PathEscape(eventID), nil)
	if err != nil {
		return err
	}
	resp, err := g.client(ctx, accessToken).Do(req)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	defer resp.Body.Close()

	// 410 Gone: already deleted on the calendar side
	if resp.StatusCode/100 != 2 && resp.StatusCode != http.StatusGone {
		return statusError("delete event", resp)
	}
	return nil
}

func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s: status %d: %s", op, resp.StatusCode, strings.TrimSpace(string(body)))
}
