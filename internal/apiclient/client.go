package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/brk3/habitstreak/internal/server"
	"github.com/brk3/habitstreak/pkg/habit"
	"github.com/brk3/habitstreak/pkg/versioninfo"
)

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// APIError is a non-2xx response. Message is the server's "error" field
// when the body carried one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

func New(base, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(base, "/"),
		Token:   token,
		HTTP:    http.DefaultClient,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		apiErr := &APIError{StatusCode: res.StatusCode}
		var e struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		if json.Unmarshal(data, &e) == nil {
			apiErr.Message = e.Error
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}
	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func habitPath(habitID string, parts ...string) string {
	p := "/habits/" + url.PathEscape(habitID)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

func (c *Client) Version(ctx context.Context) (versioninfo.VersionInfo, error) {
	var out versioninfo.VersionInfo
	err := c.do(ctx, http.MethodGet, "/version", nil, &out)
	return out, err
}

func (c *Client) ListHabits(ctx context.Context) ([]habit.Habit, error) {
	var response server.HabitListResponse
	if err := c.do(ctx, http.MethodGet, "/habits/", nil, &response); err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	return response.Habits, nil
}

// FindHabit resolves a habit by id or, failing that, by exact name.
func (c *Client) FindHabit(ctx context.Context, ref string) (habit.Habit, error) {
	habits, err := c.ListHabits(ctx)
	if err != nil {
		return habit.Habit{}, err
	}
	for _, h := range habits {
		if h.ID == ref {
			return h, nil
		}
	}
	for _, h := range habits {
		if h.Name == ref {
			return h, nil
		}
	}
	return habit.Habit{}, fmt.Errorf("no habit named %q", ref)
}

func (c *Client) CreateHabit(ctx context.Context, in habit.HabitCreate) (habit.Habit, error) {
	var out habit.Habit
	if err := c.do(ctx, http.MethodPost, "/habits/", in, &out); err != nil {
		return habit.Habit{}, fmt.Errorf("create habit: %w", err)
	}
	return out, nil
}

func (c *Client) DeleteHabit(ctx context.Context, habitID string) error {
	if err := c.do(ctx, http.MethodDelete, habitPath(habitID), nil, nil); err != nil {
		return fmt.Errorf("delete habit: %w", err)
	}
	return nil
}

// MarkComplete records day, or today on the server when day is zero.
func (c *Client) MarkComplete(ctx context.Context, habitID string, day habit.Date) (habit.Completion, error) {
	var out habit.Completion
	body := server.CompletionRequest{Date: day}
	if err := c.do(ctx, http.MethodPost, habitPath(habitID, "complete"), body, &out); err != nil {
		return habit.Completion{}, fmt.Errorf("mark complete: %w", err)
	}
	return out, nil
}

func (c *Client) UnmarkComplete(ctx context.Context, habitID string, day habit.Date) error {
	path := habitPath(habitID, "complete")
	if !day.IsZero() {
		path += "?completion_date=" + day.String()
	}
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("unmark complete: %w", err)
	}
	return nil
}

func (c *Client) TrackProgress(ctx context.Context, habitID string, value int) (habit.Completion, error) {
	var out habit.Completion
	if err := c.do(ctx, http.MethodPost, habitPath(habitID, "track"), server.TrackRequest{Value: value}, &out); err != nil {
		return habit.Completion{}, fmt.Errorf("track progress: %w", err)
	}
	return out, nil
}

func (c *Client) BulkImport(ctx context.Context, habitID string, days []habit.Date) (int, error) {
	var out server.BulkImportResponse
	if err := c.do(ctx, http.MethodPost, habitPath(habitID, "completions", "bulk"), server.BulkImportRequest{Dates: days}, &out); err != nil {
		return 0, fmt.Errorf("bulk import: %w", err)
	}
	return out.EntriesCreated, nil
}

func (c *Client) Completions(ctx context.Context, habitID string) ([]habit.Completion, error) {
	var out server.HabitCompletionsResponse
	if err := c.do(ctx, http.MethodGet, habitPath(habitID, "completions"), nil, &out); err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	return out.Completions, nil
}

func (c *Client) Stats(ctx context.Context, habitID string) (habit.Stats, error) {
	var out habit.Stats
	if err := c.do(ctx, http.MethodGet, habitPath(habitID, "stats"), nil, &out); err != nil {
		return habit.Stats{}, fmt.Errorf("stats: %w", err)
	}
	return out, nil
}

func (c *Client) GetHabitSummary(ctx context.Context, habitID string) (*habit.Summary, error) {
	var out server.HabitSummaryResponse
	if err := c.do(ctx, http.MethodGet, habitPath(habitID, "summary"), nil, &out); err != nil {
		return nil, fmt.Errorf("summary %s: %w", habitID, err)
	}
	return &out.HabitSummary, nil
}

func (c *Client) GetProfile(ctx context.Context) (habit.UserProfile, error) {
	var out habit.UserProfile
	if err := c.do(ctx, http.MethodGet, "/users/", nil, &out); err != nil {
		return habit.UserProfile{}, fmt.Errorf("get profile: %w", err)
	}
	return out, nil
}

func (c *Client) UpdateProfile(ctx context.Context, u habit.UserUpdate) (habit.UserProfile, error) {
	var out habit.UserProfile
	if err := c.do(ctx, http.MethodPatch, "/users/", u, &out); err != nil {
		return habit.UserProfile{}, fmt.Errorf("update profile: %w", err)
	}
	return out, nil
}
