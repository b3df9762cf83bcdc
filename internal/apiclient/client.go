package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/brk3/habitboard/internal/config"
	"github.com/brk3/habitboard/internal/server"
	"github.com/brk3/habitboard/pkg/habit"
	"github.com/brk3/habitboard/pkg/versioninfo"
)

type Client struct {
	BaseURL   string
	AuthToken string
	UserID    string
	HTTP      *http.Client
}

// APIError is a non-2xx response. Message carries the server's
// {"message": ...} body when it sent one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func New(base string) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    http.DefaultClient,
	}
}

func NewFromConfig(cfg *config.Config) *Client {
	c := New(cfg.APIBaseURL)
	c.AuthToken = cfg.AuthToken
	c.UserID = cfg.UserID
	return c
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.UserID != "" {
		req.Header.Set("x-user-id", c.UserID)
	}
	if c.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		apiErr := &APIError{StatusCode: res.StatusCode}
		var msg server.ErrorResponse
		if json.NewDecoder(res.Body).Decode(&msg) == nil {
			apiErr.Message = msg.Message
		}
		return apiErr
	}
	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) ListHabits(ctx context.Context) ([]habit.HabitView, error) {
	var response server.HabitListResponse
	if err := c.do(ctx, http.MethodGet, "/api/habits", nil, &response); err != nil {
		return nil, err
	}
	return response.Habits, nil
}

func (c *Client) GetHabit(ctx context.Context, habitID string) (habit.HabitView, error) {
	var response server.HabitResponse
	err := c.do(ctx, http.MethodGet, "/api/habits/"+url.PathEscape(habitID), nil, &response)
	return response.Habit, err
}

func (c *Client) CreateHabit(ctx context.Context, in habit.HabitInput) (habit.HabitView, error) {
	var response server.HabitResponse
	err := c.do(ctx, http.MethodPost, "/api/habits", in, &response)
	return response.Habit, err
}

func (c *Client) DeleteHabit(ctx context.Context, habitID string) error {
	return c.do(ctx, http.MethodDelete, "/api/habits/"+url.PathEscape(habitID), nil, nil)
}

// LogCompletion marks habitID done on date, or today when date is empty.
func (c *Client) LogCompletion(ctx context.Context, habitID, date string) (server.CompletionResponse, error) {
	req := server.CompletionRequest{}
	if date != "" {
		req.Date = &date
	}
	var response server.CompletionResponse
	err := c.do(ctx, http.MethodPost, "/api/habits/"+url.PathEscape(habitID)+"/completions", req, &response)
	return response, err
}

func (c *Client) RemoveCompletion(ctx context.Context, habitID, completionID string) (habit.HabitView, error) {
	var response server.HabitResponse
	path := "/api/habits/" + url.PathEscape(habitID) + "/completions/" + url.PathEscape(completionID)
	err := c.do(ctx, http.MethodDelete, path, nil, &response)
	return response.Habit, err
}

func (c *Client) RemoveCompletionByDate(ctx context.Context, habitID, date string) (habit.HabitView, error) {
	var response server.CompletionResponse
	path := "/api/habits/" + url.PathEscape(habitID) + "/completions?date=" + url.QueryEscape(date)
	err := c.do(ctx, http.MethodDelete, path, nil, &response)
	return response.Habit, err
}

func (c *Client) Overview(ctx context.Context) (habit.ProgressSummary, error) {
	var response server.OverviewResponse
	err := c.do(ctx, http.MethodGet, "/api/progress/overview", nil, &response)
	return response.Summary, err
}

func (c *Client) Calendar(ctx context.Context, start, end string) (habit.CalendarRange, error) {
	q := url.Values{}
	if start != "" {
		q.Set("start", start)
	}
	if end != "" {
		q.Set("end", end)
	}
	path := "/api/progress/calendar"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var response server.CalendarResponse
	err := c.do(ctx, http.MethodGet, path, nil, &response)
	return response, err
}

func (c *Client) Version(ctx context.Context) (versioninfo.VersionInfo, error) {
	var out versioninfo.VersionInfo
	err := c.do(ctx, http.MethodGet, "/version", nil, &out)
	return out, err
}
