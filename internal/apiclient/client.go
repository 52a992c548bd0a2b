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
	"strings"
	"time"

	"github.com/brk3/habitflow/internal/server"
	"github.com/brk3/habitflow/internal/session"
	"github.com/brk3/habitflow/pkg/habit"
	"github.com/brk3/habitflow/pkg/versioninfo"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
	// Session supplies the bearer token. It may be nil against a server
	// running without auth.
	Session *session.Session
}

func New(base string, sess *session.Session) *Client {
	return &Client{
		BaseURL: strings.TrimRight(base, "/"),
		HTTP:    &http.Client{Timeout: 15 * time.Second},
		Session: sess,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Session != nil {
		if tok := c.Session.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return &Error{Kind: KindTransient, Message: err.Error(), Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		apiErr := errorFromResponse(res)
		if apiErr.Kind == KindUnauthorized && c.Session != nil {
			_ = c.Session.Clear()
		}
		return apiErr
	}
	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func errorFromResponse(res *http.Response) *Error {
	var body server.ErrorResponse
	data, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(data))
		if body.Error == "" {
			body.Error = res.Status
		}
	}
	return &Error{Kind: kindForStatus(res.StatusCode), Status: res.StatusCode, Message: body.Error}
}

func habitPath(id string, rest ...string) string {
	p := "/habits/" + url.PathEscape(id)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

func withDate(path, date string) string {
	if date == "" {
		return path
	}
	return path + "?" + url.Values{"date": {date}}.Encode()
}

// Register creates an account and signs in as it.
func (c *Client) Register(ctx context.Context, email, password string) (server.AuthResponse, error) {
	return c.authenticate(ctx, "/auth/register", email, password)
}

// Login signs in and saves the issued token in the session.
func (c *Client) Login(ctx context.Context, email, password string) (server.AuthResponse, error) {
	return c.authenticate(ctx, "/auth/login", email, password)
}

func (c *Client) authenticate(ctx context.Context, path, email, password string) (server.AuthResponse, error) {
	var out server.AuthResponse
	req := server.CredentialsRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return server.AuthResponse{}, err
	}
	if c.Session != nil {
		if err := c.Session.Set(out.Token); err != nil {
			return out, fmt.Errorf("save session: %w", err)
		}
	}
	return out, nil
}

// Logout discards the local session even when the server cannot be reached.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
	if c.Session != nil {
		if cerr := c.Session.Clear(); cerr != nil {
			return cerr
		}
	}
	if errors.Is(err, ErrUnauthorized) {
		return nil
	}
	return err
}

func (c *Client) Me(ctx context.Context) (habit.PublicUser, error) {
	var out server.MeResponse
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return habit.PublicUser{}, err
	}
	return out.User, nil
}

func (c *Client) CreateAPIKey(ctx context.Context) (string, error) {
	var out server.APIKeyResponse
	if err := c.do(ctx, http.MethodPost, "/auth/api_keys", nil, &out); err != nil {
		return "", err
	}
	return out.APIKey, nil
}

// ListHabits returns the caller's habits, only those of frequency f unless
// f is empty.
func (c *Client) ListHabits(ctx context.Context, f habit.Frequency) ([]habit.Habit, error) {
	path := "/habits/"
	if f != "" {
		path += "?" + url.Values{"frequency": {string(f)}}.Encode()
	}
	var out []habit.Habit
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateHabit(ctx context.Context, req server.CreateHabitRequest) (habit.Habit, error) {
	var out habit.Habit
	if err := c.do(ctx, http.MethodPost, "/habits/", req, &out); err != nil {
		return habit.Habit{}, err
	}
	return out, nil
}

func (c *Client) GetHabit(ctx context.Context, id string) (habit.Habit, error) {
	var out habit.Habit
	if err := c.do(ctx, http.MethodGet, habitPath(id), nil, &out); err != nil {
		return habit.Habit{}, err
	}
	return out, nil
}

func (c *Client) UpdateHabit(ctx context.Context, id string, req server.UpdateHabitRequest) (habit.Habit, error) {
	var out habit.Habit
	if err := c.do(ctx, http.MethodPut, habitPath(id), req, &out); err != nil {
		return habit.Habit{}, err
	}
	return out, nil
}

func (c *Client) DeleteHabit(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, habitPath(id), nil, &server.MessageResponse{})
}

// CompleteHabit marks date (YYYY-MM-DD) done, or today on the server when
// date is empty.
func (c *Client) CompleteHabit(ctx context.Context, id, date string) (habit.Habit, error) {
	var out habit.Habit
	req := server.CompleteHabitRequest{Date: date}
	if err := c.do(ctx, http.MethodPost, habitPath(id, "complete"), req, &out); err != nil {
		return habit.Habit{}, err
	}
	return out, nil
}

func (c *Client) Progress(ctx context.Context, id, date string) (server.HabitProgressResponse, error) {
	var out server.HabitProgressResponse
	if err := c.do(ctx, http.MethodGet, withDate(habitPath(id, "progress"), date), nil, &out); err != nil {
		return server.HabitProgressResponse{}, err
	}
	return out, nil
}

func (c *Client) Summary(ctx context.Context, id, date string) (habit.HabitSummary, error) {
	var out server.HabitSummaryResponse
	if err := c.do(ctx, http.MethodGet, withDate(habitPath(id, "summary"), date), nil, &out); err != nil {
		return habit.HabitSummary{}, err
	}
	return out.HabitSummary, nil
}

func (c *Client) Version(ctx context.Context) (versioninfo.VersionInfo, error) {
	var out versioninfo.VersionInfo
	if err := c.do(ctx, http.MethodGet, "/version", nil, &out); err != nil {
		return versioninfo.VersionInfo{}, err
	}
	return out, nil
}
