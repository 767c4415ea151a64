// Package api is the HTTP client for the portal server's task,
// time-tracking and appointment endpoints.
package api

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

	"github.com/sadopc/preptrack/internal/model"
	"golang.org/x/oauth2"
)

// DefaultTimeout bounds every request so a hung call surfaces as an error.
const DefaultTimeout = 30 * time.Second

// Error is a non-2xx response from the server.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return e.Message
}

func statusIs(err error, code int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// IsConflict reports whether the server rejected a command because of the
// entity's current state.
func IsConflict(err error) bool { return statusIs(err, http.StatusConflict) }

func IsNotFound(err error) bool { return statusIs(err, http.StatusNotFound) }

type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// New returns a client that authenticates every request with a bearer token
// from ts.
func New(baseURL string, ts oauth2.TokenSource, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    oauth2.NewClient(context.Background(), ts),
		timeout: timeout,
	}
}

// NewWithToken is New with a fixed access token.
func NewWithToken(baseURL, token string, timeout time.Duration) *Client {
	return New(baseURL, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}), timeout)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s %s: request timed out after %s: %w", method, path, c.timeout, context.DeadlineExceeded)
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(data, &payload) != nil || payload.Error == "" {
			payload.Error = strings.TrimSpace(string(data))
		}
		return &Error{StatusCode: resp.StatusCode, Message: payload.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func taskPath(id string, parts ...string) string {
	p := "/api/tasks/" + url.PathEscape(id)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

// Tasks

func (c *Client) GetTask(ctx context.Context, id string) (*model.Task, error) {
	var t model.Task
	if err := c.do(ctx, http.MethodGet, taskPath(id), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) ListTasks(ctx context.Context, f model.TaskFilter) ([]model.Task, error) {
	q := url.Values{}
	if f.AssigneeID != "" {
		q.Set("assignee", f.AssigneeID)
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	path := "/api/tasks"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var tasks []model.Task
	if err := c.do(ctx, http.MethodGet, path, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) CreateTask(ctx context.Context, t model.Task) (*model.Task, error) {
	var created model.Task
	if err := c.do(ctx, http.MethodPost, "/api/tasks", t, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateTaskStatus(ctx context.Context, id string, status model.TaskStatus) (*model.Task, error) {
	var t model.Task
	body := map[string]model.TaskStatus{"status": status}
	if err := c.do(ctx, http.MethodPatch, taskPath(id, "status"), body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Time tracking

func (c *Client) TrackingStatus(ctx context.Context, taskID string) (*model.TrackingStatus, error) {
	return c.tracking(ctx, http.MethodGet, taskID, "")
}

func (c *Client) StartTracking(ctx context.Context, taskID string) (*model.TrackingStatus, error) {
	return c.tracking(ctx, http.MethodPost, taskID, "start")
}

func (c *Client) PauseTracking(ctx context.Context, taskID string) (*model.TrackingStatus, error) {
	return c.tracking(ctx, http.MethodPost, taskID, "pause")
}

func (c *Client) ResetTracking(ctx context.Context, taskID string) (*model.TrackingStatus, error) {
	return c.tracking(ctx, http.MethodPost, taskID, "reset")
}

func (c *Client) tracking(ctx context.Context, method, taskID, action string) (*model.TrackingStatus, error) {
	path := taskPath(taskID, "time-tracking")
	if action != "" {
		path += "/" + action
	}
	var st model.TrackingStatus
	if err := c.do(ctx, method, path, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) ListSessions(ctx context.Context, taskID string) ([]model.Session, error) {
	var sessions []model.Session
	if err := c.do(ctx, http.MethodGet, taskPath(taskID, "time-tracking", "sessions"), nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Comments

func (c *Client) AddComment(ctx context.Context, taskID, content string) (*model.Comment, error) {
	var comment model.Comment
	body := map[string]string{"content": content}
	if err := c.do(ctx, http.MethodPost, taskPath(taskID, "comments"), body, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (c *Client) ListComments(ctx context.Context, taskID string) ([]model.Comment, error) {
	var comments []model.Comment
	if err := c.do(ctx, http.MethodGet, taskPath(taskID, "comments"), nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// Appointments

func (c *Client) ListAppointments(ctx context.Context, status model.AppointmentStatus) ([]model.Appointment, error) {
	path := "/api/appointments"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}
	var appts []model.Appointment
	if err := c.do(ctx, http.MethodGet, path, nil, &appts); err != nil {
		return nil, err
	}
	return appts, nil
}

func (c *Client) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	var a model.Appointment
	if err := c.do(ctx, http.MethodGet, "/api/appointments/"+url.PathEscape(id), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) CreateAppointment(ctx context.Context, a model.Appointment) (*model.Appointment, error) {
	var created model.Appointment
	if err := c.do(ctx, http.MethodPost, "/api/appointments", a, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateAppointmentStatus applies action; a nil reason is sent as JSON null.
func (c *Client) UpdateAppointmentStatus(ctx context.Context, id string, action model.AppointmentAction, reason *string) (*model.Appointment, error) {
	body := struct {
		Action model.AppointmentAction `json:"action"`
		Reason *string                 `json:"reason"`
	}{action, reason}
	var a model.Appointment
	if err := c.do(ctx, http.MethodPost, "/api/appointments/"+url.PathEscape(id)+"/status", body, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
