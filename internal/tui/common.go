package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sadopc/preptrack/internal/api"
	"github.com/sadopc/preptrack/internal/model"
	"github.com/sadopc/preptrack/internal/workflow"
)

// Backend is everything the TUI reads from or sends to the portal server.
// *api.Client satisfies it.
type Backend interface {
	workflow.Backend
	ListTasks(ctx context.Context, f model.TaskFilter) ([]model.Task, error)
	ListComments(ctx context.Context, taskID string) ([]model.Comment, error)
	ListAppointments(ctx context.Context, status model.AppointmentStatus) ([]model.Appointment, error)
}

// viewState represents the currently active view.
type viewState int

const (
	viewTasks viewState = iota
	viewDetail
	viewAppointments
)

var viewNames = []string{"Tasks", "Task", "Appointments"}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

type exportDoneMsg struct {
	path string
}

// openTaskMsg asks the app to show a task in the detail view.
type openTaskMsg struct {
	id string
}

func errorStatus(prefix string, err error) statusMsg {
	return statusMsg{text: prefix + ": " + describe(err), isError: true}
}

// describe turns workflow and server errors into status bar text.
func describe(err error) string {
	var apiErr *api.Error
	switch {
	case errors.Is(err, workflow.ErrBusy):
		return "an update is already in progress"
	case errors.Is(err, workflow.ErrReasonRequired):
		return "please enter a reason"
	case errors.Is(err, context.DeadlineExceeded):
		return "the server did not respond in time"
	case errors.As(err, &apiErr):
		return apiErr.Error()
	}
	return err.Error()
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Minute)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

func statusBadge(s model.TaskStatus) string {
	style, ok := statusStyles[s]
	if !ok {
		style = mutedStyle
	}
	return style.Render(fmt.Sprintf("%-11s", s.Label()))
}
