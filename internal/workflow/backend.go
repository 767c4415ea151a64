package workflow

import (
	"context"

	"github.com/sadopc/preptrack/internal/model"
)

type TaskBackend interface {
	GetTask(ctx context.Context, id string) (*model.Task, error)
	UpdateTaskStatus(ctx context.Context, id string, status model.TaskStatus) (*model.Task, error)
}

type TrackingBackend interface {
	TrackingStatus(ctx context.Context, taskID string) (*model.TrackingStatus, error)
	StartTracking(ctx context.Context, taskID string) (*model.TrackingStatus, error)
	PauseTracking(ctx context.Context, taskID string) (*model.TrackingStatus, error)
	ResetTracking(ctx context.Context, taskID string) (*model.TrackingStatus, error)
}

type CommentBackend interface {
	AddComment(ctx context.Context, taskID, content string) (*model.Comment, error)
}

type AppointmentBackend interface {
	GetAppointment(ctx context.Context, id string) (*model.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id string, action model.AppointmentAction, reason *string) (*model.Appointment, error)
}

// Backend is the server collaborator. *api.Client satisfies it.
type Backend interface {
	TaskBackend
	TrackingBackend
	CommentBackend
	AppointmentBackend
}

// ConfirmFunc asks the user to confirm a destructive or final action.
type ConfirmFunc func(prompt string) bool

// Confirmed is a ConfirmFunc for callers that already obtained consent,
// e.g. from a dialog that has been answered.
func Confirmed(string) bool { return true }

func confirmed(confirm ConfirmFunc, prompt string) bool {
	return confirm != nil && confirm(prompt)
}
