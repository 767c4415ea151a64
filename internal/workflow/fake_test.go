package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sadopc/preptrack/internal/model"
)

var errBackend = errors.New("backend unavailable")

// fakeBackend records every call and answers from in-memory state.
type fakeBackend struct {
	mu    sync.Mutex
	calls []string

	task     model.Task
	tracking model.TrackingStatus
	appt     model.Appointment
	comments []string
	reason   *string

	updateErr   error
	commentErr  error
	refreshErr  error
	mutationErr error

	// gate, when set, holds mutations until it is closed.
	gate    chan struct{}
	entered chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		task: model.Task{ID: "t1", Status: model.StatusSubmitted, TaskType: model.TypeDocumentRequest},
		appt: model.Appointment{ID: "a1", Status: model.AppointmentPending},
	}
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) wait() {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
}

func (f *fakeBackend) GetTask(ctx context.Context, id string) (*model.Task, error) {
	f.record("get-task")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	t := f.task
	return &t, nil
}

func (f *fakeBackend) UpdateTaskStatus(ctx context.Context, id string, status model.TaskStatus) (*model.Task, error) {
	f.record("update-status:" + string(status))
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.task.Status = status
	t := f.task
	return &t, nil
}

func (f *fakeBackend) TrackingStatus(ctx context.Context, taskID string) (*model.TrackingStatus, error) {
	f.record("tracking-status")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	st := f.tracking
	return &st, nil
}

func (f *fakeBackend) mutateTracking(call string, apply func(*model.TrackingStatus)) (*model.TrackingStatus, error) {
	f.record(call)
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mutationErr != nil {
		return nil, f.mutationErr
	}
	apply(&f.tracking)
	st := f.tracking
	return &st, nil
}

func (f *fakeBackend) StartTracking(ctx context.Context, taskID string) (*model.TrackingStatus, error) {
	return f.mutateTracking("start", func(st *model.TrackingStatus) {
		now := time.Now()
		st.IsTrackingActive = true
		st.ActiveSessionStartedAt = &now
	})
}

func (f *fakeBackend) PauseTracking(ctx context.Context, taskID string) (*model.TrackingStatus, error) {
	return f.mutateTracking("pause", func(st *model.TrackingStatus) {
		st.IsTrackingActive = false
		st.ActiveSessionStartedAt = nil
		st.TotalSessions++
	})
}

func (f *fakeBackend) ResetTracking(ctx context.Context, taskID string) (*model.TrackingStatus, error) {
	return f.mutateTracking("reset", func(st *model.TrackingStatus) {
		*st = model.TrackingStatus{TaskID: taskID}
	})
}

func (f *fakeBackend) AddComment(ctx context.Context, taskID, content string) (*model.Comment, error) {
	f.record("add-comment")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commentErr != nil {
		return nil, f.commentErr
	}
	f.comments = append(f.comments, content)
	return &model.Comment{TaskID: taskID, Content: content}, nil
}

func (f *fakeBackend) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	f.record("get-appointment")
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.appt
	return &a, nil
}

func (f *fakeBackend) UpdateAppointmentStatus(ctx context.Context, id string, action model.AppointmentAction, reason *string) (*model.Appointment, error) {
	f.record("update-appointment:" + string(action))
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mutationErr != nil {
		return nil, f.mutationErr
	}
	f.reason = reason
	f.appt.Status = action.Target()
	f.appt.CancelReason = reason
	a := f.appt
	return &a, nil
}

func never(string) bool { return false }
