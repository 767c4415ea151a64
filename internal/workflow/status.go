package workflow

import (
	"context"
	"fmt"
	"log"

	"github.com/sadopc/preptrack/internal/model"
)

// StatusMachine proposes task status changes. The server decides which
// transitions are legal.
type StatusMachine struct {
	backend  TaskBackend
	guard    *Inflight
	onChange func(taskID string)
}

func NewStatusMachine(b TaskBackend, guard *Inflight) *StatusMachine {
	if guard == nil {
		guard = NewInflight()
	}
	return &StatusMachine{backend: b, guard: guard}
}

// SetStatus asks the server to move the task to status and returns the
// refetched task.
func (m *StatusMachine) SetStatus(ctx context.Context, taskID string, status model.TaskStatus) (*model.Task, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	release, err := m.guard.Acquire(TaskKey(taskID))
	if err != nil {
		return nil, err
	}
	defer release()
	return m.setStatus(ctx, taskID, status)
}

// setStatus expects the caller to hold the task's guard.
func (m *StatusMachine) setStatus(ctx context.Context, taskID string, status model.TaskStatus) (*model.Task, error) {
	task, err := m.backend.UpdateTaskStatus(ctx, taskID, status)
	if err != nil {
		return nil, fmt.Errorf("set status %s: %w", status, err)
	}
	if fresh, err := m.backend.GetTask(ctx, taskID); err != nil {
		log.Printf("workflow: refresh task %s after status change: %v", taskID, err)
	} else {
		task = fresh
	}
	if m.onChange != nil {
		m.onChange(taskID)
	}
	return task, nil
}
