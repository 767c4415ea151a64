package workflow

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sadopc/preptrack/internal/model"
	"github.com/sadopc/preptrack/internal/timespan"
)

// ResetPrompt is shown before all tracked time of a task is discarded.
const ResetPrompt = "Reset all tracked time for this task? This cannot be undone."

// Tracker runs start, pause and reset against the server.
type Tracker struct {
	backend  TrackingBackend
	guard    *Inflight
	onChange func(taskID string)
}

func NewTracker(b TrackingBackend, guard *Inflight) *Tracker {
	if guard == nil {
		guard = NewInflight()
	}
	return &Tracker{backend: b, guard: guard}
}

// Status fetches the current tracking status of a task.
func (t *Tracker) Status(ctx context.Context, taskID string) (*model.TrackingStatus, error) {
	return t.backend.TrackingStatus(ctx, taskID)
}

func (t *Tracker) Start(ctx context.Context, taskID string) (*model.TrackingStatus, error) {
	return t.run(ctx, taskID, "start", t.backend.StartTracking)
}

func (t *Tracker) Pause(ctx context.Context, taskID string) (*model.TrackingStatus, error) {
	return t.run(ctx, taskID, "pause", t.backend.PauseTracking)
}

// Reset discards every session of the task. It does nothing unless confirm
// approves ResetPrompt.
func (t *Tracker) Reset(ctx context.Context, taskID string, confirm ConfirmFunc) (*model.TrackingStatus, error) {
	if !confirmed(confirm, ResetPrompt) {
		return nil, ErrNotConfirmed
	}
	return t.run(ctx, taskID, "reset", t.backend.ResetTracking)
}

// Updating reports whether a tracking or status command for the task is
// outstanding.
func (t *Tracker) Updating(taskID string) bool {
	return t.guard.Busy(TaskKey(taskID))
}

func (t *Tracker) run(ctx context.Context, taskID, verb string,
	call func(context.Context, string) (*model.TrackingStatus, error)) (*model.TrackingStatus, error) {
	release, err := t.guard.Acquire(TaskKey(taskID))
	if err != nil {
		return nil, err
	}
	defer release()

	st, err := call(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("%s tracking: %w", verb, err)
	}
	if fresh, err := t.backend.TrackingStatus(ctx, taskID); err != nil {
		log.Printf("workflow: refresh tracking status for %s after %s: %v", taskID, verb, err)
	} else {
		st = fresh
	}
	if t.onChange != nil {
		t.onChange(taskID)
	}
	return st, nil
}

// LiveElapsedSeconds is the elapsed time to display at now: the recorded
// total plus the whole seconds of the active session. A session start in
// the future counts as zero.
func LiveElapsedSeconds(st *model.TrackingStatus, now time.Time) int64 {
	if st == nil {
		return 0
	}
	total := st.TotalTimeSeconds
	if !st.IsTrackingActive || st.ActiveSessionStartedAt == nil {
		return total
	}
	return total + timespan.Seconds(now.Sub(*st.ActiveSessionStartedAt))
}
