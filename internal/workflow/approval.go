package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/sadopc/preptrack/internal/model"
)

const (
	ApprovePrompt = "Approve & complete this request?"

	// ReRequestPrefix starts the comment recorded when documents are
	// re-requested.
	ReRequestPrefix = "Document Re-request: "
)

// Approval approves or re-requests submitted document and signature
// requests.
type Approval struct {
	status   *StatusMachine
	comments CommentBackend
}

func NewApproval(status *StatusMachine, comments CommentBackend) *Approval {
	return &Approval{status: status, comments: comments}
}

// Approve completes a task awaiting approval once confirm approves
// ApprovePrompt.
func (a *Approval) Approve(ctx context.Context, task *model.Task, confirm ConfirmFunc) (*model.Task, error) {
	if task == nil || !task.AwaitingApproval() {
		return nil, fmt.Errorf("approve: %w", ErrNotApplicable)
	}
	if !confirmed(confirm, ApprovePrompt) {
		return nil, ErrNotConfirmed
	}
	return a.status.SetStatus(ctx, task.ID, model.StatusCompleted)
}

// ReRequest sends a task awaiting approval back to pending and records the
// reason as a comment. If the comment cannot be added the status change
// stands: the refreshed task is returned along with a *PartialError.
func (a *Approval) ReRequest(ctx context.Context, task *model.Task, reason string) (*model.Task, error) {
	if task == nil || !task.AwaitingApproval() {
		return nil, fmt.Errorf("re-request: %w", ErrNotApplicable)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}

	release, err := a.status.guard.Acquire(TaskKey(task.ID))
	if err != nil {
		return nil, err
	}
	defer release()

	updated, err := a.status.setStatus(ctx, task.ID, model.StatusPending)
	if err != nil {
		return nil, err
	}
	if _, err := a.comments.AddComment(ctx, task.ID, ReRequestPrefix+reason); err != nil {
		return updated, &PartialError{Done: "status set to pending", Err: fmt.Errorf("add re-request comment: %w", err)}
	}
	return updated, nil
}
