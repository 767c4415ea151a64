package workflow

import (
	"errors"
	"fmt"
)

var (
	ErrBusy           = errors.New("another update for this item is still in progress")
	ErrNotConfirmed   = errors.New("action was not confirmed")
	ErrReasonRequired = errors.New("a reason is required to re-request documents")
	ErrNotApplicable  = errors.New("action does not apply in the current state")
	ErrInvalidStatus  = errors.New("unknown task status")
)

// PartialError reports a multi-step command whose primary step succeeded
// and whose follow-up step failed. The primary change is kept.
type PartialError struct {
	Done string
	Err  error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("%s, but the follow-up step failed: %v", e.Done, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// IsPartial reports whether err is a degraded success.
func IsPartial(err error) bool {
	var p *PartialError
	return errors.As(err, &p)
}
