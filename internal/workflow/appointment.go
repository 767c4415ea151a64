package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/sadopc/preptrack/internal/model"
)

// Appointments approves or cancels pending appointments.
type Appointments struct {
	backend  AppointmentBackend
	guard    *Inflight
	onChange func(appointmentID string)
}

func NewAppointments(b AppointmentBackend, guard *Inflight) *Appointments {
	if guard == nil {
		guard = NewInflight()
	}
	return &Appointments{backend: b, guard: guard}
}

func (w *Appointments) Approve(ctx context.Context, appt *model.Appointment) (*model.Appointment, error) {
	return w.apply(ctx, appt, model.ActionApprove, nil)
}

// Cancel cancels a pending appointment. A blank reason is sent as null.
func (w *Appointments) Cancel(ctx context.Context, appt *model.Appointment, reason string) (*model.Appointment, error) {
	var r *string
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		r = &trimmed
	}
	return w.apply(ctx, appt, model.ActionCancel, r)
}

func (w *Appointments) Updating(appointmentID string) bool {
	return w.guard.Busy(AppointmentKey(appointmentID))
}

func (w *Appointments) apply(ctx context.Context, appt *model.Appointment, action model.AppointmentAction, reason *string) (*model.Appointment, error) {
	if appt == nil || !appt.Actionable() {
		return nil, fmt.Errorf("%s appointment: %w", action, ErrNotApplicable)
	}
	release, err := w.guard.Acquire(AppointmentKey(appt.ID))
	if err != nil {
		return nil, err
	}
	defer release()

	updated, err := w.backend.UpdateAppointmentStatus(ctx, appt.ID, action, reason)
	if err != nil {
		return nil, fmt.Errorf("%s appointment: %w", action, err)
	}
	if w.onChange != nil {
		w.onChange(appt.ID)
	}
	return updated, nil
}
