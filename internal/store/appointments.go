package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sadopc/preptrack/internal/model"
)

const appointmentColumns = `id, status, appointment_date, appointment_time, client_id, meeting_type,
	cancel_reason, created_at, updated_at`

func (s *Store) CreateAppointment(a model.Appointment) (*model.Appointment, error) {
	if a.Status == "" {
		a.Status = model.AppointmentPending
	}
	if !a.Status.Valid() {
		return nil, fmt.Errorf("invalid appointment status %q", a.Status)
	}
	if !a.MeetingType.Valid() {
		return nil, fmt.Errorf("invalid meeting type %q", a.MeetingType)
	}
	id := uuid.NewString()
	now := formatTime(s.timestamp())
	_, err := s.db.Exec(
		`INSERT INTO appointments (id, status, appointment_date, appointment_time, client_id, meeting_type,
			created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, a.Status, a.Date, a.Time, a.ClientID, a.MeetingType, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}
	return s.GetAppointment(id)
}

func (s *Store) GetAppointment(id string) (*model.Appointment, error) {
	row := s.db.QueryRow(`SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`, id)
	a, err := scanAppointment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get appointment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment %s: %w", id, err)
	}
	return a, nil
}

// ListAppointments returns appointments ordered by date and time. An empty
// status lists all of them.
func (s *Store) ListAppointments(status model.AppointmentStatus) ([]model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY appointment_date, appointment_time, id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, *a)
	}
	return appts, rows.Err()
}

// UpdateAppointmentStatus applies approve or cancel to a pending
// appointment. A blank reason is stored as NULL.
func (s *Store) UpdateAppointmentStatus(id string, action model.AppointmentAction, reason *string) (*model.Appointment, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("invalid appointment action %q", action)
	}
	if reason != nil && strings.TrimSpace(*reason) == "" {
		reason = nil
	}
	if action == model.ActionApprove {
		reason = nil
	}

	res, err := s.db.Exec(
		`UPDATE appointments SET status = ?, cancel_reason = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		action.Target(), reason, formatTime(s.timestamp()), id, model.AppointmentPending,
	)
	if err != nil {
		return nil, fmt.Errorf("update appointment status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		a, err := s.GetAppointment(id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: cannot %s a %s appointment", ErrInvalidTransition, action, a.Status)
	}
	return s.GetAppointment(id)
}

func scanAppointment(row scanner) (*model.Appointment, error) {
	a := &model.Appointment{}
	var reason sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(&a.ID, &a.Status, &a.Date, &a.Time, &a.ClientID, &a.MeetingType,
		&reason, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if reason.Valid {
		a.CancelReason = &reason.String
	}
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return a, nil
}
