// Package model holds the task, time-tracking and appointment types shared
// by the server, the API client and the workflow engine.
package model

import (
	"errors"
	"time"
)

type TaskStatus string

const (
	StatusToDo       TaskStatus = "to_do"
	StatusInProgress TaskStatus = "in_progress"
	StatusSubmitted  TaskStatus = "submitted"
	StatusCompleted  TaskStatus = "completed"
	StatusPending    TaskStatus = "pending"
	StatusCancelled  TaskStatus = "cancelled"
)

// TaskStatuses returns every status in lifecycle order.
func TaskStatuses() []TaskStatus {
	return []TaskStatus{
		StatusToDo, StatusInProgress, StatusSubmitted,
		StatusCompleted, StatusPending, StatusCancelled,
	}
}

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusToDo, StatusInProgress, StatusSubmitted,
		StatusCompleted, StatusPending, StatusCancelled:
		return true
	}
	return false
}

// Label is the human form of the status ("In Progress").
func (s TaskStatus) Label() string {
	switch s {
	case StatusToDo:
		return "To Do"
	case StatusInProgress:
		return "In Progress"
	case StatusSubmitted:
		return "Submitted"
	case StatusCompleted:
		return "Completed"
	case StatusPending:
		return "Pending"
	case StatusCancelled:
		return "Cancelled"
	}
	return string(s)
}

type TaskType string

const (
	TypeClientOnboarding   TaskType = "client_onboarding"
	TypeAmendmentFiling    TaskType = "amendment_filing"
	TypeDocumentCollection TaskType = "document_collection"
	TypeDocumentReview     TaskType = "document_review"
	TypeDocumentRequest    TaskType = "document_request"
	TypeSignatureRequest   TaskType = "signature_request"
	TypeInternalReview     TaskType = "internal_review"
	TypeOther              TaskType = "other"
)

func TaskTypes() []TaskType {
	return []TaskType{
		TypeClientOnboarding, TypeAmendmentFiling, TypeDocumentCollection,
		TypeDocumentReview, TypeDocumentRequest, TypeSignatureRequest,
		TypeInternalReview, TypeOther,
	}
}

func (t TaskType) Valid() bool {
	for _, v := range TaskTypes() {
		if v == t {
			return true
		}
	}
	return false
}

// RequiresFolder reports whether tasks of this type must carry a folder.
func (t TaskType) RequiresFolder() bool {
	switch t {
	case TypeDocumentCollection, TypeDocumentReview, TypeDocumentRequest, TypeSignatureRequest:
		return true
	}
	return false
}

// Approvable reports whether submissions of this type go through
// approve / re-request.
func (t TaskType) Approvable() bool {
	return t == TypeDocumentRequest || t == TypeSignatureRequest
}

type Task struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Status           TaskStatus `json:"status"`
	TaskType         TaskType   `json:"task_type"`
	FolderID         *string    `json:"folder_id,omitempty"`
	TotalTimeSeconds int64      `json:"total_time_seconds"`
	SpouseSign       bool       `json:"spouse_sign"`
	ClientIDs        []string   `json:"client_ids"`
	AssigneeID       *string    `json:"assignee_id,omitempty"`
	FileIDs          []string   `json:"file_ids"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

var (
	ErrInvalidTaskType   = errors.New("invalid task type")
	ErrInvalidTaskStatus = errors.New("invalid task status")
	ErrFolderRequired    = errors.New("folder is required for this task type")
	ErrSpouseSign        = errors.New("spouse_sign only applies to signature requests")
)

// Validate checks the invariants a task must satisfy on creation.
func (t *Task) Validate() error {
	if !t.TaskType.Valid() {
		return ErrInvalidTaskType
	}
	if !t.Status.Valid() {
		return ErrInvalidTaskStatus
	}
	if t.TaskType.RequiresFolder() && (t.FolderID == nil || *t.FolderID == "") {
		return ErrFolderRequired
	}
	if t.SpouseSign && t.TaskType != TypeSignatureRequest {
		return ErrSpouseSign
	}
	return nil
}

// AwaitingApproval reports whether the task is a submitted document or
// signature request.
func (t *Task) AwaitingApproval() bool {
	return t.TaskType.Approvable() && t.Status == StatusSubmitted
}

// TrackingStatus is the server's view of time tracking for one task.
type TrackingStatus struct {
	TaskID                 string     `json:"task_id"`
	IsTrackingActive       bool       `json:"is_tracking_active"`
	ActiveSessionStartedAt *time.Time `json:"active_session_started_at,omitempty"`
	TotalTimeSeconds       int64      `json:"total_time_seconds"`
	TotalSessions          int64      `json:"total_sessions"`
}

func (s *TrackingStatus) CanStart() bool { return !s.IsTrackingActive }
func (s *TrackingStatus) CanPause() bool { return s.IsTrackingActive }

// CanReset is false until at least one session has been recorded.
func (s *TrackingStatus) CanReset() bool { return s.TotalSessions > 0 }

// Session is one start..pause interval of work on a task.
type Session struct {
	ID              int64      `json:"id"`
	TaskID          string     `json:"task_id"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at"`
	DurationSeconds int64      `json:"duration_seconds"`
}

type Comment struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentCompleted AppointmentStatus = "completed"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentPending, AppointmentConfirmed, AppointmentCancelled, AppointmentCompleted:
		return true
	}
	return false
}

type MeetingType string

const (
	MeetingZoom       MeetingType = "zoom"
	MeetingGoogleMeet MeetingType = "google_meet"
	MeetingInPerson   MeetingType = "in_person"
	MeetingOnCall     MeetingType = "on_call"
)

func (m MeetingType) Valid() bool {
	switch m {
	case MeetingZoom, MeetingGoogleMeet, MeetingInPerson, MeetingOnCall:
		return true
	}
	return false
}

type AppointmentAction string

const (
	ActionApprove AppointmentAction = "approve"
	ActionCancel  AppointmentAction = "cancel"
)

func (a AppointmentAction) Valid() bool {
	return a == ActionApprove || a == ActionCancel
}

// Target is the status the action moves a pending appointment to.
func (a AppointmentAction) Target() AppointmentStatus {
	if a == ActionApprove {
		return AppointmentConfirmed
	}
	return AppointmentCancelled
}

type Appointment struct {
	ID           string            `json:"id"`
	Status       AppointmentStatus `json:"appointment_status"`
	Date         string            `json:"appointment_date"`
	Time         string            `json:"appointment_time"`
	ClientID     string            `json:"client_id"`
	MeetingType  MeetingType       `json:"meeting_type"`
	CancelReason *string           `json:"cancel_reason"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Actionable reports whether approve or cancel may still be applied.
func (a *Appointment) Actionable() bool {
	return a.Status == AppointmentPending
}

// TaskFilter narrows task listings.
type TaskFilter struct {
	AssigneeID string
	Status     TaskStatus
}
