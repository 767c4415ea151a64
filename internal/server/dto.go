package server

import "github.com/sadopc/preptrack/internal/model"

type createTaskRequest struct {
	Title      string   `json:"title"`
	TaskType   string   `json:"task_type" binding:"required,oneof=client_onboarding amendment_filing document_collection document_review document_request signature_request internal_review other"`
	Status     string   `json:"status" binding:"omitempty,oneof=to_do in_progress submitted completed pending cancelled"`
	FolderID   *string  `json:"folder_id"`
	SpouseSign bool     `json:"spouse_sign"`
	AssigneeID *string  `json:"assignee_id"`
	ClientIDs  []string `json:"client_ids" binding:"omitempty,dive,required,excludesall=0x2C"`
	FileIDs    []string `json:"file_ids" binding:"omitempty,dive,required,excludesall=0x2C"`
}

func (r createTaskRequest) task() model.Task {
	return model.Task{
		Title:      r.Title,
		TaskType:   model.TaskType(r.TaskType),
		Status:     model.TaskStatus(r.Status),
		FolderID:   r.FolderID,
		SpouseSign: r.SpouseSign,
		AssigneeID: r.AssigneeID,
		ClientIDs:  r.ClientIDs,
		FileIDs:    r.FileIDs,
	}
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type addCommentRequest struct {
	Content string `json:"content" binding:"required,max=4000"`
}

type createAppointmentRequest struct {
	Date        string `json:"appointment_date" binding:"required,datetime=2006-01-02"`
	Time        string `json:"appointment_time" binding:"required,datetime=15:04"`
	ClientID    string `json:"client_id" binding:"required"`
	MeetingType string `json:"meeting_type" binding:"required,oneof=zoom google_meet in_person on_call"`
}

type updateAppointmentRequest struct {
	Action string  `json:"action" binding:"required,oneof=approve cancel"`
	Reason *string `json:"reason"`
}
