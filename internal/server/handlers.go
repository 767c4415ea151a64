package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sadopc/preptrack/internal/model"
	"github.com/sadopc/preptrack/internal/store"
)

// writeError maps store and validation errors onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrAlreadyActive),
		errors.Is(err, store.ErrNotActive),
		errors.Is(err, store.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, model.ErrInvalidTaskStatus),
		errors.Is(err, model.ErrInvalidTaskType),
		errors.Is(err, model.ErrFolderRequired),
		errors.Is(err, model.ErrSpouseSign):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
}

// Tasks

func (s *Server) handleListTasks(c *gin.Context) {
	filter := model.TaskFilter{
		AssigneeID: c.Query("assignee"),
		Status:     model.TaskStatus(c.Query("status")),
	}
	if c.Query("assignee") == "me" {
		filter.AssigneeID = c.GetString("userId")
	}
	tasks, err := s.store.ListTasks(filter)
	if err != nil {
		writeError(c, err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	c.JSON(http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	task, err := s.store.CreateTask(req.task())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (s *Server) handleGetTask(c *gin.Context) {
	task, err := s.store.GetTask(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleUpdateTaskStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	task, err := s.store.UpdateTaskStatus(c.Param("id"), model.TaskStatus(req.Status))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// Time tracking

func (s *Server) handleTrackingStatus(c *gin.Context) {
	st, err := s.store.TrackingStatus(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) handleListSessions(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.store.GetTask(id); err != nil {
		writeError(c, err)
		return
	}
	sessions, err := s.store.ListSessions(id)
	if err != nil {
		writeError(c, err)
		return
	}
	if sessions == nil {
		sessions = []model.Session{}
	}
	c.JSON(http.StatusOK, sessions)
}

func (s *Server) handleStartTracking(c *gin.Context) {
	st, err := s.store.StartTracking(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) handlePauseTracking(c *gin.Context) {
	st, err := s.store.PauseTracking(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) handleResetTracking(c *gin.Context) {
	st, err := s.store.ResetTracking(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// Comments

func (s *Server) handleListComments(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.store.GetTask(id); err != nil {
		writeError(c, err)
		return
	}
	comments, err := s.store.ListComments(id)
	if err != nil {
		writeError(c, err)
		return
	}
	if comments == nil {
		comments = []model.Comment{}
	}
	c.JSON(http.StatusOK, comments)
}

func (s *Server) handleAddComment(c *gin.Context) {
	var req addCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	comment, err := s.store.AddComment(c.Param("id"), req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// Appointments

func (s *Server) handleListAppointments(c *gin.Context) {
	appts, err := s.store.ListAppointments(model.AppointmentStatus(c.Query("status")))
	if err != nil {
		writeError(c, err)
		return
	}
	if appts == nil {
		appts = []model.Appointment{}
	}
	c.JSON(http.StatusOK, appts)
}

func (s *Server) handleCreateAppointment(c *gin.Context) {
	var req createAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	appt, err := s.store.CreateAppointment(model.Appointment{
		Date:        req.Date,
		Time:        req.Time,
		ClientID:    req.ClientID,
		MeetingType: model.MeetingType(req.MeetingType),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, appt)
}

func (s *Server) handleGetAppointment(c *gin.Context) {
	appt, err := s.store.GetAppointment(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, appt)
}

func (s *Server) handleUpdateAppointmentStatus(c *gin.Context) {
	var req updateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	appt, err := s.store.UpdateAppointmentStatus(c.Param("id"), model.AppointmentAction(req.Action), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, appt)
}
