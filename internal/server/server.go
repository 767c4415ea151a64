// Package server is the reference implementation of the portal's task,
// time-tracking and appointment endpoints, backed by the SQLite store.
package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sadopc/preptrack/internal/store"
)

type Server struct {
	store  *store.Store
	secret []byte
	router *gin.Engine
}

// New wires the API routes. Every /api route requires a bearer token
// signed with secret.
func New(s *store.Store, secret string) *Server {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), cors.Default())

	srv := &Server{
		store:  s,
		secret: []byte(secret),
		router: router,
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	api := router.Group("/api", AccessTokenMiddleware(srv.secret))
	{
		api.GET("/tasks", srv.handleListTasks)
		api.POST("/tasks", srv.handleCreateTask)
		api.GET("/tasks/:id", srv.handleGetTask)
		api.PATCH("/tasks/:id/status", srv.handleUpdateTaskStatus)

		api.GET("/tasks/:id/time-tracking", srv.handleTrackingStatus)
		api.GET("/tasks/:id/time-tracking/sessions", srv.handleListSessions)
		api.POST("/tasks/:id/time-tracking/start", srv.handleStartTracking)
		api.POST("/tasks/:id/time-tracking/pause", srv.handlePauseTracking)
		api.POST("/tasks/:id/time-tracking/reset", srv.handleResetTracking)

		api.GET("/tasks/:id/comments", srv.handleListComments)
		api.POST("/tasks/:id/comments", srv.handleAddComment)

		api.GET("/appointments", srv.handleListAppointments)
		api.POST("/appointments", srv.handleCreateAppointment)
		api.GET("/appointments/:id", srv.handleGetAppointment)
		api.POST("/appointments/:id/status", srv.handleUpdateAppointmentStatus)
	}

	return srv
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the server on addr.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}
