// Package server exposes the assignment workflow over a JSON REST API with
// a Server-Sent Events push channel.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/nhle/dev-tracker/internal/event"
	"github.com/nhle/dev-tracker/internal/model"
	"github.com/nhle/dev-tracker/internal/workflow"
)

// Server provides HTTP handlers for the assignment workflow backend.
type Server struct {
	engine   *gin.Engine
	workflow *workflow.Service
	events   *event.Notifier
	logger   zerolog.Logger
}

// New constructs the HTTP server with routes and middleware configured.
func New(wf *workflow.Service, events *event.Notifier, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	srv := &Server{
		engine:   router,
		workflow: wf,
		events:   events,
		logger:   logger.With().Str("component", "http").Logger(),
	}

	router.Use(gin.Recovery())
	router.Use(srv.requestLogger())

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)
		api.GET("/events", s.handleEvents)

		projects := api.Group("/projects")
		{
			projects.GET("", s.handleListProjects)
			projects.POST("", s.handleCreateProject)
			projects.PUT(":id/status", s.handleUpdateProjectStatus)
			projects.POST(":id/finalize", s.handleFinalizeAssignment)
		}

		notifications := api.Group("/notifications")
		{
			notifications.GET("", s.handleListNotifications)
			notifications.PUT(":id/respond", s.handleRespondNotification)
		}

		employees := api.Group("/employees")
		{
			employees.GET("", s.handleListEmployees)
			employees.POST("", s.handleCreateEmployee)
			employees.PUT(":id/rating", s.handleSetRating)
			employees.DELETE(":id", s.handleDeleteEmployee)
		}
	}

	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// requestLogger emits one structured log line per request.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrConflict), errors.Is(err, model.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, model.ErrNoCandidates):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError maps the error to a status and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error().
			Err(err).
			Str("path", c.FullPath()).
			Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
