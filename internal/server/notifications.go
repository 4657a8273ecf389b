package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nhle/dev-tracker/internal/model"
)

type respondRequest struct {
	EmployeeID string `json:"employee_id"`
	Response   string `json:"response"`
}

// handleListNotifications returns an employee's notifications with project
// fields denormalized for display.
func (s *Server) handleListNotifications(c *gin.Context) {
	employeeID := c.Query("employee_id")
	if employeeID == "" {
		s.respondError(c, fmt.Errorf("employee_id is required: %w", model.ErrValidation))
		return
	}

	notifications, err := s.workflow.ListNotifications(c.Request.Context(), employeeID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// handleRespondNotification records an accept or reject decision.
func (s *Server) handleRespondNotification(c *gin.Context) {
	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, fmt.Errorf("%s: %w", err.Error(), model.ErrValidation))
		return
	}

	notification, err := s.workflow.Respond(c.Request.Context(), c.Param("id"), req.EmployeeID, req.Response)
	if err != nil {
		s.respondError(c, err)
		return
	}

	notificationResponses.WithLabelValues(req.Response).Inc()
	c.JSON(http.StatusOK, gin.H{"notification": notification})
}
