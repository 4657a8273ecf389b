package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nhle/dev-tracker/internal/model"
	"github.com/nhle/dev-tracker/internal/workflow"
)

type createProjectRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    int        `json:"priority"`
	Deadline    *time.Time `json:"deadline"`
	CreatedBy   string     `json:"created_by"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type finalizeRequest struct {
	RequestedBy string `json:"requested_by"`
}

// handleListProjects returns projects, optionally filtered to those
// assigned to one employee.
func (s *Server) handleListProjects(c *gin.Context) {
	var assignedTo *string
	if v := c.Query("employee_id"); v != "" {
		assignedTo = &v
	}

	projects, err := s.workflow.ListProjects(c.Request.Context(), assignedTo)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// handleCreateProject creates a pending project and fans out notifications
// to eligible employees.
func (s *Server) handleCreateProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, fmt.Errorf("%s: %w", err.Error(), model.ErrValidation))
		return
	}
	if req.Priority == 0 {
		req.Priority = model.PriorityMin
	}

	project, notified, err := s.workflow.CreateProject(c.Request.Context(), workflow.CreateProjectInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Deadline:    req.Deadline,
		CreatedBy:   req.CreatedBy,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	projectsCreated.Inc()
	c.JSON(http.StatusCreated, gin.H{"project": project, "notifications_sent": notified})
}

// handleUpdateProjectStatus applies a direct status change.
func (s *Server) handleUpdateProjectStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, fmt.Errorf("%s: %w", err.Error(), model.ErrValidation))
		return
	}

	project, err := s.workflow.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": project})
}

// handleFinalizeAssignment assigns the project to the best-rated accepting
// employee.
func (s *Server) handleFinalizeAssignment(c *gin.Context) {
	var req finalizeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.respondError(c, fmt.Errorf("%s: %w", err.Error(), model.ErrValidation))
			return
		}
	}

	result, err := s.workflow.Finalize(c.Request.Context(), c.Param("id"), req.RequestedBy)
	if err != nil {
		s.respondError(c, err)
		return
	}

	assignmentsFinalized.Inc()
	c.JSON(http.StatusOK, gin.H{
		"project":  result.Project,
		"employee": result.Employee,
		"rating":   result.Rating,
	})
}
