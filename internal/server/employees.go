package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nhle/dev-tracker/internal/model"
)

type createEmployeeRequest struct {
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Role       string  `json:"role"`
	Department string  `json:"department"`
	IsAdmin    bool    `json:"is_admin"`
	Rating     float64 `json:"rating"`
}

type setRatingRequest struct {
	Rating float64 `json:"rating"`
}

// handleListEmployees returns all employees.
func (s *Server) handleListEmployees(c *gin.Context) {
	employees, err := s.workflow.ListEmployees(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"employees": employees})
}

// handleCreateEmployee registers a new employee.
func (s *Server) handleCreateEmployee(c *gin.Context) {
	var req createEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, fmt.Errorf("%s: %w", err.Error(), model.ErrValidation))
		return
	}

	employee, err := s.workflow.CreateEmployee(c.Request.Context(), model.Employee{
		Name:       req.Name,
		Email:      req.Email,
		Role:       req.Role,
		Department: req.Department,
		IsAdmin:    req.IsAdmin,
		Rating:     req.Rating,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"employee": employee})
}

// handleSetRating updates an employee's rating.
func (s *Server) handleSetRating(c *gin.Context) {
	var req setRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, fmt.Errorf("%s: %w", err.Error(), model.ErrValidation))
		return
	}

	employee, err := s.workflow.SetRating(c.Request.Context(), c.Param("id"), req.Rating)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"employee": employee})
}

// handleDeleteEmployee removes an employee; their live notifications are
// rejected as part of the deletion.
func (s *Server) handleDeleteEmployee(c *gin.Context) {
	if err := s.workflow.DeleteEmployee(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
