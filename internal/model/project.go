package model

import "time"

// Project status constants.
const (
	ProjectStatusPending    = "pending"
	ProjectStatusInProgress = "in_progress"
	ProjectStatusBlocked    = "blocked"
	ProjectStatusCompleted  = "completed"
)

// Project priority bounds.
const (
	PriorityMin = 1
	PriorityMax = 5
)

// Project is a unit of assignable work. AssignedEmployeeID stays nil until
// an assignment is finalized and is written exactly once.
type Project struct {
	ID                 string     `json:"id" db:"id"`
	Title              string     `json:"title" db:"title"`
	Description        string     `json:"description" db:"description"`
	Priority           int        `json:"priority" db:"priority"`
	Status             string     `json:"status" db:"status"`
	Deadline           *time.Time `json:"deadline,omitempty" db:"deadline"`
	AssignedEmployeeID *string    `json:"assigned_employee_id,omitempty" db:"assigned_employee_id"`
	CreatedBy          string     `json:"created_by" db:"created_by"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}

// ProjectStatusValid reports whether s is a known project status.
func ProjectStatusValid(s string) bool {
	switch s {
	case ProjectStatusPending, ProjectStatusInProgress, ProjectStatusBlocked, ProjectStatusCompleted:
		return true
	}
	return false
}

// PriorityValid reports whether p is inside the allowed priority range.
func PriorityValid(p int) bool {
	return p >= PriorityMin && p <= PriorityMax
}
