package model

import "time"

// Notification status constants.
//
// An employee moves a notification from pending to accepted or rejected,
// exactly once. Finalizing the project freezes the rest: the winner's
// notification becomes assigned, every other undecided or accepted one
// becomes superseded. Rejected notifications stay rejected.
const (
	NotificationStatusPending    = "pending"
	NotificationStatusAccepted   = "accepted"
	NotificationStatusRejected   = "rejected"
	NotificationStatusSuperseded = "superseded"
	NotificationStatusAssigned   = "assigned"
)

// Employee response values for a pending notification.
const (
	ResponseAccept = "accept"
	ResponseReject = "reject"
)

// Notification is an offer of one project to one employee. There is at most
// one notification per (project, employee) pair.
type Notification struct {
	ID          string     `json:"id" db:"id"`
	ProjectID   string     `json:"project_id" db:"project_id"`
	EmployeeID  string     `json:"employee_id" db:"employee_id"`
	Status      string     `json:"status" db:"status"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty" db:"responded_at"`

	// Denormalized project fields, populated by employee-facing list
	// queries for display.
	ProjectTitle       string `json:"project_title,omitempty" db:"project_title"`
	ProjectDescription string `json:"project_description,omitempty" db:"project_description"`
	ProjectPriority    int    `json:"project_priority,omitempty" db:"project_priority"`
}

// ResponseValid reports whether r is a known employee response.
func ResponseValid(r string) bool {
	return r == ResponseAccept || r == ResponseReject
}
