package store

import (
	"context"
	"time"

	"github.com/nhle/dev-tracker/internal/model"
)

// ProjectFilter controls filtering for project list queries.
type ProjectFilter struct {
	// AssignedEmployeeID limits results to projects assigned to this
	// employee when set.
	AssignedEmployeeID *string

	// Status limits results to projects in this status when set.
	Status *string
}

// Store defines the persistence interface for employees, projects, and
// notifications.
//
// The guarded mutations (UpdateProjectStatus, CommitAssignment,
// RespondNotification) embed their state precondition in the UPDATE itself,
// so a caller that lost a race observes model.ErrConflict instead of
// silently overwriting the winner.
type Store interface {
	// === Employees ===

	CreateEmployee(ctx context.Context, emp model.Employee) (*model.Employee, error)
	GetEmployeeByID(ctx context.Context, id string) (*model.Employee, error)
	GetEmployees(ctx context.Context) ([]model.Employee, error)
	UpdateEmployeeRating(ctx context.Context, id string, rating float64) (*model.Employee, error)

	// DeleteEmployee removes the employee and, in the same transaction,
	// marks their still-live (pending or accepted) notifications as
	// rejected. It returns the notifications it rejected.
	DeleteEmployee(ctx context.Context, id string) ([]model.Notification, error)

	// === Projects ===

	CreateProject(ctx context.Context, project model.Project) (*model.Project, error)
	GetProjectByID(ctx context.Context, id string) (*model.Project, error)
	GetProjects(ctx context.Context, filter ProjectFilter) ([]model.Project, error)

	// UpdateProjectStatus moves a project from one status to another as a
	// compare-and-swap on the status column.
	UpdateProjectStatus(ctx context.Context, id, from, to string) error

	// CommitAssignment atomically assigns a pending, unassigned project to
	// an employee, moves it to in_progress, marks the winning notification
	// assigned, and supersedes every other undecided or accepted
	// notification of the project.
	CommitAssignment(ctx context.Context, projectID, employeeID, winningNotificationID string) error

	// === Notifications ===

	// CreateNotifications inserts one pending notification per employee
	// for the project, skipping (project, employee) pairs that already
	// have one. It returns the rows actually inserted.
	CreateNotifications(ctx context.Context, projectID string, employeeIDs []string) ([]model.Notification, error)

	GetNotificationByID(ctx context.Context, id string) (*model.Notification, error)
	GetNotificationsByProject(ctx context.Context, projectID string) ([]model.Notification, error)

	// GetNotificationsByEmployee returns the employee's notifications with
	// project title, description, and priority denormalized for display.
	GetNotificationsByEmployee(ctx context.Context, employeeID string) ([]model.Notification, error)

	// GetAcceptedNotifications returns the project's accepted
	// notifications ordered by acceptance time, then id.
	GetAcceptedNotifications(ctx context.Context, projectID string) ([]model.Notification, error)

	// RespondNotification records an accept/reject decision on a
	// still-pending notification.
	RespondNotification(ctx context.Context, id, status string, respondedAt time.Time) error

	Close() error
}
