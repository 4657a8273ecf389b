package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/dev-tracker/internal/model"
)

// CreateProject inserts a new project in pending status.
func (s *SQLiteStore) CreateProject(ctx context.Context, project model.Project) (*model.Project, error) {
	if strings.TrimSpace(project.Title) == "" {
		return nil, fmt.Errorf("project title must not be empty: %w", model.ErrValidation)
	}
	if project.ID == "" {
		project.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	project.Status = model.ProjectStatusPending
	project.AssignedEmployeeID = nil
	project.CreatedAt = now
	project.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, title, description, priority, status, deadline, assigned_employee_id, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, NULL, ?, ?, ?)`,
		project.ID, project.Title, project.Description, project.Priority,
		project.Status, project.Deadline, project.CreatedBy,
		project.CreatedAt, project.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating project: %w", err)
	}
	return &project, nil
}

// GetProjectByID retrieves a single project by id.
func (s *SQLiteStore) GetProjectByID(ctx context.Context, id string) (*model.Project, error) {
	var project model.Project
	err := s.db.GetContext(ctx, &project, "SELECT * FROM projects WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting project %s: %w", id, err)
	}
	return &project, nil
}

// GetProjects retrieves projects matching the filter, newest first.
func (s *SQLiteStore) GetProjects(ctx context.Context, filter ProjectFilter) ([]model.Project, error) {
	var conditions []string
	var args []interface{}

	if filter.AssignedEmployeeID != nil {
		conditions = append(conditions, "assigned_employee_id = ?")
		args = append(args, *filter.AssignedEmployeeID)
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *filter.Status)
	}

	query := "SELECT * FROM projects"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	var projects []model.Project
	if err := s.db.SelectContext(ctx, &projects, query, args...); err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	return projects, nil
}

// UpdateProjectStatus moves the project from one status to another. The
// expected current status rides in the WHERE clause, so a concurrent writer
// that got there first turns this call into model.ErrConflict.
func (s *SQLiteStore) UpdateProjectStatus(ctx context.Context, id, from, to string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE projects SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		to, time.Now().UTC(), id, from,
	)
	if err != nil {
		return fmt.Errorf("updating status of project %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return projectMissingOrConflict(ctx, s.db, id)
	}
	return nil
}

// CommitAssignment performs the finalize commit: assign the project, move it
// to in_progress, flag the winning notification, and supersede the rest.
// The whole step is one transaction guarded on the project still being
// pending and unassigned, so at most one finalize can ever commit.
func (s *SQLiteStore) CommitAssignment(ctx context.Context, projectID, employeeID, winningNotificationID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, `
		UPDATE projects SET assigned_employee_id = ?, status = ?, updated_at = ?
		WHERE id = ? AND status = ? AND assigned_employee_id IS NULL`,
		employeeID, model.ProjectStatusInProgress, now,
		projectID, model.ProjectStatusPending,
	)
	if err != nil {
		return fmt.Errorf("assigning project %s: %w", projectID, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		// Query on the transaction: with a one-connection pool a query
		// against the pool would wait on the connection this open
		// transaction holds.
		return projectMissingOrConflict(ctx, tx, projectID)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE notifications SET status = ?
		WHERE id = ? AND project_id = ?`,
		model.NotificationStatusAssigned, winningNotificationID, projectID,
	)
	if err != nil {
		return fmt.Errorf("flagging winning notification %s: %w", winningNotificationID, err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE notifications SET status = ?
		WHERE project_id = ? AND id != ? AND status IN (?, ?)`,
		model.NotificationStatusSuperseded, projectID, winningNotificationID,
		model.NotificationStatusPending, model.NotificationStatusAccepted,
	)
	if err != nil {
		return fmt.Errorf("superseding notifications for project %s: %w", projectID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing assignment: %w", err)
	}
	return nil
}

// rowGetter runs single-row queries on either the pool or an open
// transaction.
type rowGetter interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// projectMissingOrConflict distinguishes an absent project from one whose
// state moved underneath the caller.
func projectMissingOrConflict(ctx context.Context, q rowGetter, id string) error {
	var count int
	if err := q.GetContext(ctx, &count, "SELECT COUNT(*) FROM projects WHERE id = ?", id); err != nil {
		return fmt.Errorf("checking project %s: %w", id, err)
	}
	if count == 0 {
		return fmt.Errorf("project %s: %w", id, model.ErrNotFound)
	}
	return fmt.Errorf("project %s changed concurrently: %w", id, model.ErrConflict)
}
