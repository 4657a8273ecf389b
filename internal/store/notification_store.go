package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/dev-tracker/internal/model"
)

// CreateNotifications fans out one pending notification per employee for the
// project. The UNIQUE(project_id, employee_id) index plus INSERT OR IGNORE
// makes the fan-out idempotent per project.
func (s *SQLiteStore) CreateNotifications(ctx context.Context, projectID string, employeeIDs []string) ([]model.Notification, error) {
	if len(employeeIDs) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT OR IGNORE INTO notifications (id, project_id, employee_id, status, created_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("preparing notification insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	var created []model.Notification
	for _, employeeID := range employeeIDs {
		n := model.Notification{
			ID:         uuid.New().String(),
			ProjectID:  projectID,
			EmployeeID: employeeID,
			Status:     model.NotificationStatusPending,
			CreatedAt:  now,
		}
		result, err := stmt.ExecContext(ctx,
			n.ID, n.ProjectID, n.EmployeeID, n.Status, n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("creating notification for employee %s: %w", employeeID, err)
		}
		if rows, _ := result.RowsAffected(); rows > 0 {
			created = append(created, n)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing notification fan-out: %w", err)
	}
	return created, nil
}

// GetNotificationByID retrieves a single notification by id.
func (s *SQLiteStore) GetNotificationByID(ctx context.Context, id string) (*model.Notification, error) {
	var n model.Notification
	err := s.db.GetContext(ctx, &n, "SELECT * FROM notifications WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("notification %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting notification %s: %w", id, err)
	}
	return &n, nil
}

// GetNotificationsByProject retrieves all notifications of a project.
func (s *SQLiteStore) GetNotificationsByProject(ctx context.Context, projectID string) ([]model.Notification, error) {
	var notifications []model.Notification
	err := s.db.SelectContext(ctx, &notifications,
		"SELECT * FROM notifications WHERE project_id = ? ORDER BY created_at, id", projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying notifications for project %s: %w", projectID, err)
	}
	return notifications, nil
}

// GetNotificationsByEmployee retrieves the employee's notifications with the
// owning project's title, description, and priority joined in for display.
func (s *SQLiteStore) GetNotificationsByEmployee(ctx context.Context, employeeID string) ([]model.Notification, error) {
	var notifications []model.Notification
	err := s.db.SelectContext(ctx, &notifications, `
		SELECT n.*,
			p.title AS project_title,
			p.description AS project_description,
			p.priority AS project_priority
		FROM notifications n
		JOIN projects p ON p.id = n.project_id
		WHERE n.employee_id = ?
		ORDER BY n.created_at DESC, n.id`,
		employeeID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying notifications for employee %s: %w", employeeID, err)
	}
	return notifications, nil
}

// GetAcceptedNotifications retrieves a project's accepted notifications
// ordered by acceptance time, then id, which is the finalize tie-break order.
func (s *SQLiteStore) GetAcceptedNotifications(ctx context.Context, projectID string) ([]model.Notification, error) {
	var notifications []model.Notification
	err := s.db.SelectContext(ctx, &notifications, `
		SELECT * FROM notifications
		WHERE project_id = ? AND status = ?
		ORDER BY responded_at, id`,
		projectID, model.NotificationStatusAccepted,
	)
	if err != nil {
		return nil, fmt.Errorf("querying accepted notifications for project %s: %w", projectID, err)
	}
	return notifications, nil
}

// RespondNotification records a decision on a still-pending notification.
// The status precondition lives in the WHERE clause: of two racing calls on
// the same notification exactly one updates a row, the other gets
// model.ErrConflict.
func (s *SQLiteStore) RespondNotification(ctx context.Context, id, status string, respondedAt time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET status = ?, responded_at = ?
		WHERE id = ? AND status = ?`,
		status, respondedAt.UTC(), id, model.NotificationStatusPending,
	)
	if err != nil {
		return fmt.Errorf("responding to notification %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		var count int
		if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM notifications WHERE id = ?", id); err != nil {
			return fmt.Errorf("checking notification %s: %w", id, err)
		}
		if count == 0 {
			return fmt.Errorf("notification %s: %w", id, model.ErrNotFound)
		}
		return fmt.Errorf("notification %s already decided: %w", id, model.ErrConflict)
	}
	return nil
}
