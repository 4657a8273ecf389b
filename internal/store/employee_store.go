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

// CreateEmployee inserts a new employee. An unset rating defaults to
// model.DefaultRating rather than zero.
func (s *SQLiteStore) CreateEmployee(ctx context.Context, emp model.Employee) (*model.Employee, error) {
	if strings.TrimSpace(emp.Name) == "" {
		return nil, fmt.Errorf("employee name must not be empty: %w", model.ErrValidation)
	}
	if emp.ID == "" {
		emp.ID = uuid.New().String()
	}
	if emp.Rating == 0 {
		emp.Rating = model.DefaultRating
	}
	emp.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, name, email, role, department, is_admin, rating, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		emp.ID, emp.Name, emp.Email, emp.Role, emp.Department,
		boolToInt(emp.IsAdmin), emp.Rating, emp.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating employee: %w", err)
	}
	return &emp, nil
}

// GetEmployeeByID retrieves a single employee by id.
func (s *SQLiteStore) GetEmployeeByID(ctx context.Context, id string) (*model.Employee, error) {
	var emp model.Employee
	err := s.db.GetContext(ctx, &emp, "SELECT * FROM employees WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("employee %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting employee %s: %w", id, err)
	}
	return &emp, nil
}

// GetEmployees retrieves all employees ordered by name.
func (s *SQLiteStore) GetEmployees(ctx context.Context) ([]model.Employee, error) {
	var employees []model.Employee
	err := s.db.SelectContext(ctx, &employees, "SELECT * FROM employees ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying employees: %w", err)
	}
	return employees, nil
}

// UpdateEmployeeRating sets the employee's rating and returns the updated
// record. Range validation belongs to the caller; the schema CHECK is the
// last line of defense.
func (s *SQLiteStore) UpdateEmployeeRating(ctx context.Context, id string, rating float64) (*model.Employee, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE employees SET rating = ? WHERE id = ?", rating, id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating rating for employee %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, fmt.Errorf("employee %s: %w", id, model.ErrNotFound)
	}
	return s.GetEmployeeByID(ctx, id)
}

// DeleteEmployee removes the employee and rejects their live notifications
// in a single transaction, returning the rejected notifications.
func (s *SQLiteStore) DeleteEmployee(ctx context.Context, id string) ([]model.Notification, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var live []model.Notification
	err = tx.SelectContext(ctx, &live, `
		SELECT * FROM notifications
		WHERE employee_id = ? AND status IN (?, ?)`,
		id, model.NotificationStatusPending, model.NotificationStatusAccepted,
	)
	if err != nil {
		return nil, fmt.Errorf("reading live notifications for employee %s: %w", id, err)
	}

	now := time.Now().UTC()
	rejected := make([]model.Notification, 0, len(live))
	for _, n := range live {
		_, err = tx.ExecContext(ctx, `
			UPDATE notifications SET status = ?, responded_at = ?
			WHERE id = ?`,
			model.NotificationStatusRejected, now, n.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("rejecting notification %s: %w", n.ID, err)
		}
		n.Status = model.NotificationStatusRejected
		respondedAt := now
		n.RespondedAt = &respondedAt
		rejected = append(rejected, n)
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM employees WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("deleting employee %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, fmt.Errorf("employee %s: %w", id, model.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing employee deletion: %w", err)
	}
	return rejected, nil
}
