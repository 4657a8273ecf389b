// Package workflow implements the notify-accept-finalize assignment engine:
// project creation with notification fan-out, concurrent accept collection,
// and rating-based finalization.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/rs/zerolog"

	"github.com/nhle/dev-tracker/internal/model"
	"github.com/nhle/dev-tracker/internal/store"
)

// Publisher receives change events for interested observers. Delivery is a
// hint; the engine never depends on it succeeding.
type Publisher interface {
	Publish(ev model.ChangeEvent)
}

// OfferMailer renders and delivers a project offer to one employee.
type OfferMailer interface {
	OfferNotification(ctx context.Context, emp model.Employee, project model.Project) error
}

// Config holds the engine's eligibility settings.
type Config struct {
	// NotifyAdmins includes admins in the notification fan-out.
	NotifyAdmins bool

	// Role restricts the fan-out to employees with this role when set.
	Role string
}

// CreateProjectInput carries the admin-supplied fields of a new project.
type CreateProjectInput struct {
	Title       string
	Description string
	Priority    int
	Deadline    *time.Time
	CreatedBy   string
}

// FinalizeResult is returned to the caller of Finalize.
type FinalizeResult struct {
	Employee model.Employee `json:"employee"`
	Rating   float64        `json:"rating"`
	Project  model.Project  `json:"project"`
}

// Service is the assignment workflow engine. All operations are safe for
// concurrent use; races are resolved by rejecting the loser with
// model.ErrConflict, never by retrying internally.
type Service struct {
	store  store.Store
	events Publisher
	mailer OfferMailer
	cfg    Config
	logger zerolog.Logger

	// locks serializes finalize and direct status updates per project id.
	// Notification responses are serialized per row by the store's guarded
	// update instead.
	locks *xsync.Map[string, *sync.Mutex]
}

// New creates the workflow engine. events and mailer may be nil.
func New(st store.Store, events Publisher, mailer OfferMailer, cfg Config, logger zerolog.Logger) *Service {
	return &Service{
		store:  st,
		events: events,
		mailer: mailer,
		cfg:    cfg,
		logger: logger.With().Str("component", "workflow").Logger(),
		locks:  xsync.NewMap[string, *sync.Mutex](),
	}
}

// projectLock returns the mutex serializing mutations of one project.
func (s *Service) projectLock(projectID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(projectID, &sync.Mutex{})
	return mu
}

// publish forwards an event to the publisher when one is configured.
func (s *Service) publish(ev model.ChangeEvent) {
	if s.events != nil {
		s.events.Publish(ev)
	}
}

// CreateProject validates and stores a new pending project, then fans out
// notifications to every eligible employee. It returns the project and the
// number of employees notified.
func (s *Service) CreateProject(ctx context.Context, in CreateProjectInput) (*model.Project, int, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, 0, fmt.Errorf("project title must not be empty: %w", model.ErrValidation)
	}
	if !model.PriorityValid(in.Priority) {
		return nil, 0, fmt.Errorf("priority %d outside %d..%d: %w",
			in.Priority, model.PriorityMin, model.PriorityMax, model.ErrValidation)
	}

	project, err := s.store.CreateProject(ctx, model.Project{
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Deadline:    in.Deadline,
		CreatedBy:   in.CreatedBy,
	})
	if err != nil {
		return nil, 0, err
	}

	notified, err := s.Dispatch(ctx, *project)
	if err != nil {
		return nil, 0, fmt.Errorf("dispatching notifications for project %s: %w", project.ID, err)
	}

	s.publish(model.ProjectUpdated(*project))
	s.logger.Info().
		Str("project_id", project.ID).
		Str("title", project.Title).
		Int("notified", notified).
		Msg("project created")

	return project, notified, nil
}

// Dispatch creates one pending notification per eligible employee for the
// project. Calling it again for the same project is a no-op for employees
// who already have one.
func (s *Service) Dispatch(ctx context.Context, project model.Project) (int, error) {
	employees, err := s.store.GetEmployees(ctx)
	if err != nil {
		return 0, err
	}

	eligible := make([]model.Employee, 0, len(employees))
	for _, emp := range employees {
		if emp.IsAdmin && !s.cfg.NotifyAdmins {
			continue
		}
		if s.cfg.Role != "" && emp.Role != s.cfg.Role {
			continue
		}
		eligible = append(eligible, emp)
	}
	if len(eligible) == 0 {
		return 0, nil
	}

	ids := make([]string, len(eligible))
	for i, emp := range eligible {
		ids[i] = emp.ID
	}

	created, err := s.store.CreateNotifications(ctx, project.ID, ids)
	if err != nil {
		return 0, err
	}
	if len(created) == 0 {
		return 0, nil
	}

	// Only the rows inserted by this call are announced and mailed;
	// employees notified by an earlier dispatch are not contacted again.
	notifiedIDs := make(map[string]bool, len(created))
	for _, n := range created {
		s.publish(model.NotificationUpdated(n))
		notifiedIDs[n.EmployeeID] = true
	}

	if s.mailer != nil {
		for _, emp := range eligible {
			if !notifiedIDs[emp.ID] {
				continue
			}
			if err := s.mailer.OfferNotification(ctx, emp, project); err != nil {
				s.logger.Warn().
					Err(err).
					Str("project_id", project.ID).
					Str("employee_id", emp.ID).
					Msg("offer mail failed")
			}
		}
	}

	return len(created), nil
}

// Respond records an employee's accept or reject decision on a pending
// notification. The first decision wins; any later call, including a
// double-submit on the same notification, observes model.ErrConflict.
func (s *Service) Respond(ctx context.Context, notificationID, employeeID, response string) (*model.Notification, error) {
	if !model.ResponseValid(response) {
		return nil, fmt.Errorf("response %q must be %q or %q: %w",
			response, model.ResponseAccept, model.ResponseReject, model.ErrValidation)
	}

	n, err := s.store.GetNotificationByID(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.EmployeeID != employeeID {
		return nil, fmt.Errorf("notification %s does not belong to employee %s: %w",
			notificationID, employeeID, model.ErrForbidden)
	}

	status := model.NotificationStatusAccepted
	if response == model.ResponseReject {
		status = model.NotificationStatusRejected
	}

	if err := s.store.RespondNotification(ctx, notificationID, status, time.Now().UTC()); err != nil {
		return nil, err
	}

	updated, err := s.store.GetNotificationByID(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	s.publish(model.NotificationUpdated(*updated))
	s.logger.Info().
		Str("notification_id", notificationID).
		Str("employee_id", employeeID).
		Str("status", status).
		Msg("notification decided")

	return updated, nil
}

// Finalize assigns the project to the best-rated employee among those who
// accepted. The project must still be pending; of two concurrent calls
// exactly one commits and the other observes model.ErrConflict. Ratings are
// read at finalize time, so a rating updated after dispatch counts.
func (s *Service) Finalize(ctx context.Context, projectID, requestedBy string) (*FinalizeResult, error) {
	mu := s.projectLock(projectID)
	mu.Lock()
	defer mu.Unlock()

	project, err := s.store.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.Status != model.ProjectStatusPending {
		return nil, fmt.Errorf("project %s is %s, not pending: %w",
			projectID, project.Status, model.ErrConflict)
	}

	accepted, err := s.store.GetAcceptedNotifications(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if len(accepted) == 0 {
		return nil, fmt.Errorf("project %s: %w", projectID, model.ErrNoCandidates)
	}

	winner, winnerEmp, err := s.selectWinner(ctx, accepted)
	if err != nil {
		return nil, err
	}

	if err := s.store.CommitAssignment(ctx, projectID, winnerEmp.ID, winner.ID); err != nil {
		return nil, err
	}

	assigned, err := s.store.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	s.publish(model.ProjectUpdated(*assigned))

	notifications, err := s.store.GetNotificationsByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	for _, n := range notifications {
		s.publish(model.NotificationUpdated(n))
	}

	s.logger.Info().
		Str("project_id", projectID).
		Str("employee_id", winnerEmp.ID).
		Float64("rating", winnerEmp.Rating).
		Str("requested_by", requestedBy).
		Msg("assignment finalized")

	return &FinalizeResult{Employee: *winnerEmp, Rating: winnerEmp.Rating, Project: *assigned}, nil
}

// selectWinner picks the accepted notification whose employee has the
// highest current rating. Candidates are ordered by acceptance time then id,
// and only a strictly higher rating displaces the current best, so tied
// ratings go to the earliest acceptor. Employees deleted since accepting are
// skipped.
func (s *Service) selectWinner(ctx context.Context, candidates []model.Notification) (*model.Notification, *model.Employee, error) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		switch {
		case a.RespondedAt == nil && b.RespondedAt == nil:
			return a.ID < b.ID
		case a.RespondedAt == nil:
			return false
		case b.RespondedAt == nil:
			return true
		case a.RespondedAt.Equal(*b.RespondedAt):
			return a.ID < b.ID
		default:
			return a.RespondedAt.Before(*b.RespondedAt)
		}
	})

	var (
		winner    *model.Notification
		winnerEmp *model.Employee
	)
	for i := range candidates {
		n := candidates[i]
		emp, err := s.store.GetEmployeeByID(ctx, n.EmployeeID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				continue
			}
			return nil, nil, err
		}
		if winnerEmp == nil || emp.Rating > winnerEmp.Rating {
			winner, winnerEmp = &n, emp
		}
	}
	if winner == nil {
		return nil, nil, fmt.Errorf("no accepted candidate still exists: %w", model.ErrNoCandidates)
	}
	return winner, winnerEmp, nil
}

// UpdateStatus applies a direct, admin-driven status change guarded by the
// state machine.
func (s *Service) UpdateStatus(ctx context.Context, projectID, newStatus string) (*model.Project, error) {
	if !model.ProjectStatusValid(newStatus) {
		return nil, fmt.Errorf("unknown status %q: %w", newStatus, model.ErrValidation)
	}

	mu := s.projectLock(projectID)
	mu.Lock()
	defer mu.Unlock()

	project, err := s.store.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !canTransition(project.Status, newStatus) {
		return nil, fmt.Errorf("cannot move project %s from %s to %s: %w",
			projectID, project.Status, newStatus, model.ErrInvalidTransition)
	}

	if err := s.store.UpdateProjectStatus(ctx, projectID, project.Status, newStatus); err != nil {
		return nil, err
	}

	updated, err := s.store.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	s.publish(model.ProjectUpdated(*updated))
	return updated, nil
}

// SetRating updates an employee's rating. Out-of-range values are rejected,
// never clamped. The new value is visible to any later finalize without
// re-dispatch.
func (s *Service) SetRating(ctx context.Context, employeeID string, rating float64) (*model.Employee, error) {
	if !model.RatingValid(rating) {
		return nil, fmt.Errorf("rating %.2f outside [%.1f, %.1f]: %w",
			rating, model.RatingMin, model.RatingMax, model.ErrValidation)
	}
	return s.store.UpdateEmployeeRating(ctx, employeeID, rating)
}

// CreateEmployee stores a new employee record.
func (s *Service) CreateEmployee(ctx context.Context, emp model.Employee) (*model.Employee, error) {
	if emp.Rating != 0 && !model.RatingValid(emp.Rating) {
		return nil, fmt.Errorf("rating %.2f outside [%.1f, %.1f]: %w",
			emp.Rating, model.RatingMin, model.RatingMax, model.ErrValidation)
	}
	return s.store.CreateEmployee(ctx, emp)
}

// DeleteEmployee removes an employee. Their still-live notifications are
// treated as rejected so a later finalize can never select them.
func (s *Service) DeleteEmployee(ctx context.Context, employeeID string) error {
	rejected, err := s.store.DeleteEmployee(ctx, employeeID)
	if err != nil {
		return err
	}
	for _, n := range rejected {
		s.publish(model.NotificationUpdated(n))
	}
	s.logger.Info().
		Str("employee_id", employeeID).
		Int("notifications_rejected", len(rejected)).
		Msg("employee deleted")
	return nil
}

// ListEmployees returns all employees.
func (s *Service) ListEmployees(ctx context.Context) ([]model.Employee, error) {
	return s.store.GetEmployees(ctx)
}

// ListProjects returns projects, optionally filtered by assigned employee.
func (s *Service) ListProjects(ctx context.Context, assignedTo *string) ([]model.Project, error) {
	return s.store.GetProjects(ctx, store.ProjectFilter{AssignedEmployeeID: assignedTo})
}

// ListNotifications returns an employee's notifications with project fields
// denormalized for display.
func (s *Service) ListNotifications(ctx context.Context, employeeID string) ([]model.Notification, error) {
	return s.store.GetNotificationsByEmployee(ctx, employeeID)
}
