package workflow_test

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/nhle/dev-tracker/internal/model"
	"github.com/nhle/dev-tracker/internal/store"
	"github.com/nhle/dev-tracker/internal/workflow"
	"github.com/nhle/dev-tracker/tests/testutil"
)

// capturePublisher records published events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []model.ChangeEvent
}

func (p *capturePublisher) Publish(ev model.ChangeEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *capturePublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Topic
	}
	return out
}

func newTestService(t *testing.T) (*workflow.Service, store.Store, *capturePublisher) {
	t.Helper()
	st := testutil.NewTestStore(t)
	pub := &capturePublisher{}
	svc := workflow.New(st, pub, nil, workflow.Config{}, zerolog.Nop())
	return svc, st, pub
}

func addEmployee(t *testing.T, st store.Store, name string, rating float64, admin bool) *model.Employee {
	t.Helper()
	emp, err := st.CreateEmployee(context.Background(), model.Employee{
		Name:    name,
		Rating:  rating,
		IsAdmin: admin,
	})
	require.NoError(t, err)
	return emp
}

// notificationFor finds the employee's notification for a project.
func notificationFor(t *testing.T, st store.Store, projectID, employeeID string) *model.Notification {
	t.Helper()
	notifications, err := st.GetNotificationsByProject(context.Background(), projectID)
	require.NoError(t, err)
	for _, n := range notifications {
		if n.EmployeeID == employeeID {
			return &n
		}
	}
	t.Fatalf("no notification for employee %s on project %s", employeeID, projectID)
	return nil
}

func TestCreateProject_ValidatesPriority(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for _, priority := range []int{0, -1, 6} {
		_, _, err := svc.CreateProject(ctx, workflow.CreateProjectInput{
			Title:    "API rework",
			Priority: priority,
		})
		require.ErrorIs(t, err, model.ErrValidation, "priority %d", priority)
	}

	_, _, err := svc.CreateProject(ctx, workflow.CreateProjectInput{Title: "", Priority: 3})
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestCreateProject_NotifiesNonAdmins(t *testing.T) {
	svc, st, pub := newTestService(t)
	ctx := context.Background()

	addEmployee(t, st, "Ada", 4.0, false)
	addEmployee(t, st, "Brian", 4.5, false)
	addEmployee(t, st, "Root", 5.0, true)

	project, notified, err := svc.CreateProject(ctx, workflow.CreateProjectInput{
		Title:    "API rework",
		Priority: 3,
	})
	require.NoError(t, err)
	require.Equal(t, 2, notified)
	require.Equal(t, model.ProjectStatusPending, project.Status)

	notifications, err := st.GetNotificationsByProject(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, notifications, 2)

	require.Contains(t, pub.topics(), model.TopicProjectUpdated)
	require.Contains(t, pub.topics(), model.TopicNotificationUpdated)
}

func TestDispatch_IdempotentPerProject(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	addEmployee(t, st, "Ada", 4.0, false)

	project, notified, err := svc.CreateProject(ctx, workflow.CreateProjectInput{
		Title:    "API rework",
		Priority: 3,
	})
	require.NoError(t, err)
	require.Equal(t, 1, notified)

	again, err := svc.Dispatch(ctx, *project)
	require.NoError(t, err)
	require.Equal(t, 0, again)

	notifications, err := st.GetNotificationsByProject(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
}

func TestDispatch_AnnouncesOnlyNewNotifications(t *testing.T) {
	svc, st, pub := newTestService(t)
	ctx := context.Background()

	ada := addEmployee(t, st, "Ada", 4.0, false)

	project, _, err := svc.CreateProject(ctx, workflow.CreateProjectInput{
		Title:    "API rework",
		Priority: 3,
	})
	require.NoError(t, err)

	countNotificationEvents := func() int {
		count := 0
		for _, topic := range pub.topics() {
			if topic == model.TopicNotificationUpdated {
				count++
			}
		}
		return count
	}
	require.Equal(t, 1, countNotificationEvents())

	// Re-dispatching with no new hires announces nothing.
	notified, err := svc.Dispatch(ctx, *project)
	require.NoError(t, err)
	require.Equal(t, 0, notified)
	require.Equal(t, 1, countNotificationEvents())

	// A hire after the first dispatch gets exactly one announcement, and
	// Ada's existing notification is not re-announced alongside it.
	brian := addEmployee(t, st, "Brian", 4.5, false)
	notified, err = svc.Dispatch(ctx, *project)
	require.NoError(t, err)
	require.Equal(t, 1, notified)
	require.Equal(t, 2, countNotificationEvents())

	require.NotNil(t, notificationFor(t, st, project.ID, ada.ID))
	require.NotNil(t, notificationFor(t, st, project.ID, brian.ID))
}

func TestRespond_OwnershipAndValidation(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	ada := addEmployee(t, st, "Ada", 4.0, false)
	brian := addEmployee(t, st, "Brian", 4.5, false)

	project, _, err := svc.CreateProject(ctx, workflow.CreateProjectInput{
		Title:    "API rework",
		Priority: 3,
	})
	require.NoError(t, err)

	n := notificationFor(t, st, project.ID, ada.ID)

	_, err = svc.Respond(ctx, n.ID, ada.ID, "maybe")
	require.ErrorIs(t, err, model.ErrValidation)

	_, err = svc.Respond(ctx, n.ID, brian.ID, model.ResponseAccept)
	require.ErrorIs(t, err, model.ErrForbidden)

	_, err = svc.Respond(ctx, "missing", ada.ID, model.ResponseAccept)
	require.ErrorIs(t, err, model.ErrNotFound)

	updated, err := svc.Respond(ctx, n.ID, ada.ID, model.ResponseAccept)
	require.NoError(t, err)
	require.Equal(t, model.NotificationStatusAccepted, updated.Status)
	require.NotNil(t, updated.RespondedAt)

	// No retracting, no re-accepting.
	_, err = svc.Respond(ctx, n.ID, ada.ID, model.ResponseReject)
	require.ErrorIs(t, err, model.ErrConflict)
}

func TestFinalize_SelectsHighestRating(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	ada := addEmployee(t, st, "Ada", 4.0, false)
	brian := addEmployee(t, st, "Brian", 4.5, false)

	project, _, err := svc.CreateProject(ctx, workflow.CreateProjectInput{
		Title:    "API rework",
		Priority: 3,
	})
	require.NoError(t, err)

	aNotif := notificationFor(t, st, project.ID, ada.ID)
	bNotif := notificationFor(t, st, project.ID, brian.ID)

	_, err = svc.Respond(ctx, aNotif.ID, ada.ID, model.ResponseAccept)
	require.NoError(t, err)
	_, err = svc.Respond(ctx, bNotif.ID, brian.ID, model.ResponseAccept)
	require.NoError(t, err)

	result, err := svc.Finalize(ctx, project.ID, "admin")
	require.NoError(t, err)
	require.Equal(t, brian.ID, result.Employee.ID)
	require.InDelta(t, 4.5, result.Rating, 0.001)
	require.Equal(t, model.ProjectStatusInProgress, result.Project.Status)
	require.NotNil(t, result.Project.AssignedEmployeeID)
	require.Equal(t, brian.ID, *result.Project.AssignedEmployeeID)

	require.Equal(t, model.NotificationStatusSuperseded, notificationFor(t, st, project.ID, ada.ID).Status)
	require.Equal(t, model.NotificationStatusAssigned, notificationFor(t, st, project.ID, brian.ID).Status)
}

func TestFinalize_TieBreakEarliestAcceptance(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	low := addEmployee(t, st, "Low", 3.2, false)
	b := addEmployee(t, st, "B", 4.8, false)
	c := addEmployee(t, st, "C", 4.8, false)

	project, _, err := svc.CreateProject(ctx, workflow.CreateProjectInput{
		Title:    "API rework",
		Priority: 3,
	})
	require.NoError(t, err)

	// Acceptance order: low, then B, then C. B and C tie on rating;
	// the earlier acceptor wins.
	for _, emp := range []*model.Employee{low, b, c} {
		n := notificationFor(t, st, project.ID, emp.ID)
		_, err = svc.Respond(ctx, n.ID, emp.ID, model.ResponseAccept)
		require.NoError(t, err)
	}

	result, err := svc.Finalize(ctx, project.ID, "admin")
	require.NoError(t, err)
	require.Equal(t, b.ID, result.Employee.ID)
}

func TestFinalize_NoCandidatesLeavesProjectPending(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	ada := addEmployee(t, st, "Ada", 4.0, false)

	project, _, err := svc.CreateProject(ctx, workflow.CreateProjectInput{
		Title:    "API rework",
		Priority: 3,
	})
	require.NoError(t, err)

	_, err = svc.Finalize(ctx, project.ID, "admin")
	require.ErrorIs(t, err, model.ErrNoCandidates)

	// A rejection is not a candidacy either.
	n := notificationFor(t, st, project.ID, ada.ID)
	_, err = svc.Respond(ctx, n.ID, ada.ID, model.ResponseReject)
	require.NoError(t, err)

	_, err = svc.Finalize(ctx, project.ID, "admin")
	require.ErrorIs(t, err, model.ErrNoCandidates)

	got, err := st.GetProjectByID(ctx, project.ID)
	require.NoError(t, err)
	require.Equal(t, model.ProjectStatusPending, got.Status)
	require.Nil(t, got.AssignedEmployeeID)
}

func TestFinalize_SecondCallConflicts(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	ada := addEmployee(t, st, "Ada", 4.0, false)

	project, _, err := svc.CreateProject(ctx, workflow.CreateProjectInput{
		Title:    "API rework",
		Priority: 3,
	})
	require.NoError(t, err)

	n := notificationFor(t, st, project.ID, ada.ID)
	_, err = svc.Respond(ctx, n.ID, ada.ID, model.ResponseAccept)
	require.NoError(t, err)

	first, err := svc.Finalize(ctx, project.ID, "admin")
	require.NoError(t, err)

	_, err = svc.Finalize(ctx, project.ID, "admin")
	require.ErrorIs(t, err, model.ErrConflict)

	// The losing call changed nothing.
	got, err := st.GetProjectByID(ctx, project.ID)
	require.NoError(t, err)
	require.Equal(t, first.Project.Status, got.Status)
	require.Equal(t, *first.Project.AssignedEmployeeID, *got.AssignedEmployeeID)

	_, err = svc.Finalize(ctx, "missing", "admin")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestFinalize_ConcurrentExactlyOneWinner(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	ada := addEmployee(t, st, "Ada", 4.0, false)
	brian := addEmployee(t, st, "Brian", 4.5, false)

	project, _, err := svc.CreateProject(ctx, workflow.CreateProjectInput{
		Title:    "API rework",
		Priority: 3,
	})
	require.NoError(t, err)

	for _, emp := range []*model.Employee{ada, brian} {
		n := notificationFor(t, st, project.ID, emp.ID)
		_, err = svc.Respond(ctx, n.ID, emp.ID, model.ResponseAccept)
		require.NoError(t, err)
	}

	const callers = 8
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Finalize(ctx, project.ID, "admin")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, model.ErrConflict)
		}
	}
	require.Equal(t, 1, succeeded)

	got, err := st.GetProjectByID(ctx, project.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AssignedEmployeeID)
	require.Equal(t, brian.ID, *got.AssignedEmployeeID)
}

func TestSetRating_BoundsAndVisibility(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	ada := addEmployee(t, st, "Ada", 4.0, false)
	brian := addEmployee(t, st, "Brian", 4.5, false)

	_, err := svc.SetRating(ctx, ada.ID, 6.0)
	require.ErrorIs(t, err, model.ErrValidation)
	_, err = svc.SetRating(ctx, ada.ID, 0.5)
	require.ErrorIs(t, err, model.ErrValidation)
	_, err = svc.SetRating(ctx, "missing", 3.7)
	require.ErrorIs(t, err, model.ErrNotFound)

	project, _, err := svc.CreateProject(ctx, workflow.CreateProjectInput{
		Title:    "API rework",
		Priority: 3,
	})
	require.NoError(t, err)

	for _, emp := range []*model.Employee{ada, brian} {
		n := notificationFor(t, st, project.ID, emp.ID)
		_, err = svc.Respond(ctx, n.ID, emp.ID, model.ResponseAccept)
		require.NoError(t, err)
	}

	// Raising Ada's rating after dispatch flips the outcome: finalize
	// reads the latest value, not a dispatch-time snapshot.
	updated, err := svc.SetRating(ctx, ada.ID, 4.9)
	require.NoError(t, err)
	require.InDelta(t, 4.9, updated.Rating, 0.001)

	result, err := svc.Finalize(ctx, project.ID, "admin")
	require.NoError(t, err)
	require.Equal(t, ada.ID, result.Employee.ID)
	require.InDelta(t, 4.9, result.Rating, 0.001)
}

func TestUpdateStatus_StateMachine(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	ada := addEmployee(t, st, "Ada", 4.0, false)

	project, _, err := svc.CreateProject(ctx, workflow.CreateProjectInput{
		Title:    "API rework",
		Priority: 3,
	})
	require.NoError(t, err)

	// pending leaves only through finalize.
	_, err = svc.UpdateStatus(ctx, project.ID, model.ProjectStatusInProgress)
	require.ErrorIs(t, err, model.ErrInvalidTransition)
	_, err = svc.UpdateStatus(ctx, project.ID, model.ProjectStatusCompleted)
	require.ErrorIs(t, err, model.ErrInvalidTransition)

	_, err = svc.UpdateStatus(ctx, project.ID, "archived")
	require.ErrorIs(t, err, model.ErrValidation)

	_, err = svc.UpdateStatus(ctx, "missing", model.ProjectStatusBlocked)
	require.ErrorIs(t, err, model.ErrNotFound)

	n := notificationFor(t, st, project.ID, ada.ID)
	_, err = svc.Respond(ctx, n.ID, ada.ID, model.ResponseAccept)
	require.NoError(t, err)
	_, err = svc.Finalize(ctx, project.ID, "admin")
	require.NoError(t, err)

	// in_progress <-> blocked, blocked must resume before completing.
	p, err := svc.UpdateStatus(ctx, project.ID, model.ProjectStatusBlocked)
	require.NoError(t, err)
	require.Equal(t, model.ProjectStatusBlocked, p.Status)

	_, err = svc.UpdateStatus(ctx, project.ID, model.ProjectStatusCompleted)
	require.ErrorIs(t, err, model.ErrInvalidTransition)

	p, err = svc.UpdateStatus(ctx, project.ID, model.ProjectStatusInProgress)
	require.NoError(t, err)
	require.Equal(t, model.ProjectStatusInProgress, p.Status)

	p, err = svc.UpdateStatus(ctx, project.ID, model.ProjectStatusCompleted)
	require.NoError(t, err)
	require.Equal(t, model.ProjectStatusCompleted, p.Status)

	// completed is terminal.
	_, err = svc.UpdateStatus(ctx, project.ID, model.ProjectStatusInProgress)
	require.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestDeleteEmployee_RemovesFromCandidacy(t *testing.T) {
	svc, st, pub := newTestService(t)
	ctx := context.Background()

	ada := addEmployee(t, st, "Ada", 4.0, false)
	brian := addEmployee(t, st, "Brian", 4.9, false)

	project, _, err := svc.CreateProject(ctx, workflow.CreateProjectInput{
		Title:    "API rework",
		Priority: 3,
	})
	require.NoError(t, err)

	for _, emp := range []*model.Employee{ada, brian} {
		n := notificationFor(t, st, project.ID, emp.ID)
		_, err = svc.Respond(ctx, n.ID, emp.ID, model.ResponseAccept)
		require.NoError(t, err)
	}

	// The top-rated acceptor leaves the company before finalize.
	require.NoError(t, svc.DeleteEmployee(ctx, brian.ID))
	require.Contains(t, pub.topics(), model.TopicNotificationUpdated)

	result, err := svc.Finalize(ctx, project.ID, "admin")
	require.NoError(t, err)
	require.Equal(t, ada.ID, result.Employee.ID)

	require.ErrorIs(t, svc.DeleteEmployee(ctx, "missing"), model.ErrNotFound)
}

func TestEndToEndScenario(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	a := addEmployee(t, st, "A", 4.0, false)
	b := addEmployee(t, st, "B", 4.5, false)

	project, notified, err := svc.CreateProject(ctx, workflow.CreateProjectInput{
		Title:    "Priority three project",
		Priority: 3,
	})
	require.NoError(t, err)
	require.Equal(t, 2, notified)

	aNotif := notificationFor(t, st, project.ID, a.ID)
	bNotif := notificationFor(t, st, project.ID, b.ID)
	_, err = svc.Respond(ctx, aNotif.ID, a.ID, model.ResponseAccept)
	require.NoError(t, err)
	_, err = svc.Respond(ctx, bNotif.ID, b.ID, model.ResponseAccept)
	require.NoError(t, err)

	result, err := svc.Finalize(ctx, project.ID, "admin")
	require.NoError(t, err)
	require.Equal(t, b.ID, result.Employee.ID)

	got, err := st.GetProjectByID(ctx, project.ID)
	require.NoError(t, err)
	require.Equal(t, model.ProjectStatusInProgress, got.Status)
	require.Equal(t, b.ID, *got.AssignedEmployeeID)
	require.Equal(t, model.NotificationStatusSuperseded, notificationFor(t, st, project.ID, a.ID).Status)
}
