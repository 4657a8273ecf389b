package workflow

import "github.com/nhle/dev-tracker/internal/model"

// directTransitions is the project status state machine for admin-driven
// updates. pending never appears as a source: the only way out of pending is
// a finalized assignment. blocked work must return to in_progress before it
// can complete, and completed is terminal.
var directTransitions = map[string]map[string]bool{
	model.ProjectStatusInProgress: {
		model.ProjectStatusBlocked:   true,
		model.ProjectStatusCompleted: true,
	},
	model.ProjectStatusBlocked: {
		model.ProjectStatusInProgress: true,
	},
}

// canTransition reports whether a direct status update from one status to
// another is permitted.
func canTransition(from, to string) bool {
	return directTransitions[from][to]
}
