package model

import "errors"

// Error kinds shared across the store, workflow, and transport layers.
// Callers classify failures with errors.Is; every error returned by the
// service wraps exactly one of these sentinels.
var (
	// ErrValidation marks malformed input. Never retried.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a reference to an absent entity.
	ErrNotFound = errors.New("not found")

	// ErrForbidden marks an actor acting on an entity it does not own.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict marks a request that lost a race: the entity's state
	// changed concurrently and the transition is no longer valid. Callers
	// should re-fetch before retrying, never replay the stale request.
	ErrConflict = errors.New("conflict")

	// ErrInvalidTransition marks a project status change the state
	// machine does not permit.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNoCandidates marks a finalize attempt with zero accepted
	// notifications.
	ErrNoCandidates = errors.New("no accepted candidates")
)
