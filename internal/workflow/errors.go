package workflow

import "errors"

// Sentinel errors for rejected transitions. Callers wrap these with context
// and match them with errors.Is.
var (
	// ErrUnauthorized means the actor has no role, or a role that may not act
	// on the entity in its current status.
	ErrUnauthorized = errors.New("not authorized to act on this item")

	// ErrIllegalTransition means the requested target is not a declared edge
	// from the current status.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrNotesRequired means the edge needs a non-empty justification.
	ErrNotesRequired = errors.New("notes required")

	// ErrApprovalRequired means the edge needs a recorded approval of a
	// specific kind and none exists.
	ErrApprovalRequired = errors.New("approval required")

	// ErrNotAssignee means the actor is neither the assignee nor an
	// elevated role.
	ErrNotAssignee = errors.New("not assigned to this item")

	// ErrSegregationOfDuties means the verifier is the same identity that
	// executed or owns the work being verified.
	ErrSegregationOfDuties = errors.New("verifier must differ from executor")

	// ErrIncompleteSteps means a test execution was completed while some
	// steps have no recorded result.
	ErrIncompleteSteps = errors.New("every test step needs a recorded result")

	// ErrInvalidInput means a request field is missing or out of range.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStepOutcomeMismatch means the requested completion status
	// contradicts the recorded step results.
	ErrStepOutcomeMismatch = errors.New("completion status contradicts step results")
)
