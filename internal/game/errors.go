package game

import "errors"

var (
	// ErrIllegalAction is returned when an action is rejected at the boundary.
	// The match state is left untouched.
	ErrIllegalAction = errors.New("illegal action")

	// ErrInvariantViolation marks an internal inconsistency detected while
	// resolving an action. The match is aborted when it is returned.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrMatchNotFound is returned for unknown match ids.
	ErrMatchNotFound = errors.New("match not found")

	// ErrMatchOver is returned for actions sent to a finished or aborted match.
	ErrMatchOver = errors.New("match is over")

	// ErrTooManyMatches is returned by CreateMatch when the engine is full.
	ErrTooManyMatches = errors.New("too many active matches")
)
