package trainer

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is returned when no user is attached to the request.
	ErrUnauthenticated = errors.New("trainer: unauthenticated")
	// ErrNotFound is returned when the drill queue entry does not exist or belongs to another user.
	ErrNotFound = errors.New("trainer: drill queue entry not found")
	// ErrConflict is returned when another submission advanced the same entry first.
	ErrConflict = errors.New("trainer: drill queue entry was answered concurrently")
)

// ValidationError reports a malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PersistenceError reports a storage failure. Nothing was written when it is returned from Submit.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Stage is a step of handling one submission.
type Stage string

const (
	StageValidating  Stage = "validating"
	StageAuthorizing Stage = "authorizing"
	StagePersisting  Stage = "persisting"
	StageAggregating Stage = "aggregating"
)
