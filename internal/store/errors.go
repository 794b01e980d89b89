package store

import (
	"errors"
	"fmt"
)

// Sentinel errors matched via errors.Is against the typed errors below.
var (
	ErrNotFound         = errors.New("task not found")
	ErrConflict         = errors.New("conflict")
	ErrInvariantViolated = errors.New("invariant violation")
	ErrCycleDetected    = errors.New("cycle detected")
	ErrEmptyQuery       = errors.New("empty search query")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// NotFoundError reports that a named task does not exist.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task %q not found", e.Name)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConflictError reports a rejected write due to the current row state:
// duplicate name, already claimed by another assignee, wrong assignee on
// release, or a status precondition violated by the requested transition.
type ConflictError struct {
	Name   string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("task %q: %s", e.Name, e.Reason)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// InvariantViolationError reports a write that would break a data-model
// invariant that isn't framed as a conflict or cycle: self-block, the
// mutually exclusive paused+claim flags, an empty or invalid name.
type InvariantViolationError struct {
	Reason string
}

func (e *InvariantViolationError) Error() string { return e.Reason }

func (e *InvariantViolationError) Is(target error) bool { return target == ErrInvariantViolated }

// CycleDetectedError reports a rejected parent or block-edge write that
// would introduce a cycle.
type CycleDetectedError struct {
	Reason string
}

func (e *CycleDetectedError) Error() string { return e.Reason }

func (e *CycleDetectedError) Is(target error) bool { return target == ErrCycleDetected }

// EmptyQueryError reports a search query that sanitized down to zero
// tokens.
type EmptyQueryError struct{}

func (e *EmptyQueryError) Error() string { return "empty search query" }

func (e *EmptyQueryError) Is(target error) bool { return target == ErrEmptyQuery }

// StoreUnavailableError wraps an underlying storage error that doesn't
// match any of the named taxonomy members (disk errors, corruption, a
// busy timeout that elapsed).
type StoreUnavailableError struct {
	Cause error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable: %v", e.Cause)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Cause }

func (e *StoreUnavailableError) Is(target error) bool { return target == ErrStoreUnavailable }

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
