package store

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyID is returned when an action/transaction/task/anomaly is
	// submitted with an empty id.
	ErrEmptyID = errors.New("store: id must not be empty")
	// ErrMalformedTimestamp is returned when a zero-value timestamp is
	// submitted for an action.
	ErrMalformedTimestamp = errors.New("store: timestamp must be set")
)

// TaskNotFound reports that getTask/updateTask was called with an unknown
// task id.
type TaskNotFound struct {
	TaskID string
}

func (e *TaskNotFound) Error() string {
	return fmt.Sprintf("store: task %q not found", e.TaskID)
}

// TaskAlreadyConfirmed reports a second confirm() call on an already
// confirmed task.
type TaskAlreadyConfirmed struct {
	TaskID string
}

func (e *TaskAlreadyConfirmed) Error() string {
	return fmt.Sprintf("store: task %q is already confirmed", e.TaskID)
}

// TaskExpired reports that confirm() was attempted after the task's
// expiresAt; the store transitions the task to expired as a side effect.
type TaskExpired struct {
	TaskID    string
	ExpiredAt string
}

func (e *TaskExpired) Error() string {
	return fmt.Sprintf("store: task %q expired at %s", e.TaskID, e.ExpiredAt)
}

// InsufficientEvidence reports that confirm() was attempted without every
// key in requiredEvidence present and non-null in providedEvidence.
type InsufficientEvidence struct {
	TaskID  string
	Missing []string
}

func (e *InsufficientEvidence) Error() string {
	return fmt.Sprintf("store: task %q is missing required evidence: %v", e.TaskID, e.Missing)
}

// IllegalTransition reports an attempted task status transition that the
// state machine does not allow.
type IllegalTransition struct {
	TaskID string
	From   TaskStatus
	To     TaskStatus
}

func (e *IllegalTransition) Error() string {
	return fmt.Sprintf("store: task %q cannot transition from %s to %s", e.TaskID, e.From, e.To)
}
