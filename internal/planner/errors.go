package planner

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrTaskNotFound   = errors.New("task not found")
	ErrAlreadyEditing = errors.New("task is already being edited")
	ErrNotEditing     = errors.New("task is not being edited")
)

// ValidationError reports user input that was rejected before anything
// was stored.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// SlotOccupiedError is returned when a task is moved onto an hour that
// already has a different active task. The moved task keeps its prior
// location.
type SlotOccupiedError struct {
	Hour       int
	OccupantID string
	TaskID     string
}

func (e *SlotOccupiedError) Error() string {
	return fmt.Sprintf("time slot %02d:00 is already occupied by %s", e.Hour, e.OccupantID)
}

// PersistError means a mutation was applied in memory but could not be
// written to the blob. The in-memory state stays authoritative for the
// session.
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("saving tasks: %v", e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsSlotOccupied reports whether err is a *SlotOccupiedError.
func IsSlotOccupied(err error) bool {
	var se *SlotOccupiedError
	return errors.As(err, &se)
}

// IsPersist reports whether err is a *PersistError.
func IsPersist(err error) bool {
	var pe *PersistError
	return errors.As(err, &pe)
}
