package store

import (
	"errors"
	"fmt"
)

// ConnectionError reports that a connection could not be opened after the
// configured number of attempts. Err is the cause of the last attempt.
type ConnectionError struct {
	Target   string
	Attempts int
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("unable to open database connection to %s after %d attempts: %v", e.Target, e.Attempts, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ExecutionError reports that the database rejected a statement or that its
// parameters could not be bound. Execution errors are never retried.
type ExecutionError struct {
	Op    string
	Query string
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %v (query=%q)", e.Op, e.Err, e.Query)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// BatchField names the BatchItem field a MissingFieldError refers to.
type BatchField string

const (
	FieldQuery  BatchField = "query"
	FieldID     BatchField = "id"
	FieldParams BatchField = "params"
	FieldKind   BatchField = "kind"
)

// MissingFieldError reports a structurally incomplete batch item.
// Index is the item's position in the batch.
type MissingFieldError struct {
	Index   int
	ID      int
	Field   BatchField
	Message string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("batch item %d (id=%d): %s: %s", e.Index, e.ID, e.Field, e.Message)
}

// DuplicateKeyError reports a batch item whose id was already used by an
// earlier item.
type DuplicateKeyError struct {
	Index int
	ID    int
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("batch item %d: the key supplied already exists; ids must be unique within a batch (id=%d)", e.Index, e.ID)
}

// IsConnectionError returns true if err is or wraps a *ConnectionError.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// IsExecutionError returns true if err is or wraps an *ExecutionError.
func IsExecutionError(err error) bool {
	var ee *ExecutionError
	return errors.As(err, &ee)
}

// IsMissingFieldError returns true if err is or wraps a *MissingFieldError.
func IsMissingFieldError(err error) bool {
	var me *MissingFieldError
	return errors.As(err, &me)
}

// IsDuplicateKeyError returns true if err is or wraps a *DuplicateKeyError.
func IsDuplicateKeyError(err error) bool {
	var de *DuplicateKeyError
	return errors.As(err, &de)
}
