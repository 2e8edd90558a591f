package errors

import (
	stderrors "errors"
	"fmt"
)

// StorageError wraps any failure executing a read or write against the store.
// In-memory and persisted state may disagree after one, so it is never swallowed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Storage wraps err as a StorageError for op. A nil err stays nil and an
// existing StorageError is not wrapped twice.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if stderrors.As(err, &se) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return &StorageError{Op: op, Err: err}
}

// ConsistencyError reports a dimension supersession that cannot be resolved
// deterministically, such as two tourney types with conflicting attributes.
type ConsistencyError struct {
	Dimension string
	ID        int64
	Reason    string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency: %s %d: %s", e.Dimension, e.ID, e.Reason)
}

// ConfigurationError reports a malformed or missing configuration value.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

// IsStorage reports whether err is or wraps a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return stderrors.As(err, &se)
}

// IsConsistency reports whether err is or wraps a ConsistencyError.
func IsConsistency(err error) bool {
	var ce *ConsistencyError
	return stderrors.As(err, &ce)
}

// IsConfiguration reports whether err is or wraps a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return stderrors.As(err, &ce)
}
