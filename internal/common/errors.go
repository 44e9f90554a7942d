// Package common defines shared sentinel errors and small helpers used across
// the session-state components. Callers should use errors.Is to match the
// sentinel values and errors.As to unwrap StorageError.
package common

import (
	"errors"
	"fmt"
)

var (
	// Validation errors.
	ErrInvalidUserData = errors.New("invalid user data")

	// Session-state errors.
	ErrNotSignedIn = errors.New("not signed in")

	// ErrBackendSwapped marks a result produced against a storage backend
	// that was replaced while the operation was in flight. The result is
	// discarded; the error is logged, never returned to callers.
	ErrBackendSwapped = errors.New("storage backend swapped")
)

// StorageError wraps a failure reported by a storage backend. Op names the
// backend operation (e.g. "SaveUser") so logs can tell write paths apart.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps err into a StorageError for the given operation.
// A nil err returns nil so call sites can wrap unconditionally.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// IsStorageError reports whether err is (or wraps) a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
