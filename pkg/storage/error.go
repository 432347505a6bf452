package storage

import (
	"errors"
	"fmt"
)

// Error represents an underlying persistence failure. Callers must be able
// to tell "could not persist" apart from "not allowed", so every store wraps
// database errors in this type and never returns raw driver errors or
// authorization reasons through the same channel.
type Error struct {
	Op  string // logical operation, e.g. "grants.set"
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage failure in %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WrapError wraps err as a storage Error for the given operation. A nil err
// returns nil.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// IsStorageError reports whether err is (or wraps) a storage Error.
func IsStorageError(err error) bool {
	var se *Error
	return errors.As(err, &se)
}
