package memory

import (
	"errors"
	"fmt"
)

var (
	errNotFound = errors.New("not found")
	errClosed   = errors.New("store closed")
)

// Error implements repositories.RepositoryError for the in-memory stores.
type Error struct {
	op          string
	err         error
	notFound    bool
	conflict    bool
	unavailable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.op != "" {
		return fmt.Sprintf("%s: %v", e.op, e.err)
	}
	return e.err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// IsNotFound reports whether the error represents a missing record.
func (e *Error) IsNotFound() bool {
	return e != nil && e.notFound
}

// IsConflict reports whether the error represents a conflicting write.
func (e *Error) IsConflict() bool {
	return e != nil && e.conflict
}

// IsUnavailable reports whether the store cannot serve requests.
func (e *Error) IsUnavailable() bool {
	return e != nil && e.unavailable
}

func notFound(op, format string, args ...any) *Error {
	return &Error{op: op, err: fmt.Errorf("%w: %s", errNotFound, fmt.Sprintf(format, args...)), notFound: true}
}

func conflict(op, format string, args ...any) *Error {
	return &Error{op: op, err: fmt.Errorf(format, args...), conflict: true}
}

func unavailable(op string) *Error {
	return &Error{op: op, err: errClosed, unavailable: true}
}
