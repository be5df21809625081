package core

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks bad input: ranges, enums, missing fields.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a referenced order, item, coupon or account that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState marks an operation attempted on an order in a terminal status.
	ErrInvalidState = errors.New("invalid order state")
	// ErrDependency marks an unreachable store or notification channel.
	ErrDependency = errors.New("dependency unavailable")
	// ErrConflict marks a uniqueness violation such as a duplicate phone number or coupon code.
	ErrConflict = errors.New("already exists")
	// ErrForbidden marks a principal acting outside its role or assigned tables.
	ErrForbidden = errors.New("forbidden")
)

// Validationf wraps ErrValidation with a formatted reason.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf wraps ErrNotFound with a formatted reason.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// InvalidStatef wraps ErrInvalidState with a formatted reason.
func InvalidStatef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

// Dependency wraps err as a dependency failure of the named collaborator.
func Dependency(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDependency, what, err)
}

// Reason strips the sentinel prefix and returns the human-readable part of err.
func Reason(err error) string {
	for _, sentinel := range []error{ErrValidation, ErrNotFound, ErrInvalidState, ErrConflict, ErrForbidden} {
		prefix := sentinel.Error() + ": "
		msg := err.Error()
		if errors.Is(err, sentinel) && len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
			return msg[len(prefix):]
		}
	}
	return err.Error()
}
