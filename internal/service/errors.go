package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrKidNotFound is returned when a kid does not exist or belongs to someone else
	ErrKidNotFound = errors.New("kid not found")
	// ErrSelectionLocked is returned when a selection is inside the lock window or no longer exists
	ErrSelectionLocked = errors.New("selection can no longer be modified")
	// ErrSelectionNotFound is returned when a selection does not belong to the kid in the request
	ErrSelectionNotFound = errors.New("selection not found")
	ErrMenuItemNotFound  = errors.New("menu item not found")
	ErrHolidayNotFound   = errors.New("holiday not found")
	ErrHolidayExists     = errors.New("a holiday already exists on that date")

	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
	ErrUserNotFound       = errors.New("user not found")
	ErrForbidden          = errors.New("admin access required")
)

var domainErrors = []error{
	ErrKidNotFound, ErrSelectionLocked, ErrSelectionNotFound, ErrMenuItemNotFound,
	ErrHolidayNotFound, ErrHolidayExists, ErrUsernameTaken, ErrInvalidCredentials,
	ErrSessionNotFound, ErrSessionExpired, ErrUserNotFound, ErrForbidden,
}

// ValidationError reports malformed input, keyed by field name
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func invalidField(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// invalidFields returns nil for an empty map so callers can write `if err := invalidFields(...); err != nil`
func invalidFields(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// RepositoryError wraps a storage failure
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// storeErr leaves domain errors untouched and wraps everything else as a RepositoryError.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var repoErr *RepositoryError
	var valErr *ValidationError
	if errors.As(err, &repoErr) || errors.As(err, &valErr) {
		return err
	}
	for _, domain := range domainErrors {
		if errors.Is(err, domain) {
			return err
		}
	}
	return &RepositoryError{Op: op, Err: err}
}
