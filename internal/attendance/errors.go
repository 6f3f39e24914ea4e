package attendance

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned for missing fields and unreadable photos.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStudentExists is returned when registering a student ID that is already taken.
	ErrStudentExists = errors.New("student ID already exists")
	// ErrStudentNotFound is returned when an operation names an unknown student.
	ErrStudentNotFound = errors.New("student not found")
	// ErrGroupNotFound is returned when an operation names an unknown group.
	ErrGroupNotFound = errors.New("group not found")
)

// NoMatchError is returned by MarkAttendance when no enrolled face is close enough.
type NoMatchError struct {
	Distance float64 // closest distance seen
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("face did not match, closest distance: %.3f", e.Distance)
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
