package database

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotInitialized is returned by the Get* accessors before a backend is registered.
var ErrNotInitialized = errors.New("PostgreSQL backend not initialized: DATABASE_URL is required")

var (
	postgresStudentWriter    func() StudentWriter
	postgresGroupWriter      func() GroupWriter
	postgresEnrollmentWriter func() EnrollmentWriter
	postgresAttendanceWriter func() AttendanceWriter
	postgresInitialized      bool
)

// RegisterPostgresBackend registers PostgreSQL repository constructors.
// This is called by the serve/CLI commands to avoid import cycles.
// Passing nil constructors deregisters the backend (used by tests).
func RegisterPostgresBackend(
	students func() StudentWriter,
	groups func() GroupWriter,
	enrollments func() EnrollmentWriter,
	attendance func() AttendanceWriter,
) {
	postgresStudentWriter = students
	postgresGroupWriter = groups
	postgresEnrollmentWriter = enrollments
	postgresAttendanceWriter = attendance
	postgresInitialized = students != nil || groups != nil || enrollments != nil || attendance != nil
}

// GetStudentWriter returns a StudentWriter from the PostgreSQL backend
func GetStudentWriter(ctx context.Context) (StudentWriter, error) {
	if !postgresInitialized {
		return nil, ErrNotInitialized
	}
	if postgresStudentWriter == nil {
		return nil, fmt.Errorf("PostgreSQL student writer not registered")
	}
	return postgresStudentWriter(), nil
}

// GetGroupWriter returns a GroupWriter from the PostgreSQL backend
func GetGroupWriter(ctx context.Context) (GroupWriter, error) {
	if !postgresInitialized {
		return nil, ErrNotInitialized
	}
	if postgresGroupWriter == nil {
		return nil, fmt.Errorf("PostgreSQL group writer not registered")
	}
	return postgresGroupWriter(), nil
}

// GetEnrollmentWriter returns an EnrollmentWriter from the PostgreSQL backend
func GetEnrollmentWriter(ctx context.Context) (EnrollmentWriter, error) {
	if !postgresInitialized {
		return nil, ErrNotInitialized
	}
	if postgresEnrollmentWriter == nil {
		return nil, fmt.Errorf("PostgreSQL enrollment writer not registered")
	}
	return postgresEnrollmentWriter(), nil
}

// GetAttendanceWriter returns an AttendanceWriter from the PostgreSQL backend
func GetAttendanceWriter(ctx context.Context) (AttendanceWriter, error) {
	if !postgresInitialized {
		return nil, ErrNotInitialized
	}
	if postgresAttendanceWriter == nil {
		return nil, fmt.Errorf("PostgreSQL attendance writer not registered")
	}
	return postgresAttendanceWriter(), nil
}
