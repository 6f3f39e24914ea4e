package database

import (
	"context"
	"time"
)

// StudentReader provides read-only access to students
type StudentReader interface {
	// GetStudent retrieves a student by student ID, returns nil if not found
	GetStudent(ctx context.Context, studentID string) (*Student, error)
	// ListStudents returns students in registration order
	ListStudents(ctx context.Context, filter StudentFilter) ([]Student, error)
	// CountStudents returns the total number of registered students
	CountStudents(ctx context.Context) (int, error)
}

// StudentWriter provides write access to students
type StudentWriter interface {
	StudentReader

	// CreateStudent inserts a student, returns ErrDuplicate if the student ID exists
	CreateStudent(ctx context.Context, student *Student) error
	// SetStudentGroup assigns a student to a group (0 removes the assignment)
	SetStudentGroup(ctx context.Context, studentID string, groupID int64) error
	// DeleteStudent removes a student together with its enrollment
	DeleteStudent(ctx context.Context, studentID string) error
}

// GroupReader provides read-only access to groups
type GroupReader interface {
	// GetGroup retrieves a group by ID, returns nil if not found
	GetGroup(ctx context.Context, id int64) (*Group, error)
	// GetGroupByName retrieves a group by its unique name, returns nil if not found
	GetGroupByName(ctx context.Context, name string) (*Group, error)
	// ListGroups returns all groups ordered by name
	ListGroups(ctx context.Context) ([]Group, error)
}

// GroupWriter provides write access to groups
type GroupWriter interface {
	GroupReader

	// CreateGroup inserts a group, returns ErrDuplicate if the name exists
	CreateGroup(ctx context.Context, group *Group) error
	// UpdateGroup changes name and description of a group
	UpdateGroup(ctx context.Context, group *Group) error
	// DeleteGroup removes a group; its students stay registered without a group
	DeleteGroup(ctx context.Context, id int64) error
}

// EnrollmentReader provides the enrollment lookup the matcher scans
type EnrollmentReader interface {
	// GetEnrollment retrieves the enrollment of a student, returns nil if not found
	GetEnrollment(ctx context.Context, studentID string) (*StoredEnrollment, error)
	// ListEnrollments returns enrollments in student registration order.
	// A groupID of 0 returns enrollments of all students.
	ListEnrollments(ctx context.Context, groupID int64) ([]StoredEnrollment, error)
	// NearestEnrollments returns usable enrollments ordered by distance to the embedding
	NearestEnrollments(ctx context.Context, embedding []float32, metric string, limit int) ([]StoredEnrollment, []float64, error)
	// EnrollmentStats returns enrollment counts by status
	EnrollmentStats(ctx context.Context) (EnrollmentStats, error)
}

// EnrollmentWriter provides write access to enrollments
type EnrollmentWriter interface {
	EnrollmentReader

	// SaveEnrollment stores the enrollment of a student (replaces any existing one)
	SaveEnrollment(ctx context.Context, enrollment *StoredEnrollment) error
	// ListStudentsNeedingEnrollment returns students without a usable enrollment for the model
	ListStudentsNeedingEnrollment(ctx context.Context, model string) ([]Student, error)
}

// AttendanceReader provides read-only access to attendance records
type AttendanceReader interface {
	// ListAttendance returns records newest first
	ListAttendance(ctx context.Context, filter AttendanceFilter) ([]AttendanceRecord, error)
	// CountAttendanceSince returns the number of records of a student since the given time
	CountAttendanceSince(ctx context.Context, studentID string, since time.Time) (int, error)
}

// AttendanceWriter provides write access to attendance records
type AttendanceWriter interface {
	AttendanceReader

	// RecordAttendance stores a record
	RecordAttendance(ctx context.Context, record *AttendanceRecord) error
}
