package database

import (
	"errors"
	"time"
)

var (
	// ErrDuplicate is returned when a unique key (student ID, group name) already exists.
	ErrDuplicate = errors.New("already exists")
	// ErrNotFound is returned by update/delete operations on missing rows.
	ErrNotFound = errors.New("not found")
)

// Enrollment status values
const (
	EnrollmentOK     = "ok"      // embedding extracted from the reference photo
	EnrollmentNoFace = "no_face" // no face detected in the reference photo
	EnrollmentFailed = "failed"  // extraction failed (embedding server error, unreadable photo)
)

// Group is an optional class/cohort students are registered under
type Group struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
}

// Student represents a registered student
type Student struct {
	ID        int64  // Database row ID, defines registration order
	StudentID string // External unique identifier
	FirstName string
	LastName  string
	GroupID   int64 // 0 if not assigned to a group
	PhotoPath string
	CreatedAt time.Time
}

// FullName returns "First Last".
func (s *Student) FullName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// StoredEnrollment is the reference face embedding of a student
type StoredEnrollment struct {
	StudentID string
	Embedding []float32 // nil unless Status is EnrollmentOK
	Status    string
	Model     string
	Dim       int
	BBox      []float64 // [x1, y1, x2, y2] in raw pixel coordinates
	DetScore  float64
	UpdatedAt time.Time
}

// Usable reports whether the enrollment carries an embedding that can be compared.
func (e *StoredEnrollment) Usable() bool {
	return e.Status == EnrollmentOK && len(e.Embedding) > 0
}

// AttendanceRecord is one successful attendance check
type AttendanceRecord struct {
	ID         string // UUID
	StudentID  string
	GroupID    int64 // group the check was restricted to, 0 if none
	Distance   float64
	Model      string
	RecordedAt time.Time
}

// StudentFilter narrows ListStudents results
type StudentFilter struct {
	GroupID int64  // 0 = all groups
	Query   string // matched against normalized first/last name and student ID
}

// AttendanceFilter narrows ListAttendance results
type AttendanceFilter struct {
	StudentID string
	GroupID   int64
	Since     time.Time
	Until     time.Time
	Limit     int
}

// EnrollmentStats summarizes enrollment coverage
type EnrollmentStats struct {
	Total  int
	OK     int
	NoFace int
	Failed int
}
