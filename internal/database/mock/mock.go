// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/facematch"
	"github.com/kozaktomas/attendance/internal/matcher"
)

// MockStore is an in-memory implementation of the student, group, enrollment
// and attendance writers. It keeps the relational behavior of the PostgreSQL
// backend: deleting a student removes its enrollment and records, deleting a
// group unassigns its students.
type MockStore struct {
	mu          sync.RWMutex
	nextID      int64
	students    []*database.Student // registration order
	groups      map[int64]*database.Group
	enrollments map[string]*database.StoredEnrollment
	attendance  []database.AttendanceRecord

	// Error injection
	GetStudentError       error
	ListStudentsError     error
	CreateStudentError    error
	DeleteStudentError    error
	GetGroupError         error
	ListGroupsError       error
	CreateGroupError      error
	GetEnrollmentError    error
	ListEnrollmentsError  error
	NearestError          error
	SaveEnrollmentError   error
	RecordAttendanceError error
	ListAttendanceError   error

	// Call tracking
	SavedEnrollments []database.StoredEnrollment
}

// NewMockStore creates a new empty mock store
func NewMockStore() *MockStore {
	return &MockStore{
		groups:      make(map[int64]*database.Group),
		enrollments: make(map[string]*database.StoredEnrollment),
	}
}

func (m *MockStore) newID() int64 {
	m.nextID++
	return m.nextID
}

func (m *MockStore) findStudent(studentID string) (int, *database.Student) {
	for i, s := range m.students {
		if s.StudentID == studentID {
			return i, s
		}
	}
	return -1, nil
}

// AddStudent adds a student directly, bypassing duplicate checks
func (m *MockStore) AddStudent(s database.Student) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.newID()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	m.students = append(m.students, &s)
}

// AddGroup adds a group directly and returns its ID
func (m *MockStore) AddGroup(g database.Group) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	g.ID = m.newID()
	m.groups[g.ID] = &g
	return g.ID
}

// AddEnrollment adds an enrollment directly
func (m *MockStore) AddEnrollment(e database.StoredEnrollment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.Dim = len(e.Embedding)
	m.enrollments[e.StudentID] = &e
}

// AttendanceRecords returns a copy of all stored records in insertion order
func (m *MockStore) AttendanceRecords() []database.AttendanceRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]database.AttendanceRecord(nil), m.attendance...)
}

// GetStudent retrieves a student by student ID
func (m *MockStore) GetStudent(ctx context.Context, studentID string) (*database.Student, error) {
	if m.GetStudentError != nil {
		return nil, m.GetStudentError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, s := m.findStudent(studentID); s != nil {
		copied := *s
		return &copied, nil
	}
	return nil, nil
}

// ListStudents returns students in registration order
func (m *MockStore) ListStudents(ctx context.Context, filter database.StudentFilter) ([]database.Student, error) {
	if m.ListStudentsError != nil {
		return nil, m.ListStudentsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []database.Student
	for _, s := range m.students {
		if filter.GroupID > 0 && s.GroupID != filter.GroupID {
			continue
		}
		if !facematch.MatchesStudentQuery(s.FirstName, s.LastName, s.StudentID, filter.Query) {
			continue
		}
		result = append(result, *s)
	}
	return result, nil
}

// CountStudents returns the number of registered students
func (m *MockStore) CountStudents(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.students), nil
}

// CreateStudent inserts a student
func (m *MockStore) CreateStudent(ctx context.Context, student *database.Student) error {
	if m.CreateStudentError != nil {
		return m.CreateStudentError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, s := m.findStudent(student.StudentID); s != nil {
		return fmt.Errorf("%w: students_student_id_key", database.ErrDuplicate)
	}
	if student.GroupID > 0 && m.groups[student.GroupID] == nil {
		return fmt.Errorf("group %d does not exist", student.GroupID)
	}
	student.ID = m.newID()
	student.CreatedAt = time.Now()
	copied := *student
	m.students = append(m.students, &copied)
	return nil
}

// SetStudentGroup assigns a student to a group
func (m *MockStore) SetStudentGroup(ctx context.Context, studentID string, groupID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, s := m.findStudent(studentID)
	if s == nil {
		return fmt.Errorf("student %s: %w", studentID, database.ErrNotFound)
	}
	if groupID > 0 && m.groups[groupID] == nil {
		return fmt.Errorf("group %d does not exist", groupID)
	}
	s.GroupID = max(groupID, 0)
	return nil
}

// DeleteStudent removes a student with its enrollment and attendance records
func (m *MockStore) DeleteStudent(ctx context.Context, studentID string) error {
	if m.DeleteStudentError != nil {
		return m.DeleteStudentError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i, s := m.findStudent(studentID)
	if s == nil {
		return fmt.Errorf("student %s: %w", studentID, database.ErrNotFound)
	}
	m.students = append(m.students[:i], m.students[i+1:]...)
	delete(m.enrollments, studentID)

	kept := m.attendance[:0]
	for _, r := range m.attendance {
		if r.StudentID != studentID {
			kept = append(kept, r)
		}
	}
	m.attendance = kept
	return nil
}

// GetGroup retrieves a group by ID
func (m *MockStore) GetGroup(ctx context.Context, id int64) (*database.Group, error) {
	if m.GetGroupError != nil {
		return nil, m.GetGroupError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if g, ok := m.groups[id]; ok {
		copied := *g
		return &copied, nil
	}
	return nil, nil
}

// GetGroupByName retrieves a group by name
func (m *MockStore) GetGroupByName(ctx context.Context, name string) (*database.Group, error) {
	if m.GetGroupError != nil {
		return nil, m.GetGroupError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, g := range m.groups {
		if g.Name == name {
			copied := *g
			return &copied, nil
		}
	}
	return nil, nil
}

// ListGroups returns all groups ordered by name
func (m *MockStore) ListGroups(ctx context.Context) ([]database.Group, error) {
	if m.ListGroupsError != nil {
		return nil, m.ListGroupsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]database.Group, 0, len(m.groups))
	for _, g := range m.groups {
		result = append(result, *g)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *MockStore) nameTaken(name string, exceptID int64) bool {
	for _, g := range m.groups {
		if g.ID != exceptID && g.Name == name {
			return true
		}
	}
	return false
}

// CreateGroup inserts a group
func (m *MockStore) CreateGroup(ctx context.Context, group *database.Group) error {
	if m.CreateGroupError != nil {
		return m.CreateGroupError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nameTaken(group.Name, 0) {
		return fmt.Errorf("%w: groups_name_key", database.ErrDuplicate)
	}
	group.ID = m.newID()
	group.CreatedAt = time.Now()
	copied := *group
	m.groups[group.ID] = &copied
	return nil
}

// UpdateGroup changes name and description of a group
func (m *MockStore) UpdateGroup(ctx context.Context, group *database.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.groups[group.ID]
	if !ok {
		return fmt.Errorf("group %d: %w", group.ID, database.ErrNotFound)
	}
	if m.nameTaken(group.Name, group.ID) {
		return fmt.Errorf("%w: groups_name_key", database.ErrDuplicate)
	}
	existing.Name = group.Name
	existing.Description = group.Description
	group.CreatedAt = existing.CreatedAt
	return nil
}

// DeleteGroup removes a group and unassigns its students
func (m *MockStore) DeleteGroup(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.groups[id]; !ok {
		return fmt.Errorf("group %d: %w", id, database.ErrNotFound)
	}
	delete(m.groups, id)
	for _, s := range m.students {
		if s.GroupID == id {
			s.GroupID = 0
		}
	}
	for i := range m.attendance {
		if m.attendance[i].GroupID == id {
			m.attendance[i].GroupID = 0
		}
	}
	return nil
}

// GetEnrollment retrieves the enrollment of a student
func (m *MockStore) GetEnrollment(ctx context.Context, studentID string) (*database.StoredEnrollment, error) {
	if m.GetEnrollmentError != nil {
		return nil, m.GetEnrollmentError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.enrollments[studentID]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, nil
}

// ListEnrollments returns one entry per student in registration order
func (m *MockStore) ListEnrollments(ctx context.Context, groupID int64) ([]database.StoredEnrollment, error) {
	if m.ListEnrollmentsError != nil {
		return nil, m.ListEnrollmentsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []database.StoredEnrollment
	for _, s := range m.students {
		if groupID > 0 && s.GroupID != groupID {
			continue
		}
		if e, ok := m.enrollments[s.StudentID]; ok {
			result = append(result, *e)
		} else {
			result = append(result, database.StoredEnrollment{StudentID: s.StudentID})
		}
	}
	return result, nil
}

// NearestEnrollments returns usable enrollments of matching dimension ordered by distance
func (m *MockStore) NearestEnrollments(
	ctx context.Context, embedding []float32, metric string, limit int,
) ([]database.StoredEnrollment, []float64, error) {
	if m.NearestError != nil {
		return nil, nil, m.NearestError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	distance := matcher.DistanceByName(metric)
	type hit struct {
		enrollment database.StoredEnrollment
		dist       float64
	}
	var hits []hit
	for _, s := range m.students {
		e, ok := m.enrollments[s.StudentID]
		if !ok || !e.Usable() || len(e.Embedding) != len(embedding) {
			continue
		}
		hits = append(hits, hit{enrollment: *e, dist: distance(embedding, e.Embedding)})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	result := make([]database.StoredEnrollment, len(hits))
	distances := make([]float64, len(hits))
	for i, h := range hits {
		result[i] = h.enrollment
		distances[i] = h.dist
	}
	return result, distances, nil
}

// EnrollmentStats returns enrollment counts by status
func (m *MockStore) EnrollmentStats(ctx context.Context) (database.EnrollmentStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := database.EnrollmentStats{Total: len(m.students)}
	for _, s := range m.students {
		e, ok := m.enrollments[s.StudentID]
		if !ok {
			continue
		}
		switch e.Status {
		case database.EnrollmentOK:
			stats.OK++
		case database.EnrollmentNoFace:
			stats.NoFace++
		case database.EnrollmentFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

// SaveEnrollment stores the enrollment of a student
func (m *MockStore) SaveEnrollment(ctx context.Context, enrollment *database.StoredEnrollment) error {
	if m.SaveEnrollmentError != nil {
		return m.SaveEnrollmentError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, s := m.findStudent(enrollment.StudentID); s == nil {
		return fmt.Errorf("student %s does not exist", enrollment.StudentID)
	}
	enrollment.Dim = len(enrollment.Embedding)
	enrollment.UpdatedAt = time.Now()
	copied := *enrollment
	m.enrollments[enrollment.StudentID] = &copied
	m.SavedEnrollments = append(m.SavedEnrollments, copied)
	return nil
}

// ListStudentsNeedingEnrollment returns students without a usable enrollment for the model
func (m *MockStore) ListStudentsNeedingEnrollment(ctx context.Context, model string) ([]database.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []database.Student
	for _, s := range m.students {
		e, ok := m.enrollments[s.StudentID]
		if ok && e.Status == database.EnrollmentOK && (model == "" || e.Model == model) {
			continue
		}
		result = append(result, *s)
	}
	return result, nil
}

// RecordAttendance stores a record
func (m *MockStore) RecordAttendance(ctx context.Context, record *database.AttendanceRecord) error {
	if m.RecordAttendanceError != nil {
		return m.RecordAttendanceError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, s := m.findStudent(record.StudentID); s == nil {
		return fmt.Errorf("student %s does not exist", record.StudentID)
	}
	for _, r := range m.attendance {
		if r.ID == record.ID {
			return fmt.Errorf("%w: attendance_pkey", database.ErrDuplicate)
		}
	}
	if record.RecordedAt.IsZero() {
		record.RecordedAt = time.Now()
	}
	m.attendance = append(m.attendance, *record)
	return nil
}

// ListAttendance returns records matching the filter, newest first
func (m *MockStore) ListAttendance(ctx context.Context, filter database.AttendanceFilter) ([]database.AttendanceRecord, error) {
	if m.ListAttendanceError != nil {
		return nil, m.ListAttendanceError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []database.AttendanceRecord
	for _, r := range m.attendance {
		if filter.StudentID != "" && r.StudentID != filter.StudentID {
			continue
		}
		if filter.GroupID > 0 && r.GroupID != filter.GroupID {
			continue
		}
		if !filter.Since.IsZero() && r.RecordedAt.Before(filter.Since) {
			continue
		}
		if !filter.Until.IsZero() && !r.RecordedAt.Before(filter.Until) {
			continue
		}
		result = append(result, r)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].RecordedAt.After(result[j].RecordedAt) })

	limit := filter.Limit
	if limit <= 0 || limit > database.DefaultAttendanceLimit {
		limit = database.DefaultAttendanceLimit
	}
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// CountAttendanceSince returns the number of records of a student since the given time
func (m *MockStore) CountAttendanceSince(ctx context.Context, studentID string, since time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, r := range m.attendance {
		if r.StudentID == studentID && !r.RecordedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// Register installs the store as the active backend of the database package.
// The returned function deregisters it.
func (m *MockStore) Register() func() {
	database.RegisterPostgresBackend(
		func() database.StudentWriter { return m },
		func() database.GroupWriter { return m },
		func() database.EnrollmentWriter { return m },
		func() database.AttendanceWriter { return m },
	)
	return func() { database.RegisterPostgresBackend(nil, nil, nil, nil) }
}

var (
	_ database.StudentWriter    = (*MockStore)(nil)
	_ database.GroupWriter      = (*MockStore)(nil)
	_ database.EnrollmentWriter = (*MockStore)(nil)
	_ database.AttendanceWriter = (*MockStore)(nil)
)
