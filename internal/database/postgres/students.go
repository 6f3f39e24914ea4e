package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/facematch"
)

// StudentRepository provides PostgreSQL-backed student storage.
type StudentRepository struct {
	pool *Pool
}

// NewStudentRepository creates a new PostgreSQL student repository.
func NewStudentRepository(pool *Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

const studentColumns = `id, student_id, first_name, last_name, group_id, photo_path, created_at`

// nullGroupID converts a group ID to a nullable SQL value (0 = no group).
func nullGroupID(groupID int64) sql.NullInt64 {
	if groupID <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: groupID, Valid: true}
}

// scanStudent scans a single student row.
func scanStudent(scanner interface{ Scan(...any) error }) (database.Student, error) {
	var s database.Student
	var groupID sql.NullInt64
	if err := scanner.Scan(&s.ID, &s.StudentID, &s.FirstName, &s.LastName, &groupID, &s.PhotoPath, &s.CreatedAt); err != nil {
		return s, fmt.Errorf("scan student: %w", err)
	}
	if groupID.Valid {
		s.GroupID = groupID.Int64
	}
	return s, nil
}

// scanStudents scans all rows into students.
func scanStudents(rows *sql.Rows) ([]database.Student, error) {
	var students []database.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return students, nil
}

// GetStudent retrieves a student by student ID, returns nil if not found.
func (r *StudentRepository) GetStudent(ctx context.Context, studentID string) (*database.Student, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+studentColumns+` FROM students WHERE student_id = $1`, studentID)
	s, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	return &s, nil
}

// ListStudents returns students in registration order.
// The query is compared against normalized names (lowercase, no diacritics, dashes to spaces)
// and the raw student ID.
func (r *StudentRepository) ListStudents(ctx context.Context, filter database.StudentFilter) ([]database.Student, error) {
	query := `
		SELECT ` + studentColumns + `
		FROM students
		WHERE ($1::bigint = 0 OR group_id = $1::bigint)
		  AND ($3::text = '' OR student_id = $3::text OR
		       ($2::text <> '' AND
		        LOWER(REPLACE(unaccent(first_name || ' ' || last_name), '-', ' ')) LIKE '%' || $2::text || '%'))
		ORDER BY id
	`

	normalized := facematch.NormalizePersonName(filter.Query)
	rows, err := r.pool.Query(ctx, query, filter.GroupID, normalized, filter.Query)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()

	return scanStudents(rows)
}

// CountStudents returns the total number of registered students.
func (r *StudentRepository) CountStudents(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM students").Scan(&count); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}

// CreateStudent inserts a student and fills in its ID and creation time.
func (r *StudentRepository) CreateStudent(ctx context.Context, student *database.Student) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO students (student_id, first_name, last_name, group_id, photo_path)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`,
		student.StudentID,
		student.FirstName,
		student.LastName,
		nullGroupID(student.GroupID),
		student.PhotoPath,
	).Scan(&student.ID, &student.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert student: %w", mapError(err))
	}
	return nil
}

// SetStudentGroup assigns a student to a group (0 removes the assignment).
func (r *StudentRepository) SetStudentGroup(ctx context.Context, studentID string, groupID int64) error {
	result, err := r.pool.Exec(ctx,
		"UPDATE students SET group_id = $2 WHERE student_id = $1", studentID, nullGroupID(groupID))
	if err != nil {
		return fmt.Errorf("set student group: %w", err)
	}
	return requireRow(result, "student "+studentID)
}

// DeleteStudent removes a student; the enrollment and attendance rows cascade.
func (r *StudentRepository) DeleteStudent(ctx context.Context, studentID string) error {
	result, err := r.pool.Exec(ctx, "DELETE FROM students WHERE student_id = $1", studentID)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return requireRow(result, "student "+studentID)
}

// requireRow returns database.ErrNotFound if the statement affected no rows.
func requireRow(result sql.Result, what string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, database.ErrNotFound)
	}
	return nil
}
