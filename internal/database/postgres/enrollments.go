package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/matcher"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// EnrollmentRepository provides PostgreSQL-backed enrollment storage.
type EnrollmentRepository struct {
	pool *Pool
}

// NewEnrollmentRepository creates a new PostgreSQL enrollment repository.
func NewEnrollmentRepository(pool *Pool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

// scanEnrollment scans student_id, embedding, status, model, dim, bbox, det_score, updated_at.
// Students without an enrollment row (LEFT JOIN) come back with an empty status.
func scanEnrollment(scanner interface{ Scan(...any) error }, extraDest ...any) (database.StoredEnrollment, error) {
	var e database.StoredEnrollment
	var vec *pgvector.Vector
	var status, model sql.NullString
	var dim sql.NullInt32
	var detScore sql.NullFloat64
	var updatedAt sql.NullTime
	var bbox []float64

	dest := []any{&e.StudentID, &vec, &status, &model, &dim, pq.Array(&bbox), &detScore, &updatedAt}
	dest = append(dest, extraDest...)
	if err := scanner.Scan(dest...); err != nil {
		return e, fmt.Errorf("scan enrollment: %w", err)
	}

	if vec != nil {
		e.Embedding = vec.Slice()
	}
	e.Status = status.String
	e.Model = model.String
	e.Dim = int(dim.Int32)
	e.BBox = bbox
	e.DetScore = detScore.Float64
	if updatedAt.Valid {
		e.UpdatedAt = updatedAt.Time
	}
	return e, nil
}

func scanEnrollments(rows *sql.Rows) ([]database.StoredEnrollment, error) {
	var enrollments []database.StoredEnrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		enrollments = append(enrollments, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrollments: %w", err)
	}
	return enrollments, nil
}

// GetEnrollment retrieves the enrollment of a student, returns nil if not found.
func (r *EnrollmentRepository) GetEnrollment(ctx context.Context, studentID string) (*database.StoredEnrollment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT student_id, embedding, status, model, dim, bbox, det_score, updated_at
		FROM enrollments
		WHERE student_id = $1
	`, studentID)

	e, err := scanEnrollment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get enrollment: %w", err)
	}
	return &e, nil
}

// ListEnrollments returns one entry per student in registration order.
// Students whose enrollment has not been computed yet are included with an empty status.
func (r *EnrollmentRepository) ListEnrollments(ctx context.Context, groupID int64) ([]database.StoredEnrollment, error) {
	query := `
		SELECT s.student_id, e.embedding, e.status, e.model, e.dim, e.bbox, e.det_score, e.updated_at
		FROM students s
		LEFT JOIN enrollments e ON e.student_id = s.student_id
		WHERE ($1::bigint = 0 OR s.group_id = $1::bigint)
		ORDER BY s.id
	`

	rows, err := r.pool.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("query enrollments: %w", err)
	}
	defer rows.Close()

	return scanEnrollments(rows)
}

// NearestEnrollments orders usable enrollments of matching dimension by distance to embedding.
func (r *EnrollmentRepository) NearestEnrollments(
	ctx context.Context, embedding []float32, metric string, limit int,
) ([]database.StoredEnrollment, []float64, error) {
	operator := "<->" // L2
	if metric == matcher.MetricCosine {
		operator = "<=>"
	}

	query := fmt.Sprintf(`
		SELECT student_id, embedding, status, model, dim, bbox, det_score, updated_at,
		       embedding %[1]s $1::vector AS distance
		FROM enrollments
		WHERE status = 'ok' AND dim = $2
		ORDER BY embedding %[1]s $1::vector
		LIMIT $3
	`, operator)

	rows, err := r.pool.Query(ctx, query, pgvector.NewVector(embedding), len(embedding), limit)
	if err != nil {
		return nil, nil, fmt.Errorf("query nearest enrollments: %w", err)
	}
	defer rows.Close()

	var enrollments []database.StoredEnrollment
	var distances []float64
	for rows.Next() {
		var dist float64
		e, err := scanEnrollment(rows, &dist)
		if err != nil {
			return nil, nil, err
		}
		enrollments = append(enrollments, e)
		distances = append(distances, dist)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate enrollments: %w", err)
	}
	return enrollments, distances, nil
}

// EnrollmentStats returns enrollment counts by status across all students.
func (r *EnrollmentRepository) EnrollmentStats(ctx context.Context) (database.EnrollmentStats, error) {
	var stats database.EnrollmentStats
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE e.status = 'ok'),
		       COUNT(*) FILTER (WHERE e.status = 'no_face'),
		       COUNT(*) FILTER (WHERE e.status = 'failed')
		FROM students s
		LEFT JOIN enrollments e ON e.student_id = s.student_id
	`).Scan(&stats.Total, &stats.OK, &stats.NoFace, &stats.Failed)
	if err != nil {
		return stats, fmt.Errorf("enrollment stats: %w", err)
	}
	return stats, nil
}

// SaveEnrollment stores the enrollment of a student, replacing any existing one.
func (r *EnrollmentRepository) SaveEnrollment(ctx context.Context, e *database.StoredEnrollment) error {
	var vec any
	if len(e.Embedding) > 0 {
		vec = pgvector.NewVector(e.Embedding)
	}
	var bbox any
	if len(e.BBox) > 0 {
		bbox = pq.Array(e.BBox)
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO enrollments (student_id, embedding, status, model, dim, bbox, det_score, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (student_id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			status = EXCLUDED.status,
			model = EXCLUDED.model,
			dim = EXCLUDED.dim,
			bbox = EXCLUDED.bbox,
			det_score = EXCLUDED.det_score,
			updated_at = NOW()
		RETURNING updated_at
	`,
		e.StudentID,
		vec,
		e.Status,
		e.Model,
		len(e.Embedding),
		bbox,
		e.DetScore,
	).Scan(&e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save enrollment %s: %w", e.StudentID, err)
	}
	e.Dim = len(e.Embedding)
	return nil
}

// ListStudentsNeedingEnrollment returns students without a usable enrollment for the model.
func (r *EnrollmentRepository) ListStudentsNeedingEnrollment(ctx context.Context, model string) ([]database.Student, error) {
	query := `
		SELECT s.id, s.student_id, s.first_name, s.last_name, s.group_id, s.photo_path, s.created_at
		FROM students s
		LEFT JOIN enrollments e ON e.student_id = s.student_id
		WHERE e.student_id IS NULL OR e.status <> 'ok' OR ($1::text <> '' AND e.model <> $1::text)
		ORDER BY s.id
	`

	rows, err := r.pool.Query(ctx, query, model)
	if err != nil {
		return nil, fmt.Errorf("query students needing enrollment: %w", err)
	}
	defer rows.Close()

	return scanStudents(rows)
}
