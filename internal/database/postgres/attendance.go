package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/kozaktomas/attendance/internal/database"
)

// AttendanceRepository provides PostgreSQL-backed attendance records.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// RecordAttendance stores a record. A zero RecordedAt is set to the database time.
func (r *AttendanceRepository) RecordAttendance(ctx context.Context, record *database.AttendanceRecord) error {
	var recordedAt any
	if !record.RecordedAt.IsZero() {
		recordedAt = record.RecordedAt
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO attendance (id, student_id, group_id, distance, model, recorded_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6::timestamptz, NOW()))
		RETURNING recorded_at
	`,
		record.ID,
		record.StudentID,
		nullGroupID(record.GroupID),
		record.Distance,
		record.Model,
		recordedAt,
	).Scan(&record.RecordedAt)
	if err != nil {
		return fmt.Errorf("record attendance: %w", mapError(err))
	}
	return nil
}

// ListAttendance returns records matching the filter, newest first.
func (r *AttendanceRepository) ListAttendance(
	ctx context.Context, filter database.AttendanceFilter,
) ([]database.AttendanceRecord, error) {
	var conds []string
	var args []any
	addCond := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.StudentID != "" {
		addCond("student_id = $%d", filter.StudentID)
	}
	if filter.GroupID > 0 {
		addCond("group_id = $%d", filter.GroupID)
	}
	if !filter.Since.IsZero() {
		addCond("recorded_at >= $%d", filter.Since)
	}
	if !filter.Until.IsZero() {
		addCond("recorded_at < $%d", filter.Until)
	}

	limit := filter.Limit
	if limit <= 0 || limit > database.DefaultAttendanceLimit {
		limit = database.DefaultAttendanceLimit
	}
	args = append(args, limit)

	query := "SELECT id, student_id, group_id, distance, model, recorded_at FROM attendance"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY recorded_at DESC, id LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var records []database.AttendanceRecord
	for rows.Next() {
		var rec database.AttendanceRecord
		var groupID sql.NullInt64
		if err := rows.Scan(&rec.ID, &rec.StudentID, &groupID, &rec.Distance, &rec.Model, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		rec.GroupID = groupID.Int64
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return records, nil
}

// CountAttendanceSince returns the number of records of a student since the given time.
func (r *AttendanceRepository) CountAttendanceSince(ctx context.Context, studentID string, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM attendance WHERE student_id = $1 AND recorded_at >= $2",
		studentID, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count attendance: %w", err)
	}
	return count, nil
}
