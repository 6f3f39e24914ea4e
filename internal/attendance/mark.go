package attendance

import (
	"context"
	"fmt"
	"iter"
	"math"

	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/matcher"
)

// Identification is the matcher outcome for a probe photo.
type Identification struct {
	matcher.Result
	Model string // embedding model of the probe
}

// Mark is a stored attendance record with its student.
type Mark struct {
	Student database.Student
	Record  database.AttendanceRecord
}

// enrollmentSeq yields the stored enrollments as matcher input in stored order.
// Enrollments that cannot be compared with a probe of the given model are yielded
// without a vector so the matcher counts them as skipped. The probe model is read
// when iteration starts, after extraction.
func enrollmentSeq(stored []database.StoredEnrollment, probeModel *string) iter.Seq[matcher.Enrollment] {
	return func(yield func(matcher.Enrollment) bool) {
		model := *probeModel
		for i := range stored {
			e := &stored[i]
			m := matcher.Enrollment{Identity: e.StudentID}
			if e.Usable() && (model == "" || e.Model == "" || e.Model == model) {
				m.Vector = e.Embedding
			}
			if !yield(m) {
				return
			}
		}
	}
}

// Identify finds the enrolled student closest to the face in photo.
// A groupID of 0 searches all students. A photo without a face returns an error
// wrapping matcher.ErrNoFace; no match is not an error (Result.Confident is false).
func (s *Service) Identify(ctx context.Context, photo []byte, groupID int64) (*Identification, error) {
	prepared, _, err := s.prepareUpload(photo)
	if err != nil {
		return nil, err
	}
	if err := s.checkGroup(ctx, groupID); err != nil {
		return nil, err
	}

	var probeModel string
	extractor := matcher.ExtractorFunc(func(ctx context.Context, image []byte) ([]float32, error) {
		detection, model, err := s.detector.DetectFirst(ctx, image)
		probeModel = s.modelName(model)
		if err != nil {
			return nil, err
		}
		return detection.Embedding, nil
	})

	stored, err := s.repos.Enrollments.ListEnrollments(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("load enrollments: %w", err)
	}

	result, err := s.matcher.Identify(ctx, extractor, prepared, enrollmentSeq(stored, &probeModel))
	if err != nil {
		return nil, err
	}
	return &Identification{Result: result, Model: probeModel}, nil
}

// MarkAttendance identifies the student in photo and stores an attendance record.
// A face that matches nobody returns a *NoMatchError with the closest distance.
func (s *Service) MarkAttendance(ctx context.Context, photo []byte, groupID int64) (*Mark, error) {
	id, err := s.Identify(ctx, photo, groupID)
	if err != nil {
		return nil, err
	}
	if !id.Confident {
		return nil, &NoMatchError{Distance: id.Distance}
	}

	student, err := s.repos.Students.GetStudent(ctx, id.Identity)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if student == nil {
		// Deleted between the scan and now.
		return nil, fmt.Errorf("%w: %s", ErrStudentNotFound, id.Identity)
	}

	record := database.AttendanceRecord{
		ID:         s.newID(),
		StudentID:  student.StudentID,
		GroupID:    max(groupID, 0),
		Distance:   id.Distance,
		Model:      id.Model,
		RecordedAt: s.now(),
	}
	if err := s.repos.Attendance.RecordAttendance(ctx, &record); err != nil {
		return nil, fmt.Errorf("record attendance: %w", err)
	}
	return &Mark{Student: *student, Record: record}, nil
}

// RoundDistance rounds a distance to the given number of decimal places.
func RoundDistance(d float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(d*p) / p
}
