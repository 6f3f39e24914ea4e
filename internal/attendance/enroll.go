package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/kozaktomas/attendance/internal/database"
)

// Reenroll recomputes the enrollment of a student from the stored reference photo.
func (s *Service) Reenroll(ctx context.Context, studentID string) (*database.StoredEnrollment, error) {
	student, err := s.repos.Students.GetStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if student == nil {
		return nil, fmt.Errorf("%w: %s", ErrStudentNotFound, studentID)
	}

	var enrollment database.StoredEnrollment
	photo, err := s.photos.Read(student.PhotoPath)
	if err != nil {
		log.Printf("Warning: %v", err)
		enrollment = database.StoredEnrollment{StudentID: studentID, Status: database.EnrollmentFailed, Model: s.model}
	} else if prepared, _, prepErr := s.prepareUpload(photo); prepErr != nil {
		log.Printf("Warning: stored photo of %s: %v", studentID, prepErr)
		enrollment = database.StoredEnrollment{StudentID: studentID, Status: database.EnrollmentFailed, Model: s.model}
	} else {
		enrollment, _ = s.enroll(ctx, studentID, prepared)
	}

	if err := s.repos.Enrollments.SaveEnrollment(ctx, &enrollment); err != nil {
		return nil, fmt.Errorf("save enrollment: %w", err)
	}
	if s.index != nil {
		s.index.Upsert(&enrollment)
	}
	return &enrollment, nil
}

// PendingEnrollments returns students whose enrollment is missing, not usable, or was
// produced by a different model than the given one (empty model ignores the model).
func (s *Service) PendingEnrollments(ctx context.Context, model string) ([]database.Student, error) {
	students, err := s.repos.Enrollments.ListStudentsNeedingEnrollment(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("list pending enrollments: %w", err)
	}
	return students, nil
}

// SetStudentGroup moves a student to a group (0 removes the assignment).
func (s *Service) SetStudentGroup(ctx context.Context, studentID string, groupID int64) error {
	if err := s.checkGroup(ctx, groupID); err != nil {
		return err
	}
	err := s.repos.Students.SetStudentGroup(ctx, studentID, groupID)
	if errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrStudentNotFound, studentID)
	}
	return err
}

// DeleteStudent removes a student, its enrollment, its records and its photo.
func (s *Service) DeleteStudent(ctx context.Context, studentID string) error {
	student, err := s.repos.Students.GetStudent(ctx, studentID)
	if err != nil {
		return fmt.Errorf("get student: %w", err)
	}
	if student == nil {
		return fmt.Errorf("%w: %s", ErrStudentNotFound, studentID)
	}

	if err := s.repos.Students.DeleteStudent(ctx, studentID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrStudentNotFound, studentID)
		}
		return fmt.Errorf("delete student: %w", err)
	}
	if s.index != nil {
		s.index.Delete(studentID)
	}
	if err := s.photos.Remove(student.PhotoPath); err != nil {
		log.Printf("Warning: %v", err)
	}
	return nil
}
