package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/facematch"
	"github.com/kozaktomas/attendance/internal/faces"
	"github.com/kozaktomas/attendance/internal/matcher"
	"github.com/kozaktomas/attendance/internal/storage"
)

// RegisterInput is a new student with a reference photo.
type RegisterInput struct {
	StudentID string
	FirstName string
	LastName  string
	GroupID   int64
	Photo     []byte
}

// Duplicate points at an already enrolled student whose face is within the threshold.
type Duplicate struct {
	StudentID string
	Distance  float64
}

// Registration is the outcome of RegisterStudent.
type Registration struct {
	Student           database.Student
	Enrollment        database.StoredEnrollment
	FaceBox           *facematch.FaceBox // relative box of the enrolled face
	PossibleDuplicate *Duplicate
}

// FaceDetected reports whether a usable enrollment was created.
func (r *Registration) FaceDetected() bool {
	return r.Enrollment.Usable()
}

func (in *RegisterInput) normalize() error {
	in.StudentID = strings.TrimSpace(in.StudentID)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)

	switch {
	case in.StudentID == "":
		return invalidInput("student_id is required")
	case in.FirstName == "":
		return invalidInput("first_name is required")
	case in.LastName == "":
		return invalidInput("last_name is required")
	}
	return nil
}

// RegisterStudent stores the photo, inserts the student and enrolls the first detected face.
// A photo without a detectable face still registers the student (enrollment status no_face),
// the same goes for detector failures (status failed).
func (s *Service) RegisterStudent(ctx context.Context, in RegisterInput) (*Registration, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	prepared, info, err := s.prepareUpload(in.Photo)
	if err != nil {
		return nil, err
	}
	if err := s.checkGroup(ctx, in.GroupID); err != nil {
		return nil, err
	}

	// The photo path is derived from the student ID, check before touching the file.
	existing, err := s.repos.Students.GetStudent(ctx, in.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrStudentExists, in.StudentID)
	}

	path, err := s.photos.Save(in.StudentID, faces.ExtensionFor(info.Format), in.Photo)
	if errors.Is(err, storage.ErrInvalidName) {
		return nil, invalidInput("student_id %q cannot be used as a file name", in.StudentID)
	}
	if err != nil {
		return nil, fmt.Errorf("save photo: %w", err)
	}

	student := database.Student{
		StudentID: in.StudentID,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		GroupID:   in.GroupID,
		PhotoPath: path,
	}
	if err := s.repos.Students.CreateStudent(ctx, &student); err != nil {
		if rmErr := s.photos.Remove(path); rmErr != nil {
			log.Printf("Warning: %v", rmErr)
		}
		if errors.Is(err, database.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %s", ErrStudentExists, in.StudentID)
		}
		return nil, fmt.Errorf("create student: %w", err)
	}

	reg := &Registration{Student: student}
	enrollment, detection := s.enroll(ctx, student.StudentID, prepared)
	reg.Enrollment = enrollment

	if detection != nil {
		if box, ok := facematch.RelativeFaceBox(detection.BBox, info.Width, info.Height); ok {
			reg.FaceBox = &box
		}
	}

	if err := s.repos.Enrollments.SaveEnrollment(ctx, &reg.Enrollment); err != nil {
		// The student stays registered, enroll sync retries the enrollment.
		log.Printf("Warning: failed to save enrollment of %s: %v", student.StudentID, err)
		reg.Enrollment = database.StoredEnrollment{StudentID: student.StudentID, Status: database.EnrollmentFailed}
		return reg, nil
	}
	if s.index != nil {
		s.index.Upsert(&reg.Enrollment)
	}

	// The hint runs on stored state, findDuplicate skips the student itself.
	if reg.Enrollment.Usable() {
		reg.PossibleDuplicate = s.findDuplicate(ctx, reg.Enrollment)
	}
	return reg, nil
}

// enroll runs the detector on a prepared photo and builds the enrollment record.
// Detection failures never fail the caller, they are recorded in the status.
func (s *Service) enroll(ctx context.Context, studentID string, prepared []byte) (database.StoredEnrollment, *faces.Detection) {
	e := database.StoredEnrollment{StudentID: studentID, Model: s.model}

	detection, model, err := s.detector.DetectFirst(ctx, prepared)
	e.Model = s.modelName(model)
	switch {
	case errors.Is(err, matcher.ErrNoFace):
		e.Status = database.EnrollmentNoFace
		return e, nil
	case err != nil:
		log.Printf("Warning: face detection failed for %s: %v", studentID, err)
		e.Status = database.EnrollmentFailed
		return e, nil
	case detection == nil || len(detection.Embedding) == 0:
		e.Status = database.EnrollmentNoFace
		return e, nil
	}

	e.Status = database.EnrollmentOK
	e.Embedding = detection.Embedding
	e.Dim = len(detection.Embedding)
	e.BBox = detection.BBox
	e.DetScore = detection.DetScore
	return e, detection
}

// findDuplicate returns the closest other enrolled student within the threshold, or nil.
func (s *Service) findDuplicate(ctx context.Context, e database.StoredEnrollment) *Duplicate {
	var ids []string
	var distances []float64

	if s.index != nil && s.index.Count() > 0 {
		var err error
		ids, distances, err = s.index.Nearest(e.Embedding, constants.DuplicateHintLimit)
		if err != nil {
			log.Printf("Warning: duplicate lookup for %s: %v", e.StudentID, err)
			return nil
		}
	} else {
		found, dists, err := s.repos.Enrollments.NearestEnrollments(ctx, e.Embedding, s.metric, constants.DuplicateHintLimit)
		if err != nil {
			log.Printf("Warning: duplicate lookup for %s: %v", e.StudentID, err)
			return nil
		}
		for _, f := range found {
			ids = append(ids, f.StudentID)
		}
		distances = dists
	}

	for i, id := range ids {
		if id == e.StudentID {
			continue
		}
		if distances[i] < s.matcher.Threshold() {
			return &Duplicate{StudentID: id, Distance: distances[i]}
		}
		break
	}
	return nil
}
