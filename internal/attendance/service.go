// Package attendance implements student registration and face-based attendance marking
// on top of the database repositories, the photo store and a face detector.
package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/faces"
	"github.com/kozaktomas/attendance/internal/matcher"
	"github.com/kozaktomas/attendance/internal/storage"
)

// Detector finds the first face of an image.
// It returns an error wrapping matcher.ErrNoFace when the image holds no face,
// and the name of the embedding model that produced the detection.
type Detector interface {
	DetectFirst(ctx context.Context, image []byte) (*faces.Detection, string, error)
}

// Repositories groups the storage the service works on.
type Repositories struct {
	Students    database.StudentWriter
	Groups      database.GroupWriter
	Enrollments database.EnrollmentWriter
	Attendance  database.AttendanceWriter
}

// RepositoriesFromBackend returns the repositories of the registered database backend.
func RepositoriesFromBackend(ctx context.Context) (Repositories, error) {
	var repos Repositories
	var err error
	if repos.Students, err = database.GetStudentWriter(ctx); err != nil {
		return repos, err
	}
	if repos.Groups, err = database.GetGroupWriter(ctx); err != nil {
		return repos, err
	}
	if repos.Enrollments, err = database.GetEnrollmentWriter(ctx); err != nil {
		return repos, err
	}
	if repos.Attendance, err = database.GetAttendanceWriter(ctx); err != nil {
		return repos, err
	}
	return repos, nil
}

// Options configures matching and image handling.
type Options struct {
	Model        string  // configured embedding model key, recorded with enrollments
	Metric       string  // matcher.MetricEuclidean or matcher.MetricCosine
	Threshold    float64 // exclusive match threshold, <= 0 uses matcher.DefaultThreshold
	MaxImageSize int     // longest edge before detection, 0 keeps the original size
}

// Service registers students and marks attendance.
type Service struct {
	repos        Repositories
	photos       *storage.PhotoStore
	detector     Detector
	matcher      *matcher.Matcher
	index        *database.EnrollmentIndex // nil disables the in-memory index
	model        string
	metric       string
	maxImageSize int

	now   func() time.Time
	newID func() string
}

// NewService creates a service. The index is optional.
func NewService(
	repos Repositories, photos *storage.PhotoStore, detector Detector,
	index *database.EnrollmentIndex, opts Options,
) *Service {
	metric := opts.Metric
	if metric == "" {
		metric = matcher.MetricEuclidean
	}
	return &Service{
		repos:        repos,
		photos:       photos,
		detector:     detector,
		matcher:      matcher.New(opts.Threshold, matcher.DistanceByName(metric)),
		index:        index,
		model:        opts.Model,
		metric:       metric,
		maxImageSize: opts.MaxImageSize,
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

// Threshold returns the match threshold in use.
func (s *Service) Threshold() float64 {
	return s.matcher.Threshold()
}

// Metric returns the distance metric in use.
func (s *Service) Metric() string {
	return s.metric
}

// modelName is the model recorded with enrollments and probes. The configured key wins
// over the name reported by the embedding server so stored enrollments stay comparable
// with the EMBEDDING_MODEL used by enroll sync.
func (s *Service) modelName(reported string) string {
	if s.model != "" {
		return s.model
	}
	return reported
}

// Index returns the in-memory enrollment index, or nil.
func (s *Service) Index() *database.EnrollmentIndex {
	return s.index
}

// RebuildIndex loads all enrollments into the in-memory index.
func (s *Service) RebuildIndex(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, nil
	}
	enrollments, err := s.repos.Enrollments.ListEnrollments(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("load enrollments: %w", err)
	}
	s.index.Build(enrollments)
	return s.index.Count(), nil
}

// prepareUpload validates an uploaded photo and returns the bytes sent to the detector.
func (s *Service) prepareUpload(photo []byte) ([]byte, faces.ImageInfo, error) {
	if len(photo) == 0 {
		return nil, faces.ImageInfo{}, invalidInput("photo is required")
	}
	original, err := faces.Inspect(photo)
	if err != nil {
		return nil, faces.ImageInfo{}, invalidInput("%v", err)
	}
	prepared, err := faces.PrepareImage(photo, s.maxImageSize)
	if err != nil {
		return nil, faces.ImageInfo{}, invalidInput("%v", err)
	}
	info := original
	if s.maxImageSize > 0 && (original.Width > s.maxImageSize || original.Height > s.maxImageSize) {
		if info, err = faces.Inspect(prepared); err != nil {
			return nil, faces.ImageInfo{}, fmt.Errorf("inspect resized photo: %w", err)
		}
		info.Format = original.Format
	}
	return prepared, info, nil
}

// checkGroup returns ErrGroupNotFound for unknown non-zero group IDs.
func (s *Service) checkGroup(ctx context.Context, groupID int64) error {
	if groupID <= 0 {
		return nil
	}
	group, err := s.repos.Groups.GetGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("get group: %w", err)
	}
	if group == nil {
		return fmt.Errorf("%w: %d", ErrGroupNotFound, groupID)
	}
	return nil
}

// EnsureGroup returns the group with the given name, creating it if missing.
func (s *Service) EnsureGroup(ctx context.Context, name string) (*database.Group, error) {
	if name == "" {
		return nil, invalidInput("group name is required")
	}
	group, err := s.repos.Groups.GetGroupByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	if group != nil {
		return group, nil
	}

	group = &database.Group{Name: name}
	if err := s.repos.Groups.CreateGroup(ctx, group); err != nil {
		// Lost a race with a concurrent import.
		if existing, getErr := s.repos.Groups.GetGroupByName(ctx, name); getErr == nil && existing != nil {
			return existing, nil
		}
		return nil, fmt.Errorf("create group: %w", err)
	}
	return group, nil
}
