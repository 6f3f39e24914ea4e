package attendance

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/database/mock"
	"github.com/kozaktomas/attendance/internal/faces"
	"github.com/kozaktomas/attendance/internal/matcher"
	"github.com/kozaktomas/attendance/internal/storage"
)

// fakeDetector returns canned detections keyed by image content.
// Unknown images have no face.
type fakeDetector struct {
	mu    sync.Mutex
	faces map[string]faces.Detection
	errs  map[string]error
	model string
	calls int
}

func newFakeDetector() *fakeDetector {
	return &fakeDetector{
		faces: make(map[string]faces.Detection),
		errs:  make(map[string]error),
		model: "dlib",
	}
}

func (d *fakeDetector) setFace(img []byte, embedding []float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.faces[string(img)] = faces.Detection{
		Embedding: embedding,
		Dim:       len(embedding),
		BBox:      []float64{2, 2, 6, 6},
		DetScore:  0.99,
	}
}

func (d *fakeDetector) setError(img []byte, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errs[string(img)] = err
}

func (d *fakeDetector) DetectFirst(ctx context.Context, img []byte) (*faces.Detection, string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if err, ok := d.errs[string(img)]; ok {
		return nil, d.model, err
	}
	det, ok := d.faces[string(img)]
	if !ok {
		return nil, d.model, matcher.ErrNoFace
	}
	return &det, d.model, nil
}

// photo returns a distinct 8x8 PNG per seed.
func photo(t *testing.T, seed uint8) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := range 8 {
		for x := range 8 {
			img.Set(x, y, color.RGBA{R: seed, G: 10, B: 20, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// emb returns a 128-dimensional embedding with x in the first component,
// so the Euclidean distance between emb(a) and emb(b) is |a-b|.
func emb(x float32) []float32 {
	v := make([]float32, 128)
	v[0] = x
	return v
}

type testEnv struct {
	svc      *Service
	store    *mock.MockStore
	detector *fakeDetector
	photos   *storage.PhotoStore
	photoDir string
	index    *database.EnrollmentIndex
}

func newTestEnv(t *testing.T, withIndex bool) *testEnv {
	t.Helper()
	store := mock.NewMockStore()
	photoDir := t.TempDir()
	photos, err := storage.NewPhotoStore(photoDir)
	if err != nil {
		t.Fatalf("failed to create photo store: %v", err)
	}
	var index *database.EnrollmentIndex
	if withIndex {
		index = database.NewEnrollmentIndex(matcher.MetricEuclidean)
	}
	detector := newFakeDetector()
	repos := Repositories{Students: store, Groups: store, Enrollments: store, Attendance: store}
	svc := NewService(repos, photos, detector, index, Options{Model: "dlib"})

	fixed := time.Date(2026, 9, 1, 8, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	n := 0
	svc.newID = func() string {
		n++
		return "record-" + string(rune('0'+n))
	}

	return &testEnv{svc: svc, store: store, detector: detector, photos: photos, photoDir: photoDir, index: index}
}

// register enrolls a student whose photo carries the given embedding.
func (e *testEnv) register(t *testing.T, studentID string, seed uint8, embedding []float32, groupID int64) *Registration {
	t.Helper()
	img := photo(t, seed)
	if embedding != nil {
		e.detector.setFace(img, embedding)
	}
	reg, err := e.svc.RegisterStudent(context.Background(), RegisterInput{
		StudentID: studentID,
		FirstName: "First",
		LastName:  "Last " + studentID,
		GroupID:   groupID,
		Photo:     img,
	})
	if err != nil {
		t.Fatalf("RegisterStudent(%s) error = %v", studentID, err)
	}
	return reg
}
