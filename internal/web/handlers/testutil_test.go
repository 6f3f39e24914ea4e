package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/database/mock"
	"github.com/kozaktomas/attendance/internal/faces"
	"github.com/kozaktomas/attendance/internal/matcher"
	"github.com/kozaktomas/attendance/internal/storage"
)

// stubDetector returns canned embeddings keyed by image content.
// Unknown images have no face.
type stubDetector struct {
	embeddings map[string][]float32
	err        error
}

func (d *stubDetector) DetectFirst(ctx context.Context, img []byte) (*faces.Detection, string, error) {
	if d.err != nil {
		return nil, "dlib", d.err
	}
	e, ok := d.embeddings[string(img)]
	if !ok {
		return nil, "dlib", matcher.ErrNoFace
	}
	return &faces.Detection{
		Embedding: e,
		Dim:       len(e),
		BBox:      []float64{1, 1, 5, 7},
		DetScore:  0.98,
	}, "dlib", nil
}

type handlerEnv struct {
	store    *mock.MockStore
	detector *stubDetector
	svc      *attendance.Service
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	store := mock.NewMockStore()
	photos, err := storage.NewPhotoStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create photo store: %v", err)
	}
	detector := &stubDetector{embeddings: make(map[string][]float32)}
	repos := attendance.Repositories{Students: store, Groups: store, Enrollments: store, Attendance: store}
	svc := attendance.NewService(repos, photos, detector,
		database.NewEnrollmentIndex(matcher.MetricEuclidean), attendance.Options{Model: "dlib"})
	return &handlerEnv{store: store, detector: detector, svc: svc}
}

// testPhoto returns a distinct 8x8 PNG per seed.
func testPhoto(t *testing.T, seed uint8) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := range 8 {
		for x := range 8 {
			img.Set(x, y, color.RGBA{R: seed, G: 200, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// embedding returns a 128-dimensional vector with x in the first component.
func embedding(x float32) []float32 {
	v := make([]float32, 128)
	v[0] = x
	return v
}

// multipartRequest builds a multipart request with the given fields and an optional photo.
func multipartRequest(t *testing.T, method, path string, fields map[string]string, photo []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	if photo != nil {
		fw, err := mw.CreateFormFile("photo", "photo.png")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		fw.Write(photo)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
