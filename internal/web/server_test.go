package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/database/mock"
	"github.com/kozaktomas/attendance/internal/storage"
)

func newTestServer(t *testing.T, token string) *Server {
	t.Helper()
	store := mock.NewMockStore()
	photos, err := storage.NewPhotoStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create photo store: %v", err)
	}
	repos := attendance.Repositories{Students: store, Groups: store, Enrollments: store, Attendance: store}
	svc := attendance.NewService(repos, photos, nil, nil, attendance.Options{Model: "dlib"})

	cfg := &config.Config{Web: config.WebConfig{Host: "127.0.0.1", Port: 0, APIToken: token}}
	return NewServer(cfg, svc, repos)
}

func TestRoutes_Health(t *testing.T) {
	srv := newTestServer(t, "secret")

	recorder := httptest.NewRecorder()
	srv.Router().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if recorder.Code != http.StatusOK {
		t.Errorf("expected health without token to return 200, got %d", recorder.Code)
	}
	if got := recorder.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("expected security headers, got X-Content-Type-Options %q", got)
	}
}

func TestRoutes_RequireToken(t *testing.T) {
	srv := newTestServer(t, "secret")

	recorder := httptest.NewRecorder()
	srv.Router().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/students", nil))
	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", recorder.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/students", nil)
	req.Header.Set("Authorization", "Bearer secret")
	recorder = httptest.NewRecorder()
	srv.Router().ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Errorf("expected 200 with token, got %d: %s", recorder.Code, recorder.Body.String())
	}
}

func TestRoutes_OpenWithoutToken(t *testing.T) {
	srv := newTestServer(t, "")

	for _, path := range []string{"/api/v1/students", "/api/v1/groups", "/api/v1/attendance", "/api/v1/stats"} {
		recorder := httptest.NewRecorder()
		srv.Router().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, path, nil))
		if recorder.Code != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d: %s", path, recorder.Code, recorder.Body.String())
		}
	}
}

func TestRoutes_NotFound(t *testing.T) {
	srv := newTestServer(t, "")

	recorder := httptest.NewRecorder()
	srv.Router().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if recorder.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", recorder.Code)
	}
}
