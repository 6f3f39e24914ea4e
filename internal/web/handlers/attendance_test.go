package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/attendance/internal/database"
)

// enrollStudent registers a student through the handler with a known embedding.
func enrollStudent(t *testing.T, env *handlerEnv, studentID string, seed uint8, x float32, groupID string) {
	t.Helper()
	img := testPhoto(t, seed)
	env.detector.embeddings[string(img)] = embedding(x)
	fields := registerForm(studentID)
	if groupID != "" {
		fields["group_id"] = groupID
	}
	recorder := httptest.NewRecorder()
	NewStudentsHandler(env.svc, env.store, env.store).Create(recorder,
		multipartRequest(t, http.MethodPost, "/", fields, img))
	if recorder.Code != http.StatusCreated {
		t.Fatalf("registering %s failed: %s", studentID, recorder.Body.String())
	}
}

func TestAttendanceHandler_Mark(t *testing.T) {
	env := newHandlerEnv(t)
	handler := NewAttendanceHandler(env.svc, env.store)
	enrollStudent(t, env, "s1", 1, 0.1, "")
	enrollStudent(t, env, "s2", 2, 0.9, "")

	probe := testPhoto(t, 50)
	env.detector.embeddings[string(probe)] = embedding(0.2)

	recorder := httptest.NewRecorder()
	handler.Mark(recorder, multipartRequest(t, http.MethodPost, "/api/v1/attendance", nil, probe))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp MarkResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.StudentID != "s1" || resp.FirstName != "Jana" || resp.LastName != "Nováková" {
		t.Errorf("unexpected student in response: %+v", resp)
	}
	if resp.Distance != 0.1 {
		t.Errorf("expected distance 0.1, got %v", resp.Distance)
	}
	if resp.Message != "attendance recorded" || resp.RecordID == "" {
		t.Errorf("unexpected response: %+v", resp)
	}

	records := env.store.AttendanceRecords()
	if len(records) != 1 || records[0].ID != resp.RecordID {
		t.Errorf("expected one stored record %s, got %+v", resp.RecordID, records)
	}
}

func TestAttendanceHandler_Mark_NoMatch(t *testing.T) {
	env := newHandlerEnv(t)
	handler := NewAttendanceHandler(env.svc, env.store)
	enrollStudent(t, env, "s1", 1, 0.1, "")

	probe := testPhoto(t, 50)
	env.detector.embeddings[string(probe)] = embedding(0.6)

	recorder := httptest.NewRecorder()
	handler.Mark(recorder, multipartRequest(t, http.MethodPost, "/", nil, probe))

	assertStatusCode(t, recorder, http.StatusNotFound)
	assertJSONError(t, recorder, "face did not match, closest distance: 0.500")
	if n := len(env.store.AttendanceRecords()); n != 0 {
		t.Errorf("expected no records, got %d", n)
	}
}

func TestAttendanceHandler_Mark_EmptyRoster(t *testing.T) {
	env := newHandlerEnv(t)
	handler := NewAttendanceHandler(env.svc, env.store)

	probe := testPhoto(t, 50)
	env.detector.embeddings[string(probe)] = embedding(0.1)

	recorder := httptest.NewRecorder()
	handler.Mark(recorder, multipartRequest(t, http.MethodPost, "/", nil, probe))

	assertStatusCode(t, recorder, http.StatusNotFound)
	assertJSONError(t, recorder, "face did not match, closest distance: 1.000")
}

func TestAttendanceHandler_Mark_NoFace(t *testing.T) {
	env := newHandlerEnv(t)
	handler := NewAttendanceHandler(env.svc, env.store)
	enrollStudent(t, env, "s1", 1, 0.1, "")

	recorder := httptest.NewRecorder()
	handler.Mark(recorder, multipartRequest(t, http.MethodPost, "/", nil, testPhoto(t, 77)))

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "no face found")
}

func TestAttendanceHandler_Mark_ExtractorFailure(t *testing.T) {
	env := newHandlerEnv(t)
	handler := NewAttendanceHandler(env.svc, env.store)
	env.detector.err = errors.New("embedding server unavailable")

	recorder := httptest.NewRecorder()
	handler.Mark(recorder, multipartRequest(t, http.MethodPost, "/", nil, testPhoto(t, 77)))

	assertStatusCode(t, recorder, http.StatusInternalServerError)
	assertJSONError(t, recorder, "reading face failed")
}

func TestAttendanceHandler_Mark_GroupRestriction(t *testing.T) {
	env := newHandlerEnv(t)
	handler := NewAttendanceHandler(env.svc, env.store)
	groupA := env.store.AddGroup(database.Group{Name: "A"})
	groupB := env.store.AddGroup(database.Group{Name: "B"})
	enrollStudent(t, env, "s1", 1, 0.1, fmt.Sprint(groupA))
	enrollStudent(t, env, "s2", 2, 0.3, fmt.Sprint(groupB))

	probe := testPhoto(t, 50)
	env.detector.embeddings[string(probe)] = embedding(0.12)

	recorder := httptest.NewRecorder()
	handler.Mark(recorder, multipartRequest(t, http.MethodPost, "/", map[string]string{"group_id": fmt.Sprint(groupB)}, probe))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp MarkResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.StudentID != "s2" {
		t.Errorf("expected s2 within group B, got %s", resp.StudentID)
	}
	if resp.GroupID == nil || *resp.GroupID != groupB {
		t.Errorf("expected group %d in response, got %v", groupB, resp.GroupID)
	}

	recorder = httptest.NewRecorder()
	handler.Mark(recorder, multipartRequest(t, http.MethodPost, "/", map[string]string{"group_id": "999"}, probe))
	assertStatusCode(t, recorder, http.StatusNotFound)
	assertJSONError(t, recorder, "group not found")
}

func TestAttendanceHandler_Mark_MissingPhoto(t *testing.T) {
	env := newHandlerEnv(t)
	handler := NewAttendanceHandler(env.svc, env.store)

	recorder := httptest.NewRecorder()
	handler.Mark(recorder, multipartRequest(t, http.MethodPost, "/", nil, nil))

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "photo is required")
}

func TestAttendanceHandler_List(t *testing.T) {
	env := newHandlerEnv(t)
	handler := NewAttendanceHandler(env.svc, env.store)
	env.store.AddStudent(database.Student{StudentID: "s1", FirstName: "A", LastName: "B"})
	env.store.AddStudent(database.Student{StudentID: "s2", FirstName: "C", LastName: "D"})

	base := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"s1", "s2", "s1"} {
		if err := env.store.RecordAttendance(t.Context(), &database.AttendanceRecord{
			ID:         "r" + string(rune('1'+i)),
			StudentID:  id,
			Distance:   0.123456,
			Model:      "dlib",
			RecordedAt: base.Add(time.Duration(i) * 24 * time.Hour),
		}); err != nil {
			t.Fatalf("RecordAttendance() error = %v", err)
		}
	}

	t.Run("newest first", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		handler.List(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/attendance", nil))

		assertStatusCode(t, recorder, http.StatusOK)
		var result []RecordResponse
		parseJSONResponse(t, recorder, &result)
		if len(result) != 3 || result[0].ID != "r3" || result[2].ID != "r1" {
			t.Fatalf("unexpected records: %+v", result)
		}
		if result[0].Distance != 0.1235 {
			t.Errorf("expected rounded distance 0.1235, got %v", result[0].Distance)
		}
	})

	t.Run("filters", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		handler.List(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/attendance?student_id=s1&since=2026-09-02", nil))

		var result []RecordResponse
		parseJSONResponse(t, recorder, &result)
		if len(result) != 1 || result[0].ID != "r3" {
			t.Errorf("expected r3 only, got %+v", result)
		}
	})

	t.Run("limit", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		handler.List(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/attendance?limit=2", nil))

		var result []RecordResponse
		parseJSONResponse(t, recorder, &result)
		if len(result) != 2 {
			t.Errorf("expected 2 records, got %d", len(result))
		}
	})

	for _, query := range []string{"limit=0", "limit=x", "since=soon", "until=later", "group_id=abc"} {
		t.Run("invalid "+query, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			handler.List(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/attendance?"+query, nil))
			assertStatusCode(t, recorder, http.StatusBadRequest)
		})
	}
}
