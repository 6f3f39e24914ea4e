package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/database/mock"
)

func groupRequest(method, id, body string) *http.Request {
	req := httptest.NewRequest(method, "/api/v1/groups", strings.NewReader(body))
	if id == "" {
		return req
	}
	return requestWithChiParams(req, map[string]string{"id": id})
}

func TestGroupsHandler_CreateAndList(t *testing.T) {
	store := mock.NewMockStore()
	handler := NewGroupsHandler(store, store)

	for _, name := range []string{"2.B", "1.A"} {
		recorder := httptest.NewRecorder()
		handler.Create(recorder, groupRequest(http.MethodPost, "", `{"name": " `+name+` ", "description": "class"}`))
		assertStatusCode(t, recorder, http.StatusCreated)
	}

	recorder := httptest.NewRecorder()
	handler.Create(recorder, groupRequest(http.MethodPost, "", `{"name": "1.A"}`))
	assertStatusCode(t, recorder, http.StatusConflict)
	assertJSONError(t, recorder, "group already exists")

	recorder = httptest.NewRecorder()
	handler.Create(recorder, groupRequest(http.MethodPost, "", `{"name": "  "}`))
	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "name is required")

	recorder = httptest.NewRecorder()
	handler.List(recorder, groupRequest(http.MethodGet, "", ""))
	assertStatusCode(t, recorder, http.StatusOK)

	var groups []GroupResponse
	parseJSONResponse(t, recorder, &groups)
	if len(groups) != 2 || groups[0].Name != "1.A" || groups[1].Name != "2.B" {
		t.Errorf("expected groups ordered by name, got %+v", groups)
	}
}

func TestGroupsHandler_Get(t *testing.T) {
	store := mock.NewMockStore()
	handler := NewGroupsHandler(store, store)
	id := store.AddGroup(database.Group{Name: "1.A"})
	store.AddStudent(database.Student{StudentID: "s1", FirstName: "A", LastName: "B", GroupID: id})
	store.AddStudent(database.Student{StudentID: "s2", FirstName: "C", LastName: "D"})

	recorder := httptest.NewRecorder()
	handler.Get(recorder, groupRequest(http.MethodGet, fmt.Sprint(id), ""))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp GroupResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Name != "1.A" || len(resp.Students) != 1 || resp.Students[0].StudentID != "s1" {
		t.Errorf("unexpected group: %+v", resp)
	}

	recorder = httptest.NewRecorder()
	handler.Get(recorder, groupRequest(http.MethodGet, "999", ""))
	assertStatusCode(t, recorder, http.StatusNotFound)

	recorder = httptest.NewRecorder()
	handler.Get(recorder, groupRequest(http.MethodGet, "abc", ""))
	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "invalid group id")
}

func TestGroupsHandler_Update(t *testing.T) {
	store := mock.NewMockStore()
	handler := NewGroupsHandler(store, store)
	id := store.AddGroup(database.Group{Name: "1.A"})
	store.AddGroup(database.Group{Name: "1.B"})

	recorder := httptest.NewRecorder()
	handler.Update(recorder, groupRequest(http.MethodPut, fmt.Sprint(id), `{"name": "2.A", "description": "moved up"}`))
	assertStatusCode(t, recorder, http.StatusOK)

	var resp GroupResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Name != "2.A" || resp.Description != "moved up" {
		t.Errorf("unexpected group: %+v", resp)
	}

	recorder = httptest.NewRecorder()
	handler.Update(recorder, groupRequest(http.MethodPut, fmt.Sprint(id), `{"name": "1.B"}`))
	assertStatusCode(t, recorder, http.StatusConflict)

	recorder = httptest.NewRecorder()
	handler.Update(recorder, groupRequest(http.MethodPut, "999", `{"name": "X"}`))
	assertStatusCode(t, recorder, http.StatusNotFound)
}

func TestGroupsHandler_Delete(t *testing.T) {
	store := mock.NewMockStore()
	handler := NewGroupsHandler(store, store)
	id := store.AddGroup(database.Group{Name: "1.A"})
	store.AddStudent(database.Student{StudentID: "s1", FirstName: "A", LastName: "B", GroupID: id})

	recorder := httptest.NewRecorder()
	handler.Delete(recorder, groupRequest(http.MethodDelete, fmt.Sprint(id), ""))
	assertStatusCode(t, recorder, http.StatusNoContent)

	s, _ := store.GetStudent(t.Context(), "s1")
	if s == nil || s.GroupID != 0 {
		t.Errorf("expected student to stay registered without group, got %+v", s)
	}

	recorder = httptest.NewRecorder()
	handler.Delete(recorder, groupRequest(http.MethodDelete, fmt.Sprint(id), ""))
	assertStatusCode(t, recorder, http.StatusNotFound)
}
