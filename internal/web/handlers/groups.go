package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/attendance/internal/database"
)

// GroupsHandler handles group endpoints
type GroupsHandler struct {
	groups   database.GroupWriter
	students database.StudentReader
}

// NewGroupsHandler creates a new groups handler
func NewGroupsHandler(groups database.GroupWriter, students database.StudentReader) *GroupsHandler {
	return &GroupsHandler{groups: groups, students: students}
}

// GroupRequest is the body of create and update requests
type GroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// GroupResponse represents a group in API responses
type GroupResponse struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	CreatedAt   time.Time         `json:"created_at"`
	Students    []StudentResponse `json:"students,omitempty"`
}

func newGroupResponse(g *database.Group) GroupResponse {
	return GroupResponse{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		CreatedAt:   g.CreatedAt,
	}
}

func decodeGroupRequest(r *http.Request) (GroupRequest, string) {
	var req GroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, errInvalidRequestBody
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if req.Name == "" {
		return req, "name is required"
	}
	return req, ""
}

// List returns all groups ordered by name
func (h *GroupsHandler) List(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groups.ListGroups(r.Context())
	if err != nil {
		respondServiceError(w, err, "listing groups")
		return
	}

	result := make([]GroupResponse, 0, len(groups))
	for i := range groups {
		result = append(result, newGroupResponse(&groups[i]))
	}
	respondJSON(w, http.StatusOK, result)
}

// Create adds a group
func (h *GroupsHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, msg := decodeGroupRequest(r)
	if msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	group := &database.Group{Name: req.Name, Description: req.Description}
	if err := h.groups.CreateGroup(r.Context(), group); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			respondError(w, http.StatusConflict, "group already exists")
			return
		}
		respondServiceError(w, err, "creating group")
		return
	}
	respondJSON(w, http.StatusCreated, newGroupResponse(group))
}

// Get returns a group with its students
func (h *GroupsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	group, err := h.groups.GetGroup(r.Context(), id)
	if err != nil {
		respondServiceError(w, err, "loading group")
		return
	}
	if group == nil {
		respondError(w, http.StatusNotFound, "group not found")
		return
	}

	students, err := h.students.ListStudents(r.Context(), database.StudentFilter{GroupID: id})
	if err != nil {
		respondServiceError(w, err, "loading group")
		return
	}

	resp := newGroupResponse(group)
	resp.Students = make([]StudentResponse, 0, len(students))
	for i := range students {
		resp.Students = append(resp.Students, newStudentResponse(&students[i], ""))
	}
	respondJSON(w, http.StatusOK, resp)
}

// Update renames a group or changes its description
func (h *GroupsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid group id")
		return
	}
	req, msg := decodeGroupRequest(r)
	if msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	group := &database.Group{ID: id, Name: req.Name, Description: req.Description}
	if err := h.groups.UpdateGroup(r.Context(), group); err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			respondError(w, http.StatusNotFound, "group not found")
		case errors.Is(err, database.ErrDuplicate):
			respondError(w, http.StatusConflict, "group already exists")
		default:
			respondServiceError(w, err, "updating group")
		}
		return
	}

	updated, err := h.groups.GetGroup(r.Context(), id)
	if err != nil || updated == nil {
		respondJSON(w, http.StatusOK, newGroupResponse(group))
		return
	}
	respondJSON(w, http.StatusOK, newGroupResponse(updated))
}

// Delete removes a group, its students stay registered without a group
func (h *GroupsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	if err := h.groups.DeleteGroup(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "group not found")
			return
		}
		respondServiceError(w, err, "deleting group")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
