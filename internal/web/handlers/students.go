package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/facematch"
)

// StudentsHandler handles student registration and management endpoints
type StudentsHandler struct {
	service     *attendance.Service
	students    database.StudentReader
	enrollments database.EnrollmentReader
}

// NewStudentsHandler creates a new students handler
func NewStudentsHandler(svc *attendance.Service, students database.StudentReader, enrollments database.EnrollmentReader) *StudentsHandler {
	return &StudentsHandler{
		service:     svc,
		students:    students,
		enrollments: enrollments,
	}
}

// DuplicateResponse points at an enrolled student with a very similar face
type DuplicateResponse struct {
	StudentID string  `json:"student_id"`
	Distance  float64 `json:"distance"`
}

// RegisterResponse is returned after a successful registration
type RegisterResponse struct {
	Message           string             `json:"message"`
	StudentID         string             `json:"student_id"`
	FaceDetected      bool               `json:"face_detected"`
	EnrollmentStatus  string             `json:"enrollment_status"`
	FaceBox           *facematch.FaceBox `json:"face_box,omitempty"`
	PossibleDuplicate *DuplicateResponse `json:"possible_duplicate,omitempty"`
}

// Create registers a student from a multipart form (first_name, last_name, student_id, group_id, photo)
func (h *StudentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	photo, err := readPhoto(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	groupID, err := parseGroupID(r.FormValue("group_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	reg, err := h.service.RegisterStudent(r.Context(), attendance.RegisterInput{
		StudentID: r.FormValue("student_id"),
		FirstName: r.FormValue("first_name"),
		LastName:  r.FormValue("last_name"),
		GroupID:   groupID,
		Photo:     photo,
	})
	if err != nil {
		respondServiceError(w, err, "registration")
		return
	}

	if !reg.FaceDetected() {
		log.Printf("Student %s registered without a usable face (%s)",
			sanitizeForLog(reg.Student.StudentID), reg.Enrollment.Status)
	}

	resp := RegisterResponse{
		Message:          "student registered successfully",
		StudentID:        reg.Student.StudentID,
		FaceDetected:     reg.FaceDetected(),
		EnrollmentStatus: reg.Enrollment.Status,
		FaceBox:          reg.FaceBox,
	}
	if reg.PossibleDuplicate != nil {
		resp.PossibleDuplicate = &DuplicateResponse{
			StudentID: reg.PossibleDuplicate.StudentID,
			Distance:  attendance.RoundDistance(reg.PossibleDuplicate.Distance, constants.ResponseDistanceDecimals),
		}
	}
	respondJSON(w, http.StatusCreated, resp)
}

// List returns students in registration order, optionally filtered by group_id and q
func (h *StudentsHandler) List(w http.ResponseWriter, r *http.Request) {
	groupID, err := parseGroupID(r.URL.Query().Get("group_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	students, err := h.students.ListStudents(r.Context(), database.StudentFilter{
		GroupID: groupID,
		Query:   r.URL.Query().Get("q"),
	})
	if err != nil {
		respondServiceError(w, err, "listing students")
		return
	}

	statuses := make(map[string]string)
	enrollments, err := h.enrollments.ListEnrollments(r.Context(), groupID)
	if err != nil {
		respondServiceError(w, err, "listing students")
		return
	}
	for _, e := range enrollments {
		statuses[e.StudentID] = e.Status
	}

	result := make([]StudentResponse, 0, len(students))
	for i := range students {
		result = append(result, newStudentResponse(&students[i], statuses[students[i].StudentID]))
	}
	respondJSON(w, http.StatusOK, result)
}

// Get returns a single student
func (h *StudentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")

	student, err := h.students.GetStudent(r.Context(), studentID)
	if err != nil {
		respondServiceError(w, err, "loading student")
		return
	}
	if student == nil {
		respondError(w, http.StatusNotFound, attendance.ErrStudentNotFound.Error())
		return
	}

	enrollment, err := h.enrollments.GetEnrollment(r.Context(), studentID)
	if err != nil {
		respondServiceError(w, err, "loading student")
		return
	}
	status := ""
	if enrollment != nil {
		status = enrollment.Status
	}
	respondJSON(w, http.StatusOK, newStudentResponse(student, status))
}

// SetGroupRequest assigns a student to a group, null or 0 removes the assignment
type SetGroupRequest struct {
	GroupID *int64 `json:"group_id"`
}

// SetGroup moves a student to another group
func (h *StudentsHandler) SetGroup(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")

	var req SetGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	var groupID int64
	if req.GroupID != nil {
		groupID = *req.GroupID
	}
	if groupID < 0 {
		respondError(w, http.StatusBadRequest, "invalid group_id")
		return
	}

	if err := h.service.SetStudentGroup(r.Context(), studentID, groupID); err != nil {
		respondServiceError(w, err, "updating student")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"student_id": studentID,
		"group_id":   optionalGroupID(groupID),
	})
}

// Delete removes a student with its enrollment, attendance records and photo
func (h *StudentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")

	if err := h.service.DeleteStudent(r.Context(), studentID); err != nil {
		respondServiceError(w, err, "deleting student")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message":    "student deleted",
		"student_id": studentID,
	})
}

// Enroll recomputes the enrollment of a student from the stored photo
func (h *StudentsHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")

	enrollment, err := h.service.Reenroll(r.Context(), studentID)
	if err != nil {
		respondServiceError(w, err, "enrollment")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"student_id":        studentID,
		"face_detected":     enrollment.Usable(),
		"enrollment_status": enrollment.Status,
	})
}
