package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/matcher"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps attendance service errors to HTTP responses.
// Unexpected errors are logged and reported as "<action> failed".
func respondServiceError(w http.ResponseWriter, err error, action string) {
	var noMatch *attendance.NoMatchError
	switch {
	case errors.As(err, &noMatch):
		respondError(w, http.StatusNotFound, noMatch.Error())
	case errors.Is(err, matcher.ErrNoFace):
		respondError(w, http.StatusBadRequest, matcher.ErrNoFace.Error())
	case errors.Is(err, attendance.ErrStudentExists):
		respondError(w, http.StatusBadRequest, attendance.ErrStudentExists.Error())
	case errors.Is(err, attendance.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, attendance.ErrStudentNotFound):
		respondError(w, http.StatusNotFound, attendance.ErrStudentNotFound.Error())
	case errors.Is(err, attendance.ErrGroupNotFound):
		respondError(w, http.StatusNotFound, attendance.ErrGroupNotFound.Error())
	default:
		log.Printf("%s failed: %s", action, sanitizeForLog(err.Error()))
		respondError(w, http.StatusInternalServerError, action+" failed")
	}
}

// readPhoto parses a multipart form and returns the content of its "photo" file.
func readPhoto(r *http.Request) ([]byte, error) {
	if err := r.ParseMultipartForm(constants.MultipartMemory); err != nil {
		return nil, errors.New("failed to parse multipart form")
	}
	file, _, err := r.FormFile("photo")
	if err != nil {
		return nil, errors.New("photo is required")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, constants.MaxUploadSize+1))
	if err != nil {
		return nil, errors.New("failed to read photo")
	}
	if len(data) > constants.MaxUploadSize {
		return nil, fmt.Errorf("photo exceeds %d MB", constants.MaxUploadSize>>20)
	}
	return data, nil
}

// parseGroupID parses an optional group ID, empty means no group.
func parseGroupID(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		return 0, errors.New("invalid group_id")
	}
	return id, nil
}

// parseID parses a positive numeric path parameter.
func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// parseTime accepts RFC 3339 timestamps and plain dates (midnight UTC).
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

// optionalGroupID converts the 0 = none convention to a nullable JSON value.
func optionalGroupID(id int64) *int64 {
	if id <= 0 {
		return nil
	}
	return &id
}

// StudentResponse represents a student in API responses
type StudentResponse struct {
	StudentID        string    `json:"student_id"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	GroupID          *int64    `json:"group_id"`
	PhotoPath        string    `json:"photo_path"`
	EnrollmentStatus string    `json:"enrollment_status"`
	CreatedAt        time.Time `json:"created_at"`
}

// enrollmentStatus reports an enrollment status, "pending" when none was computed yet.
func enrollmentStatus(status string) string {
	if status == "" {
		return "pending"
	}
	return status
}

func newStudentResponse(s *database.Student, status string) StudentResponse {
	return StudentResponse{
		StudentID:        s.StudentID,
		FirstName:        s.FirstName,
		LastName:         s.LastName,
		GroupID:          optionalGroupID(s.GroupID),
		PhotoPath:        s.PhotoPath,
		EnrollmentStatus: enrollmentStatus(status),
		CreatedAt:        s.CreatedAt,
	}
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
