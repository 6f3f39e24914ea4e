package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/database"
)

// AttendanceHandler handles attendance marking and history endpoints
type AttendanceHandler struct {
	service *attendance.Service
	records database.AttendanceReader
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(svc *attendance.Service, records database.AttendanceReader) *AttendanceHandler {
	return &AttendanceHandler{
		service: svc,
		records: records,
	}
}

// MarkResponse is returned when a face matched an enrolled student
type MarkResponse struct {
	Message    string    `json:"message"`
	StudentID  string    `json:"student_id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Distance   float64   `json:"distance"`
	RecordID   string    `json:"record_id"`
	GroupID    *int64    `json:"group_id,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// RecordResponse represents a stored attendance record
type RecordResponse struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	GroupID    *int64    `json:"group_id"`
	Distance   float64   `json:"distance"`
	Model      string    `json:"model"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Mark identifies the face of a multipart "photo" and records attendance.
// An optional group_id restricts matching to the students of that group.
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
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

	mark, err := h.service.MarkAttendance(r.Context(), photo, groupID)
	if err != nil {
		respondServiceError(w, err, "reading face")
		return
	}

	respondJSON(w, http.StatusOK, MarkResponse{
		Message:    "attendance recorded",
		StudentID:  mark.Student.StudentID,
		FirstName:  mark.Student.FirstName,
		LastName:   mark.Student.LastName,
		Distance:   attendance.RoundDistance(mark.Record.Distance, constants.ResponseDistanceDecimals),
		RecordID:   mark.Record.ID,
		GroupID:    optionalGroupID(mark.Record.GroupID),
		RecordedAt: mark.Record.RecordedAt,
	})
}

// List returns attendance records newest first.
// Filters: student_id, group_id, since, until (RFC 3339 or YYYY-MM-DD), limit.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	groupID, err := parseGroupID(q.Get("group_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	since, err := parseTime(q.Get("since"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid since")
		return
	}
	until, err := parseTime(q.Get("until"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid until")
		return
	}

	limit := constants.DefaultAttendanceListLimit
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, database.DefaultAttendanceLimit)
	}

	records, err := h.records.ListAttendance(r.Context(), database.AttendanceFilter{
		StudentID: q.Get("student_id"),
		GroupID:   groupID,
		Since:     since,
		Until:     until,
		Limit:     limit,
	})
	if err != nil {
		respondServiceError(w, err, "listing attendance")
		return
	}

	result := make([]RecordResponse, 0, len(records))
	for _, rec := range records {
		result = append(result, RecordResponse{
			ID:         rec.ID,
			StudentID:  rec.StudentID,
			GroupID:    optionalGroupID(rec.GroupID),
			Distance:   attendance.RoundDistance(rec.Distance, constants.ResponseDistanceDecimals),
			Model:      rec.Model,
			RecordedAt: rec.RecordedAt,
		})
	}
	respondJSON(w, http.StatusOK, result)
}
