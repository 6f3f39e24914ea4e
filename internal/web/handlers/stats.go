package handlers

import (
	"net/http"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/database"
)

// StatsHandler reports enrollment coverage and matcher settings
type StatsHandler struct {
	service     *attendance.Service
	enrollments database.EnrollmentReader
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(svc *attendance.Service, enrollments database.EnrollmentReader) *StatsHandler {
	return &StatsHandler{service: svc, enrollments: enrollments}
}

// StatsResponse is the body of GET /stats
type StatsResponse struct {
	Students  int     `json:"students"`
	Enrolled  int     `json:"enrolled"`
	NoFace    int     `json:"no_face"`
	Failed    int     `json:"failed"`
	Pending   int     `json:"pending"`
	Indexed   int     `json:"indexed"`
	Metric    string  `json:"metric"`
	Threshold float64 `json:"threshold"`
}

// Get returns the stats
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.enrollments.EnrollmentStats(r.Context())
	if err != nil {
		respondServiceError(w, err, "loading stats")
		return
	}

	resp := StatsResponse{
		Students:  stats.Total,
		Enrolled:  stats.OK,
		NoFace:    stats.NoFace,
		Failed:    stats.Failed,
		Pending:   stats.Total - stats.OK - stats.NoFace - stats.Failed,
		Metric:    h.service.Metric(),
		Threshold: h.service.Threshold(),
	}
	if idx := h.service.Index(); idx != nil {
		resp.Indexed = idx.Count()
	}
	respondJSON(w, http.StatusOK, resp)
}
