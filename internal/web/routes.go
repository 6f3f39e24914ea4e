package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/web/handlers"
	"github.com/kozaktomas/attendance/internal/web/middleware"
)

// maxRequestBody leaves room for the form fields next to the photo.
const maxRequestBody = constants.MaxUploadSize + 1<<20

func (s *Server) setupRoutes() {
	studentsHandler := handlers.NewStudentsHandler(s.service, s.repos.Students, s.repos.Enrollments)
	groupsHandler := handlers.NewGroupsHandler(s.repos.Groups, s.repos.Students)
	attendanceHandler := handlers.NewAttendanceHandler(s.service, s.repos.Attendance)
	statsHandler := handlers.NewStatsHandler(s.service, s.repos.Enrollments)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireToken(s.config.Web.APIToken))
		r.Use(middleware.LimitBody(maxRequestBody))

		// Students
		r.Get("/students", studentsHandler.List)
		r.Post("/students", studentsHandler.Create)
		r.Get("/students/{studentID}", studentsHandler.Get)
		r.Delete("/students/{studentID}", studentsHandler.Delete)
		r.Put("/students/{studentID}/group", studentsHandler.SetGroup)
		r.Post("/students/{studentID}/enroll", studentsHandler.Enroll)

		// Groups
		r.Get("/groups", groupsHandler.List)
		r.Post("/groups", groupsHandler.Create)
		r.Get("/groups/{id}", groupsHandler.Get)
		r.Put("/groups/{id}", groupsHandler.Update)
		r.Delete("/groups/{id}", groupsHandler.Delete)

		// Attendance
		r.Post("/attendance", attendanceHandler.Mark)
		r.Get("/attendance", attendanceHandler.List)

		// Stats
		r.Get("/stats", statsHandler.Get)
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}` + "\n"))
	})
}
