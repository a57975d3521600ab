package router

// This file registers the seat assignment and live status routes used by
// teachers and administrators.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studyroom-seating/internal/handler"
	"github.com/iliyamo/studyroom-seating/internal/middleware"
	"github.com/iliyamo/studyroom-seating/internal/model"
)

// RegisterAssignments mounts manual and bulk assignment, seat history,
// student lookup and the status board.  All routes require ADMIN or
// TEACHER.
func RegisterAssignments(e *echo.Echo, a *handler.AssignmentHandler, s *handler.StatusHandler, st *handler.StudentHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleTeacher),
	)
	g.POST("/assignment", a.Manual)
	g.POST("/rooms/:id/bulk-assign", a.BulkAssign)
	g.POST("/rooms/:id/assignments/validate", a.Validate)
	g.POST("/rooms/:id/assignments/commit", a.Commit)
	g.GET("/seats/:id/assignments", a.History)
	g.GET("/students", st.Search)

	g.GET("/rooms/:id/status", s.RoomStatus)
	g.GET("/rooms/:id/status/stream", s.Stream)
}
