package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studyroom-seating/internal/handler"
	"github.com/iliyamo/studyroom-seating/internal/middleware"
	"github.com/iliyamo/studyroom-seating/internal/model"
)

// RegisterPermissions registers the hall pass workflow.  Students file
// requests and see their own seat; teachers and administrators decide on
// requests and list the ones in force.
func RegisterPermissions(e *echo.Echo, p *handler.PermissionHandler, s *handler.StatusHandler, st *handler.StudentHandler, jwtSecret string) {
	student := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStudent),
	)
	student.POST("/permissions", p.Create)
	student.GET("/me/permissions", p.Mine)
	student.GET("/me/seat", st.MySeat)

	staff := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleTeacher),
	)
	staff.GET("/permissions/active", s.ActivePermissions)
	staff.GET("/permissions/pending", p.Pending)
	staff.PATCH("/permissions/:id", p.Decide)
}
