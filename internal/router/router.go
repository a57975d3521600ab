package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/studyroom-seating/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/studyroom-seating/internal/middleware" // import middleware for JWT authentication and role enforcement
	"github.com/iliyamo/studyroom-seating/internal/model"      // role names
)

// Handlers groups every HTTP handler the API exposes.
type Handlers struct {
	Auth        *handler.AuthHandler
	Rooms       *handler.RoomHandler
	Editor      *handler.EditorHandler
	Assignment  *handler.AssignmentHandler
	Status      *handler.StatusHandler
	Permissions *handler.PermissionHandler
	Students    *handler.StudentHandler
}

// Register mounts every route.  seatCache wraps the cacheable seat map
// read; pass nil to serve it uncached.
func Register(e *echo.Echo, db handler.Pinger, h Handlers, jwtSecret string, seatCache echo.MiddlewareFunc) {
	RegisterRoutes(e, db)
	RegisterAuth(e, h.Auth, jwtSecret)
	RegisterRooms(e, h.Rooms, h.Editor, jwtSecret, seatCache)
	RegisterAssignments(e, h.Assignment, h.Status, h.Students, jwtSecret)
	RegisterPermissions(e, h.Permissions, h.Status, h.Students, jwtSecret)
}

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance: the liveness and readiness probes.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
	if db != nil {
		e.GET("/readyz", handler.Ready(db))
	}
}

// RegisterAuth registers the login endpoint under /v1/auth and the
// authenticated /v1/me lookup.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	// Login issues access tokens and needs no session of its own.
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)

	// Any authenticated role may ask who it is.
	me := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleTeacher, model.RoleStudent),
	)
	me.GET("/me", a.Me)
}
