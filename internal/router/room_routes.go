package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studyroom-seating/internal/handler"    // room and editor handlers
	"github.com/iliyamo/studyroom-seating/internal/middleware" // JWT + role middlewares
	"github.com/iliyamo/studyroom-seating/internal/model"
)

// RegisterRooms registers room CRUD, the seat map and the layout editor.
// Reads are open to ADMIN and TEACHER; every write requires ADMIN.
func RegisterRooms(e *echo.Echo, r *handler.RoomHandler, ed *handler.EditorHandler, jwtSecret string, seatCache echo.MiddlewareFunc) {
	read := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleTeacher),
	)
	write := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	// ---- Rooms ----
	write.POST("/rooms", r.CreateRoom)
	read.GET("/rooms", r.ListRooms)
	read.GET("/rooms/:id", r.GetRoom)
	write.DELETE("/rooms/:id", r.DeleteRoom)

	// ---- Seat map ----
	if seatCache != nil {
		read.GET("/rooms/:id/seats", r.ListSeats, seatCache)
	} else {
		read.GET("/rooms/:id/seats", r.ListSeats)
	}
	write.PUT("/rooms/:id/seats", r.SyncSeats) // atomic {toCreate,toUpdate,toDelete}

	// ---- Editor sessions ----
	write.POST("/rooms/:id/editor", ed.Open)
	write.GET("/editor/:sid", ed.Get)
	write.DELETE("/editor/:sid", ed.Close)
	write.POST("/editor/:sid/nodes", ed.AddNode)
	write.PUT("/editor/:sid/nodes/:nid/label", ed.EditLabel)
	write.POST("/editor/:sid/click", ed.Click)
	write.POST("/editor/:sid/background", ed.Background)
	write.POST("/editor/:sid/drag", ed.Drag)
	write.POST("/editor/:sid/wall", ed.ToggleWall)
	write.POST("/editor/:sid/pointer/down", ed.PointerDown)
	write.POST("/editor/:sid/pointer/move", ed.PointerMove)
	write.POST("/editor/:sid/pointer/up", ed.PointerUp)
	write.POST("/editor/:sid/copy", ed.Copy)
	write.POST("/editor/:sid/paste", ed.Paste)
	write.POST("/editor/:sid/keys", ed.Key)
	write.DELETE("/editor/:sid/selection", ed.DeleteSelection)
	write.POST("/editor/:sid/save", ed.Save)
}
