package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studyroom-seating/internal/middleware"
	"github.com/iliyamo/studyroom-seating/internal/model"
	"github.com/iliyamo/studyroom-seating/internal/repository"
)

// StudentHandler answers student lookups for the assignment UI and the
// student's own seat.
type StudentHandler struct {
	Users       *repository.UserRepo
	Assignments *repository.AssignmentRepo
}

func NewStudentHandler(users *repository.UserRepo, assignments *repository.AssignmentRepo) *StudentHandler {
	return &StudentHandler{Users: users, Assignments: assignments}
}

// Search handles GET /v1/students?q=&limit=.
func (h *StudentHandler) Search(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	ctx, cancel := reqCtx(c)
	defer cancel()
	users, err := h.Users.SearchStudents(ctx, c.QueryParam("q"), limit)
	if err != nil {
		return err
	}
	items := make([]model.StudentRef, 0, len(users))
	for _, u := range users {
		items = append(items, u.Ref())
	}
	return c.JSON(http.StatusOK, echo.Map{"count": len(items), "items": items})
}

// MySeat handles GET /v1/me/seat.  A student without a seat gets
// {"assignment": null}.
func (h *StudentHandler) MySeat(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	a, err := h.Assignments.ActiveByStudent(ctx, uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"assignment": a})
}
