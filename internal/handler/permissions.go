package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studyroom-seating/internal/middleware"
	"github.com/iliyamo/studyroom-seating/internal/model"
	"github.com/iliyamo/studyroom-seating/internal/repository"
)

// PermissionHandler lets students ask for hall passes and teachers decide
// on them.
type PermissionHandler struct {
	Permissions *repository.PermissionRepo
}

func NewPermissionHandler(perms *repository.PermissionRepo) *PermissionHandler {
	return &PermissionHandler{Permissions: perms}
}

type createPermissionReq struct {
	Type     string    `json:"type" validate:"required,oneof=MOVEMENT OUTING EARLY_LEAVE OTHER"`
	Reason   string    `json:"reason" validate:"max=500"`
	StartsAt time.Time `json:"startsAt" validate:"required"`
	EndsAt   time.Time `json:"endsAt" validate:"required,gtfield=StartsAt"`
}

// Create handles POST /v1/permissions for the authenticated student.
func (h *PermissionHandler) Create(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createPermissionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Type = strings.ToUpper(strings.TrimSpace(req.Type))
	if err := c.Validate(&req); err != nil {
		return err
	}
	typ, err := model.ParsePermissionType(req.Type)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	p := model.Permission{
		StudentID: uid,
		Type:      typ,
		Reason:    strings.TrimSpace(req.Reason),
		StartsAt:  req.StartsAt,
		EndsAt:    req.EndsAt,
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Permissions.Create(ctx, &p); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

// Mine handles GET /v1/me/permissions.
func (h *PermissionHandler) Mine(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.Permissions.ListByStudent(ctx, uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"count": len(items), "items": items})
}

// Pending handles GET /v1/permissions/pending.
func (h *PermissionHandler) Pending(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.Permissions.ListPending(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"count": len(items), "items": items})
}

type decideReq struct {
	Status string `json:"status" validate:"required,oneof=APPROVED REJECTED"`
}

// Decide handles PATCH /v1/permissions/:id.  Only pending requests can be
// decided; deciding twice is a 409.
func (h *PermissionHandler) Decide(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req decideReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Status = strings.ToUpper(strings.TrimSpace(req.Status))
	if err := c.Validate(&req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Permissions.Decide(ctx, id, model.PermissionStatus(req.Status), uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}
