package handler

import (
    "encoding/csv"
    "io"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/studyroom-seating/internal/assignment"
    "github.com/iliyamo/studyroom-seating/internal/model"
    "github.com/iliyamo/studyroom-seating/internal/repository"
)

// maxImportRows caps one spreadsheet import.
const maxImportRows = 2000

// AssignmentHandler exposes the seat assignment engine.
type AssignmentHandler struct {
    Engine      *assignment.Engine
    Assignments *repository.AssignmentRepo
}

func NewAssignmentHandler(engine *assignment.Engine, assignments *repository.AssignmentRepo) *AssignmentHandler {
    return &AssignmentHandler{Engine: engine, Assignments: assignments}
}

const (
    actionAssign   = "ASSIGN"
    actionUnassign = "UNASSIGN"
)

type manualReq struct {
    SeatID    uint64 `json:"seatId" validate:"required"`
    StudentID uint64 `json:"studentId" validate:"required_if=Action ASSIGN"`
    Action    string `json:"action" validate:"omitempty,oneof=ASSIGN UNASSIGN"`
}

// seatState is what the client rolls its optimistic update back to.
type seatState struct {
    SeatID     uint64                `json:"seatId"`
    Assignment *model.SeatAssignment `json:"assignment"`
}

// Manual handles POST /v1/assignment.  On failure the body carries the
// seat's persisted assignment next to the error.
func (h *AssignmentHandler) Manual(c echo.Context) error {
    var req manualReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Action = strings.ToUpper(strings.TrimSpace(req.Action))
    if req.Action == "" {
        req.Action = actionAssign
    }
    if err := c.Validate(&req); err != nil {
        return err
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    var (
        ch  assignment.Change
        err error
    )
    if req.Action == actionUnassign {
        ch, err = h.Engine.Unassign(ctx, req.SeatID)
    } else {
        ch, err = h.Engine.Assign(ctx, req.SeatID, req.StudentID)
    }
    if err != nil {
        code, msg := statusFor(err)
        if code >= http.StatusInternalServerError {
            c.Logger().Errorf("assignment seat %d: %+v", req.SeatID, err)
        }
        state := seatState{SeatID: req.SeatID}
        // best effort: the seat itself may be what does not exist
        if cur, serr := h.Assignments.ActiveBySeat(ctx, req.SeatID); serr == nil {
            state.Assignment = cur
        }
        return c.JSON(code, echo.Map{"error": msg, "seat": state})
    }
    return c.JSON(http.StatusOK, ch)
}

type rowsReq struct {
    Rows []assignment.Row `json:"rows"`
}

// readRows accepts {"rows": [...]} or a text/csv body with the columns
// seat_label, student_name and an optional student_id_hint.  A header row
// is skipped when present.
func readRows(c echo.Context) ([]assignment.Row, error) {
    ct := strings.ToLower(c.Request().Header.Get(echo.HeaderContentType))
    if strings.HasPrefix(ct, "text/csv") {
        return parseCSVRows(c.Request().Body)
    }
    var req rowsReq
    if err := c.Bind(&req); err != nil {
        return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid body")
    }
    if len(req.Rows) > maxImportRows {
        return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "too many rows")
    }
    return req.Rows, nil
}

func parseCSVRows(r io.Reader) ([]assignment.Row, error) {
    cr := csv.NewReader(r)
    cr.FieldsPerRecord = -1
    cr.TrimLeadingSpace = true
    var rows []assignment.Row
    for i := 0; ; i++ {
        rec, err := cr.Read()
        if err == io.EOF {
            break
        }
        if err != nil {
            return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid csv: "+err.Error())
        }
        if i == 0 && len(rec) > 0 && strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(rec[0], "\ufeff")), "seat_label") {
            continue
        }
        if len(rec) < 2 {
            return nil, echo.NewHTTPError(http.StatusBadRequest, "csv rows need seat_label and student_name")
        }
        row := assignment.Row{SeatLabel: rec[0], StudentName: rec[1]}
        if len(rec) > 2 {
            row.StudentIDHint = rec[2]
        }
        rows = append(rows, row)
        if len(rows) > maxImportRows {
            return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "too many rows")
        }
    }
    return rows, nil
}

// Validate handles POST /v1/rooms/:id/assignments/validate.
func (h *AssignmentHandler) Validate(c echo.Context) error {
    roomID, err := paramID(c, "id")
    if err != nil {
        return err
    }
    rows, err := readRows(c)
    if err != nil {
        return err
    }
    ctx, cancel := reqCtx(c)
    defer cancel()
    v, err := h.Engine.Validate(ctx, roomID, rows)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, v)
}

// BulkAssign handles POST /v1/rooms/:id/bulk-assign.  Pairs commit one by
// one; failures are reported per row.
func (h *AssignmentHandler) BulkAssign(c echo.Context) error {
    roomID, err := paramID(c, "id")
    if err != nil {
        return err
    }
    rows, err := readRows(c)
    if err != nil {
        return err
    }
    ctx, cancel := reqCtx(c)
    defer cancel()
    res, err := h.Engine.BulkAssign(ctx, roomID, rows)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, res)
}

type commitReq struct {
    Pairs []assignment.Pair `json:"pairs" validate:"max=2000,dive"`
}

// Commit handles POST /v1/rooms/:id/assignments/commit.  The pairs are
// applied atomically.
func (h *AssignmentHandler) Commit(c echo.Context) error {
    roomID, err := paramID(c, "id")
    if err != nil {
        return err
    }
    var req commitReq
    if err := bindValid(c, &req); err != nil {
        return err
    }
    ctx, cancel := reqCtx(c)
    defer cancel()
    changes, err := h.Engine.BulkCommit(ctx, roomID, req.Pairs)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, echo.Map{
        "count":   len(changes),
        "changes": changes,
    })
}

// History handles GET /v1/seats/:id/assignments.
func (h *AssignmentHandler) History(c echo.Context) error {
    seatID, err := paramID(c, "id")
    if err != nil {
        return err
    }
    ctx, cancel := reqCtx(c)
    defer cancel()
    items, err := h.Assignments.History(ctx, seatID)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, echo.Map{"seatId": seatID, "items": items})
}
