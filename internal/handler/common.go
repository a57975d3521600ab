package handler // handler defines http handlers

import (
    "context"  // context carries request deadlines to repositories
    "net/http" // net/http provides status codes
    "reflect"  // reflect exposes struct tags to the validator
    "strconv"  // strconv converts path parameters to numbers
    "strings"  // strings builds validation messages
    "time"     // time bounds storage calls

    "github.com/go-playground/validator/v10" // struct tag validation for request bodies
    "github.com/labstack/echo/v4"            // echo defines request context types
    "github.com/pkg/errors"                  // errors.Cause unwraps wrapped failures

    "github.com/iliyamo/studyroom-seating/internal/layout"     // editor errors
    "github.com/iliyamo/studyroom-seating/internal/model"      // sentinel errors
    "github.com/iliyamo/studyroom-seating/internal/repository" // repository errors
)

// requestTimeout bounds every storage round trip made by a handler.
const requestTimeout = 5 * time.Second

// Validator adapts go-playground/validator to echo.Validator so handlers
// can call c.Validate on request DTOs.
type Validator struct {
    validate *validator.Validate
}

// NewValidator returns a Validator using json tag names in its messages.
func NewValidator() *Validator {
    v := validator.New(validator.WithRequiredStructEnabled())
    v.RegisterTagNameFunc(func(f reflect.StructField) string {
        name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
        if name == "-" {
            return ""
        }
        return name
    })
    return &Validator{validate: v}
}

func (v *Validator) Validate(i interface{}) error {
    return v.validate.Struct(i)
}

// Invalidator drops cached views of a room after it changed.
type Invalidator interface {
    Bump(ctx context.Context, roomID uint64) error
}

type noopInvalidator struct{}

func (noopInvalidator) Bump(context.Context, uint64) error { return nil }

// orNoop lets handlers run without a cache.
func orNoop(inv Invalidator) Invalidator {
    if inv == nil {
        return noopInvalidator{}
    }
    return inv
}

// reqCtx derives the storage context of a request.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// paramID parses a positive numeric path parameter.
func paramID(c echo.Context, name string) (uint64, error) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
    }
    return id, nil
}

// bindValid binds the request body into dst and validates it.
func bindValid(c echo.Context, dst interface{}) error {
    if err := c.Bind(dst); err != nil {
        return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
    }
    return c.Validate(dst)
}

// statusFor maps an error to the HTTP status and message returned to the
// client.  Unknown errors are 500s.
func statusFor(err error) (int, interface{}) {
    switch orig := errors.Cause(err).(type) {
    case *echo.HTTPError:
        if orig.Internal != nil {
            if herr, ok := orig.Internal.(*echo.HTTPError); ok {
                orig = herr
            }
        }
        return orig.Code, orig.Message
    case validator.ValidationErrors:
        fields := make(map[string]string, len(orig))
        for _, fe := range orig {
            fields[fe.Field()] = fieldMessage(fe)
        }
        return http.StatusBadRequest, fields
    }

    switch {
    case errors.Is(err, model.ErrRoomNotFound),
        errors.Is(err, model.ErrNodeNotFound),
        errors.Is(err, model.ErrSeatNotFound),
        errors.Is(err, model.ErrStudentNotFound),
        errors.Is(err, model.ErrUserNotFound),
        errors.Is(err, model.ErrPermissionNotFound),
        errors.Is(err, layout.ErrNodeNotFound):
        return http.StatusNotFound, errors.Cause(err).Error()
    case errors.Is(err, model.ErrConflict), errors.Is(err, repository.ErrLoginExists):
        return http.StatusConflict, errors.Cause(err).Error()
    case errors.Is(err, layout.ErrNotEditable),
        errors.Is(err, layout.ErrNotDrawing),
        errors.Is(err, layout.ErrNoAnchor):
        return http.StatusBadRequest, err.Error()
    case errors.Is(err, context.DeadlineExceeded):
        return http.StatusGatewayTimeout, "storage timeout"
    }
    return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}

func fieldMessage(fe validator.FieldError) string {
    switch fe.Tag() {
    case "required":
        return "is required"
    case "oneof":
        return "must be one of " + fe.Param()
    case "min", "gte":
        return "must be at least " + fe.Param()
    case "max", "lte":
        return "must be at most " + fe.Param()
    case "gtfield":
        return "must be after " + fe.Param()
    }
    return "failed " + fe.Tag()
}

// ErrorHandler is the echo.HTTPErrorHandler of the API.  Every error body
// has the shape {"error": ...}.
func ErrorHandler(err error, c echo.Context) {
    code, msg := statusFor(err)
    if code >= http.StatusInternalServerError {
        c.Logger().Errorf("%s %s: %+v", c.Request().Method, c.Path(), err)
    }
    if c.Response().Committed {
        return
    }
    if c.Request().Method == http.MethodHead {
        err = c.NoContent(code)
    } else {
        err = c.JSON(code, echo.Map{"error": msg})
    }
    if err != nil {
        c.Logger().Error(err)
    }
}
