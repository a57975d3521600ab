package middleware

// identity.go defines helper functions shared across middleware files and
// handlers.  JWTAuth stores the authenticated user's id (uint64) and role
// (string) in the Echo context; these helpers read them back.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

const (
    ctxUserID = "user_id"
    ctxRole   = "role"
)

// UserID returns the authenticated user's id and false when the request
// carries no verified token.
func UserID(c echo.Context) (uint64, bool) {
    id, ok := c.Get(ctxUserID).(uint64)
    return id, ok && id != 0
}

// Role returns the authenticated user's role, or "" for anonymous requests.
func Role(c echo.Context) string {
    r, _ := c.Get(ctxRole).(string)
    return r
}

// userID renders the user id for rate limit keys.  It returns "guest" when
// no user is authenticated.
func userID(c echo.Context) string {
    if id, ok := UserID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "guest"
}
