package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/studyroom-seating/internal/utils" // token verification
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the token's subject and role claims into the request context.  The
// provided secret must match the one used when issuing tokens.  This
// middleware should wrap protected routes so that handlers can access
// authenticated user information via UserID(c) and Role(c).
func JWTAuth(secret string) echo.MiddlewareFunc {
    // The outer function returns a middleware function.  Echo executes this
    // once when registering the middleware.
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        // The returned handler is invoked for each incoming HTTP request.
        return func(c echo.Context) error {
            // Read the Authorization header.  A valid header should start
            // with "Bearer " followed by the JWT.  If it doesn't, respond
            // with 401 Unauthorized indicating that authentication is
            // required.  The SSE stream cannot set headers from a browser
            // EventSource, so an access_token query parameter is accepted
            // on GET requests as a fallback.
            auth := c.Request().Header.Get("Authorization")
            raw := ""
            switch {
            case strings.HasPrefix(auth, "Bearer "):
                // Remove the "Bearer " prefix to obtain the raw token string.
                raw = strings.TrimPrefix(auth, "Bearer ")
            case c.Request().Method == http.MethodGet && c.QueryParam("access_token") != "":
                raw = c.QueryParam("access_token")
            default:
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }

            // Verify the signature, algorithm and expiry.  Any failure
            // results in the same 401 so callers cannot probe why.
            claims, err := utils.ParseAccessToken(secret, raw)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }

            // Store the subject (user ID) and role claims in the context.
            // Handlers and downstream middleware read them through the
            // helpers in identity.go.
            c.Set(ctxUserID, claims.UserID)
            c.Set(ctxRole, claims.Role)
            // Call the next handler in the chain and return its result.
            return next(c)
        }
    }
}
