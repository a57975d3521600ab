package handler

import (
    "errors"   // errors compares sentinel values
    "net/http" // HTTP status codes and primitives
    "time"     // token expiry in responses

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing

    "github.com/iliyamo/studyroom-seating/internal/config"     // app configuration
    "github.com/iliyamo/studyroom-seating/internal/middleware" // authenticated identity
    "github.com/iliyamo/studyroom-seating/internal/model"      // users and roles
    "github.com/iliyamo/studyroom-seating/internal/repository" // DB repositories
    "github.com/iliyamo/studyroom-seating/internal/utils"      // helper functions (hashing, token issuing)
)

// AuthHandler bundles dependencies for auth endpoints.  Accounts are
// created by administrators with the admin CLI; there is no self sign-up.
type AuthHandler struct {
    Cfg   config.Config
    Users *repository.UserRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo) *AuthHandler {
    return &AuthHandler{Cfg: cfg, Users: u}
}

// ----- DTOs -----

type loginReq struct {
    Login    string `json:"login" validate:"required"`
    Password string `json:"password" validate:"required"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}
type authResp struct {
    User   model.User `json:"user"`
    Access tokenPart  `json:"access"`
}

// Login verifies the credentials and returns an access token.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := bindValid(c, &req); err != nil {
        return err
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    u, err := h.Users.GetByLogin(ctx, req.Login)
    if err != nil {
        if errors.Is(err, model.ErrUserNotFound) {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
        }
        return err
    }
    if !utils.VerifyPassword(u.PasswordHash, req.Password) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }
    if !u.IsActive {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "account deactivated"})
    }

    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
    }
    return c.JSON(http.StatusOK, authResp{
        User:   u,
        Access: tokenPart{Token: access.Token, Expires: access.Exp},
    })
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
    uid, ok := middleware.UserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ctx, cancel := reqCtx(c)
    defer cancel()
    u, err := h.Users.GetByID(ctx, uid)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, u)
}
