package utils // package utils provides helper functions for token creation and hashing

import (
    "errors"  // errors for token validation failures
    "strconv" // strconv renders and parses the numeric subject
    "time"    // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string.  Exp stores the expiration
// timestamp as a time.Time.  Access tokens are encoded in the
// Authorization header when calling protected endpoints.
type AccessToken struct {
    Token string    `json:"access_token"` // the serialized JWT string
    Exp   time.Time `json:"expires_at"`   // the UTC expiration time
}

// Claims is the identity carried by an access token.
type Claims struct {
    UserID uint64 // users.id, stored in "sub"
    Role   string // ADMIN, TEACHER or STUDENT
}

// ErrInvalidToken is returned by ParseAccessToken for any token that is
// malformed, expired or signed with another key.
var ErrInvalidToken = errors.New("invalid token")

// NewAccessToken builds and signs an HS256 JWT for a user.  It takes the
// signing secret, the user ID, the user's role, and a TTL in minutes.  The
// JWT includes the standard claims sub, exp and iat plus the role.
func NewAccessToken(secret string, userID uint64, role string, ttlMin int) (AccessToken, error) {
    now := time.Now().UTC()
    exp := now.Add(time.Duration(ttlMin) * time.Minute)
    claims := jwt.MapClaims{
        "sub":  strconv.FormatUint(userID, 10),
        "role": role,
        "exp":  exp.Unix(),
        "iat":  now.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies raw with secret and returns its claims.  Only
// HMAC signed tokens are accepted.
func ParseAccessToken(secret, raw string) (Claims, error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        // Type assert the signing method to HMAC; reject others.
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrInvalidToken
        }
        return []byte(secret), nil
    }, jwt.WithExpirationRequired())
    if err != nil || !tok.Valid {
        return Claims{}, ErrInvalidToken
    }
    mc, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return Claims{}, ErrInvalidToken
    }
    sub, err := mc.GetSubject()
    if err != nil {
        return Claims{}, ErrInvalidToken
    }
    id, err := strconv.ParseUint(sub, 10, 64)
    if err != nil || id == 0 {
        return Claims{}, ErrInvalidToken
    }
    role, _ := mc["role"].(string)
    if role == "" {
        return Claims{}, ErrInvalidToken
    }
    return Claims{UserID: id, Role: role}, nil
}
