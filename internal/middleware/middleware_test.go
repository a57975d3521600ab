package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studyroom-seating/internal/config"
	"github.com/iliyamo/studyroom-seating/internal/utils"
)

const secret = "test-secret"

func protected() *echo.Echo {
	e := echo.New()
	h := func(c echo.Context) error {
		id, _ := UserID(c)
		return c.JSON(http.StatusOK, echo.Map{"id": id, "role": Role(c)})
	}
	g := e.Group("", JWTAuth(secret))
	g.GET("/any", h)
	g.GET("/admin", h, RequireRole("ADMIN"))
	return e
}

func do(e *echo.Echo, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := protected()
	tok, err := utils.NewAccessToken(secret, 7, "TEACHER", 5)
	require.NoError(t, err)

	rec := do(e, "/any", tok.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":7,"role":"TEACHER"}`, rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, do(e, "/any", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, "/any", "garbage").Code)

	other, err := utils.NewAccessToken("other", 7, "TEACHER", 5)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(e, "/any", other.Token).Code)
}

func TestJWTAuthQueryToken(t *testing.T) {
	e := protected()
	tok, err := utils.NewAccessToken(secret, 3, "ADMIN", 5)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, do(e, "/any?access_token="+tok.Token, "").Code)
}

func TestRequireRole(t *testing.T) {
	e := protected()
	teacher, _ := utils.NewAccessToken(secret, 1, "TEACHER", 5)
	admin, _ := utils.NewAccessToken(secret, 2, "ADMIN", 5)

	assert.Equal(t, http.StatusForbidden, do(e, "/admin", teacher.Token).Code)
	assert.Equal(t, http.StatusOK, do(e, "/admin", admin.Token).Code)
}

func TestCachePassThroughWithoutRedis(t *testing.T) {
	rc := NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil)
	require.NoError(t, rc.Bump(context.Background(), 1))

	e := echo.New()
	calls := 0
	e.GET("/rooms/:id/status", func(c echo.Context) error {
		calls++
		return c.String(http.StatusOK, "ok")
	}, rc.Middleware())
	for i := 0; i < 2; i++ {
		rec := do(e, "/rooms/1/status", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-Cache"))
	}
	assert.Equal(t, 2, calls)
}

func TestCacheKeyScopesRoomAndGeneration(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}
	e := echo.New()
	ctx := func(q string) echo.Context {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/rooms/4/seats"+q, nil), httptest.NewRecorder())
		c.SetPath("/v1/rooms/:id/seats")
		return c
	}
	k1 := cacheKeyFrom(cfg, ctx(""), "4", 0)
	assert.Contains(t, k1, "cache:room:4:g0:")
	assert.NotEqual(t, k1, cacheKeyFrom(cfg, ctx(""), "4", 1))
	assert.NotEqual(t, k1, cacheKeyFrom(cfg, ctx("?x=1"), "4", 0))
	assert.Equal(t, k1, cacheKeyFrom(cfg, ctx(""), "4", 0))
}

func TestPayloadCodec(t *testing.T) {
	h := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(200, h, []byte(`{"a":1}`))
	require.NoError(t, err)
	status, hdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, 200, status)
	assert.Equal(t, "application/json", hdr.Get("Content-Type"))
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload(bs[:5])
	assert.False(t, ok)
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/rooms/9/bulk-assign", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/rooms/:id/bulk-assign")
	c.SetParamNames("id")
	c.SetParamValues("9")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user_room"}
	assert.Equal(t, "rl:user:guest:room:9", buildRateKey(cfg, c))

	c.Set(ctxUserID, uint64(5))
	cfg.KeyStrategy = "ip_user_route"
	assert.Equal(t, "rl:ip:10.0.0.1:user:5:route:POST /v1/rooms/:id/bulk-assign", buildRateKey(cfg, c))
}

func TestParseDecision(t *testing.T) {
	d, err := parseDecision([]interface{}{int64(0), int64(0), int64(1500)})
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 1500*time.Millisecond, d.RetryAfter)

	_, err = parseDecision("nope")
	assert.Error(t, err)
}
