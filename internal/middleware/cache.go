package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/binary"
    "encoding/json"
    "fmt"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/studyroom-seating/internal/config"
)

// captureWriter captures response body/status while forwarding to the client.
type captureWriter struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
    size   int64
    limit  int64
}

func (cw *captureWriter) WriteHeader(code int) { cw.status = code; cw.ResponseWriter.WriteHeader(code) }
func (cw *captureWriter) Write(b []byte) (int, error) {
    if cw.limit <= 0 {
        cw.buf.Write(b)
    } else if remain := cw.limit - cw.size; remain > 0 {
        if int64(len(b)) <= remain {
            cw.buf.Write(b)
        } else {
            cw.buf.Write(b[:remain])
        }
    }
    cw.size += int64(len(b))
    return cw.ResponseWriter.Write(b)
}

// RoomCache caches GET responses of room-scoped routes (seat maps and
// status boards) in Redis.  Every key embeds the room's generation
// counter; Bump increments it, which orphans all cached views of that room
// at once.  Orphaned entries age out through their TTL.
type RoomCache struct {
    cfg config.CacheConfig
    rdb *redis.Client
}

// NewRedisCache returns a cache backed by rdb.  A nil client or a disabled
// config yields a cache whose middleware is a pass-through and whose Bump
// is a no-op.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) *RoomCache {
    if cfg.TTL <= 0 {
        cfg.TTL = 30 * time.Second
    }
    return &RoomCache{cfg: cfg, rdb: rdb}
}

func (rc *RoomCache) enabled() bool { return rc != nil && rc.cfg.Enabled && rc.rdb != nil }

func (rc *RoomCache) genKey(roomID string) string {
    return rc.cfg.Prefix + ":gen:room:" + roomID
}

// Bump invalidates every cached view of roomID.
func (rc *RoomCache) Bump(ctx context.Context, roomID uint64) error {
    if !rc.enabled() {
        return nil
    }
    return rc.rdb.Incr(ctx, rc.genKey(strconv.FormatUint(roomID, 10))).Err()
}

// generation returns the room's current counter, 0 when never bumped.
func (rc *RoomCache) generation(ctx context.Context, roomID string) (int64, error) {
    n, err := rc.rdb.Get(ctx, rc.genKey(roomID)).Int64()
    if err == redis.Nil {
        return 0, nil
    }
    return n, err
}

// Middleware caches responses of routes carrying an :id room parameter.
// Routes without it pass through untouched.
func (rc *RoomCache) Middleware() echo.MiddlewareFunc {
    if !rc.enabled() {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return func(c echo.Context) error { return next(c) } }
    }
    maxBody := int64(rc.cfg.MaxBodyBytes)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            roomID := c.Param("id")
            if roomID == "" || !rc.cfg.Methods[strings.ToUpper(c.Request().Method)] {
                return next(c)
            }

            ctx := c.Request().Context()
            gen, err := rc.generation(ctx, roomID)
            if err != nil {
                // Redis is down; serve uncached rather than fail.
                return next(c)
            }
            key := cacheKeyFrom(rc.cfg, c, roomID, gen)

            // Try get from Redis
            if bs, err := rc.rdb.Get(ctx, key).Bytes(); err == nil {
                if status, hdr, body, ok := decodePayload(bs); ok {
                    for k, vals := range hdr {
                        // X-Cache will be set below; skip Content-Length (Echo will handle)
                        if strings.EqualFold(k, "Content-Length") || strings.EqualFold(k, "X-Cache") {
                            continue
                        }
                        for _, v := range vals {
                            c.Response().Header().Add(k, v)
                        }
                    }
                    c.Response().Header().Set("X-Cache", "HIT")
                    c.Response().WriteHeader(status)
                    if len(body) > 0 {
                        _, _ = c.Response().Write(body)
                    }
                    return nil
                }
            }

            // Miss: capture
            cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")

            if err := next(c); err != nil {
                return err
            }
            // Truncated bodies are never stored.
            if cw.status != http.StatusOK || (maxBody > 0 && cw.size > maxBody) {
                return nil
            }
            hdr := c.Response().Header().Clone()
            if payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes()); err == nil {
                _ = rc.rdb.SetEx(context.Background(), key, payload, rc.cfg.TTL).Err()
            }
            return nil
        }
    }
}

// cacheKeyFrom builds a stable cache key honoring prefix/strategy.  The
// room and its generation are always part of the key.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context, roomID string, gen int64) string {
    r := c.Request()
    method := r.Method
    route := c.Path()
    query := r.URL.RawQuery

    var parts []string
    switch strings.ToLower(cfg.KeyStrategy) {
    case "route":
        parts = append(parts, "route", route)
    case "method_route":
        parts = append(parts, "method", method, "route", route)
    case "method_route_query":
        parts = append(parts, "method", method, "route", route, "q", query)
    default: // "route_query"
        parts = append(parts, "route", route, "q", query)
    }

    sum := sha1.Sum([]byte(strings.Join(parts, ":")))
    return fmt.Sprintf("%s:room:%s:g%d:%x", cfg.Prefix, roomID, gen, sum[:])
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
    hdrJSON, err := json.Marshal(header)
    if err != nil {
        return nil, err
    }
    out := make([]byte, 8+len(hdrJSON)+len(body))
    binary.BigEndian.PutUint32(out[0:4], uint32(status))
    binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
    copy(out[8:8+len(hdrJSON)], hdrJSON)
    copy(out[8+len(hdrJSON):], body)
    return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
    if len(bs) < 8 {
        return 0, nil, nil, false
    }
    status = int(binary.BigEndian.Uint32(bs[0:4]))
    hlen := int(binary.BigEndian.Uint32(bs[4:8]))
    if hlen < 0 || 8+hlen > len(bs) {
        return 0, nil, nil, false
    }
    hdr := make(http.Header)
    if hlen > 0 {
        if err := json.Unmarshal(bs[8:8+hlen], &hdr); err != nil {
            return 0, nil, nil, false
        }
    }
    return status, hdr, bs[8+hlen:], true
}
