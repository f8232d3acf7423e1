package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/hotel-room-booking/internal/config"
)

// NewRedisCache caches successful GET responses in Redis.  It fronts
// the public catalog routes (room-type listings and room search),
// which are read-heavy and change only when staff edit the catalog.
// Requests carrying an Authorization header bypass the cache so a
// personalised response can never be served to another caller.
//
// Entries store status, headers, and the raw body, so a hit replays
// exactly what the handler originally wrote.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	maxBody := int64(cfg.MaxBodyBytes)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !cfg.Methods[strings.ToUpper(req.Method)] || req.Header.Get("Authorization") != "" {
				return next(c)
			}

			ctx := req.Context()
			key := catalogCacheKey(cfg, c)

			if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
				if entry, ok := decodeCacheEntry(raw); ok {
					return replayCached(c, entry)
				}
			}

			rec := &responseRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}

			// Only complete 200s are worth replaying; a truncated body
			// would hand later callers a broken payload.
			if rec.status == http.StatusOK && !rec.truncated {
				entry := cacheEntry{
					Status: rec.status,
					Header: cloneHeader(c.Response().Header()),
					Body:   rec.buf.Bytes(),
				}
				if raw, err := encodeCacheEntry(entry); err == nil {
					_ = rdb.SetEx(context.Background(), key, raw, ttl).Err()
				}
			}
			return nil
		}
	}
}

// catalogCacheKey hashes the route (and, per strategy, the method and
// query) under the configured prefix.  The query matters for room
// search, where check-in dates and guest counts produce distinct
// result sets.
func catalogCacheKey(cfg config.CacheConfig, c echo.Context) string {
	req := c.Request()
	var parts []string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		parts = []string{"route", c.Path()}
	case "method_route":
		parts = []string{"method", req.Method, "route", c.Path()}
	case "method_route_query":
		parts = []string{"method", req.Method, "route", c.Path(), "q", req.URL.RawQuery}
	default: // "route_query"
		parts = []string{"route", c.Path(), "q", req.URL.RawQuery}
	}
	sum := sha1.Sum([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

type cacheEntry struct {
	Status int
	Header http.Header
	Body   []byte
}

// Wire layout: [4 bytes status][4 bytes headerLen][headerJSON][body].
func encodeCacheEntry(e cacheEntry) ([]byte, error) {
	hdrJSON, err := json.Marshal(e.Header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(e.Body))
	binary.BigEndian.PutUint32(out[0:4], uint32(e.Status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:], hdrJSON)
	copy(out[8+len(hdrJSON):], e.Body)
	return out, nil
}

func decodeCacheEntry(raw []byte) (cacheEntry, bool) {
	if len(raw) < 8 {
		return cacheEntry{}, false
	}
	hlen := int(binary.BigEndian.Uint32(raw[4:8]))
	if hlen < 0 || 8+hlen > len(raw) {
		return cacheEntry{}, false
	}
	hdr := make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(raw[8:8+hlen], &hdr); err != nil {
			return cacheEntry{}, false
		}
	}
	return cacheEntry{
		Status: int(binary.BigEndian.Uint32(raw[0:4])),
		Header: hdr,
		Body:   raw[8+hlen:],
	}, true
}

func replayCached(c echo.Context, entry cacheEntry) error {
	for k, vals := range entry.Header {
		// Echo recomputes Content-Length from the body it writes.
		if strings.EqualFold(k, "Content-Length") {
			continue
		}
		for _, v := range vals {
			c.Response().Header().Add(k, v)
		}
	}
	c.Response().Header().Set("X-Cache", "HIT")
	c.Response().WriteHeader(entry.Status)
	if len(entry.Body) > 0 {
		_, _ = c.Response().Write(entry.Body)
	}
	return nil
}

func cloneHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vals := range h {
		vv := make([]string, len(vals))
		copy(vv, vals)
		out[k] = vv
	}
	return out
}

// responseRecorder tees the handler's output to the client while
// keeping a copy for the cache.  Bodies past the configured limit are
// still sent to the client but marked truncated so they are never
// stored.
type responseRecorder struct {
	http.ResponseWriter
	status    int
	buf       bytes.Buffer
	limit     int64
	truncated bool
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if !r.truncated {
		if r.limit > 0 && int64(r.buf.Len()+len(b)) > r.limit {
			r.truncated = true
		} else {
			r.buf.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}
