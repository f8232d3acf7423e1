package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-room-booking/internal/config"
)

func catalogCacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:     true,
		Methods:     map[string]bool{"GET": true},
		KeyStrategy: "route_query",
		Prefix:      "catalog",
	}
}

func TestCacheKeyVariesByQuery(t *testing.T) {
	e := echo.New()
	cfg := catalogCacheConfig()

	key := func(target string) string {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		c := e.NewContext(req, httptest.NewRecorder())
		c.SetPath("/rooms/search")
		return catalogCacheKey(cfg, c)
	}

	twoGuests := key("/rooms/search?guests=2")
	assert.Equal(t, twoGuests, key("/rooms/search?guests=2"))
	assert.NotEqual(t, twoGuests, key("/rooms/search?guests=4"))
}

func TestCacheEntryRoundTrip(t *testing.T) {
	entry := cacheEntry{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": {"application/json"}},
		Body:   []byte(`{"roomTypes":[]}`),
	}

	raw, err := encodeCacheEntry(entry)
	require.NoError(t, err)

	got, ok := decodeCacheEntry(raw)
	require.True(t, ok)
	assert.Equal(t, entry.Status, got.Status)
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.Equal(t, entry.Body, got.Body)
}

func TestDecodeCacheEntryRejectsGarbage(t *testing.T) {
	_, ok := decodeCacheEntry([]byte("short"))
	assert.False(t, ok)

	// Header length pointing past the payload.
	raw := []byte{0, 0, 0, 200, 0, 0, 255, 255, '{'}
	_, ok = decodeCacheEntry(raw)
	assert.False(t, ok)
}

func TestCacheBypassesAuthenticatedRequests(t *testing.T) {
	e := echo.New()
	// The client is never dialed on the bypass path.
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	mw := NewRedisCache(catalogCacheConfig(), rdb)

	req := httptest.NewRequest(http.MethodGet, "/roomtypes", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/roomtypes")

	called := false
	handler := mw(func(c echo.Context) error {
		called = true
		return c.String(http.StatusOK, "fresh")
	})
	require.NoError(t, handler(c))
	assert.True(t, called)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestRecorderSkipsOversizedBodies(t *testing.T) {
	rec := &responseRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK, limit: 4}

	_, err := rec.Write([]byte("too large for the cache"))
	require.NoError(t, err)
	assert.True(t, rec.truncated)
	assert.Zero(t, rec.buf.Len())
}
