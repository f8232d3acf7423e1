package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-room-booking/internal/model"
	"github.com/iliyamo/hotel-room-booking/internal/utils"
)

const testSecret = "test-secret"

func protectedEcho(secret string) *echo.Echo {
	e := echo.New()
	g := e.Group("", JWTAuth(secret))
	g.GET("/whoami", func(c echo.Context) error {
		p, ok := CurrentPrincipal(c)
		if !ok {
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, p)
	})
	return e
}

func TestJWTAuthRoundTrip(t *testing.T) {
	tok, err := utils.NewAccessToken(testSecret, 7, model.RoleGuest, 15)
	require.NoError(t, err)

	e := protectedEcho(testSecret)
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"UserID":7`)
	assert.Contains(t, rec.Body.String(), `"Role":"GUEST"`)
}

func TestJWTAuthRejectsMissingAndMalformedTokens(t *testing.T) {
	e := protectedEcho(testSecret)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthRejectsWrongSecret(t *testing.T) {
	tok, err := utils.NewAccessToken("other-secret", 7, model.RoleGuest, 15)
	require.NoError(t, err)

	e := protectedEcho(testSecret)
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthRejectsExpiredToken(t *testing.T) {
	tok, err := utils.NewAccessToken(testSecret, 7, model.RoleGuest, -1)
	require.NoError(t, err)

	e := protectedEcho(testSecret)
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	g := e.Group("", JWTAuth(testSecret), RequireRole(model.RoleAdmin, model.RoleManager))
	g.GET("/staff", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	guestTok, err := utils.NewAccessToken(testSecret, 7, model.RoleGuest, 15)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/staff", nil)
	req.Header.Set("Authorization", "Bearer "+guestTok.Token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	adminTok, err := utils.NewAccessToken(testSecret, 1, model.RoleAdmin, 15)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/staff", nil)
	req.Header.Set("Authorization", "Bearer "+adminTok.Token)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBearerPrincipalIsOptional(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	_, ok := BearerPrincipal(c, testSecret)
	assert.False(t, ok)

	tok, err := utils.NewAccessToken(testSecret, 7, model.RoleGuest, 15)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	c = e.NewContext(req, httptest.NewRecorder())
	p, ok := BearerPrincipal(c, testSecret)
	require.True(t, ok)
	assert.Equal(t, uint64(7), p.UserID)
}
