package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-room-booking/internal/handler"
	"github.com/iliyamo/hotel-room-booking/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Load balancers and monitoring systems probe this endpoint to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies the
// necessary middleware.  Unauthenticated operations live under /auth; the
// session-introspection endpoint /auth/me requires a valid access token.
// The limiter (token bucket over Redis) covers the whole /auth group so
// credential stuffing and token grinding get throttled at the edge.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, o *handler.OAuthHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/auth", limiter)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// /refresh rotates the refresh token; /refresh-access issues a new
	// access token without rotation.
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout does not require JWT authentication: the handler accepts
	// either a bearer token (revoke every session) or a refresh_token in
	// the body (revoke one session).
	g.POST("/logout", a.Logout)

	// Google login is optional; its routes only exist when client
	// credentials are configured.
	if o.Enabled() {
		g.GET("/google", o.Redirect)
		g.GET("/google/callback", o.Callback)
	}

	me := e.Group("/auth", middleware.JWTAuth(jwtSecret))
	me.GET("/me", a.Me)
}
