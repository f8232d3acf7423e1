package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-room-booking/internal/handler"
)

// RegisterPublic registers the unauthenticated browse and payment plumbing
// endpoints.  Catalog reads sit behind the Redis response cache so the
// landing-page traffic never reaches MySQL on a warm cache; the webhook and
// publishable-key endpoints must stay uncached.
func RegisterPublic(e *echo.Echo, rt *handler.RoomTypeHandler, rooms *handler.RoomHandler, pay *handler.PaymentHandler, cache echo.MiddlewareFunc) {
	e.GET("/roomtypes", rt.List, cache)
	e.GET("/roomtypes/:id", rt.Get, cache)
	// Availability search with room-type and date filters.  Guests browse
	// before registering, so this is public.
	e.GET("/rooms/search", rooms.Search, cache)

	// The publishable key is not a secret; the browser needs it to mount
	// the card form.
	e.GET("/payments/config", pay.Config)
	// Gateway notifications authenticate with a signature over the raw
	// body, not a JWT.
	e.POST("/payments/webhook", pay.Webhook)
}
