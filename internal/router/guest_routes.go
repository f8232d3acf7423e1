package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-room-booking/internal/handler"
	"github.com/iliyamo/hotel-room-booking/internal/middleware"
)

// RegisterGuest registers the endpoints available to any authenticated
// user.  Ownership checks (a guest may only touch their own reservations
// and cards) happen in the services, not here; the router only guarantees
// a valid session.
func RegisterGuest(e *echo.Echo, profile *handler.ProfileHandler, res *handler.ReservationHandler,
	avail *handler.AvailabilityHandler, pay *handler.PaymentHandler, jwtSecret string) {
	g := e.Group("", middleware.JWTAuth(jwtSecret))

	g.GET("/profile", profile.Get)
	g.PUT("/profile", profile.Update)

	g.POST("/reservations/create", res.Create)
	g.GET("/reservations/mine", res.ListMine)
	g.GET("/reservations/checkin/:start/:end", res.ListByCheckInRange)
	g.GET("/reservations/:id", res.Get)
	g.DELETE("/reservations/delete/:id", res.Cancel)

	// Raw per-day occupancy rows.  Booking flows never call these; they
	// exist for calendar tooling and manual date blocking.
	g.GET("/availability", avail.List)
	g.GET("/availability/room/:roomUnitId", avail.ListByRoom)
	g.GET("/availability/date/:date", avail.ListByDate)
	g.GET("/availability/reservation/:reservationId", avail.ListByReservation)
	g.POST("/availability/create", avail.Create)
	g.DELETE("/availability/delete/:id", avail.Delete)

	g.POST("/payments/intent", pay.CreateIntent)
	g.POST("/payments/setup-intent", pay.CreateSetupIntent)
	g.POST("/payments/methods/sync", pay.SyncMethods)
	g.DELETE("/payments/methods/:paymentMethodId", pay.DeleteMethod)
}
