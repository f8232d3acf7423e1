package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-room-booking/internal/handler"
	"github.com/iliyamo/hotel-room-booking/internal/middleware"
	"github.com/iliyamo/hotel-room-booking/internal/model"
)

// RegisterStaff registers the ADMIN/MANAGER surface: room and room-type
// management, the full reservation ledger, account administration, the
// dashboard and the payment ledger.
func RegisterStaff(e *echo.Echo, rooms *handler.RoomHandler, rt *handler.RoomTypeHandler,
	res *handler.ReservationHandler, users *handler.UserAdminHandler,
	dash *handler.DashboardHandler, pay *handler.PaymentHandler, jwtSecret string) {
	g := e.Group(
		"",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleManager),
	)

	// ---- Rooms ----
	g.GET("/rooms", rooms.List)
	g.GET("/rooms/:id", rooms.Get)
	g.POST("/rooms/create", rooms.Create)
	g.PUT("/rooms/update/:id", rooms.Update)
	g.PUT("/rooms/set-active/:id", rooms.SetActive)
	g.DELETE("/rooms/delete/:id", rooms.Delete)

	// ---- Room types ----
	// Reads are public; only mutations live here.
	g.POST("/roomtypes/create", rt.Create)
	g.PUT("/roomtypes/update/:id", rt.Update)
	g.DELETE("/roomtypes/delete/:id", rt.Delete)

	// ---- Reservations ----
	g.GET("/reservations", res.List)
	g.GET("/reservations/user/:userId", res.ListByUser)
	g.GET("/reservations/room/:roomUnitId", res.ListByRoom)
	g.PUT("/reservations/update/:id", res.Update)

	// ---- Accounts ----
	g.GET("/users", users.List)
	g.GET("/users/:id", users.Get)
	g.PUT("/users/update/:id", users.Update)
	g.DELETE("/users/delete/:id", users.Delete)

	// ---- Overview ----
	g.GET("/dashboard", dash.Get)

	// ---- Payment ledger ----
	g.GET("/payments", pay.List)
	g.GET("/payments/reservation/:reservationId", pay.ListByReservation)
	g.GET("/payments/:id", pay.Get)
	g.DELETE("/payments/delete/:id", pay.Delete)
}
