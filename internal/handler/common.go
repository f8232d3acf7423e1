package handler // handler defines http handlers

import (
	"context"  // context carries deadlines for DB calls
	"errors"   // errors matches repository sentinels
	"net/http" // HTTP status codes
	"strconv"  // path-parameter parsing
	"time"     // timeouts for DB calls

	"github.com/labstack/echo/v4" // echo defines request context types

	"github.com/iliyamo/hotel-room-booking/internal/middleware"
	"github.com/iliyamo/hotel-room-booking/internal/model"
	"github.com/iliyamo/hotel-room-booking/internal/repository"
	"github.com/iliyamo/hotel-room-booking/internal/service"
	"github.com/iliyamo/hotel-room-booking/internal/utils"
)

// reqCtx bounds a request's database work with the timeout the rest of
// the handlers use.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// principal returns the authenticated caller.  Routes behind JWTAuth
// always have one; the bool guards misuse on public routes.
func principal(c echo.Context) (model.Principal, bool) {
	return middleware.CurrentPrincipal(c)
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

// pathDate parses a YYYY-MM-DD path parameter.
func pathDate(c echo.Context, name string) (model.Date, error) {
	return model.ParseDate(c.Param(name))
}

// writeErr maps domain errors onto HTTP statuses.  Anything unmapped
// is a 500 with a generic message; the cause stays in the server log
// via Echo's error handling, never in the response body.
func writeErr(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrRoomNotFound),
		errors.Is(err, repository.ErrRoomTypeNotFound),
		errors.Is(err, repository.ErrReservationNotFound),
		errors.Is(err, repository.ErrAvailabilityNotFound),
		errors.Is(err, repository.ErrPaymentNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrRoomUnavailable):
		return c.JSON(http.StatusConflict, echo.Map{"error": "room is unavailable for the requested dates"})
	case errors.Is(err, repository.ErrConflict),
		errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, service.ErrInvalidStay),
		errors.Is(err, service.ErrRoomInactive),
		errors.Is(err, service.ErrTooManyGuests),
		errors.Is(err, service.ErrNoRate),
		errors.Is(err, utils.ErrNonPositiveAmount):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	c.Logger().Error(err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
