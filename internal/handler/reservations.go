package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-room-booking/internal/model"
	"github.com/iliyamo/hotel-room-booking/internal/repository"
	"github.com/iliyamo/hotel-room-booking/internal/service"
)

// ReservationHandler is the booking surface.  Guests operate on their
// own reservations; the list-everything and by-user/by-room reads are
// staff-only at the router.
type ReservationHandler struct {
	Bookings     *service.BookingService
	Reservations *repository.ReservationRepo
}

func NewReservationHandler(bookings *service.BookingService, reservations *repository.ReservationRepo) *ReservationHandler {
	return &ReservationHandler{Bookings: bookings, Reservations: reservations}
}

type reservationReq struct {
	RoomID    uint64     `json:"roomUnitId"`
	UserID    uint64     `json:"userId"` // optional; staff may book for a guest
	CheckIn   model.Date `json:"checkInDate"`
	CheckOut  model.Date `json:"checkOutDate"`
	NumGuests int        `json:"numGuests"`
}

// Create books a room for the caller (or, for staff, the given user).
// A date conflict on any night of the stay yields a 409 and leaves no
// partial state behind.
func (h *ReservationHandler) Create(c echo.Context) error {
	p, _ := principal(c)
	var req reservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.RoomID == 0 || req.CheckIn.IsZero() || req.CheckOut.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "roomUnitId, checkInDate and checkOutDate required"})
	}

	res := &model.Reservation{
		RoomID:    req.RoomID,
		UserID:    req.UserID,
		CheckIn:   req.CheckIn,
		CheckOut:  req.CheckOut,
		NumGuests: req.NumGuests,
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Bookings.Create(ctx, p, res); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// List returns every reservation (staff).
func (h *ReservationHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Bookings.ListAll(ctx)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, emptyIfNil(out))
}

// ListMine returns the caller's reservations.
func (h *ReservationHandler) ListMine(c echo.Context) error {
	p, _ := principal(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Bookings.ListMine(ctx, p)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, emptyIfNil(out))
}

// Get returns one reservation, owner or staff only.
func (h *ReservationHandler) Get(c echo.Context) error {
	p, _ := principal(c)
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Bookings.Get(ctx, p, id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// ListByUser returns one user's reservations (staff).
func (h *ReservationHandler) ListByUser(c echo.Context) error {
	userID, err := pathID(c, "userId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Reservations.ListByUser(ctx, userID)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, emptyIfNil(out))
}

// ListByRoom returns one room's reservations (staff).
func (h *ReservationHandler) ListByRoom(c echo.Context) error {
	roomID, err := pathID(c, "roomUnitId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Reservations.ListByRoom(ctx, roomID)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, emptyIfNil(out))
}

// ListByCheckInRange returns non-cancelled reservations checking in
// within the closed interval [start, end].  Malformed dates are a 400.
func (h *ReservationHandler) ListByCheckInRange(c echo.Context) error {
	start, err := pathDate(c, "start")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start date"})
	}
	end, err := pathDate(c, "end")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid end date"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Bookings.ListByCheckInRange(ctx, start, end)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, emptyIfNil(out))
}

type reservationUpdateReq struct {
	NumGuests  *int     `json:"numGuests"`
	TotalPrice *float64 `json:"totalPrice"`
	Status     *string  `json:"status"`
}

// Update edits reservation metadata (staff).  Dates and room are
// immutable; rebook to move a stay.
func (h *ReservationHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req reservationUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Reservations.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, err)
	}
	if req.NumGuests != nil {
		if *req.NumGuests < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "numGuests must be positive"})
		}
		res.NumGuests = *req.NumGuests
	}
	if req.TotalPrice != nil {
		if *req.TotalPrice <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "totalPrice must be positive"})
		}
		res.TotalPrice = *req.TotalPrice
	}
	if req.Status != nil {
		status, err := model.ParseReservationStatus(*req.Status)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		res.Status = status
	}
	if err := h.Bookings.Update(ctx, res); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Cancel releases a reservation and its held dates.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	p, _ := principal(c)
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Bookings.Cancel(ctx, p, id); err != nil {
		return writeErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func emptyIfNil(in []*model.Reservation) []*model.Reservation {
	if in == nil {
		return []*model.Reservation{}
	}
	return in
}
