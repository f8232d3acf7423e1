package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-room-booking/internal/model"
	"github.com/iliyamo/hotel-room-booking/internal/repository"
)

// AvailabilityHandler exposes the per-day occupancy rows directly.
// Normal booking flows never call these; they exist for staff tooling
// and for blocking out dates without a reservation record.
type AvailabilityHandler struct {
	Avail *repository.AvailabilityRepo
}

func NewAvailabilityHandler(avail *repository.AvailabilityRepo) *AvailabilityHandler {
	return &AvailabilityHandler{Avail: avail}
}

// List returns every occupancy row.
func (h *AvailabilityHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Avail.List(ctx)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, emptyAvail(out))
}

// ListByRoom returns one room's occupied days.
func (h *AvailabilityHandler) ListByRoom(c echo.Context) error {
	roomID, err := pathID(c, "roomUnitId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Avail.ListByRoom(ctx, roomID)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, emptyAvail(out))
}

// ListByDate returns all rooms occupied on one calendar day.
func (h *AvailabilityHandler) ListByDate(c echo.Context) error {
	date, err := pathDate(c, "date")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Avail.ListByDate(ctx, date)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, emptyAvail(out))
}

// ListByReservation returns the rows a reservation owns.
func (h *AvailabilityHandler) ListByReservation(c echo.Context) error {
	reservationID, err := pathID(c, "reservationId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Avail.ListByReservation(ctx, reservationID)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, emptyAvail(out))
}

type availabilityReq struct {
	RoomID        uint64     `json:"roomUnitId"`
	Date          model.Date `json:"date"`
	ReservationID uint64     `json:"reservationId"`
}

// Create inserts a single occupancy row.  A (room, date) collision is
// a 409.
func (h *AvailabilityHandler) Create(c echo.Context) error {
	var req availabilityReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.RoomID == 0 || req.Date.IsZero() || req.ReservationID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "roomUnitId, date and reservationId required"})
	}
	av := &model.RoomAvailability{
		RoomID:        req.RoomID,
		Date:          req.Date,
		ReservationID: req.ReservationID,
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Avail.Create(ctx, av); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, av)
}

// Delete removes one occupancy row by id.
func (h *AvailabilityHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Avail.Delete(ctx, id); err != nil {
		return writeErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func emptyAvail(in []*model.RoomAvailability) []*model.RoomAvailability {
	if in == nil {
		return []*model.RoomAvailability{}
	}
	return in
}
