package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-room-booking/internal/model"
	"github.com/iliyamo/hotel-room-booking/internal/repository"
	"github.com/iliyamo/hotel-room-booking/internal/service"
)

// RoomHandler serves physical room units.  Search is public and works
// on the resolved view; the remaining operations are staff-only.
type RoomHandler struct {
	Rooms   *repository.RoomRepo
	Catalog *service.RoomCatalog
}

func NewRoomHandler(rooms *repository.RoomRepo, catalog *service.RoomCatalog) *RoomHandler {
	return &RoomHandler{Rooms: rooms, Catalog: catalog}
}

type roomReq struct {
	RoomNumber          int      `json:"roomNumber"`
	RoomTypeID          uint64   `json:"roomTypeId"`
	IsActive            *bool    `json:"isActive"`
	PriceOverride       *float64 `json:"priceOverride"`
	AmenitiesOverride   []string `json:"amenitiesOverride"`
	DescriptionOverride *string  `json:"descriptionOverride"`
	ImagesOverride      []string `json:"imagesOverride"`
	MaxGuestsOverride   *int     `json:"maxGuestsOverride"`
}

func (r *roomReq) toModel() *model.Room {
	rm := &model.Room{
		RoomNumber:          r.RoomNumber,
		RoomTypeID:          r.RoomTypeID,
		IsActive:            true,
		PriceOverride:       r.PriceOverride,
		AmenitiesOverride:   r.AmenitiesOverride,
		DescriptionOverride: r.DescriptionOverride,
		ImagesOverride:      r.ImagesOverride,
		MaxGuestsOverride:   r.MaxGuestsOverride,
	}
	if r.IsActive != nil {
		rm.IsActive = *r.IsActive
	}
	return rm
}

// List returns all rooms in resolved form.
func (h *RoomHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	rooms, err := h.Catalog.ListResolved(ctx, repository.RoomFilter{})
	if err != nil {
		return writeErr(c, err)
	}
	if rooms == nil {
		rooms = []model.ResolvedRoom{}
	}
	return c.JSON(http.StatusOK, rooms)
}

// Get returns one resolved room.  An optional ?date=YYYY-MM-DD query
// fills the booked flag for that day.
func (h *RoomHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var day *model.Date
	if raw := c.QueryParam("date"); raw != "" {
		d, err := model.ParseDate(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date"})
		}
		day = &d
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	resolved, err := h.Catalog.ResolveByID(ctx, id, day)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, resolved)
}

// Search filters rooms by number, active flag, category, guest count
// and an optional date range, returning one resolved page.
func (h *RoomHandler) Search(c echo.Context) error {
	var q service.SearchQuery

	if raw := c.QueryParam("roomNumber"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid roomNumber"})
		}
		q.RoomNumber = &n
	}
	if raw := c.QueryParam("isActive"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid isActive"})
		}
		q.IsActive = &b
	}
	q.Category = c.QueryParam("roomCategory")
	if raw := c.QueryParam("guests"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid guests"})
		}
		q.Guests = &n
	}
	if raw := c.QueryParam("startDate"); raw != "" {
		d, err := model.ParseDate(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid startDate"})
		}
		q.CheckIn = &d
	}
	if raw := c.QueryParam("endDate"); raw != "" {
		d, err := model.ParseDate(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid endDate"})
		}
		q.CheckOut = &d
	}
	q.Page, _ = strconv.Atoi(c.QueryParam("page"))
	q.Size, _ = strconv.Atoi(c.QueryParam("size"))

	ctx, cancel := reqCtx(c)
	defer cancel()
	result, err := h.Catalog.Search(ctx, q)
	if err != nil {
		return writeErr(c, err)
	}
	if result.Rooms == nil {
		result.Rooms = []model.ResolvedRoom{}
	}
	return c.JSON(http.StatusOK, result)
}

// Create adds a room unit.
func (h *RoomHandler) Create(c echo.Context) error {
	var req roomReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.RoomNumber <= 0 || req.RoomTypeID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "roomNumber and roomTypeId required"})
	}
	rm := req.toModel()
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Rooms.Create(ctx, rm); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, rm)
}

// Update overwrites a room, including clearing overrides omitted from
// the body.
func (h *RoomHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req roomReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.RoomNumber <= 0 || req.RoomTypeID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "roomNumber and roomTypeId required"})
	}
	rm := req.toModel()
	rm.ID = id
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Rooms.Update(ctx, rm); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, rm)
}

// SetActive flips the maintenance flag: ?isActive=true|false.
func (h *RoomHandler) SetActive(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	active, err := strconv.ParseBool(c.QueryParam("isActive"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "isActive query param required"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Rooms.SetActive(ctx, id, active); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "isActive": active})
}

// Delete removes a room.  Rooms with reservations come back as a 409.
func (h *RoomHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Rooms.Delete(ctx, id); err != nil {
		return writeErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
