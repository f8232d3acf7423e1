package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-room-booking/internal/model"
	"github.com/iliyamo/hotel-room-booking/internal/repository"
)

// RoomTypeHandler is the CRUD surface for catalog templates.  Reads
// are public; mutations sit behind the staff roles.
type RoomTypeHandler struct {
	Types *repository.RoomTypeRepo
}

func NewRoomTypeHandler(types *repository.RoomTypeRepo) *RoomTypeHandler {
	return &RoomTypeHandler{Types: types}
}

type roomTypeReq struct {
	RoomCategory  string   `json:"roomCategory"`
	PricePerNight float64  `json:"pricePerNight"`
	MaxGuests     int      `json:"maxGuests"`
	Amenities     []string `json:"amenities"`
	Description   string   `json:"description"`
	Images        []string `json:"images"`
}

func (r *roomTypeReq) toModel() (*model.RoomType, error) {
	category, err := model.ParseRoomCategory(r.RoomCategory)
	if err != nil {
		return nil, err
	}
	return &model.RoomType{
		Category:      category,
		PricePerNight: r.PricePerNight,
		MaxGuests:     r.MaxGuests,
		Amenities:     r.Amenities,
		Description:   r.Description,
		Images:        r.Images,
	}, nil
}

// List returns all room types.
func (h *RoomTypeHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	types, err := h.Types.List(ctx)
	if err != nil {
		return writeErr(c, err)
	}
	if types == nil {
		types = []*model.RoomType{}
	}
	return c.JSON(http.StatusOK, types)
}

// Get returns one room type.
func (h *RoomTypeHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rt, err := h.Types.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, rt)
}

// Create adds a catalog template.
func (h *RoomTypeHandler) Create(c echo.Context) error {
	var req roomTypeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	rt, err := req.toModel()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if rt.PricePerNight <= 0 || rt.MaxGuests <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "pricePerNight and maxGuests must be positive"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Types.Create(ctx, rt); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, rt)
}

// Update overwrites a catalog template.
func (h *RoomTypeHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req roomTypeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	rt, err := req.toModel()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	rt.ID = id
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Types.Update(ctx, rt); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, rt)
}

// Delete removes a catalog template.  Templates still referenced by
// rooms come back as a 409.
func (h *RoomTypeHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Types.Delete(ctx, id); err != nil {
		return writeErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
