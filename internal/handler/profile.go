package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-room-booking/internal/model"
	"github.com/iliyamo/hotel-room-booking/internal/repository"
)

// ProfileHandler serves the caller's own account record.
type ProfileHandler struct {
	Users *repository.UserRepo
}

func NewProfileHandler(users *repository.UserRepo) *ProfileHandler {
	return &ProfileHandler{Users: users}
}

type profileReq struct {
	FullName       *string            `json:"fullName"`
	Phone          *string            `json:"phone"`
	BillingAddress *model.Address     `json:"billingAddress"`
	Preferences    *model.Preferences `json:"preferences"`
}

// Get returns the caller's profile.
func (h *ProfileHandler) Get(c echo.Context) error {
	p, _ := principal(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, p.UserID)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// Update edits the caller's profile.  Only the fields present in the
// body change; identity fields (email, role) are not editable here.
func (h *ProfileHandler) Update(c echo.Context) error {
	p, _ := principal(c)
	var req profileReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Phone != nil && *req.Phone != "" && !validPhone(*req.Phone) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "phone must be 10 digits"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, p.UserID)
	if err != nil {
		return writeErr(c, err)
	}
	if req.FullName != nil {
		u.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Phone != nil {
		u.Phone = *req.Phone
	}
	if req.BillingAddress != nil {
		u.BillingAddress = *req.BillingAddress
	}
	if req.Preferences != nil {
		u.Preferences = *req.Preferences
	}
	if err := h.Users.Update(ctx, u); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, u)
}
