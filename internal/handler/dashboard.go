package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-room-booking/internal/model"
	"github.com/iliyamo/hotel-room-booking/internal/repository"
)

// DashboardHandler aggregates the staff overview: occupancy for a day,
// income histogram, inactive rooms, upcoming check-ins and recent
// payments.  Everything is computed on request; nothing is cached
// here (the response cache middleware can sit in front if needed).
type DashboardHandler struct {
	Rooms        *repository.RoomRepo
	Avail        *repository.AvailabilityRepo
	Reservations *repository.ReservationRepo
	Payments     *repository.PaymentRepo
}

func NewDashboardHandler(rooms *repository.RoomRepo, avail *repository.AvailabilityRepo,
	reservations *repository.ReservationRepo, payments *repository.PaymentRepo) *DashboardHandler {
	return &DashboardHandler{Rooms: rooms, Avail: avail, Reservations: reservations, Payments: payments}
}

type dashboardResp struct {
	Date            model.Date           `json:"date"`
	TotalRooms      int                  `json:"totalRooms"`
	InactiveRooms   int                  `json:"inactiveRooms"`
	OccupiedRooms   int                  `json:"occupiedRooms"`
	OccupancyRate   float64              `json:"occupancyRate"`
	TotalIncome     float64              `json:"totalIncome"`
	IncomeHistogram map[string]float64   `json:"incomeHistogram"`
	Upcoming        []*model.Reservation `json:"upcomingReservations"`
	RecentPayments  []*model.Payment     `json:"recentPayments"`
}

const recentPaymentsLimit = 10

// Get serves GET /dashboard?date&period&reservationMonth.
//   - date: day for the occupancy figures, default today
//   - period: "hourly" (last 24h buckets) or "daily" (last 30 days)
//   - reservationMonth: YYYY-MM; when set, upcoming reservations cover
//     that whole month instead of the next 7 days
func (h *DashboardHandler) Get(c echo.Context) error {
	day := model.Today()
	if raw := c.QueryParam("date"); raw != "" {
		d, err := model.ParseDate(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date"})
		}
		day = d
	}
	period := c.QueryParam("period")
	if period == "" {
		period = "daily"
	}
	if period != "hourly" && period != "daily" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "period must be hourly or daily"})
	}

	upcomingStart, upcomingEnd := day, day.AddDays(7)
	if raw := c.QueryParam("reservationMonth"); raw != "" {
		first, err := time.Parse("2006-01", raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservationMonth"})
		}
		upcomingStart = model.DateOf(first)
		upcomingEnd = model.DateOf(first.AddDate(0, 1, -1))
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	rooms, err := h.Rooms.List(ctx, repository.RoomFilter{})
	if err != nil {
		return writeErr(c, err)
	}
	inactive := 0
	for _, rm := range rooms {
		if !rm.IsActive {
			inactive++
		}
	}

	occupied, err := h.Avail.ListByDate(ctx, day)
	if err != nil {
		return writeErr(c, err)
	}

	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	if period == "daily" {
		cutoff = time.Now().UTC().AddDate(0, 0, -30)
	}
	payments, err := h.Payments.ListSince(ctx, cutoff)
	if err != nil {
		return writeErr(c, err)
	}
	histogram := map[string]float64{}
	income := 0.0
	for _, p := range payments {
		if p.Status != model.PaymentSucceeded {
			continue
		}
		income += p.Amount
		key := p.CreatedAt.UTC().Format("2006-01-02")
		if period == "hourly" {
			key = p.CreatedAt.UTC().Format("15") + ":00"
		}
		histogram[key] += p.Amount
	}

	upcoming, err := h.Reservations.ListByCheckInRange(ctx, upcomingStart, upcomingEnd)
	if err != nil {
		return writeErr(c, err)
	}

	recent := payments
	if len(recent) > recentPaymentsLimit {
		recent = recent[:recentPaymentsLimit]
	}

	active := len(rooms) - inactive
	rate := 0.0
	if active > 0 {
		rate = float64(len(occupied)) / float64(active)
	}
	return c.JSON(http.StatusOK, dashboardResp{
		Date:            day,
		TotalRooms:      len(rooms),
		InactiveRooms:   inactive,
		OccupiedRooms:   len(occupied),
		OccupancyRate:   rate,
		TotalIncome:     income,
		IncomeHistogram: histogram,
		Upcoming:        emptyIfNil(upcoming),
		RecentPayments:  recent,
	})
}
