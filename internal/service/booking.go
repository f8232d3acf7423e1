package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/hotel-room-booking/internal/model"
	"github.com/iliyamo/hotel-room-booking/internal/repository"
)

var (
	// ErrInvalidStay covers inverted or empty date ranges.
	ErrInvalidStay = errors.New("check-in must be before check-out")
	// ErrRoomInactive rejects bookings against rooms under maintenance.
	ErrRoomInactive = errors.New("room is not available for booking")
	// ErrTooManyGuests rejects parties over the room's capacity.
	ErrTooManyGuests = errors.New("party exceeds room capacity")
	// ErrNoRate means the room resolved without a nightly price, so a
	// total cannot be computed.
	ErrNoRate = errors.New("room has no nightly rate")
)

type reservationStore interface {
	CreateWithStay(ctx context.Context, res *model.Reservation, dates []model.Date) error
	GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
	List(ctx context.Context) ([]*model.Reservation, error)
	ListByUser(ctx context.Context, userID uint64) ([]*model.Reservation, error)
	ListByCheckInRange(ctx context.Context, start, end model.Date) ([]*model.Reservation, error)
	Update(ctx context.Context, res *model.Reservation) error
	CancelWithStay(ctx context.Context, id uint64) error
	ExpireStalePending(ctx context.Context, cutoff time.Time) (int, error)
}

type rateResolver interface {
	ResolveByID(ctx context.Context, id uint64, day *model.Date) (*model.ResolvedRoom, error)
}

// BookingService owns the reservation lifecycle: creation with
// per-night expansion, ownership checks, cancellation, and the
// stale-hold sweeper that frees dates abandoned mid-payment.
type BookingService struct {
	reservations reservationStore
	catalog      rateResolver
	holdTTL      time.Duration
}

func NewBookingService(reservations reservationStore, catalog rateResolver, holdTTLMin int) *BookingService {
	return &BookingService{
		reservations: reservations,
		catalog:      catalog,
		holdTTL:      time.Duration(holdTTLMin) * time.Minute,
	}
}

// Create books a room for the caller.  The stay must be a non-empty
// half-open range; the total is priced server-side from the resolved
// nightly rate.  New reservations start in PENDING_PAYMENT and hold
// their dates until paid, cancelled, or swept.
func (s *BookingService) Create(ctx context.Context, p model.Principal, res *model.Reservation) error {
	if !res.CheckIn.Before(res.CheckOut) {
		return ErrInvalidStay
	}
	if res.UserID == 0 || p.Role == model.RoleGuest {
		res.UserID = p.UserID
	}
	if res.NumGuests <= 0 {
		res.NumGuests = 1
	}

	room, err := s.catalog.ResolveByID(ctx, res.RoomID, nil)
	if err != nil {
		return err
	}
	if !room.IsActive {
		return ErrRoomInactive
	}
	if room.MaxGuests != nil && res.NumGuests > *room.MaxGuests {
		return ErrTooManyGuests
	}
	if room.Price == nil {
		return ErrNoRate
	}
	res.TotalPrice = *room.Price * float64(res.Nights())
	res.Status = model.ReservationPendingPayment

	return s.reservations.CreateWithStay(ctx, res, res.StayDates())
}

// Get fetches one reservation, enforcing that guests only see their
// own bookings.
func (s *BookingService) Get(ctx context.Context, p model.Principal, id uint64) (*model.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Role == model.RoleGuest && res.UserID != p.UserID {
		return nil, repository.ErrForbidden
	}
	return res, nil
}

// ListMine returns the caller's reservations.
func (s *BookingService) ListMine(ctx context.Context, p model.Principal) ([]*model.Reservation, error) {
	return s.reservations.ListByUser(ctx, p.UserID)
}

// ListAll returns every reservation.  Callers gate this behind the
// staff roles.
func (s *BookingService) ListAll(ctx context.Context) ([]*model.Reservation, error) {
	return s.reservations.List(ctx)
}

// ListByCheckInRange returns non-cancelled reservations checking in
// within the closed interval [start, end].
func (s *BookingService) ListByCheckInRange(ctx context.Context, start, end model.Date) ([]*model.Reservation, error) {
	if end.Before(start) {
		return nil, ErrInvalidStay
	}
	return s.reservations.ListByCheckInRange(ctx, start, end)
}

// Update lets staff edit reservation metadata.  The occupied date
// range is not re-expanded; moving a stay means cancel and rebook.
func (s *BookingService) Update(ctx context.Context, res *model.Reservation) error {
	return s.reservations.Update(ctx, res)
}

// Cancel releases a reservation and its held dates.  Guests can only
// cancel their own bookings; cancelling twice is a no-op.
func (s *BookingService) Cancel(ctx context.Context, p model.Principal, id uint64) error {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p.Role == model.RoleGuest && res.UserID != p.UserID {
		return repository.ErrForbidden
	}
	return s.reservations.CancelWithStay(ctx, id)
}

// SweepExpiredHolds cancels PENDING_PAYMENT reservations older than
// the hold TTL, freeing their dates for other guests.
func (s *BookingService) SweepExpiredHolds(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.holdTTL)
	return s.reservations.ExpireStalePending(ctx, cutoff)
}

// RunHoldSweeper loops SweepExpiredHolds until the context is
// cancelled.  Run it in its own goroutine from main.
func (s *BookingService) RunHoldSweeper(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.SweepExpiredHolds(ctx)
			if err != nil {
				log.Printf("hold-sweeper: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("hold-sweeper: released %d expired holds", n)
			}
		}
	}
}
