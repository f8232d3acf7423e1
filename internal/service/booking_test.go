package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-room-booking/internal/model"
	"github.com/iliyamo/hotel-room-booking/internal/repository"
)

type fakeReservationStore struct {
	reservations map[uint64]*model.Reservation
	lastStay     []model.Date
	createCalls  int
	cancelled    []uint64
	sweepCutoff  time.Time
	sweepCount   int
}

func newFakeReservationStore() *fakeReservationStore {
	return &fakeReservationStore{reservations: map[uint64]*model.Reservation{}}
}

func (f *fakeReservationStore) CreateWithStay(ctx context.Context, res *model.Reservation, dates []model.Date) error {
	f.createCalls++
	res.ID = uint64(len(f.reservations) + 1)
	f.reservations[res.ID] = res
	f.lastStay = dates
	return nil
}

func (f *fakeReservationStore) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	res, ok := f.reservations[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	return res, nil
}

func (f *fakeReservationStore) List(ctx context.Context) ([]*model.Reservation, error) {
	var out []*model.Reservation
	for _, r := range f.reservations {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeReservationStore) ListByUser(ctx context.Context, userID uint64) ([]*model.Reservation, error) {
	var out []*model.Reservation
	for _, r := range f.reservations {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReservationStore) ListByCheckInRange(ctx context.Context, start, end model.Date) ([]*model.Reservation, error) {
	var out []*model.Reservation
	for _, r := range f.reservations {
		if !r.CheckIn.Before(start) && !end.Before(r.CheckIn) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReservationStore) Update(ctx context.Context, res *model.Reservation) error {
	if _, ok := f.reservations[res.ID]; !ok {
		return repository.ErrReservationNotFound
	}
	f.reservations[res.ID] = res
	return nil
}

func (f *fakeReservationStore) CancelWithStay(ctx context.Context, id uint64) error {
	res, ok := f.reservations[id]
	if !ok {
		return repository.ErrReservationNotFound
	}
	res.Status = model.ReservationCancelled
	f.cancelled = append(f.cancelled, id)
	return nil
}

func (f *fakeReservationStore) ExpireStalePending(ctx context.Context, cutoff time.Time) (int, error) {
	f.sweepCutoff = cutoff
	return f.sweepCount, nil
}

type fakeCatalog struct {
	room *model.ResolvedRoom
	err  error
}

func (f *fakeCatalog) ResolveByID(ctx context.Context, id uint64, day *model.Date) (*model.ResolvedRoom, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.room, nil
}

func bookableRoom() *model.ResolvedRoom {
	price := 150.0
	guests := 2
	return &model.ResolvedRoom{
		ID: 1, RoomNumber: 101, IsActive: true,
		Price: &price, MaxGuests: &guests,
	}
}

func guest(id uint64) model.Principal {
	return model.Principal{UserID: id, Role: model.RoleGuest}
}

func TestCreateExpandsStayAndPricesTotal(t *testing.T) {
	store := newFakeReservationStore()
	svc := NewBookingService(store, &fakeCatalog{room: bookableRoom()}, 30)

	res := &model.Reservation{
		RoomID:   1,
		CheckIn:  model.NewDate(2026, time.September, 10),
		CheckOut: model.NewDate(2026, time.September, 13),
	}
	require.NoError(t, svc.Create(context.Background(), guest(7), res))

	assert.Equal(t, uint64(7), res.UserID)
	assert.Equal(t, 1, res.NumGuests) // defaults to one
	assert.Equal(t, 450.0, res.TotalPrice)
	assert.Equal(t, model.ReservationPendingPayment, res.Status)

	require.Len(t, store.lastStay, 3)
	assert.Equal(t, "2026-09-10", store.lastStay[0].String())
	assert.Equal(t, "2026-09-12", store.lastStay[2].String())
}

func TestCreateRejectsInvertedRangeBeforeAnyWrite(t *testing.T) {
	store := newFakeReservationStore()
	svc := NewBookingService(store, &fakeCatalog{room: bookableRoom()}, 30)

	res := &model.Reservation{
		RoomID:   1,
		CheckIn:  model.NewDate(2026, time.September, 13),
		CheckOut: model.NewDate(2026, time.September, 10),
	}
	assert.ErrorIs(t, svc.Create(context.Background(), guest(7), res), ErrInvalidStay)

	// zero-night stay is equally invalid
	res.CheckOut = res.CheckIn
	assert.ErrorIs(t, svc.Create(context.Background(), guest(7), res), ErrInvalidStay)
	assert.Zero(t, store.createCalls)
}

func TestCreateRejectsInactiveRoom(t *testing.T) {
	room := bookableRoom()
	room.IsActive = false
	svc := NewBookingService(newFakeReservationStore(), &fakeCatalog{room: room}, 30)

	res := &model.Reservation{
		RoomID:   1,
		CheckIn:  model.NewDate(2026, time.September, 10),
		CheckOut: model.NewDate(2026, time.September, 11),
	}
	assert.ErrorIs(t, svc.Create(context.Background(), guest(7), res), ErrRoomInactive)
}

func TestCreateRejectsOversizedParty(t *testing.T) {
	svc := NewBookingService(newFakeReservationStore(), &fakeCatalog{room: bookableRoom()}, 30)

	res := &model.Reservation{
		RoomID:    1,
		CheckIn:   model.NewDate(2026, time.September, 10),
		CheckOut:  model.NewDate(2026, time.September, 11),
		NumGuests: 5,
	}
	assert.ErrorIs(t, svc.Create(context.Background(), guest(7), res), ErrTooManyGuests)
}

func TestCreateRejectsRoomWithoutRate(t *testing.T) {
	room := bookableRoom()
	room.Price = nil
	svc := NewBookingService(newFakeReservationStore(), &fakeCatalog{room: room}, 30)

	res := &model.Reservation{
		RoomID:   1,
		CheckIn:  model.NewDate(2026, time.September, 10),
		CheckOut: model.NewDate(2026, time.September, 11),
	}
	assert.ErrorIs(t, svc.Create(context.Background(), guest(7), res), ErrNoRate)
}

func TestCreateGuestCannotBookForSomeoneElse(t *testing.T) {
	store := newFakeReservationStore()
	svc := NewBookingService(store, &fakeCatalog{room: bookableRoom()}, 30)

	res := &model.Reservation{
		RoomID:   1,
		UserID:   99, // guests cannot impersonate; staff can
		CheckIn:  model.NewDate(2026, time.September, 10),
		CheckOut: model.NewDate(2026, time.September, 11),
	}
	require.NoError(t, svc.Create(context.Background(), guest(7), res))
	assert.Equal(t, uint64(7), res.UserID)

	staff := model.Principal{UserID: 1, Role: model.RoleManager}
	other := &model.Reservation{
		RoomID:   1,
		UserID:   99,
		CheckIn:  model.NewDate(2026, time.October, 10),
		CheckOut: model.NewDate(2026, time.October, 11),
	}
	require.NoError(t, svc.Create(context.Background(), staff, other))
	assert.Equal(t, uint64(99), other.UserID)
}

func TestGetEnforcesOwnership(t *testing.T) {
	store := newFakeReservationStore()
	store.reservations[1] = &model.Reservation{ID: 1, UserID: 7}
	svc := NewBookingService(store, &fakeCatalog{room: bookableRoom()}, 30)

	_, err := svc.Get(context.Background(), guest(8), 1)
	assert.ErrorIs(t, err, repository.ErrForbidden)

	got, err := svc.Get(context.Background(), guest(7), 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got.ID)

	// staff see everything
	_, err = svc.Get(context.Background(), model.Principal{UserID: 1, Role: model.RoleAdmin}, 1)
	assert.NoError(t, err)
}

func TestCancelEnforcesOwnership(t *testing.T) {
	store := newFakeReservationStore()
	store.reservations[1] = &model.Reservation{ID: 1, UserID: 7}
	svc := NewBookingService(store, &fakeCatalog{room: bookableRoom()}, 30)

	assert.ErrorIs(t, svc.Cancel(context.Background(), guest(8), 1), repository.ErrForbidden)
	assert.Empty(t, store.cancelled)

	require.NoError(t, svc.Cancel(context.Background(), guest(7), 1))
	assert.Equal(t, []uint64{1}, store.cancelled)
}

func TestListByCheckInRangeRejectsInvertedRange(t *testing.T) {
	svc := NewBookingService(newFakeReservationStore(), &fakeCatalog{room: bookableRoom()}, 30)

	_, err := svc.ListByCheckInRange(context.Background(),
		model.NewDate(2026, time.September, 13), model.NewDate(2026, time.September, 10))
	assert.ErrorIs(t, err, ErrInvalidStay)
}

func TestSweepExpiredHoldsUsesTTLCutoff(t *testing.T) {
	store := newFakeReservationStore()
	store.sweepCount = 2
	svc := NewBookingService(store, &fakeCatalog{room: bookableRoom()}, 30)

	n, err := svc.SweepExpiredHolds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	want := time.Now().UTC().Add(-30 * time.Minute)
	assert.WithinDuration(t, want, store.sweepCutoff, 5*time.Second)
}
