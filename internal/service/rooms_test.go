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

type fakeRoomStore struct {
	rooms map[uint64]*model.Room
}

func (f *fakeRoomStore) List(ctx context.Context, q repository.RoomFilter) ([]*model.Room, error) {
	var out []*model.Room
	for _, r := range f.rooms {
		if q.RoomNumber != nil && r.RoomNumber != *q.RoomNumber {
			continue
		}
		if q.IsActive != nil && r.IsActive != *q.IsActive {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRoomStore) GetByID(ctx context.Context, id uint64) (*model.Room, error) {
	r, ok := f.rooms[id]
	if !ok {
		return nil, repository.ErrRoomNotFound
	}
	return r, nil
}

type fakeTypeStore struct {
	types map[uint64]*model.RoomType
}

func (f *fakeTypeStore) List(ctx context.Context) ([]*model.RoomType, error) {
	var out []*model.RoomType
	for _, rt := range f.types {
		out = append(out, rt)
	}
	return out, nil
}

func (f *fakeTypeStore) GetByID(ctx context.Context, id uint64) (*model.RoomType, error) {
	rt, ok := f.types[id]
	if !ok {
		return nil, repository.ErrRoomTypeNotFound
	}
	return rt, nil
}

type fakeOccupancy struct {
	// occupied maps roomID -> set of occupied days
	occupied map[uint64]map[string]bool
}

func (f *fakeOccupancy) BookedOnDay(ctx context.Context, roomID uint64, date model.Date) (bool, error) {
	return f.occupied[roomID][date.String()], nil
}

func (f *fakeOccupancy) BookedRoomIDs(ctx context.Context, start, end model.Date) (map[uint64]struct{}, error) {
	out := map[uint64]struct{}{}
	for roomID, days := range f.occupied {
		for d := start; d.Before(end); d = d.AddDays(1) {
			if days[d.String()] {
				out[roomID] = struct{}{}
				break
			}
		}
	}
	return out, nil
}

func newTestCatalog(rooms []*model.Room, types []*model.RoomType, occ *fakeOccupancy) *RoomCatalog {
	rs := &fakeRoomStore{rooms: map[uint64]*model.Room{}}
	for _, r := range rooms {
		rs.rooms[r.ID] = r
	}
	ts := &fakeTypeStore{types: map[uint64]*model.RoomType{}}
	for _, rt := range types {
		ts.types[rt.ID] = rt
	}
	if occ == nil {
		occ = &fakeOccupancy{occupied: map[uint64]map[string]bool{}}
	}
	return NewRoomCatalog(rs, ts, occ)
}

func deluxeType() *model.RoomType {
	return &model.RoomType{
		ID:            1,
		Category:      model.CategoryDeluxe,
		PricePerNight: 150,
		MaxGuests:     2,
		Amenities:     []string{"wifi", "tv"},
		Description:   "A deluxe room",
		Images:        []string{"deluxe-1.jpg", "deluxe-2.jpg"},
	}
}

func TestResolveFallsBackToType(t *testing.T) {
	room := &model.Room{ID: 10, RoomNumber: 101, RoomTypeID: 1, IsActive: true}
	got := Resolve(room, deluxeType())

	require.NotNil(t, got.Price)
	assert.Equal(t, 150.0, *got.Price)
	require.NotNil(t, got.MaxGuests)
	assert.Equal(t, 2, *got.MaxGuests)
	assert.Equal(t, []string{"wifi", "tv"}, got.Amenities)
	require.NotNil(t, got.Description)
	assert.Equal(t, "A deluxe room", *got.Description)
	assert.Equal(t, model.CategoryDeluxe, got.RoomCategory)
}

func TestResolveOverridesWinFieldByField(t *testing.T) {
	price := 199.0
	guests := 3
	desc := "Corner room with a view"
	room := &model.Room{
		ID:                  10,
		RoomNumber:          101,
		RoomTypeID:          1,
		IsActive:            true,
		PriceOverride:       &price,
		MaxGuestsOverride:   &guests,
		DescriptionOverride: &desc,
		AmenitiesOverride:   []string{"wifi", "balcony"},
	}
	got := Resolve(room, deluxeType())

	assert.Equal(t, 199.0, *got.Price)
	assert.Equal(t, 3, *got.MaxGuests)
	assert.Equal(t, "Corner room with a view", *got.Description)
	assert.Equal(t, []string{"wifi", "balcony"}, got.Amenities)
}

func TestResolveImagesTypeThenRoom(t *testing.T) {
	room := &model.Room{
		ID: 10, RoomNumber: 101, RoomTypeID: 1,
		ImagesOverride: []string{"room-101.jpg"},
	}
	got := Resolve(room, deluxeType())
	assert.Equal(t, []string{"deluxe-1.jpg", "deluxe-2.jpg", "room-101.jpg"}, got.Images)
}

func TestResolveEmptyGalleryCollapsesToNil(t *testing.T) {
	rt := deluxeType()
	rt.Images = nil
	room := &model.Room{ID: 10, RoomNumber: 101, RoomTypeID: 1}
	got := Resolve(room, rt)
	assert.Nil(t, got.Images)

	// Without a type at all there is nothing to merge.
	orphan := Resolve(room, nil)
	assert.Nil(t, orphan.Images)
	assert.Nil(t, orphan.Price)
}

func TestSearchExcludesRoomsOccupiedInRange(t *testing.T) {
	rooms := []*model.Room{
		{ID: 1, RoomNumber: 101, RoomTypeID: 1, IsActive: true},
		{ID: 2, RoomNumber: 102, RoomTypeID: 1, IsActive: true},
		{ID: 3, RoomNumber: 103, RoomTypeID: 1, IsActive: true},
	}
	occ := &fakeOccupancy{occupied: map[uint64]map[string]bool{
		// room 2 is occupied inside the requested range
		2: {"2026-08-02": true},
		// room 3 is occupied only on the check-out day, which the
		// half-open range does not cover
		3: {"2026-08-04": true},
	}}
	catalog := newTestCatalog(rooms, []*model.RoomType{deluxeType()}, occ)

	in := model.NewDate(2026, time.August, 1)
	out := model.NewDate(2026, time.August, 4)
	res, err := catalog.Search(context.Background(), SearchQuery{CheckIn: &in, CheckOut: &out})
	require.NoError(t, err)

	ids := make([]uint64, 0, len(res.Rooms))
	for _, r := range res.Rooms {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []uint64{1, 3}, ids)
	assert.Equal(t, 2, res.Total)
}

func TestSearchGuestFilter(t *testing.T) {
	guests4 := 4
	rooms := []*model.Room{
		{ID: 1, RoomNumber: 101, RoomTypeID: 1, IsActive: true},                            // capacity 2
		{ID: 2, RoomNumber: 102, RoomTypeID: 1, IsActive: true, MaxGuestsOverride: &guests4}, // capacity 4
		{ID: 3, RoomNumber: 103, RoomTypeID: 99, IsActive: true},                           // unknown type, capacity unknown
	}
	catalog := newTestCatalog(rooms, []*model.RoomType{deluxeType()}, nil)

	want := 3
	res, err := catalog.Search(context.Background(), SearchQuery{Guests: &want})
	require.NoError(t, err)
	require.Len(t, res.Rooms, 1)
	// unknown capacity fails the filter rather than passing it
	assert.Equal(t, uint64(2), res.Rooms[0].ID)
}

func TestSearchCategoryIsCaseInsensitive(t *testing.T) {
	rooms := []*model.Room{{ID: 1, RoomNumber: 101, RoomTypeID: 1, IsActive: true}}
	catalog := newTestCatalog(rooms, []*model.RoomType{deluxeType()}, nil)

	res, err := catalog.Search(context.Background(), SearchQuery{Category: " deluxe "})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)

	res, err = catalog.Search(context.Background(), SearchQuery{Category: "suite"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total)
}

func TestSearchPagination(t *testing.T) {
	var rooms []*model.Room
	for i := 1; i <= 25; i++ {
		rooms = append(rooms, &model.Room{ID: uint64(i), RoomNumber: 100 + i, RoomTypeID: 1, IsActive: true})
	}
	catalog := newTestCatalog(rooms, []*model.RoomType{deluxeType()}, nil)

	res, err := catalog.Search(context.Background(), SearchQuery{Page: 0, Size: 10})
	require.NoError(t, err)
	assert.Len(t, res.Rooms, 10)
	assert.Equal(t, 25, res.Total)

	res, err = catalog.Search(context.Background(), SearchQuery{Page: 2, Size: 10})
	require.NoError(t, err)
	assert.Len(t, res.Rooms, 5)

	// past the end: empty page, same total
	res, err = catalog.Search(context.Background(), SearchQuery{Page: 9, Size: 10})
	require.NoError(t, err)
	assert.Empty(t, res.Rooms)
	assert.Equal(t, 25, res.Total)

	// size defaults to 20
	res, err = catalog.Search(context.Background(), SearchQuery{})
	require.NoError(t, err)
	assert.Len(t, res.Rooms, 20)
	assert.Equal(t, 20, res.Size)
}

func TestResolveByIDSetsBooked(t *testing.T) {
	rooms := []*model.Room{{ID: 1, RoomNumber: 101, RoomTypeID: 1, IsActive: true}}
	occ := &fakeOccupancy{occupied: map[uint64]map[string]bool{
		1: {"2026-08-02": true},
	}}
	catalog := newTestCatalog(rooms, []*model.RoomType{deluxeType()}, occ)

	day := model.NewDate(2026, time.August, 2)
	got, err := catalog.ResolveByID(context.Background(), 1, &day)
	require.NoError(t, err)
	assert.True(t, got.Booked)

	free := model.NewDate(2026, time.August, 3)
	got, err = catalog.ResolveByID(context.Background(), 1, &free)
	require.NoError(t, err)
	assert.False(t, got.Booked)

	got, err = catalog.ResolveByID(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.False(t, got.Booked)
}
