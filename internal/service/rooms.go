package service

import (
	"context"
	"strings"

	"github.com/iliyamo/hotel-room-booking/internal/model"
	"github.com/iliyamo/hotel-room-booking/internal/repository"
)

type roomStore interface {
	List(ctx context.Context, f repository.RoomFilter) ([]*model.Room, error)
	GetByID(ctx context.Context, id uint64) (*model.Room, error)
}

type roomTypeStore interface {
	List(ctx context.Context) ([]*model.RoomType, error)
	GetByID(ctx context.Context, id uint64) (*model.RoomType, error)
}

type occupancyReader interface {
	BookedOnDay(ctx context.Context, roomID uint64, date model.Date) (bool, error)
	BookedRoomIDs(ctx context.Context, start, end model.Date) (map[uint64]struct{}, error)
}

// RoomCatalog merges rooms with their type templates into the resolved
// view the API serves.  Resolution happens on every read; nothing
// merged is ever written back.
type RoomCatalog struct {
	rooms roomStore
	types roomTypeStore
	occ   occupancyReader
}

func NewRoomCatalog(rooms roomStore, types roomTypeStore, occ occupancyReader) *RoomCatalog {
	return &RoomCatalog{rooms: rooms, types: types, occ: occ}
}

// SearchQuery narrows a room search.  Nil fields are ignored.  When
// both dates are present, rooms with any occupied night in
// [CheckIn, CheckOut) are dropped from the results.
type SearchQuery struct {
	RoomNumber *int
	IsActive   *bool
	Category   string
	Guests     *int
	CheckIn    *model.Date
	CheckOut   *model.Date
	Page       int
	Size       int
}

// SearchResult is one page of resolved rooms.  Total counts every
// match, not just the page.
type SearchResult struct {
	Rooms []model.ResolvedRoom `json:"rooms"`
	Total int                  `json:"total"`
	Page  int                  `json:"page"`
	Size  int                  `json:"size"`
}

// Resolve merges a room with its type.  Overrides win field by field;
// images are the type's gallery followed by the room's own shots, and
// an empty gallery collapses to nil so it serializes as null.
func Resolve(room *model.Room, rt *model.RoomType) model.ResolvedRoom {
	out := model.ResolvedRoom{
		ID:         room.ID,
		RoomNumber: room.RoomNumber,
		IsActive:   room.IsActive,
		RoomTypeID: room.RoomTypeID,
	}
	if rt != nil {
		out.RoomCategory = rt.Category
		p := rt.PricePerNight
		out.Price = &p
		g := rt.MaxGuests
		out.MaxGuests = &g
		out.Amenities = rt.Amenities
		if rt.Description != "" {
			d := rt.Description
			out.Description = &d
		}
		out.Images = append(out.Images, rt.Images...)
	}
	if room.PriceOverride != nil {
		out.Price = room.PriceOverride
	}
	if room.MaxGuestsOverride != nil {
		out.MaxGuests = room.MaxGuestsOverride
	}
	if room.AmenitiesOverride != nil {
		out.Amenities = room.AmenitiesOverride
	}
	if room.DescriptionOverride != nil {
		out.Description = room.DescriptionOverride
	}
	out.Images = append(out.Images, room.ImagesOverride...)
	if len(out.Images) == 0 {
		out.Images = nil
	}
	return out
}

// ResolveByID returns the merged view of one room.  When day is given,
// Booked reflects occupancy on that date; otherwise it stays false.
func (c *RoomCatalog) ResolveByID(ctx context.Context, id uint64, day *model.Date) (*model.ResolvedRoom, error) {
	room, err := c.rooms.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rt, err := c.types.GetByID(ctx, room.RoomTypeID)
	if err != nil {
		return nil, err
	}
	resolved := Resolve(room, rt)
	if day != nil {
		booked, err := c.occ.BookedOnDay(ctx, id, *day)
		if err != nil {
			return nil, err
		}
		resolved.Booked = booked
	}
	return &resolved, nil
}

// ListResolved returns every room merged with its type, optionally
// filtered by the raw columns.
func (c *RoomCatalog) ListResolved(ctx context.Context, f repository.RoomFilter) ([]model.ResolvedRoom, error) {
	rooms, err := c.rooms.List(ctx, f)
	if err != nil {
		return nil, err
	}
	types, err := c.typeIndex(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.ResolvedRoom, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, Resolve(room, types[room.RoomTypeID]))
	}
	return out, nil
}

// Search filters, resolves and paginates rooms.  Rooms whose guest
// capacity is unknown fail a guest-count filter rather than pass it.
func (c *RoomCatalog) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	rooms, err := c.rooms.List(ctx, repository.RoomFilter{
		RoomNumber: q.RoomNumber,
		IsActive:   q.IsActive,
	})
	if err != nil {
		return nil, err
	}
	types, err := c.typeIndex(ctx)
	if err != nil {
		return nil, err
	}

	var booked map[uint64]struct{}
	if q.CheckIn != nil && q.CheckOut != nil && q.CheckIn.Before(*q.CheckOut) {
		booked, err = c.occ.BookedRoomIDs(ctx, *q.CheckIn, *q.CheckOut)
		if err != nil {
			return nil, err
		}
	}

	category := strings.ToUpper(strings.TrimSpace(q.Category))
	var matched []model.ResolvedRoom
	for _, room := range rooms {
		if booked != nil {
			if _, taken := booked[room.ID]; taken {
				continue
			}
		}
		resolved := Resolve(room, types[room.RoomTypeID])
		if category != "" && string(resolved.RoomCategory) != category {
			continue
		}
		if q.Guests != nil {
			if resolved.MaxGuests == nil || *resolved.MaxGuests < *q.Guests {
				continue
			}
		}
		matched = append(matched, resolved)
	}

	page, size := q.Page, q.Size
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = 20
	}
	start := page * size
	end := start + size
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}
	return &SearchResult{
		Rooms: matched[start:end],
		Total: len(matched),
		Page:  page,
		Size:  size,
	}, nil
}

func (c *RoomCatalog) typeIndex(ctx context.Context) (map[uint64]*model.RoomType, error) {
	types, err := c.types.List(ctx)
	if err != nil {
		return nil, err
	}
	idx := make(map[uint64]*model.RoomType, len(types))
	for _, rt := range types {
		idx[rt.ID] = rt
	}
	return idx, nil
}
