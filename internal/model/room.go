package model

import (
	"fmt"
	"strings"
)

// RoomCategory classifies room types.
type RoomCategory string

const (
	CategoryStandard  RoomCategory = "STANDARD"
	CategoryDeluxe    RoomCategory = "DELUXE"
	CategorySuite     RoomCategory = "SUITE"
	CategoryPenthouse RoomCategory = "PENTHOUSE"
)

// ParseRoomCategory normalizes and validates a category string.
func ParseRoomCategory(s string) (RoomCategory, error) {
	switch RoomCategory(strings.ToUpper(strings.TrimSpace(s))) {
	case CategoryStandard:
		return CategoryStandard, nil
	case CategoryDeluxe:
		return CategoryDeluxe, nil
	case CategorySuite:
		return CategorySuite, nil
	case CategoryPenthouse:
		return CategoryPenthouse, nil
	}
	return "", fmt.Errorf("invalid room category %q", s)
}

// RoomType is a catalog template shared by many physical rooms, so
// price, amenities and imagery live here once instead of on every
// room record.
type RoomType struct {
	ID            uint64       `json:"id"`
	Category      RoomCategory `json:"roomCategory"`
	PricePerNight float64      `json:"pricePerNight"`
	MaxGuests     int          `json:"maxGuests"`
	Amenities     []string     `json:"amenities"`
	Description   string       `json:"description"`
	Images        []string     `json:"images"`
}

// Room is a physical bookable unit.  Every field except the room
// number may be overridden per room; nil overrides fall back to the
// referenced RoomType.  IsActive tracks maintenance state and is
// independent of whether the room is booked.
type Room struct {
	ID                  uint64    `json:"id"`
	RoomNumber          int       `json:"roomNumber"`
	RoomTypeID          uint64    `json:"roomTypeId"`
	IsActive            bool      `json:"isActive"`
	PriceOverride       *float64  `json:"priceOverride,omitempty"`
	AmenitiesOverride   []string  `json:"amenitiesOverride,omitempty"`
	DescriptionOverride *string   `json:"descriptionOverride,omitempty"`
	ImagesOverride      []string  `json:"imagesOverride,omitempty"`
	MaxGuestsOverride   *int      `json:"maxGuestsOverride,omitempty"`
}

// ResolvedRoom is the display view of a Room merged with its
// RoomType.  It is recomputed on every query and never persisted;
// Booked reflects availability for whatever date or range the caller
// asked about.
type ResolvedRoom struct {
	ID           uint64       `json:"id"`
	RoomNumber   int          `json:"roomNumber"`
	IsActive     bool         `json:"isActive"`
	Price        *float64     `json:"price"`
	Amenities    []string     `json:"amenities"`
	Description  *string      `json:"description"`
	Images       []string     `json:"images"`
	MaxGuests    *int         `json:"maxGuests"`
	RoomTypeID   uint64       `json:"roomTypeId"`
	RoomCategory RoomCategory `json:"roomCategory,omitempty"`
	Booked       bool         `json:"booked"`
}
