package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/hotel-room-booking/internal/model"
)

// RoomRepo provides persistence for physical room units.  Override
// columns are nullable; NULL means "inherit from the room type".
type RoomRepo struct{ DB *sql.DB }

func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{DB: db} }

var ErrRoomNotFound = errors.New("room not found")

const roomColumns = `id, room_number, room_type_id, is_active, price_override,
	amenities_override, description_override, images_override, max_guests_override`

// RoomFilter narrows a listing by the raw columns that can be filtered
// before resolution.  Nil fields are ignored.
type RoomFilter struct {
	RoomNumber *int
	IsActive   *bool
}

// List returns rooms matching the filter, ordered by room number.
func (r *RoomRepo) List(ctx context.Context, f RoomFilter) ([]*model.Room, error) {
	query := "SELECT " + roomColumns + " FROM rooms"
	var (
		conds []string
		args  []any
	)
	if f.RoomNumber != nil {
		conds = append(conds, "room_number=?")
		args = append(args, *f.RoomNumber)
	}
	if f.IsActive != nil {
		conds = append(conds, "is_active=?")
		args = append(args, *f.IsActive)
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY room_number"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var rooms []*model.Room
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, rm)
	}
	return rooms, rows.Err()
}

// GetByID fetches one room.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (*model.Room, error) {
	rm, err := scanRoom(r.DB.QueryRowContext(ctx,
		"SELECT "+roomColumns+" FROM rooms WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	return rm, err
}

// Create inserts a room and populates the generated id.  A duplicate
// room number or a dangling room type reference is reported as
// ErrConflict.
func (r *RoomRepo) Create(ctx context.Context, rm *model.Room) error {
	amenities, images, err := marshalLists(rm.AmenitiesOverride, rm.ImagesOverride)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO rooms (room_number, room_type_id, is_active, price_override,
			amenities_override, description_override, images_override, max_guests_override)
		VALUES (?,?,?,?,?,?,?,?)`,
		rm.RoomNumber, rm.RoomTypeID, rm.IsActive, rm.PriceOverride,
		amenities, rm.DescriptionOverride, images, rm.MaxGuestsOverride)
	if err != nil {
		if isDuplicate(err) || isMissingParent(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rm.ID = uint64(id)
	return nil
}

// Update overwrites a room, including clearing overrides set to nil.
func (r *RoomRepo) Update(ctx context.Context, rm *model.Room) error {
	amenities, images, err := marshalLists(rm.AmenitiesOverride, rm.ImagesOverride)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `
		UPDATE rooms SET room_number=?, room_type_id=?, is_active=?, price_override=?,
			amenities_override=?, description_override=?, images_override=?, max_guests_override=?
		WHERE id=?`,
		rm.RoomNumber, rm.RoomTypeID, rm.IsActive, rm.PriceOverride,
		amenities, rm.DescriptionOverride, images, rm.MaxGuestsOverride, rm.ID)
	if err != nil {
		if isDuplicate(err) || isMissingParent(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, rm.ID); err != nil {
			return err
		}
	}
	return nil
}

// SetActive flips the maintenance flag without touching other fields.
func (r *RoomRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE rooms SET is_active=? WHERE id=?", active, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a room.  Reservations referencing it surface as
// ErrConflict.
func (r *RoomRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM rooms WHERE id=?", id)
	if err != nil {
		if isReferenced(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func scanRoom(s rowScanner) (*model.Room, error) {
	var (
		rm                 model.Room
		price              sql.NullFloat64
		amenities, images  sql.NullString
		description        sql.NullString
		maxGuests          sql.NullInt64
	)
	err := s.Scan(&rm.ID, &rm.RoomNumber, &rm.RoomTypeID, &rm.IsActive, &price,
		&amenities, &description, &images, &maxGuests)
	if err != nil {
		return nil, err
	}
	if price.Valid {
		rm.PriceOverride = &price.Float64
	}
	if description.Valid {
		rm.DescriptionOverride = &description.String
	}
	if maxGuests.Valid {
		v := int(maxGuests.Int64)
		rm.MaxGuestsOverride = &v
	}
	if err := unmarshalList(amenities, &rm.AmenitiesOverride); err != nil {
		return nil, err
	}
	if err := unmarshalList(images, &rm.ImagesOverride); err != nil {
		return nil, err
	}
	return &rm, nil
}
