package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/iliyamo/hotel-room-booking/internal/model"
)

// RoomTypeRepo provides CRUD for catalog templates.  Amenities and
// image URLs are JSON columns since they are only ever read whole.
type RoomTypeRepo struct{ DB *sql.DB }

func NewRoomTypeRepo(db *sql.DB) *RoomTypeRepo { return &RoomTypeRepo{DB: db} }

var ErrRoomTypeNotFound = errors.New("room type not found")

const roomTypeColumns = `id, room_category, price_per_night, max_guests, amenities, description, images`

// List returns all room types ordered by category then price.
func (r *RoomTypeRepo) List(ctx context.Context) ([]*model.RoomType, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+roomTypeColumns+" FROM room_types ORDER BY room_category, price_per_night")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var types []*model.RoomType
	for rows.Next() {
		rt, err := scanRoomType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, rt)
	}
	return types, rows.Err()
}

// GetByID fetches one room type.
func (r *RoomTypeRepo) GetByID(ctx context.Context, id uint64) (*model.RoomType, error) {
	rt, err := scanRoomType(r.DB.QueryRowContext(ctx,
		"SELECT "+roomTypeColumns+" FROM room_types WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoomTypeNotFound
	}
	return rt, err
}

// Create inserts a template and populates the generated id.
func (r *RoomTypeRepo) Create(ctx context.Context, rt *model.RoomType) error {
	amenities, images, err := marshalLists(rt.Amenities, rt.Images)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO room_types (room_category, price_per_night, max_guests, amenities, description, images)
		VALUES (?,?,?,?,?,?)`,
		string(rt.Category), rt.PricePerNight, rt.MaxGuests, amenities, rt.Description, images)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rt.ID = uint64(id)
	return nil
}

// Update overwrites a template.
func (r *RoomTypeRepo) Update(ctx context.Context, rt *model.RoomType) error {
	amenities, images, err := marshalLists(rt.Amenities, rt.Images)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `
		UPDATE room_types SET room_category=?, price_per_night=?, max_guests=?, amenities=?, description=?, images=?
		WHERE id=?`,
		string(rt.Category), rt.PricePerNight, rt.MaxGuests, amenities, rt.Description, images, rt.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, rt.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a template.  Rooms still referencing it surface as
// ErrConflict rather than a raw foreign key error.
func (r *RoomTypeRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM room_types WHERE id=?", id)
	if err != nil {
		if isReferenced(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRoomTypeNotFound
	}
	return nil
}

func scanRoomType(s rowScanner) (*model.RoomType, error) {
	var (
		rt                  model.RoomType
		category            string
		amenities, images   sql.NullString
		description         sql.NullString
	)
	err := s.Scan(&rt.ID, &category, &rt.PricePerNight, &rt.MaxGuests, &amenities, &description, &images)
	if err != nil {
		return nil, err
	}
	rt.Category = model.RoomCategory(category)
	rt.Description = description.String
	if err := unmarshalList(amenities, &rt.Amenities); err != nil {
		return nil, err
	}
	if err := unmarshalList(images, &rt.Images); err != nil {
		return nil, err
	}
	return &rt, nil
}

func marshalLists(a, b []string) ([]byte, []byte, error) {
	aj, err := marshalListOrNull(a)
	if err != nil {
		return nil, nil, err
	}
	bj, err := marshalListOrNull(b)
	if err != nil {
		return nil, nil, err
	}
	return aj, bj, nil
}

func marshalListOrNull(list []string) ([]byte, error) {
	if list == nil {
		return nil, nil
	}
	return json.Marshal(list)
}

func unmarshalList(col sql.NullString, dst *[]string) error {
	if !col.Valid || col.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(col.String), dst)
}
