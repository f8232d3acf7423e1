package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/hotel-room-booking/internal/model"
)

// AvailabilityRepo manages per-day occupancy rows.  One row marks one
// room as taken on one calendar night; rows are owned by the
// reservation that created them.  The unique (room_id, stay_date) key
// is the serialization point that turns concurrent double-bookings
// into ErrRoomUnavailable.
type AvailabilityRepo struct{ DB *sql.DB }

func NewAvailabilityRepo(db *sql.DB) *AvailabilityRepo { return &AvailabilityRepo{DB: db} }

var ErrAvailabilityNotFound = errors.New("availability record not found")

const availabilityColumns = `id, room_id, stay_date, reservation_id`

// CreateDatesTx bulk-inserts one occupancy row per date inside an
// existing transaction.  A duplicate (room, date) pair aborts the whole
// statement with ErrRoomUnavailable so the caller can roll back the
// reservation write.  Passing an empty slice is a no-op.
func (r *AvailabilityRepo) CreateDatesTx(ctx context.Context, tx *sql.Tx, roomID, reservationID uint64, dates []model.Date) error {
	if len(dates) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString("INSERT INTO room_availability (room_id, stay_date, reservation_id) VALUES ")
	args := make([]any, 0, len(dates)*3)
	for i, d := range dates {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?,?,?)")
		args = append(args, roomID, d, reservationID)
	}
	if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
		if isDuplicate(err) {
			return ErrRoomUnavailable
		}
		return err
	}
	return nil
}

// DeleteByReservationTx removes every row owned by a reservation
// inside an existing transaction.  Used by cancellation and by the
// stale-hold sweeper.
func (r *AvailabilityRepo) DeleteByReservationTx(ctx context.Context, tx *sql.Tx, reservationID uint64) error {
	_, err := tx.ExecContext(ctx,
		"DELETE FROM room_availability WHERE reservation_id=?", reservationID)
	return err
}

// Create inserts a single row (the manual /availability/create
// endpoint).  Conflicting dates return ErrRoomUnavailable.
func (r *AvailabilityRepo) Create(ctx context.Context, av *model.RoomAvailability) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO room_availability (room_id, stay_date, reservation_id) VALUES (?,?,?)",
		av.RoomID, av.Date, av.ReservationID)
	if err != nil {
		if isDuplicate(err) {
			return ErrRoomUnavailable
		}
		if isMissingParent(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	av.ID = uint64(id)
	return nil
}

// Delete removes a single row by id.
func (r *AvailabilityRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM room_availability WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAvailabilityNotFound
	}
	return nil
}

// List returns every occupancy row.
func (r *AvailabilityRepo) List(ctx context.Context) ([]*model.RoomAvailability, error) {
	return r.list(ctx, "SELECT "+availabilityColumns+" FROM room_availability ORDER BY stay_date")
}

// ListByRoom returns a room's occupied days.
func (r *AvailabilityRepo) ListByRoom(ctx context.Context, roomID uint64) ([]*model.RoomAvailability, error) {
	return r.list(ctx,
		"SELECT "+availabilityColumns+" FROM room_availability WHERE room_id=? ORDER BY stay_date", roomID)
}

// ListByDate returns all rooms occupied on one calendar day.
func (r *AvailabilityRepo) ListByDate(ctx context.Context, date model.Date) ([]*model.RoomAvailability, error) {
	return r.list(ctx,
		"SELECT "+availabilityColumns+" FROM room_availability WHERE stay_date=? ORDER BY room_id", date)
}

// ListByReservation returns the rows a reservation owns.
func (r *AvailabilityRepo) ListByReservation(ctx context.Context, reservationID uint64) ([]*model.RoomAvailability, error) {
	return r.list(ctx,
		"SELECT "+availabilityColumns+" FROM room_availability WHERE reservation_id=? ORDER BY stay_date",
		reservationID)
}

// BookedOnDay reports whether a room is occupied on a single date.
func (r *AvailabilityRepo) BookedOnDay(ctx context.Context, roomID uint64, date model.Date) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM room_availability WHERE room_id=? AND stay_date=? LIMIT 1",
		roomID, date).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// BookedRoomIDs returns the set of rooms with any occupied day in
// [start, end).  Room search uses this to drop unavailable rooms in
// one query instead of one lookup per candidate.
func (r *AvailabilityRepo) BookedRoomIDs(ctx context.Context, start, end model.Date) (map[uint64]struct{}, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT DISTINCT room_id FROM room_availability WHERE stay_date>=? AND stay_date<?",
		start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make(map[uint64]struct{})
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

func (r *AvailabilityRepo) list(ctx context.Context, query string, args ...any) ([]*model.RoomAvailability, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.RoomAvailability
	for rows.Next() {
		var av model.RoomAvailability
		if err := rows.Scan(&av.ID, &av.RoomID, &av.Date, &av.ReservationID); err != nil {
			return nil, err
		}
		out = append(out, &av)
	}
	return out, rows.Err()
}
