package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/hotel-room-booking/internal/model"
)

// ReservationRepo provides persistence for bookings and owns the
// coupled writes to room_availability: a reservation and its per-day
// occupancy rows commit or roll back together, never separately.
type ReservationRepo struct {
	DB    *sql.DB
	avail *AvailabilityRepo
}

func NewReservationRepo(db *sql.DB) *ReservationRepo {
	return &ReservationRepo{DB: db, avail: NewAvailabilityRepo(db)}
}

var ErrReservationNotFound = errors.New("reservation not found")

const reservationColumns = `id, user_id, room_id, check_in, check_out, num_guests,
	total_price, status, payment_id, created_at`

// CreateWithStay inserts the reservation and one availability row per
// stay date in a single transaction.  On a (room, date) collision the
// transaction rolls back and ErrRoomUnavailable is returned, so a lost
// race never leaves a reservation without its occupancy rows or rows
// without their reservation.
func (r *ReservationRepo) CreateWithStay(ctx context.Context, res *model.Reservation, dates []model.Date) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO reservations (user_id, room_id, check_in, check_out, num_guests, total_price, status)
		VALUES (?,?,?,?,?,?,?)`,
		res.UserID, res.RoomID, res.CheckIn, res.CheckOut, res.NumGuests,
		res.TotalPrice, string(res.Status))
	if err != nil {
		if isMissingParent(err) {
			return ErrConflict
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)

	if err := r.avail.CreateDatesTx(ctx, tx, res.RoomID, res.ID, dates); err != nil {
		return err
	}

	if err := tx.QueryRowContext(ctx,
		"SELECT created_at FROM reservations WHERE id=?", res.ID).Scan(&res.CreatedAt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByID fetches one reservation.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	res, err := scanReservation(r.DB.QueryRowContext(ctx,
		"SELECT "+reservationColumns+" FROM reservations WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	return res, err
}

// List returns every reservation, newest first.
func (r *ReservationRepo) List(ctx context.Context) ([]*model.Reservation, error) {
	return r.list(ctx, "SELECT "+reservationColumns+" FROM reservations ORDER BY id DESC")
}

// ListByUser returns a user's reservations, newest first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]*model.Reservation, error) {
	return r.list(ctx,
		"SELECT "+reservationColumns+" FROM reservations WHERE user_id=? ORDER BY id DESC", userID)
}

// ListByRoom returns all reservations for one room.
func (r *ReservationRepo) ListByRoom(ctx context.Context, roomID uint64) ([]*model.Reservation, error) {
	return r.list(ctx,
		"SELECT "+reservationColumns+" FROM reservations WHERE room_id=? ORDER BY check_in", roomID)
}

// ListByCheckInRange returns non-cancelled reservations whose check-in
// falls inside the closed interval [start, end].
func (r *ReservationRepo) ListByCheckInRange(ctx context.Context, start, end model.Date) ([]*model.Reservation, error) {
	return r.list(ctx, `
		SELECT `+reservationColumns+` FROM reservations
		WHERE check_in>=? AND check_in<=? AND status<>? ORDER BY check_in`,
		start, end, string(model.ReservationCancelled))
}

// Update overwrites every mutable field of an existing reservation.
// Stay dates are not re-expanded here; the admin update endpoint edits
// metadata (guests, price, status), not the occupied range.
func (r *ReservationRepo) Update(ctx context.Context, res *model.Reservation) error {
	result, err := r.DB.ExecContext(ctx, `
		UPDATE reservations SET user_id=?, room_id=?, check_in=?, check_out=?,
			num_guests=?, total_price=?, status=?, payment_id=?
		WHERE id=?`,
		res.UserID, res.RoomID, res.CheckIn, res.CheckOut,
		res.NumGuests, res.TotalPrice, string(res.Status), res.PaymentID, res.ID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, res.ID); err != nil {
			return err
		}
	}
	return nil
}

// UpdateStatus transitions a reservation's status.
func (r *ReservationRepo) UpdateStatus(ctx context.Context, id uint64, status model.ReservationStatus) error {
	result, err := r.DB.ExecContext(ctx,
		"UPDATE reservations SET status=? WHERE id=?", string(status), id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// SetStatusAndPayment transitions status and links the ledger entry in
// one statement, used when a gateway success event confirms a booking.
func (r *ReservationRepo) SetStatusAndPayment(ctx context.Context, id uint64, status model.ReservationStatus, paymentID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE reservations SET status=?, payment_id=? WHERE id=?",
		string(status), paymentID, id)
	return err
}

// CancelWithStay marks the reservation CANCELLED and releases its
// availability rows in one transaction.  Cancelling an already
// cancelled reservation is a no-op.
func (r *ReservationRepo) CancelWithStay(ctx context.Context, id uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	result, err := tx.ExecContext(ctx,
		"UPDATE reservations SET status=? WHERE id=?",
		string(model.ReservationCancelled), id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		var one int
		if err := tx.QueryRowContext(ctx,
			"SELECT 1 FROM reservations WHERE id=?", id).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrReservationNotFound
			}
			return err
		}
	}
	if err := r.avail.DeleteByReservationTx(ctx, tx, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ExpireStalePending cancels PENDING_PAYMENT reservations created
// before the cutoff and frees their dates.  Returns how many holds
// were released.
func (r *ReservationRepo) ExpireStalePending(ctx context.Context, cutoff time.Time) (int, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id FROM reservations WHERE status=? AND created_at<?",
		string(model.ReservationPendingPayment), cutoff.UTC())
	if err != nil {
		return 0, err
	}
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	released := 0
	for _, id := range ids {
		if err := r.CancelWithStay(ctx, id); err != nil {
			return released, err
		}
		released++
	}
	return released, nil
}

func (r *ReservationRepo) list(ctx context.Context, query string, args ...any) ([]*model.Reservation, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func scanReservation(s rowScanner) (*model.Reservation, error) {
	var (
		res       model.Reservation
		status    string
		paymentID sql.NullInt64
	)
	err := s.Scan(&res.ID, &res.UserID, &res.RoomID, &res.CheckIn, &res.CheckOut,
		&res.NumGuests, &res.TotalPrice, &status, &paymentID, &res.CreatedAt)
	if err != nil {
		return nil, err
	}
	res.Status = model.ReservationStatus(status)
	if paymentID.Valid {
		v := uint64(paymentID.Int64)
		res.PaymentID = &v
	}
	return &res, nil
}
