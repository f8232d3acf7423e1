package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/hotel-room-booking/internal/model"
)

// PaymentRepo persists ledger entries.  The gateway transaction id
// carries a unique index; webhook reconciliation always reads and
// writes through it.
type PaymentRepo struct{ DB *sql.DB }

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{DB: db} }

var ErrPaymentNotFound = errors.New("payment not found")

const paymentColumns = `id, reservation_id, transaction_id, payment_method_id,
	amount, currency, status, created_at`

// Create inserts a ledger entry and populates the generated id.  A
// duplicate transaction id is reported as ErrConflict — a concurrent
// writer already recorded this transaction.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO payments (reservation_id, transaction_id, payment_method_id, amount, currency, status)
		VALUES (?,?,?,?,?,?)`,
		p.ReservationID, p.TransactionID, nullStr(p.PaymentMethodID),
		p.Amount, p.Currency, string(p.Status))
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return r.DB.QueryRowContext(ctx,
		"SELECT created_at FROM payments WHERE id=?", p.ID).Scan(&p.CreatedAt)
}

// Update overwrites a ledger entry's mutable fields.
func (r *PaymentRepo) Update(ctx context.Context, p *model.Payment) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE payments SET reservation_id=?, transaction_id=?, payment_method_id=?,
			amount=?, currency=?, status=?
		WHERE id=?`,
		p.ReservationID, p.TransactionID, nullStr(p.PaymentMethodID),
		p.Amount, p.Currency, string(p.Status), p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, p.ID); err != nil {
			return err
		}
	}
	return nil
}

// GetByID fetches one ledger entry.
func (r *PaymentRepo) GetByID(ctx context.Context, id uint64) (*model.Payment, error) {
	p, err := scanPayment(r.DB.QueryRowContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	return p, err
}

// GetByTransactionID fetches the ledger entry for a gateway
// transaction.  This is the idempotency lookup used by webhook
// reconciliation.
func (r *PaymentRepo) GetByTransactionID(ctx context.Context, txnID string) (*model.Payment, error) {
	p, err := scanPayment(r.DB.QueryRowContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE transaction_id=? LIMIT 1", txnID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	return p, err
}

// List returns every ledger entry, newest first.
func (r *PaymentRepo) List(ctx context.Context) ([]*model.Payment, error) {
	return r.list(ctx, "SELECT "+paymentColumns+" FROM payments ORDER BY id DESC")
}

// ListByReservation returns all attempts against one reservation.
func (r *PaymentRepo) ListByReservation(ctx context.Context, reservationID uint64) ([]*model.Payment, error) {
	return r.list(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE reservation_id=? ORDER BY id DESC", reservationID)
}

// ListSince returns entries created at or after the cutoff, newest
// first.  The dashboard uses this for its recent-payments panel.
func (r *PaymentRepo) ListSince(ctx context.Context, cutoff time.Time) ([]*model.Payment, error) {
	return r.list(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE created_at>=? ORDER BY created_at DESC",
		cutoff.UTC())
}

// Delete removes a ledger entry.
func (r *PaymentRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM payments WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (r *PaymentRepo) list(ctx context.Context, query string, args ...any) ([]*model.Payment, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPayment(s rowScanner) (*model.Payment, error) {
	var (
		p             model.Payment
		reservationID sql.NullInt64
		methodID      sql.NullString
		status        string
	)
	err := s.Scan(&p.ID, &reservationID, &p.TransactionID, &methodID,
		&p.Amount, &p.Currency, &status, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if reservationID.Valid {
		v := uint64(reservationID.Int64)
		p.ReservationID = &v
	}
	p.PaymentMethodID = methodID.String
	p.Status = model.PaymentStatus(status)
	return &p, nil
}
