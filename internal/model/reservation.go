package model

import (
	"fmt"
	"strings"
	"time"
)

// ReservationStatus is the closed set of reservation states.
//
// PENDING_PAYMENT -> CONFIRMED on a gateway success event,
// CONFIRMED/PENDING_PAYMENT -> PENDING_PAYMENT on a failure event,
// any state -> CANCELLED by an explicit cancel.  COMPLETED and
// MODIFIED are administrative and never entered automatically.
type ReservationStatus string

const (
	ReservationConfirmed      ReservationStatus = "CONFIRMED"
	ReservationCancelled      ReservationStatus = "CANCELLED"
	ReservationCompleted      ReservationStatus = "COMPLETED"
	ReservationPendingPayment ReservationStatus = "PENDING_PAYMENT"
	ReservationModified       ReservationStatus = "MODIFIED"
)

// ParseReservationStatus normalizes and validates a status string.
func ParseReservationStatus(s string) (ReservationStatus, error) {
	switch ReservationStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case ReservationConfirmed:
		return ReservationConfirmed, nil
	case ReservationCancelled:
		return ReservationCancelled, nil
	case ReservationCompleted:
		return ReservationCompleted, nil
	case ReservationPendingPayment:
		return ReservationPendingPayment, nil
	case ReservationModified:
		return ReservationModified, nil
	}
	return "", fmt.Errorf("invalid reservation status %q", s)
}

// Reservation is a booking of one room for the half-open date range
// [CheckIn, CheckOut): the check-out day itself is not occupied.
// TotalPrice is fixed at booking time and never re-derived.
type Reservation struct {
	ID         uint64            `json:"id"`
	UserID     uint64            `json:"userId"`
	RoomID     uint64            `json:"roomUnitId"`
	CheckIn    Date              `json:"checkInDate"`
	CheckOut   Date              `json:"checkOutDate"`
	NumGuests  int               `json:"numGuests"`
	TotalPrice float64           `json:"totalPrice"`
	Status     ReservationStatus `json:"status"`
	PaymentID  *uint64           `json:"paymentId,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// Nights returns the number of occupied nights.
func (r *Reservation) Nights() int { return r.CheckIn.DaysUntil(r.CheckOut) }

// StayDates expands the reservation into its occupied days, one per
// night in [CheckIn, CheckOut).  An inverted range yields nil.
func (r *Reservation) StayDates() []Date {
	if !r.CheckIn.Before(r.CheckOut) {
		return nil
	}
	dates := make([]Date, 0, r.Nights())
	for d := r.CheckIn; d.Before(r.CheckOut); d = d.AddDays(1) {
		dates = append(dates, d)
	}
	return dates
}

// RoomAvailability marks one room as occupied on one calendar day.
// Rows are created in bulk when a reservation is booked and removed
// when it is cancelled.  The (room, date) pair is unique in storage,
// which is what turns a concurrent double-booking into a conflict
// error instead of two overlapping reservations.
type RoomAvailability struct {
	ID            uint64 `json:"id"`
	RoomID        uint64 `json:"roomUnitId"`
	Date          Date   `json:"date"`
	ReservationID uint64 `json:"reservationId"`
}
