package model

import (
	"fmt"
	"strings"
	"time"
)

// PaymentStatus is the closed set of ledger entry states.
type PaymentStatus string

const (
	PaymentSucceeded PaymentStatus = "SUCCEEDED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
	PaymentPending   PaymentStatus = "PENDING"
)

// ParsePaymentStatus normalizes and validates a status string.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case PaymentSucceeded:
		return PaymentSucceeded, nil
	case PaymentFailed:
		return PaymentFailed, nil
	case PaymentRefunded:
		return PaymentRefunded, nil
	case PaymentPending:
		return PaymentPending, nil
	}
	return "", fmt.Errorf("invalid payment status %q", s)
}

// Payment is one ledger entry per gateway transaction attempt.  The
// gateway transaction id is the natural idempotency key: webhook
// reconciliation looks entries up by it, so at most one row exists
// per transaction.
type Payment struct {
	ID              uint64        `json:"id"`
	ReservationID   *uint64       `json:"reservationId,omitempty"` // nil for non-reservation charges
	TransactionID   string        `json:"transactionId"`           // gateway intent id (pi_...)
	PaymentMethodID string        `json:"paymentMethodId,omitempty"`
	Amount          float64       `json:"amount"` // major units
	Currency        string        `json:"currency"`
	Status          PaymentStatus `json:"status"`
	CreatedAt       time.Time     `json:"createdAt"`
}
