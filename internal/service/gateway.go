// Package service holds the business rules between the HTTP handlers
// and the repositories: room resolution, booking, and billing.
package service

import (
	"context"
	"errors"
)

// ErrMethodDetached reports that the gateway no longer has the card
// attached to any customer.  It is the one detach failure callers may
// treat as success and proceed with local removal.
var ErrMethodDetached = errors.New("payment method already detached")

// IntentRequest asks the payment gateway to open a charge attempt.
// AmountMinor is in the currency's smallest unit (cents).
type IntentRequest struct {
	AmountMinor int64
	Currency    string
	CustomerID  string
	Description string
	SaveMethod  bool
	Metadata    map[string]string
}

// Intent is the gateway's handle for a charge attempt.  ClientSecret
// goes to the browser; ID is the transaction id recorded in the
// payment ledger.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
}

// SetupIntent is the gateway's handle for saving a card without
// charging it.
type SetupIntent struct {
	ID           string
	ClientSecret string
}

// MethodInfo is a card summary as reported by the gateway.
type MethodInfo struct {
	ID       string
	Brand    string
	Last4    string
	ExpMonth int64
	ExpYear  int64
}

// Gateway abstracts the payment provider.  Billing talks only to this
// interface; the Stripe implementation lives in stripe_gateway.go and
// tests substitute a fake.
type Gateway interface {
	CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	CreateSetupIntent(ctx context.Context, customerID string) (*SetupIntent, error)
	CreateCustomer(ctx context.Context, email, name string, userID uint64) (string, error)
	GetPaymentMethod(ctx context.Context, methodID string) (*MethodInfo, error)
	ListPaymentMethods(ctx context.Context, customerID string) ([]MethodInfo, error)
	DetachPaymentMethod(ctx context.Context, methodID string) error
}
