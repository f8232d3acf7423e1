package model

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of user roles.  Authorization decisions
// match on these values exhaustively; free-form role strings from
// clients are funnelled through ParseRole at the boundary.
type Role string

const (
	RoleGuest   Role = "GUEST"
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
)

// ParseRole normalizes and validates a role string.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleGuest:
		return RoleGuest, nil
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleManager:
		return RoleManager, nil
	}
	return "", fmt.Errorf("invalid role %q", s)
}

// SavedPaymentMethod is a card summary kept on the user record.
// Only the gateway's method id and display data are stored, never
// raw card numbers.
type SavedPaymentMethod struct {
	StripePaymentMethodID string `json:"stripePaymentMethodId"`
	Brand                 string `json:"brand"`
	Last4                 string `json:"last4"`
}

// Address is the user's billing address.
type Address struct {
	Street    string `json:"street,omitempty"`
	Apartment string `json:"apartment,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Zip       string `json:"zip,omitempty"`
	Country   string `json:"country,omitempty"`
}

// Preferences holds stay preferences collected on the profile page.
type Preferences struct {
	BedType string `json:"bedType,omitempty"`
	Smoking *bool  `json:"smoking,omitempty"`
}

// User is an identity record.  Local accounts carry a password hash;
// OAuth accounts carry an auth provider and provider id instead.
type User struct {
	ID                  uint64               `json:"id"`
	AuthProvider        string               `json:"authProvider,omitempty"` // "local", "google", ...
	ProviderID          string               `json:"-"`
	Email               string               `json:"email"`
	PasswordHash        string               `json:"-"`
	FullName            string               `json:"fullName"`
	Role                Role                 `json:"role"`
	Phone               string               `json:"phone,omitempty"`
	BillingAddress      Address              `json:"billingAddress"`
	Preferences         Preferences          `json:"preferences"`
	SavedPaymentMethods []SavedPaymentMethod `json:"savedPaymentMethods"`
	StripeCustomerID    string               `json:"-"`
	CreatedAt           time.Time            `json:"createdAt"`
}

// HasSavedMethod reports whether the gateway method id is already on
// the user's saved list.
func (u *User) HasSavedMethod(paymentMethodID string) bool {
	for _, m := range u.SavedPaymentMethods {
		if m.StripePaymentMethodID == paymentMethodID {
			return true
		}
	}
	return false
}

// Principal is the authenticated caller, extracted from the access
// token once per request and passed explicitly into services that
// need it.
type Principal struct {
	UserID uint64
	Role   Role
}
