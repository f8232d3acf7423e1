package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/iliyamo/hotel-room-booking/internal/model"
	"github.com/iliyamo/hotel-room-booking/internal/utils"
)

// UserRepo provides persistence for identity records.  Structured
// attributes (billing address, preferences, saved payment methods) are
// stored as JSON columns; everything the authorization layer needs is
// in plain columns.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var (
	ErrEmailExists  = errors.New("email already exists")
	ErrUserNotFound = errors.New("user not found")
)

const userColumns = `id, auth_provider, provider_id, email, password_hash, full_name, role,
	phone, billing_address, preferences, saved_payment_methods, stripe_customer_id, created_at`

// Create inserts a local account with a bcrypt-hashed password and
// populates the generated id on u.
func (r *UserRepo) Create(ctx context.Context, u *model.User, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.AuthProvider = "local"
	return r.insert(ctx, u)
}

// CreateOAuth inserts an account linked to an external provider.  No
// password hash is stored; the provider id is the login credential.
func (r *UserRepo) CreateOAuth(ctx context.Context, u *model.User) error {
	u.PasswordHash = ""
	return r.insert(ctx, u)
}

func (r *UserRepo) insert(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Role == "" {
		u.Role = model.RoleGuest
	}
	addr, prefs, methods, err := marshalUserJSON(u)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO users (auth_provider, provider_id, email, password_hash, full_name, role,
			phone, billing_address, preferences, saved_payment_methods, stripe_customer_id)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		nullStr(u.AuthProvider), nullStr(u.ProviderID), u.Email, nullStr(u.PasswordHash),
		u.FullName, string(u.Role), nullStr(u.Phone), addr, prefs, methods,
		nullStr(u.StripeCustomerID))
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return r.refreshCreatedAt(ctx, u)
}

func (r *UserRepo) refreshCreatedAt(ctx context.Context, u *model.User) error {
	return r.DB.QueryRowContext(ctx,
		"SELECT created_at FROM users WHERE id=?", u.ID).Scan(&u.CreatedAt)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
}

// GetByProvider fetches a user by OAuth provider and provider-assigned id.
func (r *UserRepo) GetByProvider(ctx context.Context, provider, providerID string) (*model.User, error) {
	return r.getOne(ctx,
		"SELECT "+userColumns+" FROM users WHERE auth_provider=? AND provider_id=? LIMIT 1",
		provider, providerID)
}

// GetByStripeCustomerID resolves the user owning a gateway customer.
// Webhook reconciliation uses this for gateway-initiated method
// attachments that carry no user metadata.
func (r *UserRepo) GetByStripeCustomerID(ctx context.Context, customerID string) (*model.User, error) {
	return r.getOne(ctx,
		"SELECT "+userColumns+" FROM users WHERE stripe_customer_id=? LIMIT 1", customerID)
}

// List returns all users, newest first.
func (r *UserRepo) List(ctx context.Context) ([]*model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Update persists every mutable field of u.  Identity columns (email,
// provider link, password hash) are updated too so that payment-method
// sync and profile edits share one write path.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	addr, prefs, methods, err := marshalUserJSON(u)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users SET auth_provider=?, provider_id=?, email=?, password_hash=?,
			full_name=?, role=?, phone=?, billing_address=?, preferences=?,
			saved_payment_methods=?, stripe_customer_id=?
		WHERE id=?`,
		nullStr(u.AuthProvider), nullStr(u.ProviderID), u.Email, nullStr(u.PasswordHash),
		u.FullName, string(u.Role), nullStr(u.Phone), addr, prefs, methods,
		nullStr(u.StripeCustomerID), u.ID)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Zero rows can also mean a no-op update; confirm existence.
		if _, err := r.GetByID(ctx, u.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a user row.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

type rowScanner interface{ Scan(dest ...any) error }

func (r *UserRepo) getOne(ctx context.Context, query string, args ...any) (*model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func scanUser(s rowScanner) (*model.User, error) {
	var (
		u                            model.User
		provider, providerID, hash   sql.NullString
		phone, customerID            sql.NullString
		addrJSON, prefsJSON, pmJSON  sql.NullString
		role                         string
	)
	err := s.Scan(&u.ID, &provider, &providerID, &u.Email, &hash, &u.FullName, &role,
		&phone, &addrJSON, &prefsJSON, &pmJSON, &customerID, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.AuthProvider = provider.String
	u.ProviderID = providerID.String
	u.PasswordHash = hash.String
	u.Phone = phone.String
	u.StripeCustomerID = customerID.String
	u.Role = model.Role(role)
	if addrJSON.Valid && addrJSON.String != "" {
		if err := json.Unmarshal([]byte(addrJSON.String), &u.BillingAddress); err != nil {
			return nil, err
		}
	}
	if prefsJSON.Valid && prefsJSON.String != "" {
		if err := json.Unmarshal([]byte(prefsJSON.String), &u.Preferences); err != nil {
			return nil, err
		}
	}
	if pmJSON.Valid && pmJSON.String != "" {
		if err := json.Unmarshal([]byte(pmJSON.String), &u.SavedPaymentMethods); err != nil {
			return nil, err
		}
	}
	return &u, nil
}

func marshalUserJSON(u *model.User) (addr, prefs, methods []byte, err error) {
	if addr, err = json.Marshal(u.BillingAddress); err != nil {
		return
	}
	if prefs, err = json.Marshal(u.Preferences); err != nil {
		return
	}
	if u.SavedPaymentMethods == nil {
		u.SavedPaymentMethods = []model.SavedPaymentMethod{}
	}
	methods, err = json.Marshal(u.SavedPaymentMethods)
	return
}

// nullStr maps empty strings to SQL NULL.
func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
