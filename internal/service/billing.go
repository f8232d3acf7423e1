package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v82"

	"github.com/iliyamo/hotel-room-booking/internal/model"
	"github.com/iliyamo/hotel-room-booking/internal/queue"
	"github.com/iliyamo/hotel-room-booking/internal/repository"
	"github.com/iliyamo/hotel-room-booking/internal/utils"
)

type paymentStore interface {
	Create(ctx context.Context, p *model.Payment) error
	Update(ctx context.Context, p *model.Payment) error
	GetByID(ctx context.Context, id uint64) (*model.Payment, error)
	GetByTransactionID(ctx context.Context, txnID string) (*model.Payment, error)
	List(ctx context.Context) ([]*model.Payment, error)
	ListByReservation(ctx context.Context, reservationID uint64) ([]*model.Payment, error)
	Delete(ctx context.Context, id uint64) error
}

type userStore interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (*model.User, error)
	Update(ctx context.Context, u *model.User) error
}

type reservationLinker interface {
	GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
	UpdateStatus(ctx context.Context, id uint64, status model.ReservationStatus) error
	SetStatusAndPayment(ctx context.Context, id uint64, status model.ReservationStatus, paymentID uint64) error
}

type roomLookup interface {
	GetByID(ctx context.Context, id uint64) (*model.Room, error)
}

// WebhookEvent is the parsed form of a gateway notification.  The
// handler verifies the signature, parses the raw event into one of the
// concrete variants below, and hands it to Billing.HandleWebhook.
type WebhookEvent interface{ webhookEvent() }

// PaymentSucceeded reports a completed charge.
type PaymentSucceeded struct {
	IntentID        string
	CustomerID      string
	PaymentMethodID string
	AmountMinor     int64
	Currency        string
	ReservationID   uint64
	UserID          uint64
	SaveMethod      bool
}

// PaymentFailed reports a declined or errored charge.
type PaymentFailed struct {
	IntentID      string
	AmountMinor   int64
	Currency      string
	ReservationID uint64
	Reason        string
}

// PaymentMethodAttached reports a card saved to a customer outside the
// charge flow (setup intents).
type PaymentMethodAttached struct {
	MethodID   string
	CustomerID string
	Brand      string
	Last4      string
}

// OtherEvent is any gateway notification the service does not act on.
// It is acknowledged and dropped.
type OtherEvent struct{ Type string }

func (PaymentSucceeded) webhookEvent()      {}
func (PaymentFailed) webhookEvent()         {}
func (PaymentMethodAttached) webhookEvent() {}
func (OtherEvent) webhookEvent()            {}

// ParseGatewayEvent converts a verified Stripe event into the internal
// union.  Unknown types map to OtherEvent, never an error: the webhook
// endpoint must acknowledge everything it can authenticate.
func ParseGatewayEvent(event stripe.Event) (WebhookEvent, error) {
	switch event.Type {
	case "payment_intent.succeeded":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("parse %s: %w", event.Type, err)
		}
		ev := PaymentSucceeded{
			IntentID:      pi.ID,
			AmountMinor:   pi.Amount,
			Currency:      string(pi.Currency),
			ReservationID: metaUint(pi.Metadata, "reservationId"),
			UserID:        metaUint(pi.Metadata, "userId"),
			SaveMethod:    pi.Metadata["savePaymentMethod"] == "true",
		}
		if pi.Customer != nil {
			ev.CustomerID = pi.Customer.ID
		}
		if pi.PaymentMethod != nil {
			ev.PaymentMethodID = pi.PaymentMethod.ID
		}
		return ev, nil

	case "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("parse %s: %w", event.Type, err)
		}
		ev := PaymentFailed{
			IntentID:      pi.ID,
			AmountMinor:   pi.Amount,
			Currency:      string(pi.Currency),
			ReservationID: metaUint(pi.Metadata, "reservationId"),
			Reason:        "payment failed",
		}
		if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
			ev.Reason = pi.LastPaymentError.Msg
		}
		return ev, nil

	case "payment_method.attached":
		var pm stripe.PaymentMethod
		if err := json.Unmarshal(event.Data.Raw, &pm); err != nil {
			return nil, fmt.Errorf("parse %s: %w", event.Type, err)
		}
		ev := PaymentMethodAttached{MethodID: pm.ID}
		if pm.Customer != nil {
			ev.CustomerID = pm.Customer.ID
		}
		if pm.Card != nil {
			ev.Brand = string(pm.Card.Brand)
			ev.Last4 = pm.Card.Last4
		}
		return ev, nil
	}
	return OtherEvent{Type: string(event.Type)}, nil
}

func metaUint(meta map[string]string, key string) uint64 {
	v, err := strconv.ParseUint(meta[key], 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// IntentResult is returned to the client to drive the browser-side
// confirmation flow.
type IntentResult struct {
	PaymentID    uint64 `json:"paymentId"`
	ClientSecret string `json:"clientSecret"`
}

// Billing coordinates the payment gateway, the payment ledger, and
// reservation state.  The webhook is the source of truth: intents are
// opened optimistically here, but reservations only confirm when the
// gateway says the money moved.
type Billing struct {
	gateway      Gateway
	payments     paymentStore
	users        userStore
	reservations reservationLinker
	rooms        roomLookup

	// publish pushes confirmation events to the broker.  Replaceable
	// in tests; failures are logged, never returned.
	publish func(ctx context.Context, ev queue.ReservationConfirmedEvent) error
}

func NewBilling(gateway Gateway, payments paymentStore, users userStore, reservations reservationLinker, rooms roomLookup) *Billing {
	return &Billing{
		gateway:      gateway,
		payments:     payments,
		users:        users,
		reservations: reservations,
		rooms:        rooms,
		publish:      queue.PublishReservationConfirmed,
	}
}

// EnsureCustomer returns the user with a gateway customer id, creating
// one on first use.
func (b *Billing) EnsureCustomer(ctx context.Context, userID uint64) (*model.User, error) {
	user, err := b.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.StripeCustomerID != "" {
		return user, nil
	}
	customerID, err := b.gateway.CreateCustomer(ctx, user.Email, user.FullName, user.ID)
	if err != nil {
		return nil, err
	}
	user.StripeCustomerID = customerID
	if err := b.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// CreateReservationIntent opens a charge for a reservation's total and
// records a PENDING ledger entry keyed by the gateway transaction id.
// Guests can only pay for their own reservations.
func (b *Billing) CreateReservationIntent(ctx context.Context, p model.Principal, reservationID uint64, saveMethod bool) (*IntentResult, error) {
	res, err := b.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if p.Role == model.RoleGuest && res.UserID != p.UserID {
		return nil, repository.ErrForbidden
	}
	amountMinor, err := utils.ToMinorUnits(res.TotalPrice)
	if err != nil {
		return nil, err
	}
	user, err := b.EnsureCustomer(ctx, res.UserID)
	if err != nil {
		return nil, err
	}

	intent, err := b.gateway.CreatePaymentIntent(ctx, IntentRequest{
		AmountMinor: amountMinor,
		Currency:    "usd",
		CustomerID:  user.StripeCustomerID,
		Description: fmt.Sprintf("Reservation #%d", res.ID),
		SaveMethod:  saveMethod,
		Metadata: map[string]string{
			"reservationId":     strconv.FormatUint(res.ID, 10),
			"userId":            strconv.FormatUint(res.UserID, 10),
			"savePaymentMethod": strconv.FormatBool(saveMethod),
		},
	})
	if err != nil {
		return nil, err
	}

	payment := &model.Payment{
		ReservationID: &res.ID,
		TransactionID: intent.ID,
		Amount:        res.TotalPrice,
		Currency:      "usd",
		Status:        model.PaymentPending,
	}
	if err := b.payments.Create(ctx, payment); err != nil {
		return nil, err
	}
	if res.Status != model.ReservationPendingPayment {
		if err := b.reservations.UpdateStatus(ctx, res.ID, model.ReservationPendingPayment); err != nil {
			return nil, err
		}
	}
	return &IntentResult{PaymentID: payment.ID, ClientSecret: intent.ClientSecret}, nil
}

// CreateSetupIntent opens a save-card flow for the caller.
func (b *Billing) CreateSetupIntent(ctx context.Context, p model.Principal) (*SetupIntent, error) {
	user, err := b.EnsureCustomer(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	return b.gateway.CreateSetupIntent(ctx, user.StripeCustomerID)
}

// HandleWebhook applies a verified gateway notification.  Processing
// is idempotent per transaction id: redelivered events converge on the
// same ledger and reservation state.  Side effects that cannot affect
// correctness (broker publish, card bookkeeping) are logged on failure
// and never bubble up, so the gateway always gets its acknowledgement.
func (b *Billing) HandleWebhook(ctx context.Context, ev WebhookEvent) error {
	switch e := ev.(type) {
	case PaymentSucceeded:
		return b.applySucceeded(ctx, e)
	case PaymentFailed:
		return b.applyFailed(ctx, e)
	case PaymentMethodAttached:
		return b.applyAttached(ctx, e)
	case OtherEvent:
		return nil
	}
	return nil
}

func (b *Billing) applySucceeded(ctx context.Context, e PaymentSucceeded) error {
	payment, err := b.payments.GetByTransactionID(ctx, e.IntentID)
	switch {
	case errors.Is(err, repository.ErrPaymentNotFound):
		payment = &model.Payment{
			TransactionID: e.IntentID,
			Amount:        utils.FromMinorUnits(e.AmountMinor),
			Currency:      e.Currency,
		}
		if e.ReservationID != 0 {
			id := e.ReservationID
			payment.ReservationID = &id
		}
		payment.Status = model.PaymentSucceeded
		payment.PaymentMethodID = e.PaymentMethodID
		if err := b.payments.Create(ctx, payment); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		if payment.Status == model.PaymentSucceeded {
			// Redelivery.  The ledger is settled, but the first delivery
			// may have failed between the ledger write and the
			// reservation update, so converge the reservation before
			// acknowledging.
			return b.confirmReservation(ctx, payment)
		}
		payment.Status = model.PaymentSucceeded
		payment.Amount = utils.FromMinorUnits(e.AmountMinor)
		payment.Currency = e.Currency
		payment.PaymentMethodID = e.PaymentMethodID
		if err := b.payments.Update(ctx, payment); err != nil {
			return err
		}
	}

	if err := b.confirmReservation(ctx, payment); err != nil {
		return err
	}

	if e.SaveMethod && e.PaymentMethodID != "" {
		if err := b.saveMethodForUser(ctx, e.UserID, e.CustomerID, e.PaymentMethodID, "", ""); err != nil {
			log.Printf("billing: save payment method %s: %v", e.PaymentMethodID, err)
		}
	}
	return nil
}

// confirmReservation moves the payment's linked reservation to
// CONFIRMED along the only legal success transitions. PENDING_PAYMENT
// confirms and is announced; an already-confirmed reservation has its
// ledger link re-asserted. CANCELLED is terminal: the dates were
// already released, so the money is recorded for refund rather than
// resurrecting a booking that holds no occupancy rows.
func (b *Billing) confirmReservation(ctx context.Context, payment *model.Payment) error {
	if payment.ReservationID == nil {
		return nil
	}
	res, err := b.reservations.GetByID(ctx, *payment.ReservationID)
	if err != nil {
		return err
	}
	switch res.Status {
	case model.ReservationPendingPayment:
		if err := b.reservations.SetStatusAndPayment(ctx, res.ID,
			model.ReservationConfirmed, payment.ID); err != nil {
			return err
		}
		b.announceConfirmed(ctx, res.ID, payment.Currency)
	case model.ReservationConfirmed:
		if res.PaymentID == nil || *res.PaymentID != payment.ID {
			return b.reservations.SetStatusAndPayment(ctx, res.ID,
				model.ReservationConfirmed, payment.ID)
		}
	case model.ReservationCancelled:
		log.Printf("billing: payment %s succeeded for cancelled reservation %d; refund required",
			payment.TransactionID, res.ID)
	default:
		log.Printf("billing: payment %s succeeded for reservation %d in status %s; status unchanged",
			payment.TransactionID, res.ID, res.Status)
	}
	return nil
}

func (b *Billing) applyFailed(ctx context.Context, e PaymentFailed) error {
	payment, err := b.payments.GetByTransactionID(ctx, e.IntentID)
	switch {
	case errors.Is(err, repository.ErrPaymentNotFound):
		payment = &model.Payment{
			TransactionID: e.IntentID,
			Amount:        utils.FromMinorUnits(e.AmountMinor),
			Currency:      e.Currency,
			Status:        model.PaymentFailed,
		}
		if e.ReservationID != 0 {
			id := e.ReservationID
			payment.ReservationID = &id
		}
		if err := b.payments.Create(ctx, payment); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		if payment.Status == model.PaymentSucceeded {
			return nil // a success already landed; a late failure loses
		}
		payment.Status = model.PaymentFailed
		if err := b.payments.Update(ctx, payment); err != nil {
			return err
		}
	}

	if payment.ReservationID != nil {
		res, err := b.reservations.GetByID(ctx, *payment.ReservationID)
		if err != nil {
			return err
		}
		// Only live reservations go back to awaiting payment; a
		// cancelled one stays cancelled.
		if res.Status == model.ReservationConfirmed || res.Status == model.ReservationPendingPayment {
			if err := b.reservations.UpdateStatus(ctx, res.ID,
				model.ReservationPendingPayment); err != nil {
				return err
			}
		}
	}
	log.Printf("billing: payment failed for %s: %s", e.IntentID, e.Reason)
	return nil
}

func (b *Billing) applyAttached(ctx context.Context, e PaymentMethodAttached) error {
	if e.CustomerID == "" {
		return nil
	}
	user, err := b.users.GetByStripeCustomerID(ctx, e.CustomerID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil // customer created outside this system
		}
		return err
	}
	return b.appendMethod(ctx, user, e.MethodID, e.Brand, e.Last4)
}

// announceConfirmed publishes a confirmation event.  Best effort: a
// broker outage is logged and the webhook still succeeds.
func (b *Billing) announceConfirmed(ctx context.Context, reservationID uint64, currency string) {
	res, err := b.reservations.GetByID(ctx, reservationID)
	if err != nil {
		log.Printf("billing: announce reservation %d: %v", reservationID, err)
		return
	}
	roomNumber := 0
	if room, err := b.rooms.GetByID(ctx, res.RoomID); err == nil {
		roomNumber = room.RoomNumber
	}
	if err := b.publish(ctx, queue.ReservationConfirmedEvent{
		ReservationID: res.ID,
		UserID:        res.UserID,
		RoomID:        res.RoomID,
		RoomNumber:    roomNumber,
		CheckIn:       res.CheckIn.String(),
		CheckOut:      res.CheckOut.String(),
		Nights:        res.Nights(),
		NumGuests:     res.NumGuests,
		TotalPrice:    res.TotalPrice,
		Currency:      currency,
		ConfirmedAt:   time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		log.Printf("billing: publish confirmation for reservation %d: %v", res.ID, err)
	}
}

// saveMethodForUser resolves the owning user (by id, falling back to
// the gateway customer id) and appends the card if it is new.
func (b *Billing) saveMethodForUser(ctx context.Context, userID uint64, customerID, methodID, brand, last4 string) error {
	var (
		user *model.User
		err  error
	)
	if userID != 0 {
		user, err = b.users.GetByID(ctx, userID)
	} else if customerID != "" {
		user, err = b.users.GetByStripeCustomerID(ctx, customerID)
	} else {
		return nil
	}
	if err != nil {
		return err
	}
	return b.appendMethod(ctx, user, methodID, brand, last4)
}

// appendMethod adds a card to the user's saved list, filling in display
// data from the gateway when the event did not carry it.  Appending a
// card that is already saved is a no-op.
func (b *Billing) appendMethod(ctx context.Context, user *model.User, methodID, brand, last4 string) error {
	if user.HasSavedMethod(methodID) {
		return nil
	}
	if brand == "" || last4 == "" {
		if info, err := b.gateway.GetPaymentMethod(ctx, methodID); err == nil {
			brand, last4 = info.Brand, info.Last4
		} else {
			log.Printf("billing: lookup payment method %s: %v", methodID, err)
		}
	}
	user.SavedPaymentMethods = append(user.SavedPaymentMethods, model.SavedPaymentMethod{
		StripePaymentMethodID: methodID,
		Brand:                 brand,
		Last4:                 last4,
	})
	return b.users.Update(ctx, user)
}

// SyncPaymentMethods replaces the user's saved card list with the
// gateway's view of it and returns the result.
func (b *Billing) SyncPaymentMethods(ctx context.Context, p model.Principal) ([]model.SavedPaymentMethod, error) {
	user, err := b.users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if user.StripeCustomerID == "" {
		return []model.SavedPaymentMethod{}, nil
	}
	methods, err := b.gateway.ListPaymentMethods(ctx, user.StripeCustomerID)
	if err != nil {
		return nil, err
	}
	saved := make([]model.SavedPaymentMethod, 0, len(methods))
	for _, m := range methods {
		saved = append(saved, model.SavedPaymentMethod{
			StripePaymentMethodID: m.ID,
			Brand:                 m.Brand,
			Last4:                 m.Last4,
		})
	}
	user.SavedPaymentMethods = saved
	if err := b.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return saved, nil
}

// RemovePaymentMethod detaches a card at the gateway and drops it from
// the user's saved list.  A card the gateway has already detached is
// still removed locally; any other gateway failure aborts before the
// user record changes, so the local list never disagrees with a card
// that is still attached.
func (b *Billing) RemovePaymentMethod(ctx context.Context, p model.Principal, methodID string) error {
	user, err := b.users.GetByID(ctx, p.UserID)
	if err != nil {
		return err
	}
	if err := b.gateway.DetachPaymentMethod(ctx, methodID); err != nil {
		if !errors.Is(err, ErrMethodDetached) {
			return err
		}
		log.Printf("billing: method %s already detached at the gateway", methodID)
	}
	kept := user.SavedPaymentMethods[:0]
	for _, m := range user.SavedPaymentMethods {
		if m.StripePaymentMethodID != methodID {
			kept = append(kept, m)
		}
	}
	user.SavedPaymentMethods = kept
	return b.users.Update(ctx, user)
}
