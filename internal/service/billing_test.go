package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"

	"github.com/iliyamo/hotel-room-booking/internal/model"
	"github.com/iliyamo/hotel-room-booking/internal/queue"
	"github.com/iliyamo/hotel-room-booking/internal/repository"
)

type fakeGateway struct {
	lastIntent    IntentRequest
	intentCalls   int
	customerCalls int
	methods       map[string]MethodInfo
	listed        []MethodInfo
	detached      []string
	detachErr     error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{methods: map[string]MethodInfo{}}
}

func (g *fakeGateway) CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	g.intentCalls++
	g.lastIntent = req
	return &Intent{ID: "pi_test_1", ClientSecret: "pi_test_1_secret", Status: "requires_payment_method"}, nil
}

func (g *fakeGateway) CreateSetupIntent(ctx context.Context, customerID string) (*SetupIntent, error) {
	return &SetupIntent{ID: "seti_test_1", ClientSecret: "seti_test_1_secret"}, nil
}

func (g *fakeGateway) CreateCustomer(ctx context.Context, email, name string, userID uint64) (string, error) {
	g.customerCalls++
	return "cus_test_1", nil
}

func (g *fakeGateway) GetPaymentMethod(ctx context.Context, methodID string) (*MethodInfo, error) {
	if m, ok := g.methods[methodID]; ok {
		return &m, nil
	}
	return &MethodInfo{ID: methodID, Brand: "visa", Last4: "4242"}, nil
}

func (g *fakeGateway) ListPaymentMethods(ctx context.Context, customerID string) ([]MethodInfo, error) {
	return g.listed, nil
}

func (g *fakeGateway) DetachPaymentMethod(ctx context.Context, methodID string) error {
	if g.detachErr != nil {
		return g.detachErr
	}
	g.detached = append(g.detached, methodID)
	return nil
}

type fakePaymentStore struct {
	byTxn   map[string]*model.Payment
	nextID  uint64
	updates int
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{byTxn: map[string]*model.Payment{}, nextID: 1}
}

func (f *fakePaymentStore) Create(ctx context.Context, p *model.Payment) error {
	if _, ok := f.byTxn[p.TransactionID]; ok {
		return repository.ErrConflict
	}
	p.ID = f.nextID
	f.nextID++
	f.byTxn[p.TransactionID] = p
	return nil
}

func (f *fakePaymentStore) Update(ctx context.Context, p *model.Payment) error {
	f.updates++
	f.byTxn[p.TransactionID] = p
	return nil
}

func (f *fakePaymentStore) GetByID(ctx context.Context, id uint64) (*model.Payment, error) {
	for _, p := range f.byTxn {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, repository.ErrPaymentNotFound
}

func (f *fakePaymentStore) GetByTransactionID(ctx context.Context, txnID string) (*model.Payment, error) {
	p, ok := f.byTxn[txnID]
	if !ok {
		return nil, repository.ErrPaymentNotFound
	}
	return p, nil
}

func (f *fakePaymentStore) List(ctx context.Context) ([]*model.Payment, error) {
	var out []*model.Payment
	for _, p := range f.byTxn {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakePaymentStore) ListByReservation(ctx context.Context, reservationID uint64) ([]*model.Payment, error) {
	var out []*model.Payment
	for _, p := range f.byTxn {
		if p.ReservationID != nil && *p.ReservationID == reservationID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePaymentStore) Delete(ctx context.Context, id uint64) error { return nil }

type fakeUserStore struct {
	users map[uint64]*model.User
}

func (f *fakeUserStore) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserStore) GetByStripeCustomerID(ctx context.Context, customerID string) (*model.User, error) {
	for _, u := range f.users {
		if u.StripeCustomerID == customerID {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUserStore) Update(ctx context.Context, u *model.User) error {
	f.users[u.ID] = u
	return nil
}

type fakeLinker struct {
	reservations map[uint64]*model.Reservation
	statusSets   []model.ReservationStatus
	lastPayment  uint64
}

func (f *fakeLinker) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	res, ok := f.reservations[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	return res, nil
}

func (f *fakeLinker) UpdateStatus(ctx context.Context, id uint64, status model.ReservationStatus) error {
	f.reservations[id].Status = status
	f.statusSets = append(f.statusSets, status)
	return nil
}

func (f *fakeLinker) SetStatusAndPayment(ctx context.Context, id uint64, status model.ReservationStatus, paymentID uint64) error {
	pid := paymentID
	f.reservations[id].Status = status
	f.reservations[id].PaymentID = &pid
	f.statusSets = append(f.statusSets, status)
	f.lastPayment = paymentID
	return nil
}

type fakeRoomLookup struct{}

func (fakeRoomLookup) GetByID(ctx context.Context, id uint64) (*model.Room, error) {
	return &model.Room{ID: id, RoomNumber: 101}, nil
}

type billingFixture struct {
	gateway   *fakeGateway
	payments  *fakePaymentStore
	users     *fakeUserStore
	linker    *fakeLinker
	published []queue.ReservationConfirmedEvent
	billing   *Billing
}

func newBillingFixture() *billingFixture {
	f := &billingFixture{
		gateway:  newFakeGateway(),
		payments: newFakePaymentStore(),
		users: &fakeUserStore{users: map[uint64]*model.User{
			7: {ID: 7, Email: "guest@example.com", FullName: "Guest Seven"},
		}},
		linker: &fakeLinker{reservations: map[uint64]*model.Reservation{
			42: {
				ID: 42, UserID: 7, RoomID: 1,
				CheckIn:    model.NewDate(2026, 9, 10),
				CheckOut:   model.NewDate(2026, 9, 13),
				NumGuests:  2,
				TotalPrice: 123.45,
				Status:     model.ReservationPendingPayment,
			},
		}},
	}
	f.billing = NewBilling(f.gateway, f.payments, f.users, f.linker, fakeRoomLookup{})
	f.billing.publish = func(ctx context.Context, ev queue.ReservationConfirmedEvent) error {
		f.published = append(f.published, ev)
		return nil
	}
	return f
}

func TestCreateReservationIntent(t *testing.T) {
	f := newBillingFixture()

	result, err := f.billing.CreateReservationIntent(context.Background(),
		model.Principal{UserID: 7, Role: model.RoleGuest}, 42, true)
	require.NoError(t, err)
	assert.Equal(t, "pi_test_1_secret", result.ClientSecret)

	// 123.45 dollars goes to the gateway as 12345 cents
	assert.Equal(t, int64(12345), f.gateway.lastIntent.AmountMinor)
	assert.Equal(t, "usd", f.gateway.lastIntent.Currency)
	assert.Equal(t, "cus_test_1", f.gateway.lastIntent.CustomerID)
	assert.True(t, f.gateway.lastIntent.SaveMethod)
	assert.Equal(t, "42", f.gateway.lastIntent.Metadata["reservationId"])
	assert.Equal(t, "7", f.gateway.lastIntent.Metadata["userId"])
	assert.Equal(t, "true", f.gateway.lastIntent.Metadata["savePaymentMethod"])

	// a PENDING ledger row keyed by the transaction id
	p, err := f.payments.GetByTransactionID(context.Background(), "pi_test_1")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPending, p.Status)
	assert.Equal(t, 123.45, p.Amount)
	require.NotNil(t, p.ReservationID)
	assert.Equal(t, uint64(42), *p.ReservationID)

	// first use created a gateway customer and stored the id
	assert.Equal(t, 1, f.gateway.customerCalls)
	assert.Equal(t, "cus_test_1", f.users.users[7].StripeCustomerID)
}

func TestCreateReservationIntentForbiddenForOtherGuest(t *testing.T) {
	f := newBillingFixture()

	_, err := f.billing.CreateReservationIntent(context.Background(),
		model.Principal{UserID: 8, Role: model.RoleGuest}, 42, false)
	assert.ErrorIs(t, err, repository.ErrForbidden)
	assert.Zero(t, f.gateway.intentCalls)

	// staff may open intents for any reservation
	_, err = f.billing.CreateReservationIntent(context.Background(),
		model.Principal{UserID: 1, Role: model.RoleAdmin}, 42, false)
	assert.NoError(t, err)
}

func TestEnsureCustomerIsIdempotent(t *testing.T) {
	f := newBillingFixture()

	_, err := f.billing.EnsureCustomer(context.Background(), 7)
	require.NoError(t, err)
	_, err = f.billing.EnsureCustomer(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, f.gateway.customerCalls)
}

func TestWebhookSucceededConfirmsReservation(t *testing.T) {
	f := newBillingFixture()
	resID := uint64(42)
	f.payments.byTxn["pi_test_1"] = &model.Payment{
		ID: 5, ReservationID: &resID, TransactionID: "pi_test_1",
		Amount: 123.45, Currency: "usd", Status: model.PaymentPending,
	}

	err := f.billing.HandleWebhook(context.Background(), PaymentSucceeded{
		IntentID:        "pi_test_1",
		AmountMinor:     12345,
		Currency:        "usd",
		ReservationID:   42,
		PaymentMethodID: "pm_1",
	})
	require.NoError(t, err)

	p := f.payments.byTxn["pi_test_1"]
	assert.Equal(t, model.PaymentSucceeded, p.Status)
	assert.Equal(t, 123.45, p.Amount)
	assert.Equal(t, model.ReservationConfirmed, f.linker.reservations[42].Status)
	assert.Equal(t, uint64(5), f.linker.lastPayment)

	require.Len(t, f.published, 1)
	ev := f.published[0]
	assert.Equal(t, uint64(42), ev.ReservationID)
	assert.Equal(t, 101, ev.RoomNumber)
	assert.Equal(t, "2026-09-10", ev.CheckIn)
	assert.Equal(t, 3, ev.Nights)
}

func TestWebhookSucceededRedeliveryIsNoOp(t *testing.T) {
	f := newBillingFixture()
	resID := uint64(42)
	paymentID := uint64(5)
	f.payments.byTxn["pi_test_1"] = &model.Payment{
		ID: 5, ReservationID: &resID, TransactionID: "pi_test_1",
		Amount: 123.45, Currency: "usd", Status: model.PaymentSucceeded,
	}
	f.linker.reservations[42].Status = model.ReservationConfirmed
	f.linker.reservations[42].PaymentID = &paymentID

	err := f.billing.HandleWebhook(context.Background(), PaymentSucceeded{
		IntentID: "pi_test_1", AmountMinor: 12345, Currency: "usd", ReservationID: 42,
	})
	require.NoError(t, err)
	assert.Zero(t, f.payments.updates)
	assert.Empty(t, f.linker.statusSets)
	assert.Empty(t, f.published)
}

func TestWebhookSucceededRedeliveryConfirmsStuckReservation(t *testing.T) {
	// First delivery settled the ledger but died before the reservation
	// update; the redelivery must finish the job, not short-circuit.
	f := newBillingFixture()
	resID := uint64(42)
	f.payments.byTxn["pi_test_1"] = &model.Payment{
		ID: 5, ReservationID: &resID, TransactionID: "pi_test_1",
		Amount: 123.45, Currency: "usd", Status: model.PaymentSucceeded,
	}

	err := f.billing.HandleWebhook(context.Background(), PaymentSucceeded{
		IntentID: "pi_test_1", AmountMinor: 12345, Currency: "usd", ReservationID: 42,
	})
	require.NoError(t, err)
	assert.Zero(t, f.payments.updates) // ledger already settled
	assert.Equal(t, model.ReservationConfirmed, f.linker.reservations[42].Status)
	assert.Equal(t, uint64(5), f.linker.lastPayment)
	assert.Len(t, f.published, 1)
}

func TestWebhookSucceededDoesNotResurrectCancelledReservation(t *testing.T) {
	// The hold sweeper releases a stale hold, then the success webhook
	// arrives late: the money is recorded, but a cancelled reservation
	// stays cancelled because its dates are already free for others.
	f := newBillingFixture()
	resID := uint64(42)
	f.payments.byTxn["pi_test_1"] = &model.Payment{
		ID: 5, ReservationID: &resID, TransactionID: "pi_test_1",
		Amount: 123.45, Currency: "usd", Status: model.PaymentPending,
	}
	f.linker.reservations[42].Status = model.ReservationCancelled

	err := f.billing.HandleWebhook(context.Background(), PaymentSucceeded{
		IntentID: "pi_test_1", AmountMinor: 12345, Currency: "usd", ReservationID: 42,
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentSucceeded, f.payments.byTxn["pi_test_1"].Status)
	assert.Equal(t, model.ReservationCancelled, f.linker.reservations[42].Status)
	assert.Empty(t, f.linker.statusSets)
	assert.Empty(t, f.published)
}

func TestWebhookSucceededCreatesMissingLedgerRow(t *testing.T) {
	f := newBillingFixture()

	err := f.billing.HandleWebhook(context.Background(), PaymentSucceeded{
		IntentID:      "pi_unseen",
		AmountMinor:   9900,
		Currency:      "usd",
		ReservationID: 42,
	})
	require.NoError(t, err)

	p, err := f.payments.GetByTransactionID(context.Background(), "pi_unseen")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentSucceeded, p.Status)
	assert.Equal(t, 99.0, p.Amount)
	assert.Equal(t, model.ReservationConfirmed, f.linker.reservations[42].Status)
}

func TestWebhookFailedReleasesReservationToPending(t *testing.T) {
	f := newBillingFixture()
	resID := uint64(42)
	f.payments.byTxn["pi_test_1"] = &model.Payment{
		ID: 5, ReservationID: &resID, TransactionID: "pi_test_1",
		Amount: 123.45, Currency: "usd", Status: model.PaymentPending,
	}
	f.linker.reservations[42].Status = model.ReservationConfirmed

	err := f.billing.HandleWebhook(context.Background(), PaymentFailed{
		IntentID: "pi_test_1", AmountMinor: 12345, Currency: "usd",
		ReservationID: 42, Reason: "card declined",
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentFailed, f.payments.byTxn["pi_test_1"].Status)
	assert.Equal(t, model.ReservationPendingPayment, f.linker.reservations[42].Status)
}

func TestWebhookLateFailureAfterSuccessLoses(t *testing.T) {
	f := newBillingFixture()
	resID := uint64(42)
	f.payments.byTxn["pi_test_1"] = &model.Payment{
		ID: 5, ReservationID: &resID, TransactionID: "pi_test_1",
		Amount: 123.45, Currency: "usd", Status: model.PaymentSucceeded,
	}
	f.linker.reservations[42].Status = model.ReservationConfirmed

	err := f.billing.HandleWebhook(context.Background(), PaymentFailed{
		IntentID: "pi_test_1", ReservationID: 42, Reason: "late decline",
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentSucceeded, f.payments.byTxn["pi_test_1"].Status)
	assert.Equal(t, model.ReservationConfirmed, f.linker.reservations[42].Status)
}

func TestWebhookFailedLeavesCancelledReservationAlone(t *testing.T) {
	f := newBillingFixture()
	resID := uint64(42)
	f.payments.byTxn["pi_test_1"] = &model.Payment{
		ID: 5, ReservationID: &resID, TransactionID: "pi_test_1",
		Amount: 123.45, Currency: "usd", Status: model.PaymentPending,
	}
	f.linker.reservations[42].Status = model.ReservationCancelled

	err := f.billing.HandleWebhook(context.Background(), PaymentFailed{
		IntentID: "pi_test_1", ReservationID: 42, Reason: "card declined",
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentFailed, f.payments.byTxn["pi_test_1"].Status)
	assert.Equal(t, model.ReservationCancelled, f.linker.reservations[42].Status)
}

func TestWebhookSucceededSavesMethodWhenRequested(t *testing.T) {
	f := newBillingFixture()

	err := f.billing.HandleWebhook(context.Background(), PaymentSucceeded{
		IntentID:        "pi_test_1",
		AmountMinor:     12345,
		Currency:        "usd",
		ReservationID:   42,
		UserID:          7,
		PaymentMethodID: "pm_1",
		SaveMethod:      true,
	})
	require.NoError(t, err)

	saved := f.users.users[7].SavedPaymentMethods
	require.Len(t, saved, 1)
	assert.Equal(t, "pm_1", saved[0].StripePaymentMethodID)
	assert.Equal(t, "visa", saved[0].Brand)
	assert.Equal(t, "4242", saved[0].Last4)
}

func TestWebhookAttachedDeduplicates(t *testing.T) {
	f := newBillingFixture()
	f.users.users[7].StripeCustomerID = "cus_test_1"
	f.users.users[7].SavedPaymentMethods = []model.SavedPaymentMethod{
		{StripePaymentMethodID: "pm_1", Brand: "visa", Last4: "4242"},
	}

	err := f.billing.HandleWebhook(context.Background(), PaymentMethodAttached{
		MethodID: "pm_1", CustomerID: "cus_test_1", Brand: "visa", Last4: "4242",
	})
	require.NoError(t, err)
	assert.Len(t, f.users.users[7].SavedPaymentMethods, 1)

	err = f.billing.HandleWebhook(context.Background(), PaymentMethodAttached{
		MethodID: "pm_2", CustomerID: "cus_test_1", Brand: "mastercard", Last4: "4444",
	})
	require.NoError(t, err)
	assert.Len(t, f.users.users[7].SavedPaymentMethods, 2)
}

func TestWebhookAttachedUnknownCustomerIsIgnored(t *testing.T) {
	f := newBillingFixture()

	err := f.billing.HandleWebhook(context.Background(), PaymentMethodAttached{
		MethodID: "pm_1", CustomerID: "cus_elsewhere",
	})
	assert.NoError(t, err)
}

func TestWebhookOtherEventIsAcknowledged(t *testing.T) {
	f := newBillingFixture()
	assert.NoError(t, f.billing.HandleWebhook(context.Background(), OtherEvent{Type: "charge.refunded"}))
	assert.Empty(t, f.linker.statusSets)
}

func TestRemovePaymentMethodDetachesAndDrops(t *testing.T) {
	f := newBillingFixture()
	f.users.users[7].SavedPaymentMethods = []model.SavedPaymentMethod{
		{StripePaymentMethodID: "pm_1"}, {StripePaymentMethodID: "pm_2"},
	}

	err := f.billing.RemovePaymentMethod(context.Background(),
		model.Principal{UserID: 7, Role: model.RoleGuest}, "pm_1")
	require.NoError(t, err)
	require.Len(t, f.users.users[7].SavedPaymentMethods, 1)
	assert.Equal(t, "pm_2", f.users.users[7].SavedPaymentMethods[0].StripePaymentMethodID)
	assert.Equal(t, []string{"pm_1"}, f.gateway.detached)
}

func TestRemovePaymentMethodPropagatesGatewayError(t *testing.T) {
	f := newBillingFixture()
	f.users.users[7].SavedPaymentMethods = []model.SavedPaymentMethod{
		{StripePaymentMethodID: "pm_1"}, {StripePaymentMethodID: "pm_2"},
	}
	f.gateway.detachErr = errors.New("stripe: rate limited")

	err := f.billing.RemovePaymentMethod(context.Background(),
		model.Principal{UserID: 7, Role: model.RoleGuest}, "pm_1")
	require.Error(t, err)
	// The card stays on file until the gateway confirms the detach.
	assert.Len(t, f.users.users[7].SavedPaymentMethods, 2)
	assert.Empty(t, f.gateway.detached)
}

func TestRemovePaymentMethodToleratesAlreadyDetached(t *testing.T) {
	f := newBillingFixture()
	f.users.users[7].SavedPaymentMethods = []model.SavedPaymentMethod{
		{StripePaymentMethodID: "pm_1"}, {StripePaymentMethodID: "pm_2"},
	}
	f.gateway.detachErr = ErrMethodDetached

	err := f.billing.RemovePaymentMethod(context.Background(),
		model.Principal{UserID: 7, Role: model.RoleGuest}, "pm_1")
	require.NoError(t, err)
	require.Len(t, f.users.users[7].SavedPaymentMethods, 1)
	assert.Equal(t, "pm_2", f.users.users[7].SavedPaymentMethods[0].StripePaymentMethodID)
}

func TestSyncPaymentMethodsReplacesList(t *testing.T) {
	f := newBillingFixture()
	f.users.users[7].StripeCustomerID = "cus_test_1"
	f.users.users[7].SavedPaymentMethods = []model.SavedPaymentMethod{
		{StripePaymentMethodID: "pm_stale"},
	}
	f.gateway.listed = []MethodInfo{{ID: "pm_live", Brand: "visa", Last4: "4242"}}

	got, err := f.billing.SyncPaymentMethods(context.Background(),
		model.Principal{UserID: 7, Role: model.RoleGuest})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "pm_live", got[0].StripePaymentMethodID)
	assert.Equal(t, got, f.users.users[7].SavedPaymentMethods)
}

func TestSyncPaymentMethodsWithoutCustomerIsEmpty(t *testing.T) {
	f := newBillingFixture()
	got, err := f.billing.SyncPaymentMethods(context.Background(),
		model.Principal{UserID: 7, Role: model.RoleGuest})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, f.gateway.customerCalls)
}

func TestParseGatewayEventSucceeded(t *testing.T) {
	raw := []byte(`{
		"id": "pi_raw_1",
		"amount": 12345,
		"currency": "usd",
		"customer": {"id": "cus_raw_1"},
		"payment_method": {"id": "pm_raw_1"},
		"metadata": {"reservationId": "42", "userId": "7", "savePaymentMethod": "true"}
	}`)
	event := stripe.Event{
		Type: "payment_intent.succeeded",
		Data: &stripe.EventData{Raw: json.RawMessage(raw)},
	}

	parsed, err := ParseGatewayEvent(event)
	require.NoError(t, err)
	ev, ok := parsed.(PaymentSucceeded)
	require.True(t, ok)
	assert.Equal(t, "pi_raw_1", ev.IntentID)
	assert.Equal(t, int64(12345), ev.AmountMinor)
	assert.Equal(t, uint64(42), ev.ReservationID)
	assert.Equal(t, uint64(7), ev.UserID)
	assert.Equal(t, "cus_raw_1", ev.CustomerID)
	assert.Equal(t, "pm_raw_1", ev.PaymentMethodID)
	assert.True(t, ev.SaveMethod)
}

func TestParseGatewayEventUnknownTypeIsOther(t *testing.T) {
	event := stripe.Event{
		Type: "customer.subscription.updated",
		Data: &stripe.EventData{Raw: json.RawMessage(`{}`)},
	}
	parsed, err := ParseGatewayEvent(event)
	require.NoError(t, err)
	other, ok := parsed.(OtherEvent)
	require.True(t, ok)
	assert.Equal(t, "customer.subscription.updated", other.Type)
}

func TestParseGatewayEventMalformedPayload(t *testing.T) {
	event := stripe.Event{
		Type: "payment_intent.succeeded",
		Data: &stripe.EventData{Raw: json.RawMessage(`{not json`)},
	}
	_, err := ParseGatewayEvent(event)
	assert.Error(t, err)
}
