package payments

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tecbunny/tecbunny-backend/internal/settings"
	"github.com/tecbunny/tecbunny-backend/pkg/db/models"
	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	pkgerrors "github.com/tecbunny/tecbunny-backend/pkg/errors"
	"github.com/tecbunny/tecbunny-backend/pkg/logger"
	"github.com/tecbunny/tecbunny-backend/pkg/outbox"
	"github.com/tecbunny/tecbunny-backend/pkg/outbox/payloads"
	"github.com/tecbunny/tecbunny-backend/pkg/paytm"
	"github.com/tecbunny/tecbunny-backend/pkg/phonepe"
	"github.com/tecbunny/tecbunny-backend/pkg/razorpay"
)

type stubPaymentsRepo struct {
	txns       map[uuid.UUID]*models.PaymentTransaction
	updates    map[uuid.UUID][]map[string]any
	unresolved []models.PaymentTransaction
	hasSuccess bool
}

func newStubPaymentsRepo() *stubPaymentsRepo {
	return &stubPaymentsRepo{
		txns:    make(map[uuid.UUID]*models.PaymentTransaction),
		updates: make(map[uuid.UUID][]map[string]any),
	}
}

func (s *stubPaymentsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubPaymentsRepo) Create(ctx context.Context, txn *models.PaymentTransaction) (*models.PaymentTransaction, error) {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	s.txns[txn.ID] = txn
	return txn, nil
}

func (s *stubPaymentsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentTransaction, error) {
	txn, ok := s.txns[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return txn, nil
}

func (s *stubPaymentsRepo) FindByMerchantTxnID(ctx context.Context, merchantTxnID string) (*models.PaymentTransaction, error) {
	for _, txn := range s.txns {
		if txn.MerchantTxnID == merchantTxnID {
			return txn, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubPaymentsRepo) FindByProviderOrderID(ctx context.Context, providerOrderID string) (*models.PaymentTransaction, error) {
	for _, txn := range s.txns {
		if txn.ProviderOrderID != nil && *txn.ProviderOrderID == providerOrderID {
			return txn, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubPaymentsRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentTransaction, error) {
	out := make([]models.PaymentTransaction, 0)
	for _, txn := range s.txns {
		if txn.OrderID == orderID {
			out = append(out, *txn)
		}
	}
	return out, nil
}

func (s *stubPaymentsRepo) ListUnresolvedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.PaymentTransaction, error) {
	return s.unresolved, nil
}

func (s *stubPaymentsRepo) HasSuccessfulTxn(ctx context.Context, orderID uuid.UUID) (bool, error) {
	return s.hasSuccess, nil
}

func (s *stubPaymentsRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	txn, ok := s.txns[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.updates[id] = append(s.updates[id], updates)
	if v, ok := updates["status"].(enums.PaymentTxnStatus); ok {
		txn.Status = v
	}
	if v, ok := updates["provider_order_id"].(string); ok {
		txn.ProviderOrderID = &v
	}
	if v, ok := updates["provider_txn_id"].(string); ok {
		txn.ProviderTxnID = &v
	}
	if v, ok := updates["failure_reason"].(string); ok {
		txn.FailureReason = &v
	}
	if v, ok := updates["completed_at"].(time.Time); ok {
		txn.CompletedAt = &v
	}
	if v, ok := updates["raw_payload"].(json.RawMessage); ok {
		txn.RawPayload = v
	}
	return nil
}

type orderMove struct {
	orderID uuid.UUID
	target  enums.OrderStatus
}

type stubOrderGateway struct {
	orders   map[uuid.UUID]*models.Order
	applied  []orderMove
	applyErr error
}

func (s *stubOrderGateway) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *stubOrderGateway) ApplyStatus(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, target enums.OrderStatus, actor *outbox.ActorRef) (*models.Order, error) {
	if s.applyErr != nil {
		return nil, s.applyErr
	}
	order, ok := s.orders[orderID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	s.applied = append(s.applied, orderMove{orderID: orderID, target: target})
	order.Status = target
	return order, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubSettingsSource struct {
	configs map[enums.PaymentProvider]*settings.GatewayConfig
}

func (s *stubSettingsSource) GatewayConfig(ctx context.Context, provider enums.PaymentProvider) (*settings.GatewayConfig, error) {
	cfg, err := s.GatewayCredentials(ctx, provider)
	if err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway is disabled")
	}
	return cfg, nil
}

func (s *stubSettingsSource) GatewayCredentials(ctx context.Context, provider enums.PaymentProvider) (*settings.GatewayConfig, error) {
	cfg, ok := s.configs[provider]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway is not configured")
	}
	return cfg, nil
}

type fakePhonePe struct {
	payResult    *phonepe.PayResult
	payErr       error
	lastPay      phonepe.PayRequest
	statusResult *phonepe.StatusResult
	statusErr    error
}

func (f *fakePhonePe) Pay(ctx context.Context, req phonepe.PayRequest) (*phonepe.PayResult, error) {
	f.lastPay = req
	if f.payErr != nil {
		return nil, f.payErr
	}
	return f.payResult, nil
}

func (f *fakePhonePe) Status(ctx context.Context, merchantTxnID string) (*phonepe.StatusResult, error) {
	return f.statusResult, f.statusErr
}

type fakeRazorpay struct {
	keyID     string
	order     *razorpay.Order
	createErr error
	payments  []razorpay.Payment
	verifyOK  bool
}

func (f *fakeRazorpay) KeyID() string { return f.keyID }

func (f *fakeRazorpay) CreateOrder(ctx context.Context, req razorpay.OrderRequest) (*razorpay.Order, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.order, nil
}

func (f *fakeRazorpay) FetchOrderPayments(ctx context.Context, orderID string) ([]razorpay.Payment, error) {
	return f.payments, nil
}

func (f *fakeRazorpay) VerifyWebhookSignature(body []byte, signature string) bool {
	return f.verifyOK
}

type fakePaytm struct {
	initResult *paytm.InitiateResult
	initErr    error
	status     *paytm.StatusResult
}

func (f *fakePaytm) InitiateTransaction(ctx context.Context, req paytm.InitiateRequest) (*paytm.InitiateResult, error) {
	if f.initErr != nil {
		return nil, f.initErr
	}
	return f.initResult, nil
}

func (f *fakePaytm) TransactionStatus(ctx context.Context, orderID string) (*paytm.StatusResult, error) {
	return f.status, nil
}

const testSaltKey = "salt0"

type paymentsFixture struct {
	repo     *stubPaymentsRepo
	orders   *stubOrderGateway
	pub      *stubOutboxPublisher
	phonePe  *fakePhonePe
	razorpay *fakeRazorpay
	paytm    *fakePaytm
	svc      Service
}

func newPaymentsFixture(t *testing.T) *paymentsFixture {
	t.Helper()

	f := &paymentsFixture{
		repo:     newStubPaymentsRepo(),
		orders:   &stubOrderGateway{orders: make(map[uuid.UUID]*models.Order)},
		pub:      &stubOutboxPublisher{},
		phonePe:  &fakePhonePe{payResult: &phonepe.PayResult{Code: "PAYMENT_INITIATED", RedirectURL: "https://pay.phonepe.com/tx/1"}},
		razorpay: &fakeRazorpay{keyID: "rzp_test_key", verifyOK: true},
		paytm:    &fakePaytm{initResult: &paytm.InitiateResult{TxnToken: "token-1", PaymentURL: "https://securegw.paytm.in/theia/pay"}},
	}

	factory := &clientFactory{
		phonePe:  func(cfg phonepe.Config) (phonePeClient, error) { return f.phonePe, nil },
		razorpay: func(cfg razorpay.Config) (razorpayClient, error) { return f.razorpay, nil },
		paytm:    func(cfg paytm.Config) (paytmClient, error) { return f.paytm, nil },
	}
	settingsSrc := &stubSettingsSource{configs: map[enums.PaymentProvider]*settings.GatewayConfig{
		enums.PaymentProviderPhonePe:  {Enabled: true, MerchantID: "M1", SaltKey: testSaltKey, SaltIndex: "1"},
		enums.PaymentProviderRazorpay: {Enabled: true, KeyID: "rzp_test_key", KeySecret: "secret"},
		enums.PaymentProviderPaytm:    {Enabled: true, MerchantID: "M1", MerchantKey: "0123456789abcdef", Website: "WEBSTAGING"},
	}}

	svc, err := NewService(ServiceParams{
		Repo:              f.repo,
		TransactionRunner: stubTxRunner{},
		Outbox:            f.pub,
		Settings:          settingsSrc,
		Orders:            f.orders,
		Logger:            logger.New(logger.Options{ServiceName: "test"}),
		Config: Config{
			PublicBaseURL: "https://api.tecbunny.com",
			StorefrontURL: "https://www.tecbunny.com",
		},
		Clients: factory,
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *paymentsFixture) seedOrder(status enums.OrderStatus, total string) *models.Order {
	order := &models.Order{
		ID:            uuid.New(),
		OrderNumber:   "TB-FIXTURE1",
		Status:        status,
		Total:         decimal.RequireFromString(total),
		CustomerName:  "Asha Patel",
		CustomerEmail: "asha@example.in",
		CustomerPhone: "+919876543210",
	}
	f.orders.orders[order.ID] = order
	return order
}

func (f *paymentsFixture) seedTxn(order *models.Order, provider enums.PaymentProvider, status enums.PaymentTxnStatus) *models.PaymentTransaction {
	txn := &models.PaymentTransaction{
		ID:            uuid.New(),
		OrderID:       order.ID,
		Provider:      provider,
		MerchantTxnID: order.OrderNumber + "-1716212345678",
		Status:        status,
		Amount:        order.Total,
	}
	f.repo.txns[txn.ID] = txn
	return txn
}

func mustCode(t *testing.T, err error, want pkgerrors.Code) *pkgerrors.Error {
	t.Helper()
	appErr := pkgerrors.As(err)
	if appErr == nil {
		t.Fatalf("expected coded error, got %v", err)
	}
	if appErr.Code() != want {
		t.Fatalf("expected code %s, got %s (%s)", want, appErr.Code(), appErr.Message())
	}
	return appErr
}

func phonePeCallback(t *testing.T, merchantTxnID, state, providerTxnID string) PhonePeCallbackInput {
	t.Helper()

	body := map[string]any{
		"success": state == phonepe.StateSuccess,
		"code":    state,
		"data": map[string]any{
			"merchantId":            "M1",
			"merchantTransactionId": merchantTxnID,
			"transactionId":         providerTxnID,
			"amount":                99800,
			"state":                 state,
			"responseCode":          state,
		},
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	encoded := base64.StdEncoding.EncodeToString(raw)
	return PhonePeCallbackInput{
		Response: encoded,
		XVerify:  phonepe.CallbackChecksum(encoded, testSaltKey, "1"),
	}
}

func TestInitiatePhonePeReturnsRedirect(t *testing.T) {
	f := newPaymentsFixture(t)
	order := f.seedOrder(enums.OrderStatusPending, "1499.00")

	result, err := f.svc.Initiate(context.Background(), InitiateInput{
		OrderID:  order.ID,
		Provider: enums.PaymentProviderPhonePe,
	})
	require.NoError(t, err)

	require.Equal(t, "https://pay.phonepe.com/tx/1", result.RedirectURL)
	require.True(t, result.Amount.Equal(order.Total))
	require.Contains(t, result.MerchantTxnID, order.OrderNumber+"-")

	require.Equal(t, int64(149900), f.phonePe.lastPay.AmountPaise)
	require.Equal(t, "https://api.tecbunny.com/api/v1/payments/phonepe/callback", f.phonePe.lastPay.CallbackURL)
	require.Contains(t, f.phonePe.lastPay.RedirectURL, "order=TB-FIXTURE1")

	require.Len(t, f.repo.txns, 1)
	stored := f.repo.txns[result.TransactionID]
	require.Equal(t, enums.PaymentTxnStatusInitiated, stored.Status)
	require.True(t, stored.Amount.Equal(order.Total))
}

func TestInitiateRejectsNonPendingOrder(t *testing.T) {
	f := newPaymentsFixture(t)
	order := f.seedOrder(enums.OrderStatusPaymentConfirmed, "1499.00")

	_, err := f.svc.Initiate(context.Background(), InitiateInput{
		OrderID:  order.ID,
		Provider: enums.PaymentProviderPhonePe,
	})
	mustCode(t, err, pkgerrors.CodeStateConflict)
	require.Empty(t, f.repo.txns)
}

func TestInitiateRejectsAlreadyPaidOrder(t *testing.T) {
	f := newPaymentsFixture(t)
	order := f.seedOrder(enums.OrderStatusPending, "1499.00")
	f.repo.hasSuccess = true

	_, err := f.svc.Initiate(context.Background(), InitiateInput{
		OrderID:  order.ID,
		Provider: enums.PaymentProviderPhonePe,
	})
	mustCode(t, err, pkgerrors.CodeStateConflict)
}

func TestInitiateGatewayFailureMarksTransaction(t *testing.T) {
	f := newPaymentsFixture(t)
	order := f.seedOrder(enums.OrderStatusPending, "1499.00")
	f.phonePe.payErr = pkgerrors.New(pkgerrors.CodeDependency, "phonepe rejected payment: KEY_NOT_CONFIGURED")

	_, err := f.svc.Initiate(context.Background(), InitiateInput{
		OrderID:  order.ID,
		Provider: enums.PaymentProviderPhonePe,
	})
	mustCode(t, err, pkgerrors.CodeDependency)

	require.Len(t, f.repo.txns, 1)
	for _, txn := range f.repo.txns {
		require.Equal(t, enums.PaymentTxnStatusFailed, txn.Status)
		require.NotNil(t, txn.FailureReason)
		require.Contains(t, *txn.FailureReason, "phonepe rejected payment")
	}
}

func TestInitiateRazorpayReturnsCheckout(t *testing.T) {
	f := newPaymentsFixture(t)
	order := f.seedOrder(enums.OrderStatusPending, "2499.00")
	f.razorpay.order = &razorpay.Order{ID: "order_R6qX1", AmountPaise: 249900, Currency: "INR", Status: "created"}

	result, err := f.svc.Initiate(context.Background(), InitiateInput{
		OrderID:  order.ID,
		Provider: enums.PaymentProviderRazorpay,
	})
	require.NoError(t, err)

	require.NotNil(t, result.Checkout)
	require.Equal(t, "rzp_test_key", result.Checkout.KeyID)
	require.Equal(t, "order_R6qX1", result.Checkout.GatewayOrderID)
	require.Equal(t, int64(249900), result.Checkout.AmountPaise)
	require.Empty(t, result.RedirectURL)

	stored := f.repo.txns[result.TransactionID]
	require.NotNil(t, stored.ProviderOrderID)
	require.Equal(t, "order_R6qX1", *stored.ProviderOrderID)
}

func TestInitiatePaytmReturnsHostedPage(t *testing.T) {
	f := newPaymentsFixture(t)
	order := f.seedOrder(enums.OrderStatusPending, "999.00")

	result, err := f.svc.Initiate(context.Background(), InitiateInput{
		OrderID:  order.ID,
		Provider: enums.PaymentProviderPaytm,
	})
	require.NoError(t, err)
	require.Equal(t, "https://securegw.paytm.in/theia/pay", result.RedirectURL)
	require.Equal(t, "token-1", result.PaytmTxnToken)
}

func TestInitiateUnconfiguredGateway(t *testing.T) {
	f := newPaymentsFixture(t)
	order := f.seedOrder(enums.OrderStatusPending, "999.00")
	settingsSrc := &stubSettingsSource{configs: map[enums.PaymentProvider]*settings.GatewayConfig{}}

	svc, err := NewService(ServiceParams{
		Repo:              f.repo,
		TransactionRunner: stubTxRunner{},
		Outbox:            f.pub,
		Settings:          settingsSrc,
		Orders:            f.orders,
		Logger:            logger.New(logger.Options{ServiceName: "test"}),
		Clients: &clientFactory{
			phonePe:  func(cfg phonepe.Config) (phonePeClient, error) { return f.phonePe, nil },
			razorpay: func(cfg razorpay.Config) (razorpayClient, error) { return f.razorpay, nil },
			paytm:    func(cfg paytm.Config) (paytmClient, error) { return f.paytm, nil },
		},
	})
	require.NoError(t, err)

	_, err = svc.Initiate(context.Background(), InitiateInput{
		OrderID:  order.ID,
		Provider: enums.PaymentProviderPhonePe,
	})
	mustCode(t, err, pkgerrors.CodeDependency)
	require.Empty(t, f.repo.txns)
}

func TestPhonePeCallbackSuccess(t *testing.T) {
	f := newPaymentsFixture(t)
	order := f.seedOrder(enums.OrderStatusPending, "998.00")
	txn := f.seedTxn(order, enums.PaymentProviderPhonePe, enums.PaymentTxnStatusInitiated)

	input := phonePeCallback(t, txn.MerchantTxnID, phonepe.StateSuccess, "T5001")
	result, err := f.svc.HandlePhonePeCallback(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentTxnStatusSuccess, result.Status)
	require.Equal(t, order.ID, result.OrderID)

	require.Equal(t, enums.PaymentTxnStatusSuccess, txn.Status)
	require.NotNil(t, txn.ProviderTxnID)
	require.Equal(t, "T5001", *txn.ProviderTxnID)
	require.NotNil(t, txn.CompletedAt)
	require.NotEmpty(t, txn.RawPayload)

	require.Len(t, f.orders.applied, 1)
	require.Equal(t, enums.OrderStatusPaymentConfirmed, f.orders.applied[0].target)

	require.Len(t, f.pub.events, 1)
	require.Equal(t, enums.EventPaymentSucceeded, f.pub.events[0].EventType)
	payload, ok := f.pub.events[0].Data.(payloads.PaymentSucceededEvent)
	require.True(t, ok)
	require.Equal(t, order.OrderNumber, payload.OrderNumber)
	require.Equal(t, txn.MerchantTxnID, payload.MerchantTxnID)
	require.True(t, payload.Amount.Equal(order.Total))
}

func TestPhonePeCallbackBadSignature(t *testing.T) {
	f := newPaymentsFixture(t)
	order := f.seedOrder(enums.OrderStatusPending, "998.00")
	txn := f.seedTxn(order, enums.PaymentProviderPhonePe, enums.PaymentTxnStatusInitiated)

	input := phonePeCallback(t, txn.MerchantTxnID, phonepe.StateSuccess, "T5001")
	input.XVerify = "deadbeef###1"

	_, err := f.svc.HandlePhonePeCallback(context.Background(), input)
	mustCode(t, err, pkgerrors.CodeValidation)

	require.Equal(t, enums.PaymentTxnStatusInitiated, txn.Status)
	require.Empty(t, f.orders.applied)
	require.Empty(t, f.pub.events)
}

func TestPhonePeCallbackUnknownTransaction(t *testing.T) {
	f := newPaymentsFixture(t)

	input := phonePeCallback(t, "TB-GHOST001-123", phonepe.StateSuccess, "T1")
	_, err := f.svc.HandlePhonePeCallback(context.Background(), input)
	mustCode(t, err, pkgerrors.CodeNotFound)
}

func TestPhonePeCallbackReplayIsIdempotent(t *testing.T) {
	f := newPaymentsFixture(t)
	order := f.seedOrder(enums.OrderStatusPending, "998.00")
	txn := f.seedTxn(order, enums.PaymentProviderPhonePe, enums.PaymentTxnStatusInitiated)

	input := phonePeCallback(t, txn.MerchantTxnID, phonepe.StateSuccess, "T5001")
	_, err := f.svc.HandlePhonePeCallback(context.Background(), input)
	require.NoError(t, err)

	result, err := f.svc.HandlePhonePeCallback(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentTxnStatusSuccess, result.Status)

	require.Len(t, f.pub.events, 1)
	require.Len(t, f.repo.updates[txn.ID], 1)
	require.Len(t, f.orders.applied, 1)
}

func TestPhonePeCallbackFailure(t *testing.T) {
	f := newPaymentsFixture(t)
	order := f.seedOrder(enums.OrderStatusPending, "998.00")
	txn := f.seedTxn(order, enums.PaymentProviderPhonePe, enums.PaymentTxnStatusInitiated)

	input := phonePeCallback(t, txn.MerchantTxnID, phonepe.StateDeclined, "T5002")
	result, err := f.svc.HandlePhonePeCallback(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentTxnStatusFailed, result.Status)

	require.Equal(t, enums.PaymentTxnStatusFailed, txn.Status)
	require.NotNil(t, txn.FailureReason)

	require.Len(t, f.orders.applied, 1)
	require.Equal(t, enums.OrderStatusPaymentFailed, f.orders.applied[0].target)

	require.Len(t, f.pub.events, 1)
	require.Equal(t, enums.EventPaymentFailed, f.pub.events[0].EventType)
	payload, ok := f.pub.events[0].Data.(payloads.PaymentFailedEvent)
	require.True(t, ok)
	require.Equal(t, phonepe.StateDeclined, payload.Reason)
}

func TestCallbackSettlesEvenWhenOrderMovedOn(t *testing.T) {
	f := newPaymentsFixture(t)
	order := f.seedOrder(enums.OrderStatusCancelled, "998.00")
	txn := f.seedTxn(order, enums.PaymentProviderPhonePe, enums.PaymentTxnStatusPending)
	f.orders.applyErr = pkgerrors.New(pkgerrors.CodeStateConflict, "cannot move order from cancelled to payment_confirmed")

	input := phonePeCallback(t, txn.MerchantTxnID, phonepe.StateSuccess, "T5003")
	result, err := f.svc.HandlePhonePeCallback(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentTxnStatusSuccess, result.Status)
	require.Equal(t, enums.PaymentTxnStatusSuccess, txn.Status)
	require.Len(t, f.pub.events, 1)
}

func TestCallbackWorksWhenGatewayDisabled(t *testing.T) {
	f := newPaymentsFixture(t)
	order := f.seedOrder(enums.OrderStatusPending, "998.00")
	txn := f.seedTxn(order, enums.PaymentProviderPhonePe, enums.PaymentTxnStatusInitiated)

	settingsSrc := &stubSettingsSource{configs: map[enums.PaymentProvider]*settings.GatewayConfig{
		enums.PaymentProviderPhonePe: {Enabled: false, MerchantID: "M1", SaltKey: testSaltKey, SaltIndex: "1"},
	}}
	svc, err := NewService(ServiceParams{
		Repo:              f.repo,
		TransactionRunner: stubTxRunner{},
		Outbox:            f.pub,
		Settings:          settingsSrc,
		Orders:            f.orders,
		Logger:            logger.New(logger.Options{ServiceName: "test"}),
		Clients: &clientFactory{
			phonePe:  func(cfg phonepe.Config) (phonePeClient, error) { return f.phonePe, nil },
			razorpay: func(cfg razorpay.Config) (razorpayClient, error) { return f.razorpay, nil },
			paytm:    func(cfg paytm.Config) (paytmClient, error) { return f.paytm, nil },
		},
	})
	require.NoError(t, err)

	input := phonePeCallback(t, txn.MerchantTxnID, phonepe.StateSuccess, "T5004")
	result, err := svc.HandlePhonePeCallback(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentTxnStatusSuccess, result.Status)
}

func TestRazorpayWebhookCaptured(t *testing.T) {
	f := newPaymentsFixture(t)
	order := f.seedOrder(enums.OrderStatusPending, "2499.00")
	txn := f.seedTxn(order, enums.PaymentProviderRazorpay, enums.PaymentTxnStatusInitiated)
	providerOrderID := "order_R6qX1"
	txn.ProviderOrderID = &providerOrderID

	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_001","order_id":"order_R6qX1","status":"captured","amount":249900}}}}`)
	result, err := f.svc.HandleRazorpayWebhook(context.Background(), RazorpayWebhookInput{Body: body, Signature: "sig"})
	require.NoError(t, err)
	require.Equal(t, enums.PaymentTxnStatusSuccess, result.Status)

	require.NotNil(t, txn.ProviderTxnID)
	require.Equal(t, "pay_001", *txn.ProviderTxnID)
	require.Len(t, f.orders.applied, 1)
	require.Equal(t, enums.OrderStatusPaymentConfirmed, f.orders.applied[0].target)
}

func TestRazorpayWebhookBadSignature(t *testing.T) {
	f := newPaymentsFixture(t)
	f.razorpay.verifyOK = false

	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_001","order_id":"order_R6qX1","status":"captured"}}}}`)
	_, err := f.svc.HandleRazorpayWebhook(context.Background(), RazorpayWebhookInput{Body: body, Signature: "bad"})
	mustCode(t, err, pkgerrors.CodeValidation)
	require.Empty(t, f.pub.events)
}

func TestRazorpayWebhookUnknownOrder(t *testing.T) {
	f := newPaymentsFixture(t)

	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_001","order_id":"order_nobody","status":"captured"}}}}`)
	_, err := f.svc.HandleRazorpayWebhook(context.Background(), RazorpayWebhookInput{Body: body, Signature: "sig"})
	mustCode(t, err, pkgerrors.CodeNotFound)
}

func TestPaytmCallbackSuccess(t *testing.T) {
	f := newPaymentsFixture(t)
	order := f.seedOrder(enums.OrderStatusPending, "998.00")
	txn := f.seedTxn(order, enums.PaymentProviderPaytm, enums.PaymentTxnStatusInitiated)

	params := map[string]string{
		"MID":     "M1",
		"ORDERID": txn.MerchantTxnID,
		"STATUS":  paytm.StatusSuccess,
		"TXNID":   "PTM5001",
		"RESPMSG": "Txn Success",
	}
	checksum, err := paytm.GenerateSignature(params, "0123456789abcdef")
	require.NoError(t, err)
	params["CHECKSUMHASH"] = checksum

	result, err := f.svc.HandlePaytmCallback(context.Background(), PaytmCallbackInput{Params: params})
	require.NoError(t, err)
	require.Equal(t, enums.PaymentTxnStatusSuccess, result.Status)
	require.NotNil(t, txn.ProviderTxnID)
	require.Equal(t, "PTM5001", *txn.ProviderTxnID)
}

func TestPaytmCallbackBadChecksum(t *testing.T) {
	f := newPaymentsFixture(t)
	order := f.seedOrder(enums.OrderStatusPending, "998.00")
	txn := f.seedTxn(order, enums.PaymentProviderPaytm, enums.PaymentTxnStatusInitiated)

	params := map[string]string{
		"ORDERID":      txn.MerchantTxnID,
		"STATUS":       paytm.StatusSuccess,
		"CHECKSUMHASH": "bm90IGEgcmVhbCBjaGVja3N1bQ==",
	}
	_, err := f.svc.HandlePaytmCallback(context.Background(), PaytmCallbackInput{Params: params})
	mustCode(t, err, pkgerrors.CodeValidation)
	require.Equal(t, enums.PaymentTxnStatusInitiated, txn.Status)
}

func TestReconcileSettlesStaleTransaction(t *testing.T) {
	f := newPaymentsFixture(t)
	order := f.seedOrder(enums.OrderStatusPending, "998.00")
	txn := f.seedTxn(order, enums.PaymentProviderPhonePe, enums.PaymentTxnStatusInitiated)
	f.repo.unresolved = []models.PaymentTransaction{*txn}
	f.phonePe.statusResult = &phonepe.StatusResult{
		Code:          "PAYMENT_SUCCESS",
		State:         phonepe.StateSuccess,
		ProviderTxnID: "T9001",
		AmountPaise:   99800,
	}

	result, err := f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Checked)
	require.Equal(t, 1, result.Resolved)

	require.Equal(t, enums.PaymentTxnStatusSuccess, txn.Status)
	require.Len(t, f.pub.events, 1)
	require.Equal(t, enums.EventPaymentSucceeded, f.pub.events[0].EventType)
}

func TestReconcileSkipsStillPending(t *testing.T) {
	f := newPaymentsFixture(t)
	order := f.seedOrder(enums.OrderStatusPending, "998.00")
	txn := f.seedTxn(order, enums.PaymentProviderPhonePe, enums.PaymentTxnStatusPending)
	f.repo.unresolved = []models.PaymentTransaction{*txn}
	f.phonePe.statusResult = &phonepe.StatusResult{State: phonepe.StatePending}

	result, err := f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Checked)
	require.Equal(t, 0, result.Resolved)
	require.Empty(t, f.pub.events)
}

func TestProviderStateMapping(t *testing.T) {
	cases := []struct {
		name string
		got  enums.PaymentTxnStatus
		want enums.PaymentTxnStatus
	}{
		{"phonepe success", mapPhonePeState(phonepe.StateSuccess), enums.PaymentTxnStatusSuccess},
		{"phonepe declined", mapPhonePeState(phonepe.StateDeclined), enums.PaymentTxnStatusFailed},
		{"phonepe timeout", mapPhonePeState(phonepe.StateTimedOut), enums.PaymentTxnStatusFailed},
		{"phonepe pending", mapPhonePeState(phonepe.StatePending), enums.PaymentTxnStatusPending},
		{"phonepe unknown", mapPhonePeState("SOMETHING_NEW"), enums.PaymentTxnStatusPending},
		{"razorpay captured", mapRazorpayStatus(razorpay.StatusCaptured), enums.PaymentTxnStatusSuccess},
		{"razorpay failed", mapRazorpayStatus(razorpay.StatusFailed), enums.PaymentTxnStatusFailed},
		{"razorpay authorized", mapRazorpayStatus(razorpay.StatusAuthorized), enums.PaymentTxnStatusPending},
		{"paytm success", mapPaytmStatus(paytm.StatusSuccess), enums.PaymentTxnStatusSuccess},
		{"paytm failure", mapPaytmStatus(paytm.StatusFailure), enums.PaymentTxnStatusFailed},
		{"paytm pending", mapPaytmStatus(paytm.StatusPending), enums.PaymentTxnStatusPending},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Fatalf("got %s, want %s", tc.got, tc.want)
			}
		})
	}
}
