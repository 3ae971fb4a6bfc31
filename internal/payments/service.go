package payments

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tecbunny/tecbunny-backend/internal/settings"
	"github.com/tecbunny/tecbunny-backend/pkg/db/models"
	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	pkgerrors "github.com/tecbunny/tecbunny-backend/pkg/errors"
	"github.com/tecbunny/tecbunny-backend/pkg/logger"
	"github.com/tecbunny/tecbunny-backend/pkg/money"
	"github.com/tecbunny/tecbunny-backend/pkg/outbox"
	"github.com/tecbunny/tecbunny-backend/pkg/outbox/payloads"
	"github.com/tecbunny/tecbunny-backend/pkg/paytm"
	"github.com/tecbunny/tecbunny-backend/pkg/phonepe"
	"github.com/tecbunny/tecbunny-backend/pkg/razorpay"
)

const (
	// reconcileAge is how long a transaction may sit unresolved before
	// the sweep queries the gateway directly.
	reconcileAge   = 15 * time.Minute
	reconcileBatch = 50

	phonePeCallbackPath = "/api/v1/webhooks/payments/phonepe"
	paytmCallbackPath   = "/api/v1/webhooks/payments/paytm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type settingsSource interface {
	GatewayConfig(ctx context.Context, provider enums.PaymentProvider) (*settings.GatewayConfig, error)
	GatewayCredentials(ctx context.Context, provider enums.PaymentProvider) (*settings.GatewayConfig, error)
}

type orderGateway interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ApplyStatus(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, target enums.OrderStatus, actor *outbox.ActorRef) (*models.Order, error)
}

// Config carries the URLs handed to gateways for redirects and
// server-to-server callbacks.
type Config struct {
	PublicBaseURL string
	StorefrontURL string
}

// ServiceParams groups dependencies for the payment service.
type ServiceParams struct {
	Repo              Repository
	TransactionRunner txRunner
	Outbox            outboxPublisher
	Settings          settingsSource
	Orders            orderGateway
	Logger            *logger.Logger
	Config            Config

	// Clients overrides gateway construction. Nil uses the real clients.
	Clients *clientFactory
}

// Service exposes payment initiation, gateway notification handling and
// reconciliation.
type Service interface {
	Initiate(ctx context.Context, input InitiateInput) (*InitiateResult, error)
	HandlePhonePeCallback(ctx context.Context, input PhonePeCallbackInput) (*CallbackResult, error)
	HandleRazorpayWebhook(ctx context.Context, input RazorpayWebhookInput) (*CallbackResult, error)
	HandlePaytmCallback(ctx context.Context, input PaytmCallbackInput) (*CallbackResult, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*models.PaymentTransaction, error)
	ListForOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentTransaction, error)
	Reconcile(ctx context.Context) (*ReconcileResult, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	settings settingsSource
	orders   orderGateway
	logg     *logger.Logger
	factory  clientFactory
	cfg      Config
}

// NewService builds the payment service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Settings == nil {
		return nil, fmt.Errorf("settings source required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}

	factory := defaultClientFactory()
	if params.Clients != nil {
		factory = *params.Clients
	}

	return &service{
		repo:     params.Repo,
		tx:       params.TransactionRunner,
		outbox:   params.Outbox,
		settings: params.Settings,
		orders:   params.Orders,
		logg:     params.Logger,
		factory:  factory,
		cfg:      params.Config,
	}, nil
}

// Initiate opens a gateway transaction for a pending order. The
// transaction row is written before the gateway call so a crash between
// the two leaves an initiated row for reconciliation to settle.
func (s *service) Initiate(ctx context.Context, input InitiateInput) (*InitiateResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Provider.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment provider")
	}

	order, err := s.orders.Get(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order is %s, not awaiting payment", order.Status))
	}
	paid, err := s.repo.HasSuccessfulTxn(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check order payments")
	}
	if paid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already has a successful payment")
	}

	gatewayCfg, err := s.settings.GatewayConfig(ctx, input.Provider)
	if err != nil {
		return nil, err
	}

	txn := &models.PaymentTransaction{
		OrderID:       order.ID,
		Provider:      input.Provider,
		MerchantTxnID: newMerchantTxnID(order.OrderNumber),
		Status:        enums.PaymentTxnStatusInitiated,
		Amount:        order.Total,
	}
	if _, err := s.repo.Create(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record transaction")
	}

	result := &InitiateResult{
		TransactionID: txn.ID,
		MerchantTxnID: txn.MerchantTxnID,
		Provider:      input.Provider,
		Amount:        order.Total,
	}

	switch input.Provider {
	case enums.PaymentProviderPhonePe:
		err = s.initiatePhonePe(ctx, gatewayCfg, order, txn, result)
	case enums.PaymentProviderRazorpay:
		err = s.initiateRazorpay(ctx, gatewayCfg, order, txn, result)
	case enums.PaymentProviderPaytm:
		err = s.initiatePaytm(ctx, gatewayCfg, order, txn, result)
	}
	if err != nil {
		s.markInitiationFailed(ctx, txn.ID, err)
		return nil, err
	}
	return result, nil
}

func (s *service) initiatePhonePe(ctx context.Context, cfg *settings.GatewayConfig, order *models.Order, txn *models.PaymentTransaction, result *InitiateResult) error {
	client, err := s.factory.phonePe(phonepe.Config{
		MerchantID: cfg.MerchantID,
		SaltKey:    cfg.SaltKey,
		SaltIndex:  cfg.SaltIndex,
		BaseURL:    cfg.BaseURL,
	})
	if err != nil {
		return err
	}

	pay, err := client.Pay(ctx, phonepe.PayRequest{
		MerchantTxnID:  txn.MerchantTxnID,
		MerchantUserID: customerRef(order),
		AmountPaise:    money.Paise(order.Total),
		RedirectURL:    s.paymentResultURL(order.OrderNumber),
		CallbackURL:    s.cfg.PublicBaseURL + phonePeCallbackPath,
	})
	if err != nil {
		return err
	}
	result.RedirectURL = pay.RedirectURL
	return nil
}

func (s *service) initiateRazorpay(ctx context.Context, cfg *settings.GatewayConfig, order *models.Order, txn *models.PaymentTransaction, result *InitiateResult) error {
	client, err := s.factory.razorpay(razorpay.Config{
		KeyID:         cfg.KeyID,
		KeySecret:     cfg.KeySecret,
		WebhookSecret: cfg.WebhookSecret,
	})
	if err != nil {
		return err
	}

	gatewayOrder, err := client.CreateOrder(ctx, razorpay.OrderRequest{
		AmountPaise: money.Paise(order.Total),
		Currency:    "INR",
		Receipt:     txn.MerchantTxnID,
		Notes:       map[string]interface{}{"order_number": order.OrderNumber},
	})
	if err != nil {
		return err
	}
	if err := s.repo.Update(ctx, txn.ID, map[string]any{"provider_order_id": gatewayOrder.ID}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store gateway order id")
	}

	result.Checkout = &RazorpayCheckout{
		KeyID:          client.KeyID(),
		GatewayOrderID: gatewayOrder.ID,
		AmountPaise:    gatewayOrder.AmountPaise,
		Currency:       gatewayOrder.Currency,
	}
	return nil
}

func (s *service) initiatePaytm(ctx context.Context, cfg *settings.GatewayConfig, order *models.Order, txn *models.PaymentTransaction, result *InitiateResult) error {
	client, err := s.factory.paytm(paytm.Config{
		MerchantID:  cfg.MerchantID,
		MerchantKey: cfg.MerchantKey,
		Website:     cfg.Website,
		BaseURL:     cfg.BaseURL,
	})
	if err != nil {
		return err
	}

	res, err := client.InitiateTransaction(ctx, paytm.InitiateRequest{
		OrderID:     txn.MerchantTxnID,
		Amount:      order.Total.StringFixed(2),
		CustomerID:  customerRef(order),
		CallbackURL: s.cfg.PublicBaseURL + paytmCallbackPath,
	})
	if err != nil {
		return err
	}
	result.RedirectURL = res.PaymentURL
	result.PaytmTxnToken = res.TxnToken
	return nil
}

// markInitiationFailed records the gateway rejection on the transaction
// row. A write failure here only logs: the caller already has the real
// error.
func (s *service) markInitiationFailed(ctx context.Context, txnID uuid.UUID, cause error) {
	reason := cause.Error()
	if appErr := pkgerrors.As(cause); appErr != nil {
		reason = appErr.Message()
	}
	updates := map[string]any{
		"status":         enums.PaymentTxnStatusFailed,
		"failure_reason": reason,
		"completed_at":   time.Now().UTC(),
	}
	if err := s.repo.Update(ctx, txnID, updates); err != nil {
		s.logg.Error(ctx, fmt.Sprintf("mark transaction %s failed", txnID), err)
	}
}

// HandlePhonePeCallback verifies and applies a PhonePe server-to-server
// callback. A bad checksum rejects the request without touching state.
func (s *service) HandlePhonePeCallback(ctx context.Context, input PhonePeCallbackInput) (*CallbackResult, error) {
	if strings.TrimSpace(input.Response) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "callback response required")
	}

	creds, err := s.settings.GatewayCredentials(ctx, enums.PaymentProviderPhonePe)
	if err != nil {
		return nil, err
	}
	if !phonepe.VerifyCallback(input.Response, input.XVerify, creds.SaltKey, creds.SaltIndex) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "callback signature mismatch")
	}

	payload, err := phonepe.DecodeCallback(input.Response)
	if err != nil {
		return nil, err
	}
	if creds.MerchantID != "" && payload.Data.MerchantID != creds.MerchantID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "callback merchant mismatch")
	}

	txn, err := s.findByMerchantTxn(ctx, payload.Data.MerchantTxnID)
	if err != nil {
		return nil, err
	}

	raw, err := base64.StdEncoding.DecodeString(input.Response)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode callback response")
	}

	outcome := gatewayOutcome{
		status:        mapPhonePeState(payload.Data.State),
		providerTxnID: payload.Data.TransactionID,
		rawPayload:    raw,
	}
	if outcome.status == enums.PaymentTxnStatusFailed {
		outcome.failureReason = payload.Data.ResponseCode
		if outcome.failureReason == "" {
			outcome.failureReason = payload.Code
		}
	}
	return s.resolve(ctx, txn, outcome)
}

// HandleRazorpayWebhook verifies and applies a payment.* webhook.
func (s *service) HandleRazorpayWebhook(ctx context.Context, input RazorpayWebhookInput) (*CallbackResult, error) {
	if len(input.Body) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook body required")
	}

	creds, err := s.settings.GatewayCredentials(ctx, enums.PaymentProviderRazorpay)
	if err != nil {
		return nil, err
	}
	client, err := s.factory.razorpay(razorpay.Config{
		KeyID:         creds.KeyID,
		KeySecret:     creds.KeySecret,
		WebhookSecret: creds.WebhookSecret,
	})
	if err != nil {
		return nil, err
	}
	if !client.VerifyWebhookSignature(input.Body, input.Signature) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook signature mismatch")
	}

	event, err := razorpay.ParseWebhook(input.Body)
	if err != nil {
		return nil, err
	}
	if event.OrderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook missing order id")
	}

	txn, err := s.repo.FindByProviderOrderID(ctx, event.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}

	outcome := gatewayOutcome{
		status:        mapRazorpayStatus(event.Status),
		providerTxnID: event.PaymentID,
		rawPayload:    json.RawMessage(input.Body),
	}
	if outcome.status == enums.PaymentTxnStatusFailed {
		outcome.failureReason = event.ErrorReason
	}
	return s.resolve(ctx, txn, outcome)
}

// HandlePaytmCallback verifies and applies a Paytm form callback.
func (s *service) HandlePaytmCallback(ctx context.Context, input PaytmCallbackInput) (*CallbackResult, error) {
	if len(input.Params) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "callback parameters required")
	}
	checksum := input.Params["CHECKSUMHASH"]
	if checksum == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "callback checksum required")
	}

	creds, err := s.settings.GatewayCredentials(ctx, enums.PaymentProviderPaytm)
	if err != nil {
		return nil, err
	}
	ok, err := paytm.VerifySignature(input.Params, creds.MerchantKey, checksum)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "verify callback checksum")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "callback signature mismatch")
	}

	txn, err := s.findByMerchantTxn(ctx, input.Params["ORDERID"])
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(input.Params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode callback parameters")
	}

	outcome := gatewayOutcome{
		status:        mapPaytmStatus(input.Params["STATUS"]),
		providerTxnID: input.Params["TXNID"],
		rawPayload:    raw,
	}
	if outcome.status == enums.PaymentTxnStatusFailed {
		outcome.failureReason = input.Params["RESPMSG"]
	}
	return s.resolve(ctx, txn, outcome)
}

func (s *service) GetTransaction(ctx context.Context, id uuid.UUID) (*models.PaymentTransaction, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}
	txn, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}
	return txn, nil
}

func (s *service) ListForOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentTransaction, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	txns, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	return txns, nil
}

// Reconcile queries the gateway for transactions that never received a
// callback and settles the ones the gateway has decided.
func (s *service) Reconcile(ctx context.Context) (*ReconcileResult, error) {
	cutoff := time.Now().UTC().Add(-reconcileAge)
	txns, err := s.repo.ListUnresolvedBefore(ctx, cutoff, reconcileBatch)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list unresolved transactions")
	}

	result := &ReconcileResult{Checked: len(txns)}
	for i := range txns {
		txn := txns[i]
		outcome, err := s.fetchGatewayOutcome(ctx, &txn)
		if err != nil {
			s.logg.Error(ctx, fmt.Sprintf("reconcile %s", txn.MerchantTxnID), err)
			continue
		}
		if outcome == nil || outcome.status == txn.Status {
			continue
		}
		if _, err := s.resolve(ctx, &txn, *outcome); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("settle %s", txn.MerchantTxnID), err)
			continue
		}
		result.Resolved++
	}
	return result, nil
}

func (s *service) fetchGatewayOutcome(ctx context.Context, txn *models.PaymentTransaction) (*gatewayOutcome, error) {
	creds, err := s.settings.GatewayCredentials(ctx, txn.Provider)
	if err != nil {
		return nil, err
	}

	switch txn.Provider {
	case enums.PaymentProviderPhonePe:
		client, err := s.factory.phonePe(phonepe.Config{
			MerchantID: creds.MerchantID,
			SaltKey:    creds.SaltKey,
			SaltIndex:  creds.SaltIndex,
			BaseURL:    creds.BaseURL,
		})
		if err != nil {
			return nil, err
		}
		status, err := client.Status(ctx, txn.MerchantTxnID)
		if err != nil {
			return nil, err
		}
		outcome := &gatewayOutcome{
			status:        mapPhonePeState(status.State),
			providerTxnID: status.ProviderTxnID,
		}
		if outcome.status == enums.PaymentTxnStatusFailed {
			outcome.failureReason = status.ResponseCode
		}
		return outcome, nil

	case enums.PaymentProviderRazorpay:
		if txn.ProviderOrderID == nil || *txn.ProviderOrderID == "" {
			return nil, nil
		}
		client, err := s.factory.razorpay(razorpay.Config{
			KeyID:         creds.KeyID,
			KeySecret:     creds.KeySecret,
			WebhookSecret: creds.WebhookSecret,
		})
		if err != nil {
			return nil, err
		}
		paymentAttempts, err := client.FetchOrderPayments(ctx, *txn.ProviderOrderID)
		if err != nil {
			return nil, err
		}
		return razorpayOutcome(paymentAttempts), nil

	case enums.PaymentProviderPaytm:
		client, err := s.factory.paytm(paytm.Config{
			MerchantID:  creds.MerchantID,
			MerchantKey: creds.MerchantKey,
			Website:     creds.Website,
			BaseURL:     creds.BaseURL,
		})
		if err != nil {
			return nil, err
		}
		status, err := client.TransactionStatus(ctx, txn.MerchantTxnID)
		if err != nil {
			return nil, err
		}
		outcome := &gatewayOutcome{
			status:        mapPaytmStatus(status.Status),
			providerTxnID: status.TxnID,
		}
		if outcome.status == enums.PaymentTxnStatusFailed {
			outcome.failureReason = status.RespMsg
		}
		return outcome, nil
	}
	return nil, nil
}

// razorpayOutcome folds a gateway order's payment attempts: any capture
// settles the transaction, all-failed attempts fail it, anything else
// stays pending.
func razorpayOutcome(attempts []razorpay.Payment) *gatewayOutcome {
	if len(attempts) == 0 {
		return nil
	}
	failedID := ""
	for _, attempt := range attempts {
		switch attempt.Status {
		case razorpay.StatusCaptured:
			return &gatewayOutcome{
				status:        enums.PaymentTxnStatusSuccess,
				providerTxnID: attempt.ID,
			}
		case razorpay.StatusFailed:
			failedID = attempt.ID
		default:
			return nil
		}
	}
	return &gatewayOutcome{
		status:        enums.PaymentTxnStatusFailed,
		providerTxnID: failedID,
		failureReason: "all payment attempts failed",
	}
}

type gatewayOutcome struct {
	status        enums.PaymentTxnStatus
	providerTxnID string
	failureReason string
	rawPayload    json.RawMessage
}

// resolve applies a gateway-reported outcome: the transaction row,
// the order transition and the payment event commit together. A settled
// transaction never changes again, so replayed callbacks are a no-op
// acknowledgment.
func (s *service) resolve(ctx context.Context, txn *models.PaymentTransaction, outcome gatewayOutcome) (*CallbackResult, error) {
	result := &CallbackResult{
		TransactionID: txn.ID,
		OrderID:       txn.OrderID,
		Status:        txn.Status,
	}
	if txn.Status == outcome.status {
		return result, nil
	}
	if isTerminalTxnStatus(txn.Status) {
		s.logg.Warn(ctx, fmt.Sprintf("ignoring %s update for settled transaction %s", outcome.status, txn.MerchantTxnID))
		return result, nil
	}

	order, err := s.orders.Get(ctx, txn.OrderID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		updates := map[string]any{"status": outcome.status}
		if outcome.providerTxnID != "" {
			updates["provider_txn_id"] = outcome.providerTxnID
		}
		if len(outcome.rawPayload) > 0 {
			updates["raw_payload"] = outcome.rawPayload
		}
		if outcome.failureReason != "" {
			updates["failure_reason"] = outcome.failureReason
		}
		if isTerminalTxnStatus(outcome.status) {
			updates["completed_at"] = now
		}
		if err := repo.Update(ctx, txn.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update transaction")
		}

		switch outcome.status {
		case enums.PaymentTxnStatusSuccess:
			if err := s.applyOrderStatus(ctx, tx, order.ID, enums.OrderStatusPaymentConfirmed); err != nil {
				return err
			}
			event := outbox.DomainEvent{
				EventType:     enums.EventPaymentSucceeded,
				AggregateType: enums.AggregatePaymentTxn,
				AggregateID:   txn.ID,
				Version:       1,
				Data: payloads.PaymentSucceededEvent{
					OrderID:       order.ID,
					OrderNumber:   order.OrderNumber,
					TransactionID: txn.ID,
					MerchantTxnID: txn.MerchantTxnID,
					Provider:      txn.Provider,
					Amount:        txn.Amount,
					AgentID:       order.AgentID,
					ReferralCode:  order.ReferralCode,
					CustomerName:  order.CustomerName,
					CustomerEmail: order.CustomerEmail,
					CustomerPhone: order.CustomerPhone,
					CompletedAt:   now,
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue payment event")
			}

		case enums.PaymentTxnStatusFailed:
			if err := s.applyOrderStatus(ctx, tx, order.ID, enums.OrderStatusPaymentFailed); err != nil {
				return err
			}
			event := outbox.DomainEvent{
				EventType:     enums.EventPaymentFailed,
				AggregateType: enums.AggregatePaymentTxn,
				AggregateID:   txn.ID,
				Version:       1,
				Data: payloads.PaymentFailedEvent{
					OrderID:       order.ID,
					OrderNumber:   order.OrderNumber,
					TransactionID: txn.ID,
					MerchantTxnID: txn.MerchantTxnID,
					Provider:      txn.Provider,
					Amount:        txn.Amount,
					Reason:        outcome.failureReason,
					CustomerName:  order.CustomerName,
					CustomerEmail: order.CustomerEmail,
					CustomerPhone: order.CustomerPhone,
					FailedAt:      now,
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue payment event")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Status = outcome.status
	return result, nil
}

// applyOrderStatus moves the order, tolerating orders the lifecycle has
// already moved past: a late gateway verdict still settles the
// transaction row, and the conflict is logged for the back office.
func (s *service) applyOrderStatus(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, target enums.OrderStatus) error {
	if _, err := s.orders.ApplyStatus(ctx, tx, orderID, target, nil); err != nil {
		if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeStateConflict {
			s.logg.Warn(ctx, fmt.Sprintf("order %s not moved to %s: %s", orderID, target, appErr.Message()))
			return nil
		}
		return err
	}
	return nil
}

func (s *service) findByMerchantTxn(ctx context.Context, merchantTxnID string) (*models.PaymentTransaction, error) {
	merchantTxnID = strings.TrimSpace(merchantTxnID)
	if merchantTxnID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant transaction id required")
	}
	txn, err := s.repo.FindByMerchantTxnID(ctx, merchantTxnID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}
	return txn, nil
}

func (s *service) paymentResultURL(orderNumber string) string {
	return fmt.Sprintf("%s/checkout/result?order=%s", strings.TrimRight(s.cfg.StorefrontURL, "/"), orderNumber)
}

// newMerchantTxnID derives the identifier handed to the gateway. The
// order number keeps it traceable; the millisecond suffix keeps retries
// unique. PhonePe caps the field at 35 characters.
func newMerchantTxnID(orderNumber string) string {
	return fmt.Sprintf("%s-%d", orderNumber, time.Now().UnixMilli())
}

func customerRef(order *models.Order) string {
	if order.UserID != nil {
		return order.UserID.String()
	}
	return order.CustomerEmail
}
