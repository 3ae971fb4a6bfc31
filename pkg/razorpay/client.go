package razorpay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	rzpsdk "github.com/razorpay/razorpay-go"

	pkgerrors "github.com/tecbunny/tecbunny-backend/pkg/errors"
)

// Payment states Razorpay reports on webhooks and fetches.
const (
	StatusCreated    = "created"
	StatusAuthorized = "authorized"
	StatusCaptured   = "captured"
	StatusFailed     = "failed"
)

// Config carries the key pair loaded from the settings store.
type Config struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
}

// Client wraps the official Razorpay SDK for order creation and
// signature verification.
type Client struct {
	sdk *rzpsdk.Client
	cfg Config
}

// Option configures optional client behavior.
type Option func(*Client)

// WithBaseURL points the SDK at a different API host. Used by tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" && c.sdk != nil && c.sdk.Order != nil && c.sdk.Order.Request != nil {
			c.sdk.Order.Request.BaseURL = trimmed
		}
	}
}

// WithHTTPClient overrides the SDK transport.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil && c.sdk != nil && c.sdk.Order != nil && c.sdk.Order.Request != nil {
			c.sdk.Order.Request.HTTPClient = client
		}
	}
}

// NewClient builds a Razorpay client from gateway credentials.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.KeyID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "razorpay key id is required")
	}
	if strings.TrimSpace(cfg.KeySecret) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "razorpay key secret is required")
	}

	client := &Client{
		sdk: rzpsdk.NewClient(cfg.KeyID, cfg.KeySecret),
		cfg: cfg,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// KeyID exposes the public key for checkout payloads sent to clients.
func (c *Client) KeyID() string {
	if c == nil {
		return ""
	}
	return c.cfg.KeyID
}

// OrderRequest describes a server-side order to create before checkout.
type OrderRequest struct {
	AmountPaise int64
	Currency    string
	Receipt     string
	Notes       map[string]interface{}
}

// Order is the created gateway order.
type Order struct {
	ID          string
	AmountPaise int64
	Currency    string
	Status      string
}

// CreateOrder creates a Razorpay order; checkout on the client references
// its id.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if c == nil || c.sdk == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "razorpay client not configured")
	}
	if req.AmountPaise <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order aborted")
	}

	currency := strings.TrimSpace(req.Currency)
	if currency == "" {
		currency = "INR"
	}

	data := map[string]interface{}{
		"amount":   req.AmountPaise,
		"currency": currency,
	}
	if req.Receipt != "" {
		data["receipt"] = req.Receipt
	}
	if len(req.Notes) > 0 {
		data["notes"] = req.Notes
	}

	res, err := c.sdk.Order.Create(data, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create razorpay order")
	}

	id, _ := res["id"].(string)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "razorpay response missing order id")
	}

	order := &Order{ID: id, Currency: currency}
	if amount, ok := res["amount"].(float64); ok {
		order.AmountPaise = int64(amount)
	}
	if status, ok := res["status"].(string); ok {
		order.Status = status
	}

	return order, nil
}

// Payment is the subset of a gateway payment used for reconciliation.
type Payment struct {
	ID     string
	Status string
}

// FetchOrderPayments lists payments recorded against a gateway order.
func (c *Client) FetchOrderPayments(ctx context.Context, orderID string) ([]Payment, error) {
	if c == nil || c.sdk == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "razorpay client not configured")
	}
	trimmed := strings.TrimSpace(orderID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch payments aborted")
	}

	res, err := c.sdk.Order.Payments(trimmed, nil, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch razorpay payments")
	}

	items, _ := res["items"].([]interface{})
	payments := make([]Payment, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		payment := Payment{}
		payment.ID, _ = entry["id"].(string)
		payment.Status, _ = entry["status"].(string)
		if payment.ID != "" {
			payments = append(payments, payment)
		}
	}

	return payments, nil
}

// VerifyPaymentSignature checks the checkout callback signature
// produced over "order_id|payment_id".
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	if c == nil {
		return false
	}
	return VerifySignature(orderID+"|"+paymentID, signature, c.cfg.KeySecret)
}

// VerifyWebhookSignature checks X-Razorpay-Signature over the raw
// webhook body. Falls back to the key secret when no webhook secret is
// configured.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	if c == nil {
		return false
	}
	secret := c.cfg.WebhookSecret
	if secret == "" {
		secret = c.cfg.KeySecret
	}
	return VerifySignature(string(body), signature, secret)
}

// WebhookEvent is the decoded payment webhook.
type WebhookEvent struct {
	Event       string
	PaymentID   string
	OrderID     string
	Status      string
	AmountPaise int64
	ErrorReason string
}

// ParseWebhook decodes a payment.* webhook body.
func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var envelope struct {
		Event   string `json:"event"`
		Payload struct {
			Payment struct {
				Entity struct {
					ID          string `json:"id"`
					OrderID     string `json:"order_id"`
					Status      string `json:"status"`
					Amount      int64  `json:"amount"`
					ErrorReason string `json:"error_reason"`
				} `json:"entity"`
			} `json:"payment"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unmarshal webhook body")
	}
	entity := envelope.Payload.Payment.Entity
	if entity.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("webhook %q missing payment entity", envelope.Event))
	}

	return &WebhookEvent{
		Event:       envelope.Event,
		PaymentID:   entity.ID,
		OrderID:     entity.OrderID,
		Status:      entity.Status,
		AmountPaise: entity.Amount,
		ErrorReason: entity.ErrorReason,
	}, nil
}
