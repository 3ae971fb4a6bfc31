package payments

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tecbunny/tecbunny-backend/pkg/enums"
)

// InitiateInput starts a payment attempt for a pending order.
type InitiateInput struct {
	OrderID  uuid.UUID
	Provider enums.PaymentProvider
}

// RazorpayCheckout carries the fields the storefront checkout widget
// needs. Razorpay collects the payment client-side against a gateway
// order, so there is no redirect URL.
type RazorpayCheckout struct {
	KeyID          string
	GatewayOrderID string
	AmountPaise    int64
	Currency       string
}

// InitiateResult is the payment hand-off returned to the storefront.
type InitiateResult struct {
	TransactionID uuid.UUID
	MerchantTxnID string
	Provider      enums.PaymentProvider
	Amount        decimal.Decimal

	// RedirectURL points at the provider's hosted page (PhonePe, Paytm).
	RedirectURL string
	// PaytmTxnToken accompanies the Paytm hosted page request.
	PaytmTxnToken string
	// Checkout is set for Razorpay client-side checkout.
	Checkout *RazorpayCheckout
}

// PhonePeCallbackInput is the server-to-server callback body: a base64
// response envelope plus the X-VERIFY header.
type PhonePeCallbackInput struct {
	Response string
	XVerify  string
}

// RazorpayWebhookInput is the raw webhook body plus its signature header.
type RazorpayWebhookInput struct {
	Body      []byte
	Signature string
}

// PaytmCallbackInput is the form-encoded callback parameter set,
// CHECKSUMHASH included.
type PaytmCallbackInput struct {
	Params map[string]string
}

// CallbackResult acknowledges a processed gateway notification.
type CallbackResult struct {
	TransactionID uuid.UUID
	OrderID       uuid.UUID
	Status        enums.PaymentTxnStatus
}

// ReconcileResult summarizes one reconciliation sweep.
type ReconcileResult struct {
	Checked  int
	Resolved int
}
