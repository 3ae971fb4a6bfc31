package settings

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tecbunny/tecbunny-backend/pkg/enums"
)

// Well-known settings keys. Gateway keys are derived per provider via
// GatewayKey.
const (
	KeyCommissionRate         = "commission.rate"
	KeyNotificationRecipients = "notification.recipients"

	gatewayKeyPrefix = "payment_gateway."
)

// GatewayKey returns the settings key holding a provider's credentials.
func GatewayKey(provider enums.PaymentProvider) string {
	return gatewayKeyPrefix + string(provider)
}

// PutInput carries an admin write to the settings store.
type PutInput struct {
	Key       string
	Value     json.RawMessage
	UpdatedBy *uuid.UUID
}

// GatewayConfig is the decoded credential payload for one payment
// provider. Only the fields relevant to the provider are populated.
type GatewayConfig struct {
	Enabled bool `json:"enabled"`

	// PhonePe
	MerchantID string `json:"merchant_id,omitempty"`
	SaltKey    string `json:"salt_key,omitempty"`
	SaltIndex  string `json:"salt_index,omitempty"`

	// Razorpay
	KeyID         string `json:"key_id,omitempty"`
	KeySecret     string `json:"key_secret,omitempty"`
	WebhookSecret string `json:"webhook_secret,omitempty"`

	// Paytm
	MerchantKey string `json:"merchant_key,omitempty"`
	Website     string `json:"website,omitempty"`

	// Optional override for sandbox environments.
	BaseURL string `json:"base_url,omitempty"`
}

// CommissionRate is the decoded commission configuration.
type CommissionRate struct {
	Type  enums.CommissionRateType `json:"type"`
	Value decimal.Decimal          `json:"value"`
}

// Recipients lists the back-office contacts copied on notifications.
type Recipients struct {
	Emails   []string `json:"emails"`
	WhatsApp []string `json:"whatsapp"`
}
