package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tecbunny/tecbunny-backend/pkg/enums"
)

// PaymentTransaction records one attempt against a gateway for an order.
// MerchantTxnID is the identifier we hand to the provider and is what
// callbacks key on, so it carries a unique index.
type PaymentTransaction struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID              `gorm:"column:order_id;type:uuid;not null;index"`
	Provider        enums.PaymentProvider  `gorm:"column:provider;type:payment_provider;not null"`
	MerchantTxnID   string                 `gorm:"column:merchant_txn_id;not null;uniqueIndex"`
	ProviderOrderID *string                `gorm:"column:provider_order_id"`
	ProviderTxnID   *string                `gorm:"column:provider_txn_id"`
	Status          enums.PaymentTxnStatus `gorm:"column:status;type:payment_txn_status;not null;default:'initiated'"`
	Amount          decimal.Decimal        `gorm:"column:amount;type:numeric(12,2);not null"`
	RawPayload      json.RawMessage        `gorm:"column:raw_payload;type:jsonb"`
	FailureReason   *string                `gorm:"column:failure_reason"`
	CompletedAt     *time.Time             `gorm:"column:completed_at"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
