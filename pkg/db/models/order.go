package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	"github.com/tecbunny/tecbunny-backend/pkg/types"
)

// Order represents a storefront order placed by a customer or guest.
type Order struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber     string               `gorm:"column:order_number;not null;uniqueIndex"`
	UserID          *uuid.UUID           `gorm:"column:user_id;type:uuid"`
	AgentID         *uuid.UUID           `gorm:"column:agent_id;type:uuid"`
	ReferralCode    *string              `gorm:"column:referral_code"`
	Status          enums.OrderStatus    `gorm:"column:status;type:order_status;not null;default:'pending'"`
	Subtotal        decimal.Decimal      `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Discount        decimal.Decimal      `gorm:"column:discount;type:numeric(12,2);not null;default:0"`
	ShippingFee     decimal.Decimal      `gorm:"column:shipping_fee;type:numeric(12,2);not null;default:0"`
	Total           decimal.Decimal      `gorm:"column:total;type:numeric(12,2);not null"`
	CustomerName    string               `gorm:"column:customer_name;not null"`
	CustomerEmail   string               `gorm:"column:customer_email;not null"`
	CustomerPhone   string               `gorm:"column:customer_phone;not null"`
	ShippingAddress types.Address        `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	Notes           *string              `gorm:"column:notes"`
	PlacedAt        time.Time            `gorm:"column:placed_at;not null"`
	ConfirmedAt     *time.Time           `gorm:"column:confirmed_at"`
	ShippedAt       *time.Time           `gorm:"column:shipped_at"`
	DeliveredAt     *time.Time           `gorm:"column:delivered_at"`
	CancelledAt     *time.Time           `gorm:"column:cancelled_at"`
	Items           []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Transactions    []PaymentTransaction `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
