package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tecbunny/tecbunny-backend/pkg/enums"
)

// OrderCreatedEvent signals that checkout persisted a new order.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID       `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	UserID        *uuid.UUID      `json:"user_id,omitempty"`
	AgentID       *uuid.UUID      `json:"agent_id,omitempty"`
	ReferralCode  *string         `json:"referral_code,omitempty"`
	Total         decimal.Decimal `json:"total"`
	ItemCount     int             `json:"item_count"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	CustomerPhone string          `json:"customer_phone"`
	PlacedAt      time.Time       `json:"placed_at"`
}

// OrderStatusChangedEvent is emitted on every lifecycle transition.
type OrderStatusChangedEvent struct {
	OrderID       uuid.UUID         `json:"order_id"`
	OrderNumber   string            `json:"order_number"`
	From          enums.OrderStatus `json:"from"`
	To            enums.OrderStatus `json:"to"`
	ChangedAt     time.Time         `json:"changed_at"`
	CustomerName  string            `json:"customer_name"`
	CustomerEmail string            `json:"customer_email"`
	CustomerPhone string            `json:"customer_phone"`
}

// OrderCancelledEvent is emitted when an order is cancelled before shipment.
type OrderCancelledEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	CancelledAt   time.Time `json:"cancelled_at"`
	Reason        string    `json:"reason,omitempty"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	CustomerPhone string    `json:"customer_phone"`
}

// PaymentSucceededEvent carries everything downstream consumers need
// to confirm notifications and award referral commission without
// re-reading the order row.
type PaymentSucceededEvent struct {
	OrderID       uuid.UUID             `json:"order_id"`
	OrderNumber   string                `json:"order_number"`
	TransactionID uuid.UUID             `json:"transaction_id"`
	MerchantTxnID string                `json:"merchant_txn_id"`
	Provider      enums.PaymentProvider `json:"provider"`
	Amount        decimal.Decimal       `json:"amount"`
	AgentID       *uuid.UUID            `json:"agent_id,omitempty"`
	ReferralCode  *string               `json:"referral_code,omitempty"`
	CustomerName  string                `json:"customer_name"`
	CustomerEmail string                `json:"customer_email"`
	CustomerPhone string                `json:"customer_phone"`
	CompletedAt   time.Time             `json:"completed_at"`
}

// PaymentFailedEvent is emitted when the gateway reports a terminal failure.
type PaymentFailedEvent struct {
	OrderID       uuid.UUID             `json:"order_id"`
	OrderNumber   string                `json:"order_number"`
	TransactionID uuid.UUID             `json:"transaction_id"`
	MerchantTxnID string                `json:"merchant_txn_id"`
	Provider      enums.PaymentProvider `json:"provider"`
	Amount        decimal.Decimal       `json:"amount"`
	Reason        string                `json:"reason,omitempty"`
	CustomerName  string                `json:"customer_name"`
	CustomerEmail string                `json:"customer_email"`
	CustomerPhone string                `json:"customer_phone"`
	FailedAt      time.Time             `json:"failed_at"`
}

// AgentDecidedEvent is emitted when an admin approves or rejects an application.
type AgentDecidedEvent struct {
	AgentID      uuid.UUID         `json:"agent_id"`
	UserID       uuid.UUID         `json:"user_id"`
	Status       enums.AgentStatus `json:"status"`
	ReferralCode string            `json:"referral_code"`
	Name         string            `json:"name"`
	Email        string            `json:"email"`
	DecidedAt    time.Time         `json:"decided_at"`
}

// ContactReceivedEvent acknowledges an inbound support enquiry.
type ContactReceivedEvent struct {
	MessageID uuid.UUID `json:"message_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
}

// MediaDeletedEvent asks the worker to remove the detached object from storage.
type MediaDeletedEvent struct {
	MediaID   uuid.UUID `json:"media_id"`
	ProductID uuid.UUID `json:"product_id"`
	ObjectKey string    `json:"object_key"`
}
