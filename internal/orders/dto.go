package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	"github.com/tecbunny/tecbunny-backend/pkg/pagination"
	"github.com/tecbunny/tecbunny-backend/pkg/types"
)

// OrderItemInput is one requested line at intake. Pricing always comes
// from the catalog row, never from the client.
type OrderItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// PlaceOrderInput carries a storefront checkout. UserID is nil for
// guest checkouts.
type PlaceOrderInput struct {
	UserID          *uuid.UUID
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	ShippingAddress types.Address
	Notes           *string
	ReferralCode    *string
	Items           []OrderItemInput
}

// UpdateStatusInput carries an admin lifecycle move.
type UpdateStatusInput struct {
	OrderID     uuid.UUID
	Target      enums.OrderStatus
	ActorUserID uuid.UUID
	ActorRole   string
}

// CancelInput carries an order cancellation. ActorUserID is nil when
// the expiry job cancels on behalf of the system.
type CancelInput struct {
	OrderID     uuid.UUID
	Reason      string
	ActorUserID *uuid.UUID
	ActorRole   string
}

// AdminListFilters narrows the back-office order listing.
type AdminListFilters struct {
	Status *enums.OrderStatus
	Query  string
}

// AdminListInput bundles filters with pagination.
type AdminListInput struct {
	Filters    AdminListFilters
	Pagination pagination.Params
}

// OrderSummary is the listing row shape for customer and admin lists.
type OrderSummary struct {
	ID           uuid.UUID         `json:"id"`
	OrderNumber  string            `json:"order_number"`
	Status       enums.OrderStatus `json:"status"`
	Total        decimal.Decimal   `json:"total"`
	ItemCount    int               `json:"item_count"`
	CustomerName string            `json:"customer_name"`
	PlacedAt     time.Time         `json:"placed_at"`
	CreatedAt    time.Time         `json:"created_at"`
}

// OrderList is one page of summaries plus the cursor for the next.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// TrackResult is the public tracking projection. It exposes lifecycle
// timestamps without the shipping address or contact details.
type TrackResult struct {
	OrderNumber string            `json:"order_number"`
	Status      enums.OrderStatus `json:"status"`
	Total       decimal.Decimal   `json:"total"`
	ItemCount   int               `json:"item_count"`
	PlacedAt    time.Time         `json:"placed_at"`
	ConfirmedAt *time.Time        `json:"confirmed_at,omitempty"`
	ShippedAt   *time.Time        `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time        `json:"delivered_at,omitempty"`
	CancelledAt *time.Time        `json:"cancelled_at,omitempty"`
}
