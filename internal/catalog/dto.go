package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	"github.com/tecbunny/tecbunny-backend/pkg/pagination"
)

// ListFilters narrows the public product listing.
type ListFilters struct {
	Category *enums.ProductCategory
	Query    string
	PriceMin *decimal.Decimal
	PriceMax *decimal.Decimal
	Featured *bool
}

// ListInput bundles filters with cursor pagination parameters.
type ListInput struct {
	Filters    ListFilters
	Pagination pagination.Params

	// IncludeInactive is set by back-office listings only. The public
	// storefront never sees archived products.
	IncludeInactive bool
}

// ProductSummary is the listing row shape returned to storefront clients.
type ProductSummary struct {
	ID         uuid.UUID             `json:"id"`
	Slug       string                `json:"slug"`
	Name       string                `json:"name"`
	Category   enums.ProductCategory `json:"category"`
	Brand      *string               `json:"brand,omitempty"`
	Price      decimal.Decimal       `json:"price"`
	MRP        decimal.Decimal       `json:"mrp"`
	InStock    bool                  `json:"in_stock"`
	IsFeatured bool                  `json:"is_featured"`
	ImageURL   *string               `json:"image_url,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
}

// ProductList is one page of summaries plus the cursor for the next.
type ProductList struct {
	Products   []ProductSummary `json:"products"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// CreateProductInput carries an admin product create.
type CreateProductInput struct {
	Slug        string
	Name        string
	Description *string
	Category    enums.ProductCategory
	Brand       *string
	Price       decimal.Decimal
	MRP         decimal.Decimal
	StockQty    int
	IsFeatured  bool
}

// UpdateProductInput carries a partial admin product update. Nil fields
// are left untouched.
type UpdateProductInput struct {
	Slug        *string
	Name        *string
	Description *string
	Category    *enums.ProductCategory
	Brand       *string
	Price       *decimal.Decimal
	MRP         *decimal.Decimal
	IsFeatured  *bool
	IsActive    *bool
}

// StockAdjustInput applies a signed delta to a product's stock count.
type StockAdjustInput struct {
	ProductID uuid.UUID
	Delta     int
}
