package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tecbunny/tecbunny-backend/pkg/enums"
)

// Product represents a catalog listing visible on the storefront.
type Product struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Slug        string                `gorm:"column:slug;not null;uniqueIndex"`
	Name        string                `gorm:"column:name;not null"`
	Description *string               `gorm:"column:description"`
	Category    enums.ProductCategory `gorm:"column:category;type:product_category;not null"`
	Brand       *string               `gorm:"column:brand"`
	Price       decimal.Decimal       `gorm:"column:price;type:numeric(12,2);not null"`
	MRP         decimal.Decimal       `gorm:"column:mrp;type:numeric(12,2);not null"`
	StockQty    int                   `gorm:"column:stock_qty;not null;default:0"`
	IsActive    bool                  `gorm:"column:is_active;not null;default:true"`
	IsFeatured  bool                  `gorm:"column:is_featured;not null;default:false"`
	Media       []ProductMedia        `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
