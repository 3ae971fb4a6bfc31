package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductMedia links a product to an image object stored in GCS.
type ProductMedia struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	ObjectKey string    `gorm:"column:object_key;not null"`
	URL       string    `gorm:"column:url;not null"`
	Position  int       `gorm:"column:position;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
