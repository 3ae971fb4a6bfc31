package media

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tecbunny/tecbunny-backend/pkg/db/models"
)

// Repository persists product media rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, row *models.ProductMedia) (*models.ProductMedia, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.ProductMedia, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.ProductMedia, error)
	CountForProduct(ctx context.Context, productID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
}
