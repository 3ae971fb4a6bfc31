package contact

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tecbunny/tecbunny-backend/pkg/db/models"
)

// Repository persists contact-desk messages.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, message *models.ContactMessage) (*models.ContactMessage, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.ContactMessage, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	AdminList(ctx context.Context, input AdminListInput) (*MessageList, error)
}
