package settings

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tecbunny/tecbunny-backend/pkg/db/models"
)

// Repository defines persistence operations for the settings store.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindLatestByKey(ctx context.Context, key string) (*models.Setting, error)
	ListLatest(ctx context.Context) ([]models.Setting, error)
	Create(ctx context.Context, row *models.Setting) (*models.Setting, error)
	UpdateValue(ctx context.Context, id uuid.UUID, value json.RawMessage, updatedBy *uuid.UUID) error
}
