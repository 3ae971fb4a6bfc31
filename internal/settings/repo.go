package settings

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tecbunny/tecbunny-backend/pkg/db/models"
)

// latestPerKeyQuery resolves each key to its most recently updated row.
// The settings table tolerates duplicate keys, so reads always collapse
// duplicates instead of assuming uniqueness.
const latestPerKeyQuery = `
SELECT s.*
FROM settings s
JOIN (
  SELECT key, MAX(updated_at) AS max_updated
  FROM settings
  GROUP BY key
) latest ON latest.key = s.key AND latest.max_updated = s.updated_at
ORDER BY s.key ASC
`

type repository struct {
	db *gorm.DB
}

// NewRepository builds the settings repository on the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindLatestByKey returns the most recently updated row for the key.
func (r *repository) FindLatestByKey(ctx context.Context, key string) (*models.Setting, error) {
	var row models.Setting
	err := r.db.WithContext(ctx).
		Where("key = ?", key).
		Order("updated_at DESC").
		First(&row).
		Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListLatest returns one row per key, the most recently updated winning.
func (r *repository) ListLatest(ctx context.Context) ([]models.Setting, error) {
	var rows []models.Setting
	if err := r.db.WithContext(ctx).Raw(latestPerKeyQuery).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Create inserts a new settings row.
func (r *repository) Create(ctx context.Context, row *models.Setting) (*models.Setting, error) {
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// UpdateValue rewrites the value of an existing row in place.
func (r *repository) UpdateValue(ctx context.Context, id uuid.UUID, value json.RawMessage, updatedBy *uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&models.Setting{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"value":      value,
			"updated_by": updatedBy,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
