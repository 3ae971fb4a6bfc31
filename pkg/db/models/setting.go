package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Setting is a key/value row for runtime configuration such as gateway
// credentials and commission rates. Key deliberately carries a plain
// index rather than a unique one: historical writers inserted duplicate
// rows, and readers resolve a key to the most recently updated row.
type Setting struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Key       string          `gorm:"column:key;not null;index"`
	Value     json.RawMessage `gorm:"column:value;type:jsonb;not null"`
	UpdatedBy *uuid.UUID      `gorm:"column:updated_by;type:uuid"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
