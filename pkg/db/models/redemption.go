package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tecbunny/tecbunny-backend/pkg/enums"
)

// Redemption is an agent's request to cash out accumulated points.
type Redemption struct {
	ID         uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AgentID    uuid.UUID              `gorm:"column:agent_id;type:uuid;not null;index"`
	Points     decimal.Decimal        `gorm:"column:points;type:numeric(12,2);not null"`
	Status     enums.RedemptionStatus `gorm:"column:status;type:redemption_status;not null;default:'requested'"`
	UPIHandle  string                 `gorm:"column:upi_handle;not null"`
	DecidedBy  *uuid.UUID             `gorm:"column:decided_by;type:uuid"`
	DecidedAt  *time.Time             `gorm:"column:decided_at"`
	PaidAt     *time.Time             `gorm:"column:paid_at"`
	PayoutNote *string                `gorm:"column:payout_note"`
	CreatedAt  time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
