package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tecbunny/tecbunny-backend/pkg/enums"
)

// Commission is an append-only award record. The rate in force is
// snapshotted onto the row so later rate changes never rewrite history,
// and the unique index on OrderID makes the award idempotent.
type Commission struct {
	ID         uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AgentID    uuid.UUID                `gorm:"column:agent_id;type:uuid;not null;index"`
	OrderID    uuid.UUID                `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	OrderTotal decimal.Decimal          `gorm:"column:order_total;type:numeric(12,2);not null"`
	RateType   enums.CommissionRateType `gorm:"column:rate_type;type:commission_rate_type;not null"`
	RateValue  decimal.Decimal          `gorm:"column:rate_value;type:numeric(12,4);not null"`
	Points     decimal.Decimal          `gorm:"column:points;type:numeric(12,2);not null"`
	CreatedAt  time.Time                `gorm:"column:created_at;autoCreateTime"`
}
