package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tecbunny/tecbunny-backend/pkg/enums"
)

// SalesAgent is the referral-program profile attached to a user account.
// PointsBalance only ever moves through atomic SQL increments so that
// concurrent commission awards and redemptions cannot lose updates.
type SalesAgent struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID         `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	ReferralCode  string            `gorm:"column:referral_code;not null;uniqueIndex"`
	Status        enums.AgentStatus `gorm:"column:status;type:agent_status;not null;default:'pending'"`
	PointsBalance decimal.Decimal   `gorm:"column:points_balance;type:numeric(12,2);not null;default:0"`
	TotalEarned   decimal.Decimal   `gorm:"column:total_earned;type:numeric(12,2);not null;default:0"`
	UPIHandle     *string           `gorm:"column:upi_handle"`
	DecidedBy     *uuid.UUID        `gorm:"column:decided_by;type:uuid"`
	DecidedAt     *time.Time        `gorm:"column:decided_at"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`

	User *User `gorm:"foreignKey:UserID"`
}
