package agents

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tecbunny/tecbunny-backend/pkg/db/models"
	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	"github.com/tecbunny/tecbunny-backend/pkg/pagination"
)

// ApplyInput carries the optional payout handle supplied with an application.
type ApplyInput struct {
	UPIHandle string
}

// Profile is the agent's own account view.
type Profile struct {
	AgentID       uuid.UUID
	ReferralCode  string
	Status        enums.AgentStatus
	PointsBalance decimal.Decimal
	TotalEarned   decimal.Decimal
	UPIHandle     *string
	AppliedAt     time.Time
	DecidedAt     *time.Time
}

// AdminListInput filters the back-office agent listing.
type AdminListInput struct {
	Status     *enums.AgentStatus
	Query      string
	Pagination pagination.Params
}

// AgentSummary is one row of the back-office agent listing.
type AgentSummary struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Name          string
	Email         string
	ReferralCode  string
	Status        enums.AgentStatus
	PointsBalance decimal.Decimal
	TotalEarned   decimal.Decimal
	CreatedAt     time.Time
}

// AgentList pairs a page of agents with the cursor for the next page.
type AgentList struct {
	Agents     []AgentSummary
	NextCursor string
}

// DecisionInput records an admin ruling on a pending application.
type DecisionInput struct {
	AgentID   uuid.UUID
	Decision  enums.AgentStatus
	DecidedBy uuid.UUID
}

// CommissionList pairs a page of commission rows with the next cursor.
type CommissionList struct {
	Commissions []models.Commission
	NextCursor  string
}

// RedemptionInput asks to convert earned points into a payout.
type RedemptionInput struct {
	Points    decimal.Decimal
	UPIHandle string
}

// RedemptionListInput filters the back-office redemption listing.
type RedemptionListInput struct {
	Status     *enums.RedemptionStatus
	AgentID    *uuid.UUID
	Pagination pagination.Params
}

// RedemptionSummary is one row of the back-office redemption listing.
type RedemptionSummary struct {
	ID           uuid.UUID
	AgentID      uuid.UUID
	ReferralCode string
	AgentName    string
	Points       decimal.Decimal
	Status       enums.RedemptionStatus
	UPIHandle    string
	RequestedAt  time.Time
	DecidedAt    *time.Time
	PaidAt       *time.Time
}

// RedemptionList pairs a page of redemptions with the next cursor.
type RedemptionList struct {
	Redemptions []RedemptionSummary
	NextCursor  string
}

// RedemptionDecisionInput records an admin ruling on a payout request.
type RedemptionDecisionInput struct {
	RedemptionID uuid.UUID
	Decision     enums.RedemptionStatus
	DecidedBy    uuid.UUID
	Note         string
}
