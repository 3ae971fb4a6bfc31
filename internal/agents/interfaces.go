package agents

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tecbunny/tecbunny-backend/pkg/db/models"
	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	"github.com/tecbunny/tecbunny-backend/pkg/pagination"
)

// Repository persists sales agents, their commission history and
// redemption requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateAgent(ctx context.Context, agent *models.SalesAgent) (*models.SalesAgent, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.SalesAgent, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.SalesAgent, error)
	UpdateAgent(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListAdmin(ctx context.Context, input AdminListInput) (*AgentList, error)

	// DeductPoints reserves points for a redemption. The false return
	// means the balance was below the requested amount.
	DeductPoints(ctx context.Context, agentID uuid.UUID, points decimal.Decimal) (bool, error)
	RestorePoints(ctx context.Context, agentID uuid.UUID, points decimal.Decimal) error

	ListCommissions(ctx context.Context, agentID uuid.UUID, params pagination.Params) (*CommissionList, error)

	CreateRedemption(ctx context.Context, redemption *models.Redemption) (*models.Redemption, error)
	FindRedemption(ctx context.Context, id uuid.UUID) (*models.Redemption, error)
	UpdateRedemption(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListRedemptions(ctx context.Context, input RedemptionListInput) (*RedemptionList, error)

	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateUserRole(ctx context.Context, userID uuid.UUID, role enums.UserRole) error
}
