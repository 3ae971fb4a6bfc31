package commissions

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tecbunny/tecbunny-backend/pkg/db/models"
)

// Repository persists commission awards and the matching agent balance
// credits.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, commission *models.Commission) (*models.Commission, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Commission, error)
	FindAgent(ctx context.Context, agentID uuid.UUID) (*models.SalesAgent, error)

	// CreditPoints adds earned points to the agent balance in a single
	// statement so concurrent awards cannot lose updates.
	CreditPoints(ctx context.Context, agentID uuid.UUID, points decimal.Decimal) error
}
