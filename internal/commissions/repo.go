package commissions

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tecbunny/tecbunny-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a commissions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, commission *models.Commission) (*models.Commission, error) {
	if err := r.db.WithContext(ctx).Create(commission).Error; err != nil {
		return nil, err
	}
	return commission, nil
}

func (r *repository) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Commission, error) {
	var commission models.Commission
	if err := r.db.WithContext(ctx).First(&commission, "order_id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &commission, nil
}

func (r *repository) FindAgent(ctx context.Context, agentID uuid.UUID) (*models.SalesAgent, error) {
	var agent models.SalesAgent
	if err := r.db.WithContext(ctx).First(&agent, "id = ?", agentID).Error; err != nil {
		return nil, err
	}
	return &agent, nil
}

// CreditPoints moves both counters in one statement. TotalEarned is the
// lifetime figure and never goes down, PointsBalance is what redemptions
// later draw from.
func (r *repository) CreditPoints(ctx context.Context, agentID uuid.UUID, points decimal.Decimal) error {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE sales_agents
		SET points_balance = points_balance + ?,
			total_earned = total_earned + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, points, points, agentID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
