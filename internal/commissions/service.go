package commissions

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tecbunny/tecbunny-backend/internal/settings"
	dbpkg "github.com/tecbunny/tecbunny-backend/pkg/db"
	"github.com/tecbunny/tecbunny-backend/pkg/db/models"
	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	pkgerrors "github.com/tecbunny/tecbunny-backend/pkg/errors"
	"github.com/tecbunny/tecbunny-backend/pkg/money"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type rateSource interface {
	CommissionRate(ctx context.Context) (*settings.CommissionRate, error)
}

// AwardInput describes a paid, agent-attributed order.
type AwardInput struct {
	OrderID    uuid.UUID
	AgentID    uuid.UUID
	OrderTotal decimal.Decimal
}

// Service awards referral commission for successful payments.
type Service interface {
	Award(ctx context.Context, input AwardInput) (*models.Commission, error)
}

type service struct {
	repo  Repository
	tx    txRunner
	rates rateSource
}

// NewService builds the commissions service.
func NewService(repo Repository, tx txRunner, rates rateSource) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("commissions repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if rates == nil {
		return nil, fmt.Errorf("commission rate source required")
	}
	return &service{repo: repo, tx: tx, rates: rates}, nil
}

// Award writes the commission row and credits the agent balance in one
// transaction. The row snapshots the rate in force so later rate changes
// never rewrite history, and the unique index on order_id makes redelivery
// of the same payment a no-op: the existing award is returned unchanged.
func (s *service) Award(ctx context.Context, input AwardInput) (*models.Commission, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.AgentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent id required")
	}
	if input.OrderTotal.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total cannot be negative")
	}

	agent, err := s.repo.FindAgent(ctx, input.AgentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "agent not found").
				WithDetails(map[string]any{"agent_id": input.AgentID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup agent")
	}

	rate, err := s.rates.CommissionRate(ctx)
	if err != nil {
		return nil, err
	}
	points := computePoints(input.OrderTotal, rate)

	commission := &models.Commission{
		ID:         uuid.New(),
		AgentID:    agent.ID,
		OrderID:    input.OrderID,
		OrderTotal: money.Round2(input.OrderTotal),
		RateType:   rate.Type,
		RateValue:  rate.Value,
		Points:     points,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.Create(ctx, commission); err != nil {
			return err
		}
		return repo.CreditPoints(ctx, agent.ID, points)
	})
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "order_id") {
			existing, findErr := s.repo.FindByOrder(ctx, input.OrderID)
			if findErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load existing commission")
			}
			return existing, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "award commission")
	}
	return commission, nil
}

func computePoints(total decimal.Decimal, rate *settings.CommissionRate) decimal.Decimal {
	switch rate.Type {
	case enums.CommissionRatePercentage:
		return money.Round2(total.Mul(rate.Value).Div(decimal.NewFromInt(100)))
	default:
		return money.Round2(total.Mul(rate.Value))
	}
}
