package commissions

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tecbunny/tecbunny-backend/internal/settings"
	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	pkgerrors "github.com/tecbunny/tecbunny-backend/pkg/errors"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubRateSource struct {
	rate *settings.CommissionRate
	err  error
}

func (s *stubRateSource) CommissionRate(ctx context.Context) (*settings.CommissionRate, error) {
	return s.rate, s.err
}

func percentageRate(value string) *stubRateSource {
	return &stubRateSource{rate: &settings.CommissionRate{
		Type:  enums.CommissionRatePercentage,
		Value: decimal.RequireFromString(value),
	}}
}

func TestAwardPercentageRate(t *testing.T) {
	db := setupCommissionsTestDB(t)
	repo := NewRepository(db)
	svc, err := NewService(repo, stubTxRunner{}, percentageRate("2.5"))
	require.NoError(t, err)

	agent := seedAgent(t, db, "10.00")
	commission, err := svc.Award(context.Background(), AwardInput{
		OrderID:    uuid.New(),
		AgentID:    agent.ID,
		OrderTotal: decimal.RequireFromString("999.00"),
	})
	require.NoError(t, err)
	require.True(t, commission.Points.Equal(decimal.RequireFromString("24.98")))
	require.Equal(t, enums.CommissionRatePercentage, commission.RateType)

	reloaded, err := repo.FindAgent(context.Background(), agent.ID)
	require.NoError(t, err)
	require.True(t, reloaded.PointsBalance.Equal(decimal.RequireFromString("34.98")))
}

func TestAwardFixedPerRupeeRate(t *testing.T) {
	db := setupCommissionsTestDB(t)
	repo := NewRepository(db)
	svc, err := NewService(repo, stubTxRunner{}, &stubRateSource{rate: &settings.CommissionRate{
		Type:  enums.CommissionRateFixedPerRupee,
		Value: decimal.RequireFromString("0.02"),
	}})
	require.NoError(t, err)

	agent := seedAgent(t, db, "0")
	commission, err := svc.Award(context.Background(), AwardInput{
		OrderID:    uuid.New(),
		AgentID:    agent.ID,
		OrderTotal: decimal.RequireFromString("1499.00"),
	})
	require.NoError(t, err)
	require.True(t, commission.Points.Equal(decimal.RequireFromString("29.98")))
}

func TestAwardDuplicateOrderIsNoOp(t *testing.T) {
	db := setupCommissionsTestDB(t)
	repo := NewRepository(db)
	svc, err := NewService(repo, stubTxRunner{}, percentageRate("2.5"))
	require.NoError(t, err)

	agent := seedAgent(t, db, "0")
	orderID := uuid.New()
	input := AwardInput{
		OrderID:    orderID,
		AgentID:    agent.ID,
		OrderTotal: decimal.RequireFromString("999.00"),
	}

	first, err := svc.Award(context.Background(), input)
	require.NoError(t, err)

	second, err := svc.Award(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	reloaded, err := repo.FindAgent(context.Background(), agent.ID)
	require.NoError(t, err)
	require.True(t, reloaded.PointsBalance.Equal(decimal.RequireFromString("24.98")))
	require.True(t, reloaded.TotalEarned.Equal(decimal.RequireFromString("24.98")))
}

func TestAwardConcurrentOrdersAccumulateBalance(t *testing.T) {
	db := setupCommissionsTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// sqlite tolerates one writer; the guarded single-statement credit is
	// what keeps concurrent awards from losing increments, not the pool.
	sqlDB.SetMaxOpenConns(1)

	repo := NewRepository(db)
	svc, err := NewService(repo, stubTxRunner{}, percentageRate("2.5"))
	require.NoError(t, err)

	agent := seedAgent(t, db, "0")

	const workers = 16
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, awardErr := svc.Award(context.Background(), AwardInput{
				OrderID:    uuid.New(),
				AgentID:    agent.ID,
				OrderTotal: decimal.RequireFromString("100.00"),
			})
			errs <- awardErr
		}()
	}
	wg.Wait()
	close(errs)
	for awardErr := range errs {
		require.NoError(t, awardErr)
	}

	// 2.50 points per order, every one of the 16 must land.
	want := decimal.RequireFromString("2.50").Mul(decimal.NewFromInt(workers))
	reloaded, err := repo.FindAgent(context.Background(), agent.ID)
	require.NoError(t, err)
	require.True(t, reloaded.PointsBalance.Equal(want))
	require.True(t, reloaded.TotalEarned.Equal(want))
}

func TestAwardUnknownAgent(t *testing.T) {
	db := setupCommissionsTestDB(t)
	repo := NewRepository(db)
	svc, err := NewService(repo, stubTxRunner{}, percentageRate("2.5"))
	require.NoError(t, err)

	_, err = svc.Award(context.Background(), AwardInput{
		OrderID:    uuid.New(),
		AgentID:    uuid.New(),
		OrderTotal: decimal.RequireFromString("100.00"),
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestAwardValidation(t *testing.T) {
	db := setupCommissionsTestDB(t)
	repo := NewRepository(db)
	svc, err := NewService(repo, stubTxRunner{}, percentageRate("2.5"))
	require.NoError(t, err)

	agent := seedAgent(t, db, "0")

	_, err = svc.Award(context.Background(), AwardInput{AgentID: agent.ID, OrderTotal: decimal.NewFromInt(10)})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())

	_, err = svc.Award(context.Background(), AwardInput{
		OrderID:    uuid.New(),
		AgentID:    agent.ID,
		OrderTotal: decimal.RequireFromString("-1"),
	})
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
