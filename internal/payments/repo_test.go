package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tecbunny/tecbunny-backend/pkg/db/models"
	"github.com/tecbunny/tecbunny-backend/pkg/enums"
)

func setupPaymentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS payment_transactions (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  provider TEXT NOT NULL,
  merchant_txn_id TEXT NOT NULL UNIQUE,
  provider_order_id TEXT,
  provider_txn_id TEXT,
  status TEXT NOT NULL DEFAULT 'initiated',
  amount NUMERIC NOT NULL,
  raw_payload TEXT,
  failure_reason TEXT,
  completed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	require.NoError(t, db.Exec("DELETE FROM payment_transactions").Error)
	return db
}

func seedTxn(t *testing.T, db *gorm.DB, status enums.PaymentTxnStatus, created time.Time) *models.PaymentTransaction {
	t.Helper()

	txn := &models.PaymentTransaction{
		ID:            uuid.New(),
		OrderID:       uuid.New(),
		Provider:      enums.PaymentProviderPhonePe,
		MerchantTxnID: "TB-SEED-" + uuid.NewString()[:12],
		Status:        status,
		Amount:        decimal.RequireFromString("998.00"),
		CreatedAt:     created,
		UpdatedAt:     created,
	}
	require.NoError(t, db.Create(txn).Error)
	return txn
}

func TestCreateAndFindTransaction(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)

	providerOrderID := "order_R6qX1"
	txn := &models.PaymentTransaction{
		ID:              uuid.New(),
		OrderID:         uuid.New(),
		Provider:        enums.PaymentProviderRazorpay,
		MerchantTxnID:   "TB-ABCD2345-1716212345678",
		ProviderOrderID: &providerOrderID,
		Status:          enums.PaymentTxnStatusInitiated,
		Amount:          decimal.RequireFromString("1499.00"),
	}
	_, err := repo.Create(context.Background(), txn)
	require.NoError(t, err)

	byID, err := repo.FindByID(context.Background(), txn.ID)
	require.NoError(t, err)
	require.True(t, byID.Amount.Equal(decimal.RequireFromString("1499.00")))

	byMerchant, err := repo.FindByMerchantTxnID(context.Background(), "TB-ABCD2345-1716212345678")
	require.NoError(t, err)
	require.Equal(t, txn.ID, byMerchant.ID)

	byProviderOrder, err := repo.FindByProviderOrderID(context.Background(), "order_R6qX1")
	require.NoError(t, err)
	require.Equal(t, txn.ID, byProviderOrder.ID)

	_, err = repo.FindByMerchantTxnID(context.Background(), "TB-MISSING")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListUnresolvedBefore(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)

	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	stale := seedTxn(t, db, enums.PaymentTxnStatusInitiated, base)
	pending := seedTxn(t, db, enums.PaymentTxnStatusPending, base.Add(time.Minute))
	seedTxn(t, db, enums.PaymentTxnStatusSuccess, base)
	seedTxn(t, db, enums.PaymentTxnStatusInitiated, base.Add(2*time.Hour))

	rows, err := repo.ListUnresolvedBefore(context.Background(), base.Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, stale.ID, rows[0].ID)
	require.Equal(t, pending.ID, rows[1].ID)
}

func TestHasSuccessfulTxn(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)

	txn := seedTxn(t, db, enums.PaymentTxnStatusSuccess, time.Now().UTC())

	ok, err := repo.HasSuccessfulTxn(context.Background(), txn.OrderID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.HasSuccessfulTxn(context.Background(), uuid.New())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestListByOrderNewestFirst(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)

	orderID := uuid.New()
	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	first := seedTxn(t, db, enums.PaymentTxnStatusFailed, base)
	second := seedTxn(t, db, enums.PaymentTxnStatusSuccess, base.Add(time.Minute))
	require.NoError(t, db.Model(&models.PaymentTransaction{}).
		Where("id IN ?", []uuid.UUID{first.ID, second.ID}).
		Update("order_id", orderID).Error)

	rows, err := repo.ListByOrder(context.Background(), orderID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, second.ID, rows[0].ID)
	require.Equal(t, first.ID, rows[1].ID)
}

func TestUpdateMissingTransaction(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)

	err := repo.Update(context.Background(), uuid.New(), map[string]any{"status": enums.PaymentTxnStatusFailed})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
