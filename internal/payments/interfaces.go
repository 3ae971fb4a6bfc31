package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tecbunny/tecbunny-backend/pkg/db/models"
)

// Repository defines persistence operations for payment transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, txn *models.PaymentTransaction) (*models.PaymentTransaction, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentTransaction, error)
	FindByMerchantTxnID(ctx context.Context, merchantTxnID string) (*models.PaymentTransaction, error)
	FindByProviderOrderID(ctx context.Context, providerOrderID string) (*models.PaymentTransaction, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentTransaction, error)
	ListUnresolvedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.PaymentTransaction, error)
	HasSuccessfulTxn(ctx context.Context, orderID uuid.UUID) (bool, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}
