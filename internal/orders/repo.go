package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tecbunny/tecbunny-backend/pkg/db/models"
	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	"github.com/tecbunny/tecbunny-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateOrder inserts the order together with its line items.
func (r *repository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// FindByID loads an order with items and payment transactions.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Transactions", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		First(&order, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByNumber loads an order by its public order number.
func (r *repository) FindByNumber(ctx context.Context, number string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&order, "order_number = ?", number).
		Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByUser returns the customer's own orders newest first.
func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	return r.listSummaries(ctx, params, func(qb *gorm.DB) *gorm.DB {
		return qb.Where("o.user_id = ?", userID)
	})
}

// ListAdmin returns the back-office listing with optional filters.
func (r *repository) ListAdmin(ctx context.Context, input AdminListInput) (*OrderList, error) {
	return r.listSummaries(ctx, input.Pagination, func(qb *gorm.DB) *gorm.DB {
		filter := input.Filters
		if filter.Status != nil {
			qb = qb.Where("o.status = ?", *filter.Status)
		}
		if search := strings.TrimSpace(filter.Query); search != "" {
			pattern := "%" + strings.ToLower(search) + "%"
			qb = qb.Where(
				"(LOWER(o.order_number) LIKE ? OR LOWER(o.customer_name) LIKE ? OR LOWER(o.customer_email) LIKE ?)",
				pattern, pattern, pattern,
			)
		}
		return qb
	})
}

func (r *repository) listSummaries(ctx context.Context, params pagination.Params, scope func(*gorm.DB) *gorm.DB) (*OrderList, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)
	if limitWithBuffer <= pageSize {
		limitWithBuffer = pageSize + 1
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).
		Table("orders o").
		Select(strings.Join([]string{
			"o.id",
			"o.order_number",
			"o.status",
			"o.total",
			"o.customer_name",
			"o.placed_at",
			"o.created_at",
			"(SELECT COUNT(*) FROM order_items oi WHERE oi.order_id = o.id) AS item_count",
		}, ", "))
	qb = scope(qb)

	if cursor != nil {
		qb = qb.Where("(o.created_at < ?) OR (o.created_at = ? AND o.id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	qb = qb.Order("o.created_at DESC").Order("o.id DESC").Limit(limitWithBuffer)

	var records []orderSummaryRecord
	if err := qb.Scan(&records).Error; err != nil {
		return nil, err
	}

	resultRows := records
	nextCursor := ""
	if len(records) > pageSize {
		resultRows = records[:pageSize]
		last := resultRows[len(resultRows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	summaries := make([]OrderSummary, 0, len(resultRows))
	for _, record := range resultRows {
		summaries = append(summaries, record.toSummary())
	}

	return &OrderList{
		Orders:     summaries,
		NextCursor: nextCursor,
	}, nil
}

// ListPendingBefore returns pending orders placed before the cutoff,
// used by the expiry job.
func (r *repository) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND placed_at < ?", enums.OrderStatusPending, cutoff).
		Order("placed_at ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateOrder applies the given column updates to one order row.
func (r *repository) UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindProductsByIDs loads catalog rows for the intake price snapshot.
func (r *repository) FindProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DecrementStock takes qty units guarded against overselling. The
// false return means the product had fewer units than requested.
func (r *repository) DecrementStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE products
		SET stock_qty = stock_qty - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stock_qty >= ?
	`, qty, productID, qty)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RestoreStock returns qty units after a cancellation.
func (r *repository) RestoreStock(ctx context.Context, productID uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE products
		SET stock_qty = stock_qty + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty, productID).Error
}

// FindApprovedAgentByCode resolves a referral code to an approved agent.
func (r *repository) FindApprovedAgentByCode(ctx context.Context, code string) (*models.SalesAgent, error) {
	var agent models.SalesAgent
	err := r.db.WithContext(ctx).
		Where("referral_code = ? AND status = ?", code, enums.AgentStatusApproved).
		First(&agent).
		Error
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

type orderSummaryRecord struct {
	ID           uuid.UUID
	OrderNumber  string
	Status       string
	Total        decimal.Decimal
	CustomerName string
	PlacedAt     time.Time
	CreatedAt    time.Time
	ItemCount    int
}

func (r orderSummaryRecord) toSummary() OrderSummary {
	return OrderSummary{
		ID:           r.ID,
		OrderNumber:  r.OrderNumber,
		Status:       enums.OrderStatus(r.Status),
		Total:        r.Total,
		ItemCount:    r.ItemCount,
		CustomerName: r.CustomerName,
		PlacedAt:     r.PlacedAt,
		CreatedAt:    r.CreatedAt,
	}
}
