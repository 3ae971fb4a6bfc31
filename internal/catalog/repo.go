package catalog

import (
	"context"
	"database/sql"
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

// NewRepository builds the catalog repository on the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindByID loads a product with its media ordered for display.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Media", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&product, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindBySlug loads a product by its storefront slug.
func (r *repository) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Media", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&product, "slug = ?", slug).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// SlugExists reports whether another product already claims the slug.
func (r *repository) SlugExists(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error) {
	qb := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("slug = ?", slug)
	if excludeID != nil {
		qb = qb.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := qb.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a new product row.
func (r *repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Update saves the full product row.
func (r *repository) Update(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// AdjustStock applies a signed delta guarded against going negative.
// The false return means the product is missing or the decrement would
// underflow; callers disambiguate with a follow-up read.
func (r *repository) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE products
		SET stock_qty = stock_qty + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stock_qty + ? >= 0
	`, delta, id, delta)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListSummaries returns one storefront page using keyset pagination on
// (created_at, id) descending.
func (r *repository) ListSummaries(ctx context.Context, input ListInput) (*ProductList, error) {
	pageSize := pagination.NormalizeLimit(input.Pagination.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(input.Pagination.Limit)
	if limitWithBuffer <= pageSize {
		limitWithBuffer = pageSize + 1
	}

	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, err
	}

	imageClause := `(
  SELECT pm.url FROM product_media pm
  WHERE pm.product_id = p.id
  ORDER BY pm.position ASC
  LIMIT 1
) AS image_url`

	qb := r.db.WithContext(ctx).
		Table("products p").
		Select(strings.Join([]string{
			"p.id",
			"p.slug",
			"p.name",
			"p.category",
			"p.brand",
			"p.price",
			"p.mrp",
			"p.stock_qty",
			"p.is_featured",
			"p.created_at",
			imageClause,
		}, ", "))

	if !input.IncludeInactive {
		qb = qb.Where("p.is_active = ?", true)
	}

	filter := input.Filters
	if filter.Category != nil {
		qb = qb.Where("p.category = ?", *filter.Category)
	}
	if filter.PriceMin != nil {
		qb = qb.Where("p.price >= ?", *filter.PriceMin)
	}
	if filter.PriceMax != nil {
		qb = qb.Where("p.price <= ?", *filter.PriceMax)
	}
	if filter.Featured != nil {
		qb = qb.Where("p.is_featured = ?", *filter.Featured)
	}
	if search := strings.TrimSpace(filter.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(p.name) LIKE ? OR LOWER(COALESCE(p.brand, '')) LIKE ?)", pattern, pattern)
	}

	if cursor != nil {
		qb = qb.Where("(p.created_at < ?) OR (p.created_at = ? AND p.id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	qb = qb.Order("p.created_at DESC").Order("p.id DESC").Limit(limitWithBuffer)

	var records []productSummaryRecord
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

	summaries := make([]ProductSummary, 0, len(resultRows))
	for _, record := range resultRows {
		summaries = append(summaries, record.toSummary())
	}

	return &ProductList{
		Products:   summaries,
		NextCursor: nextCursor,
	}, nil
}

type productSummaryRecord struct {
	ID         uuid.UUID
	Slug       string
	Name       string
	Category   string
	Brand      sql.NullString
	Price      decimal.Decimal
	MRP        decimal.Decimal
	StockQty   int
	IsFeatured bool
	ImageURL   sql.NullString
	CreatedAt  time.Time
}

func (r productSummaryRecord) toSummary() ProductSummary {
	return ProductSummary{
		ID:         r.ID,
		Slug:       r.Slug,
		Name:       r.Name,
		Category:   enums.ProductCategory(r.Category),
		Brand:      nullStringPtr(r.Brand),
		Price:      r.Price,
		MRP:        r.MRP,
		InStock:    r.StockQty > 0,
		IsFeatured: r.IsFeatured,
		ImageURL:   nullStringPtr(r.ImageURL),
		CreatedAt:  r.CreatedAt,
	}
}

func nullStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	v := value.String
	return &v
}
