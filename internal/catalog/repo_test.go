package catalog

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
	"github.com/tecbunny/tecbunny-backend/pkg/pagination"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  slug TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  description TEXT,
  category TEXT NOT NULL,
  brand TEXT,
  price NUMERIC NOT NULL,
  mrp NUMERIC NOT NULL,
  stock_qty INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  is_featured INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	productMedia := `
CREATE TABLE IF NOT EXISTS product_media (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  object_key TEXT NOT NULL,
  url TEXT NOT NULL,
  position INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(products).Error)
	require.NoError(t, db.Exec(productMedia).Error)
	require.NoError(t, db.Exec("DELETE FROM product_media").Error)
	require.NoError(t, db.Exec("DELETE FROM products").Error)
	return db
}

func newProduct(t *testing.T, db *gorm.DB, slug string, price string, created time.Time, opts ...func(*models.Product)) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:        uuid.New(),
		Slug:      slug,
		Name:      "Product " + slug,
		Category:  enums.ProductCategoryAudio,
		Price:     decimal.RequireFromString(price),
		MRP:       decimal.RequireFromString(price),
		StockQty:  10,
		IsActive:  true,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(product)
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func TestListSummariesFiltersInactive(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)

	base := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	newProduct(t, db, "active-speaker", "1999.00", base)
	newProduct(t, db, "archived-speaker", "1499.00", base.Add(time.Minute), func(p *models.Product) {
		p.IsActive = false
	})

	list, err := repo.ListSummaries(context.Background(), ListInput{})
	require.NoError(t, err)
	require.Len(t, list.Products, 1)
	require.Equal(t, "active-speaker", list.Products[0].Slug)
}

func TestListSummariesCategoryAndPriceFilters(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)

	base := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	newProduct(t, db, "budget-earbuds", "499.00", base)
	newProduct(t, db, "flagship-earbuds", "4999.00", base.Add(time.Minute))
	newProduct(t, db, "usb-hub", "1299.00", base.Add(2*time.Minute), func(p *models.Product) {
		p.Category = enums.ProductCategoryComputing
	})

	category := enums.ProductCategoryAudio
	priceMax := decimal.RequireFromString("1000.00")
	list, err := repo.ListSummaries(context.Background(), ListInput{
		Filters: ListFilters{
			Category: &category,
			PriceMax: &priceMax,
		},
	})
	require.NoError(t, err)
	require.Len(t, list.Products, 1)
	require.Equal(t, "budget-earbuds", list.Products[0].Slug)
}

func TestListSummariesSearchMatchesNameAndBrand(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)

	base := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	brand := "Soundcore"
	newProduct(t, db, "wireless-earbuds", "1999.00", base, func(p *models.Product) {
		p.Brand = &brand
	})
	newProduct(t, db, "power-bank", "899.00", base.Add(time.Minute))

	list, err := repo.ListSummaries(context.Background(), ListInput{
		Filters: ListFilters{Query: "soundcore"},
	})
	require.NoError(t, err)
	require.Len(t, list.Products, 1)
	require.Equal(t, "wireless-earbuds", list.Products[0].Slug)
}

func TestListSummariesCursorPagination(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)

	base := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		newProduct(t, db, "item-"+string(rune('a'+i)), "100.00", base.Add(time.Duration(i)*time.Minute))
	}

	first, err := repo.ListSummaries(context.Background(), ListInput{
		Pagination: pagination.Params{Limit: 2},
	})
	require.NoError(t, err)
	require.Len(t, first.Products, 2)
	require.NotEmpty(t, first.NextCursor)
	require.Equal(t, "item-e", first.Products[0].Slug)
	require.Equal(t, "item-d", first.Products[1].Slug)

	second, err := repo.ListSummaries(context.Background(), ListInput{
		Pagination: pagination.Params{Limit: 2, Cursor: first.NextCursor},
	})
	require.NoError(t, err)
	require.Len(t, second.Products, 2)
	require.Equal(t, "item-c", second.Products[0].Slug)
	require.Equal(t, "item-b", second.Products[1].Slug)

	third, err := repo.ListSummaries(context.Background(), ListInput{
		Pagination: pagination.Params{Limit: 2, Cursor: second.NextCursor},
	})
	require.NoError(t, err)
	require.Len(t, third.Products, 1)
	require.Empty(t, third.NextCursor)
}

func TestListSummariesIncludesFirstImage(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)

	base := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	product := newProduct(t, db, "smart-plug", "999.00", base)
	require.NoError(t, db.Create(&models.ProductMedia{
		ID:        uuid.New(),
		ProductID: product.ID,
		ObjectKey: "products/smart-plug/2.jpg",
		URL:       "https://storage.googleapis.com/tb-media/products/smart-plug/2.jpg",
		Position:  2,
	}).Error)
	require.NoError(t, db.Create(&models.ProductMedia{
		ID:        uuid.New(),
		ProductID: product.ID,
		ObjectKey: "products/smart-plug/1.jpg",
		URL:       "https://storage.googleapis.com/tb-media/products/smart-plug/1.jpg",
		Position:  1,
	}).Error)

	list, err := repo.ListSummaries(context.Background(), ListInput{})
	require.NoError(t, err)
	require.Len(t, list.Products, 1)
	require.NotNil(t, list.Products[0].ImageURL)
	require.Contains(t, *list.Products[0].ImageURL, "/1.jpg")
}

func TestAdjustStockGuardsUnderflow(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)

	base := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	product := newProduct(t, db, "hdmi-cable", "299.00", base, func(p *models.Product) {
		p.StockQty = 3
	})

	applied, err := repo.AdjustStock(context.Background(), product.ID, -2)
	require.NoError(t, err)
	require.True(t, applied)

	applied, err = repo.AdjustStock(context.Background(), product.ID, -5)
	require.NoError(t, err)
	require.False(t, applied)

	reloaded, err := repo.FindByID(context.Background(), product.ID)
	require.NoError(t, err)
	require.Equal(t, 1, reloaded.StockQty)
}

func TestSlugExistsExcludesSelf(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)

	base := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	product := newProduct(t, db, "gaming-mouse", "1599.00", base)

	taken, err := repo.SlugExists(context.Background(), "gaming-mouse", nil)
	require.NoError(t, err)
	require.True(t, taken)

	taken, err = repo.SlugExists(context.Background(), "gaming-mouse", &product.ID)
	require.NoError(t, err)
	require.False(t, taken)
}
