package media

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tecbunny/tecbunny-backend/pkg/db/models"
	"github.com/tecbunny/tecbunny-backend/pkg/enums"
)

func setupMediaTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
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
);
CREATE TABLE IF NOT EXISTS product_media (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  object_key TEXT NOT NULL,
  url TEXT NOT NULL,
  position INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	require.NoError(t, db.Exec("DELETE FROM product_media").Error)
	require.NoError(t, db.Exec("DELETE FROM products").Error)
	return db
}

func seedCatalogProduct(t *testing.T, db *gorm.DB) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:       uuid.New(),
		Slug:     "tb-router-" + uuid.NewString()[:8],
		Name:     "AX3000 Router",
		Category: enums.ProductCategoryNetworking,
		Price:    decimal.RequireFromString("2999.00"),
		MRP:      decimal.RequireFromString("3499.00"),
		IsActive: true,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func TestMediaRepoListOrdersByPosition(t *testing.T) {
	db := setupMediaTestDB(t)
	repo := NewRepository(db)

	product := seedCatalogProduct(t, db)
	for i, name := range []string{"side.png", "front.png", "back.png"} {
		_, err := repo.Create(context.Background(), &models.ProductMedia{
			ID:        uuid.New(),
			ProductID: product.ID,
			ObjectKey: "products/" + product.ID.String() + "/" + name,
			URL:       "https://example.com/" + name,
			Position:  2 - i,
		})
		require.NoError(t, err)
	}

	rows, err := repo.ListByProduct(context.Background(), product.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, 0, rows[0].Position)
	require.Equal(t, 2, rows[2].Position)

	count, err := repo.CountForProduct(context.Background(), product.ID)
	require.NoError(t, err)
	require.EqualValues(t, 3, count)
}

func TestMediaRepoDeleteMissingRow(t *testing.T) {
	db := setupMediaTestDB(t)
	repo := NewRepository(db)

	err := repo.Delete(context.Background(), uuid.New())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
