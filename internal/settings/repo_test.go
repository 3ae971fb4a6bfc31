package settings

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tecbunny/tecbunny-backend/pkg/db/models"
)

func setupSettingsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS settings (
  id TEXT PRIMARY KEY,
  key TEXT NOT NULL,
  value TEXT NOT NULL,
  updated_by TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	require.NoError(t, db.Exec("DELETE FROM settings").Error)
	return db
}

func insertSetting(t *testing.T, db *gorm.DB, key, value string, updatedAt time.Time) *models.Setting {
	t.Helper()

	row := &models.Setting{
		ID:        uuid.New(),
		Key:       key,
		Value:     json.RawMessage(value),
		CreatedAt: updatedAt,
		UpdatedAt: updatedAt,
	}
	require.NoError(t, db.Create(row).Error)
	return row
}

func TestFindLatestByKeyCollapsesDuplicates(t *testing.T) {
	db := setupSettingsTestDB(t)
	repo := NewRepository(db)

	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	insertSetting(t, db, "commission.rate", `{"type":"percentage","value":3}`, base)
	insertSetting(t, db, "commission.rate", `{"type":"percentage","value":5}`, base.Add(2*time.Hour))
	insertSetting(t, db, "commission.rate", `{"type":"percentage","value":4}`, base.Add(time.Hour))

	row, err := repo.FindLatestByKey(context.Background(), "commission.rate")
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"percentage","value":5}`, string(row.Value))
}

func TestFindLatestByKeyNotFound(t *testing.T) {
	db := setupSettingsTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindLatestByKey(context.Background(), "missing.key")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListLatestReturnsOneRowPerKey(t *testing.T) {
	db := setupSettingsTestDB(t)
	repo := NewRepository(db)

	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	insertSetting(t, db, "commission.rate", `{"type":"percentage","value":3}`, base)
	insertSetting(t, db, "commission.rate", `{"type":"percentage","value":5}`, base.Add(time.Hour))
	insertSetting(t, db, "payment_gateway.phonepe", `{"enabled":true}`, base)

	rows, err := repo.ListLatest(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byKey := make(map[string]string, len(rows))
	for _, row := range rows {
		byKey[row.Key] = string(row.Value)
	}
	require.JSONEq(t, `{"type":"percentage","value":5}`, byKey["commission.rate"])
	require.JSONEq(t, `{"enabled":true}`, byKey["payment_gateway.phonepe"])
}

func TestUpdateValueRewritesRow(t *testing.T) {
	db := setupSettingsTestDB(t)
	repo := NewRepository(db)

	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	row := insertSetting(t, db, "notification.recipients", `{"emails":[]}`, base)

	admin := uuid.New()
	err := repo.UpdateValue(context.Background(), row.ID, json.RawMessage(`{"emails":["ops@tecbunny.in"]}`), &admin)
	require.NoError(t, err)

	reloaded, err := repo.FindLatestByKey(context.Background(), "notification.recipients")
	require.NoError(t, err)
	require.JSONEq(t, `{"emails":["ops@tecbunny.in"]}`, string(reloaded.Value))
	require.NotNil(t, reloaded.UpdatedBy)
	require.Equal(t, admin, *reloaded.UpdatedBy)
}

func TestUpdateValueMissingRow(t *testing.T) {
	db := setupSettingsTestDB(t)
	repo := NewRepository(db)

	err := repo.UpdateValue(context.Background(), uuid.New(), json.RawMessage(`{}`), nil)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
