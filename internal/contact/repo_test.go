package contact

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tecbunny/tecbunny-backend/pkg/db/models"
	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	"github.com/tecbunny/tecbunny-backend/pkg/pagination"
)

func setupContactTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS contact_messages (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL,
  phone TEXT,
  subject TEXT NOT NULL,
  message TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'open',
  responded_by TEXT,
  responded_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	require.NoError(t, db.Exec("DELETE FROM contact_messages").Error)
	return db
}

func seedMessage(t *testing.T, db *gorm.DB, status enums.ContactStatus, createdAt time.Time) *models.ContactMessage {
	t.Helper()

	message := &models.ContactMessage{
		ID:        uuid.New(),
		Name:      "Ravi Kumar",
		Email:     "ravi@example.in",
		Subject:   "Delivery delay",
		Message:   "My order has not arrived yet.",
		Status:    status,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	require.NoError(t, db.Create(message).Error)
	return message
}

func TestContactRepoUpdateStampsAdmin(t *testing.T) {
	db := setupContactTestDB(t)
	repo := NewRepository(db)

	message := seedMessage(t, db, enums.ContactStatusOpen, time.Now().UTC())
	adminID := uuid.New()
	now := time.Now().UTC()

	err := repo.Update(context.Background(), message.ID, map[string]any{
		"status":       enums.ContactStatusResponded,
		"responded_by": adminID,
		"responded_at": now,
	})
	require.NoError(t, err)

	reloaded, err := repo.FindByID(context.Background(), message.ID)
	require.NoError(t, err)
	require.Equal(t, enums.ContactStatusResponded, reloaded.Status)
	require.NotNil(t, reloaded.RespondedBy)
	require.Equal(t, adminID, *reloaded.RespondedBy)
	require.NotNil(t, reloaded.RespondedAt)
}

func TestContactRepoUpdateMissingRow(t *testing.T) {
	db := setupContactTestDB(t)
	repo := NewRepository(db)

	err := repo.Update(context.Background(), uuid.New(), map[string]any{
		"status": enums.ContactStatusClosed,
	})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestContactRepoAdminListFiltersAndPaginates(t *testing.T) {
	db := setupContactTestDB(t)
	repo := NewRepository(db)

	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	var open []*models.ContactMessage
	for i := 0; i < 3; i++ {
		open = append(open, seedMessage(t, db, enums.ContactStatusOpen, base.Add(time.Duration(i)*time.Minute)))
	}
	seedMessage(t, db, enums.ContactStatusClosed, base.Add(10*time.Minute))

	status := enums.ContactStatusOpen
	page, err := repo.AdminList(context.Background(), AdminListInput{
		Status:     &status,
		Pagination: pagination.Params{Limit: 2},
	})
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	require.NotEmpty(t, page.NextCursor)
	require.Equal(t, open[2].ID, page.Messages[0].ID)
	require.Equal(t, open[1].ID, page.Messages[1].ID)

	rest, err := repo.AdminList(context.Background(), AdminListInput{
		Status:     &status,
		Pagination: pagination.Params{Limit: 2, Cursor: page.NextCursor},
	})
	require.NoError(t, err)
	require.Len(t, rest.Messages, 1)
	require.Empty(t, rest.NextCursor)
	require.Equal(t, open[0].ID, rest.Messages[0].ID)
}
