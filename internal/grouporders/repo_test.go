package grouporders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vendorconnect/vendorconnect-backend/pkg/db/models"
	"github.com/vendorconnect/vendorconnect-backend/pkg/enums"
	"github.com/vendorconnect/vendorconnect-backend/pkg/pagination"
	"github.com/vendorconnect/vendorconnect-backend/pkg/types"
)

func setupGroupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	groupOrders := `
CREATE TABLE IF NOT EXISTS group_orders (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  creator_store_id TEXT NOT NULL,
  target_quantity INTEGER NOT NULL,
  current_quantity INTEGER NOT NULL DEFAULT 0,
  max_participants INTEGER NOT NULL,
  participants TEXT,
  status TEXT NOT NULL DEFAULT 'active',
  deadline DATETIME NOT NULL,
  base_price_cents INTEGER NOT NULL,
  price_per_unit_cents INTEGER NOT NULL,
  estimated_savings_cents INTEGER NOT NULL DEFAULT 0,
  version INTEGER NOT NULL DEFAULT 1,
  ordered_at DATETIME,
  delivered_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(groupOrders).Error)
	return db
}

func createGroupOrder(t *testing.T, db *gorm.DB, mutators ...func(*models.GroupOrder)) *models.GroupOrder {
	t.Helper()

	record := &models.GroupOrder{
		ID:                uuid.New(),
		ProductID:         uuid.New(),
		CreatorStoreID:    uuid.New(),
		TargetQuantity:    10,
		MaxParticipants:   5,
		Participants:      types.Participants{},
		Status:            enums.GroupOrderStatusActive,
		Deadline:          time.Now().Add(24 * time.Hour).UTC(),
		BasePriceCents:    1000,
		PricePerUnitCents: 1000,
		Version:           1,
	}
	for _, mutate := range mutators {
		mutate(record)
	}
	require.NoError(t, db.Create(record).Error)
	return record
}

func TestRepositoryUpdateVersionedAdvancesVersion(t *testing.T) {
	db := setupGroupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	vendor := uuid.New()
	record := createGroupOrder(t, db)

	loaded, err := repo.Find(ctx, record.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), loaded.Version)

	loaded.Participants = types.Participants{vendor: 4}
	loaded.CurrentQuantity = 4
	require.NoError(t, repo.UpdateVersioned(ctx, loaded, 1))

	stored, err := repo.Find(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.Version)
	assert.Equal(t, 4, stored.CurrentQuantity)
	assert.Equal(t, 4, stored.Participants.Quantity(vendor))
}

func TestRepositoryUpdateVersionedRejectsStaleSnapshot(t *testing.T) {
	db := setupGroupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	record := createGroupOrder(t, db)

	first, err := repo.Find(ctx, record.ID)
	require.NoError(t, err)
	second, err := repo.Find(ctx, record.ID)
	require.NoError(t, err)

	first.CurrentQuantity = 3
	first.Participants = types.Participants{uuid.New(): 3}
	require.NoError(t, repo.UpdateVersioned(ctx, first, first.Version))

	second.CurrentQuantity = 5
	second.Participants = types.Participants{uuid.New(): 5}
	err = repo.UpdateVersioned(ctx, second, 1)
	assert.ErrorIs(t, err, ErrVersionConflict)

	// The losing write left nothing behind.
	stored, err := repo.Find(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.CurrentQuantity)
	assert.Equal(t, int64(2), stored.Version)
}

func TestRepositoryFindOverdueActive(t *testing.T) {
	db := setupGroupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	product := uuid.New()
	overdue := createGroupOrder(t, db, func(g *models.GroupOrder) {
		g.ProductID = product
		g.Deadline = time.Now().Add(-2 * time.Hour).UTC()
	})
	createGroupOrder(t, db, func(g *models.GroupOrder) {
		g.ProductID = product
	})
	createGroupOrder(t, db, func(g *models.GroupOrder) {
		g.ProductID = product
		g.Deadline = time.Now().Add(-2 * time.Hour).UTC()
		g.Status = enums.GroupOrderStatusCancelled
	})

	rows, err := repo.FindOverdueActive(ctx, time.Now().UTC())
	require.NoError(t, err)

	var ids []uuid.UUID
	for _, row := range rows {
		if row.ProductID == product {
			ids = append(ids, row.ID)
		}
	}
	require.Len(t, ids, 1)
	assert.Equal(t, overdue.ID, ids[0])
}

func TestRepositoryListPagesByCursor(t *testing.T) {
	db := setupGroupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	product := uuid.New()
	base := time.Now().Add(-time.Hour).UTC()
	for i := 0; i < 5; i++ {
		createGroupOrder(t, db, func(g *models.GroupOrder) {
			g.ProductID = product
			g.CreatedAt = base.Add(time.Duration(i) * time.Minute)
			g.UpdatedAt = g.CreatedAt
		})
	}

	filters := Filters{ProductID: &product}
	firstPage, next, err := repo.List(ctx, pagination.Params{Limit: 3}, filters)
	require.NoError(t, err)
	require.Len(t, firstPage, 3)
	require.NotNil(t, next)

	secondPage, last, err := repo.List(ctx, pagination.Params{Limit: 3, Cursor: *next}, filters)
	require.NoError(t, err)
	require.Len(t, secondPage, 2)
	assert.Nil(t, last)

	// Newest first, no overlap between pages.
	seen := map[uuid.UUID]bool{}
	var previous *time.Time
	for _, row := range append(firstPage, secondPage...) {
		assert.False(t, seen[row.ID])
		seen[row.ID] = true
		if previous != nil {
			assert.False(t, row.CreatedAt.After(*previous))
		}
		created := row.CreatedAt
		previous = &created
	}
}

func TestRepositoryListFiltersByStatus(t *testing.T) {
	db := setupGroupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	product := uuid.New()
	createGroupOrder(t, db, func(g *models.GroupOrder) { g.ProductID = product })
	cancelled := createGroupOrder(t, db, func(g *models.GroupOrder) {
		g.ProductID = product
		g.Status = enums.GroupOrderStatusCancelled
	})

	status := enums.GroupOrderStatusCancelled
	rows, _, err := repo.List(ctx, pagination.Params{}, Filters{ProductID: &product, Status: &status})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, cancelled.ID, rows[0].ID)
}
