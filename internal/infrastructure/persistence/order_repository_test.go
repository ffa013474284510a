package persistence

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sellerdesk/backend/internal/domain/ordersync"
	"github.com/sellerdesk/backend/internal/domain/shared"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&ordersync.Order{}, &ordersync.OrderItem{}))
	return db
}

func seedOrder(t *testing.T, repo *GormOrderRepository, shipmentID, status, city, tracking string) *ordersync.Order {
	t.Helper()
	order := &ordersync.Order{
		ID:           uuid.New(),
		OrderCode:    "9" + shipmentID,
		ShipmentID:   shipmentID,
		Status:       status,
		City:         city,
		Province:     "تهران",
		TrackingCode: tracking,
		CustomerName: "مشتری " + shipmentID,
	}
	order.Items = []ordersync.OrderItem{{
		ID:          uuid.New(),
		OrderID:     order.ID,
		ProductCode: "P-" + shipmentID,
		Quantity:    2,
		UnitPrice:   decimal.NewFromInt(150000),
	}}
	require.NoError(t, repo.Save(context.Background(), order))
	return order
}

func TestGormOrderRepository_SaveAndFindByShipmentID(t *testing.T) {
	repo := NewGormOrderRepository(newTestDB(t))
	ctx := context.Background()

	seedOrder(t, repo, "555", "new", "تهران", "")

	found, err := repo.FindByShipmentID(ctx, ordersync.OrderKey("555"))
	require.NoError(t, err)
	assert.Equal(t, "9555", found.OrderCode)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "P-555", found.Items[0].ProductCode)

	_, err = repo.FindByShipmentID(ctx, ordersync.OrderKey("999"))
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormOrderRepository_SaveUpdatesInPlace(t *testing.T) {
	repo := NewGormOrderRepository(newTestDB(t))
	ctx := context.Background()

	order := seedOrder(t, repo, "555", "new", "تهران", "")

	order.Status = "shipped"
	order.Items[0].Quantity = 5
	require.NoError(t, repo.Save(ctx, order))

	found, err := repo.FindByShipmentID(ctx, ordersync.OrderKey("555"))
	require.NoError(t, err)
	assert.Equal(t, "shipped", found.Status)
	require.Len(t, found.Items, 1, "re-saving must not duplicate item rows")
	assert.Equal(t, 5, found.Items[0].Quantity)
}

func TestGormOrderRepository_DuplicateShipmentIDIsAlreadyExists(t *testing.T) {
	repo := NewGormOrderRepository(newTestDB(t))
	ctx := context.Background()

	seedOrder(t, repo, "555", "new", "تهران", "")

	dup := &ordersync.Order{
		ID:         uuid.New(),
		OrderCode:  "other",
		ShipmentID: "555",
	}
	err := repo.Save(ctx, dup)
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestGormOrderRepository_FindAll(t *testing.T) {
	repo := NewGormOrderRepository(newTestDB(t))
	ctx := context.Background()

	seedOrder(t, repo, "100", "new", "تهران", "")
	seedOrder(t, repo, "200", "shipped", "مشهد", "TRK-1")
	seedOrder(t, repo, "300", "shipped", "مشهد", "نامشخص")

	t.Run("filters by status", func(t *testing.T) {
		orders, total, err := repo.FindAll(ctx, ordersync.OrderFilter{Status: "shipped"})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Len(t, orders, 2)
	})

	t.Run("filters by city", func(t *testing.T) {
		orders, _, err := repo.FindAll(ctx, ordersync.OrderFilter{City: "تهران"})
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, "100", orders[0].ShipmentID)
	})

	t.Run("filters by tracking presence", func(t *testing.T) {
		yes := true
		orders, _, err := repo.FindAll(ctx, ordersync.OrderFilter{HasTracking: &yes})
		require.NoError(t, err)
		require.Len(t, orders, 1, "placeholder tracking codes do not count")
		assert.Equal(t, "200", orders[0].ShipmentID)

		no := false
		orders, _, err = repo.FindAll(ctx, ordersync.OrderFilter{HasTracking: &no})
		require.NoError(t, err)
		assert.Len(t, orders, 2)
	})

	t.Run("searches across identifier and name columns", func(t *testing.T) {
		orders, _, err := repo.FindAll(ctx, ordersync.OrderFilter{Search: "TRK"})
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, "200", orders[0].ShipmentID)

		orders, _, err = repo.FindAll(ctx, ordersync.OrderFilter{Search: "مشتری 100"})
		require.NoError(t, err)
		assert.Len(t, orders, 1)
	})

	t.Run("paginates", func(t *testing.T) {
		orders, total, err := repo.FindAll(ctx, ordersync.OrderFilter{Limit: 2})
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		assert.Len(t, orders, 2)

		orders, _, err = repo.FindAll(ctx, ordersync.OrderFilter{Offset: 2, Limit: 2})
		require.NoError(t, err)
		assert.Len(t, orders, 1)
	})
}

func TestGormOrderRepository_Delete(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	order := seedOrder(t, repo, "555", "new", "تهران", "")

	require.NoError(t, repo.Delete(ctx, order.ID))

	_, err := repo.FindByID(ctx, order.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	var itemCount int64
	require.NoError(t, db.Model(&ordersync.OrderItem{}).Where("order_id = ?", order.ID).Count(&itemCount).Error)
	assert.EqualValues(t, 0, itemCount, "items must go with their order")

	assert.ErrorIs(t, repo.Delete(ctx, uuid.New()), shared.ErrNotFound)
}

func TestGormOrderRepository_Stats(t *testing.T) {
	repo := NewGormOrderRepository(newTestDB(t))
	ctx := context.Background()

	seedOrder(t, repo, "100", "new", "تهران", "")
	seedOrder(t, repo, "200", "shipped", "مشهد", "TRK-1")
	seedOrder(t, repo, "300", "shipped", "مشهد", "نامشخص")

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)

	assert.EqualValues(t, 3, stats.TotalOrders)
	assert.EqualValues(t, 1, stats.OrdersWithTracking)
	assert.EqualValues(t, 2, stats.UniqueCities)
	assert.EqualValues(t, 3, stats.RecentOrders7d)
	// 3 orders x 2 units x 150000
	assert.True(t, stats.TotalSales.Equal(decimal.NewFromInt(900000)), "got %s", stats.TotalSales)
}

func TestGormOrderRepository_FilterOptions(t *testing.T) {
	repo := NewGormOrderRepository(newTestDB(t))
	ctx := context.Background()

	seedOrder(t, repo, "100", "new", "تهران", "")
	seedOrder(t, repo, "200", "shipped", "مشهد", "")
	seedOrder(t, repo, "300", "نامشخص", "نامشخص", "")

	opts, err := repo.FilterOptions(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"new", "shipped"}, opts.Statuses)
	assert.NotContains(t, opts.Cities, "نامشخص")
	assert.Len(t, opts.Cities, 2)
}

func TestGormTxRunner_RollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	runner := NewGormTxRunner(db)
	ctx := context.Background()

	err := runner.Transaction(ctx, func(ctx context.Context, repo ordersync.OrderRepository) error {
		order := &ordersync.Order{ID: uuid.New(), OrderCode: "1", ShipmentID: "1"}
		if err := repo.Save(ctx, order); err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&ordersync.Order{}).Count(&count).Error)
	assert.EqualValues(t, 0, count, "failed transaction must leave no rows")
}

func TestGormTxRunner_CommitsOnSuccess(t *testing.T) {
	db := newTestDB(t)
	runner := NewGormTxRunner(db)
	ctx := context.Background()

	err := runner.Transaction(ctx, func(ctx context.Context, repo ordersync.OrderRepository) error {
		return repo.Save(ctx, &ordersync.Order{ID: uuid.New(), OrderCode: "1", ShipmentID: "1"})
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&ordersync.Order{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
