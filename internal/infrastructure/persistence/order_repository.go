package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sellerdesk/backend/internal/domain/ordersync"
	"github.com/sellerdesk/backend/internal/domain/shared"
)

// GormOrderRepository implements ordersync.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByShipmentID finds an order with its items by normalized shipment id
func (r *GormOrderRepository) FindByShipmentID(ctx context.Context, shipmentID ordersync.OrderKey) (*ordersync.Order, error) {
	var order ordersync.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("shipment_id = ?", shipmentID.String()).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindByID finds an order with its items by primary key
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*ordersync.Order, error) {
	var order ordersync.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// Save creates or updates an order together with its items
func (r *GormOrderRepository) Save(ctx context.Context, order *ordersync.Order) error {
	err := r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(order).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists
	}
	return err
}

// FindAll lists orders matching the filter and the total match count
func (r *GormOrderRepository) FindAll(ctx context.Context, filter ordersync.OrderFilter) ([]ordersync.Order, int64, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&ordersync.Order{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Preload("Items").Order(orderClause(filter))
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var orders []ordersync.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// Delete removes an order and its items. Items are deleted explicitly so
// the behavior does not depend on SQLite's foreign_keys pragma.
func (r *GormOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&ordersync.OrderItem{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&ordersync.Order{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// Stats returns the aggregate order summary
func (r *GormOrderRepository) Stats(ctx context.Context) (*ordersync.OrderStats, error) {
	db := r.db.WithContext(ctx)
	stats := &ordersync.OrderStats{TotalSales: decimal.Zero}
	sentinels := ordersync.PlaceholderSentinels()

	if err := db.Model(&ordersync.Order{}).Count(&stats.TotalOrders).Error; err != nil {
		return nil, err
	}

	if err := db.Model(&ordersync.Order{}).
		Where("tracking_code <> '' AND tracking_code NOT IN ?", sentinels).
		Count(&stats.OrdersWithTracking).Error; err != nil {
		return nil, err
	}

	var totalSales decimal.NullDecimal
	if err := db.Model(&ordersync.OrderItem{}).
		Select("SUM(quantity * unit_price)").
		Scan(&totalSales).Error; err != nil {
		return nil, err
	}
	if totalSales.Valid {
		stats.TotalSales = totalSales.Decimal
	}

	if err := db.Model(&ordersync.Order{}).
		Where("city <> '' AND city NOT IN ?", sentinels).
		Distinct("city").
		Count(&stats.UniqueCities).Error; err != nil {
		return nil, err
	}

	weekAgo := time.Now().AddDate(0, 0, -7)
	if err := db.Model(&ordersync.Order{}).
		Where("created_at >= ?", weekAgo).
		Count(&stats.RecentOrders7d).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

// FilterOptions returns the distinct statuses, cities and provinces
// currently present, excluding placeholder values
func (r *GormOrderRepository) FilterOptions(ctx context.Context) (*ordersync.FilterOptions, error) {
	db := r.db.WithContext(ctx)
	opts := &ordersync.FilterOptions{}

	for _, col := range []struct {
		name string
		dest *[]string
	}{
		{"status", &opts.Statuses},
		{"city", &opts.Cities},
		{"province", &opts.Provinces},
	} {
		if err := db.Model(&ordersync.Order{}).
			Where(col.name+" <> '' AND "+col.name+" NOT IN ?", ordersync.PlaceholderSentinels()).
			Distinct(col.name).
			Order(col.name).
			Pluck(col.name, col.dest).Error; err != nil {
			return nil, err
		}
	}

	return opts, nil
}

func (r *GormOrderRepository) applyFilter(query *gorm.DB, filter ordersync.OrderFilter) *gorm.DB {
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.City != "" {
		query = query.Where("city = ?", filter.City)
	}
	if filter.Province != "" {
		query = query.Where("province = ?", filter.Province)
	}
	if filter.HasTracking != nil {
		cond := "tracking_code <> '' AND tracking_code NOT IN ?"
		if *filter.HasTracking {
			query = query.Where(cond, ordersync.PlaceholderSentinels())
		} else {
			query = query.Not(cond, ordersync.PlaceholderSentinels())
		}
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where(
			"order_code LIKE ? OR shipment_id LIKE ? OR customer_name LIKE ? OR tracking_code LIKE ?",
			like, like, like, like,
		)
	}
	return query
}

func orderClause(filter ordersync.OrderFilter) string {
	col := "created_at"
	if filter.OrderBy == "order_date_gregorian" {
		col = "order_date_gregorian"
	}
	dir := "DESC"
	if filter.OrderDir == "asc" {
		dir = "ASC"
	}
	return col + " " + dir
}

// GormTxRunner implements ordersync.TxRunner on a gorm connection
type GormTxRunner struct {
	db *gorm.DB
}

// NewGormTxRunner creates a transaction runner
func NewGormTxRunner(db *gorm.DB) *GormTxRunner {
	return &GormTxRunner{db: db}
}

// Transaction runs fn with a repository bound to one database transaction
func (t *GormTxRunner) Transaction(ctx context.Context, fn func(ctx context.Context, repo ordersync.OrderRepository) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewGormOrderRepository(tx))
	})
}
