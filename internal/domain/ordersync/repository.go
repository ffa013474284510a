package ordersync

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderFilter defines filter criteria for listing orders
type OrderFilter struct {
	Status      string
	City        string
	Province    string
	HasTracking *bool
	// Search matches order code, shipment id, customer name or tracking code
	Search string
	// OrderBy is one of created_at, order_date_gregorian
	OrderBy  string
	OrderDir string
	Offset   int
	Limit    int
}

// OrderStats is the aggregate summary exposed by the admin API
type OrderStats struct {
	TotalOrders         int64
	OrdersWithTracking  int64
	TotalSales          decimal.Decimal
	UniqueCities        int64
	RecentOrders7d      int64
}

// FilterOptions lists the distinct values available for list filters
type FilterOptions struct {
	Statuses  []string
	Cities    []string
	Provinces []string
}

// OrderRepository is the persistence port for the reconciliation engine and
// the admin API. The concrete storage engine can be swapped without
// touching reconciliation logic.
type OrderRepository interface {
	// FindByShipmentID finds an order (with items) by its normalized
	// shipment id; returns shared.ErrNotFound when absent.
	FindByShipmentID(ctx context.Context, shipmentID OrderKey) (*Order, error)

	// FindByID finds an order (with items) by primary key
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// Save creates or updates an order together with its items
	Save(ctx context.Context, order *Order) error

	// FindAll lists orders matching the filter
	FindAll(ctx context.Context, filter OrderFilter) ([]Order, int64, error)

	// Delete removes an order and, via cascade, its items
	Delete(ctx context.Context, id uuid.UUID) error

	// Stats returns the aggregate order summary
	Stats(ctx context.Context) (*OrderStats, error)

	// FilterOptions returns distinct statuses, cities and provinces
	FilterOptions(ctx context.Context) (*FilterOptions, error)
}

// TxRunner runs fn inside one storage transaction. The reconciliation
// engine commits a whole sync batch through it so readers never observe a
// partially merged group.
type TxRunner interface {
	Transaction(ctx context.Context, fn func(ctx context.Context, repo OrderRepository) error) error
}
