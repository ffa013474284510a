package ordersync

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sellerdesk/backend/internal/domain/shared"
)

// placeholderValues is the central sentinel set: a stored field holding one
// of these values counts as empty for merge purposes. The Persian entries
// are what the seller panel substitutes for missing data.
var placeholderValues = map[string]struct{}{
	"":        {},
	"نامشخص":  {},
	"ناشناخته": {},
	"unknown": {},
}

// IsPlaceholder reports whether value is empty or a known placeholder
// sentinel. New placeholder spellings go here, never at call sites.
func IsPlaceholder(value string) bool {
	_, ok := placeholderValues[value]
	return ok
}

// PlaceholderSentinels returns the non-empty placeholder values, for
// storage layers that need them in query predicates.
func PlaceholderSentinels() []string {
	out := make([]string, 0, len(placeholderValues))
	for v := range placeholderValues {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Order is the persistent aggregate root for one upstream shipment. The
// shipment id is the canonical merge key; the order code is a secondary
// unique identifier that is never used for dedup.
type Order struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderCode  string    `gorm:"type:varchar(50);not null;uniqueIndex"`
	ShipmentID string    `gorm:"type:varchar(50);not null;uniqueIndex"`

	CustomerName  string `gorm:"type:varchar(200)"`
	CustomerPhone string `gorm:"type:varchar(20)"`
	Status        string `gorm:"type:varchar(100)"`

	Province    string `gorm:"type:varchar(100)"`
	City        string `gorm:"type:varchar(100)"`
	FullAddress string `gorm:"type:text"`
	PostalCode  string `gorm:"type:varchar(20)"`

	TrackingCode string `gorm:"type:varchar(50);index"`

	OrderDatePersian   string    `gorm:"type:varchar(20)"`
	OrderDateGregorian time.Time `gorm:"autoCreateTime"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// OrderItem is one purchased line item owned by an Order. Uniqueness per
// (order, product code) is the second pipeline invariant: a re-sync updates
// quantity and price in place, it never duplicates the row.
type OrderItem struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_order_product,priority:1"`

	ProductTitle string          `gorm:"type:varchar(500)"`
	ProductCode  string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_order_product,priority:2"`
	ProductImage string          `gorm:"type:text"`
	Quantity     int             `gorm:"not null;default:1"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewOrder creates an Order from the first flattened record of a shipment
// group. Both identifiers must already be normalized.
func NewOrder(rec ItemRecord) (*Order, error) {
	if rec.ShipmentID.IsEmpty() {
		return nil, shared.NewDomainError("INVALID_SHIPMENT_ID", "Shipment id cannot be empty")
	}
	if rec.OrderCode.IsEmpty() {
		return nil, shared.NewDomainError("INVALID_ORDER_CODE", "Order code cannot be empty")
	}

	return &Order{
		ID:               uuid.New(),
		OrderCode:        rec.OrderCode.String(),
		ShipmentID:       rec.ShipmentID.String(),
		CustomerName:     rec.CustomerName,
		CustomerPhone:    rec.CustomerPhone,
		Status:           rec.Status,
		Province:         rec.Province,
		City:             rec.City,
		FullAddress:      rec.FullAddress,
		PostalCode:       rec.PostalCode,
		TrackingCode:     rec.TrackingCode,
		OrderDatePersian: rec.OrderDate,
	}, nil
}

// ApplyUpstream merges one flattened record into an existing order.
//
// Upstream-authoritative fields (status, a non-placeholder tracking code)
// always win. Locally-precious fields (customer name, phone, address block)
// are only filled when the stored value is empty or a placeholder; data an
// operator typed in by hand is never clobbered by upstream blanks.
func (o *Order) ApplyUpstream(rec ItemRecord) {
	if rec.Status != "" {
		o.Status = rec.Status
	}
	if !IsPlaceholder(rec.TrackingCode) {
		o.TrackingCode = rec.TrackingCode
	}

	fillIfPlaceholder(&o.CustomerName, rec.CustomerName)
	fillIfPlaceholder(&o.CustomerPhone, rec.CustomerPhone)
	fillIfPlaceholder(&o.Province, rec.Province)
	fillIfPlaceholder(&o.City, rec.City)
	fillIfPlaceholder(&o.FullAddress, rec.FullAddress)
	fillIfPlaceholder(&o.PostalCode, rec.PostalCode)
	fillIfPlaceholder(&o.OrderDatePersian, rec.OrderDate)
}

// fillIfPlaceholder writes incoming over *stored only when the stored value
// is a placeholder and the incoming one is not.
func fillIfPlaceholder(stored *string, incoming string) {
	if IsPlaceholder(*stored) && !IsPlaceholder(incoming) {
		*stored = incoming
	}
}

// UpsertItem adds the record's line item to the order, or updates quantity
// and price in place when an item with the same product code exists.
// It returns true when a new item row was appended.
func (o *Order) UpsertItem(rec ItemRecord) bool {
	code := rec.ProductCode.String()
	for i := range o.Items {
		if o.Items[i].ProductCode == code {
			o.Items[i].Quantity = rec.Quantity
			o.Items[i].UnitPrice = rec.UnitPrice
			if rec.ProductTitle != "" {
				o.Items[i].ProductTitle = rec.ProductTitle
			}
			if rec.ProductImage != "" {
				o.Items[i].ProductImage = rec.ProductImage
			}
			return false
		}
	}

	o.Items = append(o.Items, OrderItem{
		ID:           uuid.New(),
		OrderID:      o.ID,
		ProductTitle: rec.ProductTitle,
		ProductCode:  code,
		ProductImage: rec.ProductImage,
		Quantity:     rec.Quantity,
		UnitPrice:    rec.UnitPrice,
	})
	return true
}

// TotalAmount sums quantity times unit price over all items
func (o *Order) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for i := range o.Items {
		total = total.Add(o.Items[i].UnitPrice.Mul(decimal.NewFromInt(int64(o.Items[i].Quantity))))
	}
	return total
}

// HasTracking reports whether a real tracking code is recorded
func (o *Order) HasTracking() bool {
	return !IsPlaceholder(o.TrackingCode)
}

// TableName overrides the GORM table name for orders
func (Order) TableName() string {
	return "orders"
}

// TableName overrides the GORM table name for order items
func (OrderItem) TableName() string {
	return "order_items"
}
