package ordersync

import "github.com/shopspring/decimal"

// Envelope is the raw per-shipment payload as returned by an upstream
// listing endpoint, before flattening. It is never persisted.
type Envelope struct {
	OrderCode    string
	ShipmentID   string
	CustomerName string
	CustomerPhone string
	Status       string
	OrderDate    string
	Address      AddressBlock
	Variants     []Variant
}

// Key returns the envelope's normalized shipment identifier
func (e Envelope) Key() OrderKey {
	return NormalizeKey(e.ShipmentID)
}

// Variant is one purchased line item inside an envelope
type Variant struct {
	ProductID string
	Title     string
	ImageURL  string
	Count     int
	Price     decimal.Decimal
}

// AddressBlock carries the address fields embedded in an envelope or
// resolved through the per-shipment customer detail endpoint.
type AddressBlock struct {
	Province    string
	City        string
	FullAddress string
	PostalCode  string
	Phone       string
}

// ItemRecord is the pipeline's internal unit: one row per variant, with all
// identifiers normalized and the address either embedded or detail-resolved.
type ItemRecord struct {
	OrderCode  OrderKey
	ShipmentID OrderKey

	ProductCode  OrderKey
	ProductTitle string
	ProductImage string
	Quantity     int
	UnitPrice    decimal.Decimal

	Status        string
	CustomerName  string
	CustomerPhone string
	OrderDate     string
	TrackingCode  string

	Province    string
	City        string
	FullAddress string
	PostalCode  string
}

// ShipmentGroup is the set of records belonging to one shipment, with
// in-group product-code duplicates already collapsed.
type ShipmentGroup struct {
	ShipmentID OrderKey
	Records    []ItemRecord
}

// GroupRecords groups flattened records by normalized shipment id,
// preserving first-seen shipment order. When the upstream sends the same
// product code twice within one shipment, the last-seen record wins, which
// keeps the (order, product_code) uniqueness invariant intact downstream.
func GroupRecords(records []ItemRecord) []ShipmentGroup {
	index := make(map[OrderKey]int)
	groups := make([]ShipmentGroup, 0)

	for _, rec := range records {
		if rec.ShipmentID.IsEmpty() {
			continue
		}
		i, seen := index[rec.ShipmentID]
		if !seen {
			index[rec.ShipmentID] = len(groups)
			groups = append(groups, ShipmentGroup{
				ShipmentID: rec.ShipmentID,
				Records:    []ItemRecord{rec},
			})
			continue
		}

		g := &groups[i]
		replaced := false
		for j := range g.Records {
			if g.Records[j].ProductCode == rec.ProductCode {
				g.Records[j] = rec
				replaced = true
				break
			}
		}
		if !replaced {
			g.Records = append(g.Records, rec)
		}
	}

	return groups
}
