package sellerapi

import (
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/sellerdesk/backend/internal/domain/ordersync"
)

// flexString decodes a JSON field that the panel serves sometimes as a
// string and sometimes as a bare number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func (f flexString) String() string {
	return string(f)
}

// listResponse is the paginated listing envelope: {data:{items:[...]}}
type listResponse struct {
	Data struct {
		Items []orderPayload `json:"items"`
	} `json:"data"`
}

// orderPayload is one raw order as served by either listing endpoint
type orderPayload struct {
	OrderID       flexString     `json:"orderId"`
	ShipmentID    flexString     `json:"shipmentId"`
	CustomerName  string         `json:"customer_name"`
	CustomerPhone string         `json:"customer_phone"`
	OrderDate     string         `json:"orderDate"`
	Status        statusPayload  `json:"status"`
	Address       addressPayload `json:"address"`
	Variants      []variantPayload `json:"variants"`
}

type statusPayload struct {
	Code   flexString `json:"code"`
	TextFa string     `json:"text_fa"`
}

type addressPayload struct {
	State      string `json:"state"`
	City       string `json:"city"`
	Address    string `json:"address"`
	PostalCode flexString `json:"postal_code"`
}

type variantPayload struct {
	ProductID flexString  `json:"productId"`
	Title     string      `json:"title"`
	ImageURL  string      `json:"image_url"`
	Count     int         `json:"count"`
	Price     json.Number `json:"price"`
}

// customerDetailResponse is the per-shipment detail envelope: {data:{...}}
type customerDetailResponse struct {
	Data customerDetailPayload `json:"data"`
}

type customerDetailPayload struct {
	State       string     `json:"state"`
	City        string     `json:"city"`
	Address     string     `json:"address"`
	PostalCode  flexString `json:"postalCode"`
	PhoneNumber flexString `json:"phoneNumber"`
}

func (p customerDetailPayload) toAddressBlock() ordersync.AddressBlock {
	return ordersync.AddressBlock{
		Province:    p.State,
		City:        p.City,
		FullAddress: p.Address,
		PostalCode:  p.PostalCode.String(),
		Phone:       p.PhoneNumber.String(),
	}
}

// toEnvelope converts the raw payload to the pipeline's transient envelope
func (p orderPayload) toEnvelope() ordersync.Envelope {
	env := ordersync.Envelope{
		OrderCode:     p.OrderID.String(),
		ShipmentID:    p.ShipmentID.String(),
		CustomerName:  p.CustomerName,
		CustomerPhone: p.CustomerPhone,
		Status:        p.Status.TextFa,
		OrderDate:     p.OrderDate,
		Address: ordersync.AddressBlock{
			Province:    p.Address.State,
			City:        p.Address.City,
			FullAddress: p.Address.Address,
			PostalCode:  p.Address.PostalCode.String(),
			Phone:       p.CustomerPhone,
		},
		Variants: make([]ordersync.Variant, 0, len(p.Variants)),
	}

	for _, v := range p.Variants {
		env.Variants = append(env.Variants, ordersync.Variant{
			ProductID: v.ProductID.String(),
			Title:     v.Title,
			ImageURL:  v.ImageURL,
			Count:     v.Count,
			Price:     parsePrice(v.Price),
		})
	}
	return env
}

func parsePrice(n json.Number) decimal.Decimal {
	if n == "" {
		return decimal.Zero
	}
	if d, err := decimal.NewFromString(n.String()); err == nil {
		return d
	}
	// Some payloads quote prices with thousand separators stripped by the
	// panel but still carry stray characters; fall back to float parsing.
	if f, err := strconv.ParseFloat(n.String(), 64); err == nil {
		return decimal.NewFromFloat(f)
	}
	return decimal.Zero
}
