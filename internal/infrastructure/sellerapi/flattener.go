package sellerapi

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sellerdesk/backend/internal/domain/ordersync"
)

// Fallback display values the panel uses for missing fields
const (
	unknownValue    = "نامشخص"
	unknownCustomer = "ناشناخته"
)

// Flattener expands envelopes into one item record per variant, optionally
// enriching each shipment with the customer detail endpoint.
type Flattener struct {
	client *Client
	cfg    *Config
	logger *zap.Logger
}

// NewFlattener creates a Flattener on top of an existing client
func NewFlattener(client *Client, logger *zap.Logger) *Flattener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Flattener{client: client, cfg: client.cfg, logger: logger}
}

// Flatten emits one ItemRecord per variant. With fetchDetails set, one
// customer detail lookup runs per distinct shipment (never per variant);
// a failed lookup falls back to the envelope's embedded address block and
// flattening continues. Auth failures are the exception and abort the run.
// Envelopes without variants are logged and skipped.
func (f *Flattener) Flatten(ctx context.Context, envelopes []ordersync.Envelope, fetchDetails bool) ([]ordersync.ItemRecord, error) {
	records := make([]ordersync.ItemRecord, 0, len(envelopes))

	for _, env := range envelopes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		shipmentID := env.Key()
		if len(env.Variants) == 0 {
			f.logger.Warn("envelope has no variants, skipping",
				zap.String("shipment_id", shipmentID.String()))
			continue
		}

		addr := env.Address
		if fetchDetails && !shipmentID.IsEmpty() {
			detail, err := f.customerDetail(ctx, shipmentID)
			switch {
			case err == nil:
				addr = mergeAddress(detail, env.Address)
			case isAuthErr(err):
				return nil, err
			default:
				f.logger.Warn("customer detail lookup failed, using embedded address",
					zap.String("shipment_id", shipmentID.String()),
					zap.Error(err))
			}
			if err := f.client.sleep(ctx, f.cfg.DetailDelay); err != nil {
				return nil, err
			}
		}

		for _, v := range env.Variants {
			records = append(records, ordersync.ItemRecord{
				OrderCode:     ordersync.NormalizeKey(env.OrderCode),
				ShipmentID:    shipmentID,
				ProductCode:   ordersync.NormalizeKey(orDefault(v.ProductID, unknownValue)),
				ProductTitle:  orDefault(v.Title, unknownValue),
				ProductImage:  v.ImageURL,
				Quantity:      v.Count,
				UnitPrice:     v.Price,
				Status:        orDefault(env.Status, unknownValue),
				CustomerName:  orDefault(env.CustomerName, unknownCustomer),
				CustomerPhone: orDefault(addr.Phone, unknownValue),
				OrderDate:     orDefault(env.OrderDate, unknownValue),
				Province:      orDefault(addr.Province, unknownValue),
				City:          orDefault(addr.City, unknownValue),
				FullAddress:   orDefault(addr.FullAddress, unknownValue),
				PostalCode:    orDefault(addr.PostalCode, unknownValue),
			})
		}

		if len(env.Variants) > 1 {
			f.logger.Debug("multi-item shipment flattened",
				zap.String("shipment_id", shipmentID.String()),
				zap.Int("variants", len(env.Variants)))
		}
	}

	return records, nil
}

// customerDetail resolves the address block for one shipment
func (f *Flattener) customerDetail(ctx context.Context, shipmentID ordersync.OrderKey) (ordersync.AddressBlock, error) {
	var resp customerDetailResponse
	if err := f.client.GetJSON(ctx, f.cfg.customerDetailURL(shipmentID.String()), nil, &resp); err != nil {
		return ordersync.AddressBlock{}, err
	}
	return resp.Data.toAddressBlock(), nil
}

// mergeAddress prefers resolved detail fields, falling back to the
// envelope's embedded values per field.
func mergeAddress(detail, embedded ordersync.AddressBlock) ordersync.AddressBlock {
	return ordersync.AddressBlock{
		Province:    orDefault(detail.Province, embedded.Province),
		City:        orDefault(detail.City, embedded.City),
		FullAddress: orDefault(detail.FullAddress, embedded.FullAddress),
		PostalCode:  orDefault(detail.PostalCode, embedded.PostalCode),
		Phone:       orDefault(detail.Phone, embedded.Phone),
	}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func isAuthErr(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}
