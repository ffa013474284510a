package sellerapi

import (
	"context"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/sellerdesk/backend/internal/domain/ordersync"
)

// Fetcher drives the client across both paginated listing endpoints and
// merges their results into a deduplicated envelope set.
type Fetcher struct {
	client *Client
	cfg    *Config
	logger *zap.Logger
}

// NewFetcher creates a Fetcher on top of an existing client
func NewFetcher(client *Client, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{client: client, cfg: client.cfg, logger: logger}
}

// FetchAllOrders pulls every page of the ship-by-seller and marketplace
// listings and returns the union keyed by normalized shipment id. On a key
// collision the marketplace envelope wins; the same shipment should not
// legitimately appear in both listings, but the marketplace copy is the
// documented precedence when it does.
func (f *Fetcher) FetchAllOrders(ctx context.Context) ([]ordersync.Envelope, error) {
	shipBySeller, err := f.fetchSource(ctx, "ship-by-seller", f.cfg.shipBySellerURL())
	if err != nil {
		return nil, err
	}

	marketplace, err := f.fetchSource(ctx, "marketplace", f.cfg.marketplaceURL())
	if err != nil {
		return nil, err
	}

	merged := make([]ordersync.Envelope, 0, len(shipBySeller)+len(marketplace))
	index := make(map[ordersync.OrderKey]int, len(shipBySeller))

	for _, env := range shipBySeller {
		key := env.Key()
		if key.IsEmpty() {
			continue
		}
		if i, seen := index[key]; seen {
			merged[i] = env
			continue
		}
		index[key] = len(merged)
		merged = append(merged, env)
	}
	for _, env := range marketplace {
		key := env.Key()
		if key.IsEmpty() {
			continue
		}
		if i, seen := index[key]; seen {
			merged[i] = env
			continue
		}
		index[key] = len(merged)
		merged = append(merged, env)
	}

	f.logger.Info("order fetch complete",
		zap.Int("ship_by_seller", len(shipBySeller)),
		zap.Int("marketplace", len(marketplace)),
		zap.Int("merged", len(merged)))
	return merged, nil
}

// fetchSource pages through one listing endpoint until an empty page or
// the page ceiling. A courtesy delay separates pages; it is unrelated to
// the 429 backoff inside the client.
func (f *Fetcher) fetchSource(ctx context.Context, source, endpoint string) ([]ordersync.Envelope, error) {
	envelopes := make([]ordersync.Envelope, 0)

	for page := 1; page <= f.cfg.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		query := url.Values{}
		query.Set("page", strconv.Itoa(page))
		query.Set("size", strconv.Itoa(f.cfg.PageSize))

		var resp listResponse
		if err := f.client.GetJSON(ctx, endpoint, query, &resp); err != nil {
			return nil, err
		}

		if len(resp.Data.Items) == 0 {
			break
		}

		for _, item := range resp.Data.Items {
			envelopes = append(envelopes, item.toEnvelope())
		}
		f.logger.Debug("fetched page",
			zap.String("source", source),
			zap.Int("page", page),
			zap.Int("items", len(resp.Data.Items)))

		if err := f.client.sleep(ctx, f.cfg.PageDelay); err != nil {
			return nil, err
		}
	}

	return envelopes, nil
}
