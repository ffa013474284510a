package ordersync

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	domain "github.com/sellerdesk/backend/internal/domain/ordersync"
	"github.com/sellerdesk/backend/internal/domain/shared"
	"github.com/sellerdesk/backend/internal/infrastructure/sellerapi"
)

// OrderSource pulls the raw order envelopes from the seller panel
type OrderSource interface {
	FetchAllOrders(ctx context.Context) ([]domain.Envelope, error)
}

// RecordFlattener expands envelopes into per-variant item records
type RecordFlattener interface {
	Flatten(ctx context.Context, envelopes []domain.Envelope, fetchDetails bool) ([]domain.ItemRecord, error)
}

// SyncReport summarizes one reconciliation run
type SyncReport struct {
	Created int      `json:"new_orders"`
	Updated int      `json:"updated_orders"`
	Total   int      `json:"total"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

// SyncService runs the full ingestion pipeline: fetch, flatten, group and
// reconcile against stored orders. One run commits in one transaction so
// readers never observe a half-merged batch.
type SyncService struct {
	source    OrderSource
	flattener RecordFlattener
	tx        domain.TxRunner
	logger    *zap.Logger
}

// NewSyncService creates a SyncService
func NewSyncService(source OrderSource, flattener RecordFlattener, tx domain.TxRunner, logger *zap.Logger) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{
		source:    source,
		flattener: flattener,
		tx:        tx,
		logger:    logger,
	}
}

// Run executes one synchronization pass. fetchDetails additionally pulls
// the per-shipment customer detail endpoint. An expired session surfaces
// as a report asking for a manual login rather than a bare error; a run
// that fetched nothing is reported as such, distinct from a failed run.
func (s *SyncService) Run(ctx context.Context, fetchDetails bool) (*SyncReport, error) {
	envelopes, err := s.source.FetchAllOrders(ctx)
	if err != nil {
		return nil, s.classify(err)
	}
	if len(envelopes) == 0 {
		s.logger.Info("sync finished, upstream returned no orders")
		return &SyncReport{Message: "هیچ سفارشی در پنل یافت نشد"}, nil
	}

	records, err := s.flattener.Flatten(ctx, envelopes, fetchDetails)
	if err != nil {
		return nil, s.classify(err)
	}

	groups := domain.GroupRecords(records)
	report := &SyncReport{}

	err = s.tx.Transaction(ctx, func(ctx context.Context, repo domain.OrderRepository) error {
		for _, group := range groups {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := s.reconcileGroup(ctx, repo, group, report); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	report.Total = report.Created + report.Updated
	report.Message = fmt.Sprintf("همگام‌سازی انجام شد: %d سفارش جدید، %d سفارش به‌روزرسانی شد", report.Created, report.Updated)

	s.logger.Info("sync finished",
		zap.Int("envelopes", len(envelopes)),
		zap.Int("records", len(records)),
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated))
	return report, nil
}

// reconcileGroup merges one shipment group into storage
func (s *SyncService) reconcileGroup(ctx context.Context, repo domain.OrderRepository, group domain.ShipmentGroup, report *SyncReport) error {
	order, err := repo.FindByShipmentID(ctx, group.ShipmentID)
	switch {
	case err == nil:
		for _, rec := range group.Records {
			order.ApplyUpstream(rec)
			order.UpsertItem(rec)
		}
		if err := repo.Save(ctx, order); err != nil {
			return err
		}
		report.Updated++
		return nil

	case errors.Is(err, shared.ErrNotFound):
		order, err := domain.NewOrder(group.Records[0])
		if err != nil {
			// A malformed group is logged and skipped, it must not sink the batch
			s.logger.Warn("skipping invalid shipment group",
				zap.String("shipment_id", group.ShipmentID.String()),
				zap.Error(err))
			report.Errors = append(report.Errors, err.Error())
			return nil
		}
		for _, rec := range group.Records {
			order.UpsertItem(rec)
		}
		if err := repo.Save(ctx, order); err != nil {
			if errors.Is(err, shared.ErrAlreadyExists) {
				// Lost a create race with a concurrent pass; the row exists
				// now, so reconcile it as an update instead
				return s.reconcileGroup(ctx, repo, group, report)
			}
			return err
		}
		report.Created++
		return nil

	default:
		return err
	}
}

// classify maps pipeline errors onto operator-facing messages
func (s *SyncService) classify(err error) error {
	var authErr *sellerapi.AuthError
	if errors.As(err, &authErr) {
		return shared.NewDomainError("SESSION_EXPIRED",
			"نشست پنل فروشندگان منقضی شده است؛ ورود دستی لازم است")
	}
	var rateErr *sellerapi.RateLimitError
	if errors.As(err, &rateErr) {
		return shared.NewDomainError("RATE_LIMITED",
			"پنل فروشندگان موقتا درخواست‌ها را محدود کرده است؛ کمی بعد دوباره تلاش کنید")
	}
	return err
}
