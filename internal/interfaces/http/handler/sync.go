package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appsync "github.com/sellerdesk/backend/internal/application/ordersync"
)

// SyncRunner runs one reconciliation pass against the seller panel
type SyncRunner interface {
	Run(ctx context.Context, fetchDetails bool) (*appsync.SyncReport, error)
}

// SyncHandler exposes the on-demand synchronization endpoint
type SyncHandler struct {
	BaseHandler
	service SyncRunner
	logger  *zap.Logger
}

// NewSyncHandler creates a SyncHandler
func NewSyncHandler(service SyncRunner, logger *zap.Logger) *SyncHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncHandler{service: service, logger: logger}
}

// RegisterRoutes registers the sync route
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/orders/sync", h.Sync)
}

type syncRequest struct {
	FetchFullDetails bool `json:"fetch_full_details"`
}

// Sync pulls fresh orders from the seller panel and reconciles them into
// storage. The request body is optional; details default to off because
// each shipment costs one extra upstream call.
func (h *SyncHandler) Sync(c *gin.Context) {
	var req syncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
	}

	report, err := h.service.Run(c.Request.Context(), req.FetchFullDetails)
	if err != nil {
		h.logger.Error("order sync failed", zap.Error(err))
		h.HandleError(c, err)
		return
	}

	h.Success(c, report)
}
