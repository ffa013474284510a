package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sellerdesk/backend/internal/domain/ordersync"
	"github.com/sellerdesk/backend/internal/domain/shared"
)

// OrderHandler serves the stored-order admin API
type OrderHandler struct {
	BaseHandler
	repo   ordersync.OrderRepository
	logger *zap.Logger
}

// NewOrderHandler creates an OrderHandler
func NewOrderHandler(repo ordersync.OrderRepository, logger *zap.Logger) *OrderHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderHandler{repo: repo, logger: logger}
}

// RegisterRoutes registers the order routes
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	{
		orders.GET("", h.List)
		orders.GET("/stats", h.Stats)
		orders.GET("/filters/options", h.FilterOptions)
		orders.GET("/:id", h.Detail)
		orders.PUT("/:id", h.Update)
		orders.DELETE("/:id", h.Delete)
		orders.POST("/bulk-update", h.BulkUpdate)
	}
}

type listOrdersQuery struct {
	Skip        int    `form:"skip" binding:"min=0"`
	Limit       int    `form:"limit" binding:"min=0,max=1000"`
	Status      string `form:"status"`
	City        string `form:"city"`
	Province    string `form:"province"`
	HasTracking *bool  `form:"has_tracking"`
	Search      string `form:"search"`
	OrderBy     string `form:"order_by" binding:"omitempty,oneof=created_at order_date_gregorian"`
	OrderDir    string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

type orderItemResponse struct {
	ID           uuid.UUID `json:"id"`
	ProductTitle string    `json:"product_title"`
	ProductCode  string    `json:"product_code"`
	ProductImage string    `json:"product_image,omitempty"`
	Quantity     int       `json:"quantity"`
	Price        string    `json:"price"`
}

type orderResponse struct {
	ID               uuid.UUID `json:"id"`
	OrderCode        string    `json:"order_code"`
	ShipmentID       string    `json:"shipment_id"`
	CustomerName     string    `json:"customer_name"`
	CustomerPhone    string    `json:"customer_phone"`
	Status           string    `json:"status"`
	City             string    `json:"city"`
	Province         string    `json:"province"`
	TrackingCode     string    `json:"tracking_code"`
	OrderDatePersian string    `json:"order_date_persian"`
	CreatedAt        time.Time `json:"created_at"`
	ItemsCount       int       `json:"items_count"`
	TotalAmount      string    `json:"total_amount"`
}

type orderDetailResponse struct {
	orderResponse
	FullAddress string              `json:"full_address"`
	PostalCode  string              `json:"postal_code"`
	Items       []orderItemResponse `json:"items"`
}

func toOrderResponse(o *ordersync.Order) orderResponse {
	return orderResponse{
		ID:               o.ID,
		OrderCode:        o.OrderCode,
		ShipmentID:       o.ShipmentID,
		CustomerName:     o.CustomerName,
		CustomerPhone:    o.CustomerPhone,
		Status:           o.Status,
		City:             o.City,
		Province:         o.Province,
		TrackingCode:     o.TrackingCode,
		OrderDatePersian: o.OrderDatePersian,
		CreatedAt:        o.CreatedAt,
		ItemsCount:       len(o.Items),
		TotalAmount:      o.TotalAmount().String(),
	}
}

func toOrderDetailResponse(o *ordersync.Order) orderDetailResponse {
	resp := orderDetailResponse{
		orderResponse: toOrderResponse(o),
		FullAddress:   o.FullAddress,
		PostalCode:    o.PostalCode,
		Items:         make([]orderItemResponse, 0, len(o.Items)),
	}
	for i := range o.Items {
		item := &o.Items[i]
		resp.Items = append(resp.Items, orderItemResponse{
			ID:           item.ID,
			ProductTitle: item.ProductTitle,
			ProductCode:  item.ProductCode,
			ProductImage: item.ProductImage,
			Quantity:     item.Quantity,
			Price:        item.UnitPrice.String(),
		})
	}
	return resp
}

// List returns stored orders with filtering, search and pagination
func (h *OrderHandler) List(c *gin.Context) {
	query := listOrdersQuery{Limit: 100}
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := ordersync.OrderFilter{
		Status:      query.Status,
		City:        query.City,
		Province:    query.Province,
		HasTracking: query.HasTracking,
		Search:      query.Search,
		OrderBy:     query.OrderBy,
		OrderDir:    query.OrderDir,
		Offset:      query.Skip,
		Limit:       query.Limit,
	}

	orders, total, err := h.repo.FindAll(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("listing orders failed", zap.Error(err))
		h.InternalError(c, "failed to list orders")
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, toOrderResponse(&orders[i]))
	}

	page := 1
	if query.Limit > 0 {
		page = query.Skip/query.Limit + 1
	}
	h.SuccessWithMeta(c, resp, total, page, query.Limit)
}

// Detail returns one order with its line items
func (h *OrderHandler) Detail(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid order id")
		return
	}

	order, err := h.repo.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.NotFound(c, "سفارش یافت نشد")
			return
		}
		h.HandleError(c, err)
		return
	}

	h.Success(c, toOrderDetailResponse(order))
}

type statsResponse struct {
	TotalOrders           int64   `json:"total_orders"`
	OrdersWithTracking    int64   `json:"orders_with_tracking"`
	OrdersWithoutTracking int64   `json:"orders_without_tracking"`
	TotalSales            string  `json:"total_sales"`
	UniqueCities          int64   `json:"unique_cities"`
	RecentOrders7d        int64   `json:"recent_orders_7d"`
	CompletionRate        float64 `json:"completion_rate"`
}

// Stats returns the aggregate order summary
func (h *OrderHandler) Stats(c *gin.Context) {
	stats, err := h.repo.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("computing order stats failed", zap.Error(err))
		h.InternalError(c, "failed to compute stats")
		return
	}

	resp := statsResponse{
		TotalOrders:           stats.TotalOrders,
		OrdersWithTracking:    stats.OrdersWithTracking,
		OrdersWithoutTracking: stats.TotalOrders - stats.OrdersWithTracking,
		TotalSales:            stats.TotalSales.String(),
		UniqueCities:          stats.UniqueCities,
		RecentOrders7d:        stats.RecentOrders7d,
	}
	if stats.TotalOrders > 0 {
		rate := float64(stats.OrdersWithTracking) / float64(stats.TotalOrders) * 100
		resp.CompletionRate = float64(int(rate*100)) / 100
	}

	h.Success(c, resp)
}

type updateOrderRequest struct {
	TrackingCode  *string `json:"tracking_code"`
	Status        *string `json:"status"`
	CustomerPhone *string `json:"customer_phone"`
	FullAddress   *string `json:"full_address"`
	PostalCode    *string `json:"postal_code"`
}

func (r *updateOrderRequest) apply(order *ordersync.Order) {
	if r.TrackingCode != nil {
		order.TrackingCode = *r.TrackingCode
	}
	if r.Status != nil {
		order.Status = *r.Status
	}
	if r.CustomerPhone != nil {
		order.CustomerPhone = *r.CustomerPhone
	}
	if r.FullAddress != nil {
		order.FullAddress = *r.FullAddress
	}
	if r.PostalCode != nil {
		order.PostalCode = *r.PostalCode
	}
}

// Update edits operator-managed order fields
func (h *OrderHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid order id")
		return
	}

	var req updateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	order, err := h.repo.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.NotFound(c, "سفارش یافت نشد")
			return
		}
		h.HandleError(c, err)
		return
	}

	req.apply(order)
	if err := h.repo.Save(c.Request.Context(), order); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"message": "سفارش به‌روزرسانی شد"})
}

type bulkUpdateRequest struct {
	OrderIDs []uuid.UUID        `json:"order_ids" binding:"required,min=1"`
	Updates  updateOrderRequest `json:"updates"`
}

// BulkUpdate applies the same edit to several orders; unknown ids are
// skipped, matching the count in the response
func (h *OrderHandler) BulkUpdate(c *gin.Context) {
	var req bulkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	updated := 0
	for _, id := range req.OrderIDs {
		order, err := h.repo.FindByID(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				continue
			}
			h.HandleError(c, err)
			return
		}
		req.Updates.apply(order)
		if err := h.repo.Save(c.Request.Context(), order); err != nil {
			h.HandleError(c, err)
			return
		}
		updated++
	}

	h.Success(c, gin.H{
		"updated_count": updated,
		"message":       "به‌روزرسانی گروهی انجام شد",
	})
}

// Delete removes an order and its items
func (h *OrderHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid order id")
		return
	}

	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.NotFound(c, "سفارش یافت نشد")
			return
		}
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"message": "سفارش حذف شد"})
}

// FilterOptions returns the distinct filterable values
func (h *OrderHandler) FilterOptions(c *gin.Context) {
	opts, err := h.repo.FilterOptions(c.Request.Context())
	if err != nil {
		h.logger.Error("loading filter options failed", zap.Error(err))
		h.InternalError(c, "failed to load filter options")
		return
	}

	h.Success(c, gin.H{
		"statuses":  opts.Statuses,
		"cities":    opts.Cities,
		"provinces": opts.Provinces,
	})
}
