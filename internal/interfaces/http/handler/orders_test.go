package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sellerdesk/backend/internal/domain/ordersync"
	"github.com/sellerdesk/backend/internal/infrastructure/persistence"
	"github.com/sellerdesk/backend/internal/interfaces/http/dto"
)

func setupOrderRouter(t *testing.T) (*gin.Engine, *persistence.GormOrderRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&ordersync.Order{}, &ordersync.OrderItem{}))

	repo := persistence.NewGormOrderRepository(db)

	engine := gin.New()
	api := engine.Group("/api/v1")
	NewOrderHandler(repo, nil).RegisterRoutes(api)
	return engine, repo
}

func storeOrder(t *testing.T, repo *persistence.GormOrderRepository, shipmentID, status, tracking string) *ordersync.Order {
	t.Helper()
	order := &ordersync.Order{
		ID:           uuid.New(),
		OrderCode:    "9" + shipmentID,
		ShipmentID:   shipmentID,
		CustomerName: "مشتری",
		Status:       status,
		City:         "تهران",
		Province:     "تهران",
		TrackingCode: tracking,
		Items: []ordersync.OrderItem{{
			ID:          uuid.New(),
			ProductCode: "P-" + shipmentID,
			Quantity:    2,
			UnitPrice:   decimal.NewFromInt(100000),
		}},
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	require.NoError(t, repo.Save(t.Context(), order))
	return order
}

func doRequest(engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestOrderHandler_List(t *testing.T) {
	engine, repo := setupOrderRouter(t)
	storeOrder(t, repo, "100", "new", "")
	storeOrder(t, repo, "200", "shipped", "TRK-1")

	t.Run("returns all orders with meta", func(t *testing.T) {
		w := doRequest(engine, http.MethodGet, "/api/v1/orders", nil)
		require.Equal(t, http.StatusOK, w.Code)

		resp := decodeResponse(t, w)
		assert.True(t, resp.Success)
		require.NotNil(t, resp.Meta)
		assert.EqualValues(t, 2, resp.Meta.Total)

		list, ok := resp.Data.([]any)
		require.True(t, ok)
		assert.Len(t, list, 2)
		first := list[0].(map[string]any)
		assert.EqualValues(t, 1, first["items_count"])
		assert.Equal(t, "200000", first["total_amount"])
	})

	t.Run("filters by status", func(t *testing.T) {
		w := doRequest(engine, http.MethodGet, "/api/v1/orders?status=shipped", nil)
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Meta)
		assert.EqualValues(t, 1, resp.Meta.Total)
	})

	t.Run("rejects invalid order_by", func(t *testing.T) {
		w := doRequest(engine, http.MethodGet, "/api/v1/orders?order_by=drop_table", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestOrderHandler_Detail(t *testing.T) {
	engine, repo := setupOrderRouter(t)
	order := storeOrder(t, repo, "100", "new", "")

	t.Run("returns order with items", func(t *testing.T) {
		w := doRequest(engine, http.MethodGet, "/api/v1/orders/"+order.ID.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)

		resp := decodeResponse(t, w)
		data := resp.Data.(map[string]any)
		assert.Equal(t, "100", data["shipment_id"])
		assert.Len(t, data["items"], 1)
	})

	t.Run("404 for unknown order", func(t *testing.T) {
		w := doRequest(engine, http.MethodGet, "/api/v1/orders/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("400 for malformed id", func(t *testing.T) {
		w := doRequest(engine, http.MethodGet, "/api/v1/orders/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestOrderHandler_Stats(t *testing.T) {
	engine, repo := setupOrderRouter(t)
	storeOrder(t, repo, "100", "new", "")
	storeOrder(t, repo, "200", "shipped", "TRK-1")

	w := doRequest(engine, http.MethodGet, "/api/v1/orders/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	data := resp.Data.(map[string]any)
	assert.EqualValues(t, 2, data["total_orders"])
	assert.EqualValues(t, 1, data["orders_with_tracking"])
	assert.EqualValues(t, 1, data["orders_without_tracking"])
	assert.EqualValues(t, 50, data["completion_rate"])
}

func TestOrderHandler_Update(t *testing.T) {
	engine, repo := setupOrderRouter(t)
	order := storeOrder(t, repo, "100", "new", "")

	w := doRequest(engine, http.MethodPut, "/api/v1/orders/"+order.ID.String(), gin.H{
		"tracking_code": "TRK-42",
		"status":        "shipped",
	})
	require.Equal(t, http.StatusOK, w.Code)

	updated, err := repo.FindByID(t.Context(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, "TRK-42", updated.TrackingCode)
	assert.Equal(t, "shipped", updated.Status)
	assert.Equal(t, "مشتری", updated.CustomerName, "untouched fields survive")
}

func TestOrderHandler_BulkUpdate(t *testing.T) {
	engine, repo := setupOrderRouter(t)
	a := storeOrder(t, repo, "100", "new", "")
	b := storeOrder(t, repo, "200", "new", "")

	w := doRequest(engine, http.MethodPost, "/api/v1/orders/bulk-update", gin.H{
		"order_ids": []string{a.ID.String(), b.ID.String(), uuid.NewString()},
		"updates":   gin.H{"status": "shipped"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	data := resp.Data.(map[string]any)
	assert.EqualValues(t, 2, data["updated_count"], "unknown ids are skipped")

	for _, id := range []uuid.UUID{a.ID, b.ID} {
		order, err := repo.FindByID(t.Context(), id)
		require.NoError(t, err)
		assert.Equal(t, "shipped", order.Status)
	}
}

func TestOrderHandler_Delete(t *testing.T) {
	engine, repo := setupOrderRouter(t)
	order := storeOrder(t, repo, "100", "new", "")

	w := doRequest(engine, http.MethodDelete, "/api/v1/orders/"+order.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	_, err := repo.FindByID(t.Context(), order.ID)
	assert.Error(t, err)

	w = doRequest(engine, http.MethodDelete, "/api/v1/orders/"+order.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrderHandler_FilterOptions(t *testing.T) {
	engine, repo := setupOrderRouter(t)
	storeOrder(t, repo, "100", "new", "")
	storeOrder(t, repo, "200", "shipped", "")

	w := doRequest(engine, http.MethodGet, "/api/v1/orders/filters/options", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	data := resp.Data.(map[string]any)
	assert.Len(t, data["statuses"], 2)
	assert.Len(t, data["cities"], 1)
}

func TestOrderHandler_ListPagination(t *testing.T) {
	engine, repo := setupOrderRouter(t)
	for i := 0; i < 5; i++ {
		storeOrder(t, repo, fmt.Sprintf("%d00", i+1), "new", "")
	}

	w := doRequest(engine, http.MethodGet, "/api/v1/orders?skip=3&limit=3", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.EqualValues(t, 5, resp.Meta.Total)
	assert.Len(t, resp.Data.([]any), 2)
}
