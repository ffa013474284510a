// Package integration exercises the full ingestion pipeline end to end:
// a stubbed seller panel, the HTTP client with its retry policy, the
// flattening and reconciliation layers, a real SQLite database, and the
// public REST surface.
package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	appsync "github.com/sellerdesk/backend/internal/application/ordersync"
	"github.com/sellerdesk/backend/internal/domain/ordersync"
	"github.com/sellerdesk/backend/internal/infrastructure/persistence"
	"github.com/sellerdesk/backend/internal/infrastructure/sellerapi"
	"github.com/sellerdesk/backend/internal/interfaces/http/dto"
	"github.com/sellerdesk/backend/internal/interfaces/http/handler"
	"github.com/sellerdesk/backend/internal/interfaces/http/router"
)

// panelOrder is the raw order shape the stubbed panel serves
type panelOrder struct {
	OrderID      string
	ShipmentID   string
	CustomerName string
	Status       string
	City         string
	Address      string
	Variants     []panelVariant
}

type panelVariant struct {
	ProductID string
	Title     string
	Count     int
	Price     int
}

func (o panelOrder) json() string {
	items := make([]string, 0, len(o.Variants))
	for _, v := range o.Variants {
		items = append(items, fmt.Sprintf(
			`{"productId":"%s","title":"%s","count":%d,"price":%d}`,
			v.ProductID, v.Title, v.Count, v.Price))
	}
	return fmt.Sprintf(
		`{"orderId":"%s","shipmentId":"%s","customer_name":"%s","orderDate":"1403/05/01","status":{"code":1,"text_fa":"%s"},"address":{"state":"تهران","city":"%s","address":"%s","postal_code":"1234567890"},"variants":[%s]}`,
		o.OrderID, o.ShipmentID, o.CustomerName, o.Status, o.City, o.Address,
		strings.Join(items, ","))
}

// panelStub is a mutable fake of the seller panel. Tests change its
// orders between sync rounds to drive reconciliation.
type panelStub struct {
	mu       sync.Mutex
	orders   []panelOrder
	failWith int // when non-zero, every request gets this status
}

func (s *panelStub) setOrders(orders ...panelOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = orders
}

func (s *panelStub) failAll(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = status
}

func (s *panelStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != 0 {
		w.WriteHeader(s.failWith)
		return
	}

	switch {
	case r.URL.Path == "/ship-by-seller-orders":
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		s.servePage(w, page)
	case r.URL.Path == "/orders/ongoing":
		// The marketplace listing stays empty in these scenarios
		fmt.Fprint(w, `{"data":{"items":[]}}`)
	case strings.HasPrefix(r.URL.Path, "/ship-by-seller-orders/customer/"):
		fmt.Fprint(w, `{"data":{"state":"تهران","city":"تهران","address":"","postalCode":"","phoneNumber":"09120000000"}}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *panelStub) servePage(w http.ResponseWriter, page int) {
	if page != 1 {
		fmt.Fprint(w, `{"data":{"items":[]}}`)
		return
	}
	items := make([]string, 0, len(s.orders))
	for _, o := range s.orders {
		items = append(items, o.json())
	}
	fmt.Fprintf(w, `{"data":{"items":[%s]}}`, strings.Join(items, ","))
}

// testEnv wires the whole service against the stub
type testEnv struct {
	engine *gin.Engine
	panel  *panelStub
	repo   ordersync.OrderRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&ordersync.Order{}, &ordersync.OrderItem{}))

	panel := &panelStub{}
	server := httptest.NewServer(panel)
	t.Cleanup(server.Close)

	client, err := sellerapi.NewClient(&sellerapi.Config{
		BaseURL:  server.URL,
		PageSize: 10,
		MaxPages: 3,
	}, sellerapi.NewMemoryCredentialStore(sellerapi.CredentialSet{
		{Name: "session", Value: "integration"},
	}))
	require.NoError(t, err)

	repo := persistence.NewGormOrderRepository(db)
	service := appsync.NewSyncService(
		sellerapi.NewFetcher(client, nil),
		sellerapi.NewFlattener(client, nil),
		persistence.NewGormTxRunner(db),
		nil,
	)

	engine := gin.New()
	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(handler.NewOrderHandler(repo, nil)).
		Register(handler.NewSyncHandler(service, nil)).
		Setup()

	return &testEnv{engine: engine, panel: panel, repo: repo}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// dataMap re-decodes the envelope's data field into a map for assertions
func dataMap(t *testing.T, resp dto.Response) map[string]any {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

// dataList re-decodes the envelope's data field into a slice of maps
func dataList(t *testing.T, resp dto.Response) []map[string]any {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(raw, &list))
	return list
}
