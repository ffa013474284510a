package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appsync "github.com/sellerdesk/backend/internal/application/ordersync"
	"github.com/sellerdesk/backend/internal/domain/shared"
)

type fakeSyncRunner struct {
	report       *appsync.SyncReport
	err          error
	fetchDetails bool
	calls        int
}

func (f *fakeSyncRunner) Run(_ context.Context, fetchDetails bool) (*appsync.SyncReport, error) {
	f.calls++
	f.fetchDetails = fetchDetails
	return f.report, f.err
}

func setupSyncRouter(runner *fakeSyncRunner) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	api := engine.Group("/api/v1")
	NewSyncHandler(runner, nil).RegisterRoutes(api)
	return engine
}

func TestSyncHandler_Sync(t *testing.T) {
	t.Run("returns the report", func(t *testing.T) {
		runner := &fakeSyncRunner{report: &appsync.SyncReport{Created: 3, Updated: 2, Total: 5}}
		engine := setupSyncRouter(runner)

		w := doRequest(engine, http.MethodPost, "/api/v1/orders/sync", gin.H{})
		require.Equal(t, http.StatusOK, w.Code)

		resp := decodeResponse(t, w)
		assert.True(t, resp.Success)
		data := resp.Data.(map[string]any)
		assert.EqualValues(t, 3, data["new_orders"])
		assert.EqualValues(t, 2, data["updated_orders"])
		assert.EqualValues(t, 5, data["total"])
	})

	t.Run("passes fetch_full_details through", func(t *testing.T) {
		runner := &fakeSyncRunner{report: &appsync.SyncReport{}}
		engine := setupSyncRouter(runner)

		w := doRequest(engine, http.MethodPost, "/api/v1/orders/sync", gin.H{"fetch_full_details": true})
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, runner.fetchDetails)
	})

	t.Run("body is optional", func(t *testing.T) {
		runner := &fakeSyncRunner{report: &appsync.SyncReport{}}
		engine := setupSyncRouter(runner)

		w := doRequest(engine, http.MethodPost, "/api/v1/orders/sync", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, runner.calls)
		assert.False(t, runner.fetchDetails)
	})

	t.Run("expired session maps to 401", func(t *testing.T) {
		runner := &fakeSyncRunner{err: shared.NewDomainError("SESSION_EXPIRED", "ورود دستی لازم است")}
		engine := setupSyncRouter(runner)

		w := doRequest(engine, http.MethodPost, "/api/v1/orders/sync", gin.H{})
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "ERR_SESSION_EXPIRED", resp.Error.Code)
	})

	t.Run("rate limit maps to 429", func(t *testing.T) {
		runner := &fakeSyncRunner{err: shared.NewDomainError("RATE_LIMITED", "کمی بعد تلاش کنید")}
		engine := setupSyncRouter(runner)

		w := doRequest(engine, http.MethodPost, "/api/v1/orders/sync", gin.H{})
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
	})
}
