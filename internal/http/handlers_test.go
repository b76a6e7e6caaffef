package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/deepakgees/AssetManagement-sub001/internal/logger"
	"github.com/deepakgees/AssetManagement-sub001/internal/models"
	"github.com/deepakgees/AssetManagement-sub001/internal/repository/memory"
	"github.com/deepakgees/AssetManagement-sub001/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBroker struct{}

func (stubBroker) GetMarginSnapshot(ctx context.Context, account models.Account) (models.MarginSnapshot, error) {
	return models.MarginSnapshot{
		AccountID:        account.ID,
		Net:              decimal.NewFromInt(100_000),
		Debits:           decimal.NewFromInt(20_000),
		LiquidCollateral: decimal.NewFromInt(30_000),
	}, nil
}

func (stubBroker) GetHoldings(ctx context.Context, account models.Account) ([]models.Holding, error) {
	return []models.Holding{{
		AccountID:    account.ID,
		Symbol:       "INFY",
		Kind:         models.InstrumentEquity,
		Quantity:     decimal.NewFromInt(10),
		AveragePrice: decimal.NewFromInt(100),
		LastPrice:    decimal.NewFromInt(120),
	}}, nil
}

func (stubBroker) GetPositions(ctx context.Context, account models.Account) ([]models.Position, error) {
	return []models.Position{{
		AccountID:   account.ID,
		Symbol:      "NIFTYJANFUT",
		Quantity:    decimal.NewFromInt(-50),
		MarketValue: decimal.NewFromInt(-5_000),
		PnL:         decimal.NewFromInt(2_000),
	}}, nil
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewPortfolioService(memory.New(), stubBroker{}, logger.NewSilent())
	return Router(svc, logger.NewSilent())
}

func do(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	out := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func createAccount(t *testing.T, router *gin.Engine, name, family string) string {
	t.Helper()
	w := do(t, router, http.MethodPost, "/accounts", gin.H{"name": name, "family": family})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["id"].(string)
}

func TestHealthz(t *testing.T) {
	w := do(t, newRouter(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAccountLifecycle(t *testing.T) {
	router := newRouter()
	id := createAccount(t, router, "Deepak", "Sharma")

	w := do(t, router, http.MethodGet, "/accounts/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Deepak", decode(t, w)["name"])

	w = do(t, router, http.MethodPut, "/accounts/"+id, gin.H{"name": "Deepak S", "family": "Sharma"})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodDelete, "/accounts/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, router, http.MethodGet, "/accounts/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateAccountMissingName(t *testing.T) {
	w := do(t, newRouter(), http.MethodPost, "/accounts", gin.H{"family": "Sharma"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDuplicateAccountConflict(t *testing.T) {
	router := newRouter()
	createAccount(t, router, "Deepak", "")
	w := do(t, router, http.MethodPost, "/accounts", gin.H{"name": "Deepak"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSyncAndMargins(t *testing.T) {
	router := newRouter()
	id := createAccount(t, router, "Deepak", "Sharma")

	w := do(t, router, http.MethodPost, "/accounts/"+id+"/sync", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, router, http.MethodGet, "/accounts/"+id+"/margins", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "20000.00", body["usedMargin"])
	assert.Equal(t, "40000.00", body["availableMargin"])
	assert.Equal(t, float64(0), body["warnings"])
}

func TestMarginsBeforeSyncAreZero(t *testing.T) {
	router := newRouter()
	id := createAccount(t, router, "Deepak", "Sharma")

	w := do(t, router, http.MethodGet, "/accounts/"+id+"/margins", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "0.00", body["usedMargin"])
	assert.Equal(t, "0.00", body["availableMargin"])
}

func TestFamilySummaryEndpoint(t *testing.T) {
	router := newRouter()
	id1 := createAccount(t, router, "Deepak", "Sharma")
	id2 := createAccount(t, router, "Meera", "Sharma")
	for _, id := range []string{id1, id2} {
		w := do(t, router, http.MethodPost, "/accounts/"+id+"/sync", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := do(t, router, http.MethodGet, "/families/Sharma/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(2), body["totalHoldings"])
	assert.Equal(t, "2400.00", body["totalMarketValue"])
	assert.Equal(t, "2000.00", body["totalInvestment"])
	assert.Equal(t, "400.00", body["totalPnl"])
	assert.Equal(t, "20.00", body["totalPnlPercentage"])
}

func TestFamilySummaryUnknownFamily(t *testing.T) {
	w := do(t, newRouter(), http.MethodGet, "/families/Nobody/summary", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFamilyPositionsEndpoint(t *testing.T) {
	router := newRouter()
	id := createAccount(t, router, "Deepak", "Sharma")
	w := do(t, router, http.MethodPost, "/accounts/"+id+"/sync", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodGet, "/families/Sharma/positions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	months := decode(t, w)["months"].([]interface{})
	require.Len(t, months, 1)
	month := months[0].(map[string]interface{})
	assert.Equal(t, "January", month["month"])
	assert.Equal(t, "3000.00", month["remainingPnl"])
}

func TestCategoryMappingEndpoints(t *testing.T) {
	router := newRouter()

	w := do(t, router, http.MethodPut, "/category-mappings", gin.H{
		"symbol": "INFY", "kind": "equity", "category": "equity",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, router, http.MethodPut, "/category-mappings", gin.H{
		"symbol": "INFY", "kind": "equity", "category": "crypto",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodGet, "/category-mappings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["mappings"], 1)

	w = do(t, router, http.MethodDelete, "/category-mappings/INFY?kind=equity", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, router, http.MethodDelete, "/category-mappings/INFY?kind=equity", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFamilyCategoriesEndpoint(t *testing.T) {
	router := newRouter()
	id := createAccount(t, router, "Deepak", "Sharma")
	w := do(t, router, http.MethodPost, "/accounts/"+id+"/sync", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodGet, "/families/Sharma/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	breakdown := body["breakdown"].(map[string]interface{})
	unmapped := breakdown["Unmapped"].(map[string]interface{})
	assert.Equal(t, "1200.00", unmapped["marketValue"])
}

func TestListFamiliesEndpoint(t *testing.T) {
	router := newRouter()
	createAccount(t, router, "Deepak", "Sharma")
	createAccount(t, router, "Solo", "")

	w := do(t, router, http.MethodGet, "/families", nil)
	require.Equal(t, http.StatusOK, w.Code)
	families := decode(t, w)["families"].([]interface{})
	require.Len(t, families, 2)
	first := families[0].(map[string]interface{})
	last := families[1].(map[string]interface{})
	assert.Equal(t, "Sharma", first["family"])
	assert.Equal(t, "Unknown", last["family"])
}
