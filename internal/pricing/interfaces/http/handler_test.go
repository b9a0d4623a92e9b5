package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/lsmpricing/internal/pricing/application"
	"github.com/wyfcoding/lsmpricing/internal/pricing/domain"
	"github.com/wyfcoding/lsmpricing/pkg/config"
)

type stubRepo struct {
	mu      sync.Mutex
	results []*domain.PricingResult
	quotes  map[string]*domain.SpotQuote
}

func (r *stubRepo) WithTx(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) }

func (r *stubRepo) SavePricingResult(_ context.Context, res *domain.PricingResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
	return nil
}

func (r *stubRepo) GetLatestPricingResult(_ context.Context, symbol string) (*domain.PricingResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.results) - 1; i >= 0; i-- {
		if r.results[i].Spec.Symbol == symbol {
			return r.results[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *stubRepo) GetPricingResultHistory(ctx context.Context, symbol string, _ int) ([]*domain.PricingResult, error) {
	res, err := r.GetLatestPricingResult(ctx, symbol)
	if err != nil {
		return nil, nil
	}
	return []*domain.PricingResult{res}, nil
}

func (r *stubRepo) SaveConvergenceReport(context.Context, *domain.ConvergenceReport) error {
	return nil
}

func (r *stubRepo) GetConvergenceReport(context.Context, string) (*domain.ConvergenceReport, error) {
	return nil, domain.ErrNotFound
}

func (r *stubRepo) SaveQuote(_ context.Context, q *domain.SpotQuote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quotes[q.Symbol] = q
	return nil
}

func (r *stubRepo) GetLatestQuote(_ context.Context, symbol string) (*domain.SpotQuote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if q, ok := r.quotes[symbol]; ok {
		return q, nil
	}
	return nil, domain.ErrNotFound
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := application.NewPricingService(&stubRepo{quotes: map[string]*domain.SpotQuote{}}, nil, nil, nil, config.PricingConfig{
		DefaultPaths:         2000,
		DefaultExerciseDates: 10,
		DefaultSeed:          42,
		DefaultBasis:         "LAGUERRE",
		DefaultBasisSize:     3,
		MaxPaths:             50000,
		MaxBatch:             4,
		Parallelism:          2,
	})
	router := gin.New()
	NewPricingHandler(svc).RegisterRoutes(router)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestPriceThenQueryLatest(t *testing.T) {
	router := newTestRouter()

	w, env := doJSON(t, router, http.MethodPost, "/api/v1/pricing/american/price", gin.H{
		"symbol": "XYZ", "option_type": "PUT", "spot": 36, "strike": 40,
		"maturity": 1, "risk_free_rate": 0.06, "volatility": 0.2,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 0, env.Code)

	var priced domain.PricingResult
	require.NoError(t, json.Unmarshal(env.Data, &priced))
	assert.True(t, priced.OptionPrice.GreaterThan(decimal.NewFromFloat(4.0)))
	assert.True(t, priced.OptionPrice.LessThan(decimal.NewFromFloat(5.0)))

	w, env = doJSON(t, router, http.MethodGet, "/api/v1/pricing/results/XYZ/latest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var latest domain.PricingResult
	require.NoError(t, json.Unmarshal(env.Data, &latest))
	assert.True(t, priced.OptionPrice.Equal(latest.OptionPrice))

	w, _ = doJSON(t, router, http.MethodGet, "/api/v1/pricing/results/XYZ/history?limit=5", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestErrorStatusMapping(t *testing.T) {
	router := newTestRouter()

	w, env := doJSON(t, router, http.MethodPost, "/api/v1/pricing/american/price", gin.H{
		"symbol": "XYZ", "option_type": "PUT", "spot": 36, "strike": -40,
		"maturity": 1, "risk_free_rate": 0.06, "volatility": 0.2,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_PARAMETER", env.Message)

	w, _ = doJSON(t, router, http.MethodGet, "/api/v1/pricing/results/NOPE/latest", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = doJSON(t, router, http.MethodGet, "/api/v1/pricing/convergence/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = doJSON(t, router, http.MethodPost, "/api/v1/pricing/american/batch", gin.H{"contracts": []any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordQuoteFeedsSpotFallback(t *testing.T) {
	router := newTestRouter()

	w, _ := doJSON(t, router, http.MethodPost, "/api/v1/pricing/quotes", gin.H{
		"symbol": "ABC", "bid": "35.9", "ask": "36.1", "source": "test",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env := doJSON(t, router, http.MethodGet, "/api/v1/pricing/quotes/ABC/latest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var quote domain.SpotQuote
	require.NoError(t, json.Unmarshal(env.Data, &quote))
	assert.True(t, quote.Mid.Equal(decimal.NewFromInt(36)))

	w, env = doJSON(t, router, http.MethodPost, "/api/v1/pricing/american/price", gin.H{
		"symbol": "ABC", "option_type": "PUT", "strike": 40,
		"maturity": 1, "risk_free_rate": 0.06, "volatility": 0.2,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var priced domain.PricingResult
	require.NoError(t, json.Unmarshal(env.Data, &priced))
	assert.InDelta(t, 36.0, priced.Spec.Spot, 1e-9)
}
