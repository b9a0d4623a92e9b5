package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPricing(t *testing.T) {
	m := New("pricing")
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))

	m.RecordPricing("GBM", "PUT", nil, 20000, 2, 150*time.Millisecond)
	m.RecordPricing("GBM", "PUT", errors.New("boom"), 20000, 0, time.Millisecond)
	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)
	m.RecordCacheLookup(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PricingRequestsTotal.WithLabelValues("GBM", "PUT", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PricingRequestsTotal.WithLabelValues("GBM", "PUT", "error")))
	assert.Equal(t, 20000.0, testutil.ToFloat64(m.SimulatedPaths))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DegenerateDates))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("miss")))

	// 重复注册应报错
	assert.Error(t, m.Register(reg))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordPricing("GBM", "CALL", nil, 1, 0, time.Second)
		m.RecordHTTPRequest("GET", "/", 200, time.Second)
		m.RecordOutbox(1, 0, 0)
	})
}

func TestMetricsHandlerExposesRegistry(t *testing.T) {
	m := New("pricing")
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))
	m.RecordHTTPRequest("POST", "/api/v1/pricing/american/price", 200, 10*time.Millisecond)

	srv := NewHTTPServer(0, "", reg)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "lsm_pricing_http_requests_total")
}
