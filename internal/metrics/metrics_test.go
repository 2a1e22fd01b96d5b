package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{})            {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})             {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})             {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {}

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveAnalysis("group")
	m.ObserveSignal("buy")
	m.ObserveSignal("buy")
	m.ObserveSkip("data_unavailable")
	m.ObserveFetch(150 * time.Millisecond)
	m.ObserveSettingsEdit("weights")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("group")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SignalsTotal.WithLabelValues("buy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SymbolsSkipped.WithLabelValues("data_unavailable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SettingsEdits.WithLabelValues("weights")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.FetchDuration))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveAnalysis("single")
		m.ObserveSignal("sell")
		m.ObserveSkip("x")
		m.ObserveFetch(time.Second)
		m.ObserveSettingsEdit("rsi")
	})
}

func TestServer_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg).ObserveSignal("neutral")

	srv := NewServer(":0", reg, &mockLogger{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `signalbot_signals_total{label="neutral"} 1`)
}
