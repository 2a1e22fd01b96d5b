package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cryptoSignalBot/internal/ports"
)

// Metrics holds the Prometheus collectors for the analysis pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	AnalysesTotal  *prometheus.CounterVec // labels: kind=single|group
	SignalsTotal   *prometheus.CounterVec // labels: label
	SymbolsSkipped *prometheus.CounterVec // labels: reason
	FetchDuration  prometheus.Histogram
	SettingsEdits  *prometheus.CounterVec // labels: field
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AnalysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_analyses_total",
			Help: "Analysis requests served",
		}, []string{"kind"}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_signals_total",
			Help: "Signals computed by label",
		}, []string{"label"}),
		SymbolsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_symbols_skipped_total",
			Help: "Symbols dropped from a group analysis",
		}, []string{"reason"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalbot_kline_fetch_duration_seconds",
			Help:    "Latency of candle fetches",
			Buckets: prometheus.DefBuckets,
		}),
		SettingsEdits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_settings_edits_total",
			Help: "Accepted settings edits by field",
		}, []string{"field"}),
	}
	reg.MustRegister(m.AnalysesTotal, m.SignalsTotal, m.SymbolsSkipped, m.FetchDuration, m.SettingsEdits)
	return m
}

// ObserveAnalysis counts a served request.
func (m *Metrics) ObserveAnalysis(kind string) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(kind).Inc()
}

// ObserveSignal counts a computed signal.
func (m *Metrics) ObserveSignal(label string) {
	if m == nil {
		return
	}
	m.SignalsTotal.WithLabelValues(label).Inc()
}

// ObserveSkip counts a symbol dropped for reason.
func (m *Metrics) ObserveSkip(reason string) {
	if m == nil {
		return
	}
	m.SymbolsSkipped.WithLabelValues(reason).Inc()
}

// ObserveFetch records how long a candle fetch took.
func (m *Metrics) ObserveFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
}

// ObserveSettingsEdit counts an accepted edit.
func (m *Metrics) ObserveSettingsEdit(field string) {
	if m == nil {
		return
	}
	m.SettingsEdits.WithLabelValues(field).Inc()
}

// Server exposes /metrics for a registry.
type Server struct {
	srv    *http.Server
	logger ports.Logger
}

// NewServer creates a metrics server for gatherer on addr.
func NewServer(addr string, gatherer prometheus.Gatherer, logger ports.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &Server{
		srv:    &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		logger: logger,
	}
}

// Handler returns the HTTP handler serving /metrics.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start(ctx context.Context) {
	go func() {
		s.logger.Info(ctx, "Metrics server listening", map[string]interface{}{"addr": s.srv.Addr})
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(ctx, err, "Metrics server stopped")
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
