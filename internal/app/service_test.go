package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
	"cryptoSignalBot/internal/risk"
	"cryptoSignalBot/internal/settings"
	"cryptoSignalBot/internal/strategy"
)

// Mock implementations
type mockLogger struct {
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.infoMsgs = append(m.infoMsgs, msg)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.warnMsgs = append(m.warnMsgs, msg)
}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.errorMsgs = append(m.errorMsgs, msg)
}

type mockMarket struct {
	klines     map[string][]*domain.Kline
	klineErrs  map[string]error
	top        []string
	topErr     error
	intervals  []string
	topLimits  []int
	lastLimits []int
}

func (m *mockMarket) GetKlines(ctx context.Context, symbol string, interval string, limit int) ([]*domain.Kline, error) {
	m.intervals = append(m.intervals, interval)
	m.lastLimits = append(m.lastLimits, limit)
	if err := m.klineErrs[symbol]; err != nil {
		return nil, err
	}
	return m.klines[symbol], nil
}

func (m *mockMarket) GetTopSymbols(ctx context.Context, limit int) ([]string, error) {
	m.topLimits = append(m.topLimits, limit)
	return m.top, m.topErr
}

type memoryBackend struct {
	saved   map[string]domain.UserSettings
	saves   int
	saveErr error
}

func (b *memoryBackend) LoadAll(ctx context.Context) (map[string]domain.UserSettings, error) {
	return map[string]domain.UserSettings{}, nil
}

func (b *memoryBackend) SaveAll(ctx context.Context, all map[string]domain.UserSettings) error {
	if b.saveErr != nil {
		return b.saveErr
	}
	b.saves++
	b.saved = all
	return nil
}

type mockRecorder struct {
	recorded []domain.SignalResult
	err      error
}

func (m *mockRecorder) RecordSignal(ctx context.Context, result domain.SignalResult) error {
	m.recorded = append(m.recorded, result)
	return m.err
}

type mockNotifier struct {
	titles []string
	bodies []string
}

func (m *mockNotifier) Notify(ctx context.Context, title, body string) error {
	m.titles = append(m.titles, title)
	m.bodies = append(m.bodies, body)
	return nil
}

func generateTestKlines(count int, base float64) []*domain.Kline {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	klines := make([]*domain.Kline, count)
	for i := range klines {
		open := start.Add(time.Duration(i) * 15 * time.Minute)
		klines[i] = &domain.Kline{OpenTime: open, CloseTime: open.Add(15 * time.Minute), Close: base * math.Pow(1.01, float64(i))}
	}
	return klines
}

type fixture struct {
	svc      *AnalysisService
	market   *mockMarket
	backend  *memoryBackend
	recorder *mockRecorder
	notifier *mockNotifier
	logger   *mockLogger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := &mockLogger{}
	market := &mockMarket{klines: map[string][]*domain.Kline{}, klineErrs: map[string]error{}}
	backend := &memoryBackend{}
	recorder := &mockRecorder{}
	notifier := &mockNotifier{}

	strat, err := strategy.New(strategy.DefaultConfig(), logger)
	require.NoError(t, err)
	store, err := settings.NewStore(settings.Config{Backend: backend, Defaults: domain.DefaultUserSettings(), Logger: logger})
	require.NoError(t, err)

	svc, err := NewAnalysisService(Config{
		Market:   market,
		Strategy: strat,
		Risk:     risk.NewManager(risk.AllocationConfig{TopN: 4}),
		Settings: store,
		Recorder: recorder,
		Notifier: notifier,
		Logger:   logger,
	})
	require.NoError(t, err)
	svc.newRunID = func() string { return "run-1" }

	return &fixture{svc: svc, market: market, backend: backend, recorder: recorder, notifier: notifier, logger: logger}
}

func TestNewAnalysisService(t *testing.T) {
	logger := &mockLogger{}
	strat, err := strategy.New(strategy.DefaultConfig(), logger)
	require.NoError(t, err)
	store, err := settings.NewStore(settings.Config{Backend: &memoryBackend{}, Defaults: domain.DefaultUserSettings(), Logger: logger})
	require.NoError(t, err)

	valid := Config{Market: &mockMarket{}, Strategy: strat, Risk: risk.NewManager(risk.AllocationConfig{}), Settings: store, Logger: logger}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing market", mutate: func(c *Config) { c.Market = nil }, wantErr: true},
		{name: "missing strategy", mutate: func(c *Config) { c.Strategy = nil }, wantErr: true},
		{name: "missing settings", mutate: func(c *Config) { c.Settings = nil }, wantErr: true},
		{name: "missing logger", mutate: func(c *Config) { c.Logger = nil }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			svc, err := NewAnalysisService(cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ports.ErrConfigurationError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DefaultCandleLimit, svc.candleLimit)
			assert.Equal(t, DefaultTopSymbolsLimit, svc.topSymbolsLimit)
		})
	}

	// A candle limit below the EMA200 warm-up is accepted with a warning.
	short := valid
	short.CandleLimit = 100
	_, err = NewAnalysisService(short)
	require.NoError(t, err)
	assert.Contains(t, logger.warnMsgs, "Candle limit below indicator warm-up, slow indicators will be undefined")
}

func TestAnalysisService_AnalyzeSymbol(t *testing.T) {
	f := newFixture(t)
	f.market.klines["BTCUSDT"] = generateTestKlines(300, 100)

	rep, err := f.svc.AnalyzeSymbol(context.Background(), "u1", " btcusdt ")
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", rep.Result.Symbol)
	assert.Equal(t, "15m", rep.Result.Timeframe)
	assert.InDelta(t, 0.7, rep.Result.Score, 1e-9)
	assert.Equal(t, domain.LabelNeutral, rep.Result.Label)
	assert.Equal(t, 300, rep.Series.Len())
	assert.True(t, strings.HasPrefix(rep.Text, "NEUTRAL signal for BTCUSDT"))

	assert.Equal(t, []string{"15m"}, f.market.intervals)
	assert.Equal(t, []int{DefaultCandleLimit}, f.market.lastLimits)
	require.Len(t, f.recorder.recorded, 1)
	assert.Equal(t, "BTCUSDT", f.recorder.recorded[0].Symbol)

	// First contact creates and persists the user's defaults.
	assert.Equal(t, 1, f.backend.saves)
	assert.Equal(t, domain.DefaultUserSettings(), f.backend.saved["u1"])
}

func TestAnalysisService_AnalyzeSymbol_UsesUserTimeframe(t *testing.T) {
	f := newFixture(t)
	f.market.klines["ETHUSDT"] = generateTestKlines(300, 50)
	_, err := f.svc.SetTimeframe(context.Background(), "u1", "4h")
	require.NoError(t, err)

	rep, err := f.svc.AnalyzeSymbol(context.Background(), "u1", "ETHUSDT")
	require.NoError(t, err)
	assert.Equal(t, "4h", rep.Result.Timeframe)
	assert.Equal(t, []string{"4h"}, f.market.intervals)
}

func TestAnalysisService_AnalyzeSymbol_Errors(t *testing.T) {
	f := newFixture(t)
	f.market.klineErrs["BADUSDT"] = fmt.Errorf("GetKlines failed: %w", ports.ErrDataUnavailable)

	_, err := f.svc.AnalyzeSymbol(context.Background(), "u1", "BADUSDT")
	assert.ErrorIs(t, err, ports.ErrDataUnavailable)
	assert.Contains(t, f.logger.errorMsgs, "Symbol analysis failed")

	_, err = f.svc.AnalyzeSymbol(context.Background(), "u1", "EMPTYUSDT")
	assert.ErrorIs(t, err, ports.ErrDataUnavailable)

	_, err = f.svc.AnalyzeSymbol(context.Background(), "u1", "  ")
	assert.ErrorIs(t, err, ports.ErrInvalidInput)

	assert.Empty(t, f.recorder.recorded)
}

func TestAnalysisService_AnalyzeSymbol_RecorderFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.market.klines["BTCUSDT"] = generateTestKlines(300, 100)
	f.recorder.err = errors.New("influx down")

	_, err := f.svc.AnalyzeSymbol(context.Background(), "u1", "BTCUSDT")
	require.NoError(t, err)
	assert.Contains(t, f.logger.warnMsgs, "Failed to record signal")
}

func TestAnalysisService_AnalyzeTop(t *testing.T) {
	f := newFixture(t)
	f.market.top = []string{"BTCUSDT", "ETHUSDT", "XRPUSDT"}
	f.market.klines["BTCUSDT"] = generateTestKlines(300, 100)
	f.market.klines["ETHUSDT"] = generateTestKlines(300, 50)
	f.market.klineErrs["XRPUSDT"] = fmt.Errorf("GetKlines failed: %w", ports.ErrDataUnavailable)

	group, err := f.svc.AnalyzeTop(context.Background(), "u1", 1000)
	require.NoError(t, err)

	assert.Equal(t, "run-1", group.RunID)
	assert.Equal(t, []int{DefaultTopSymbolsLimit}, f.market.topLimits)
	require.Len(t, group.Picks, 2)
	assert.Contains(t, group.Skipped, "XRPUSDT")
	assert.Len(t, f.recorder.recorded, 2)

	// Equal scores split the budget evenly, in fetch order.
	assert.Equal(t, "BTCUSDT", group.Allocation.Items[0].Symbol)
	assert.Equal(t, "ETHUSDT", group.Allocation.Items[1].Symbol)
	assert.InDelta(t, 500.0, group.Picks[0].Amount, 1e-9)
	assert.InDelta(t, 500.0, group.Picks[1].Amount, 1e-9)
	assert.InDelta(t, 1000.0, group.Allocation.TotalAmount(), 0.01)

	// Default ratios: +5% target, -3% stop on every pick.
	assert.InDelta(t, 50.0, group.TotalProfit, 0.05)
	assert.InDelta(t, 30.0, group.TotalLoss, 0.05)

	assert.True(t, strings.HasPrefix(group.Text, "Signals and budget allocation for timeframe 15m and budget $1000.00:"))
	assert.Contains(t, group.Text, "Total potential profit:")
	assert.Contains(t, group.Text, "Skipped (no data): XRPUSDT")
	assert.Contains(t, f.logger.warnMsgs, "Skipping symbol")
}

func TestAnalysisService_AnalyzeTop_SubCentPrices(t *testing.T) {
	f := newFixture(t)
	f.market.top = []string{"PEPEUSDT"}
	f.market.klines["PEPEUSDT"] = generateTestKlines(300, 0.00001234)

	group, err := f.svc.AnalyzeTop(context.Background(), "u1", 1000)
	require.NoError(t, err)
	require.Len(t, group.Picks, 1)

	last := f.market.klines["PEPEUSDT"][299].Close
	require.Less(t, last, 0.005)
	assert.Zero(t, group.Allocation.Items[0].Entry)

	pick := group.Picks[0].Result
	assert.Equal(t, last, pick.Entry)
	assert.InDelta(t, last*1.05, pick.Target, 1e-12)
	assert.InDelta(t, last*0.97, pick.Stop, 1e-12)

	assert.InDelta(t, 50.0, group.TotalProfit, 0.01)
	assert.InDelta(t, 30.0, group.TotalLoss, 0.01)
	assert.Contains(t, group.Text, "Total potential profit: $50.00")
}

func TestAnalysisService_AnalyzeTop_Errors(t *testing.T) {
	t.Run("negative budget", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.AnalyzeTop(context.Background(), "u1", -5)
		assert.ErrorIs(t, err, ports.ErrInvalidInput)
		assert.Empty(t, f.market.topLimits)
	})

	t.Run("top symbols unavailable", func(t *testing.T) {
		f := newFixture(t)
		f.market.topErr = fmt.Errorf("GetTopSymbols failed: %w", ports.ErrDataUnavailable)
		_, err := f.svc.AnalyzeTop(context.Background(), "u1", 100)
		assert.ErrorIs(t, err, ports.ErrDataUnavailable)
	})

	t.Run("every symbol fails", func(t *testing.T) {
		f := newFixture(t)
		f.market.top = []string{"AUSDT", "BUSDT"}
		_, err := f.svc.AnalyzeTop(context.Background(), "u1", 100)
		assert.ErrorIs(t, err, ports.ErrDataUnavailable)
	})

	t.Run("canceled context", func(t *testing.T) {
		f := newFixture(t)
		f.market.top = []string{"BTCUSDT"}
		f.market.klines["BTCUSDT"] = generateTestKlines(300, 100)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := f.svc.AnalyzeTop(ctx, "u1", 100)
		assert.ErrorIs(t, err, ports.ErrContextCanceled)
	})
}

func TestAnalysisService_ZeroBudgetOmitsInvestment(t *testing.T) {
	f := newFixture(t)
	f.market.top = []string{"BTCUSDT"}
	f.market.klines["BTCUSDT"] = generateTestKlines(300, 100)

	group, err := f.svc.AnalyzeTop(context.Background(), "u1", 0)
	require.NoError(t, err)
	require.Len(t, group.Picks, 1)
	assert.Zero(t, group.Picks[0].Amount)
	assert.NotContains(t, group.Text, "Invested")
}

func TestAnalysisService_SettingsEdits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	us, err := f.svc.SetRSIThreshold(ctx, "u1", "35")
	require.NoError(t, err)
	assert.Equal(t, 35.0, us.Strategy.RSIThreshold)

	us, err = f.svc.SetWeights(ctx, "u1", "0.5 0.25 0.25")
	require.NoError(t, err)
	assert.Equal(t, domain.Weights{EMA: 0.5, RSI: 0.25, MACD: 0.25}, us.Strategy.Weights)

	us, err = f.svc.SetTPSL(ctx, "u1", "1.1 0.95")
	require.NoError(t, err)
	assert.Equal(t, 1.1, us.Strategy.TPRatio)
	assert.Equal(t, 0.95, us.Strategy.SLRatio)

	us, err = f.svc.SetTimeframe(ctx, "u1", "1d")
	require.NoError(t, err)
	assert.Equal(t, "1d", us.Timeframe)

	assert.Equal(t, us, f.backend.saved["u1"])
	assert.Equal(t, us, f.svc.Settings(ctx, "u1"))

	us, err = f.svc.ResetSettings(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultUserSettings(), us)
	assert.Equal(t, domain.DefaultUserSettings(), f.backend.saved["u1"])
}

func TestAnalysisService_SettingsEdits_InvalidInputLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	before := f.svc.Settings(ctx, "u1")
	saves := f.backend.saves

	tests := []struct {
		name string
		edit func() error
	}{
		{"rsi not a number", func() error { _, err := f.svc.SetRSIThreshold(ctx, "u1", "abc"); return err }},
		{"rsi out of range", func() error { _, err := f.svc.SetRSIThreshold(ctx, "u1", "150"); return err }},
		{"weights do not sum to one", func() error { _, err := f.svc.SetWeights(ctx, "u1", "0.5 0.5 0.5"); return err }},
		{"two weights", func() error { _, err := f.svc.SetWeights(ctx, "u1", "0.5 0.5"); return err }},
		{"negative ratio", func() error { _, err := f.svc.SetTPSL(ctx, "u1", "1.05 -1"); return err }},
		{"unknown timeframe", func() error { _, err := f.svc.SetTimeframe(ctx, "u1", "2h"); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.edit(), ports.ErrInvalidInput)
		})
	}
	assert.Equal(t, before, f.svc.Settings(ctx, "u1"))
	assert.Equal(t, saves, f.backend.saves)
}

func TestAnalysisService_SettingsEdit_PersistFailure(t *testing.T) {
	f := newFixture(t)
	f.backend.saveErr = errors.New("disk full")

	_, err := f.svc.SetRSIThreshold(context.Background(), "u1", "30")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestAnalysisService_TopSymbolsAndDeliver(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.market.top = []string{"BTCUSDT"}

	symbols, err := f.svc.TopSymbols(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT"}, symbols)
	_, _ = f.svc.TopSymbols(ctx, 3)
	assert.Equal(t, []int{DefaultTopSymbolsLimit, 3}, f.market.topLimits)

	require.NoError(t, f.svc.Deliver(ctx, "BTCUSDT", "body"))
	assert.Equal(t, []string{"BTCUSDT"}, f.notifier.titles)
	assert.Equal(t, []string{"body"}, f.notifier.bodies)

	f.svc.notifier = nil
	assert.NoError(t, f.svc.Deliver(ctx, "x", "y"))
}

func TestRecorders(t *testing.T) {
	ok := &mockRecorder{}
	failing := &mockRecorder{err: errors.New("boom")}

	err := Recorders{failing, ok}.RecordSignal(context.Background(), domain.SignalResult{Symbol: "BTCUSDT"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Len(t, ok.recorded, 1)
	assert.Len(t, failing.recorded, 1)

	assert.NoError(t, Recorders{}.RecordSignal(context.Background(), domain.SignalResult{}))
}
