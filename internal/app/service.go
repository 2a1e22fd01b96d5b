package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/metrics"
	"cryptoSignalBot/internal/ports"
	"cryptoSignalBot/internal/report"
	"cryptoSignalBot/internal/risk"
	"cryptoSignalBot/internal/settings"
	"cryptoSignalBot/internal/strategy"
	"cryptoSignalBot/internal/strategy/indicators"
)

const (
	DefaultCandleLimit     = 300
	DefaultTopSymbolsLimit = 10
)

// Skip reasons reported for symbols dropped from a group analysis.
const (
	skipFetch    = "fetch"
	skipEvaluate = "evaluate"
)

// AnalysisService orchestrates candle retrieval, scoring, allocation and settings edits.
type AnalysisService struct {
	market   ports.MarketDataProvider
	strategy *strategy.Strategy
	risk     *risk.Manager
	settings *settings.Store
	recorder ports.SignalRecorder
	notifier ports.Notifier
	metrics  *metrics.Metrics
	logger   ports.Logger

	candleLimit     int
	topSymbolsLimit int
	newRunID        func() string
}

// Config holds the dependencies of an AnalysisService.
// Recorder, Notifier and Metrics are optional.
type Config struct {
	Market          ports.MarketDataProvider
	Strategy        *strategy.Strategy
	Risk            *risk.Manager
	Settings        *settings.Store
	Recorder        ports.SignalRecorder
	Notifier        ports.Notifier
	Metrics         *metrics.Metrics
	Logger          ports.Logger
	CandleLimit     int
	TopSymbolsLimit int
}

// SymbolReport is the outcome of analyzing one symbol.
type SymbolReport struct {
	Result domain.SignalResult
	Series indicators.AnnotatedSeries
	Amount float64
	Text   string
}

// GroupReport is the outcome of analyzing the top symbols under one budget.
type GroupReport struct {
	RunID       string
	Timeframe   string
	Budget      float64
	Allocation  risk.AllocationResult
	Picks       []SymbolReport
	Skipped     map[string]string // symbol -> reason
	TotalProfit float64
	TotalLoss   float64
	Text        string
}

// NewAnalysisService creates a new application service instance.
func NewAnalysisService(cfg Config) (*AnalysisService, error) {
	if cfg.Market == nil || cfg.Strategy == nil || cfg.Risk == nil || cfg.Settings == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("missing required dependencies for AnalysisService: %w", ports.ErrConfigurationError)
	}
	if cfg.CandleLimit <= 0 {
		cfg.CandleLimit = DefaultCandleLimit
	}
	if cfg.TopSymbolsLimit <= 0 {
		cfg.TopSymbolsLimit = DefaultTopSymbolsLimit
	}
	if cfg.CandleLimit < cfg.Strategy.RequiredDataPoints() {
		cfg.Logger.Warn(context.Background(), "Candle limit below indicator warm-up, slow indicators will be undefined", map[string]interface{}{
			"candleLimit": cfg.CandleLimit,
			"required":    cfg.Strategy.RequiredDataPoints(),
		})
	}

	return &AnalysisService{
		market:          cfg.Market,
		strategy:        cfg.Strategy,
		risk:            cfg.Risk,
		settings:        cfg.Settings,
		recorder:        cfg.Recorder,
		notifier:        cfg.Notifier,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger,
		candleLimit:     cfg.CandleLimit,
		topSymbolsLimit: cfg.TopSymbolsLimit,
		newRunID:        uuid.NewString,
	}, nil
}

// AnalyzeSymbol scores symbol under the user's settings and builds its report.
func (s *AnalysisService) AnalyzeSymbol(ctx context.Context, userID, symbol string) (SymbolReport, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return SymbolReport{}, fmt.Errorf("symbol is required: %w", ports.ErrInvalidInput)
	}
	s.metrics.ObserveAnalysis("single")

	us := s.userSettings(ctx, userID)
	runID := s.newRunID()
	s.logger.Info(ctx, "Analyzing symbol", map[string]interface{}{"runID": runID, "user": userID, "symbol": symbol, "timeframe": us.Timeframe})

	rep, err := s.analyze(ctx, symbol, us)
	if err != nil {
		s.logger.Error(ctx, err, "Symbol analysis failed", map[string]interface{}{"runID": runID, "symbol": symbol})
		return SymbolReport{}, err
	}
	s.record(ctx, rep.Result)

	rep.Text = report.SignalMessage(report.SignalInput{Result: rep.Result, Closes: domain.Closes(rep.Series.Klines)})
	return rep, nil
}

// AnalyzeTop scores the most traded symbols one after another, skipping those
// that cannot be fetched, and splits budget across the best of them.
func (s *AnalysisService) AnalyzeTop(ctx context.Context, userID string, budget float64) (GroupReport, error) {
	if budget < 0 || !domain.IsDefined(budget) {
		return GroupReport{}, fmt.Errorf("budget %v must be a non-negative number: %w", budget, ports.ErrInvalidInput)
	}
	s.metrics.ObserveAnalysis("group")

	us := s.userSettings(ctx, userID)
	group := GroupReport{
		RunID:     s.newRunID(),
		Timeframe: us.Timeframe,
		Budget:    budget,
		Skipped:   make(map[string]string),
	}
	fields := map[string]interface{}{"runID": group.RunID, "user": userID, "timeframe": us.Timeframe, "budget": budget}
	s.logger.Info(ctx, "Starting group analysis", fields)

	symbols, err := s.market.GetTopSymbols(ctx, s.topSymbolsLimit)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to fetch top symbols", fields)
		return GroupReport{}, fmt.Errorf("failed to fetch top symbols: %w", err)
	}

	analyzed := make(map[string]SymbolReport, len(symbols))
	results := make([]domain.SignalResult, 0, len(symbols))
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return GroupReport{}, fmt.Errorf("group analysis interrupted: %w: %w", ports.ErrContextCanceled, err)
		}
		rep, err := s.analyze(ctx, symbol, us)
		if err != nil {
			reason := skipEvaluate
			if errors.Is(err, ports.ErrDataUnavailable) {
				reason = skipFetch
			}
			group.Skipped[symbol] = err.Error()
			s.metrics.ObserveSkip(reason)
			s.logger.Warn(ctx, "Skipping symbol", map[string]interface{}{"runID": group.RunID, "symbol": symbol, "reason": reason, "error": err.Error()})
			continue
		}
		s.record(ctx, rep.Result)
		analyzed[symbol] = rep
		results = append(results, rep.Result)
	}
	if len(results) == 0 {
		return GroupReport{}, fmt.Errorf("none of %d symbols could be analyzed: %w", len(symbols), ports.ErrDataUnavailable)
	}

	alloc, err := s.risk.Allocate(results, budget)
	if err != nil {
		return GroupReport{}, err
	}
	group.Allocation = alloc

	sections := []string{report.GroupHeader(group.Timeframe, budget)}
	for _, item := range alloc.Items {
		rep := analyzed[item.Symbol]
		rep.Amount = item.Amount

		// Allocation levels are cent-rounded; sub-cent pairs need the raw ones.
		profit, loss := risk.PotentialPnL(item.Amount, rep.Result.Entry, rep.Result.Target, rep.Result.Stop)
		group.TotalProfit += profit
		group.TotalLoss += loss

		rep.Text = report.SignalMessage(report.SignalInput{
			Result: rep.Result,
			Closes: domain.Closes(rep.Series.Klines),
			Amount: item.Amount,
		})
		group.Picks = append(group.Picks, rep)
		sections = append(sections, rep.Text)
	}
	sections = append(sections, report.GroupTotals(group.TotalProfit, group.TotalLoss))
	if skipped := report.SkippedSummary(group.Skipped); skipped != "" {
		sections = append(sections, skipped)
	}
	group.Text = strings.Join(sections, "\n\n")

	s.logger.Info(ctx, "Group analysis finished", map[string]interface{}{
		"runID":       group.RunID,
		"picks":       len(group.Picks),
		"skipped":     len(group.Skipped),
		"totalProfit": group.TotalProfit,
		"totalLoss":   group.TotalLoss,
	})
	return group, nil
}

// TopSymbols returns the most traded symbols. A non-positive limit uses the configured one.
func (s *AnalysisService) TopSymbols(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = s.topSymbolsLimit
	}
	return s.market.GetTopSymbols(ctx, limit)
}

// Settings returns the user's settings, creating them from defaults on first use.
func (s *AnalysisService) Settings(ctx context.Context, userID string) domain.UserSettings {
	return s.userSettings(ctx, userID)
}

// SetRSIThreshold parses and stores a new RSI threshold.
func (s *AnalysisService) SetRSIThreshold(ctx context.Context, userID, raw string) (domain.UserSettings, error) {
	v, err := settings.ParseRSIThreshold(raw)
	if err != nil {
		return domain.UserSettings{}, err
	}
	return s.edit(ctx, userID, "rsi_threshold", func(us *domain.UserSettings) {
		us.Strategy.RSIThreshold = v
	})
}

// SetWeights parses and stores new EMA, RSI and MACD weights.
func (s *AnalysisService) SetWeights(ctx context.Context, userID, raw string) (domain.UserSettings, error) {
	w, err := settings.ParseWeights(raw)
	if err != nil {
		return domain.UserSettings{}, err
	}
	return s.edit(ctx, userID, "weights", func(us *domain.UserSettings) {
		us.Strategy.Weights = w
	})
}

// SetTPSL parses and stores new take-profit and stop-loss ratios.
func (s *AnalysisService) SetTPSL(ctx context.Context, userID, raw string) (domain.UserSettings, error) {
	tp, sl, err := settings.ParseTPSL(raw)
	if err != nil {
		return domain.UserSettings{}, err
	}
	return s.edit(ctx, userID, "tp_sl", func(us *domain.UserSettings) {
		us.Strategy.TPRatio, us.Strategy.SLRatio = tp, sl
	})
}

// SetTimeframe parses and stores a new candle interval.
func (s *AnalysisService) SetTimeframe(ctx context.Context, userID, raw string) (domain.UserSettings, error) {
	tf, err := settings.ParseTimeframe(raw)
	if err != nil {
		return domain.UserSettings{}, err
	}
	return s.edit(ctx, userID, "timeframe", func(us *domain.UserSettings) {
		us.Timeframe = tf
	})
}

// ResetSettings restores the user's defaults and persists them.
func (s *AnalysisService) ResetSettings(ctx context.Context, userID string) (domain.UserSettings, error) {
	us := s.settings.Reset(userID)
	s.metrics.ObserveSettingsEdit("reset")
	if err := s.settings.Persist(ctx); err != nil {
		return us, err
	}
	s.logger.Info(ctx, "Settings reset", map[string]interface{}{"user": userID})
	return us, nil
}

// Deliver pushes text through the configured notifier. Without one it does nothing.
func (s *AnalysisService) Deliver(ctx context.Context, title, text string) error {
	if s.notifier == nil {
		s.logger.Debug(ctx, "No notifier configured, report not delivered", map[string]interface{}{"title": title})
		return nil
	}
	return s.notifier.Notify(ctx, title, text)
}

func (s *AnalysisService) analyze(ctx context.Context, symbol string, us domain.UserSettings) (SymbolReport, error) {
	start := time.Now()
	klines, err := s.market.GetKlines(ctx, symbol, us.Timeframe, s.candleLimit)
	s.metrics.ObserveFetch(time.Since(start))
	if err != nil {
		return SymbolReport{}, fmt.Errorf("fetch %s %s: %w", symbol, us.Timeframe, err)
	}
	if len(klines) == 0 {
		return SymbolReport{}, fmt.Errorf("fetch %s %s: no candles: %w", symbol, us.Timeframe, ports.ErrDataUnavailable)
	}

	result, series, err := s.strategy.Evaluate(ctx, symbol, us.Timeframe, klines, us.Strategy)
	if err != nil {
		return SymbolReport{}, err
	}
	s.metrics.ObserveSignal(string(result.Label))
	return SymbolReport{Result: result, Series: series}, nil
}

func (s *AnalysisService) record(ctx context.Context, result domain.SignalResult) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordSignal(ctx, result); err != nil {
		s.logger.Warn(ctx, "Failed to record signal", map[string]interface{}{"symbol": result.Symbol, "error": err.Error()})
	}
}

// userSettings returns the user's settings and persists a freshly created entry.
func (s *AnalysisService) userSettings(ctx context.Context, userID string) domain.UserSettings {
	us, created := s.settings.GetOrCreate(userID)
	if created {
		if err := s.settings.Persist(ctx); err != nil {
			s.logger.Warn(ctx, "Failed to persist new user settings", map[string]interface{}{"user": userID, "error": err.Error()})
		}
	}
	return us
}

func (s *AnalysisService) edit(ctx context.Context, userID, field string, apply func(*domain.UserSettings)) (domain.UserSettings, error) {
	us, _ := s.settings.GetOrCreate(userID)
	apply(&us)
	if err := s.settings.Put(userID, us); err != nil {
		return domain.UserSettings{}, err
	}
	s.metrics.ObserveSettingsEdit(field)
	if err := s.settings.Persist(ctx); err != nil {
		return us, err
	}
	s.logger.Info(ctx, "Settings updated", map[string]interface{}{"user": userID, "field": field})
	return us, nil
}
