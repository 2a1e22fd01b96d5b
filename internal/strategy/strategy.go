package strategy

import (
	"context"
	"fmt"
	"time"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
	"cryptoSignalBot/internal/strategy/indicators"
	"cryptoSignalBot/internal/utils"
)

// Label bands. The buy and sell bands are asymmetric: a score strictly
// between them is neutral, and a zero score is always neutral.
const (
	BuyThreshold  = 0.75
	SellThreshold = 0.3
)

// Config holds parameters for the scoring strategy.
type Config struct {
	Indicators indicators.EngineConfig
}

// DefaultConfig returns the EMA50/EMA200, RSI14, MACD 12/26/9 setup.
func DefaultConfig() Config {
	return Config{Indicators: indicators.DefaultEngineConfig()}
}

// Strategy turns a candle series into a scored signal.
type Strategy struct {
	cfg    Config
	engine *indicators.Engine
	logger ports.Logger
	now    func() time.Time
}

// New creates a new Strategy instance.
func New(cfg Config, logger ports.Logger) (*Strategy, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for strategy")
	}
	engine, err := indicators.NewEngine(cfg.Indicators)
	if err != nil {
		return nil, fmt.Errorf("invalid indicator configuration: %w", err)
	}
	return &Strategy{cfg: cfg, engine: engine, logger: logger, now: time.Now}, nil
}

// RequiredDataPoints returns the candle count at which every indicator is fully warmed up.
func (s *Strategy) RequiredDataPoints() int {
	maxPeriod := s.cfg.Indicators.SlowEMAPeriod
	if s.cfg.Indicators.RSIPeriod+1 > maxPeriod {
		maxPeriod = s.cfg.Indicators.RSIPeriod + 1
	}
	return maxPeriod
}

// Annotate computes every indicator over the series.
func (s *Strategy) Annotate(klines []*domain.Kline) indicators.AnnotatedSeries {
	return s.engine.Compute(klines)
}

// Evaluate scores the latest candle of klines under the given strategy settings.
// It returns ports.ErrDataUnavailable for an empty series.
func (s *Strategy) Evaluate(ctx context.Context, symbol, timeframe string, klines []*domain.Kline, sc domain.StrategyConfig) (domain.SignalResult, indicators.AnnotatedSeries, error) {
	series := s.engine.Compute(klines)
	snap, ok := series.Latest()
	if !ok {
		return domain.SignalResult{}, series, fmt.Errorf("evaluate %s: no candles: %w", symbol, ports.ErrDataUnavailable)
	}

	if len(klines) < s.RequiredDataPoints() {
		s.logger.Debug(ctx, "Series shorter than indicator warm-up", map[string]interface{}{
			"symbol":   symbol,
			"candles":  len(klines),
			"required": s.RequiredDataPoints(),
		})
	}

	score, conds := Score(snap, sc)
	result := domain.SignalResult{
		Symbol:     symbol,
		Timeframe:  timeframe,
		Label:      Label(score),
		Score:      score,
		Entry:      snap.Close,
		Target:     snap.Close * sc.TPRatio,
		Stop:       snap.Close * sc.SLRatio,
		Snapshot:   snap,
		Conditions: conds,
		Strategy:   sc,
		AnalyzedAt: s.now(),
	}

	s.logger.Debug(ctx, "Signal evaluated", map[string]interface{}{
		"symbol": symbol,
		"score":  score,
		"label":  result.Label,
		"ema50":  snap.EMA50,
		"ema200": snap.EMA200,
		"rsi":    snap.RSI,
		"macd":   snap.MACD,
		"signal": snap.MACDSignal,
	})
	return result, series, nil
}

// Score sums the weights of the enabled indicators whose condition holds
// and rounds the result to two decimals. Undefined values never satisfy a condition.
func Score(snap domain.IndicatorSnapshot, sc domain.StrategyConfig) (float64, domain.Conditions) {
	conds := domain.Conditions{
		EMATrend:    domain.IsDefined(snap.EMA50) && domain.IsDefined(snap.EMA200) && snap.EMA50 > snap.EMA200,
		RSIBelow:    domain.IsDefined(snap.RSI) && snap.RSI < sc.RSIThreshold,
		MACDBullish: domain.IsDefined(snap.MACD) && domain.IsDefined(snap.MACDSignal) && snap.MACD > snap.MACDSignal,
	}

	score := 0.0
	if sc.UseEMA && conds.EMATrend {
		score += sc.Weights.EMA
	}
	if sc.UseRSI && conds.RSIBelow {
		score += sc.Weights.RSI
	}
	if sc.UseMACD && conds.MACDBullish {
		score += sc.Weights.MACD
	}
	return utils.Round2(score), conds
}

// Label maps a score to buy, sell or neutral.
func Label(score float64) domain.SignalLabel {
	switch {
	case score == 0:
		return domain.LabelNeutral
	case score >= BuyThreshold:
		return domain.LabelBuy
	case score <= SellThreshold:
		return domain.LabelSell
	default:
		return domain.LabelNeutral
	}
}
