package indicators

import (
	"fmt"
	"math"

	"cryptoSignalBot/internal/domain"
)

// EngineConfig holds the indicator periods used by the Engine.
type EngineConfig struct {
	FastEMAPeriod int
	SlowEMAPeriod int
	RSIPeriod     int
	MACD          MACDConfig
}

// DefaultEngineConfig returns EMA50/EMA200, RSI14 and MACD 12/26/9.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		FastEMAPeriod: 50,
		SlowEMAPeriod: 200,
		RSIPeriod:     14,
		MACD:          DefaultMACDConfig(),
	}
}

// Engine annotates a candle series with every indicator the scorer needs.
type Engine struct {
	fastEMA *MovingAverage
	slowEMA *MovingAverage
	rsi     *RSI
	macd    *MACD
}

// NewEngine creates an Engine with the given periods.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	fast, err := NewMovingAverage(MovingAverageConfig{IndicatorConfig: IndicatorConfig{Period: cfg.FastEMAPeriod}, Type: ExponentialMovingAverage})
	if err != nil {
		return nil, fmt.Errorf("fast EMA: %w", err)
	}
	slow, err := NewMovingAverage(MovingAverageConfig{IndicatorConfig: IndicatorConfig{Period: cfg.SlowEMAPeriod}, Type: ExponentialMovingAverage})
	if err != nil {
		return nil, fmt.Errorf("slow EMA: %w", err)
	}
	rsi, err := NewRSI(RSIConfig{IndicatorConfig: IndicatorConfig{Period: cfg.RSIPeriod}})
	if err != nil {
		return nil, err
	}
	macd, err := NewMACD(cfg.MACD)
	if err != nil {
		return nil, err
	}
	return &Engine{fastEMA: fast, slowEMA: slow, rsi: rsi, macd: macd}, nil
}

// AnnotatedSeries is a candle series with per-candle indicator values.
// All slices have the length of Klines.
type AnnotatedSeries struct {
	Klines     []*domain.Kline
	EMA50      []float64
	EMA200     []float64
	RSI        []float64
	MACD       []float64
	MACDSignal []float64
}

// Compute annotates klines. An empty input yields an empty series.
func (e *Engine) Compute(klines []*domain.Kline) AnnotatedSeries {
	closes := domain.Closes(klines)
	macd, signal := e.macd.Lines(closes)
	return AnnotatedSeries{
		Klines:     klines,
		EMA50:      e.fastEMA.Series(closes),
		EMA200:     e.slowEMA.Series(closes),
		RSI:        e.rsi.Series(closes),
		MACD:       macd,
		MACDSignal: signal,
	}
}

// Len returns the number of candles.
func (s AnnotatedSeries) Len() int {
	return len(s.Klines)
}

// At returns the snapshot at candle i.
func (s AnnotatedSeries) At(i int) domain.IndicatorSnapshot {
	k := s.Klines[i]
	return domain.IndicatorSnapshot{
		Time:       k.CloseTime,
		Close:      k.Close,
		EMA50:      s.EMA50[i],
		EMA200:     s.EMA200[i],
		RSI:        s.RSI[i],
		MACD:       s.MACD[i],
		MACDSignal: s.MACDSignal[i],
	}
}

// Latest returns the snapshot at the last candle, false when the series is empty.
func (s AnnotatedSeries) Latest() (domain.IndicatorSnapshot, bool) {
	if s.Len() == 0 {
		return domain.IndicatorSnapshot{
			Close: math.NaN(), EMA50: math.NaN(), EMA200: math.NaN(),
			RSI: math.NaN(), MACD: math.NaN(), MACDSignal: math.NaN(),
		}, false
	}
	return s.At(s.Len() - 1), true
}
