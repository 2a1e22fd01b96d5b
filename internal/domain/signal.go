package domain

import "time"

// IndicatorSnapshot holds the indicator values at the most recent candle.
// Unavailable values are NaN.
type IndicatorSnapshot struct {
	Time       time.Time
	Close      float64
	EMA50      float64
	EMA200     float64
	RSI        float64
	MACD       float64
	MACDSignal float64
}

// Conditions records which scoring conditions held for a snapshot.
type Conditions struct {
	EMATrend    bool // EMA50 above EMA200
	RSIBelow    bool // RSI below the configured threshold
	MACDBullish bool // MACD above its signal line
}

// SignalResult is the outcome of scoring one symbol.
type SignalResult struct {
	Symbol     string
	Timeframe  string
	Label      SignalLabel
	Score      float64
	Entry      float64
	Target     float64
	Stop       float64
	Snapshot   IndicatorSnapshot
	Conditions Conditions
	Strategy   StrategyConfig
	AnalyzedAt time.Time
}
