package domain

import (
	"math"
	"time"
)

// SignalLabel is the discrete recommendation derived from a score.
type SignalLabel string

const (
	LabelBuy     SignalLabel = "buy"
	LabelSell    SignalLabel = "sell"
	LabelNeutral SignalLabel = "neutral"
)

// Timeframe durations accepted for candle retrieval.
var timeframes = map[string]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
}

// Timeframes lists the supported candle intervals in ascending order.
func Timeframes() []string {
	return []string{"1m", "5m", "15m", "1h", "4h", "1d"}
}

// TimeframeDuration returns the length of one candle for the given interval.
func TimeframeDuration(tf string) (time.Duration, bool) {
	d, ok := timeframes[tf]
	return d, ok
}

// IsDefined reports whether an indicator value is available.
func IsDefined(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
