package report

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"cryptoSignalBot/internal/domain"
)

const (
	neutralBase       = 15 * time.Minute
	neutralPerCue     = 15 * time.Minute
	speedWindow       = 10
	emaGapCue         = 0.005
	rsiBandLow        = 45.0
	rsiBandHigh       = 55.0
	macdGapCue        = 5.0
	defaultCandleSize = 15 * time.Minute
)

// NeutralCues counts how many indicators sit close to a balanced reading:
// EMAs within 0.5% of each other, RSI in 45..55, MACD within 5 of its signal.
func NeutralCues(snap domain.IndicatorSnapshot) int {
	cues := 0
	if domain.IsDefined(snap.EMA50) && domain.IsDefined(snap.EMA200) && snap.EMA200 != 0 &&
		math.Abs(snap.EMA50-snap.EMA200)/snap.EMA200 < emaGapCue {
		cues++
	}
	if domain.IsDefined(snap.RSI) && snap.RSI >= rsiBandLow && snap.RSI <= rsiBandHigh {
		cues++
	}
	if domain.IsDefined(snap.MACD) && domain.IsDefined(snap.MACDSignal) && math.Abs(snap.MACD-snap.MACDSignal) < macdGapCue {
		cues++
	}
	return cues
}

// NeutralDuration estimates how long a neutral reading persists.
func NeutralDuration(snap domain.IndicatorSnapshot) time.Duration {
	return neutralBase + time.Duration(NeutralCues(snap))*neutralPerCue
}

// PriceSpeed is the absolute mean close change over the last ten candles.
// A flat or too short series yields 1.
func PriceSpeed(closes []float64) float64 {
	if len(closes) < 2 {
		return 1
	}
	start := len(closes) - speedWindow - 1
	if start < 0 {
		start = 0
	}
	window := closes[start:]
	diffs := make([]float64, len(window)-1)
	for i := 1; i < len(window); i++ {
		diffs[i-1] = window[i] - window[i-1]
	}
	speed := math.Abs(stat.Mean(diffs, nil))
	if speed == 0 || !domain.IsDefined(speed) {
		return 1
	}
	return speed
}

// TimeToTarget estimates how long price needs to reach target at the recent
// average pace, one candle of timeframe per step. A near-flat market saturates
// at the largest Duration.
func TimeToTarget(closes []float64, price, target float64, timeframe string) time.Duration {
	candle, ok := domain.TimeframeDuration(timeframe)
	if !ok {
		candle = defaultCandleSize
	}
	candles := math.Abs(target-price) / PriceSpeed(closes)
	ns := candles * float64(candle)
	if ns >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ns)
}
