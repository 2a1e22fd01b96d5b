package indicators

import (
	"fmt"
	"math"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
)

// Indicator computes a value for every point of a close price series.
// The output has the same length as the input; points without enough
// history are NaN.
type Indicator interface {
	// Series computes the indicator over the given close prices.
	Series(closes []float64) []float64

	// RequiredDataPoints returns the number of points after which the value is defined.
	RequiredDataPoints() int

	// Name returns the name of the indicator
	Name() string
}

// IndicatorConfig holds common configuration for indicators
type IndicatorConfig struct {
	Period int
}

// BaseIndicator provides common functionality for indicators
type BaseIndicator struct {
	Config IndicatorConfig
}

// RequiredDataPoints returns the minimum number of points needed for a defined value
func (b *BaseIndicator) RequiredDataPoints() int {
	return b.Config.Period
}

// Latest computes the indicator over the klines and returns the value at the last candle.
// It wraps ports.ErrIndicatorUndefined when the value is not available.
func Latest(ind Indicator, klines []*domain.Kline) (float64, error) {
	if len(klines) == 0 {
		return math.NaN(), fmt.Errorf("%s: empty series: %w", ind.Name(), ports.ErrIndicatorUndefined)
	}
	values := ind.Series(domain.Closes(klines))
	v := values[len(values)-1]
	if !domain.IsDefined(v) {
		return v, fmt.Errorf("%s: not enough data (%d points): %w", ind.Name(), len(klines), ports.ErrIndicatorUndefined)
	}
	return v, nil
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
