package indicators

import (
	"fmt"

	"github.com/markcheno/go-talib"
)

// MovingAverageType defines the type of moving average
type MovingAverageType string

const (
	// SimpleMovingAverage is the arithmetic mean of the trailing window.
	SimpleMovingAverage MovingAverageType = "SMA"
	// ExponentialMovingAverage is the bias-adjusted EMA: each value is the
	// weighted mean of all prior points with weights (1-alpha)^k normalized
	// to sum to one. Defined from the first point.
	ExponentialMovingAverage MovingAverageType = "EMA"
	// RecursiveMovingAverage is the plain recursive EMA seeded with the first point.
	RecursiveMovingAverage MovingAverageType = "EMA_RECURSIVE"
)

// MovingAverageConfig holds configuration for moving average indicators
type MovingAverageConfig struct {
	IndicatorConfig
	Type MovingAverageType
}

// MovingAverage implements the SMA and both EMA variants
type MovingAverage struct {
	BaseIndicator
	config MovingAverageConfig
}

// NewMovingAverage creates a new moving average indicator instance
func NewMovingAverage(config MovingAverageConfig) (*MovingAverage, error) {
	if config.Period < 1 {
		return nil, fmt.Errorf("moving average period must be positive, got %d", config.Period)
	}
	switch config.Type {
	case SimpleMovingAverage, ExponentialMovingAverage, RecursiveMovingAverage:
	default:
		return nil, fmt.Errorf("unsupported moving average type: %s", config.Type)
	}
	return &MovingAverage{
		BaseIndicator: BaseIndicator{Config: config.IndicatorConfig},
		config:        config,
	}, nil
}

// Name returns the name of the indicator
func (m *MovingAverage) Name() string {
	return fmt.Sprintf("%s%d", m.config.Type, m.Config.Period)
}

// RequiredDataPoints returns 1 for the exponential variants, which are defined from the first point.
func (m *MovingAverage) RequiredDataPoints() int {
	if m.config.Type == SimpleMovingAverage {
		return m.Config.Period
	}
	return 1
}

// Series computes the moving average over closes.
func (m *MovingAverage) Series(closes []float64) []float64 {
	switch m.config.Type {
	case SimpleMovingAverage:
		return sma(closes, m.Config.Period)
	case RecursiveMovingAverage:
		return RecursiveEMA(closes, m.Config.Period)
	default:
		return AdjustedEMA(closes, m.Config.Period)
	}
}

// AdjustedEMA computes the normalized exponential moving average.
//
//	num_t = x_t + (1-a)*num_{t-1}
//	den_t = 1   + (1-a)*den_{t-1}
//	ema_t = num_t / den_t
func AdjustedEMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	decay := 1 - alpha(period)
	var num, den float64
	for i, x := range values {
		num = x + decay*num
		den = 1 + decay*den
		out[i] = num / den
	}
	return out
}

// RecursiveEMA computes ema_0 = x_0, ema_t = a*x_t + (1-a)*ema_{t-1}.
func RecursiveEMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	a := alpha(period)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = a*values[i] + (1-a)*out[i-1]
	}
	return out
}

func alpha(period int) float64 {
	return 2.0 / float64(period+1)
}

// sma returns the trailing simple mean with NaN for the warm-up points.
func sma(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period < 1 || len(values) < period {
		return out
	}
	// talib panics on inputs shorter than the period, guarded above.
	means := talib.Sma(values, period)
	copy(out[period-1:], means[period-1:])
	return out
}
