package indicators

import (
	"fmt"
	"math"
)

// RSIConfig holds configuration for the RSI indicator
type RSIConfig struct {
	IndicatorConfig
}

// RSI implements the Relative Strength Index using simple rolling means
// of gains and losses over the trailing Period price changes.
type RSI struct {
	BaseIndicator
}

// NewRSI creates a new RSI indicator instance
func NewRSI(config RSIConfig) (*RSI, error) {
	if config.Period < 1 {
		return nil, fmt.Errorf("RSI period must be positive, got %d", config.Period)
	}
	return &RSI{BaseIndicator: BaseIndicator{Config: config.IndicatorConfig}}, nil
}

// Name returns the name of the indicator
func (r *RSI) Name() string {
	return fmt.Sprintf("RSI%d", r.Config.Period)
}

// RequiredDataPoints returns Period+1: the first defined value needs Period price changes.
func (r *RSI) RequiredDataPoints() int {
	return r.Config.Period + 1
}

// Series computes RSI for every close. Points before index Period are NaN,
// as are points where the window holds neither gains nor losses.
func (r *RSI) Series(closes []float64) []float64 {
	period := r.Config.Period
	out := nanSeries(len(closes))
	if len(closes) <= period {
		return out
	}

	gains := make([]float64, len(closes)-1)
	losses := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i-1] = change
		} else {
			losses[i-1] = -change
		}
	}

	avgGain := sma(gains, period)
	avgLoss := sma(losses, period)
	// Change j sits between closes j and j+1.
	for j := period - 1; j < len(gains); j++ {
		out[j+1] = rsiValue(avgGain[j], avgLoss[j])
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	// Rolling sums can drift a hair below zero.
	avgGain = math.Max(avgGain, 0)
	avgLoss = math.Max(avgLoss, 0)
	switch {
	case avgLoss == 0 && avgGain == 0:
		return math.NaN()
	case avgLoss == 0:
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
