package settings

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
)

// WeightTolerance is how far the weight sum may stray from 1.
const WeightTolerance = 0.01

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ports.ErrInvalidInput)
}

// parseNumber rejects commas outright: "1,000" and "99,9" are both ambiguous.
func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, invalid("%q is not a number", s)
	}
	return v, nil
}

// ParseBudget parses a non-negative amount.
func ParseBudget(s string) (float64, error) {
	v, err := parseNumber(s)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, invalid("budget must not be negative, got %v", v)
	}
	return v, nil
}

// ParseRSIThreshold parses a threshold in [0, 100].
func ParseRSIThreshold(s string) (float64, error) {
	v, err := parseNumber(s)
	if err != nil {
		return 0, err
	}
	if v < 0 || v > 100 {
		return 0, invalid("RSI threshold must be between 0 and 100, got %v", v)
	}
	return v, nil
}

// ParseWeights parses exactly three numbers for EMA, RSI and MACD whose sum is 1 within WeightTolerance.
func ParseWeights(s string) (domain.Weights, error) {
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return domain.Weights{}, invalid("expected 3 weights, got %d", len(fields))
	}
	values := make([]float64, 3)
	for i, f := range fields {
		v, err := parseNumber(f)
		if err != nil {
			return domain.Weights{}, err
		}
		values[i] = v
	}
	w := domain.Weights{EMA: values[0], RSI: values[1], MACD: values[2]}
	if err := validateWeights(w); err != nil {
		return domain.Weights{}, err
	}
	return w, nil
}

// ParseTPSL parses a take-profit ratio followed by a stop-loss ratio.
func ParseTPSL(s string) (tp, sl float64, err error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0, 0, invalid("expected take-profit and stop-loss ratios, got %d values", len(fields))
	}
	if tp, err = parseNumber(fields[0]); err != nil {
		return 0, 0, err
	}
	if sl, err = parseNumber(fields[1]); err != nil {
		return 0, 0, err
	}
	if tp <= 0 || sl <= 0 {
		return 0, 0, invalid("ratios must be positive, got %v and %v", tp, sl)
	}
	return tp, sl, nil
}

// ParseTimeframe accepts one of the supported candle intervals.
func ParseTimeframe(s string) (string, error) {
	tf := strings.TrimSpace(s)
	if _, ok := domain.TimeframeDuration(tf); !ok {
		return "", invalid("unsupported timeframe %q, choose one of %s", tf, strings.Join(domain.Timeframes(), ", "))
	}
	return tf, nil
}

// Validate checks a full settings value.
func Validate(us domain.UserSettings) error {
	sc := us.Strategy
	if err := validateWeights(sc.Weights); err != nil {
		return err
	}
	if sc.RSIThreshold < 0 || sc.RSIThreshold > 100 {
		return invalid("RSI threshold must be between 0 and 100, got %v", sc.RSIThreshold)
	}
	if sc.TPRatio <= 0 || sc.SLRatio <= 0 {
		return invalid("ratios must be positive, got %v and %v", sc.TPRatio, sc.SLRatio)
	}
	if _, err := ParseTimeframe(us.Timeframe); err != nil {
		return err
	}
	return nil
}

func validateWeights(w domain.Weights) error {
	if w.EMA < 0 || w.RSI < 0 || w.MACD < 0 {
		return invalid("weights must not be negative")
	}
	if math.Abs(w.Sum()-1) > WeightTolerance {
		return invalid("weights must sum to 1, got %.4f", w.Sum())
	}
	return nil
}
