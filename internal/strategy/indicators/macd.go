package indicators

import "fmt"

// MACDConfig holds the three MACD periods.
type MACDConfig struct {
	FastPeriod   int
	SlowPeriod   int
	SignalPeriod int
}

// DefaultMACDConfig returns the conventional 12/26/9 periods.
func DefaultMACDConfig() MACDConfig {
	return MACDConfig{FastPeriod: 12, SlowPeriod: 26, SignalPeriod: 9}
}

// MACD computes the difference of two recursive EMAs and its signal line.
type MACD struct {
	config MACDConfig
}

// NewMACD creates a new MACD indicator instance
func NewMACD(config MACDConfig) (*MACD, error) {
	if config.FastPeriod < 1 || config.SlowPeriod < 1 || config.SignalPeriod < 1 {
		return nil, fmt.Errorf("MACD periods must be positive, got %d/%d/%d",
			config.FastPeriod, config.SlowPeriod, config.SignalPeriod)
	}
	return &MACD{config: config}, nil
}

// Name returns the name of the indicator
func (m *MACD) Name() string {
	return fmt.Sprintf("MACD(%d,%d,%d)", m.config.FastPeriod, m.config.SlowPeriod, m.config.SignalPeriod)
}

// RequiredDataPoints is 1; both lines are seeded with the first close.
func (m *MACD) RequiredDataPoints() int {
	return 1
}

// Series returns the MACD line.
func (m *MACD) Series(closes []float64) []float64 {
	line, _ := m.Lines(closes)
	return line
}

// Lines returns the MACD line and the signal line.
func (m *MACD) Lines(closes []float64) (macd, signal []float64) {
	fast := RecursiveEMA(closes, m.config.FastPeriod)
	slow := RecursiveEMA(closes, m.config.SlowPeriod)
	macd = make([]float64, len(closes))
	for i := range closes {
		macd[i] = fast[i] - slow[i]
	}
	return macd, RecursiveEMA(macd, m.config.SignalPeriod)
}
