package indicators

import (
	"testing"
)

func TestMACD_Lines(t *testing.T) {
	tests := []struct {
		name           string
		config         MACDConfig
		closes         []float64
		expectedMACD   []float64
		expectedSignal []float64
	}{
		{
			name:           "Small periods",
			config:         MACDConfig{FastPeriod: 1, SlowPeriod: 3, SignalPeriod: 1},
			closes:         []float64{1, 2, 3},
			expectedMACD:   []float64{0, 0.5, 0.75},
			expectedSignal: []float64{0, 0.5, 0.75},
		},
		{
			name:           "Constant series is flat",
			config:         DefaultMACDConfig(),
			closes:         ramp(40, 250, 0),
			expectedMACD:   make([]float64, 40),
			expectedSignal: make([]float64, 40),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMACD(tt.config)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			line, signal := m.Lines(tt.closes)
			for i := range tt.closes {
				if !almostEqual(line[i], tt.expectedMACD[i]) {
					t.Errorf("macd[%d]: expected %f, got %f", i, tt.expectedMACD[i], line[i])
				}
				if !almostEqual(signal[i], tt.expectedSignal[i]) {
					t.Errorf("signal[%d]: expected %f, got %f", i, tt.expectedSignal[i], signal[i])
				}
			}
		})
	}
}

func TestNewMACD_Invalid(t *testing.T) {
	if _, err := NewMACD(MACDConfig{FastPeriod: 12, SlowPeriod: 0, SignalPeriod: 9}); err == nil {
		t.Error("Expected error but got none")
	}
}
