package indicators

import (
	"math"
	"testing"
	"time"

	"cryptoSignalBot/internal/domain"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.0001
}

func TestMovingAverage_Series(t *testing.T) {
	closes := []float64{100.0, 102.0, 101.0, 103.0, 104.0}

	tests := []struct {
		name     string
		config   MovingAverageConfig
		values   []float64
		expected []float64
	}{
		{
			name: "SMA warm-up is NaN",
			config: MovingAverageConfig{
				IndicatorConfig: IndicatorConfig{Period: 3},
				Type:            SimpleMovingAverage,
			},
			values:   closes,
			expected: []float64{math.NaN(), math.NaN(), 101.0, 102.0, 102.666667},
		},
		{
			name: "Adjusted EMA defined from first point",
			config: MovingAverageConfig{
				IndicatorConfig: IndicatorConfig{Period: 3},
				Type:            ExponentialMovingAverage,
			},
			values:   []float64{1, 2, 3},
			expected: []float64{1, 1.666667, 2.428571},
		},
		{
			name: "Recursive EMA seeded with first point",
			config: MovingAverageConfig{
				IndicatorConfig: IndicatorConfig{Period: 3},
				Type:            RecursiveMovingAverage,
			},
			values:   []float64{1, 2, 3},
			expected: []float64{1, 1.5, 2.25},
		},
		{
			name: "SMA shorter than period",
			config: MovingAverageConfig{
				IndicatorConfig: IndicatorConfig{Period: 6},
				Type:            SimpleMovingAverage,
			},
			values:   closes,
			expected: []float64{math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN()},
		},
		{
			name: "Empty input",
			config: MovingAverageConfig{
				IndicatorConfig: IndicatorConfig{Period: 50},
				Type:            ExponentialMovingAverage,
			},
			values:   nil,
			expected: []float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ma, err := NewMovingAverage(tt.config)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			got := ma.Series(tt.values)
			if len(got) != len(tt.expected) {
				t.Fatalf("Expected length %d, got %d", len(tt.expected), len(got))
			}
			for i := range got {
				if math.IsNaN(tt.expected[i]) {
					if !math.IsNaN(got[i]) {
						t.Errorf("index %d: expected NaN, got %f", i, got[i])
					}
					continue
				}
				if !almostEqual(got[i], tt.expected[i]) {
					t.Errorf("index %d: expected %f, got %f", i, tt.expected[i], got[i])
				}
			}
		})
	}
}

func TestMovingAverage_ConstantSeries(t *testing.T) {
	values := make([]float64, 250)
	for i := range values {
		values[i] = 42.5
	}
	for _, period := range []int{50, 200} {
		for _, got := range AdjustedEMA(values, period) {
			if !almostEqual(got, 42.5) {
				t.Fatalf("EMA%d of constant series: expected 42.5, got %f", period, got)
			}
		}
	}
}

func TestNewMovingAverage_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		config MovingAverageConfig
	}{
		{name: "Invalid MA type", config: MovingAverageConfig{IndicatorConfig: IndicatorConfig{Period: 3}, Type: "INVALID"}},
		{name: "Zero period", config: MovingAverageConfig{Type: SimpleMovingAverage}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMovingAverage(tt.config); err == nil {
				t.Error("Expected error but got none")
			}
		})
	}
}

func TestMovingAverage_Name(t *testing.T) {
	tests := []struct {
		name     string
		config   MovingAverageConfig
		expected string
	}{
		{
			name:     "SMA name",
			config:   MovingAverageConfig{IndicatorConfig: IndicatorConfig{Period: 20}, Type: SimpleMovingAverage},
			expected: "SMA20",
		},
		{
			name:     "EMA name",
			config:   MovingAverageConfig{IndicatorConfig: IndicatorConfig{Period: 50}, Type: ExponentialMovingAverage},
			expected: "EMA50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ma, err := NewMovingAverage(tt.config)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if name := ma.Name(); name != tt.expected {
				t.Errorf("Expected name %s, got %s", tt.expected, name)
			}
		})
	}
}

func TestLatest(t *testing.T) {
	now := time.Now()
	klines := []*domain.Kline{
		{OpenTime: now.Add(-2 * time.Hour), Close: 1},
		{OpenTime: now.Add(-1 * time.Hour), Close: 2},
		{OpenTime: now, Close: 3},
	}
	ema, _ := NewMovingAverage(MovingAverageConfig{IndicatorConfig: IndicatorConfig{Period: 3}, Type: RecursiveMovingAverage})
	value, err := Latest(ema, klines)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !almostEqual(value, 2.25) {
		t.Errorf("Expected value 2.25, got %f", value)
	}

	sma, _ := NewMovingAverage(MovingAverageConfig{IndicatorConfig: IndicatorConfig{Period: 5}, Type: SimpleMovingAverage})
	if _, err := Latest(sma, klines); err == nil {
		t.Error("Expected undefined error for short series")
	}
	if _, err := Latest(ema, nil); err == nil {
		t.Error("Expected undefined error for empty series")
	}
}
