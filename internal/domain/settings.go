package domain

// Weights holds the per-indicator contribution to the score.
type Weights struct {
	EMA  float64 `json:"ema" yaml:"ema"`
	RSI  float64 `json:"rsi" yaml:"rsi"`
	MACD float64 `json:"macd" yaml:"macd"`
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.EMA + w.RSI + w.MACD
}

// StrategyConfig controls which indicators participate in scoring and how
// entry levels are derived.
type StrategyConfig struct {
	UseEMA       bool    `json:"use_ema" yaml:"use_ema"`
	UseRSI       bool    `json:"use_rsi" yaml:"use_rsi"`
	UseMACD      bool    `json:"use_macd" yaml:"use_macd"`
	RSIThreshold float64 `json:"rsi_threshold" yaml:"rsi_threshold"`
	TPRatio      float64 `json:"tp_ratio" yaml:"tp_ratio"`
	SLRatio      float64 `json:"sl_ratio" yaml:"sl_ratio"`
	Weights      Weights `json:"weights" yaml:"weights"`
}

// UserSettings is the persisted per-user configuration.
type UserSettings struct {
	Strategy  StrategyConfig `json:"strategy" yaml:"strategy"`
	Timeframe string         `json:"timeframe" yaml:"timeframe"`
}

// DefaultStrategyConfig returns the built-in strategy defaults.
func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		UseEMA:       true,
		UseRSI:       true,
		UseMACD:      true,
		RSIThreshold: 40,
		TPRatio:      1.05,
		SLRatio:      0.97,
		Weights:      Weights{EMA: 0.4, RSI: 0.3, MACD: 0.3},
	}
}

// DefaultUserSettings returns the settings a user starts with.
func DefaultUserSettings() UserSettings {
	return UserSettings{
		Strategy:  DefaultStrategyConfig(),
		Timeframe: "15m",
	}
}
