package backtesting

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
	"cryptoSignalBot/internal/strategy"
	"cryptoSignalBot/internal/strategy/indicators"
)

// Outcome is how a replayed buy signal ended.
type Outcome string

const (
	OutcomeTarget Outcome = "target"
	OutcomeStop   Outcome = "stop"
	OutcomeOpen   Outcome = "open" // neither level reached before the data ran out
)

// BacktestConfig holds configuration for a signal replay.
type BacktestConfig struct {
	Symbol   string
	Strategy domain.StrategyConfig
	// WarmUp is the number of leading candles that never produce a signal.
	WarmUp int
}

// Trade is one hypothetical long entered on a buy signal.
type Trade struct {
	Symbol     string
	Score      float64
	EntryTime  time.Time
	ExitTime   time.Time
	EntryPrice float64
	ExitPrice  float64
	Target     float64
	Stop       float64
	Outcome    Outcome
	Return     float64 // fractional, e.g. 0.05 for +5%
	Candles    int     // candles held
}

// BacktestResult holds the results of a replay.
type BacktestResult struct {
	Signals       map[domain.SignalLabel]int // labels seen at candles where no trade was open
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	OpenTrades    int
	WinRate       float64 // over closed trades
	TotalReturn   float64 // compounded
	MaxDrawdown   float64
	ProfitFactor  float64
	AverageWin    float64
	AverageLoss   float64
	SharpeRatio   float64
	Trades        []Trade
}

// Backtest replays series candle by candle. A buy signal opens a long at the
// candle's close that ends at the first later candle whose high reaches the
// target or whose low reaches the stop. When both fall inside one candle the
// stop wins. Only one trade is open at a time.
func Backtest(series indicators.AnnotatedSeries, config BacktestConfig) (*BacktestResult, error) {
	if config.WarmUp < 0 {
		config.WarmUp = 0
	}
	if series.Len() <= config.WarmUp {
		return nil, fmt.Errorf("replay needs more than %d candles, got %d: %w", config.WarmUp, series.Len(), ports.ErrDataUnavailable)
	}

	result := &BacktestResult{Signals: make(map[domain.SignalLabel]int)}
	for i := config.WarmUp; i < series.Len(); i++ {
		snap := series.At(i)
		score, _ := strategy.Score(snap, config.Strategy)
		label := strategy.Label(score)
		result.Signals[label]++
		if label != domain.LabelBuy {
			continue
		}

		trade := Trade{
			Symbol:     config.Symbol,
			Score:      score,
			EntryTime:  series.Klines[i].CloseTime,
			EntryPrice: snap.Close,
			Target:     snap.Close * config.Strategy.TPRatio,
			Stop:       snap.Close * config.Strategy.SLRatio,
			Outcome:    OutcomeOpen,
		}
		exit := resolve(series.Klines, i, &trade)
		result.Trades = append(result.Trades, trade)
		i = exit
	}

	summarize(result)
	return result, nil
}

// resolve walks forward from entry and fills the trade's exit. It returns the exit index.
func resolve(klines []*domain.Kline, entry int, trade *Trade) int {
	for j := entry + 1; j < len(klines); j++ {
		k := klines[j]
		switch {
		case k.Low <= trade.Stop:
			trade.Outcome, trade.ExitPrice = OutcomeStop, trade.Stop
		case k.High >= trade.Target:
			trade.Outcome, trade.ExitPrice = OutcomeTarget, trade.Target
		default:
			continue
		}
		trade.ExitTime = k.CloseTime
		trade.Candles = j - entry
		trade.Return = trade.ExitPrice/trade.EntryPrice - 1
		return j
	}

	last := klines[len(klines)-1]
	trade.ExitTime = last.CloseTime
	trade.ExitPrice = last.Close
	trade.Candles = len(klines) - 1 - entry
	trade.Return = trade.ExitPrice/trade.EntryPrice - 1
	return len(klines) - 1
}

func summarize(result *BacktestResult) {
	equity, peak := 1.0, 1.0
	var grossWin, grossLoss float64
	returns := make([]float64, 0, len(result.Trades))

	for _, t := range result.Trades {
		result.TotalTrades++
		switch t.Outcome {
		case OutcomeTarget:
			result.WinningTrades++
			grossWin += t.Return
		case OutcomeStop:
			result.LosingTrades++
			grossLoss -= t.Return
		default:
			result.OpenTrades++
			continue
		}
		returns = append(returns, t.Return)

		equity *= 1 + t.Return
		if equity > peak {
			peak = equity
		}
		if dd := (peak - equity) / peak; dd > result.MaxDrawdown {
			result.MaxDrawdown = dd
		}
	}

	closed := result.WinningTrades + result.LosingTrades
	if closed > 0 {
		result.WinRate = float64(result.WinningTrades) / float64(closed)
	}
	if result.WinningTrades > 0 {
		result.AverageWin = grossWin / float64(result.WinningTrades)
	}
	if result.LosingTrades > 0 {
		result.AverageLoss = -grossLoss / float64(result.LosingTrades)
	}
	if grossLoss > 0 {
		result.ProfitFactor = grossWin / grossLoss
	}
	result.TotalReturn = equity - 1

	// Sharpe ratio per trade, risk-free rate 0.
	if len(returns) > 1 {
		mean, std := stat.MeanStdDev(returns, nil)
		if std > 0 {
			result.SharpeRatio = mean / std
		}
	}
}
