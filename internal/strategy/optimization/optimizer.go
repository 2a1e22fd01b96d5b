package optimization

import (
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
	"cryptoSignalBot/internal/strategy/backtesting"
	"cryptoSignalBot/internal/strategy/indicators"
	"cryptoSignalBot/internal/utils"
)

// OptimizationResult holds the replay outcome for one weight combination.
type OptimizationResult struct {
	Weights domain.Weights
	Metrics *backtesting.BacktestResult
	Score   float64
}

// OptimizerConfig holds configuration for the weight search.
type OptimizerConfig struct {
	Base    domain.StrategyConfig // everything except the weights
	Step    float64               // grid step for each weight, e.g. 0.1
	WarmUp  int
	Symbol  string
	Workers int
	// ScoreFunction ranks replay results, higher is better. Defaults to DefaultScoreFunction.
	ScoreFunction func(*backtesting.BacktestResult) float64
}

// Optimizer searches score weights against a historical series.
type Optimizer struct {
	config OptimizerConfig
}

// NewOptimizer creates a new optimizer instance
func NewOptimizer(config OptimizerConfig) (*Optimizer, error) {
	if config.Step <= 0 || config.Step > 1 {
		return nil, fmt.Errorf("grid step must be in (0, 1], got %v: %w", config.Step, ports.ErrInvalidInput)
	}
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	if config.ScoreFunction == nil {
		config.ScoreFunction = DefaultScoreFunction
	}
	return &Optimizer{config: config}, nil
}

// Optimize replays series once per weight combination and returns the results, best first.
// Ties keep grid order.
func (o *Optimizer) Optimize(series indicators.AnnotatedSeries) ([]OptimizationResult, error) {
	combinations := o.WeightGrid()
	results := make([]OptimizationResult, len(combinations))
	errs := make([]error, len(combinations))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < o.config.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				sc := o.config.Base
				sc.Weights = combinations[idx]
				res, err := backtesting.Backtest(series, backtesting.BacktestConfig{
					Symbol:   o.config.Symbol,
					Strategy: sc,
					WarmUp:   o.config.WarmUp,
				})
				if err != nil {
					errs[idx] = err
					continue
				}
				results[idx] = OptimizationResult{Weights: sc.Weights, Metrics: res, Score: o.config.ScoreFunction(res)}
			}
		}()
	}
	for idx := range combinations {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}

// WeightGrid lists every EMA, RSI and MACD weight triple on the step grid that sums to 1.
func (o *Optimizer) WeightGrid() []domain.Weights {
	steps := int(math.Round(1 / o.config.Step))
	var grid []domain.Weights
	for e := 0; e <= steps; e++ {
		for r := 0; r <= steps-e; r++ {
			m := steps - e - r
			grid = append(grid, domain.Weights{
				EMA:  utils.Round2(float64(e) / float64(steps)),
				RSI:  utils.Round2(float64(r) / float64(steps)),
				MACD: utils.Round2(float64(m) / float64(steps)),
			})
		}
	}
	return grid
}

// DefaultScoreFunction favors a high win rate and compounded return, penalizing
// drawdown. Replays without closed trades score 0.
func DefaultScoreFunction(metrics *backtesting.BacktestResult) float64 {
	if metrics == nil || metrics.WinningTrades+metrics.LosingTrades == 0 {
		return 0
	}
	score := 0.0
	score += metrics.WinRate * 0.5
	score += metrics.TotalReturn * 0.3
	score += (1 - metrics.MaxDrawdown) * 0.2
	return score
}
