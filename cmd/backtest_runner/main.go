package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"cryptoSignalBot/config"
	"cryptoSignalBot/internal/adapters/binanceclient"
	"cryptoSignalBot/internal/adapters/logger"
	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/settings"
	"cryptoSignalBot/internal/strategy"
	"cryptoSignalBot/internal/strategy/backtesting"
	"cryptoSignalBot/internal/strategy/indicators"
	"cryptoSignalBot/internal/strategy/optimization"
)

func main() {
	symbol := flag.String("symbol", "BTCUSDT", "Symbol to replay")
	tfList := flag.String("timeframes", "15m,1h,4h", "Comma separated candle intervals")
	days := flag.Int("days", 90, "How many days back to fetch")
	optimize := flag.Bool("optimize", false, "Search score weights on each timeframe")
	step := flag.Float64("step", 0.1, "Weight grid step for -optimize")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	appLogger := logger.New(cfg.LogFormat, cfg.LogLevel)

	defaults, err := settings.LoadDefaults(cfg.StrategyDefaultsFile)
	if err != nil {
		log.Fatalf("FATAL: Failed to load strategy defaults: %v", err)
	}

	client, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		BaseURL:    cfg.BaseURL,
		QuoteAsset: cfg.QuoteAsset,
		Timeout:    cfg.RequestTimeout,
		Logger:     appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}

	strat, err := strategy.New(strategy.DefaultConfig(), appLogger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize strategy: %v", err)
	}

	// 2. Load klines for every timeframe
	var timeframes []string
	for _, tf := range strings.Split(*tfList, ",") {
		tf = strings.TrimSpace(tf)
		if _, ok := domain.TimeframeDuration(tf); !ok {
			log.Fatalf("FATAL: unsupported timeframe %q", tf)
		}
		timeframes = append(timeframes, tf)
	}

	sym := strings.ToUpper(*symbol)
	end := time.Now()
	start := end.AddDate(0, 0, -*days)
	seriesMap := make(map[string]indicators.AnnotatedSeries)

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, tf := range timeframes {
		wg.Add(1)
		go func(timeframe string) {
			defer wg.Done()

			klines, err := client.GetKlinesRange(context.Background(), sym, timeframe, start, end)
			if err != nil {
				appLogger.Error(context.Background(), err, "Error loading klines",
					map[string]interface{}{"timeframe": timeframe})
				return
			}

			mu.Lock()
			seriesMap[timeframe] = strat.Annotate(klines)
			mu.Unlock()

			appLogger.Info(context.Background(), "Loaded klines",
				map[string]interface{}{
					"timeframe": timeframe,
					"count":     len(klines),
				})
		}(tf)
	}

	wg.Wait()

	// 3. Replay each timeframe
	for _, tf := range timeframes {
		series, ok := seriesMap[tf]
		if !ok {
			appLogger.Warn(context.Background(), "Missing klines for timeframe", map[string]interface{}{"timeframe": tf})
			continue
		}

		result, err := backtesting.Backtest(series, backtesting.BacktestConfig{
			Symbol:   sym,
			Strategy: defaults.Strategy,
			WarmUp:   strat.RequiredDataPoints(),
		})
		if err != nil {
			appLogger.Error(context.Background(), err, "Backtest error", map[string]interface{}{"timeframe": tf})
			continue
		}
		printResult(sym, tf, defaults.Strategy.Weights, result)

		if !*optimize {
			continue
		}
		opt, err := optimization.NewOptimizer(optimization.OptimizerConfig{
			Base:   defaults.Strategy,
			Step:   *step,
			WarmUp: strat.RequiredDataPoints(),
			Symbol: sym,
		})
		if err != nil {
			log.Fatalf("FATAL: %v", err)
		}
		ranked, err := opt.Optimize(series)
		if err != nil {
			appLogger.Error(context.Background(), err, "Optimization error", map[string]interface{}{"timeframe": tf})
			continue
		}
		fmt.Printf("Best weights for %s %s:\n", sym, tf)
		for i, r := range ranked {
			if i == 5 {
				break
			}
			fmt.Printf("  %d. ema=%.2f rsi=%.2f macd=%.2f score=%.4f winRate=%.1f%% return=%.2f%% trades=%d\n",
				i+1, r.Weights.EMA, r.Weights.RSI, r.Weights.MACD, r.Score,
				r.Metrics.WinRate*100, r.Metrics.TotalReturn*100, r.Metrics.TotalTrades)
		}
	}
}

func printResult(symbol, tf string, w domain.Weights, r *backtesting.BacktestResult) {
	fmt.Printf("\n=== %s %s (ema=%.2f rsi=%.2f macd=%.2f) ===\n", symbol, tf, w.EMA, w.RSI, w.MACD)
	fmt.Printf("Signals: buy=%d sell=%d neutral=%d\n",
		r.Signals[domain.LabelBuy], r.Signals[domain.LabelSell], r.Signals[domain.LabelNeutral])
	fmt.Printf("Trades: %d (won %d, lost %d, open %d)\n", r.TotalTrades, r.WinningTrades, r.LosingTrades, r.OpenTrades)
	fmt.Printf("Win rate: %.1f%%\n", r.WinRate*100)
	fmt.Printf("Total return: %.2f%%\n", r.TotalReturn*100)
	fmt.Printf("Max drawdown: %.2f%%\n", r.MaxDrawdown*100)
	fmt.Printf("Profit factor: %.2f\n", r.ProfitFactor)
	fmt.Printf("Sharpe (per trade): %.2f\n", r.SharpeRatio)
}
