package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"cryptoSignalBot/config"
	"cryptoSignalBot/internal/adapters/binanceclient"
	"cryptoSignalBot/internal/adapters/logger"
	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/strategy"
	"cryptoSignalBot/internal/utils"
)

func main() {
	symbol := flag.String("symbol", "BTCUSDT", "Symbol to fetch")
	interval := flag.String("interval", "15m", "Candle interval")
	days := flag.Int("days", 30, "How many days back to fetch")
	flag.Parse()

	if _, ok := domain.TimeframeDuration(*interval); !ok {
		log.Fatalf("FATAL: unsupported interval %q, choose one of %s", *interval, strings.Join(domain.Timeframes(), ", "))
	}
	if *days <= 0 {
		log.Fatalf("FATAL: -days must be positive")
	}

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.New(cfg.LogFormat, cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Market Data Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		BaseURL:    cfg.BaseURL,
		QuoteAsset: cfg.QuoteAsset,
		Timeout:    cfg.RequestTimeout,
		Logger:     appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}

	strat, err := strategy.New(strategy.DefaultConfig(), appLogger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize strategy: %v", err)
	}

	sym := strings.ToUpper(*symbol)
	end := time.Now()
	start := end.AddDate(0, 0, -*days)

	fmt.Printf("Fetching klines for %s %s from %s to %s...\n", sym, *interval, start.Format(time.DateTime), end.Format(time.DateTime))
	klines, err := binanceClient.GetKlinesRange(context.Background(), sym, *interval, start, end)
	if err != nil {
		appLogger.Error(context.Background(), err, "Error fetching klines")
		log.Fatalf("Error fetching klines: %v", err)
	}
	appLogger.Info(context.Background(), "Fetched klines", map[string]interface{}{"count": len(klines)})

	series := strat.Annotate(klines)
	filename := filepath.Join(cfg.ExportDir, fmt.Sprintf("%s_%s_%s_to_%s.csv", sym, *interval, start.Format("20060102"), end.Format("20060102")))
	if err := utils.WriteSeriesToCSV(series, filename); err != nil {
		appLogger.Error(context.Background(), err, "Error writing CSV")
		log.Fatalf("Error writing CSV: %v", err)
	}
	appLogger.Info(context.Background(), "Saved to", map[string]interface{}{"filename": filename})
}
