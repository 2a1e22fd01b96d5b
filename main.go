package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"cryptoSignalBot/config"
	"cryptoSignalBot/internal/adapters/binanceclient"
	"cryptoSignalBot/internal/adapters/influx"
	"cryptoSignalBot/internal/adapters/jsonfile"
	"cryptoSignalBot/internal/adapters/logger"
	"cryptoSignalBot/internal/adapters/notify"
	"cryptoSignalBot/internal/adapters/redisstore"
	"cryptoSignalBot/internal/adapters/sqlite"
	"cryptoSignalBot/internal/app"
	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/metrics"
	"cryptoSignalBot/internal/ports"
	"cryptoSignalBot/internal/report"
	"cryptoSignalBot/internal/risk"
	"cryptoSignalBot/internal/settings"
	"cryptoSignalBot/internal/strategy"
	"cryptoSignalBot/internal/utils"
)

// options are the command line requests. Settings edits run before any analysis.
type options struct {
	user         string
	symbol       string
	budget       string
	top          bool
	showSettings bool
	setRSI       string
	setWeights   string
	setTPSL      string
	setTimeframe string
	reset        bool
	export       bool
	notify       bool
	plain        bool
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.user, "user", "default", "User whose settings are used and edited")
	flag.StringVar(&o.symbol, "symbol", "", "Analyze a single symbol, e.g. BTCUSDT")
	flag.StringVar(&o.budget, "budget", "", "Analyze the top symbols and split this budget across the best picks")
	flag.BoolVar(&o.top, "top", false, "List the most traded symbols")
	flag.BoolVar(&o.showSettings, "show-settings", false, "Print the current settings")
	flag.StringVar(&o.setRSI, "set-rsi", "", "Set the RSI threshold (0-100)")
	flag.StringVar(&o.setWeights, "set-weights", "", `Set EMA, RSI and MACD weights, e.g. "0.4 0.3 0.3"`)
	flag.StringVar(&o.setTPSL, "set-tpsl", "", `Set take-profit and stop-loss ratios, e.g. "1.05 0.97"`)
	flag.StringVar(&o.setTimeframe, "set-timeframe", "", "Set the candle interval (1m, 5m, 15m, 1h, 4h, 1d)")
	flag.BoolVar(&o.reset, "reset", false, "Restore default settings")
	flag.BoolVar(&o.export, "export", false, "With -symbol, write the annotated candle series to EXPORT_DIR as CSV")
	flag.BoolVar(&o.notify, "notify", false, "Push reports to the configured notifiers")
	flag.BoolVar(&o.plain, "plain", false, "Print reports without terminal styling")
	flag.Parse()
	return o
}

func main() {
	opts := parseFlags()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.New(cfg.LogFormat, cfg.LogLevel)
	if zl, ok := appLogger.(*logger.ZapLogger); ok {
		defer func() { _ = zl.Sync() }()
	}
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String(), "format": cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, appLogger); err != nil {
		appLogger.Error(ctx, err, "Run failed")
		stop()
		log.Fatalf("FATAL: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, appLogger ports.Logger) error {
	// 3. Metrics
	registry := prometheus.NewRegistry()
	appMetrics := metrics.New(registry)
	if cfg.MetricsAddr != "" {
		server := metrics.NewServer(cfg.MetricsAddr, registry, appLogger)
		server.Start(ctx)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Stop(shutdownCtx); err != nil {
				appLogger.Error(context.Background(), err, "Error stopping metrics server")
			}
		}()
	}

	// 4. Settings backend and signal recorders
	var recorders app.Recorders
	backend, closeBackend, err := openSettingsBackend(ctx, cfg, appLogger, &recorders)
	if err != nil {
		return fmt.Errorf("failed to initialize settings backend: %w", err)
	}
	defer closeBackend()

	if cfg.InfluxURL != "" {
		rec, err := influx.NewRecorder(ctx, influx.Config{
			URL:          cfg.InfluxURL,
			Token:        cfg.InfluxToken,
			Organization: cfg.InfluxOrg,
			Bucket:       cfg.InfluxBucket,
			Logger:       appLogger,
		})
		if err != nil {
			// Recording is optional, analysis proceeds without it.
			appLogger.Warn(ctx, "InfluxDB recorder disabled", map[string]interface{}{"error": err.Error()})
		} else {
			defer rec.Close()
			recorders = append(recorders, rec)
		}
	}

	defaults, err := settings.LoadDefaults(cfg.StrategyDefaultsFile)
	if err != nil {
		return err
	}
	store, err := settings.NewStore(settings.Config{Backend: backend, Defaults: defaults, Logger: appLogger})
	if err != nil {
		return err
	}
	if err := store.Load(ctx); err != nil {
		return err
	}

	// 5. Initialize Market Data Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:           cfg.APIKey,
		SecretKey:        cfg.SecretKey,
		UseTestnet:       cfg.IsTestnet,
		BaseURL:          cfg.BaseURL,
		QuoteAsset:       cfg.QuoteAsset,
		ExcludedPrefixes: cfg.ExcludedPrefixes,
		Timeout:          cfg.RequestTimeout,
		Logger:           appLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Binance client: %w", err)
	}

	// 6. Initialize Strategy
	strat, err := strategy.New(strategy.DefaultConfig(), appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize strategy: %w", err)
	}

	// 7. Initialize Application Service
	svcCfg := app.Config{
		Market:          binanceClient,
		Strategy:        strat,
		Risk:            risk.NewManager(risk.AllocationConfig{TopN: cfg.TopPicks}),
		Settings:        store,
		Metrics:         appMetrics,
		Logger:          appLogger,
		CandleLimit:     cfg.CandleLimit,
		TopSymbolsLimit: cfg.TopSymbolsLimit,
	}
	if len(recorders) > 0 {
		svcCfg.Recorder = recorders
	}
	svcCfg.Notifier = buildNotifier(cfg, appLogger)
	svc, err := app.NewAnalysisService(svcCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize analysis service: %w", err)
	}

	return execute(ctx, svc, cfg, opts)
}

// openSettingsBackend opens the configured backend. The SQLite backend also records signal history.
func openSettingsBackend(ctx context.Context, cfg *config.Config, appLogger ports.Logger, recorders *app.Recorders) (ports.SettingsBackend, func(), error) {
	switch cfg.SettingsBackend {
	case config.BackendSQLite:
		repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
		if err != nil {
			return nil, nil, err
		}
		*recorders = append(*recorders, repo)
		return repo, func() {
			if err := repo.Close(); err != nil {
				appLogger.Error(context.Background(), err, "Error closing database repository")
			}
		}, nil
	case config.BackendRedis:
		store, client, err := redisstore.New(ctx, redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisKey,
			Logger:   appLogger,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := client.Close(); err != nil {
				appLogger.Error(context.Background(), err, "Error closing Redis client")
			}
		}, nil
	default:
		store, err := jsonfile.New(cfg.SettingsPath, appLogger)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}

// buildNotifier falls back to logging reports when no chat destination is configured.
func buildNotifier(cfg *config.Config, appLogger ports.Logger) ports.Notifier {
	var targets notify.Multi
	if cfg.TelegramBotToken != "" {
		targets = append(targets, notify.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	if cfg.DiscordWebhookURL != "" {
		targets = append(targets, notify.NewDiscordNotifier(cfg.DiscordWebhookURL))
	}
	if len(targets) == 0 {
		return notify.NewLogNotifier(appLogger)
	}
	return targets
}

// execute applies settings edits, then runs the requested analyses.
func execute(ctx context.Context, svc *app.AnalysisService, cfg *config.Config, opts options) error {
	printer := newPrinter(opts.plain)
	acted := false

	edits := []struct {
		raw   string
		apply func(context.Context, string, string) (domain.UserSettings, error)
	}{
		{opts.setRSI, svc.SetRSIThreshold},
		{opts.setWeights, svc.SetWeights},
		{opts.setTPSL, svc.SetTPSL},
		{opts.setTimeframe, svc.SetTimeframe},
	}
	if opts.reset {
		if _, err := svc.ResetSettings(ctx, opts.user); err != nil {
			return err
		}
		printer.line("Settings restored to defaults.")
		acted = true
	}
	for _, e := range edits {
		if e.raw == "" {
			continue
		}
		if _, err := e.apply(ctx, opts.user, e.raw); err != nil {
			return err
		}
		acted = true
	}
	if acted || opts.showSettings {
		printer.section("Settings", report.SettingsSummary(svc.Settings(ctx, opts.user)))
		acted = true
	}

	if opts.top {
		symbols, err := svc.TopSymbols(ctx, 0)
		if err != nil {
			return err
		}
		printer.section("Top symbols by 24h volume", strings.Join(symbols, "\n"))
		acted = true
	}

	if opts.symbol != "" {
		rep, err := svc.AnalyzeSymbol(ctx, opts.user, opts.symbol)
		if err != nil {
			return err
		}
		printer.signal(rep.Result.Label, rep.Text)
		if opts.export {
			name := fmt.Sprintf("%s_%s_%s.csv", rep.Result.Symbol, rep.Result.Timeframe, rep.Result.AnalyzedAt.Format("20060102_150405"))
			path := filepath.Join(cfg.ExportDir, name)
			if err := utils.WriteSeriesToCSV(rep.Series, path); err != nil {
				return fmt.Errorf("failed to export series: %w", err)
			}
			printer.line("Series written to " + path)
		}
		if opts.notify {
			if err := svc.Deliver(ctx, rep.Result.Symbol, rep.Text); err != nil {
				return err
			}
		}
		acted = true
	}

	if opts.budget != "" {
		budget, err := settings.ParseBudget(opts.budget)
		if err != nil {
			return err
		}
		group, err := svc.AnalyzeTop(ctx, opts.user, budget)
		if err != nil {
			return err
		}
		printer.title(report.GroupHeader(group.Timeframe, group.Budget))
		for _, pick := range group.Picks {
			printer.signal(pick.Result.Label, pick.Text)
		}
		printer.line(report.GroupTotals(group.TotalProfit, group.TotalLoss))
		if skipped := report.SkippedSummary(group.Skipped); skipped != "" {
			printer.line(skipped)
		}
		if opts.notify {
			if err := svc.Deliver(ctx, "Top picks", group.Text); err != nil {
				return err
			}
		}
		acted = true
	}

	if !acted {
		flag.Usage()
		return errors.New("nothing to do: pass -symbol, -budget, -top or a settings flag")
	}
	return nil
}

// printer writes reports to stdout, styled unless plain.
type printer struct {
	plain bool
}

func newPrinter(plain bool) printer {
	return printer{plain: plain}
}

func (p printer) line(s string) {
	fmt.Println(s)
}

func (p printer) title(s string) {
	if p.plain {
		fmt.Println(s)
		return
	}
	fmt.Println(report.RenderTitle(s))
}

func (p printer) section(title, body string) {
	if p.plain {
		fmt.Printf("%s\n%s\n", title, body)
		return
	}
	fmt.Println(report.RenderTitle(title))
	fmt.Println(report.RenderSection(body))
}

func (p printer) signal(label domain.SignalLabel, body string) {
	if p.plain {
		fmt.Println(body)
		fmt.Println()
		return
	}
	fmt.Println(report.RenderSignal(label, body))
}
