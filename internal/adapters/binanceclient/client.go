package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
)

const (
	// Base URLs
	baseURLProduction = "https://api.binance.com"
	baseURLTestnet    = "https://testnet.binance.vision"

	// Spot kline requests are capped at this many candles.
	maxKlinesLimit = 1000
)

// DefaultExcludedPrefixes are stablecoin bases skipped when ranking symbols.
var DefaultExcludedPrefixes = []string{"USDT", "BUSD", "USDC", "TUSD"}

// Client implements ports.MarketDataProvider against the Binance spot REST API.
type Client struct {
	spotClient       *binance.Client
	logger           ports.Logger
	quoteAsset       string
	excludedPrefixes []string
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey           string
	SecretKey        string
	UseTestnet       bool
	BaseURL          string        // overrides the production/testnet URL when set
	QuoteAsset       string        // e.g. "USDT"
	ExcludedPrefixes []string      // symbols starting with any of these are never ranked
	Timeout          time.Duration // per-request HTTP timeout
	Logger           ports.Logger
}

// New creates a new Binance client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		cfg.Logger.Debug(context.Background(), "APIKey or SecretKey is empty. Only public market data endpoints are used.")
	}

	client := binance.NewClient(cfg.APIKey, cfg.SecretKey)
	switch {
	case cfg.BaseURL != "":
		client.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	case cfg.UseTestnet:
		client.BaseURL = baseURLTestnet
	default:
		client.BaseURL = baseURLProduction
	}
	if cfg.Timeout > 0 {
		client.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	cfg.Logger.Info(context.Background(), "Binance client configured", map[string]interface{}{"baseURL": client.BaseURL})

	quote := strings.ToUpper(cfg.QuoteAsset)
	if quote == "" {
		quote = "USDT"
	}
	excluded := cfg.ExcludedPrefixes
	if excluded == nil {
		excluded = DefaultExcludedPrefixes
	}

	return &Client{
		spotClient:       client,
		logger:           cfg.Logger,
		quoteAsset:       quote,
		excludedPrefixes: excluded,
	}, nil
}

// handleError translates Binance API and transport errors into ports errors.
// Every failure is also a ports.ErrDataUnavailable.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var mappedErr error
	var apiErr *common.APIError
	switch {
	case errors.As(err, &apiErr):
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1007, -1021: // Backend timeout, timestamp outside recvWindow
			mappedErr = ports.ErrTimeout
		case -1100, -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1112, -1120, -1121: // Parameter/Request format errors
			mappedErr = ports.ErrInvalidInput
		case -1000, -1001, -1016: // Unknown error, disconnected, service shutting down
			mappedErr = ports.ErrExchangeUnavailable
		default:
			mappedErr = ports.ErrUnknown
		}
	case errors.Is(err, context.DeadlineExceeded):
		mappedErr = ports.ErrTimeout
	case errors.Is(err, context.Canceled):
		mappedErr = ports.ErrContextCanceled
	case strings.Contains(err.Error(), "Client.Timeout"):
		mappedErr = ports.ErrTimeout
	case strings.Contains(err.Error(), "use of closed network connection"),
		strings.Contains(err.Error(), "connection refused"),
		strings.Contains(err.Error(), "connection reset by peer"),
		strings.Contains(err.Error(), "no such host"):
		mappedErr = ports.ErrConnectionFailed
	default:
		mappedErr = ports.ErrUnknown
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return fmt.Errorf("%s failed: %w: %w: %w", operation, ports.ErrDataUnavailable, mappedErr, err)
}

// GetKlines retrieves the most recent limit candles for symbol, oldest first.
func (c *Client) GetKlines(ctx context.Context, symbol string, interval string, limit int) ([]*domain.Kline, error) {
	op := "GetKlines"
	if limit <= 0 || limit > maxKlinesLimit {
		limit = maxKlinesLimit
	}
	binanceKlines, err := c.spotClient.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	domainKlines, err := translateKlines(binanceKlines, symbol, interval)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	if len(domainKlines) == 0 {
		return nil, fmt.Errorf("%s failed: no candles for %s %s: %w", op, symbol, interval, ports.ErrDataUnavailable)
	}

	c.logger.Debug(ctx, "Klines fetched", map[string]interface{}{"symbol": symbol, "interval": interval, "count": len(domainKlines)})
	return domainKlines, nil
}

// GetKlinesRange fetches all klines for a symbol/interval between start and end time.
func (c *Client) GetKlinesRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]*domain.Kline, error) {
	op := "GetKlinesRange"
	var allKlines []*domain.Kline
	from := start

	for {
		klines, err := c.spotClient.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(from.UnixMilli()).
			EndTime(end.UnixMilli()).
			Limit(maxKlinesLimit).
			Do(ctx)
		if err != nil {
			return nil, c.handleError(ctx, err, op)
		}
		if len(klines) == 0 {
			break
		}
		page, err := translateKlines(klines, symbol, interval)
		if err != nil {
			return nil, c.handleError(ctx, err, op)
		}
		allKlines = append(allKlines, page...)

		from = time.UnixMilli(klines[len(klines)-1].CloseTime + 1)
		if from.After(end) || len(klines) < maxKlinesLimit {
			break
		}
	}

	return allKlines, nil
}

// GetTopSymbols returns up to limit quote-asset symbols ranked by 24h quote volume.
func (c *Client) GetTopSymbols(ctx context.Context, limit int) ([]string, error) {
	op := "GetTopSymbols"
	stats, err := c.spotClient.NewListPriceChangeStatsService().Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	tickers := make([]TickerVolume, 0, len(stats))
	for _, s := range stats {
		if s == nil {
			continue
		}
		qv, err := strconv.ParseFloat(s.QuoteVolume, 64)
		if err != nil {
			c.logger.Debug(ctx, "Skipping ticker with unparseable quote volume", map[string]interface{}{"symbol": s.Symbol, "quoteVolume": s.QuoteVolume})
			continue
		}
		tickers = append(tickers, TickerVolume{Symbol: s.Symbol, QuoteVolume: qv})
	}

	symbols := RankByQuoteVolume(tickers, c.quoteAsset, c.excludedPrefixes, limit)
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%s failed: no %s symbols in ticker list: %w", op, c.quoteAsset, ports.ErrDataUnavailable)
	}
	return symbols, nil
}

// TickerVolume is the part of a 24h ticker used for ranking.
type TickerVolume struct {
	Symbol      string
	QuoteVolume float64
}

// RankByQuoteVolume keeps symbols quoted in quote whose name does not start
// with an excluded prefix, sorts them by quote volume descending and returns at most limit.
func RankByQuoteVolume(tickers []TickerVolume, quote string, excludedPrefixes []string, limit int) []string {
	kept := make([]TickerVolume, 0, len(tickers))
	for _, t := range tickers {
		if !strings.HasSuffix(t.Symbol, quote) || hasAnyPrefix(t.Symbol, excludedPrefixes) {
			continue
		}
		kept = append(kept, t)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].QuoteVolume > kept[j].QuoteVolume
	})
	if limit > 0 && len(kept) > limit {
		kept = kept[:limit]
	}

	symbols := make([]string, len(kept))
	for i, t := range kept {
		symbols[i] = t.Symbol
	}
	return symbols
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func translateKlines(bks []*binance.Kline, symbol, interval string) ([]*domain.Kline, error) {
	out := make([]*domain.Kline, 0, len(bks))
	for _, bk := range bks {
		dk, err := translateBinanceKline(bk, symbol, interval)
		if err != nil {
			return nil, fmt.Errorf("failed to translate kline: %w", err)
		}
		out = append(out, dk)
	}
	return out, nil
}

func translateBinanceKline(bk *binance.Kline, symbol, interval string) (*domain.Kline, error) {
	if bk == nil {
		return nil, errors.New("received nil kline")
	}
	open, err := strconv.ParseFloat(bk.Open, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing open price '%s': %w", bk.Open, err)
	}
	high, err := strconv.ParseFloat(bk.High, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing high price '%s': %w", bk.High, err)
	}
	low, err := strconv.ParseFloat(bk.Low, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing low price '%s': %w", bk.Low, err)
	}
	cls, err := strconv.ParseFloat(bk.Close, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing close price '%s': %w", bk.Close, err)
	}
	vol, err := strconv.ParseFloat(bk.Volume, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing volume '%s': %w", bk.Volume, err)
	}

	return &domain.Kline{
		OpenTime:  time.UnixMilli(bk.OpenTime),
		CloseTime: time.UnixMilli(bk.CloseTime),
		Symbol:    symbol,
		Interval:  interval,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     cls,
		Volume:    vol,
	}, nil
}
