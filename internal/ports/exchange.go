package ports

import (
	"context"

	"cryptoSignalBot/internal/domain"
)

// MarketDataProvider retrieves candles and symbol rankings from an exchange.
// This abstraction decouples the analysis pipeline from a specific exchange implementation.
type MarketDataProvider interface {
	// GetKlines retrieves historical klines/candlestick data for the given symbol,
	// ordered by open time ascending.
	GetKlines(ctx context.Context, symbol string, interval string, limit int) ([]*domain.Kline, error)

	// GetTopSymbols returns up to limit quote-asset pairs ordered by 24h quote volume descending.
	GetTopSymbols(ctx context.Context, limit int) ([]string, error)
}
