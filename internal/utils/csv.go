package utils

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"cryptoSignalBot/internal/strategy/indicators"
)

// WriteSeriesToCSV writes an annotated candle series to filename.
// Missing parent directories are created.
func WriteSeriesToCSV(series indicators.AnnotatedSeries, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", filename, err)
	}
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	defer file.Close()

	return WriteSeries(file, series)
}

// WriteSeries writes the annotated series as CSV. Undefined indicator values are left empty.
func WriteSeries(w io.Writer, series indicators.AnnotatedSeries) error {
	writer := csv.NewWriter(w)

	header := []string{"open_time", "close_time", "symbol", "interval", "open", "high", "low", "close", "volume",
		"ema50", "ema200", "rsi", "macd", "macd_signal"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for i, k := range series.Klines {
		record := []string{
			k.OpenTime.Format(time.RFC3339),
			k.CloseTime.Format(time.RFC3339),
			k.Symbol,
			k.Interval,
			formatFloat(k.Open),
			formatFloat(k.High),
			formatFloat(k.Low),
			formatFloat(k.Close),
			formatFloat(k.Volume),
			formatFloat(series.EMA50[i]),
			formatFloat(series.EMA200[i]),
			formatFloat(series.RSI[i]),
			formatFloat(series.MACD[i]),
			formatFloat(series.MACDSignal[i]),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	if v != v { // NaN
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
