package influx

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
)

const measurement = "signals"

// Config holds InfluxDB connection settings.
type Config struct {
	URL          string
	Token        string
	Organization string
	Bucket       string
	Logger       ports.Logger
}

// Recorder writes every computed signal to InfluxDB.
type Recorder struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	logger   ports.Logger
}

// NewRecorder connects to InfluxDB and checks that it is healthy.
func NewRecorder(ctx context.Context, cfg Config) (*Recorder, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for InfluxDB recorder")
	}
	if cfg.URL == "" || cfg.Organization == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("influx url, organization and bucket are required: %w", ports.ErrConfigurationError)
	}

	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	health, err := client.Health(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("influx health check: %w: %w", ports.ErrStorageConnection, err)
	}
	if health == nil || health.Status != "pass" {
		client.Close()
		return nil, fmt.Errorf("influx is not healthy (%+v): %w", health, ports.ErrStorageConnection)
	}

	cfg.Logger.Info(ctx, "InfluxDB recorder connected", map[string]interface{}{"url": cfg.URL, "bucket": cfg.Bucket})
	return &Recorder{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Organization, cfg.Bucket),
		logger:   cfg.Logger,
	}, nil
}

// Close releases the client.
func (r *Recorder) Close() {
	r.client.Close()
}

// RecordSignal writes one point per signal.
func (r *Recorder) RecordSignal(ctx context.Context, result domain.SignalResult) error {
	if err := r.writeAPI.WritePoint(ctx, SignalPoint(result)); err != nil {
		return fmt.Errorf("influx write %s: %w: %w", result.Symbol, ports.ErrUpdateFailed, err)
	}
	r.logger.Debug(ctx, "Signal recorded", map[string]interface{}{"symbol": result.Symbol, "label": result.Label})
	return nil
}

// SignalPoint converts a signal into a point tagged by symbol, timeframe and label.
// Undefined indicator values are left out.
func SignalPoint(result domain.SignalResult) *write.Point {
	fields := map[string]interface{}{
		"score":  result.Score,
		"entry":  result.Entry,
		"target": result.Target,
		"stop":   result.Stop,
	}
	snap := result.Snapshot
	for name, v := range map[string]float64{
		"ema50":       snap.EMA50,
		"ema200":      snap.EMA200,
		"rsi":         snap.RSI,
		"macd":        snap.MACD,
		"macd_signal": snap.MACDSignal,
	} {
		if domain.IsDefined(v) {
			fields[name] = v
		}
	}

	ts := result.AnalyzedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return influxdb2.NewPoint(
		measurement,
		map[string]string{
			"symbol":    result.Symbol,
			"timeframe": result.Timeframe,
			"label":     string(result.Label),
		},
		fields,
		ts,
	)
}
