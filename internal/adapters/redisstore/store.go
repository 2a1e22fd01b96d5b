package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"cryptoSignalBot/internal/adapters/jsonfile"
	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
)

// DefaultKey is where the settings document lives when no key is configured.
const DefaultKey = "signalbot:user_settings"

// kvClient is the subset of the Redis client the store needs.
type kvClient interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
}

// Config configures the Redis settings backend.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
	Key      string
	Logger   ports.Logger
}

// Store keeps the settings document as a single JSON value in Redis, so
// every save replaces the whole mapping atomically.
type Store struct {
	client kvClient
	key    string
	logger ports.Logger
}

// New connects to Redis and pings the server.
func New(ctx context.Context, cfg Config) (*Store, *goredis.Client, error) {
	if cfg.Logger == nil {
		return nil, nil, fmt.Errorf("logger is required for Redis settings store")
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("redis ping %s: %w: %w", cfg.Addr, ports.ErrStorageConnection, err)
	}

	cfg.Logger.Info(ctx, "Redis settings store connected", map[string]interface{}{"addr": cfg.Addr})
	return NewWithClient(client, cfg.Key, cfg.Logger), client, nil
}

// NewWithClient builds a store on an existing client.
func NewWithClient(client kvClient, key string, logger ports.Logger) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{client: client, key: key, logger: logger}
}

// LoadAll reads the document. A missing key yields an empty map.
func (s *Store) LoadAll(ctx context.Context) (map[string]domain.UserSettings, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return map[string]domain.UserSettings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w: %w", s.key, ports.ErrQueryFailed, err)
	}
	return jsonfile.Decode(data)
}

// SaveAll overwrites the document.
func (s *Store) SaveAll(ctx context.Context, all map[string]domain.UserSettings) error {
	data, err := jsonfile.Encode(all)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w: %w", s.key, ports.ErrUpdateFailed, err)
	}
	s.logger.Debug(ctx, "Settings written to Redis", map[string]interface{}{"key": s.key, "users": len(all)})
	return nil
}
