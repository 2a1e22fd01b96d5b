package settings

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{})            {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})             {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})             {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {}

type memoryBackend struct {
	mu      sync.Mutex
	data    map[string]domain.UserSettings
	saves   int
	loadErr error
	saveErr error
}

func (b *memoryBackend) LoadAll(ctx context.Context) (map[string]domain.UserSettings, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	out := make(map[string]domain.UserSettings, len(b.data))
	for k, v := range b.data {
		out[k] = v
	}
	return out, nil
}

func (b *memoryBackend) SaveAll(ctx context.Context, all map[string]domain.UserSettings) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.saveErr != nil {
		return b.saveErr
	}
	b.saves++
	b.data = all
	return nil
}

func newTestStore(t *testing.T, backend *memoryBackend) *Store {
	t.Helper()
	store, err := NewStore(Config{Backend: backend, Defaults: domain.DefaultUserSettings(), Logger: &mockLogger{}})
	require.NoError(t, err)
	return store
}

func TestNewStore_Validation(t *testing.T) {
	_, err := NewStore(Config{Defaults: domain.DefaultUserSettings(), Logger: &mockLogger{}})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)

	_, err = NewStore(Config{Backend: &memoryBackend{}, Defaults: domain.DefaultUserSettings()})
	assert.Error(t, err)

	bad := domain.DefaultUserSettings()
	bad.Strategy.Weights.EMA = 0.9
	_, err = NewStore(Config{Backend: &memoryBackend{}, Defaults: bad, Logger: &mockLogger{}})
	assert.ErrorIs(t, err, ports.ErrInvalidInput)
}

func TestStore_GetOrCreate(t *testing.T) {
	store := newTestStore(t, &memoryBackend{})

	_, ok := store.Get("42")
	assert.False(t, ok)

	us, created := store.GetOrCreate("42")
	assert.True(t, created)
	assert.Equal(t, domain.DefaultUserSettings(), us)

	_, created = store.GetOrCreate("42")
	assert.False(t, created)
}

func TestStore_PutResetPersistLoad(t *testing.T) {
	ctx := context.Background()
	backend := &memoryBackend{}
	store := newTestStore(t, backend)

	us := domain.DefaultUserSettings()
	us.Strategy.RSIThreshold = 35
	us.Timeframe = "1h"
	require.NoError(t, store.Put("7", us))
	require.NoError(t, store.Persist(ctx))
	assert.Equal(t, 1, backend.saves)

	reloaded := newTestStore(t, backend)
	require.NoError(t, reloaded.Load(ctx))
	got, ok := reloaded.Get("7")
	require.True(t, ok)
	assert.Equal(t, us, got)

	assert.Equal(t, domain.DefaultUserSettings(), reloaded.Reset("7"))
	got, _ = reloaded.Get("7")
	assert.Equal(t, domain.DefaultUserSettings(), got)
}

func TestStore_LoadResetsInvalidEntries(t *testing.T) {
	ctx := context.Background()
	legacy := domain.DefaultUserSettings()
	legacy.Strategy.Weights = domain.Weights{EMA: 0.5, RSI: 0.5, MACD: 0.5}
	valid := domain.DefaultUserSettings()
	valid.Strategy.RSIThreshold = 40

	backend := &memoryBackend{data: map[string]domain.UserSettings{"legacy": legacy, "ok": valid}}
	store := newTestStore(t, backend)
	require.NoError(t, store.Load(ctx))

	got, ok := store.Get("legacy")
	require.True(t, ok)
	assert.Equal(t, domain.DefaultUserSettings(), got)

	got.Strategy.RSIThreshold = 35
	assert.NoError(t, store.Put("legacy", got), "single-field edit succeeds after load")

	got, _ = store.Get("ok")
	assert.Equal(t, valid, got)
}

func TestStore_PutRejectsInvalid(t *testing.T) {
	store := newTestStore(t, &memoryBackend{})
	store.GetOrCreate("1")

	bad := domain.DefaultUserSettings()
	bad.Timeframe = "2h"
	assert.ErrorIs(t, store.Put("1", bad), ports.ErrInvalidInput)

	got, _ := store.Get("1")
	assert.Equal(t, "15m", got.Timeframe, "rejected edit leaves settings unchanged")
}

func TestStore_BackendErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")

	store := newTestStore(t, &memoryBackend{loadErr: boom, saveErr: boom})
	assert.ErrorIs(t, store.Load(ctx), boom)
	assert.ErrorIs(t, store.Persist(ctx), boom)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := newTestStore(t, &memoryBackend{})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			us, _ := store.GetOrCreate("shared")
			us.Strategy.RSIThreshold = float64(i)
			_ = store.Put("shared", us)
			_ = store.Persist(context.Background())
		}(i)
	}
	wg.Wait()

	got, ok := store.Get("shared")
	require.True(t, ok)
	assert.True(t, got.Strategy.RSIThreshold >= 0 && got.Strategy.RSIThreshold < 20)
}
