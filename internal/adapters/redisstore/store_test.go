package redisstore

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"
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

// fakeKV is an in-memory stand-in for the Redis client.
type fakeKV struct {
	values map[string]string
	getErr error
	setErr error
}

func (f *fakeKV) Get(ctx context.Context, key string) *goredis.StringCmd {
	if f.getErr != nil {
		return goredis.NewStringResult("", f.getErr)
	}
	v, ok := f.values[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(v, nil)
}

func (f *fakeKV) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd {
	if f.setErr != nil {
		return goredis.NewStatusResult("", f.setErr)
	}
	f.values[key] = string(value.([]byte))
	return goredis.NewStatusResult("OK", nil)
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := &fakeKV{values: map[string]string{}}
	store := NewWithClient(kv, "", &mockLogger{})

	all, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	custom := domain.DefaultUserSettings()
	custom.Timeframe = "1d"
	require.NoError(t, store.SaveAll(ctx, map[string]domain.UserSettings{"55": custom}))
	assert.Contains(t, kv.values, DefaultKey)

	all, err = store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]domain.UserSettings{"55": custom}, all)
}

func TestStore_Errors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("READONLY")
	store := NewWithClient(&fakeKV{values: map[string]string{}, getErr: boom, setErr: boom}, "custom", &mockLogger{})

	_, err := store.LoadAll(ctx)
	assert.ErrorIs(t, err, ports.ErrQueryFailed)
	assert.ErrorIs(t, err, boom)

	err = store.SaveAll(ctx, map[string]domain.UserSettings{})
	assert.ErrorIs(t, err, ports.ErrUpdateFailed)
}

func TestNew_RequiresLogger(t *testing.T) {
	_, _, err := New(context.Background(), Config{Addr: "localhost:0"})
	assert.Error(t, err)
}
