package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(maxRetries int) *Config {
	return &Config{
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.InitialDelay)
	assert.Equal(t, 5*time.Second, cfg.MaxDelay)
	assert.Equal(t, 2.0, cfg.Multiplier)
	assert.Nil(t, cfg.Retryable)
	assert.NotNil(t, Transient().Retryable)
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastConfig(3), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("temporary failure")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestDo_MaxRetriesExhausted(t *testing.T) {
	calls := 0
	last := errors.New("still failing")
	_, err := Do(context.Background(), fastConfig(2), func(context.Context) (int, error) {
		calls++
		return 0, last
	})

	assert.ErrorIs(t, err, last)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnNonRetryable(t *testing.T) {
	cfg := fastConfig(5)
	cfg.Retryable = IsRetryable

	calls := 0
	permanent := errors.New("syntax error")
	_, err := Do(context.Background(), cfg, func(context.Context) (int, error) {
		calls++
		return 0, permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDo_OnRetry(t *testing.T) {
	cfg := fastConfig(2)
	var attempts []int
	cfg.OnRetry = func(attempt int, _ error, _ time.Duration) {
		attempts = append(attempts, attempt)
	}

	_ = Run(context.Background(), cfg, func(context.Context) error {
		return errors.New("503")
	})

	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDo_ContextCancellationDuringWait(t *testing.T) {
	cfg := &Config{MaxRetries: 5, InitialDelay: time.Hour, Multiplier: 2}
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, cfg, func(context.Context) error {
			calls++
			return errors.New("timeout")
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestDo_NilConfigUsesDefaults(t *testing.T) {
	got, err := Do(context.Background(), nil, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestNextDelay_RespectsMax(t *testing.T) {
	cfg := &Config{Multiplier: 10, MaxDelay: time.Second}
	assert.Equal(t, time.Second, cfg.nextDelay(500*time.Millisecond))
	assert.Equal(t, 500*time.Millisecond, cfg.nextDelay(50*time.Millisecond))
}

type declared struct{ retry bool }

func (d declared) Error() string     { return "declared" }
func (d declared) IsRetryable() bool { return d.retry }

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"neo4j transient", errors.New("Neo4jError: Neo.TransientError.General.MemoryPoolOutOfMemoryError"), true},
		{"neo4j unavailable", errors.New("ServiceUnavailable: no routing servers"), true},
		{"http 503", errors.New("status 503"), true},
		{"syntax", errors.New("Neo.ClientError.Statement.SyntaxError"), false},
		{"canceled", fmt.Errorf("wrap: %w", context.Canceled), false},
		{"declares retryable", declared{retry: true}, true},
		{"declares permanent", declared{retry: false}, false},
		{"wrapped declaration", fmt.Errorf("judge: %w", declared{retry: true}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
