package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker(2, time.Minute)
	boom := errors.New("boom")

	b.Record(boom)
	assert.False(t, b.Open())
	b.Record(boom)
	assert.True(t, b.Open())

	var calls int
	_, err := Call(context.Background(), b, func(context.Context) (int, error) {
		calls++
		return 1, nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Zero(t, calls)
}

func TestBreaker_SuccessResets(t *testing.T) {
	b := NewBreaker(2, time.Minute)
	b.Record(errors.New("boom"))
	b.Record(nil)
	b.Record(errors.New("boom"))
	assert.False(t, b.Open())
}

func TestBreaker_ProbeAfterCooldown(t *testing.T) {
	now := time.Unix(1000, 0)
	b := NewBreaker(1, 10*time.Second)
	b.now = func() time.Time { return now }

	b.Record(errors.New("boom"))
	require.True(t, b.Open())

	now = now.Add(11 * time.Second)
	assert.False(t, b.Open())

	got, err := Call(context.Background(), b, func(context.Context) (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.False(t, b.Open())
}

func TestBreaker_ProbeFailureReopens(t *testing.T) {
	now := time.Unix(1000, 0)
	b := NewBreaker(1, 10*time.Second)
	b.now = func() time.Time { return now }

	b.Record(errors.New("boom"))
	now = now.Add(11 * time.Second)
	_, err := Call(context.Background(), b, func(context.Context) (int, error) { return 0, errors.New("again") })
	require.Error(t, err)
	assert.True(t, b.Open())
}

func TestBreaker_ContextErrorsIgnored(t *testing.T) {
	b := NewBreaker(1, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Call(ctx, b, func(ctx context.Context) (int, error) { return 0, ctx.Err() })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, b.Open())
}

func TestNewBreaker_Defaults(t *testing.T) {
	b := NewBreaker(0, 0)
	assert.Equal(t, 5, b.Threshold)
	assert.Equal(t, 30*time.Second, b.Cooldown)
}
