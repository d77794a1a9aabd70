package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounter struct {
	counts  map[string]int64
	expires map[string]time.Duration
	err     error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: make(map[string]int64), expires: make(map[string]time.Duration)}
}

func (f *fakeCounter) Incr(ctx context.Context, key string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.counts[key]++
	cmd.SetVal(f.counts[key])
	return cmd
}

func (f *fakeCounter) Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	f.expires[key] = ttl
	cmd.SetVal(true)
	return cmd
}

func TestAllowWithinLimit(t *testing.T) {
	counter := newFakeCounter()
	limiter := New(counter, "form", 3, time.Minute)
	limiter.now = func() time.Time { return time.Unix(1000, 0) }

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(context.Background(), "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := limiter.Allow(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAllowKeysIndependent(t *testing.T) {
	counter := newFakeCounter()
	limiter := New(counter, "form", 1, time.Minute)
	limiter.now = func() time.Time { return time.Unix(1000, 0) }

	ok, err := limiter.Allow(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = limiter.Allow(context.Background(), "5.6.7.8")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAllowWindowRolls(t *testing.T) {
	counter := newFakeCounter()
	limiter := New(counter, "form", 1, time.Minute)

	now := time.Unix(1000, 0)
	limiter.now = func() time.Time { return now }

	ok, _ := limiter.Allow(context.Background(), "1.2.3.4")
	assert.True(t, ok)
	ok, _ = limiter.Allow(context.Background(), "1.2.3.4")
	assert.False(t, ok)

	now = now.Add(time.Minute)
	ok, _ = limiter.Allow(context.Background(), "1.2.3.4")
	assert.True(t, ok)
}

func TestAllowSetsExpiryOnce(t *testing.T) {
	counter := newFakeCounter()
	limiter := New(counter, "form", 5, time.Minute)
	limiter.now = func() time.Time { return time.Unix(1000, 0) }

	_, _ = limiter.Allow(context.Background(), "1.2.3.4")
	_, _ = limiter.Allow(context.Background(), "1.2.3.4")

	assert.Len(t, counter.expires, 1)
	for _, ttl := range counter.expires {
		assert.Equal(t, time.Minute, ttl)
	}
}

func TestAllowFailsOpen(t *testing.T) {
	counter := newFakeCounter()
	counter.err = errors.New("redis down")
	limiter := New(counter, "form", 1, time.Minute)

	ok, err := limiter.Allow(context.Background(), "1.2.3.4")
	assert.True(t, ok)
	assert.Error(t, err)
}
