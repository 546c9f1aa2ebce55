package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/config"
)

func TestMemoryGetSetExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(10)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	now = now.Add(2 * time.Minute)
	_, err = m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, m.Set(ctx, "forever", []byte("x"), 0))
	now = now.Add(24 * time.Hour)
	_, err = m.Get(ctx, "forever")
	assert.NoError(t, err)
}

func TestMemorySetNX(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(10)
	now := time.Now()
	m.now = func() time.Time { return now }

	ok, err := m.SetNX(ctx, "update:1", []byte("1"), time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.SetNX(ctx, "update:1", []byte("1"), time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	now = now.Add(2 * time.Hour)
	ok, err = m.SetNX(ctx, "update:1", []byte("1"), time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "expired keys can be claimed again")
}

func TestMemoryEvictsWhenFull(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2)
	require.NoError(t, m.Set(ctx, "a", nil, 0))
	require.NoError(t, m.Set(ctx, "b", nil, 0))
	require.NoError(t, m.Set(ctx, "c", nil, 0))
	assert.Equal(t, 2, m.Len())

	_, err := m.Get(ctx, "c")
	assert.NoError(t, err)
}

func TestMemoryDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)
	require.NoError(t, m.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, m.Delete(ctx, "a"))
	_, err := m.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRemember(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(10)
	calls := 0
	load := func(context.Context) (map[string]float64, error) {
		calls++
		return map[string]float64{"price": 1.5}, nil
	}

	v, err := Remember(ctx, m, "overview:abc", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 1.5, v["price"])

	v, err = Remember(ctx, m, "overview:abc", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 1.5, v["price"])
	assert.Equal(t, 1, calls)

	_, err = Remember(ctx, m, "other", time.Minute, func(context.Context) (int, error) {
		return 0, errors.New("upstream down")
	})
	assert.EqualError(t, err, "upstream down")
	_, err = m.Get(ctx, "other")
	assert.ErrorIs(t, err, ErrMiss, "failed loads are not cached")
}

func TestNewWithoutAddrIsMemory(t *testing.T) {
	c, err := New(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, c)
}

func TestRedisUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	r := NewRedisWithClient(client)
	defer r.Close()

	_, err := r.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
}
