package googleauth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyrobo/backend/internal/apperror"
)

func newTestStateStore(t *testing.T) (*StateStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewStateStore(rdb), mr
}

func TestStateIssueAndConsume(t *testing.T) {
	s, _ := newTestStateStore(t)
	ctx := context.Background()

	state, err := s.Issue(ctx, "g-1")
	require.NoError(t, err)
	require.NotEmpty(t, state)

	googleID, err := s.Consume(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, "g-1", googleID)
}

// States are single-use: a replayed callback must be rejected.
func TestStateConsumeTwice(t *testing.T) {
	s, _ := newTestStateStore(t)
	ctx := context.Background()

	state, err := s.Issue(ctx, "g-1")
	require.NoError(t, err)

	_, err = s.Consume(ctx, state)
	require.NoError(t, err)

	_, err = s.Consume(ctx, state)
	assert.ErrorIs(t, err, apperror.ErrAuth)
}

func TestStateExpires(t *testing.T) {
	s, mr := newTestStateStore(t)
	ctx := context.Background()

	state, err := s.Issue(ctx, "g-1")
	require.NoError(t, err)

	mr.FastForward(stateTTL + time.Minute)

	_, err = s.Consume(ctx, state)
	assert.ErrorIs(t, err, apperror.ErrAuth)
}

func TestStateUnknown(t *testing.T) {
	s, _ := newTestStateStore(t)
	_, err := s.Consume(context.Background(), "never-issued")
	assert.ErrorIs(t, err, apperror.ErrAuth)
}

func TestStateIssueUnique(t *testing.T) {
	s, _ := newTestStateStore(t)
	ctx := context.Background()

	a, err := s.Issue(ctx, "g-1")
	require.NoError(t, err)
	b, err := s.Issue(ctx, "g-1")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestStateWithoutRedis(t *testing.T) {
	s := NewStateStore(nil)

	_, err := s.Issue(context.Background(), "g-1")
	assert.ErrorIs(t, err, apperror.ErrConfiguration)

	_, err = s.Consume(context.Background(), "whatever")
	assert.ErrorIs(t, err, apperror.ErrConfiguration)
}

func TestTokenCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	c := NewTokenCache(rdb)
	ctx := context.Background()

	_, ok := c.Get(ctx, "g-1")
	assert.False(t, ok)

	c.Put(ctx, "g-1", "access-token", time.Now().Add(time.Hour))
	token, ok := c.Get(ctx, "g-1")
	require.True(t, ok)
	assert.Equal(t, "access-token", token)

	// tokens about to expire are not worth caching
	c.Put(ctx, "g-2", "stale", time.Now().Add(30*time.Second))
	_, ok = c.Get(ctx, "g-2")
	assert.False(t, ok)
}

func TestTokenCacheWithoutRedis(t *testing.T) {
	c := NewTokenCache(nil)
	c.Put(context.Background(), "g-1", "token", time.Now().Add(time.Hour))
	_, ok := c.Get(context.Background(), "g-1")
	assert.False(t, ok)
}
