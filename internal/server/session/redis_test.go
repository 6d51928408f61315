package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Тесты требуют запущенный Redis, адрес передается через REDIS_TEST_ADDR
func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()

	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR is not set")
	}

	client, err := NewRedisClient(context.Background(), addr, os.Getenv("REDIS_TEST_PASSWORD"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client)
	store.prefix = "test-session:" + t.Name() + ":"
	return store
}

func TestRedisStore_SaveGetDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestRedisStore(t)

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	sess := &Session{ID: "s1", AuthToken: "tok", ExpiresAt: time.Now().Add(time.Minute)}
	require.NoError(t, store.Save(ctx, sess))

	ttl, err := store.client.TTL(ctx, store.key("s1")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "tok", got.AuthToken)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_SaveExpired(t *testing.T) {
	ctx := context.Background()
	store := newTestRedisStore(t)

	require.NoError(t, store.Save(ctx, &Session{ID: "gone", ExpiresAt: time.Now().Add(-time.Second)}))

	_, err := store.Get(ctx, "gone")
	assert.ErrorIs(t, err, ErrNotFound)
}
