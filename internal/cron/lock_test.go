package cron

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedisStore struct {
	values map[string]string
}

func newFakeRedisStore() *fakeRedisStore {
	return &fakeRedisStore{values: make(map[string]string)}
}

func (f *fakeRedisStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, exists := f.values[key]; exists {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeRedisStore) Get(ctx context.Context, key string) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (f *fakeRedisStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func TestRedisLockAcquireRelease(t *testing.T) {
	store := newFakeRedisStore()
	lock, err := NewRedisLock(store, "wks:cron:leader", time.Minute)
	require.NoError(t, err)

	ok, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	second, err := NewRedisLock(store, "wks:cron:leader", time.Minute)
	require.NoError(t, err)
	ok, err = second.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "lock is exclusive")

	require.NoError(t, lock.Release(context.Background()))
	ok, err = second.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok, "lock is free after release")
}

func TestRedisLockReleaseOnlyOwn(t *testing.T) {
	store := newFakeRedisStore()
	first, err := NewRedisLock(store, "wks:cron:leader", time.Minute)
	require.NoError(t, err)

	ok, err := first.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	// Simulate TTL expiry followed by a peer acquiring the lock.
	store.values["wks:cron:leader"] = "someone-else"
	require.NoError(t, first.Release(context.Background()))
	assert.Equal(t, "someone-else", store.values["wks:cron:leader"], "peer's lock is untouched")
}

func TestRedisLockReleaseWithoutAcquireIsNoop(t *testing.T) {
	lock, err := NewRedisLock(newFakeRedisStore(), "wks:cron:leader", time.Minute)
	require.NoError(t, err)
	assert.NoError(t, lock.Release(context.Background()))
}

func TestNewRedisLockValidation(t *testing.T) {
	_, err := NewRedisLock(nil, "key", time.Minute)
	assert.Error(t, err)

	_, err = NewRedisLock(newFakeRedisStore(), "", time.Minute)
	assert.Error(t, err)
}
