package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLockStore struct {
	values   map[string]string
	setNXErr error
	getErr   error
	delErr   error
	deleted  []string
}

func newStubLockStore() *stubLockStore {
	return &stubLockStore{values: map[string]string{}}
}

func (s *stubLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if s.setNXErr != nil {
		return false, s.setNXErr
	}
	if _, held := s.values[key]; held {
		return false, nil
	}
	s.values[key] = value.(string)
	return true, nil
}

func (s *stubLockStore) Get(_ context.Context, key string) (string, error) {
	if s.getErr != nil {
		return "", s.getErr
	}
	value, ok := s.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (s *stubLockStore) Del(_ context.Context, keys ...string) error {
	if s.delErr != nil {
		return s.delErr
	}
	for _, key := range keys {
		delete(s.values, key)
		s.deleted = append(s.deleted, key)
	}
	return nil
}

func TestRedisLock_AcquireAndRelease(t *testing.T) {
	store := newStubLockStore()
	lock, err := NewRedisLock(store, "cron:lock", time.Hour)
	require.NoError(t, err)

	ok, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, store.values["cron:lock"])

	require.NoError(t, lock.Release(context.Background()))
	assert.Empty(t, store.values)
	assert.Equal(t, []string{"cron:lock"}, store.deleted)
}

func TestRedisLock_Contention(t *testing.T) {
	store := newStubLockStore()
	first, err := NewRedisLock(store, "cron:lock", time.Hour)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "cron:lock", time.Hour)
	require.NoError(t, err)

	ok, err := first.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = second.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisLock_ReleaseSkipsForeignOwner(t *testing.T) {
	store := newStubLockStore()
	lock, err := NewRedisLock(store, "cron:lock", time.Hour)
	require.NoError(t, err)

	ok, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	// The TTL elapsed and another replica took over.
	store.values["cron:lock"] = "someone-else"

	require.NoError(t, lock.Release(context.Background()))
	assert.Equal(t, "someone-else", store.values["cron:lock"])
	assert.Empty(t, store.deleted)
}

func TestRedisLock_ReleaseToleratesExpiredKey(t *testing.T) {
	store := newStubLockStore()
	lock, err := NewRedisLock(store, "cron:lock", time.Hour)
	require.NoError(t, err)

	ok, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	delete(store.values, "cron:lock")

	require.NoError(t, lock.Release(context.Background()))
}

func TestRedisLock_ReleaseWithoutAcquireIsNoop(t *testing.T) {
	store := newStubLockStore()
	store.getErr = errors.New("must not be called")
	lock, err := NewRedisLock(store, "cron:lock", time.Hour)
	require.NoError(t, err)

	require.NoError(t, lock.Release(context.Background()))
}

func TestNewRedisLock_Validation(t *testing.T) {
	_, err := NewRedisLock(nil, "cron:lock", time.Hour)
	assert.Error(t, err)

	_, err = NewRedisLock(newStubLockStore(), "", time.Hour)
	assert.Error(t, err)

	lock, err := NewRedisLock(newStubLockStore(), "cron:lock", 0)
	require.NoError(t, err)
	assert.Equal(t, defaultLockTTL, lock.ttl)
}
