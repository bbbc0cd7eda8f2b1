package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/whoiskiwi/PatentSearch/pkg/errors"
)

func newMiniClient(t *testing.T) (*miniredis.Miniredis, *Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, NewClientFromRedis(rdb, "test:", nil)
}

func TestLocker_AcquireRelease(t *testing.T) {
	mr, client := newMiniClient(t)
	locker := NewLocker(client, WithLockTTL(time.Minute), WithWatchdogInterval(0),
		WithTokenFunc(func() string { return "owner-1" }))

	release, err := locker.Acquire(context.Background(), "index")
	require.NoError(t, err)

	val, err := mr.Get("test:lock:index")
	require.NoError(t, err)
	assert.Equal(t, "owner-1", val)
	assert.Equal(t, time.Minute, mr.TTL("test:lock:index"))

	require.NoError(t, release(context.Background()))
	assert.False(t, mr.Exists("test:lock:index"))
	assert.NoError(t, release(context.Background()), "second release is a no-op")
}

func TestLocker_Contention(t *testing.T) {
	_, client := newMiniClient(t)
	first := NewLocker(client, WithWatchdogInterval(0))
	second := NewLocker(client, WithWatchdogInterval(0), WithRetryCount(2), WithRetryDelay(10*time.Millisecond))

	release, err := first.Acquire(context.Background(), "index")
	require.NoError(t, err)

	_, err = second.Acquire(context.Background(), "index")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeLockNotAcquired))

	require.NoError(t, release(context.Background()))
	release2, err := second.Acquire(context.Background(), "index")
	require.NoError(t, err)
	assert.NoError(t, release2(context.Background()))
}

func TestLocker_ReleaseAfterTakeover(t *testing.T) {
	mr, client := newMiniClient(t)
	locker := NewLocker(client, WithLockTTL(time.Second), WithWatchdogInterval(0))

	release, err := locker.Acquire(context.Background(), "index")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("test:lock:index", "someone-else"))

	err = release(context.Background())
	assert.ErrorIs(t, err, ErrLockNotHeld)
	val, _ := mr.Get("test:lock:index")
	assert.Equal(t, "someone-else", val, "foreign lock is left alone")
}

func TestLocker_WatchdogExtends(t *testing.T) {
	mr, client := newMiniClient(t)
	locker := NewLocker(client, WithLockTTL(5*time.Second), WithWatchdogInterval(20*time.Millisecond))

	release, err := locker.Acquire(context.Background(), "index")
	require.NoError(t, err)

	mr.SetTTL("test:lock:index", time.Second)
	assert.Eventually(t, func() bool {
		return mr.TTL("test:lock:index") == 5*time.Second
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, release(context.Background()))
	assert.False(t, mr.Exists("test:lock:index"))
}

func TestLocker_ContextCancelledWhileWaiting(t *testing.T) {
	_, client := newMiniClient(t)
	holder := NewLocker(client, WithWatchdogInterval(0))
	_, err := holder.Acquire(context.Background(), "index")
	require.NoError(t, err)

	waiter := NewLocker(client, WithWatchdogInterval(0), WithRetryDelay(time.Hour))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = waiter.Acquire(ctx, "index")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocker_SetNXError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := NewClientFromRedis(db, "", nil)
	locker := NewLocker(client, WithTokenFunc(func() string { return "tok" }), WithLockTTL(time.Minute))

	mock.ExpectSetNX("patentsearch:lock:index", "tok", time.Minute).SetErr(errors.New("connection reset"))

	_, err := locker.Acquire(context.Background(), "index")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeCache))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_ClosedClient(t *testing.T) {
	_, client := newMiniClient(t)
	require.NoError(t, client.Close())

	_, err := NewLocker(client).Acquire(context.Background(), "index")
	assert.ErrorIs(t, err, ErrClientClosed)
}
