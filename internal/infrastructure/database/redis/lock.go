package redis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/whoiskiwi/PatentSearch/internal/infrastructure/monitoring/logging"
	apperrors "github.com/whoiskiwi/PatentSearch/pkg/errors"
)

var (
	ErrLockNotAcquired = apperrors.New(apperrors.CodeLockNotAcquired, "failed to acquire lock")
	ErrLockNotHeld     = apperrors.New(apperrors.CodeLockNotAcquired, "lock not held by this owner")
)

// LockOption configures a Locker.
type LockOption func(*lockConfig)

// WithLockTTL sets how long the lock lives without a watchdog extension.
func WithLockTTL(ttl time.Duration) LockOption {
	return func(c *lockConfig) { c.ttl = ttl }
}

// WithRetryDelay sets the pause between acquire attempts.
func WithRetryDelay(delay time.Duration) LockOption {
	return func(c *lockConfig) { c.retryDelay = delay }
}

// WithRetryCount sets how many extra acquire attempts are made.
func WithRetryCount(count int) LockOption {
	return func(c *lockConfig) { c.retryCount = count }
}

// WithWatchdogInterval sets how often a held lock is extended. Zero disables
// the watchdog.
func WithWatchdogInterval(interval time.Duration) LockOption {
	return func(c *lockConfig) { c.watchdogInterval = interval }
}

// WithTokenFunc replaces the random owner token generator.
func WithTokenFunc(fn func() string) LockOption {
	return func(c *lockConfig) { c.token = fn }
}

// WithLockLogger sets the lock logger.
func WithLockLogger(l logging.Logger) LockOption {
	return func(c *lockConfig) { c.logger = logging.OrNop(l) }
}

type lockConfig struct {
	ttl              time.Duration
	retryDelay       time.Duration
	retryCount       int
	watchdogInterval time.Duration
	token            func() string
	logger           logging.Logger
}

var unlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

var extendScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// Locker hands out mutexes keyed by name. Each holder gets a unique token so a
// release never deletes a lock taken over by another process after expiry.
type Locker struct {
	client *Client
	cfg    lockConfig
}

// NewLocker returns a Locker with a ten minute TTL, retried every two seconds
// up to 300 times, and a watchdog that extends the TTL at a third of its
// length while the lock is held.
func NewLocker(client *Client, opts ...LockOption) *Locker {
	cfg := lockConfig{
		ttl:        10 * time.Minute,
		retryDelay: 2 * time.Second,
		retryCount: 300,
		token:      func() string { return uuid.New().String() },
		logger:     logging.NewNopLogger(),
	}
	cfg.watchdogInterval = cfg.ttl / 3
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.retryCount < 1 {
		cfg.retryCount = 1
	}
	return &Locker{client: client, cfg: cfg}
}

// Acquire blocks until the named lock is taken, the retries run out or ctx is
// done. The returned release is safe to call more than once.
func (l *Locker) Acquire(ctx context.Context, name string) (func(context.Context) error, error) {
	if l.client.isClosed() {
		return nil, ErrClientClosed
	}
	key := l.client.Key("lock:" + name)
	token := l.cfg.token()
	rdb := l.client.GetUnderlyingClient()

	for i := 0; i < l.cfg.retryCount; i++ {
		ok, err := rdb.SetNX(ctx, key, token, l.cfg.ttl).Result()
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeCache, "failed to set lock").WithDetail(key)
		}
		if ok {
			l.cfg.logger.Info("Acquired lock", logging.String("key", key), logging.Int("attempt", i+1))
			return l.held(key, token), nil
		}
		if i == l.cfg.retryCount-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.cfg.retryDelay):
		}
	}
	return nil, ErrLockNotAcquired.WithDetail(key)
}

func (l *Locker) held(key, token string) func(context.Context) error {
	rdb := l.client.GetUnderlyingClient()
	stop := func() {}
	if l.cfg.watchdogInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		extend := func(ctx context.Context, ttl time.Duration) (bool, error) {
			n, err := extendScript.Run(ctx, rdb, []string{key}, token, ttl.Milliseconds()).Int64()
			return n == 1, err
		}
		go runWatchdog(ctx, extend, l.cfg.watchdogInterval, l.cfg.ttl, l.cfg.logger, done)
		stop = func() {
			cancel()
			<-done
		}
	}

	var once sync.Once
	var err error
	return func(ctx context.Context) error {
		once.Do(func() {
			stop()
			n, runErr := unlockScript.Run(ctx, rdb, []string{key}, token).Int64()
			switch {
			case runErr != nil:
				err = apperrors.Wrap(runErr, apperrors.CodeCache, "failed to release lock").WithDetail(key)
			case n == 0:
				err = ErrLockNotHeld
				l.cfg.logger.Warn("Lock expired before release", logging.String("key", key))
			default:
				l.cfg.logger.Info("Released lock", logging.String("key", key))
			}
		})
		return err
	}
}

func runWatchdog(ctx context.Context, extendFn func(context.Context, time.Duration) (bool, error), interval, ttl time.Duration, log logging.Logger, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := extendFn(ctx, ttl)
			if err != nil {
				if ctx.Err() == nil {
					log.Error("Watchdog failed to extend lock", logging.Err(err))
				}
				return
			}
			if !ok {
				log.Warn("Watchdog lost lock")
				return
			}
		}
	}
}
