package conversation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// MemoryLocker is a keyed mutex for single-instance deployments
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

// NewMemoryLocker creates an in-process locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*keyedLock)}
}

func (l *MemoryLocker) Lock(ctx context.Context, sessionID string) (func(), error) {
	l.mu.Lock()
	k, ok := l.locks[sessionID]
	if !ok {
		k = &keyedLock{ch: make(chan struct{}, 1)}
		l.locks[sessionID] = k
	}
	k.refs++
	l.mu.Unlock()

	select {
	case k.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-k.ch
				l.release(sessionID, k)
			})
		}, nil
	case <-ctx.Done():
		l.release(sessionID, k)
		return nil, fmt.Errorf("failed to lock session: %w", ctx.Err())
	}
}

func (l *MemoryLocker) release(sessionID string, k *keyedLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k.refs--
	if k.refs == 0 {
		delete(l.locks, sessionID)
	}
}

// releaseScript deletes the lock only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// renewScript extends the lease only if this holder still owns it.
var renewScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 0
`)

const (
	lockKeyPrefix  = "planner:lock:session:"
	minLockBackoff = 10 * time.Millisecond
	maxLockBackoff = 250 * time.Millisecond
	releaseTimeout = 2 * time.Second
	// DefaultLockLease bounds how long a crashed holder blocks its session.
	DefaultLockLease = time.Minute
)

// RedisLocker is a lease-based lock shared by every instance using the same Redis.
// A held lock renews its lease every third of the lease until it is released, so a
// turn may run longer than the lease without losing the session.
type RedisLocker struct {
	client *redis.Client
	lease  time.Duration
}

// NewRedisLocker creates a distributed locker. Non-positive leases use DefaultLockLease.
func NewRedisLocker(client *redis.Client, lease time.Duration) *RedisLocker {
	if lease <= 0 {
		lease = DefaultLockLease
	}
	return &RedisLocker{client: client, lease: lease}
}

func (l *RedisLocker) Lock(ctx context.Context, sessionID string) (func(), error) {
	key := lockKeyPrefix + sessionID
	token := uuid.NewString()
	backoff := minLockBackoff

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.lease).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to lock session: %w", err)
		}
		if ok {
			return l.hold(ctx, key, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to lock session: %w", ctx.Err())
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > maxLockBackoff {
			backoff = maxLockBackoff
		}
	}
}

// hold keeps the lease alive until the returned unlock runs. The acquisition context only
// bounds waiting, so renewal runs detached from it.
func (l *RedisLocker) hold(ctx context.Context, key, token string) func() {
	renewCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.renew(renewCtx, key, token)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			stop()
			<-done
			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
			defer cancel()
			_ = releaseScript.Run(rctx, l.client, []string{key}, token).Err()
		})
	}
}

func (l *RedisLocker) renew(ctx context.Context, key, token string) {
	ticker := time.NewTicker(max(l.lease/3, time.Millisecond))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := renewScript.Run(ctx, l.client, []string{key}, token, l.lease.Milliseconds()).Int()
			if err == nil && n == 0 {
				// Lease lost: expired or taken over. Nothing left to renew.
				return
			}
		}
	}
}
