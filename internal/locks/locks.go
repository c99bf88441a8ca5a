// Package locks provides distributed mutual exclusion through the Redlock
// algorithm (go-redsync/redsync/v4), coordinated over Redis.
//
// The server uses these locks for operations that must not run concurrently
// across instances: rotating a tenant's signing secret and re-encrypting a
// tenant's vault after a master key rotation. Held locks are renewed in the
// background at a third of their expiry so a slow operation does not lose
// its lock mid-flight.
package locks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v8"

	"eaglechat-server/internal/common/errors"
	"eaglechat-server/internal/redis"
)

// Lock is a held distributed lock
type Lock interface {
	// Key returns the lock's identifier.
	Key() string

	// Release releases the lock and stops background renewal. Safe to call
	// more than once.
	Release(ctx context.Context) error

	// IsHeld reports whether this instance still holds the lock. It checks
	// local state only and does not query Redis.
	IsHeld() bool
}

// Manager acquires distributed locks
type Manager interface {
	AcquireLock(ctx context.Context, key string, expiration time.Duration) (Lock, error)
	AcquireRotationLock(ctx context.Context, tenantID string) (Lock, error)
	AcquireReencryptLock(ctx context.Context, tenantID string) (Lock, error)
	Close() error
}

// RedlockManager implements Manager on redsync
type RedlockManager struct {
	redsync    *redsync.Redsync
	localLocks map[string]*redlock
	mutex      sync.RWMutex
}

type redlock struct {
	mutex      *redsync.Mutex
	key        string
	expiration time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
	manager    *RedlockManager
}

// NewManager creates a Redlock-based lock manager on top of a connected
// Redis client.
func NewManager(redisClient *redis.Client) (*RedlockManager, error) {
	if redisClient == nil {
		return nil, errors.ConfigError("redis client is required")
	}

	pool := goredis.NewPool(redisClient.GetGoRedisClient())

	return &RedlockManager{
		redsync:    redsync.New(pool),
		localLocks: make(map[string]*redlock),
	}, nil
}

// AcquireLock acquires the named lock, blocking until it is acquired or ctx
// expires. The lock is renewed in the background until released.
func (m *RedlockManager) AcquireLock(ctx context.Context, key string, expiration time.Duration) (Lock, error) {
	mutex := m.redsync.NewMutex("lock:"+key, redsync.WithExpiry(expiration))

	if err := mutex.LockContext(ctx); err != nil {
		return nil, errors.InternalError("failed to acquire distributed lock", err)
	}

	lockCtx, cancel := context.WithCancel(context.Background())
	lock := &redlock{
		mutex:      mutex,
		key:        key,
		expiration: expiration,
		ctx:        lockCtx,
		cancel:     cancel,
		manager:    m,
	}

	m.mutex.Lock()
	m.localLocks[key] = lock
	m.mutex.Unlock()

	go m.renewLock(lock)

	return lock, nil
}

// AcquireRotationLock serializes signing secret rotation for one tenant
// across all server instances.
func (m *RedlockManager) AcquireRotationLock(ctx context.Context, tenantID string) (Lock, error) {
	return m.AcquireLock(ctx, fmt.Sprintf("rotate:%s", tenantID), 30*time.Second)
}

// AcquireReencryptLock serializes vault re-encryption for one tenant. The
// expiry is generous; re-encrypting every secret can take a while.
func (m *RedlockManager) AcquireReencryptLock(ctx context.Context, tenantID string) (Lock, error) {
	return m.AcquireLock(ctx, fmt.Sprintf("reencrypt:%s", tenantID), 5*time.Minute)
}

// renewLock extends the lock at a third of its expiry. If an extension fails
// the lock is treated as lost and released locally.
func (m *RedlockManager) renewLock(lock *redlock) {
	renewInterval := lock.expiration / 3
	if renewInterval < time.Second {
		renewInterval = time.Second
	}

	ticker := time.NewTicker(renewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-lock.ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			ok, err := lock.mutex.ExtendContext(ctx)
			cancel()

			if err != nil || !ok {
				m.releaseLock(lock)
				return
			}
		}
	}
}

func (m *RedlockManager) releaseLock(lock *redlock) {
	m.mutex.Lock()
	delete(m.localLocks, lock.key)
	m.mutex.Unlock()

	lock.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	lock.mutex.UnlockContext(ctx)
}

// Close releases every lock held by this manager. Locks that cannot be
// released expire naturally in Redis.
func (m *RedlockManager) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, lock := range m.localLocks {
		lock.cancel()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		lock.mutex.UnlockContext(ctx)
		cancel()
	}

	m.localLocks = make(map[string]*redlock)
	return nil
}

func (l *redlock) Key() string {
	return l.key
}

func (l *redlock) Release(ctx context.Context) error {
	if l.IsHeld() {
		l.manager.releaseLock(l)
	}
	return nil
}

func (l *redlock) IsHeld() bool {
	select {
	case <-l.ctx.Done():
		return false
	default:
		return true
	}
}

var _ Manager = (*RedlockManager)(nil)
