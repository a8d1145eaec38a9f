package cache

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/trezcool/khollendar/core"
	"github.com/trezcool/khollendar/core/kholle"
	"github.com/trezcool/khollendar/core/ranking"
)

const tokenOpTimeout = time.Second

// releaseScript deletes the token only if it is still owned by the caller.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisTokens hands out tokens shared by every instance of the application.
// A token expires after ttl even if it is never released.
type RedisTokens struct {
	client *redis.Client
	ttl    time.Duration
	logger core.Logger
}

var _ kholle.TokenProvider = (*RedisTokens)(nil) // interface compliance check

func NewRedisTokens(client *redis.Client, ttl time.Duration, logger core.Logger) *RedisTokens {
	return &RedisTokens{client: client, ttl: ttl, logger: logger}
}

func (p *RedisTokens) Token(key string) ranking.Token {
	return &redisToken{provider: p, key: tokenPrefix + key}
}

type redisToken struct {
	provider *RedisTokens

	mu    sync.Mutex
	key   string
	owner string
}

var _ ranking.Token = (*redisToken)(nil) // interface compliance check

func (t *redisToken) TryAcquire() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), tokenOpTimeout)
	defer cancel()

	owner := uuid.New().String()
	ok, err := t.provider.client.SetNX(ctx, t.key, owner, t.provider.ttl).Result()
	if err != nil {
		t.provider.logger.Error("acquiring ranking token", err, map[string]interface{}{"key": t.key})
		return false
	}
	if ok {
		t.owner = owner
	}
	return ok
}

func (t *redisToken) Release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.owner == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), tokenOpTimeout)
	defer cancel()

	if err := releaseScript.Run(ctx, t.provider.client, []string{t.key}, t.owner).Err(); err != nil && err != redis.Nil {
		t.provider.logger.Error("releasing ranking token", err, map[string]interface{}{"key": t.key})
	}
	t.owner = ""
}

// MemoryTokens hands out in-process locks, one per key.
// A key is only tracked while its lock is held.
type MemoryTokens struct {
	mu    sync.Mutex
	locks map[string]*ranking.Lock
}

var _ kholle.TokenProvider = (*MemoryTokens)(nil) // interface compliance check

func NewMemoryTokens() *MemoryTokens {
	return &MemoryTokens{locks: make(map[string]*ranking.Lock)}
}

func (p *MemoryTokens) Token(key string) ranking.Token {
	return &memoryToken{provider: p, key: key}
}

// Len returns the number of held locks.
func (p *MemoryTokens) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.locks)
}

type memoryToken struct {
	provider *MemoryTokens
	key      string
	lock     *ranking.Lock // set while held through this token
}

func (t *memoryToken) TryAcquire() bool {
	p := t.provider
	p.mu.Lock()
	defer p.mu.Unlock()

	lock, ok := p.locks[t.key]
	if !ok {
		lock = ranking.NewLock()
		p.locks[t.key] = lock
	}
	if !lock.TryAcquire() {
		return false
	}
	t.lock = lock
	return true
}

// Release is a no-op unless the lock was acquired through this token.
func (t *memoryToken) Release() {
	p := t.provider
	p.mu.Lock()
	defer p.mu.Unlock()

	if t.lock == nil {
		return
	}
	t.lock.Release()
	if p.locks[t.key] == t.lock && !t.lock.Held() {
		delete(p.locks, t.key)
	}
	t.lock = nil
}
