package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"rally-backend/internal/logging"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter admits one call per key per interval within this process.
type KeyedLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	ttl      time.Duration
	now      func() time.Time
}

func NewKeyedLimiter(interval time.Duration) *KeyedLimiter {
	if interval <= 0 {
		interval = time.Second
	}
	return &KeyedLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(interval),
		ttl:      interval * 60,
		now:      time.Now,
	}
}

func (l *KeyedLimiter) Allow(_ context.Context, key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, 1)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	l.gcLocked(now)

	return v.limiter.AllowN(now, 1)
}

func (l *KeyedLimiter) gcLocked(now time.Time) {
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.visitors, key)
		}
	}
}

// RedisLimiter shares the one-call-per-interval rule across instances with
// SET NX PX. If Redis is unreachable the call is admitted.
type RedisLimiter struct {
	client   *redis.Client
	interval time.Duration
	prefix   string
}

func NewRedisLimiter(client *redis.Client, interval time.Duration) *RedisLimiter {
	if interval <= 0 {
		interval = time.Second
	}
	return &RedisLimiter{client: client, interval: interval, prefix: "ratelimit:"}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) bool {
	ok, err := l.client.SetNX(ctx, l.prefix+key, "1", l.interval).Result()
	if err != nil {
		logging.FromContext(ctx).Warn("rate limiter unavailable, allowing request", "key", key, "error", err)
		return true
	}
	return ok
}
