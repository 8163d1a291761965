package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const submitLockPrefix = "booking:submit:"

// releaseScript deletes the lock only while it still holds our token, so a
// lock that expired and was taken by another holder is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisSubmitGuard shares the in-flight flag across API instances with
// SET NX. The TTL bounds how long a crashed instance can hold a session.
type RedisSubmitGuard struct {
	client *redis.Client
	ttl    time.Duration

	mu     sync.Mutex
	tokens map[string]string
}

// NewRedisSubmitGuard creates a guard backed by client.
func NewRedisSubmitGuard(client *redis.Client, ttl time.Duration) *RedisSubmitGuard {
	if client == nil {
		panic("booking: redis client required")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisSubmitGuard{client: client, ttl: ttl, tokens: make(map[string]string)}
}

func (g *RedisSubmitGuard) Acquire(ctx context.Context, key string) (bool, error) {
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, submitLockPrefix+key, token, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("booking: acquire submit lock: %w", err)
	}
	if ok {
		g.mu.Lock()
		g.tokens[key] = token
		g.mu.Unlock()
	}
	return ok, nil
}

func (g *RedisSubmitGuard) Release(ctx context.Context, key string) error {
	g.mu.Lock()
	token, held := g.tokens[key]
	delete(g.tokens, key)
	g.mu.Unlock()
	if !held {
		return nil
	}
	if err := releaseScript.Run(ctx, g.client, []string{submitLockPrefix + key}, token).Err(); err != nil {
		return fmt.Errorf("booking: release submit lock: %w", err)
	}
	return nil
}
