// cache — список отозванных refresh-токенов в Redis.
// Ключ живёт ровно столько, сколько живёт сам токен, поэтому чистка не нужна.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "auth:revoked:"

// RevocationCache хранит jti отозванных токенов: ключ prefix+jti, значение — user_id.
type RevocationCache struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

// NewRevocationCache создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "auth:revoked:".
func NewRevocationCache(ctx context.Context, redisURL, prefix string) (*RevocationCache, error) {
	if prefix == "" {
		prefix = defaultPrefix
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("cache: parse url: %w", err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cache: ping: %w", err)
	}

	return &RevocationCache{rdb: rdb, prefix: prefix, now: time.Now}, nil
}

func (c *RevocationCache) key(jti string) string { return c.prefix + jti }

// RevokeToken атомарно помечает jti отозванным (SET NX с TTL до истечения токена).
// true — отозван этим вызовом, false — уже был отозван.
// Для уже истёкшего токена запись не создаётся: он и так недействителен.
func (c *RevocationCache) RevokeToken(ctx context.Context, jti string, userID uuid.UUID, expiresAt time.Time) (bool, error) {
	const op = "cache.RevokeToken"

	ttl := expiresAt.Sub(c.now())
	if ttl <= 0 {
		return true, nil
	}

	ok, err := c.rdb.SetNX(ctx, c.key(jti), userID.String(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return ok, nil
}

// IsTokenRevoked сообщает, есть ли jti в списке отозванных.
func (c *RevocationCache) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	const op = "cache.IsTokenRevoked"

	n, err := c.rdb.Exists(ctx, c.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return n > 0, nil
}

// Ping проверяет доступность Redis (для healthz).
func (c *RevocationCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close закрывает клиент Redis.
func (c *RevocationCache) Close() error { return c.rdb.Close() }
