package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *RevocationCache {
	t.Helper()

	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("set GO_TEST_INTEGRATION=1 to run redis integration tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	rc, err := NewRevocationCache(ctx, fmt.Sprintf("redis://%s:%s/0", host, port.Port()), "test:revoked:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })

	return rc
}

func TestNewRevocationCache_BadURL(t *testing.T) {
	_, err := NewRevocationCache(context.Background(), "://bad", "")
	require.Error(t, err)
}

func TestRevokeToken_AlreadyExpired_NoRoundTrip(t *testing.T) {
	// Клиент без сервера: если бы был вызов Redis, вернулась бы ошибка соединения.
	rc := &RevocationCache{prefix: defaultPrefix, now: time.Now}

	ok, err := rc.RevokeToken(context.Background(), "jti", uuid.New(), time.Now().Add(-time.Second))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestIntegration_RevokeFlow(t *testing.T) {
	rc := startRedis(t)
	ctx := context.Background()
	uid := uuid.New()

	revoked, err := rc.IsTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.False(t, revoked)

	ok, err := rc.RevokeToken(ctx, "jti-1", uid, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = rc.RevokeToken(ctx, "jti-1", uid, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.False(t, ok)

	revoked, err = rc.IsTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, revoked)

	ttl, err := rc.rdb.TTL(ctx, rc.key("jti-1")).Result()
	require.NoError(t, err)
	require.Greater(t, ttl, 59*time.Minute)
}

func TestIntegration_KeyExpiresWithToken(t *testing.T) {
	rc := startRedis(t)
	ctx := context.Background()

	ok, err := rc.RevokeToken(ctx, "short", uuid.New(), time.Now().Add(1500*time.Millisecond))
	require.NoError(t, err)
	require.True(t, ok)

	require.Eventually(t, func() bool {
		revoked, err := rc.IsTokenRevoked(ctx, "short")
		return err == nil && !revoked
	}, 5*time.Second, 100*time.Millisecond)
}
