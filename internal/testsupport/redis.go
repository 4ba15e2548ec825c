package testsupport

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/adapters/config"
)

// NewRedisClient connects to the integration Redis and flushes the test
// database on both sides of the test, so model reference keys never leak
// between runs. The configured DB must be a dedicated test database.
func NewRedisClient(t *testing.T, cfg config.RedisConfig) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	flush := func(ctx context.Context) error {
		return client.FlushDB(ctx).Err()
	}

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("connect test redis: %v", err)
	}
	if err := flush(ctx); err != nil {
		t.Fatalf("flush test redis: %v", err)
	}

	t.Cleanup(func() {
		_ = flush(context.Background())
		_ = client.Close()
	})
	return client
}
