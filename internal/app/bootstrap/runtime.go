package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/easygopharm/internal/config"
	"github.com/wolfman30/easygopharm/internal/session"
	"github.com/wolfman30/easygopharm/internal/storage"
	"github.com/wolfman30/easygopharm/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildStore selects the persistence backend once for the process lifetime.
// Without DATABASE_URL, or when the pool cannot reach the database, the
// degraded store is returned. The returned close func is never nil.
func BuildStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (storage.Store, func()) {
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	noop := func() {}
	if !cfg.HasDatabase() {
		logger.Warn("DATABASE_URL not set; running with degraded storage")
		return storage.NewDegradedStore(logger), noop
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool; running with degraded storage", "error", err)
		return storage.NewDegradedStore(logger), noop
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		logger.Error("postgres not reachable; running with degraded storage", "error", err)
		return storage.NewDegradedStore(logger), noop
	}
	logger.Info("postgres storage connected")
	return storage.NewPostgresStore(pool), pool.Close
}

// BuildSessions creates the session manager. Without Redis, session records
// live in process memory.
func BuildSessions(cfg *appconfig.Config, rdb *redis.Client, logger *logging.Logger) *session.Manager {
	if logger == nil {
		logger = logging.Default()
	}
	secret := strings.TrimSpace(cfg.SessionSecret)
	if secret == "" {
		logger.Warn("SESSION_SECRET not set; sessions will not survive a restart")
	}
	if rdb == nil {
		logger.Warn("redis not configured; sessions are held in memory")
	}
	return session.NewManager(secret, cfg.SessionTTL, rdb)
}
