package keystore

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/storygraph/kgraph-backend/internal/kg/identity"
	"github.com/storygraph/kgraph-backend/internal/platform/envutil"
	"github.com/storygraph/kgraph-backend/internal/platform/logger"
)

// Redis stores each namespace's known set as a redis set, so multiple
// engine instances share ingestion state.
type Redis struct {
	log *logger.Logger
	rdb *goredis.Client
}

// NewRedisFromEnv connects using REDIS_ADDR. A missing address returns
// (nil, nil) so the caller can fall back to the in-memory store.
func NewRedisFromEnv(log *logger.Logger) (*Redis, error) {
	if log == nil {
		return nil, fmt.Errorf("keystore: logger required")
	}
	addr := envutil.String("REDIS_ADDR", "")
	if addr == "" {
		return nil, nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    envutil.String("REDIS_PASSWORD", ""),
		DB:          envutil.Int("REDIS_DB", 0),
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("keystore: redis ping: %w", err)
	}

	return NewRedis(rdb, log), nil
}

func NewRedis(rdb *goredis.Client, log *logger.Logger) *Redis {
	return &Redis{log: log.With("service", "RedisKeyStore"), rdb: rdb}
}

func (r *Redis) Close() error {
	if r == nil || r.rdb == nil {
		return nil
	}
	return r.rdb.Close()
}

func redisKey(namespace string) string { return "kg:keys:" + namespace }

func (r *Redis) Load(ctx context.Context, namespace string) (identity.KeySet, error) {
	members, err := r.rdb.SMembers(ctx, redisKey(namespace)).Result()
	if err != nil {
		return nil, fmt.Errorf("keystore: load %q: %w", namespace, err)
	}
	return identity.NewKeySet(members...), nil
}

// Save replaces the stored set atomically: the new members land under a
// fresh key that is renamed over the old one.
func (r *Redis) Save(ctx context.Context, namespace string, keys identity.KeySet) error {
	key := redisKey(namespace)
	members := keys.Strings()
	if len(members) == 0 {
		return r.Drop(ctx, namespace)
	}

	tmp := key + ":next"
	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, tmp)
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	pipe.SAdd(ctx, tmp, args...)
	pipe.Rename(ctx, tmp, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("keystore: save %q: %w", namespace, err)
	}
	return nil
}

func (r *Redis) Drop(ctx context.Context, namespace string) error {
	if err := r.rdb.Del(ctx, redisKey(namespace)).Err(); err != nil {
		return fmt.Errorf("keystore: drop %q: %w", namespace, err)
	}
	return nil
}
