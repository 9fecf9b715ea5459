package skillmatch

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "occumatch:emb:"

// remoteCache shares embeddings between processes through redis. A nil
// *remoteCache is valid and caches nothing.
type remoteCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// newRemoteCache connects to redisURL. An empty URL, an invalid URL or an
// unreachable server all disable the tier.
func newRemoteCache(ctx context.Context, redisURL string, ttl time.Duration, logger *zap.Logger) *remoteCache {
	if redisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("invalid redis url, shared embedding cache disabled", zap.Error(err))
		return nil
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, shared embedding cache disabled", zap.String("addr", opts.Addr), zap.Error(err))
		_ = rdb.Close()
		return nil
	}
	logger.Info("shared embedding cache connected", zap.String("addr", opts.Addr), zap.Duration("ttl", ttl))
	return &remoteCache{rdb: rdb, ttl: ttl, logger: logger}
}

func (r *remoteCache) get(ctx context.Context, key string) []float32 {
	if r == nil {
		return nil
	}
	data, err := r.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Debug("redis get failed", zap.Error(err))
		}
		return nil
	}
	vec, err := decodeVector(data)
	if err != nil {
		r.logger.Debug("corrupt cached vector in redis", zap.String("key", key), zap.Error(err))
		return nil
	}
	return vec
}

func (r *remoteCache) set(ctx context.Context, key string, vec []float32) {
	if r == nil {
		return
	}
	if err := r.rdb.Set(ctx, redisKeyPrefix+key, encodeVector(vec), r.ttl).Err(); err != nil {
		r.logger.Debug("redis set failed", zap.Error(err))
	}
}

func (r *remoteCache) close() {
	if r == nil {
		return
	}
	_ = r.rdb.Close()
}
