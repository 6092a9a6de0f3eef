package cache

import (
	"context"
	"fmt"
	"io"
	"time"

	"lfsclient/pkg/logr"
	"lfsclient/pkg/storage"
	"lfsclient/pkg/types"

	"github.com/redis/go-redis/v9"
)

// CachedStore 是一个装饰器，它为底层的 storage.Store 添加 Redis 存在性缓存
type CachedStore struct {
	backend storage.Store // 被装饰的底层存储 (如 S3)
	client  *redis.Client
	ttl     time.Duration
	logger  logr.Logger
}

type Config struct {
	RedisURL string        // redis://<user>:<password>@<host>:<port>/<db>
	TTL      time.Duration // 过期时间
	Logger   logr.Logger
}

func NewCachedStore(backend storage.Store, cfg Config) (*CachedStore, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if cfg.Logger.GetSink() == nil {
		cfg.Logger = logr.Discard()
	}

	client := redis.NewClient(opts)

	// Fail-fast 连接检查
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &CachedStore{
		backend: backend,
		client:  client,
		ttl:     cfg.TTL,
		logger:  cfg.Logger.WithName("cache"),
	}, nil
}

// Close 关闭 Redis 连接
func (s *CachedStore) Close() error {
	return s.client.Close()
}

func (s *CachedStore) cacheKey(oid types.OID) string {
	return "lfs:obj:" + string(oid)
}

// Has 优先查 Redis
func (s *CachedStore) Has(ctx context.Context, oid types.OID) (bool, error) {
	key := s.cacheKey(oid)

	// 1. 查 Redis；Redis 故障时降级为直接查底层存储
	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		s.logger.Info("⚠️  redis error, falling back to backend", "err", err.Error())
	} else if val > 0 {
		return true, nil
	}

	// 2. 缓存未命中，查底层存储
	found, err := s.backend.Has(ctx, oid)
	if err != nil {
		return false, err
	}

	// 3. 异步回填，不阻塞主流程
	if found {
		go func() {
			fillCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			s.client.Set(fillCtx, key, "1", s.ttl)
		}()
	}

	return found, nil
}

// Put 先用 Has 预检，底层写入成功后再写缓存
func (s *CachedStore) Put(ctx context.Context, oid types.OID, r io.Reader) error {
	exists, err := s.Has(ctx, oid)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if err := s.backend.Put(ctx, oid, r); err != nil {
		return err
	}

	// Set 失败不影响主流程
	if err := s.client.Set(ctx, s.cacheKey(oid), "1", s.ttl).Err(); err != nil {
		s.logger.V(1).Info("failed to fill cache", "oid", oid, "err", err.Error())
	}
	return nil
}

// Get 透传，只缓存存在性，不缓存内容
func (s *CachedStore) Get(ctx context.Context, oid types.OID) (io.ReadCloser, error) {
	return s.backend.Get(ctx, oid)
}

// ExpandOID 透传
func (s *CachedStore) ExpandOID(ctx context.Context, prefix string) (types.OID, error) {
	return s.backend.ExpandOID(ctx, prefix)
}
