// pkg/app/app.go
package app

import (
	"context"
	"fmt"

	"lfsclient/pkg/client"
	"lfsclient/pkg/index"
	"lfsclient/pkg/lfs"
	"lfsclient/pkg/logr"
	"lfsclient/pkg/storage"
	"lfsclient/pkg/storage/cache"
	"lfsclient/pkg/storage/disk"
	"lfsclient/pkg/storage/s3"

	"github.com/spf13/viper"
)

// App 是整个应用程序的依赖容器 (Dependency Container)
// 服务端相关的部分 (LFS) 和本地部分 (Store / Index) 分开构造：
// cat 只需要本地对象仓库，不需要服务端地址
type App struct {
	LFS    *lfs.Client
	Store  storage.Store
	Index  *index.Index
	Logger logr.Logger

	closers []func() error
}

// NewApp 只构造日志，其余部分按需通过 WithRemote / WithLocal / WithIndex 补齐
// 它遵循 Viper 的配置，但不知道具体的 CLI 命令
func NewApp(logger logr.Logger) *App {
	return &App{Logger: logger}
}

// WithRemote 初始化 batch 客户端和 transfer adapter
func (a *App) WithRemote() error {
	api, err := client.NewClient(client.Config{
		URL:    viper.GetString("server.url"),
		Token:  viper.GetString("server.token"),
		Logger: a.Logger.WithName("client"),
	})
	if err != nil {
		return fmt.Errorf("failed to init lfs client: %w", err)
	}

	a.LFS, err = lfs.New(api, lfs.Options{
		Transfers: viper.GetStringSlice("transfers"),
		Ref:       viper.GetString("ref"),
		Logger:    a.Logger,
	})
	return err
}

// WithLocal 初始化本地对象仓库
func (a *App) WithLocal(ctx context.Context) error {
	store, err := initStore(ctx, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to init storage: %w", err)
	}

	// 可选的 Redis 存在性缓存
	if url := viper.GetString("cache.redis_url"); url != "" {
		cs, err := cache.NewCachedStore(store, cache.Config{
			RedisURL: url,
			TTL:      viper.GetDuration("cache.ttl"),
			Logger:   a.Logger,
		})
		if err != nil {
			return err
		}
		a.closers = append(a.closers, cs.Close)
		store = cs
	}
	a.Store = store
	return nil
}

// WithIndex 加载指纹缓存
func (a *App) WithIndex() error {
	idx, err := index.NewIndex(viper.GetString("index.path"))
	if err != nil {
		return fmt.Errorf("failed to load index: %w", err)
	}
	a.Index = idx
	return nil
}

// Close 释放外部连接
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// initStore 按 storage.type 选择存储后端
func initStore(ctx context.Context, logger logr.Logger) (storage.Store, error) {
	switch t := viper.GetString("storage.type"); t {
	case "disk", "":
		path := viper.GetString("storage.path")
		if path == "" {
			return nil, fmt.Errorf("storage path not set")
		}
		return disk.NewAdapter(path)

	case "s3":
		cfg := s3.Config{
			Endpoint:        viper.GetString("storage.s3.endpoint"),
			Region:          viper.GetString("storage.s3.region"),
			Bucket:          viper.GetString("storage.s3.bucket"),
			AccessKeyID:     viper.GetString("storage.s3.access_key_id"),
			SecretAccessKey: viper.GetString("storage.s3.secret_access_key"),
			Logger:          logger,
		}
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("storage.s3.bucket is required for s3 storage")
		}
		return s3.NewAdapter(ctx, cfg)

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", t)
	}
}
