package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/config"

	"github.com/allegro/bigcache/v3"
)

// BigCache 基于 allegro/bigcache 的 Cache 实现，值以 JSON 存储.
// bigcache 只支持全局 TTL (LifeWindow)，Set 的 expiration 参数被忽略.
type BigCache struct {
	cache *bigcache.BigCache
}

// NewBigCache 按配置创建 BigCache.
func NewBigCache(cfg config.CacheConfig) (*BigCache, error) {
	life := cfg.LifeWindow
	if life <= 0 {
		life = 30 * time.Minute
	}
	bc := bigcache.DefaultConfig(life)
	if cfg.CleanWindow > 0 {
		bc.CleanWindow = cfg.CleanWindow
	}
	if cfg.Shards > 0 {
		bc.Shards = cfg.Shards
	}
	if cfg.MaxEntrySize > 0 {
		bc.MaxEntrySize = cfg.MaxEntrySize
	}
	bc.HardMaxCacheSize = cfg.HardMaxCacheSize
	bc.Verbose = false

	c, err := bigcache.New(context.Background(), bc)
	if err != nil {
		return nil, fmt.Errorf("failed to init bigcache: %w", err)
	}
	return &BigCache{cache: c}, nil
}

// Get 读取并解码到 value (必须为指针).
func (c *BigCache) Get(_ context.Context, key string, value any) error {
	data, err := c.cache.Get(key)
	if err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			return ErrCacheMiss
		}
		return err
	}
	return json.Unmarshal(data, value)
}

// Set 编码并写入.
func (c *BigCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.cache.Set(key, data)
}

// Delete 删除若干键，忽略不存在的键.
func (c *BigCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		if err := c.cache.Delete(key); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
			return err
		}
	}
	return nil
}

// Exists 判断键是否存在.
func (c *BigCache) Exists(_ context.Context, key string) (bool, error) {
	_, err := c.cache.Get(key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return false, nil
	}
	return false, err
}

// Len 当前条目数.
func (c *BigCache) Len() int {
	return c.cache.Len()
}

// Close 释放后台清理协程.
func (c *BigCache) Close() error {
	return c.cache.Close()
}
