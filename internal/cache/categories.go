package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/anotoki/internal/model"
	"github.com/d60-Lab/anotoki/internal/repository"
	"github.com/d60-Lab/anotoki/pkg/logger"
)

const (
	keyCategoryList   = "category:list"
	keyCategoryPrefix = "category:slug:"
)

// Categories 分类的读穿透缓存。分类是只读数据，整表与按 slug 的单条分别缓存。
// client 为 nil 时直接读库。
type Categories struct {
	repo   repository.CategoryRepository
	client *redis.Client
	ttl    time.Duration

	dbLoads atomic.Int64
}

func NewCategories(repo repository.CategoryRepository, client *redis.Client, ttl time.Duration) *Categories {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Categories{repo: repo, client: client, ttl: ttl}
}

// List 按名称排序的全部分类
func (c *Categories) List(ctx context.Context) ([]*model.Category, error) {
	var out []*model.Category
	if c.get(ctx, keyCategoryList, &out) {
		return out, nil
	}

	c.dbLoads.Add(1)
	rows, err := c.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, keyCategoryList, rows)
	return rows, nil
}

// BySlug 未找到时返回 repository.ErrNotFound，未命中的结果不缓存
func (c *Categories) BySlug(ctx context.Context, slug string) (*model.Category, error) {
	key := keyCategoryPrefix + slug
	var out model.Category
	if c.get(ctx, key, &out) {
		return &out, nil
	}

	c.dbLoads.Add(1)
	row, err := c.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, row)
	return row, nil
}

// Invalidate 清除整表缓存与给定 slug 的单条缓存
func (c *Categories) Invalidate(ctx context.Context, slugs ...string) {
	if c.client == nil {
		return
	}
	keys := make([]string, 0, len(slugs)+1)
	keys = append(keys, keyCategoryList)
	for _, s := range slugs {
		keys = append(keys, keyCategoryPrefix+s)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		logger.Warn("category cache invalidate failed", zap.Error(err))
	}
}

// DBLoads 回源次数
func (c *Categories) DBLoads() int64 { return c.dbLoads.Load() }

func (c *Categories) get(ctx context.Context, key string, dst any) bool {
	if c.client == nil {
		return false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("category cache get failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (c *Categories) set(ctx context.Context, key string, v any) {
	if c.client == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		logger.Warn("category cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// NewRedisClient 按地址创建客户端并 PING；addr 为空返回 nil
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}
