package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/moovie-pulse/internal/model"
	"github.com/user/moovie-pulse/internal/utils"
)

// ResponseCache 提供方响应缓存
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]model.MovieSummary, bool)
	Set(ctx context.Context, key string, movies []model.MovieSummary)
}

// MemoryResponseCache 进程内 LRU 缓存
type MemoryResponseCache struct {
	cache *utils.SearchCache[[]model.MovieSummary]
}

func NewMemoryResponseCache(size int, ttl time.Duration) (*MemoryResponseCache, error) {
	c, err := utils.NewSearchCache[[]model.MovieSummary](size, ttl)
	if err != nil {
		return nil, err
	}
	return &MemoryResponseCache{cache: c}, nil
}

func (m *MemoryResponseCache) Get(_ context.Context, key string) ([]model.MovieSummary, bool) {
	return m.cache.Get(key)
}

func (m *MemoryResponseCache) Set(_ context.Context, key string, movies []model.MovieSummary) {
	m.cache.Set(key, movies)
}

const redisCachePrefix = "moovie:tmdb:"

// RedisResponseCache 多实例共享的 Redis 缓存，失败时按未命中处理
type RedisResponseCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisResponseCache(client *redis.Client, ttl time.Duration) *RedisResponseCache {
	return &RedisResponseCache{client: client, ttl: ttl}
}

func (r *RedisResponseCache) Get(ctx context.Context, key string) ([]model.MovieSummary, bool) {
	data, err := r.client.Get(ctx, redisCachePrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[Cache] 读取 Redis 失败: %v", err)
		}
		return nil, false
	}
	var movies []model.MovieSummary
	if err := json.Unmarshal(data, &movies); err != nil {
		return nil, false
	}
	return movies, true
}

func (r *RedisResponseCache) Set(ctx context.Context, key string, movies []model.MovieSummary) {
	data, err := json.Marshal(movies)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, redisCachePrefix+key, data, r.ttl).Err(); err != nil {
		log.Printf("[Cache] 写入 Redis 失败: %v", err)
	}
}
