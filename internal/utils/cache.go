package utils

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/patrickmn/go-cache"
)

// TTLCache 按 key 过期的内存缓存（go-cache 的泛型封装）
type TTLCache[T any] struct {
	store *cache.Cache
	ttl   time.Duration
}

// NewTTLCache ttl 为默认有效期，清理间隔取 ttl 的两倍
func NewTTLCache[T any](ttl time.Duration) *TTLCache[T] {
	return &TTLCache[T]{
		store: cache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

func (c *TTLCache[T]) Get(key string) (T, bool) {
	var zero T
	v, found := c.store.Get(key)
	if !found {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

func (c *TTLCache[T]) Set(key string, value T) {
	c.store.Set(key, value, c.ttl)
}

func (c *TTLCache[T]) Delete(key string) {
	c.store.Delete(key)
}

// Flush 清空所有缓存
func (c *TTLCache[T]) Flush() {
	c.store.Flush()
}

// CacheItem 包装实际的数据，增加过期时间
type CacheItem[T any] struct {
	Value     T
	ExpiredAt time.Time
}

// SearchCache 容量受限的搜索结果缓存（LRU + 过期时间）
type SearchCache[T any] struct {
	storage *lru.Cache[string, CacheItem[T]]
	ttl     time.Duration
}

// NewSearchCache size 是最大缓存条数，ttl 是数据有效期
func NewSearchCache[T any](size int, ttl time.Duration) (*SearchCache[T], error) {
	c, err := lru.New[string, CacheItem[T]](size)
	if err != nil {
		return nil, err
	}
	return &SearchCache[T]{
		storage: c,
		ttl:     ttl,
	}, nil
}

func (c *SearchCache[T]) Set(key string, value T) {
	c.storage.Add(key, CacheItem[T]{
		Value:     value,
		ExpiredAt: time.Now().Add(c.ttl),
	})
}

// Get 过期的条目视为不存在并顺手删除
func (c *SearchCache[T]) Get(key string) (T, bool) {
	var zero T
	item, ok := c.storage.Get(key)
	if !ok {
		return zero, false
	}
	if time.Now().After(item.ExpiredAt) {
		c.storage.Remove(key)
		return zero, false
	}
	return item.Value, true
}

func (c *SearchCache[T]) Delete(key string) {
	c.storage.Remove(key)
}

func (c *SearchCache[T]) Len() int {
	return c.storage.Len()
}
