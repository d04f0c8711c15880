package utils

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheItem[V any] struct {
	data      V
	expiresAt time.Time
}

// Cache is a size-bounded LRU whose entries also expire.
type Cache[V any] struct {
	lru *lru.Cache[string, cacheItem[V]]
	now func() time.Time
}

// NewCache panics only when size is not positive.
func NewCache[V any](size int) *Cache[V] {
	l, err := lru.New[string, cacheItem[V]](size)
	if err != nil {
		panic(err)
	}
	return &Cache[V]{lru: l, now: time.Now}
}

// Set 设置缓存，TTL 为过期时间
func (c *Cache[V]) Set(key string, data V, ttl time.Duration) {
	c.lru.Add(key, cacheItem[V]{data: data, expiresAt: c.now().Add(ttl)})
}

// Get 获取缓存，不存在或已过期返回 false
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	val, ok := c.lru.Get(key)
	if !ok {
		return zero, false
	}
	if c.now().After(val.expiresAt) {
		c.lru.Remove(key)
		return zero, false
	}
	return val.data, true
}

func (c *Cache[V]) Delete(key string) {
	c.lru.Remove(key)
}

// Purge drops every entry.
func (c *Cache[V]) Purge() {
	c.lru.Purge()
}
