// Copyright (c) 2018 The VeChainThor developers

package chain

import (
	lru "github.com/hashicorp/golang-lru"
)

type cache struct {
	*lru.ARCCache
	name string
}

func newCache(name string, maxSize int) *cache {
	c, _ := lru.NewARC(maxSize)
	return &cache{c, name}
}

// GetOrLoad returns the value associated with the key if it exists in the cache.
// Otherwise, it calls the load function to get the value and adds it to the cache.
func (c *cache) GetOrLoad(key any, load func() (any, error)) (any, error) {
	if value, ok := c.Get(key); ok {
		metricCacheHitMiss().AddWithLabel(1, map[string]string{"type": c.name, "event": "hit"})
		return value, nil
	}
	metricCacheHitMiss().AddWithLabel(1, map[string]string{"type": c.name, "event": "miss"})
	value, err := load()
	if err != nil {
		return nil, err
	}
	c.Add(key, value)
	return value, nil
}
