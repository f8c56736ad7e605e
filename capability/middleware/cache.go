package middleware

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/mandubian/ccos-sub001/rtfs/eval"
	"github.com/mandubian/ccos-sub001/rtfs/value"
)

// Cache is priority 2: memoizes a call by (capability_id, canonical args)
// when the caller attaches a runtime.learning.cache hint with ttl_ms and
// (optionally) max_entries. Calls with no cache hint pass through
// unchanged.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // most-recently-used at front
}

type cacheEntry struct {
	key       string
	value     value.Value
	expiresAt time.Time
}

// NewCache constructs an empty Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*list.Element), order: list.New()}
}

func (*Cache) Priority() int   { return 2 }
func (*Cache) HintKey() string { return "runtime.learning.cache" }

func (c *Cache) Wrap(next Invoker) Invoker {
	return func(ctx context.Context, call eval.HostCall) (value.Value, error) {
		cfgV, ok := hint(call, "runtime.learning.cache")
		if !ok || cfgV.Kind() != value.KindMap {
			return next(ctx, call)
		}
		cfg := cfgV.Map()
		ttlMS := intField(cfg, "ttl_ms", 0)
		if ttlMS <= 0 {
			return next(ctx, call)
		}
		maxEntries := int(intField(cfg, "max_entries", 1000))

		key := cacheKey(call)
		if v, ok := c.get(key); ok {
			observerFrom(ctx).OnCacheHit(call)
			return v, nil
		}
		observerFrom(ctx).OnCacheMiss(call)
		result, err := next(ctx, call)
		if err != nil {
			return result, err
		}
		c.put(key, result, time.Duration(ttlMS)*time.Millisecond, maxEntries)
		return result, nil
	}
}

func cacheKey(call eval.HostCall) string {
	args := value.List(call.Args...)
	return call.CapabilityID + "\x00" + value.Hash(args)
}

func (c *Cache) get(key string) (value.Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return value.Value{}, false
	}
	entry := el.Value.(*cacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.order.Remove(el)
		delete(c.entries, key)
		return value.Value{}, false
	}
	c.order.MoveToFront(el)
	return entry.value, true
}

func (c *Cache) put(key string, v value.Value, ttl time.Duration, maxEntries int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.order.Remove(el)
	}
	el := c.order.PushFront(&cacheEntry{key: key, value: v, expiresAt: time.Now().Add(ttl)})
	c.entries[key] = el
	for maxEntries > 0 && c.order.Len() > maxEntries {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}
