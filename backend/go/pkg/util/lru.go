package util

import (
	"container/list"
	"sync"
	"time"
)

// EvictReason 说明一个元素为什么被移出缓存。
type EvictReason string

const (
	EvictCapacity EvictReason = "capacity" // 超出容量或权重限制
	EvictExpired  EvictReason = "expired"  // TTL 过期
)

// CacheConfig 用于配置LRU缓存的行为。
// 所有限制都为 0 时缓存不会淘汰任何元素。
type CacheConfig[K comparable, V any] struct {
	// Capacity 是缓存的最大元素数量。如果为0，则不限制数量。
	Capacity int
	// MaxWeight 是缓存中所有元素的最大权重总和。如果为0，则不限制权重。
	MaxWeight int
	// TTL 是元素的存活时间。如果为0，则元素永不过期。
	TTL time.Duration
	// OnEvict 在元素因容量或过期被移除后调用（不持有锁）。Delete 不会触发它。
	OnEvict func(key K, value V, reason EvictReason)
}

// entry 结构体用于存储链表节点中的实际数据。
type entry[K comparable, V any] struct {
	key        K
	value      V
	weight     int       // 元素的权重
	expiration time.Time // 元素的过期时间
}

// Eviction 记录一个被淘汰的元素。
type Eviction[K comparable, V any] struct {
	Key    K
	Value  V
	Reason EvictReason
}

// LRUCache 是一个支持泛型、可配置且线程安全的LRU缓存。
type LRUCache[K comparable, V any] struct {
	config        CacheConfig[K, V]
	ll            *list.List
	cache         map[K]*list.Element
	currentWeight int
	lock          sync.Mutex // Get 也会修改链表顺序，所以只用互斥锁
	now           func() time.Time
}

// NewWithConfig 使用指定的配置创建一个LRU缓存实例。
func NewWithConfig[K comparable, V any](config CacheConfig[K, V]) *LRUCache[K, V] {
	return &LRUCache[K, V]{
		config: config,
		ll:     list.New(),
		cache:  make(map[K]*list.Element),
		now:    time.Now,
	}
}

// Get 方法根据键获取一个值。过期的元素在这里被动淘汰。
func (c *LRUCache[K, V]) Get(key K) (V, bool) {
	c.lock.Lock()
	var gone []Eviction[K, V]
	defer func() { c.notify(gone) }()
	defer c.lock.Unlock()

	var zeroV V
	element, ok := c.cache[key]
	if !ok {
		return zeroV, false
	}

	e := element.Value.(*entry[K, V])
	if c.expired(e) {
		c.removeElement(element)
		gone = append(gone, Eviction[K, V]{Key: e.key, Value: e.value, Reason: EvictExpired})
		return zeroV, false
	}

	// 标记为最近使用
	c.ll.MoveToFront(element)
	return e.value, true
}

// Put 方法向缓存中添加或更新一个键值对，并指定其权重。
// 如果使用基于容量的淘汰，可以为 weight 传入 1。
func (c *LRUCache[K, V]) Put(key K, value V, weight int) {
	c.lock.Lock()
	var gone []Eviction[K, V]
	defer func() { c.notify(gone) }()
	defer c.lock.Unlock()

	if element, ok := c.cache[key]; ok {
		// --- 更新现有元素 ---
		e := element.Value.(*entry[K, V])
		c.currentWeight += weight - e.weight
		e.weight = weight
		e.value = value
		if c.config.TTL > 0 {
			e.expiration = c.now().Add(c.config.TTL)
		}
		c.ll.MoveToFront(element)
	} else {
		c.insert(key, value, weight)
	}
	gone = c.shrink(key)
}

// PutIfAbsent 只在 key 不存在（或已过期）时插入，返回是否插入成功。
// 检查和插入在同一把锁内完成。
func (c *LRUCache[K, V]) PutIfAbsent(key K, value V, weight int) bool {
	ok, gone := c.TryInsert(key, value, weight)
	c.notify(gone)
	return ok
}

// TryInsert 与 PutIfAbsent 相同，但不调用 OnEvict，而是把这次插入淘汰掉的元素返回给调用方。
func (c *LRUCache[K, V]) TryInsert(key K, value V, weight int) (bool, []Eviction[K, V]) {
	c.lock.Lock()
	defer c.lock.Unlock()

	var gone []Eviction[K, V]
	if element, ok := c.cache[key]; ok {
		e := element.Value.(*entry[K, V])
		if !c.expired(e) {
			return false, nil
		}
		c.removeElement(element)
		gone = append(gone, Eviction[K, V]{Key: e.key, Value: e.value, Reason: EvictExpired})
	}
	c.insert(key, value, weight)
	gone = append(gone, c.shrink(key)...)
	return true, gone
}

// Delete 移除 key，返回它之前是否存在。不存在时什么也不做。
func (c *LRUCache[K, V]) Delete(key K) (V, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	var zeroV V
	element, ok := c.cache[key]
	if !ok {
		return zeroV, false
	}
	e := element.Value.(*entry[K, V])
	c.removeElement(element)
	if c.expired(e) {
		return zeroV, false
	}
	return e.value, true
}

// Keys 返回未过期的键，最近使用的在前。
func (c *LRUCache[K, V]) Keys() []K {
	c.lock.Lock()
	defer c.lock.Unlock()

	keys := make([]K, 0, c.ll.Len())
	for el := c.ll.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry[K, V])
		if !c.expired(e) {
			keys = append(keys, e.key)
		}
	}
	return keys
}

// Len 返回当前缓存中的条目数量（包括尚未被动淘汰的过期元素）。
func (c *LRUCache[K, V]) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.ll.Len()
}

// Weight 返回当前缓存中所有元素的总权重。
func (c *LRUCache[K, V]) Weight() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.currentWeight
}

// insert 假设已持有锁且 key 不存在。
func (c *LRUCache[K, V]) insert(key K, value V, weight int) {
	newEntry := &entry[K, V]{
		key:    key,
		value:  value,
		weight: weight,
	}
	if c.config.TTL > 0 {
		newEntry.expiration = c.now().Add(c.config.TTL)
	}
	c.cache[key] = c.ll.PushFront(newEntry)
	c.currentWeight += weight
}

// shrink 淘汰最久未使用的元素直到满足限制。刚写入的 keep 只有在它独自超限时才会被淘汰。
// 此方法假设已持有锁。
func (c *LRUCache[K, V]) shrink(keep K) []Eviction[K, V] {
	var gone []Eviction[K, V]
	for c.isOverCapacity() {
		back := c.ll.Back()
		if back == nil {
			break
		}
		e := back.Value.(*entry[K, V])
		if e.key == keep && c.ll.Len() > 1 {
			c.ll.MoveToFront(back)
			continue
		}
		c.removeElement(back)
		gone = append(gone, Eviction[K, V]{Key: e.key, Value: e.value, Reason: EvictCapacity})
	}
	return gone
}

// isOverCapacity 检查缓存是否超出容量或权重限制。
// 此方法假设已持有锁。
func (c *LRUCache[K, V]) isOverCapacity() bool {
	if c.config.Capacity > 0 && c.ll.Len() > c.config.Capacity {
		return true
	}
	if c.config.MaxWeight > 0 && c.currentWeight > c.config.MaxWeight {
		return true
	}
	return false
}

func (c *LRUCache[K, V]) expired(e *entry[K, V]) bool {
	return c.config.TTL > 0 && c.now().After(e.expiration)
}

// removeElement 是一个内部辅助函数，用于从链表和map中移除元素。
// 此方法假设已持有锁。
func (c *LRUCache[K, V]) removeElement(e *list.Element) {
	c.ll.Remove(e)
	en := e.Value.(*entry[K, V])
	delete(c.cache, en.key)
	c.currentWeight -= en.weight
}

func (c *LRUCache[K, V]) notify(gone []Eviction[K, V]) {
	if c.config.OnEvict == nil {
		return
	}
	for _, g := range gone {
		c.config.OnEvict(g.Key, g.Value, g.Reason)
	}
}
