package util

import (
	"sync"
)

// LRU is a fixed-capacity least-recently-used cache. It is safe for concurrent
// use; parsed-path caches may be shared by several connectors.
type LRU[K comparable, V any] struct {
	cache      map[K]*listNode[K, V]
	head, tail *listNode[K, V]
	count      int
	cap        int
	mtx        *sync.Mutex
}

type listNode[K comparable, V any] struct {
	key        K
	value      V
	prev, next *listNode[K, V]
}

// NewLRU returns a new LRU cache with the given capacity. A capacity below one
// is treated as one.
func NewLRU[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	head, tail := &listNode[K, V]{}, &listNode[K, V]{}
	head.next = tail
	tail.prev = head
	return &LRU[K, V]{
		cache: make(map[K]*listNode[K, V], capacity),
		head:  head,
		tail:  tail,
		cap:   capacity,
		mtx:   &sync.Mutex{},
	}
}

// Put adds or replaces the value for key and marks it most recently used.
func (lru *LRU[K, V]) Put(key K, value V) {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	if node, ok := lru.cache[key]; ok {
		node.value = value
		lru.unlink(node)
		lru.pushFront(node)
		return
	}
	node := &listNode[K, V]{key: key, value: value}
	lru.cache[key] = node
	lru.pushFront(node)
	lru.count++
	for lru.count > lru.cap {
		victim := lru.tail.prev
		lru.unlink(victim)
		delete(lru.cache, victim.key)
		lru.count--
	}
}

// Get returns the value for key. The second return value is false on a miss.
func (lru *LRU[K, V]) Get(key K) (V, bool) {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	node, ok := lru.cache[key]
	if !ok {
		var zero V
		return zero, false
	}
	lru.unlink(node)
	lru.pushFront(node)
	return node.value, true
}

// Len returns the number of cached entries.
func (lru *LRU[K, V]) Len() int {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	return lru.count
}

// Keys returns the cached keys from most to least recently used.
func (lru *LRU[K, V]) Keys() []K {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	keys := make([]K, 0, lru.count)
	for node := lru.head.next; node != lru.tail; node = node.next {
		keys = append(keys, node.key)
	}
	return keys
}

// Reset empties the cache.
func (lru *LRU[K, V]) Reset() {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	lru.cache = make(map[K]*listNode[K, V], lru.cap)
	lru.head.next = lru.tail
	lru.tail.prev = lru.head
	lru.count = 0
}

func (lru *LRU[K, V]) pushFront(node *listNode[K, V]) {
	node.next = lru.head.next
	node.prev = lru.head
	lru.head.next.prev = node
	lru.head.next = node
}

func (lru *LRU[K, V]) unlink(node *listNode[K, V]) {
	node.prev.next = node.next
	node.next.prev = node.prev
}
