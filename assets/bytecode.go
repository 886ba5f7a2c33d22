// Package assets implements the bytecode cache and ABI loader (C7): a
// fixed-capacity content-addressed bytecode cache keyed by source path, and
// a load-once ABI loader for the on-disk ISwapAdapter/ERC20 interface
// definitions. Neither cache handles invalidation — assets are
// content-stable for the process lifetime, per spec.md §4.7.
package assets

import (
	"os"
	"sync"

	"github.com/lamina-labs/evmsim/simerrors"
)

// bytecodeCacheCapacity matches spec.md §4.7's fixed capacity of 1000.
const bytecodeCacheCapacity = 1000

// lruCache is a fixed-size LRU keyed by comparable K, values of type V.
// Grounded directly on this corpus's core/rawdb/chaindb.go lruCache — same
// doubly-linked-list-plus-map shape, generalized here instead of pulling in
// a separate LRU dependency, since the corpus itself demonstrates
// hand-rolling this exact structure rather than importing one.
type lruCache[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	items    map[K]*lruNode[K, V]
	head     *lruNode[K, V]
	tail     *lruNode[K, V]
}

type lruNode[K comparable, V any] struct {
	key        K
	value      V
	prev, next *lruNode[K, V]
}

func newLRU[K comparable, V any](capacity int) *lruCache[K, V] {
	return &lruCache[K, V]{
		capacity: capacity,
		items:    make(map[K]*lruNode[K, V], capacity),
	}
}

func (c *lruCache[K, V]) get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	node, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(node)
	return node.value, true
}

func (c *lruCache[K, V]) put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if node, ok := c.items[key]; ok {
		node.value = value
		c.moveToFront(node)
		return
	}
	if len(c.items) >= c.capacity {
		c.evict()
	}
	node := &lruNode[K, V]{key: key, value: value}
	c.items[key] = node
	c.pushFront(node)
}

func (c *lruCache[K, V]) pushFront(node *lruNode[K, V]) {
	node.prev = nil
	node.next = c.head
	if c.head != nil {
		c.head.prev = node
	}
	c.head = node
	if c.tail == nil {
		c.tail = node
	}
}

func (c *lruCache[K, V]) removeNode(node *lruNode[K, V]) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		c.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		c.tail = node.prev
	}
	node.prev = nil
	node.next = nil
}

func (c *lruCache[K, V]) moveToFront(node *lruNode[K, V]) {
	if c.head == node {
		return
	}
	c.removeNode(node)
	c.pushFront(node)
}

func (c *lruCache[K, V]) evict() {
	if c.tail == nil {
		return
	}
	victim := c.tail
	c.removeNode(victim)
	delete(c.items, victim.key)
}

// BytecodeCache is the content-addressed cache of spec.md §4.7: keyed by
// source path, capacity 1000, load-once (a second Load for the same path
// never reopens the file).
type BytecodeCache struct {
	cache *lruCache[string, []byte]
	loads sync.Map // path -> *sync.Once
}

// NewBytecodeCache builds an empty bytecode cache.
func NewBytecodeCache() *BytecodeCache {
	return &BytecodeCache{cache: newLRU[string, []byte](bytecodeCacheCapacity)}
}

// Load returns the bytecode at path. Concurrent callers racing on the same
// path share a single read; the file is read again only when that read
// failed or the entry has since been evicted from the cache.
func (c *BytecodeCache) Load(path string) ([]byte, error) {
	if code, ok := c.cache.get(path); ok {
		return code, nil
	}
	onceVal, _ := c.loads.LoadOrStore(path, &sync.Once{})
	once := onceVal.(*sync.Once)

	var loadErr error
	once.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = &simerrors.FileError{Kind: simerrors.FileIO, Path: path, Err: err}
			return
		}
		c.cache.put(path, data)
	})
	if loadErr != nil {
		return nil, loadErr
	}
	code, ok := c.cache.get(path)
	if !ok {
		// A concurrent Load for the same path failed before this caller's
		// Once.Do ran; retry the read directly rather than caching the
		// failure (a transient read error should not poison future loads).
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &simerrors.FileError{Kind: simerrors.FileIO, Path: path, Err: err}
		}
		c.cache.put(path, data)
		return data, nil
	}
	return code, nil
}
