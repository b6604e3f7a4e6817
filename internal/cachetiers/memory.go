package cachetiers

import (
	"container/list"
	"context"
	"sync"

	"github.com/librovision/librovision/cache"
)

// memoryItem is one key inside the LRU list.
type memoryItem struct {
	key   string
	entry cache.Entry
}

// MemoryTier is the bounded in-memory tier. Recency is tracked with a
// doubly-linked list: front is most recently accessed, back is the eviction
// candidate. All operations are O(1).
type MemoryTier struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List
}

// NewMemoryTier creates a memory tier bounded to capacity entries.
func NewMemoryTier(capacity int) *MemoryTier {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemoryTier{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns the entry for key and marks it most recently used.
func (t *MemoryTier) Get(ctx context.Context, key string) (cache.Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	elem, ok := t.items[key]
	if !ok {
		return cache.Entry{}, cache.ErrNotFound
	}
	t.order.MoveToFront(elem)
	return elem.Value.(*memoryItem).entry, nil
}

// Peek returns the entry without touching recency order. The optimistic
// mutation layer snapshots through this so a snapshot does not perturb
// eviction behavior.
func (t *MemoryTier) Peek(key string) (cache.Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	elem, ok := t.items[key]
	if !ok {
		return cache.Entry{}, false
	}
	return elem.Value.(*memoryItem).entry, true
}

// Set stores the entry, evicting the least-recently-accessed key if the tier
// is at capacity.
func (t *MemoryTier) Set(ctx context.Context, key string, e cache.Entry) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if elem, ok := t.items[key]; ok {
		elem.Value.(*memoryItem).entry = e
		t.order.MoveToFront(elem)
		return nil
	}

	t.items[key] = t.order.PushFront(&memoryItem{key: key, entry: e})

	if t.order.Len() > t.capacity {
		oldest := t.order.Back()
		if oldest != nil {
			t.order.Remove(oldest)
			delete(t.items, oldest.Value.(*memoryItem).key)
		}
	}
	return nil
}

// Delete removes the key. Removing an absent key is a no-op.
func (t *MemoryTier) Delete(ctx context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if elem, ok := t.items[key]; ok {
		t.order.Remove(elem)
		delete(t.items, key)
	}
	return nil
}

// Clear drops every entry.
func (t *MemoryTier) Clear(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.items = make(map[string]*list.Element)
	t.order.Init()
	return nil
}

// Len returns the number of resident entries.
func (t *MemoryTier) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.order.Len()
}

// Name implements cache.Tier.
func (t *MemoryTier) Name() string { return "memory" }
