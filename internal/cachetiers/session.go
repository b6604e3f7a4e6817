package cachetiers

import (
	"context"
	"sync"

	"github.com/librovision/librovision/cache"
)

// SessionTier holds entries that should not outlive the current session.
// Non-persistent writes land here so they survive memory-tier eviction but
// disappear when Clear runs at logout.
type SessionTier struct {
	mu      sync.RWMutex
	entries map[string]cache.Entry
}

// NewSessionTier creates an empty session tier.
func NewSessionTier() *SessionTier {
	return &SessionTier{entries: make(map[string]cache.Entry)}
}

// Get returns the entry for key.
func (t *SessionTier) Get(ctx context.Context, key string) (cache.Entry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.entries[key]
	if !ok {
		return cache.Entry{}, cache.ErrNotFound
	}
	return e, nil
}

// Set stores the entry.
func (t *SessionTier) Set(ctx context.Context, key string, e cache.Entry) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries[key] = e
	return nil
}

// Delete removes the key. Removing an absent key is a no-op.
func (t *SessionTier) Delete(ctx context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.entries, key)
	return nil
}

// Clear drops every entry.
func (t *SessionTier) Clear(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = make(map[string]cache.Entry)
	return nil
}

// Name implements cache.Tier.
func (t *SessionTier) Name() string { return "session" }
