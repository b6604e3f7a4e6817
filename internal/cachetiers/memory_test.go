package cachetiers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/librovision/librovision/cache"
)

func entryWith(data string) cache.Entry {
	return cache.Entry{
		Data:      []byte(data),
		Timestamp: time.Now(),
		Expiry:    time.Minute,
		Version:   cache.FormatVersion,
	}
}

func TestMemoryTier_SetGet(t *testing.T) {
	ctx := context.Background()
	tier := NewMemoryTier(10)

	if err := tier.Set(ctx, "a", entryWith("payload")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	e, err := tier.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(e.Data) != "payload" {
		t.Errorf("Get returned %q, want %q", e.Data, "payload")
	}

	if _, err := tier.Get(ctx, "missing"); !errors.Is(err, cache.ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestMemoryTier_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	tier := NewMemoryTier(3)

	for _, key := range []string{"a", "b", "c"} {
		if err := tier.Set(ctx, key, entryWith(key)); err != nil {
			t.Fatalf("Set(%q) failed: %v", key, err)
		}
	}

	// Touch "a" so "b" becomes the eviction candidate.
	if _, err := tier.Get(ctx, "a"); err != nil {
		t.Fatalf("Get(a) failed: %v", err)
	}

	if err := tier.Set(ctx, "d", entryWith("d")); err != nil {
		t.Fatalf("Set(d) failed: %v", err)
	}

	if _, err := tier.Get(ctx, "b"); !errors.Is(err, cache.ErrNotFound) {
		t.Errorf("expected b to be evicted, got err=%v", err)
	}
	for _, key := range []string{"a", "c", "d"} {
		if _, err := tier.Get(ctx, key); err != nil {
			t.Errorf("expected %q resident, got err=%v", key, err)
		}
	}
	if tier.Len() != 3 {
		t.Errorf("Len = %d, want 3", tier.Len())
	}
}

func TestMemoryTier_UpdateDoesNotEvict(t *testing.T) {
	ctx := context.Background()
	tier := NewMemoryTier(2)

	tier.Set(ctx, "a", entryWith("1"))
	tier.Set(ctx, "b", entryWith("2"))
	tier.Set(ctx, "a", entryWith("3"))

	if tier.Len() != 2 {
		t.Fatalf("Len = %d, want 2", tier.Len())
	}
	e, err := tier.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get(a) failed: %v", err)
	}
	if string(e.Data) != "3" {
		t.Errorf("updated entry = %q, want %q", e.Data, "3")
	}
}

func TestMemoryTier_PeekSkipsRecency(t *testing.T) {
	ctx := context.Background()
	tier := NewMemoryTier(2)

	tier.Set(ctx, "a", entryWith("1"))
	tier.Set(ctx, "b", entryWith("2"))

	// Peek must not promote "a"; inserting "c" should still evict it.
	if _, ok := tier.Peek("a"); !ok {
		t.Fatal("Peek(a) missed a resident entry")
	}
	tier.Set(ctx, "c", entryWith("3"))

	if _, err := tier.Get(ctx, "a"); !errors.Is(err, cache.ErrNotFound) {
		t.Errorf("Peek updated recency: a survived eviction (err=%v)", err)
	}
}

func TestMemoryTier_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	tier := NewMemoryTier(10)

	tier.Set(ctx, "a", entryWith("1"))
	tier.Set(ctx, "b", entryWith("2"))

	if err := tier.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := tier.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete of absent key failed: %v", err)
	}
	if _, err := tier.Get(ctx, "a"); !errors.Is(err, cache.ErrNotFound) {
		t.Errorf("deleted key still resident")
	}

	if err := tier.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if tier.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", tier.Len())
	}
}
