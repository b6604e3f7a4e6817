package cache

import (
	"context"
	"errors"
	"time"
)

// FormatVersion stamps every entry written by this build of the cache.
// Bumping it makes previously persisted entries read as absent, so cache
// format upgrades never require a manual flush.
const FormatVersion = "v1"

// ErrNotFound is returned by tiers when a key has no entry.
var ErrNotFound = errors.New("cache: entry not found")

// Entry is the envelope stored in every tier. Data is an opaque serialized
// value; freshness decisions belong to the callers that understand it.
type Entry struct {
	Data      []byte        `json:"data" msgpack:"data"`
	Timestamp time.Time     `json:"timestamp" msgpack:"timestamp"`
	Expiry    time.Duration `json:"expiry" msgpack:"expiry"`
	Version   string        `json:"version" msgpack:"version"`
}

// Expired reports whether the entry's lifetime has elapsed at the given
// instant. A zero Expiry means the entry never expires on its own.
func (e Entry) Expired(now time.Time) bool {
	if e.Expiry <= 0 {
		return false
	}
	return now.After(e.Timestamp.Add(e.Expiry))
}

// Tier is a single cache backing store. Implementations must report a missing
// key as ErrNotFound, never as a failure.
type Tier interface {
	Get(ctx context.Context, key string) (Entry, error)
	Set(ctx context.Context, key string, e Entry) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Name() string
}

// Store is the tiered cache facade the data layer reads and writes through.
// Get never returns an error: storage failures degrade to cache misses by
// contract, so the absence of a value is always expressed as ok=false.
type Store interface {
	// Get returns a live (unexpired, version-matching) entry, promoting hits
	// from slower tiers into the memory tier.
	Get(ctx context.Context, key string) (Entry, bool)

	// Set stores data in the memory tier and in the durable tier when
	// persistent is true, otherwise in the session tier. It reports whether
	// the value is observable through Get afterwards.
	Set(ctx context.Context, key string, data []byte, maxAge time.Duration, persistent bool) bool

	// Delete removes the key from every tier. Removing an absent key is a
	// no-op.
	Delete(ctx context.Context, key string)

	// Clear drops every entry from every tier.
	Clear(ctx context.Context)

	// Peek returns the raw entry without promotion, recency bookkeeping, or
	// expiry enforcement, along with whether it resides in the durable tier.
	// Mutation snapshots depend on getting the entry back byte for byte.
	Peek(ctx context.Context, key string) (e Entry, persistent bool, ok bool)

	// Put writes a raw entry verbatim, preserving its original timestamp and
	// expiry. It is the restore half of Peek.
	Put(ctx context.Context, key string, e Entry, persistent bool)
}

// KeySerializer builds a cache key from a scope name plus arbitrary
// descriptor values. Two logically equivalent queries must serialize to the
// same key, so implementations are responsible for normalizing their input.
type KeySerializer interface {
	SerializeKey(scope string, parts ...any) string
}
