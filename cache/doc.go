// Package cache defines the contracts for LibroVision's tiered client-side
// cache: the entry envelope, the tier and store interfaces, and deterministic
// query key serialization.
//
// # Overview
//
//   - Entry: the {data, timestamp, expiry, version} envelope every tier stores
//   - Tier: a single backing store (memory, durable, session)
//   - Store: the tiered facade with promotion and best-effort error handling
//   - KeySerializer: builds stable cache keys from query descriptors
//
// The store is an optimization, never a source of truth. That shapes two
// contracts worth calling out: Get expresses absence as ok=false and never
// returns an error, and Set reports success as a boolean because a failed
// cache write must not fail the operation that triggered it.
//
// # Key Serialization
//
// The default serializer normalizes descriptors so logically equivalent
// queries collapse to one key:
//
//	serializer := cache.NewDefaultKeySerializer()
//	key := serializer.SerializeKey("book_reviews", bookID, filters)
//
// Maps are serialized with sorted keys, slices preserve element order (query
// descriptors are ordered tuples), struct fields follow declaration order,
// and anything else falls back to JSON. Scope names are snake_cased so the
// key namespace stays uniform across call sites.
//
// # Versioning
//
// Entries are stamped with FormatVersion. A version mismatch at read time is
// treated as a miss and the entry is purged lazily, which lets the cache
// format change between releases without a coordinated flush of the durable
// tier.
//
// For the tier implementations see internal/cachetiers; for the orchestration
// that sits on top of the store see the querycache package.
package cache
