package cachetiers

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/librovision/librovision/cache"
)

// RedisTier is the durable tier. Entries are msgpack-encoded envelopes under
// namespaced string keys, mirroring the persisted client state layout: a
// fixed key prefix, each value a serialized {data, timestamp, expiry,
// version} record.
type RedisTier struct {
	client *redis.Client
	prefix string
}

// NewRedisTier creates a durable tier writing under the given key prefix.
func NewRedisTier(client *redis.Client, prefix string) *RedisTier {
	return &RedisTier{client: client, prefix: prefix}
}

// Get returns the entry for key. Undecodable payloads are reported as
// errors so the tiered store can treat them as misses and purge them.
func (t *RedisTier) Get(ctx context.Context, key string) (cache.Entry, error) {
	raw, err := t.client.Get(ctx, t.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return cache.Entry{}, cache.ErrNotFound
		}
		return cache.Entry{}, fmt.Errorf("redis tier get: %w", err)
	}

	var e cache.Entry
	if err := msgpack.Unmarshal(raw, &e); err != nil {
		return cache.Entry{}, fmt.Errorf("redis tier decode: %w", err)
	}
	return e, nil
}

// Set stores the entry, letting Redis expire it alongside the envelope's own
// lifetime so abandoned keys do not accumulate.
func (t *RedisTier) Set(ctx context.Context, key string, e cache.Entry) error {
	raw, err := msgpack.Marshal(e)
	if err != nil {
		return fmt.Errorf("redis tier encode: %w", err)
	}

	if err := t.client.Set(ctx, t.prefix+key, raw, e.Expiry).Err(); err != nil {
		return fmt.Errorf("redis tier set: %w", err)
	}
	return nil
}

// Delete removes the key. Removing an absent key is a no-op.
func (t *RedisTier) Delete(ctx context.Context, key string) error {
	if err := t.client.Del(ctx, t.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis tier delete: %w", err)
	}
	return nil
}

// Clear drops every entry under the tier's namespace.
func (t *RedisTier) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := t.client.Scan(ctx, cursor, t.prefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("redis tier clear: %w", err)
		}
		if len(keys) > 0 {
			if err := t.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis tier clear: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Name implements cache.Tier.
func (t *RedisTier) Name() string { return "durable" }
