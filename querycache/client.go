package querycache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/librovision/librovision/cache"
)

// FreshnessPolicy governs one query type. Data younger than Fresh is served
// from cache with no network call; data older than Fresh but still resident
// is served stale while a background refetch runs; MaxAge is the entry
// lifetime in the tiers (the garbage-collect horizon).
type FreshnessPolicy struct {
	Fresh      time.Duration
	MaxAge     time.Duration
	Persistent bool
}

// Query identifies a cacheable read: a policy/key scope plus the resource
// descriptor issued on a miss.
type Query struct {
	Type     string
	Resource Resource
}

// Options configures a Client.
type Options struct {
	// Policies maps query types to freshness policies. Types without an
	// entry use Default.
	Policies map[string]FreshnessPolicy
	Default  FreshnessPolicy
	Retry    RetryPolicy
	Logger   *zap.Logger
}

// refetchHandle tracks one in-flight read for a key (a cache-miss fetch or a
// background revalidation) so a mutation on the same key can cancel it
// before the late response clobbers the optimistic value.
type refetchHandle struct {
	cancel context.CancelFunc
}

// Client coordinates remote reads and writes against the tiered cache:
// request de-duplication, stale-while-revalidate, bounded retry, pagination,
// and the optimistic mutation protocol in mutation.go.
type Client struct {
	store     cache.Store
	remote    RemoteStore
	keys      cache.KeySerializer
	policies  map[string]FreshnessPolicy
	fallback  FreshnessPolicy
	retry     RetryPolicy
	group     singleflight.Group
	refetches *xsync.MapOf[string, *refetchHandle]
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a Client over the given store and remote.
func New(store cache.Store, remote RemoteStore, keys cache.KeySerializer, opts Options) *Client {
	if opts.Default.Fresh <= 0 {
		opts.Default.Fresh = time.Minute
	}
	if opts.Default.MaxAge <= 0 {
		opts.Default.MaxAge = 15 * time.Minute
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = DefaultRetryPolicy()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{
		store:     store,
		remote:    remote,
		keys:      keys,
		policies:  opts.Policies,
		fallback:  opts.Default,
		retry:     opts.Retry,
		refetches: xsync.NewMapOf[string, *refetchHandle](),
		logger:    opts.Logger,
		now:       time.Now,
	}
}

// Key returns the cache key for a query. Mutations reference the same keys
// by building the same queries, so key derivation lives in exactly one place.
func (c *Client) Key(q Query) string {
	return c.keys.SerializeKey(q.Type, q.Resource)
}

// Policy returns the freshness policy for a query type.
func (c *Client) Policy(queryType string) FreshnessPolicy {
	if p, ok := c.policies[queryType]; ok {
		return p
	}
	return c.fallback
}

// FetchRaw serves a query from cache when fresh, stale-while-revalidate when
// resident but past the fresh window, and from the remote store otherwise.
// Concurrent misses for the same key collapse into one network call.
func (c *Client) FetchRaw(ctx context.Context, q Query) ([]byte, error) {
	key := c.Key(q)
	pol := c.Policy(q.Type)

	if e, ok := c.store.Get(ctx, key); ok {
		if c.now().Before(e.Timestamp.Add(pol.Fresh)) {
			return e.Data, nil
		}
		c.revalidate(key, q, pol)
		return e.Data, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// The miss fetch registers in the same cancellation registry as
		// background refetches, so a mutation starting on this key can stop
		// the pending read from clobbering its optimistic value.
		readCtx, cancel := context.WithCancel(ctx)
		handle := &refetchHandle{cancel: cancel}
		if prev, loaded := c.refetches.LoadAndStore(key, handle); loaded {
			prev.cancel()
		}
		defer c.releaseRefetch(key, handle)
		defer cancel()

		data, _, err := c.readRemote(readCtx, q.Resource)
		if err != nil {
			return nil, err
		}
		if readCtx.Err() != nil {
			// Canceled after the response arrived; a mutation owns the key
			// now. The caller still gets the data, the cache does not.
			return data, nil
		}
		c.store.Set(readCtx, key, data, pol.MaxAge, pol.Persistent)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Fetch is the typed convenience over FetchRaw.
func Fetch[T any](ctx context.Context, c *Client, q Query) (T, error) {
	var out T
	data, err := c.FetchRaw(ctx, q)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, err
	}
	return out, nil
}

// revalidate launches at most one background refetch per key. The refetch is
// registered so a mutation starting on the same key can cancel it.
func (c *Client) revalidate(key string, q Query, pol FreshnessPolicy) {
	refetchCtx, cancel := context.WithCancel(context.Background())
	handle := &refetchHandle{cancel: cancel}
	if _, loaded := c.refetches.LoadOrStore(key, handle); loaded {
		cancel()
		return
	}

	go func() {
		defer c.releaseRefetch(key, handle)
		defer cancel()

		data, _, err := c.readRemote(refetchCtx, q.Resource)
		if err != nil {
			if refetchCtx.Err() == nil {
				c.logger.Warn("background revalidation failed",
					zap.String("key", key),
					zap.Error(err))
			}
			return
		}
		if refetchCtx.Err() != nil {
			// Canceled after the response arrived; a mutation owns the key now.
			return
		}
		c.store.Set(refetchCtx, key, data, pol.MaxAge, pol.Persistent)
	}()
}

// releaseRefetch clears the handle's registry slot, but only while the
// handle still owns it; a slot taken over by a newer fetch belongs to that
// fetch and stays.
func (c *Client) releaseRefetch(key string, handle *refetchHandle) {
	c.refetches.Compute(key, func(cur *refetchHandle, loaded bool) (*refetchHandle, bool) {
		if loaded && cur != handle {
			return cur, false
		}
		return nil, true
	})
}

// CancelRefetch stops any in-flight read for key, miss fetch or background
// refetch alike, and forgets the key's de-duplication slot so the next read
// issues a fresh request.
func (c *Client) CancelRefetch(key string) {
	if handle, ok := c.refetches.LoadAndDelete(key); ok {
		handle.cancel()
	}
	c.group.Forget(key)
}

// readRemote issues the read with the retry policy applied.
func (c *Client) readRemote(ctx context.Context, res Resource) ([]byte, int64, error) {
	var (
		data  []byte
		total int64
	)
	err := c.retry.Do(ctx, func() error {
		var err error
		data, total, err = c.remote.Read(ctx, res)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return data, total, nil
}

// Store exposes the underlying tiered store for callers that manage raw
// entries (session teardown, diagnostics).
func (c *Client) Store() cache.Store { return c.store }
