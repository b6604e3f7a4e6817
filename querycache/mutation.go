package querycache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/librovision/librovision/cache"
)

// SettleMode decides what happens to optimistic values after the remote
// write succeeds.
type SettleMode int

const (
	// SettleKeepOptimistic leaves the predicted values in place. Appropriate
	// for self-contained toggles where the client's prediction is exact.
	SettleKeepOptimistic SettleMode = iota

	// SettleInvalidate drops the mutation's fan-out keys so the next read
	// refetches authoritative data. Appropriate when the server computes
	// side effects the client cannot fully predict.
	SettleInvalidate
)

// KeyUpdate is one optimistic change within a mutation. Apply receives the
// currently cached value (nil when absent) and returns the predicted value;
// keep=false removes the key instead. Persistent forces durable placement
// for the predicted value; keys already in the durable tier keep it either
// way.
type KeyUpdate struct {
	Key        string
	Persistent bool
	Apply      func(current []byte, present bool) (next []byte, keep bool, err error)
}

// Mutation bundles the optimistic updates, the remote write, and the settle
// behavior for one state-changing user action.
type Mutation struct {
	Name       string
	Updates    []KeyUpdate
	Write      WriteOp
	Settle     SettleMode
	Invalidate []string
	// MaxAge overrides the optimistic entries' lifetime; zero inherits the
	// lifetime of the value being replaced.
	MaxAge time.Duration
}

// snapshot captures one key's exact pre-mutation state, including absence.
type snapshot struct {
	key        string
	entry      cache.Entry
	present    bool
	persistent bool
}

// Mutate runs the optimistic update protocol:
//
//  1. Pending: cancel in-flight refetches for the touched keys and snapshot
//     their current raw entries.
//  2. Applied: write predicted values into the cache.
//  3. Settled, success: keep the optimistic values or invalidate the fan-out,
//     per the mutation's settle mode.
//  4. Settled, failure: restore every snapshot verbatim and return the error.
//
// Overlapping mutations on the same key each restore only the snapshot they
// captured, so concurrent failures resolve last-settled-wins. Serializing
// mutations per key is deliberately not attempted here.
func (c *Client) Mutate(ctx context.Context, m Mutation) ([]byte, error) {
	snaps := make([]snapshot, len(m.Updates))
	for i, u := range m.Updates {
		c.CancelRefetch(u.Key)
		e, persistent, present := c.store.Peek(ctx, u.Key)
		snaps[i] = snapshot{key: u.Key, entry: e, present: present, persistent: persistent}
	}

	for i, u := range m.Updates {
		var current []byte
		if snaps[i].present {
			current = snaps[i].entry.Data
		}

		next, keep, err := u.Apply(current, snaps[i].present)
		if err != nil {
			c.restore(ctx, snaps[:i+1])
			return nil, err
		}
		if !keep {
			c.store.Delete(ctx, u.Key)
			continue
		}

		maxAge := m.MaxAge
		if maxAge <= 0 {
			if snaps[i].present {
				maxAge = snaps[i].entry.Expiry
			} else {
				maxAge = c.fallback.MaxAge
			}
		}
		// A key resident in the durable tier keeps durable placement, or the
		// pre-mutation value would outlive the optimistic one there and
		// resurface after memory eviction.
		c.store.Set(ctx, u.Key, next, maxAge, u.Persistent || snaps[i].persistent)
	}

	data, err := c.remote.Write(ctx, m.Write)
	if err != nil {
		c.restore(ctx, snaps)
		c.logger.Warn("mutation rolled back",
			zap.String("mutation", m.Name),
			zap.Error(err))
		return nil, err
	}

	if m.Settle == SettleInvalidate {
		c.InvalidateKeys(ctx, m.Invalidate)
	}
	return data, nil
}

// restore puts every snapshot back exactly as captured: present entries are
// rewritten with their original timestamps, absent ones are deleted.
func (c *Client) restore(ctx context.Context, snaps []snapshot) {
	for _, s := range snaps {
		if s.present {
			c.store.Put(ctx, s.key, s.entry, s.persistent)
		} else {
			c.store.Delete(ctx, s.key)
		}
	}
}
