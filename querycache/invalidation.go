package querycache

import "context"

// InvalidateKeys drops the given keys from every cache tier and cancels any
// background refetches targeting them. Invalidation is best-effort and
// idempotent: absent keys and empty strings are skipped without error.
func (c *Client) InvalidateKeys(ctx context.Context, keys []string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		c.CancelRefetch(key)
		c.store.Delete(ctx, key)
	}
}

// InvalidateQuery is the single-query convenience over InvalidateKeys.
func (c *Client) InvalidateQuery(ctx context.Context, q Query) {
	c.InvalidateKeys(ctx, []string{c.Key(q)})
}
