// Package querycache coordinates remote reads and writes against the tiered
// cache. It is the layer between the domain services and the hosted data
// store.
//
// # Reads
//
// Every query type carries a FreshnessPolicy. Values inside the fresh window
// are served from cache with no network call. Values past the fresh window
// but still resident are served immediately while a single background
// refetch revalidates them (stale-while-revalidate). Cache misses go to the
// remote store with request de-duplication: concurrent callers asking for
// the same key share one in-flight request.
//
// Failed reads retry with exponential backoff up to a bounded attempt count.
// Client errors (4xx) are never retried; retrying a request the server has
// already rejected as malformed cannot succeed.
//
// # Writes
//
// Mutate implements the optimistic update protocol. The predicted
// post-mutation value lands in the cache before the remote write is issued,
// so the UI observes zero latency. On failure the pre-mutation snapshots are
// restored byte for byte; on success the optimistic value either stays
// (self-contained toggles) or the mutation's fan-out keys are invalidated so
// the next read fetches server truth (server-computed aggregates).
//
// Starting a mutation cancels in-flight refetches for the touched keys,
// closing the race where a stale read lands after the optimistic write.
// Overlapping mutations on the same key settle last-wins; see Mutate.
//
// # Pagination
//
// FetchPage accumulates list pages under the base query key and derives a
// has-more flag from the remote store's reported total count.
package querycache
