package cachetiers

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/librovision/librovision/cache"
)

// TieredStore implements cache.Store over a memory tier, an optional durable
// tier, and a session tier. Reads check memory first and promote hits from
// the slower tiers; writes always land in memory plus one of the other two.
// Tier failures are logged and degrade to cache-miss behavior, never
// propagated: the cache is an optimization, not a source of truth.
type TieredStore struct {
	memory  *MemoryTier
	durable cache.Tier // nil when no durable backend is configured
	session cache.Tier
	cfg     cache.Config
	logger  *zap.Logger
	now     func() time.Time
}

var _ cache.Store = (*TieredStore)(nil)

// NewTieredStore assembles the store. durable may be nil, in which case
// persistent writes fall back to the session tier.
func NewTieredStore(memory *MemoryTier, durable cache.Tier, session cache.Tier, cfg cache.Config, logger *zap.Logger) *TieredStore {
	if cfg.FormatVersion == "" {
		cfg.FormatVersion = cache.FormatVersion
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TieredStore{
		memory:  memory,
		durable: durable,
		session: session,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Get checks memory, then durable, then session. A hit in a slower tier is
// promoted back into the memory tier. Expired or version-mismatched entries
// are purged lazily and reported as absent.
func (s *TieredStore) Get(ctx context.Context, key string) (cache.Entry, bool) {
	if e, ok := s.getFromTier(ctx, s.memory, key); ok {
		return e, true
	}
	for _, tier := range []cache.Tier{s.durable, s.session} {
		if tier == nil {
			continue
		}
		if e, ok := s.getFromTier(ctx, tier, key); ok {
			if err := s.memory.Set(ctx, key, e); err != nil {
				s.logger.Warn("cache promotion failed", zap.String("key", key), zap.Error(err))
			}
			return e, true
		}
	}
	return cache.Entry{}, false
}

// getFromTier reads one tier, enforcing expiry and version lazily. Usable
// entries are returned as-is; stale ones are deleted from that tier.
func (s *TieredStore) getFromTier(ctx context.Context, tier cache.Tier, key string) (cache.Entry, bool) {
	e, err := tier.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			s.logger.Warn("cache tier read failed",
				zap.String("tier", tier.Name()),
				zap.String("key", key),
				zap.Error(err))
		}
		return cache.Entry{}, false
	}

	if e.Version != s.cfg.FormatVersion || e.Expired(s.now()) {
		if err := tier.Delete(ctx, key); err != nil {
			s.logger.Warn("cache lazy purge failed",
				zap.String("tier", tier.Name()),
				zap.String("key", key),
				zap.Error(err))
		}
		return cache.Entry{}, false
	}
	return e, true
}

// Set stores data under key. maxAge of zero applies the configured default.
// The memory write is authoritative for the success report; durable and
// session failures are logged and swallowed.
func (s *TieredStore) Set(ctx context.Context, key string, data []byte, maxAge time.Duration, persistent bool) bool {
	if maxAge <= 0 {
		maxAge = s.cfg.DefaultMaxAge
	}
	e := cache.Entry{
		Data:      data,
		Timestamp: s.now(),
		Expiry:    maxAge,
		Version:   s.cfg.FormatVersion,
	}
	return s.put(ctx, key, e, persistent)
}

func (s *TieredStore) put(ctx context.Context, key string, e cache.Entry, persistent bool) bool {
	ok := true
	if err := s.memory.Set(ctx, key, e); err != nil {
		s.logger.Warn("memory tier write failed", zap.String("key", key), zap.Error(err))
		ok = false
	}

	secondary := s.session
	if persistent && s.durable != nil {
		secondary = s.durable
	}
	if err := secondary.Set(ctx, key, e); err != nil {
		s.logger.Warn("cache tier write failed",
			zap.String("tier", secondary.Name()),
			zap.String("key", key),
			zap.Error(err))
	}
	return ok
}

// Delete removes the key from every tier, tolerating partial failure.
func (s *TieredStore) Delete(ctx context.Context, key string) {
	for _, tier := range s.tiers() {
		if err := tier.Delete(ctx, key); err != nil {
			s.logger.Warn("cache tier delete failed",
				zap.String("tier", tier.Name()),
				zap.String("key", key),
				zap.Error(err))
		}
	}
}

// Clear drops every entry from every tier, tolerating partial failure.
func (s *TieredStore) Clear(ctx context.Context) {
	for _, tier := range s.tiers() {
		if err := tier.Clear(ctx); err != nil {
			s.logger.Warn("cache tier clear failed",
				zap.String("tier", tier.Name()),
				zap.Error(err))
		}
	}
}

// Peek returns the raw entry without promotion, recency updates, or expiry
// enforcement, plus whether the key lives in the durable tier. Snapshots
// taken here restore byte for byte through Put.
func (s *TieredStore) Peek(ctx context.Context, key string) (cache.Entry, bool, bool) {
	persistent := false
	if s.durable != nil {
		if _, err := s.durable.Get(ctx, key); err == nil {
			persistent = true
		}
	}

	if e, ok := s.memory.Peek(key); ok {
		return e, persistent, true
	}
	if persistent {
		if e, err := s.durable.Get(ctx, key); err == nil {
			return e, true, true
		}
	}
	if e, err := s.session.Get(ctx, key); err == nil {
		return e, false, true
	}
	return cache.Entry{}, false, false
}

// Put restores a raw entry verbatim, preserving its original timestamp,
// expiry, and version stamp.
func (s *TieredStore) Put(ctx context.Context, key string, e cache.Entry, persistent bool) {
	s.put(ctx, key, e, persistent)
}

func (s *TieredStore) tiers() []cache.Tier {
	tiers := []cache.Tier{s.memory}
	if s.durable != nil {
		tiers = append(tiers, s.durable)
	}
	return append(tiers, s.session)
}
