// Package di wires LibroVision's components together: cache tiers, the query
// cache client, the catalog client, and the search proxy handler.
package di

import (
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/librovision/librovision/cache"
	"github.com/librovision/librovision/internal/cachetiers"
	"github.com/librovision/librovision/internal/catalog"
	"github.com/librovision/librovision/internal/config"
	"github.com/librovision/librovision/querycache"
	"github.com/librovision/librovision/searchproxy"
	"github.com/librovision/librovision/shelf"
)

// Container manages singleton instances of the data layer components and
// provides factories for per-user services.
type Container struct {
	cfg        config.Config
	logger     *zap.Logger
	store      cache.Store
	serializer cache.KeySerializer
	client     *querycache.Client
	catalog    *catalog.Client
	search     *searchproxy.Handler
}

// freshnessPolicies tunes how long each query type is served without a
// network call and how long it survives in the tiers. Social counters churn
// fast; catalog records barely change.
func freshnessPolicies() map[string]querycache.FreshnessPolicy {
	return map[string]querycache.FreshnessPolicy{
		"book":                  {Fresh: 5 * time.Minute, MaxAge: 24 * time.Hour, Persistent: true},
		"review":                {Fresh: 2 * time.Minute, MaxAge: time.Hour},
		"book_reviews":          {Fresh: time.Minute, MaxAge: 30 * time.Minute},
		"activity_feed":         {Fresh: 30 * time.Second, MaxAge: 10 * time.Minute},
		"user_profile":          {Fresh: 2 * time.Minute, MaxAge: time.Hour, Persistent: true},
		"user_book_interaction": {Fresh: 5 * time.Minute, MaxAge: 24 * time.Hour, Persistent: true},
		"notifications":         {Fresh: 30 * time.Second, MaxAge: 10 * time.Minute},
		"list":                  {Fresh: 2 * time.Minute, MaxAge: time.Hour, Persistent: true},
		"user_lists":            {Fresh: 2 * time.Minute, MaxAge: time.Hour, Persistent: true},
	}
}

// NewContainer assembles the full component graph from configuration. The
// durable tier is only attached when a Redis address is configured.
func NewContainer(cfg config.Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cacheCfg := cache.DefaultConfig()
	cacheCfg.MemoryCapacity = cfg.MemoryCapacity
	cacheCfg.DefaultMaxAge = cfg.DefaultMaxAge
	cacheCfg.Namespace = cfg.CacheNamespace
	if err := cacheCfg.Validate(); err != nil {
		return nil, err
	}

	var durable cache.Tier
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		durable = cachetiers.NewRedisTier(rdb, cfg.CacheNamespace)
	}

	store := cachetiers.NewTieredStore(
		cachetiers.NewMemoryTier(cacheCfg.MemoryCapacity),
		durable,
		cachetiers.NewSessionTier(),
		cacheCfg,
		logger.Named("cache"),
	)

	serializer := cache.NewDefaultKeySerializer()
	remote := querycache.NewPostgrestStore(cfg.PostgrestURL, cfg.PostgrestAPIKey, cfg.PostgrestSchema)

	client := querycache.New(store, remote, serializer, querycache.Options{
		Policies: freshnessPolicies(),
		Default:  querycache.FreshnessPolicy{Fresh: time.Minute, MaxAge: 15 * time.Minute},
		Retry:    querycache.DefaultRetryPolicy(),
		Logger:   logger.Named("querycache"),
	})

	cat := catalog.New(cfg.CatalogBaseURL, cfg.CatalogAPIKey, logger.Named("catalog"))
	search := searchproxy.NewHandler(cat, serializer, searchproxy.Options{
		ResultTTL: cfg.SearchResultTTL,
		Logger:    logger.Named("searchproxy"),
	})

	return &Container{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		serializer: serializer,
		client:     client,
		catalog:    cat,
		search:     search,
	}, nil
}

// Store returns the tiered cache store.
func (c *Container) Store() cache.Store { return c.store }

// KeySerializer returns the key serializer shared by the query cache and the
// search proxy.
func (c *Container) KeySerializer() cache.KeySerializer { return c.serializer }

// QueryClient returns the query cache client.
func (c *Container) QueryClient() *querycache.Client { return c.client }

// Catalog returns the upstream catalog client.
func (c *Container) Catalog() *catalog.Client { return c.catalog }

// SearchProxy returns the search proxy HTTP handler.
func (c *Container) SearchProxy() *searchproxy.Handler { return c.search }

// Config returns a copy of the loaded configuration.
func (c *Container) Config() config.Config { return c.cfg }

// ShelfFor creates a domain service bound to the given user.
func (c *Container) ShelfFor(userID string) *shelf.Service {
	return shelf.NewService(c.client, userID)
}
