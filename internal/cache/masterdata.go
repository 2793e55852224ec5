package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/retailops/replenish/internal/config"
	"github.com/retailops/replenish/internal/domain"
	"github.com/retailops/replenish/internal/masterdata"
	"github.com/retailops/replenish/pkg/logger"
)

const masterDataKey = "masterdata:rows"

// MasterDataCache holds the joined master rows between runs so parallel date
// runs do not hammer the master-data database.
type MasterDataCache interface {
	Get(ctx context.Context) ([]domain.MasterRecord, bool, error)
	Set(ctx context.Context, records []domain.MasterRecord) error
	Invalidate(ctx context.Context) error
}

type redisMasterDataCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopMasterDataCache struct{}

// NewMasterDataCache returns a redis-backed cache when enabled, otherwise a noop.
func NewMasterDataCache(cfg config.CacheConfig) (MasterDataCache, error) {
	if !cfg.Enabled {
		return &noopMasterDataCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisMasterDataCache{client: client, ttl: ttl}, nil
}

// NewNoopMasterDataCache returns a cache that never hits.
func NewNoopMasterDataCache() MasterDataCache {
	return &noopMasterDataCache{}
}

func (c *redisMasterDataCache) Get(ctx context.Context) ([]domain.MasterRecord, bool, error) {
	payload, err := c.client.Get(ctx, masterDataKey).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var records []domain.MasterRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, false, fmt.Errorf("decode master data cache: %w", err)
	}

	return records, true, nil
}

func (c *redisMasterDataCache) Set(ctx context.Context, records []domain.MasterRecord) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode master data cache: %w", err)
	}

	if err := c.client.Set(ctx, masterDataKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisMasterDataCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, masterDataKey).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (c *noopMasterDataCache) Get(ctx context.Context) ([]domain.MasterRecord, bool, error) {
	return nil, false, nil
}

func (c *noopMasterDataCache) Set(ctx context.Context, records []domain.MasterRecord) error {
	return nil
}

func (c *noopMasterDataCache) Invalidate(ctx context.Context) error {
	return nil
}

// CachedSource decorates a masterdata.Source with the cache. Cache failures
// fall through to the underlying source; a stale or unreachable cache must
// never fail a run.
type CachedSource struct {
	source masterdata.Source
	cache  MasterDataCache
}

// NewCachedSource wraps source with cache.
func NewCachedSource(source masterdata.Source, cache MasterDataCache) *CachedSource {
	return &CachedSource{source: source, cache: cache}
}

// FetchMasterData returns cached rows when present, otherwise queries the
// underlying source and populates the cache.
func (s *CachedSource) FetchMasterData(ctx context.Context) ([]domain.MasterRecord, error) {
	records, hit, err := s.cache.Get(ctx)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("master data cache read failed, querying source")
	} else if hit {
		return records, nil
	}

	records, err = s.source.FetchMasterData(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, records); err != nil {
		logger.Log.Warn().Err(err).Msg("master data cache write failed")
	}

	return records, nil
}

var _ masterdata.Source = (*CachedSource)(nil)
