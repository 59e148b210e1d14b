package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"aeternis-checkout/internal/domain/model"
	"aeternis-checkout/internal/domain/ports/repository"
	"aeternis-checkout/internal/infra/metrics"
	red "aeternis-checkout/internal/infra/redis"
)

var _ repository.CatalogRepository = (*catalogRepoCacheDecorator)(nil)

// catalogRepoCacheDecorator caches snapshots in Redis. Versioned snapshots
// are immutable so per-version entries never need invalidation; only the
// "active" pointer is dropped when a new snapshot is published.
type catalogRepoCacheDecorator struct {
	inner repository.CatalogRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewCatalogRepoCacheDecorator(inner repository.CatalogRepository, cache red.RedisClient) repository.CatalogRepository {
	return &catalogRepoCacheDecorator{
		inner: inner,
		cache: cache,
		ttl:   1 * time.Hour,
	}
}

const activeSnapshotKey = "catalog:active"

func snapshotKey(version int) string { return fmt.Sprintf("catalog:v%d", version) }

func (d *catalogRepoCacheDecorator) ActiveSnapshot(ctx context.Context, tx repository.Tx) (*model.Snapshot, error) {
	val, err := d.cache.Get(ctx, activeSnapshotKey)
	if err == nil {
		metrics.IncCacheRequest("catalog", "hit")
		var s model.Snapshot
		if json.Unmarshal([]byte(val), &s) == nil {
			return &s, nil
		}
	}

	metrics.IncCacheRequest("catalog", "miss")
	s, err := d.inner.ActiveSnapshot(ctx, tx)
	if err != nil {
		return nil, err
	}
	if bytes, err := json.Marshal(s); err == nil {
		d.cache.Set(ctx, activeSnapshotKey, bytes, d.ttl)
	}
	return s, nil
}

func (d *catalogRepoCacheDecorator) SnapshotByVersion(ctx context.Context, tx repository.Tx, version int) (*model.Snapshot, error) {
	key := snapshotKey(version)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		metrics.IncCacheRequest("catalog", "hit")
		var s model.Snapshot
		if json.Unmarshal([]byte(val), &s) == nil {
			return &s, nil
		}
	}

	metrics.IncCacheRequest("catalog", "miss")
	s, err := d.inner.SnapshotByVersion(ctx, tx, version)
	if err != nil {
		return nil, err
	}
	if bytes, err := json.Marshal(s); err == nil {
		d.cache.Set(ctx, key, bytes, d.ttl)
	}
	return s, nil
}

func (d *catalogRepoCacheDecorator) SaveSnapshot(ctx context.Context, tx repository.Tx, s *model.Snapshot) error {
	if err := d.inner.SaveSnapshot(ctx, tx, s); err != nil {
		return err
	}
	d.cache.Del(ctx, activeSnapshotKey)
	return nil
}
