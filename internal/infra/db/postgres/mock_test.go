//go:build !integration

package postgres

import (
	"context"
	"time"

	"aeternis-checkout/internal/domain/model"
	"aeternis-checkout/internal/domain/ports/repository"
	red "aeternis-checkout/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerCatalogRepo mocks the database repository that the catalog
// decorator wraps.
type mockInnerCatalogRepo struct {
	ActiveSnapshotFunc    func(ctx context.Context, tx repository.Tx) (*model.Snapshot, error)
	SnapshotByVersionFunc func(ctx context.Context, tx repository.Tx, version int) (*model.Snapshot, error)
	SaveSnapshotFunc      func(ctx context.Context, tx repository.Tx, s *model.Snapshot) error
}

func (m *mockInnerCatalogRepo) ActiveSnapshot(ctx context.Context, tx repository.Tx) (*model.Snapshot, error) {
	return m.ActiveSnapshotFunc(ctx, tx)
}
func (m *mockInnerCatalogRepo) SnapshotByVersion(ctx context.Context, tx repository.Tx, version int) (*model.Snapshot, error) {
	return m.SnapshotByVersionFunc(ctx, tx, version)
}
func (m *mockInnerCatalogRepo) SaveSnapshot(ctx context.Context, tx repository.Tx, s *model.Snapshot) error {
	return m.SaveSnapshotFunc(ctx, tx, s)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc    func(ctx context.Context, keys ...string) error
	PingFunc   func(ctx context.Context) error
	IncrFunc   func(ctx context.Context, key string) (int64, error)
	ExpireFunc func(ctx context.Context, key string, expiration time.Duration) error
	CloseFunc  func() error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc == nil {
		return nil
	}
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc == nil {
		return nil
	}
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return m.PingFunc(ctx) }
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return m.IncrFunc(ctx, key)
}
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return m.ExpireFunc(ctx, key, expiration)
}
func (m *mockRedisClient) Close() error { return m.CloseFunc() }
