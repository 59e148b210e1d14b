package repository

import (
	"context"

	"aeternis-checkout/internal/domain/model"
)

// CatalogRepository stores versioned catalog snapshots. Snapshots are
// immutable once saved; publishing a price change means saving a new version.
type CatalogRepository interface {
	// ActiveSnapshot returns the highest-version snapshot.
	ActiveSnapshot(ctx context.Context, tx Tx) (*model.Snapshot, error)
	SnapshotByVersion(ctx context.Context, tx Tx, version int) (*model.Snapshot, error)
	SaveSnapshot(ctx context.Context, tx Tx, s *model.Snapshot) error
}
