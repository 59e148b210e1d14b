package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"aeternis-checkout/internal/domain/model"
	"aeternis-checkout/internal/domain/ports/repository"
)

// CatalogUseCase publishes catalog snapshots. Publishing never edits an
// existing snapshot; each change is a new version and orders stay pinned to
// the version they were priced under.
type CatalogUseCase interface {
	Publish(ctx context.Context, plans []model.PlanType, storage []model.StorageOption, materials []model.PlaqueMaterial, addons []model.Addon, rules []model.DiscountRule) (*model.Snapshot, error)
	Active(ctx context.Context) (*model.Snapshot, error)
}

var _ CatalogUseCase = (*catalogUC)(nil)

type catalogUC struct {
	catalog repository.CatalogRepository
	log     *zerolog.Logger
}

func NewCatalogUseCase(catalog repository.CatalogRepository, logger *zerolog.Logger) *catalogUC {
	return &catalogUC{catalog: catalog, log: logger}
}

func (u *catalogUC) Publish(ctx context.Context, plans []model.PlanType, storage []model.StorageOption, materials []model.PlaqueMaterial, addons []model.Addon, rules []model.DiscountRule) (*model.Snapshot, error) {
	version := 1
	if cur, err := u.catalog.ActiveSnapshot(ctx, repository.NoTX); err == nil {
		version = cur.Version + 1
	}

	snap, err := model.NewSnapshot(version, plans, storage, materials, addons, rules)
	if err != nil {
		return nil, err
	}
	if err := u.catalog.SaveSnapshot(ctx, repository.NoTX, snap); err != nil {
		return nil, err
	}

	u.log.Info().Int("catalog_version", snap.Version).Msg("catalog snapshot published")
	return snap, nil
}

func (u *catalogUC) Active(ctx context.Context) (*model.Snapshot, error) {
	return u.catalog.ActiveSnapshot(ctx, repository.NoTX)
}
