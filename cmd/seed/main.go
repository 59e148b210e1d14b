package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"aeternis-checkout/internal/config"
	"aeternis-checkout/internal/domain"
	"aeternis-checkout/internal/domain/model"
	"aeternis-checkout/internal/domain/ports/repository"
	pg "aeternis-checkout/internal/infra/db/postgres"
	"aeternis-checkout/internal/infra/logging"
	"aeternis-checkout/internal/usecase"
)

// Seeds catalog version 1. Prices are euro cents. Wood is the included
// plaque material; other materials price as deltas over wood.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		logging.Global.Fatal().Err(err).Str("path", *cfgPath).Msg("config load failed")
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()

	catalogRepo := pg.NewCatalogRepo(pool)
	catalogUC := usecase.NewCatalogUseCase(catalogRepo, logger)

	// If a catalog is already published, do nothing
	if cur, err := catalogRepo.ActiveSnapshot(ctx, repository.NoTX); err == nil {
		fmt.Printf("catalog v%d already present. No changes.\n", cur.Version)
		return
	} else if !errors.Is(err, domain.ErrNotFound) {
		logger.Fatal().Err(err).Msg("active snapshot read failed")
	}

	plans := []model.PlanType{
		{Slug: "myaeternis", Name: "MyAeternis", BasePrice: 5900, YearlyExtensionPrice: 490},
		{Slug: "story", Name: "MyAeternis Story", BasePrice: 10900, YearlyExtensionPrice: 490},
	}

	storage := []model.StorageOption{
		{ID: "myaeternis-025gb", PlanSlug: "myaeternis", StorageGB: 0.25, Price: 0},
		{ID: "myaeternis-05gb", PlanSlug: "myaeternis", StorageGB: 0.5, Price: 1000},
		{ID: "myaeternis-1gb", PlanSlug: "myaeternis", StorageGB: 1, Price: 2000},
		{ID: "myaeternis-2gb", PlanSlug: "myaeternis", StorageGB: 2, Price: 4000},
		{ID: "myaeternis-4gb", PlanSlug: "myaeternis", StorageGB: 4, Price: 6000},
		{ID: "story-1gb", PlanSlug: "story", StorageGB: 1, Price: 0},
		{ID: "story-2gb", PlanSlug: "story", StorageGB: 2, Price: 2000},
		{ID: "story-4gb", PlanSlug: "story", StorageGB: 4, Price: 4000},
		{ID: "story-8gb", PlanSlug: "story", StorageGB: 8, Price: 8000},
		{ID: "story-16gb", PlanSlug: "story", StorageGB: 16, Price: 13000},
	}

	materials := []model.PlaqueMaterial{
		{Slug: "wood", Name: "Wood", PriceDelta: 0},
		{Slug: "plexiglass", Name: "Plexiglass", PriceDelta: 1500},
		{Slug: "brass", Name: "Brass", PriceDelta: 3500},
	}

	addons := []model.Addon{
		{Slug: model.AddonMagnet, Price: 1000, AppliesToPlaque: true},
		{Slug: model.AddonEngraving, Price: 1900, AppliesToPlaque: true},
	}

	rules := []model.DiscountRule{
		{
			Slug:      "family_bundle",
			Name:      "Family Bundle",
			Priority:  10,
			Predicate: model.RulePredicate{MinProfiles: 3},
			Effect:    model.RuleEffect{PercentBps: 2000},
		},
		{
			Slug:      "duo_bundle",
			Name:      "Duo Bundle",
			Priority:  5,
			Predicate: model.RulePredicate{MinProfiles: 2, MaxProfiles: 2},
			Effect:    model.RuleEffect{PercentBps: 1000},
		},
	}

	snap, err := catalogUC.Publish(ctx, plans, storage, materials, addons, rules)
	if err != nil {
		logger.Fatal().Err(err).Msg("publish catalog failed")
	}

	fmt.Printf("seeded catalog v%d: %d plans, %d storage options, %d materials, %d addons, %d rules\n",
		snap.Version, len(snap.Plans), len(snap.StorageOptions), len(snap.Materials), len(snap.Addons), len(snap.Rules))
}
