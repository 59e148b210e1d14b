package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"aeternis-checkout/internal/domain"
	"aeternis-checkout/internal/domain/model"
	"aeternis-checkout/internal/domain/ports/repository"
)

// Itemization is the result of pricing a list of order profiles against one
// catalog snapshot.
type Itemization struct {
	LineItems        []model.LineItem
	ProfileSubtotals []int64
	Subtotal         int64
	Discount         int64  // amount subtracted from the subtotal, >= 0
	DiscountRule     string // slug of the applied rule, "" when none matched
	Total            int64
	CatalogVersion   int
}

// Price computes the itemized total for profiles against snap. It is pure:
// no side effects, no clock, no randomness — identical inputs always yield an
// identical itemization, which is what lets the quote endpoint and the
// order-submission path share one code path.
func Price(profiles []model.OrderProfile, snap *model.Snapshot) (*Itemization, error) {
	if len(profiles) == 0 {
		return nil, fmt.Errorf("profiles: at least one required: %w", domain.ErrInvalidQuantity)
	}
	if snap == nil {
		return nil, fmt.Errorf("catalog snapshot: %w", domain.ErrInvalidArgument)
	}

	it := &Itemization{
		ProfileSubtotals: make([]int64, 0, len(profiles)),
		CatalogVersion:   snap.Version,
	}
	facts := model.OrderFacts{Materials: make(map[string]bool)}

	for i, pr := range profiles {
		subtotal, items, err := priceProfile(i, pr, snap, &facts)
		if err != nil {
			return nil, err
		}
		it.LineItems = append(it.LineItems, items...)
		it.ProfileSubtotals = append(it.ProfileSubtotals, subtotal)
		it.Subtotal += subtotal
	}
	facts.ProfileCount = len(profiles)
	facts.Subtotal = it.Subtotal

	// Rules come pre-sorted by descending priority; the first matching rule
	// is the only one applied.
	for _, rule := range snap.Rules {
		if !rule.Predicate.Matches(facts) {
			continue
		}
		it.Discount = rule.Effect.Amount(it.Subtotal)
		it.DiscountRule = rule.Slug
		it.LineItems = append(it.LineItems, model.LineItem{
			ProfileIndex: -1,
			Kind:         model.LineItemDiscount,
			Description:  rule.Name,
			Amount:       -it.Discount,
		})
		break
	}

	it.Total = it.Subtotal - it.Discount
	if it.Total < 0 {
		return nil, fmt.Errorf("total %d after discount %q: %w", it.Total, it.DiscountRule, domain.ErrInvalidComputation)
	}
	return it, nil
}

func priceProfile(idx int, pr model.OrderProfile, snap *model.Snapshot, facts *model.OrderFacts) (int64, []model.LineItem, error) {
	plan, ok := snap.Plan(pr.PlanSlug)
	if !ok {
		return 0, nil, fmt.Errorf("profile %d: planType %q: %w", idx, pr.PlanSlug, domain.ErrInvalidReference)
	}
	storage, ok := snap.Storage(pr.StorageOptionID)
	if !ok {
		return 0, nil, fmt.Errorf("profile %d: storageOption %q: %w", idx, pr.StorageOptionID, domain.ErrInvalidReference)
	}
	if storage.PlanSlug != plan.Slug {
		return 0, nil, fmt.Errorf("profile %d: storageOption %q does not belong to plan %q: %w", idx, pr.StorageOptionID, plan.Slug, domain.ErrInvalidReference)
	}
	if pr.ExtensionYears < 0 {
		return 0, nil, fmt.Errorf("profile %d: extensionYears %d: %w", idx, pr.ExtensionYears, domain.ErrInvalidQuantity)
	}

	items := []model.LineItem{
		{ProfileIndex: idx, Kind: model.LineItemPlan, Description: plan.Name, Amount: plan.BasePrice},
		{ProfileIndex: idx, Kind: model.LineItemStorage, Description: fmt.Sprintf("%s storage %gGB", plan.Name, storage.StorageGB), Amount: storage.Price},
	}
	subtotal := plan.BasePrice + storage.Price

	if pr.ExtensionYears > 0 {
		ext := int64(pr.ExtensionYears) * plan.YearlyExtensionPrice
		items = append(items, model.LineItem{
			ProfileIndex: idx,
			Kind:         model.LineItemExtension,
			Description:  fmt.Sprintf("Duration extension x%d", pr.ExtensionYears),
			Amount:       ext,
		})
		subtotal += ext
	}

	// Each plaque is priced independently; cross-plaque discounts only ever
	// enter through order-level rules.
	for pi, plq := range pr.Plaques {
		mat, ok := snap.Material(plq.MaterialSlug)
		if !ok {
			return 0, nil, fmt.Errorf("profile %d plaque %d: material %q: %w", idx, pi, plq.MaterialSlug, domain.ErrInvalidReference)
		}
		items = append(items, model.LineItem{
			ProfileIndex: idx,
			Kind:         model.LineItemPlaque,
			Description:  fmt.Sprintf("Plaque %s", mat.Name),
			Amount:       mat.PriceDelta,
		})
		subtotal += mat.PriceDelta
		facts.Materials[mat.Slug] = true
		facts.PlaqueCount++

		if plq.Magnet {
			addon, ok := snap.Addon(model.AddonMagnet)
			if !ok {
				return 0, nil, fmt.Errorf("profile %d plaque %d: addon %q: %w", idx, pi, model.AddonMagnet, domain.ErrInvalidReference)
			}
			items = append(items, model.LineItem{ProfileIndex: idx, Kind: model.LineItemAddon, Description: "Magnetic fixing", Amount: addon.Price})
			subtotal += addon.Price
		}
		if plq.Engraving {
			addon, ok := snap.Addon(model.AddonEngraving)
			if !ok {
				return 0, nil, fmt.Errorf("profile %d plaque %d: addon %q: %w", idx, pi, model.AddonEngraving, domain.ErrInvalidReference)
			}
			items = append(items, model.LineItem{ProfileIndex: idx, Kind: model.LineItemAddon, Description: "Name engraving", Amount: addon.Price})
			subtotal += addon.Price
		}
	}

	return subtotal, items, nil
}

// PricingUseCase exposes catalog-backed pricing to the transport layer.
type PricingUseCase interface {
	// Quote prices profiles against the active catalog snapshot without
	// persisting anything.
	Quote(ctx context.Context, profiles []model.OrderProfile) (*Itemization, error)
	// ActiveSnapshot exposes the current snapshot for callers that must pin a
	// version (order submission).
	ActiveSnapshot(ctx context.Context) (*model.Snapshot, error)
}

var _ PricingUseCase = (*pricingUC)(nil)

type pricingUC struct {
	catalog repository.CatalogRepository
	log     *zerolog.Logger
}

func NewPricingUseCase(catalog repository.CatalogRepository, logger *zerolog.Logger) *pricingUC {
	return &pricingUC{catalog: catalog, log: logger}
}

func (u *pricingUC) Quote(ctx context.Context, profiles []model.OrderProfile) (*Itemization, error) {
	snap, err := u.catalog.ActiveSnapshot(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	it, err := Price(profiles, snap)
	if err != nil {
		u.log.Debug().Err(err).Int("catalog_version", snap.Version).Msg("quote rejected")
		return nil, err
	}
	return it, nil
}

func (u *pricingUC) ActiveSnapshot(ctx context.Context) (*model.Snapshot, error) {
	return u.catalog.ActiveSnapshot(ctx, repository.NoTX)
}
