package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"aeternis-checkout/internal/domain"
	"aeternis-checkout/internal/domain/model"
	"aeternis-checkout/internal/usecase"
)

// statsHandler serves the checkout dashboard figures.
func statsHandler(statsUC usecase.StatsUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		week, month, year, err := statsUC.Revenue(ctx)
		if err != nil {
			http.Error(w, "Failed to get revenue", http.StatusInternalServerError)
			return
		}

		totals, err := statsUC.OrderTotals(ctx)
		if err != nil {
			http.Error(w, "Failed to get order totals", http.StatusInternalServerError)
			return
		}
		byStatus := make(map[string]int, len(totals))
		for status, n := range totals {
			byStatus[string(status)] = n
		}

		response := struct {
			OrdersByStatus map[string]int `json:"orders_by_status"`
			Revenue        struct {
				Week  int64 `json:"week"`
				Month int64 `json:"month"`
				Year  int64 `json:"year"`
			} `json:"revenue_cents"`
		}{
			OrdersByStatus: byStatus,
		}
		response.Revenue.Week = week
		response.Revenue.Month = month
		response.Revenue.Year = year

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}

// The expected JSON request body for publishing a catalog snapshot.
type catalogPublishRequest struct {
	Plans []struct {
		Slug                 string `json:"slug"`
		Name                 string `json:"name"`
		BasePrice            int64  `json:"base_price"`
		YearlyExtensionPrice int64  `json:"yearly_extension_price"`
	} `json:"plans"`
	StorageOptions []struct {
		ID        string  `json:"id"`
		PlanSlug  string  `json:"plan_slug"`
		StorageGB float64 `json:"storage_gb"`
		Price     int64   `json:"price"`
	} `json:"storage_options"`
	Materials []struct {
		Slug       string `json:"slug"`
		Name       string `json:"name"`
		PriceDelta int64  `json:"price_delta"`
	} `json:"materials"`
	Addons []struct {
		Slug             string `json:"slug"`
		Price            int64  `json:"price"`
		AppliesToProfile bool   `json:"applies_to_profile"`
		AppliesToPlaque  bool   `json:"applies_to_plaque"`
	} `json:"addons"`
	Rules []struct {
		Slug      string `json:"slug"`
		Name      string `json:"name"`
		Priority  int    `json:"priority"`
		Predicate struct {
			MinProfiles int    `json:"min_profiles"`
			MaxProfiles int    `json:"max_profiles"`
			MinPlaques  int    `json:"min_plaques"`
			Material    string `json:"material"`
		} `json:"predicate"`
		Effect struct {
			PercentBps int64 `json:"percent_bps"`
			AmountOff  int64 `json:"amount_off"`
		} `json:"effect"`
	} `json:"rules"`
}

func catalogPublishHandler(catalogUC usecase.CatalogUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req catalogPublishRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		plans := make([]model.PlanType, 0, len(req.Plans))
		for _, p := range req.Plans {
			plans = append(plans, model.PlanType{Slug: p.Slug, Name: p.Name, BasePrice: p.BasePrice, YearlyExtensionPrice: p.YearlyExtensionPrice})
		}
		storage := make([]model.StorageOption, 0, len(req.StorageOptions))
		for _, o := range req.StorageOptions {
			storage = append(storage, model.StorageOption{ID: o.ID, PlanSlug: o.PlanSlug, StorageGB: o.StorageGB, Price: o.Price})
		}
		materials := make([]model.PlaqueMaterial, 0, len(req.Materials))
		for _, m := range req.Materials {
			materials = append(materials, model.PlaqueMaterial{Slug: m.Slug, Name: m.Name, PriceDelta: m.PriceDelta})
		}
		addons := make([]model.Addon, 0, len(req.Addons))
		for _, a := range req.Addons {
			addons = append(addons, model.Addon{Slug: a.Slug, Price: a.Price, AppliesToProfile: a.AppliesToProfile, AppliesToPlaque: a.AppliesToPlaque})
		}
		rules := make([]model.DiscountRule, 0, len(req.Rules))
		for _, rl := range req.Rules {
			rules = append(rules, model.DiscountRule{
				Slug:     rl.Slug,
				Name:     rl.Name,
				Priority: rl.Priority,
				Predicate: model.RulePredicate{
					MinProfiles: rl.Predicate.MinProfiles,
					MaxProfiles: rl.Predicate.MaxProfiles,
					MinPlaques:  rl.Predicate.MinPlaques,
					Material:    rl.Predicate.Material,
				},
				Effect: model.RuleEffect{PercentBps: rl.Effect.PercentBps, AmountOff: rl.Effect.AmountOff},
			})
		}

		snap, err := catalogUC.Publish(r.Context(), plans, storage, materials, addons, rules)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidArgument) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "Failed to publish catalog", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(snap)
	}
}

func catalogGetHandler(catalogUC usecase.CatalogUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := catalogUC.Active(r.Context())
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.Error(w, "No catalog published", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to get catalog", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(snap)
	}
}
