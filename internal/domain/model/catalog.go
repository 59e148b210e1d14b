package model

import (
	"sort"

	"aeternis-checkout/internal/domain"
)

// Well-known add-on slugs referenced by order plaques.
const (
	AddonMagnet    = "magnet"
	AddonEngraving = "engraving"
)

// PlanType is a purchasable digital plan. Prices are integer euro cents.
type PlanType struct {
	Slug                 string
	Name                 string
	BasePrice            int64
	YearlyExtensionPrice int64
}

// StorageOption is a storage tier belonging to exactly one plan.
type StorageOption struct {
	ID        string
	PlanSlug  string
	StorageGB float64
	Price     int64
}

// PlaqueMaterial prices a plaque as a delta over the included wood plaque.
type PlaqueMaterial struct {
	Slug       string
	Name       string
	PriceDelta int64
}

// Addon is an optional extra applied per profile or per plaque.
type Addon struct {
	Slug             string
	Price            int64
	AppliesToProfile bool
	AppliesToPlaque  bool
}

// RulePredicate is the data-driven condition of a discount rule. Zero-valued
// fields do not constrain: MaxProfiles == 0 means unbounded, Material == ""
// matches any order.
type RulePredicate struct {
	MinProfiles int
	MaxProfiles int
	MinPlaques  int
	Material    string
}

// Matches reports whether the predicate holds for the whole-order facts.
func (p RulePredicate) Matches(f OrderFacts) bool {
	if f.ProfileCount < p.MinProfiles {
		return false
	}
	if p.MaxProfiles > 0 && f.ProfileCount > p.MaxProfiles {
		return false
	}
	if f.PlaqueCount < p.MinPlaques {
		return false
	}
	if p.Material != "" && !f.Materials[p.Material] {
		return false
	}
	return true
}

// RuleEffect is the discount a matching rule yields. PercentBps is in basis
// points (1000 = 10%); AmountOff is a flat amount in cents. Both may be set;
// they add up.
type RuleEffect struct {
	PercentBps int64
	AmountOff  int64
}

// Amount computes the discount for an order subtotal, rounding down.
func (e RuleEffect) Amount(subtotal int64) int64 {
	return subtotal*e.PercentBps/10000 + e.AmountOff
}

// DiscountRule is one predicate/effect pair. Rules are evaluated in
// descending priority order and the first match wins.
type DiscountRule struct {
	Slug      string
	Name      string
	Priority  int
	Predicate RulePredicate
	Effect    RuleEffect
}

// OrderFacts summarizes a whole order for rule predicates.
type OrderFacts struct {
	ProfileCount int
	PlaqueCount  int
	Subtotal     int64
	Materials    map[string]bool
}

// Snapshot is the immutable catalog state a price computation runs against.
// Snapshots are versioned; pricing the same request against the same version
// always yields the same itemization.
type Snapshot struct {
	Version        int
	Plans          map[string]PlanType
	StorageOptions map[string]StorageOption
	Materials      map[string]PlaqueMaterial
	Addons         map[string]Addon
	Rules          []DiscountRule
}

// NewSnapshot indexes catalog entities and orders the discount rules by
// descending priority (slug as a deterministic tiebreak).
func NewSnapshot(version int, plans []PlanType, storage []StorageOption, materials []PlaqueMaterial, addons []Addon, rules []DiscountRule) (*Snapshot, error) {
	if version <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	s := &Snapshot{
		Version:        version,
		Plans:          make(map[string]PlanType, len(plans)),
		StorageOptions: make(map[string]StorageOption, len(storage)),
		Materials:      make(map[string]PlaqueMaterial, len(materials)),
		Addons:         make(map[string]Addon, len(addons)),
		Rules:          make([]DiscountRule, len(rules)),
	}
	for _, p := range plans {
		s.Plans[p.Slug] = p
	}
	for _, o := range storage {
		s.StorageOptions[o.ID] = o
	}
	for _, m := range materials {
		s.Materials[m.Slug] = m
	}
	for _, a := range addons {
		s.Addons[a.Slug] = a
	}
	copy(s.Rules, rules)
	sort.SliceStable(s.Rules, func(i, j int) bool {
		if s.Rules[i].Priority != s.Rules[j].Priority {
			return s.Rules[i].Priority > s.Rules[j].Priority
		}
		return s.Rules[i].Slug < s.Rules[j].Slug
	})
	return s, nil
}

// Plan resolves a plan slug.
func (s *Snapshot) Plan(slug string) (PlanType, bool) {
	p, ok := s.Plans[slug]
	return p, ok
}

// Storage resolves a storage option id.
func (s *Snapshot) Storage(id string) (StorageOption, bool) {
	o, ok := s.StorageOptions[id]
	return o, ok
}

// Material resolves a plaque material slug.
func (s *Snapshot) Material(slug string) (PlaqueMaterial, bool) {
	m, ok := s.Materials[slug]
	return m, ok
}

// Addon resolves an add-on slug.
func (s *Snapshot) Addon(slug string) (Addon, bool) {
	a, ok := s.Addons[slug]
	return a, ok
}
