package model

import (
	"strings"
	"time"

	"aeternis-checkout/internal/domain"
)

type OrderStatus string

const (
	OrderStatusCreated         OrderStatus = "created"          // persisted, not yet sessioned
	OrderStatusAwaitingPayment OrderStatus = "awaiting_payment" // checkout session opened
	OrderStatusPaid            OrderStatus = "paid"             // terminal
	OrderStatusExpired         OrderStatus = "expired"          // terminal
	OrderStatusPaymentFailed   OrderStatus = "payment_failed"   // terminal
)

// Terminal reports whether no further transition is legal from s.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusPaid, OrderStatusExpired, OrderStatusPaymentFailed:
		return true
	}
	return false
}

// CanTransition reports whether s -> to is a legal order transition.
// Terminal states are only reachable from awaiting_payment, and only the
// webhook reconciler drives those transitions.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	switch s {
	case OrderStatusCreated:
		return to == OrderStatusAwaitingPayment
	case OrderStatusAwaitingPayment:
		return to.Terminal()
	}
	return false
}

// OrderPlaque is one physical plaque within a profile.
type OrderPlaque struct {
	MaterialSlug string
	Magnet       bool
	Engraving    bool
}

// OrderProfile is one priced unit within an order: a plan selection plus its
// plaques.
type OrderProfile struct {
	Name            string
	PlanSlug        string
	StorageOptionID string
	ExtensionYears  int
	Plaques         []OrderPlaque
}

type LineItemKind string

const (
	LineItemPlan      LineItemKind = "plan"
	LineItemStorage   LineItemKind = "storage"
	LineItemExtension LineItemKind = "extension"
	LineItemPlaque    LineItemKind = "plaque"
	LineItemAddon     LineItemKind = "addon"
	LineItemDiscount  LineItemKind = "discount"
)

// LineItem is one computed price component. ProfileIndex is -1 for
// order-level items such as discounts. Amount is in cents and negative for
// discounts.
type LineItem struct {
	ProfileIndex int
	Kind         LineItemKind
	Description  string
	Amount       int64
}

// Order is the persisted checkout order. Line items and total are computed
// once at submission and never mutated afterwards; only Status changes, and
// only through CanTransition-legal moves applied by the store.
type Order struct {
	ID             string // UUID
	Number         string // customer-facing, AE-<ULID>
	CustomerEmail  string
	Profiles       []OrderProfile
	LineItems      []LineItem
	TotalAmount    int64
	CatalogVersion int // snapshot version the order was priced under
	Status         OrderStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewOrder validates and constructs an order in the created state.
func NewOrder(id, number, email string, profiles []OrderProfile, items []LineItem, total int64, catalogVersion int) (*Order, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if id == "" || number == "" || email == "" || !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidArgument
	}
	if len(profiles) == 0 || total < 0 || catalogVersion <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Order{
		ID:             id,
		Number:         number,
		CustomerEmail:  email,
		Profiles:       profiles,
		LineItems:      items,
		TotalAmount:    total,
		CatalogVersion: catalogVersion,
		Status:         OrderStatusCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}
