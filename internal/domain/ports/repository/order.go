package repository

import (
	"context"

	"aeternis-checkout/internal/domain/model"
)

// OrderRepository persists orders and their computed line items. Line items
// are written once at Save and never updated; only the status column moves.
type OrderRepository interface {
	Save(ctx context.Context, tx Tx, o *model.Order) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Order, error)
	ListByEmail(ctx context.Context, tx Tx, email string) ([]*model.Order, error)
	// UpdateStatus applies a status transition. Implementations must reject
	// transitions the current status does not allow (model.OrderStatus
	// CanTransition) with domain.ErrInvalidArgument.
	UpdateStatus(ctx context.Context, tx Tx, id string, status model.OrderStatus) error
	CountByStatus(ctx context.Context, tx Tx) (map[model.OrderStatus]int, error)
}
