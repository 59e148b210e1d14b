package usecase

import (
	"context"
	"crypto/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"aeternis-checkout/internal/domain"
	"aeternis-checkout/internal/domain/model"
	"aeternis-checkout/internal/domain/ports/repository"
)

// OrderUseCase persists priced orders and serves lookups.
type OrderUseCase interface {
	// Submit prices the profiles against the active catalog snapshot and
	// persists a new order. Every call creates a new order; idempotency at
	// this layer is deliberately not provided.
	Submit(ctx context.Context, customerEmail string, profiles []model.OrderProfile) (*model.Order, error)
	Get(ctx context.Context, id string) (*model.Order, error)
	ListByEmail(ctx context.Context, email string) ([]*model.Order, error)
}

var _ OrderUseCase = (*orderUC)(nil)

type orderUC struct {
	orders  repository.OrderRepository
	catalog repository.CatalogRepository
	log     *zerolog.Logger
}

func NewOrderUseCase(orders repository.OrderRepository, catalog repository.CatalogRepository, logger *zerolog.Logger) *orderUC {
	return &orderUC{orders: orders, catalog: catalog, log: logger}
}

func (u *orderUC) Submit(ctx context.Context, customerEmail string, profiles []model.OrderProfile) (*model.Order, error) {
	snap, err := u.catalog.ActiveSnapshot(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	it, err := Price(profiles, snap)
	if err != nil {
		return nil, err
	}

	order, err := model.NewOrder(
		uuid.NewString(),
		newOrderNumber(),
		customerEmail,
		profiles,
		it.LineItems,
		it.Total,
		it.CatalogVersion,
	)
	if err != nil {
		return nil, err
	}
	if err := u.orders.Save(ctx, repository.NoTX, order); err != nil {
		return nil, err
	}

	u.log.Info().
		Str("order_id", order.ID).
		Str("order_number", order.Number).
		Int64("total", order.TotalAmount).
		Int("catalog_version", order.CatalogVersion).
		Msg("order submitted")
	return order, nil
}

func (u *orderUC) Get(ctx context.Context, id string) (*model.Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.orders.FindByID(ctx, repository.NoTX, id)
}

func (u *orderUC) ListByEmail(ctx context.Context, email string) ([]*model.Order, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.orders.ListByEmail(ctx, repository.NoTX, email)
}

// newOrderNumber mints the customer-facing order number. ULIDs sort by time,
// which keeps support lookups and exports in submission order.
func newOrderNumber() string {
	return "AE-" + ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}
