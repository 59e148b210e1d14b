package usecase

import (
	"context"

	"aeternis-checkout/internal/domain/model"
	"aeternis-checkout/internal/domain/ports/repository"
)

// StatsUseCase aggregates checkout figures for the admin surface.
type StatsUseCase interface {
	// Revenue returns succeeded-payment totals (cents) for the current week,
	// month, and year.
	Revenue(ctx context.Context) (week, month, year int64, err error)
	// OrderTotals returns order counts grouped by status.
	OrderTotals(ctx context.Context) (map[model.OrderStatus]int, error)
}

var _ StatsUseCase = (*statsUC)(nil)

type statsUC struct {
	orders   repository.OrderRepository
	payments repository.PaymentRepository
}

func NewStatsUseCase(orders repository.OrderRepository, payments repository.PaymentRepository) *statsUC {
	return &statsUC{orders: orders, payments: payments}
}

func (u *statsUC) Revenue(ctx context.Context) (int64, int64, int64, error) {
	week, err := u.payments.SumByPeriod(ctx, repository.NoTX, "week")
	if err != nil {
		return 0, 0, 0, err
	}
	month, err := u.payments.SumByPeriod(ctx, repository.NoTX, "month")
	if err != nil {
		return 0, 0, 0, err
	}
	year, err := u.payments.SumByPeriod(ctx, repository.NoTX, "year")
	if err != nil {
		return 0, 0, 0, err
	}
	return week, month, year, nil
}

func (u *statsUC) OrderTotals(ctx context.Context) (map[model.OrderStatus]int, error) {
	return u.orders.CountByStatus(ctx, repository.NoTX)
}
