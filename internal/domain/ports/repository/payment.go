package repository

import (
	"context"
	"time"

	"aeternis-checkout/internal/domain/model"
)

// -----------------------------
// Payments
// -----------------------------

type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	// FindBySessionID resolves a payment by processor session id. Inside a
	// transaction the row is locked (FOR UPDATE) so concurrent webhook
	// deliveries for the same payment serialize.
	FindBySessionID(ctx context.Context, tx Tx, sessionID string) (*model.Payment, error)
	// FindPendingByOrder returns the order's non-terminal payment, or
	// domain.ErrNotFound when every payment on the order is terminal.
	FindPendingByOrder(ctx context.Context, tx Tx, orderID string) (*model.Payment, error)
	UpdateStatus(ctx context.Context, tx Tx, id string, status model.PaymentStatus, paidAt *time.Time) error
	// AppendEvent appends a raw processor event body to the payment's
	// append-only event log.
	AppendEvent(ctx context.Context, tx Tx, id string, raw []byte) error
	ListPendingOlderThan(ctx context.Context, tx Tx, cutoff time.Time, limit int) ([]*model.Payment, error)
	// SumByPeriod totals succeeded payments for "week" | "month" | "year".
	SumByPeriod(ctx context.Context, tx Tx, period string) (int64, error)
}

// -----------------------------
// Webhook event deduplication
// -----------------------------

type WebhookEventRepository interface {
	Exists(ctx context.Context, tx Tx, eventID string) (bool, error)
	Record(ctx context.Context, tx Tx, ev *model.ProcessedWebhookEvent) error
}
