package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"aeternis-checkout/internal/domain"
	"aeternis-checkout/internal/domain/model"
	"aeternis-checkout/internal/domain/ports/adapter"
	"aeternis-checkout/internal/domain/ports/repository"
)

// WebhookResult tells the transport layer how an event was disposed of, so it
// can pick the right acknowledgement without re-deriving reconciler logic.
type WebhookResult struct {
	EventID   string
	SessionID string
	Kind      adapter.EventKind
	Applied   bool  // a state transition was committed
	Duplicate bool  // event id was already processed, or payment already terminal
	Amount    int64 // payment amount in cents, set when Applied
}

// WebhookUseCase is the reconciliation pipeline for processor notifications:
// verify, deduplicate, resolve, transition, persist — atomically per event.
type WebhookUseCase interface {
	Handle(ctx context.Context, payload []byte, signatureHeader string) (*WebhookResult, error)
}

var _ WebhookUseCase = (*webhookUC)(nil)

type webhookUC struct {
	payments repository.PaymentRepository
	orders   repository.OrderRepository
	events   repository.WebhookEventRepository
	gateway  adapter.CheckoutGateway
	tx       repository.TransactionManager
	log      *zerolog.Logger
}

func NewWebhookUseCase(
	payments repository.PaymentRepository,
	orders repository.OrderRepository,
	events repository.WebhookEventRepository,
	gateway adapter.CheckoutGateway,
	tx repository.TransactionManager,
	logger *zerolog.Logger,
) *webhookUC {
	return &webhookUC{
		payments: payments,
		orders:   orders,
		events:   events,
		gateway:  gateway,
		tx:       tx,
		log:      logger,
	}
}

// Handle applies one inbound processor event.
//
// Deliveries are at-least-once and unordered: the same event id may arrive
// any number of times, and a late "expired" may follow a "succeeded" for the
// same payment. The transaction locks the payment row (FOR UPDATE inside
// FindBySessionID), so two concurrent deliveries for one payment cannot both
// observe pending; the dedup record, payment status, order status, and event
// log all commit as one unit.
func (u *webhookUC) Handle(ctx context.Context, payload []byte, signatureHeader string) (*WebhookResult, error) {
	ev, err := u.gateway.ParseEvent(payload, signatureHeader)
	if err != nil {
		// Forged or corrupt events never reach the store: no state change,
		// no dedup record.
		return nil, err
	}

	res := &WebhookResult{EventID: ev.ID, SessionID: ev.SessionID, Kind: ev.Kind}
	if ev.Kind == adapter.EventIgnored {
		return res, nil
	}

	target, ok := paymentStatusFor(ev.Kind)
	if !ok {
		return nil, fmt.Errorf("event %s kind %q: %w", ev.ID, ev.Kind, domain.ErrInvalidArgument)
	}

	err = u.tx.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		seen, err := u.events.Exists(ctx, tx, ev.ID)
		if err != nil {
			return err
		}
		if seen {
			res.Duplicate = true
			return nil
		}

		payment, err := u.payments.FindBySessionID(ctx, tx, ev.SessionID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("event %s session %s: %w", ev.ID, ev.SessionID, domain.ErrUnknownSession)
			}
			return err
		}

		if payment.Status.Terminal() {
			// Duplicate terminal notification under a fresh event id. No
			// transition is authorized, so no dedup record is written either;
			// the terminal check itself keeps the replay harmless.
			res.Duplicate = true
			return nil
		}
		if !payment.Status.CanTransition(target) {
			return fmt.Errorf("payment %s %s -> %s: %w", payment.ID, payment.Status, target, domain.ErrInvalidArgument)
		}

		var paidAt *time.Time
		if target == model.PaymentStatusSucceeded {
			now := time.Now()
			paidAt = &now
		}
		if err := u.payments.UpdateStatus(ctx, tx, payment.ID, target, paidAt); err != nil {
			return err
		}
		orderStatus, _ := target.OrderOutcome()
		if err := u.orders.UpdateStatus(ctx, tx, payment.OrderID, orderStatus); err != nil {
			return err
		}
		if err := u.payments.AppendEvent(ctx, tx, payment.ID, ev.Raw); err != nil {
			return err
		}
		if err := u.events.Record(ctx, tx, &model.ProcessedWebhookEvent{EventID: ev.ID, ReceivedAt: time.Now()}); err != nil {
			return err
		}

		res.Applied = true
		res.Amount = payment.Amount
		u.log.Info().
			Str("event_id", ev.ID).
			Str("payment_id", payment.ID).
			Str("order_id", payment.OrderID).
			Str("status", string(target)).
			Msg("payment reconciled")
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnknownSession) || errors.Is(err, domain.ErrInvalidArgument) {
			return nil, err
		}
		// Anything else is a transient persistence failure: the transaction
		// rolled back whole, so surfacing retryable is safe — redelivery will
		// find no dedup record and re-apply cleanly.
		return nil, fmt.Errorf("event %s: %v: %w", ev.ID, err, domain.ErrOperationFailed)
	}
	return res, nil
}

func paymentStatusFor(kind adapter.EventKind) (model.PaymentStatus, bool) {
	switch kind {
	case adapter.EventSucceeded:
		return model.PaymentStatusSucceeded, true
	case adapter.EventFailed:
		return model.PaymentStatusFailed, true
	case adapter.EventExpired:
		return model.PaymentStatusExpired, true
	}
	return "", false
}
