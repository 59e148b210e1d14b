package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"aeternis-checkout/internal/domain"
	"aeternis-checkout/internal/domain/model"
	"aeternis-checkout/internal/domain/ports/adapter"
	"aeternis-checkout/internal/domain/ports/repository"
)

// Session is what OpenSession hands back to the client for redirection.
type Session struct {
	SessionID   string
	RedirectURL string
}

// CheckoutUseCase opens processor-hosted checkout sessions for priced orders
// and serves non-authoritative session-status reads.
type CheckoutUseCase interface {
	// OpenSession creates a checkout session for the order. At most one
	// non-terminal session may exist per order; a second call fails with
	// domain.ErrAlreadySessioned unless supersede is set and the prior
	// session is past its expiry horizon.
	OpenSession(ctx context.Context, orderID string, supersede bool) (*Session, error)
	// SessionStatus proxies the processor's reported status. It never mutates
	// local state and must not be used to drive transitions.
	SessionStatus(ctx context.Context, sessionID string) (adapter.SessionStatus, error)
}

var _ CheckoutUseCase = (*checkoutUC)(nil)

type checkoutUC struct {
	orders         repository.OrderRepository
	payments       repository.PaymentRepository
	gateway        adapter.CheckoutGateway
	tx             repository.TransactionManager
	requestTimeout time.Duration
	sessionTTL     time.Duration // processor-side session lifetime
	log            *zerolog.Logger
}

func NewCheckoutUseCase(
	orders repository.OrderRepository,
	payments repository.PaymentRepository,
	gateway adapter.CheckoutGateway,
	tx repository.TransactionManager,
	requestTimeout, sessionTTL time.Duration,
	logger *zerolog.Logger,
) *checkoutUC {
	if requestTimeout <= 0 {
		requestTimeout = 15 * time.Second
	}
	if sessionTTL <= 0 {
		sessionTTL = 30 * time.Minute
	}
	return &checkoutUC{
		orders:         orders,
		payments:       payments,
		gateway:        gateway,
		tx:             tx,
		requestTimeout: requestTimeout,
		sessionTTL:     sessionTTL,
		log:            logger,
	}
}

func (u *checkoutUC) OpenSession(ctx context.Context, orderID string, supersede bool) (*Session, error) {
	order, err := u.orders.FindByID(ctx, repository.NoTX, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, fmt.Errorf("order %s is %s: %w", order.ID, order.Status, domain.ErrInvalidArgument)
	}

	// Fast-fail before the processor round trip. This read is not
	// authoritative; the same check runs again under the order row lock
	// before anything is written.
	if pending, err := u.payments.FindPendingByOrder(ctx, repository.NoTX, order.ID); err == nil {
		if !supersede || time.Since(pending.CreatedAt) < u.sessionTTL {
			return nil, domain.ErrAlreadySessioned
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	paymentID := uuid.NewString()

	// The processor call is the only network-bound step here; bound it so a
	// slow processor cannot hang the caller, and keep it outside the
	// transaction so it never holds the order lock. An attempt that loses
	// the race below abandons its processor session, which expires on its
	// own.
	gwCtx, cancel := context.WithTimeout(ctx, u.requestTimeout)
	defer cancel()
	info, err := u.gateway.CreateSession(gwCtx, adapter.SessionRequest{
		OrderID:       order.ID,
		OrderNumber:   order.Number,
		AttemptID:     paymentID,
		CustomerEmail: order.CustomerEmail,
		Amount:        order.TotalAmount,
		Items:         sessionItems(order),
	})
	if err != nil {
		u.log.Warn().Err(err).Str("order_id", order.ID).Msg("session creation failed")
		return nil, err
	}

	payment, err := model.NewPayment(paymentID, order.ID, u.gateway.Name(), info.ID, order.TotalAmount)
	if err != nil {
		return nil, err
	}

	err = u.tx.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		// The order row lock serializes concurrent opens: the pending check,
		// the supersession bookkeeping, and the insert see one consistent
		// state.
		locked, err := u.orders.FindByID(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if locked.Status.Terminal() {
			return fmt.Errorf("order %s is %s: %w", locked.ID, locked.Status, domain.ErrInvalidArgument)
		}

		pending, err := u.payments.FindPendingByOrder(ctx, tx, locked.ID)
		switch {
		case err == nil:
			if !supersede || time.Since(pending.CreatedAt) < u.sessionTTL {
				return domain.ErrAlreadySessioned
			}
			// Supersession bookkeeping only: the stale payment is closed out
			// so a fresh session can be opened. The order still reaches
			// terminal states exclusively through the webhook reconciler.
			if err := u.payments.UpdateStatus(ctx, tx, pending.ID, model.PaymentStatusExpired, nil); err != nil {
				return err
			}
			u.log.Info().Str("payment_id", pending.ID).Str("order_id", locked.ID).Msg("stale checkout session superseded")
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		if err := u.payments.Save(ctx, tx, payment); err != nil {
			return err
		}
		if locked.Status == model.OrderStatusCreated {
			return u.orders.UpdateStatus(ctx, tx, locked.ID, model.OrderStatusAwaitingPayment)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.log.Info().
		Str("order_id", order.ID).
		Str("payment_id", payment.ID).
		Str("session_id", info.ID).
		Msg("checkout session opened")
	return &Session{SessionID: info.ID, RedirectURL: info.RedirectURL}, nil
}

func (u *checkoutUC) SessionStatus(ctx context.Context, sessionID string) (adapter.SessionStatus, error) {
	if sessionID == "" {
		return adapter.SessionStatus{}, domain.ErrInvalidArgument
	}
	gwCtx, cancel := context.WithTimeout(ctx, u.requestTimeout)
	defer cancel()
	return u.gateway.SessionStatus(gwCtx, sessionID)
}

// sessionItems maps the order's stored line items onto the processor's
// display lines, so the hosted page shows exactly what was priced.
func sessionItems(order *model.Order) []adapter.SessionLineItem {
	items := make([]adapter.SessionLineItem, 0, len(order.LineItems))
	for _, li := range order.LineItems {
		items = append(items, adapter.SessionLineItem{
			Name:     li.Description,
			Quantity: 1,
			Amount:   li.Amount,
		})
	}
	return items
}
