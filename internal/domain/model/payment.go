package model

import (
	"encoding/json"
	"time"

	"aeternis-checkout/internal/domain"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"   // session opened; awaiting webhook
	PaymentStatusSucceeded PaymentStatus = "succeeded" // terminal
	PaymentStatusFailed    PaymentStatus = "failed"    // terminal
	PaymentStatusExpired   PaymentStatus = "expired"   // terminal
)

// Terminal reports whether s admits no further transition.
func (s PaymentStatus) Terminal() bool { return s != PaymentStatusPending && s != "" }

// CanTransition reports whether s -> to is legal. The only legal moves are
// pending -> terminal; duplicate terminal notifications are expected under
// at-least-once delivery and must be treated as no-ops, not errors.
func (s PaymentStatus) CanTransition(to PaymentStatus) bool {
	return s == PaymentStatusPending && to.Terminal()
}

// OrderOutcome maps a terminal payment status onto the order status that
// mirrors it.
func (s PaymentStatus) OrderOutcome() (OrderStatus, bool) {
	switch s {
	case PaymentStatusSucceeded:
		return OrderStatusPaid, true
	case PaymentStatusFailed:
		return OrderStatusPaymentFailed, true
	case PaymentStatusExpired:
		return OrderStatusExpired, true
	}
	return "", false
}

// Payment records one processor checkout session for an order. An order has
// at most one non-terminal payment at a time but accumulates historical
// records across session retries.
type Payment struct {
	ID          string // UUID
	OrderID     string
	Provider    string // e.g. "stripe"
	SessionID   string // processor checkout session id
	Amount      int64  // cents, equals the order total at session time
	Status      PaymentStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
	PaidAt      *time.Time        // set when succeeded
	RawEventLog []json.RawMessage // append-only processor event bodies
}

// NewPayment validates and constructs a pending payment.
func NewPayment(id, orderID, provider, sessionID string, amount int64) (*Payment, error) {
	if id == "" || orderID == "" || provider == "" || sessionID == "" || amount < 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Payment{
		ID:        id,
		OrderID:   orderID,
		Provider:  provider,
		SessionID: sessionID,
		Amount:    amount,
		Status:    PaymentStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ProcessedWebhookEvent marks a processor event id as applied. Its existence
// is the sole deduplication signal; it is written in the same transaction as
// the state transition it authorized, never independently.
type ProcessedWebhookEvent struct {
	EventID    string
	ReceivedAt time.Time
}
