package adapter

import (
	"context"
	"time"
)

// SessionLineItem is one display line sent to the processor's hosted page.
type SessionLineItem struct {
	Name        string
	Description string
	Quantity    int64
	Amount      int64 // unit amount in cents; negative for discounts
}

// SessionRequest carries everything the processor needs to open a hosted
// checkout session for a priced order.
type SessionRequest struct {
	OrderID     string
	OrderNumber string
	// AttemptID is unique per session-open attempt and scopes the
	// processor's idempotency: superseding a stale session must produce a
	// fresh processor session, not a cached replay of the old one.
	AttemptID     string
	CustomerEmail string
	Amount        int64 // order total in cents
	Items         []SessionLineItem
}

// SessionInfo is the processor's answer to a session-creation request.
type SessionInfo struct {
	ID          string
	RedirectURL string
	ExpiresAt   time.Time
}

// SessionStatus is the processor's reported view of a session. It exists for
// client polling only and is never authoritative for state transitions.
type SessionStatus struct {
	Status        string
	PaymentStatus string
	CustomerEmail string
}

// EventKind is the normalized meaning of a processor webhook event.
type EventKind string

const (
	EventSucceeded EventKind = "succeeded"
	EventFailed    EventKind = "failed"
	EventExpired   EventKind = "expired"
	// EventIgnored marks event types this system does not act on; they are
	// acknowledged without touching any state.
	EventIgnored EventKind = "ignored"
)

// WebhookEvent is a verified, normalized processor notification.
type WebhookEvent struct {
	ID        string // processor-assigned, globally unique; dedup key
	Kind      EventKind
	SessionID string
	Raw       []byte // original event body, appended to the payment log
}

// CheckoutGateway is the hex port for the external payment processor.
type CheckoutGateway interface {
	Name() string

	// CreateSession opens a processor-hosted checkout session. Implementations
	// must bound the call with a timeout and surface
	// domain.ErrProcessorUnavailable on failure or expiry.
	CreateSession(ctx context.Context, req SessionRequest) (SessionInfo, error)

	// SessionStatus is a pass-through read keyed by session id.
	SessionStatus(ctx context.Context, sessionID string) (SessionStatus, error)

	// ParseEvent verifies the payload signature against the shared webhook
	// secret and normalizes the event. A bad signature yields
	// domain.ErrInvalidSignature and nothing else happens.
	ParseEvent(payload []byte, signatureHeader string) (WebhookEvent, error)
}
