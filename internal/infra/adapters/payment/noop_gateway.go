package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"aeternis-checkout/internal/domain"
	"aeternis-checkout/internal/domain/ports/adapter"
)

var _ adapter.CheckoutGateway = (*NoopGateway)(nil)

// NoopGateway is a simple in-memory gateway for tests and local development.
// Events "signed" with the literal header "noop" pass verification.
type NoopGateway struct {
	mu       sync.Mutex
	seq      int64
	sessions map[string]int64 // session id -> amount
}

func NewNoopGateway() *NoopGateway {
	return &NoopGateway{sessions: make(map[string]int64)}
}

func (g *NoopGateway) Name() string { return "noop" }

func (g *NoopGateway) next() string {
	g.seq++
	return fmt.Sprintf("noop_sess_%d", g.seq)
}

func (g *NoopGateway) CreateSession(ctx context.Context, req adapter.SessionRequest) (adapter.SessionInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.next()
	g.sessions[id] = req.Amount
	return adapter.SessionInfo{
		ID:          id,
		RedirectURL: "https://example.test/pay/" + id,
		ExpiresAt:   time.Now().Add(30 * time.Minute),
	}, nil
}

func (g *NoopGateway) SessionStatus(ctx context.Context, sessionID string) (adapter.SessionStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.sessions[sessionID]; !ok {
		return adapter.SessionStatus{}, domain.ErrUnknownSession
	}
	return adapter.SessionStatus{Status: "open", PaymentStatus: "unpaid"}, nil
}

func (g *NoopGateway) ParseEvent(payload []byte, signatureHeader string) (adapter.WebhookEvent, error) {
	if signatureHeader != "noop" {
		return adapter.WebhookEvent{}, domain.ErrInvalidSignature
	}
	var body struct {
		ID        string `json:"id"`
		Kind      string `json:"kind"`
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return adapter.WebhookEvent{}, domain.ErrInvalidArgument
	}
	kind := adapter.EventKind(body.Kind)
	switch kind {
	case adapter.EventSucceeded, adapter.EventFailed, adapter.EventExpired:
	default:
		kind = adapter.EventIgnored
	}
	return adapter.WebhookEvent{
		ID:        body.ID,
		Kind:      kind,
		SessionID: body.SessionID,
		Raw:       payload,
	}, nil
}
