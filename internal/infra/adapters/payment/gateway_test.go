//go:build !integration

package payment

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"

	"aeternis-checkout/internal/config"
	"aeternis-checkout/internal/domain"
	"aeternis-checkout/internal/domain/ports/adapter"
)

// --- Stripe gateway ---

func TestNewStripeGateway(t *testing.T) {
	t.Run("builds with defaults", func(t *testing.T) {
		g, err := NewStripeGateway(&config.StripeConfig{
			SecretKey:     "sk_test_123",
			WebhookSecret: "whsec_123",
		})
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if g.Name() != "stripe" {
			t.Errorf("name: want stripe, got %s", g.Name())
		}
		if g.sessionTTL != 30*time.Minute {
			t.Errorf("session ttl default: want 30m, got %v", g.sessionTTL)
		}
	})

	t.Run("rejects a missing secret key", func(t *testing.T) {
		if _, err := NewStripeGateway(&config.StripeConfig{WebhookSecret: "whsec_123"}); err == nil {
			t.Fatal("expected an error for a missing secret key")
		}
	})

	t.Run("rejects a missing webhook secret", func(t *testing.T) {
		if _, err := NewStripeGateway(&config.StripeConfig{SecretKey: "sk_test_123"}); err == nil {
			t.Fatal("expected an error for a missing webhook secret")
		}
	})
}

func TestSessionParamsIdempotencyKey(t *testing.T) {
	g, err := NewStripeGateway(&config.StripeConfig{
		SecretKey:     "sk_test_123",
		WebhookSecret: "whsec_123",
	})
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}

	req := adapter.SessionRequest{OrderID: "order-1", OrderNumber: "AE-1", AttemptID: "attempt-1", Amount: 130}

	t.Run("same attempt keys the same operation", func(t *testing.T) {
		a := g.sessionParams(req).IdempotencyKey
		b := g.sessionParams(req).IdempotencyKey
		if a == nil || b == nil || *a != *b {
			t.Fatalf("want identical keys, got %v and %v", a, b)
		}
	})

	t.Run("a new attempt on the same order gets a fresh key", func(t *testing.T) {
		retry := req
		retry.AttemptID = "attempt-2"
		a := g.sessionParams(req).IdempotencyKey
		b := g.sessionParams(retry).IdempotencyKey
		if a == nil || b == nil {
			t.Fatal("idempotency key not set")
		}
		if *a == *b {
			t.Fatalf("superseding attempt must not reuse the key %q", *a)
		}
	})
}

func TestSessionLines(t *testing.T) {
	t.Run("undiscounted orders keep one line per item", func(t *testing.T) {
		lines := sessionLines(adapter.SessionRequest{
			OrderNumber: "AE-1",
			Amount:      150,
			Items: []adapter.SessionLineItem{
				{Name: "MyAeternis plan", Quantity: 1, Amount: 100},
				{Name: "Engraving", Quantity: 2, Amount: 25},
			},
		})
		if len(lines) != 2 {
			t.Fatalf("want 2 lines, got %d", len(lines))
		}
		if *lines[0].PriceData.UnitAmount != 100 || *lines[1].Quantity != 2 {
			t.Errorf("line mismatch: %+v", lines)
		}
	})

	t.Run("zero quantity is clamped to one", func(t *testing.T) {
		lines := sessionLines(adapter.SessionRequest{
			Amount: 100,
			Items:  []adapter.SessionLineItem{{Name: "Plan", Amount: 100}},
		})
		if *lines[0].Quantity != 1 {
			t.Errorf("quantity: want 1, got %d", *lines[0].Quantity)
		}
	})

	t.Run("a discount collapses the order to one aggregate line", func(t *testing.T) {
		lines := sessionLines(adapter.SessionRequest{
			OrderNumber: "AE-2",
			Amount:      234,
			Items: []adapter.SessionLineItem{
				{Name: "MyAeternis plan", Quantity: 2, Amount: 130},
				{Name: "Duo bundle", Quantity: 1, Amount: -26},
			},
		})
		if len(lines) != 1 {
			t.Fatalf("want 1 collapsed line, got %d", len(lines))
		}
		if *lines[0].PriceData.UnitAmount != 234 {
			t.Errorf("unit amount: want 234, got %d", *lines[0].PriceData.UnitAmount)
		}
		if *lines[0].PriceData.ProductData.Name != "Order AE-2" {
			t.Errorf("name: got %s", *lines[0].PriceData.ProductData.Name)
		}
	})
}

const testWebhookSecret = "whsec_test_secret"

// signedHeader produces a Stripe-Signature header the verifier accepts.
func signedHeader(payload []byte, secret string, at time.Time) string {
	sig := webhook.ComputeSignature(at, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(sig))
}

func sessionEvent(eventType, sessionID, paymentStatus string) []byte {
	return []byte(fmt.Sprintf(
		`{"id":"evt_1","api_version":%q,"type":%q,"data":{"object":{"id":%q,"object":"checkout.session","payment_status":%q}}}`,
		stripe.APIVersion, eventType, sessionID, paymentStatus))
}

func newTestStripeGateway(t *testing.T) *StripeGateway {
	t.Helper()
	g, err := NewStripeGateway(&config.StripeConfig{
		SecretKey:     "sk_test_123",
		WebhookSecret: testWebhookSecret,
	})
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}
	return g
}

func TestStripeParseEvent(t *testing.T) {
	t.Run("maps settlement event types", func(t *testing.T) {
		testCases := []struct {
			eventType     string
			paymentStatus string
			want          adapter.EventKind
		}{
			{"checkout.session.completed", "paid", adapter.EventSucceeded},
			{"checkout.session.completed", "unpaid", adapter.EventIgnored},
			{"checkout.session.async_payment_succeeded", "paid", adapter.EventSucceeded},
			{"checkout.session.async_payment_failed", "unpaid", adapter.EventFailed},
			{"checkout.session.expired", "unpaid", adapter.EventExpired},
		}
		g := newTestStripeGateway(t)
		for _, tc := range testCases {
			t.Run(tc.eventType+"/"+tc.paymentStatus, func(t *testing.T) {
				payload := sessionEvent(tc.eventType, "cs_test_1", tc.paymentStatus)
				ev, err := g.ParseEvent(payload, signedHeader(payload, testWebhookSecret, time.Now()))
				if err != nil {
					t.Fatalf("parse: %v", err)
				}
				if ev.Kind != tc.want {
					t.Errorf("kind: want %s, got %s", tc.want, ev.Kind)
				}
				if ev.ID != "evt_1" || ev.SessionID != "cs_test_1" {
					t.Errorf("event mismatch: %+v", ev)
				}
			})
		}
	})

	t.Run("unhandled event types are ignored", func(t *testing.T) {
		g := newTestStripeGateway(t)
		payload := []byte(fmt.Sprintf(
			`{"id":"evt_2","api_version":%q,"type":"charge.updated","data":{"object":{"id":"ch_1"}}}`,
			stripe.APIVersion))
		ev, err := g.ParseEvent(payload, signedHeader(payload, testWebhookSecret, time.Now()))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if ev.Kind != adapter.EventIgnored || ev.SessionID != "" {
			t.Errorf("event mismatch: %+v", ev)
		}
	})

	t.Run("rejects a forged signature", func(t *testing.T) {
		g := newTestStripeGateway(t)
		payload := sessionEvent("checkout.session.completed", "cs_test_1", "paid")
		if _, err := g.ParseEvent(payload, signedHeader(payload, "whsec_other", time.Now())); !errors.Is(err, domain.ErrInvalidSignature) {
			t.Errorf("want ErrInvalidSignature, got %v", err)
		}
	})

	t.Run("rejects a stale timestamp", func(t *testing.T) {
		g := newTestStripeGateway(t)
		payload := sessionEvent("checkout.session.completed", "cs_test_1", "paid")
		stale := time.Now().Add(-time.Hour)
		if _, err := g.ParseEvent(payload, signedHeader(payload, testWebhookSecret, stale)); !errors.Is(err, domain.ErrInvalidSignature) {
			t.Errorf("want ErrInvalidSignature, got %v", err)
		}
	})
}

// --- Noop gateway ---

func TestNoopGateway(t *testing.T) {
	ctx := context.Background()

	t.Run("create session then poll status", func(t *testing.T) {
		g := NewNoopGateway()
		info, err := g.CreateSession(ctx, adapter.SessionRequest{OrderID: "order-1", Amount: 130})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if info.ID == "" || info.RedirectURL == "" {
			t.Errorf("session info mismatch: %+v", info)
		}
		st, err := g.SessionStatus(ctx, info.ID)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		if st.Status != "open" || st.PaymentStatus != "unpaid" {
			t.Errorf("status mismatch: %+v", st)
		}
	})

	t.Run("unknown sessions are reported as such", func(t *testing.T) {
		g := NewNoopGateway()
		if _, err := g.SessionStatus(ctx, "ghost"); !errors.Is(err, domain.ErrUnknownSession) {
			t.Errorf("want ErrUnknownSession, got %v", err)
		}
	})

	t.Run("parse requires the noop signature", func(t *testing.T) {
		g := NewNoopGateway()
		payload := []byte(`{"id":"evt-1","kind":"succeeded","session_id":"noop_sess_1"}`)

		if _, err := g.ParseEvent(payload, "forged"); !errors.Is(err, domain.ErrInvalidSignature) {
			t.Errorf("want ErrInvalidSignature, got %v", err)
		}

		ev, err := g.ParseEvent(payload, "noop")
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if ev.Kind != adapter.EventSucceeded || ev.SessionID != "noop_sess_1" {
			t.Errorf("event mismatch: %+v", ev)
		}
	})

	t.Run("unrecognized kinds are ignored", func(t *testing.T) {
		g := NewNoopGateway()
		ev, err := g.ParseEvent([]byte(`{"id":"evt-2","kind":"charge.updated","session_id":"s"}`), "noop")
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if ev.Kind != adapter.EventIgnored {
			t.Errorf("kind: want ignored, got %s", ev.Kind)
		}
	})
}
