package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"

	"aeternis-checkout/internal/config"
	"aeternis-checkout/internal/domain"
	"aeternis-checkout/internal/domain/ports/adapter"
)

var _ adapter.CheckoutGateway = (*StripeGateway)(nil)

// StripeGateway implements adapter.CheckoutGateway on Stripe Checkout:
// hosted sessions for collection, signed webhooks for settlement.
type StripeGateway struct {
	sc            *client.API
	webhookSecret string
	successURL    string
	cancelURL     string
	sessionTTL    time.Duration
}

func NewStripeGateway(cfg *config.StripeConfig) (*StripeGateway, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("stripe secret key empty")
	}
	if cfg.WebhookSecret == "" {
		return nil, errors.New("stripe webhook secret empty")
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &StripeGateway{
		sc:            client.New(cfg.SecretKey, nil),
		webhookSecret: cfg.WebhookSecret,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
		sessionTTL:    ttl,
	}, nil
}

func (g *StripeGateway) Name() string { return "stripe" }

func (g *StripeGateway) CreateSession(ctx context.Context, req adapter.SessionRequest) (adapter.SessionInfo, error) {
	params := g.sessionParams(req)
	params.Context = ctx

	sess, err := g.sc.CheckoutSessions.New(params)
	if err != nil {
		return adapter.SessionInfo{}, fmt.Errorf("create checkout session: %w", domain.ErrProcessorUnavailable)
	}
	return adapter.SessionInfo{
		ID:          sess.ID,
		RedirectURL: sess.URL,
		ExpiresAt:   time.Unix(sess.ExpiresAt, 0),
	}, nil
}

func (g *StripeGateway) sessionParams(req adapter.SessionRequest) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(g.successURL),
		CancelURL:         stripe.String(g.cancelURL),
		CustomerEmail:     stripe.String(req.CustomerEmail),
		ClientReferenceID: stripe.String(req.OrderID),
		ExpiresAt:         stripe.Int64(time.Now().Add(g.sessionTTL).Unix()),
		Metadata: map[string]string{
			"order_id":     req.OrderID,
			"order_number": req.OrderNumber,
		},
	}
	// Keyed per attempt, not per order: Stripe replays the cached response
	// for a reused key, which would hand a superseding open the old
	// (expired) session back.
	params.SetIdempotencyKey(req.OrderID + ":" + req.AttemptID)
	params.LineItems = sessionLines(req)
	return params
}

// sessionLines maps order line items onto the hosted page. The processor
// rejects negative unit amounts, so an order carrying a discount collapses to
// a single line at the discounted total.
func sessionLines(req adapter.SessionRequest) []*stripe.CheckoutSessionLineItemParams {
	for _, item := range req.Items {
		if item.Amount < 0 {
			return []*stripe.CheckoutSessionLineItemParams{{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyEUR)),
					UnitAmount: stripe.Int64(req.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Order " + req.OrderNumber),
					},
				},
			}}
		}
	}

	lines := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items))
	for _, item := range req.Items {
		qty := item.Quantity
		if qty < 1 {
			qty = 1
		}
		lines = append(lines, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(qty),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyEUR)),
				UnitAmount: stripe.Int64(item.Amount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
		})
	}
	return lines
}

func (g *StripeGateway) SessionStatus(ctx context.Context, sessionID string) (adapter.SessionStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := g.sc.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == 404 {
			return adapter.SessionStatus{}, domain.ErrUnknownSession
		}
		return adapter.SessionStatus{}, fmt.Errorf("get checkout session: %w", domain.ErrProcessorUnavailable)
	}

	st := adapter.SessionStatus{
		Status:        string(sess.Status),
		PaymentStatus: string(sess.PaymentStatus),
	}
	if sess.CustomerDetails != nil {
		st.CustomerEmail = sess.CustomerDetails.Email
	}
	return st, nil
}

func (g *StripeGateway) ParseEvent(payload []byte, signatureHeader string) (adapter.WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signatureHeader, g.webhookSecret)
	if err != nil {
		return adapter.WebhookEvent{}, domain.ErrInvalidSignature
	}

	out := adapter.WebhookEvent{
		ID:   event.ID,
		Kind: adapter.EventIgnored,
		Raw:  payload,
	}

	switch event.Type {
	case "checkout.session.completed",
		"checkout.session.async_payment_succeeded",
		"checkout.session.async_payment_failed",
		"checkout.session.expired":
	default:
		return out, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return adapter.WebhookEvent{}, fmt.Errorf("decode session event: %w", domain.ErrInvalidArgument)
	}
	out.SessionID = sess.ID

	switch event.Type {
	case "checkout.session.completed":
		// Delayed-settlement methods complete the session before the charge
		// settles; the async_payment_* follow-up carries the real outcome.
		if sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
			out.Kind = adapter.EventIgnored
		} else {
			out.Kind = adapter.EventSucceeded
		}
	case "checkout.session.async_payment_succeeded":
		out.Kind = adapter.EventSucceeded
	case "checkout.session.async_payment_failed":
		out.Kind = adapter.EventFailed
	case "checkout.session.expired":
		out.Kind = adapter.EventExpired
	}
	return out, nil
}
