package api

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"aeternis-checkout/internal/domain"
	"aeternis-checkout/internal/domain/model"
	"aeternis-checkout/internal/infra/logging"
	"aeternis-checkout/internal/infra/metrics"
	"aeternis-checkout/internal/infra/redis"
)

// Webhook payloads are tiny; anything larger is not a processor event.
const maxWebhookBody = 1 << 20

// -----------------------------
// Wire types
// -----------------------------

type plaqueDTO struct {
	Material  string `json:"material"`
	Magnet    bool   `json:"magnet"`
	Engraving bool   `json:"engraving"`
}

type profileDTO struct {
	Name           string      `json:"name"`
	Plan           string      `json:"plan"`
	StorageOption  string      `json:"storage_option"`
	ExtensionYears int         `json:"extension_years"`
	Plaques        []plaqueDTO `json:"plaques"`
}

type quoteRequest struct {
	Profiles []profileDTO `json:"profiles"`
}

type submitOrderRequest struct {
	CustomerEmail string       `json:"customer_email"`
	Profiles      []profileDTO `json:"profiles"`
}

type lineItemDTO struct {
	ProfileIndex int    `json:"profile_index"`
	Kind         string `json:"kind"`
	Description  string `json:"description"`
	Amount       int64  `json:"amount"`
}

type quoteResponse struct {
	LineItems        []lineItemDTO `json:"line_items"`
	ProfileSubtotals []int64       `json:"profile_subtotals"`
	Subtotal         int64         `json:"subtotal"`
	Discount         int64         `json:"discount"`
	DiscountRule     string        `json:"discount_rule,omitempty"`
	Total            int64         `json:"total"`
	CatalogVersion   int           `json:"catalog_version"`
}

type orderResponse struct {
	ID             string        `json:"id"`
	Number         string        `json:"number"`
	CustomerEmail  string        `json:"customer_email"`
	Status         string        `json:"status"`
	LineItems      []lineItemDTO `json:"line_items"`
	TotalAmount    int64         `json:"total_amount"`
	CatalogVersion int           `json:"catalog_version"`
	CreatedAt      time.Time     `json:"created_at"`
}

type sessionResponse struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}

type sessionStatusResponse struct {
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	CustomerEmail string `json:"customer_email,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toProfiles(in []profileDTO) []model.OrderProfile {
	out := make([]model.OrderProfile, 0, len(in))
	for _, p := range in {
		plaques := make([]model.OrderPlaque, 0, len(p.Plaques))
		for _, plq := range p.Plaques {
			plaques = append(plaques, model.OrderPlaque{
				MaterialSlug: plq.Material,
				Magnet:       plq.Magnet,
				Engraving:    plq.Engraving,
			})
		}
		out = append(out, model.OrderProfile{
			Name:            p.Name,
			PlanSlug:        p.Plan,
			StorageOptionID: p.StorageOption,
			ExtensionYears:  p.ExtensionYears,
			Plaques:         plaques,
		})
	}
	return out
}

func toLineItems(items []model.LineItem) []lineItemDTO {
	out := make([]lineItemDTO, 0, len(items))
	for _, li := range items {
		out = append(out, lineItemDTO{
			ProfileIndex: li.ProfileIndex,
			Kind:         string(li.Kind),
			Description:  li.Description,
			Amount:       li.Amount,
		})
	}
	return out
}

func toOrderResponse(o *model.Order) orderResponse {
	return orderResponse{
		ID:             o.ID,
		Number:         o.Number,
		CustomerEmail:  o.CustomerEmail,
		Status:         string(o.Status),
		LineItems:      toLineItems(o.LineItems),
		TotalAmount:    o.TotalAmount,
		CatalogVersion: o.CatalogVersion,
		CreatedAt:      o.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

// rejectionReason labels pricing failures for the rejected-quotes counter.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidReference):
		return "invalid_reference"
	case errors.Is(err, domain.ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, domain.ErrInvalidComputation):
		return "invalid_computation"
	default:
		return "other"
	}
}

func mapDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidReference),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidComputation):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrAlreadySessioned), errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "an active checkout session already exists for this order")
	case errors.Is(err, domain.ErrProcessorUnavailable):
		writeError(w, http.StatusBadGateway, "payment processor unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// -----------------------------
// Handlers
// -----------------------------

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	it, err := s.pricingUC.Quote(r.Context(), toProfiles(req.Profiles))
	if err != nil {
		metrics.IncPricingRejected(rejectionReason(err))
		mapDomainError(w, err)
		return
	}

	metrics.IncQuote()
	writeJSON(w, http.StatusOK, quoteResponse{
		LineItems:        toLineItems(it.LineItems),
		ProfileSubtotals: it.ProfileSubtotals,
		Subtotal:         it.Subtotal,
		Discount:         it.Discount,
		DiscountRule:     it.DiscountRule,
		Total:            it.Total,
		CatalogVersion:   it.CatalogVersion,
	})
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	order, err := s.orderUC.Submit(r.Context(), req.CustomerEmail, toProfiles(req.Profiles))
	if err != nil {
		metrics.IncPricingRejected(rejectionReason(err))
		mapDomainError(w, err)
		return
	}

	metrics.IncOrder(string(order.Status))
	logging.With(r.Context(), s.log).Info().
		Str("order_id", order.ID).
		Str("order_number", order.Number).
		Str("customer_email", logging.Redact(order.CustomerEmail, s.dev)).
		Msg("order accepted")
	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.orderUC.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	orders, err := s.orderUC.ListByEmail(r.Context(), email)
	if err != nil {
		mapDomainError(w, err)
		return
	}

	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": out})
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	supersede := r.URL.Query().Get("supersede") == "1"

	ctx := logging.WithOrderID(r.Context(), orderID)
	sess, err := s.checkoutUC.OpenSession(ctx, orderID, supersede)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadySessioned):
			metrics.IncSessionOpened("conflict")
		case errors.Is(err, domain.ErrProcessorUnavailable):
			metrics.IncSessionOpened("processor_error")
		default:
			metrics.IncSessionOpened("error")
		}
		mapDomainError(w, err)
		return
	}

	metrics.IncSessionOpened("ok")
	writeJSON(w, http.StatusCreated, sessionResponse{
		SessionID:   sess.SessionID,
		RedirectURL: sess.RedirectURL,
	})
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.checkoutUC.SessionStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrUnknownSession) {
			writeError(w, http.StatusNotFound, "unknown session")
			return
		}
		mapDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionStatusResponse{
		Status:        st.Status,
		PaymentStatus: st.PaymentStatus,
		CustomerEmail: st.CustomerEmail,
	})
}

// handleWebhook acknowledges processor events. Status codes steer redelivery:
// 2xx stops it, anything else makes the processor try again later.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	defer logging.TraceDuration(s.log, "api.handleWebhook")()

	if s.limiter != nil {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		ok, err := s.limiter.Allow(r.Context(), redis.WebhookSourceKey(s.provider, ip), s.webhookRate, s.webhookWindow)
		if err == nil && !ok {
			metrics.IncWebhookEvent("rate_limited")
			writeError(w, http.StatusTooManyRequests, "rate limited")
			return
		}
		// A limiter outage never blocks settlement traffic.
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	sig := r.Header.Get("Stripe-Signature")
	if sig == "" {
		sig = r.Header.Get("X-Signature")
	}

	res, err := s.webhookUC.Handle(r.Context(), payload, sig)
	if err != nil {
		l := logging.With(r.Context(), s.log)
		switch {
		case errors.Is(err, domain.ErrInvalidSignature):
			metrics.IncWebhookEvent("invalid_signature")
			l.Warn().Msg("webhook signature rejected")
			writeError(w, http.StatusBadRequest, "invalid signature")
		case errors.Is(err, domain.ErrUnknownSession):
			// No local payment matches; redelivery cannot fix that, so
			// acknowledge and keep the event out of the processor's retry queue.
			metrics.IncWebhookEvent("unknown_session")
			l.Warn().Msg("webhook references unknown session")
			writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		case errors.Is(err, domain.ErrInvalidArgument):
			metrics.IncWebhookEvent("rejected")
			writeError(w, http.StatusBadRequest, "rejected")
		default:
			metrics.IncWebhookEvent("retryable_error")
			l.Error().Err(err).Msg("webhook processing failed")
			writeError(w, http.StatusInternalServerError, "temporary failure")
		}
		return
	}

	ctx := logging.WithEventID(logging.WithSessionID(r.Context(), res.SessionID), res.EventID)
	l := logging.With(ctx, s.log)
	switch {
	case res.Applied:
		metrics.IncWebhookEvent("applied")
		metrics.IncPayment(string(res.Kind))
		if res.Kind == "succeeded" {
			metrics.AddPaymentRevenue(res.Amount)
		}
		l.Info().Str("kind", string(res.Kind)).Msg("webhook applied")
	case res.Duplicate:
		metrics.IncWebhookEvent("duplicate")
		l.Debug().Msg("webhook replay acknowledged")
	default:
		metrics.IncWebhookEvent("ignored")
		l.Debug().Msg("webhook ignored")
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"received":  true,
		"applied":   res.Applied,
		"duplicate": res.Duplicate,
	})
}
