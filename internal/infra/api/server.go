package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"aeternis-checkout/internal/infra/redis"
	"aeternis-checkout/internal/usecase"
)

// Server is the public checkout API: quoting, order submission, checkout
// sessions, and the processor webhook receiver.
type Server struct {
	pricingUC  usecase.PricingUseCase
	orderUC    usecase.OrderUseCase
	checkoutUC usecase.CheckoutUseCase
	webhookUC  usecase.WebhookUseCase

	limiter       *redis.RateLimiter
	webhookRate   int
	webhookWindow time.Duration
	provider      string
	dev           bool

	log *zerolog.Logger
}

func NewServer(
	pricingUC usecase.PricingUseCase,
	orderUC usecase.OrderUseCase,
	checkoutUC usecase.CheckoutUseCase,
	webhookUC usecase.WebhookUseCase,
	limiter *redis.RateLimiter,
	webhookRatePerMinute int,
	provider string,
	dev bool,
	logger *zerolog.Logger,
) *Server {
	if webhookRatePerMinute <= 0 {
		webhookRatePerMinute = 120
	}
	return &Server{
		pricingUC:     pricingUC,
		orderUC:       orderUC,
		checkoutUC:    checkoutUC,
		webhookUC:     webhookUC,
		limiter:       limiter,
		webhookRate:   webhookRatePerMinute,
		webhookWindow: time.Minute,
		provider:      provider,
		dev:           dev,
		log:           logger,
	}
}

// Routes builds the router with the full public surface mounted.
func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(TraceID)
	r.Use(Recover(s.log))
	r.Use(RequestLog(s.log))
	r.Use(Timeout(30 * time.Second))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/quote", s.handleQuote)
		r.Post("/orders", s.handleSubmitOrder)
		r.Get("/orders", s.handleListOrders)
		r.Get("/orders/{id}", s.handleGetOrder)
		r.Post("/orders/{id}/session", s.handleOpenSession)
		r.Get("/sessions/{id}", s.handleSessionStatus)
		r.Post("/webhooks/"+s.provider, s.handleWebhook)
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}
