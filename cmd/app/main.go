package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aeternis-checkout/internal/config"
	"aeternis-checkout/internal/domain/ports/adapter"
	payAdapters "aeternis-checkout/internal/infra/adapters/payment"
	"aeternis-checkout/internal/infra/api"
	pg "aeternis-checkout/internal/infra/db/postgres"
	"aeternis-checkout/internal/infra/logging"
	"aeternis-checkout/internal/infra/metrics"
	red "aeternis-checkout/internal/infra/redis"
	"aeternis-checkout/internal/infra/sched"
	"aeternis-checkout/internal/infra/web"
	"aeternis-checkout/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, relaxed cookies)")
	flag.Parse()

	// The configured logger does not exist yet here.
	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		logging.Global.Fatal().Err(err).Str("path", *cfgPath).Msg("config load failed")
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.PoolSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	txm := pg.NewTxManager(pool)
	orderRepo := pg.NewOrderRepo(pool)
	payRepo := pg.NewPaymentRepo(pool)
	eventRepo := pg.NewWebhookEventRepo(pool)
	catalogRepo := pg.NewCatalogRepoCacheDecorator(pg.NewCatalogRepo(pool), redisClient)

	// ---- Payment gateway ----
	var gateway adapter.CheckoutGateway
	switch cfg.Payment.Provider {
	case "noop":
		gateway = payAdapters.NewNoopGateway()
		logger.Warn().Msg("payment gateway: noop (no real money moves)")
	default:
		gateway, err = payAdapters.NewStripeGateway(&cfg.Payment.Stripe)
		if err != nil {
			logger.Fatal().Err(err).Msg("stripe gateway init failed")
		}
	}

	// ---- Use cases ----
	pricingUC := usecase.NewPricingUseCase(catalogRepo, logger)
	orderUC := usecase.NewOrderUseCase(orderRepo, catalogRepo, logger)
	checkoutUC := usecase.NewCheckoutUseCase(orderRepo, payRepo, gateway, txm, cfg.Payment.Stripe.RequestTimeout, cfg.Payment.Stripe.SessionTTL, logger)
	webhookUC := usecase.NewWebhookUseCase(payRepo, orderRepo, eventRepo, gateway, txm, logger)
	statsUC := usecase.NewStatsUseCase(orderRepo, payRepo)
	catalogUC := usecase.NewCatalogUseCase(catalogRepo, logger)

	// ---- Public API ----
	apiSrv := api.NewServer(pricingUC, orderUC, checkoutUC, webhookUC, rateLimiter, cfg.Webhook.RatePerMinute, gateway.Name(), cfg.Runtime.Dev, logger)
	publicServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: apiSrv.Routes(),
	}
	go func() {
		logger.Info().Str("addr", publicServer.Addr).Msg("public API listening")
		if err := publicServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("public server error")
		}
	}()

	// ---- Admin API ----
	auth := web.NewAuthManager(cfg.Admin.JWTSecret, cfg.Admin.SecureCookie && !cfg.Runtime.Dev, cfg.Admin.CookieDomain, cfg.Admin.SessionTTL)
	adminSrv := web.NewServer(statsUC, catalogUC, auth, cfg.Admin.APIKey, logger)
	adminMux := http.NewServeMux()
	adminSrv.RegisterRoutes(adminMux)
	adminServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Admin.Port),
		Handler: adminMux,
	}
	go func() {
		logger.Info().Str("addr", adminServer.Addr).Msg("admin API listening")
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("admin server error")
		}
	}()

	// ---- Stale payment monitor ----
	monitor := sched.NewStaleMonitor(cfg.Monitor.Interval, cfg.Monitor.StaleAfter, payRepo, logger)
	go func() { _ = monitor.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := publicServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("public server shutdown")
	}
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("admin server shutdown")
	}
}
