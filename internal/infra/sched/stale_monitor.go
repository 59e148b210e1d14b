package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"aeternis-checkout/internal/domain/ports/repository"
	"aeternis-checkout/internal/infra/metrics"
)

// StaleMonitor periodically surfaces payments stuck in pending. It observes
// only: pending payments reach a terminal status exclusively through verified
// webhook events, so the monitor logs and exports a gauge, nothing more.
type StaleMonitor struct {
	interval   time.Duration
	staleAfter time.Duration
	payments   repository.PaymentRepository
	log        *zerolog.Logger
}

func NewStaleMonitor(interval, staleAfter time.Duration, payments repository.PaymentRepository, logger *zerolog.Logger) *StaleMonitor {
	monLog := logger.With().Str("component", "StaleMonitor").Logger()
	return &StaleMonitor{
		interval:   interval,
		staleAfter: staleAfter,
		payments:   payments,
		log:        &monLog,
	}
}

func (w *StaleMonitor) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting stale payment monitor")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping stale payment monitor")
			return ctx.Err()
		case <-ticker.C:
			w.runCheck(ctx)
		}
	}
}

func (w *StaleMonitor) runCheck(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	stale, err := w.payments.ListPendingOlderThan(ctx, repository.NoTX, cutoff, 100)
	if err != nil {
		w.log.Error().Err(err).Msg("stale payment scan failed")
		return
	}

	metrics.SetPendingStale(len(stale))
	for _, p := range stale {
		w.log.Warn().
			Str("payment_id", p.ID).
			Str("order_id", p.OrderID).
			Str("session_id", p.SessionID).
			Time("created_at", p.CreatedAt).
			Msg("payment pending past stale horizon")
	}
}
