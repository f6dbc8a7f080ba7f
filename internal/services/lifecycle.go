package services

import (
	"context"
	"errors"
	"log"
	"time"

	"code-arena-backend/internal/config"
	"code-arena-backend/internal/models"
)

// LifecycleSupervisor advances tickets through time-based transitions on a
// fixed interval, independent of client connections: it expires stale
// waiting tickets, voids matched tickets whose readiness window lapsed,
// settles overdue active battles as draws and re-drives any settlement a
// crash left half-applied. Every mutation goes through the same atomic
// scripts the handlers use, and only tickets older than the relevant timeout
// are touched, so the sweep never races an in-flight client transition.
type LifecycleSupervisor struct {
	redisService *RedisService
	settlement   *SettlementEngine
	metrics      *Metrics
	cfg          *config.Config
}

func NewLifecycleSupervisor(redisService *RedisService, settlement *SettlementEngine, metrics *Metrics, cfg *config.Config) *LifecycleSupervisor {
	return &LifecycleSupervisor{
		redisService: redisService,
		settlement:   settlement,
		metrics:      metrics,
		cfg:          cfg,
	}
}

// Run sweeps on the configured interval until the context is cancelled.
func (l *LifecycleSupervisor) Run(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (l *LifecycleSupervisor) Sweep(ctx context.Context) {
	l.expireWaiting(ctx)
	l.voidStaleMatched(ctx)
	l.settleOverdueActive(ctx)
	l.reconcilePending(ctx)
}

func (l *LifecycleSupervisor) expireWaiting(ctx context.Context) {
	cutoff := time.Now().Add(-l.cfg.WaitTimeout)

	for _, difficulty := range []models.Difficulty{models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard} {
		for _, fee := range models.StakeTiers {
			ids, err := l.redisService.StaleWaiting(difficulty, fee, cutoff)
			if err != nil {
				log.Printf("sweep: failed to scan %s/%d queue: %v", difficulty, fee, err)
				continue
			}

			for _, id := range ids {
				ticket, err := l.redisService.GetTicket(id)
				if err != nil {
					continue
				}

				err = l.redisService.CloseWaiting(ticket, models.StateExpired, "")
				if errors.Is(err, models.ErrAlreadyTerminal) || errors.Is(err, models.ErrPairingConflict) {
					// a client transition won the race; nothing to do
					continue
				}
				if err != nil {
					log.Printf("sweep: failed to expire ticket %s: %v", id, err)
					continue
				}

				ticket.State = models.StateExpired
				if err := l.settlement.Finalize(ctx, ticket); err != nil {
					log.Printf("sweep: expire refund deferred for ticket %s: %v", id, err)
				}
				l.metrics.TicketsExpired.Inc()
			}
		}
	}
}

func (l *LifecycleSupervisor) voidStaleMatched(ctx context.Context) {
	cutoff := time.Now().Add(-l.cfg.ReadyTimeout)

	ids, err := l.redisService.StaleMatched(cutoff)
	if err != nil {
		log.Printf("sweep: failed to scan matched index: %v", err)
		return
	}

	for _, id := range ids {
		if err := l.settlement.SettleVoid(ctx, id, "Readiness window expired"); err != nil {
			log.Printf("sweep: failed to void ticket %s: %v", id, err)
			continue
		}
		l.metrics.TicketsVoided.Inc()
	}
}

func (l *LifecycleSupervisor) settleOverdueActive(ctx context.Context) {
	// active index scores already include time limit plus grace
	ids, err := l.redisService.OverdueActive(time.Now())
	if err != nil {
		log.Printf("sweep: failed to scan active index: %v", err)
		return
	}

	for _, id := range ids {
		if _, err := l.settlement.Settle(ctx, id, "", "Time limit expired"); err != nil {
			log.Printf("sweep: failed to settle overdue ticket %s: %v", id, err)
		}
	}
}

// reconcilePending completes the credit or refund for terminal tickets whose
// process crashed after the state transition but before the ledger write.
func (l *LifecycleSupervisor) reconcilePending(ctx context.Context) {
	ids, err := l.redisService.PendingSettlements()
	if err != nil {
		log.Printf("sweep: failed to read pending settlements: %v", err)
		return
	}

	for _, id := range ids {
		ticket, err := l.redisService.GetTicket(id)
		if errors.Is(err, models.ErrTicketNotFound) {
			l.redisService.ClearPendingSettlement(id)
			continue
		}
		if err != nil {
			continue
		}

		if !ticket.State.Terminal() {
			continue
		}

		if err := l.settlement.Finalize(ctx, ticket); err != nil {
			log.Printf("sweep: reconciliation failed for ticket %s: %v", id, err)
			continue
		}
		l.metrics.SettlementsReconciled.Inc()
	}
}
