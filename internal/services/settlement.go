package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"code-arena-backend/internal/models"
)

// SettlementEngine applies the terminal coin movement for a ticket. The
// single-fire state transition admits at most one settlement; the ledger's
// per-(user, ticket, kind) guards make the movement itself idempotent, so a
// crash between transition and credit is repaired by re-driving Finalize
// from the pending set.
type SettlementEngine struct {
	redisService *RedisService
	metrics      *Metrics
	broadcaster  Broadcaster
}

func NewSettlementEngine(redisService *RedisService, metrics *Metrics, broadcaster Broadcaster) *SettlementEngine {
	return &SettlementEngine{
		redisService: redisService,
		metrics:      metrics,
		broadcaster:  broadcaster,
	}
}

// Settle records the outcome reported by the external judging collaborator.
// An empty winnerID settles the battle as a draw. Repeated calls for an
// already settled ticket are no-ops returning the ticket as is.
func (e *SettlementEngine) Settle(ctx context.Context, ticketID, winnerID, reason string) (*models.BattleTicket, error) {
	err := e.redisService.CompleteActive(ticketID, winnerID, reason)
	switch {
	case err == nil:
	case errors.Is(err, models.ErrAlreadyTerminal):
		log.Printf("settlement already applied for ticket %s", ticketID)
		return e.redisService.GetTicket(ticketID)
	default:
		return nil, err
	}

	ticket, err := e.redisService.GetTicket(ticketID)
	if err != nil {
		return nil, err
	}

	if err := e.Finalize(ctx, ticket); err != nil {
		// left in the pending set; the lifecycle sweep re-drives it
		log.Printf("settlement finalize deferred for ticket %s: %v", ticketID, err)
	}

	e.broadcaster.BroadcastTicketUpdate(ticket)
	return ticket, nil
}

// SettleVoid voids a matched ticket whose readiness window lapsed and
// refunds both parties.
func (e *SettlementEngine) SettleVoid(ctx context.Context, ticketID, reason string) error {
	err := e.redisService.VoidMatched(ticketID, reason)
	if errors.Is(err, models.ErrAlreadyTerminal) {
		return nil
	}
	if err != nil {
		return err
	}

	ticket, err := e.redisService.GetTicket(ticketID)
	if err != nil {
		return err
	}

	if err := e.Finalize(ctx, ticket); err != nil {
		log.Printf("void finalize deferred for ticket %s: %v", ticketID, err)
	}

	e.broadcaster.BroadcastTicketUpdate(ticket)
	return nil
}

// Finalize applies the ledger movement a terminal ticket still owes and
// clears its pending marker. Safe to call any number of times.
func (e *SettlementEngine) Finalize(ctx context.Context, ticket *models.BattleTicket) error {
	switch ticket.State {
	case models.StateCancelled, models.StateExpired:
		if err := e.redisService.Refund(ticket.CreatorID, ticket.ID, ticket.EntryFee, refundReason(ticket.State)); err != nil {
			return err
		}

	case models.StateVoid:
		if err := e.refundBoth(ticket, "Battle void - refund"); err != nil {
			return err
		}
		e.metrics.SettlementsVoid.Inc()

	case models.StateCompleted:
		if ticket.WinnerID == "" {
			if err := e.refundBoth(ticket, "Battle draw - refund"); err != nil {
				return err
			}
			e.metrics.SettlementsDraw.Inc()
		} else {
			desc := fmt.Sprintf("Battle victory - prize pool (%s)", ticket.WinReason)
			if err := e.redisService.Credit(ticket.WinnerID, ticket.ID, ticket.PrizePool, desc); err != nil {
				return err
			}
			e.metrics.SettlementsWon.Inc()
		}

	default:
		return fmt.Errorf("ticket %s is not terminal (%s)", ticket.ID, ticket.State)
	}

	e.redisService.TouchTicketTTL(ticket.ID)
	return e.redisService.ClearPendingSettlement(ticket.ID)
}

func (e *SettlementEngine) refundBoth(ticket *models.BattleTicket, desc string) error {
	if err := e.redisService.Refund(ticket.CreatorID, ticket.ID, ticket.EntryFee, desc); err != nil {
		return err
	}
	if ticket.OpponentID != "" {
		if err := e.redisService.Refund(ticket.OpponentID, ticket.ID, ticket.EntryFee, desc); err != nil {
			return err
		}
	}
	return nil
}

func refundReason(state models.TicketState) string {
	if state == models.StateCancelled {
		return "Battle cancelled - refund"
	}
	return "No opponent found - refund"
}
