package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"code-arena-backend/internal/models"
)

// pairingAttempts bounds the retry loop when concurrent joiners race for the
// same waiting tickets. Exhausting it falls through to creating a fresh
// ticket, so callers never see the race.
const pairingAttempts = 3

// Matchmaker owns create-or-join and the client-facing ticket operations.
// All of its writes go through the atomic ticket scripts, so any number of
// gateway instances can run it concurrently.
type Matchmaker struct {
	redisService *RedisService
	metrics      *Metrics
	broadcaster  Broadcaster

	prizeMultiplier float64
}

func NewMatchmaker(redisService *RedisService, metrics *Metrics, broadcaster Broadcaster, prizeMultiplier float64) *Matchmaker {
	return &Matchmaker{
		redisService:    redisService,
		metrics:         metrics,
		broadcaster:     broadcaster,
		prizeMultiplier: prizeMultiplier,
	}
}

// RequestMatch pairs the user with the oldest compatible waiting ticket, or
// makes them the waiting party. The joiner's fee is escrowed inside the
// pairing script itself; a lost race leaves no trace. Always succeeds unless
// funds are insufficient or input is invalid.
func (m *Matchmaker) RequestMatch(ctx context.Context, userID, userName string, req *models.MatchRequest) (*models.BattleTicket, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	wallet, err := m.redisService.EnsureWallet(userID, userName)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet: %v", err)
	}

	for attempt := 0; attempt < pairingAttempts; attempt++ {
		candidates, err := m.redisService.QueueCandidates(req.Difficulty, req.EntryFee, int64(pairingAttempts))
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue: %v", err)
		}

		for _, candidateID := range candidates {
			err := m.redisService.PairTicketWithDebit(candidateID, userID, userName, wallet.Rating, req.EntryFee, req.Difficulty)
			if errors.Is(err, models.ErrPairingConflict) {
				m.metrics.PairingConflicts.Inc()
				continue
			}
			if err != nil {
				return nil, err
			}

			ticket, err := m.redisService.GetTicket(candidateID)
			if err != nil {
				return nil, err
			}
			m.metrics.TicketsPaired.Inc()
			m.broadcaster.BroadcastTicketUpdate(ticket)
			return ticket, nil
		}

		// the create script refuses to run next to a joinable ticket, so a
		// joiner that raced past the scan loops back to pairing
		ticket, err := m.createTicket(userID, userName, wallet.Rating, req, false)
		if errors.Is(err, ErrJoinableTicketExists) {
			continue
		}
		return ticket, err
	}

	return m.createTicket(userID, userName, wallet.Rating, req, true)
}

func (m *Matchmaker) createTicket(userID, userName string, rating int64, req *models.MatchRequest, force bool) (*models.BattleTicket, error) {
	problemRef := m.redisService.RandomChallenge(req.Difficulty)
	ticket := models.NewBattleTicket(userID, userName, rating, req.Difficulty, req.EntryFee, m.prizeMultiplier, problemRef)

	if err := m.redisService.CreateTicketWithDebit(ticket, force); err != nil {
		return nil, err
	}

	m.metrics.TicketsCreated.Inc()
	m.broadcaster.BroadcastTicketUpdate(ticket)
	return ticket, nil
}

// Cancel is honored only while the ticket is still waiting, and only for its
// creator. Cancelling an already terminal ticket is an idempotent no-op that
// returns the current state; cancelling a matched or active ticket is
// rejected so a disconnecting client cannot void a fair match.
func (m *Matchmaker) Cancel(ctx context.Context, ticketID, userID string) (*models.BattleTicket, error) {
	ticket, err := m.redisService.GetTicket(ticketID)
	if err != nil {
		return nil, err
	}

	err = m.redisService.CloseWaiting(ticket, models.StateCancelled, userID)
	switch {
	case err == nil:
		// refund is driven by the settlement path below
	case errors.Is(err, models.ErrAlreadyTerminal):
		return m.redisService.GetTicket(ticketID)
	case errors.Is(err, models.ErrPairingConflict):
		// no longer waiting: matched or active
		return nil, models.ErrCancelDenied
	default:
		return nil, err
	}

	ticket, err = m.redisService.GetTicket(ticketID)
	if err != nil {
		return nil, err
	}

	if err := m.redisService.Refund(userID, ticketID, ticket.EntryFee, "Battle cancelled - refund"); err != nil {
		// reconciliation sweep re-drives it from the pending set
		log.Printf("cancel refund deferred for ticket %s: %v", ticketID, err)
	} else {
		m.redisService.ClearPendingSettlement(ticketID)
	}

	m.metrics.TicketsCancelled.Inc()
	m.broadcaster.BroadcastTicketUpdate(ticket)
	return ticket, nil
}

// Ready records a participant's readiness ack; the battle goes active once
// both sides have acknowledged.
func (m *Matchmaker) Ready(ctx context.Context, ticketID, userID string, grace time.Duration) (*models.BattleTicket, error) {
	started, err := m.redisService.MarkReady(ticketID, userID, grace)
	if err != nil && !errors.Is(err, models.ErrAlreadyTerminal) {
		return nil, err
	}

	ticket, terr := m.redisService.GetTicket(ticketID)
	if terr != nil {
		return nil, terr
	}
	if started {
		m.broadcaster.BroadcastTicketUpdate(ticket)
	}
	return ticket, nil
}

func (m *Matchmaker) GetTicket(ctx context.Context, ticketID string) (*models.BattleTicket, error) {
	return m.redisService.GetTicket(ticketID)
}

// ListWaiting returns the bucket's waiting tickets in FIFO order, excluding
// the caller's own.
func (m *Matchmaker) ListWaiting(ctx context.Context, difficulty models.Difficulty, entryFee int64, excludeUserID string) ([]*models.BattleTicket, error) {
	ids, err := m.redisService.QueueCandidates(difficulty, entryFee, 50)
	if err != nil {
		return nil, fmt.Errorf("failed to list waiting tickets: %v", err)
	}

	tickets, err := m.redisService.BulkGetTickets(ids)
	if err != nil {
		return nil, err
	}

	waiting := make([]*models.BattleTicket, 0, len(tickets))
	for _, t := range tickets {
		if t.State != models.StateWaiting || t.CreatorID == excludeUserID {
			continue
		}
		waiting = append(waiting, t)
	}
	return waiting, nil
}

func (m *Matchmaker) UserTickets(ctx context.Context, userID string, limit int64) ([]*models.BattleTicket, error) {
	ids, err := m.redisService.UserTickets(userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list user tickets: %v", err)
	}
	return m.redisService.BulkGetTickets(ids)
}
