package services

import "code-arena-backend/internal/models"

// Broadcaster pushes lobby events to connected clients. Polling GET
// /battles/:id remains the contract; the feed only shortcuts it.
type Broadcaster interface {
	BroadcastTicketUpdate(ticket *models.BattleTicket)
}

// NopBroadcaster is used where no websocket hub is wired, e.g. tests.
type NopBroadcaster struct{}

func (NopBroadcaster) BroadcastTicketUpdate(ticket *models.BattleTicket) {}
