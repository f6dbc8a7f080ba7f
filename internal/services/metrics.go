package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes the engine's Prometheus counters.
type Metrics struct {
	TicketsCreated   prometheus.Counter
	TicketsPaired    prometheus.Counter
	TicketsCancelled prometheus.Counter
	TicketsExpired   prometheus.Counter
	TicketsVoided    prometheus.Counter
	PairingConflicts prometheus.Counter

	SettlementsWon        prometheus.Counter
	SettlementsDraw       prometheus.Counter
	SettlementsVoid       prometheus.Counter
	SettlementsReconciled prometheus.Counter
}

func NewMetrics() *Metrics {
	counter := func(name, help string) prometheus.Counter {
		return promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "code_arena",
			Subsystem: "battles",
			Name:      name,
			Help:      help,
		})
	}

	return &Metrics{
		TicketsCreated:   counter("tickets_created_total", "Waiting tickets created"),
		TicketsPaired:    counter("tickets_paired_total", "Tickets that reached matched"),
		TicketsCancelled: counter("tickets_cancelled_total", "Tickets cancelled by their creator"),
		TicketsExpired:   counter("tickets_expired_total", "Waiting tickets expired by the sweep"),
		TicketsVoided:    counter("tickets_voided_total", "Matched tickets voided by the sweep"),
		PairingConflicts: counter("pairing_conflicts_total", "Pairing attempts lost to a concurrent joiner"),

		SettlementsWon:        counter("settlements_won_total", "Decisive settlements with a winner credit"),
		SettlementsDraw:       counter("settlements_draw_total", "Draw settlements refunding both sides"),
		SettlementsVoid:       counter("settlements_void_total", "Void settlements refunding both sides"),
		SettlementsReconciled: counter("settlements_reconciled_total", "Settlements completed by the reconciliation sweep"),
	}
}
