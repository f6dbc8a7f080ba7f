package models

// Wallet holds a user's profile-level coin data. The balance itself lives in
// a separate materialized counter kept consistent with the ledger entries.
type Wallet struct {
	UserID    string `json:"user_id" redis:"user_id"`
	Name      string `json:"name" redis:"name"`
	Rating    int64  `json:"rating" redis:"rating"`
	CreatedAt int64  `json:"created_at" redis:"created_at"`
}

// StartingBalance is seeded into every new wallet.
const StartingBalance int64 = 100

// DefaultRating is the matchmaking rating assigned to fresh wallets.
const DefaultRating int64 = 1000

type EntryKind string

const (
	EntryDebit  EntryKind = "debit"
	EntryCredit EntryKind = "credit"
	EntryRefund EntryKind = "refund"
)

// WalletEntry is one append-only ledger row. Entries are never mutated or
// deleted; a user's balance is the sum of their rows. Exactly one row may
// exist per (user, ticket, kind).
type WalletEntry struct {
	ID          string    `json:"id" redis:"id"`
	UserID      string    `json:"user_id" redis:"user_id"`
	TicketID    string    `json:"ticket_id" redis:"ticket_id"`
	Kind        EntryKind `json:"kind" redis:"kind"`
	Amount      int64     `json:"amount" redis:"amount"`
	Description string    `json:"description" redis:"description"`
	CreatedAt   int64     `json:"created_at" redis:"created_at"`
}

// Signed returns the entry's effect on the balance: debits subtract,
// credits and refunds add.
func (e *WalletEntry) Signed() int64 {
	if e.Kind == EntryDebit {
		return -e.Amount
	}
	return e.Amount
}
