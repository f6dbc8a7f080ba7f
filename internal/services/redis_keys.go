package services

import "time"

const (
	KeyTicket        = "battle:ticket:%s"          // ticket JSON blob
	KeyTicketLedger  = "battle:ticket:%s:ledger"   // ledger entries tagged to the ticket
	KeyBucketQueue   = "battle:queue:%s:%d"        // waiting FIFO per (difficulty, entryFee), scored by createdAt
	KeyMatchedIndex  = "battle:matched"            // matched tickets scored by matchedAt
	KeyActiveIndex   = "battle:active"             // active tickets scored by play deadline
	KeyPendingSettle = "battle:settlement:pending" // terminal tickets awaiting ledger finalization
	KeyChallengePool = "battle:challenges:%s"      // seeded problem refs per difficulty

	KeyWallet        = "wallet:%s"         // wallet profile JSON
	KeyWalletBalance = "wallet:%s:balance" // materialized, ledger-derived counter
	KeyWalletLedger  = "wallet:%s:ledger"  // append-only entry list, newest first
	KeyLedgerGuard   = "ledger:%s:%s:%s"   // idempotency marker per (ticket, user, kind)

	KeyUserBattles = "user:%s:battles" // user's tickets scored by createdAt
	KeyRateLimit   = "ratelimit:%s:%s"

	DefaultRateLimitMatch  = 30 // match requests per user per minute
	DefaultRateLimitCancel = 60
)

const (
	// Terminal tickets are retained for audit and idempotent re-polling.
	TTLTicket      = 30 * 24 * time.Hour
	MaxUserBattles = 100
	MaxLedgerFetch = 100
)
