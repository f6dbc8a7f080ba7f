package models

import "math"

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// TimeLimit returns the battle duration in seconds for a difficulty.
func (d Difficulty) TimeLimit() int64 {
	switch d {
	case DifficultyEasy:
		return 900
	case DifficultyMedium:
		return 1200
	case DifficultyHard:
		return 1800
	}
	return 1200
}

// StakeTiers are the only entry fees a ticket may carry. Tickets pair only
// within the identical tier.
var StakeTiers = []int64{5, 10, 20, 50}

func ValidStakeTier(fee int64) bool {
	for _, tier := range StakeTiers {
		if fee == tier {
			return true
		}
	}
	return false
}

// PrizePool computes the winner payout for an entry fee. The multiplier is a
// config parameter (default 1.8, i.e. 2x stake minus a 10% platform cut).
func PrizePool(entryFee int64, multiplier float64) int64 {
	return int64(math.Floor(float64(entryFee) * multiplier))
}

type TicketState string

const (
	StateWaiting   TicketState = "waiting"
	StateMatched   TicketState = "matched"
	StateActive    TicketState = "active"
	StateCompleted TicketState = "completed"
	StateCancelled TicketState = "cancelled"
	StateExpired   TicketState = "expired"
	StateVoid      TicketState = "void"
)

func (s TicketState) Terminal() bool {
	switch s {
	case StateCompleted, StateCancelled, StateExpired, StateVoid:
		return true
	}
	return false
}

// BattleTicket is one matchmaking/battle attempt and its stake. It is the
// unit of mutual exclusion: every pairing, cancellation and settlement write
// serializes through an atomic script on the ticket row.
type BattleTicket struct {
	ID             string      `json:"id" redis:"id"`
	CreatorID      string      `json:"creator_id" redis:"creator_id"`
	CreatorName    string      `json:"creator_name" redis:"creator_name"`
	CreatorRating  int64       `json:"creator_rating" redis:"creator_rating"`
	OpponentID     string      `json:"opponent_id,omitempty" redis:"opponent_id"`
	OpponentName   string      `json:"opponent_name,omitempty" redis:"opponent_name"`
	OpponentRating int64       `json:"opponent_rating,omitempty" redis:"opponent_rating"`
	Difficulty     Difficulty  `json:"difficulty" redis:"difficulty"`
	EntryFee       int64       `json:"entry_fee" redis:"entry_fee"`
	PrizePool      int64       `json:"prize_pool" redis:"prize_pool"`
	TimeLimit      int64       `json:"time_limit" redis:"time_limit"` // seconds
	ProblemRef     string      `json:"problem_ref" redis:"problem_ref"`
	State          TicketState `json:"state" redis:"state"`

	CreatorReady  bool `json:"creator_ready" redis:"creator_ready"`
	OpponentReady bool `json:"opponent_ready" redis:"opponent_ready"`

	WinnerID  string `json:"winner_id,omitempty" redis:"winner_id"`
	WinReason string `json:"win_reason,omitempty" redis:"win_reason"`

	CreatedAt   int64 `json:"created_at" redis:"created_at"`
	MatchedAt   int64 `json:"matched_at,omitempty" redis:"matched_at"`
	StartedAt   int64 `json:"started_at,omitempty" redis:"started_at"`
	CompletedAt int64 `json:"completed_at,omitempty" redis:"completed_at"`
	UpdatedAt   int64 `json:"updated_at" redis:"updated_at"`
}

func (t *BattleTicket) HasParticipant(userID string) bool {
	return userID != "" && (t.CreatorID == userID || t.OpponentID == userID)
}

// MatchRequest is the createOrJoin payload.
type MatchRequest struct {
	Difficulty Difficulty `json:"difficulty" binding:"required"`
	EntryFee   int64      `json:"entry_fee" binding:"required"`
}

func (r *MatchRequest) Validate() error {
	if !r.Difficulty.Valid() {
		return ErrInvalidDifficulty
	}
	if !ValidStakeTier(r.EntryFee) {
		return ErrInvalidStakeTier
	}
	return nil
}

// ResultRequest is the outcome signal from the external judging collaborator.
// An empty WinnerID means a draw.
type ResultRequest struct {
	WinnerID string `json:"winner_id"`
	Reason   string `json:"reason"`
}
