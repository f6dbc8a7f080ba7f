package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

func GenerateTicketID() string {
	return uuid.New().String()
}

func GenerateEntryID() string {
	return fmt.Sprintf("led_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

// GenerateProblemRef produces an opaque fallback challenge reference for a
// difficulty when the seeded challenge pool is empty. The core never
// interprets the ref; the challenge-content service does.
func GenerateProblemRef(difficulty Difficulty) string {
	return fmt.Sprintf("challenge_%s_%d", difficulty, uuid.New().ID())
}

// NewBattleTicket builds a waiting ticket for its creator. The prize pool is
// fixed at creation and never recomputed.
func NewBattleTicket(creatorID, creatorName string, rating int64, difficulty Difficulty, entryFee int64, prizeMultiplier float64, problemRef string) *BattleTicket {
	now := time.Now().Unix()
	return &BattleTicket{
		ID:            GenerateTicketID(),
		CreatorID:     creatorID,
		CreatorName:   creatorName,
		CreatorRating: rating,
		Difficulty:    difficulty,
		EntryFee:      entryFee,
		PrizePool:     PrizePool(entryFee, prizeMultiplier),
		TimeLimit:     difficulty.TimeLimit(),
		ProblemRef:    problemRef,
		State:         StateWaiting,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
