package models_test

import (
	"testing"

	"code-arena-backend/internal/models"
)

func TestPrizePool(t *testing.T) {
	cases := []struct {
		fee  int64
		want int64
	}{
		{5, 9},
		{10, 18},
		{20, 36},
		{50, 90},
	}

	for _, tc := range cases {
		if got := models.PrizePool(tc.fee, 1.8); got != tc.want {
			t.Errorf("PrizePool(%d, 1.8) = %d, want %d", tc.fee, got, tc.want)
		}
	}

	// winner-takes-all with no platform fee
	if got := models.PrizePool(10, 2.0); got != 20 {
		t.Errorf("PrizePool(10, 2.0) = %d, want 20", got)
	}
}

func TestStakeTiers(t *testing.T) {
	for _, fee := range models.StakeTiers {
		if !models.ValidStakeTier(fee) {
			t.Errorf("tier %d should be valid", fee)
		}
	}

	for _, fee := range []int64{0, 1, 15, 100, -5} {
		if models.ValidStakeTier(fee) {
			t.Errorf("fee %d should not be a valid tier", fee)
		}
	}
}

func TestDifficulty(t *testing.T) {
	if !models.DifficultyMedium.Valid() {
		t.Error("medium should be valid")
	}
	if models.Difficulty("nightmare").Valid() {
		t.Error("unknown difficulty should not be valid")
	}

	if models.DifficultyEasy.TimeLimit() != 900 {
		t.Errorf("easy time limit = %d, want 900", models.DifficultyEasy.TimeLimit())
	}
	if models.DifficultyHard.TimeLimit() != 1800 {
		t.Errorf("hard time limit = %d, want 1800", models.DifficultyHard.TimeLimit())
	}
}

func TestMatchRequestValidate(t *testing.T) {
	req := &models.MatchRequest{Difficulty: models.DifficultyMedium, EntryFee: 10}
	if err := req.Validate(); err != nil {
		t.Errorf("valid request failed validation: %v", err)
	}

	req = &models.MatchRequest{Difficulty: "impossible", EntryFee: 10}
	if err := req.Validate(); err != models.ErrInvalidDifficulty {
		t.Errorf("expected ErrInvalidDifficulty, got %v", err)
	}

	req = &models.MatchRequest{Difficulty: models.DifficultyEasy, EntryFee: 7}
	if err := req.Validate(); err != models.ErrInvalidStakeTier {
		t.Errorf("expected ErrInvalidStakeTier, got %v", err)
	}
}

func TestNewBattleTicket(t *testing.T) {
	ticket := models.NewBattleTicket("user-1", "Alice", 1200, models.DifficultyMedium, 10, 1.8, "ref-1")

	if ticket.ID == "" {
		t.Error("ticket should have an ID")
	}
	if ticket.State != models.StateWaiting {
		t.Errorf("new ticket state = %s, want waiting", ticket.State)
	}
	if ticket.PrizePool != 18 {
		t.Errorf("prize pool = %d, want 18", ticket.PrizePool)
	}
	if ticket.TimeLimit != 1200 {
		t.Errorf("time limit = %d, want 1200", ticket.TimeLimit)
	}
	if ticket.HasParticipant("user-2") {
		t.Error("ticket should not have user-2 yet")
	}
	if !ticket.HasParticipant("user-1") {
		t.Error("creator should be a participant")
	}
}

func TestTerminalStates(t *testing.T) {
	terminal := []models.TicketState{
		models.StateCompleted, models.StateCancelled, models.StateExpired, models.StateVoid,
	}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}

	for _, s := range []models.TicketState{models.StateWaiting, models.StateMatched, models.StateActive} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestWalletEntrySigned(t *testing.T) {
	debit := &models.WalletEntry{Kind: models.EntryDebit, Amount: 10}
	if debit.Signed() != -10 {
		t.Errorf("debit signed = %d, want -10", debit.Signed())
	}

	credit := &models.WalletEntry{Kind: models.EntryCredit, Amount: 18}
	if credit.Signed() != 18 {
		t.Errorf("credit signed = %d, want 18", credit.Signed())
	}

	refund := &models.WalletEntry{Kind: models.EntryRefund, Amount: 10}
	if refund.Signed() != 10 {
		t.Errorf("refund signed = %d, want 10", refund.Signed())
	}
}
