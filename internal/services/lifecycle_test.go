package services_test

import (
	"context"
	"testing"
	"time"

	"code-arena-backend/internal/config"
	"code-arena-backend/internal/models"
	"code-arena-backend/internal/services"
)

func newTestSupervisor(redisService *services.RedisService, cfg *config.Config) *services.LifecycleSupervisor {
	return services.NewLifecycleSupervisor(redisService, newTestSettlement(redisService), testMetrics(), cfg)
}

func TestSweepExpiresStaleWaiting(t *testing.T) {
	redisService := setupTestRedis(t)
	ctx := context.Background()

	cfg := testConfig()
	cfg.WaitTimeout = 2 * time.Minute
	cfg.ReadyTimeout = time.Hour
	supervisor := newTestSupervisor(redisService, cfg)

	creatorID := testUserID()
	defer redisService.DeleteWallet(creatorID)
	if _, err := redisService.EnsureWallet(creatorID, "Alice"); err != nil {
		t.Fatalf("Failed to ensure wallet: %v", err)
	}

	ticket := models.NewBattleTicket(creatorID, "Alice", models.DefaultRating, models.DifficultyEasy, 5, 1.8, "ref-stale")
	ticket.CreatedAt = time.Now().Unix() - 3600
	defer redisService.DeleteTicket(ticket)

	if err := redisService.CreateTicketWithDebit(ticket, true); err != nil {
		t.Fatalf("Failed to create ticket: %v", err)
	}

	supervisor.Sweep(ctx)

	after, err := redisService.GetTicket(ticket.ID)
	if err != nil {
		t.Fatalf("Failed to fetch ticket: %v", err)
	}
	if after.State != models.StateExpired {
		t.Errorf("Stale waiting ticket should be expired, got %s", after.State)
	}

	balance, _ := redisService.GetBalance(creatorID)
	if balance != models.StartingBalance {
		t.Errorf("Expiry should refund the creator, balance = %d", balance)
	}

	// A second sweep finds a terminal ticket and must not refund again.
	supervisor.Sweep(ctx)
	balance, _ = redisService.GetBalance(creatorID)
	if balance != models.StartingBalance {
		t.Errorf("Repeated sweep must not refund twice, balance = %d", balance)
	}
}

func TestSweepVoidsUnacknowledgedMatch(t *testing.T) {
	redisService := setupTestRedis(t)
	matchmaker := newTestMatchmaker(redisService)
	ctx := context.Background()

	cfg := testConfig()
	cfg.WaitTimeout = time.Hour
	cfg.ReadyTimeout = 0
	supervisor := newTestSupervisor(redisService, cfg)

	drainBucket(t, redisService, models.DifficultyHard, 20)

	creatorID := testUserID()
	joinerID := testUserID()
	defer redisService.DeleteWallet(creatorID)
	defer redisService.DeleteWallet(joinerID)

	req := &models.MatchRequest{Difficulty: models.DifficultyHard, EntryFee: 20}
	ticket, err := matchmaker.RequestMatch(ctx, creatorID, "Alice", req)
	if err != nil {
		t.Fatalf("Failed to request match: %v", err)
	}
	defer cleanupTicket(redisService, ticket)

	if _, err := matchmaker.RequestMatch(ctx, joinerID, "Bob", req); err != nil {
		t.Fatalf("Failed to join match: %v", err)
	}

	supervisor.Sweep(ctx)

	after, err := redisService.GetTicket(ticket.ID)
	if err != nil {
		t.Fatalf("Failed to fetch ticket: %v", err)
	}
	if after.State != models.StateVoid {
		t.Errorf("Unacknowledged match should be voided, got %s", after.State)
	}

	for _, userID := range []string{creatorID, joinerID} {
		balance, _ := redisService.GetBalance(userID)
		if balance != models.StartingBalance {
			t.Errorf("Void should refund %s in full, balance = %d", userID, balance)
		}
	}
}

func TestSweepReconcilesPendingSettlement(t *testing.T) {
	redisService := setupTestRedis(t)
	matchmaker := newTestMatchmaker(redisService)
	ctx := context.Background()

	cfg := testConfig()
	cfg.WaitTimeout = time.Hour
	cfg.ReadyTimeout = time.Hour
	supervisor := newTestSupervisor(redisService, cfg)

	drainBucket(t, redisService, models.DifficultyMedium, 5)

	creatorID := testUserID()
	joinerID := testUserID()
	defer redisService.DeleteWallet(creatorID)
	defer redisService.DeleteWallet(joinerID)

	req := &models.MatchRequest{Difficulty: models.DifficultyMedium, EntryFee: 5}
	ticket, err := matchmaker.RequestMatch(ctx, creatorID, "Alice", req)
	if err != nil {
		t.Fatalf("Failed to request match: %v", err)
	}
	defer cleanupTicket(redisService, ticket)

	if _, err := matchmaker.RequestMatch(ctx, joinerID, "Bob", req); err != nil {
		t.Fatalf("Failed to join match: %v", err)
	}
	if _, err := matchmaker.Ready(ctx, ticket.ID, creatorID, time.Minute); err != nil {
		t.Fatalf("Creator ready failed: %v", err)
	}
	if _, err := matchmaker.Ready(ctx, ticket.ID, joinerID, time.Minute); err != nil {
		t.Fatalf("Joiner ready failed: %v", err)
	}

	// Flip the ticket to completed without running the payout, as if the
	// process died between the transition and the ledger write.
	if err := redisService.CompleteActive(ticket.ID, joinerID, "All tests passed"); err != nil {
		t.Fatalf("Failed to complete ticket: %v", err)
	}

	supervisor.Sweep(ctx)

	balance, _ := redisService.GetBalance(joinerID)
	if balance != models.StartingBalance-5+9 {
		t.Errorf("Reconciled settlement should credit the winner, balance = %d", balance)
	}

	pending, err := redisService.PendingSettlements()
	if err != nil {
		t.Fatalf("Failed to read pending settlements: %v", err)
	}
	for _, id := range pending {
		if id == ticket.ID {
			t.Error("Reconciled ticket should be cleared from the pending set")
		}
	}
}
