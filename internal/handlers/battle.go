package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"code-arena-backend/internal/config"
	"code-arena-backend/internal/models"
	"code-arena-backend/internal/services"
)

type BattleHandler struct {
	matchmaker   *services.Matchmaker
	settlement   *services.SettlementEngine
	redisService *services.RedisService
	cfg          *config.Config
}

func NewBattleHandler(matchmaker *services.Matchmaker, settlement *services.SettlementEngine, redisService *services.RedisService, cfg *config.Config) *BattleHandler {
	return &BattleHandler{
		matchmaker:   matchmaker,
		settlement:   settlement,
		redisService: redisService,
		cfg:          cfg,
	}
}

// RequestMatch is the createOrJoin surface: the caller either pairs with the
// oldest compatible waiting battle or becomes the waiting party. Safe to
// retry; losing a pairing race is invisible to the caller.
func (h *BattleHandler) RequestMatch(c *gin.Context) {
	userID := c.GetString("user_id")
	userName := c.GetString("user_name")

	var req models.MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	allowed, err := h.redisService.CheckRateLimit(userID, "match", services.DefaultRateLimitMatch, time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Rate limit check failed"})
		return
	}
	if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many match requests. Please wait."})
		return
	}

	ticket, err := h.matchmaker.RequestMatch(c.Request.Context(), userID, userName, &req)
	if err != nil {
		status := http.StatusBadRequest
		if !errors.Is(err, models.ErrInsufficientFunds) &&
			!errors.Is(err, models.ErrInvalidStakeTier) &&
			!errors.Is(err, models.ErrInvalidDifficulty) {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{
			"error":   "Failed to find match",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"ticket":  ticket,
	})
}

// Cancel withdraws a waiting battle and refunds the entry fee. Idempotent:
// cancelling an already cancelled ticket returns its state with one refund.
func (h *BattleHandler) Cancel(c *gin.Context) {
	userID := c.GetString("user_id")
	ticketID := c.Param("id")

	allowed, err := h.redisService.CheckRateLimit(userID, "cancel", services.DefaultRateLimitCancel, time.Minute)
	if err != nil || !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many cancel requests. Please wait."})
		return
	}

	ticket, err := h.matchmaker.Cancel(c.Request.Context(), ticketID, userID)
	if err != nil {
		h.renderTicketError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"ticket":  ticket,
	})
}

// Ready acknowledges that the caller has fetched the problem and is set to
// play; the battle activates once both sides acknowledge.
func (h *BattleHandler) Ready(c *gin.Context) {
	userID := c.GetString("user_id")
	ticketID := c.Param("id")

	ticket, err := h.matchmaker.Ready(c.Request.Context(), ticketID, userID, h.cfg.ActiveGrace)
	if err != nil {
		h.renderTicketError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"ticket":  ticket,
	})
}

// Result receives the outcome signal from the judging collaborator.
func (h *BattleHandler) Result(c *gin.Context) {
	userID := c.GetString("user_id")
	ticketID := c.Param("id")

	var req models.ResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	ticket, err := h.matchmaker.GetTicket(c.Request.Context(), ticketID)
	if err != nil {
		h.renderTicketError(c, err)
		return
	}
	if !ticket.HasParticipant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not part of this battle"})
		return
	}

	reason := req.Reason
	if reason == "" {
		reason = "Battle completed"
	}

	ticket, err = h.settlement.Settle(c.Request.Context(), ticketID, req.WinnerID, reason)
	if err != nil {
		h.renderTicketError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"ticket":  ticket,
	})
}

// GetTicket is the poll target: clients poll it at a bounded interval until
// a terminal or active state shows up. Terminal tickets stay readable.
func (h *BattleHandler) GetTicket(c *gin.Context) {
	ticket, err := h.matchmaker.GetTicket(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderTicketError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"ticket":  ticket,
	})
}

// ListWaiting returns the open battles for a bucket, oldest first, hiding
// the caller's own tickets.
func (h *BattleHandler) ListWaiting(c *gin.Context) {
	userID := c.GetString("user_id")

	difficulty := models.Difficulty(c.Query("difficulty"))
	if !difficulty.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrInvalidDifficulty.Error()})
		return
	}

	entryFee, err := strconv.ParseInt(c.Query("entry_fee"), 10, 64)
	if err != nil || !models.ValidStakeTier(entryFee) {
		c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrInvalidStakeTier.Error()})
		return
	}

	tickets, err := h.matchmaker.ListWaiting(c.Request.Context(), difficulty, entryFee, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list waiting battles",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"tickets": tickets,
		"count":   len(tickets),
	})
}

func (h *BattleHandler) MyBattles(c *gin.Context) {
	userID := c.GetString("user_id")

	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil {
		limit = 50
	}

	tickets, err := h.matchmaker.UserTickets(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list battles",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"tickets": tickets,
		"count":   len(tickets),
	})
}

// SeedChallenges loads problem refs into the challenge pool.
func (h *BattleHandler) SeedChallenges(c *gin.Context) {
	var req struct {
		Difficulty models.Difficulty `json:"difficulty" binding:"required"`
		Refs       []string          `json:"refs" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}
	if !req.Difficulty.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrInvalidDifficulty.Error()})
		return
	}

	if err := h.redisService.SeedChallenges(req.Difficulty, req.Refs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to seed challenges"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(req.Refs),
	})
}

func (h *BattleHandler) renderTicketError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrTicketNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrCancelDenied), errors.Is(err, models.ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrAlreadyTerminal):
		// treated as success by callers that re-fetch; reaching here means
		// the re-fetch itself failed
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrPairingConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Battle operation failed",
			"details": err.Error(),
		})
	}
}
