package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"code-arena-backend/internal/services"
)

type WalletHandler struct {
	redisService *services.RedisService
}

func NewWalletHandler(redisService *services.RedisService) *WalletHandler {
	return &WalletHandler{redisService: redisService}
}

func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID := c.GetString("user_id")

	wallet, err := h.redisService.EnsureWallet(userID, c.GetString("user_name"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get wallet",
			"details": err.Error(),
		})
		return
	}

	balance, err := h.redisService.GetBalance(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get balance",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"balance": gin.H{
			"balance": balance,
			"rating":  wallet.Rating,
		},
	})
}

// GetTransactions returns the caller's ledger rows, newest first. Rows are
// append-only; this is the audit trail for every stake and payout.
func (h *WalletHandler) GetTransactions(c *gin.Context) {
	userID := c.GetString("user_id")

	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil {
		limit = 50
	}

	entries, err := h.redisService.UserLedger(userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get transactions",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"transactions": entries,
		"count":        len(entries),
	})
}
