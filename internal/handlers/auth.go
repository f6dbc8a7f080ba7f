package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"code-arena-backend/internal/services"
)

// AuthHandler mints tokens for a verified identity. Identity verification
// itself is owned by the external user-profile collaborator; this surface
// only exchanges an already verified user id for an API token.
type AuthHandler struct {
	redisService *services.RedisService
	jwtService   *services.JWTService
}

func NewAuthHandler(redisService *services.RedisService, jwtService *services.JWTService) *AuthHandler {
	return &AuthHandler{
		redisService: redisService,
		jwtService:   jwtService,
	}
}

func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
		Name   string `json:"name"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	wallet, err := h.redisService.EnsureWallet(req.UserID, req.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to initialize wallet"})
		return
	}

	token, err := h.jwtService.GenerateToken(req.UserID, req.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"user": gin.H{
			"user_id": wallet.UserID,
			"name":    wallet.Name,
			"rating":  wallet.Rating,
		},
	})
}
