package services_test

import (
	"testing"

	"code-arena-backend/internal/config"
	"code-arena-backend/internal/services"
)

func TestJWTService(t *testing.T) {
	cfg := &config.Config{JWTSecret: "test-secret"}
	jwtService := services.NewJWTService(cfg)

	token, err := jwtService.GenerateToken("user-42", "Alice")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	claims, err := jwtService.ValidateToken(token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}
	if claims.UserID != "user-42" {
		t.Errorf("Expected user ID user-42, got %s", claims.UserID)
	}
	if claims.Name != "Alice" {
		t.Errorf("Expected name Alice, got %s", claims.Name)
	}
	if claims.SessionID == "" {
		t.Error("Claims should carry a session ID")
	}

	if _, err := jwtService.ValidateToken("not.a.token"); err == nil {
		t.Error("Garbage token should fail validation")
	}

	other := services.NewJWTService(&config.Config{JWTSecret: "different-secret"})
	if _, err := other.ValidateToken(token); err == nil {
		t.Error("Token signed with another secret should fail validation")
	}
}
