package dto

import (
	"time"

	"github.com/voltdesk/maintenance-service/internal/domain"
)

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	UserID    string          `json:"user_id"`
	TenantID  string          `json:"tenant_id"`
	Role      domain.UserRole `json:"role"`
	FullName  string          `json:"full_name"`
}
