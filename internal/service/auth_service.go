package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/voltdesk/maintenance-service/internal/auth"
	"github.com/voltdesk/maintenance-service/internal/clock"
	"github.com/voltdesk/maintenance-service/internal/domain"
	"github.com/voltdesk/maintenance-service/internal/repository"
	apperrors "github.com/voltdesk/maintenance-service/pkg/util"
)

// AuthService handles operator login.
type AuthService struct {
	tx     repository.TxRunner
	tokens *auth.TokenManager
	clk    clock.Clock
	logger *zap.Logger
}

// NewAuthService constructs the service.
func NewAuthService(tx repository.TxRunner, tokens *auth.TokenManager, clk clock.Clock, logger *zap.Logger) *AuthService {
	return &AuthService{tx: tx, tokens: tokens, clk: clk, logger: logger}
}

// LoginResult carries the issued token and the authenticated user.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// Login verifies credentials and issues a tenant-bound JWT. Unknown email,
// wrong password and disabled account all produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password are required", nil)
	}

	var user *domain.User
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		user, err = repos.Users.GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if !user.IsActive || !auth.VerifyPassword(user.PasswordHash, password) {
			return apperrors.NewUnauthenticated("invalid credentials")
		}
		return repos.Users.TouchLastLogin(ctx, user.TenantID, user.ID, s.clk.Now())
	})
	if err != nil {
		if apperrors.Code(err) == apperrors.CodeNotFound {
			return nil, apperrors.NewUnauthenticated("invalid credentials")
		}
		return nil, err
	}

	token, expiresAt, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.logger.Info("user logged in",
		zap.String("tenant_id", user.TenantID),
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)))
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}
