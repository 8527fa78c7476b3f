package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/voltdesk/maintenance-service/internal/domain"
	"github.com/voltdesk/maintenance-service/internal/repository"
	apperrors "github.com/voltdesk/maintenance-service/pkg/util"
)

const principalKey = "auth_principal"

// Principal is the trusted (tenant_id, user_id, role) tuple the core operates
// on. The tenant binding in the token is verified against the stored user.
type Principal struct {
	TenantID string
	UserID   string
	Role     domain.UserRole
}

// Middleware validates bearer tokens and loads principals.
type Middleware struct {
	tokens *TokenManager
	users  repository.UserRepository
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenManager, users repository.UserRepository) *Middleware {
	return &Middleware{tokens: tokens, users: users}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthenticated("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthenticated("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthenticated("invalid token")
	}

	// The lookup is tenant-scoped, so a token whose tenant claim does not
	// match the stored user resolves to nothing.
	user, err := m.users.GetByID(c.UserContext(), claims.TenantID, claims.Subject)
	if err != nil {
		if apperrors.Code(err) == apperrors.CodeNotFound {
			return apperrors.NewUnauthenticated("user not found")
		}
		return apperrors.MapError(err)
	}
	if !user.IsActive {
		return apperrors.NewUnauthenticated("user disabled")
	}

	c.Locals(principalKey, &Principal{
		TenantID: user.TenantID,
		UserID:   user.ID,
		Role:     user.Role,
	})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated principal.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// RequireRole ensures the principal has one of the allowed roles.
func RequireRole(allowed ...domain.UserRole) fiber.Handler {
	allowedSet := make(map[domain.UserRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			return apperrors.NewUnauthorized("insufficient role")
		}
		return c.Next()
	}
}
