package middleware

import (
	"context"
	"net/http"

	"playtopia/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequireAdmin middleware ensures the user has admin role
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetUserRole(r.Context())
			if !ok {
				logger.Warn("Role not found in context")
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			if role != "admin" {
				logger.Warn("Non-admin user attempted to access admin endpoint",
					zap.String("role", role),
				)
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// UserStatusReader loads the account behind an authenticated request.
// Satisfied by repository.UserRepository.
type UserStatusReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// RequireActiveUser rejects requests from blocked accounts. Tokens issued
// before a block stay cryptographically valid, so the account flag is
// re-checked on every protected request.
func RequireActiveUser(users UserStatusReader, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := GetUserUUID(r.Context())
			if !ok {
				logger.Warn("User ID not found in context")
				RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
				return
			}

			user, err := users.FindByID(r.Context(), userID)
			if err != nil {
				logger.Warn("Failed to load account for request",
					zap.String("user_id", userID.String()),
					zap.Error(err),
				)
				RespondWithError(w, http.StatusUnauthorized, "account not found")
				return
			}

			if user.IsBlocked {
				logger.Warn("Blocked account attempted access",
					zap.String("user_id", userID.String()),
				)
				RespondWithError(w, http.StatusForbidden, "account is blocked")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
