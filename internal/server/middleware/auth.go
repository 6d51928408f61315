package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/iudanet/productreviews/internal/server/jwt"
	"github.com/iudanet/productreviews/internal/server/metrics"
	"github.com/iudanet/productreviews/internal/server/response"
	"github.com/iudanet/productreviews/internal/server/session"
)

// Сообщения Auth Gate
const (
	SessionExpiredMessage = "Session expired."
	InvalidTokenMessage   = "Invalid token."
)

// TokenVerifier проверяет подпись и срок действия токена
type TokenVerifier interface {
	Verify(token string) (*jwt.Claims, error)
}

type claimsKey struct{}

// WithClaims кладет claims аутентифицированного пользователя в контекст
func WithClaims(ctx context.Context, claims *jwt.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// UserFromContext возвращает claims, добавленные AuthGate
func UserFromContext(ctx context.Context) (*jwt.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*jwt.Claims)
	return claims, ok && claims != nil
}

// AuthGate пропускает запрос только с валидным токеном в сессии.
// Требует установленный session.Manager.Middleware, сессию не изменяет.
func AuthGate(verifier TokenVerifier, logger *slog.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := session.AuthToken(r.Context())
			if token == "" {
				logger.DebugContext(r.Context(), "No auth token in session", "path", r.URL.Path)
				m.AuthFailure("session_expired")
				_ = response.Message(w, http.StatusUnauthorized, SessionExpiredMessage)
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				logger.WarnContext(r.Context(), "Invalid auth token", "error", err)
				m.AuthFailure("invalid_token")
				_ = response.Message(w, http.StatusUnauthorized, InvalidTokenMessage)
				return
			}

			logger.DebugContext(r.Context(), "User authenticated", "user_id", claims.UserID())

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}
