package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hongminglow/citizen-portal/internal/auth"
	"github.com/hongminglow/citizen-portal/internal/http/respond"
	"github.com/hongminglow/citizen-portal/internal/models"
)

// TokenVerifier resolves a bearer token to a user.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (models.User, error)
}

// PermissionChecker answers whether a user holds a named permission.
type PermissionChecker interface {
	HasPermission(ctx context.Context, user models.User, name string) (bool, error)
}

type userKey struct{}

// WithUser stores the authenticated user on ctx.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the user stored by RequireAuth.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userKey{}).(models.User)
	return user, ok
}

// RequireAuth rejects requests without a valid bearer token and stores the
// resolved user on the request context.
func RequireAuth(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				respond.FromError(w, logger, auth.ErrInvalidToken)
				return
			}
			user, err := verifier.VerifyToken(r.Context(), token)
			if err != nil {
				logger.Debug("token rejected", "err", err, "request_id", RequestIDFromContext(r.Context()))
				respond.FromError(w, logger, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequirePermission returns 403 unless the authenticated user holds perm.
// Must be used after RequireAuth.
func RequirePermission(checker PermissionChecker, perm string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				respond.FromError(w, logger, auth.ErrInvalidToken)
				return
			}
			allowed, err := checker.HasPermission(r.Context(), user, perm)
			if err != nil {
				respond.FromError(w, logger, err)
				return
			}
			if !allowed {
				logger.Warn("user lacks required permission", "user_id", user.ID, "permission", perm)
				respond.FromError(w, logger, respond.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
