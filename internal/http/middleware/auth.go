package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pribylovaa/agrichain-auth/internal/http/apierrors"
	"github.com/pribylovaa/agrichain-auth/internal/models"
	"github.com/pribylovaa/agrichain-auth/internal/pkg/log"
)

// TokenVerifier проверяет access-токен (реализуется tokens.Manager).
type TokenVerifier interface {
	VerifyAccess(token string) (models.Identity, error)
}

type identityKey struct{}

// WithIdentity кладёт личность в контекст.
func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom достаёт личность, прикреплённую Authenticate.
func IdentityFrom(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(models.Identity)
	return id, ok
}

// bearerToken извлекает токен из "Authorization: Bearer <token>" (схема без учёта регистра).
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}

// Authenticate проверяет Bearer access-токен и прикрепляет личность к контексту.
// Нет токена, токен истёк или испорчен -> 401. Сам токен никогда не логируется.
func Authenticate(v TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			lg := log.From(ctx)

			token := bearerToken(r)
			if token == "" {
				lg.Warn("auth_rejected",
					slog.String("path", r.URL.Path),
					slog.String("reason", "no token provided"),
				)
				apierrors.WriteError(w, r, apierrors.ErrNoToken)
				return
			}

			id, err := v.VerifyAccess(token)
			if err != nil {
				lg.Warn("auth_rejected",
					slog.String("path", r.URL.Path),
					slog.String("reason", err.Error()),
				)
				apierrors.WriteError(w, r, err)
				return
			}

			lg = lg.With(
				slog.String("user_id", id.UserID.String()),
				slog.String("role", id.Role.String()),
			)
			setRequestLogger(ctx, lg)

			ctx = log.Into(WithIdentity(ctx, id), lg)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole пропускает только личности с ролью из allowed; запускается после Authenticate.
// Нет личности -> 401, роль не подходит -> 403.
func RequireRole(allowed ...models.Role) Middleware {
	set := make(map[models.Role]struct{}, len(allowed))
	for _, role := range allowed {
		if !role.IsValid() {
			panic(fmt.Sprintf("middleware.RequireRole: unknown role %q", role))
		}
		set[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				apierrors.WriteError(w, r, apierrors.ErrNoToken)
				return
			}

			if _, ok := set[id.Role]; !ok {
				log.From(r.Context()).Warn("access_forbidden",
					slog.String("path", r.URL.Path),
					slog.String("role", id.Role.String()),
				)
				apierrors.WriteError(w, r, apierrors.ErrForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
