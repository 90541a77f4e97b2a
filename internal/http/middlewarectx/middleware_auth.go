package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/magabrotheeeer/users-api/internal/http/response"
	"github.com/magabrotheeeer/users-api/internal/lib/apperr"
	"github.com/magabrotheeeer/users-api/internal/models"
)

const bearerPrefix = "Bearer "

// Authenticator проверяет токен и возвращает его владельца.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// ExtractToken достаёт токен из заголовка Authorization: Bearer, затем
// из cookie token, затем из cookie Authorization. Пустая строка — токена нет.
func ExtractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, bearerPrefix) {
		if token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix)); token != "" {
			return token
		}
	}
	for _, name := range []string{"token", "Authorization"} {
		if c, err := r.Cookie(name); err == nil && c.Value != "" {
			return c.Value
		}
	}
	return ""
}

// Auth возвращает middleware, который пропускает запрос дальше только
// с валидным токеном и кладёт пользователя в контекст.
func Auth(log *slog.Logger, authenticator Authenticator, dev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authenticator.Authenticate(r.Context(), ExtractToken(r))
			if err != nil {
				response.Fail(w, r, log.With(slog.String("op", "middlewarectx.Auth")), err, dev)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RestrictTo пропускает только пользователей с одной из перечисленных ролей.
// Должен стоять после Auth.
func RestrictTo(log *slog.Logger, dev bool, roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				response.Fail(w, r, log, apperr.Unauthorized(apperr.MsgNotLoggedIn), dev)
				return
			}
			if !slices.Contains(roles, user.Role) {
				response.Fail(w, r, log, apperr.Forbidden(apperr.MsgPermissionDenied), dev)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
