// Package middlewarectx содержит HTTP middleware: аутентификацию по JWT,
// проверку ролей, ограничение частоты запросов, журнал запросов и метрики.
//
// Аутентифицированный пользователь передаётся дальше через типизированный
// ключ контекста, см. WithUser и UserFromContext.
package middlewarectx

import (
	"context"

	"github.com/magabrotheeeer/users-api/internal/models"
)

type ctxKey struct{}

// WithUser кладёт пользователя в контекст запроса.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

// UserFromContext достаёт пользователя, положенного Auth.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(ctxKey{}).(*models.User)
	return user, ok && user != nil
}
