// Package logout реализует HTTP-обработчик выхода. Токен на сервере
// не отзывается, клиенту лишь стирается cookie.
package logout

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/users-api/internal/http/middlewarectx"
	"github.com/magabrotheeeer/users-api/internal/http/response"
	"github.com/magabrotheeeer/users-api/internal/models"
	"github.com/magabrotheeeer/users-api/internal/services/auth"
)

type Handler struct {
	log     *slog.Logger
	service Service
	dev     bool
}

type Service interface {
	Logout(ctx context.Context, user *models.User) (*models.User, error)
}

func New(log *slog.Logger, service Service, dev bool) *Handler {
	return &Handler{
		log:     log,
		service: service,
		dev:     dev,
	}
}

// ServeHTTP godoc
// @Summary Выход пользователя
// @Description Стирает cookie Authorization.
// @Tags Auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.User} "Выход выполнен"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 409 {object} response.ErrorResponse "Пользователь не найден"
// @Router /logout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.logout"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	user, _ := middlewarectx.UserFromContext(r.Context())
	loggedOut, err := h.service.Logout(r.Context(), user)
	if err != nil {
		response.Fail(w, r, log, err, h.dev)
		return
	}

	log.Info("user logged out", slog.String("user_id", loggedOut.ID))
	w.Header().Set("Set-Cookie", auth.ClearedCookie)
	response.OK(w, r, http.StatusOK, loggedOut, "logout")
}
