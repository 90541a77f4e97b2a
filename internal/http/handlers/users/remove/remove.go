// Package remove реализует HTTP-обработчик удаления пользователя.
package remove

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/users-api/internal/http/response"
	"github.com/magabrotheeeer/users-api/internal/models"
)

// Handler обрабатывает запросы на удаление пользователя.
type Handler struct {
	log     *slog.Logger
	service Service
	dev     bool
}

// Service описывает интерфейс бизнес-логики удаления.
type Service interface {
	Delete(ctx context.Context, id string) (*models.User, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service, dev bool) *Handler {
	return &Handler{log: log, service: service, dev: dev}
}

// ServeHTTP godoc
// @Summary Удаление пользователя
// @Tags Users
// @Produce  json
// @Param id path string true "ID пользователя"
// @Success 200 {object} models.User "Удалённая запись"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 409 {object} response.ErrorResponse "Пользователь не найден"
// @Router /users/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.remove"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	user, err := h.service.Delete(r.Context(), id)
	if err != nil {
		response.Fail(w, r, log, err, h.dev)
		return
	}

	log.Info("user deleted", slog.String("user_id", id))
	response.JSON(w, r, http.StatusOK, user)
}
