// Package read реализует HTTP-обработчик получения пользователя по ID.
//
// Handler извлекает ID из URL-параметров и вызывает бизнес-логику.
// Отсутствующий пользователь даёт 409, как и остальные операции над пользователями.
package read

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/users-api/internal/http/response"
	"github.com/magabrotheeeer/users-api/internal/models"
)

// Handler обрабатывает запросы на получение пользователя.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис бизнес-логики
	dev     bool
}

// Service описывает интерфейс бизнес-логики чтения пользователя.
type Service interface {
	Get(ctx context.Context, id string) (*models.User, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service, dev bool) *Handler {
	return &Handler{log: log, service: service, dev: dev}
}

// ServeHTTP godoc
// @Summary Пользователь по ID
// @Tags Users
// @Produce  json
// @Param id path string true "ID пользователя"
// @Success 200 {object} models.User
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 409 {object} response.ErrorResponse "Пользователь не найден"
// @Router /users/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.read"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		response.Fail(w, r, log, err, h.dev)
		return
	}

	log.Info("success to read user", slog.String("user_id", id))
	response.JSON(w, r, http.StatusOK, user)
}
