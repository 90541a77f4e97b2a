// Package list реализует HTTP-обработчик получения списка пользователей.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/users-api/internal/http/response"
	"github.com/magabrotheeeer/users-api/internal/models"
)

// Handler обрабатывает запросы на получение всех пользователей.
type Handler struct {
	log     *slog.Logger
	service Service
	dev     bool
}

// Service описывает интерфейс бизнес-логики получения списка.
type Service interface {
	List(ctx context.Context) ([]*models.User, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service, dev bool) *Handler {
	return &Handler{log: log, service: service, dev: dev}
}

// ServeHTTP godoc
// @Summary Список пользователей
// @Tags Users
// @Produce  json
// @Success 200 {array} models.User
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /users [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	users, err := h.service.List(r.Context())
	if err != nil {
		response.Fail(w, r, log, err, h.dev)
		return
	}

	if users == nil {
		users = []*models.User{}
	}

	log.Info("success to list users", slog.Int("count", len(users)))
	response.JSON(w, r, http.StatusOK, users)
}
