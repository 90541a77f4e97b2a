// Package update реализует HTTP-обработчик частичного обновления пользователя.
//
// Меняются только поля, присутствующие в теле запроса.
package update

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/users-api/internal/http/response"
	"github.com/magabrotheeeer/users-api/internal/models"
)

// Handler обрабатывает запросы на обновление пользователя.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
	dev      bool
}

// Service описывает интерфейс бизнес-логики обновления.
type Service interface {
	Update(ctx context.Context, id string, in models.UpdateUser) (*models.User, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service, dev bool) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: response.NewValidator(),
		dev:      dev,
	}
}

// ServeHTTP godoc
// @Summary Обновление пользователя
// @Tags Users
// @Accept  json
// @Produce  json
// @Param id path string true "ID пользователя"
// @Param request body models.UpdateUser true "Изменяемые поля"
// @Success 200 {object} models.User
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 409 {object} response.ErrorResponse "Пользователь не найден или email занят"
// @Router /users/{id} [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.update"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")

	var req models.UpdateUser
	if !response.Decode(w, r, log, &req, h.dev) {
		return
	}
	if !response.Validate(w, r, log, h.validate, req, h.dev) {
		return
	}

	user, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		response.Fail(w, r, log, err, h.dev)
		return
	}

	log.Info("user updated", slog.String("user_id", id))
	response.JSON(w, r, http.StatusOK, user)
}
