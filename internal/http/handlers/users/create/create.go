// Package create реализует HTTP-обработчик создания пользователя.
package create

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/users-api/internal/http/response"
	"github.com/magabrotheeeer/users-api/internal/models"
)

// Handler обрабатывает запросы на создание пользователя.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
	dev      bool
}

// Service описывает интерфейс бизнес-логики создания пользователя.
type Service interface {
	Create(ctx context.Context, in models.CreateUser) (*models.User, error)
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
// @Summary Создание пользователя
// @Tags Users
// @Accept  json
// @Produce  json
// @Param request body models.CreateUser true "Данные пользователя"
// @Success 201 {object} models.User
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 409 {object} response.ErrorResponse "Email уже занят"
// @Router /users [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.create"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.CreateUser
	if !response.Decode(w, r, log, &req, h.dev) {
		return
	}
	if !response.Validate(w, r, log, h.validate, req, h.dev) {
		return
	}

	user, err := h.service.Create(r.Context(), req)
	if err != nil {
		response.Fail(w, r, log, err, h.dev)
		return
	}

	log.Info("user created", slog.String("user_id", user.ID))
	response.JSON(w, r, http.StatusCreated, user)
}
