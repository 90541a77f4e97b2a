// Package login реализует HTTP-обработчик входа пользователя.
//
// При успешной проверке пароля клиенту выставляется cookie Authorization
// с JWT, а в теле возвращается сам пользователь.
package login

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/users-api/internal/http/response"
	"github.com/magabrotheeeer/users-api/internal/models"
	"github.com/magabrotheeeer/users-api/internal/services/auth"
)

// Handler обрабатывает HTTP-запросы для авторизации.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
	dev      bool
}

// Service описывает интерфейс бизнес-логики аутентификации.
type Service interface {
	Login(ctx context.Context, in models.Credentials) (*auth.LoginResult, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service, dev bool) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: response.NewValidator(),
		dev:      dev,
	}
}

// ServeHTTP godoc
// @Summary Авторизация пользователя
// @Description Проверяет email и пароль, выставляет cookie Authorization с JWT.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body models.Credentials true "Учетные данные пользователя"
// @Success 200 {object} response.Response{data=models.User} "Успешная авторизация"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 409 {object} response.ErrorResponse "Неверные учетные данные"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.Credentials
	if !response.Decode(w, r, log, &req, h.dev) {
		return
	}
	if !response.Validate(w, r, log, h.validate, req, h.dev) {
		return
	}

	res, err := h.service.Login(r.Context(), req)
	if err != nil {
		response.Fail(w, r, log, err, h.dev)
		return
	}

	log.Info("login success", slog.String("user_id", res.User.ID))
	w.Header().Set("Set-Cookie", res.Cookie)
	response.OK(w, r, http.StatusOK, res.User, "login")
}
