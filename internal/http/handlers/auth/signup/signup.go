// Package signup реализует HTTP-обработчик регистрации пользователя.
package signup

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/users-api/internal/http/response"
	"github.com/magabrotheeeer/users-api/internal/models"
)

// Handler обрабатывает HTTP-запросы на регистрацию.
type Handler struct {
	log      *slog.Logger        // Логгер для записи операций и ошибок
	service  Service             // Сервис аутентификации
	validate *validator.Validate // Валидатор для проверки входных данных
	dev      bool                // Отдавать ли детали ошибок клиенту
}

// Service описывает интерфейс бизнес-логики регистрации.
type Service interface {
	Signup(ctx context.Context, in models.CreateUser) (*models.User, error)
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
// @Summary Регистрация пользователя
// @Description Создаёт учётную запись с хэшированным паролем и ролью USER.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body models.CreateUser true "Данные пользователя"
// @Success 201 {object} response.Response{data=models.User} "Пользователь создан"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 409 {object} response.ErrorResponse "Email уже зарегистрирован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /signup [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.signup"

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

	user, err := h.service.Signup(r.Context(), req)
	if err != nil {
		response.Fail(w, r, log, err, h.dev)
		return
	}

	log.Info("user signed up", slog.String("user_id", user.ID))
	response.OK(w, r, http.StatusCreated, user, "signup")
}
