// Package forgotpassword реализует HTTP-обработчик запроса на сброс пароля.
//
// Обработчик только ставит письмо в очередь; само письмо отправляет mailer.
package forgotpassword

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/users-api/internal/http/response"
	"github.com/magabrotheeeer/users-api/internal/models"
)

// MsgTokenSent — ответ на успешный запрос.
const MsgTokenSent = "Token sent to email!"

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
	dev      bool
}

type Service interface {
	ForgotPassword(ctx context.Context, email string) error
}

func New(log *slog.Logger, service Service, dev bool) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: response.NewValidator(),
		dev:      dev,
	}
}

// ServeHTTP godoc
// @Summary Запрос на сброс пароля
// @Description Генерирует секрет сброса и отправляет его на почту.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body models.ForgotPassword true "Email пользователя"
// @Success 200 {object} response.Response "Письмо поставлено в очередь"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 409 {object} response.ErrorResponse "Email не найден"
// @Failure 500 {object} response.ErrorResponse "Не удалось отправить письмо"
// @Router /forgotPassword [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.forgotpassword"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.ForgotPassword
	if !response.Decode(w, r, log, &req, h.dev) {
		return
	}
	if !response.Validate(w, r, log, h.validate, req, h.dev) {
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		response.Fail(w, r, log, err, h.dev)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response.Response{Message: MsgTokenSent})
}
