// Package resetpassword реализует HTTP-обработчик установки нового пароля
// по секрету из письма.
package resetpassword

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/users-api/internal/http/response"
	"github.com/magabrotheeeer/users-api/internal/models"
	"github.com/magabrotheeeer/users-api/internal/services/auth"
)

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
	dev      bool
}

type Service interface {
	ResetPassword(ctx context.Context, secret, newPassword string) (*auth.LoginResult, error)
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
// @Summary Сброс пароля
// @Description Меняет пароль по секрету сброса и выдаёт новый JWT в cookie.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param resetToken path string true "Секрет сброса"
// @Param request body models.ResetPassword true "Новый пароль"
// @Success 200 {object} response.Response{data=models.User}
// @Failure 400 {object} response.ErrorResponse "Секрет неверен или истёк"
// @Router /resetPassword/{resetToken} [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.resetpassword"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	secret := chi.URLParam(r, "resetToken")

	var req models.ResetPassword
	if !response.Decode(w, r, log, &req, h.dev) {
		return
	}
	if !response.Validate(w, r, log, h.validate, req, h.dev) {
		return
	}

	res, err := h.service.ResetPassword(r.Context(), secret, req.Password)
	if err != nil {
		response.Fail(w, r, log, err, h.dev)
		return
	}

	log.Info("password reset", slog.String("user_id", res.User.ID))
	w.Header().Set("Set-Cookie", res.Cookie)
	response.OK(w, r, http.StatusOK, res.User, "resetPassword")
}
