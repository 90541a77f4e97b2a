// Package me отдаёт профиль аутентифицированного пользователя.
package me

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/users-api/internal/http/middlewarectx"
	"github.com/magabrotheeeer/users-api/internal/http/response"
	"github.com/magabrotheeeer/users-api/internal/models"
)

type Handler struct {
	log     *slog.Logger
	service Service
	dev     bool
}

type Service interface {
	Me(ctx context.Context, user *models.User) (*models.User, error)
}

func New(log *slog.Logger, service Service, dev bool) *Handler {
	return &Handler{log: log, service: service, dev: dev}
}

// ServeHTTP godoc
// @Summary Текущий пользователь
// @Tags Auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.User}
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Router /me [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.me"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	user, _ := middlewarectx.UserFromContext(r.Context())
	me, err := h.service.Me(r.Context(), user)
	if err != nil {
		response.Fail(w, r, log, err, h.dev)
		return
	}
	response.OK(w, r, http.StatusOK, me, "me")
}
