// Package index отвечает на корневой запрос проверкой доступности сервера.
package index

import (
	"net/http"

	"github.com/go-chi/render"
)

// Response — тело ответа корневого маршрута.
type Response struct {
	Status  int    `json:"status" example:"200"`
	Message string `json:"message" example:"OK"`
}

type Handler struct{}

func New() *Handler {
	return &Handler{}
}

// ServeHTTP godoc
// @Summary Проверка сервера
// @Tags Health
// @Produce  json
// @Success 200 {object} Response
// @Router / [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, Response{Status: http.StatusOK, Message: http.StatusText(http.StatusOK)})
}
