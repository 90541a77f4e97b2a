// Package health отдаёт состояние сервера и подключения к базе.
package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/users-api/internal/storage"
)

// MsgHealthy — сообщение ответа /health.
const MsgHealthy = "Server is up and running"

// Database — состояние подключения к базе.
type Database struct {
	State   string `json:"state" example:"up"`
	DBState string `json:"dbState" example:"connected"`
}

// Response — тело ответа /health.
type Response struct {
	Status   int      `json:"status" example:"200"`
	Message  string   `json:"message"`
	Database Database `json:"database"`
}

// StateChecker сообщает состояние подключения к базе.
type StateChecker interface {
	State(ctx context.Context) int
}

type Handler struct {
	log *slog.Logger
	db  StateChecker
}

func New(log *slog.Logger, db StateChecker) *Handler {
	return &Handler{
		log: log,
		db:  db,
	}
}

// ServeHTTP godoc
// @Summary Состояние сервера
// @Tags Health
// @Produce  json
// @Success 200 {object} Response
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.index.health"

	state := h.db.State(r.Context())
	db := Database{State: "down", DBState: storage.StateName(state)}
	if state == storage.StateConnected {
		db.State = "up"
	}

	h.log.Info(MsgHealthy,
		slog.String("op", op),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("db_state", db.DBState),
	)
	render.Status(r, http.StatusOK)
	render.JSON(w, r, Response{
		Status:   http.StatusOK,
		Message:  MsgHealthy,
		Database: db,
	})
}
