// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков.
//
// Успешный ответ имеет вид {data, message}, ошибка — {status, message}.
// Перевод ошибок бизнес-уровня в HTTP-статус выполняется в одном месте, в Fail.
package response

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/users-api/internal/lib/apperr"
	"github.com/magabrotheeeer/users-api/internal/lib/jwt"
	"github.com/magabrotheeeer/users-api/internal/lib/sl"
	"github.com/magabrotheeeer/users-api/internal/storage"
)

// Response описывает успешный JSON‑ответ.
type Response struct {
	Data    any    `json:"data,omitempty"`
	Message string `json:"message"`
}

// ErrorResponse — структура ошибки, также используется в аннотациях @Failure.
// Detail заполняется только в режиме разработки.
type ErrorResponse struct {
	Status  int    `json:"status" example:"409"`
	Message string `json:"message" example:"User doesn't exist"`
	Detail  string `json:"detail,omitempty"`
}

// OK отправляет ответ с данными и заданным статусом.
func OK(w http.ResponseWriter, r *http.Request, status int, data any, message string) {
	render.Status(r, status)
	render.JSON(w, r, Response{Data: data, Message: message})
}

// JSON отправляет значение без конверта {data,message}.
func JSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

// Error возвращает ErrorResponse с переданным статусом и сообщением.
func Error(status int, msg string) ErrorResponse {
	return ErrorResponse{Status: status, Message: msg}
}

// Fail переводит ошибку в HTTP-ответ и пишет её в лог вместе с методом и путём.
// При dev=true в ответ добавляется полная цепочка ошибки.
func Fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error, dev bool) {
	appErr := classify(err)
	status := appErr.Kind.Status()

	log.Error("request failed",
		slog.Int("status", status),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("message", appErr.Message),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		sl.Err(err),
	)

	body := Error(status, appErr.Message)
	if dev && err != nil {
		body.Detail = err.Error()
	}
	render.Status(r, status)
	render.JSON(w, r, body)
}

// classify приводит любую ошибку к *apperr.Error.
func classify(err error) *apperr.Error {
	if appErr, ok := apperr.As(err); ok {
		return appErr
	}
	switch {
	case errors.Is(err, storage.ErrInvalidID):
		return apperr.Wrap(apperr.KindBadRequest, "Invalid id.", err)
	case errors.Is(err, storage.ErrEmailTaken):
		return apperr.Wrap(apperr.KindConflict, "Duplicate field value: email. Please use another value!", err)
	case errors.Is(err, storage.ErrUserNotFound):
		return apperr.Wrap(apperr.KindConflict, apperr.MsgUserDoesntExist, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperr.Wrap(apperr.KindUnauthorized, apperr.MsgTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenInvalid):
		return apperr.Wrap(apperr.KindUnauthorized, apperr.MsgInvalidToken, err)
	default:
		return apperr.Internal(err)
	}
}

// BadRequest отправляет 400 с переданным сообщением.
func BadRequest(w http.ResponseWriter, r *http.Request, log *slog.Logger, msg string, err error, dev bool) {
	Fail(w, r, log, apperr.Wrap(apperr.KindBadRequest, msg, err), dev)
}

// ValidationError формирует текст ошибки на основе ошибок валидации.
// Нарушения объединяются через запятую.
func ValidationError(errs validator.ValidationErrors) string {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("%s should not be empty", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("%s must be an email", err.Field()))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("%s must be longer than or equal to %s characters", err.Field(), err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("%s is not valid", err.Field()))
		}
	}
	return strings.Join(errsMsgs, ", ")
}

// NewValidator создаёт валидатор, который называет поля по их JSON-именам.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate проверяет структуру и при ошибке сразу отвечает 400.
// Возвращает true, если запрос прошёл проверку.
func Validate(w http.ResponseWriter, r *http.Request, log *slog.Logger, v *validator.Validate, req any, dev bool) bool {
	err := v.Struct(req)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		BadRequest(w, r, log, ValidationError(verrs), err, dev)
		return false
	}
	BadRequest(w, r, log, "invalid request body", err, dev)
	return false
}

// Decode разбирает JSON-тело запроса и при ошибке отвечает 400.
func Decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, dst any, dev bool) bool {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		BadRequest(w, r, log, "invalid request body", err, dev)
		return false
	}
	return true
}
