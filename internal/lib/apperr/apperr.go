// Package apperr описывает типизированную ошибку бизнес-уровня.
//
// Сервисы возвращают *Error с видом (Kind) и сообщением для клиента,
// а HTTP-слой переводит вид в статус по фиксированной таблице.
package apperr

import (
	"errors"
	"net/http"
)

// Kind — вид ошибки.
type Kind int

const (
	// KindInternal — непредвиденная ошибка (в том числе ошибки хранилища).
	KindInternal Kind = iota
	// KindBadRequest — пустой или некорректный ввод.
	KindBadRequest
	// KindUnauthorized — нет токена, токен невалиден или устарел.
	KindUnauthorized
	// KindForbidden — роль не позволяет выполнить действие.
	KindForbidden
	// KindNotFound — маршрут не найден.
	KindNotFound
	// KindConflict — ресурс уже существует или отсутствует.
	KindConflict
	// KindTooManyRequests — превышен лимит запросов.
	KindTooManyRequests
)

var statuses = map[Kind]int{
	KindInternal:        http.StatusInternalServerError,
	KindBadRequest:      http.StatusBadRequest,
	KindUnauthorized:    http.StatusUnauthorized,
	KindForbidden:       http.StatusForbidden,
	KindNotFound:        http.StatusNotFound,
	KindConflict:        http.StatusConflict,
	KindTooManyRequests: http.StatusTooManyRequests,
}

// Status возвращает HTTP-статус для вида ошибки.
func (k Kind) Status() int {
	if s, ok := statuses[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "BadRequest"
	case KindUnauthorized:
		return "Unauthorized"
	case KindForbidden:
		return "Forbidden"
	case KindNotFound:
		return "NotFound"
	case KindConflict:
		return "Conflict"
	case KindTooManyRequests:
		return "TooManyRequests"
	default:
		return "Internal"
	}
}

// Error — ошибка с видом и сообщением для клиента.
// Err хранит исходную причину и в ответ не попадает.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New создаёт ошибку заданного вида.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap создаёт ошибку заданного вида с сохранением причины.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func BadRequest(msg string) *Error      { return New(KindBadRequest, msg) }
func Unauthorized(msg string) *Error    { return New(KindUnauthorized, msg) }
func Forbidden(msg string) *Error       { return New(KindForbidden, msg) }
func NotFound(msg string) *Error        { return New(KindNotFound, msg) }
func Conflict(msg string) *Error        { return New(KindConflict, msg) }
func TooManyRequests(msg string) *Error { return New(KindTooManyRequests, msg) }

// Internal оборачивает непредвиденную ошибку.
func Internal(err error) *Error {
	return Wrap(KindInternal, http.StatusText(http.StatusInternalServerError), err)
}

// As извлекает *Error из цепочки.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf возвращает вид ошибки; для нетипизированных ошибок — KindInternal.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

// Сообщения, общие для auth-слоя.
const (
	MsgNotLoggedIn       = "You are not logged in! Please log in to get access."
	MsgUserNotExist      = "The user belonging to this token does no longer exist."
	MsgPasswordChanged   = "User recently changed password! Please log in again."
	MsgInvalidToken      = "Invalid token. Please log in again!"
	MsgTokenExpired      = "Your token has expired! Please log in again."
	MsgPermissionDenied  = "You do not have permission to perform this action"
	MsgInvalidCredential = "Invalid email or password"
	MsgUserDoesntExist   = "User doesn't exist"
	MsgEmptyInput        = "userData is empty"
	MsgResetTokenInvalid = "Token is invalid or has expired"
	MsgTooManyRequests   = "Too many requests from this IP, please try again in an hour!"
	MsgPasswordTooLong   = "password must be at most 72 bytes"
)
