// Package storage описывает общие для всех хранилищ ошибки и типы.
// Конкретные реализации лежат в подпакетах repository (PostgreSQL)
// и mongostore (MongoDB).
package storage

import (
	"errors"
	"time"
)

var (
	// ErrUserNotFound — пользователь с указанным ключом отсутствует.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken — адрес уже занят другим пользователем.
	ErrEmailTaken = errors.New("email already taken")
	// ErrInvalidID — идентификатор имеет неверный формат.
	ErrInvalidID = errors.New("invalid id")
)

// UserPatch — набор изменений пользователя. Nil-поля не меняются.
type UserPatch struct {
	FirstName         *string
	LastName          *string
	Email             *string
	PasswordHash      *string
	PasswordChangedAt *time.Time
	// ClearResetToken сбрасывает поля ожидающего сброса пароля.
	ClearResetToken bool
}

// Empty сообщает, что патч ничего не меняет.
func (p UserPatch) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil &&
		p.PasswordHash == nil && p.PasswordChangedAt == nil && !p.ClearResetToken
}

// Состояния подключения к базе для /health.
const (
	StateDisconnected = 0
	StateConnected    = 1
)

// StateName возвращает текстовое имя состояния подключения.
func StateName(state int) string {
	if state == StateConnected {
		return "connected"
	}
	return "disconnected"
}
