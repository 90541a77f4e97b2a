// Package models содержит доменную модель пользователя системы и DTO
// входящих запросов. Структуры используются в бизнес‑логике, HTTP-слое
// и при работе с хранилищем.
package models

import (
	"strings"
	"time"
)

// Role — роль пользователя.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// User представляет зарегистрированного пользователя системы.
type User struct {
	ID                  string     `json:"id"`
	FirstName           string     `json:"firstName"`
	LastName            string     `json:"lastName"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"-"` // Хэш пароля, наружу не отдаётся
	IsVerified          bool       `json:"isVerified"`
	IsActive            bool       `json:"isActive"`
	Role                Role       `json:"role"`
	PasswordChangedAt   *time.Time `json:"passwordChangedAt,omitempty"`
	ResetPasswordToken  *string    `json:"-"` // sha256 секрета сброса
	ResetPasswordExpire *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// ChangedPasswordAfter сообщает, менялся ли пароль после выпуска токена
// с временем iat. Сравнение идёт с точностью до секунды.
func (u *User) ChangedPasswordAfter(iat time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return iat.Unix() < u.PasswordChangedAt.Unix()
}

// ResetPending сообщает, есть ли действующий запрос на сброс пароля.
func (u *User) ResetPending(now time.Time) bool {
	return u.ResetPasswordToken != nil && u.ResetPasswordExpire != nil && now.Before(*u.ResetPasswordExpire)
}

// PasswordChangeTime возвращает отметку смены пароля. Отметка сдвинута
// на секунду назад, чтобы токен, выпущенный в ту же секунду, оставался валидным.
func PasswordChangeTime(now time.Time) time.Time {
	return now.Add(-time.Second).UTC()
}

// NormalizeEmail приводит адрес к нижнему регистру без пробелов по краям.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser — тело запроса регистрации и создания пользователя.
type CreateUser struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
}

// Empty сообщает, что ни одно поле не заполнено.
func (c CreateUser) Empty() bool {
	return c == CreateUser{}
}

// Credentials — тело запроса входа.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Empty сообщает, что ни одно поле не заполнено.
func (c Credentials) Empty() bool {
	return c == Credentials{}
}

// UpdateUser — частичное обновление пользователя.
// Меняются только переданные (не nil) поля.
type UpdateUser struct {
	FirstName *string `json:"firstName,omitempty" validate:"omitempty,min=1"`
	LastName  *string `json:"lastName,omitempty" validate:"omitempty,min=1"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	Password  *string `json:"password,omitempty" validate:"omitempty,min=8"`
}

// Empty сообщает, что обновлять нечего.
func (u UpdateUser) Empty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Email == nil && u.Password == nil
}

// ForgotPassword — тело запроса на сброс пароля.
type ForgotPassword struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPassword — тело запроса установки нового пароля.
type ResetPassword struct {
	Password string `json:"password" validate:"required,min=8"`
}

// PasswordResetMessage — уведомление о сбросе пароля, уходящее в очередь.
type PasswordResetMessage struct {
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
