// Package password реализует хеширование и проверку паролей, а также
// генерацию секретов для сброса пароля.
//
// Hasher создаёт bcrypt-хеш с настраиваемой стоимостью. Стоимость
// записывается в сам хеш, поэтому её смена не ломает проверку старых хешей.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes — предел длины пароля в байтах, который принимает bcrypt.
const MaxPasswordBytes = 72

// ErrPasswordTooLong — пароль длиннее MaxPasswordBytes байт.
var ErrPasswordTooLong = bcrypt.ErrPasswordTooLong

// Hasher хеширует пароли с фиксированной стоимостью bcrypt.
type Hasher struct {
	cost int
}

// NewHasher создаёт Hasher. Стоимость вне допустимого диапазона bcrypt
// заменяется на bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Cost возвращает используемую стоимость.
func (h *Hasher) Cost() int {
	return h.cost
}

// Hash принимает пароль пользователя и возвращает его bcrypt‑хэш.
// Пароль длиннее MaxPasswordBytes байт отклоняется с ErrPasswordTooLong.
func (h *Hasher) Hash(password string) (string, error) {
	const op = "password.Hash"
	if len(password) > MaxPasswordBytes {
		return "", fmt.Errorf("%s: %w", op, ErrPasswordTooLong)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashed), nil
}

// Verify сравнивает пароль с bcrypt‑хэшем за постоянное время.
// Возвращает false при несовпадении и при повреждённом хеше.
func (h *Hasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
