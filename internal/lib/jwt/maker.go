// Package jwt реализует выпуск, проверку и декодирование JWT токенов,
// содержащих идентификатор пользователя.
//
// Maker определяет интерфейс сервиса токенов, MakerImpl — реализация на HS256
// с секретным ключом и временем жизни из конфигурации процесса.
package jwt

import (
	"errors"
	"time"
)

// DefaultTokenTTL — время жизни токена, если в конфигурации не задано иное.
const DefaultTokenTTL = time.Hour

var (
	// ErrTokenExpired — срок действия токена истёк.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid — подпись или формат токена неверны.
	ErrTokenInvalid = errors.New("token invalid")
)

// Maker описывает интерфейс для выпуска и разбора JWT токенов.
type Maker interface {
	// GenerateToken выпускает подписанный токен для пользователя и
	// возвращает время его жизни.
	GenerateToken(userID string) (string, time.Duration, error)
	// ParseToken проверяет подпись и срок действия токена.
	ParseToken(tokenStr string) (*CustomClaims, error)
	// DecodeToken извлекает claims без проверки подписи.
	DecodeToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl реализует интерфейс Maker с использованием секретного ключа
// и времени жизни токена (TTL).
type MakerImpl struct {
	secretKey []byte        // Секретный ключ для подписи токенов.
	tokenTTL  time.Duration // Время жизни токена.
	now       func() time.Time
}

// NewJWTMaker создаёт новый экземпляр MakerImpl. Неположительный ttl
// заменяется на DefaultTokenTTL.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &MakerImpl{
		secretKey: []byte(secretKey),
		tokenTTL:  ttl,
		now:       time.Now,
	}
}

// TTL возвращает время жизни выпускаемых токенов.
func (j *MakerImpl) TTL() time.Duration {
	return j.tokenTTL
}
