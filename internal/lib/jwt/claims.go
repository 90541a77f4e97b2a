package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims описывает данные, хранящиеся в JWT.
type CustomClaims struct {
	UserID               string `json:"id"` // Идентификатор пользователя
	jwt.RegisteredClaims        // Стандартные claims JWT (ExpiresAt, IssuedAt)
}

// GenerateToken создаёт JWT токен с идентификатором пользователя,
// подписывая его секретным ключом по HS256.
func (j *MakerImpl) GenerateToken(userID string) (string, time.Duration, error) {
	const op = "jwt.GenerateToken"
	now := j.now()
	claims := CustomClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", 0, fmt.Errorf("%s: %w", op, err)
	}
	return signed, j.tokenTTL, nil
}

// ParseToken парсит JWT токен, проверяет подпись, алгоритм и срок действия.
// Ошибка оборачивает ErrTokenExpired или ErrTokenInvalid.
func (j *MakerImpl) ParseToken(tokenStr string) (*CustomClaims, error) {
	const op = "jwt.ParseToken"
	claims := &CustomClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(_ *jwt.Token) (any, error) {
		return j.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(j.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%s: %w: %w", op, ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%s: %w: %w", op, ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%s: %w", op, ErrTokenInvalid)
	}
	return claims, nil
}

// DecodeToken извлекает claims без проверки подписи и срока действия.
// Результат нельзя использовать для авторизации.
func (j *MakerImpl) DecodeToken(tokenStr string) (*CustomClaims, error) {
	const op = "jwt.DecodeToken"
	claims := &CustomClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrTokenInvalid, err)
	}
	return claims, nil
}
