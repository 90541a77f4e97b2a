package password

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

const (
	// DefaultResetTTL — время жизни секрета сброса пароля.
	DefaultResetTTL = 10 * time.Minute
	// DefaultResetTokenBytes — длина случайного токена в байтах до hex-кодирования.
	DefaultResetTokenBytes = 16
	// OTPLength — число цифр одноразового кода.
	OTPLength = 6
)

// ResetSecret — секрет для сброса пароля.
// Secret отправляется пользователю, SecretHash сохраняется в базе.
type ResetSecret struct {
	Secret     string
	SecretHash string
	Expire     time.Time
}

// Valid сообщает, действителен ли секрет в момент now.
func (s ResetSecret) Valid(now time.Time) bool {
	return now.Before(s.Expire)
}

// ResetGenerator выпускает секреты сброса пароля.
type ResetGenerator struct {
	tokenBytes int
	now        func() time.Time
}

// NewResetGenerator создаёт генератор; tokenBytes <= 0 означает DefaultResetTokenBytes.
func NewResetGenerator(tokenBytes int) *ResetGenerator {
	if tokenBytes <= 0 {
		tokenBytes = DefaultResetTokenBytes
	}
	return &ResetGenerator{tokenBytes: tokenBytes, now: time.Now}
}

// NewResetSecret генерирует секрет со сроком действия ttl.
// При asOTP секрет — цифровой код длины OTPLength, иначе — hex-токен.
func (g *ResetGenerator) NewResetSecret(ttl time.Duration, asOTP bool) (ResetSecret, error) {
	const op = "password.NewResetSecret"
	if ttl <= 0 {
		ttl = DefaultResetTTL
	}

	var (
		secret string
		err    error
	)
	if asOTP {
		secret, err = GenerateOTP(OTPLength)
	} else {
		secret, err = randomHex(g.tokenBytes)
	}
	if err != nil {
		return ResetSecret{}, fmt.Errorf("%s: %w", op, err)
	}

	return ResetSecret{
		Secret:     secret,
		SecretHash: HashResetSecret(secret),
		Expire:     g.now().Add(ttl),
	}, nil
}

// HashResetSecret возвращает sha256 секрета в hex — то, что хранится в базе.
func HashResetSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// GenerateOTP возвращает код из length случайных цифр.
func GenerateOTP(length int) (string, error) {
	const digits = "0123456789"
	buf := make([]byte, length)
	limit := big.NewInt(int64(len(digits)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		buf[i] = digits[n.Int64()]
	}
	return string(buf), nil
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
