// Package auth содержит бизнес-логику регистрации, входа, выхода,
// проверки токена и сброса пароля.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/users-api/internal/cache"
	"github.com/magabrotheeeer/users-api/internal/lib/apperr"
	"github.com/magabrotheeeer/users-api/internal/lib/jwt"
	"github.com/magabrotheeeer/users-api/internal/lib/password"
	"github.com/magabrotheeeer/users-api/internal/lib/sl"
	"github.com/magabrotheeeer/users-api/internal/models"
	"github.com/magabrotheeeer/users-api/internal/storage"
)

// UserRepository — операции хранилища, нужные auth-слою.
type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time, passwordHash string, changedAt time.Time) (*models.User, error)
	UpdateUser(ctx context.Context, id string, patch storage.UserPatch) (*models.User, error)
	SetResetToken(ctx context.Context, id string, tokenHash *string, expire *time.Time) error
}

// PasswordHasher хэширует и проверяет пароли.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// ResetSecretGenerator выпускает секреты сброса пароля.
type ResetSecretGenerator interface {
	NewResetSecret(ttl time.Duration, asOTP bool) (password.ResetSecret, error)
}

// Publisher отправляет уведомления в очередь.
type Publisher interface {
	Publish(ctx context.Context, message any) error
}

// Cache — кэш пользователей, общий с users-сервисом.
type Cache interface {
	Invalidate(ctx context.Context, key string) error
}

// Options — настройки сброса пароля.
type Options struct {
	ResetTTL   time.Duration
	ResetAsOTP bool
}

// LoginResult — результат успешного входа или сброса пароля.
type LoginResult struct {
	User      *models.User
	Token     string
	ExpiresIn time.Duration
	Cookie    string
}

// AuthService реализует бизнес-логику авторизации и аутентификации.
type AuthService struct {
	users     UserRepository
	hasher    PasswordHasher
	jwtMaker  jwt.Maker
	resets    ResetSecretGenerator
	publisher Publisher
	cache     Cache
	opts      Options
	log       *slog.Logger
	now       func() time.Time
}

// NewAuthService создаёт сервис. publisher может быть nil, тогда
// ForgotPassword недоступен. userCache может быть nil.
func NewAuthService(
	log *slog.Logger,
	users UserRepository,
	hasher PasswordHasher,
	jwtMaker jwt.Maker,
	resets ResetSecretGenerator,
	publisher Publisher,
	userCache Cache,
	opts Options,
) *AuthService {
	if opts.ResetTTL <= 0 {
		opts.ResetTTL = password.DefaultResetTTL
	}
	return &AuthService{
		users:     users,
		hasher:    hasher,
		jwtMaker:  jwtMaker,
		resets:    resets,
		publisher: publisher,
		cache:     userCache,
		opts:      opts,
		log:       log,
		now:       time.Now,
	}
}

// SessionCookie формирует значение Set-Cookie для выданного токена.
func SessionCookie(token string, maxAge time.Duration) string {
	return fmt.Sprintf("Authorization=%s; HttpOnly; Max-Age=%d;", token, int(maxAge.Seconds()))
}

// ClearedCookie — значение Set-Cookie, стирающее сессию.
const ClearedCookie = "Authorization=; Max-age=0"

// Signup регистрирует пользователя с хэшированным паролем и ролью USER.
func (s *AuthService) Signup(ctx context.Context, in models.CreateUser) (*models.User, error) {
	const op = "auth.Signup"
	if in.Empty() {
		return nil, apperr.BadRequest(apperr.MsgEmptyInput)
	}
	email := models.NormalizeEmail(in.Email)

	_, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, emailExists(in.Email)
	case !errors.Is(err, storage.ErrUserNotFound):
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, hashFailed(op, err)
	}

	user, err := s.users.CreateUser(ctx, models.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
	})
	if err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			return nil, emailExists(in.Email)
		}
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	s.log.Info("user signed up", sl.Op(op), slog.String("user_id", user.ID))
	return user, nil
}

// Login проверяет пароль и выдаёт JWT. Неизвестный email и неверный
// пароль дают одинаковую ошибку.
func (s *AuthService) Login(ctx context.Context, in models.Credentials) (*LoginResult, error) {
	const op = "auth.Login"
	if in.Empty() {
		return nil, apperr.BadRequest(apperr.MsgEmptyInput)
	}

	user, err := s.users.GetUserByEmail(ctx, models.NormalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, apperr.Conflict(apperr.MsgInvalidCredential)
		}
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		return nil, apperr.Conflict(apperr.MsgInvalidCredential)
	}

	return s.issue(op, user)
}

// Logout проверяет, что пользователь ещё существует. Сам токен не
// отзывается, вызывающая сторона стирает cookie.
func (s *AuthService) Logout(ctx context.Context, user *models.User) (*models.User, error) {
	const op = "auth.Logout"
	if user == nil || user.ID == "" {
		return nil, apperr.BadRequest(apperr.MsgEmptyInput)
	}

	found, err := s.users.GetUserByID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) || errors.Is(err, storage.ErrInvalidID) {
			return nil, apperr.Conflict(fmt.Sprintf("This email %s was not found", user.Email))
		}
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	return found, nil
}

// Authenticate проверяет токен и загружает его владельца.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	const op = "auth.Authenticate"
	if token == "" {
		return nil, apperr.Unauthorized(apperr.MsgNotLoggedIn)
	}

	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.Wrap(apperr.KindUnauthorized, apperr.MsgTokenExpired, err)
		}
		return nil, apperr.Wrap(apperr.KindUnauthorized, apperr.MsgInvalidToken, err)
	}
	if claims.UserID == "" {
		return nil, apperr.Unauthorized(apperr.MsgUserNotExist)
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) || errors.Is(err, storage.ErrInvalidID) {
			return nil, apperr.Unauthorized(apperr.MsgUserNotExist)
		}
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	var issuedAt time.Time
	if claims.IssuedAt != nil {
		issuedAt = claims.IssuedAt.Time
	}
	if user.ChangedPasswordAfter(issuedAt) {
		return nil, apperr.Unauthorized(apperr.MsgPasswordChanged)
	}
	return user, nil
}

// Me возвращает аутентифицированного пользователя.
func (s *AuthService) Me(_ context.Context, user *models.User) (*models.User, error) {
	if user == nil {
		return nil, apperr.Unauthorized(apperr.MsgNotLoggedIn)
	}
	return user, nil
}

// ForgotPassword сохраняет хэш секрета сброса и ставит письма в очередь.
// Если уведомление не ушло, секрет стирается.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	const op = "auth.ForgotPassword"
	if email == "" {
		return apperr.BadRequest(apperr.MsgEmptyInput)
	}
	if s.publisher == nil {
		return apperr.Internal(fmt.Errorf("%s: notification publisher is not configured", op))
	}
	log := s.log.With(sl.Op(op))

	user, err := s.users.GetUserByEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return apperr.Conflict(fmt.Sprintf("This email %s was not found", email))
		}
		return apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	secret, err := s.resets.NewResetSecret(s.opts.ResetTTL, s.opts.ResetAsOTP)
	if err != nil {
		return apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	if err := s.users.SetResetToken(ctx, user.ID, &secret.SecretHash, &secret.Expire); err != nil {
		return apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	s.forget(ctx, op, user.ID)

	msg := models.PasswordResetMessage{
		Email:     user.Email,
		FirstName: user.FirstName,
		Token:     secret.Secret,
		ExpiresAt: secret.Expire,
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		log.Error("failed to publish password reset", slog.String("user_id", user.ID), sl.Err(err))
		if clearErr := s.users.SetResetToken(ctx, user.ID, nil, nil); clearErr != nil {
			log.Error("failed to clear reset token", slog.String("user_id", user.ID), sl.Err(clearErr))
		}
		return apperr.Wrap(apperr.KindInternal, "There was an error sending the email. Try again later!", err)
	}

	log.Info("password reset requested", slog.String("user_id", user.ID))
	return nil
}

// ResetPassword меняет пароль по действующему секрету сброса и выдаёт
// новый токен.
func (s *AuthService) ResetPassword(ctx context.Context, secret, newPassword string) (*LoginResult, error) {
	const op = "auth.ResetPassword"
	if secret == "" || newPassword == "" {
		return nil, apperr.BadRequest(apperr.MsgEmptyInput)
	}
	now := s.now()

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, hashFailed(op, err)
	}

	user, err := s.users.ConsumeResetToken(ctx, password.HashResetSecret(secret), now, hash, models.PasswordChangeTime(now))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, apperr.BadRequest(apperr.MsgResetTokenInvalid)
		}
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	s.forget(ctx, op, user.ID)

	s.log.Info("password reset", sl.Op(op), slog.String("user_id", user.ID))
	return s.issue(op, user)
}

func (s *AuthService) issue(op string, user *models.User) (*LoginResult, error) {
	token, ttl, err := s.jwtMaker.GenerateToken(user.ID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	return &LoginResult{
		User:      user,
		Token:     token,
		ExpiresIn: ttl,
		Cookie:    SessionCookie(token, ttl),
	}, nil
}

// forget сбрасывает закэшированную копию пользователя.
func (s *AuthService) forget(ctx context.Context, op, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, cache.UserKey(id)); err != nil {
		s.log.Warn("failed to invalidate user cache", sl.Op(op), slog.String("user_id", id), sl.Err(err))
	}
}

func hashFailed(op string, err error) error {
	if errors.Is(err, password.ErrPasswordTooLong) {
		return apperr.Wrap(apperr.KindBadRequest, apperr.MsgPasswordTooLong, err)
	}
	return apperr.Internal(fmt.Errorf("%s: %w", op, err))
}

func emailExists(email string) *apperr.Error {
	return apperr.Conflict(fmt.Sprintf("This email %s already exists", email))
}
