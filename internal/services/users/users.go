// Package users содержит бизнес-логику CRUD над пользователями
// с кешированием отдельных записей.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/users-api/internal/cache"
	"github.com/magabrotheeeer/users-api/internal/lib/apperr"
	"github.com/magabrotheeeer/users-api/internal/lib/password"
	"github.com/magabrotheeeer/users-api/internal/lib/sl"
	"github.com/magabrotheeeer/users-api/internal/models"
	"github.com/magabrotheeeer/users-api/internal/storage"
)

// DefaultCacheTTL — время жизни записи в кеше по умолчанию.
const DefaultCacheTTL = time.Hour

// UserRepository — операции хранилища пользователей.
type UserRepository interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	UpdateUser(ctx context.Context, id string, patch storage.UserPatch) (*models.User, error)
	DeleteUser(ctx context.Context, id string) (*models.User, error)
}

type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
}

// UserService реализует CRUD пользователей. cache может быть nil.
type UserService struct {
	repo     UserRepository
	cache    Cache
	hasher   PasswordHasher
	cacheTTL time.Duration
	log      *slog.Logger
	now      func() time.Time
}

func NewUserService(log *slog.Logger, repo UserRepository, userCache Cache, hasher PasswordHasher, cacheTTL time.Duration) *UserService {
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &UserService{
		repo:     repo,
		cache:    userCache,
		hasher:   hasher,
		cacheTTL: cacheTTL,
		log:      log,
		now:      time.Now,
	}
}

func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	const op = "users.List"
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	return users, nil
}

// Get возвращает пользователя, сначала заглядывая в кеш.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	const op = "users.Get"
	if id == "" {
		return nil, apperr.BadRequest("UserId is empty")
	}

	key := cache.UserKey(id)
	if s.cache != nil {
		var cached models.User
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.log.Warn("failed to read from cache", sl.Op(op), slog.String("key", key), sl.Err(err))
		} else if found {
			return &cached, nil
		}
	}

	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, translate(op, id, err)
	}

	s.remember(ctx, op, user)
	return user, nil
}

// Create создаёт пользователя с хэшированным паролем.
func (s *UserService) Create(ctx context.Context, in models.CreateUser) (*models.User, error) {
	const op = "users.Create"
	if in.Empty() {
		return nil, apperr.BadRequest(apperr.MsgEmptyInput)
	}
	email := models.NormalizeEmail(in.Email)

	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return nil, emailExists(in.Email)
	} else if !errors.Is(err, storage.ErrUserNotFound) {
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, hashFailed(op, err)
	}

	user, err := s.repo.CreateUser(ctx, models.User{
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

	s.log.Info("created new user", sl.Op(op), slog.String("user_id", user.ID))
	return user, nil
}

// Update применяет только переданные поля. Новый пароль хэшируется,
// а отметка его смены обновляется.
func (s *UserService) Update(ctx context.Context, id string, in models.UpdateUser) (*models.User, error) {
	const op = "users.Update"
	if id == "" {
		return nil, apperr.BadRequest("UserId is empty")
	}
	if in.Empty() {
		return nil, apperr.BadRequest(apperr.MsgEmptyInput)
	}

	patch := storage.UserPatch{
		FirstName: in.FirstName,
		LastName:  in.LastName,
	}

	if in.Email != nil {
		email := models.NormalizeEmail(*in.Email)
		found, err := s.repo.GetUserByEmail(ctx, email)
		switch {
		case err == nil && found.ID != id:
			return nil, emailExists(*in.Email)
		case err != nil && !errors.Is(err, storage.ErrUserNotFound):
			return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
		}
		patch.Email = &email
	}

	if in.Password != nil {
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, hashFailed(op, err)
		}
		changedAt := models.PasswordChangeTime(s.now())
		patch.PasswordHash = &hash
		patch.PasswordChangedAt = &changedAt
	}

	user, err := s.repo.UpdateUser(ctx, id, patch)
	if err != nil {
		if errors.Is(err, storage.ErrEmailTaken) && in.Email != nil {
			return nil, emailExists(*in.Email)
		}
		return nil, translate(op, id, err)
	}

	s.forget(ctx, op, id)
	s.log.Info("updated user", sl.Op(op), slog.String("user_id", id))
	return user, nil
}

// Delete удаляет пользователя и возвращает удалённую запись.
func (s *UserService) Delete(ctx context.Context, id string) (*models.User, error) {
	const op = "users.Delete"
	if id == "" {
		return nil, apperr.BadRequest("UserId is empty")
	}

	user, err := s.repo.DeleteUser(ctx, id)
	if err != nil {
		return nil, translate(op, id, err)
	}

	s.forget(ctx, op, id)
	s.log.Info("deleted user", sl.Op(op), slog.String("user_id", id))
	return user, nil
}

func (s *UserService) remember(ctx context.Context, op string, user *models.User) {
	if s.cache == nil {
		return
	}
	key := cache.UserKey(user.ID)
	if err := s.cache.Set(ctx, key, user, s.cacheTTL); err != nil {
		s.log.Warn("failed to add to cache", sl.Op(op), slog.String("key", key), sl.Err(err))
	}
}

func (s *UserService) forget(ctx context.Context, op, id string) {
	if s.cache == nil {
		return
	}
	key := cache.UserKey(id)
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.log.Warn("failed to remove from cache", sl.Op(op), slog.String("key", key), sl.Err(err))
	}
}

func translate(op, id string, err error) error {
	switch {
	case errors.Is(err, storage.ErrUserNotFound):
		return apperr.Conflict(apperr.MsgUserDoesntExist)
	case errors.Is(err, storage.ErrInvalidID):
		return apperr.Wrap(apperr.KindBadRequest, fmt.Sprintf("Invalid id: %s.", id), err)
	default:
		return apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
}

// hashFailed отличает слишком длинный пароль от внутренней ошибки.
func hashFailed(op string, err error) error {
	if errors.Is(err, password.ErrPasswordTooLong) {
		return apperr.Wrap(apperr.KindBadRequest, apperr.MsgPasswordTooLong, err)
	}
	return apperr.Internal(fmt.Errorf("%s: %w", op, err))
}

func emailExists(email string) *apperr.Error {
	return apperr.Conflict(fmt.Sprintf("This email %s already exists", email))
}
