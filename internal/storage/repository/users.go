package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/users-api/internal/models"
	"github.com/magabrotheeeer/users-api/internal/storage"
)

const userColumns = `id, first_name, last_name, email, password_hash, is_verified, is_active, role,
			      password_changed_at, reset_password_token, reset_password_expire, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	var (
		u                  models.User
		role               string
		changedAt, expire  sql.NullTime
		resetPasswordToken sql.NullString
	)
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash,
		&u.IsVerified, &u.IsActive, &role, &changedAt, &resetPasswordToken, &expire,
		&u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	if changedAt.Valid {
		u.PasswordChangedAt = &changedAt.Time
	}
	if resetPasswordToken.Valid {
		u.ResetPasswordToken = &resetPasswordToken.String
	}
	if expire.Valid {
		u.ResetPasswordExpire = &expire.Time
	}
	return &u, nil
}

func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", storage.ErrInvalidID, id)
	}
	return nil
}

// CreateUser сохраняет нового пользователя и возвращает запись с присвоенным ID.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	const op = "storage.CreateUser"

	role := user.Role
	if role == "" {
		role = models.RoleUser
	}
	query := `INSERT INTO users (first_name, last_name, email, password_hash, is_verified, is_active, role)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING ` + userColumns
	u, err := scanUser(s.DB.QueryRowContext(ctx, query,
		user.FirstName, user.LastName, models.NormalizeEmail(user.Email), user.PasswordHash,
		user.IsVerified, user.IsActive, string(role)))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrEmailTaken)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByID возвращает пользователя по его ID.
func (s *Storage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	const op = "storage.GetUserByID"
	if err := checkID(id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE id = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByEmail возвращает пользователя по email без учёта регистра.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"

	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE lower(email) = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, models.NormalizeEmail(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// ConsumeResetToken атомарно меняет пароль пользователя с действующим
// токеном сброса и стирает токен. Повторный вызов с тем же токеном
// возвращает storage.ErrUserNotFound.
func (s *Storage) ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time, passwordHash string, changedAt time.Time) (*models.User, error) {
	const op = "storage.ConsumeResetToken"

	query := `UPDATE users
			  SET password_hash = $3,
			      password_changed_at = $4,
			      reset_password_token = NULL,
			      reset_password_expire = NULL,
			      updated_at = NOW()
			  WHERE reset_password_token = $1 AND reset_password_expire > $2
			  RETURNING ` + userColumns
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, tokenHash, now, passwordHash, changedAt))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// ListUsers возвращает всех пользователей в порядке создания.
func (s *Storage) ListUsers(ctx context.Context) ([]*models.User, error) {
	const op = "storage.ListUsers"

	query := `SELECT ` + userColumns + `
			  FROM users
			  ORDER BY created_at, id`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdateUser применяет патч к пользователю и возвращает обновлённую запись.
func (s *Storage) UpdateUser(ctx context.Context, id string, patch storage.UserPatch) (*models.User, error) {
	const op = "storage.UpdateUser"
	if err := checkID(id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var email *string
	if patch.Email != nil {
		normalized := models.NormalizeEmail(*patch.Email)
		email = &normalized
	}
	query := `UPDATE users
			  SET first_name = COALESCE($2, first_name),
			      last_name = COALESCE($3, last_name),
			      email = COALESCE($4, email),
			      password_hash = COALESCE($5, password_hash),
			      password_changed_at = COALESCE($6, password_changed_at),
			      reset_password_token = CASE WHEN $7::boolean THEN NULL ELSE reset_password_token END,
			      reset_password_expire = CASE WHEN $7::boolean THEN NULL ELSE reset_password_expire END,
			      updated_at = NOW()
			  WHERE id = $1
			  RETURNING ` + userColumns
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, id,
		patch.FirstName, patch.LastName, email, patch.PasswordHash, patch.PasswordChangedAt,
		patch.ClearResetToken))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrEmailTaken)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// SetResetToken сохраняет хэш токена сброса пароля и срок его действия.
// Nil в обоих аргументах очищает ожидающий сброс.
func (s *Storage) SetResetToken(ctx context.Context, id string, tokenHash *string, expire *time.Time) error {
	const op = "storage.SetResetToken"
	if err := checkID(id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `UPDATE users
			  SET reset_password_token = $2,
			      reset_password_expire = $3,
			      updated_at = NOW()
			  WHERE id = $1`
	res, err := s.DB.ExecContext(ctx, query, id, tokenHash, expire)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return nil
}

// DeleteUser удаляет пользователя и возвращает удалённую запись.
func (s *Storage) DeleteUser(ctx context.Context, id string) (*models.User, error) {
	const op = "storage.DeleteUser"
	if err := checkID(id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `DELETE FROM users
			  WHERE id = $1
			  RETURNING ` + userColumns
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}
