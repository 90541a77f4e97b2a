package mongostore

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/magabrotheeeer/users-api/internal/models"
	"github.com/magabrotheeeer/users-api/internal/storage"
)

// userDocument — представление пользователя в коллекции users.
type userDocument struct {
	ID                  bson.ObjectID `bson:"_id,omitempty"`
	FirstName           string        `bson:"first_name"`
	LastName            string        `bson:"last_name"`
	Email               string        `bson:"email"`
	PasswordHash        string        `bson:"password_hash"`
	IsVerified          bool          `bson:"is_verified"`
	IsActive            bool          `bson:"is_active"`
	Role                string        `bson:"role"`
	PasswordChangedAt   *time.Time    `bson:"password_changed_at,omitempty"`
	ResetPasswordToken  *string       `bson:"reset_password_token,omitempty"`
	ResetPasswordExpire *time.Time    `bson:"reset_password_expire,omitempty"`
	CreatedAt           time.Time     `bson:"created_at"`
	UpdatedAt           time.Time     `bson:"updated_at"`
}

func toDocument(u models.User) userDocument {
	return userDocument{
		FirstName:           u.FirstName,
		LastName:            u.LastName,
		Email:               u.Email,
		PasswordHash:        u.PasswordHash,
		IsVerified:          u.IsVerified,
		IsActive:            u.IsActive,
		Role:                string(u.Role),
		PasswordChangedAt:   u.PasswordChangedAt,
		ResetPasswordToken:  u.ResetPasswordToken,
		ResetPasswordExpire: u.ResetPasswordExpire,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
}

func (d *userDocument) toModel() *models.User {
	return &models.User{
		ID:                  d.ID.Hex(),
		FirstName:           d.FirstName,
		LastName:            d.LastName,
		Email:               d.Email,
		PasswordHash:        d.PasswordHash,
		IsVerified:          d.IsVerified,
		IsActive:            d.IsActive,
		Role:                models.Role(d.Role),
		PasswordChangedAt:   d.PasswordChangedAt,
		ResetPasswordToken:  d.ResetPasswordToken,
		ResetPasswordExpire: d.ResetPasswordExpire,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
}

func parseID(id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.ObjectID{}, fmt.Errorf("%w: %s", storage.ErrInvalidID, id)
	}
	return oid, nil
}

func resetTokenFilter(tokenHash string, now time.Time) bson.D {
	return bson.D{
		{Key: "reset_password_token", Value: tokenHash},
		{Key: "reset_password_expire", Value: bson.D{{Key: "$gt", Value: now}}},
	}
}

// patchUpdate строит $set/$unset для патча. updated_at меняется всегда.
func patchUpdate(p storage.UserPatch, now time.Time) bson.D {
	set := bson.D{{Key: "updated_at", Value: now}}
	if p.FirstName != nil {
		set = append(set, bson.E{Key: "first_name", Value: *p.FirstName})
	}
	if p.LastName != nil {
		set = append(set, bson.E{Key: "last_name", Value: *p.LastName})
	}
	if p.Email != nil {
		set = append(set, bson.E{Key: "email", Value: models.NormalizeEmail(*p.Email)})
	}
	if p.PasswordHash != nil {
		set = append(set, bson.E{Key: "password_hash", Value: *p.PasswordHash})
	}
	if p.PasswordChangedAt != nil {
		set = append(set, bson.E{Key: "password_changed_at", Value: *p.PasswordChangedAt})
	}

	update := bson.D{{Key: "$set", Value: set}}
	if p.ClearResetToken {
		update = append(update, bson.E{Key: "$unset", Value: bson.D{
			{Key: "reset_password_token", Value: ""},
			{Key: "reset_password_expire", Value: ""},
		}})
	}
	return update
}

func resetTokenUpdate(tokenHash *string, expire *time.Time, now time.Time) bson.D {
	if tokenHash == nil || expire == nil {
		return bson.D{
			{Key: "$set", Value: bson.D{{Key: "updated_at", Value: now}}},
			{Key: "$unset", Value: bson.D{
				{Key: "reset_password_token", Value: ""},
				{Key: "reset_password_expire", Value: ""},
			}},
		}
	}
	return bson.D{{Key: "$set", Value: bson.D{
		{Key: "reset_password_token", Value: *tokenHash},
		{Key: "reset_password_expire", Value: *expire},
		{Key: "updated_at", Value: now},
	}}}
}
