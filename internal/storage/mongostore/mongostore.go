// Package mongostore реализует хранилище пользователей на MongoDB.
// Методы повторяют набор операций PostgreSQL-хранилища и возвращают
// те же ошибки из пакета storage.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/magabrotheeeer/users-api/internal/models"
	"github.com/magabrotheeeer/users-api/internal/storage"
)

const usersCollection = "users"

// Storage хранит клиента MongoDB и коллекцию пользователей.
type Storage struct {
	client *mongo.Client
	users  *mongo.Collection
	now    func() time.Time
}

// New подключается к MongoDB, проверяет соединение и создаёт уникальный индекс по email.
func New(ctx context.Context, uri, database string) (*Storage, error) {
	const op = "mongostore.New"

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s := &Storage{
		client: client,
		users:  client.Database(database).Collection(usersCollection),
		now:    time.Now,
	}
	if err = s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

func (s *Storage) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("email_unique"),
		},
		{
			Keys:    bson.D{{Key: "reset_password_token", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("reset_password_token"),
		},
	})
	return err
}

// State возвращает состояние подключения к базе.
func (s *Storage) State(ctx context.Context) int {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return storage.StateDisconnected
	}
	return storage.StateConnected
}

// Close закрывает соединение с MongoDB.
func (s *Storage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// CreateUser сохраняет нового пользователя и возвращает запись с присвоенным ID.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	const op = "mongostore.CreateUser"

	now := s.now().UTC()
	doc := toDocument(user)
	doc.ID = bson.NewObjectID()
	doc.Email = models.NormalizeEmail(doc.Email)
	if doc.Role == "" {
		doc.Role = string(models.RoleUser)
	}
	doc.CreatedAt = now
	doc.UpdatedAt = now

	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrEmailTaken)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return doc.toModel(), nil
}

// GetUserByID возвращает пользователя по его ID.
func (s *Storage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	const op = "mongostore.GetUserByID"
	oid, err := parseID(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.findOne(ctx, op, bson.D{{Key: "_id", Value: oid}})
}

// GetUserByEmail возвращает пользователя по email без учёта регистра.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "mongostore.GetUserByEmail"
	return s.findOne(ctx, op, bson.D{{Key: "email", Value: models.NormalizeEmail(email)}})
}

// ConsumeResetToken атомарно меняет пароль пользователя с действующим
// токеном сброса и стирает токен. Повторный вызов с тем же токеном
// возвращает storage.ErrUserNotFound.
func (s *Storage) ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time, passwordHash string, changedAt time.Time) (*models.User, error) {
	const op = "mongostore.ConsumeResetToken"

	var doc userDocument
	err := s.users.FindOneAndUpdate(ctx,
		resetTokenFilter(tokenHash, now),
		patchUpdate(storage.UserPatch{
			PasswordHash:      &passwordHash,
			PasswordChangedAt: &changedAt,
			ClearResetToken:   true,
		}, s.now().UTC()),
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return doc.toModel(), nil
}

func (s *Storage) findOne(ctx context.Context, op string, filter bson.D) (*models.User, error) {
	var doc userDocument
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return doc.toModel(), nil
}

// ListUsers возвращает всех пользователей в порядке создания.
func (s *Storage) ListUsers(ctx context.Context) ([]*models.User, error) {
	const op = "mongostore.ListUsers"

	cursor, err := s.users.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var docs []userDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := make([]*models.User, 0, len(docs))
	for i := range docs {
		result = append(result, docs[i].toModel())
	}
	return result, nil
}

// UpdateUser применяет патч к пользователю и возвращает обновлённую запись.
func (s *Storage) UpdateUser(ctx context.Context, id string, patch storage.UserPatch) (*models.User, error) {
	const op = "mongostore.UpdateUser"
	oid, err := parseID(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var doc userDocument
	err = s.users.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: oid}},
		patchUpdate(patch, s.now().UTC()),
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrEmailTaken)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return doc.toModel(), nil
}

// SetResetToken сохраняет хэш токена сброса пароля и срок его действия.
// Nil в обоих аргументах очищает ожидающий сброс.
func (s *Storage) SetResetToken(ctx context.Context, id string, tokenHash *string, expire *time.Time) error {
	const op = "mongostore.SetResetToken"
	oid, err := parseID(id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.users.UpdateOne(ctx, bson.D{{Key: "_id", Value: oid}}, resetTokenUpdate(tokenHash, expire, s.now().UTC()))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return nil
}

// DeleteUser удаляет пользователя и возвращает удалённую запись.
func (s *Storage) DeleteUser(ctx context.Context, id string) (*models.User, error) {
	const op = "mongostore.DeleteUser"
	oid, err := parseID(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var doc userDocument
	if err = s.users.FindOneAndDelete(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return doc.toModel(), nil
}
