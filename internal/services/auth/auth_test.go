package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"

	"github.com/magabrotheeeer/users-api/internal/cache"
	"github.com/magabrotheeeer/users-api/internal/config"
	"github.com/magabrotheeeer/users-api/internal/lib/apperr"
	"github.com/magabrotheeeer/users-api/internal/lib/jwt"
	"github.com/magabrotheeeer/users-api/internal/lib/password"
	"github.com/magabrotheeeer/users-api/internal/models"
	usersservice "github.com/magabrotheeeer/users-api/internal/services/users"
	"github.com/magabrotheeeer/users-api/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// Мок для UserRepository
type UserRepoMock struct {
	mock.Mock
}

func (m *UserRepoMock) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time, passwordHash string, changedAt time.Time) (*models.User, error) {
	args := m.Called(ctx, tokenHash, now, passwordHash, changedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) UpdateUser(ctx context.Context, id string, patch storage.UserPatch) (*models.User, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) ListUsers(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *UserRepoMock) DeleteUser(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) SetResetToken(ctx context.Context, id string, tokenHash *string, expire *time.Time) error {
	args := m.Called(ctx, id, tokenHash, expire)
	return args.Error(0)
}

// Мок для Publisher
type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, message any) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

type fixedResets struct {
	secret password.ResetSecret
	err    error
}

func (f fixedResets) NewResetSecret(time.Duration, bool) (password.ResetSecret, error) {
	return f.secret, f.err
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	repo      *UserRepoMock
	publisher *PublisherMock
	hasher    *password.Hasher
	maker     *jwt.MakerImpl
	svc       *AuthService
}

func newFixture(resets ResetSecretGenerator) *fixture {
	f := &fixture{
		repo:      new(UserRepoMock),
		publisher: new(PublisherMock),
		hasher:    password.NewHasher(bcrypt.MinCost),
		maker:     jwt.NewJWTMaker("test-secret", time.Hour),
	}
	if resets == nil {
		resets = password.NewResetGenerator(0)
	}
	f.svc = NewAuthService(newNoopLogger(), f.repo, f.hasher, f.maker, resets, f.publisher, nil, Options{})
	return f
}

func assertKind(t *testing.T, err error, kind apperr.Kind) *apperr.Error {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperr.As(err)
	require.True(t, ok, "expected *apperr.Error, got %T: %v", err, err)
	assert.Equal(t, kind, appErr.Kind)
	return appErr
}

func TestAuthService_Signup(t *testing.T) {
	input := models.CreateUser{FirstName: "A", LastName: "B", Email: "A@B.com", Password: "secret123"}

	tests := []struct {
		name       string
		input      models.CreateUser
		setupMocks func(r *UserRepoMock, created *models.User)
		wantKind   apperr.Kind
		wantMsg    string
		wantErr    bool
	}{
		{
			name:  "successful signup",
			input: input,
			setupMocks: func(r *UserRepoMock, created *models.User) {
				r.On("GetUserByEmail", mock.Anything, "a@b.com").Return(nil, storage.ErrUserNotFound).Once()
				r.On("CreateUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
					return u.Email == "a@b.com" && u.Role == models.RoleUser &&
						u.PasswordHash != "" && u.PasswordHash != "secret123"
				})).Run(func(args mock.Arguments) {
					u := args.Get(1).(models.User)
					u.ID = "id-1"
					*created = u
				}).Return(created, nil).Once()
			},
		},
		{
			name:       "empty input",
			input:      models.CreateUser{},
			setupMocks: func(*UserRepoMock, *models.User) {},
			wantErr:    true,
			wantKind:   apperr.KindBadRequest,
			wantMsg:    apperr.MsgEmptyInput,
		},
		{
			name:  "email already registered",
			input: input,
			setupMocks: func(r *UserRepoMock, _ *models.User) {
				r.On("GetUserByEmail", mock.Anything, "a@b.com").Return(&models.User{ID: "other"}, nil).Once()
			},
			wantErr:  true,
			wantKind: apperr.KindConflict,
			wantMsg:  "This email A@B.com already exists",
		},
		{
			name:  "duplicate key race",
			input: input,
			setupMocks: func(r *UserRepoMock, _ *models.User) {
				r.On("GetUserByEmail", mock.Anything, "a@b.com").Return(nil, storage.ErrUserNotFound).Once()
				r.On("CreateUser", mock.Anything, mock.Anything).Return(nil, storage.ErrEmailTaken).Once()
			},
			wantErr:  true,
			wantKind: apperr.KindConflict,
		},
		{
			name:  "storage failure",
			input: input,
			setupMocks: func(r *UserRepoMock, _ *models.User) {
				r.On("GetUserByEmail", mock.Anything, "a@b.com").Return(nil, errors.New("connection reset")).Once()
			},
			wantErr:  true,
			wantKind: apperr.KindInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(nil)
			created := &models.User{}
			tt.setupMocks(f.repo, created)

			user, err := f.svc.Signup(context.Background(), tt.input)
			if tt.wantErr {
				appErr := assertKind(t, err, tt.wantKind)
				if tt.wantMsg != "" {
					assert.Equal(t, tt.wantMsg, appErr.Message)
				}
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "id-1", user.ID)
				assert.True(t, f.hasher.Verify("secret123", user.PasswordHash))
			}
			f.repo.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	hasher := password.NewHasher(bcrypt.MinCost)
	hash, err := hasher.Hash("secret123")
	require.NoError(t, err)
	stored := &models.User{ID: "id-1", Email: "a@b.com", PasswordHash: hash}

	t.Run("success", func(t *testing.T) {
		f := newFixture(nil)
		f.repo.On("GetUserByEmail", mock.Anything, "a@b.com").Return(stored, nil).Once()

		res, err := f.svc.Login(context.Background(), models.Credentials{Email: " A@b.com", Password: "secret123"})
		require.NoError(t, err)
		assert.Equal(t, stored, res.User)
		assert.Equal(t, time.Hour, res.ExpiresIn)
		assert.Equal(t, "Authorization="+res.Token+"; HttpOnly; Max-Age=3600;", res.Cookie)

		claims, err := f.maker.ParseToken(res.Token)
		require.NoError(t, err)
		assert.Equal(t, "id-1", claims.UserID)
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		f := newFixture(nil)
		f.repo.On("GetUserByEmail", mock.Anything, "ghost@b.com").Return(nil, storage.ErrUserNotFound).Once()
		f.repo.On("GetUserByEmail", mock.Anything, "a@b.com").Return(stored, nil).Once()

		_, errUnknown := f.svc.Login(context.Background(), models.Credentials{Email: "ghost@b.com", Password: "secret123"})
		_, errWrong := f.svc.Login(context.Background(), models.Credentials{Email: "a@b.com", Password: "wrong-pass"})

		unknown := assertKind(t, errUnknown, apperr.KindConflict)
		wrong := assertKind(t, errWrong, apperr.KindConflict)
		assert.Equal(t, unknown.Message, wrong.Message)
	})

	t.Run("empty input", func(t *testing.T) {
		f := newFixture(nil)
		_, err := f.svc.Login(context.Background(), models.Credentials{})
		assertKind(t, err, apperr.KindBadRequest)
	})
}

func TestAuthService_Logout(t *testing.T) {
	f := newFixture(nil)
	user := &models.User{ID: "id-1", Email: "a@b.com"}
	f.repo.On("GetUserByID", mock.Anything, "id-1").Return(user, nil).Once()
	f.repo.On("GetUserByID", mock.Anything, "gone").Return(nil, storage.ErrUserNotFound).Once()

	got, err := f.svc.Logout(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, user, got)

	_, err = f.svc.Logout(context.Background(), &models.User{ID: "gone", Email: "x@y.z"})
	appErr := assertKind(t, err, apperr.KindConflict)
	assert.Equal(t, "This email x@y.z was not found", appErr.Message)

	_, err = f.svc.Logout(context.Background(), nil)
	assertKind(t, err, apperr.KindBadRequest)
}

func TestAuthService_Authenticate(t *testing.T) {
	t.Run("empty token", func(t *testing.T) {
		f := newFixture(nil)
		_, err := f.svc.Authenticate(context.Background(), "")
		appErr := assertKind(t, err, apperr.KindUnauthorized)
		assert.Equal(t, apperr.MsgNotLoggedIn, appErr.Message)
	})

	t.Run("invalid token", func(t *testing.T) {
		f := newFixture(nil)
		_, err := f.svc.Authenticate(context.Background(), "not-a-token")
		appErr := assertKind(t, err, apperr.KindUnauthorized)
		assert.Equal(t, apperr.MsgInvalidToken, appErr.Message)
		assert.ErrorIs(t, err, jwt.ErrTokenInvalid)
	})

	t.Run("expired token", func(t *testing.T) {
		f := newFixture(nil)
		past := time.Now().Add(-2 * time.Hour)
		token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, jwt.CustomClaims{
			UserID: "id-1",
			RegisteredClaims: gojwt.RegisteredClaims{
				IssuedAt:  gojwt.NewNumericDate(past),
				ExpiresAt: gojwt.NewNumericDate(past.Add(time.Hour)),
			},
		}).SignedString([]byte("test-secret"))
		require.NoError(t, err)

		_, err = f.svc.Authenticate(context.Background(), token)
		appErr := assertKind(t, err, apperr.KindUnauthorized)
		assert.Equal(t, apperr.MsgTokenExpired, appErr.Message)
	})

	t.Run("token without id", func(t *testing.T) {
		f := newFixture(nil)
		token, _, err := f.maker.GenerateToken("")
		require.NoError(t, err)

		_, err = f.svc.Authenticate(context.Background(), token)
		appErr := assertKind(t, err, apperr.KindUnauthorized)
		assert.Equal(t, apperr.MsgUserNotExist, appErr.Message)
	})

	t.Run("user no longer exists", func(t *testing.T) {
		f := newFixture(nil)
		token, _, err := f.maker.GenerateToken("id-1")
		require.NoError(t, err)
		f.repo.On("GetUserByID", mock.Anything, "id-1").Return(nil, storage.ErrUserNotFound).Once()

		_, err = f.svc.Authenticate(context.Background(), token)
		appErr := assertKind(t, err, apperr.KindUnauthorized)
		assert.Equal(t, apperr.MsgUserNotExist, appErr.Message)
	})

	t.Run("token issued before and after password change", func(t *testing.T) {
		f := newFixture(nil)
		oldToken, _, err := f.maker.GenerateToken("id-1")
		require.NoError(t, err)

		changedAt := time.Now().Add(time.Hour)
		user := &models.User{ID: "id-1", PasswordChangedAt: &changedAt}
		f.repo.On("GetUserByID", mock.Anything, "id-1").Return(user, nil)

		_, err = f.svc.Authenticate(context.Background(), oldToken)
		appErr := assertKind(t, err, apperr.KindUnauthorized)
		assert.Equal(t, apperr.MsgPasswordChanged, appErr.Message)

		changedAt = time.Now().Add(-time.Hour)
		got, err := f.svc.Authenticate(context.Background(), oldToken)
		require.NoError(t, err)
		assert.Equal(t, "id-1", got.ID)
	})
}

func TestAuthService_Me(t *testing.T) {
	f := newFixture(nil)
	user := &models.User{ID: "id-1"}

	got, err := f.svc.Me(context.Background(), user)
	require.NoError(t, err)
	assert.Same(t, user, got)

	_, err = f.svc.Me(context.Background(), nil)
	assertKind(t, err, apperr.KindUnauthorized)
}

func TestAuthService_ForgotPassword(t *testing.T) {
	expire := time.Now().Add(10 * time.Minute)
	secret := password.ResetSecret{Secret: "plain", SecretHash: password.HashResetSecret("plain"), Expire: expire}
	user := &models.User{ID: "id-1", Email: "a@b.com", FirstName: "Ann"}

	t.Run("publishes notification", func(t *testing.T) {
		f := newFixture(fixedResets{secret: secret})
		f.repo.On("GetUserByEmail", mock.Anything, "a@b.com").Return(user, nil).Once()
		f.repo.On("SetResetToken", mock.Anything, "id-1", &secret.SecretHash, &secret.Expire).Return(nil).Once()
		f.publisher.On("Publish", mock.Anything, models.PasswordResetMessage{
			Email: "a@b.com", FirstName: "Ann", Token: "plain", ExpiresAt: expire,
		}).Return(nil).Once()

		require.NoError(t, f.svc.ForgotPassword(context.Background(), "A@b.com"))
		f.repo.AssertExpectations(t)
		f.publisher.AssertExpectations(t)
	})

	t.Run("publish failure clears token", func(t *testing.T) {
		f := newFixture(fixedResets{secret: secret})
		f.repo.On("GetUserByEmail", mock.Anything, "a@b.com").Return(user, nil).Once()
		f.repo.On("SetResetToken", mock.Anything, "id-1", &secret.SecretHash, &secret.Expire).Return(nil).Once()
		f.repo.On("SetResetToken", mock.Anything, "id-1", (*string)(nil), (*time.Time)(nil)).Return(nil).Once()
		f.publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("channel closed")).Once()

		err := f.svc.ForgotPassword(context.Background(), "a@b.com")
		assertKind(t, err, apperr.KindInternal)
		f.repo.AssertExpectations(t)
	})

	t.Run("unknown email", func(t *testing.T) {
		f := newFixture(fixedResets{secret: secret})
		f.repo.On("GetUserByEmail", mock.Anything, "ghost@b.com").Return(nil, storage.ErrUserNotFound).Once()

		err := f.svc.ForgotPassword(context.Background(), "ghost@b.com")
		assertKind(t, err, apperr.KindConflict)
		f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("empty email", func(t *testing.T) {
		f := newFixture(nil)
		assertKind(t, f.svc.ForgotPassword(context.Background(), ""), apperr.KindBadRequest)
	})
}

func TestAuthService_ResetPassword(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("success changes password and issues token", func(t *testing.T) {
		f := newFixture(nil)
		f.svc.now = func() time.Time { return now }
		user := &models.User{ID: "id-1", Email: "a@b.com"}

		f.repo.On("ConsumeResetToken", mock.Anything, password.HashResetSecret("plain"), now,
			mock.MatchedBy(func(hash string) bool { return f.hasher.Verify("newsecret123", hash) }),
			now.Add(-time.Second),
		).Return(user, nil).Once()

		res, err := f.svc.ResetPassword(context.Background(), "plain", "newsecret123")
		require.NoError(t, err)
		assert.NotEmpty(t, res.Token)
		assert.Contains(t, res.Cookie, "Authorization="+res.Token)
		f.repo.AssertExpectations(t)
		f.repo.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid expired or already used secret", func(t *testing.T) {
		f := newFixture(nil)
		f.repo.On("ConsumeResetToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, storage.ErrUserNotFound).Once()

		_, err := f.svc.ResetPassword(context.Background(), "stale", "newsecret123")
		appErr := assertKind(t, err, apperr.KindBadRequest)
		assert.Equal(t, apperr.MsgResetTokenInvalid, appErr.Message)
	})

	t.Run("storage failure", func(t *testing.T) {
		f := newFixture(nil)
		f.repo.On("ConsumeResetToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("connection reset")).Once()

		_, err := f.svc.ResetPassword(context.Background(), "plain", "newsecret123")
		assertKind(t, err, apperr.KindInternal)
	})
}

func TestAuthService_PasswordTooLong(t *testing.T) {
	long := strings.Repeat("x", password.MaxPasswordBytes+1)

	t.Run("signup", func(t *testing.T) {
		f := newFixture(nil)
		f.repo.On("GetUserByEmail", mock.Anything, "a@b.com").Return(nil, storage.ErrUserNotFound).Once()

		_, err := f.svc.Signup(context.Background(), models.CreateUser{
			FirstName: "A", LastName: "B", Email: "a@b.com", Password: long,
		})
		appErr := assertKind(t, err, apperr.KindBadRequest)
		assert.Equal(t, apperr.MsgPasswordTooLong, appErr.Message)
		f.repo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("reset keeps the secret", func(t *testing.T) {
		f := newFixture(nil)

		_, err := f.svc.ResetPassword(context.Background(), "plain", long)
		appErr := assertKind(t, err, apperr.KindBadRequest)
		assert.Equal(t, apperr.MsgPasswordTooLong, appErr.Message)
		f.repo.AssertNotCalled(t, "ConsumeResetToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAuthService_ResetPasswordInvalidatesUserCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	c, err := cache.InitServer(ctx, config.RedisConnection{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	f := newFixture(nil)
	f.svc = NewAuthService(newNoopLogger(), f.repo, f.hasher, f.maker, password.NewResetGenerator(0), f.publisher, c, Options{})
	users := usersservice.NewUserService(newNoopLogger(), f.repo, c, f.hasher, time.Hour)

	before := &models.User{ID: "id-1", Email: "a@b.com", PasswordHash: "old"}
	after := &models.User{ID: "id-1", Email: "a@b.com", PasswordHash: "new"}
	f.repo.On("GetUserByID", mock.Anything, "id-1").Return(before, nil).Once()
	f.repo.On("GetUserByID", mock.Anything, "id-1").Return(after, nil).Once()
	f.repo.On("ConsumeResetToken", mock.Anything, password.HashResetSecret("plain"), mock.Anything, mock.Anything, mock.Anything).
		Return(after, nil).Once()

	_, err = users.Get(ctx, "id-1")
	require.NoError(t, err)
	_, err = users.Get(ctx, "id-1")
	require.NoError(t, err)
	f.repo.AssertNumberOfCalls(t, "GetUserByID", 1)
	assert.True(t, mr.Exists(cache.UserKey("id-1")))

	_, err = f.svc.ResetPassword(ctx, "plain", "newsecret123")
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.UserKey("id-1")))

	got, err := users.Get(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "new", got.PasswordHash)
	f.repo.AssertNumberOfCalls(t, "GetUserByID", 2)
}

func TestSessionCookie(t *testing.T) {
	assert.Equal(t, "Authorization=tok; HttpOnly; Max-Age=90;", SessionCookie("tok", 90*time.Second))
	assert.Equal(t, "Authorization=; Max-age=0", ClearedCookie)
}
