package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/users-api/internal/migrations"
	"github.com/magabrotheeeer/users-api/internal/models"
	"github.com/magabrotheeeer/users-api/internal/storage"
)

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции.
func setupTestDatabase(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(s.DB, migrationsPath))
	require.NoError(t, CheckDatabaseReady(ctx, s))

	return s
}

func TestStorage_UserLifecycle(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()

	created, err := s.CreateUser(ctx, models.User{
		FirstName: "A", LastName: "B", Email: "A@B.com", PasswordHash: "hash",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "a@b.com", created.Email)
	assert.Equal(t, models.RoleUser, created.Role)
	assert.False(t, created.IsActive)

	byEmail, err := s.GetUserByEmail(ctx, "a@B.COM")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	_, err = s.CreateUser(ctx, models.User{FirstName: "C", LastName: "D", Email: "a@b.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, storage.ErrEmailTaken)

	name := "Anna"
	updated, err := s.UpdateUser(ctx, created.ID, storage.UserPatch{FirstName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Anna", updated.FirstName)
	assert.Equal(t, "B", updated.LastName)
	assert.Equal(t, "hash", updated.PasswordHash)

	tokenHash := "deadbeef"
	expire := time.Now().Add(10 * time.Minute)
	require.NoError(t, s.SetResetToken(ctx, created.ID, &tokenHash, &expire))

	_, err = s.ConsumeResetToken(ctx, tokenHash, expire.Add(time.Second), "late", time.Now())
	assert.ErrorIs(t, err, storage.ErrUserNotFound)

	changed := time.Now().Add(-time.Second).UTC()
	consumed, err := s.ConsumeResetToken(ctx, tokenHash, time.Now(), "newhash", changed)
	require.NoError(t, err)
	assert.Equal(t, created.ID, consumed.ID)
	assert.Equal(t, "newhash", consumed.PasswordHash)
	assert.Nil(t, consumed.ResetPasswordToken)
	assert.Nil(t, consumed.ResetPasswordExpire)

	_, err = s.ConsumeResetToken(ctx, tokenHash, time.Now(), "again", time.Now())
	assert.ErrorIs(t, err, storage.ErrUserNotFound)

	list, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	deleted, err := s.DeleteUser(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)

	_, err = s.GetUserByID(ctx, created.ID)
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
	assert.Equal(t, storage.StateConnected, s.State(ctx))
}

func TestStorage_ConcurrentCreateSameEmail(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		taken     int
	)
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			email := "race@example.com"
			if i%2 == 1 {
				email = "RACE@example.com"
			}
			_, err := s.CreateUser(ctx, models.User{FirstName: "R", LastName: "C", Email: email, PasswordHash: "h"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case assert.ErrorIs(t, err, storage.ErrEmailTaken):
				taken++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, taken)
}

func TestStorage_ConcurrentConsumeResetToken(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()

	created, err := s.CreateUser(ctx, models.User{FirstName: "R", LastName: "T", Email: "reset@example.com", PasswordHash: "old"})
	require.NoError(t, err)
	tokenHash := "cafebabe"
	expire := time.Now().Add(10 * time.Minute)
	require.NoError(t, s.SetResetToken(ctx, created.ID, &tokenHash, &expire))

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ConsumeResetToken(ctx, tokenHash, time.Now(), "new", time.Now())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case assert.ErrorIs(t, err, storage.ErrUserNotFound):
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, rejected)
}
