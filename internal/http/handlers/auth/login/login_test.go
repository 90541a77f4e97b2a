package login

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/users-api/internal/lib/apperr"
	"github.com/magabrotheeeer/users-api/internal/models"
	"github.com/magabrotheeeer/users-api/internal/services/auth"
)

type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) Login(ctx context.Context, in models.Credentials) (*auth.LoginResult, error) {
	args := m.Called(ctx, in)
	res, _ := args.Get(0).(*auth.LoginResult)
	return res, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestLoginHandler_ServeHTTP(t *testing.T) {
	creds := models.Credentials{Email: "a@b.com", Password: "secret123"}

	t.Run("valid login sets cookie", func(t *testing.T) {
		service := new(AuthServiceMock)
		service.On("Login", mock.Anything, creds).Return(&auth.LoginResult{
			User:      &models.User{ID: "id-1", Email: "a@b.com"},
			Token:     "tok",
			ExpiresIn: time.Hour,
			Cookie:    auth.SessionCookie("tok", time.Hour),
		}, nil).Once()

		body, _ := json.Marshal(creds)
		rec := httptest.NewRecorder()
		New(newNoopLogger(), service, false).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/login", bytes.NewReader(body)))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Authorization=tok; HttpOnly; Max-Age=3600;", rec.Header().Get("Set-Cookie"))

		var got map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, "login", got["message"])
		service.AssertExpectations(t)
	})

	t.Run("bad credentials", func(t *testing.T) {
		service := new(AuthServiceMock)
		service.On("Login", mock.Anything, creds).Return(nil, apperr.Conflict(apperr.MsgInvalidCredential)).Once()

		body, _ := json.Marshal(creds)
		rec := httptest.NewRecorder()
		New(newNoopLogger(), service, false).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/login", bytes.NewReader(body)))

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Empty(t, rec.Header().Get("Set-Cookie"))
		assert.JSONEq(t, `{"status":409,"message":"Invalid email or password"}`, rec.Body.String())
	})

	t.Run("missing password", func(t *testing.T) {
		service := new(AuthServiceMock)
		rec := httptest.NewRecorder()
		New(newNoopLogger(), service, false).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/login",
			bytes.NewReader([]byte(`{"email":"a@b.com"}`))))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "password should not be empty")
		service.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
	})
}
