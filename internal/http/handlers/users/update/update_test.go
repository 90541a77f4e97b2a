package update

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/users-api/internal/lib/apperr"
	"github.com/magabrotheeeer/users-api/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Update(ctx context.Context, id string, in models.UpdateUser) (*models.User, error) {
	args := m.Called(ctx, id, in)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func newRequest(id, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPut, "/api/v1/users/"+id, bytes.NewBufferString(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestUpdateHandler(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("partial update passes only present fields", func(t *testing.T) {
		service := new(MockService)
		service.On("Update", mock.Anything, "1", mock.MatchedBy(func(in models.UpdateUser) bool {
			return in.FirstName != nil && *in.FirstName == "Ann" &&
				in.LastName == nil && in.Email == nil && in.Password == nil
		})).Return(&models.User{ID: "1", FirstName: "Ann"}, nil).Once()

		rec := httptest.NewRecorder()
		New(log, service, false).ServeHTTP(rec, newRequest("1", `{"firstName":"Ann"}`))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `{"id":"1","firstName":"Ann"`)
		assert.NotContains(t, rec.Body.String(), `"data"`)
		service.AssertExpectations(t)
	})

	t.Run("invalid email", func(t *testing.T) {
		service := new(MockService)
		rec := httptest.NewRecorder()
		New(log, service, false).ServeHTTP(rec, newRequest("1", `{"email":"nope"}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		service.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing user", func(t *testing.T) {
		service := new(MockService)
		service.On("Update", mock.Anything, "9", mock.Anything).Return(nil, apperr.Conflict(apperr.MsgUserDoesntExist)).Once()

		rec := httptest.NewRecorder()
		New(log, service, false).ServeHTTP(rec, newRequest("9", `{"lastName":"B"}`))

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}
