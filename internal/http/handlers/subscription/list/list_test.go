package list

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) List(ctx context.Context, userUID string) ([]*models.Subscription, error) {
	args := m.Called(ctx, userUID)
	out, _ := args.Get(0).([]*models.Subscription)
	return out, args.Error(1)
}

func TestListHandler(t *testing.T) {
	tests := []struct {
		name     string
		noUser   bool
		subs     []*models.Subscription
		svcErr   error
		wantCode int
		wantLen  int
	}{
		{
			name:     "две подписки",
			subs:     []*models.Subscription{{ID: "s1", Name: "Netflix"}, {ID: "s2", Name: "Spotify"}},
			wantCode: http.StatusOK,
			wantLen:  2,
		},
		{name: "пустой список", subs: []*models.Subscription{}, wantCode: http.StatusOK, wantLen: 0},
		{name: "без пользователя", noUser: true, wantCode: http.StatusUnauthorized},
		{name: "ошибка сервиса", svcErr: errors.New("db down"), wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			if !tt.noUser {
				svc.On("List", mock.Anything, "uid-1").Return(tt.subs, tt.svcErr).Once()
			}

			req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions", nil)
			if !tt.noUser {
				req = req.WithContext(middlewarectx.WithUser(req.Context(), &models.User{UUID: "uid-1"}))
			}
			rec := httptest.NewRecorder()

			New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).ServeHTTP(rec, req)

			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK {
				var body struct {
					Data []map[string]any `json:"data"`
				}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Len(t, body.Data, tt.wantLen)
			}
			svc.AssertExpectations(t)
		})
	}
}
