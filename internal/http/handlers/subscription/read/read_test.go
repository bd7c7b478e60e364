package read

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// MockService реализует интерфейс read.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Read(ctx context.Context, userUID, id string) (*models.Subscription, error) {
	args := m.Called(ctx, userUID, id)
	sub, _ := args.Get(0).(*models.Subscription)
	return sub, args.Error(1)
}

func TestReadHandler(t *testing.T) {
	const subID = "5f0c6f7e-8d0a-4f5e-9a53-3c1f7f2b1a10"
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name      string
		id        string
		setupMock func(*MockService)
		wantCode  int
		wantBody  string
	}{
		{
			name: "успешное чтение подписки",
			id:   subID,
			setupMock: func(m *MockService) {
				m.On("Read", mock.Anything, "uid-1", subID).
					Return(&models.Subscription{ID: subID, Name: "Netflix"}, nil).Once()
			},
			wantCode: http.StatusOK,
			wantBody: `"name":"Netflix"`,
		},
		{
			name:     "некорректный id в URL",
			id:       "abc",
			wantCode: http.StatusBadRequest,
			wantBody: "invalid subscription id",
		},
		{
			name: "чужая подписка",
			id:   subID,
			setupMock: func(m *MockService) {
				m.On("Read", mock.Anything, "uid-1", subID).
					Return(nil, fmt.Errorf("subscription.Read: %w", models.ErrNotFound)).Once()
			},
			wantCode: http.StatusNotFound,
			wantBody: `{"status":"Error","error":"not found"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			if tt.setupMock != nil {
				tt.setupMock(svc)
			}

			req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions/"+tt.id, nil)
			// Устанавливаем URL params с помощью роутера chi
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.id)
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
			ctx = middlewarectx.WithUser(ctx, &models.User{UUID: "uid-1"})
			req = req.WithContext(ctx)

			rec := httptest.NewRecorder()
			New(logger, svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			svc.AssertExpectations(t)
		})
	}
}
