package create

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Create(ctx context.Context, userUID string, req models.SubscriptionRequest) (*models.Subscription, error) {
	args := m.Called(ctx, userUID, req)
	sub, _ := args.Get(0).(*models.Subscription)
	return sub, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func withUser(r *http.Request, uid string) *http.Request {
	return r.WithContext(middlewarectx.WithUser(r.Context(), &models.User{UUID: uid, Username: "alice"}))
}

func TestCreateHandler(t *testing.T) {
	netflix := models.SubscriptionRequest{Name: "Netflix", Price: 1490, Category: "エンタメ", NextPayment: "2025-07-01"}

	tests := []struct {
		name      string
		body      string
		userUID   string
		setupMock func(*MockService)
		wantCode  int
		wantBody  string
	}{
		{
			name:    "успешное создание",
			body:    `{"name":"Netflix","price":1490,"category":"エンタメ","next_payment":"2025-07-01"}`,
			userUID: "uid-1",
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, "uid-1", netflix).
					Return(&models.Subscription{ID: "sub-1", Name: "Netflix"}, nil).Once()
			},
			wantCode: http.StatusCreated,
			wantBody: `"id":"sub-1"`,
		},
		{
			name:     "нет пользователя в контексте",
			body:     `{}`,
			wantCode: http.StatusUnauthorized,
			wantBody: "unauthorized",
		},
		{
			name:     "некорректный JSON",
			body:     `{`,
			userUID:  "uid-1",
			wantCode: http.StatusBadRequest,
			wantBody: "invalid request body",
		},
		{
			name:     "нет названия",
			body:     `{"price":100,"category":"AI"}`,
			userUID:  "uid-1",
			wantCode: http.StatusUnprocessableEntity,
			wantBody: "field Name is a required field",
		},
		{
			name:    "пробный период без даты окончания",
			body:    `{"name":"ChatGPT","price":3000,"category":"AI","is_trial_period":true}`,
			userUID: "uid-1",
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, "uid-1", mock.Anything).
					Return(nil, fmt.Errorf("subscription.Create: %w: trial_end_date is required", models.ErrInvalidInput)).Once()
			},
			wantCode: http.StatusBadRequest,
			wantBody: "trial_end_date is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			if tt.setupMock != nil {
				tt.setupMock(svc)
			}
			req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions", bytes.NewBufferString(tt.body))
			if tt.userUID != "" {
				req = withUser(req, tt.userUID)
			}
			rec := httptest.NewRecorder()

			New(newNoopLogger(), svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			svc.AssertExpectations(t)
		})
	}
}
