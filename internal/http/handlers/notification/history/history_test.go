package history

import (
	"context"
	"errors"
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

func (m *MockService) History(ctx context.Context, userUID string, limit int) ([]models.NotificationHistory, error) {
	args := m.Called(ctx, userUID, limit)
	out, _ := args.Get(0).([]models.NotificationHistory)
	return out, args.Error(1)
}

func TestHistoryHandler(t *testing.T) {
	row := models.NotificationHistory{
		ID:             "h1",
		SubscriptionID: "s1",
		Type:           models.NotificationPaymentReminder,
		DaysBefore:     3,
		Status:         models.StatusSent,
	}

	tests := []struct {
		name      string
		query     string
		noUser    bool
		wantLimit int
		svcErr    error
		wantCode  int
		wantBody  string
	}{
		{name: "лимит по умолчанию", wantLimit: 0, wantCode: http.StatusOK, wantBody: `"status":"sent"`},
		{name: "явный лимит", query: "?limit=5", wantLimit: 5, wantCode: http.StatusOK, wantBody: `"days_before":3`},
		{name: "лимит не число", query: "?limit=abc", wantCode: http.StatusBadRequest, wantBody: "invalid limit"},
		{name: "нулевой лимит", query: "?limit=0", wantCode: http.StatusBadRequest, wantBody: "invalid limit"},
		{name: "без пользователя", noUser: true, wantCode: http.StatusUnauthorized, wantBody: "unauthorized"},
		{name: "ошибка сервиса", svcErr: errors.New("db down"), wantCode: http.StatusInternalServerError, wantBody: "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			if !tt.noUser && tt.wantCode != http.StatusBadRequest {
				if tt.svcErr != nil {
					svc.On("History", mock.Anything, "uid-1", tt.wantLimit).Return(nil, tt.svcErr).Once()
				} else {
					svc.On("History", mock.Anything, "uid-1", tt.wantLimit).
						Return([]models.NotificationHistory{row}, nil).Once()
				}
			}

			req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/history"+tt.query, nil)
			if !tt.noUser {
				req = req.WithContext(middlewarectx.WithUser(req.Context(), &models.User{UUID: "uid-1"}))
			}
			rec := httptest.NewRecorder()

			New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			svc.AssertExpectations(t)
		})
	}
}
