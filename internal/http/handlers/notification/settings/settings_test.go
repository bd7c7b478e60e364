package settings

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

func (m *MockService) Settings(ctx context.Context, userUID string) (*models.NotificationSettings, error) {
	args := m.Called(ctx, userUID)
	st, _ := args.Get(0).(*models.NotificationSettings)
	return st, args.Error(1)
}

func (m *MockService) UpdateSettings(ctx context.Context, userUID string, req models.SettingsRequest) (*models.NotificationSettings, error) {
	args := m.Called(ctx, userUID, req)
	st, _ := args.Get(0).(*models.NotificationSettings)
	return st, args.Error(1)
}

func newRequest(method, body string) *http.Request {
	req := httptest.NewRequest(method, "/api/v1/notifications/settings", bytes.NewBufferString(body))
	return req.WithContext(middlewarectx.WithUser(req.Context(), &models.User{UUID: "uid-1"}))
}

func TestSettingsHandler_Get(t *testing.T) {
	svc := new(MockService)
	def := models.DefaultNotificationSettings("uid-1")
	svc.On("Settings", mock.Anything, "uid-1").Return(&def, nil).Once()

	rec := httptest.NewRecorder()
	New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).Get(rec, newRequest(http.MethodGet, ""))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"trial_notification_days":[2,1]`)
	assert.Contains(t, rec.Body.String(), `"payment_notification_days":[3,1]`)
	svc.AssertExpectations(t)
}

func TestSettingsHandler_Put(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		setupMock func(*MockService)
		wantCode  int
		wantBody  string
	}{
		{
			name: "отключение напоминаний о пробном периоде",
			body: `{"email_notifications_enabled":true,"trial_notification_days":[],"payment_notification_days":[3,1]}`,
			setupMock: func(m *MockService) {
				req := models.SettingsRequest{
					EmailNotificationsEnabled: true,
					TrialNotificationDays:     []int{},
					PaymentNotificationDays:   []int{3, 1},
				}
				m.On("UpdateSettings", mock.Anything, "uid-1", req).Return(&models.NotificationSettings{
					UserUID: "uid-1", EmailNotificationsEnabled: true,
					TrialNotificationDays: []int{}, PaymentNotificationDays: []int{3, 1},
				}, nil).Once()
			},
			wantCode: http.StatusOK,
			wantBody: `"trial_notification_days":[]`,
		},
		{
			name:     "день вне диапазона",
			body:     `{"payment_notification_days":[0]}`,
			wantCode: http.StatusUnprocessableEntity,
			wantBody: "must be at least 1",
		},
		{
			name: "неизвестный часовой пояс",
			body: `{"timezone":"Mars/Olympus"}`,
			setupMock: func(m *MockService) {
				m.On("UpdateSettings", mock.Anything, "uid-1", mock.Anything).
					Return(nil, fmt.Errorf("notification.UpdateSettings: %w: unknown timezone", models.ErrInvalidInput)).Once()
			},
			wantCode: http.StatusBadRequest,
			wantBody: "unknown timezone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			if tt.setupMock != nil {
				tt.setupMock(svc)
			}
			rec := httptest.NewRecorder()
			New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).Put(rec, newRequest(http.MethodPut, tt.body))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			svc.AssertExpectations(t)
		})
	}
}
