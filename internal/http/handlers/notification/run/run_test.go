package run

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

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	"github.com/magabrotheeeer/subscription-tracker/internal/services/scheduler"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) RunOnce(ctx context.Context) (*models.RunResult, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).(*models.RunResult)
	return res, args.Error(1)
}

func TestRunHandler(t *testing.T) {
	tests := []struct {
		name     string
		res      *models.RunResult
		err      error
		wantCode int
		wantBody string
	}{
		{
			name:     "успешный проход",
			res:      &models.RunResult{RunID: "01J0", NotificationsSent: 2, Details: []models.RunDetail{}},
			wantCode: http.StatusOK,
			wantBody: `"notifications_sent":2`,
		},
		{
			name:     "проход уже идет",
			err:      scheduler.ErrBusy,
			wantCode: http.StatusConflict,
			wantBody: "already running",
		},
		{
			name:     "ошибка базы",
			err:      errors.New("db down"),
			wantCode: http.StatusInternalServerError,
			wantBody: "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			svc.On("RunOnce", mock.Anything).Return(tt.res, tt.err).Once()

			rec := httptest.NewRecorder()
			New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).
				ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/notifications/run", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			svc.AssertExpectations(t)
		})
	}
}
