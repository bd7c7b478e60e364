package paymentlist

import (
	"context"
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

func (m *MockService) List(ctx context.Context, userUID string, limit, offset int) ([]*models.PaymentRecord, error) {
	args := m.Called(ctx, userUID, limit, offset)
	out, _ := args.Get(0).([]*models.PaymentRecord)
	return out, args.Error(1)
}

func TestPaymentListHandler(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
		wantCode   int
	}{
		{name: "без параметров", wantCode: http.StatusOK},
		{name: "страница", query: "?limit=20&offset=40", wantLimit: 20, wantOffset: 40, wantCode: http.StatusOK},
		{name: "отрицательное смещение", query: "?offset=-1", wantCode: http.StatusBadRequest},
		{name: "лимит не число", query: "?limit=x", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			if tt.wantCode == http.StatusOK {
				rec := &models.PaymentRecord{SubscriptionName: "Netflix"}
				svc.On("List", mock.Anything, "uid-1", tt.wantLimit, tt.wantOffset).
					Return([]*models.PaymentRecord{rec}, nil).Once()
			}
			req := httptest.NewRequest(http.MethodGet, "/api/v1/payments"+tt.query, nil)
			req = req.WithContext(middlewarectx.WithUser(req.Context(), &models.User{UUID: "uid-1"}))
			rec := httptest.NewRecorder()

			New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK {
				assert.Contains(t, rec.Body.String(), `"subscription_name":"Netflix"`)
			}
			svc.AssertExpectations(t)
		})
	}
}
