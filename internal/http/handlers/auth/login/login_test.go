package login

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) Login(ctx context.Context, username, password string) (string, string, error) {
	args := m.Called(ctx, username, password)
	return args.String(0), args.String(1), args.Error(2)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestLoginHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setupMock  func(*AuthServiceMock)
		wantCode   int
		wantStatus string
		wantError  string
	}{
		{
			name: "успешный вход",
			body: `{"username":"alice","password":"secret1"}`,
			setupMock: func(m *AuthServiceMock) {
				m.On("Login", mock.Anything, "alice", "secret1").Return("tok", models.RoleUser, nil).Once()
			},
			wantCode:   http.StatusOK,
			wantStatus: "OK",
		},
		{
			name:       "некорректный JSON",
			body:       `not json`,
			wantCode:   http.StatusBadRequest,
			wantStatus: "Error",
			wantError:  "invalid request body",
		},
		{
			name:       "нет пароля",
			body:       `{"username":"alice"}`,
			wantCode:   http.StatusUnprocessableEntity,
			wantStatus: "Error",
			wantError:  "field Password is a required field",
		},
		{
			name: "неверный пароль",
			body: `{"username":"alice","password":"wrong12"}`,
			setupMock: func(m *AuthServiceMock) {
				m.On("Login", mock.Anything, "alice", "wrong12").
					Return("", "", fmt.Errorf("auth.Login: %w", models.ErrInvalidCredentials)).Once()
			},
			wantCode:   http.StatusUnauthorized,
			wantStatus: "Error",
			wantError:  "invalid credentials",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(AuthServiceMock)
			if tt.setupMock != nil {
				tt.setupMock(svc)
			}
			req := httptest.NewRequest(http.MethodPost, "/api/v1/login", bytes.NewBufferString(tt.body))
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123"))
			rec := httptest.NewRecorder()

			New(newNoopLogger(), svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			var resp map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp["status"])
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, resp["error"])
			} else {
				data := resp["data"].(map[string]any)
				assert.Equal(t, "tok", data["token"])
				assert.Equal(t, models.RoleUser, data["role"])
			}
			svc.AssertExpectations(t)
		})
	}
}
