package response

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"not found", fmt.Errorf("op: %w", models.ErrNotFound), http.StatusNotFound, "not found"},
		{"duplicate", fmt.Errorf("op: %w", models.ErrAlreadyExists), http.StatusConflict, "already exists"},
		{"credentials", models.ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials"},
		{
			"invalid input keeps detail",
			fmt.Errorf("subscription.Create: %w: trial_end_date is required", models.ErrInvalidInput),
			http.StatusBadRequest,
			"invalid input: trial_end_date is required",
		},
		{"internal", errors.New("connection refused"), http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, msg := StatusFor(tt.err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestValidationError(t *testing.T) {
	type req struct {
		Email string `validate:"required,email"`
		Name  string `validate:"min=3"`
	}
	err := validator.New().Struct(req{Name: "ab"})
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))

	resp := ValidationError(verrs)
	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Error, "field Email is a required field")
	assert.Contains(t, resp.Error, "field Name must be at least 3")
}

func TestStatusOKWithData(t *testing.T) {
	resp := StatusOKWithData(map[string]int{"n": 1})
	assert.Equal(t, StatusOK, resp.Status)
	assert.Empty(t, resp.Error)
}
