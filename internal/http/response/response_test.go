package response

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/attendance-checkin/internal/models"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: fmt.Errorf("op: %w", models.ErrNotFound), want: http.StatusNotFound},
		{name: "bad request", err: models.ErrBadRequest, want: http.StatusBadRequest},
		{name: "invalid window", err: models.ErrInvalidWindow, want: http.StatusBadRequest},
		{name: "schedule conflict", err: &models.ScheduleConflictError{}, want: http.StatusConflict},
		{name: "already exists", err: models.ErrAlreadyExists, want: http.StatusConflict},
		{name: "unknown", err: errors.New("db down"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.err))
		})
	}
}

func TestValidationError(t *testing.T) {
	type item struct {
		Name string `validate:"required"`
		Type string `validate:"oneof=GROUP INDIVIDUAL"`
	}
	err := validator.New().Struct(item{Type: "PAIR"})
	require.Error(t, err)

	resp := ValidationError(err.(validator.ValidationErrors))
	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Error, "field Name is a required field")
	assert.Contains(t, resp.Error, "field Type must be one of: GROUP INDIVIDUAL")
}
