package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/attendance-checkin/internal/http/middlewarectx"
	"github.com/magabrotheeeer/attendance-checkin/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Scan(ctx context.Context, req models.ScanRequest) (models.CheckinOutcome, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.CheckinOutcome), args.Error(1)
}

func TestScanHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		body           string
		userID         string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:   "ученик отмечен",
			body:   `{"trainee_username":"student"}`,
			userID: "trainer-user",
			setupMock: func(m *MockService) {
				m.On("Scan", mock.Anything, models.ScanRequest{
					TrainerUserID:   "trainer-user",
					TraineeUsername: "student",
				}).Return(models.CheckinOutcome{Status: models.StatusSuccess, TrainingID: "t-1"}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"training_id":"t-1"`,
		},
		{
			name:           "нет ученика",
			body:           `{}`,
			userID:         "trainer-user",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `TraineeUsername is a required field`,
		},
		{
			name:           "не авторизован",
			body:           `{"trainee_username":"student"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:   "пользователь не тренер",
			body:   `{"trainee_username":"student"}`,
			userID: "someone",
			setupMock: func(m *MockService) {
				m.On("Scan", mock.Anything, mock.Anything).
					Return(models.CheckinOutcome{}, fmt.Errorf("trainer: %w", models.ErrNotFound))
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:   "ошибка сервиса",
			body:   `{"trainee_username":"student"}`,
			userID: "trainer-user",
			setupMock: func(m *MockService) {
				m.On("Scan", mock.Anything, mock.Anything).
					Return(models.CheckinOutcome{}, errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `could not mark attendance`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/trainer/scan", strings.NewReader(tt.body))
			if tt.userID != "" {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserID, tt.userID))
			}
			w := httptest.NewRecorder()

			New(logger, mockService).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}
