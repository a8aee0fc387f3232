package mark

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

func (m *MockService) Checkin(ctx context.Context, req models.CheckinRequest) (models.CheckinOutcome, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.CheckinOutcome), args.Error(1)
}

func TestMarkHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	trainingID := "t-1"

	tests := []struct {
		name           string
		body           string
		username       string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:     "успешная отметка",
			body:     `{"trainer_username":"coach","trainer_qr_code_key":"qr","training_id":"t-1"}`,
			username: "student",
			setupMock: func(m *MockService) {
				m.On("Checkin", mock.Anything, models.CheckinRequest{
					TrainerUsername:  "coach",
					TrainerQRCodeKey: "qr",
					ActingUsername:   "student",
					TrainingID:       &trainingID,
				}).Return(models.CheckinOutcome{Status: models.StatusSuccess, TrainingID: "t-1"}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"success"`,
		},
		{
			name:     "нужно уточнить тренировку",
			body:     `{"trainer_username":"coach","trainer_qr_code_key":"qr"}`,
			username: "student",
			setupMock: func(m *MockService) {
				m.On("Checkin", mock.Anything, mock.Anything).Return(models.CheckinOutcome{
					Status: models.StatusSpecifyTraining,
					Trainings: []models.TrainingCandidate{
						{ID: "t-1"}, {ID: "t-2"},
					},
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"specifyTraining"`,
		},
		{
			name:           "некорректный JSON",
			body:           `{`,
			username:       "student",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `invalid request body`,
		},
		{
			name:           "нет QR-ключа",
			body:           `{"trainer_username":"coach"}`,
			username:       "student",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `TrainerQRCodeKey is a required field`,
		},
		{
			name:           "ребёнок без идентификатора",
			body:           `{"trainer_username":"coach","trainer_qr_code_key":"qr","children_and_trainings":[{}]}`,
			username:       "student",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `TraineeID is a required field`,
		},
		{
			name:           "нет пользователя в контексте",
			body:           `{"trainer_username":"coach","trainer_qr_code_key":"qr"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `unauthorized`,
		},
		{
			name:     "QR-код не совпадает",
			body:     `{"trainer_username":"coach","trainer_qr_code_key":"old"}`,
			username: "student",
			setupMock: func(m *MockService) {
				m.On("Checkin", mock.Anything, mock.Anything).
					Return(models.CheckinOutcome{}, fmt.Errorf("checkin.Checkin: qr code mismatch: %w", models.ErrBadRequest))
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `qr code mismatch`,
		},
		{
			name:     "тренер не найден",
			body:     `{"trainer_username":"ghost","trainer_qr_code_key":"qr"}`,
			username: "student",
			setupMock: func(m *MockService) {
				m.On("Checkin", mock.Anything, mock.Anything).
					Return(models.CheckinOutcome{}, fmt.Errorf("trainer: %w", models.ErrNotFound))
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:     "ошибка хранилища",
			body:     `{"trainer_username":"coach","trainer_qr_code_key":"qr"}`,
			username: "student",
			setupMock: func(m *MockService) {
				m.On("Checkin", mock.Anything, mock.Anything).
					Return(models.CheckinOutcome{}, errors.New("connection refused"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `could not mark attendance`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/checkin", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			if tt.username != "" {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.User, tt.username))
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}
