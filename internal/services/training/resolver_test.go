package training

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/attendance-checkin/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) TrainerTrainingsStartingBetween(ctx context.Context, trainerID string, from, to time.Time) ([]models.Training, error) {
	args := m.Called(ctx, trainerID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Training), args.Error(1)
}

func (m *RepoMock) ActiveTemplates(ctx context.Context, trainerID string, at time.Time) ([]models.TrainingTemplate, error) {
	args := m.Called(ctx, trainerID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TrainingTemplate), args.Error(1)
}

func (m *RepoMock) MaterializeTraining(ctx context.Context, t models.Training) (models.Training, error) {
	args := m.Called(ctx, t)
	return args.Get(0).(models.Training), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func ptr[T any](v T) *T { return &v }

// 2025-03-10 понедельник
var monday10 = time.Date(2025, 3, 10, 10, 5, 0, 0, time.UTC)

func TestResolver_Active(t *testing.T) {
	const trainerID = "trainer-1"
	window := 15 * time.Minute
	from, to := monday10.Add(-window), monday10.Add(window)

	template := models.TrainingTemplate{
		ID:          "tpl-1",
		Name:        "Kids judo",
		Type:        models.TrainingTypeGroup,
		DurationMin: 90,
		StartDate:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		GroupID:     ptr("group-1"),
		TrainerID:   trainerID,
		TimeSlots:   []models.TimeSlot{{DayOfWeek: time.Monday, Hours: 10, Minutes: 0}},
	}

	tests := []struct {
		name       string
		setupMocks func(r *RepoMock)
		wantIDs    []string
		wantErr    bool
	}{
		{
			name: "scheduled trainings found",
			setupMocks: func(r *RepoMock) {
				r.On("TrainerTrainingsStartingBetween", mock.Anything, trainerID, from, to).
					Return([]models.Training{{ID: "t1"}, {ID: "t2"}}, nil).Once()
			},
			wantIDs: []string{"t1", "t2"},
		},
		{
			name: "template slot materialized",
			setupMocks: func(r *RepoMock) {
				r.On("TrainerTrainingsStartingBetween", mock.Anything, trainerID, from, to).Return(nil, nil).Once()
				r.On("ActiveTemplates", mock.Anything, trainerID, monday10).
					Return([]models.TrainingTemplate{template}, nil).Once()
				r.On("MaterializeTraining", mock.Anything, mock.MatchedBy(func(t models.Training) bool {
					return t.StartDate.Equal(time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)) &&
						*t.DurationMin == 90 &&
						*t.TemplateID == "tpl-1" &&
						*t.GroupID == "group-1" &&
						len(t.TrainerIDs) == 1 && t.TrainerIDs[0] == trainerID
				})).Return(models.Training{ID: "materialized"}, nil).Once()
			},
			wantIDs: []string{"materialized"},
		},
		{
			name: "slot outside window",
			setupMocks: func(r *RepoMock) {
				tpl := template
				tpl.TimeSlots = []models.TimeSlot{{DayOfWeek: time.Monday, Hours: 11, Minutes: 0}}
				r.On("TrainerTrainingsStartingBetween", mock.Anything, trainerID, from, to).Return(nil, nil).Once()
				r.On("ActiveTemplates", mock.Anything, trainerID, monday10).
					Return([]models.TrainingTemplate{tpl}, nil).Once()
			},
		},
		{
			name: "slot on another weekday",
			setupMocks: func(r *RepoMock) {
				tpl := template
				tpl.TimeSlots = []models.TimeSlot{{DayOfWeek: time.Tuesday, Hours: 10, Minutes: 0}}
				r.On("TrainerTrainingsStartingBetween", mock.Anything, trainerID, from, to).Return(nil, nil).Once()
				r.On("ActiveTemplates", mock.Anything, trainerID, monday10).
					Return([]models.TrainingTemplate{tpl}, nil).Once()
			},
		},
		{
			name: "expired template",
			setupMocks: func(r *RepoMock) {
				tpl := template
				tpl.EndDate = ptr(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
				r.On("TrainerTrainingsStartingBetween", mock.Anything, trainerID, from, to).Return(nil, nil).Once()
				r.On("ActiveTemplates", mock.Anything, trainerID, monday10).
					Return([]models.TrainingTemplate{tpl}, nil).Once()
			},
		},
		{
			name: "storage error",
			setupMocks: func(r *RepoMock) {
				r.On("TrainerTrainingsStartingBetween", mock.Anything, trainerID, from, to).
					Return(nil, errors.New("db down")).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			tt.setupMocks(repo)

			r := NewResolver(repo, window, time.UTC, newNoopLogger())
			got, err := r.Active(context.Background(), trainerID, monday10)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			var ids []string
			for _, tr := range got {
				ids = append(ids, tr.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			repo.AssertExpectations(t)
		})
	}
}

func TestResolver_MatchSlotAcrossMidnight(t *testing.T) {
	now := time.Date(2025, 3, 9, 23, 55, 0, 0, time.UTC) // воскресенье
	r := NewResolver(nil, 15*time.Minute, time.UTC, newNoopLogger())

	tpl := models.TrainingTemplate{
		ID:        "late",
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		TimeSlots: []models.TimeSlot{{DayOfWeek: time.Monday, Hours: 0, Minutes: 5}},
	}
	got, start, ok := r.matchSlot([]models.TrainingTemplate{tpl}, now)
	require.True(t, ok)
	assert.Equal(t, "late", got.ID)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 5, 0, 0, time.UTC), start)
}

func TestResolver_MatchSlotPicksClosest(t *testing.T) {
	r := NewResolver(nil, 15*time.Minute, time.UTC, newNoopLogger())
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	far := models.TrainingTemplate{ID: "far", StartDate: start,
		TimeSlots: []models.TimeSlot{{DayOfWeek: time.Monday, Hours: 9, Minutes: 55}}}
	near := models.TrainingTemplate{ID: "near", StartDate: start,
		TimeSlots: []models.TimeSlot{{DayOfWeek: time.Monday, Hours: 10, Minutes: 5}}}

	got, _, ok := r.matchSlot([]models.TrainingTemplate{far, near}, monday10)
	require.True(t, ok)
	assert.Equal(t, "near", got.ID)
}

func TestResolver_MatchSlotUsesLocation(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	r := NewResolver(nil, 15*time.Minute, loc, newNoopLogger())
	tpl := models.TrainingTemplate{
		ID:        "msk",
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		TimeSlots: []models.TimeSlot{{DayOfWeek: time.Monday, Hours: 13, Minutes: 0}},
	}
	// 10:05 UTC = 13:05 MSK
	_, start, ok := r.matchSlot([]models.TrainingTemplate{tpl}, monday10)
	require.True(t, ok)
	assert.True(t, start.Equal(time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)))
}
