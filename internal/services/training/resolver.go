// Package training находит активные тренировки тренера и при необходимости
// создаёт сегодняшнее занятие из еженедельного шаблона.
package training

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/attendance-checkin/internal/lib/sl"
	"github.com/magabrotheeeer/attendance-checkin/internal/lib/timewindow"
	"github.com/magabrotheeeer/attendance-checkin/internal/metrics"
	"github.com/magabrotheeeer/attendance-checkin/internal/models"
)

// Repository описывает операции с тренировками и шаблонами.
type Repository interface {
	// TrainerTrainingsStartingBetween возвращает тренировки тренера с началом в [from, to]
	// вместе с идентификаторами уже отмеченных учеников.
	TrainerTrainingsStartingBetween(ctx context.Context, trainerID string, from, to time.Time) ([]models.Training, error)
	// ActiveTemplates возвращает шаблоны тренера, действующие в момент at.
	ActiveTemplates(ctx context.Context, trainerID string, at time.Time) ([]models.TrainingTemplate, error)
	// MaterializeTraining создаёт тренировку из шаблона. Повторный вызов для того же
	// шаблона и времени начала возвращает уже созданную тренировку.
	MaterializeTraining(ctx context.Context, t models.Training) (models.Training, error)
}

// Resolver ищет тренировки, идущие в окрестности текущего момента.
type Resolver struct {
	repo   Repository
	window time.Duration
	loc    *time.Location
	log    *slog.Logger
}

// NewResolver создаёт Resolver. window задаёт допуск в обе стороны от текущего момента,
// loc часовой пояс, в котором заданы слоты шаблонов.
func NewResolver(repo Repository, window time.Duration, loc *time.Location, log *slog.Logger) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{
		repo:   repo,
		window: window,
		loc:    loc,
		log:    log,
	}
}

// Active возвращает активные тренировки тренера на момент now.
func (r *Resolver) Active(ctx context.Context, trainerID string, now time.Time) ([]models.Training, error) {
	const op = "training.Active"
	log := r.log.With(slog.String("op", op), slog.String("trainer_id", trainerID))

	around := timewindow.Around(now, r.window)
	trainings, err := r.repo.TrainerTrainingsStartingBetween(ctx, trainerID, around.Start, around.End)
	if err != nil {
		log.Error("failed to get trainings", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(trainings) > 0 {
		return trainings, nil
	}

	templates, err := r.repo.ActiveTemplates(ctx, trainerID, now)
	if err != nil {
		log.Error("failed to get templates", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	tpl, start, ok := r.matchSlot(templates, now)
	if !ok {
		return nil, nil
	}

	duration := tpl.DurationMin
	tplID := tpl.ID
	created, err := r.repo.MaterializeTraining(ctx, models.Training{
		Name:        tpl.Name,
		Type:        tpl.Type,
		StartDate:   &start,
		DurationMin: &duration,
		GymID:       tpl.GymID,
		GroupID:     tpl.GroupID,
		TemplateID:  &tplID,
		TrainerIDs:  []string{trainerID},
	})
	if err != nil {
		log.Error("failed to materialize training", slog.String("template_id", tpl.ID), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	metrics.TrainingsMaterialized.Inc()
	log.Info("training materialized from template",
		slog.String("template_id", tpl.ID),
		slog.String("training_id", created.ID),
		slog.Time("start", start))

	return []models.Training{created}, nil
}

// matchSlot выбирает слот шаблона, ближайший к now в пределах допуска.
// Проверяются вчерашний, сегодняшний и завтрашний день, чтобы окно могло переходить через полночь.
func (r *Resolver) matchSlot(templates []models.TrainingTemplate, now time.Time) (models.TrainingTemplate, time.Time, bool) {
	var (
		best      models.TrainingTemplate
		bestStart time.Time
		bestDiff  time.Duration
		found     bool
	)
	local := now.In(r.loc)
	for _, tpl := range templates {
		if !tpl.CoversDate(now) {
			continue
		}
		for _, slot := range tpl.TimeSlots {
			for offset := -1; offset <= 1; offset++ {
				day := local.AddDate(0, 0, offset)
				if day.Weekday() != slot.DayOfWeek {
					continue
				}
				start := time.Date(day.Year(), day.Month(), day.Day(), slot.Hours, slot.Minutes, 0, 0, r.loc)
				diff := start.Sub(now)
				if diff < 0 {
					diff = -diff
				}
				if diff > r.window {
					continue
				}
				if !found || diff < bestDiff {
					best, bestStart, bestDiff, found = tpl, start, diff, true
				}
			}
		}
	}
	return best, bestStart, found
}
